package workflow

import (
	"bitbucket.org/mmdatafocus/ledger_import/models"
	"github.com/shopspring/decimal"
)

// SplitAmount computes the debit/credit split for a signed external amount
// against an account's natural balance side:
//
//	natural-debit (Asset, Expense):    debit = max(a, 0), credit = max(-a, 0)
//	natural-credit (Liability, Equity, Income): credit = max(a, 0), debit = max(-a, 0)
//
// The sign of the amount, not the mutation type, drives the split. This holds
// uniformly for opening balances, memorial bookings, and ordinary
// transactions.
func SplitAmount(accountType models.AccountMainType, signedAmount decimal.Decimal) (debit decimal.Decimal, credit decimal.Decimal) {
	positive := decimal.Max(signedAmount, decimal.Zero)
	negative := decimal.Max(signedAmount.Neg(), decimal.Zero)

	if accountType.NaturalBalance() == models.NormalBalanceDebit {
		return positive, negative
	}
	return negative, positive
}
