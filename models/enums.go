package models

import "fmt"

type AccountMainType string

const (
	AccountMainTypeAsset     AccountMainType = "Asset"
	AccountMainTypeLiability AccountMainType = "Liability"
	AccountMainTypeEquity    AccountMainType = "Equity"
	AccountMainTypeIncome    AccountMainType = "Income"
	AccountMainTypeExpense   AccountMainType = "Expense"
)

type NormalBalance string

const (
	NormalBalanceDebit  NormalBalance = "DEBIT"
	NormalBalanceCredit NormalBalance = "CREDIT"
)

// NaturalBalance returns the side an account of this main type normally
// carries: assets and expenses are natural-debit, everything else is
// natural-credit.
func (t AccountMainType) NaturalBalance() NormalBalance {
	switch t {
	case AccountMainTypeAsset, AccountMainTypeExpense:
		return NormalBalanceDebit
	default:
		return NormalBalanceCredit
	}
}

type AccountDetailType string

const (
	AccountDetailTypeOtherAsset            AccountDetailType = "OtherAsset"
	AccountDetailTypeOtherCurrentAsset     AccountDetailType = "OtherCurrentAsset"
	AccountDetailTypeCash                  AccountDetailType = "Cash"
	AccountDetailTypeBank                  AccountDetailType = "Bank"
	AccountDetailTypeFixedAsset            AccountDetailType = "FixedAsset"
	AccountDetailTypeAccountsReceivable    AccountDetailType = "AccountsReceivable"
	AccountDetailTypeAccountsPayable       AccountDetailType = "AccountsPayable"
	AccountDetailTypeOtherCurrentLiability AccountDetailType = "OtherCurrentLiability"
	AccountDetailTypeLongTermLiability     AccountDetailType = "LongTermLiability"
	AccountDetailTypeEquity                AccountDetailType = "Equity"
	AccountDetailTypeIncome                AccountDetailType = "Income"
	AccountDetailTypeExpense               AccountDetailType = "Expense"
	AccountDetailTypeCostOfGoodsSold       AccountDetailType = "CostOfGoodsSold"
)

// System default account codes. These accounts are addressed by code rather
// than id so every business gets the same well-known fallbacks.
const (
	AccountCodeReceivable                = "AR"
	AccountCodePayable                   = "AP"
	AccountCodeImportSuspense            = "SUS"
	AccountCodeOpeningBalanceAdjustments = "OBA"
	AccountCodeVatReceivable             = "VR"
	AccountCodeVatPayable                = "VP"
)

// MutationType enumerates the financial event kinds the Fibu API reports.
// Classification dispatches exhaustively over this set; an unknown wire value
// fails at parse time instead of falling through silently.
type MutationType string

const (
	MutationTypeSalesInvoice    MutationType = "SalesInvoice"
	MutationTypePurchaseInvoice MutationType = "PurchaseInvoice"
	MutationTypeCustomerPayment MutationType = "CustomerPayment"
	MutationTypeSupplierPayment MutationType = "SupplierPayment"
	MutationTypeMoneyReceived   MutationType = "MoneyReceived"
	MutationTypeMoneySpent      MutationType = "MoneySpent"
	MutationTypeMemorial        MutationType = "Memorial"
	MutationTypeOpeningBalance  MutationType = "OpeningBalance"
)

// ParseMutationType maps the Fibu wire value onto the enum.
func ParseMutationType(raw string) (MutationType, error) {
	switch raw {
	case "FactuurVerstuurd", "SalesInvoice":
		return MutationTypeSalesInvoice, nil
	case "FactuurOntvangen", "PurchaseInvoice":
		return MutationTypePurchaseInvoice, nil
	case "FactuurbetalingOntvangen", "CustomerPayment":
		return MutationTypeCustomerPayment, nil
	case "FactuurbetalingVerstuurd", "SupplierPayment":
		return MutationTypeSupplierPayment, nil
	case "GeldOntvangen", "MoneyReceived":
		return MutationTypeMoneyReceived, nil
	case "GeldUitgegeven", "MoneySpent":
		return MutationTypeMoneySpent, nil
	case "Memoriaal", "Memorial":
		return MutationTypeMemorial, nil
	case "BeginBalans", "OpeningBalance":
		return MutationTypeOpeningBalance, nil
	default:
		return "", fmt.Errorf("unknown mutation type %q", raw)
	}
}

type MigrationRunStatus string

const (
	MigrationRunStatusPending   MigrationRunStatus = "PENDING"
	MigrationRunStatusRunning   MigrationRunStatus = "RUNNING"
	MigrationRunStatusCompleted MigrationRunStatus = "COMPLETED"
	MigrationRunStatusFailed    MigrationRunStatus = "FAILED"
	MigrationRunStatusCancelled MigrationRunStatus = "CANCELLED"
)

func (s MigrationRunStatus) Terminal() bool {
	return s == MigrationRunStatusCompleted || s == MigrationRunStatusFailed || s == MigrationRunStatusCancelled
}

// MutationOutcome is the per-mutation result recorded on a migration run.
type MutationOutcome string

const (
	MutationOutcomeImported MutationOutcome = "IMPORTED"
	MutationOutcomeSkipped  MutationOutcome = "SKIPPED"
	MutationOutcomeFailed   MutationOutcome = "FAILED"
	MutationOutcomeWarning  MutationOutcome = "WARNING"
)
