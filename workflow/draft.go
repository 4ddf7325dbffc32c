package workflow

import (
	"time"

	"bitbucket.org/mmdatafocus/ledger_import/models"
	"github.com/shopspring/decimal"
)

// JournalDraft is an unvalidated, unpersisted ledger transaction produced by
// a mutation classifier. The committer validates and persists it.
type JournalDraft struct {
	Date        time.Time
	Description string
	// ReferenceNumber carries the settled invoice number for payments that
	// allocate against an open invoice.
	ReferenceNumber string
	PartyId         int
	SourceType      models.MutationType
	// ExternalIds lists every source mutation folded into this draft. Single
	// for ordinary mutations, many for the aggregated opening balance.
	ExternalIds []int64
	Lines       []DraftLine
}

type DraftLine struct {
	AccountId   int
	Description string
	Debit       decimal.Decimal
	Credit      decimal.Decimal
}

// AddSplit appends a line whose side is decided by the sign convention
// engine. Zero amounts add no line.
func (d *JournalDraft) AddSplit(accountId int, accountType models.AccountMainType, signedAmount decimal.Decimal, description string) {
	if signedAmount.IsZero() {
		return
	}
	debit, credit := SplitAmount(accountType, signedAmount)
	d.Lines = append(d.Lines, DraftLine{
		AccountId:   accountId,
		Description: description,
		Debit:       debit,
		Credit:      credit,
	})
}

// AddDebit / AddCredit append an explicitly sided line. Negative amounts flip
// to the opposite side so a line never carries a negative debit or credit.
func (d *JournalDraft) AddDebit(accountId int, amount decimal.Decimal, description string) {
	if amount.IsZero() {
		return
	}
	if amount.IsNegative() {
		d.AddCredit(accountId, amount.Neg(), description)
		return
	}
	d.Lines = append(d.Lines, DraftLine{AccountId: accountId, Description: description, Debit: amount})
}

func (d *JournalDraft) AddCredit(accountId int, amount decimal.Decimal, description string) {
	if amount.IsZero() {
		return
	}
	if amount.IsNegative() {
		d.AddDebit(accountId, amount.Neg(), description)
		return
	}
	d.Lines = append(d.Lines, DraftLine{AccountId: accountId, Description: description, Credit: amount})
}

func (d *JournalDraft) TotalDebit() decimal.Decimal {
	total := decimal.Zero
	for _, line := range d.Lines {
		total = total.Add(line.Debit)
	}
	return total
}

func (d *JournalDraft) TotalCredit() decimal.Decimal {
	total := decimal.Zero
	for _, line := range d.Lines {
		total = total.Add(line.Credit)
	}
	return total
}
