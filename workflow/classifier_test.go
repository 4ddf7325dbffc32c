package workflow

import (
	"context"
	"errors"
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/ledger_import/models"
	"bitbucket.org/mmdatafocus/ledger_import/utils"
	"github.com/shopspring/decimal"
)

func dec(raw string) decimal.Decimal {
	return decimal.RequireFromString(raw)
}

func mutationDate() time.Time {
	return time.Date(2023, 4, 12, 0, 0, 0, 0, time.UTC)
}

func assertBalanced(t *testing.T, draft *JournalDraft) {
	t.Helper()
	if !draft.TotalDebit().Equal(draft.TotalCredit()) {
		t.Fatalf("draft unbalanced: debits %s, credits %s", draft.TotalDebit(), draft.TotalCredit())
	}
}

func lineFor(t *testing.T, draft *JournalDraft, accountId int) DraftLine {
	t.Helper()
	for _, line := range draft.Lines {
		if line.AccountId == accountId {
			return line
		}
	}
	t.Fatalf("no line for account %d in %+v", accountId, draft.Lines)
	return DraftLine{}
}

func TestBuildDraft_PurchaseInvoice(t *testing.T) {
	h := newHarness()
	mutation := &models.CachedMutation{
		ExternalId:    7296,
		Type:          models.MutationTypePurchaseInvoice,
		MutationDate:  mutationDate(),
		Description:   "Office supplies",
		RelationCode:  "SUP-12",
		InvoiceNumber: "F2023-118",
		Rows: []models.CachedMutationRow{
			{LedgerCode: "4000", Amount: dec("93.45"), Description: "Supplies"},
		},
		VatLines: []models.CachedMutationVat{
			{VatCode: "HIGH", Amount: dec("19.63")},
		},
	}

	draft, err := h.classifier.BuildDraft(context.Background(), mutation)
	if err != nil {
		t.Fatalf("BuildDraft: %v", err)
	}
	assertBalanced(t, draft)

	expense := lineFor(t, draft, h.expenseId)
	if !expense.Debit.Equal(dec("93.45")) {
		t.Fatalf("expense debit = %s, want 93.45", expense.Debit)
	}

	vatId := h.ledger.system[models.AccountCodeVatReceivable]
	vat := lineFor(t, draft, vatId)
	if !vat.Debit.Equal(dec("19.63")) {
		t.Fatalf("input VAT debit = %s, want 19.63", vat.Debit)
	}

	payableId := h.ledger.system[models.AccountCodePayable]
	payable := lineFor(t, draft, payableId)
	if !payable.Credit.Equal(dec("113.08")) {
		t.Fatalf("payable credit = %s, want 113.08", payable.Credit)
	}

	if draft.PartyId == 0 {
		t.Fatal("expected a supplier party on the draft")
	}
	if draft.ReferenceNumber != "F2023-118" {
		t.Fatalf("reference = %q, want invoice number", draft.ReferenceNumber)
	}
}

// A purchase invoice with a single row and no VAT lines books exactly two
// lines: the expense for the row amount and the payable for the same amount.
func TestBuildDraft_PurchaseInvoiceSingleRowNoVat(t *testing.T) {
	h := newHarness()
	mutation := &models.CachedMutation{
		ExternalId:    7296,
		Type:          models.MutationTypePurchaseInvoice,
		MutationDate:  mutationDate(),
		RelationCode:  "SUP-12",
		InvoiceNumber: "F2023-118",
		Rows: []models.CachedMutationRow{
			{LedgerCode: "4000", Amount: dec("113.08")},
		},
	}

	draft, err := h.classifier.BuildDraft(context.Background(), mutation)
	if err != nil {
		t.Fatalf("BuildDraft: %v", err)
	}
	assertBalanced(t, draft)

	if len(draft.Lines) != 2 {
		t.Fatalf("lines = %d, want 2: %+v", len(draft.Lines), draft.Lines)
	}
	expense := lineFor(t, draft, h.expenseId)
	if !expense.Debit.Equal(dec("113.08")) {
		t.Fatalf("expense debit = %s, want 113.08", expense.Debit)
	}
	payable := lineFor(t, draft, h.ledger.system[models.AccountCodePayable])
	if !payable.Credit.Equal(dec("113.08")) {
		t.Fatalf("payable credit = %s, want 113.08", payable.Credit)
	}
}

func TestBuildDraft_SalesInvoice(t *testing.T) {
	h := newHarness()
	mutation := &models.CachedMutation{
		ExternalId:   301,
		Type:         models.MutationTypeSalesInvoice,
		MutationDate: mutationDate(),
		RelationCode: "CUST-7",
		Rows: []models.CachedMutationRow{
			{LedgerCode: "8000", Amount: dec("250.00")},
		},
		VatLines: []models.CachedMutationVat{
			{VatCode: "HIGH", Amount: dec("52.50")},
		},
	}

	draft, err := h.classifier.BuildDraft(context.Background(), mutation)
	if err != nil {
		t.Fatalf("BuildDraft: %v", err)
	}
	assertBalanced(t, draft)

	income := lineFor(t, draft, h.incomeId)
	if !income.Credit.Equal(dec("250.00")) {
		t.Fatalf("income credit = %s, want 250.00", income.Credit)
	}
	receivable := lineFor(t, draft, h.ledger.system[models.AccountCodeReceivable])
	if !receivable.Debit.Equal(dec("302.50")) {
		t.Fatalf("receivable debit = %s, want 302.50", receivable.Debit)
	}
}

func TestBuildDraft_InvoiceWithoutRowsFails(t *testing.T) {
	h := newHarness()
	mutation := &models.CachedMutation{
		ExternalId:   302,
		Type:         models.MutationTypeSalesInvoice,
		MutationDate: mutationDate(),
	}

	_, err := h.classifier.BuildDraft(context.Background(), mutation)
	if utils.KindOf(err) != utils.ErrorKindValidation {
		t.Fatalf("error kind = %s, want VALIDATION (%v)", utils.KindOf(err), err)
	}
}

func TestBuildDraft_CustomerPayment(t *testing.T) {
	h := newHarness()
	mutation := &models.CachedMutation{
		ExternalId:    410,
		Type:          models.MutationTypeCustomerPayment,
		MutationDate:  mutationDate(),
		LedgerCode:    "1000",
		RelationCode:  "CUST-7",
		InvoiceNumber: "2023-042",
		Rows: []models.CachedMutationRow{
			{LedgerCode: "1300", Amount: dec("302.50")},
		},
	}

	draft, err := h.classifier.BuildDraft(context.Background(), mutation)
	if err != nil {
		t.Fatalf("BuildDraft: %v", err)
	}
	assertBalanced(t, draft)

	bank := lineFor(t, draft, h.bankId)
	if !bank.Debit.Equal(dec("302.50")) {
		t.Fatalf("bank debit = %s, want 302.50", bank.Debit)
	}
	receivable := lineFor(t, draft, h.ledger.system[models.AccountCodeReceivable])
	if !receivable.Credit.Equal(dec("302.50")) {
		t.Fatalf("receivable credit = %s, want 302.50", receivable.Credit)
	}
	if draft.ReferenceNumber != "2023-042" {
		t.Fatalf("reference = %q, want settled invoice number", draft.ReferenceNumber)
	}
}

func TestBuildDraft_SupplierPayment(t *testing.T) {
	h := newHarness()
	mutation := &models.CachedMutation{
		ExternalId:   411,
		Type:         models.MutationTypeSupplierPayment,
		MutationDate: mutationDate(),
		LedgerCode:   "1000",
		Rows: []models.CachedMutationRow{
			{LedgerCode: "1600", Amount: dec("113.08")},
		},
	}

	draft, err := h.classifier.BuildDraft(context.Background(), mutation)
	if err != nil {
		t.Fatalf("BuildDraft: %v", err)
	}
	assertBalanced(t, draft)

	bank := lineFor(t, draft, h.bankId)
	if !bank.Credit.Equal(dec("113.08")) {
		t.Fatalf("bank credit = %s, want 113.08", bank.Credit)
	}
	payable := lineFor(t, draft, h.ledger.system[models.AccountCodePayable])
	if !payable.Debit.Equal(dec("113.08")) {
		t.Fatalf("payable debit = %s, want 113.08", payable.Debit)
	}
}

func TestBuildDraft_MoneyReceived(t *testing.T) {
	h := newHarness()
	mutation := &models.CachedMutation{
		ExternalId:   520,
		Type:         models.MutationTypeMoneyReceived,
		MutationDate: mutationDate(),
		LedgerCode:   "1000",
		Rows: []models.CachedMutationRow{
			{LedgerCode: "8000", Amount: dec("100.00")},
		},
		VatLines: []models.CachedMutationVat{
			{VatCode: "HIGH", Amount: dec("21.00")},
		},
	}

	draft, err := h.classifier.BuildDraft(context.Background(), mutation)
	if err != nil {
		t.Fatalf("BuildDraft: %v", err)
	}
	assertBalanced(t, draft)

	bank := lineFor(t, draft, h.bankId)
	if !bank.Debit.Equal(dec("121.00")) {
		t.Fatalf("bank debit = %s, want 121.00", bank.Debit)
	}
	vat := lineFor(t, draft, h.ledger.system[models.AccountCodeVatPayable])
	if !vat.Credit.Equal(dec("21.00")) {
		t.Fatalf("output VAT credit = %s, want 21.00", vat.Credit)
	}
}

func TestBuildDraft_MoneySpent(t *testing.T) {
	h := newHarness()
	mutation := &models.CachedMutation{
		ExternalId:   521,
		Type:         models.MutationTypeMoneySpent,
		MutationDate: mutationDate(),
		LedgerCode:   "1000",
		Rows: []models.CachedMutationRow{
			{LedgerCode: "4000", Amount: dec("80.00")},
		},
	}

	draft, err := h.classifier.BuildDraft(context.Background(), mutation)
	if err != nil {
		t.Fatalf("BuildDraft: %v", err)
	}
	assertBalanced(t, draft)

	bank := lineFor(t, draft, h.bankId)
	if !bank.Credit.Equal(dec("80.00")) {
		t.Fatalf("bank credit = %s, want 80.00", bank.Credit)
	}
	expense := lineFor(t, draft, h.expenseId)
	if !expense.Debit.Equal(dec("80.00")) {
		t.Fatalf("expense debit = %s, want 80.00", expense.Debit)
	}
}

// A memorial row of +1000 and one of -1000 must produce exact mirror
// journals: the main account takes the opposite of the rows' net.
func TestBuildDraft_MemorialDirectionality(t *testing.T) {
	h := newHarness()

	build := func(amount string) *JournalDraft {
		t.Helper()
		mutation := &models.CachedMutation{
			ExternalId:   600,
			Type:         models.MutationTypeMemorial,
			MutationDate: mutationDate(),
			LedgerCode:   "0500",
			Rows: []models.CachedMutationRow{
				{LedgerCode: "4000", Amount: dec(amount)},
			},
		}
		draft, err := h.classifier.BuildDraft(context.Background(), mutation)
		if err != nil {
			t.Fatalf("BuildDraft(%s): %v", amount, err)
		}
		assertBalanced(t, draft)
		return draft
	}

	plus := build("1000")
	row := lineFor(t, plus, h.expenseId)
	if !row.Debit.Equal(dec("1000")) {
		t.Fatalf("+1000 row debit = %s, want 1000", row.Debit)
	}
	main := lineFor(t, plus, h.equityId)
	if !main.Credit.Equal(dec("1000")) {
		t.Fatalf("+1000 main credit = %s, want 1000", main.Credit)
	}

	minus := build("-1000")
	row = lineFor(t, minus, h.expenseId)
	if !row.Credit.Equal(dec("1000")) {
		t.Fatalf("-1000 row credit = %s, want 1000", row.Credit)
	}
	main = lineFor(t, minus, h.equityId)
	if !main.Debit.Equal(dec("1000")) {
		t.Fatalf("-1000 main debit = %s, want 1000", main.Debit)
	}
}

// With main and row both Equity, a +1000 row must credit the row account and
// debit the main account; -1000 exactly mirrors it.
func TestBuildDraft_MemorialEquityToEquity(t *testing.T) {
	h := newHarness()
	reserveId := h.ledger.addAccount(models.AccountMainTypeEquity, "General reserve")
	h.mappings.add("0600", reserveId, models.AccountMainTypeEquity)

	build := func(amount string) *JournalDraft {
		t.Helper()
		mutation := &models.CachedMutation{
			ExternalId:   601,
			Type:         models.MutationTypeMemorial,
			MutationDate: mutationDate(),
			LedgerCode:   "0500",
			Rows: []models.CachedMutationRow{
				{LedgerCode: "0600", Amount: dec(amount)},
			},
		}
		draft, err := h.classifier.BuildDraft(context.Background(), mutation)
		if err != nil {
			t.Fatalf("BuildDraft(%s): %v", amount, err)
		}
		assertBalanced(t, draft)
		return draft
	}

	plus := build("1000")
	if row := lineFor(t, plus, reserveId); !row.Credit.Equal(dec("1000")) {
		t.Fatalf("+1000 row credit = %s, want 1000", row.Credit)
	}
	if main := lineFor(t, plus, h.equityId); !main.Debit.Equal(dec("1000")) {
		t.Fatalf("+1000 main debit = %s, want 1000", main.Debit)
	}

	minus := build("-1000")
	if row := lineFor(t, minus, reserveId); !row.Debit.Equal(dec("1000")) {
		t.Fatalf("-1000 row debit = %s, want 1000", row.Debit)
	}
	if main := lineFor(t, minus, h.equityId); !main.Credit.Equal(dec("1000")) {
		t.Fatalf("-1000 main credit = %s, want 1000", main.Credit)
	}
}

func TestBuildDraft_OpeningBalanceIsDeferred(t *testing.T) {
	h := newHarness()
	mutation := &models.CachedMutation{
		ExternalId:   700,
		Type:         models.MutationTypeOpeningBalance,
		MutationDate: mutationDate(),
		Rows: []models.CachedMutationRow{
			{LedgerCode: "1000", Amount: dec("5000")},
		},
	}

	_, err := h.classifier.BuildDraft(context.Background(), mutation)
	if !errors.Is(err, ErrOpeningBalanceDeferred) {
		t.Fatalf("err = %v, want ErrOpeningBalanceDeferred", err)
	}
}

// An unmapped ledger code books to the import suspense account, records a
// warning, and leaves a review-flagged placeholder mapping behind.
func TestBuildDraft_UnmappedLedgerFallsBackToSuspense(t *testing.T) {
	h := newHarness()
	mutation := &models.CachedMutation{
		ExternalId:   800,
		Type:         models.MutationTypeMoneySpent,
		MutationDate: mutationDate(),
		LedgerCode:   "1000",
		Rows: []models.CachedMutationRow{
			{LedgerCode: "9999", Amount: dec("10.00")},
		},
	}

	draft, err := h.classifier.BuildDraft(context.Background(), mutation)
	if err != nil {
		t.Fatalf("BuildDraft: %v", err)
	}
	assertBalanced(t, draft)

	suspenseId := h.ledger.system[models.AccountCodeImportSuspense]
	if suspenseId == 0 {
		t.Fatal("suspense account was not created")
	}
	lineFor(t, draft, suspenseId)

	placeholder := h.mappings.byCode["9999"]
	if placeholder == nil || !placeholder.NeedsReview {
		t.Fatalf("placeholder mapping = %+v, want review-flagged entry", placeholder)
	}
	if len(h.recorder.byOutcome(models.MutationOutcomeWarning)) == 0 {
		t.Fatal("expected a recorded warning for the fallback")
	}
}
