package workflow

import (
	"context"
	"testing"

	"bitbucket.org/mmdatafocus/ledger_import/models"
)

// The aggregated opening balance journal must close exactly: whatever the
// source rows leave open goes to the Opening Balance Adjustments account.
func TestBuildOpeningBalance_ResidualGoesToAdjustments(t *testing.T) {
	h := newHarness()
	mutations := []*models.CachedMutation{
		{
			ExternalId:   700,
			Type:         models.MutationTypeOpeningBalance,
			MutationDate: mutationDate(),
			Rows: []models.CachedMutationRow{
				{LedgerCode: "1000", Amount: dec("5000.00")},
			},
		},
		{
			ExternalId:   701,
			Type:         models.MutationTypeOpeningBalance,
			MutationDate: mutationDate(),
			Rows: []models.CachedMutationRow{
				{LedgerCode: "1500", Amount: dec("3000.00")},
			},
		},
	}

	draft, err := h.classifier.BuildOpeningBalance(context.Background(), mutations)
	if err != nil {
		t.Fatalf("BuildOpeningBalance: %v", err)
	}
	assertBalanced(t, draft)

	bank := lineFor(t, draft, h.bankId)
	if !bank.Debit.Equal(dec("5000.00")) {
		t.Fatalf("bank debit = %s, want 5000.00", bank.Debit)
	}
	loan := lineFor(t, draft, h.loanId)
	if !loan.Credit.Equal(dec("3000.00")) {
		t.Fatalf("loan credit = %s, want 3000.00", loan.Credit)
	}

	adjustmentsId := h.ledger.system[models.AccountCodeOpeningBalanceAdjustments]
	adjustments := lineFor(t, draft, adjustmentsId)
	if !adjustments.Credit.Equal(dec("2000.00")) {
		t.Fatalf("adjustments credit = %s, want 2000.00", adjustments.Credit)
	}

	if len(draft.ExternalIds) != 2 {
		t.Fatalf("ExternalIds = %v, want both contributing mutations", draft.ExternalIds)
	}
}

func TestBuildOpeningBalance_BalancedInputNeedsNoAdjustment(t *testing.T) {
	h := newHarness()
	mutations := []*models.CachedMutation{
		{
			ExternalId:   710,
			Type:         models.MutationTypeOpeningBalance,
			MutationDate: mutationDate(),
			Rows: []models.CachedMutationRow{
				{LedgerCode: "1000", Amount: dec("3000.00")},
				{LedgerCode: "1500", Amount: dec("3000.00")},
			},
		},
	}

	draft, err := h.classifier.BuildOpeningBalance(context.Background(), mutations)
	if err != nil {
		t.Fatalf("BuildOpeningBalance: %v", err)
	}
	assertBalanced(t, draft)

	if _, ok := h.ledger.system[models.AccountCodeOpeningBalanceAdjustments]; ok {
		t.Fatal("adjustments account should not be touched for a balanced opening balance")
	}
	if len(draft.Lines) != 2 {
		t.Fatalf("lines = %d, want 2", len(draft.Lines))
	}
}

func TestBuildOpeningBalance_Empty(t *testing.T) {
	h := newHarness()
	draft, err := h.classifier.BuildOpeningBalance(context.Background(), nil)
	if err != nil {
		t.Fatalf("BuildOpeningBalance: %v", err)
	}
	if draft != nil {
		t.Fatalf("draft = %+v, want nil for no mutations", draft)
	}
}
