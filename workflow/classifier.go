package workflow

import (
	"context"
	"errors"
	"fmt"

	"bitbucket.org/mmdatafocus/ledger_import/models"
	"bitbucket.org/mmdatafocus/ledger_import/utils"
)

// ErrOpeningBalanceDeferred is returned for opening balance mutations, which
// are not posted one by one: the orchestrator aggregates them into a single
// synthetic journal per run (see openingBalanceWorkflow.go).
var ErrOpeningBalanceDeferred = errors.New("opening balance mutations are aggregated per run")

// Classifier builds a balanced journal draft from a raw mutation. One builder
// per mutation kind; the dispatch is exhaustive over the enum so an
// unhandled kind is an explicit failure, never a silent fallthrough.
type Classifier struct {
	Resolver *Resolver
	Ledger   LedgerStore
	Parties  PartyStore
}

func (c *Classifier) BuildDraft(ctx context.Context, mutation *models.CachedMutation) (*JournalDraft, error) {
	switch mutation.Type {
	case models.MutationTypeSalesInvoice:
		return c.buildSalesInvoice(ctx, mutation)
	case models.MutationTypePurchaseInvoice:
		return c.buildPurchaseInvoice(ctx, mutation)
	case models.MutationTypeCustomerPayment:
		return c.buildCustomerPayment(ctx, mutation)
	case models.MutationTypeSupplierPayment:
		return c.buildSupplierPayment(ctx, mutation)
	case models.MutationTypeMoneyReceived:
		return c.buildMoneyMovement(ctx, mutation, false)
	case models.MutationTypeMoneySpent:
		return c.buildMoneyMovement(ctx, mutation, true)
	case models.MutationTypeMemorial:
		return c.buildMemorial(ctx, mutation)
	case models.MutationTypeOpeningBalance:
		return nil, ErrOpeningBalanceDeferred
	default:
		return nil, utils.NewImportError(utils.ErrorKindValidation, utils.StageClassify,
			mutation.ExternalId, string(mutation.Type),
			fmt.Errorf("unhandled mutation type %q", mutation.Type))
	}
}

func (c *Classifier) newDraft(mutation *models.CachedMutation) *JournalDraft {
	return &JournalDraft{
		Date:        mutation.MutationDate,
		Description: mutation.Description,
		SourceType:  mutation.Type,
		ExternalIds: []int64{mutation.ExternalId},
	}
}

func classifyErr(mutation *models.CachedMutation, format string, args ...any) error {
	return utils.NewImportError(utils.ErrorKindValidation, utils.StageClassify,
		mutation.ExternalId, string(mutation.Type), fmt.Errorf(format, args...))
}
