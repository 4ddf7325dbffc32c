package workflow

import (
	"context"

	"bitbucket.org/mmdatafocus/ledger_import/models"
	"bitbucket.org/mmdatafocus/ledger_import/utils"
)

// BuildOpeningBalance folds every opening balance mutation of a run into one
// journal. Each row is booked through the sign engine against its resolved
// account; whatever residual the source system left open is absorbed by the
// Opening Balance Adjustments equity account, so the journal always closes.
// The draft carries every contributing external id, so each source mutation
// remains individually deduplicated.
func (c *Classifier) BuildOpeningBalance(ctx context.Context, mutations []*models.CachedMutation) (*JournalDraft, error) {
	if len(mutations) == 0 {
		return nil, nil
	}

	draft := &JournalDraft{
		Date:        mutations[0].MutationDate,
		Description: "Opening balance import",
		SourceType:  models.MutationTypeOpeningBalance,
	}

	for _, mutation := range mutations {
		if len(mutation.Rows) == 0 {
			return nil, classifyErr(mutation, "opening balance %d has no rows", mutation.ExternalId)
		}
		if mutation.MutationDate.Before(draft.Date) {
			draft.Date = mutation.MutationDate
		}
		draft.ExternalIds = append(draft.ExternalIds, mutation.ExternalId)

		for _, row := range mutation.Rows {
			resolved, err := c.Resolver.Resolve(ctx, row.LedgerCode, mutation)
			if err != nil {
				return nil, err
			}
			draft.AddSplit(resolved.AccountId, resolved.MainType, row.Amount, row.Description)
		}
	}

	residual := draft.TotalDebit().Sub(draft.TotalCredit())
	if !residual.IsZero() {
		adjustmentsId, err := c.Ledger.SystemAccount(ctx, models.AccountCodeOpeningBalanceAdjustments)
		if err != nil {
			return nil, utils.NewImportError(utils.ErrorKindConfig, utils.StageResolve,
				mutations[0].ExternalId, string(models.MutationTypeOpeningBalance), err)
		}
		draft.AddCredit(adjustmentsId, residual, "Opening balance adjustment")
	}

	return draft, nil
}
