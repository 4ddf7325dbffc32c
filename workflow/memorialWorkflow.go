package workflow

import (
	"context"

	"bitbucket.org/mmdatafocus/ledger_import/models"
)

// Memorial bookings are free-form journal entries. Each row is booked
// through the sign engine against its own account; the mutation's main
// ledger account takes the opposite of the rows' net, so reversing every
// row sign reverses the whole journal. A zero net adds no main line.
func (c *Classifier) buildMemorial(ctx context.Context, mutation *models.CachedMutation) (*JournalDraft, error) {
	if len(mutation.Rows) == 0 {
		return nil, classifyErr(mutation, "memorial %d has no rows", mutation.ExternalId)
	}
	if mutation.LedgerCode == "" {
		return nil, classifyErr(mutation, "memorial %d has no main ledger", mutation.ExternalId)
	}

	main, err := c.Resolver.Resolve(ctx, mutation.LedgerCode, mutation)
	if err != nil {
		return nil, err
	}

	draft := c.newDraft(mutation)
	for _, row := range mutation.Rows {
		resolved, err := c.Resolver.Resolve(ctx, row.LedgerCode, mutation)
		if err != nil {
			return nil, err
		}
		draft.AddSplit(resolved.AccountId, resolved.MainType, row.Amount, row.Description)
	}

	net := draft.TotalDebit().Sub(draft.TotalCredit())
	draft.AddCredit(main.AccountId, net, mutation.Description)

	return draft, nil
}
