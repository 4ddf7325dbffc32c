package workflow

import (
	"context"

	"bitbucket.org/mmdatafocus/ledger_import/models"
	"bitbucket.org/mmdatafocus/ledger_import/utils"
)

// Money movements (direct receipts and spends without an invoice) book each
// row through the sign engine against its resolved account, then close the
// draft with a single bank line for the residual. The row signs and account
// types decide the sides; the spent flag only picks the VAT direction.
func (c *Classifier) buildMoneyMovement(ctx context.Context, mutation *models.CachedMutation, spent bool) (*JournalDraft, error) {
	if len(mutation.Rows) == 0 {
		return nil, classifyErr(mutation, "money movement %d has no rows", mutation.ExternalId)
	}
	if mutation.LedgerCode == "" {
		return nil, classifyErr(mutation, "money movement %d has no money account ledger", mutation.ExternalId)
	}

	bank, err := c.Resolver.Resolve(ctx, mutation.LedgerCode, mutation)
	if err != nil {
		return nil, err
	}

	draft := c.newDraft(mutation)

	if mutation.RelationCode != "" {
		party, err := c.Parties.ResolveParty(ctx, mutation.RelationCode, !spent)
		if err != nil {
			return nil, utils.NewImportError(utils.ErrorKindMapping, utils.StageResolve,
				mutation.ExternalId, string(mutation.Type), err)
		}
		draft.PartyId = party.ID
	}

	for _, row := range mutation.Rows {
		resolved, err := c.Resolver.Resolve(ctx, row.LedgerCode, mutation)
		if err != nil {
			return nil, err
		}
		draft.AddSplit(resolved.AccountId, resolved.MainType, row.Amount, row.Description)
	}

	vatTotal := vatSum(mutation)
	if !vatTotal.IsZero() {
		vatCode := models.AccountCodeVatPayable
		vatType := models.AccountMainTypeLiability
		if spent {
			vatCode = models.AccountCodeVatReceivable
			vatType = models.AccountMainTypeAsset
		}
		vatAccountId, err := c.Ledger.SystemAccount(ctx, vatCode)
		if err != nil {
			return nil, utils.NewImportError(utils.ErrorKindConfig, utils.StageResolve,
				mutation.ExternalId, string(mutation.Type), err)
		}
		draft.AddSplit(vatAccountId, vatType, vatTotal, "VAT")
	}

	// The bank line closes whatever the rows and VAT left open. AddDebit
	// flips negative residuals to the credit side.
	residual := draft.TotalCredit().Sub(draft.TotalDebit())
	draft.AddDebit(bank.AccountId, residual, mutation.Description)

	return draft, nil
}
