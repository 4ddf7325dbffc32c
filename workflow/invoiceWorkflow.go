package workflow

import (
	"context"

	"bitbucket.org/mmdatafocus/ledger_import/models"
	"bitbucket.org/mmdatafocus/ledger_import/utils"
	"github.com/shopspring/decimal"
)

// Sales invoices book debit-receivable / credit-income; purchase invoices
// book credit-payable / debit-expense. The receivable/payable line always
// equals the sum of the row amounts plus VAT, so the draft balances by
// construction and the committer's balance check is a true invariant, not a
// tautology.

func (c *Classifier) buildSalesInvoice(ctx context.Context, mutation *models.CachedMutation) (*JournalDraft, error) {
	if len(mutation.Rows) == 0 {
		return nil, classifyErr(mutation, "sales invoice %d has no rows", mutation.ExternalId)
	}

	draft := c.newDraft(mutation)
	draft.ReferenceNumber = mutation.InvoiceNumber

	if mutation.RelationCode != "" {
		party, err := c.Parties.ResolveParty(ctx, mutation.RelationCode, true)
		if err != nil {
			return nil, utils.NewImportError(utils.ErrorKindMapping, utils.StageResolve,
				mutation.ExternalId, string(mutation.Type), err)
		}
		draft.PartyId = party.ID
	}

	total := decimal.Zero
	for _, row := range mutation.Rows {
		resolved, err := c.Resolver.Resolve(ctx, row.LedgerCode, mutation)
		if err != nil {
			return nil, err
		}
		draft.AddSplit(resolved.AccountId, resolved.MainType, row.Amount, row.Description)
		total = total.Add(row.Amount)
	}

	vatTotal := vatSum(mutation)
	if !vatTotal.IsZero() {
		vatAccountId, err := c.Ledger.SystemAccount(ctx, models.AccountCodeVatPayable)
		if err != nil {
			return nil, utils.NewImportError(utils.ErrorKindConfig, utils.StageResolve,
				mutation.ExternalId, string(mutation.Type), err)
		}
		draft.AddSplit(vatAccountId, models.AccountMainTypeLiability, vatTotal, "VAT")
		total = total.Add(vatTotal)
	}

	receivableId, err := c.Ledger.SystemAccount(ctx, models.AccountCodeReceivable)
	if err != nil {
		return nil, utils.NewImportError(utils.ErrorKindConfig, utils.StageResolve,
			mutation.ExternalId, string(mutation.Type), err)
	}
	draft.AddDebit(receivableId, total, invoiceLineDescription(mutation))

	return draft, nil
}

func (c *Classifier) buildPurchaseInvoice(ctx context.Context, mutation *models.CachedMutation) (*JournalDraft, error) {
	if len(mutation.Rows) == 0 {
		return nil, classifyErr(mutation, "purchase invoice %d has no rows", mutation.ExternalId)
	}

	draft := c.newDraft(mutation)
	draft.ReferenceNumber = mutation.InvoiceNumber

	if mutation.RelationCode != "" {
		party, err := c.Parties.ResolveParty(ctx, mutation.RelationCode, false)
		if err != nil {
			return nil, utils.NewImportError(utils.ErrorKindMapping, utils.StageResolve,
				mutation.ExternalId, string(mutation.Type), err)
		}
		draft.PartyId = party.ID
	}

	total := decimal.Zero
	for _, row := range mutation.Rows {
		resolved, err := c.Resolver.Resolve(ctx, row.LedgerCode, mutation)
		if err != nil {
			return nil, err
		}
		draft.AddSplit(resolved.AccountId, resolved.MainType, row.Amount, row.Description)
		total = total.Add(row.Amount)
	}

	vatTotal := vatSum(mutation)
	if !vatTotal.IsZero() {
		vatAccountId, err := c.Ledger.SystemAccount(ctx, models.AccountCodeVatReceivable)
		if err != nil {
			return nil, utils.NewImportError(utils.ErrorKindConfig, utils.StageResolve,
				mutation.ExternalId, string(mutation.Type), err)
		}
		draft.AddSplit(vatAccountId, models.AccountMainTypeAsset, vatTotal, "VAT")
		total = total.Add(vatTotal)
	}

	payableId, err := c.Ledger.SystemAccount(ctx, models.AccountCodePayable)
	if err != nil {
		return nil, utils.NewImportError(utils.ErrorKindConfig, utils.StageResolve,
			mutation.ExternalId, string(mutation.Type), err)
	}
	draft.AddCredit(payableId, total, invoiceLineDescription(mutation))

	return draft, nil
}

func vatSum(mutation *models.CachedMutation) decimal.Decimal {
	total := decimal.Zero
	for _, vat := range mutation.VatLines {
		total = total.Add(vat.Amount)
	}
	return total
}

func invoiceLineDescription(mutation *models.CachedMutation) string {
	if mutation.InvoiceNumber != "" {
		return "Invoice " + mutation.InvoiceNumber
	}
	return mutation.Description
}
