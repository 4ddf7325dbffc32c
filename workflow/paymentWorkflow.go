package workflow

import (
	"context"

	"bitbucket.org/mmdatafocus/ledger_import/models"
	"bitbucket.org/mmdatafocus/ledger_import/utils"
	"github.com/shopspring/decimal"
)

// Payments move money between the mutation's main ledger (the bank or cash
// account in the source system) and the receivable/payable control account.
// The control line is the exact opposite of the bank line, so the draft
// balances for positive amounts and refunds alike. When the mutation
// references the settled invoice, the invoice number is carried on the
// journal so the reporting layer can close the open invoice; the referenced
// invoice is allowed to arrive later in the batch (deferred allocation).

func (c *Classifier) buildCustomerPayment(ctx context.Context, mutation *models.CachedMutation) (*JournalDraft, error) {
	return c.buildInvoicePayment(ctx, mutation, true)
}

func (c *Classifier) buildSupplierPayment(ctx context.Context, mutation *models.CachedMutation) (*JournalDraft, error) {
	return c.buildInvoicePayment(ctx, mutation, false)
}

func (c *Classifier) buildInvoicePayment(ctx context.Context, mutation *models.CachedMutation, customer bool) (*JournalDraft, error) {
	amount := rowSum(mutation)
	if amount.IsZero() {
		return nil, classifyErr(mutation, "payment %d has no amount rows", mutation.ExternalId)
	}
	if mutation.LedgerCode == "" {
		return nil, classifyErr(mutation, "payment %d has no money account ledger", mutation.ExternalId)
	}

	bank, err := c.Resolver.Resolve(ctx, mutation.LedgerCode, mutation)
	if err != nil {
		return nil, err
	}

	controlCode := models.AccountCodeReceivable
	if !customer {
		controlCode = models.AccountCodePayable
	}
	controlId, err := c.Ledger.SystemAccount(ctx, controlCode)
	if err != nil {
		return nil, utils.NewImportError(utils.ErrorKindConfig, utils.StageResolve,
			mutation.ExternalId, string(mutation.Type), err)
	}

	draft := c.newDraft(mutation)
	draft.ReferenceNumber = mutation.InvoiceNumber

	if mutation.RelationCode != "" {
		party, err := c.Parties.ResolveParty(ctx, mutation.RelationCode, customer)
		if err != nil {
			return nil, utils.NewImportError(utils.ErrorKindMapping, utils.StageResolve,
				mutation.ExternalId, string(mutation.Type), err)
		}
		draft.PartyId = party.ID
	}

	// Customer payments flow into the bank, supplier payments flow out.
	bankAmount := amount
	if !customer {
		bankAmount = amount.Neg()
	}
	bankDebit, bankCredit := SplitAmount(bank.MainType, bankAmount)
	draft.AddDebit(bank.AccountId, bankDebit, mutation.Description)
	draft.AddCredit(bank.AccountId, bankCredit, mutation.Description)
	draft.AddDebit(controlId, bankCredit, settlementDescription(mutation))
	draft.AddCredit(controlId, bankDebit, settlementDescription(mutation))

	return draft, nil
}

func rowSum(mutation *models.CachedMutation) decimal.Decimal {
	total := decimal.Zero
	for _, row := range mutation.Rows {
		total = total.Add(row.Amount)
	}
	return total
}

func settlementDescription(mutation *models.CachedMutation) string {
	if mutation.InvoiceNumber != "" {
		return "Settles invoice " + mutation.InvoiceNumber
	}
	return mutation.Description
}
