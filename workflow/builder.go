package workflow

import (
	"context"
	"errors"
	"fmt"

	"bitbucket.org/mmdatafocus/ledger_import/models"
	"bitbucket.org/mmdatafocus/ledger_import/utils"
)

// ValidationError names the first violated invariant of a draft. Nothing is
// persisted when validation fails.
type ValidationError struct {
	Rule   string
	LineNo int
	Detail string
}

func (e *ValidationError) Error() string {
	if e.LineNo > 0 {
		return fmt.Sprintf("validation failed (%s) at line %d: %s", e.Rule, e.LineNo, e.Detail)
	}
	return fmt.Sprintf("validation failed (%s): %s", e.Rule, e.Detail)
}

// Committer validates drafts and persists them atomically, tagging each
// committed journal with its source mutation ids.
type Committer struct {
	Ledger     LedgerStore
	BusinessId string
	RunId      int
}

// Validate checks every committer invariant without touching storage beyond
// account reads: each line has exactly one non-negative side, the draft
// balances exactly at the accounting precision, and every account exists and
// is a leaf.
func (c *Committer) Validate(ctx context.Context, draft *JournalDraft) error {
	if len(draft.Lines) == 0 {
		return &ValidationError{Rule: "non-empty", Detail: "draft has no lines"}
	}

	for i, line := range draft.Lines {
		lineNo := i + 1
		if line.Debit.IsNegative() || line.Credit.IsNegative() {
			return &ValidationError{Rule: "non-negative", LineNo: lineNo,
				Detail: fmt.Sprintf("debit=%s credit=%s", line.Debit, line.Credit)}
		}
		hasDebit := !line.Debit.IsZero()
		hasCredit := !line.Credit.IsZero()
		if hasDebit == hasCredit {
			return &ValidationError{Rule: "debit-xor-credit", LineNo: lineNo,
				Detail: fmt.Sprintf("debit=%s credit=%s", line.Debit, line.Credit)}
		}

		account, err := c.Ledger.GetAccount(ctx, line.AccountId)
		if errors.Is(err, models.ErrAccountNotFound) {
			return &ValidationError{Rule: "account-exists", LineNo: lineNo,
				Detail: fmt.Sprintf("account %d: %v", line.AccountId, err)}
		}
		if err != nil {
			// Store outage, not a bad draft. Left unwrapped as a ValidationError
			// so the caller retries it.
			return fmt.Errorf("reading account %d: %w", line.AccountId, err)
		}
		if !account.IsLeaf() {
			return &ValidationError{Rule: "leaf-account", LineNo: lineNo,
				Detail: fmt.Sprintf("account %d (%s) is a group account", account.ID, account.Name)}
		}
	}

	totalDebit := draft.TotalDebit()
	totalCredit := draft.TotalCredit()
	if !totalDebit.Equal(totalCredit) {
		return &ValidationError{Rule: "balanced",
			Detail: fmt.Sprintf("debits %s != credits %s", totalDebit, totalCredit)}
	}
	return nil
}

// validationKind classifies a Validate error: a violated draft invariant is
// permanent, an account read that failed for infrastructure reasons is
// transient.
func validationKind(err error) utils.ErrorKind {
	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return utils.ErrorKindValidation
	}
	return utils.ErrorKindTransient
}

// AlreadyImported checks the ledger store for a journal tagged with the
// external mutation id, across all journal kinds.
func (c *Committer) AlreadyImported(ctx context.Context, externalMutationId int64) (bool, *models.AccountJournal, error) {
	journal, err := c.Ledger.FindJournalByExternalRef(ctx, externalMutationId)
	if err != nil {
		return false, nil, utils.NewImportError(utils.ErrorKindTransient, utils.StageDedup, externalMutationId, "", err)
	}
	return journal != nil, journal, nil
}

// Commit validates, re-checks deduplication immediately before persisting
// (fetch-time checks are not enough under re-entrant runs), and writes the
// journal atomically. Returns the committed journal id.
func (c *Committer) Commit(ctx context.Context, draft *JournalDraft) (int, error) {
	mutationId := int64(0)
	if len(draft.ExternalIds) > 0 {
		mutationId = draft.ExternalIds[0]
	}

	if err := c.Validate(ctx, draft); err != nil {
		return 0, utils.NewImportError(validationKind(err), utils.StageBuild, mutationId, string(draft.SourceType), err)
	}

	for _, externalId := range draft.ExternalIds {
		imported, existing, err := c.AlreadyImported(ctx, externalId)
		if err != nil {
			return 0, err
		}
		if imported {
			return existing.ID, utils.NewImportError(utils.ErrorKindDuplicate, utils.StageDedup, externalId, string(draft.SourceType),
				fmt.Errorf("mutation %d already imported as journal %d", externalId, existing.ID))
		}
	}

	journal := &models.AccountJournal{
		BusinessId:          c.BusinessId,
		TransactionDateTime: draft.Date,
		TransactionDetails:  draft.Description,
		ReferenceNumber:     draft.ReferenceNumber,
		PartyId:             draft.PartyId,
		MigrationRunId:      c.RunId,
		SourceType:          draft.SourceType,
	}
	for _, line := range draft.Lines {
		journal.AccountTransactions = append(journal.AccountTransactions, models.AccountTransaction{
			BusinessId:  c.BusinessId,
			AccountId:   line.AccountId,
			Description: line.Description,
			Debit:       line.Debit,
			Credit:      line.Credit,
		})
	}
	for _, externalId := range draft.ExternalIds {
		journal.SourceTags = append(journal.SourceTags, models.JournalSourceTag{
			BusinessId:         c.BusinessId,
			ExternalMutationId: externalId,
			MutationType:       draft.SourceType,
		})
	}

	if err := c.Ledger.CreateJournal(ctx, journal); err != nil {
		return 0, utils.NewImportError(utils.ErrorKindTransient, utils.StageCommit, mutationId, string(draft.SourceType), err)
	}
	return journal.ID, nil
}
