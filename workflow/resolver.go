package workflow

import (
	"context"
	"errors"
	"fmt"

	"bitbucket.org/mmdatafocus/ledger_import/config"
	"bitbucket.org/mmdatafocus/ledger_import/models"
	"bitbucket.org/mmdatafocus/ledger_import/utils"
	"github.com/sirupsen/logrus"
)

// Resolver translates external Fibu ledger codes into internal accounts. A
// missing mapping falls back to the import suspense account, records a
// warning on the run, and lazily creates a review-flagged placeholder
// mapping; a mutation is never silently dropped.
type Resolver struct {
	Ledger   LedgerStore
	Mappings MappingStore
	Recorder RunRecorder
	Logger   *logrus.Logger

	BusinessId string
}

// ResolvedAccount is the result of one ledger-code resolution.
type ResolvedAccount struct {
	AccountId int
	MainType  models.AccountMainType
	// Fallback is set when the code had no mapping and the suspense account
	// was substituted.
	Fallback bool
}

func (r *Resolver) Resolve(ctx context.Context, ledgerCode string, mutation *models.CachedMutation) (*ResolvedAccount, error) {
	if ledgerCode == "" {
		return nil, utils.NewImportError(utils.ErrorKindMapping, utils.StageResolve,
			externalIdOf(mutation), mutationTypeOf(mutation),
			errors.New("empty ledger code"))
	}

	mapping, err := r.Mappings.GetMapping(ctx, ledgerCode)
	if err != nil {
		return nil, utils.NewImportError(utils.ErrorKindTransient, utils.StageResolve,
			externalIdOf(mutation), mutationTypeOf(mutation), err)
	}

	if mapping != nil {
		account, err := r.Ledger.GetAccount(ctx, mapping.AccountId)
		if errors.Is(err, models.ErrAccountNotFound) {
			return nil, utils.NewImportError(utils.ErrorKindMapping, utils.StageResolve,
				externalIdOf(mutation), mutationTypeOf(mutation),
				fmt.Errorf("mapping for ledger %s points at missing account %d: %w", ledgerCode, mapping.AccountId, err))
		}
		if err != nil {
			return nil, utils.NewImportError(utils.ErrorKindTransient, utils.StageResolve,
				externalIdOf(mutation), mutationTypeOf(mutation), err)
		}
		return &ResolvedAccount{AccountId: account.ID, MainType: account.MainType}, nil
	}

	// No mapping: deterministic suspense fallback plus a placeholder mapping
	// flagged for review.
	suspenseId, err := r.Ledger.SystemAccount(ctx, models.AccountCodeImportSuspense)
	if err != nil {
		return nil, utils.NewImportError(utils.ErrorKindMapping, utils.StageResolve,
			externalIdOf(mutation), mutationTypeOf(mutation),
			fmt.Errorf("no mapping for ledger %s and no suspense account available: %w", ledgerCode, err))
	}

	if _, err := r.Mappings.CreatePlaceholderMapping(ctx, ledgerCode, suspenseId, models.AccountMainTypeAsset); err != nil {
		config.LogError(r.Logger, "resolver.go", "Resolve", "CreatePlaceholderMapping", ledgerCode, err)
	}

	r.recordWarning(ctx, mutation, fmt.Sprintf("ledger %s has no mapping; booked to import suspense, placeholder mapping created for review", ledgerCode))
	return &ResolvedAccount{AccountId: suspenseId, MainType: models.AccountMainTypeAsset, Fallback: true}, nil
}

func (r *Resolver) recordWarning(ctx context.Context, mutation *models.CachedMutation, message string) {
	// The runner stamps the run id into the context before processing starts.
	runId, _ := utils.GetRunIdFromContext(ctx)
	result := &models.MigrationMutationResult{
		RunId:              runId,
		BusinessId:         r.BusinessId,
		ExternalMutationId: externalIdOf(mutation),
		MutationType:       models.MutationType(mutationTypeOf(mutation)),
		Outcome:            models.MutationOutcomeWarning,
		Stage:              string(utils.StageResolve),
		Message:            message,
	}
	if err := r.Recorder.RecordResult(ctx, result); err != nil {
		config.LogError(r.Logger, "resolver.go", "recordWarning", "RecordResult", result, err)
	}
}

func externalIdOf(mutation *models.CachedMutation) int64 {
	if mutation == nil {
		return 0
	}
	return mutation.ExternalId
}

func mutationTypeOf(mutation *models.CachedMutation) string {
	if mutation == nil {
		return ""
	}
	return string(mutation.Type)
}
