package workflow

import (
	"context"
	"errors"
	"fmt"

	"bitbucket.org/mmdatafocus/ledger_import/config"
	"bitbucket.org/mmdatafocus/ledger_import/models"
	"bitbucket.org/mmdatafocus/ledger_import/utils"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Runner drives one migration run end to end: create the run record,
// validate configuration, walk the cached mutations in ascending external-id
// order, and finalize with per-mutation results. Mutations are independent:
// a mapping or validation failure marks that mutation failed and moves on,
// while an exhausted transient failure or a cancelled context ends the run.
type Runner struct {
	Source     MutationSource
	Runs       RunStore
	Recorder   RunRecorder
	Classifier *Classifier
	Committer  *Committer
	Logger     *logrus.Logger
	Config     RunConfig
}

type runCounts struct {
	imported int
	skipped  int
	failed   int
}

func (r *Runner) Execute(ctx context.Context) (*models.MigrationRun, error) {
	correlationId, ok := utils.GetCorrelationIdFromContext(ctx)
	if !ok {
		correlationId = uuid.NewString()
		ctx = utils.SetCorrelationIdInContext(ctx, correlationId)
	}

	run := &models.MigrationRun{
		BusinessId:    r.Config.BusinessId,
		Status:        models.MigrationRunStatusPending,
		DateFrom:      r.Config.DateFrom,
		DateTo:        r.Config.DateTo,
		DryRun:        r.Config.DryRun,
		CorrelationId: correlationId,
	}
	if err := r.Runs.CreateRun(ctx, run); err != nil {
		return nil, utils.NewImportError(utils.ErrorKindTransient, utils.StageClassify, 0, "", err)
	}
	ctx = utils.SetRunIdInContext(ctx, run.ID)
	r.Committer.RunId = run.ID

	if err := r.Config.Validate(); err != nil {
		return r.abort(ctx, run, models.MigrationRunStatusFailed, runCounts{}, err)
	}

	policy := r.Config.retryPolicy()

	var mutations []*models.CachedMutation
	err := utils.WithRetry(ctx, policy, func() error {
		var listErr error
		mutations, listErr = r.Source.ListMutations(ctx, r.Config.DateFrom, r.Config.DateTo)
		if listErr != nil {
			return utils.NewImportError(utils.ErrorKindTransient, utils.StageFetch, 0, "", listErr)
		}
		return nil
	})
	if err != nil {
		return r.abort(ctx, run, models.MigrationRunStatusFailed, runCounts{}, err)
	}

	if err := r.Runs.MarkRunning(ctx, run.ID, len(mutations)); err != nil {
		return r.abort(ctx, run, models.MigrationRunStatusFailed, runCounts{}, err)
	}

	counts := runCounts{}
	var openingBalances []*models.CachedMutation

	for _, mutation := range mutations {
		select {
		case <-ctx.Done():
			return r.abort(ctx, run, models.MigrationRunStatusCancelled, counts, ctx.Err())
		default:
		}

		if mutation.Type == models.MutationTypeOpeningBalance {
			imported, existing, err := r.Committer.AlreadyImported(ctx, mutation.ExternalId)
			if err != nil {
				return r.abort(ctx, run, models.MigrationRunStatusFailed, counts, err)
			}
			if imported {
				r.record(ctx, run.ID, mutation.ExternalId, mutation.Type, models.MutationOutcomeSkipped,
					string(utils.StageDedup), string(utils.ErrorKindDuplicate),
					"already imported", existing.ID)
				counts.skipped++
				continue
			}
			openingBalances = append(openingBalances, mutation)
			continue
		}

		fatal, err := r.importOne(ctx, run.ID, mutation, policy, &counts)
		if fatal {
			return r.abort(ctx, run, models.MigrationRunStatusFailed, counts, err)
		}
	}

	if len(openingBalances) > 0 {
		fatal, err := r.importOpeningBalances(ctx, run.ID, openingBalances, policy, &counts)
		if fatal {
			return r.abort(ctx, run, models.MigrationRunStatusFailed, counts, err)
		}
	}

	if err := r.Runs.Finalize(ctx, run.ID, models.MigrationRunStatusCompleted,
		counts.imported, counts.skipped, counts.failed, ""); err != nil {
		return run, utils.NewImportError(utils.ErrorKindTransient, utils.StageCommit, 0, "", err)
	}

	run.Status = models.MigrationRunStatusCompleted
	run.MutationsFetched = len(mutations)
	run.MutationsImported = counts.imported
	run.MutationsSkipped = counts.skipped
	run.MutationsFailed = counts.failed
	return run, nil
}

// importOne processes a single non-opening-balance mutation. The bool return
// says whether the failure ends the run.
func (r *Runner) importOne(ctx context.Context, runId int, mutation *models.CachedMutation, policy utils.RetryPolicy, counts *runCounts) (bool, error) {
	var journalId int
	err := utils.WithRetry(ctx, policy, func() error {
		draft, buildErr := r.Classifier.BuildDraft(ctx, mutation)
		if buildErr != nil {
			return buildErr
		}
		var commitErr error
		journalId, commitErr = r.post(ctx, draft)
		return commitErr
	})

	return r.bookOutcome(ctx, runId, mutation.ExternalId, mutation.Type, journalId, err, counts)
}

// importOpeningBalances posts the single aggregated opening balance journal.
// Every contributing mutation gets its own result row so the report stays
// per-mutation even though the journal is shared.
func (r *Runner) importOpeningBalances(ctx context.Context, runId int, mutations []*models.CachedMutation, policy utils.RetryPolicy, counts *runCounts) (bool, error) {
	var journalId int
	err := utils.WithRetry(ctx, policy, func() error {
		draft, buildErr := r.Classifier.BuildOpeningBalance(ctx, mutations)
		if buildErr != nil {
			return buildErr
		}
		var commitErr error
		journalId, commitErr = r.post(ctx, draft)
		return commitErr
	})

	fatal := false
	for _, mutation := range mutations {
		mutationFatal, mutationErr := r.bookOutcome(ctx, runId, mutation.ExternalId, mutation.Type, journalId, err, counts)
		if mutationFatal {
			fatal = true
			err = mutationErr
		}
	}
	if fatal {
		return true, err
	}
	return false, nil
}

// post commits the draft, or in dry-run mode validates and dedup-checks it
// without persisting anything.
func (r *Runner) post(ctx context.Context, draft *JournalDraft) (int, error) {
	if !r.Config.DryRun {
		return r.Committer.Commit(ctx, draft)
	}

	mutationId := int64(0)
	if len(draft.ExternalIds) > 0 {
		mutationId = draft.ExternalIds[0]
	}
	if err := r.Committer.Validate(ctx, draft); err != nil {
		return 0, utils.NewImportError(validationKind(err), utils.StageBuild, mutationId, string(draft.SourceType), err)
	}
	for _, externalId := range draft.ExternalIds {
		imported, existing, err := r.Committer.AlreadyImported(ctx, externalId)
		if err != nil {
			return 0, err
		}
		if imported {
			return existing.ID, utils.NewImportError(utils.ErrorKindDuplicate, utils.StageDedup, externalId, string(draft.SourceType),
				fmt.Errorf("mutation %d already imported as journal %d", externalId, existing.ID))
		}
	}
	return 0, nil
}

// bookOutcome turns the posting result into a recorded per-mutation outcome
// and updated counters. Duplicates are skips, mapping and validation errors
// fail the mutation only; anything else fails the run.
func (r *Runner) bookOutcome(ctx context.Context, runId int, externalId int64, mutationType models.MutationType, journalId int, err error, counts *runCounts) (bool, error) {
	if err == nil {
		message := ""
		if r.Config.DryRun {
			message = "dry run, journal not persisted"
		}
		r.record(ctx, runId, externalId, mutationType, models.MutationOutcomeImported, "", "", message, journalId)
		counts.imported++
		return false, nil
	}

	var ie *utils.ImportError
	stage := ""
	message := err.Error()
	if errors.As(err, &ie) {
		stage = string(ie.Stage)
		message = ie.Message
	}

	switch utils.KindOf(err) {
	case utils.ErrorKindDuplicate:
		r.record(ctx, runId, externalId, mutationType, models.MutationOutcomeSkipped,
			stage, string(utils.ErrorKindDuplicate), message, journalId)
		counts.skipped++
		return false, nil
	case utils.ErrorKindMapping, utils.ErrorKindValidation:
		r.record(ctx, runId, externalId, mutationType, models.MutationOutcomeFailed,
			stage, string(utils.KindOf(err)), message, 0)
		counts.failed++
		return false, nil
	default:
		// Transient exhaustion or broken configuration: later mutations would
		// hit the same wall, so stop the run.
		r.record(ctx, runId, externalId, mutationType, models.MutationOutcomeFailed,
			stage, string(utils.KindOf(err)), message, 0)
		counts.failed++
		return true, err
	}
}

// abort finalizes a run in a non-completed terminal state. The trigger error
// is preserved as the run's failure reason and returned to the caller.
func (r *Runner) abort(ctx context.Context, run *models.MigrationRun, status models.MigrationRunStatus, counts runCounts, cause error) (*models.MigrationRun, error) {
	reason := ""
	if cause != nil {
		reason = cause.Error()
	}
	if err := r.Runs.Finalize(context.WithoutCancel(ctx), run.ID, status, counts.imported, counts.skipped, counts.failed, reason); err != nil {
		config.LogError(r.Logger, "migrationWorkflow.go", "abort", "Finalize", run.ID, err)
	}
	run.Status = status
	run.FailureReason = reason
	run.MutationsImported = counts.imported
	run.MutationsSkipped = counts.skipped
	run.MutationsFailed = counts.failed
	return run, cause
}

func (r *Runner) record(ctx context.Context, runId int, externalId int64, mutationType models.MutationType, outcome models.MutationOutcome, stage string, errorKind string, message string, journalId int) {
	result := &models.MigrationMutationResult{
		RunId:              runId,
		BusinessId:         r.Config.BusinessId,
		ExternalMutationId: externalId,
		MutationType:       mutationType,
		Outcome:            outcome,
		Stage:              stage,
		ErrorKind:          errorKind,
		Message:            message,
		JournalId:          journalId,
	}
	if err := r.Recorder.RecordResult(ctx, result); err != nil {
		config.LogError(r.Logger, "migrationWorkflow.go", "record", "RecordResult", result, err)
	}
}
