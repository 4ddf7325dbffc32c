package workflow

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/ledger_import/models"
)

// The engine talks to the books database through these narrow store
// interfaces so the posting logic can be exercised without MySQL. The gorm
// implementations live in gormStores.go.

type LedgerStore interface {
	GetAccount(ctx context.Context, id int) (*models.Account, error)
	// SystemAccount returns the id of a system-default account, creating the
	// documented fallbacks (suspense, opening balance adjustments, VAT) when
	// absent.
	SystemAccount(ctx context.Context, code string) (int, error)
	// CreateJournal persists a journal header, its lines, and its source tags
	// atomically: everything or nothing.
	CreateJournal(ctx context.Context, journal *models.AccountJournal) error
	// FindJournalByExternalRef returns the journal tagged with the external
	// mutation id across all journal kinds, or nil.
	FindJournalByExternalRef(ctx context.Context, externalMutationId int64) (*models.AccountJournal, error)
}

type MappingStore interface {
	GetMapping(ctx context.Context, externalCode string) (*models.LedgerMapping, error)
	CreatePlaceholderMapping(ctx context.Context, externalCode string, fallbackAccountId int, mainType models.AccountMainType) (*models.LedgerMapping, error)
}

type PartyStore interface {
	ResolveParty(ctx context.Context, relationCode string, asCustomer bool) (*models.Party, error)
}

// RunRecorder persists per-mutation outcomes and resolver warnings onto the
// migration run, the report of record.
type RunRecorder interface {
	RecordResult(ctx context.Context, result *models.MigrationMutationResult) error
}

// MutationSource lists cached mutations in processing order (ascending
// external id).
type MutationSource interface {
	ListMutations(ctx context.Context, from time.Time, to time.Time) ([]*models.CachedMutation, error)
}

// RunStore owns the migration run lifecycle.
type RunStore interface {
	CreateRun(ctx context.Context, run *models.MigrationRun) error
	MarkRunning(ctx context.Context, runId int, fetched int) error
	Finalize(ctx context.Context, runId int, status models.MigrationRunStatus, imported int, skipped int, failed int, failureReason string) error
}
