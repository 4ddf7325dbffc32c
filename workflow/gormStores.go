package workflow

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/ledger_import/models"
	"gorm.io/gorm"
)

// gorm-backed store implementations, scoped to one business.

type GormLedgerStore struct {
	DB         *gorm.DB
	BusinessId string
}

func (s *GormLedgerStore) GetAccount(ctx context.Context, id int) (*models.Account, error) {
	return models.GetAccount(s.DB.WithContext(ctx), s.BusinessId, id)
}

func (s *GormLedgerStore) SystemAccount(ctx context.Context, code string) (int, error) {
	tx := s.DB.WithContext(ctx)
	sysAccounts, err := models.GetSystemAccounts(tx, s.BusinessId)
	if err == nil {
		if id, ok := sysAccounts[code]; ok && id > 0 {
			return id, nil
		}
	}
	name, mainType, detailType := systemAccountDefaults(code)
	return models.EnsureSystemAccount(tx, s.BusinessId, code, name, mainType, detailType)
}

func systemAccountDefaults(code string) (string, models.AccountMainType, models.AccountDetailType) {
	switch code {
	case models.AccountCodeReceivable:
		return "Accounts Receivable", models.AccountMainTypeAsset, models.AccountDetailTypeAccountsReceivable
	case models.AccountCodePayable:
		return "Accounts Payable", models.AccountMainTypeLiability, models.AccountDetailTypeAccountsPayable
	case models.AccountCodeOpeningBalanceAdjustments:
		return "Opening Balance Adjustments", models.AccountMainTypeEquity, models.AccountDetailTypeEquity
	case models.AccountCodeVatReceivable:
		return "Input VAT", models.AccountMainTypeAsset, models.AccountDetailTypeOtherCurrentAsset
	case models.AccountCodeVatPayable:
		return "Output VAT", models.AccountMainTypeLiability, models.AccountDetailTypeOtherCurrentLiability
	default:
		return "Import Suspense", models.AccountMainTypeAsset, models.AccountDetailTypeOtherCurrentAsset
	}
}

func (s *GormLedgerStore) CreateJournal(ctx context.Context, journal *models.AccountJournal) error {
	// gorm cascades the associations inside the wrapped transaction, so the
	// header, lines, and tags commit together or not at all.
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(journal).Error
	})
}

func (s *GormLedgerStore) FindJournalByExternalRef(ctx context.Context, externalMutationId int64) (*models.AccountJournal, error) {
	return models.FindJournalByExternalRef(s.DB.WithContext(ctx), s.BusinessId, externalMutationId)
}

type GormMappingStore struct {
	DB         *gorm.DB
	BusinessId string
}

func (s *GormMappingStore) GetMapping(ctx context.Context, externalCode string) (*models.LedgerMapping, error) {
	return models.GetLedgerMapping(s.DB.WithContext(ctx), s.BusinessId, externalCode)
}

func (s *GormMappingStore) CreatePlaceholderMapping(ctx context.Context, externalCode string, fallbackAccountId int, mainType models.AccountMainType) (*models.LedgerMapping, error) {
	return models.CreatePlaceholderMapping(ctx, s.DB.WithContext(ctx), s.BusinessId, externalCode, fallbackAccountId, mainType)
}

type GormPartyStore struct {
	DB         *gorm.DB
	BusinessId string
}

func (s *GormPartyStore) ResolveParty(ctx context.Context, relationCode string, asCustomer bool) (*models.Party, error) {
	return models.ResolveParty(ctx, s.DB.WithContext(ctx), s.BusinessId, relationCode, asCustomer)
}

type GormRunRecorder struct {
	DB *gorm.DB
}

func (r *GormRunRecorder) RecordResult(ctx context.Context, result *models.MigrationMutationResult) error {
	return models.RecordMutationResult(r.DB.WithContext(ctx), result)
}

type GormMutationSource struct {
	DB         *gorm.DB
	BusinessId string
}

func (s *GormMutationSource) ListMutations(ctx context.Context, from time.Time, to time.Time) ([]*models.CachedMutation, error) {
	return models.ListMutationsByDateRange(s.DB.WithContext(ctx), s.BusinessId, from, to)
}

type GormRunStore struct {
	DB *gorm.DB
}

func (s *GormRunStore) CreateRun(ctx context.Context, run *models.MigrationRun) error {
	return models.CreateMigrationRun(s.DB.WithContext(ctx), run)
}

func (s *GormRunStore) MarkRunning(ctx context.Context, runId int, fetched int) error {
	return models.MarkRunRunning(s.DB.WithContext(ctx), runId, fetched)
}

func (s *GormRunStore) Finalize(ctx context.Context, runId int, status models.MigrationRunStatus, imported int, skipped int, failed int, failureReason string) error {
	return models.FinalizeRun(s.DB.WithContext(ctx), runId, status, imported, skipped, failed, failureReason)
}
