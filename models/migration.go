package models

import (
	"time"

	"gorm.io/gorm"
)

// MigrationRun tracks one batch import. The run record plus its result rows
// form the persisted report of record: nothing actionable lives only in logs.
type MigrationRun struct {
	ID                int                       `gorm:"primary_key" json:"id"`
	BusinessId        string                    `gorm:"size:64;index;not null" json:"business_id"`
	Status            MigrationRunStatus        `gorm:"size:20;not null;index" json:"status"`
	DateFrom          time.Time                 `gorm:"not null" json:"date_from"`
	DateTo            time.Time                 `gorm:"not null" json:"date_to"`
	DryRun            bool                      `gorm:"not null;default:false" json:"dry_run"`
	CorrelationId     string                    `gorm:"size:64;index" json:"correlation_id"`
	MutationsFetched  int                       `json:"mutations_fetched"`
	MutationsImported int                       `json:"mutations_imported"`
	MutationsSkipped  int                       `json:"mutations_skipped"`
	MutationsFailed   int                       `json:"mutations_failed"`
	FailureReason     string                    `gorm:"type:text" json:"failure_reason"`
	Results           []MigrationMutationResult `gorm:"foreignKey:RunId" json:"results"`
	StartedAt         *time.Time                `json:"started_at"`
	FinishedAt        *time.Time                `json:"finished_at"`
	DurationMs        int64                     `json:"duration_ms"`
	CreatedAt         time.Time                 `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time                 `gorm:"autoUpdateTime" json:"updated_at"`
}

// MigrationMutationResult is one per-mutation outcome within a run: imported,
// skipped (duplicate), failed, or a resolver warning. Failures carry the
// stage and error kind so a targeted re-run of the failed subset is possible.
type MigrationMutationResult struct {
	ID                 int             `gorm:"primary_key" json:"id"`
	RunId              int             `gorm:"index;not null" json:"run_id"`
	BusinessId         string          `gorm:"size:64;index;not null" json:"business_id"`
	ExternalMutationId int64           `gorm:"index;not null" json:"external_mutation_id"`
	MutationType       MutationType    `gorm:"size:20" json:"mutation_type"`
	Outcome            MutationOutcome `gorm:"size:20;not null;index" json:"outcome"`
	Stage              string          `gorm:"size:20" json:"stage"`
	ErrorKind          string          `gorm:"size:20" json:"error_kind"`
	Message            string          `gorm:"type:text" json:"message"`
	JournalId          int             `gorm:"index" json:"journal_id"`
	CreatedAt          time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

func CreateMigrationRun(tx *gorm.DB, run *MigrationRun) error {
	if run.Status == "" {
		run.Status = MigrationRunStatusPending
	}
	return tx.Create(run).Error
}

func GetMigrationRun(tx *gorm.DB, businessId string, id int) (*MigrationRun, error) {
	var run MigrationRun
	err := tx.Preload("Results").
		Where("business_id = ? AND id = ?", businessId, id).
		Take(&run).Error
	if err != nil {
		return nil, err
	}
	return &run, nil
}

func ListMigrationRuns(tx *gorm.DB, businessId string, limit int) ([]*MigrationRun, error) {
	if limit <= 0 {
		limit = 20
	}
	var runs []*MigrationRun
	err := tx.Where("business_id = ?", businessId).
		Order("created_at DESC").
		Limit(limit).
		Find(&runs).Error
	if err != nil {
		return nil, err
	}
	return runs, nil
}

func MarkRunRunning(tx *gorm.DB, runId int, fetched int) error {
	now := time.Now()
	return tx.Model(&MigrationRun{}).Where("id = ?", runId).Updates(map[string]interface{}{
		"status":            MigrationRunStatusRunning,
		"mutations_fetched": fetched,
		"started_at":        now,
	}).Error
}

func RecordMutationResult(tx *gorm.DB, result *MigrationMutationResult) error {
	return tx.Create(result).Error
}

// FinalizeRun moves a run into its terminal state with final counts.
func FinalizeRun(tx *gorm.DB, runId int, status MigrationRunStatus, imported int, skipped int, failed int, failureReason string) error {
	now := time.Now()
	var run MigrationRun
	if err := tx.Where("id = ?", runId).Take(&run).Error; err != nil {
		return err
	}
	durationMs := int64(0)
	if run.StartedAt != nil {
		durationMs = now.Sub(*run.StartedAt).Milliseconds()
	}
	return tx.Model(&MigrationRun{}).Where("id = ?", runId).Updates(map[string]interface{}{
		"status":             status,
		"mutations_imported": imported,
		"mutations_skipped":  skipped,
		"mutations_failed":   failed,
		"failure_reason":     failureReason,
		"finished_at":        now,
		"duration_ms":        durationMs,
	}).Error
}
