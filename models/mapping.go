package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/ledger_import/utils"
	"gorm.io/gorm"
)

// LedgerMapping associates an external Fibu ledger code with an internal
// account. At most one active mapping exists per (business, external code);
// the unique index enforces that even when two runs race the redislock.
type LedgerMapping struct {
	ID           int             `gorm:"primary_key" json:"id"`
	BusinessId   string          `gorm:"size:64;not null;index:uniq_ledger_mapping,unique" json:"business_id"`
	ExternalCode string          `gorm:"size:50;not null;index:uniq_ledger_mapping,unique" json:"external_code"`
	AccountId    int             `gorm:"index;not null" json:"account_id"`
	Name         string          `gorm:"size:255" json:"name"`
	MainType     AccountMainType `gorm:"size:10;not null" json:"main_type"`
	NeedsReview  bool            `gorm:"not null;default:false;index" json:"needs_review"`
	CreatedAt    time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func GetLedgerMapping(tx *gorm.DB, businessId string, externalCode string) (*LedgerMapping, error) {
	var mapping LedgerMapping
	err := tx.Where("business_id = ? AND external_code = ?", businessId, externalCode).
		Take(&mapping).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &mapping, nil
}

// CreatePlaceholderMapping lazily records a mapping to the fallback account,
// flagged for manual review. Writes for one external code are serialized with
// a per-key redis lock; a concurrent winner's row is read back instead of
// failing on the uniqueness constraint.
func CreatePlaceholderMapping(ctx context.Context, tx *gorm.DB, businessId string, externalCode string, fallbackAccountId int, mainType AccountMainType) (*LedgerMapping, error) {
	release, err := utils.ObtainKeyLock(ctx, "ledger-mapping", businessId+":"+externalCode)
	if err != nil {
		return nil, err
	}
	defer release()

	existing, err := GetLedgerMapping(tx, businessId, externalCode)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	mapping := LedgerMapping{
		BusinessId:   businessId,
		ExternalCode: externalCode,
		AccountId:    fallbackAccountId,
		Name:         "Unmapped ledger " + externalCode,
		MainType:     mainType,
		NeedsReview:  true,
	}
	if err := tx.Create(&mapping).Error; err != nil {
		// Unique-constraint race with another run: take theirs.
		winner, readErr := GetLedgerMapping(tx, businessId, externalCode)
		if readErr == nil && winner != nil {
			return winner, nil
		}
		return nil, err
	}
	return &mapping, nil
}

// ListMappingsNeedingReview supports the administrator correction flow.
func ListMappingsNeedingReview(tx *gorm.DB, businessId string) ([]*LedgerMapping, error) {
	var mappings []*LedgerMapping
	err := tx.Where("business_id = ? AND needs_review = ?", businessId, true).
		Order("external_code ASC").
		Find(&mappings).Error
	if err != nil {
		return nil, err
	}
	return mappings, nil
}

// UpdateMapping points an existing mapping at a corrected account and clears
// the review flag. Committed journals are not rewritten; corrections apply to
// future imports only.
func UpdateMapping(tx *gorm.DB, businessId string, externalCode string, accountId int, mainType AccountMainType) error {
	result := tx.Model(&LedgerMapping{}).
		Where("business_id = ? AND external_code = ?", businessId, externalCode).
		Updates(map[string]interface{}{
			"account_id":   accountId,
			"main_type":    mainType,
			"needs_review": false,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return utils.ErrorRecordNotFound
	}
	return nil
}
