package models

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CachedMutation is a raw financial event fetched from the Fibu API, stored
// durably so a migration can be replayed without re-fetching. Mutations are
// written once per fetch (last write wins, content expected stable) and never
// modified by the import pipeline.
type CachedMutation struct {
	ID            int                 `gorm:"primary_key" json:"id"`
	BusinessId    string              `gorm:"size:64;not null;index:uniq_mutation,unique" json:"business_id"`
	ExternalId    int64               `gorm:"not null;index:uniq_mutation,unique;index" json:"external_id"`
	Type          MutationType        `gorm:"size:20;not null;index" json:"type"`
	MutationDate  time.Time           `gorm:"index;not null" json:"mutation_date"`
	Description   string              `gorm:"type:text" json:"description"`
	LedgerCode    string              `gorm:"size:50" json:"ledger_code"`
	RelationCode  string              `gorm:"size:50" json:"relation_code"`
	InvoiceNumber string              `gorm:"size:100" json:"invoice_number"`
	Rows          []CachedMutationRow `gorm:"foreignKey:MutationId" json:"rows"`
	VatLines      []CachedMutationVat `gorm:"foreignKey:MutationId" json:"vat_lines"`
	FetchedAt     time.Time           `gorm:"autoCreateTime" json:"fetched_at"`
}

type CachedMutationRow struct {
	ID          int             `gorm:"primary_key" json:"id"`
	MutationId  int             `gorm:"index;not null" json:"mutation_id"`
	LedgerCode  string          `gorm:"size:50;not null" json:"ledger_code"`
	Amount      decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"amount"`
	Description string          `gorm:"size:255" json:"description"`
}

type CachedMutationVat struct {
	ID         int             `gorm:"primary_key" json:"id"`
	MutationId int             `gorm:"index;not null" json:"mutation_id"`
	VatCode    string          `gorm:"size:20" json:"vat_code"`
	Amount     decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"amount"`
}

// PutMutation stores a raw mutation keyed by external id, idempotently. An
// existing record is replaced wholesale, rows included, so a re-fetch cannot
// leave stale rows behind. The delete-then-create runs in one transaction: a
// failed replacement leaves the previously cached record intact.
func PutMutation(db *gorm.DB, mutation *CachedMutation) error {
	return db.Transaction(func(tx *gorm.DB) error {
		var existing CachedMutation
		err := tx.Where("business_id = ? AND external_id = ?", mutation.BusinessId, mutation.ExternalId).
			Take(&existing).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err == nil {
			if err := tx.Where("mutation_id = ?", existing.ID).Delete(&CachedMutationRow{}).Error; err != nil {
				return err
			}
			if err := tx.Where("mutation_id = ?", existing.ID).Delete(&CachedMutationVat{}).Error; err != nil {
				return err
			}
			if err := tx.Select(clause.Associations).Unscoped().Delete(&existing).Error; err != nil {
				return err
			}
		}
		return tx.Create(mutation).Error
	})
}

func GetMutation(tx *gorm.DB, businessId string, externalId int64) (*CachedMutation, error) {
	var mutation CachedMutation
	err := tx.Preload("Rows").Preload("VatLines").
		Where("business_id = ? AND external_id = ?", businessId, externalId).
		Take(&mutation).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &mutation, nil
}

// ListMutationsByDateRange returns cached mutations in ascending external-id
// order, the order a migration run processes them in.
func ListMutationsByDateRange(tx *gorm.DB, businessId string, from time.Time, to time.Time) ([]*CachedMutation, error) {
	var mutations []*CachedMutation
	err := tx.Preload("Rows").Preload("VatLines").
		Where("business_id = ?", businessId).
		Where("mutation_date BETWEEN ? AND ?", from, to).
		Order("external_id ASC").
		Find(&mutations).Error
	if err != nil {
		return nil, err
	}
	return mutations, nil
}

func CountMutationsByDateRange(tx *gorm.DB, businessId string, from time.Time, to time.Time) (int64, error) {
	var count int64
	err := tx.Model(&CachedMutation{}).
		Where("business_id = ?", businessId).
		Where("mutation_date BETWEEN ? AND ?", from, to).
		Count(&count).Error
	return count, err
}
