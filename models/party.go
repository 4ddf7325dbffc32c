package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/ledger_import/utils"
	"gorm.io/gorm"
)

// Party is a business partner (customer or supplier) in the books database,
// keyed for the importer by the Fibu relation code.
type Party struct {
	ID           int       `gorm:"primary_key" json:"id"`
	BusinessId   string    `gorm:"size:64;not null;index:uniq_party_relation,unique" json:"business_id"`
	RelationCode string    `gorm:"size:50;not null;index:uniq_party_relation,unique" json:"relation_code"`
	Name         string    `gorm:"size:255;not null" json:"name"`
	IsCustomer   bool      `gorm:"not null;default:false" json:"is_customer"`
	IsSupplier   bool      `gorm:"not null;default:false" json:"is_supplier"`
	NeedsReview  bool      `gorm:"not null;default:false;index" json:"needs_review"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func GetPartyByRelationCode(tx *gorm.DB, businessId string, relationCode string) (*Party, error) {
	var party Party
	err := tx.Where("business_id = ? AND relation_code = ?", businessId, relationCode).
		Take(&party).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &party, nil
}

// ResolveParty returns the party for a relation code, creating a
// review-flagged placeholder when the relation is unknown. Creation per
// relation code is serialized the same way mapping creation is.
func ResolveParty(ctx context.Context, tx *gorm.DB, businessId string, relationCode string, asCustomer bool) (*Party, error) {
	party, err := GetPartyByRelationCode(tx, businessId, relationCode)
	if err != nil {
		return nil, err
	}
	if party != nil {
		return party, nil
	}

	release, err := utils.ObtainKeyLock(ctx, "party-relation", businessId+":"+relationCode)
	if err != nil {
		return nil, err
	}
	defer release()

	party, err = GetPartyByRelationCode(tx, businessId, relationCode)
	if err != nil {
		return nil, err
	}
	if party != nil {
		return party, nil
	}

	fallback := Party{
		BusinessId:   businessId,
		RelationCode: relationCode,
		Name:         "Unknown relation " + relationCode,
		IsCustomer:   asCustomer,
		IsSupplier:   !asCustomer,
		NeedsReview:  true,
	}
	if err := tx.Create(&fallback).Error; err != nil {
		winner, readErr := GetPartyByRelationCode(tx, businessId, relationCode)
		if readErr == nil && winner != nil {
			return winner, nil
		}
		return nil, err
	}
	return &fallback, nil
}
