package models

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// AccountJournal is a committed ledger transaction: a header plus balanced
// debit/credit lines. Journals are immutable once committed; corrections are
// posted as new reversing journals, never edits.
type AccountJournal struct {
	ID                  int                  `gorm:"primary_key" json:"id"`
	BusinessId          string               `gorm:"index;not null;index:idx_aj_biz_date,priority:1" json:"business_id"`
	TransactionDateTime time.Time            `gorm:"index;not null;index:idx_aj_biz_date,priority:2" json:"transaction_date_time"`
	TransactionNumber   string               `gorm:"size:255" json:"transaction_number"`
	TransactionDetails  string               `gorm:"type:text" json:"transaction_details"`
	ReferenceNumber     string               `gorm:"size:255" json:"reference_number"`
	PartyId             int                  `gorm:"index" json:"party_id"`
	MigrationRunId      int                  `gorm:"index" json:"migration_run_id"`
	SourceType          MutationType         `gorm:"size:20;index" json:"source_type"`
	AccountTransactions []AccountTransaction `gorm:"foreignKey:JournalId" json:"account_transactions"`
	SourceTags          []JournalSourceTag   `gorm:"foreignKey:JournalId" json:"source_tags"`
	CreatedAt           time.Time            `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time            `gorm:"autoUpdateTime" json:"updated_at"`
}

type AccountTransaction struct {
	ID          int             `gorm:"primary_key" json:"id"`
	JournalId   int             `gorm:"index;not null" json:"journal_id"`
	BusinessId  string          `gorm:"index;not null" json:"business_id"`
	AccountId   int             `gorm:"index;not null" json:"account_id"`
	Description string          `gorm:"size:255" json:"description"`
	Debit       decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"debit"`
	Credit      decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"credit"`
}

// JournalSourceTag links a committed journal to the external mutation(s) it
// was built from. The unique index on (business_id, external_mutation_id) is
// both the audit trail and the deduplication key: one aggregated journal (an
// opening balance) can carry many tags, but an external mutation can only
// ever be tagged once.
type JournalSourceTag struct {
	ID                 int          `gorm:"primary_key" json:"id"`
	JournalId          int          `gorm:"index;not null" json:"journal_id"`
	BusinessId         string       `gorm:"size:64;not null;index:uniq_source_tag,unique" json:"business_id"`
	ExternalMutationId int64        `gorm:"not null;index:uniq_source_tag,unique" json:"external_mutation_id"`
	MutationType       MutationType `gorm:"size:20;not null" json:"mutation_type"`
	CreatedAt          time.Time    `gorm:"autoCreateTime" json:"created_at"`
}

// FindJournalByExternalRef looks for a journal already tagged with the given
// external mutation id, across all journal kinds. Returns (nil, nil) when the
// mutation has not been imported.
func FindJournalByExternalRef(tx *gorm.DB, businessId string, externalMutationId int64) (*AccountJournal, error) {
	var tag JournalSourceTag
	err := tx.Where("business_id = ? AND external_mutation_id = ?", businessId, externalMutationId).
		Take(&tag).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var journal AccountJournal
	err = tx.Preload("AccountTransactions").Preload("SourceTags").
		Where("business_id = ? AND id = ?", businessId, tag.JournalId).
		Take(&journal).Error
	if err != nil {
		return nil, err
	}
	return &journal, nil
}

func GetJournal(tx *gorm.DB, businessId string, id int) (*AccountJournal, error) {
	var journal AccountJournal
	err := tx.Preload("AccountTransactions").Preload("SourceTags").
		Where("business_id = ? AND id = ?", businessId, id).
		Take(&journal).Error
	if err != nil {
		return nil, err
	}
	return &journal, nil
}
