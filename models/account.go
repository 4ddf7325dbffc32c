package models

import (
	"errors"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/ledger_import/config"
	"gorm.io/gorm"
)

// Account is an internal ledger account in the books database. The importer
// reads accounts; it creates them only for the documented fallbacks (import
// suspense, opening balance adjustments).
type Account struct {
	ID                int               `gorm:"primary_key" json:"id"`
	BusinessId        string            `gorm:"index;not null" json:"business_id"`
	DetailType        AccountDetailType `gorm:"index;size:50;not null" json:"detail_type"`
	MainType          AccountMainType   `gorm:"index;size:10;not null" json:"main_type"`
	NormalBalance     NormalBalance     `gorm:"size:16;not null;default:'DEBIT'" json:"normal_balance"`
	Name              string            `gorm:"index;size:100;not null" json:"name"`
	Code              string            `gorm:"size:100" json:"code"`
	Description       string            `gorm:"type:text" json:"description"`
	ParentAccountId   int               `gorm:"index;not null" json:"parent_account_id"`
	IsGroup           bool              `gorm:"not null;default:false" json:"is_group"`
	IsActive          *bool             `gorm:"not null;default:true" json:"is_active"`
	IsSystemDefault   *bool             `gorm:"not null;default:false" json:"is_system_default"`
	SystemDefaultCode string            `gorm:"index;size:3" json:"system_default_code"`
	CreatedAt         time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsLeaf reports whether the account can carry postings. Group accounts only
// structure the chart of accounts.
func (a *Account) IsLeaf() bool {
	return !a.IsGroup
}

// ErrAccountNotFound marks an account id with no matching row. Callers use it
// to tell a missing account apart from an unreachable store: the former is a
// permanent mapping or validation failure, the latter is retried.
var ErrAccountNotFound = errors.New("account not found")

func GetAccount(tx *gorm.DB, businessId string, id int) (*Account, error) {
	var account Account
	err := tx.Where("business_id = ? AND id = ?", businessId, id).Take(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("account %d: %w", id, ErrAccountNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// GetSystemAccounts returns the system-default account ids keyed by
// SystemDefaultCode, with a Redis read-through cache like the rest of the
// books services use.
func GetSystemAccounts(tx *gorm.DB, businessId string) (map[string]int, error) {
	var sysAccounts map[string]int

	exists, err := config.GetRedisObject("SystemAccounts:"+businessId, &sysAccounts)
	if err != nil {
		return nil, err
	}
	if !exists {
		var accounts []*Account
		if err := tx.Select("id", "system_default_code").
			Where("business_id = ?", businessId).
			Where("is_system_default = ?", true).
			Find(&accounts).Error; err != nil {
			return nil, err
		}
		sysAccounts = make(map[string]int)
		for _, acc := range accounts {
			sysAccounts[acc.SystemDefaultCode] = acc.ID
		}
		if err := config.SetRedisObject("SystemAccounts:"+businessId, &sysAccounts, 0); err != nil {
			return nil, err
		}
	}
	return sysAccounts, nil
}

// EnsureSystemAccount returns the id of the system-default account with the
// given code, creating it when absent. Used for the import suspense and
// opening balance adjustments fallbacks.
func EnsureSystemAccount(tx *gorm.DB, businessId string, code string, name string, mainType AccountMainType, detailType AccountDetailType) (int, error) {
	var account Account
	err := tx.Where("business_id = ? AND system_default_code = ? AND is_system_default = ?", businessId, code, true).
		Take(&account).Error
	if err == nil {
		return account.ID, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, err
	}

	active := true
	system := true
	account = Account{
		BusinessId:        businessId,
		DetailType:        detailType,
		MainType:          mainType,
		NormalBalance:     mainType.NaturalBalance(),
		Name:              name,
		IsActive:          &active,
		IsSystemDefault:   &system,
		SystemDefaultCode: code,
	}
	if err := tx.Create(&account).Error; err != nil {
		return 0, err
	}
	// The cached system-account map is now stale.
	_ = config.RemoveRedisKey("SystemAccounts:" + businessId)
	return account.ID, nil
}
