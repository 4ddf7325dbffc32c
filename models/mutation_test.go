package models

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// The mutation cache is plain gorm with no business logic to fake, so these
// tests run against a throwaway sqlite file instead of MySQL.
func openCacheDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "cache.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&CachedMutation{}, &CachedMutationRow{}, &CachedMutationVat{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func cachedMemorial(externalId int64, amount string) *CachedMutation {
	return &CachedMutation{
		BusinessId:   "biz-1",
		ExternalId:   externalId,
		Type:         MutationTypeMemorial,
		MutationDate: time.Date(2023, 4, 12, 0, 0, 0, 0, time.UTC),
		Description:  "Booking",
		Rows: []CachedMutationRow{
			{LedgerCode: "4000", Amount: decimal.RequireFromString(amount)},
		},
	}
}

func TestPutMutation_RefetchReplacesRows(t *testing.T) {
	db := openCacheDB(t)
	if err := PutMutation(db, cachedMemorial(100, "50.00")); err != nil {
		t.Fatalf("first put: %v", err)
	}
	if err := PutMutation(db, cachedMemorial(100, "75.00")); err != nil {
		t.Fatalf("second put: %v", err)
	}

	got, err := GetMutation(db, "biz-1", 100)
	if err != nil || got == nil {
		t.Fatalf("GetMutation: %v, %v", got, err)
	}
	if len(got.Rows) != 1 || !got.Rows[0].Amount.Equal(decimal.RequireFromString("75.00")) {
		t.Fatalf("rows after re-fetch = %+v, want single 75.00 row", got.Rows)
	}

	var rows int64
	if err := db.Model(&CachedMutationRow{}).Count(&rows).Error; err != nil {
		t.Fatalf("count rows: %v", err)
	}
	if rows != 1 {
		t.Fatalf("row records = %d, want 1 (stale rows left behind)", rows)
	}
}

// A replacement that fails partway through must not destroy the record a
// previous successful fetch cached.
func TestPutMutation_FailedReplaceKeepsCachedRecord(t *testing.T) {
	db := openCacheDB(t)
	if err := PutMutation(db, cachedMemorial(100, "50.00")); err != nil {
		t.Fatalf("put 100: %v", err)
	}
	if err := PutMutation(db, cachedMemorial(200, "10.00")); err != nil {
		t.Fatalf("put 200: %v", err)
	}

	other, err := GetMutation(db, "biz-1", 200)
	if err != nil || other == nil {
		t.Fatalf("GetMutation 200: %v, %v", other, err)
	}

	// Forcing the create step to fail after the deletes ran: the replacement
	// collides with the other record's primary key.
	replacement := cachedMemorial(100, "75.00")
	replacement.ID = other.ID
	if err := PutMutation(db, replacement); err == nil {
		t.Fatal("expected the colliding replace to fail")
	}

	got, err := GetMutation(db, "biz-1", 100)
	if err != nil {
		t.Fatalf("GetMutation 100: %v", err)
	}
	if got == nil {
		t.Fatal("cached mutation 100 lost after failed replace")
	}
	if len(got.Rows) != 1 || !got.Rows[0].Amount.Equal(decimal.RequireFromString("50.00")) {
		t.Fatalf("cached rows changed after failed replace: %+v", got.Rows)
	}
}
