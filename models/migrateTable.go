package models

import (
	"log"

	"bitbucket.org/mmdatafocus/ledger_import/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&Account{},
		&AccountJournal{}, &AccountTransaction{}, &JournalSourceTag{},
		&CachedMutation{}, &CachedMutationRow{}, &CachedMutationVat{},
		&LedgerMapping{},
		&Party{},
		&MigrationRun{}, &MigrationMutationResult{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
