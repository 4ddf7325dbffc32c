package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/ledger_import/config"
	"bitbucket.org/mmdatafocus/ledger_import/models"
)

// DB-free fakes for the posting pipeline. They validate the intended
// semantics of classification, deduplication, and run orchestration; full
// MySQL integration tests need an environment that can run the database.

type fakeLedger struct {
	accounts map[int]*models.Account
	system   map[string]int
	nextId   int
	journals []*models.AccountJournal
	tagged   map[int64]*models.AccountJournal

	// failCreates makes the next N CreateJournal calls fail.
	failCreates int
	// getAccountErr makes every GetAccount call fail, simulating a store
	// outage rather than a missing account.
	getAccountErr error
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		accounts: map[int]*models.Account{},
		system:   map[string]int{},
		nextId:   1,
		tagged:   map[int64]*models.AccountJournal{},
	}
}

func (f *fakeLedger) addAccount(mainType models.AccountMainType, name string) int {
	id := f.nextId
	f.nextId++
	f.accounts[id] = &models.Account{ID: id, Name: name, MainType: mainType}
	return id
}

func (f *fakeLedger) addGroupAccount(name string) int {
	id := f.addAccount(models.AccountMainTypeAsset, name)
	f.accounts[id].IsGroup = true
	return id
}

func (f *fakeLedger) GetAccount(ctx context.Context, id int) (*models.Account, error) {
	if f.getAccountErr != nil {
		return nil, f.getAccountErr
	}
	account, ok := f.accounts[id]
	if !ok {
		return nil, fmt.Errorf("account %d: %w", id, models.ErrAccountNotFound)
	}
	return account, nil
}

func (f *fakeLedger) SystemAccount(ctx context.Context, code string) (int, error) {
	if id, ok := f.system[code]; ok {
		return id, nil
	}
	name, mainType, _ := systemAccountDefaults(code)
	id := f.addAccount(mainType, name)
	f.system[code] = id
	return id, nil
}

func (f *fakeLedger) CreateJournal(ctx context.Context, journal *models.AccountJournal) error {
	if f.failCreates > 0 {
		f.failCreates--
		return errors.New("storage unavailable")
	}
	for _, tag := range journal.SourceTags {
		if _, ok := f.tagged[tag.ExternalMutationId]; ok {
			return fmt.Errorf("duplicate source tag for mutation %d", tag.ExternalMutationId)
		}
	}
	journal.ID = f.nextId
	f.nextId++
	f.journals = append(f.journals, journal)
	for _, tag := range journal.SourceTags {
		f.tagged[tag.ExternalMutationId] = journal
	}
	return nil
}

func (f *fakeLedger) FindJournalByExternalRef(ctx context.Context, externalMutationId int64) (*models.AccountJournal, error) {
	return f.tagged[externalMutationId], nil
}

type fakeMappings struct {
	byCode map[string]*models.LedgerMapping
}

func newFakeMappings() *fakeMappings {
	return &fakeMappings{byCode: map[string]*models.LedgerMapping{}}
}

func (f *fakeMappings) add(code string, accountId int, mainType models.AccountMainType) {
	f.byCode[code] = &models.LedgerMapping{ExternalCode: code, AccountId: accountId, MainType: mainType}
}

func (f *fakeMappings) GetMapping(ctx context.Context, externalCode string) (*models.LedgerMapping, error) {
	return f.byCode[externalCode], nil
}

func (f *fakeMappings) CreatePlaceholderMapping(ctx context.Context, externalCode string, fallbackAccountId int, mainType models.AccountMainType) (*models.LedgerMapping, error) {
	mapping := &models.LedgerMapping{ExternalCode: externalCode, AccountId: fallbackAccountId, MainType: mainType, NeedsReview: true}
	f.byCode[externalCode] = mapping
	return mapping, nil
}

type fakeParties struct {
	nextId int
	byCode map[string]*models.Party
}

func newFakeParties() *fakeParties {
	return &fakeParties{nextId: 1000, byCode: map[string]*models.Party{}}
}

func (f *fakeParties) ResolveParty(ctx context.Context, relationCode string, asCustomer bool) (*models.Party, error) {
	if party, ok := f.byCode[relationCode]; ok {
		return party, nil
	}
	f.nextId++
	party := &models.Party{ID: f.nextId, RelationCode: relationCode, IsCustomer: asCustomer, IsSupplier: !asCustomer}
	f.byCode[relationCode] = party
	return party, nil
}

type fakeRecorder struct {
	results []*models.MigrationMutationResult
}

func (f *fakeRecorder) RecordResult(ctx context.Context, result *models.MigrationMutationResult) error {
	f.results = append(f.results, result)
	return nil
}

func (f *fakeRecorder) byOutcome(outcome models.MutationOutcome) []*models.MigrationMutationResult {
	var matched []*models.MigrationMutationResult
	for _, result := range f.results {
		if result.Outcome == outcome {
			matched = append(matched, result)
		}
	}
	return matched
}

type fakeRuns struct {
	nextId    int
	created   []*models.MigrationRun
	running   map[int]int
	finalized map[int]models.MigrationRunStatus
	reasons   map[int]string
}

func newFakeRuns() *fakeRuns {
	return &fakeRuns{running: map[int]int{}, finalized: map[int]models.MigrationRunStatus{}, reasons: map[int]string{}}
}

func (f *fakeRuns) CreateRun(ctx context.Context, run *models.MigrationRun) error {
	f.nextId++
	run.ID = f.nextId
	f.created = append(f.created, run)
	return nil
}

func (f *fakeRuns) MarkRunning(ctx context.Context, runId int, fetched int) error {
	f.running[runId] = fetched
	return nil
}

func (f *fakeRuns) Finalize(ctx context.Context, runId int, status models.MigrationRunStatus, imported int, skipped int, failed int, failureReason string) error {
	f.finalized[runId] = status
	f.reasons[runId] = failureReason
	return nil
}

type fakeSource struct {
	mutations []*models.CachedMutation
	err       error
}

func (f *fakeSource) ListMutations(ctx context.Context, from time.Time, to time.Time) ([]*models.CachedMutation, error) {
	return f.mutations, f.err
}

// harness wires the fakes into a classifier, committer, and runner for one
// test business, with common accounts and mappings preloaded.
type harness struct {
	ledger     *fakeLedger
	mappings   *fakeMappings
	parties    *fakeParties
	recorder   *fakeRecorder
	runs       *fakeRuns
	source     *fakeSource
	classifier *Classifier
	committer  *Committer

	bankId    int
	incomeId  int
	expenseId int
	equityId  int
	loanId    int
}

func newHarness() *harness {
	h := &harness{
		ledger:   newFakeLedger(),
		mappings: newFakeMappings(),
		parties:  newFakeParties(),
		recorder: &fakeRecorder{},
		runs:     newFakeRuns(),
		source:   &fakeSource{},
	}

	h.bankId = h.ledger.addAccount(models.AccountMainTypeAsset, "Bank")
	h.incomeId = h.ledger.addAccount(models.AccountMainTypeIncome, "Sales")
	h.expenseId = h.ledger.addAccount(models.AccountMainTypeExpense, "Office costs")
	h.equityId = h.ledger.addAccount(models.AccountMainTypeEquity, "Retained earnings")
	h.loanId = h.ledger.addAccount(models.AccountMainTypeLiability, "Bank loan")

	h.mappings.add("1000", h.bankId, models.AccountMainTypeAsset)
	h.mappings.add("8000", h.incomeId, models.AccountMainTypeIncome)
	h.mappings.add("4000", h.expenseId, models.AccountMainTypeExpense)
	h.mappings.add("0500", h.equityId, models.AccountMainTypeEquity)
	h.mappings.add("1500", h.loanId, models.AccountMainTypeLiability)

	resolver := &Resolver{
		Ledger:     h.ledger,
		Mappings:   h.mappings,
		Recorder:   h.recorder,
		Logger:     config.GetLogger(),
		BusinessId: "biz-1",
	}
	h.classifier = &Classifier{Resolver: resolver, Ledger: h.ledger, Parties: h.parties}
	h.committer = &Committer{Ledger: h.ledger, BusinessId: "biz-1"}
	return h
}

func (h *harness) runner(cfg RunConfig) *Runner {
	return &Runner{
		Source:     h.source,
		Runs:       h.runs,
		Recorder:   h.recorder,
		Classifier: h.classifier,
		Committer:  h.committer,
		Logger:     config.GetLogger(),
		Config:     cfg,
	}
}
