package mocks

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/boxoffice/internal/domain"
	"github.com/iho/boxoffice/internal/usecase"
)

// MemoryDB is an in-memory store shared by the mock repositories. Row locks taken
// through a *MockTransaction are held until commit or rollback, and rollback undoes
// every write made through that transaction.
type MemoryDB struct {
	mu       sync.Mutex
	locks    map[string]*rowLock
	balances map[string]*domain.UserBalance
	legacy   map[string]decimal.Decimal

	entries   []*domain.Entry
	tickets   map[string]*domain.Ticket
	qrIndex   map[string]string
	invoices  map[string]*domain.Invoice
	purchases map[string]*domain.Purchase
	users     map[string]*domain.User
	outbox    []*domain.OutboxEvent
}

type rowLock struct {
	owner    *MockTransaction
	released chan struct{}
}

// NewMemoryDB creates an empty store.
func NewMemoryDB() *MemoryDB {
	return &MemoryDB{
		locks:     make(map[string]*rowLock),
		balances:  make(map[string]*domain.UserBalance),
		legacy:    make(map[string]decimal.Decimal),
		tickets:   make(map[string]*domain.Ticket),
		qrIndex:   make(map[string]string),
		invoices:  make(map[string]*domain.Invoice),
		purchases: make(map[string]*domain.Purchase),
		users:     make(map[string]*domain.User),
	}
}

func (db *MemoryDB) lock(ctx context.Context, tx usecase.Transaction, key string) error {
	mtx, ok := tx.(*MockTransaction)
	if !ok || mtx == nil {
		return nil
	}

	for {
		db.mu.Lock()
		l := db.locks[key]
		if l == nil {
			db.locks[key] = &rowLock{owner: mtx, released: make(chan struct{})}
			mtx.held = append(mtx.held, key)
			db.mu.Unlock()
			return nil
		}
		if l.owner == mtx {
			db.mu.Unlock()
			return nil
		}
		wait := l.released
		db.mu.Unlock()

		select {
		case <-wait:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// record registers an undo step. Caller holds db.mu.
func record(tx usecase.Transaction, undo func()) {
	if mtx, ok := tx.(*MockTransaction); ok && mtx != nil {
		mtx.undo = append(mtx.undo, undo)
	}
}

func (db *MemoryDB) finish(mtx *MockTransaction, rollback bool) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if rollback {
		for i := len(mtx.undo) - 1; i >= 0; i-- {
			mtx.undo[i]()
		}
	}
	mtx.undo = nil

	for _, key := range mtx.held {
		if l := db.locks[key]; l != nil && l.owner == mtx {
			close(l.released)
			delete(db.locks, key)
		}
	}
	mtx.held = nil
}

// SeedBalance stores a wallet directly.
func (db *MemoryDB) SeedBalance(userID string, amounts map[domain.Currency]decimal.Decimal) {
	db.mu.Lock()
	defer db.mu.Unlock()

	b := domain.NewUserBalance(userID, domain.USD, time.Now().UTC())
	for c, a := range amounts {
		b.Amounts[c] = a
	}
	db.balances[userID] = b
}

// SeedLegacyBalance stores an unmigrated single-number balance.
func (db *MemoryDB) SeedLegacyBalance(userID string, preferred domain.Currency, amount decimal.Decimal) {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.balances[userID] = domain.NewUserBalance(userID, preferred, time.Now().UTC())
	db.legacy[userID] = amount
}

// SeedUser stores a directory entry.
func (db *MemoryDB) SeedUser(u *domain.User) {
	db.mu.Lock()
	defer db.mu.Unlock()
	cp := *u
	db.users[u.ID] = &cp
}

// SeedPurchase stores a purchase marker directly.
func (db *MemoryDB) SeedPurchase(p *domain.Purchase) {
	db.mu.Lock()
	defer db.mu.Unlock()
	cp := *p
	db.purchases[p.ID] = &cp
}

// Entries returns a snapshot of every ledger entry.
func (db *MemoryDB) Entries() []*domain.Entry {
	db.mu.Lock()
	defer db.mu.Unlock()
	out := make([]*domain.Entry, len(db.entries))
	copy(out, db.entries)
	return out
}

// Tickets returns a snapshot of every ticket row.
func (db *MemoryDB) Tickets() []*domain.Ticket {
	db.mu.Lock()
	defer db.mu.Unlock()
	out := make([]*domain.Ticket, 0, len(db.tickets))
	for _, t := range db.tickets {
		cp := *t
		out = append(out, &cp)
	}
	return out
}

// OutboxEvents returns a snapshot of every outbox event.
func (db *MemoryDB) OutboxEvents() []*domain.OutboxEvent {
	db.mu.Lock()
	defer db.mu.Unlock()
	out := make([]*domain.OutboxEvent, len(db.outbox))
	copy(out, db.outbox)
	return out
}

// Balance returns the stored amount of one bucket.
func (db *MemoryDB) Balance(userID string, c domain.Currency) decimal.Decimal {
	db.mu.Lock()
	defer db.mu.Unlock()
	if b, ok := db.balances[userID]; ok {
		return b.Amount(c)
	}
	return decimal.Zero
}

// MockTransactionManager is a mock implementation of TransactionManager.
type MockTransactionManager struct {
	db        *MemoryDB
	BeginFunc func(ctx context.Context) (usecase.Transaction, error)
}

func NewMockTransactionManager(db *MemoryDB) *MockTransactionManager {
	return &MockTransactionManager{db: db}
}

func (m *MockTransactionManager) Begin(ctx context.Context) (usecase.Transaction, error) {
	if m.BeginFunc != nil {
		return m.BeginFunc(ctx)
	}
	return &MockTransaction{db: m.db}, nil
}

// MockTransaction is a mock implementation of Transaction.
type MockTransaction struct {
	db   *MemoryDB
	held []string
	undo []func()
	done bool

	CommitFunc func(ctx context.Context) error
}

func (m *MockTransaction) Commit(ctx context.Context) error {
	if m.done {
		return fmt.Errorf("transaction already closed")
	}
	if m.CommitFunc != nil {
		if err := m.CommitFunc(ctx); err != nil {
			return err
		}
	}
	m.done = true
	if m.db != nil {
		m.db.finish(m, false)
	}
	return nil
}

func (m *MockTransaction) Rollback(ctx context.Context) error {
	if m.done {
		return nil
	}
	m.done = true
	if m.db != nil {
		m.db.finish(m, true)
	}
	return nil
}

// MockBalanceRepository is a mock implementation of BalanceRepository.
type MockBalanceRepository struct {
	db *MemoryDB

	GetForUpdateFunc func(ctx context.Context, tx usecase.Transaction, userID string) (*domain.UserBalance, *domain.LegacyBalance, error)
}

func NewMockBalanceRepository(db *MemoryDB) *MockBalanceRepository {
	return &MockBalanceRepository{db: db}
}

func (m *MockBalanceRepository) GetForUpdate(ctx context.Context, tx usecase.Transaction, userID string) (*domain.UserBalance, *domain.LegacyBalance, error) {
	if m.GetForUpdateFunc != nil {
		return m.GetForUpdateFunc(ctx, tx, userID)
	}
	if err := m.db.lock(ctx, tx, "balance:"+userID); err != nil {
		return nil, nil, err
	}

	m.db.mu.Lock()
	defer m.db.mu.Unlock()

	b, ok := m.db.balances[userID]
	if !ok {
		b = domain.NewUserBalance(userID, domain.USD, time.Now().UTC())
		m.db.balances[userID] = b
		record(tx, func() { delete(m.db.balances, userID) })
	}

	var legacy *domain.LegacyBalance
	if amount, ok := m.db.legacy[userID]; ok {
		legacy = &domain.LegacyBalance{Amount: amount}
	}

	return b.Clone(), legacy, nil
}

func (m *MockBalanceRepository) Get(ctx context.Context, userID string) (*domain.UserBalance, *domain.LegacyBalance, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()

	b, ok := m.db.balances[userID]
	if !ok {
		return nil, nil, domain.ErrBalanceNotFound
	}

	var legacy *domain.LegacyBalance
	if amount, ok := m.db.legacy[userID]; ok {
		legacy = &domain.LegacyBalance{Amount: amount}
	}

	return b.Clone(), legacy, nil
}

func (m *MockBalanceRepository) Save(ctx context.Context, tx usecase.Transaction, balance *domain.UserBalance) error {
	if err := m.db.lock(ctx, tx, "balance:"+balance.UserID); err != nil {
		return err
	}

	m.db.mu.Lock()
	defer m.db.mu.Unlock()

	for c, a := range balance.Amounts {
		if a.IsNegative() {
			return fmt.Errorf("check constraint: negative %s balance", c)
		}
	}

	prev, hadPrev := m.db.balances[balance.UserID]
	prevLegacy, hadLegacy := m.db.legacy[balance.UserID]

	m.db.balances[balance.UserID] = balance.Clone()
	delete(m.db.legacy, balance.UserID)

	record(tx, func() {
		if hadPrev {
			m.db.balances[balance.UserID] = prev
		} else {
			delete(m.db.balances, balance.UserID)
		}
		if hadLegacy {
			m.db.legacy[balance.UserID] = prevLegacy
		}
	})

	return nil
}

func (m *MockBalanceRepository) ListUserIDs(ctx context.Context, limit, offset int) ([]string, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()

	ids := make([]string, 0, len(m.db.balances))
	for id := range m.db.balances {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	return page(ids, limit, offset), nil
}

// MockEntryRepository is a mock implementation of EntryRepository.
type MockEntryRepository struct {
	db *MemoryDB

	CreateFunc func(ctx context.Context, tx usecase.Transaction, entry *domain.Entry) error
}

func NewMockEntryRepository(db *MemoryDB) *MockEntryRepository {
	return &MockEntryRepository{db: db}
}

func (m *MockEntryRepository) Create(ctx context.Context, tx usecase.Transaction, entry *domain.Entry) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, entry)
	}

	m.db.mu.Lock()
	defer m.db.mu.Unlock()

	cp := *entry
	m.db.entries = append(m.db.entries, &cp)
	record(tx, func() {
		for i, e := range m.db.entries {
			if e.ID == cp.ID {
				m.db.entries = append(m.db.entries[:i], m.db.entries[i+1:]...)
				return
			}
		}
	})

	return nil
}

func (m *MockEntryRepository) GetByID(ctx context.Context, id string) (*domain.Entry, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()

	for _, e := range m.db.entries {
		if e.ID == id {
			cp := *e
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockEntryRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*domain.Entry, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()

	var out []*domain.Entry
	for i := len(m.db.entries) - 1; i >= 0; i-- {
		if e := m.db.entries[i]; e.UserID == userID {
			cp := *e
			out = append(out, &cp)
		}
	}

	return page(out, limit, offset), nil
}

func (m *MockEntryRepository) SumByUser(ctx context.Context, userID string) (map[domain.Currency]decimal.Decimal, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()

	sums := make(map[domain.Currency]decimal.Decimal)
	for _, e := range m.db.entries {
		if e.UserID == userID {
			sums[e.Currency] = sums[e.Currency].Add(e.Amount)
		}
	}
	return sums, nil
}

// MockLedgerRepository is a mock implementation of LedgerRepository.
type MockLedgerRepository struct {
	db *MemoryDB
}

func NewMockLedgerRepository(db *MemoryDB) *MockLedgerRepository {
	return &MockLedgerRepository{db: db}
}

func (m *MockLedgerRepository) CheckConsistency(ctx context.Context) (map[domain.Currency]decimal.Decimal, map[domain.Currency]decimal.Decimal, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()

	balances := make(map[domain.Currency]decimal.Decimal)
	entries := make(map[domain.Currency]decimal.Decimal)
	for _, b := range m.db.balances {
		for c, a := range b.Amounts {
			balances[c] = balances[c].Add(a)
		}
	}
	for _, e := range m.db.entries {
		entries[e.Currency] = entries[e.Currency].Add(e.Amount)
	}
	return balances, entries, nil
}

// MockTicketRepository is a mock implementation of TicketRepository.
type MockTicketRepository struct {
	db *MemoryDB

	CreateFunc func(ctx context.Context, tx usecase.Transaction, ticket *domain.Ticket) error
}

func NewMockTicketRepository(db *MemoryDB) *MockTicketRepository {
	return &MockTicketRepository{db: db}
}

func (m *MockTicketRepository) Create(ctx context.Context, tx usecase.Transaction, ticket *domain.Ticket) error {
	if m.CreateFunc != nil {
		if err := m.CreateFunc(ctx, tx, ticket); err != nil {
			return err
		}
	}

	m.db.mu.Lock()
	defer m.db.mu.Unlock()

	if _, exists := m.db.qrIndex[ticket.QRCode]; exists {
		return fmt.Errorf("unique violation: qr_code")
	}

	cp := *ticket
	m.db.tickets[ticket.ID] = &cp
	m.db.qrIndex[ticket.QRCode] = ticket.ID
	record(tx, func() {
		delete(m.db.tickets, cp.ID)
		delete(m.db.qrIndex, cp.QRCode)
	})

	return nil
}

func (m *MockTicketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()

	t, ok := m.db.tickets[id]
	if !ok {
		return nil, domain.ErrTicketNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *MockTicketRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.Ticket, error) {
	if err := m.db.lock(ctx, tx, "ticket:"+id); err != nil {
		return nil, err
	}
	return m.GetByID(ctx, id)
}

func (m *MockTicketRepository) GetByQRCode(ctx context.Context, qrCode string) (*domain.Ticket, error) {
	m.db.mu.Lock()
	id, ok := m.db.qrIndex[qrCode]
	m.db.mu.Unlock()
	if !ok {
		return nil, domain.ErrTicketNotFound
	}
	return m.GetByID(ctx, id)
}

func (m *MockTicketRepository) MarkUsed(ctx context.Context, tx usecase.Transaction, qrCode string, usedAt time.Time) (*domain.Ticket, error) {
	m.db.mu.Lock()
	id, ok := m.db.qrIndex[qrCode]
	m.db.mu.Unlock()
	if !ok {
		return nil, domain.ErrTicketNotFound
	}

	if err := m.db.lock(ctx, tx, "ticket:"+id); err != nil {
		return nil, err
	}

	m.db.mu.Lock()
	defer m.db.mu.Unlock()

	t := m.db.tickets[id]
	if t == nil || t.Status != domain.TicketStatusActive {
		return nil, domain.ErrTicketNotFound
	}

	prev := *t
	at := usedAt
	t.Status = domain.TicketStatusUsed
	t.UsedAt = &at
	record(tx, func() { *m.db.tickets[id] = prev })

	cp := *t
	return &cp, nil
}

func (m *MockTicketRepository) MarkTransferred(ctx context.Context, tx usecase.Transaction, id string, at time.Time) error {
	if err := m.db.lock(ctx, tx, "ticket:"+id); err != nil {
		return err
	}

	m.db.mu.Lock()
	defer m.db.mu.Unlock()

	t := m.db.tickets[id]
	if t == nil {
		return domain.ErrTicketNotFound
	}

	prev := *t
	t.Status = domain.TicketStatusTransferred
	record(tx, func() { *m.db.tickets[id] = prev })

	return nil
}

func (m *MockTicketRepository) ListByOwner(ctx context.Context, userID string, status *domain.TicketStatus) ([]*domain.Ticket, error) {
	return m.list(func(t *domain.Ticket) bool {
		return t.OwnerUserID == userID && (status == nil || t.Status == *status)
	}), nil
}

func (m *MockTicketRepository) ListByPurchase(ctx context.Context, purchaseID string) ([]*domain.Ticket, error) {
	return m.list(func(t *domain.Ticket) bool {
		return t.PurchaseID == purchaseID && t.TransferredFrom == nil
	}), nil
}

func (m *MockTicketRepository) list(match func(*domain.Ticket) bool) []*domain.Ticket {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()

	var out []*domain.Ticket
	for _, t := range m.db.tickets {
		if match(t) {
			cp := *t
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// MockInvoiceRepository is a mock implementation of InvoiceRepository.
type MockInvoiceRepository struct {
	db *MemoryDB

	CreateFunc func(ctx context.Context, tx usecase.Transaction, invoice *domain.Invoice) error
}

func NewMockInvoiceRepository(db *MemoryDB) *MockInvoiceRepository {
	return &MockInvoiceRepository{db: db}
}

func (m *MockInvoiceRepository) Create(ctx context.Context, tx usecase.Transaction, invoice *domain.Invoice) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, invoice)
	}

	m.db.mu.Lock()
	defer m.db.mu.Unlock()

	if _, exists := m.db.invoices[invoice.OrderID]; exists {
		return fmt.Errorf("unique violation: order_id")
	}

	cp := *invoice
	m.db.invoices[invoice.OrderID] = &cp
	record(tx, func() { delete(m.db.invoices, cp.OrderID) })
	return nil
}

func (m *MockInvoiceRepository) GetByOrderID(ctx context.Context, orderID string) (*domain.Invoice, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()

	inv, ok := m.db.invoices[orderID]
	if !ok {
		return nil, domain.ErrInvoiceNotFound
	}
	cp := *inv
	return &cp, nil
}

func (m *MockInvoiceRepository) GetByOrderIDForUpdate(ctx context.Context, tx usecase.Transaction, orderID string) (*domain.Invoice, error) {
	if err := m.db.lock(ctx, tx, "invoice:"+orderID); err != nil {
		return nil, err
	}
	return m.GetByOrderID(ctx, orderID)
}

func (m *MockInvoiceRepository) UpdateStatus(ctx context.Context, tx usecase.Transaction, invoice *domain.Invoice) error {
	if err := m.db.lock(ctx, tx, "invoice:"+invoice.OrderID); err != nil {
		return err
	}

	m.db.mu.Lock()
	defer m.db.mu.Unlock()

	cur, ok := m.db.invoices[invoice.OrderID]
	if !ok {
		return domain.ErrInvoiceNotFound
	}

	prev := *cur
	cur.Status = invoice.Status
	cur.PaidAt = invoice.PaidAt
	cur.ExternalInvoiceID = invoice.ExternalInvoiceID
	cur.UpdatedAt = invoice.UpdatedAt
	record(tx, func() { *m.db.invoices[prev.OrderID] = prev })
	return nil
}

// SeedInvoice stores an invoice directly.
func (db *MemoryDB) SeedInvoice(inv *domain.Invoice) {
	db.mu.Lock()
	defer db.mu.Unlock()
	cp := *inv
	db.invoices[inv.OrderID] = &cp
}

// MockPurchaseRepository is a mock implementation of PurchaseRepository.
type MockPurchaseRepository struct {
	db *MemoryDB
}

func NewMockPurchaseRepository(db *MemoryDB) *MockPurchaseRepository {
	return &MockPurchaseRepository{db: db}
}

func (m *MockPurchaseRepository) Create(ctx context.Context, tx usecase.Transaction, purchase *domain.Purchase) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()

	cp := *purchase
	m.db.purchases[purchase.ID] = &cp
	record(tx, func() { delete(m.db.purchases, cp.ID) })
	return nil
}

func (m *MockPurchaseRepository) GetByID(ctx context.Context, id string) (*domain.Purchase, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()

	p, ok := m.db.purchases[id]
	if !ok {
		return nil, domain.ErrPurchaseNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *MockPurchaseRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.Purchase, error) {
	if err := m.db.lock(ctx, tx, "purchase:"+id); err != nil {
		return nil, err
	}
	return m.GetByID(ctx, id)
}

func (m *MockPurchaseRepository) UpdateStatus(ctx context.Context, tx usecase.Transaction, id string, status domain.PurchaseStatus, cause string, updatedAt time.Time) error {
	if err := m.db.lock(ctx, tx, "purchase:"+id); err != nil {
		return err
	}

	m.db.mu.Lock()
	defer m.db.mu.Unlock()

	p, ok := m.db.purchases[id]
	if !ok {
		return domain.ErrPurchaseNotFound
	}

	prev := *p
	p.Status = status
	p.FailureCause = cause
	p.UpdatedAt = updatedAt
	record(tx, func() { *m.db.purchases[id] = prev })
	return nil
}

func (m *MockPurchaseRepository) ListStale(ctx context.Context, status domain.PurchaseStatus, olderThan time.Time, limit int) ([]*domain.Purchase, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()

	var out []*domain.Purchase
	for _, p := range m.db.purchases {
		if p.Status == status && p.CreatedAt.Before(olderThan) {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })

	return page(out, limit, 0), nil
}

// MockUserRepository is a mock implementation of UserRepository.
type MockUserRepository struct {
	db *MemoryDB

	UpsertFunc func(ctx context.Context, user *domain.User) error
}

func NewMockUserRepository(db *MemoryDB) *MockUserRepository {
	return &MockUserRepository{db: db}
}

func (m *MockUserRepository) Upsert(ctx context.Context, user *domain.User) error {
	if m.UpsertFunc != nil {
		return m.UpsertFunc(ctx, user)
	}

	m.db.mu.Lock()
	defer m.db.mu.Unlock()

	cp := *user
	if prev, ok := m.db.users[user.ID]; ok {
		cp.CreatedAt = prev.CreatedAt
	}
	m.db.users[user.ID] = &cp
	return nil
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()

	u, ok := m.db.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()

	for _, u := range m.db.users {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

// MockOutboxRepository is a mock implementation of OutboxRepository.
type MockOutboxRepository struct {
	db *MemoryDB
}

func NewMockOutboxRepository(db *MemoryDB) *MockOutboxRepository {
	return &MockOutboxRepository{db: db}
}

func (m *MockOutboxRepository) Create(ctx context.Context, tx usecase.Transaction, event *domain.OutboxEvent) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()

	cp := *event
	m.db.outbox = append(m.db.outbox, &cp)
	record(tx, func() {
		for i, e := range m.db.outbox {
			if e.ID == cp.ID {
				m.db.outbox = append(m.db.outbox[:i], m.db.outbox[i+1:]...)
				return
			}
		}
	})
	return nil
}

func (m *MockOutboxRepository) GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()

	var out []*domain.OutboxEvent
	for _, e := range m.db.outbox {
		if !e.Published {
			cp := *e
			out = append(out, &cp)
		}
	}
	return page(out, limit, 0), nil
}

func (m *MockOutboxRepository) MarkPublished(ctx context.Context, id string, publishedAt time.Time) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()

	for _, e := range m.db.outbox {
		if e.ID == id {
			at := publishedAt
			e.Published = true
			e.PublishedAt = &at
			return nil
		}
	}
	return domain.ErrNotFound
}

func (m *MockOutboxRepository) DeletePublished(ctx context.Context, before time.Time) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()

	kept := m.db.outbox[:0]
	for _, e := range m.db.outbox {
		if e.Published && e.PublishedAt != nil && e.PublishedAt.Before(before) {
			continue
		}
		kept = append(kept, e)
	}
	m.db.outbox = kept
	return nil
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

// MockIDGenerator is a mock implementation of IDGenerator.
type MockIDGenerator struct {
	GenerateFunc func() string
	Prefix       string
	counter      int
	mu           sync.Mutex
}

func NewMockIDGenerator() *MockIDGenerator {
	return &MockIDGenerator{Prefix: "id"}
}

func (m *MockIDGenerator) Generate() string {
	if m.GenerateFunc != nil {
		return m.GenerateFunc()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counter++
	return fmt.Sprintf("%s-%06d", m.Prefix, m.counter)
}

// MockTokenGenerator is a mock implementation of TokenGenerator.
type MockTokenGenerator struct {
	GenerateFunc func() (string, error)
	counter      int
	mu           sync.Mutex
}

func NewMockTokenGenerator() *MockTokenGenerator {
	return &MockTokenGenerator{}
}

func (m *MockTokenGenerator) Generate() (string, error) {
	if m.GenerateFunc != nil {
		return m.GenerateFunc()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counter++
	return fmt.Sprintf("qr-%06d", m.counter), nil
}

// MockClock is a settable Clock.
type MockClock struct {
	mu  sync.Mutex
	now time.Time
}

func NewMockClock(now time.Time) *MockClock {
	return &MockClock{now: now}
}

func (c *MockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *MockClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// MockCache is an in-memory Cache.
type MockCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func NewMockCache() *MockCache {
	return &MockCache{data: make(map[string][]byte)}
}

func (m *MockCache) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return v, nil
}

func (m *MockCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *MockCache) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}
