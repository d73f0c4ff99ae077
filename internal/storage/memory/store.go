package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sheikh-saqib/personal-finance-ledger/internal/interfaces"
	"github.com/sheikh-saqib/personal-finance-ledger/internal/models"
)

// MemoryLedgerStore is an in-memory implementation of interfaces.LedgerStore.
// Statements live in a single slice in insertion order; writers touching the
// same user are serialized by per-user mutexes taken in RunInTx.
type MemoryLedgerStore struct {
	mu         sync.RWMutex // protects users, emails, statements, byID
	users      map[string]models.User
	emails     map[string]string // lower-cased email -> user id
	statements []models.Statement
	byID       map[string]int // statement id -> index in statements

	muMap map[string]*sync.Mutex // per-user write locks
	mapMu sync.Mutex             // protects muMap itself

	now func() time.Time
}

// NewMemoryLedgerStore creates an empty store.
func NewMemoryLedgerStore() *MemoryLedgerStore {
	return &MemoryLedgerStore{
		users:  make(map[string]models.User),
		emails: make(map[string]string),
		byID:   make(map[string]int),
		muMap:  make(map[string]*sync.Mutex),
		now:    time.Now,
	}
}

func (m *MemoryLedgerStore) getUserLock(userID string) *sync.Mutex {
	m.mapMu.Lock()
	defer m.mapMu.Unlock()

	if _, exists := m.muMap[userID]; !exists {
		m.muMap[userID] = &sync.Mutex{}
	}
	return m.muMap[userID]
}

// CreateUser stores a new user, assigning an id when none is set.
func (m *MemoryLedgerStore) CreateUser(ctx context.Context, user models.User) (models.User, error) {
	if err := ctx.Err(); err != nil {
		return models.User{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	email := strings.ToLower(user.Email)
	if _, taken := m.emails[email]; taken {
		return models.User{}, interfaces.ErrDuplicate
	}
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if _, taken := m.users[user.ID]; taken {
		return models.User{}, interfaces.ErrDuplicate
	}

	now := m.now().UTC()
	user.Email = email
	user.CreatedAt = now
	user.UpdatedAt = now

	m.users[user.ID] = user
	m.emails[email] = user.ID
	return user, nil
}

func (m *MemoryLedgerStore) FindUserByID(ctx context.Context, id string) (models.User, error) {
	if err := ctx.Err(); err != nil {
		return models.User{}, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	user, ok := m.users[id]
	if !ok {
		return models.User{}, interfaces.ErrNotFound
	}
	return user, nil
}

func (m *MemoryLedgerStore) FindUserByEmail(ctx context.Context, email string) (models.User, error) {
	if err := ctx.Err(); err != nil {
		return models.User{}, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.emails[strings.ToLower(email)]
	if !ok {
		return models.User{}, interfaces.ErrNotFound
	}
	return m.users[id], nil
}

// CreateStatement appends a statement outside of any transaction. Ledger
// operations go through RunInTx instead.
func (m *MemoryLedgerStore) CreateStatement(ctx context.Context, stmt models.NewStatement) (models.Statement, error) {
	if err := ctx.Err(); err != nil {
		return models.Statement{}, err
	}

	created := m.build(stmt)

	m.mu.Lock()
	defer m.mu.Unlock()

	m.appendLocked(created)
	return created, nil
}

func (m *MemoryLedgerStore) ListStatementsForUser(ctx context.Context, userID string) ([]models.Statement, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.listLocked(userID), nil
}

func (m *MemoryLedgerStore) FindStatement(ctx context.Context, id string) (models.Statement, error) {
	if err := ctx.Err(); err != nil {
		return models.Statement{}, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	idx, ok := m.byID[id]
	if !ok {
		return models.Statement{}, interfaces.ErrNotFound
	}
	return m.statements[idx], nil
}

// RunInTx locks every listed user in sorted order, so two transfers crossing
// the same pair of users cannot deadlock, and publishes the statements staged
// by fn only when fn succeeds. Ids with no user get no lock and stay unknown
// to fn for the whole transaction.
func (m *MemoryLedgerStore) RunInTx(ctx context.Context, userIDs []string, fn func(tx interfaces.StatementStore) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	ids, missing := m.partitionUsers(userIDs)
	for _, id := range ids {
		lock := m.getUserLock(id)
		lock.Lock()
		defer lock.Unlock()
	}

	tx := &memoryTx{store: m, missing: missing}
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, s := range tx.staged {
		m.appendLocked(s)
	}
	return nil
}

// partitionUsers splits ids into existing users, sorted and deduplicated, and
// unknown ids.
func (m *MemoryLedgerStore) partitionUsers(userIDs []string) ([]string, map[string]struct{}) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var (
		ids     []string
		missing map[string]struct{}
	)
	for _, id := range uniqueSorted(userIDs) {
		if _, ok := m.users[id]; ok {
			ids = append(ids, id)
			continue
		}
		if missing == nil {
			missing = make(map[string]struct{})
		}
		missing[id] = struct{}{}
	}
	return ids, missing
}

func (m *MemoryLedgerStore) build(stmt models.NewStatement) models.Statement {
	now := m.now().UTC()
	return models.Statement{
		ID:          uuid.New().String(),
		UserID:      stmt.UserID,
		SenderID:    stmt.SenderID,
		Amount:      stmt.Amount,
		Type:        stmt.Type,
		Description: stmt.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func (m *MemoryLedgerStore) appendLocked(s models.Statement) {
	m.byID[s.ID] = len(m.statements)
	m.statements = append(m.statements, s)
}

func (m *MemoryLedgerStore) listLocked(userID string) []models.Statement {
	var result []models.Statement
	for _, s := range m.statements {
		if s.UserID == userID {
			result = append(result, s)
		}
	}
	sortByCreation(result)
	return result
}

// memoryTx reads through to the store and buffers writes until commit.
type memoryTx struct {
	store   *MemoryLedgerStore
	staged  []models.Statement
	missing map[string]struct{}
}

func (t *memoryTx) FindUserByID(ctx context.Context, id string) (models.User, error) {
	if _, ok := t.missing[id]; ok {
		return models.User{}, interfaces.ErrNotFound
	}
	return t.store.FindUserByID(ctx, id)
}

func (t *memoryTx) CreateStatement(ctx context.Context, stmt models.NewStatement) (models.Statement, error) {
	if err := ctx.Err(); err != nil {
		return models.Statement{}, err
	}
	created := t.store.build(stmt)
	t.staged = append(t.staged, created)
	return created, nil
}

func (t *memoryTx) ListStatementsForUser(ctx context.Context, userID string) ([]models.Statement, error) {
	committed, err := t.store.ListStatementsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, s := range t.staged {
		if s.UserID == userID {
			committed = append(committed, s)
		}
	}
	sortByCreation(committed)
	return committed, nil
}

func (t *memoryTx) FindStatement(ctx context.Context, id string) (models.Statement, error) {
	for _, s := range t.staged {
		if s.ID == id {
			return s, nil
		}
	}
	return t.store.FindStatement(ctx, id)
}

func sortByCreation(statements []models.Statement) {
	sort.SliceStable(statements, func(i, j int) bool {
		return statements[i].CreatedAt.Before(statements[j].CreatedAt)
	})
}

func uniqueSorted(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Compile-time check: ensure MemoryLedgerStore implements LedgerStore interface
var _ interfaces.LedgerStore = (*MemoryLedgerStore)(nil)
