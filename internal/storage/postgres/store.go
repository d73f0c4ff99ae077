package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/sheikh-saqib/personal-finance-ledger/internal/interfaces"
	"github.com/sheikh-saqib/personal-finance-ledger/internal/models"
)

const uniqueViolation = "23505"

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type PostgresLedgerStore struct {
	db *sql.DB
	statementQueries
}

func NewPostgresLedgerStore(db *sql.DB) *PostgresLedgerStore {
	return &PostgresLedgerStore{
		db:               db,
		statementQueries: statementQueries{q: db},
	}
}

func (p *PostgresLedgerStore) CreateUser(ctx context.Context, user models.User) (models.User, error) {
	const query = `INSERT INTO users (id, name, email, password, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6)`

	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	now := timestamp()
	user.Email = strings.ToLower(user.Email)
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err := p.db.ExecContext(ctx, query, user.ID, user.Name, user.Email, user.PasswordHash, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return models.User{}, interfaces.ErrDuplicate
		}
		return models.User{}, storeError(err)
	}
	return user, nil
}

func (p *PostgresLedgerStore) FindUserByEmail(ctx context.Context, email string) (models.User, error) {
	const query = `SELECT id, name, email, password, created_at, updated_at FROM users WHERE email = $1`

	var u models.User
	err := p.db.QueryRowContext(ctx, query, strings.ToLower(email)).
		Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	if err == sql.ErrNoRows {
		return models.User{}, interfaces.ErrNotFound
	}
	if err != nil {
		return models.User{}, storeError(err)
	}
	return u, nil
}

// RunInTx locks the users' rows (in id order) for the lifetime of one database
// transaction, then runs fn on that transaction. Balance reads and statement
// inserts made by fn therefore serialize against any other RunInTx on the
// same users.
func (p *PostgresLedgerStore) RunInTx(ctx context.Context, userIDs []string, fn func(tx interfaces.StatementStore) error) (err error) {
	dbTx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return storeError(err)
	}

	defer func() {
		if err != nil {
			dbTx.Rollback()
		}
	}()

	if ids := lockableIDs(userIDs); len(ids) > 0 {
		const lockQuery = `SELECT id FROM users WHERE id = ANY($1) ORDER BY id FOR UPDATE`
		rows, qerr := dbTx.QueryContext(ctx, lockQuery, pq.Array(ids))
		if qerr != nil {
			return storeError(qerr)
		}
		for rows.Next() {
		}
		if rerr := rows.Err(); rerr != nil {
			rows.Close()
			return storeError(rerr)
		}
		rows.Close()
	}

	if err = fn(statementQueries{q: dbTx}); err != nil {
		return err
	}

	if cerr := dbTx.Commit(); cerr != nil {
		err = storeError(cerr)
		return err
	}
	return nil
}

// statementQueries implements interfaces.StatementStore on top of a querier.
type statementQueries struct {
	q querier
}

func (s statementQueries) FindUserByID(ctx context.Context, id string) (models.User, error) {
	const query = `SELECT id, name, email, password, created_at, updated_at FROM users WHERE id = $1`

	if _, err := uuid.Parse(id); err != nil {
		return models.User{}, interfaces.ErrNotFound
	}

	var u models.User
	err := s.q.QueryRowContext(ctx, query, id).
		Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	if err == sql.ErrNoRows {
		return models.User{}, interfaces.ErrNotFound
	}
	if err != nil {
		return models.User{}, storeError(err)
	}
	return u, nil
}

func (s statementQueries) CreateStatement(ctx context.Context, stmt models.NewStatement) (models.Statement, error) {
	const query = `INSERT INTO statements (id, user_id, sender_id, description, amount, type, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	now := timestamp()
	created := models.Statement{
		ID:          uuid.New().String(),
		UserID:      stmt.UserID,
		SenderID:    stmt.SenderID,
		Amount:      stmt.Amount,
		Type:        stmt.Type,
		Description: stmt.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	var sender sql.NullString
	if created.SenderID != nil {
		sender = sql.NullString{String: *created.SenderID, Valid: true}
	}

	_, err := s.q.ExecContext(ctx, query,
		created.ID, created.UserID, sender, created.Description,
		created.Amount, string(created.Type), created.CreatedAt, created.UpdatedAt)
	if err != nil {
		return models.Statement{}, storeError(err)
	}
	return created, nil
}

func (s statementQueries) ListStatementsForUser(ctx context.Context, userID string) ([]models.Statement, error) {
	const query = `SELECT id, user_id, sender_id, description, amount, type, created_at, updated_at
	FROM statements WHERE user_id = $1 ORDER BY created_at, seq`

	if _, err := uuid.Parse(userID); err != nil {
		return nil, nil
	}

	rows, err := s.q.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, storeError(err)
	}
	defer rows.Close()

	var statements []models.Statement
	for rows.Next() {
		stmt, err := scanStatement(rows)
		if err != nil {
			return nil, storeError(err)
		}
		statements = append(statements, stmt)
	}

	if err := rows.Err(); err != nil {
		return nil, storeError(err)
	}
	return statements, nil
}

func (s statementQueries) FindStatement(ctx context.Context, id string) (models.Statement, error) {
	const query = `SELECT id, user_id, sender_id, description, amount, type, created_at, updated_at
	FROM statements WHERE id = $1`

	if _, err := uuid.Parse(id); err != nil {
		return models.Statement{}, interfaces.ErrNotFound
	}

	stmt, err := scanStatement(s.q.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return models.Statement{}, interfaces.ErrNotFound
	}
	if err != nil {
		return models.Statement{}, storeError(err)
	}
	return stmt, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanStatement(row scanner) (models.Statement, error) {
	var (
		stmt   models.Statement
		sender sql.NullString
		typ    string
	)
	if err := row.Scan(&stmt.ID, &stmt.UserID, &sender, &stmt.Description,
		&stmt.Amount, &typ, &stmt.CreatedAt, &stmt.UpdatedAt); err != nil {
		return models.Statement{}, err
	}
	if sender.Valid {
		stmt.SenderID = &sender.String
	}
	stmt.Type = models.OperationType(typ)
	if !stmt.Type.Valid() {
		return models.Statement{}, fmt.Errorf("unknown statement type %q", typ)
	}
	return stmt, nil
}

// timestamp is the current time at TIMESTAMPTZ precision, so a returned row
// equals the same row read back.
func timestamp() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

// lockableIDs drops duplicates and ids that cannot be a users primary key.
func lockableIDs(userIDs []string) []string {
	seen := make(map[string]struct{}, len(userIDs))
	ids := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		if _, err := uuid.Parse(id); err != nil {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// storeError marks infrastructure failures as ErrStoreUnavailable while
// keeping context cancellation recognisable to callers.
func storeError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %w", interfaces.ErrStoreUnavailable, err)
}

var _ interfaces.LedgerStore = (*PostgresLedgerStore)(nil)
