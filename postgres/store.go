package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/signonhq/signon"
)

// querier is the subset of pgx shared by pools and transactions.
type querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// DB is what Store needs from its connection source. *pgxpool.Pool satisfies
// it, as does pgxmock's pool interface in tests.
type DB interface {
	querier
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

// Store implements signon.SignupStore on PostgreSQL. Account IDs are
// assigned here (UUIDs) at insert time; uniqueness of account and session
// emails is enforced by unique indexes, surfaced as the package's Conflict
// sentinels.
type Store struct {
	queries
	db DB
}

// NewStore returns a Store backed by db.
func NewStore(db DB) *Store {
	return &Store{
		queries: queries{q: db},
		db:      db,
	}
}

// InTx runs fn against a transactional view of the store. The transaction
// commits only if fn returns nil; any error rolls everything back. Nested
// InTx calls on the transactional view run in the same transaction.
func (s *Store) InTx(ctx context.Context, fn func(tx signon.SignupStore) error) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("%w: begin tx: %v", signon.ErrUnavailable, err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := fn(&txStore{queries{q: tx}}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: commit tx: %v", signon.ErrUnavailable, err)
	}
	return nil
}

// txStore is the transactional view handed to InTx closures.
type txStore struct {
	queries
}

func (t *txStore) InTx(ctx context.Context, fn func(tx signon.SignupStore) error) error {
	return fn(t)
}

type queries struct {
	q querier
}

func (r queries) FindAccountByEmail(ctx context.Context, email string) (*signon.Account, error) {
	account := &signon.Account{}
	err := r.q.QueryRow(ctx,
		`SELECT id, email, password_hash FROM accounts WHERE email = $1`,
		email,
	).Scan(&account.ID, &account.Email, &account.PasswordHash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, signon.ErrAccountNotFound
		}
		return nil, fmt.Errorf("%w: find account: %v", signon.ErrUnavailable, err)
	}
	return account, nil
}

func (r queries) CreateAccount(ctx context.Context, account *signon.Account) (*signon.Account, error) {
	created := &signon.Account{
		ID:           uuid.NewString(),
		Email:        account.Email,
		PasswordHash: account.PasswordHash,
	}
	_, err := r.q.Exec(ctx,
		`INSERT INTO accounts (id, email, password_hash, created_at) VALUES ($1, $2, $3, $4)`,
		created.ID, created.Email, created.PasswordHash, time.Now().UTC(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, signon.ErrAccountExists
		}
		return nil, fmt.Errorf("%w: insert account: %v", signon.ErrUnavailable, err)
	}
	return created, nil
}

func (r queries) UpdatePasswordHash(ctx context.Context, accountID, passwordHash string) error {
	tag, err := r.q.Exec(ctx,
		`UPDATE accounts SET password_hash = $2, updated_at = $3 WHERE id = $1`,
		accountID, passwordHash, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("%w: update password hash: %v", signon.ErrUnavailable, err)
	}
	if tag.RowsAffected() == 0 {
		return signon.ErrAccountNotFound
	}
	return nil
}

func (r queries) DeleteAccount(ctx context.Context, accountID string) error {
	tag, err := r.q.Exec(ctx,
		`DELETE FROM accounts WHERE id = $1`,
		accountID,
	)
	if err != nil {
		return fmt.Errorf("%w: delete account: %v", signon.ErrUnavailable, err)
	}
	if tag.RowsAffected() == 0 {
		return signon.ErrAccountNotFound
	}
	return nil
}

func (r queries) FindSessionByEmail(ctx context.Context, email string) (*signon.SignupSession, error) {
	session := &signon.SignupSession{}
	var status string
	err := r.q.QueryRow(ctx,
		`SELECT id, email, status, expires_at FROM signup_sessions WHERE email = $1`,
		email,
	).Scan(&session.ID, &session.Email, &status, &session.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, signon.ErrSessionNotFound
		}
		return nil, fmt.Errorf("%w: find session: %v", signon.ErrUnavailable, err)
	}
	parsed, ok := signon.ParseSessionStatus(status)
	if !ok {
		return nil, fmt.Errorf("%w: find session: unknown status %q", signon.ErrUnavailable, status)
	}
	session.Status = parsed
	return session, nil
}

func (r queries) CreateSession(ctx context.Context, session *signon.SignupSession) (*signon.SignupSession, error) {
	created := *session
	if created.ID == "" {
		created.ID = uuid.NewString()
	}
	_, err := r.q.Exec(ctx,
		`INSERT INTO signup_sessions (id, email, status, expires_at) VALUES ($1, $2, $3, $4)`,
		created.ID, created.Email, created.Status.String(), created.ExpiresAt.UTC(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, signon.ErrSessionExists
		}
		return nil, fmt.Errorf("%w: insert session: %v", signon.ErrUnavailable, err)
	}
	return &created, nil
}

func (r queries) UpdateSessionStatus(ctx context.Context, sessionID string, status signon.SessionStatus) error {
	tag, err := r.q.Exec(ctx,
		`UPDATE signup_sessions SET status = $2 WHERE id = $1`,
		sessionID, status.String(),
	)
	if err != nil {
		return fmt.Errorf("%w: update session status: %v", signon.ErrUnavailable, err)
	}
	if tag.RowsAffected() == 0 {
		return signon.ErrSessionNotFound
	}
	return nil
}

func (r queries) DeleteSession(ctx context.Context, sessionID string) error {
	tag, err := r.q.Exec(ctx,
		`DELETE FROM signup_sessions WHERE id = $1`,
		sessionID,
	)
	if err != nil {
		return fmt.Errorf("%w: delete session: %v", signon.ErrUnavailable, err)
	}
	if tag.RowsAffected() == 0 {
		return signon.ErrSessionNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}
