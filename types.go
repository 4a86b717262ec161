package signon

import (
	"context"
	"time"
)

// SessionStatus represents the lifecycle state of a signup session.
//
// The only legal transitions are OTP_PENDING → COMPLETED (on OTP
// verification) and COMPLETED → deleted (on account creation). Nothing moves
// a session back to OTP_PENDING; initiation after expiry replaces the row.
type SessionStatus uint8

const (
	// StatusOTPPending marks a session whose OTP has been issued but not
	// verified.
	StatusOTPPending SessionStatus = iota
	// StatusCompleted marks a session whose OTP was verified and which is
	// ready to be resolved into an account.
	StatusCompleted
)

// String returns the storage name of the status.
func (s SessionStatus) String() string {
	switch s {
	case StatusOTPPending:
		return "otp_pending"
	case StatusCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// ParseSessionStatus maps a storage name back to a SessionStatus.
func ParseSessionStatus(s string) (SessionStatus, bool) {
	switch s {
	case "otp_pending":
		return StatusOTPPending, true
	case "completed":
		return StatusCompleted, true
	default:
		return 0, false
	}
}

// Account is a finalized user record. Accounts are created exactly once, by
// CompleteSignup, and only PasswordHash ever changes afterward.
type Account struct {
	ID           string
	Email        string
	PasswordHash string
}

// SignupSession is an in-progress signup keyed by email. A session whose
// ExpiresAt has passed is logically dead even before physical deletion.
type SignupSession struct {
	ID        string
	Email     string
	Status    SessionStatus
	ExpiresAt time.Time
}

// Expired reports whether the session is past its expiry at the given instant.
func (s *SignupSession) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// Identity is the successful outcome of CompleteSignup, Login, and
// ResetPassword.
type Identity struct {
	ID    string
	Email string
}

// AccountStore is the durable account capability. FindAccountByEmail must
// return ErrAccountNotFound for a missing email; CreateAccount must return
// ErrAccountExists when the unique email slot is taken.
type AccountStore interface {
	FindAccountByEmail(ctx context.Context, email string) (*Account, error)
	CreateAccount(ctx context.Context, account *Account) (*Account, error)
	UpdatePasswordHash(ctx context.Context, accountID, passwordHash string) error
	DeleteAccount(ctx context.Context, accountID string) error
}

// SessionStore is the pending-signup capability. FindSessionByEmail must
// return ErrSessionNotFound for a missing email; CreateSession must return
// ErrSessionExists when a session for the email already exists.
type SessionStore interface {
	FindSessionByEmail(ctx context.Context, email string) (*SignupSession, error)
	CreateSession(ctx context.Context, session *SignupSession) (*SignupSession, error)
	UpdateSessionStatus(ctx context.Context, sessionID string, status SessionStatus) error
	DeleteSession(ctx context.Context, sessionID string) error
}

// SignupStore is the durable store the engine orchestrates. InTx runs fn
// against a transactional view of the same store: every store call made
// through fn's argument commits or rolls back as one unit. Implementations
// need not support nesting.
type SignupStore interface {
	AccountStore
	SessionStore
	InTx(ctx context.Context, fn func(tx SignupStore) error) error
}

// CodeStore holds live OTP values with per-key TTL. Get must return
// ErrCodeNotFound for an absent or expired key; Set overwrites
// unconditionally.
type CodeStore interface {
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
}

// Notifier delivers a plain-text message to an email address. Failures must
// surface as ErrDeliveryFailed; the engine never rolls back committed state
// on a failed send.
type Notifier interface {
	Send(ctx context.Context, to, subject, body string) error
}
