package signon

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var testBase = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type sentMail struct {
	to      string
	subject string
	body    string
}

type mockNotifier struct {
	mu       sync.Mutex
	sent     []sentMail
	failWith error
}

func (n *mockNotifier) Send(_ context.Context, to, subject, body string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.failWith != nil {
		return n.failWith
	}
	n.sent = append(n.sent, sentMail{to: to, subject: subject, body: body})
	return nil
}

func (n *mockNotifier) last(t *testing.T) sentMail {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.sent) == 0 {
		t.Fatal("no mail sent")
	}
	return n.sent[len(n.sent)-1]
}

func (n *mockNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

// memStore is a map-backed SignupStore. InTx holds the store lock for the
// whole closure and restores a snapshot on error, which gives the same
// winner-takes-all behavior as a relational transaction plus unique index.
type memStore struct {
	mu       sync.Mutex
	accounts map[string]*Account       // by email
	sessions map[string]*SignupSession // by email
}

func newMemStore() *memStore {
	return &memStore{
		accounts: make(map[string]*Account),
		sessions: make(map[string]*SignupSession),
	}
}

func (m *memStore) FindAccountByEmail(_ context.Context, email string) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.findAccountLocked(email)
}

func (m *memStore) CreateAccount(_ context.Context, account *Account) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.createAccountLocked(account)
}

func (m *memStore) UpdatePasswordHash(_ context.Context, accountID, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updatePasswordHashLocked(accountID, hash)
}

func (m *memStore) DeleteAccount(_ context.Context, accountID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for email, a := range m.accounts {
		if a.ID == accountID {
			delete(m.accounts, email)
			return nil
		}
	}
	return ErrAccountNotFound
}

func (m *memStore) FindSessionByEmail(_ context.Context, email string) (*SignupSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.findSessionLocked(email)
}

func (m *memStore) CreateSession(_ context.Context, session *SignupSession) (*SignupSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.createSessionLocked(session)
}

func (m *memStore) UpdateSessionStatus(_ context.Context, sessionID string, status SessionStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updateSessionStatusLocked(sessionID, status)
}

func (m *memStore) DeleteSession(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deleteSessionLocked(sessionID)
}

func (m *memStore) InTx(_ context.Context, fn func(tx SignupStore) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	accountsBackup := make(map[string]*Account, len(m.accounts))
	for k, v := range m.accounts {
		cp := *v
		accountsBackup[k] = &cp
	}
	sessionsBackup := make(map[string]*SignupSession, len(m.sessions))
	for k, v := range m.sessions {
		cp := *v
		sessionsBackup[k] = &cp
	}

	if err := fn(&memTxView{store: m}); err != nil {
		m.accounts = accountsBackup
		m.sessions = sessionsBackup
		return err
	}
	return nil
}

func (m *memStore) findAccountLocked(email string) (*Account, error) {
	a, ok := m.accounts[email]
	if !ok {
		return nil, ErrAccountNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *memStore) createAccountLocked(account *Account) (*Account, error) {
	if _, ok := m.accounts[account.Email]; ok {
		return nil, ErrAccountExists
	}
	cp := *account
	if cp.ID == "" {
		cp.ID = uuid.NewString()
	}
	m.accounts[cp.Email] = &cp
	out := cp
	return &out, nil
}

func (m *memStore) updatePasswordHashLocked(accountID, hash string) error {
	for _, a := range m.accounts {
		if a.ID == accountID {
			a.PasswordHash = hash
			return nil
		}
	}
	return ErrAccountNotFound
}

func (m *memStore) findSessionLocked(email string) (*SignupSession, error) {
	s, ok := m.sessions[email]
	if !ok {
		return nil, ErrSessionNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memStore) createSessionLocked(session *SignupSession) (*SignupSession, error) {
	if _, ok := m.sessions[session.Email]; ok {
		return nil, ErrSessionExists
	}
	cp := *session
	if cp.ID == "" {
		cp.ID = uuid.NewString()
	}
	m.sessions[cp.Email] = &cp
	out := cp
	return &out, nil
}

func (m *memStore) updateSessionStatusLocked(sessionID string, status SessionStatus) error {
	for _, s := range m.sessions {
		if s.ID == sessionID {
			s.Status = status
			return nil
		}
	}
	return ErrSessionNotFound
}

func (m *memStore) deleteSessionLocked(sessionID string) error {
	for email, s := range m.sessions {
		if s.ID == sessionID {
			delete(m.sessions, email)
			return nil
		}
	}
	return ErrSessionNotFound
}

// memTxView runs against the already-locked store.
type memTxView struct {
	store *memStore
}

func (v *memTxView) FindAccountByEmail(_ context.Context, email string) (*Account, error) {
	return v.store.findAccountLocked(email)
}

func (v *memTxView) CreateAccount(_ context.Context, account *Account) (*Account, error) {
	return v.store.createAccountLocked(account)
}

func (v *memTxView) UpdatePasswordHash(_ context.Context, accountID, hash string) error {
	return v.store.updatePasswordHashLocked(accountID, hash)
}

func (v *memTxView) DeleteAccount(context.Context, string) error {
	return ErrAccountNotFound
}

func (v *memTxView) FindSessionByEmail(_ context.Context, email string) (*SignupSession, error) {
	return v.store.findSessionLocked(email)
}

func (v *memTxView) CreateSession(_ context.Context, session *SignupSession) (*SignupSession, error) {
	return v.store.createSessionLocked(session)
}

func (v *memTxView) UpdateSessionStatus(_ context.Context, sessionID string, status SessionStatus) error {
	return v.store.updateSessionStatusLocked(sessionID, status)
}

func (v *memTxView) DeleteSession(_ context.Context, sessionID string) error {
	return v.store.deleteSessionLocked(sessionID)
}

func (v *memTxView) InTx(_ context.Context, fn func(tx SignupStore) error) error {
	return fn(v)
}

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Token.Secret = []byte("0123456789abcdef0123456789abcdef")
	cfg.Token.KeyID = "k1"
	cfg.Reset.LinkBaseURL = "https://accounts.example.com/reset-password"
	cfg.Audit.Enabled = false
	// Small argon2 parameters keep the test suite fast.
	cfg.Password = PasswordConfig{
		Memory:      8 * 1024,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   16,
	}
	return cfg
}

func newTestEngine(t *testing.T) (*Engine, *memStore, *mockNotifier, *testClock) {
	t.Helper()

	store := newMemStore()
	notifier := &mockNotifier{}
	clk := &testClock{now: testBase}

	engine, err := New().
		WithConfig(testConfig()).
		WithStore(store).
		WithRedis(newTestRedis(t)).
		WithNotifier(notifier).
		WithClock(clk.Now).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	return engine, store, notifier, clk
}

// otpFromBody extracts the first 6-digit run from a mail body.
func otpFromBody(t *testing.T, body string) string {
	t.Helper()
	for i := 0; i < len(body); i++ {
		if body[i] < '0' || body[i] > '9' {
			continue
		}
		j := i
		for j < len(body) && body[j] >= '0' && body[j] <= '9' {
			j++
		}
		if j-i == 6 {
			return body[i:j]
		}
		i = j
	}
	t.Fatalf("no otp in body %q", body)
	return ""
}
