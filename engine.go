package signon

import (
	"context"
	"io"
	"net/mail"
	"strings"
	"time"

	"github.com/signonhq/signon/password"
	"github.com/signonhq/signon/token"
)

// Engine orchestrates the signup, login, and password-recovery flows across
// the injected stores. Construct it with [Builder.Build]; a zero Engine is
// not usable. All methods are safe for concurrent use.
type Engine struct {
	config   Config
	store    SignupStore
	codes    CodeStore
	notifier Notifier
	hasher   *password.Argon2
	signer   *token.Signer
	limiter  RateLimiter
	audit    *auditDispatcher
	metrics  *Metrics

	// now and otpRand default to time.Now and crypto/rand; tests override
	// them through the builder to pin expiry and OTP values.
	now     func() time.Time
	otpRand io.Reader
}

// Close flushes and stops the audit dispatcher. Engine methods must not be
// called after Close.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.audit.Close()
}

// AuditDropped reports how many audit events were discarded because the
// buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot copies the engine's counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil {
		return MetricsSnapshot{Counters: map[MetricID]uint64{}}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	e.metrics.Inc(id)
}

func (e *Engine) emitAudit(ctx context.Context, eventType string, success bool, email string, opErr error, metaFn func() map[string]string) {
	if e.audit == nil {
		return
	}
	event := AuditEvent{
		Timestamp: e.now(),
		EventType: eventType,
		Email:     email,
		Success:   success,
	}
	if opErr != nil {
		event.Error = opErr.Error()
	}
	if metaFn != nil {
		event.Metadata = metaFn()
	}
	e.audit.Emit(ctx, event)
}

func (e *Engine) ready() error {
	if e == nil || e.store == nil || e.codes == nil || e.notifier == nil || e.hasher == nil || e.signer == nil {
		return ErrEngineNotReady
	}
	return nil
}

// normalizeEmail trims surrounding whitespace and checks the address is
// structurally deliverable. The stored value keeps its case: the durable
// store is case-sensitive on email by contract.
func normalizeEmail(email string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return "", ErrInvalidRequest
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", ErrInvalidRequest
	}
	return email, nil
}
