package signon

import (
	"context"
	"errors"
	"fmt"
)

// Login validates email/password against the durable store. On success it
// returns the account identity; issuing a bearer credential on top of that
// is the embedding application's job.
//
// Fails with ErrAccountNotFound for an unknown email and with
// ErrInvalidCredentials for a wrong password. The hash comparison inside
// the hasher is constant-time.
func (e *Engine) Login(ctx context.Context, email, plaintext string) (Identity, error) {
	if err := e.ready(); err != nil {
		return Identity{}, err
	}
	email, err := normalizeEmail(email)
	if err != nil {
		return Identity{}, err
	}
	if plaintext == "" {
		return Identity{}, ErrInvalidRequest
	}

	account, err := e.store.FindAccountByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			e.metricInc(MetricLoginFailure)
			e.emitAudit(ctx, auditEventLogin, false, email, err, nil)
		}
		return Identity{}, err
	}

	ok, err := e.hasher.Verify(plaintext, account.PasswordHash)
	if err != nil {
		// A digest that cannot be parsed is a server-side defect, not a
		// caller mistake.
		return Identity{}, fmt.Errorf("%w: verify password: %v", ErrUnavailable, err)
	}
	if !ok {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLogin, false, email, ErrInvalidCredentials, nil)
		return Identity{}, ErrInvalidCredentials
	}

	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventLogin, true, email, nil, nil)
	return Identity{ID: account.ID, Email: account.Email}, nil
}
