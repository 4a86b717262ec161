package signon

import (
	"context"
	"errors"
	"fmt"
	"net/url"
)

// ForgotPassword mints a reset token bound to email and mails a link
// embedding it. The token is stateless: nothing is written to any store,
// and the token itself never leaves through the return value.
//
// Fails with ErrAccountNotFound for an unknown email and ErrDeliveryFailed
// when the mail could not be handed off.
func (e *Engine) ForgotPassword(ctx context.Context, email string) (string, error) {
	if err := e.ready(); err != nil {
		return "", err
	}
	email, err := normalizeEmail(email)
	if err != nil {
		return "", err
	}

	account, err := e.store.FindAccountByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			e.metricInc(MetricResetFailure)
			e.emitAudit(ctx, auditEventPasswordForgot, false, email, err, nil)
		}
		return "", err
	}

	if err := e.allowSend(ctx, e.config.Reset.RequestLimit, "reset", email); err != nil {
		e.metricInc(MetricResetFailure)
		e.emitAudit(ctx, auditEventPasswordForgot, false, email, err, nil)
		return "", err
	}

	resetToken, err := e.signer.Sign(account.Email, e.config.Reset.TokenTTL)
	if err != nil {
		return "", fmt.Errorf("%w: sign reset token: %v", ErrUnavailable, err)
	}

	body := fmt.Sprintf("Reset your password here: %s?token=%s",
		e.config.Reset.LinkBaseURL, url.QueryEscape(resetToken))
	if err := e.notifier.Send(ctx, account.Email, e.config.Reset.Subject, body); err != nil {
		e.metricInc(MetricResetFailure)
		e.metricInc(MetricDeliveryFailure)
		e.emitAudit(ctx, auditEventPasswordForgot, false, email, err, nil)
		if errors.Is(err, ErrDeliveryFailed) {
			return "", err
		}
		return "", fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}

	e.metricInc(MetricResetRequested)
	e.emitAudit(ctx, auditEventPasswordForgot, true, email, nil, nil)
	return account.Email, nil
}

// ResetPassword verifies a reset token and overwrites the account's password
// hash with a hash of the new plaintext. The token is self-contained;
// verification needs no store lookup.
//
// Fails with ErrInvalidToken for a tampered or expired token and with
// ErrAccountNotFound when the bound account no longer exists.
func (e *Engine) ResetPassword(ctx context.Context, resetToken, plaintext string) (Identity, error) {
	if err := e.ready(); err != nil {
		return Identity{}, err
	}
	if resetToken == "" || plaintext == "" {
		return Identity{}, ErrInvalidRequest
	}

	email, err := e.signer.Verify(resetToken)
	if err != nil {
		e.metricInc(MetricResetFailure)
		e.emitAudit(ctx, auditEventPasswordReset, false, "", ErrInvalidToken, nil)
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	account, err := e.store.FindAccountByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			e.metricInc(MetricResetFailure)
			e.emitAudit(ctx, auditEventPasswordReset, false, email, err, nil)
		}
		return Identity{}, err
	}

	hash, err := e.hasher.Hash(plaintext)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: hash password: %v", ErrUnavailable, err)
	}
	if err := e.store.UpdatePasswordHash(ctx, account.ID, hash); err != nil {
		return Identity{}, err
	}

	e.metricInc(MetricResetCompleted)
	e.emitAudit(ctx, auditEventPasswordReset, true, email, nil, nil)
	return Identity{ID: account.ID, Email: account.Email}, nil
}
