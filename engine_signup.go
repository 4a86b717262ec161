package signon

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// InitiateSignup starts or re-enters a signup for email. If a live session
// already exists it is reused unchanged; an expired session is replaced. A
// fresh OTP is generated either way, stored under the session ID with the
// configured TTL, and mailed to the address. The OTP never leaves through
// the return value.
//
// Fails with ErrAccountExists when the email already has an account, and
// with ErrDeliveryFailed when the mail could not be handed off; in the
// latter case the session and OTP remain stored, and re-initiating within
// the window retries delivery with a fresh OTP.
func (e *Engine) InitiateSignup(ctx context.Context, email string) (string, error) {
	if err := e.ready(); err != nil {
		return "", err
	}
	email, err := normalizeEmail(email)
	if err != nil {
		return "", err
	}

	if _, err := e.store.FindAccountByEmail(ctx, email); err == nil {
		e.metricInc(MetricSignupInitiateFailure)
		e.emitAudit(ctx, auditEventSignupInitiate, false, email, ErrAccountExists, nil)
		return "", ErrAccountExists
	} else if !errors.Is(err, ErrAccountNotFound) {
		return "", err
	}

	if err := e.allowSend(ctx, e.config.Signup.SendLimit, "otp", email); err != nil {
		e.metricInc(MetricSignupInitiateFailure)
		e.emitAudit(ctx, auditEventSignupInitiate, false, email, err, nil)
		return "", err
	}

	session, err := e.liveOrFreshSession(ctx, email)
	if err != nil {
		e.metricInc(MetricSignupInitiateFailure)
		e.emitAudit(ctx, auditEventSignupInitiate, false, email, err, nil)
		return "", err
	}

	if err := e.issueOTP(ctx, session); err != nil {
		e.metricInc(MetricSignupInitiateFailure)
		if errors.Is(err, ErrDeliveryFailed) {
			e.metricInc(MetricDeliveryFailure)
		}
		e.emitAudit(ctx, auditEventSignupInitiate, false, email, err, nil)
		return "", err
	}

	e.metricInc(MetricSignupInitiated)
	e.emitAudit(ctx, auditEventSignupInitiate, true, email, nil, nil)
	return email, nil
}

// liveOrFreshSession returns the existing unexpired session for email, or
// deletes the expired one and creates a replacement. When a concurrent
// initiation wins the create race, the winner's session is reused.
func (e *Engine) liveOrFreshSession(ctx context.Context, email string) (*SignupSession, error) {
	session, err := e.store.FindSessionByEmail(ctx, email)
	switch {
	case err == nil:
		if !session.Expired(e.now()) {
			return session, nil
		}
		if err := e.store.DeleteSession(ctx, session.ID); err != nil {
			return nil, err
		}
	case !errors.Is(err, ErrSessionNotFound):
		return nil, err
	}

	created, err := e.store.CreateSession(ctx, &SignupSession{
		ID:        uuid.NewString(),
		Email:     email,
		Status:    StatusOTPPending,
		ExpiresAt: e.now().Add(e.config.Signup.SessionTTL),
	})
	if err == nil {
		return created, nil
	}
	if errors.Is(err, ErrSessionExists) {
		// Lost the unique-email race; the concurrent winner's session serves
		// this caller just as well.
		return e.store.FindSessionByEmail(ctx, email)
	}
	return nil, err
}

// issueOTP generates a fresh OTP for session, overwrites the stored value,
// and mails it. Storage happens before the send so a delivered code is
// always verifiable.
func (e *Engine) issueOTP(ctx context.Context, session *SignupSession) error {
	otp, err := newOTP(e.otpRand, e.config.Signup.OTPDigits)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err := e.codes.Set(ctx, session.ID, otp, e.config.Signup.OTPTTL); err != nil {
		return err
	}

	body := fmt.Sprintf("Your verification code is %s. It expires in %d minutes.",
		otp, int(e.config.Signup.OTPTTL.Minutes()))
	if err := e.notifier.Send(ctx, session.Email, e.config.Signup.OTPSubject, body); err != nil {
		if errors.Is(err, ErrDeliveryFailed) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}
	return nil
}

// VerifySignup checks the supplied OTP against the stored value and, on
// match, moves the session to COMPLETED. Comparison is exact string
// equality in constant time; no normalization is applied to the OTP.
//
// A missing or expired session fails with ErrSessionNotFound. An absent,
// evicted, or mismatched OTP fails with ErrInvalidCredentials, as does a
// session that has already been verified: completion is single-use.
func (e *Engine) VerifySignup(ctx context.Context, email, otp string) (string, error) {
	if err := e.ready(); err != nil {
		return "", err
	}
	email, err := normalizeEmail(email)
	if err != nil {
		return "", err
	}
	if otp == "" {
		return "", ErrInvalidRequest
	}

	session, err := e.store.FindSessionByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			e.metricInc(MetricSignupVerifyFailure)
			e.emitAudit(ctx, auditEventSignupVerify, false, email, err, nil)
		}
		return "", err
	}
	if session.Expired(e.now()) {
		// The OTP key may outlive the session under clock skew; the session
		// window is authoritative.
		e.metricInc(MetricSignupVerifyFailure)
		e.emitAudit(ctx, auditEventSignupVerify, false, email, ErrSessionNotFound, func() map[string]string {
			return map[string]string{"reason": "session_expired"}
		})
		return "", ErrSessionNotFound
	}
	if session.Status == StatusCompleted {
		e.metricInc(MetricSignupVerifyFailure)
		e.emitAudit(ctx, auditEventSignupVerify, false, email, ErrInvalidCredentials, func() map[string]string {
			return map[string]string{"reason": "already_verified"}
		})
		return "", ErrInvalidCredentials
	}

	stored, err := e.codes.Get(ctx, session.ID)
	if err != nil {
		if errors.Is(err, ErrCodeNotFound) {
			e.metricInc(MetricSignupVerifyFailure)
			e.emitAudit(ctx, auditEventSignupVerify, false, email, ErrInvalidCredentials, nil)
			return "", ErrInvalidCredentials
		}
		return "", err
	}
	if subtle.ConstantTimeCompare([]byte(stored), []byte(otp)) != 1 {
		e.metricInc(MetricSignupVerifyFailure)
		e.emitAudit(ctx, auditEventSignupVerify, false, email, ErrInvalidCredentials, nil)
		return "", ErrInvalidCredentials
	}

	if err := e.store.UpdateSessionStatus(ctx, session.ID, StatusCompleted); err != nil {
		return "", err
	}

	e.metricInc(MetricSignupVerified)
	e.emitAudit(ctx, auditEventSignupVerify, true, email, nil, nil)
	return email, nil
}

// CompleteSignup resolves a COMPLETED session into a durable account. The
// session lookup, the existing-account check, the account insert, and the
// session delete run inside one store transaction: two concurrent
// completions for the same email cannot both succeed. The password is
// hashed before the transaction opens to keep the slow hash outside the
// store's critical section.
//
// Fails with ErrSessionNotFound when no COMPLETED session exists, and with
// ErrAccountExists when the account slot is already taken (including by the
// winning half of a completion race).
func (e *Engine) CompleteSignup(ctx context.Context, email, plaintext string) (Identity, error) {
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

	hash, err := e.hasher.Hash(plaintext)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: hash password: %v", ErrUnavailable, err)
	}

	var (
		identity  Identity
		sessionID string
	)
	err = e.store.InTx(ctx, func(tx SignupStore) error {
		// Account existence is checked before the session: a completion
		// racing a finished signup must report Conflict, not NotFound.
		if _, err := tx.FindAccountByEmail(ctx, email); err == nil {
			return ErrAccountExists
		} else if !errors.Is(err, ErrAccountNotFound) {
			return err
		}

		session, err := tx.FindSessionByEmail(ctx, email)
		if err != nil {
			return err
		}
		if session.Status != StatusCompleted {
			return ErrSessionNotFound
		}

		account, err := tx.CreateAccount(ctx, &Account{
			Email:        email,
			PasswordHash: hash,
		})
		if err != nil {
			return err
		}
		if err := tx.DeleteSession(ctx, session.ID); err != nil {
			return err
		}

		sessionID = session.ID
		identity = Identity{ID: account.ID, Email: account.Email}
		return nil
	})
	if err != nil {
		e.metricInc(MetricSignupCompleteFailure)
		e.emitAudit(ctx, auditEventSignupComplete, false, email, err, nil)
		return Identity{}, err
	}

	// Cleanup only: the key would otherwise sit until its TTL. A failure
	// here must not undo the committed account.
	_ = e.codes.Delete(ctx, sessionID)

	e.metricInc(MetricSignupCompleted)
	e.emitAudit(ctx, auditEventSignupComplete, true, email, nil, nil)
	return identity, nil
}

// ResendOTP re-issues the OTP for a session still mid-verification. The
// stored value is overwritten with a fresh code and full TTL; the session's
// own expiry is deliberately left untouched, so resending cannot extend the
// signup window.
//
// Fails with ErrSessionNotFound when no session exists, when the session has
// expired, or when it has already been verified.
func (e *Engine) ResendOTP(ctx context.Context, email string) (string, error) {
	if err := e.ready(); err != nil {
		return "", err
	}
	email, err := normalizeEmail(email)
	if err != nil {
		return "", err
	}

	session, err := e.store.FindSessionByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	if session.Status != StatusOTPPending || session.Expired(e.now()) {
		return "", ErrSessionNotFound
	}

	// Resends share the initiation window: both mail an OTP to the address.
	if err := e.allowSend(ctx, e.config.Signup.SendLimit, "otp", email); err != nil {
		e.emitAudit(ctx, auditEventOTPResend, false, email, err, nil)
		return "", err
	}

	if err := e.issueOTP(ctx, session); err != nil {
		if errors.Is(err, ErrDeliveryFailed) {
			e.metricInc(MetricDeliveryFailure)
		}
		e.emitAudit(ctx, auditEventOTPResend, false, email, err, nil)
		return "", err
	}

	e.metricInc(MetricOTPResent)
	e.emitAudit(ctx, auditEventOTPResend, true, email, nil, nil)
	return email, nil
}
