package signon

import "errors"

var (
	// ErrAccountExists is returned when signup targets an email that already
	// has a durable account.
	ErrAccountExists = errors.New("account already exists")
	// ErrAccountNotFound is returned when no account matches the given email.
	ErrAccountNotFound = errors.New("account not found")
	// ErrSessionNotFound is returned when no usable signup session exists for
	// the given email. Expired sessions report this too.
	ErrSessionNotFound = errors.New("signup session not found")
	// ErrSessionExists is returned by stores when a live signup session for
	// the email already occupies the unique slot.
	ErrSessionExists = errors.New("signup session already exists")
	// ErrInvalidCredentials covers both a wrong password and a wrong or
	// evicted OTP. One sentinel for both keeps error responses from acting
	// as an enumeration oracle.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidToken is returned for a malformed, tampered, or expired
	// password-reset token.
	ErrInvalidToken = errors.New("invalid reset token")
	// ErrCodeNotFound is returned by CodeStore implementations when the key
	// is absent or its TTL has elapsed.
	ErrCodeNotFound = errors.New("code not found")
	// ErrDeliveryFailed is returned when the notifier could not hand the
	// message to the mail backend. State committed before the send sticks.
	ErrDeliveryFailed = errors.New("mail delivery failed")
	// ErrUnavailable wraps store and network failures that are not domain
	// outcomes. Callers should treat it as retryable.
	ErrUnavailable = errors.New("backend unavailable")
	// ErrInvalidRequest is returned for structurally unusable input (empty
	// email, empty password) before any store is consulted.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrRateLimited is returned when an email address has exhausted its
	// send window for OTP or reset mail.
	ErrRateLimited = errors.New("rate limited")
	// ErrEngineNotReady is returned when an Engine method is called on a
	// partially constructed engine.
	ErrEngineNotReady = errors.New("engine not ready")
)

// Kind is the stable machine-readable classification of an engine error,
// intended for transport layers mapping errors to status codes.
type Kind uint8

const (
	// KindUnknown classifies nil and unclassified errors.
	KindUnknown Kind = iota
	// KindConflict: resource already exists or was already resolved.
	KindConflict
	// KindNotFound: referenced session or account missing or expired.
	KindNotFound
	// KindInvalidCredential: wrong password or OTP.
	KindInvalidCredential
	// KindInvalidToken: malformed, tampered, or expired reset token.
	KindInvalidToken
	// KindInvalidRequest: structurally unusable input.
	KindInvalidRequest
	// KindDelivery: downstream mail failure.
	KindDelivery
	// KindRateLimited: send window exhausted for the address.
	KindRateLimited
	// KindUnavailable: store or network failure, distinct from domain errors.
	KindUnavailable
)

// String returns the canonical wire name of the kind.
func (k Kind) String() string {
	switch k {
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	case KindInvalidCredential:
		return "invalid_credential"
	case KindInvalidToken:
		return "invalid_token"
	case KindInvalidRequest:
		return "invalid_request"
	case KindDelivery:
		return "delivery_error"
	case KindRateLimited:
		return "rate_limited"
	case KindUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// KindOf classifies err against the package sentinels. Any non-nil error that
// does not match a domain sentinel is reported as KindUnavailable, so store
// and network failures are never mistaken for domain outcomes.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, ErrAccountExists), errors.Is(err, ErrSessionExists):
		return KindConflict
	case errors.Is(err, ErrAccountNotFound), errors.Is(err, ErrSessionNotFound):
		return KindNotFound
	case errors.Is(err, ErrInvalidCredentials):
		return KindInvalidCredential
	case errors.Is(err, ErrInvalidToken):
		return KindInvalidToken
	case errors.Is(err, ErrInvalidRequest):
		return KindInvalidRequest
	case errors.Is(err, ErrDeliveryFailed):
		return KindDelivery
	case errors.Is(err, ErrRateLimited):
		return KindRateLimited
	default:
		return KindUnavailable
	}
}
