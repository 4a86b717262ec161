package signon

import (
	"errors"
	"time"
)

// Config is the root configuration for an [Engine]. Construct it once, pass
// it to [Builder.WithConfig], and treat it as immutable afterward. Nothing in
// the engine reads ambient process state; every TTL, secret, and template
// comes from here.
type Config struct {
	Signup   SignupConfig
	Reset    ResetConfig
	Password PasswordConfig
	Token    TokenConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
}

/*
====================================
SIGNUP CONFIG
====================================
*/

// SignupConfig controls the pending-signup session window and OTP issuance.
// SessionTTL, OTPTTL, and OTPDigits are part of the external contract.
type SignupConfig struct {
	SessionTTL time.Duration // default 5m
	OTPTTL     time.Duration // default 5m
	OTPDigits  int           // default 6
	OTPSubject string        // mail subject for OTP messages
	// SendLimit throttles OTP mail (initiation and resend) per address.
	// Disabled by default.
	SendLimit RateLimitConfig
}

// RateLimitConfig is a fixed-window throttle on outbound mail for one
// address. Enabling it requires a Redis-backed engine or a custom
// [RateLimiter].
type RateLimitConfig struct {
	Enabled  bool
	MaxSends int           // default 5
	Window   time.Duration // default 15m
}

/*
====================================
PASSWORD RESET CONFIG
====================================
*/

// ResetConfig controls password-reset token minting and the reset link sent
// by ForgotPassword. LinkBaseURL is the page the token is appended to as a
// query parameter.
type ResetConfig struct {
	TokenTTL    time.Duration // default 1h
	LinkBaseURL string
	Subject     string // mail subject for reset messages
	// RequestLimit throttles reset mail per address. Disabled by default.
	RequestLimit RateLimitConfig
}

/*
====================================
PASSWORD HASH CONFIG
====================================
*/

// PasswordConfig carries the argon2id work factor handed to the password
// subpackage. Zero values are filled from defaults at build time.
type PasswordConfig struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

/*
====================================
TOKEN SIGNER CONFIG
====================================
*/

// TokenConfig carries the reset-token signing material. Secret is required
// and must be at least 32 bytes. KeyID, when set, is embedded in the token
// header for future key rotation.
type TokenConfig struct {
	Secret []byte
	KeyID  string
	Issuer string
}

/*
====================================
AUDIT / METRICS CONFIG
====================================
*/

// AuditConfig controls the async audit pipeline.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	// DropIfFull makes Emit non-blocking: events beyond the buffer are
	// counted and discarded instead of stalling request paths.
	DropIfFull bool
}

// MetricsConfig toggles the in-process counter registry.
type MetricsConfig struct {
	Enabled bool
}

// DefaultConfig returns the contract defaults: 5 minute session and OTP
// windows, 6-digit OTPs, 1 hour reset tokens. The token secret must still be
// supplied by the caller.
func DefaultConfig() Config {
	return Config{
		Signup: SignupConfig{
			SessionTTL: 5 * time.Minute,
			OTPTTL:     5 * time.Minute,
			OTPDigits:  6,
			OTPSubject: "Your verification code",
		},
		Reset: ResetConfig{
			TokenTTL: time.Hour,
			Subject:  "Reset your password",
		},
		Password: PasswordConfig{
			Memory:      64 * 1024,
			Time:        2,
			Parallelism: 2,
			SaltLength:  16,
			KeyLength:   32,
		},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

func (c *Config) normalize() {
	d := DefaultConfig()
	if c.Signup.SessionTTL <= 0 {
		c.Signup.SessionTTL = d.Signup.SessionTTL
	}
	if c.Signup.OTPTTL <= 0 {
		c.Signup.OTPTTL = d.Signup.OTPTTL
	}
	if c.Signup.OTPDigits == 0 {
		c.Signup.OTPDigits = d.Signup.OTPDigits
	}
	if c.Signup.OTPSubject == "" {
		c.Signup.OTPSubject = d.Signup.OTPSubject
	}
	if c.Reset.TokenTTL <= 0 {
		c.Reset.TokenTTL = d.Reset.TokenTTL
	}
	if c.Reset.Subject == "" {
		c.Reset.Subject = d.Reset.Subject
	}
	if c.Password == (PasswordConfig{}) {
		c.Password = d.Password
	}
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		c.Audit.BufferSize = d.Audit.BufferSize
	}
	normalizeRateLimit(&c.Signup.SendLimit)
	normalizeRateLimit(&c.Reset.RequestLimit)
}

func normalizeRateLimit(rl *RateLimitConfig) {
	if !rl.Enabled {
		return
	}
	if rl.MaxSends <= 0 {
		rl.MaxSends = 5
	}
	if rl.Window <= 0 {
		rl.Window = 15 * time.Minute
	}
}

func (c *Config) validate() error {
	if c.Signup.OTPDigits < 6 || c.Signup.OTPDigits > 10 {
		return errors.New("signup: otp digits must be between 6 and 10")
	}
	if len(c.Token.Secret) < 32 {
		return errors.New("token: secret must be at least 32 bytes")
	}
	return nil
}
