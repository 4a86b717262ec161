package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalid is returned for any token that fails verification: bad
// signature, wrong algorithm, unknown key id, expired, or missing claims.
// Callers get one sentinel for all of them; the distinction is not safe to
// expose.
var ErrInvalid = errors.New("invalid token")

const minSecretBytes = 32

// Config carries the signing material. Secret is the HS256 key and must be
// at least 32 bytes. KeyID, when set, is written to the token header as
// "kid" so a future rotation scheme can route verification by key.
type Config struct {
	Secret []byte
	KeyID  string
	Issuer string
	Leeway time.Duration
}

type claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Signer mints and verifies compact, expiring tokens binding an email
// address. Tokens are self-contained: verification needs no store lookup.
// A Signer is immutable after construction and safe for concurrent use.
type Signer struct {
	config Config
}

// NewSigner validates cfg and returns a Signer.
func NewSigner(cfg Config) (*Signer, error) {
	if len(cfg.Secret) < minSecretBytes {
		return nil, fmt.Errorf("secret must be at least %d bytes", minSecretBytes)
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	return &Signer{config: cfg}, nil
}

// Sign mints a token bound to email, valid for ttl from now.
func (s *Signer) Sign(email string, ttl time.Duration) (string, error) {
	if email == "" {
		return "", errors.New("email is required")
	}
	if ttl == 0 {
		return "", errors.New("ttl is required")
	}

	now := time.Now()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})
	if s.config.KeyID != "" {
		tok.Header["kid"] = s.config.KeyID
	}

	signed, err := tok.SignedString(s.config.Secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks the signature and expiry of tokenString and returns the
// bound email. Every failure mode wraps [ErrInvalid].
func (s *Signer) Verify(tokenString string) (string, error) {
	parsed, err := jwt.ParseWithClaims(
		tokenString,
		&claims{},
		s.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(s.config.Leeway),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	c, ok := parsed.Claims.(*claims)
	if !ok || c.Email == "" {
		return "", ErrInvalid
	}
	if s.config.Issuer != "" && c.Issuer != s.config.Issuer {
		return "", ErrInvalid
	}
	return c.Email, nil
}

func (s *Signer) keyFunc(t *jwt.Token) (any, error) {
	if s.config.KeyID != "" {
		kid, _ := t.Header["kid"].(string)
		if kid != s.config.KeyID {
			return nil, errors.New("unknown key id")
		}
	}
	return s.config.Secret, nil
}
