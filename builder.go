package signon

import (
	"crypto/rand"
	"errors"
	"io"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/signonhq/signon/password"
	"github.com/signonhq/signon/token"
)

// Builder assembles an [Engine]. The zero-value path is
// New().WithConfig(cfg).WithStore(store).WithRedis(client).
// WithNotifier(mailer).Build(); everything not supplied falls back to
// defaults, except the store, code store, notifier, and token secret, which
// are required.
type Builder struct {
	config   Config
	store    SignupStore
	codes    CodeStore
	notifier Notifier
	limiter  RateLimiter
	sink     AuditSink

	clock   func() time.Time
	otpRand io.Reader

	built bool
}

// New returns a Builder preloaded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the builder's configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithStore sets the durable account/session store.
func (b *Builder) WithStore(store SignupStore) *Builder {
	b.store = store
	return b
}

// WithRedis wires client as the OTP code store and the mail rate limiter
// backend. Mutually exclusive with WithCodeStore; the last call wins.
func (b *Builder) WithRedis(client *redis.Client) *Builder {
	b.codes = NewRedisCodeStore(client)
	b.limiter = newRedisRateLimiter(client)
	return b
}

// WithCodeStore sets a custom ephemeral code store.
func (b *Builder) WithCodeStore(codes CodeStore) *Builder {
	b.codes = codes
	return b
}

// WithRateLimiter sets a custom mail rate limiter, replacing the Redis one
// installed by WithRedis.
func (b *Builder) WithRateLimiter(l RateLimiter) *Builder {
	b.limiter = l
	return b
}

// WithNotifier sets the outbound mail sender.
func (b *Builder) WithNotifier(n Notifier) *Builder {
	b.notifier = n
	return b
}

// WithAuditSink sets the sink receiving audit events. Without one, enabled
// auditing discards events via [NoOpSink].
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.sink = sink
	return b
}

// WithClock overrides the engine's time source. Intended for tests.
func (b *Builder) WithClock(clock func() time.Time) *Builder {
	b.clock = clock
	return b
}

// WithOTPRand overrides the randomness source for OTP generation. Intended
// for tests.
func (b *Builder) WithOTPRand(r io.Reader) *Builder {
	b.otpRand = r
	return b
}

// Build validates the configuration, constructs the hasher and token signer,
// and returns a ready Engine. A Builder builds at most once.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}
	b.built = true

	b.config.normalize()
	if err := b.config.validate(); err != nil {
		return nil, err
	}
	if b.store == nil {
		return nil, errors.New("signup store is required")
	}
	if b.codes == nil {
		return nil, errors.New("code store is required")
	}
	if b.notifier == nil {
		return nil, errors.New("notifier is required")
	}
	if (b.config.Signup.SendLimit.Enabled || b.config.Reset.RequestLimit.Enabled) && b.limiter == nil {
		return nil, errors.New("rate limiting requires WithRedis or WithRateLimiter")
	}

	hasher, err := password.NewArgon2(password.Config{
		Memory:      b.config.Password.Memory,
		Time:        b.config.Password.Time,
		Parallelism: b.config.Password.Parallelism,
		SaltLength:  b.config.Password.SaltLength,
		KeyLength:   b.config.Password.KeyLength,
	})
	if err != nil {
		return nil, err
	}

	signer, err := token.NewSigner(token.Config{
		Secret: b.config.Token.Secret,
		KeyID:  b.config.Token.KeyID,
		Issuer: b.config.Token.Issuer,
	})
	if err != nil {
		return nil, err
	}

	clock := b.clock
	if clock == nil {
		clock = time.Now
	}
	otpRand := b.otpRand
	if otpRand == nil {
		otpRand = rand.Reader
	}

	engine := &Engine{
		config:   b.config,
		store:    b.store,
		codes:    b.codes,
		notifier: b.notifier,
		hasher:   hasher,
		signer:   signer,
		limiter:  b.limiter,
		audit:    newAuditDispatcher(b.config.Audit, b.sink),
		now:      clock,
		otpRand:  otpRand,
	}
	if b.config.Metrics.Enabled {
		engine.metrics = NewMetrics()
	}
	return engine, nil
}
