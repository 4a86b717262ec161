package mail

import (
	"context"
	"errors"
	"fmt"
	"time"

	gomail "github.com/wneessen/go-mail"

	"github.com/signonhq/signon"
)

// Config is the SMTP transport configuration. Host, Port, and From are
// required; Username/Password enable PLAIN auth when set.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	// StartTLSRequired refuses to send over a connection the server will
	// not upgrade. Leave false only for local development relays.
	StartTLSRequired bool
	Timeout          time.Duration
}

// Mailer implements signon.Notifier over SMTP. Every Send dials, delivers,
// and closes within the caller's context; there is no connection pooling.
type Mailer struct {
	client *gomail.Client
	from   string
}

// New validates cfg and returns a Mailer.
func New(cfg Config) (*Mailer, error) {
	if cfg.Host == "" {
		return nil, errors.New("smtp host is required")
	}
	if cfg.Port <= 0 {
		return nil, errors.New("smtp port is required")
	}
	if cfg.From == "" {
		return nil, errors.New("from address is required")
	}

	opts := []gomail.Option{
		gomail.WithPort(cfg.Port),
	}
	if cfg.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(cfg.Username),
			gomail.WithPassword(cfg.Password),
		)
	}
	if cfg.StartTLSRequired {
		opts = append(opts, gomail.WithTLSPolicy(gomail.TLSMandatory))
	} else {
		opts = append(opts, gomail.WithTLSPolicy(gomail.TLSOpportunistic))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, gomail.WithTimeout(cfg.Timeout))
	}

	client, err := gomail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("smtp client: %w", err)
	}

	return &Mailer{
		client: client,
		from:   cfg.From,
	}, nil
}

// Send delivers a plain-text message. Any transport failure wraps
// signon.ErrDeliveryFailed so the engine surfaces it as a delivery error
// rather than treating the send as done.
func (m *Mailer) Send(ctx context.Context, to, subject, body string) error {
	msg := gomail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return fmt.Errorf("%w: from address: %v", signon.ErrDeliveryFailed, err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("%w: to address: %v", signon.ErrDeliveryFailed, err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextPlain, body)

	if err := m.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("%w: %v", signon.ErrDeliveryFailed, err)
	}
	return nil
}
