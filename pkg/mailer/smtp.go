// Package mailer sends the contact-form emails over SMTP (Gmail with an app
// password in production).
package mailer

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"time"

	"altiora-site/pkg/config"
	"altiora-site/pkg/logging"

	gobreaker "github.com/sony/gobreaker/v2"
)

// Sender delivers one message.
type Sender interface {
	Send(ctx context.Context, msg *Message) error
}

// ErrNotConfigured is returned when SMTP credentials are missing.
var ErrNotConfigured = errors.New("smtp is not configured")

// SMTPSender sends mail through an SMTP relay behind a circuit breaker, so a
// dead relay fails fast instead of holding every contact request for the
// full timeout.
type SMTPSender struct {
	host       string
	port       int
	user       string
	password   string
	from       string
	fromName   string
	timeout    time.Duration
	requireTLS bool
	breaker    *gobreaker.CircuitBreaker[struct{}]
}

// NewSMTPSender builds a sender from mail settings.
func NewSMTPSender(cfg config.MailConfig) *SMTPSender {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	s := &SMTPSender{
		host:       cfg.Host,
		port:       cfg.Port,
		user:       cfg.User,
		password:   cfg.AppPassword,
		from:       cfg.User,
		fromName:   cfg.FromName,
		timeout:    timeout,
		requireTLS: true,
	}
	s.breaker = gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        "smtp",
		MaxRequests: 1,
		Interval:    5 * time.Minute,
		Timeout:     time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("smtp circuit breaker state changed")
		},
	})
	return s
}

// From is the envelope and header sender address.
func (s *SMTPSender) From() string { return s.from }

// Send delivers msg, bounded by the sender timeout and ctx.
func (s *SMTPSender) Send(ctx context.Context, msg *Message) error {
	if s.host == "" || s.from == "" {
		return ErrNotConfigured
	}
	if len(msg.To) == 0 {
		return errors.New("message has no recipients")
	}
	if msg.From == "" {
		msg.From = s.from
		msg.FromName = s.fromName
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	_, err := s.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, s.sendSMTP(ctx, msg)
	})
	return err
}

func (s *SMTPSender) sendSMTP(ctx context.Context, msg *Message) error {
	addr := net.JoinHostPort(s.host, strconv.Itoa(s.port))

	dialer := &net.Dialer{Timeout: s.timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	defer func() { _ = conn.Close() }()
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	// Port 465 speaks TLS from the first byte.
	if s.port == 465 {
		conn = tls.Client(conn, &tls.Config{ServerName: s.host, MinVersion: tls.VersionTLS12})
	}

	client, err := smtp.NewClient(conn, s.host)
	if err != nil {
		return fmt.Errorf("failed to create SMTP client: %w", err)
	}
	defer func() { _ = client.Close() }()

	if s.port != 465 {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(&tls.Config{ServerName: s.host, MinVersion: tls.VersionTLS12}); err != nil {
				return fmt.Errorf("failed to start TLS: %w", err)
			}
		} else if s.requireTLS {
			return errors.New("SMTP server does not support STARTTLS")
		}
	}

	if ok, _ := client.Extension("AUTH"); ok && s.user != "" && s.password != "" {
		if err := client.Auth(smtp.PlainAuth("", s.user, s.password, s.host)); err != nil {
			return fmt.Errorf("SMTP authentication failed: %w", err)
		}
	}

	if err := client.Mail(msg.From); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}
	for _, rcpt := range msg.To {
		if err := client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("failed to add recipient %s: %w", rcpt, err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to open data: %w", err)
	}
	body, err := msg.Bytes()
	if err != nil {
		_ = w.Close()
		return err
	}
	if _, err := w.Write(body); err != nil {
		_ = w.Close()
		return fmt.Errorf("failed to write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finish message: %w", err)
	}
	return client.Quit()
}
