// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DevCollab Contributors

package mail

import (
	"context"
	"net"
	"strings"
	"time"

	"github.com/samber/oops"
	gomail "github.com/wneessen/go-mail"
)

// DefaultSMTPTimeout bounds one delivery when the caller's context has no
// earlier deadline.
const DefaultSMTPTimeout = 10 * time.Second

// SMTPConfig holds SMTP relay settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	Timeout  time.Duration
}

// deliverFunc matches the method expression (*gomail.Client).DialAndSendWithContext.
//
//nolint:revive // receiver comes first in a method expression
type deliverFunc func(client *gomail.Client, ctx context.Context, msgs ...*gomail.Msg) error

// SMTPSender sends mail through an SMTP relay using STARTTLS when offered.
type SMTPSender struct {
	cfg     SMTPConfig
	deliver deliverFunc
	dialer  net.Dialer
}

// NewSMTPSender creates an SMTPSender.
func NewSMTPSender(cfg SMTPConfig) (*SMTPSender, error) {
	if cfg.Host == "" {
		return nil, oops.Code("MAIL_CONFIG_INVALID").Errorf("smtp host is required")
	}
	if cfg.Port <= 0 {
		cfg.Port = 587
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultSMTPTimeout
	}
	if cfg.From == "" {
		cfg.From = cfg.Username
	}
	if cfg.From == "" {
		return nil, oops.Code("MAIL_CONFIG_INVALID").Errorf("smtp from address is required")
	}
	return &SMTPSender{
		cfg:     cfg,
		deliver: (*gomail.Client).DialAndSendWithContext,
	}, nil
}

// Send delivers msg. The whole SMTP exchange is bounded by ctx.
func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return oops.Code("MAIL_SEND_CANCELED").Wrap(err)
	}
	if strings.ContainsAny(msg.To, "\r\n") || strings.ContainsAny(msg.Subject, "\r\n") {
		return oops.Code("MAIL_INVALID_HEADER").Errorf("header values cannot contain line breaks")
	}

	m, err := s.message(msg)
	if err != nil {
		return err
	}
	client, err := s.client()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	if err := s.deliver(client, ctx, m); err != nil {
		return oops.Code("MAIL_SEND_FAILED").
			With("smtp_host", s.cfg.Host).
			With("smtp_port", s.cfg.Port).
			Wrap(err)
	}
	return nil
}

func (s *SMTPSender) message(msg Message) (*gomail.Msg, error) {
	m := gomail.NewMsg()
	if err := m.From(s.cfg.From); err != nil {
		return nil, oops.Code("MAIL_INVALID_SENDER").Wrap(err)
	}
	if err := m.To(msg.To); err != nil {
		return nil, oops.Code("MAIL_INVALID_RECIPIENT").Wrap(err)
	}
	m.Subject(msg.Subject)
	m.SetBodyString(gomail.TypeTextHTML, msg.HTMLBody)
	return m, nil
}

func (s *SMTPSender) client() (*gomail.Client, error) {
	opts := []gomail.Option{
		gomail.WithPort(s.cfg.Port),
		gomail.WithTLSPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(s.cfg.Timeout),
		gomail.WithDialContextFunc(s.dial),
	}
	if s.cfg.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(s.cfg.Username),
			gomail.WithPassword(s.cfg.Password),
		)
	}
	client, err := gomail.NewClient(s.cfg.Host, opts...)
	if err != nil {
		return nil, oops.Code("MAIL_CONFIG_INVALID").With("smtp_host", s.cfg.Host).Wrap(err)
	}
	return client, nil
}

// dial opens the relay connection and applies the context deadline to every
// read and write on it, so a relay that never answers cannot stall delivery.
func (s *SMTPSender) dial(ctx context.Context, network, address string) (net.Conn, error) {
	conn, err := s.dialer.DialContext(ctx, network, address)
	if err != nil {
		return nil, err
	}
	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			_ = conn.Close()
			return nil, err
		}
	}
	return conn, nil
}

var _ Sender = (*SMTPSender)(nil)
