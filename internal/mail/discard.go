// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DevCollab Contributors

package mail

import (
	"context"
	"log/slog"
)

// DiscardSender drops every message. It is used when no SMTP relay is
// configured and logs only the recipient domain.
type DiscardSender struct {
	logger *slog.Logger
}

// NewDiscardSender creates a DiscardSender. A nil logger uses slog.Default().
func NewDiscardSender(logger *slog.Logger) *DiscardSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &DiscardSender{logger: logger}
}

// Send implements Sender.
func (d *DiscardSender) Send(ctx context.Context, msg Message) error {
	d.logger.WarnContext(ctx, "mail delivery disabled, message dropped",
		"subject", msg.Subject,
		"recipient_domain", recipientDomain(msg.To))
	return nil
}

func recipientDomain(addr string) string {
	for i := len(addr) - 1; i >= 0; i-- {
		if addr[i] == '@' {
			return addr[i+1:]
		}
	}
	return ""
}

var _ Sender = (*DiscardSender)(nil)
