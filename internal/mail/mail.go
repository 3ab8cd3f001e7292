// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DevCollab Contributors

// Package mail delivers outbound email.
package mail

import (
	"bytes"
	"context"
	"html/template"
	"strings"
	"time"

	"github.com/samber/oops"
)

// PasswordResetSubject is the subject line of recovery emails.
const PasswordResetSubject = "Password Reset Request"

// Message is a single outbound email.
type Message struct {
	To       string
	Subject  string
	HTMLBody string
}

// Sender delivers messages. Implementations must not log message bodies.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

var passwordResetTmpl = template.Must(template.New("password_reset").Parse(`<h1>Password Reset Request</h1>
<p>You requested to reset your password. Click the link below to reset it:</p>
<a href="{{.Link}}">Reset Password</a>
<p>This link will expire in {{.Minutes}} minutes.</p>
<p>If you did not request this, please ignore this email.</p>
`))

// PasswordResetMessage renders the recovery email for link.
func PasswordResetMessage(to, link string, ttl time.Duration) (Message, error) {
	if strings.TrimSpace(to) == "" {
		return Message{}, oops.Code("MAIL_INVALID_RECIPIENT").Errorf("recipient cannot be empty")
	}

	var body bytes.Buffer
	err := passwordResetTmpl.Execute(&body, struct {
		Link    string
		Minutes int
	}{
		Link:    link,
		Minutes: int(ttl.Minutes()),
	})
	if err != nil {
		return Message{}, oops.Code("MAIL_RENDER_FAILED").With("template", "password_reset").Wrap(err)
	}

	return Message{
		To:       to,
		Subject:  PasswordResetSubject,
		HTMLBody: body.String(),
	}, nil
}
