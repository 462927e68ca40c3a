// Copyright (c) 2025-2026 Cross Point Baptist Church
// SPDX-License-Identifier: GPL-3.0-or-later

// Package mailer sends notification emails over SMTP. Every send is
// best-effort: callers dispatch after their state change commits and only
// log failures, so a broken mail setup never fails a signup or a reset
// request.
package mailer

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gopkg.in/gomail.v2"

	"github.com/twiztd/cpbc-volunteer-app/internal/model"
)

// Config holds SMTP settings for the mailer.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string

	// NotifyEmails receive new-signup notifications.
	NotifyEmails []string
	// ResetURL is the base URL for password reset links.
	ResetURL string
}

// Mailer sends admin notification and password reset emails.
type Mailer struct {
	cfg    Config
	dialer *gomail.Dialer
}

// New creates a Mailer. When the SMTP host is empty the mailer runs in
// disabled mode: sends are skipped and reset links are logged instead, which
// keeps development setups working without a mail server.
func New(cfg Config) *Mailer {
	m := &Mailer{cfg: cfg}
	if cfg.Host != "" {
		m.dialer = gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	}
	return m
}

// Enabled reports whether outbound email is configured.
func (m *Mailer) Enabled() bool {
	return m.dialer != nil
}

// NotifyPasswordReset emails a tokenized reset link to the account holder.
func (m *Mailer) NotifyPasswordReset(email, token string) error {
	resetLink := fmt.Sprintf("%s?reset_token=%s", m.cfg.ResetURL, token)

	if !m.Enabled() {
		// No mail server in development; surface the link in the log so the
		// flow stays testable end to end.
		slog.Info("SMTP not configured, logging reset link instead",
			"email", email, "reset_link", resetLink)
		return nil
	}

	text := fmt.Sprintf(`Password Reset Request

You requested a password reset for the CPBC Volunteer App admin dashboard.

Click the link below to set a new password (valid for 1 hour):
%s

If you did not request this, please ignore this email.

---
Cross Point Baptist Church Volunteer App`, resetLink)

	html := fmt.Sprintf(`<p>You requested a password reset for the CPBC Volunteer App admin dashboard.</p>
<p>Click the link below to set a new password. This link is valid for 1 hour.</p>
<p><a href="%s">Reset Password</a></p>
<p>If the link doesn't work, copy and paste this address:<br>%s</p>
<p>If you did not request this reset, please ignore this email.</p>`, resetLink, resetLink)

	return m.send([]string{email}, "Password Reset - CPBC Volunteer App", text, html)
}

// NotifySignup emails the configured admin recipients about a new volunteer.
func (m *Mailer) NotifySignup(v model.Volunteer) error {
	if len(m.cfg.NotifyEmails) == 0 {
		slog.Info("no admin notification emails configured, skipping signup notification")
		return nil
	}
	if !m.Enabled() {
		slog.Info("SMTP not configured, skipping signup notification", "volunteer_id", v.ID)
		return nil
	}

	var ministries strings.Builder
	for _, s := range v.Ministries {
		fmt.Fprintf(&ministries, "  - %s (%s)\n", s.MinistryArea, s.Category)
	}

	signupTime := v.SignupDate.Format("January 2, 2006 at 3:04 PM")

	text := fmt.Sprintf(`New Volunteer Signup

A new volunteer has signed up through the CPBC Volunteer App.

Volunteer Information:
----------------------
Name: %s
Phone: %s
Email: %s
Signup Date: %s

Ministry Areas Selected:
------------------------
%s
---
This is an automated notification from the CPBC Volunteer App.`,
		v.Name, v.Phone, v.Email, signupTime, ministries.String())

	var items strings.Builder
	for _, s := range v.Ministries {
		fmt.Fprintf(&items, "<li><strong>%s</strong> <em>(%s)</em></li>", s.MinistryArea, s.Category)
	}
	html := fmt.Sprintf(`<h2>New Volunteer Signup</h2>
<p><strong>Name:</strong> %s<br>
<strong>Phone:</strong> %s<br>
<strong>Email:</strong> <a href="mailto:%s">%s</a><br>
<strong>Signup Date:</strong> %s</p>
<h3>Ministry Areas Selected</h3>
<ul>%s</ul>`,
		v.Name, v.Phone, v.Email, v.Email, signupTime, items.String())

	return m.send(m.cfg.NotifyEmails, "New Volunteer Signup: "+v.Name, text, html)
}

func (m *Mailer) send(to []string, subject, textBody, htmlBody string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.cfg.From)
	msg.SetHeader("To", to...)
	msg.SetHeader("Subject", subject)
	msg.SetHeader("Date", time.Now().Format(time.RFC1123Z))
	msg.SetBody("text/plain", textBody)
	msg.AddAlternative("text/html", htmlBody)

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("sending %q to %v: %w", subject, to, err)
	}
	return nil
}
