// Copyright (c) 2025-2026 Cross Point Baptist Church
// SPDX-License-Identifier: GPL-3.0-or-later

package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// knownWeakSecrets contains default/example secrets that must be rejected.
var knownWeakSecrets = []string{
	"change-me-to-32-byte-secret-key!",
	"your-secret-key-change-in-production",
}

// Config holds the application configuration loaded from environment variables.
type Config struct {
	DBPath     string `env:"CPBC_DB_PATH" envDefault:"./data/volunteers.db"`
	JWTSecret  string `env:"CPBC_JWT_SECRET,required"`
	ServerHost string `env:"CPBC_SERVER_HOST" envDefault:"localhost"`
	ServerPort int    `env:"CPBC_SERVER_PORT" envDefault:"8080"`
	Env        string `env:"CPBC_ENV" envDefault:"development"`
	LogLevel   string `env:"CPBC_LOG_LEVEL" envDefault:"info"`

	// Token lifetimes
	TokenTTL time.Duration `env:"CPBC_TOKEN_TTL" envDefault:"8h"`
	ResetTTL time.Duration `env:"CPBC_RESET_TTL" envDefault:"1h"`

	// SMTP configuration; email notifications are disabled when Host is empty
	SMTPHost     string `env:"CPBC_SMTP_HOST"`
	SMTPPort     int    `env:"CPBC_SMTP_PORT" envDefault:"587"`
	SMTPUsername string `env:"CPBC_SMTP_USERNAME"`
	SMTPPassword string `env:"CPBC_SMTP_PASSWORD"`
	SMTPFrom     string `env:"CPBC_SMTP_FROM"`

	// NotifyEmails receive the new-signup notification
	NotifyEmails []string `env:"CPBC_ADMIN_NOTIFICATION_EMAILS" envSeparator:","`

	// ResetURL is the base URL embedded in password reset emails
	ResetURL string `env:"CPBC_RESET_URL" envDefault:"http://localhost:8080/admin"`

	// Seed account used when the admin directory is empty at startup
	SeedAdminEmail    string `env:"CPBC_SEED_ADMIN_EMAIL" envDefault:"admin@example.com"`
	SeedAdminPassword string `env:"CPBC_SEED_ADMIN_PASSWORD" envDefault:"changeme"`
}

// IsDevelopment returns true if the application is running in development mode.
func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

// ServerAddr returns the full server address in host:port format.
func (c Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

// SMTPEnabled returns true if outbound email is configured.
func (c Config) SMTPEnabled() bool {
	return c.SMTPHost != "" && c.SMTPFrom != ""
}

// MinJWTSecretLength is the minimum required length for the token signing secret.
const MinJWTSecretLength = 32

// Load parses environment variables and returns a Config struct.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	// Validate signing secret length
	if len(cfg.JWTSecret) < MinJWTSecretLength {
		return nil, fmt.Errorf("CPBC_JWT_SECRET must be at least %d bytes long, got %d bytes; "+
			"generate a secure secret with: openssl rand -base64 32",
			MinJWTSecretLength, len(cfg.JWTSecret))
	}

	// Reject known weak/default secrets
	for _, weak := range knownWeakSecrets {
		if cfg.JWTSecret == weak {
			return nil, fmt.Errorf("CPBC_JWT_SECRET is a known default value and must not be used; " +
				"generate a secure secret with: openssl rand -base64 32")
		}
	}

	// Warn about low-entropy secrets
	if !hasMinimumEntropy(cfg.JWTSecret) {
		slog.Warn("CPBC_JWT_SECRET has low character diversity; " +
			"consider generating a random secret with: openssl rand -base64 32")
	}

	// Drop empty entries from the notification list
	var recipients []string
	for _, addr := range cfg.NotifyEmails {
		if addr = strings.TrimSpace(addr); addr != "" {
			recipients = append(recipients, addr)
		}
	}
	cfg.NotifyEmails = recipients

	return cfg, nil
}

// hasMinimumEntropy checks that a secret contains at least 3 character classes
// (lowercase, uppercase, digits, special characters).
func hasMinimumEntropy(s string) bool {
	charTypes := 0
	if strings.ContainsAny(s, "abcdefghijklmnopqrstuvwxyz") {
		charTypes++
	}
	if strings.ContainsAny(s, "ABCDEFGHIJKLMNOPQRSTUVWXYZ") {
		charTypes++
	}
	if strings.ContainsAny(s, "0123456789") {
		charTypes++
	}
	if strings.ContainsAny(s, "!@#$%^&*()-_=+[]{}|;:,.<>?/~`'\"\\") {
		charTypes++
	}
	return charTypes >= 3
}
