// Copyright (c) 2025-2026 Cross Point Baptist Church
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/twiztd/cpbc-volunteer-app/internal/auth"
	"github.com/twiztd/cpbc-volunteer-app/internal/config"
	"github.com/twiztd/cpbc-volunteer-app/internal/handler"
	"github.com/twiztd/cpbc-volunteer-app/internal/logging"
	"github.com/twiztd/cpbc-volunteer-app/internal/mailer"
	"github.com/twiztd/cpbc-volunteer-app/internal/middleware"
	"github.com/twiztd/cpbc-volunteer-app/internal/service"
	"github.com/twiztd/cpbc-volunteer-app/internal/store"
	"github.com/twiztd/cpbc-volunteer-app/internal/taxonomy"
	"github.com/twiztd/cpbc-volunteer-app/internal/version"
)

// Version information - injected at build time via ldflags
var (
	appVersion   = "dev"
	appGitCommit = "unknown"
	appBuildTime = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	showHelp := flag.Bool("help", false, "Show help information")
	flag.BoolVar(showHelp, "h", false, "Show help information (shorthand)")

	flag.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "CPBC Volunteer App - community volunteer signup service\n\n")
		_, _ = fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		_, _ = fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		_, _ = fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		_, _ = fmt.Fprintf(os.Stderr, "  CPBC_JWT_SECRET        Token signing key (required, min 32 bytes)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  CPBC_DB_PATH           SQLite database path (default: ./data/volunteers.db)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  CPBC_SERVER_PORT       Server port (default: 8080)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  CPBC_ENV               Environment: development|production (default: development)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  CPBC_SMTP_HOST         SMTP server; email disabled when unset\n")
		_, _ = fmt.Fprintf(os.Stderr, "  CPBC_SEED_ADMIN_EMAIL  Initial super admin email (default: admin@example.com)\n")
	}

	flag.Parse()

	if *showHelp {
		flag.Usage()
		os.Exit(0)
	}

	if *showVersion {
		info := version.Info{Version: appVersion, GitCommit: appGitCommit, BuildTime: appBuildTime}
		_, _ = fmt.Printf("volunteer %s\n", info)
		os.Exit(0)
	}

	if err := run(); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// Load .env file if present (development)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logLevel := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// Ensure data directory exists
	dbDir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	slog.Info("initializing database", "path", cfg.DBPath)
	db, err := store.NewDB(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer func(db *sql.DB) {
		if err := db.Close(); err != nil {
			slog.Error("error closing database connection", "error", err)
		}
	}(db)

	slog.Info("running database migrations")
	if err := store.Migrate(db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	slog.Info("database ready")

	// Upgrade logger to also write WARN and ERROR logs to the events table
	textHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	eventLogHandler := logging.NewEventLogHandler(textHandler, db)
	logger = slog.New(eventLogHandler)
	slog.SetDefault(logger)
	slog.Info("event log integration enabled", "min_level", "warn")

	ctx := context.Background()
	if err := store.Seed(ctx, db, cfg.SeedAdminEmail, cfg.SeedAdminPassword); err != nil {
		return fmt.Errorf("seeding database: %w", err)
	}

	queries := store.New(db)

	// Extend the builtin ministry taxonomy with operator-defined entries
	tax := taxonomy.Builtin()
	if custom, err := queries.ListCustomMinistries(ctx); err == nil {
		if len(custom) > 0 {
			tax = tax.Extend(custom)
			slog.Info("custom ministries loaded", "count", len(custom))
		}
	} else {
		slog.Warn("failed to load custom ministries", "error", err)
	}

	m := mailer.New(mailer.Config{
		Host:         cfg.SMTPHost,
		Port:         cfg.SMTPPort,
		Username:     cfg.SMTPUsername,
		Password:     cfg.SMTPPassword,
		From:         cfg.SMTPFrom,
		NotifyEmails: cfg.NotifyEmails,
		ResetURL:     cfg.ResetURL,
	})
	if m.Enabled() {
		slog.Info("email notifications enabled", "host", cfg.SMTPHost, "recipients", len(cfg.NotifyEmails))
	} else {
		slog.Info("email notifications disabled")
	}

	tokens := auth.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL)
	admins := service.NewAdminService(db, tokens, m, cfg.ResetTTL)
	signups := service.NewSignupService(db, tax, m)

	loginProtection := middleware.NewLoginProtection(middleware.DefaultLoginProtectionConfig())

	h := handler.NewHandler(admins, signups, loginProtection)
	router := handler.NewRouter(handler.RouterConfig{
		DB:      db,
		Tokens:  tokens,
		Handler: h,
		Logger:  logger,
	})

	srv := &http.Server{
		Addr:              cfg.ServerAddr(),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		slog.Info("starting server", "addr", cfg.ServerAddr(), "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped")
	return nil
}
