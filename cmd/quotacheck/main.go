// Command quotacheck runs one quota sweep over every tenant and exits.
// It is intended to be invoked by cron (e.g. hourly); alert deduplication
// makes overlapping runs harmless.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/jbaudry/previsk/internal"
	"github.com/jbaudry/previsk/internal/domain"
	"github.com/jbaudry/previsk/internal/email"
	"github.com/jbaudry/previsk/internal/repository"
	"github.com/jbaudry/previsk/internal/service"
)

// sweepTimeout bounds a single run so a stuck database or SMTP server
// cannot pile up cron invocations.
const sweepTimeout = 10 * time.Minute

func run() error {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	logger := internal.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel)

	db, err := sql.Open("pgx", cfg.DatabaseUrl)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	queries := repository.New(db)
	catalog := domain.DefaultCatalog()

	emailService, err := email.NewSMTPEmailService(email.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
		FromName: cfg.SMTPFromName,
	}, cfg.BaseURL, "web/templates/email", logger)
	if err != nil {
		return fmt.Errorf("email service initialization failed: %w", err)
	}

	quota := service.NewQuotaService(queries, catalog, logger)
	monitor := service.NewMonitorService(queries, quota, emailService, catalog, cfg.QuotaAlertDedupWindow, logger)

	start := time.Now()
	report, err := monitor.RunQuotaCheck(ctx)
	if err != nil {
		return fmt.Errorf("quota sweep failed: %w", err)
	}

	logger.Info("Quota sweep complete",
		"tenants_checked", report.TenantsChecked,
		"alerts_sent", report.AlertsSent,
		"alerts_skipped", report.AlertsSkipped,
		"errors", report.Errors,
		"duration", time.Since(start),
	)

	if report.Errors > 0 {
		return fmt.Errorf("quota sweep finished with %d per-tenant errors", report.Errors)
	}
	return nil
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
