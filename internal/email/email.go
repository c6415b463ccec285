// Package email sends the application's transactional mail. The only
// implementation speaks SMTP, which covers Mailhog in development and a
// relay service in production.
package email

import (
	"context"

	"github.com/jbaudry/previsk/internal/domain"
)

// EmailService sends transactional emails. Implementations render the HTML
// and text bodies from templates; callers only supply the data.
type EmailService interface {
	// SendVerificationEmail mails a new user their verification link.
	SendVerificationEmail(ctx context.Context, to, name, token string) error

	// SendPasswordResetEmail mails a user their password reset link.
	SendPasswordResetEmail(ctx context.Context, to, name, token string) error

	// SendQuotaAlertEmail tells a tenant admin that a feature quota has
	// crossed the warning, critical or exceeded threshold.
	SendQuotaAlertEmail(ctx context.Context, to, name string, alert QuotaAlert) error

	// SendExportReadyEmail tells a user their DUERP export can be
	// downloaded.
	SendExportReadyEmail(ctx context.Context, to, name, downloadURL string) error
}

// Email is one outbound message. TextBody is the fallback for clients that
// refuse HTML.
type Email struct {
	To       string
	Subject  string
	HTMLBody string
	TextBody string
}

// QuotaAlert carries the rendered parameters of a quota alert email.
type QuotaAlert struct {
	Template     domain.EmailTemplate // which alert tier
	FeatureLabel string               // human label, e.g. "Risques évalués par mois"
	PlanName     string               // display name of the current plan
	Limit        int64
	Current      int64
	Percentage   float64
	UpgradePlan  string // next plan up, empty on the top plan
}

// SMTPConfig locates the SMTP server. Username and Password stay empty for
// Mailhog.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
}

// Sender identity used when the config leaves From empty.
const (
	DefaultFromEmail = "noreply@previsk.fr"
	DefaultFromName  = "Previsk"
)
