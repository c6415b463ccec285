package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"net/smtp"
	"path/filepath"
	"strings"
	"time"

	"github.com/jbaudry/previsk/internal/domain"
)

// SMTPEmailService renders html/template bodies and delivers them over
// SMTP. Mailhog in development needs no credentials; any authenticated relay
// works in production.
type SMTPEmailService struct {
	config    SMTPConfig
	baseURL   string
	templates *template.Template
	logger    *slog.Logger
}

var _ EmailService = (*SMTPEmailService)(nil)

// NewSMTPEmailService loads every *.html template under templatesDir and
// returns a ready service. baseURL is the public origin links are built
// against.
func NewSMTPEmailService(config SMTPConfig, baseURL, templatesDir string, logger *slog.Logger) (*SMTPEmailService, error) {
	if config.From == "" {
		config.From = DefaultFromEmail
	}
	if config.FromName == "" {
		config.FromName = DefaultFromName
	}

	templates, err := template.New("email").ParseGlob(filepath.Join(templatesDir, "*.html"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse email templates: %w", err)
	}

	return &SMTPEmailService{
		config:    config,
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		templates: templates,
		logger:    logger,
	}, nil
}

// SendVerificationEmail sends an email verification link to a new user.
func (s *SMTPEmailService) SendVerificationEmail(ctx context.Context, to, name, token string) error {
	verifyURL := fmt.Sprintf("%s/verify-email?token=%s", s.baseURL, token)

	data := map[string]interface{}{
		"Name":      name,
		"VerifyURL": verifyURL,
		"Year":      time.Now().Year(),
	}

	htmlBody, err := s.renderTemplate("verification.html", data)
	if err != nil {
		return fmt.Errorf("failed to render verification email template: %w", err)
	}

	textBody := fmt.Sprintf(`Bonjour %s,

Bienvenue sur Previsk ! Merci de confirmer votre adresse email en cliquant sur le lien ci-dessous :

%s

Ce lien expire dans 24 heures.

Si vous n'avez pas créé de compte Previsk, vous pouvez ignorer cet email.

L'équipe Previsk
`, name, verifyURL)

	return s.send(ctx, Email{
		To:       to,
		Subject:  "Confirmez votre compte Previsk",
		HTMLBody: htmlBody,
		TextBody: textBody,
	})
}

// SendPasswordResetEmail sends a password reset link to a user.
func (s *SMTPEmailService) SendPasswordResetEmail(ctx context.Context, to, name, token string) error {
	resetURL := fmt.Sprintf("%s/reset-password?token=%s", s.baseURL, token)

	data := map[string]interface{}{
		"Name":     name,
		"ResetURL": resetURL,
		"Year":     time.Now().Year(),
	}

	htmlBody, err := s.renderTemplate("password_reset.html", data)
	if err != nil {
		return fmt.Errorf("failed to render password reset email template: %w", err)
	}

	textBody := fmt.Sprintf(`Bonjour %s,

Nous avons reçu une demande de réinitialisation de votre mot de passe. Cliquez sur le lien ci-dessous pour en choisir un nouveau :

%s

Ce lien expire dans 1 heure.

Si vous n'êtes pas à l'origine de cette demande, ignorez cet email. Votre mot de passe restera inchangé.

L'équipe Previsk
`, name, resetURL)

	return s.send(ctx, Email{
		To:       to,
		Subject:  "Réinitialisez votre mot de passe Previsk",
		HTMLBody: htmlBody,
		TextBody: textBody,
	})
}

// SendQuotaAlertEmail notifies a tenant administrator about quota consumption.
func (s *SMTPEmailService) SendQuotaAlertEmail(ctx context.Context, to, name string, alert QuotaAlert) error {
	data := map[string]interface{}{
		"Name":         name,
		"FeatureLabel": alert.FeatureLabel,
		"PlanName":     alert.PlanName,
		"Limit":        alert.Limit,
		"Current":      alert.Current,
		"Percentage":   fmt.Sprintf("%.0f", alert.Percentage),
		"UpgradePlan":  alert.UpgradePlan,
		"BillingURL":   s.baseURL + "/facturation",
		"Year":         time.Now().Year(),
	}

	htmlBody, err := s.renderTemplate(templateFile(alert.Template), data)
	if err != nil {
		return fmt.Errorf("failed to render quota alert email template: %w", err)
	}

	var upgradeLine string
	if alert.UpgradePlan != "" {
		upgradeLine = fmt.Sprintf("\nPour augmenter vos limites, passez au plan %s : %s/facturation\n", alert.UpgradePlan, s.baseURL)
	}

	textBody := fmt.Sprintf(`Bonjour %s,

%s

Fonctionnalité : %s
Utilisation : %d / %d (%.0f %%)
Plan actuel : %s
%s
L'équipe Previsk
`, name, alertLead(alert.Template), alert.FeatureLabel, alert.Current, alert.Limit, alert.Percentage, alert.PlanName, upgradeLine)

	return s.send(ctx, Email{
		To:       to,
		Subject:  alertSubject(alert),
		HTMLBody: htmlBody,
		TextBody: textBody,
	})
}

// SendExportReadyEmail notifies a user that their DUERP export is ready.
func (s *SMTPEmailService) SendExportReadyEmail(ctx context.Context, to, name, downloadURL string) error {
	data := map[string]interface{}{
		"Name":        name,
		"DownloadURL": downloadURL,
		"Year":        time.Now().Year(),
	}

	htmlBody, err := s.renderTemplate("export_ready.html", data)
	if err != nil {
		return fmt.Errorf("failed to render export ready email template: %w", err)
	}

	textBody := fmt.Sprintf(`Bonjour %s,

Votre export DUERP est prêt. Vous pouvez le télécharger ici :

%s

L'équipe Previsk
`, name, downloadURL)

	return s.send(ctx, Email{
		To:       to,
		Subject:  "Votre export DUERP est prêt",
		HTMLBody: htmlBody,
		TextBody: textBody,
	})
}

func templateFile(t domain.EmailTemplate) string {
	switch t {
	case domain.TemplateQuotaExceeded:
		return "quota_exceeded.html"
	case domain.TemplateQuotaCritical:
		return "quota_critical.html"
	default:
		return "quota_warning.html"
	}
}

func alertLead(t domain.EmailTemplate) string {
	switch t {
	case domain.TemplateQuotaExceeded:
		return "Vous avez dépassé la limite de votre plan pour la fonctionnalité suivante. Les nouvelles créations sont bloquées jusqu'au renouvellement de la période ou au changement de plan."
	case domain.TemplateQuotaCritical:
		return "Vous avez presque atteint la limite de votre plan pour la fonctionnalité suivante."
	default:
		return "Vous approchez de la limite de votre plan pour la fonctionnalité suivante."
	}
}

func alertSubject(alert QuotaAlert) string {
	switch alert.Template {
	case domain.TemplateQuotaExceeded:
		return fmt.Sprintf("Quota dépassé : %s", alert.FeatureLabel)
	case domain.TemplateQuotaCritical:
		return fmt.Sprintf("Quota bientôt atteint : %s", alert.FeatureLabel)
	default:
		return fmt.Sprintf("Alerte quota : %s", alert.FeatureLabel)
	}
}

const mimeBoundary = "===============PREVISK_BOUNDARY==============="

// send delivers one message. Auth is skipped when no credentials are
// configured, which is how Mailhog runs.
func (s *SMTPEmailService) send(ctx context.Context, email Email) error {
	var auth smtp.Auth
	if s.config.Username != "" && s.config.Password != "" {
		auth = smtp.PlainAuth("", s.config.Username, s.config.Password, s.config.Host)
	}

	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	if err := smtp.SendMail(addr, auth, s.config.From, []string{email.To}, s.buildMessage(email)); err != nil {
		s.logger.Error("failed to send email", "to", email.To, "subject", email.Subject, "error", err)
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Info("email sent", "to", email.To, "subject", email.Subject)
	return nil
}

// buildMessage assembles a multipart/alternative message with text and HTML
// bodies.
func (s *SMTPEmailService) buildMessage(email Email) []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "From: %s <%s>\r\n", s.config.FromName, s.config.From)
	fmt.Fprintf(&buf, "To: %s\r\n", email.To)
	fmt.Fprintf(&buf, "Subject: %s\r\n", email.Subject)
	buf.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&buf, "Content-Type: multipart/alternative; boundary=%q\r\n\r\n", mimeBoundary)

	writePart := func(contentType, body string) {
		fmt.Fprintf(&buf, "--%s\r\n", mimeBoundary)
		fmt.Fprintf(&buf, "Content-Type: %s; charset=utf-8\r\n", contentType)
		buf.WriteString("Content-Transfer-Encoding: quoted-printable\r\n\r\n")
		buf.WriteString(body)
		buf.WriteString("\r\n")
	}
	writePart("text/plain", email.TextBody)
	writePart("text/html", email.HTMLBody)

	fmt.Fprintf(&buf, "--%s--\r\n", mimeBoundary)
	return buf.Bytes()
}

func (s *SMTPEmailService) renderTemplate(name string, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
