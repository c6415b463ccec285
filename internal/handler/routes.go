// This file assembles the API route table.
package handler

import (
	"net/http"

	"github.com/jbaudry/previsk/internal/middleware"
)

// Handlers groups every handler the router mounts.
type Handlers struct {
	Auth          *AuthHandler
	Member        *MemberHandler
	Organization  *OrganizationHandler
	Evaluation    *EvaluationHandler
	Action        *ActionHandler
	Observation   *ObservationHandler
	Conformite    *ConformiteHandler
	Suggestion    *SuggestionHandler
	Export        *ExportHandler
	Import        *ImportHandler
	Usage         *UsageHandler
	Billing       *BillingHandler
	Webhook       *WebhookHandler
	AuthMW        *middleware.AuthMiddleware
	AuthRateLimit *middleware.AuthRateLimiter
}

// Routes builds the API mux. Every route passes through WithUser so the
// session is resolved once; protected groups add RequireUser and, where
// needed, RequireVerifiedEmail or RequireAdmin on top.
func Routes(h Handlers) http.Handler {
	mux := http.NewServeMux()

	requireUser := middleware.Stack(h.AuthMW.RequireUser)
	requireVerified := middleware.Stack(h.AuthMW.RequireUser, h.AuthMW.RequireVerifiedEmail)
	requireAdmin := middleware.Stack(h.AuthMW.RequireUser, h.AuthMW.RequireAdmin)

	// Public
	mux.Handle("POST /api/auth/register", h.AuthRateLimit.LimitRegister(http.HandlerFunc(h.Auth.Register)))
	mux.Handle("POST /api/auth/login", h.AuthRateLimit.LimitLogin(http.HandlerFunc(h.Auth.Login)))
	mux.HandleFunc("POST /api/auth/verify-email", h.Auth.VerifyEmail)
	mux.Handle("POST /api/auth/forgot-password", h.AuthRateLimit.LimitPasswordReset(http.HandlerFunc(h.Auth.ForgotPassword)))
	mux.HandleFunc("POST /api/auth/reset-password", h.Auth.ResetPassword)
	mux.HandleFunc("POST /webhooks/stripe", h.Webhook.HandleStripeWebhook)

	// Session
	mux.HandleFunc("POST /api/auth/logout", h.Auth.Logout)
	mux.Handle("GET /api/auth/me", requireUser(http.HandlerFunc(h.Auth.Me)))
	mux.Handle("POST /api/auth/resend-verification", requireUser(http.HandlerFunc(h.Auth.ResendVerification)))
	mux.Handle("POST /api/auth/password", requireUser(http.HandlerFunc(h.Auth.ChangePassword)))

	// Members (admin only for invitations)
	mux.Handle("POST /api/members", requireAdmin(http.HandlerFunc(h.Member.Invite)))
	mux.Handle("GET /api/members", requireUser(http.HandlerFunc(h.Member.List)))

	// Companies
	mux.Handle("POST /api/companies", requireVerified(http.HandlerFunc(h.Organization.CreateCompany)))
	mux.Handle("GET /api/companies", requireUser(http.HandlerFunc(h.Organization.ListCompanies)))
	mux.Handle("GET /api/companies/{id}", requireUser(http.HandlerFunc(h.Organization.GetCompany)))
	mux.Handle("PUT /api/companies/{id}", requireVerified(http.HandlerFunc(h.Organization.UpdateCompany)))
	mux.Handle("DELETE /api/companies/{id}", requireVerified(http.HandlerFunc(h.Organization.DeleteCompany)))

	// Sites
	mux.Handle("POST /api/sites", requireVerified(http.HandlerFunc(h.Organization.CreateSite)))
	mux.Handle("GET /api/sites", requireUser(http.HandlerFunc(h.Organization.ListSites)))
	mux.Handle("PUT /api/sites/{id}", requireVerified(http.HandlerFunc(h.Organization.UpdateSite)))
	mux.Handle("DELETE /api/sites/{id}", requireVerified(http.HandlerFunc(h.Organization.DeleteSite)))

	// Work units
	mux.Handle("POST /api/work-units", requireVerified(http.HandlerFunc(h.Organization.CreateWorkUnit)))
	mux.Handle("GET /api/work-units", requireUser(http.HandlerFunc(h.Organization.ListWorkUnits)))
	mux.Handle("GET /api/work-units/search", requireUser(http.HandlerFunc(h.Organization.SearchWorkUnits)))
	mux.Handle("GET /api/work-units/{id}", requireUser(http.HandlerFunc(h.Organization.GetWorkUnit)))
	mux.Handle("PUT /api/work-units/{id}", requireVerified(http.HandlerFunc(h.Organization.UpdateWorkUnit)))
	mux.Handle("DELETE /api/work-units/{id}", requireVerified(http.HandlerFunc(h.Organization.DeleteWorkUnit)))

	// Risk evaluations
	mux.Handle("POST /api/evaluations", requireVerified(http.HandlerFunc(h.Evaluation.Create)))
	mux.Handle("GET /api/evaluations", requireUser(http.HandlerFunc(h.Evaluation.List)))
	mux.Handle("GET /api/evaluations/{id}", requireUser(http.HandlerFunc(h.Evaluation.Get)))
	mux.Handle("PUT /api/evaluations/{id}", requireVerified(http.HandlerFunc(h.Evaluation.Update)))
	mux.Handle("POST /api/evaluations/{id}/reassign", requireVerified(http.HandlerFunc(h.Evaluation.Reassign)))
	mux.Handle("DELETE /api/evaluations/{id}", requireVerified(http.HandlerFunc(h.Evaluation.Delete)))

	// Action plans
	mux.Handle("POST /api/actions", requireVerified(http.HandlerFunc(h.Action.Create)))
	mux.Handle("GET /api/actions", requireUser(http.HandlerFunc(h.Action.ListByEvaluation)))
	mux.Handle("GET /api/actions/counts", requireUser(http.HandlerFunc(h.Action.Counts)))
	mux.Handle("GET /api/actions/{id}", requireUser(http.HandlerFunc(h.Action.Get)))
	mux.Handle("PUT /api/actions/{id}", requireVerified(http.HandlerFunc(h.Action.Update)))
	mux.Handle("DELETE /api/actions/{id}", requireVerified(http.HandlerFunc(h.Action.Delete)))

	// Observations
	mux.Handle("POST /api/observations", requireVerified(http.HandlerFunc(h.Observation.Create)))
	mux.Handle("GET /api/observations", requireUser(http.HandlerFunc(h.Observation.ListBySite)))
	mux.Handle("GET /api/observations/{id}", requireUser(http.HandlerFunc(h.Observation.Get)))
	mux.Handle("GET /api/observations/{id}/photo-url", requireUser(http.HandlerFunc(h.Observation.PhotoURL)))
	mux.Handle("PUT /api/observations/{id}", requireVerified(http.HandlerFunc(h.Observation.Update)))
	mux.Handle("DELETE /api/observations/{id}", requireVerified(http.HandlerFunc(h.Observation.Delete)))

	// PAPRIPACT + participation
	mux.Handle("POST /api/papripacts", requireVerified(http.HandlerFunc(h.Conformite.CreatePapripact)))
	mux.Handle("GET /api/papripacts", requireUser(http.HandlerFunc(h.Conformite.ListPapripacts)))
	mux.Handle("GET /api/papripacts/required", requireUser(http.HandlerFunc(h.Conformite.Required)))
	mux.Handle("PUT /api/papripacts/{id}/summary", requireVerified(http.HandlerFunc(h.Conformite.UpdateSummary)))
	mux.Handle("POST /api/papripacts/{id}/publish", requireVerified(http.HandlerFunc(h.Conformite.Publish)))
	mux.Handle("POST /api/participation", requireVerified(http.HandlerFunc(h.Conformite.AddParticipation)))
	mux.Handle("GET /api/participation", requireUser(http.HandlerFunc(h.Conformite.ListParticipation)))

	// AI suggestions
	mux.Handle("POST /api/suggestions/risks", requireVerified(http.HandlerFunc(h.Suggestion.SuggestRisks)))
	mux.Handle("POST /api/suggestions/actions", requireVerified(http.HandlerFunc(h.Suggestion.SuggestActions)))
	mux.Handle("GET /api/suggestions", requireUser(http.HandlerFunc(h.Suggestion.History)))

	// Exports
	mux.Handle("POST /api/exports", requireVerified(http.HandlerFunc(h.Export.Create)))
	mux.Handle("GET /api/exports", requireUser(http.HandlerFunc(h.Export.List)))
	mux.Handle("GET /api/exports/{id}", requireUser(http.HandlerFunc(h.Export.Get)))
	mux.Handle("GET /api/exports/{id}/download", requireUser(http.HandlerFunc(h.Export.Download)))

	// Work-unit imports
	mux.Handle("POST /api/imports", requireVerified(http.HandlerFunc(h.Import.Create)))
	mux.Handle("GET /api/imports", requireUser(http.HandlerFunc(h.Import.List)))

	// Plan usage
	mux.Handle("GET /api/usage", requireUser(http.HandlerFunc(h.Usage.Get)))

	// Billing (admin only)
	mux.Handle("POST /api/billing/checkout", requireAdmin(http.HandlerFunc(h.Billing.Checkout)))
	mux.Handle("POST /api/billing/portal", requireAdmin(http.HandlerFunc(h.Billing.Portal)))
	mux.Handle("POST /api/billing/cancel", requireAdmin(http.HandlerFunc(h.Billing.Cancel)))
	mux.Handle("POST /api/billing/reactivate", requireAdmin(http.HandlerFunc(h.Billing.Reactivate)))

	// Session resolution wraps the whole mux
	return h.AuthMW.WithUser(mux)
}
