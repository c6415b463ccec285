// This file implements tenant member management:
//
//	POST /api/members -> Invite (admin only)
//	GET  /api/members -> List
package handler

import (
	"log/slog"
	"net/http"

	"github.com/jbaudry/previsk/internal/auth"
	"github.com/jbaudry/previsk/internal/domain"
	"github.com/jbaudry/previsk/internal/service"
)

// MemberHandler handles tenant member endpoints.
type MemberHandler struct {
	users  service.UserService
	logger *slog.Logger
}

// NewMemberHandler creates a new MemberHandler.
func NewMemberHandler(users service.UserService, logger *slog.Logger) *MemberHandler {
	return &MemberHandler{users: users, logger: logger}
}

type inviteRequest struct {
	Email    string        `json:"email"`
	Password string        `json:"password"`
	Name     string        `json:"name"`
	Roles    []domain.Role `json:"roles"`
	SiteID   string        `json:"site_id,omitempty"`
}

// Invite creates a member account in the actor's tenant. The user quota of
// the tenant's plan applies.
func (h *MemberHandler) Invite(w http.ResponseWriter, r *http.Request) {
	actor := auth.GetUser(r.Context())
	if actor == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}

	var req inviteRequest
	if err := decodeJSON(r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	siteID, err := optionalUUID(req.SiteID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	user, err := h.users.InviteUser(r.Context(), actor, domain.CreateUserParams{
		TenantID: actor.TenantID,
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
		Roles:    req.Roles,
		SiteID:   siteID,
	})
	if err != nil {
		ValidationErrorResponse(w, r, h.logger, err)
		return
	}

	respondJSON(w, http.StatusCreated, newUserResponse(user))
}

// List returns the members of the actor's tenant.
func (h *MemberHandler) List(w http.ResponseWriter, r *http.Request) {
	actor := auth.GetUser(r.Context())
	if actor == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}

	members, err := h.users.ListMembers(r.Context(), actor)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	out := make([]userResponse, 0, len(members))
	for _, m := range members {
		out = append(out, newUserResponse(m))
	}
	respondJSON(w, http.StatusOK, map[string]any{"members": out})
}
