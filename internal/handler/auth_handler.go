package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"compdash/internal/domain"
	"compdash/internal/middleware"
	"compdash/internal/service"
	"compdash/pkg/errors"
	"compdash/pkg/logger"

	"github.com/go-playground/validator/v10"
)

// IdentityResolver maps an authenticated principal to its team
type IdentityResolver interface {
	Resolve(ctx context.Context, principal *domain.Principal) (*domain.Identity, error)
	GetTeam(ctx context.Context, identity *domain.Identity) (*domain.Team, error)
}

// AuthHandler handles sign in, session refresh and the caller's profile
type AuthHandler struct {
	sessions service.SessionService
	identity IdentityResolver
	validate *validator.Validate
	logger   *logger.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(sessions service.SessionService, identity IdentityResolver, logger *logger.Logger) *AuthHandler {
	return &AuthHandler{
		sessions: sessions,
		identity: identity,
		validate: validator.New(),
		logger:   logger,
	}
}

// MeResponse describes the caller
type MeResponse struct {
	User     domain.Principal `json:"user"`
	TeamName string           `json:"team_name"`
	Author   string           `json:"author"`
}

// SignIn handles POST /api/auth/signin
func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req domain.SignInRequest
	if err := h.decode(w, r, &req); err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	session, err := h.sessions.SignIn(r.Context(), req)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, session)
}

// Refresh handles POST /api/auth/refresh
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req domain.RefreshRequest
	if err := h.decode(w, r, &req); err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	session, err := h.sessions.Refresh(r.Context(), req)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, session)
}

// SignOut handles POST /api/auth/signout
func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.SignOut(r.Context(), middleware.GetToken(r.Context())); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondMessage(w, http.StatusOK, "Signed out")
}

// Me handles GET /api/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	identity, err := resolveIdentity(r, h.identity)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, MeResponse{
		User:     identity.Principal,
		TeamName: identity.TeamName,
		Author:   identity.Author,
	})
}

// Team handles GET /api/team
func (h *AuthHandler) Team(w http.ResponseWriter, r *http.Request) {
	identity, err := resolveIdentity(r, h.identity)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	team, err := h.identity.GetTeam(r.Context(), identity)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, team)
}

func (h *AuthHandler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(dst); err != nil {
		return errors.NewValidationError("Invalid request body", nil)
	}
	if err := h.validate.Struct(dst); err != nil {
		return fieldValidationError(err)
	}
	return nil
}

// resolveIdentity resolves the principal that the auth middleware stored
func resolveIdentity(r *http.Request, resolver IdentityResolver) (*domain.Identity, error) {
	principal, ok := middleware.GetPrincipal(r.Context())
	if !ok {
		return nil, errors.NewAuthenticationError("Authentication required")
	}
	return resolver.Resolve(r.Context(), principal)
}

func fieldValidationError(err error) error {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return errors.NewValidationError("Invalid request body", nil)
	}
	fields := make(map[string]interface{}, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = fe.Tag()
	}
	return errors.NewValidationError("Invalid request body", map[string]interface{}{"fields": fields})
}
