package handler

import (
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sayless/sayless/internal/model"
	"github.com/sayless/sayless/internal/server/middleware"
	"github.com/sayless/sayless/internal/service"
)

// TokenHandler exposes token issuance and revocation.
type TokenHandler struct {
	tokens *service.TokenService
	logger *slog.Logger
}

// NewTokenHandler creates a TokenHandler.
func NewTokenHandler(tokens *service.TokenService, logger *slog.Logger) *TokenHandler {
	return &TokenHandler{tokens: tokens, logger: logger}
}

// createTokenParams is the JSON body for token creation. All flags
// default to false; expires_at defaults to one year out.
type createTokenParams struct {
	AdminPerm       bool   `json:"admin_perm"`
	CreateLinkPerm  bool   `json:"create_link_perm"`
	CreateTokenPerm bool   `json:"create_token_perm"`
	ViewIPsPerm     bool   `json:"view_ips_perm"`
	ExpiresAt       string `json:"expires_at,omitempty"`
}

// Create issues a new token. The caller must satisfy createToken (or
// admin, or be the master token). Responds 201 with the raw token value
// as the body; this is the only time the value is ever shown.
// POST /l/tokens/create
func (h *TokenHandler) Create(w http.ResponseWriter, r *http.Request) {
	presented := middleware.BearerToken(r)
	if err := h.tokens.CheckPermission(r.Context(), presented, model.PermCreateToken); err != nil {
		writeServiceError(w, err)
		return
	}

	var params createTokenParams
	if err := readJSON(r, &params); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	var expiresAt *time.Time
	if params.ExpiresAt != "" {
		t, err := parseExpiry(params.ExpiresAt)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid expires_at")
			return
		}
		expiresAt = &t
	}

	value, err := h.tokens.Issue(r.Context(), model.PermissionFlags{
		Admin:       params.AdminPerm,
		CreateLink:  params.CreateLinkPerm,
		CreateToken: params.CreateTokenPerm,
		ViewIPs:     params.ViewIPsPerm,
	}, expiresAt)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusCreated)
	w.Write([]byte(value))
}

// Revoke expires the token named in the body. Allowed when the caller
// presents that exact token or satisfies admin. Responds 200 with an
// empty body.
// POST /l/tokens/revoke
func (h *TokenHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	presented := middleware.BearerToken(r)
	if presented == "" {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read request body")
		return
	}
	target := strings.TrimSpace(string(body))
	if target == "" {
		writeError(w, http.StatusBadRequest, "Missing token to revoke")
		return
	}

	if err := h.tokens.Revoke(r.Context(), presented, target); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}
