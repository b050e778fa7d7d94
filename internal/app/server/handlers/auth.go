package handlers

import (
	"encoding/json"
	"net/http"

	"ordercast/internal/core/domain"
	"ordercast/internal/core/services"
	"ordercast/pkg/logging"
)

type TokenIssuer interface {
	Enabled() bool
	GenerateToken(subject string, role domain.Role) (string, error)
}

type AuthHandler struct {
	tokenSvc TokenIssuer
}

func NewAuthHandler(t TokenIssuer) *AuthHandler {
	return &AuthHandler{tokenSvc: t}
}

// IssueToken mints a connection token for a subject and role. The route is
// meant for the ordering backend, so it sits behind the ingest key.
func (h *AuthHandler) IssueToken(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())
	var req struct {
		Subject string      `json:"subject"`
		Role    domain.Role `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Subject == "" {
		log.WarnContext(r.Context(), "auth handler - issue token - bad request")
		writeError(w, http.StatusBadRequest, "bad_request", "subject and role are required")
		return
	}
	if req.Role != domain.RoleAdmin && req.Role != domain.RoleCustomer {
		writeError(w, http.StatusBadRequest, "bad_request", "unknown role")
		return
	}
	if !h.tokenSvc.Enabled() {
		writeError(w, http.StatusNotImplemented, "auth_disabled", "no signing secret configured")
		return
	}
	token, err := h.tokenSvc.GenerateToken(req.Subject, req.Role)
	if err != nil {
		log.ErrorContext(r.Context(), "auth handler - issue token - generate failed", logging.Err(err))
		writeError(w, http.StatusInternalServerError, "internal", "failed to generate token")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token, "subject": req.Subject, "role": string(req.Role)})
	log.InfoContext(r.Context(), "auth handler - issue token - success", logging.Role(string(req.Role)))
}

var _ TokenIssuer = (*services.TokenService)(nil)
