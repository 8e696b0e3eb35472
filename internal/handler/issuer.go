package handler

import (
	"encoding/base64"
	"net/http"
	"time"

	"github.com/badgeforge/badgeforge/internal/model"
)

// CreateIssuerRequest is the payload for registering an issuer.
type CreateIssuerRequest struct {
	Name        string `json:"name"`
	URL         string `json:"url"`
	Email       string `json:"email,omitempty"`
	Description string `json:"description,omitempty"`
}

// CreateIssuer registers a new badge-issuing organization.
func (h *Handler) CreateIssuer(w http.ResponseWriter, r *http.Request) {
	var req CreateIssuerRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}
	if req.Name == "" || req.URL == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "name and url are required")
		return
	}

	issuer := &model.Issuer{
		ID:          model.NewID("iss"),
		Name:        req.Name,
		URL:         req.URL,
		Email:       req.Email,
		Description: req.Description,
		CreatedAt:   time.Now(),
	}
	if err := h.issuers.Create(r.Context(), issuer); err != nil {
		h.log.Error().Err(err).Msg("failed to create issuer")
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, issuer)
}

// GetIssuer returns a registered issuer.
func (h *Handler) GetIssuer(w http.ResponseWriter, r *http.Request) {
	issuer, err := h.issuers.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, issuer)
}

// ListIssuers returns all registered issuers.
func (h *Handler) ListIssuers(w http.ResponseWriter, r *http.Request) {
	issuers, err := h.issuers.List(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list issuers")
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"issuers": issuers})
}

// GetIssuerKey returns the active verification key for an issuer in a
// publicly consumable form.
func (h *Handler) GetIssuerKey(w http.ResponseWriter, r *http.Request) {
	issuerID := r.PathValue("id")
	issuer, err := h.issuers.GetByID(r.Context(), issuerID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	key, err := h.keySvc.EnsureIssuerKey(r.Context(), issuerID, issuer.Controller())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"keyId":              key.ID,
		"controller":         key.Controller,
		"verificationMethod": key.VerificationMethod(),
		"type":               key.KeyType,
		"publicKeyBase64":    base64.StdEncoding.EncodeToString(key.PublicKey),
	})
}
