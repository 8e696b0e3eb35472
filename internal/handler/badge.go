package handler

import (
	"net/http"
	"time"

	"github.com/badgeforge/badgeforge/internal/model"
)

// CreateBadgeClassRequest is the payload for defining a badge class.
type CreateBadgeClassRequest struct {
	IssuerID    string `json:"issuerId"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Criteria    string `json:"criteria,omitempty"`
	ImageURL    string `json:"imageUrl,omitempty"`
}

// CreateBadgeClass defines a new achievement under an issuer.
func (h *Handler) CreateBadgeClass(w http.ResponseWriter, r *http.Request) {
	var req CreateBadgeClassRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}
	if req.IssuerID == "" || req.Name == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "issuerId and name are required")
		return
	}

	// The issuer must exist before badges can reference it.
	if _, err := h.issuers.GetByID(r.Context(), req.IssuerID); err != nil {
		writeServiceError(w, err)
		return
	}

	badge := &model.BadgeClass{
		ID:          model.NewID("badge"),
		IssuerID:    req.IssuerID,
		Name:        req.Name,
		Description: req.Description,
		Criteria:    req.Criteria,
		ImageURL:    req.ImageURL,
		CreatedAt:   time.Now(),
	}
	if err := h.badges.Create(r.Context(), badge); err != nil {
		h.log.Error().Err(err).Msg("failed to create badge class")
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, badge)
}

// GetBadgeClass returns a badge class definition.
func (h *Handler) GetBadgeClass(w http.ResponseWriter, r *http.Request) {
	badge, err := h.badges.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, badge)
}

// ListBadgeClasses returns all badge classes for an issuer.
func (h *Handler) ListBadgeClasses(w http.ResponseWriter, r *http.Request) {
	issuerID := r.URL.Query().Get("issuerId")
	if issuerID == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "issuerId query parameter is required")
		return
	}

	badges, err := h.badges.ListByIssuer(r.Context(), issuerID)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list badge classes")
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"badges": badges})
}
