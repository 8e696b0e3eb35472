package handler

import (
	"net/http"

	"github.com/badgeforge/badgeforge/internal/service"
)

// IssueAssertionRequest is the payload for awarding a badge.
type IssueAssertionRequest struct {
	BadgeClassID string `json:"badgeClassId"`
	RecipientID  string `json:"recipientId"`
	Mode         string `json:"mode,omitempty"`
}

// IssueAssertion awards a badge to a recipient and returns the signed
// credential.
func (h *Handler) IssueAssertion(w http.ResponseWriter, r *http.Request) {
	var req IssueAssertionRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}
	if req.BadgeClassID == "" || req.RecipientID == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "badgeClassId and recipientId are required")
		return
	}

	mode := service.ModeDataIntegrity
	switch req.Mode {
	case "", string(service.ModeDataIntegrity):
	case string(service.ModeCompactToken):
		mode = service.ModeCompactToken
	default:
		writeError(w, http.StatusBadRequest, "invalid_request", "mode must be \"compact\" or \"data-integrity\"")
		return
	}

	assertion, token, err := h.issuanceSvc.IssueAssertion(r.Context(), req.BadgeClassID, req.RecipientID, mode)
	if err != nil {
		h.log.Error().Err(err).Str("badge_class_id", req.BadgeClassID).Msg("failed to issue assertion")
		writeServiceError(w, err)
		return
	}

	resp := map[string]interface{}{"assertion": assertion}
	if token != "" {
		resp["token"] = token
	}
	writeJSON(w, http.StatusCreated, resp)
}

// GetAssertion returns a stored assertion with its signed credential
// document.
func (h *Handler) GetAssertion(w http.ResponseWriter, r *http.Request) {
	assertion, err := h.issuanceSvc.GetAssertion(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, assertion)
}

// ListAssertions returns the assertions issued by an issuer.
func (h *Handler) ListAssertions(w http.ResponseWriter, r *http.Request) {
	issuerID := r.URL.Query().Get("issuerId")
	if issuerID == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "issuerId query parameter is required")
		return
	}

	assertions, err := h.assertions.ListByIssuer(r.Context(), issuerID)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list assertions")
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"assertions": assertions})
}

// RevokeAssertionRequest is the payload for revoking an issued badge.
type RevokeAssertionRequest struct {
	Reason string `json:"reason"`
}

// RevokeAssertion marks an issued badge as revoked.
func (h *Handler) RevokeAssertion(w http.ResponseWriter, r *http.Request) {
	var req RevokeAssertionRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}
	if req.Reason == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "reason is required")
		return
	}

	id := r.PathValue("id")
	if err := h.issuanceSvc.RevokeAssertion(r.Context(), id, req.Reason); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "revoked", "id": id})
}

// VerifyAssertion runs the full verification pipeline against a stored
// assertion.
func (h *Handler) VerifyAssertion(w http.ResponseWriter, r *http.Request) {
	result, err := h.verifySvc.VerifyAssertion(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
