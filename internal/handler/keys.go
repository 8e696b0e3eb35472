package handler

import (
	"net/http"
)

// ListKeys returns metadata for every signing key, including rotated and
// revoked ones. Private material is never exposed.
func (h *Handler) ListKeys(w http.ResponseWriter, r *http.Request) {
	if ownerID := r.URL.Query().Get("ownerId"); ownerID != "" {
		keys, err := h.keySvc.ListOwnerKeys(r.Context(), ownerID)
		if err != nil {
			h.log.Error().Err(err).Msg("failed to list owner keys")
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"keys": keys})
		return
	}

	keys, err := h.keySvc.ListKeys(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list keys")
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"keys": keys})
}

// RotateKeyRequest names the key to retire.
type RotateKeyRequest struct {
	KeyID string `json:"keyId"`
}

// RotateKey retires an active key and provisions its successor.
func (h *Handler) RotateKey(w http.ResponseWriter, r *http.Request) {
	var req RotateKeyRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}
	if req.KeyID == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "keyId is required")
		return
	}

	newKey, err := h.keySvc.RotateKey(r.Context(), req.KeyID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newKey.ToInfo())
}

// RevokeKeyRequest carries the reason a key is being withdrawn.
type RevokeKeyRequest struct {
	Reason string `json:"reason"`
}

// RevokeKey permanently withdraws a signing key from use.
func (h *Handler) RevokeKey(w http.ResponseWriter, r *http.Request) {
	var req RevokeKeyRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}
	if req.Reason == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "reason is required")
		return
	}

	keyID := r.PathValue("id")
	if err := h.keySvc.RevokeKey(r.Context(), keyID, req.Reason); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "revoked", "id": keyID})
}
