package handler

import (
	"net/http"
)

// VerifyDocumentRequest carries a caller-supplied credential document.
type VerifyDocumentRequest struct {
	Document map[string]interface{} `json:"document"`
}

// VerifyDocument verifies a credential document supplied by the caller
// rather than one loaded from storage.
func (h *Handler) VerifyDocument(w http.ResponseWriter, r *http.Request) {
	var req VerifyDocumentRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}
	if len(req.Document) == 0 {
		writeError(w, http.StatusBadRequest, "invalid_request", "document is required")
		return
	}

	result, err := h.verifySvc.VerifyDocument(r.Context(), req.Document)
	if err != nil {
		h.log.Error().Err(err).Msg("document verification failed")
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
