package handler

import "net/http"

func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	h.successResponse(w, r, http.StatusOK, map[string]string{
		"service": "postal-portal",
	})
}

// Health reports liveness plus a database round-trip.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.repository.Ping(); err != nil {
		h.logInternalServerError(r, err)
		h.writeJSON(w, r, http.StatusServiceUnavailable, Response{
			Success: false,
			Data: map[string]string{
				"status":   "degraded",
				"database": "disconnected",
			},
			Error: &ResponseError{
				Code:    CodeInternalError,
				Message: "Database is unreachable",
			},
		})
		return
	}

	h.successResponse(w, r, http.StatusOK, map[string]string{
		"status":   "ok",
		"database": "connected",
	})
}
