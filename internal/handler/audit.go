package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/dakghar-dev/postal-portal/backend/internal/repository"
)

func (h *Handler) GetAuditLogs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := repository.AuditFilter{Page: 1, Limit: 50}
	if v := q.Get("entityType"); v != "" {
		filter.EntityType = &v
	}
	if v := q.Get("entityId"); v != "" {
		filter.EntityID = &v
	}
	if v := q.Get("userId"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			h.badRequest(w, r, errors.New("invalid userId"))
			return
		}
		filter.UserID = &id
	}
	if v := q.Get("action"); v != "" {
		filter.Action = &v
	}
	if v := q.Get("page"); v != "" {
		if page, err := strconv.Atoi(v); err == nil && page > 0 {
			filter.Page = page
		}
	}
	if v := q.Get("limit"); v != "" {
		if limit, err := strconv.Atoi(v); err == nil && limit > 0 && limit <= 200 {
			filter.Limit = limit
		}
	}

	logs, total, err := h.repository.GetAuditLogs(filter)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	totalPages := (total + filter.Limit - 1) / filter.Limit
	h.successResponse(w, r, http.StatusOK, map[string]any{
		"logs": logs,
		"pagination": map[string]any{
			"currentPage": filter.Page,
			"totalPages":  totalPages,
			"totalItems":  total,
			"hasNext":     filter.Page < totalPages,
			"hasPrev":     filter.Page > 1,
		},
	})
}
