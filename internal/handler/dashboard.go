package handler

import (
	"net/http"
	"time"

	"github.com/dakghar-dev/postal-portal/backend/internal/domain"
)

// GetDashboardStats aggregates the landing-page numbers. Admins and
// supervisors see portal-wide figures; office users see their own office.
func (h *Handler) GetDashboardStats(w http.ResponseWriter, r *http.Request) {
	user := h.currentUserFrom(r)
	now := time.Now()

	var officeID *int64
	if !user.HasAnyRole(now, domain.RoleAdmin, domain.RoleSupervisor) {
		for i := range user.Roles {
			ra := &user.Roles[i]
			if ra.EffectiveAt(now) && ra.OfficeID != nil {
				officeID = ra.OfficeID
				break
			}
		}
		if officeID == nil {
			h.forbidden(w, r)
			return
		}
	}

	drmByStatus, err := h.repository.CountDRMEntriesByStatus(officeID)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	local := now.In(h.cutoff.Location)
	today := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, h.cutoff.Location)
	todayTotals, err := h.repository.GetMetricsTotalsForDate(today, officeID)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	stats := map[string]any{
		"drmEntriesByStatus": drmByStatus,
		"pendingApprovals":   drmByStatus[domain.DRMStatusSubmitted] + drmByStatus[domain.DRMStatusScrutinized],
		"todayMetrics":       todayTotals,
	}

	if user.HasRole(now, domain.RoleAdmin) {
		pending, err := h.repository.GetAllUsers(true)
		if err != nil {
			h.internalServerError(w, r, err)
			return
		}
		stats["pendingRegistrations"] = len(pending)
	}

	h.successResponse(w, r, http.StatusOK, stats)
}
