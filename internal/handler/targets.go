package handler

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/dakghar-dev/postal-portal/backend/internal/domain"
	"github.com/dakghar-dev/postal-portal/backend/internal/utils"
	"github.com/jackc/pgx/v5/pgconn"
)

func (h *Handler) GetAllTargets(w http.ResponseWriter, r *http.Request) {
	var officeID *int64
	if v := r.URL.Query().Get("officeId"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			h.badRequest(w, r, errors.New("invalid officeId"))
			return
		}
		officeID = &id
	}

	targets, err := h.repository.GetAllTargets(officeID)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, http.StatusOK, targets)
}

func (h *Handler) CreateTarget(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OfficeID      int64                         `json:"officeId" validate:"required"`
		FinancialYear string                        `json:"financialYear" validate:"required,len=7"`
		Targets       map[string]domain.TargetValue `json:"targets" validate:"required,min=1"`
		Notes         string                        `json:"notes"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := utils.ValidateFinancialYear(req.FinancialYear); err != nil {
		h.badRequest(w, r, err)
		return
	}

	user := h.currentUserFrom(r)
	target := &domain.Target{
		OfficeID:      req.OfficeID,
		FinancialYear: req.FinancialYear,
		Targets:       req.Targets,
		Status:        domain.TargetStatusActive,
		SetBy:         user.ID,
		Notes:         req.Notes,
	}

	if err := h.repository.CreateTarget(target); err != nil {
		var pgErr *pgconn.PgError
		switch {
		case errors.As(err, &pgErr) && pgErr.ConstraintName == "targets_office_id_financial_year_key":
			h.conflict(w, r, CodeDuplicateEntry, "Targets for this office and financial year already exist")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.writeAudit(r, "Target", fmt.Sprint(target.ID), domain.AuditActionCreate, user.ID, user.Email, []domain.FieldChange{
		{Field: "financialYear", OldValue: nil, NewValue: target.FinancialYear},
		{Field: "targets", OldValue: nil, NewValue: target.Targets},
	})

	h.successResponse(w, r, http.StatusCreated, target)
}

func (h *Handler) GetTarget(w http.ResponseWriter, r *http.Request) {
	target := r.Context().Value(TargetRecordCtx).(*domain.Target)
	h.successResponse(w, r, http.StatusOK, target)
}

func (h *Handler) UpdateTarget(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Targets map[string]domain.TargetValue `json:"targets" validate:"omitempty,min=1"`
		Status  *string                       `json:"status" validate:"omitempty,oneof=active archived revised"`
		Notes   *string                       `json:"notes"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	target := r.Context().Value(TargetRecordCtx).(*domain.Target)
	user := h.currentUserFrom(r)

	changes := []domain.FieldChange{}
	if req.Targets != nil {
		changes = append(changes, domain.FieldChange{Field: "targets", OldValue: target.Targets, NewValue: req.Targets})
		target.Targets = req.Targets
		target.Status = domain.TargetStatusRevised
	}
	if req.Status != nil && domain.TargetStatus(*req.Status) != target.Status {
		changes = append(changes, domain.FieldChange{Field: "status", OldValue: string(target.Status), NewValue: *req.Status})
		target.Status = domain.TargetStatus(*req.Status)
	}
	if req.Notes != nil && *req.Notes != target.Notes {
		changes = append(changes, domain.FieldChange{Field: "notes", OldValue: target.Notes, NewValue: *req.Notes})
		target.Notes = *req.Notes
	}
	target.ApprovedBy = &user.ID

	if err := h.repository.UpdateTarget(target); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.conflict(w, r, CodeVersionConflict, "Target was modified concurrently, please retry")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.writeAudit(r, "Target", fmt.Sprint(target.ID), domain.AuditActionUpdate, user.ID, user.Email, changes)

	h.successResponse(w, r, http.StatusOK, target)
}
