package handler

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/dakghar-dev/postal-portal/backend/internal/domain"
	"github.com/dakghar-dev/postal-portal/backend/internal/repository"
)

func (h *Handler) CreateDRMEntry(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OfficeID    int64   `json:"officeId" validate:"required"`
		Month       int     `json:"month" validate:"required,min=1,max=12"`
		Year        int     `json:"year" validate:"required,min=2000,max=2100"`
		Title       string  `json:"title" validate:"required"`
		Description string  `json:"description" validate:"required"`
		Category    string  `json:"category" validate:"required,oneof=revenue expenditure savings insurance other"`
		Amount      float64 `json:"amount" validate:"required,gt=0"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	user := h.currentUserFrom(r)
	if !user.CanActOnOffice(time.Now(), req.OfficeID, domain.RoleAdmin, domain.RoleOfficeUser, domain.RoleDeliveryCenterUser) {
		h.forbidden(w, r)
		return
	}

	entry := &domain.DRMEntry{
		OfficeID:    req.OfficeID,
		Month:       req.Month,
		Year:        req.Year,
		Title:       req.Title,
		Description: req.Description,
		Category:    domain.DRMCategory(req.Category),
		Amount:      req.Amount,
		Currency:    "INR",
		Workflow:    domain.DRMWorkflow{CreatedBy: user.ID},
	}

	if err := h.repository.CreateDRMEntry(entry); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.writeAudit(r, "DRMEntry", fmt.Sprint(entry.ID), domain.AuditActionCreate, user.ID, user.Email, []domain.FieldChange{
		{Field: "status", OldValue: nil, NewValue: string(domain.DRMStatusDraft)},
		{Field: "amount", OldValue: nil, NewValue: entry.Amount},
		{Field: "category", OldValue: nil, NewValue: string(entry.Category)},
	})

	h.successResponse(w, r, http.StatusCreated, entry)
}

func (h *Handler) GetDRMEntries(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := repository.DRMFilter{Page: 1, Limit: 20}
	if v := q.Get("officeId"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			h.badRequest(w, r, errors.New("invalid officeId"))
			return
		}
		filter.OfficeID = &id
	}
	if v := q.Get("status"); v != "" {
		status := domain.DRMStatus(v)
		filter.Status = &status
	}
	if v := q.Get("month"); v != "" {
		month, err := strconv.Atoi(v)
		if err != nil {
			h.badRequest(w, r, errors.New("invalid month"))
			return
		}
		filter.Month = &month
	}
	if v := q.Get("year"); v != "" {
		year, err := strconv.Atoi(v)
		if err != nil {
			h.badRequest(w, r, errors.New("invalid year"))
			return
		}
		filter.Year = &year
	}
	if v := q.Get("page"); v != "" {
		if page, err := strconv.Atoi(v); err == nil && page > 0 {
			filter.Page = page
		}
	}
	if v := q.Get("limit"); v != "" {
		if limit, err := strconv.Atoi(v); err == nil && limit > 0 && limit <= 100 {
			filter.Limit = limit
		}
	}

	entries, total, err := h.repository.GetDRMEntries(filter)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	totalPages := (total + filter.Limit - 1) / filter.Limit
	h.successResponse(w, r, http.StatusOK, map[string]any{
		"entries": entries,
		"pagination": map[string]any{
			"currentPage": filter.Page,
			"totalPages":  totalPages,
			"totalItems":  total,
			"hasNext":     filter.Page < totalPages,
			"hasPrev":     filter.Page > 1,
		},
	})
}

func (h *Handler) GetDRMEntry(w http.ResponseWriter, r *http.Request) {
	entry := r.Context().Value(DRMEntryCtx).(*domain.DRMEntry)
	h.successResponse(w, r, http.StatusOK, entry)
}

// UpdateDRMEntry edits content fields, allowed only while the entry is in
// Draft or Rejected.
func (h *Handler) UpdateDRMEntry(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title       *string  `json:"title"`
		Description *string  `json:"description"`
		Category    *string  `json:"category" validate:"omitempty,oneof=revenue expenditure savings insurance other"`
		Amount      *float64 `json:"amount" validate:"omitempty,gt=0"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	entry := r.Context().Value(DRMEntryCtx).(*domain.DRMEntry)
	user := h.currentUserFrom(r)

	if !user.CanActOnOffice(time.Now(), entry.OfficeID, domain.RoleAdmin, domain.RoleOfficeUser, domain.RoleDeliveryCenterUser) {
		h.forbidden(w, r)
		return
	}
	if !entry.Editable() {
		h.badRequest(w, r, domain.ErrEntryNotEditable)
		return
	}

	changes := []domain.FieldChange{}
	if req.Title != nil && *req.Title != entry.Title {
		changes = append(changes, domain.FieldChange{Field: "title", OldValue: entry.Title, NewValue: *req.Title})
		entry.Title = *req.Title
	}
	if req.Description != nil && *req.Description != entry.Description {
		changes = append(changes, domain.FieldChange{Field: "description", OldValue: entry.Description, NewValue: *req.Description})
		entry.Description = *req.Description
	}
	if req.Category != nil && domain.DRMCategory(*req.Category) != entry.Category {
		changes = append(changes, domain.FieldChange{Field: "category", OldValue: string(entry.Category), NewValue: *req.Category})
		entry.Category = domain.DRMCategory(*req.Category)
	}
	if req.Amount != nil && *req.Amount != entry.Amount {
		changes = append(changes, domain.FieldChange{Field: "amount", OldValue: entry.Amount, NewValue: *req.Amount})
		entry.Amount = *req.Amount
	}

	if err := h.repository.UpdateDRMEntry(entry); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.conflict(w, r, CodeVersionConflict, "Entry was modified concurrently, please retry")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.writeAudit(r, "DRMEntry", fmt.Sprint(entry.ID), domain.AuditActionUpdate, user.ID, user.Email, changes)

	h.successResponse(w, r, http.StatusOK, entry)
}

func (h *Handler) SubmitDRMEntry(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Comments string `json:"comments"`
	}
	// the body is optional on submission
	_ = h.readJSON(r, &req)

	entry := r.Context().Value(DRMEntryCtx).(*domain.DRMEntry)
	user := h.currentUserFrom(r)

	if !user.CanActOnOffice(time.Now(), entry.OfficeID, domain.RoleAdmin, domain.RoleOfficeUser, domain.RoleDeliveryCenterUser) {
		h.forbidden(w, r)
		return
	}

	oldStatus := entry.Status
	if err := entry.Submit(user.ID, time.Now()); err != nil {
		h.badRequest(w, r, err)
		return
	}

	if err := h.repository.UpdateDRMEntry(entry); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.conflict(w, r, CodeVersionConflict, "Entry was modified concurrently, please retry")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	comment := req.Comments
	if comment == "" {
		comment = "Entry submitted for scrutiny"
	}
	if err := h.repository.AddDRMComment(&domain.DRMComment{
		EntryID: entry.ID,
		UserID:  user.ID,
		Comment: comment,
		Type:    domain.DRMCommentReview,
	}); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.writeAudit(r, "DRMEntry", fmt.Sprint(entry.ID), domain.AuditActionUpdate, user.ID, user.Email, []domain.FieldChange{
		{Field: "status", OldValue: string(oldStatus), NewValue: string(entry.Status)},
	})

	h.successResponse(w, r, http.StatusOK, entry)
}

// ReviewDRMEntry advances or rejects a pending entry. An approval scrutinizes
// a Submitted entry or finalizes a Scrutinized one; a rejection needs a
// non-empty reason and reopens the entry for edits.
func (h *Handler) ReviewDRMEntry(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Action   string `json:"action" validate:"required,oneof=approve reject"`
		Comments string `json:"comments"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	entry := r.Context().Value(DRMEntryCtx).(*domain.DRMEntry)
	user := h.currentUserFrom(r)
	now := time.Now()
	oldStatus := entry.Status

	var commentType domain.DRMCommentType

	switch req.Action {
	case "approve":
		switch entry.Status {
		case domain.DRMStatusSubmitted:
			if !user.HasAnyRole(now, domain.RoleSupervisor, domain.RoleAdmin) {
				h.forbidden(w, r)
				return
			}
			if err := entry.Scrutinize(user.ID, now); err != nil {
				h.badRequest(w, r, err)
				return
			}
		case domain.DRMStatusScrutinized:
			if !user.HasRole(now, domain.RoleAdmin) {
				h.forbidden(w, r)
				return
			}
			if err := entry.Finalize(user.ID, now); err != nil {
				h.badRequest(w, r, err)
				return
			}
		default:
			h.badRequest(w, r, domain.ErrInvalidTransition)
			return
		}
		commentType = domain.DRMCommentApproval
	case "reject":
		if !user.HasAnyRole(now, domain.RoleSupervisor, domain.RoleAdmin) {
			h.forbidden(w, r)
			return
		}
		if err := entry.Reject(user.ID, now, req.Comments); err != nil {
			h.badRequest(w, r, err)
			return
		}
		commentType = domain.DRMCommentRejection
	}

	if err := h.repository.UpdateDRMEntry(entry); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.conflict(w, r, CodeVersionConflict, "Entry was modified concurrently, please retry")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	if req.Comments != "" {
		if err := h.repository.AddDRMComment(&domain.DRMComment{
			EntryID: entry.ID,
			UserID:  user.ID,
			Comment: req.Comments,
			Type:    commentType,
		}); err != nil {
			h.internalServerError(w, r, err)
			return
		}
	}

	h.writeAudit(r, "DRMEntry", fmt.Sprint(entry.ID), domain.AuditActionUpdate, user.ID, user.Email, []domain.FieldChange{
		{Field: "status", OldValue: string(oldStatus), NewValue: string(entry.Status)},
	})

	h.successResponse(w, r, http.StatusOK, entry)
}

func (h *Handler) GetDRMComments(w http.ResponseWriter, r *http.Request) {
	entry := r.Context().Value(DRMEntryCtx).(*domain.DRMEntry)

	comments, err := h.repository.GetDRMComments(entry.ID)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, http.StatusOK, comments)
}
