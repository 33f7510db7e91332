package handler

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	"github.com/dakghar-dev/postal-portal/backend/internal/domain"
	"github.com/jackc/pgx/v5/pgconn"
)

func (h *Handler) GetAllOffices(w http.ResponseWriter, r *http.Request) {
	offices, err := h.repository.GetAllOffices()
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, http.StatusOK, offices)
}

func (h *Handler) CreateOffice(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name         string `json:"name" validate:"required"`
		Code         string `json:"code" validate:"required"`
		Street       string `json:"street" validate:"required"`
		City         string `json:"city" validate:"required"`
		State        string `json:"state" validate:"required"`
		Pincode      string `json:"pincode" validate:"required,len=6"`
		Phone        string `json:"phone"`
		Email        string `json:"email" validate:"omitempty,email"`
		Region       string `json:"region"`
		DivisionCode string `json:"divisionCode"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	office := &domain.Office{
		Name:         req.Name,
		Code:         req.Code,
		Street:       req.Street,
		City:         req.City,
		State:        req.State,
		Pincode:      req.Pincode,
		Phone:        req.Phone,
		Email:        req.Email,
		Region:       req.Region,
		DivisionCode: req.DivisionCode,
	}

	if err := h.repository.CreateOffice(office); err != nil {
		var pgErr *pgconn.PgError
		switch {
		case errors.As(err, &pgErr) && pgErr.ConstraintName == "offices_code_key":
			h.conflict(w, r, CodeDuplicateEntry, "Office code already exists")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	actor := h.claimsFrom(r)
	actorID, _ := actor.UserID()
	h.writeAudit(r, "Office", fmt.Sprint(office.ID), domain.AuditActionCreate, actorID, actor.Email, []domain.FieldChange{
		{Field: "code", OldValue: nil, NewValue: office.Code},
		{Field: "name", OldValue: nil, NewValue: office.Name},
	})

	h.successResponse(w, r, http.StatusCreated, office)
}

func (h *Handler) GetOffice(w http.ResponseWriter, r *http.Request) {
	office := r.Context().Value(OfficeRecordCtx).(*domain.Office)
	h.successResponse(w, r, http.StatusOK, office)
}

func (h *Handler) UpdateOffice(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name         *string `json:"name"`
		Street       *string `json:"street"`
		City         *string `json:"city"`
		State        *string `json:"state"`
		Pincode      *string `json:"pincode" validate:"omitempty,len=6"`
		Phone        *string `json:"phone"`
		Email        *string `json:"email" validate:"omitempty,email"`
		Region       *string `json:"region"`
		DivisionCode *string `json:"divisionCode"`
		IsActive     *bool   `json:"isActive"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	office := r.Context().Value(OfficeRecordCtx).(*domain.Office)

	changes := []domain.FieldChange{}
	apply := func(field string, dst *string, src *string) {
		if src != nil && *src != *dst {
			changes = append(changes, domain.FieldChange{Field: field, OldValue: *dst, NewValue: *src})
			*dst = *src
		}
	}
	apply("name", &office.Name, req.Name)
	apply("street", &office.Street, req.Street)
	apply("city", &office.City, req.City)
	apply("state", &office.State, req.State)
	apply("pincode", &office.Pincode, req.Pincode)
	apply("phone", &office.Phone, req.Phone)
	apply("email", &office.Email, req.Email)
	apply("region", &office.Region, req.Region)
	apply("divisionCode", &office.DivisionCode, req.DivisionCode)
	if req.IsActive != nil && *req.IsActive != office.IsActive {
		changes = append(changes, domain.FieldChange{Field: "isActive", OldValue: office.IsActive, NewValue: *req.IsActive})
		office.IsActive = *req.IsActive
	}

	if err := h.repository.UpdateOffice(office); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.conflict(w, r, CodeVersionConflict, "Office was modified concurrently, please retry")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	actor := h.claimsFrom(r)
	actorID, _ := actor.UserID()
	h.writeAudit(r, "Office", fmt.Sprint(office.ID), domain.AuditActionUpdate, actorID, actor.Email, changes)

	h.successResponse(w, r, http.StatusOK, office)
}
