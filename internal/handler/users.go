package handler

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dakghar-dev/postal-portal/backend/internal/domain"
	"github.com/dakghar-dev/postal-portal/backend/internal/utils"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/bcrypt"
)

func (h *Handler) GetAllUsers(w http.ResponseWriter, r *http.Request) {
	onlyPending := r.URL.Query().Get("pending") == "true"

	users, err := h.repository.GetAllUsers(onlyPending)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, http.StatusOK, users)
}

// CreateUser lets an admin provision an account directly. The user starts
// active with a generated password that is delivered by mail.
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FirstName  string `json:"firstName" validate:"required,min=2"`
		LastName   string `json:"lastName" validate:"required,min=2"`
		Email      string `json:"email" validate:"required,email"`
		EmployeeID string `json:"employeeId" validate:"required,min=3"`
		Phone      string `json:"phone"`
		Department string `json:"department" validate:"required"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	password := utils.GenerateRandomPassword(12)
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	user := &domain.User{
		Email:        strings.ToLower(req.Email),
		EmployeeID:   req.EmployeeID,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Phone:        req.Phone,
		Department:   req.Department,
		PasswordHash: string(hashedPassword),
		IsActive:     true,
	}

	if err := h.repository.CreateUser(user); err != nil {
		var pgErr *pgconn.PgError
		switch {
		case errors.As(err, &pgErr) && (pgErr.ConstraintName == "users_email_key" || pgErr.ConstraintName == "users_employee_id_key"):
			h.conflict(w, r, CodeUserExists, "User with this email or employee ID already exists")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	if err := h.publishMail(domain.MailMessage{
		Type: "new_account",
		To:   user.Email,
		Data: domain.NewAccountMailData{FullName: user.FullName(), Email: user.Email, Password: password},
	}); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	actor := h.claimsFrom(r)
	actorID, _ := actor.UserID()
	h.writeAudit(r, "User", fmt.Sprint(user.ID), domain.AuditActionCreate, actorID, actor.Email, []domain.FieldChange{
		{Field: "email", OldValue: nil, NewValue: user.Email},
		{Field: "isActive", OldValue: nil, NewValue: true},
	})

	h.successResponse(w, r, http.StatusCreated, user)
}

func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	user := r.Context().Value(UserRecordCtx).(*domain.User)
	h.successResponse(w, r, http.StatusOK, user)
}

func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FirstName  *string `json:"firstName" validate:"omitempty,min=2"`
		LastName   *string `json:"lastName" validate:"omitempty,min=2"`
		Phone      *string `json:"phone"`
		Department *string `json:"department"`
		IsActive   *bool   `json:"isActive"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	user := r.Context().Value(UserRecordCtx).(*domain.User)

	changes := []domain.FieldChange{}
	if req.FirstName != nil && *req.FirstName != user.FirstName {
		changes = append(changes, domain.FieldChange{Field: "firstName", OldValue: user.FirstName, NewValue: *req.FirstName})
		user.FirstName = *req.FirstName
	}
	if req.LastName != nil && *req.LastName != user.LastName {
		changes = append(changes, domain.FieldChange{Field: "lastName", OldValue: user.LastName, NewValue: *req.LastName})
		user.LastName = *req.LastName
	}
	if req.Phone != nil && *req.Phone != user.Phone {
		changes = append(changes, domain.FieldChange{Field: "phone", OldValue: user.Phone, NewValue: *req.Phone})
		user.Phone = *req.Phone
	}
	if req.Department != nil && *req.Department != user.Department {
		changes = append(changes, domain.FieldChange{Field: "department", OldValue: user.Department, NewValue: *req.Department})
		user.Department = *req.Department
	}
	if req.IsActive != nil && *req.IsActive != user.IsActive {
		changes = append(changes, domain.FieldChange{Field: "isActive", OldValue: user.IsActive, NewValue: *req.IsActive})
		user.IsActive = *req.IsActive
	}

	if err := h.repository.UpdateUser(user); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.conflict(w, r, CodeVersionConflict, "User was modified concurrently, please retry")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	actor := h.claimsFrom(r)
	actorID, _ := actor.UserID()
	h.writeAudit(r, "User", fmt.Sprint(user.ID), domain.AuditActionUpdate, actorID, actor.Email, changes)

	h.successResponse(w, r, http.StatusOK, user)
}

// ActivateUser approves a pending registration and notifies the user.
func (h *Handler) ActivateUser(w http.ResponseWriter, r *http.Request) {
	user := r.Context().Value(UserRecordCtx).(*domain.User)

	if user.IsActive {
		h.successResponse(w, r, http.StatusOK, user)
		return
	}

	user.IsActive = true
	if err := h.repository.UpdateUser(user); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.conflict(w, r, CodeVersionConflict, "User was modified concurrently, please retry")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	if err := h.publishMail(domain.MailMessage{
		Type: "account_approved",
		To:   user.Email,
		Data: domain.AccountApprovedMailData{FullName: user.FullName()},
	}); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	actor := h.claimsFrom(r)
	actorID, _ := actor.UserID()
	h.writeAudit(r, "User", fmt.Sprint(user.ID), domain.AuditActionUpdate, actorID, actor.Email, []domain.FieldChange{
		{Field: "isActive", OldValue: false, NewValue: true},
	})

	h.successResponse(w, r, http.StatusOK, user)
}

// DeactivateUser is the "delete" operation; accounts are never hard-deleted.
func (h *Handler) DeactivateUser(w http.ResponseWriter, r *http.Request) {
	user := r.Context().Value(UserRecordCtx).(*domain.User)

	if user.IsActive {
		user.IsActive = false
		if err := h.repository.UpdateUser(user); err != nil {
			switch {
			case errors.Is(err, sql.ErrNoRows):
				h.conflict(w, r, CodeVersionConflict, "User was modified concurrently, please retry")
			default:
				h.internalServerError(w, r, err)
			}
			return
		}

		// a deactivated account keeps no live sessions
		if err := h.repository.InvalidateUserSessions(user.ID); err != nil {
			h.internalServerError(w, r, err)
			return
		}
	}

	actor := h.claimsFrom(r)
	actorID, _ := actor.UserID()
	h.writeAudit(r, "User", fmt.Sprint(user.ID), domain.AuditActionDelete, actorID, actor.Email, []domain.FieldChange{
		{Field: "isActive", OldValue: true, NewValue: false},
	})

	h.successResponse(w, r, http.StatusOK, nil)
}

func (h *Handler) ReplaceUserRoles(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Roles []struct {
			Role             string     `json:"role" validate:"required,oneof=Admin Supervisor OfficeUser DeliveryCenterUser"`
			OfficeID         *int64     `json:"officeId"`
			DeliveryCenterID *int64     `json:"deliveryCenterId"`
			Permissions      []string   `json:"permissions"`
			ValidFrom        *time.Time `json:"validFrom"`
			ValidUntil       *time.Time `json:"validUntil"`
		} `json:"roles" validate:"required,dive"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	user := r.Context().Value(UserRecordCtx).(*domain.User)

	roles := make([]domain.RoleAssignment, 0, len(req.Roles))
	for _, ra := range req.Roles {
		validFrom := time.Now()
		if ra.ValidFrom != nil {
			validFrom = *ra.ValidFrom
		}
		roles = append(roles, domain.RoleAssignment{
			Role:             domain.Role(ra.Role),
			OfficeID:         ra.OfficeID,
			DeliveryCenterID: ra.DeliveryCenterID,
			Permissions:      ra.Permissions,
			IsActive:         true,
			ValidFrom:        validFrom,
			ValidUntil:       ra.ValidUntil,
		})
	}

	if err := h.repository.ReplaceUserRoles(user.ID, roles); err != nil {
		h.internalServerError(w, r, err)
		return
	}
	user.Roles = roles

	actor := h.claimsFrom(r)
	actorID, _ := actor.UserID()
	h.writeAudit(r, "User", fmt.Sprint(user.ID), domain.AuditActionUpdate, actorID, actor.Email, []domain.FieldChange{
		{Field: "roles", OldValue: nil, NewValue: len(roles)},
	})

	h.successResponse(w, r, http.StatusOK, user)
}
