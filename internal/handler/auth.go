package handler

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dakghar-dev/postal-portal/backend/internal/domain"
	"github.com/dakghar-dev/postal-portal/backend/internal/utils"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/bcrypt"
)

// bcryptCost mirrors the portal's original hashing strength.
const bcryptCost = 12

func (h *Handler) setAuthCookie(w http.ResponseWriter, name string, value string, ttl time.Duration) {
	cookie := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   h.config.Environment == "production",
	}
	http.SetCookie(w, cookie)
}

func (h *Handler) clearAuthCookies(w http.ResponseWriter) {
	for _, name := range []string{"accessToken", "refreshToken"} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
		})
	}
}

// issueSession signs a token pair, records the session and sets both cookies.
func (h *Handler) issueSession(w http.ResponseWriter, user *domain.User) (accessToken string, refreshToken string, err error) {
	accessToken, refreshToken, err = h.tokens.IssuePair(user)
	if err != nil {
		return "", "", err
	}

	session := &domain.Session{
		ID:           uuid.NewString(),
		UserID:       user.ID,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    time.Now().Add(h.tokens.AccessTTL()),
	}
	if err := h.repository.CreateSession(session); err != nil {
		return "", "", err
	}

	h.setAuthCookie(w, "accessToken", accessToken, h.tokens.AccessTTL())
	h.setAuthCookie(w, "refreshToken", refreshToken, h.tokens.RefreshTTL())

	return accessToken, refreshToken, nil
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FirstName  string `json:"firstName" validate:"required,min=2"`
		LastName   string `json:"lastName" validate:"required,min=2"`
		Email      string `json:"email" validate:"required,email"`
		EmployeeID string `json:"employeeId" validate:"required,min=3"`
		Phone      string `json:"phone"`
		Department string `json:"department" validate:"required"`
		Password   string `json:"password" validate:"required,min=8"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	email := strings.ToLower(req.Email)

	exists, err := h.repository.CheckUserExists(email, req.EmployeeID)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}
	if exists {
		h.conflict(w, r, CodeUserExists, "User with this email or employee ID already exists")
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	// accounts start inactive and wait for admin approval
	user := &domain.User{
		Email:        email,
		EmployeeID:   req.EmployeeID,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Phone:        req.Phone,
		Department:   req.Department,
		PasswordHash: string(hashedPassword),
		IsActive:     false,
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
		Type: "registration_received",
		To:   user.Email,
		Data: domain.RegistrationReceivedMailData{
			FullName:   user.FullName(),
			EmployeeID: user.EmployeeID,
		},
	}); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.writeAudit(r, "User", fmt.Sprint(user.ID), domain.AuditActionCreate, user.ID, user.Email, []domain.FieldChange{
		{Field: "email", OldValue: nil, NewValue: user.Email},
		{Field: "isActive", OldValue: nil, NewValue: false},
	})

	h.successResponse(w, r, http.StatusCreated, map[string]any{
		"userId":  user.ID,
		"message": "Registration successful. Your account is pending approval.",
	})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required,min=6"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	user, err := h.repository.GetUserByEmail(strings.ToLower(req.Email))
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.unauthorized(w, r, CodeInvalidCredentials, "Invalid email or password")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	// inactive accounts cannot authenticate; the response is indistinguishable
	// from a wrong password
	if !user.IsActive {
		h.unauthorized(w, r, CodeInvalidCredentials, "Invalid email or password")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		switch {
		case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
			h.unauthorized(w, r, CodeInvalidCredentials, "Invalid email or password")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	accessToken, refreshToken, err := h.issueSession(w, user)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	now := time.Now()
	if err := h.repository.UpdateUserLastLogin(user.ID, now); err != nil {
		h.internalServerError(w, r, err)
		return
	}
	user.LastLoginAt = &now

	h.writeAudit(r, "User", fmt.Sprint(user.ID), domain.AuditActionLogin, user.ID, user.Email, nil)

	h.successResponse(w, r, http.StatusOK, map[string]any{
		"user":         user,
		"token":        accessToken,
		"refreshToken": refreshToken,
	})
}

// Refresh re-issues the token pair off a valid refresh cookie, re-checking the
// account's current state first.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie("refreshToken")
	if err != nil {
		h.unauthorized(w, r, CodeUnauthorized, "Authentication required")
		return
	}

	claims, err := h.tokens.Verify(cookie.Value, true)
	if err != nil {
		h.unauthorized(w, r, CodeUnauthorized, "Invalid or expired refresh token")
		return
	}

	sub, err := claims.UserID()
	if err != nil {
		h.unauthorized(w, r, CodeUnauthorized, "Invalid or expired refresh token")
		return
	}

	user, err := h.repository.GetUserByID(sub)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.unauthorized(w, r, CodeUnauthorized, "Account no longer exists")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}
	if !user.IsActive {
		h.unauthorized(w, r, CodeUnauthorized, "Account is deactivated")
		return
	}

	accessToken, refreshToken, err := h.issueSession(w, user)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, http.StatusOK, map[string]any{
		"token":        accessToken,
		"refreshToken": refreshToken,
	})
}

// Logout always reports success, whether or not a valid session existed, so
// the endpoint cannot be used to probe authentication state.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie("accessToken"); err == nil {
		if claims, err := h.tokens.Verify(cookie.Value, false); err == nil {
			if sub, err := claims.UserID(); err == nil {
				if err := h.repository.InvalidateUserSessions(sub); err != nil {
					h.logInternalServerError(r, err)
				} else {
					h.writeAudit(r, "User", fmt.Sprint(sub), domain.AuditActionLogout, sub, claims.Email, nil)
				}
			}
		}
	}

	h.clearAuthCookies(w)
	h.successResponse(w, r, http.StatusOK, nil)
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	user := h.currentUserFrom(r)

	sessions, err := h.repository.CountActiveSessions(user.ID)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, http.StatusOK, map[string]any{
		"user":           user,
		"activeSessions": sessions,
	})
}

func (h *Handler) RequireResetPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email" validate:"required,email"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	email := strings.ToLower(req.Email)

	user, err := h.repository.GetUserByEmail(email)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			// report success anyway so the endpoint cannot enumerate accounts
			h.successResponse(w, r, http.StatusOK, map[string]any{"message": "If the account exists, a reset code has been emailed."})
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	otp := utils.GenerateRandomOTP()

	ctx, cancel := context.WithTimeout(r.Context(), time.Duration(h.config.Redis.OperationExpiration)*time.Second)
	defer cancel()

	key := fmt.Sprintf("otp_%s_reset_password", user.Email)
	if err := h.redisClient.Set(ctx, key, otp, time.Duration(h.config.OTP.Expiration)*time.Second).Err(); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	if err := h.publishMail(domain.MailMessage{
		Type: "reset_password",
		To:   user.Email,
		Data: domain.ResetPasswordMailData{
			FullName:   user.FullName(),
			OTP:        otp,
			Expiration: h.config.OTP.Expiration / 60,
		},
	}); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, http.StatusOK, map[string]any{"message": "If the account exists, a reset code has been emailed."})
}

func (h *Handler) ConfirmResetPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email" validate:"required,email"`
		OTP      string `json:"otp" validate:"required,len=6"`
		Password string `json:"password" validate:"required,min=8"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	email := strings.ToLower(req.Email)

	ctx, cancel := context.WithTimeout(r.Context(), time.Duration(h.config.Redis.OperationExpiration)*time.Second)
	defer cancel()

	key := fmt.Sprintf("otp_%s_reset_password", email)
	otp, err := h.redisClient.Get(ctx, key).Result()
	if err != nil || otp != req.OTP {
		h.badRequest(w, r, errors.New("invalid or expired reset code"))
		return
	}

	user, err := h.repository.GetUserByEmail(email)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	user.PasswordHash = string(hashedPassword)
	if err := h.repository.UpdateUser(user); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.conflict(w, r, CodeVersionConflict, "Please retry")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	// a password change revokes every outstanding session
	if err := h.repository.InvalidateUserSessions(user.ID); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	if err := h.redisClient.Del(ctx, key).Err(); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, http.StatusOK, map[string]any{"message": "Password reset successful."})
}
