package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/dakghar-dev/postal-portal/backend/internal/domain"
	"github.com/dakghar-dev/postal-portal/backend/internal/token"
	amqp "github.com/rabbitmq/amqp091-go"
)

func (h *Handler) claimsFrom(r *http.Request) *token.Claims {
	return r.Context().Value(ClaimsCtxKey).(*token.Claims)
}

func (h *Handler) currentUserFrom(r *http.Request) *domain.User {
	return r.Context().Value(CurrentUserCtxKey).(*domain.User)
}

func (h *Handler) requestIDFrom(r *http.Request) string {
	if id, ok := r.Context().Value(RequestIDCtxKey).(string); ok {
		return id
	}
	return ""
}

// publishMail queues a message for the mail worker.
func (h *Handler) publishMail(message domain.MailMessage) error {
	body, err := json.Marshal(message)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(h.config.RabbitMQ.PublishTimeout)*time.Second)
	defer cancel()

	return h.mailChannel.PublishWithContext(
		ctx,
		"",
		"email_queue",
		true,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		},
	)
}

// writeAudit appends an audit row for a mutation. Audit failures are logged
// but never fail the request that triggered them.
func (h *Handler) writeAudit(r *http.Request, entityType string, entityID string, action domain.AuditAction, userID int64, userEmail string, changes []domain.FieldChange) {
	entry := &domain.AuditLog{
		EntityType: entityType,
		EntityID:   entityID,
		Action:     action,
		UserID:     userID,
		UserEmail:  userEmail,
		Changes:    changes,
		IPAddress:  r.RemoteAddr,
		RequestID:  h.requestIDFrom(r),
		Endpoint:   r.URL.Path,
		Method:     r.Method,
	}
	if err := h.repository.AppendAuditLog(entry); err != nil {
		slog.Error("audit log write failed", "entityType", entityType, "entityId", entityID, "error", err)
	}
}
