package repository

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/dakghar-dev/postal-portal/backend/internal/domain"
)

// AppendAuditLog writes one append-only row. Audit rows are never updated.
func (r *Repository) AppendAuditLog(entry *domain.AuditLog) error {
	if entry.Changes == nil {
		entry.Changes = []domain.FieldChange{}
	}
	changes, err := json.Marshal(entry.Changes)
	if err != nil {
		return err
	}

	if entry.RetentionDate.IsZero() {
		entry.RetentionDate = time.Now().AddDate(0, 0, r.cfg.Audit.RetentionDays)
	}

	query := `
		INSERT INTO audit_logs (entity_type, entity_id, action, user_id, user_email, changes, ip_address, request_id, endpoint, method, retention_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at
	`

	ctx, cancel := r.queryContext()
	defer cancel()

	args := []any{
		entry.EntityType, entry.EntityID, entry.Action, entry.UserID, entry.UserEmail,
		changes, entry.IPAddress, entry.RequestID, entry.Endpoint, entry.Method, entry.RetentionDate,
	}
	if err := r.dbpool.QueryRowContext(ctx, query, args...).Scan(&entry.ID, &entry.CreatedAt); err != nil {
		return err
	}

	return nil
}

// PruneExpiredAuditLogs deletes rows past their retention date. This is the
// only delete ever issued against audit_logs.
func (r *Repository) PruneExpiredAuditLogs() (int64, error) {
	query := `DELETE FROM audit_logs WHERE retention_date <= NOW()`

	ctx, cancel := r.queryContext()
	defer cancel()

	res, err := r.dbpool.ExecContext(ctx, query)
	if err != nil {
		return 0, err
	}

	return res.RowsAffected()
}

type AuditFilter struct {
	EntityType *string
	EntityID   *string
	UserID     *int64
	Action     *string
	Page       int
	Limit      int
}

func (r *Repository) GetAuditLogs(filter AuditFilter) ([]*domain.AuditLog, int, error) {
	conditions := []string{"1=1"}
	args := []any{}

	if filter.EntityType != nil {
		args = append(args, *filter.EntityType)
		conditions = append(conditions, fmt.Sprintf("entity_type = $%d", len(args)))
	}
	if filter.EntityID != nil {
		args = append(args, *filter.EntityID)
		conditions = append(conditions, fmt.Sprintf("entity_id = $%d", len(args)))
	}
	if filter.UserID != nil {
		args = append(args, *filter.UserID)
		conditions = append(conditions, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if filter.Action != nil {
		args = append(args, *filter.Action)
		conditions = append(conditions, fmt.Sprintf("action = $%d", len(args)))
	}
	where := strings.Join(conditions, " AND ")

	ctx, cancel := r.queryContext()
	defer cancel()

	var total int
	if err := r.dbpool.QueryRowContext(ctx, `SELECT COUNT(*) FROM audit_logs WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, filter.Limit, (filter.Page-1)*filter.Limit)
	query := `
		SELECT id, entity_type, entity_id, action, user_id, user_email, changes, ip_address, request_id, endpoint, method, retention_date, created_at
		FROM audit_logs
		WHERE ` + where + `
		ORDER BY created_at DESC, id DESC
		LIMIT $` + fmt.Sprint(len(args)-1) + ` OFFSET $` + fmt.Sprint(len(args))

	rows, err := r.dbpool.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	logs := make([]*domain.AuditLog, 0)
	for rows.Next() {
		entry := &domain.AuditLog{}
		var changes []byte
		dst := []any{
			&entry.ID, &entry.EntityType, &entry.EntityID, &entry.Action, &entry.UserID, &entry.UserEmail,
			&changes, &entry.IPAddress, &entry.RequestID, &entry.Endpoint, &entry.Method, &entry.RetentionDate, &entry.CreatedAt,
		}
		if err := rows.Scan(dst...); err != nil {
			return nil, 0, err
		}
		if err := json.Unmarshal(changes, &entry.Changes); err != nil {
			return nil, 0, err
		}
		logs = append(logs, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return logs, total, nil
}
