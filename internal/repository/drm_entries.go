package repository

import (
	"fmt"
	"strings"

	"github.com/dakghar-dev/postal-portal/backend/internal/domain"
)

// CreateDRMEntry inserts a new Draft and assigns the next sequential entry
// number in the form DRM-<year>-NNNNNN.
func (r *Repository) CreateDRMEntry(entry *domain.DRMEntry) error {
	query := `
		INSERT INTO drm_entries (entry_number, office_id, month, year, title, description, category, amount, currency, status, created_by)
		VALUES (
			'DRM-' || $1::text || '-' || lpad(nextval('drm_entry_number_seq')::text, 6, '0'),
			$2, $3, $1, $4, $5, $6, $7, $8, 'Draft', $9
		)
		RETURNING id, entry_number, status, created_at, updated_at, version
	`

	ctx, cancel := r.queryContext()
	defer cancel()

	args := []any{entry.Year, entry.OfficeID, entry.Month, entry.Title, entry.Description, entry.Category, entry.Amount, entry.Currency, entry.Workflow.CreatedBy}
	dst := []any{&entry.ID, &entry.EntryNumber, &entry.Status, &entry.CreatedAt, &entry.UpdatedAt, &entry.Version}
	if err := r.dbpool.QueryRowContext(ctx, query, args...).Scan(dst...); err != nil {
		return err
	}

	entry.Workflow.CreatedAt = entry.CreatedAt

	return nil
}

const drmEntryColumns = `
	e.id, e.entry_number, e.office_id, o.name, e.month, e.year, e.title, e.description,
	e.category, e.amount, e.currency, e.status,
	e.created_by, e.created_at,
	e.submitted_by, e.submitted_at,
	e.scrutinized_by, e.scrutinized_at,
	e.finalized_by, e.finalized_at,
	e.rejected_by, e.rejected_at, e.rejection_reason,
	e.updated_at, e.version
`

func scanDRMEntry(scan func(dst ...any) error) (*domain.DRMEntry, error) {
	entry := &domain.DRMEntry{}
	var rejectionReason *string

	dst := []any{
		&entry.ID, &entry.EntryNumber, &entry.OfficeID, &entry.OfficeName, &entry.Month, &entry.Year, &entry.Title, &entry.Description,
		&entry.Category, &entry.Amount, &entry.Currency, &entry.Status,
		&entry.Workflow.CreatedBy, &entry.Workflow.CreatedAt,
		&entry.Workflow.SubmittedBy, &entry.Workflow.SubmittedAt,
		&entry.Workflow.ScrutinizedBy, &entry.Workflow.ScrutinizedAt,
		&entry.Workflow.FinalizedBy, &entry.Workflow.FinalizedAt,
		&entry.Workflow.RejectedBy, &entry.Workflow.RejectedAt, &rejectionReason,
		&entry.UpdatedAt, &entry.Version,
	}
	if err := scan(dst...); err != nil {
		return nil, err
	}

	if rejectionReason != nil {
		entry.Workflow.RejectionReason = *rejectionReason
	}
	entry.CreatedAt = entry.Workflow.CreatedAt

	return entry, nil
}

func (r *Repository) GetDRMEntryByID(id int64) (*domain.DRMEntry, error) {
	query := `
		SELECT ` + drmEntryColumns + `
		FROM drm_entries e
		JOIN offices o ON o.id = e.office_id
		WHERE e.id = $1
	`

	ctx, cancel := r.queryContext()
	defer cancel()

	row := r.dbpool.QueryRowContext(ctx, query, id)
	return scanDRMEntry(row.Scan)
}

type DRMFilter struct {
	OfficeID *int64
	Status   *domain.DRMStatus
	Month    *int
	Year     *int
	Page     int
	Limit    int
}

func (r *Repository) GetDRMEntries(filter DRMFilter) ([]*domain.DRMEntry, int, error) {
	conditions := []string{"1=1"}
	args := []any{}

	if filter.OfficeID != nil {
		args = append(args, *filter.OfficeID)
		conditions = append(conditions, fmt.Sprintf("e.office_id = $%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		conditions = append(conditions, fmt.Sprintf("e.status = $%d", len(args)))
	}
	if filter.Month != nil {
		args = append(args, *filter.Month)
		conditions = append(conditions, fmt.Sprintf("e.month = $%d", len(args)))
	}
	if filter.Year != nil {
		args = append(args, *filter.Year)
		conditions = append(conditions, fmt.Sprintf("e.year = $%d", len(args)))
	}
	where := strings.Join(conditions, " AND ")

	ctx, cancel := r.queryContext()
	defer cancel()

	var total int
	countQuery := `SELECT COUNT(*) FROM drm_entries e WHERE ` + where
	if err := r.dbpool.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, filter.Limit, (filter.Page-1)*filter.Limit)
	query := `
		SELECT ` + drmEntryColumns + `
		FROM drm_entries e
		JOIN offices o ON o.id = e.office_id
		WHERE ` + where + `
		ORDER BY e.created_at DESC, e.id DESC
		LIMIT $` + fmt.Sprint(len(args)-1) + ` OFFSET $` + fmt.Sprint(len(args))

	rows, err := r.dbpool.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	entries := make([]*domain.DRMEntry, 0)
	for rows.Next() {
		entry, err := scanDRMEntry(rows.Scan)
		if err != nil {
			return nil, 0, err
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return entries, total, nil
}

// UpdateDRMEntry persists content and workflow state under the optimistic
// version check. A stale version scans zero rows and surfaces as
// sql.ErrNoRows, which the handler maps to a version conflict.
func (r *Repository) UpdateDRMEntry(entry *domain.DRMEntry) error {
	query := `
		UPDATE drm_entries
		SET
			title = $1,
			description = $2,
			category = $3,
			amount = $4,
			status = $5,
			submitted_by = $6,
			submitted_at = $7,
			scrutinized_by = $8,
			scrutinized_at = $9,
			finalized_by = $10,
			finalized_at = $11,
			rejected_by = $12,
			rejected_at = $13,
			rejection_reason = $14,
			updated_at = NOW(),
			version = version + 1
		WHERE id = $15 AND version = $16
		RETURNING updated_at, version
	`

	ctx, cancel := r.queryContext()
	defer cancel()

	var rejectionReason *string
	if entry.Workflow.RejectionReason != "" {
		rejectionReason = &entry.Workflow.RejectionReason
	}

	args := []any{
		entry.Title, entry.Description, entry.Category, entry.Amount, entry.Status,
		entry.Workflow.SubmittedBy, entry.Workflow.SubmittedAt,
		entry.Workflow.ScrutinizedBy, entry.Workflow.ScrutinizedAt,
		entry.Workflow.FinalizedBy, entry.Workflow.FinalizedAt,
		entry.Workflow.RejectedBy, entry.Workflow.RejectedAt, rejectionReason,
		entry.ID, entry.Version,
	}
	if err := r.dbpool.QueryRowContext(ctx, query, args...).Scan(&entry.UpdatedAt, &entry.Version); err != nil {
		return err
	}

	return nil
}

func (r *Repository) AddDRMComment(comment *domain.DRMComment) error {
	query := `
		INSERT INTO drm_comments (entry_id, user_id, comment, type)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`

	ctx, cancel := r.queryContext()
	defer cancel()

	args := []any{comment.EntryID, comment.UserID, comment.Comment, comment.Type}
	if err := r.dbpool.QueryRowContext(ctx, query, args...).Scan(&comment.ID, &comment.CreatedAt); err != nil {
		return err
	}

	return nil
}

func (r *Repository) GetDRMComments(entryID int64) ([]*domain.DRMComment, error) {
	query := `
		SELECT id, user_id, comment, type, created_at
		FROM drm_comments
		WHERE entry_id = $1
		ORDER BY created_at
	`

	ctx, cancel := r.queryContext()
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, entryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	comments := make([]*domain.DRMComment, 0)
	for rows.Next() {
		comment := &domain.DRMComment{EntryID: entryID}
		if err := rows.Scan(&comment.ID, &comment.UserID, &comment.Comment, &comment.Type, &comment.CreatedAt); err != nil {
			return nil, err
		}
		comments = append(comments, comment)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return comments, nil
}

// CountDRMEntriesByStatus powers the dashboard roll-up.
func (r *Repository) CountDRMEntriesByStatus(officeID *int64) (map[domain.DRMStatus]int, error) {
	query := `
		SELECT status, COUNT(*) FROM drm_entries
	`
	args := []any{}
	if officeID != nil {
		query += ` WHERE office_id = $1`
		args = append(args, *officeID)
	}
	query += ` GROUP BY status`

	ctx, cancel := r.queryContext()
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[domain.DRMStatus]int)
	for rows.Next() {
		var status domain.DRMStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}

	return counts, rows.Err()
}
