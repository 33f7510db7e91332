package repository

import (
	"encoding/json"

	"github.com/dakghar-dev/postal-portal/backend/internal/domain"
)

func (r *Repository) CreateTarget(target *domain.Target) error {
	targets, err := json.Marshal(target.Targets)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO targets (office_id, financial_year, targets, status, set_by, notes)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at, version
	`

	ctx, cancel := r.queryContext()
	defer cancel()

	args := []any{target.OfficeID, target.FinancialYear, targets, target.Status, target.SetBy, target.Notes}
	dst := []any{&target.ID, &target.CreatedAt, &target.UpdatedAt, &target.Version}
	if err := r.dbpool.QueryRowContext(ctx, query, args...).Scan(dst...); err != nil {
		return err
	}

	return nil
}

const targetColumns = `
	t.id, t.office_id, o.name, t.financial_year, t.targets, t.status, t.set_by, t.approved_by, t.notes,
	t.created_at, t.updated_at, t.version
`

func scanTarget(scan func(dst ...any) error) (*domain.Target, error) {
	target := &domain.Target{}
	var targets []byte
	var notes *string

	dst := []any{
		&target.ID, &target.OfficeID, &target.OfficeName, &target.FinancialYear, &targets, &target.Status,
		&target.SetBy, &target.ApprovedBy, &notes, &target.CreatedAt, &target.UpdatedAt, &target.Version,
	}
	if err := scan(dst...); err != nil {
		return nil, err
	}

	if err := json.Unmarshal(targets, &target.Targets); err != nil {
		return nil, err
	}
	if notes != nil {
		target.Notes = *notes
	}

	return target, nil
}

func (r *Repository) GetTargetByID(id int64) (*domain.Target, error) {
	query := `
		SELECT ` + targetColumns + `
		FROM targets t
		JOIN offices o ON o.id = t.office_id
		WHERE t.id = $1
	`

	ctx, cancel := r.queryContext()
	defer cancel()

	row := r.dbpool.QueryRowContext(ctx, query, id)
	return scanTarget(row.Scan)
}

func (r *Repository) GetAllTargets(officeID *int64) ([]*domain.Target, error) {
	query := `
		SELECT ` + targetColumns + `
		FROM targets t
		JOIN offices o ON o.id = t.office_id
	`
	args := []any{}
	if officeID != nil {
		query += ` WHERE t.office_id = $1`
		args = append(args, *officeID)
	}
	query += ` ORDER BY t.financial_year DESC, t.office_id`

	ctx, cancel := r.queryContext()
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	targets := make([]*domain.Target, 0)
	for rows.Next() {
		target, err := scanTarget(rows.Scan)
		if err != nil {
			return nil, err
		}
		targets = append(targets, target)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return targets, nil
}

func (r *Repository) UpdateTarget(target *domain.Target) error {
	targets, err := json.Marshal(target.Targets)
	if err != nil {
		return err
	}

	query := `
		UPDATE targets
		SET
			targets = $1,
			status = $2,
			approved_by = $3,
			notes = $4,
			updated_at = NOW(),
			version = version + 1
		WHERE id = $5 AND version = $6
		RETURNING updated_at, version
	`

	ctx, cancel := r.queryContext()
	defer cancel()

	args := []any{targets, target.Status, target.ApprovedBy, target.Notes, target.ID, target.Version}
	if err := r.dbpool.QueryRowContext(ctx, query, args...).Scan(&target.UpdatedAt, &target.Version); err != nil {
		return err
	}

	return nil
}
