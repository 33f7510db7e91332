package repository

import (
	"github.com/dakghar-dev/postal-portal/backend/internal/domain"
)

func (r *Repository) CreateOffice(office *domain.Office) error {
	query := `
		INSERT INTO offices (name, code, street, city, state, pincode, phone, email, region, division_code)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, is_active, created_at, updated_at, version
	`

	ctx, cancel := r.queryContext()
	defer cancel()

	args := []any{office.Name, office.Code, office.Street, office.City, office.State, office.Pincode, office.Phone, office.Email, office.Region, office.DivisionCode}
	dst := []any{&office.ID, &office.IsActive, &office.CreatedAt, &office.UpdatedAt, &office.Version}
	if err := r.dbpool.QueryRowContext(ctx, query, args...).Scan(dst...); err != nil {
		return err
	}

	return nil
}

func (r *Repository) GetOfficeByID(id int64) (*domain.Office, error) {
	query := `
		SELECT name, code, street, city, state, pincode, phone, email, region, division_code,
			is_active, created_at, updated_at, version
		FROM offices WHERE id = $1
	`

	ctx, cancel := r.queryContext()
	defer cancel()

	office := &domain.Office{
		ID: id,
	}

	dst := []any{&office.Name, &office.Code, &office.Street, &office.City, &office.State, &office.Pincode, &office.Phone, &office.Email, &office.Region, &office.DivisionCode, &office.IsActive, &office.CreatedAt, &office.UpdatedAt, &office.Version}
	if err := r.dbpool.QueryRowContext(ctx, query, id).Scan(dst...); err != nil {
		return nil, err
	}

	return office, nil
}

func (r *Repository) GetAllOffices() ([]*domain.Office, error) {
	query := `
		SELECT id, name, code, street, city, state, pincode, phone, email, region, division_code,
			is_active, created_at, updated_at, version
		FROM offices
		ORDER BY code
	`

	ctx, cancel := r.queryContext()
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	offices := make([]*domain.Office, 0)
	for rows.Next() {
		office := &domain.Office{}
		dst := []any{&office.ID, &office.Name, &office.Code, &office.Street, &office.City, &office.State, &office.Pincode, &office.Phone, &office.Email, &office.Region, &office.DivisionCode, &office.IsActive, &office.CreatedAt, &office.UpdatedAt, &office.Version}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}
		offices = append(offices, office)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return offices, nil
}

func (r *Repository) UpdateOffice(office *domain.Office) error {
	query := `
		UPDATE offices
		SET
			name = $1,
			street = $2,
			city = $3,
			state = $4,
			pincode = $5,
			phone = $6,
			email = $7,
			region = $8,
			division_code = $9,
			is_active = $10,
			updated_at = NOW(),
			version = version + 1
		WHERE id = $11 AND version = $12
		RETURNING updated_at, version
	`

	ctx, cancel := r.queryContext()
	defer cancel()

	args := []any{office.Name, office.Street, office.City, office.State, office.Pincode, office.Phone, office.Email, office.Region, office.DivisionCode, office.IsActive, office.ID, office.Version}
	if err := r.dbpool.QueryRowContext(ctx, query, args...).Scan(&office.UpdatedAt, &office.Version); err != nil {
		return err
	}

	return nil
}
