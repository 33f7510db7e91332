package repository

import (
	"encoding/json"
	"time"

	"github.com/dakghar-dev/postal-portal/backend/internal/domain"
)

func (r *Repository) getUserRoles(userID int64) ([]domain.RoleAssignment, error) {
	query := `
		SELECT id, role, office_id, delivery_center_id, permissions, is_active, valid_from, valid_until
		FROM user_roles WHERE user_id = $1
		ORDER BY id
	`

	ctx, cancel := r.queryContext()
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	roles := make([]domain.RoleAssignment, 0)
	for rows.Next() {
		var ra domain.RoleAssignment
		var permissions []byte
		dst := []any{&ra.ID, &ra.Role, &ra.OfficeID, &ra.DeliveryCenterID, &permissions, &ra.IsActive, &ra.ValidFrom, &ra.ValidUntil}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(permissions, &ra.Permissions); err != nil {
			return nil, err
		}
		roles = append(roles, ra)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return roles, nil
}

func (r *Repository) GetUserByID(id int64) (*domain.User, error) {
	query := `
		SELECT email, employee_id, first_name, last_name, phone, department, password_hash,
			is_active, email_verified, last_login_at, created_at, updated_at, version
		FROM users WHERE id = $1
	`

	ctx, cancel := r.queryContext()
	defer cancel()

	user := &domain.User{
		ID: id,
	}

	dst := []any{&user.Email, &user.EmployeeID, &user.FirstName, &user.LastName, &user.Phone, &user.Department, &user.PasswordHash, &user.IsActive, &user.EmailVerified, &user.LastLoginAt, &user.CreatedAt, &user.UpdatedAt, &user.Version}
	if err := r.dbpool.QueryRowContext(ctx, query, id).Scan(dst...); err != nil {
		return nil, err
	}

	roles, err := r.getUserRoles(id)
	if err != nil {
		return nil, err
	}
	user.Roles = roles

	return user, nil
}

func (r *Repository) GetUserByEmail(email string) (*domain.User, error) {
	query := `
		SELECT id, employee_id, first_name, last_name, phone, department, password_hash,
			is_active, email_verified, last_login_at, created_at, updated_at, version
		FROM users WHERE email = $1
	`

	ctx, cancel := r.queryContext()
	defer cancel()

	user := &domain.User{
		Email: email,
	}

	dst := []any{&user.ID, &user.EmployeeID, &user.FirstName, &user.LastName, &user.Phone, &user.Department, &user.PasswordHash, &user.IsActive, &user.EmailVerified, &user.LastLoginAt, &user.CreatedAt, &user.UpdatedAt, &user.Version}
	if err := r.dbpool.QueryRowContext(ctx, query, email).Scan(dst...); err != nil {
		return nil, err
	}

	roles, err := r.getUserRoles(user.ID)
	if err != nil {
		return nil, err
	}
	user.Roles = roles

	return user, nil
}

func (r *Repository) CreateUser(user *domain.User) error {
	query := `
		INSERT INTO users (email, employee_id, first_name, last_name, phone, department, password_hash, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, email_verified, created_at, updated_at, version
	`

	ctx, cancel := r.queryContext()
	defer cancel()

	args := []any{user.Email, user.EmployeeID, user.FirstName, user.LastName, user.Phone, user.Department, user.PasswordHash, user.IsActive}
	dst := []any{&user.ID, &user.EmailVerified, &user.CreatedAt, &user.UpdatedAt, &user.Version}
	if err := r.dbpool.QueryRowContext(ctx, query, args...).Scan(dst...); err != nil {
		return err
	}

	if user.Roles == nil {
		user.Roles = []domain.RoleAssignment{}
	}

	return nil
}

func (r *Repository) UpdateUser(user *domain.User) error {
	query := `
		UPDATE users
		SET
			first_name = $1,
			last_name = $2,
			phone = $3,
			department = $4,
			password_hash = $5,
			is_active = $6,
			email_verified = $7,
			updated_at = NOW(),
			version = version + 1
		WHERE id = $8 AND version = $9
		RETURNING updated_at, version
	`

	ctx, cancel := r.queryContext()
	defer cancel()

	args := []any{user.FirstName, user.LastName, user.Phone, user.Department, user.PasswordHash, user.IsActive, user.EmailVerified, user.ID, user.Version}
	if err := r.dbpool.QueryRowContext(ctx, query, args...).Scan(&user.UpdatedAt, &user.Version); err != nil {
		return err
	}

	return nil
}

func (r *Repository) UpdateUserLastLogin(id int64, at time.Time) error {
	query := `
		UPDATE users SET last_login_at = $1 WHERE id = $2
	`

	ctx, cancel := r.queryContext()
	defer cancel()

	if _, err := r.dbpool.ExecContext(ctx, query, at, id); err != nil {
		return err
	}

	return nil
}

func (r *Repository) GetAllUsers(onlyPending bool) ([]*domain.User, error) {
	query := `
		SELECT id, email, employee_id, first_name, last_name, phone, department, password_hash,
			is_active, email_verified, last_login_at, created_at, updated_at, version
		FROM users
	`
	if onlyPending {
		query += ` WHERE is_active = FALSE`
	}
	query += ` ORDER BY id`

	ctx, cancel := r.queryContext()
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]*domain.User, 0)
	for rows.Next() {
		user := &domain.User{}
		dst := []any{&user.ID, &user.Email, &user.EmployeeID, &user.FirstName, &user.LastName, &user.Phone, &user.Department, &user.PasswordHash, &user.IsActive, &user.EmailVerified, &user.LastLoginAt, &user.CreatedAt, &user.UpdatedAt, &user.Version}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, user := range users {
		roles, err := r.getUserRoles(user.ID)
		if err != nil {
			return nil, err
		}
		user.Roles = roles
	}

	return users, nil
}

// ReplaceUserRoles swaps the user's role assignments atomically.
func (r *Repository) ReplaceUserRoles(userID int64, roles []domain.RoleAssignment) error {
	ctx, cancel := r.queryContext()
	defer cancel()

	tx, err := r.dbpool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM user_roles WHERE user_id = $1`, userID); err != nil {
		return err
	}

	insert := `
		INSERT INTO user_roles (user_id, role, office_id, delivery_center_id, permissions, is_active, valid_from, valid_until)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`
	for i := range roles {
		ra := &roles[i]
		if ra.Permissions == nil {
			ra.Permissions = []string{}
		}
		permissions, err := json.Marshal(ra.Permissions)
		if err != nil {
			return err
		}
		args := []any{userID, ra.Role, ra.OfficeID, ra.DeliveryCenterID, permissions, ra.IsActive, ra.ValidFrom, ra.ValidUntil}
		if err := tx.QueryRowContext(ctx, insert, args...).Scan(&ra.ID); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *Repository) CheckUserExists(email string, employeeID string) (bool, error) {
	isExists := false

	ctx, cancel := r.queryContext()
	defer cancel()

	query := `
		SELECT EXISTS (SELECT 1 FROM users WHERE email = $1 OR employee_id = $2)
	`
	if err := r.dbpool.QueryRowContext(ctx, query, email, employeeID).Scan(&isExists); err != nil {
		return false, err
	}

	return isExists, nil
}
