package repository

import (
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dakghar-dev/postal-portal/backend/internal/domain"
)

func TestGetUserByEmail(t *testing.T) {
	repo, mock := newTestRepository(t)

	now := time.Now()
	mock.ExpectQuery("FROM users").
		WithArgs("clerk@indiapost.gov.in").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "employee_id", "first_name", "last_name", "phone", "department", "password_hash",
			"is_active", "email_verified", "last_login_at", "created_at", "updated_at", "version",
		}).AddRow(5, "EMP000123", "Asha", "Verma", "", "Counter Services", "hash",
			true, true, nil, now, now, 1))

	officeID := int64(3)
	mock.ExpectQuery("FROM user_roles").
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "role", "office_id", "delivery_center_id", "permissions", "is_active", "valid_from", "valid_until",
		}).AddRow(1, "OfficeUser", officeID, nil, []byte(`["drm:write"]`), true, now.Add(-time.Hour), nil))

	user, err := repo.GetUserByEmail("clerk@indiapost.gov.in")
	require.NoError(t, err)

	assert.Equal(t, int64(5), user.ID)
	assert.Equal(t, "EMP000123", user.EmployeeID)
	assert.True(t, user.IsActive)
	require.Len(t, user.Roles, 1)
	assert.Equal(t, domain.RoleOfficeUser, user.Roles[0].Role)
	require.NotNil(t, user.Roles[0].OfficeID)
	assert.Equal(t, officeID, *user.Roles[0].OfficeID)
	assert.Equal(t, []string{"drm:write"}, user.Roles[0].Permissions)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetUserByEmailNotFound(t *testing.T) {
	repo, mock := newTestRepository(t)

	mock.ExpectQuery("FROM users").
		WithArgs("ghost@indiapost.gov.in").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetUserByEmail("ghost@indiapost.gov.in")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateUserStaleVersion(t *testing.T) {
	repo, mock := newTestRepository(t)

	mock.ExpectQuery("UPDATE users").
		WillReturnRows(sqlmock.NewRows([]string{"updated_at", "version"}))

	user := &domain.User{ID: 5, Version: 3}
	err := repo.UpdateUser(user)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
