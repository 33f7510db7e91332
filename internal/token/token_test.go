package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dakghar-dev/postal-portal/backend/internal/config"
	"github.com/dakghar-dev/postal-portal/backend/internal/domain"
)

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.JWT.AccessSecret = "test-access-secret"
	cfg.JWT.RefreshSecret = "test-refresh-secret"
	cfg.JWT.AccessExpiration = 900
	cfg.JWT.RefreshExpiration = 604800
	return cfg
}

func testUser() *domain.User {
	return &domain.User{
		ID:    42,
		Email: "clerk@indiapost.gov.in",
		Roles: []domain.RoleAssignment{
			{Role: domain.RoleOfficeUser, IsActive: true, ValidFrom: time.Now().Add(-time.Hour)},
		},
	}
}

func TestIssuePairAndVerify(t *testing.T) {
	svc := NewService(testConfig())

	access, refresh, err := svc.IssuePair(testUser())
	require.NoError(t, err)
	require.NotEmpty(t, access)
	require.NotEmpty(t, refresh)
	assert.NotEqual(t, access, refresh)

	claims, err := svc.Verify(access, false)
	require.NoError(t, err)
	assert.Equal(t, "clerk@indiapost.gov.in", claims.Email)
	assert.Equal(t, []string{"OfficeUser"}, claims.Roles)

	sub, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, int64(42), sub)

	claims, err = svc.Verify(refresh, true)
	require.NoError(t, err)
	assert.Equal(t, "clerk@indiapost.gov.in", claims.Email)
}

func TestVerifyRejectsWrongTokenKind(t *testing.T) {
	svc := NewService(testConfig())

	access, refresh, err := svc.IssuePair(testUser())
	require.NoError(t, err)

	// each kind is signed with its own secret, so they are not interchangeable
	_, err = svc.Verify(access, true)
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = svc.Verify(refresh, false)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsTamperedToken(t *testing.T) {
	svc := NewService(testConfig())

	access, _, err := svc.IssuePair(testUser())
	require.NoError(t, err)

	_, err = svc.Verify(access+"x", false)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = svc.Verify("not-a-token", false)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = svc.Verify("", false)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	cfg := testConfig()
	cfg.JWT.AccessExpiration = -60
	svc := NewService(cfg)

	access, _, err := svc.IssuePair(testUser())
	require.NoError(t, err)

	_, err = svc.Verify(access, false)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsForeignSignature(t *testing.T) {
	svc := NewService(testConfig())

	otherCfg := testConfig()
	otherCfg.JWT.AccessSecret = "another-secret"
	other := NewService(otherCfg)

	access, _, err := other.IssuePair(testUser())
	require.NoError(t, err)

	_, err = svc.Verify(access, false)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
