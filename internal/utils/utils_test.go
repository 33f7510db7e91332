package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateRandomPassword(t *testing.T) {
	password := GenerateRandomPassword(12)
	assert.Len(t, password, 12)
	assert.NotEqual(t, password, GenerateRandomPassword(12))
}

func TestGenerateRandomOTP(t *testing.T) {
	otp := GenerateRandomOTP()
	assert.Len(t, otp, 6)
	for _, c := range otp {
		assert.True(t, c >= '0' && c <= '9')
	}
}

func TestGenerateRandomEmployeeID(t *testing.T) {
	id := GenerateRandomEmployeeID()
	assert.True(t, strings.HasPrefix(id, "EMP"))
	assert.Len(t, id, 9)
}

func TestGenerateRandomUser(t *testing.T) {
	user, err := GenerateRandomUser("changeme123", "indiapost.gov.in")
	require.NoError(t, err)

	assert.True(t, strings.HasSuffix(user.Email, "@indiapost.gov.in"))
	assert.NotEmpty(t, user.FirstName)
	assert.NotEmpty(t, user.LastName)
	assert.NotEmpty(t, user.Department)
	assert.NotEmpty(t, user.PasswordHash)
	assert.NotEqual(t, "changeme123", user.PasswordHash)
	assert.False(t, user.IsActive)
}

func TestValidateFinancialYear(t *testing.T) {
	assert.NoError(t, ValidateFinancialYear("2025-26"))
	assert.NoError(t, ValidateFinancialYear("2099-00"))

	assert.Error(t, ValidateFinancialYear("2025-27"), "years must be consecutive")
	assert.Error(t, ValidateFinancialYear("2025"))
	assert.Error(t, ValidateFinancialYear("25-26"))
	assert.Error(t, ValidateFinancialYear("2025-2026"))
	assert.Error(t, ValidateFinancialYear("abcd-ef"))
}
