package auth

import (
	"testing"
	"time"

	"magaza-backend/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret-0123456789-0123456789-abc"

func sign(t *testing.T, method jwt.SigningMethod, claims *Claims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return tok
}

func registered(ttl time.Duration) jwt.RegisteredClaims {
	now := time.Now()
	return jwt.RegisteredClaims{
		Issuer:    tokenIssuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
}

func TestGenerateTokenBranchBinding(t *testing.T) {
	branchID := uint(7)

	tok, err := GenerateToken(secret, &models.User{ID: 3, Role: models.RoleCashier, BranchID: &branchID})
	require.NoError(t, err)
	claims, err := ParseToken(secret, tok)
	require.NoError(t, err)
	require.NotNil(t, claims.BranchID)
	assert.Equal(t, branchID, *claims.BranchID)
	assert.Equal(t, "3", claims.Subject)
	assert.Equal(t, tokenIssuer, claims.Issuer)

	// admin kaydında şube kalmış olsa da token şubesiz olur
	tok, err = GenerateToken(secret, &models.User{ID: 1, Role: models.RoleAdmin, BranchID: &branchID})
	require.NoError(t, err)
	claims, err = ParseToken(secret, tok)
	require.NoError(t, err)
	assert.Nil(t, claims.BranchID)

	_, err = GenerateToken(secret, &models.User{ID: 4, Role: models.RoleCashier})
	assert.ErrorIs(t, err, ErrCashierWithoutBranch)

	_, err = GenerateToken(secret, &models.User{ID: 5, Role: "super_admin"})
	assert.ErrorIs(t, err, ErrUnknownRole)
}

func TestParseTokenRejects(t *testing.T) {
	zero := uint(0)
	cases := []struct {
		name string
		tok  string
	}{
		{"şubesiz kasiyer", sign(t, jwt.SigningMethodHS256, &Claims{UserID: 2, Role: models.RoleCashier, RegisteredClaims: registered(time.Hour)})},
		{"sıfır şubeli kasiyer", sign(t, jwt.SigningMethodHS256, &Claims{UserID: 2, Role: models.RoleCashier, BranchID: &zero, RegisteredClaims: registered(time.Hour)})},
		{"bilinmeyen rol", sign(t, jwt.SigningMethodHS256, &Claims{UserID: 2, Role: "owner", RegisteredClaims: registered(time.Hour)})},
		{"süresi dolmuş", sign(t, jwt.SigningMethodHS256, &Claims{UserID: 1, Role: models.RoleAdmin, RegisteredClaims: registered(-time.Minute)})},
		{"süresiz", sign(t, jwt.SigningMethodHS256, &Claims{UserID: 1, Role: models.RoleAdmin, RegisteredClaims: jwt.RegisteredClaims{Issuer: tokenIssuer}})},
		{"başka yayıncı", sign(t, jwt.SigningMethodHS256, &Claims{UserID: 1, Role: models.RoleAdmin, RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "restoran",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		}})},
		{"başka algoritma", sign(t, jwt.SigningMethodHS512, &Claims{UserID: 1, Role: models.RoleAdmin, RegisteredClaims: registered(time.Hour)})},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseToken(secret, tc.tok)
			assert.Error(t, err)
		})
	}
}
