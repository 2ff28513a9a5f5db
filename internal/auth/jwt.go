package auth

import (
	"errors"
	"strconv"
	"time"

	"magaza-backend/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

const (
	tokenTTL    = 24 * time.Hour
	tokenIssuer = "magaza-backend"
)

var (
	ErrUnknownRole        = errors.New("token role is not recognized")
	ErrCashierWithoutBranch = errors.New("cashier token carries no branch")
)

// Claims oturum bilgisi. Kasiyer token'ı her zaman kendi şubesini taşır;
// admin token'ında şube yoktur.
type Claims struct {
	UserID   uint            `json:"user_id"`
	Email    string          `json:"email"`
	Role     models.UserRole `json:"role"`
	BranchID *uint           `json:"branch_id,omitempty"`
	jwt.RegisteredClaims
}

// Validate jwt kütüphanesi tarafından standart alanlardan sonra çağrılır.
func (c *Claims) Validate() error {
	if !c.Role.Valid() {
		return ErrUnknownRole
	}
	if c.Role == models.RoleCashier && (c.BranchID == nil || *c.BranchID == 0) {
		return ErrCashierWithoutBranch
	}
	return nil
}

func GenerateToken(secret string, user *models.User) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   strconv.FormatUint(uint64(user.ID), 10),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	// admin şubeye bağlı değildir; kayıtta şube kalmış olsa bile token'a yazılmaz
	if user.Role == models.RoleCashier {
		claims.BranchID = user.BranchID
	}
	if err := claims.Validate(); err != nil {
		return "", err
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// ParseToken imzayı, süreyi, yayıncıyı ve rol/şube bağını doğrular.
func ParseToken(secret, raw string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims,
		func(*jwt.Token) (interface{}, error) { return []byte(secret), nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, err
	}
	return claims, nil
}
