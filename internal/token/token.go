package token

import (
	"errors"
	"strconv"
	"time"

	"github.com/dakghar-dev/postal-portal/backend/internal/config"
	"github.com/dakghar-dev/postal-portal/backend/internal/domain"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidToken is the single failure mode of verification: malformed input,
// a bad signature, an unexpected algorithm and an expired token all collapse
// into it so callers can fail closed without inspecting parser internals.
var ErrInvalidToken = errors.New("invalid token")

type Claims struct {
	Email string   `json:"email"`
	Roles []string `json:"roles"`
	jwt.RegisteredClaims
}

// UserID parses the subject claim back into the user's numeric ID.
func (c *Claims) UserID() (int64, error) {
	return strconv.ParseInt(c.Subject, 10, 64)
}

// Service issues and verifies the signed access/refresh token pair. Access
// tokens live 15 minutes, refresh tokens 7 days; each kind is signed with its
// own secret.
type Service struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

func NewService(cfg *config.Config) *Service {
	return &Service{
		accessSecret:  []byte(cfg.JWT.AccessSecret),
		refreshSecret: []byte(cfg.JWT.RefreshSecret),
		accessTTL:     time.Duration(cfg.JWT.AccessExpiration) * time.Second,
		refreshTTL:    time.Duration(cfg.JWT.RefreshExpiration) * time.Second,
	}
}

func (s *Service) sign(user *domain.User, secret []byte, ttl time.Duration, now time.Time) (string, error) {
	roles := user.EffectiveRoles(now)
	roleNames := make([]string, len(roles))
	for i, role := range roles {
		roleNames[i] = string(role)
	}

	claims := Claims{
		Email: user.Email,
		Roles: roleNames,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(user.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// IssuePair signs a fresh access/refresh token pair for the user.
func (s *Service) IssuePair(user *domain.User) (accessToken string, refreshToken string, err error) {
	now := time.Now()

	accessToken, err = s.sign(user, s.accessSecret, s.accessTTL, now)
	if err != nil {
		return "", "", err
	}
	refreshToken, err = s.sign(user, s.refreshSecret, s.refreshTTL, now)
	if err != nil {
		return "", "", err
	}

	return accessToken, refreshToken, nil
}

// Verify checks signature and expiry without touching the database. Handlers
// that need the authoritative account state load the user afterwards.
func (s *Service) Verify(tokenString string, refresh bool) (*Claims, error) {
	secret := s.accessSecret
	if refresh {
		secret = s.refreshSecret
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrInvalidToken
		}
		return secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" || claims.ExpiresAt == nil {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

func (s *Service) AccessTTL() time.Duration  { return s.accessTTL }
func (s *Service) RefreshTTL() time.Duration { return s.refreshTTL }
