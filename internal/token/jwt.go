// Package token issues and validates the signed JWTs the API hands out.
// Access tokens are short-lived; refresh tokens only mint new access tokens.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"scubaai/internal/platform/config"
	id "scubaai/pkg/domain"
	dErrors "scubaai/pkg/domain-errors"
	authmw "scubaai/pkg/platform/middleware/auth"
)

// Token types carried in the custom claim. Refresh tokens must never pass the
// access-token middleware.
const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

// Claims represents the JWT claims for our tokens.
type Claims struct {
	UserID    string `json:"user_id"`
	IsAdmin   bool   `json:"is_admin"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// Service handles JWT creation and validation.
type Service struct {
	signingKey []byte
	issuer     string
	audience   string
	accessTTL  time.Duration
	refreshTTL time.Duration
	clock      func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock sets the clock function for testability.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// NewService builds a token service from configuration.
func NewService(cfg config.JWT, opts ...Option) *Service {
	s := &Service{
		signingKey: []byte(cfg.SigningKey),
		issuer:     cfg.Issuer,
		audience:   cfg.Audience,
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		clock:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AccessTTL exposes the configured access-token lifetime, used when revoking
// a JTI so the revocation entry outlives the token.
func (s *Service) AccessTTL() time.Duration {
	return s.accessTTL
}

// GenerateAccessToken mints a signed access token for the user.
func (s *Service) GenerateAccessToken(userID id.UserID, isAdmin bool) (string, error) {
	return s.generate(userID, isAdmin, TypeAccess, s.accessTTL)
}

// GenerateRefreshToken mints a signed refresh token for the user.
func (s *Service) GenerateRefreshToken(userID id.UserID, isAdmin bool) (string, error) {
	return s.generate(userID, isAdmin, TypeRefresh, s.refreshTTL)
}

func (s *Service) generate(userID id.UserID, isAdmin bool, tokenType string, ttl time.Duration) (string, error) {
	now := s.clock()
	newToken := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID:    userID.String(),
		IsAdmin:   isAdmin,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.issuer,
			Audience:  []string{s.audience},
			Subject:   userID.String(),
			ID:        uuid.NewString(),
		},
	})

	signedToken, err := newToken.SignedString(s.signingKey)
	if err != nil {
		return "", err
	}
	return signedToken, nil
}

// Validate parses a token of the expected type and returns its claims.
func (s *Service) Validate(tokenString, expectedType string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	}, jwt.WithTimeFunc(s.clock))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	if !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}

	if claims.TokenType != expectedType {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "wrong token type")
	}

	return claims, nil
}

// ValidateAccessToken satisfies the middleware's JWTValidator interface.
func (s *Service) ValidateAccessToken(tokenString string) (*authmw.JWTClaims, error) {
	claims, err := s.Validate(tokenString, TypeAccess)
	if err != nil {
		return nil, err
	}
	return &authmw.JWTClaims{
		UserID:  claims.UserID,
		IsAdmin: claims.IsAdmin,
		JTI:     claims.ID,
	}, nil
}

// ValidateRefreshToken validates a refresh token and returns its user ID.
func (s *Service) ValidateRefreshToken(tokenString string) (id.UserID, error) {
	claims, err := s.Validate(tokenString, TypeRefresh)
	if err != nil {
		return id.UserID{}, err
	}
	userID, err := id.ParseUserID(claims.UserID)
	if err != nil {
		return id.UserID{}, dErrors.New(dErrors.CodeUnauthorized, "invalid token subject")
	}
	return userID, nil
}
