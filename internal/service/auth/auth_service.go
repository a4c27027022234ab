package auth

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"compdash/internal/domain"
	"compdash/pkg/errors"
	"compdash/pkg/logger"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
)

// authenticatedAudience is the audience Supabase puts on signed-in user tokens
const authenticatedAudience = "authenticated"

// Provider is the hosted auth API
type Provider interface {
	GetUser(ctx context.Context, accessToken string) (*domain.Principal, error)
	SignIn(ctx context.Context, email, password string) (*oauth2.Token, *domain.Principal, error)
	Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, *domain.Principal, error)
	SignOut(ctx context.Context, accessToken string) error
}

// Service validates bearer tokens and manages sessions
type Service struct {
	jwtSecret string
	provider  Provider
	logger    *logger.Logger
}

// NewService creates a new auth service. With an empty jwtSecret every token
// is checked against the provider.
func NewService(jwtSecret string, provider Provider, logger *logger.Logger) *Service {
	return &Service{
		jwtSecret: jwtSecret,
		provider:  provider,
		logger:    logger,
	}
}

// ValidateToken returns the principal behind an access token
func (s *Service) ValidateToken(ctx context.Context, token string) (*domain.Principal, error) {
	if token == "" {
		return nil, errors.NewAuthenticationError("Authorization token required")
	}

	if s.jwtSecret != "" && isJWTToken(token) {
		claims, err := s.validateSupabaseJWT(token)
		if err != nil {
			return nil, err
		}
		return &domain.Principal{UserID: claims.Sub, Email: claims.Email}, nil
	}

	s.logger.Debug("No JWT secret configured, asking auth provider")
	return s.provider.GetUser(ctx, token)
}

// validateSupabaseJWT verifies the HS256 signature and the claims of a Supabase access token
func (s *Service) validateSupabaseJWT(tokenString string) (*domain.AuthClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.jwtSecret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithAudience(authenticatedAudience),
		jwt.WithLeeway(30*time.Second),
	)
	if err != nil {
		s.logger.WithError(err).Info("Rejected access token")
		if stderrors.Is(err, jwt.ErrTokenExpired) {
			return nil, errors.NewAuthenticationError("Token has expired")
		}
		return nil, errors.NewAuthenticationError("Invalid or expired token")
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, errors.NewAuthenticationError("Invalid or expired token")
	}

	claims := &domain.AuthClaims{
		Sub:   getStringValue(mapClaims, "sub"),
		Email: getStringValue(mapClaims, "email"),
		Role:  getStringValue(mapClaims, "role"),
		Aud:   authenticatedAudience,
		Exp:   getInt64Value(mapClaims, "exp"),
	}

	if claims.Sub == "" || claims.Email == "" {
		s.logger.Info("Access token has no subject or email")
		return nil, errors.NewAuthenticationError("Invalid token: no user identifier")
	}

	return claims, nil
}

// SignIn exchanges credentials for a session
func (s *Service) SignIn(ctx context.Context, req domain.SignInRequest) (*domain.Session, error) {
	tok, principal, err := s.provider.SignIn(ctx, req.Email, req.Password)
	if err != nil {
		return nil, err
	}
	s.logger.WithField("user_id", principal.UserID).Info("User signed in")
	return newSession(tok, principal), nil
}

// Refresh renews a session from its refresh token
func (s *Service) Refresh(ctx context.Context, req domain.RefreshRequest) (*domain.Session, error) {
	tok, principal, err := s.provider.Refresh(ctx, req.RefreshToken)
	if err != nil {
		return nil, err
	}
	return newSession(tok, principal), nil
}

// SignOut ends the session behind accessToken
func (s *Service) SignOut(ctx context.Context, accessToken string) error {
	return s.provider.SignOut(ctx, accessToken)
}

func newSession(tok *oauth2.Token, principal *domain.Principal) *domain.Session {
	return &domain.Session{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.Type(),
		ExpiresAt:    tok.Expiry.UTC(),
		User:         *principal,
	}
}

// isJWTToken checks if the token has the three dot-separated JWT segments
func isJWTToken(token string) bool {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return false
	}
	for _, part := range parts {
		if part == "" {
			return false
		}
	}
	return true
}

func getStringValue(m map[string]interface{}, key string) string {
	if val, ok := m[key].(string); ok {
		return val
	}
	return ""
}

func getInt64Value(m map[string]interface{}, key string) int64 {
	if val, ok := m[key].(float64); ok {
		return int64(val)
	}
	return 0
}
