package domain

import "time"

// Principal is the authenticated user behind a request
type Principal struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

// AuthClaims represents the claims carried by a hosted-auth access token
type AuthClaims struct {
	Sub   string `json:"sub"`
	Email string `json:"email"`
	Role  string `json:"role"`
	Aud   string `json:"aud"`
	Exp   int64  `json:"exp"`
}

// SignInRequest is the body of POST /api/auth/signin
type SignInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest is the body of POST /api/auth/refresh
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// Session is returned to clients after sign in or refresh
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	ExpiresAt    time.Time `json:"expires_at"`
	User         Principal `json:"user"`
}
