package service

import (
	"context"
	"io"

	"compdash/internal/domain"
)

// TokenValidator turns a bearer token into a principal
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*domain.Principal, error)
}

// SessionService manages hosted-auth sessions
type SessionService interface {
	SignIn(ctx context.Context, req domain.SignInRequest) (*domain.Session, error)
	Refresh(ctx context.Context, req domain.RefreshRequest) (*domain.Session, error)
	SignOut(ctx context.Context, accessToken string) error
}

// ObjectStorage stores uploaded submission files
type ObjectStorage interface {
	// Upload stores body at path; it must not replace an existing object
	Upload(ctx context.Context, path, contentType string, body io.Reader) error

	// Remove deletes the object at path
	Remove(ctx context.Context, path string) error

	// PublicURL returns the public URL of the object at path
	PublicURL(path string) string
}

// VideoVerifier checks that a presentation video link points at a real video
type VideoVerifier interface {
	VerifyVideo(ctx context.Context, link string) (*domain.VideoInfo, error)
}

// Services aggregates the services the HTTP layer depends on
type Services struct {
	Auth       TokenValidator
	Sessions   SessionService
	Identity   *IdentityService
	Submission *SubmissionService
	Cache      *CacheService
}
