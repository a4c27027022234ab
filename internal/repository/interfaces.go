package repository

import (
	"context"

	"compdash/internal/domain"

	"github.com/google/uuid"
)

// TeamRepository reads registered teams. Team data is maintained outside this
// service; Upsert exists for seeding.
type TeamRepository interface {
	// FindByMemberEmail returns every team with email in any member slot
	FindByMemberEmail(ctx context.Context, email string) ([]domain.Team, error)

	// GetByName returns the team or nil when it does not exist
	GetByName(ctx context.Context, name string) (*domain.Team, error)

	// Upsert inserts or replaces a team keyed by its name
	Upsert(ctx context.Context, team *domain.Team) error
}

// SubmissionRepository persists immutable submission records, one table per kind
type SubmissionRepository interface {
	// Create inserts s and sets its server-assigned timestamp
	Create(ctx context.Context, s *domain.Submission) error

	// List returns the team's records of kind, newest first
	List(ctx context.Context, teamName string, kind domain.Kind) ([]*domain.Submission, error)

	// Get returns one record or nil when it does not exist
	Get(ctx context.Context, kind domain.Kind, id uuid.UUID) (*domain.Submission, error)

	// Delete removes one record and reports whether it existed
	Delete(ctx context.Context, kind domain.Kind, id uuid.UUID) (bool, error)
}

// Repositories aggregates all repository interfaces
type Repositories struct {
	Team       TeamRepository
	Submission SubmissionRepository
}
