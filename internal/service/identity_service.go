package service

import (
	"context"

	"compdash/internal/domain"
	"compdash/internal/repository"
	"compdash/pkg/errors"
	"compdash/pkg/logger"
)

// IdentityService maps an authenticated principal to its team and to the
// display name its submissions are attributed to.
type IdentityService struct {
	teams  repository.TeamRepository
	cache  *CacheService
	logger *logger.Logger
}

func NewIdentityService(teams repository.TeamRepository, cache *CacheService, logger *logger.Logger) *IdentityService {
	return &IdentityService{teams: teams, cache: cache, logger: logger}
}

// ResolveTeam returns the name of the single team that lists email in one of
// its member slots. Matching is exact and case-sensitive.
func (s *IdentityService) ResolveTeam(ctx context.Context, email string) (string, error) {
	if email == "" {
		resolutionCounter.WithLabelValues("none").Inc()
		return "", errors.NewTeamNotFoundError(email)
	}
	return s.cache.GetTeamNameForEmail(ctx, email, s.resolveTeamFromDB)
}

func (s *IdentityService) resolveTeamFromDB(ctx context.Context, email string) (string, error) {
	teams, err := s.teams.FindByMemberEmail(ctx, email)
	if err != nil {
		resolutionCounter.WithLabelValues("error").Inc()
		return "", errors.NewStorageError("Failed to look up team", err)
	}

	team, outcome, names := domain.MatchTeam(teams, email)
	switch outcome {
	case domain.MatchNone:
		resolutionCounter.WithLabelValues("none").Inc()
		return "", errors.NewTeamNotFoundError(email)
	case domain.MatchAmbiguous:
		resolutionCounter.WithLabelValues("ambiguous").Inc()
		s.logger.WithField("teams", names).Warn("Email is registered on more than one team")
		return "", errors.NewAmbiguousTeamError(email, names)
	}

	resolutionCounter.WithLabelValues("one").Inc()
	return team.Name, nil
}

// ResolveAuthorName returns the display name of the first slot of teamName
// whose email equals email. It never fails: when the team cannot be fetched
// or no slot matches it returns domain.UnknownAuthor.
func (s *IdentityService) ResolveAuthorName(ctx context.Context, teamName, email string) string {
	team, err := s.cache.GetTeamWithCache(ctx, teamName, s.teams.GetByName)
	if err != nil {
		s.logger.WithError(err).WithField("team", teamName).Warn("Could not fetch team for attribution")
		unknownAuthorCounter.Inc()
		return domain.UnknownAuthor
	}
	if team == nil {
		unknownAuthorCounter.Inc()
		return domain.UnknownAuthor
	}

	name, ok := team.AuthorFor(email)
	if !ok || name == "" {
		unknownAuthorCounter.Inc()
		return domain.UnknownAuthor
	}
	return name
}

// Resolve resolves both the team and the author of principal
func (s *IdentityService) Resolve(ctx context.Context, principal *domain.Principal) (*domain.Identity, error) {
	if principal == nil {
		return nil, errors.NewAuthenticationError("Authentication required")
	}

	teamName, err := s.ResolveTeam(ctx, principal.Email)
	if err != nil {
		return nil, err
	}

	return &domain.Identity{
		Principal: *principal,
		TeamName:  teamName,
		Author:    s.ResolveAuthorName(ctx, teamName, principal.Email),
	}, nil
}

// GetTeam returns the caller's team with every other member's email masked
func (s *IdentityService) GetTeam(ctx context.Context, identity *domain.Identity) (*domain.Team, error) {
	team, err := s.cache.GetTeamWithCache(ctx, identity.TeamName, s.teams.GetByName)
	if err != nil {
		return nil, errors.NewStorageError("Failed to load team", err)
	}
	if team == nil {
		return nil, errors.NewNotFoundError("Team not found")
	}
	return team.Redacted(identity.Email), nil
}
