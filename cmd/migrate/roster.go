package main

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"compdash/internal/domain"

	"gopkg.in/yaml.v3"
)

type rosterPerson struct {
	Name  string `yaml:"name"`
	Email string `yaml:"email"`
}

type rosterTeam struct {
	Name           string         `yaml:"name"`
	School         string         `yaml:"school"`
	Category       string         `yaml:"category"`
	EducationLevel string         `yaml:"education_level"`
	State          string         `yaml:"state"`
	City           string         `yaml:"city"`
	Teacher        rosterPerson   `yaml:"teacher"`
	Members        []rosterPerson `yaml:"members"`
}

type roster struct {
	Teams []rosterTeam `yaml:"teams"`
}

// parseRoster reads a YAML roster. Member order is slot order.
func parseRoster(r io.Reader) ([]domain.Team, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var doc roster
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("invalid roster: %w", err)
	}

	memberRoles := domain.SlotRoles[1:]
	seen := make(map[string]bool, len(doc.Teams))
	teams := make([]domain.Team, 0, len(doc.Teams))

	for i, rt := range doc.Teams {
		name := strings.TrimSpace(rt.Name)
		if name == "" {
			return nil, fmt.Errorf("team %d has no name", i+1)
		}
		if seen[name] {
			return nil, fmt.Errorf("team %q is listed twice", name)
		}
		seen[name] = true

		if len(rt.Members) > len(memberRoles) {
			return nil, fmt.Errorf("team %q has %d members, at most %d are allowed", name, len(rt.Members), len(memberRoles))
		}

		team := domain.Team{
			Name:           name,
			SchoolName:     rt.School,
			Category:       rt.Category,
			EducationLevel: rt.EducationLevel,
			State:          rt.State,
			City:           rt.City,
			Slots: []domain.MemberSlot{
				{Role: domain.SlotTeacher, Name: rt.Teacher.Name, Email: strings.TrimSpace(rt.Teacher.Email)},
			},
		}
		for j, m := range rt.Members {
			team.Slots = append(team.Slots, domain.MemberSlot{
				Role:  memberRoles[j],
				Name:  m.Name,
				Email: strings.TrimSpace(m.Email),
			})
		}
		teams = append(teams, team)
	}

	return teams, nil
}

// rosterConflicts maps each email found on more than one team to those teams
func rosterConflicts(teams []domain.Team) map[string][]string {
	owners := make(map[string]map[string]bool)
	for _, team := range teams {
		for _, slot := range team.Slots {
			if slot.IsEmpty() {
				continue
			}
			if owners[slot.Email] == nil {
				owners[slot.Email] = make(map[string]bool)
			}
			owners[slot.Email][team.Name] = true
		}
	}

	conflicts := make(map[string][]string)
	for email, set := range owners {
		if len(set) < 2 {
			continue
		}
		names := make([]string, 0, len(set))
		for name := range set {
			names = append(names, name)
		}
		sort.Strings(names)
		conflicts[email] = names
	}
	return conflicts
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

type teamInvalidator interface {
	InvalidateTeam(ctx context.Context, team *domain.Team) error
}

// invalidateCachedTeams drops the cached record and email resolutions of
// every seeded team. It keeps going after a failure and returns the first one.
func invalidateCachedTeams(ctx context.Context, cache teamInvalidator, teams []domain.Team) error {
	var first error
	for i := range teams {
		if err := cache.InvalidateTeam(ctx, &teams[i]); err != nil && first == nil {
			first = fmt.Errorf("team %q: %w", teams[i].Name, err)
		}
	}
	return first
}
