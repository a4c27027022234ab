package domain

import (
	"sort"
	"time"
)

// SlotRole identifies one member slot of a team record
type SlotRole string

const (
	SlotTeacher SlotRole = "teacher"
	SlotMember1 SlotRole = "member1"
	SlotMember2 SlotRole = "member2"
	SlotMember3 SlotRole = "member3"
)

// SlotRoles lists the slot roles in attribution priority order
var SlotRoles = []SlotRole{SlotTeacher, SlotMember1, SlotMember2, SlotMember3}

// MemberSlot is one (display name, contact email) pair of a team.
// Slot 0 is the teacher/mentor; member slots carry a parent's email.
type MemberSlot struct {
	Role  SlotRole `json:"role"`
	Name  string   `json:"name"`
	Email string   `json:"email,omitempty"`
}

// IsEmpty reports whether the slot has no contact email
func (s MemberSlot) IsEmpty() bool {
	return s.Email == ""
}

// Team represents a registered competition team
type Team struct {
	Name           string       `json:"team_name"`
	Slots          []MemberSlot `json:"slots"`
	SchoolName     string       `json:"school_name,omitempty"`
	Category       string       `json:"category,omitempty"`
	EducationLevel string       `json:"education_level,omitempty"`
	State          string       `json:"state,omitempty"`
	City           string       `json:"city,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
}

// AuthorFor returns the display name paired with email, scanning slots in
// priority order. The lowest-index matching slot wins.
func (t *Team) AuthorFor(email string) (string, bool) {
	if email == "" {
		return "", false
	}
	for _, slot := range t.Slots {
		if slot.Email == email {
			return slot.Name, true
		}
	}
	return "", false
}

// HasMember reports whether any slot carries email
func (t *Team) HasMember(email string) bool {
	_, ok := t.AuthorFor(email)
	return ok
}

// Redacted returns a copy of the team with every contact email except
// viewerEmail removed.
func (t *Team) Redacted(viewerEmail string) *Team {
	out := *t
	out.Slots = make([]MemberSlot, len(t.Slots))
	for i, slot := range t.Slots {
		if slot.Email != viewerEmail {
			slot.Email = ""
		}
		out.Slots[i] = slot
	}
	return &out
}

// MatchOutcome describes the result of matching an email against teams
type MatchOutcome int

const (
	MatchNone MatchOutcome = iota
	MatchOne
	MatchAmbiguous
)

// MatchTeam selects the unique team that has email in one of its slots.
// It returns MatchNone when no team matches and MatchAmbiguous, together with
// the sorted names of all matching teams, when more than one does.
func MatchTeam(teams []Team, email string) (*Team, MatchOutcome, []string) {
	var matched []*Team
	for i := range teams {
		if teams[i].HasMember(email) {
			matched = append(matched, &teams[i])
		}
	}

	switch len(matched) {
	case 0:
		return nil, MatchNone, nil
	case 1:
		return matched[0], MatchOne, nil
	}

	names := make([]string, 0, len(matched))
	for _, team := range matched {
		names = append(names, team.Name)
	}
	sort.Strings(names)
	return nil, MatchAmbiguous, names
}

// Identity is a principal resolved to its team and attributed display name
type Identity struct {
	Principal
	TeamName string `json:"team_name"`
	Author   string `json:"author"`
}

// UnknownAuthor is attributed when the principal's email matches no slot of
// its resolved team.
const UnknownAuthor = "Unknown"
