package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"compdash/pkg/errors"

	"github.com/google/uuid"
)

// Kind discriminates the three submission variants
type Kind string

const (
	KindBug         Kind = "bug"
	KindEnhancement Kind = "enhancement"
	KindProject     Kind = "project"
)

// Kinds lists every submission kind
var Kinds = []Kind{KindBug, KindEnhancement, KindProject}

// ParseKind accepts the singular or plural form used in URLs
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "bug", "bugs":
		return KindBug, nil
	case "enhancement", "enhancements":
		return KindEnhancement, nil
	case "project", "projects", "submission", "submissions":
		return KindProject, nil
	}
	return "", errors.NewValidationError("Unknown submission kind", map[string]interface{}{"kind": s})
}

const (
	EnhancementBasic    = "basic"
	EnhancementAdvanced = "advanced"

	ProjectBrainstormMap     = "brainstorm map"
	ProjectPresentationVideo = "presentation video"
)

// Details holds the variant-specific fields of a submission. Each variant
// owns the fields it requires and validates them.
type Details interface {
	Kind() Kind
	// Category is the stored type discriminator: the bug number, the
	// enhancement type or the project submission type.
	Category() string
	// NeedsUpload reports whether the content reference comes from an upload
	NeedsUpload() bool
	Validate() error
}

// BugFix is a fix for one numbered bug of the mission pack
type BugFix struct {
	Number int `json:"bug_number"`
}

func (BugFix) Kind() Kind { return KindBug }
func (b BugFix) Category() string { return strconv.Itoa(b.Number) }
func (BugFix) NeedsUpload() bool { return true }
func (b BugFix) Validate() error {
	if b.Number < 1 {
		return fieldError("bug_number", "Bug number must be a positive number")
	}
	return nil
}

// BasicEnhancement needs nothing beyond the common fields
type BasicEnhancement struct{}

func (BasicEnhancement) Kind() Kind { return KindEnhancement }
func (BasicEnhancement) Category() string { return EnhancementBasic }
func (BasicEnhancement) NeedsUpload() bool { return true }
func (BasicEnhancement) Validate() error { return nil }

// AdvancedEnhancement must explain why it counts as advanced
type AdvancedEnhancement struct {
	Justification string `json:"justification"`
}

func (AdvancedEnhancement) Kind() Kind { return KindEnhancement }
func (AdvancedEnhancement) Category() string { return EnhancementAdvanced }
func (AdvancedEnhancement) NeedsUpload() bool { return true }
func (a AdvancedEnhancement) Validate() error {
	if strings.TrimSpace(a.Justification) == "" {
		return fieldError("justification", "A justification is required for an advanced enhancement")
	}
	return nil
}

// BrainstormMap is an uploaded image artifact
type BrainstormMap struct{}

func (BrainstormMap) Kind() Kind { return KindProject }
func (BrainstormMap) Category() string { return ProjectBrainstormMap }
func (BrainstormMap) NeedsUpload() bool { return true }
func (BrainstormMap) Validate() error { return nil }

// PresentationVideo references a hosted video; the link is the content
type PresentationVideo struct {
	VideoURL string `json:"video_url"`
}

func (PresentationVideo) Kind() Kind { return KindProject }
func (PresentationVideo) Category() string { return ProjectPresentationVideo }
func (PresentationVideo) NeedsUpload() bool { return false }
func (p PresentationVideo) Validate() error {
	if ExtractVideoID(p.VideoURL) == "" {
		return fieldError("video_url", "A valid YouTube link is required for a presentation video")
	}
	return nil
}

// NewDetails builds the variant for kind from loosely typed form input
func NewDetails(kind Kind, category, justification, videoURL string) (Details, error) {
	category = strings.ToLower(strings.TrimSpace(category))

	switch kind {
	case KindBug:
		n, err := strconv.Atoi(category)
		if err != nil {
			return nil, fieldError("bug_number", "Bug number must be a number")
		}
		return BugFix{Number: n}, nil
	case KindEnhancement:
		switch category {
		case EnhancementBasic:
			return BasicEnhancement{}, nil
		case EnhancementAdvanced:
			return AdvancedEnhancement{Justification: strings.TrimSpace(justification)}, nil
		}
		return nil, fieldError("enhancement_type", "Enhancement type must be basic or advanced")
	case KindProject:
		switch strings.ReplaceAll(category, "_", " ") {
		case ProjectBrainstormMap, "brainstormmap":
			return BrainstormMap{}, nil
		case ProjectPresentationVideo, "presentationvideo":
			return PresentationVideo{VideoURL: strings.TrimSpace(videoURL)}, nil
		}
		return nil, fieldError("submission_type", "Submission type must be brainstorm map or presentation video")
	}
	return nil, fieldError("kind", fmt.Sprintf("Unknown submission kind %q", kind))
}

// Submission is an immutable record of team-authored work
type Submission struct {
	ID          uuid.UUID `json:"id"`
	TeamName    string    `json:"team_name"`
	Author      string    `json:"author"`
	Description string    `json:"description,omitempty"`
	ContentURL  string    `json:"content_url"`
	Timestamp   time.Time `json:"timestamp"`
	Details     Details   `json:"details"`
}

// Kind returns the variant's kind
func (s *Submission) Kind() Kind {
	if s.Details == nil {
		return ""
	}
	return s.Details.Kind()
}

// Validate checks the fields every kind requires and then the variant's own
func (s *Submission) Validate() error {
	if err := s.ValidateDraft(); err != nil {
		return err
	}
	if s.ContentURL == "" {
		return fieldError("content_url", "Content reference is required")
	}
	return nil
}

// ValidateDraft validates everything except the content reference, which is
// only known once the upload has happened.
func (s *Submission) ValidateDraft() error {
	if s.Details == nil {
		return fieldError("kind", "Submission kind is required")
	}
	if s.TeamName == "" {
		return fieldError("team_name", "Team name is required")
	}
	if s.Author == "" {
		return fieldError("author", "Author is required")
	}
	if s.Kind() != KindProject && strings.TrimSpace(s.Description) == "" {
		return fieldError("description", "Description is required")
	}
	return s.Details.Validate()
}

func fieldError(field, message string) error {
	return errors.NewValidationError(message, map[string]interface{}{"field": field})
}

// SubmissionDraft is the loosely typed input of a new submission. Category is
// the bug number, the enhancement type or the project submission type.
type SubmissionDraft struct {
	Kind           Kind   `validate:"required,oneof=bug enhancement project"`
	Category       string `validate:"required,max=64"`
	Description    string `validate:"max=4000"`
	Justification  string `validate:"max=4000"`
	VideoURL       string `validate:"omitempty,url,max=2048"`
	IdempotencyKey string `validate:"max=128"`
}
