package domain

import (
	"net/url"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// DisplayLayout renders timestamps for people, e.g. "Jan 2, 2006, 3:04:05 PM"
const DisplayLayout = "Jan 2, 2006, 3:04:05 PM"

const (
	StatusLatest      = "latest"
	StatusOverwritten = "overwritten"
)

// SubmissionView is the flattened shape returned to the dashboard
type SubmissionView struct {
	ID              string    `json:"id"`
	Kind            Kind      `json:"kind"`
	TeamName        string    `json:"teamName"`
	Author          string    `json:"author"`
	BugNumber       int       `json:"bug_number,omitempty"`
	EnhancementType string    `json:"enhancement_type,omitempty"`
	Justification   string    `json:"justification,omitempty"`
	SubmissionType  string    `json:"submission_type,omitempty"`
	Description     string    `json:"description,omitempty"`
	Timestamp       time.Time `json:"timestamp"`
	DisplayTime     string    `json:"display_time"`
	SubmittedAgo    string    `json:"submitted_ago"`
	ScreenshotURL   string    `json:"screenshot_url,omitempty"`
	FileURL         string    `json:"file_url,omitempty"`
	EmbedURL        string    `json:"embed_url,omitempty"`
	Status          string    `json:"status,omitempty"`
}

// NewSubmissionView renders one submission for display in loc
func NewSubmissionView(s *Submission, loc *time.Location, now time.Time) SubmissionView {
	v := SubmissionView{
		ID:           s.ID.String(),
		Kind:         s.Kind(),
		TeamName:     s.TeamName,
		Author:       s.Author,
		Description:  s.Description,
		Timestamp:    s.Timestamp.UTC(),
		DisplayTime:  s.Timestamp.In(loc).Format(DisplayLayout),
		SubmittedAgo: humanize.RelTime(s.Timestamp, now, "ago", "from now"),
	}

	switch d := s.Details.(type) {
	case BugFix:
		v.BugNumber = d.Number
		v.ScreenshotURL = s.ContentURL
	case BasicEnhancement:
		v.EnhancementType = d.Category()
		v.ScreenshotURL = s.ContentURL
	case AdvancedEnhancement:
		v.EnhancementType = d.Category()
		v.Justification = d.Justification
		v.ScreenshotURL = s.ContentURL
	case BrainstormMap:
		v.SubmissionType = d.Category()
		v.FileURL = s.ContentURL
	case PresentationVideo:
		v.SubmissionType = d.Category()
		v.FileURL = s.ContentURL
		v.EmbedURL = EmbedURL(s.ContentURL)
	}

	return v
}

// BuildViews renders a newest-first history. Bugs and projects get a status:
// the newest record per category is latest, older ones are overwritten.
func BuildViews(subs []*Submission, loc *time.Location, now time.Time) []SubmissionView {
	views := make([]SubmissionView, 0, len(subs))
	seen := make(map[string]bool)

	for _, s := range subs {
		v := NewSubmissionView(s, loc, now)
		if s.Kind() == KindBug || s.Kind() == KindProject {
			key := string(s.Kind()) + ":" + s.Details.Category()
			if seen[key] {
				v.Status = StatusOverwritten
			} else {
				v.Status = StatusLatest
				seen[key] = true
			}
		}
		views = append(views, v)
	}

	return views
}

// ExtractVideoID returns the YouTube video id of link, or "" when link is not
// a recognisable YouTube URL.
func ExtractVideoID(link string) string {
	u, err := url.Parse(strings.TrimSpace(link))
	if err != nil || u.Host == "" {
		return ""
	}

	host := strings.TrimPrefix(strings.ToLower(u.Host), "www.")
	host = strings.TrimPrefix(host, "m.")
	path := strings.Trim(u.Path, "/")

	var id string
	switch host {
	case "youtu.be":
		id = path
	case "youtube.com", "youtube-nocookie.com":
		switch {
		case path == "watch":
			id = u.Query().Get("v")
		case strings.HasPrefix(path, "embed/"), strings.HasPrefix(path, "shorts/"), strings.HasPrefix(path, "live/"):
			id = path[strings.Index(path, "/")+1:]
		}
	}

	if strings.Contains(id, "/") || !validVideoID(id) {
		return ""
	}
	return id
}

// EmbedURL returns the embeddable player URL for a YouTube link
func EmbedURL(link string) string {
	id := ExtractVideoID(link)
	if id == "" {
		return ""
	}
	return "https://www.youtube.com/embed/" + id
}

func validVideoID(id string) bool {
	if len(id) < 6 || len(id) > 20 {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}

// BugStatus summarises a team's progress on one bug of the catalogue
type BugStatus struct {
	Number      int             `json:"bug_number"`
	Submissions int             `json:"submissions"`
	Latest      *SubmissionView `json:"latest,omitempty"`
}

// BuildBugCatalogue lists bugs 1..count with the team's latest fix for each
func BuildBugCatalogue(count int, views []SubmissionView) []BugStatus {
	catalogue := make([]BugStatus, count)
	for i := range catalogue {
		catalogue[i].Number = i + 1
	}

	for i := range views {
		n := views[i].BugNumber
		if n < 1 || n > count {
			continue
		}
		entry := &catalogue[n-1]
		entry.Submissions++
		if entry.Latest == nil {
			entry.Latest = &views[i]
		}
	}

	return catalogue
}

// VideoInfo describes a verified presentation video
type VideoInfo struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	ChannelTitle string `json:"channel_title"`
	Embeddable   bool   `json:"embeddable"`
}
