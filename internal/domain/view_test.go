package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractVideoID(t *testing.T) {
	tests := map[string]string{
		"https://www.youtube.com/watch?v=dQw4w9WgXcQ":          "dQw4w9WgXcQ",
		"https://youtube.com/watch?v=dQw4w9WgXcQ&t=42s":        "dQw4w9WgXcQ",
		"https://m.youtube.com/watch?v=dQw4w9WgXcQ":            "dQw4w9WgXcQ",
		"https://youtu.be/dQw4w9WgXcQ":                         "dQw4w9WgXcQ",
		"https://www.youtube.com/embed/dQw4w9WgXcQ":            "dQw4w9WgXcQ",
		"https://www.youtube.com/shorts/dQw4w9WgXcQ":           "dQw4w9WgXcQ",
		"https://www.youtube.com/watch":                        "",
		"https://vimeo.com/123456":                             "",
		"not a url":                                            "",
		"":                                                     "",
		"https://www.youtube.com/watch?v=bad%20id":             "",
	}

	for in, want := range tests {
		t.Run(in, func(t *testing.T) {
			assert.Equal(t, want, ExtractVideoID(in))
		})
	}

	assert.Equal(t, "https://www.youtube.com/embed/dQw4w9WgXcQ", EmbedURL("https://youtu.be/dQw4w9WgXcQ"))
	assert.Equal(t, "", EmbedURL("https://vimeo.com/1"))
}

func TestNewSubmissionView_DisplayTimezone(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Kuala_Lumpur")
	require.NoError(t, err)

	ts := time.Date(2025, 3, 1, 2, 30, 0, 0, time.UTC)
	s := &Submission{
		ID:          uuid.New(),
		TeamName:    "Alpha",
		Author:      "Ada",
		Description: "fixed menu",
		ContentURL:  "https://store/img.png",
		Timestamp:   ts,
		Details:     BugFix{Number: 3},
	}

	v := NewSubmissionView(s, loc, ts.Add(3*time.Hour))
	assert.Equal(t, "Mar 1, 2025, 10:30:00 AM", v.DisplayTime)
	assert.Equal(t, "3 hours ago", v.SubmittedAgo)
	assert.Equal(t, 3, v.BugNumber)
	assert.Equal(t, "https://store/img.png", v.ScreenshotURL)
	assert.Equal(t, ts, v.Timestamp)
}

func TestBuildViews_StatusByRecency(t *testing.T) {
	now := time.Now()
	mk := func(d Details, age time.Duration) *Submission {
		return &Submission{ID: uuid.New(), TeamName: "Alpha", Author: "Ada", ContentURL: "https://x/y", Timestamp: now.Add(-age), Details: d}
	}

	subs := []*Submission{
		mk(BugFix{Number: 2}, time.Minute),
		mk(BugFix{Number: 1}, 2*time.Minute),
		mk(BugFix{Number: 2}, 3*time.Minute),
	}
	views := BuildViews(subs, time.UTC, now)
	require.Len(t, views, 3)
	assert.Equal(t, StatusLatest, views[0].Status)
	assert.Equal(t, StatusLatest, views[1].Status)
	assert.Equal(t, StatusOverwritten, views[2].Status)

	enh := BuildViews([]*Submission{mk(AdvancedEnhancement{Justification: "j"}, 0)}, time.UTC, now)
	assert.Equal(t, "", enh[0].Status)
	assert.Equal(t, "advanced", enh[0].EnhancementType)
	assert.Equal(t, "j", enh[0].Justification)

	video := BuildViews([]*Submission{{
		ID: uuid.New(), ContentURL: "https://youtu.be/dQw4w9WgXcQ", Timestamp: now,
		Details: PresentationVideo{VideoURL: "https://youtu.be/dQw4w9WgXcQ"},
	}}, time.UTC, now)
	assert.Equal(t, "https://www.youtube.com/embed/dQw4w9WgXcQ", video[0].EmbedURL)
	assert.Equal(t, ProjectPresentationVideo, video[0].SubmissionType)
}

func TestBuildBugCatalogue(t *testing.T) {
	views := []SubmissionView{
		{ID: "new", BugNumber: 3},
		{ID: "old", BugNumber: 3},
		{ID: "other", BugNumber: 1},
		{ID: "out-of-range", BugNumber: 11},
	}

	catalogue := BuildBugCatalogue(10, views)
	require.Len(t, catalogue, 10)
	assert.Equal(t, 1, catalogue[0].Number)
	assert.Equal(t, 1, catalogue[0].Submissions)
	assert.Equal(t, 2, catalogue[2].Submissions)
	assert.Equal(t, "new", catalogue[2].Latest.ID)
	assert.Nil(t, catalogue[9].Latest)
}
