package main

import (
	"context"
	"strings"
	"testing"
	"time"

	"compdash/internal/domain"
	"compdash/internal/service"
	"compdash/pkg/redis"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const sampleRoster = `
teams:
  - name: Alpha
    school: SK Alpha
    state: Selangor
    teacher: {name: Ada, email: t@x.com}
    members:
      - {name: Ben, email: p1@x.com}
      - {name: Cy, email: " p2@x.com "}
  - name: Beta
    teacher: {name: Bo, email: b@x.com}
    members:
      - {name: Bea, email: p1@x.com}
`

func TestParseRoster(t *testing.T) {
	teams, err := parseRoster(strings.NewReader(sampleRoster))
	require.NoError(t, err)
	require.Len(t, teams, 2)

	alpha := teams[0]
	assert.Equal(t, "Alpha", alpha.Name)
	assert.Equal(t, "SK Alpha", alpha.SchoolName)
	require.Len(t, alpha.Slots, 3)
	assert.Equal(t, domain.MemberSlot{Role: domain.SlotTeacher, Name: "Ada", Email: "t@x.com"}, alpha.Slots[0])
	assert.Equal(t, domain.SlotMember2, alpha.Slots[2].Role)
	assert.Equal(t, "p2@x.com", alpha.Slots[2].Email)

	assert.Equal(t, map[string][]string{"p1@x.com": {"Alpha", "Beta"}}, rosterConflicts(teams))
}

func TestParseRoster_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr string
	}{
		{name: "missing name", doc: "teams:\n  - teacher: {name: A, email: a@x.com}\n", wantErr: "has no name"},
		{name: "duplicate team", doc: "teams:\n  - name: A\n  - name: A\n", wantErr: "listed twice"},
		{
			name:    "too many members",
			doc:     "teams:\n  - name: A\n    members: [{name: a}, {name: b}, {name: c}, {name: d}]\n",
			wantErr: "at most 3",
		},
		{name: "unknown field", doc: "teams:\n  - name: A\n    coach: Z\n", wantErr: "invalid roster"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseRoster(strings.NewReader(tt.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRootCmd(t *testing.T) {
	cmd := rootCmd()
	names := make([]string, 0)
	for _, c := range cmd.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"up", "drop", "seed", "audit"}, names)

	cmd.SetArgs([]string{"drop", "--database-url", "postgres://unused"})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--yes")
}

func TestSortedKeys(t *testing.T) {
	conflicts := map[string][]string{
		"z@x.com": {"A", "B"},
		"a@x.com": {"C", "D"},
		"m@x.com": {"A", "C"},
	}
	for i := 0; i < 5; i++ {
		assert.Equal(t, []string{"a@x.com", "m@x.com", "z@x.com"}, sortedKeys(conflicts))
	}
}

func TestInvalidateCachedTeams(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := redis.NewClient("redis://"+mr.Addr(), "production", zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	cache := service.NewCacheService(client, time.Minute, zap.NewNop())
	ctx := context.Background()

	teams, err := parseRoster(strings.NewReader(sampleRoster))
	require.NoError(t, err)

	// the server cached p1 as Alpha before Beta listed it too
	_, err = cache.GetTeamNameForEmail(ctx, "p1@x.com",
		func(ctx context.Context, email string) (string, error) { return "Alpha", nil })
	require.NoError(t, err)
	_, err = cache.GetTeamWithCache(ctx, "Alpha",
		func(ctx context.Context, name string) (*domain.Team, error) { return &teams[0], nil })
	require.NoError(t, err)
	_, err = cache.GetTeamNameForEmail(ctx, "outsider@x.com",
		func(ctx context.Context, email string) (string, error) { return "Gamma", nil })
	require.NoError(t, err)
	require.Len(t, mr.Keys(), 3)

	require.NoError(t, invalidateCachedTeams(ctx, cache, teams))

	assert.Equal(t, []string{client.KeyBuilder.KeyTeamByEmail("outsider@x.com")}, mr.Keys())
}

func TestInvalidateCachedTeams_RedisDown(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := redis.NewClient("redis://"+mr.Addr(), "production", zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	cache := service.NewCacheService(client, time.Minute, zap.NewNop())
	mr.Close()

	teams, err := parseRoster(strings.NewReader(sampleRoster))
	require.NoError(t, err)

	err = invalidateCachedTeams(context.Background(), cache, teams)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `team "Alpha"`)
}
