package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{
		"PORT", "ALLOWED_ORIGINS", "DATABASE_URL", "DATABASE_READ_URL", "SUPABASE_URL",
		"SUPABASE_ANON_KEY", "SUPABASE_SERVICE_KEY", "STORAGE_BUCKET", "DISPLAY_TIMEZONE",
		"MAX_UPLOAD_BYTES", "BUG_COUNT", "TEAM_CACHE_TTL_SECONDS",
	} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.AllowedOrigins)
	assert.Equal(t, "submissions", cfg.StorageBucket)
	assert.Equal(t, "Asia/Kuala_Lumpur", cfg.DisplayTimezone)
	assert.Equal(t, int64(5<<20), cfg.MaxUploadBytes)
	assert.Equal(t, 10, cfg.BugCount)
	assert.Equal(t, 5*time.Minute, cfg.TeamCacheTTL)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://primary")
	t.Setenv("DATABASE_READ_URL", "")
	t.Setenv("SUPABASE_URL", "https://abc.supabase.co/")
	t.Setenv("SUPABASE_ANON_KEY", "anon")
	t.Setenv("SUPABASE_SERVICE_KEY", "")
	t.Setenv("BUG_COUNT", "12")
	t.Setenv("MAX_UPLOAD_BYTES", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres://primary", cfg.DatabaseReadURL, "read URL falls back to the write URL")
	assert.Equal(t, "https://abc.supabase.co", cfg.SupabaseURL)
	assert.Equal(t, "anon", cfg.SupabaseServiceKey, "service key falls back to the anon key")
	assert.Equal(t, 12, cfg.BugCount)
	assert.Equal(t, int64(5<<20), cfg.MaxUploadBytes)
}

func TestParseOrigins(t *testing.T) {
	assert.Equal(t, []string{}, parseOrigins(""))
	assert.Equal(t, []string{"a", "b"}, parseOrigins(" a , ,b "))
}

func TestLocation(t *testing.T) {
	cfg := &Config{DisplayTimezone: "Asia/Kuala_Lumpur"}
	assert.Equal(t, "Asia/Kuala_Lumpur", cfg.Location().String())

	cfg.DisplayTimezone = "Not/AZone"
	assert.Equal(t, time.UTC, cfg.Location())
}
