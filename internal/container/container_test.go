package container

import (
	"context"
	"testing"
	"time"

	"compdash/internal/config"
	"compdash/pkg/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		Environment:     "test",
		SupabaseURL:     "https://project.supabase.co",
		SupabaseAnonKey: "anon",
		StorageBucket:   "submissions",
		DisplayTimezone: "Asia/Kuala_Lumpur",
		MaxUploadBytes:  5 << 20,
		BugCount:        10,
		TeamCacheTTL:    time.Minute,
	}
}

func TestNew(t *testing.T) {
	mr := miniredis.RunT(t)

	tests := []struct {
		name        string
		redisURL    string
		youtubeKey  string
		expectRedis bool
	}{
		{name: "Container without Redis configured"},
		{name: "Container with Redis configured", redisURL: "redis://" + mr.Addr(), expectRedis: true},
		{name: "Container with invalid Redis URL", redisURL: "invalid://redis-url"},
		{name: "Container with YouTube verification", youtubeKey: "test-api-key"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			cfg.RedisURL = tt.redisURL
			cfg.YouTubeAPIKey = tt.youtubeKey
			testLogger := logger.NewNop()

			container, err := New(context.Background(), cfg, testLogger, nil)
			require.NoError(t, err)
			require.NotNil(t, container)
			t.Cleanup(func() {
				if container.HasRedis() {
					_ = container.GetRedisClient().Close()
				}
			})

			assert.Equal(t, cfg, container.GetConfig())
			assert.Equal(t, testLogger, container.GetLogger())
			require.NotNil(t, container.Services)
			assert.NotNil(t, container.Services.Auth)
			assert.NotNil(t, container.Services.Sessions)
			assert.NotNil(t, container.Services.Identity)
			assert.NotNil(t, container.Services.Submission)
			assert.NotNil(t, container.Repositories.Team)
			assert.NotNil(t, container.Repositories.Submission)

			assert.Equal(t, tt.expectRedis, container.HasRedis())
			if tt.expectRedis {
				assert.Equal(t, "redis", container.Services.Cache.Backend())
			} else {
				assert.Equal(t, "memory", container.Services.Cache.Backend())
			}
		})
	}
}

func TestNew_CacheHealth(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig()
	cfg.RedisURL = "redis://" + mr.Addr()

	container, err := New(context.Background(), cfg, logger.NewNop(), nil)
	require.NoError(t, err)
	defer container.GetRedisClient().Close()

	assert.NoError(t, container.Services.Cache.HealthCheck(context.Background()))
	mr.Close()
	assert.Error(t, container.Services.Cache.HealthCheck(context.Background()))
}
