package container

import (
	"context"

	"compdash/internal/config"
	"compdash/internal/repository"
	"compdash/internal/service"
	"compdash/internal/service/auth"
	"compdash/internal/service/youtube"
	"compdash/pkg/database"
	"compdash/pkg/logger"
	"compdash/pkg/redis"
)

// Container holds all application dependencies
type Container struct {
	Config       *config.Config
	Logger       *logger.Logger
	DB           *database.PostgresDB
	RedisClient  *redis.Client
	Supabase     *service.SupabaseClient
	Repositories *repository.Repositories
	Services     *service.Services
}

// New wires repositories and services on top of an open database. Redis and
// YouTube verification are optional and skipped when not configured or
// unreachable.
func New(ctx context.Context, cfg *config.Config, logger *logger.Logger, db *database.PostgresDB) (*Container, error) {
	// Initialize Redis client if Redis URL is configured
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		client, err := redis.NewClient(cfg.RedisURL, cfg.Environment, logger.Logger)
		if err != nil {
			logger.WithError(err).Warn("Failed to initialize Redis client, using in-process cache")
		} else {
			redisClient = client
			logger.Info("Redis client initialized successfully")
		}
	} else {
		logger.Info("Redis URL not configured, using in-process cache")
	}

	repos := &repository.Repositories{
		Team:       repository.NewTeamRepository(db),
		Submission: repository.NewSubmissionRepository(db),
	}

	supabase := service.NewSupabaseClient(cfg, logger)
	authService := auth.NewService(cfg.SupabaseJWTSecret, supabase, logger)
	if cfg.SupabaseJWTSecret == "" {
		logger.Warn("SUPABASE_JWT_SECRET not set, every token is checked against the auth API")
	}

	var videos service.VideoVerifier
	if cfg.YouTubeAPIKey != "" {
		yt, err := youtube.NewService(ctx, cfg.YouTubeAPIKey, logger)
		if err != nil {
			logger.WithError(err).Warn("YouTube verification disabled")
		} else {
			videos = yt
		}
	}

	cache := service.NewCacheService(redisClient, cfg.TeamCacheTTL, logger.Logger)
	identity := service.NewIdentityService(repos.Team, cache, logger)

	submissions, err := service.NewSubmissionService(identity, repos.Submission, supabase, videos, cache,
		service.SubmissionConfig{
			MaxUploadBytes: cfg.MaxUploadBytes,
			BugCount:       cfg.BugCount,
			Location:       cfg.Location(),
		}, logger)
	if err != nil {
		if redisClient != nil {
			_ = redisClient.Close()
		}
		return nil, err
	}

	logger.WithFields(map[string]interface{}{
		"cache":          cache.Backend(),
		"video_verifier": videos != nil,
	}).Info("Services initialized")

	return &Container{
		Config:       cfg,
		Logger:       logger,
		DB:           db,
		RedisClient:  redisClient,
		Supabase:     supabase,
		Repositories: repos,
		Services: &service.Services{
			Auth:       authService,
			Sessions:   authService,
			Identity:   identity,
			Submission: submissions,
			Cache:      cache,
		},
	}, nil
}

// GetLogger returns the logger
func (c *Container) GetLogger() *logger.Logger {
	return c.Logger
}

// GetConfig returns the configuration
func (c *Container) GetConfig() *config.Config {
	return c.Config
}

// GetRedisClient returns the Redis client (may be nil if not configured)
func (c *Container) GetRedisClient() *redis.Client {
	return c.RedisClient
}

// HasRedis returns true if Redis client is available
func (c *Container) HasRedis() bool {
	return c.RedisClient != nil
}
