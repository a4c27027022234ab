package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"compdash/internal/repository"
	"compdash/internal/service"
	"compdash/pkg/database"
	"compdash/pkg/redis"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	// Load environment variables
	_ = godotenv.Load()

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var (
		databaseURL string
		redisURL    string
		environment string
		timeout     time.Duration
	)

	cmd := &cobra.Command{
		Use:           "migrate",
		Short:         "Manage the dashboard database schema and team roster",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&databaseURL, "database-url", os.Getenv("DATABASE_URL"), "Postgres connection URL")
	cmd.PersistentFlags().DurationVar(&timeout, "timeout", 2*time.Minute, "Overall timeout")
	cmd.PersistentFlags().StringVar(&redisURL, "redis-url", os.Getenv("REDIS_URL"), "Redis URL of the team cache to invalidate")
	cmd.PersistentFlags().StringVar(&environment, "environment", envOr("ENVIRONMENT", "production"), "Environment used for cache key prefixes")

	// withDB opens the database for one command and closes it afterwards
	withDB := func(run func(ctx context.Context, cmd *cobra.Command, db *database.PostgresDB) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			if databaseURL == "" {
				return fmt.Errorf("DATABASE_URL environment variable is not set")
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			db, err := database.NewPostgresDB(ctx, databaseURL, "")
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer db.Close()

			return run(ctx, cmd, db)
		}
	}

	// teamCache opens the server's team cache, or returns nil when redis is not configured
	teamCache := func() (*service.CacheService, func(), error) {
		if redisURL == "" {
			return nil, func() {}, nil
		}
		client, err := redis.NewClient(redisURL, environment, zap.NewNop())
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		return service.NewCacheService(client, 0, zap.NewNop()), func() { _ = client.Close() }, nil
	}

	cmd.AddCommand(upCmd(withDB), dropCmd(withDB), seedCmd(withDB, teamCache), auditCmd(withDB))
	return cmd
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

type dbRunner = func(run func(ctx context.Context, cmd *cobra.Command, db *database.PostgresDB) error) func(*cobra.Command, []string) error

func upCmd(withDB dbRunner) *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Create tables, indexes and views",
		RunE: withDB(func(ctx context.Context, cmd *cobra.Command, db *database.PostgresDB) error {
			if err := repository.Migrate(ctx, db.Pool); err != nil {
				return err
			}
			cmd.Println("✅ All tables created successfully")
			return nil
		}),
	}
}

func dropCmd(withDB dbRunner) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "drop",
		Short: "Drop every table, including all submissions",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to drop tables without --yes")
			}
			return nil
		},
		RunE: withDB(func(ctx context.Context, cmd *cobra.Command, db *database.PostgresDB) error {
			if err := repository.Drop(ctx, db.Pool); err != nil {
				return err
			}
			cmd.Println("✅ All tables dropped successfully")
			return nil
		}),
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm dropping all data")
	return cmd
}

func seedCmd(withDB dbRunner, teamCache func() (*service.CacheService, func(), error)) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Insert or update teams from a YAML roster",
		RunE: withDB(func(ctx context.Context, cmd *cobra.Command, db *database.PostgresDB) error {
			f, err := os.Open(file)
			if err != nil {
				return err
			}
			defer f.Close()

			teams, err := parseRoster(f)
			if err != nil {
				return fmt.Errorf("%s: %w", file, err)
			}

			cache, closeCache, err := teamCache()
			if err != nil {
				return err
			}
			defer closeCache()

			repo := repository.NewTeamRepository(db)
			for i := range teams {
				if err := repo.Upsert(ctx, &teams[i]); err != nil {
					return err
				}
				cmd.Printf("  Seeded team: %s\n", teams[i].Name)
			}

			if cache != nil {
				if err := invalidateCachedTeams(ctx, cache, teams); err != nil {
					cmd.Printf("⚠️  Team cache not cleared, stale entries expire on their own: %v\n", err)
				} else {
					cmd.Println("  Team cache cleared")
				}
			}

			conflicts := rosterConflicts(teams)
			for _, email := range sortedKeys(conflicts) {
				cmd.Printf("⚠️  %s is listed on %s and cannot submit\n", email, strings.Join(conflicts[email], ", "))
			}
			cmd.Printf("✅ %d teams seeded successfully\n", len(teams))
			return nil
		}),
	}

	cmd.Flags().StringVarP(&file, "file", "f", "teams.yaml", "YAML roster file")
	return cmd
}

func auditCmd(withDB dbRunner) *cobra.Command {
	return &cobra.Command{
		Use:   "audit",
		Short: "List emails registered on more than one team",
		RunE: withDB(func(ctx context.Context, cmd *cobra.Command, db *database.PostgresDB) error {
			shared, err := repository.NewTeamRepository(db).SharedEmails(ctx)
			if err != nil {
				return err
			}
			if len(shared) == 0 {
				cmd.Println("✅ Every email belongs to at most one team")
				return nil
			}

			for _, email := range sortedKeys(shared) {
				cmd.Printf("  %s: %s\n", email, strings.Join(shared[email], ", "))
			}
			return fmt.Errorf("%d emails are registered on more than one team", len(shared))
		}),
	}
}
