package admin

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cloo-solutions/voicerag/internal/config"
	"github.com/cloo-solutions/voicerag/internal/database"
	"github.com/cloo-solutions/voicerag/internal/logging"
)

func MigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
		Long:  "Apply, roll back, or inspect database migrations",
	}

	cmd.PersistentFlags().String("dir", "", "Migrations directory (overrides VOICERAG_MIGRATIONS_DIR)")
	cmd.AddCommand(migrateUpCmd())
	cmd.AddCommand(migrateDownCmd())
	cmd.AddCommand(migrateStatusCmd())

	return cmd
}

func migrateUpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, dir, err := migrationTarget(cmd)
			if err != nil {
				return err
			}
			logger, err := logging.New(cfg.LogLevel, cfg.Debug)
			if err != nil {
				return err
			}
			status, err := database.Migrate(cfg.DatabaseURL, dir, logger)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Schema at version %d\n", status.Version)
			return nil
		},
	}
}

func migrateDownCmd() *cobra.Command {
	var steps int

	cmd := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, dir, err := migrationTarget(cmd)
			if err != nil {
				return err
			}
			if err := database.MigrateDown(cfg.DatabaseURL, dir, steps); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Rolled back %d migration(s)\n", steps)
			return nil
		},
	}

	cmd.Flags().IntVar(&steps, "steps", 1, "Number of migrations to roll back")
	return cmd
}

func migrateStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the current schema version",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, dir, err := migrationTarget(cmd)
			if err != nil {
				return err
			}
			version, dirty, err := database.Version(cfg.DatabaseURL, dir)
			if err != nil {
				return err
			}
			state := "clean"
			if dirty {
				state = "dirty"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Version: %d (%s)\n", version, state)
			return nil
		},
	}
}

func migrationTarget(cmd *cobra.Command) (*config.Config, string, error) {
	cfg, err := config.LoadUnvalidated()
	if err != nil {
		return nil, "", fmt.Errorf("failed to load config: %w", err)
	}
	dir, _ := cmd.Flags().GetString("dir")
	if dir == "" {
		dir = cfg.MigrationsDir
	}
	return cfg, dir, nil
}
