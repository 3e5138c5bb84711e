package admin

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/cloo-solutions/voicerag/internal/config"
	"github.com/cloo-solutions/voicerag/internal/database"
	"github.com/cloo-solutions/voicerag/internal/repository"
	"github.com/cloo-solutions/voicerag/internal/service"
)

func UserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage users",
		Long:  "Create, list, and delete users",
	}

	cmd.AddCommand(UserCreateCmd())
	cmd.AddCommand(UserListCmd())
	cmd.AddCommand(UserDeleteCmd())

	return cmd
}

func UserCreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create <email>",
		Short: "Create a new user",
		Long:  "Create a new user identified by email",
		Args:  cobra.ExactArgs(1),
		RunE:  runUserCreate,
	}

	cmd.Flags().StringP("name", "n", "", "Display name")
	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")

	return cmd
}

func runUserCreate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	name, _ := cmd.Flags().GetString("name")
	outputFormat, _ := cmd.Flags().GetString("output")

	pool, err := getDBPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	authSvc := newAuthService(pool)
	user, err := authSvc.CreateUser(ctx, args[0], name)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	if outputFormat == "json" {
		return printJSON(cmd, map[string]any{
			"id":         user.ID,
			"email":      user.Email,
			"name":       user.Name,
			"created_at": user.CreatedAt,
		})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "User created: %s (%s)\n", user.Email, user.ID)
	return nil
}

func UserListCmd() *cobra.Command {
	var (
		limit  int
		cursor string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List users",
		Long:  "List all users in the system",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			outputFormat, _ := cmd.Flags().GetString("output")

			pool, err := getDBPool(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			result, err := newAuthService(pool).ListUsers(ctx, cursor, limit)
			if err != nil {
				return fmt.Errorf("failed to list users: %w", err)
			}

			if outputFormat == "json" {
				items := make([]map[string]any, len(result.Items))
				for i, u := range result.Items {
					items[i] = map[string]any{
						"id":         u.ID,
						"email":      u.Email,
						"name":       u.Name,
						"created_at": u.CreatedAt,
					}
				}
				return printJSON(cmd, map[string]any{
					"items":    items,
					"cursor":   result.Cursor,
					"has_more": result.HasMore,
				})
			}

			out := cmd.OutOrStdout()
			if len(result.Items) == 0 {
				fmt.Fprintln(out, "No users found")
				return nil
			}
			fmt.Fprintln(out, "Users:")
			for _, u := range result.Items {
				fmt.Fprintf(out, "  %s: %s (created: %s)\n", u.ID, u.Email, u.CreatedAt.Format("2006-01-02 15:04:05"))
			}
			if result.HasMore && result.Cursor != "" {
				fmt.Fprintf(out, "\nMore results available. Use --cursor %s\n", result.Cursor)
			}
			return nil
		},
	}

	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of results")
	cmd.Flags().StringVar(&cursor, "cursor", "", "Pagination cursor from previous response")

	return cmd
}

func UserDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a user",
		Long:  "Delete a user together with their API keys, agents and knowledge bases",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			pool, err := getDBPool(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := newAuthService(pool).DeleteUser(ctx, args[0]); err != nil {
				return fmt.Errorf("failed to delete user: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "User %s deleted\n", args[0])
			return nil
		},
	}
}

func newAuthService(pool *pgxpool.Pool) *service.AuthService {
	return service.NewAuthService(
		repository.NewUserRepository(pool),
		repository.NewAPIKeyRepository(pool),
		&service.DefaultUUIDGenerator{},
	)
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}

func getDBPool(ctx context.Context) (*pgxpool.Pool, error) {
	cfg, err := config.LoadUnvalidated()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return database.NewPool(ctx, database.Config{URL: cfg.DatabaseURL, MaxConns: 2})
}
