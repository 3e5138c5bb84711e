package admin

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/cloo-solutions/voicerag/internal/repository"
)

// resolveUserID accepts either a user id or an email address.
func resolveUserID(ctx context.Context, users *repository.UserRepository, ref string) (string, error) {
	if _, err := uuid.Parse(ref); err == nil {
		user, err := users.GetByID(ctx, ref)
		if err != nil {
			return "", fmt.Errorf("user not found: %s", ref)
		}
		return user.ID, nil
	}

	user, err := users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(ref)))
	if err != nil {
		return "", fmt.Errorf("user not found: %s", ref)
	}
	return user.ID, nil
}

func APIKeyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apikey",
		Short: "Manage API keys",
		Long:  "Create, list, and revoke API keys",
	}

	cmd.AddCommand(APIKeyCreateCmd())
	cmd.AddCommand(APIKeyListCmd())
	cmd.AddCommand(APIKeyRevokeCmd())

	return cmd
}

func APIKeyCreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new API key",
		Long:  "Create a new API key for a user",
		RunE:  runAPIKeyCreate,
	}

	cmd.Flags().StringP("user", "u", "", "User ID or email (required)")
	cmd.Flags().StringP("name", "n", "", "API key name (required)")
	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func runAPIKeyCreate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	userRef, _ := cmd.Flags().GetString("user")
	name, _ := cmd.Flags().GetString("name")
	outputFormat, _ := cmd.Flags().GetString("output")

	pool, err := getDBPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	userID, err := resolveUserID(ctx, repository.NewUserRepository(pool), userRef)
	if err != nil {
		return err
	}

	token, err := newAuthService(pool).CreateAPIKey(ctx, userID, name)
	if err != nil {
		return fmt.Errorf("failed to create API key: %w", err)
	}

	if outputFormat == "json" {
		return printJSON(cmd, map[string]any{
			"user_id": userID,
			"name":    name,
			"token":   token,
		})
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "API key created for user %s\n", userID)
	fmt.Fprintf(out, "Key Name: %s\n", name)
	fmt.Fprintf(out, "Token: %s\n", token)
	fmt.Fprintln(out, "\nSave this token now. It cannot be shown again.")
	return nil
}

func APIKeyListCmd() *cobra.Command {
	var (
		limit  int
		cursor string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List API keys for a user",
		Long:  "List all API keys for a specific user",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			userRef, _ := cmd.Flags().GetString("user")
			outputFormat, _ := cmd.Flags().GetString("output")

			pool, err := getDBPool(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			userID, err := resolveUserID(ctx, repository.NewUserRepository(pool), userRef)
			if err != nil {
				return err
			}

			result, err := newAuthService(pool).ListAPIKeys(ctx, userID, cursor, limit)
			if err != nil {
				return fmt.Errorf("failed to list API keys: %w", err)
			}

			if outputFormat == "json" {
				items := make([]map[string]any, len(result.Items))
				for i, key := range result.Items {
					items[i] = map[string]any{
						"id":         key.ID,
						"name":       key.Name,
						"user_id":    key.UserID,
						"created_at": key.CreatedAt,
						"revoked_at": key.RevokedAt,
						"revoked":    key.IsRevoked(),
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
				fmt.Fprintf(out, "No API keys found for user %s\n", userID)
				return nil
			}
			fmt.Fprintf(out, "API keys for user %s:\n", userID)
			for _, key := range result.Items {
				status := "active"
				if key.IsRevoked() {
					status = "revoked"
				}
				fmt.Fprintf(out, "  %s: %s (%s, created: %s)\n", key.ID, key.Name, status, key.CreatedAt.Format("2006-01-02 15:04:05"))
			}
			if result.HasMore && result.Cursor != "" {
				fmt.Fprintf(out, "\nMore results available. Use --cursor %s\n", result.Cursor)
			}
			return nil
		},
	}

	cmd.Flags().StringP("user", "u", "", "User ID or email (required)")
	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of results")
	cmd.Flags().StringVar(&cursor, "cursor", "", "Pagination cursor from previous response")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

func APIKeyRevokeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "revoke <id>",
		Short: "Revoke an API key",
		Long:  "Revoke an API key by its ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			pool, err := getDBPool(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := newAuthService(pool).RevokeAPIKey(ctx, args[0]); err != nil {
				return fmt.Errorf("failed to revoke API key: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "API key %s revoked\n", args[0])
			return nil
		},
	}
}
