package client

import (
	"bufio"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/spf13/cobra"
)

// APIKey is a key listed by the API. The token itself is never returned
// after creation.
type APIKey struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at"`
	RevokedAt string `json:"revoked_at,omitempty"`
}

// CreatedAPIKey carries the plaintext token of a new key.
type CreatedAPIKey struct {
	Token string `json:"token"`
	Name  string `json:"name"`
}

// AuthCmd creates the auth parent command
func AuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage authentication credentials",
		Long:  "Login, logout, check authentication status and manage your API keys",
	}

	cmd.AddCommand(AuthLoginCmd())
	cmd.AddCommand(AuthLogoutCmd())
	cmd.AddCommand(AuthStatusCmd())
	cmd.AddCommand(authKeysCmd())

	return cmd
}

// AuthLoginCmd creates the auth login command
func AuthLoginCmd() *cobra.Command {
	var apiKey string
	var apiURL string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Login with API key",
		Long:  "Store API key and URL in the global config (~/.config/voicerag/config.json)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if apiKey == "" {
				fmt.Fprint(cmd.OutOrStdout(), "Enter API key: ")
				input, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && err != io.EOF {
					return fmt.Errorf("failed to read API key: %w", err)
				}
				apiKey = strings.TrimSpace(input)
			}
			if err := runAuthLogin(apiKey, apiURL); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Successfully logged in")
			return nil
		},
	}

	cmd.Flags().StringVar(&apiKey, "key", "", "API key (vrg_...)")
	cmd.Flags().StringVar(&apiURL, "url", defaultAPIURL, "API URL")

	return cmd
}

// AuthLogoutCmd creates the auth logout command
func AuthLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Logout and clear credentials",
		Long:  "Remove stored credentials from the global config",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := DeleteGlobalConfig(); err != nil {
				return fmt.Errorf("failed to logout: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Successfully logged out")
			return nil
		},
	}
}

// AuthStatusCmd creates the auth status command
func AuthStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show authentication status",
		Long:  "Display where credentials are read from",
		RunE: func(cmd *cobra.Command, args []string) error {
			flagKey, _ := cmd.Flags().GetString("api-key")
			flagURL, _ := cmd.Flags().GetString("api-url")
			source, apiKey, apiURL, err := ResolveCredentials(flagKey, flagURL)
			if err != nil {
				return err
			}
			return printAuthStatus(cmd.OutOrStdout(), wantJSON(cmd), source, apiKey, apiURL)
		},
	}
}

func runAuthLogin(apiKey, apiURL string) error {
	if !IsValidAPIKey(apiKey) {
		return fmt.Errorf("invalid API key format (expected: vrg_ + 64 hex characters)")
	}
	if err := SaveGlobalConfig(&GlobalConfig{APIKey: apiKey, APIURL: apiURL}); err != nil {
		return fmt.Errorf("failed to save credentials: %w", err)
	}
	return nil
}

func printAuthStatus(out io.Writer, asJSON bool, source CredentialSource, apiKey, apiURL string) error {
	if asJSON {
		status := map[string]any{
			"authenticated": source != SourceNone,
			"source":        string(source),
		}
		if source != SourceNone {
			status["api_key"] = maskAPIKey(apiKey)
			status["api_url"] = apiURL
		}
		return printJSON(out, status)
	}

	if source == SourceNone {
		fmt.Fprintln(out, "Not authenticated")
		fmt.Fprintln(out, "Run 'voicerag auth login' to authenticate")
		return nil
	}
	fmt.Fprintf(out, "Authenticated: yes\n")
	fmt.Fprintf(out, "Source: %s\n", source)
	fmt.Fprintf(out, "API Key: %s\n", maskAPIKey(apiKey))
	fmt.Fprintf(out, "API URL: %s\n", apiURL)
	return nil
}

func maskAPIKey(key string) string {
	if len(key) < 12 {
		return "***"
	}
	return key[:8] + "..." + key[len(key)-4:]
}

func authKeysCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Manage your API keys",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "create <name>",
		Short: "Create an API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			resp, err := api.Post(cmd.Context(), "/api-keys", map[string]string{"name": args[0]})
			if err != nil {
				return fmt.Errorf("failed to create API key: %w", err)
			}
			var key CreatedAPIKey
			if err := resp.Decode(&key); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if wantJSON(cmd) {
				return printJSON(out, key)
			}
			fmt.Fprintf(out, "Token: %s\n", key.Token)
			fmt.Fprintln(out, "\nSave this token now. It cannot be shown again.")
			return nil
		},
	})

	var (
		limit  int
		cursor string
	)
	list := &cobra.Command{
		Use:   "list",
		Short: "List your API keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			resp, err := api.Get(cmd.Context(), listPath("/api-keys", limit, cursor))
			if err != nil {
				return fmt.Errorf("failed to list API keys: %w", err)
			}
			var page Page[APIKey]
			if err := resp.Decode(&page); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if wantJSON(cmd) {
				return printJSON(out, page)
			}
			for _, k := range page.Items {
				status := "active"
				if k.RevokedAt != "" {
					status = "revoked"
				}
				fmt.Fprintf(out, "%s  %s (%s, created: %s)\n", k.ID, k.Name, status, k.CreatedAt)
			}
			printMore(out, page.HasMore, page.Cursor)
			return nil
		},
	}
	addPageFlags(list, &limit, &cursor)
	cmd.AddCommand(list)

	cmd.AddCommand(&cobra.Command{
		Use:   "revoke <id>",
		Short: "Revoke one of your API keys",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			if _, err := api.Delete(cmd.Context(), "/api-keys/"+url.PathEscape(args[0])); err != nil {
				return fmt.Errorf("failed to revoke API key: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "API key %s revoked\n", args[0])
			return nil
		},
	})

	return cmd
}
