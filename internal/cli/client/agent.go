package client

import (
	"fmt"
	"net/url"

	"github.com/spf13/cobra"
)

// CatalogItem is an agent or a knowledge base as returned by the API.
type CatalogItem struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

type createCatalogItemRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// AgentCmd groups agent management commands.
func AgentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agent",
		Short: "Manage voice agents",
		Long:  "Create and list the agents whose memories you store",
	}

	cmd.AddCommand(catalogCreateCmd("agent", "/agents"))
	cmd.AddCommand(catalogListCmd("agents", "/agents"))
	cmd.AddCommand(catalogGetCmd("agent", "/agents"))

	return cmd
}

func catalogCreateCmd(kind, basePath string) *cobra.Command {
	var description string

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: fmt.Sprintf("Create a %s", kind),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			resp, err := api.Post(cmd.Context(), basePath, createCatalogItemRequest{Name: args[0], Description: description})
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", kind, err)
			}
			var item CatalogItem
			if err := resp.Decode(&item); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if wantJSON(cmd) {
				return printJSON(out, item)
			}
			fmt.Fprintf(out, "Created %s %s (%s)\n", kind, item.Name, item.ID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&description, "description", "d", "", "Description")
	return cmd
}

func catalogListCmd(plural, basePath string) *cobra.Command {
	var (
		limit  int
		cursor string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: fmt.Sprintf("List your %s", plural),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			resp, err := api.Get(cmd.Context(), listPath(basePath, limit, cursor))
			if err != nil {
				return fmt.Errorf("failed to list %s: %w", plural, err)
			}
			var page Page[CatalogItem]
			if err := resp.Decode(&page); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if wantJSON(cmd) {
				return printJSON(out, page)
			}
			if len(page.Items) == 0 {
				fmt.Fprintf(out, "No %s found.\n", plural)
				return nil
			}
			for _, item := range page.Items {
				fmt.Fprintf(out, "%s  %s", item.ID, item.Name)
				if item.Description != "" {
					fmt.Fprintf(out, "  %s", truncate(item.Description, 60))
				}
				fmt.Fprintln(out)
			}
			printMore(out, page.HasMore, page.Cursor)
			return nil
		},
	}

	addPageFlags(cmd, &limit, &cursor)
	return cmd
}

func catalogGetCmd(kind, basePath string) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: fmt.Sprintf("Show a %s", kind),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			resp, err := api.Get(cmd.Context(), basePath+"/"+url.PathEscape(args[0]))
			if err != nil {
				return fmt.Errorf("failed to get %s: %w", kind, err)
			}
			var item CatalogItem
			if err := resp.Decode(&item); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if wantJSON(cmd) {
				return printJSON(out, item)
			}
			fmt.Fprintf(out, "ID:          %s\n", item.ID)
			fmt.Fprintf(out, "Name:        %s\n", item.Name)
			if item.Description != "" {
				fmt.Fprintf(out, "Description: %s\n", item.Description)
			}
			fmt.Fprintf(out, "Created:     %s\n", item.CreatedAt)
			return nil
		},
	}
}
