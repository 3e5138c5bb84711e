package client

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/cobra"
)

type saveMemoryRequest struct {
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type queryRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit,omitempty"`
}

// Memory is a saved memory as returned by the API.
type Memory struct {
	ID        string         `json:"id"`
	AgentID   string         `json:"agent_id"`
	UserID    string         `json:"user_id"`
	Content   string         `json:"content"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt string         `json:"created_at"`
}

// MemoryResult is one ranked memory.
type MemoryResult struct {
	ID       string         `json:"id"`
	Content  string         `json:"content"`
	Score    float32        `json:"score"`
	Metadata map[string]any `json:"metadata"`
}

// MemoryCmd groups agent memory commands.
func MemoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "memory",
		Short: "Save and recall agent memories",
		Long:  "Save, query and clear the memories an agent keeps about you",
	}

	cmd.AddCommand(memorySaveCmd())
	cmd.AddCommand(memoryQueryCmd())
	cmd.AddCommand(memoryClearCmd())

	return cmd
}

func memoryPath(agentID string) string {
	return "/agents/" + url.PathEscape(agentID) + "/memories"
}

func memorySaveCmd() *cobra.Command {
	var meta map[string]string

	cmd := &cobra.Command{
		Use:   "save <agent-id> <content>",
		Short: "Save a memory",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			req := saveMemoryRequest{Content: strings.Join(args[1:], " ")}
			if len(meta) > 0 {
				req.Metadata = make(map[string]any, len(meta))
				for k, v := range meta {
					req.Metadata[k] = v
				}
			}

			resp, err := api.Post(cmd.Context(), memoryPath(args[0]), req)
			if err != nil {
				return fmt.Errorf("failed to save memory: %w", err)
			}
			var m Memory
			if err := resp.Decode(&m); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if wantJSON(cmd) {
				return printJSON(out, m)
			}
			fmt.Fprintf(out, "Saved memory %s\n", m.ID)
			return nil
		},
	}

	cmd.Flags().StringToStringVarP(&meta, "meta", "m", nil, "Metadata as key=value pairs")
	return cmd
}

func memoryQueryCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "query <agent-id> <query>",
		Short: "Find the memories closest to a query",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			req := queryRequest{Query: strings.Join(args[1:], " "), Limit: limit}
			resp, err := api.Post(cmd.Context(), memoryPath(args[0])+"/query", req)
			if err != nil {
				return fmt.Errorf("memory query failed: %w", err)
			}
			var body struct {
				Results []MemoryResult `json:"results"`
			}
			if err := resp.Decode(&body); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if wantJSON(cmd) {
				return printJSON(out, body)
			}
			if len(body.Results) == 0 {
				fmt.Fprintln(out, "No memories found.")
				return nil
			}
			for i, r := range body.Results {
				fmt.Fprintf(out, "%d. (%.3f) %s\n", i+1, r.Score, truncate(r.Content, 100))
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum number of results (server default when 0)")
	return cmd
}

func memoryClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear <agent-id>",
		Short: "Delete every memory the agent holds about you",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			resp, err := api.Delete(cmd.Context(), memoryPath(args[0]))
			if err != nil {
				return fmt.Errorf("failed to clear memories: %w", err)
			}
			var body struct {
				Deleted int `json:"deleted"`
			}
			if err := resp.Decode(&body); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if wantJSON(cmd) {
				return printJSON(out, body)
			}
			fmt.Fprintf(out, "Deleted %d memories\n", body.Deleted)
			return nil
		},
	}
}
