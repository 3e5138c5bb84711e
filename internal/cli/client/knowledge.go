package client

import (
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/spf13/cobra"
)

// KnowledgeResult is one retrieved chunk.
type KnowledgeResult struct {
	ChunkID    string         `json:"chunk_id"`
	DocumentID string         `json:"document_id"`
	ChunkIndex int            `json:"chunk_index"`
	Content    string         `json:"content"`
	Score      float32        `json:"score"`
	Metadata   map[string]any `json:"metadata"`
}

// SourceRef cites a chunk behind a generated answer.
type SourceRef struct {
	ChunkID    string  `json:"chunk_id"`
	DocumentID string  `json:"document_id"`
	Filename   string  `json:"filename,omitempty"`
	ChunkIndex int     `json:"chunk_index"`
	Score      float32 `json:"score"`
}

// Answer is a grounded response with its citations.
type Answer struct {
	Response string      `json:"response"`
	Sources  []SourceRef `json:"sources"`
}

// QueryLog is a recorded grounded generation call.
type QueryLog struct {
	ID              string      `json:"id"`
	UserID          string      `json:"user_id"`
	KnowledgeBaseID string      `json:"knowledge_base_id"`
	Query           string      `json:"query"`
	Response        string      `json:"response"`
	Sources         []SourceRef `json:"sources"`
	DurationMs      int64       `json:"duration_ms"`
	CreatedAt       string      `json:"created_at"`
}

type askRequest struct {
	Query        string `json:"query"`
	ContextLimit int    `json:"context_limit,omitempty"`
}

// KnowledgeBaseCmd groups knowledge base commands.
func KnowledgeBaseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "kb",
		Aliases: []string{"knowledge-base"},
		Short:   "Manage and query knowledge bases",
		Long:    "Create knowledge bases, search them, and ask grounded questions",
	}

	cmd.AddCommand(catalogCreateCmd("knowledge base", "/knowledge-bases"))
	cmd.AddCommand(catalogListCmd("knowledge bases", "/knowledge-bases"))
	cmd.AddCommand(catalogGetCmd("knowledge base", "/knowledge-bases"))
	cmd.AddCommand(kbQueryCmd())
	cmd.AddCommand(kbAskCmd())
	cmd.AddCommand(kbQueriesCmd())

	return cmd
}

func kbPath(kbID string) string {
	return "/knowledge-bases/" + url.PathEscape(kbID)
}

func kbQueryCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "query <kb-id> <query>",
		Short: "Retrieve the chunks closest to a query",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			req := queryRequest{Query: strings.Join(args[1:], " "), Limit: limit}
			resp, err := api.Post(cmd.Context(), kbPath(args[0])+"/query", req)
			if err != nil {
				return fmt.Errorf("knowledge query failed: %w", err)
			}
			var body struct {
				Results []KnowledgeResult `json:"results"`
			}
			if err := resp.Decode(&body); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if wantJSON(cmd) {
				return printJSON(out, body)
			}
			if len(body.Results) == 0 {
				fmt.Fprintln(out, "No results found.")
				return nil
			}
			fmt.Fprintf(out, "Found %d results:\n\n", len(body.Results))
			for i, r := range body.Results {
				fmt.Fprintf(out, "%d. (%.3f) document %s, chunk %d\n", i+1, r.Score, r.DocumentID, r.ChunkIndex)
				fmt.Fprintf(out, "   %s\n", truncate(r.Content, 100))
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum number of results (server default when 0)")
	return cmd
}

func kbAskCmd() *cobra.Command {
	var contextLimit int

	cmd := &cobra.Command{
		Use:   "ask <kb-id> <question>",
		Short: "Ask a question answered from the knowledge base",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			req := askRequest{Query: strings.Join(args[1:], " "), ContextLimit: contextLimit}
			resp, err := api.Post(cmd.Context(), kbPath(args[0])+"/ask", req)
			if err != nil {
				return fmt.Errorf("ask failed: %w", err)
			}
			var answer Answer
			if err := resp.Decode(&answer); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if wantJSON(cmd) {
				return printJSON(out, answer)
			}
			fmt.Fprintln(out, answer.Response)
			printSources(out, answer.Sources)
			return nil
		},
	}

	cmd.Flags().IntVar(&contextLimit, "context-limit", 0, "Number of chunks to ground the answer on (server default when 0)")
	return cmd
}

func printSources(out io.Writer, sources []SourceRef) {
	if len(sources) == 0 {
		return
	}
	fmt.Fprintln(out, "\nSources:")
	for i, s := range sources {
		name := s.Filename
		if name == "" {
			name = s.DocumentID
		}
		fmt.Fprintf(out, "  [%d] %s, chunk %d (%.3f)\n", i+1, name, s.ChunkIndex, s.Score)
	}
}

func kbQueriesCmd() *cobra.Command {
	var (
		limit  int
		cursor string
	)

	cmd := &cobra.Command{
		Use:   "queries <kb-id>",
		Short: "List recent grounded questions asked of a knowledge base",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			resp, err := api.Get(cmd.Context(), listPath(kbPath(args[0])+"/queries", limit, cursor))
			if err != nil {
				return fmt.Errorf("failed to list queries: %w", err)
			}
			var page Page[QueryLog]
			if err := resp.Decode(&page); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if wantJSON(cmd) {
				return printJSON(out, page)
			}
			if len(page.Items) == 0 {
				fmt.Fprintln(out, "No queries recorded.")
				return nil
			}
			for _, q := range page.Items {
				fmt.Fprintf(out, "%s  %s (%d ms, %d sources)\n", q.CreatedAt, truncate(q.Query, 60), q.DurationMs, len(q.Sources))
			}
			printMore(out, page.HasMore, page.Cursor)
			return nil
		},
	}

	addPageFlags(cmd, &limit, &cursor)
	return cmd
}
