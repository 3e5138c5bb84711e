package client

import (
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

// Page is the cursor envelope shared by every list endpoint.
type Page[T any] struct {
	Items   []T    `json:"items"`
	Cursor  string `json:"cursor,omitempty"`
	HasMore bool   `json:"has_more"`
}

func wantJSON(cmd *cobra.Command) bool {
	v, _ := cmd.Flags().GetBool("output")
	return v
}

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func printMore(w io.Writer, hasMore bool, cursor string) {
	if hasMore && cursor != "" {
		fmt.Fprintf(w, "\nMore results available. Use --cursor %s\n", cursor)
	}
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// listPath appends limit and cursor query parameters when set.
func listPath(path string, limit int, cursor string) string {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	if len(q) == 0 {
		return path
	}
	return path + "?" + q.Encode()
}

func addPageFlags(cmd *cobra.Command, limit *int, cursor *string) {
	cmd.Flags().IntVarP(limit, "limit", "n", 20, "Maximum number of results")
	cmd.Flags().StringVar(cursor, "cursor", "", "Pagination cursor from previous response")
}
