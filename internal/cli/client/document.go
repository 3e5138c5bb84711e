package client

import (
	"fmt"
	"io"
	"mime"
	"net/url"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

// Document is an uploaded document and its ingestion state.
type Document struct {
	ID              string `json:"id"`
	KnowledgeBaseID string `json:"knowledge_base_id"`
	Filename        string `json:"filename"`
	ContentType     string `json:"content_type"`
	SizeBytes       int64  `json:"size_bytes"`
	Status          string `json:"status"`
	ChunkCount      int    `json:"chunk_count"`
	Error           string `json:"error,omitempty"`
	CreatedAt       string `json:"created_at"`
	UpdatedAt       string `json:"updated_at"`
}

type addTextRequest struct {
	Title string `json:"title"`
	Text  string `json:"text"`
}

// DocumentCmd groups document commands.
func DocumentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "doc",
		Aliases: []string{"document"},
		Short:   "Upload and inspect knowledge base documents",
		Long:    "Upload files or raw text into a knowledge base and follow their ingestion",
	}

	cmd.AddCommand(docUploadCmd())
	cmd.AddCommand(docAddTextCmd())
	cmd.AddCommand(docListCmd())
	cmd.AddCommand(docGetCmd())

	return cmd
}

func documentsPath(kbID string) string {
	return kbPath(kbID) + "/documents"
}

func printDocument(out io.Writer, d Document) {
	fmt.Fprintf(out, "ID:       %s\n", d.ID)
	fmt.Fprintf(out, "Filename: %s\n", d.Filename)
	fmt.Fprintf(out, "Size:     %d bytes\n", d.SizeBytes)
	fmt.Fprintf(out, "Status:   %s\n", d.Status)
	if d.ChunkCount > 0 {
		fmt.Fprintf(out, "Chunks:   %d\n", d.ChunkCount)
	}
	if d.Error != "" {
		fmt.Fprintf(out, "Error:    %s\n", d.Error)
	}
}

func docUploadCmd() *cobra.Command {
	var showProgress bool

	cmd := &cobra.Command{
		Use:   "upload <kb-id> <file>",
		Short: "Upload a file for ingestion",
		Long:  "Upload a PDF, DOCX, XLSX, text or markdown file. Ingestion runs in the background.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			var onProgress ProgressFunc
			if showProgress {
				errOut := cmd.ErrOrStderr()
				onProgress = func(current, total int64) {
					if total > 0 {
						fmt.Fprintf(errOut, "\rUploading... %d%%", current*100/total)
					}
				}
			}

			contentType := mime.TypeByExtension(filepath.Ext(args[1]))
			resp, err := api.UploadFile(cmd.Context(), documentsPath(args[0]), args[1], contentType, onProgress)
			if showProgress {
				fmt.Fprintln(cmd.ErrOrStderr())
			}
			if err != nil {
				return fmt.Errorf("upload failed: %w", err)
			}
			var doc Document
			if err := resp.Decode(&doc); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if wantJSON(cmd) {
				return printJSON(out, doc)
			}
			fmt.Fprintf(out, "Uploaded %s as %s (status: %s)\n", doc.Filename, doc.ID, doc.Status)
			return nil
		},
	}

	cmd.Flags().BoolVar(&showProgress, "progress", false, "Show upload progress")
	return cmd
}

func docAddTextCmd() *cobra.Command {
	var (
		title    string
		text     string
		fromFile string
	)

	cmd := &cobra.Command{
		Use:   "add-text <kb-id>",
		Short: "Add raw text as a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if fromFile != "" {
				data, err := os.ReadFile(fromFile)
				if err != nil {
					return fmt.Errorf("failed to read file: %w", err)
				}
				text = string(data)
				if title == "" {
					title = filepath.Base(fromFile)
				}
			}
			if text == "" {
				return fmt.Errorf("provide --text or --file")
			}

			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			resp, err := api.Post(cmd.Context(), documentsPath(args[0])+"/text", addTextRequest{Title: title, Text: text})
			if err != nil {
				return fmt.Errorf("failed to add text: %w", err)
			}
			var doc Document
			if err := resp.Decode(&doc); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if wantJSON(cmd) {
				return printJSON(out, doc)
			}
			fmt.Fprintf(out, "Added %s as %s (status: %s)\n", doc.Filename, doc.ID, doc.Status)
			return nil
		},
	}

	cmd.Flags().StringVarP(&title, "title", "t", "", "Document title")
	cmd.Flags().StringVar(&text, "text", "", "Text content")
	cmd.Flags().StringVarP(&fromFile, "file", "f", "", "Read text content from a file")
	return cmd
}

func docListCmd() *cobra.Command {
	var (
		limit  int
		cursor string
	)

	cmd := &cobra.Command{
		Use:   "list <kb-id>",
		Short: "List documents in a knowledge base",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			resp, err := api.Get(cmd.Context(), listPath(documentsPath(args[0]), limit, cursor))
			if err != nil {
				return fmt.Errorf("failed to list documents: %w", err)
			}
			var page Page[Document]
			if err := resp.Decode(&page); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if wantJSON(cmd) {
				return printJSON(out, page)
			}
			if len(page.Items) == 0 {
				fmt.Fprintln(out, "No documents found.")
				return nil
			}
			for _, d := range page.Items {
				fmt.Fprintf(out, "%s  %-10s  %s\n", d.ID, d.Status, d.Filename)
			}
			printMore(out, page.HasMore, page.Cursor)
			return nil
		},
	}

	addPageFlags(cmd, &limit, &cursor)
	return cmd
}

func docGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <kb-id> <document-id>",
		Short: "Show a document and its ingestion status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			resp, err := api.Get(cmd.Context(), documentsPath(args[0])+"/"+url.PathEscape(args[1]))
			if err != nil {
				return fmt.Errorf("failed to get document: %w", err)
			}
			var doc Document
			if err := resp.Decode(&doc); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if wantJSON(cmd) {
				return printJSON(out, doc)
			}
			printDocument(out, doc)
			return nil
		},
	}
}
