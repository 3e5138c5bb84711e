package client

import "github.com/spf13/cobra"

// NewRootCmd assembles the voicerag client command tree.
func NewRootCmd(version string) *cobra.Command {
	root := &cobra.Command{
		Use:   "voicerag",
		Short: "voicerag CLI - memory and knowledge for voice agents",
		Long: `voicerag CLI manages agent memories, knowledge bases and documents.

Environment variables:
  VOICERAG_API_KEY   API key for authentication
  VOICERAG_API_URL   API base URL (default: http://localhost:8080)`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().Bool("output", false, "Output as JSON")
	root.PersistentFlags().String("api-key", "", "API key for authentication (overrides env and config)")
	root.PersistentFlags().String("api-url", "", "API base URL (overrides env and config)")

	root.AddCommand(AuthCmd())
	root.AddCommand(AgentCmd())
	root.AddCommand(MemoryCmd())
	root.AddCommand(KnowledgeBaseCmd())
	root.AddCommand(DocumentCmd())

	return root
}
