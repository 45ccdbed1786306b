package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/archivist-ai/archivist/internal/cli"
	"github.com/archivist-ai/archivist/internal/cli/client"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "archivist",
		Short: "Archivist CLI - Document vectorization and retrieval",
		Long: `Archivist CLI ingests documents and answers questions over them.

Environment variables:
  ARCHIVIST_API_KEY   API key for authentication (required)
  ARCHIVIST_API_URL   API base URL (default: http://localhost:8080)`,
		Version: version,
	}

	rootCmd.PersistentFlags().Bool("output", false, "Output as JSON")
	rootCmd.PersistentFlags().String("api-key", "", "API key for authentication (overrides env)")
	rootCmd.PersistentFlags().String("api-url", "", "API base URL (overrides env)")
	cli.AddHelpJSONFlag(rootCmd)

	rootCmd.AddCommand(client.IngestCmd())
	rootCmd.AddCommand(client.QueryCmd())
	rootCmd.AddCommand(client.TaskCmd())
	rootCmd.AddCommand(client.DocsCmd())
	rootCmd.AddCommand(client.CollectionsCmd())

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
