package main

import (
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	// version is set by goreleaser at build time
	version = "dev"

	// global flags
	debug         bool
	configPath    string
	knowledgePath string
	noCache       bool

	// command flags
	forceReindex bool
	topK         int
	noRAG        bool
	showSources  bool
	metricsAddr  string
	resumeID     string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		color.New(color.FgRed, color.Bold).Fprintf(os.Stderr, "✗ %s\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "edubot",
		Short:         "Campus assistant that answers from a knowledge base",
		Long:          "edubot answers student questions by retrieving the most relevant knowledge base entries and passing them to a hosted language model",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ~/.edubot/config.json)")
	rootCmd.PersistentFlags().StringVar(&knowledgePath, "knowledge", "", "Knowledge base file (JSON or YAML)")
	rootCmd.PersistentFlags().BoolVar(&noCache, "no-cache", false, "Keep embeddings in memory only")

	indexCmd := &cobra.Command{
		Use:   "index",
		Short: "Embed the knowledge base and refresh the embedding cache",
		Args:  cobra.NoArgs,
		RunE:  runIndex,
	}
	indexCmd.Flags().BoolVarP(&forceReindex, "force", "f", false, "Force reindexing (bypass cache)")

	askCmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Answer a single question",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runAsk,
	}
	askCmd.Flags().IntVar(&topK, "top-k", 0, "Number of documents to retrieve (default from config)")
	askCmd.Flags().BoolVar(&noRAG, "no-rag", false, "Answer without knowledge base context")
	askCmd.Flags().BoolVar(&showSources, "show-sources", false, "Print the retrieved context after the answer")

	chatCmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive conversation",
		Args:  cobra.NoArgs,
		RunE:  runChat,
	}
	chatCmd.Flags().BoolVar(&noRAG, "no-rag", false, "Answer without knowledge base context")
	chatCmd.Flags().StringVar(&resumeID, "resume", "", "Continue a saved conversation by session ID")
	chatCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090)")

	searchCmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Show the knowledge base entries most similar to a query",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runSearch,
	}
	searchCmd.Flags().IntVar(&topK, "top-k", 0, "Number of documents to show (default from config)")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List knowledge base entries by category",
		Args:  cobra.NoArgs,
		RunE:  runList,
	}

	configureCmd := &cobra.Command{
		Use:   "configure",
		Short: "Configure the API key, embedding provider and retrieval settings",
		Args:  cobra.NoArgs,
		RunE:  runConfigure,
	}

	rootCmd.AddCommand(indexCmd, askCmd, chatCmd, searchCmd, listCmd, configureCmd)
	return rootCmd
}
