package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command for the labelfewer application
var rootCmd = &cobra.Command{
	Use:   "labelfewer",
	Short: "Suggests and applies Gmail labels based on how you labeled before",
	Long: `labelfewer classifies unread Gmail messages against a local memory of
your past labeling decisions. Cheap similarity lookups handle most messages;
a language model is only consulted when memory has no good answer.

It can run as:
  - A standalone CLI tool (default)
  - An MCP (Model Context Protocol) server for AI assistants`,
	SilenceUsage: true,
}

// version will be set by main
var version = "dev"

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "labelfewer version %s\n" .Version}}`)

	// If no subcommand is provided, run the label command by default
	if len(os.Args) == 1 {
		os.Args = append(os.Args, "label")
	}

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(newLabelCmd())
	rootCmd.AddCommand(newFeedbackCmd())
	rootCmd.AddCommand(newAuthCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newVersionCmd())
}
