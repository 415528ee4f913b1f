// Command specid identifies compounds from cross-modal spectroscopic
// evidence.
//
// It takes extracted spectral features, a candidate catalog, reference
// templates, and a scoring rubric, and produces ranked hypotheses with
// confidence tiers, evidence graphs, and follow-up recommendations.
package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "specid",
	Short: "Cross-modal spectral identification engine",
	Long: `specid fuses evidence from multiple spectroscopic modalities into
ranked, tiered identification hypotheses. Runs are deterministic: the same
inputs, rubric, and seed always produce byte-identical output.`,
	SilenceUsage: true,
}

func main() {
	rootCmd.AddCommand(identifyCmd)
	rootCmd.AddCommand(explainCmd)
	rootCmd.AddCommand(rubricCmd)

	rootCmd.PersistentFlags().Bool("verbose", false, "log pipeline progress to stderr")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// cliLogger returns a stderr logger when --verbose is set, a discarding one
// otherwise.
func cliLogger(cmd *cobra.Command) *slog.Logger {
	verbose, _ := cmd.Flags().GetBool("verbose")
	if !verbose {
		return slog.New(slog.DiscardHandler)
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}
