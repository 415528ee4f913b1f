package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cwbudde/algo-specid/report"
)

var explainCmd = &cobra.Command{
	Use:   "explain <document>",
	Short: "Decompose a run document into per-feature contributions",
	Long: `Explain loads a run document (JSON or snapshot) and prints the
per-modality, per-feature breakdown of one hypothesis. Without --label it
explains the top-ranked hypothesis.`,
	Args: cobra.ExactArgs(1),
	RunE: runExplain,
}

func init() {
	explainCmd.Flags().String("label", "", "candidate label to explain (default: top-ranked)")
	explainCmd.Flags().String("format", "", "input format (json|snapshot); inferred from extension when empty")
}

func runExplain(cmd *cobra.Command, args []string) error {
	path := args[0]
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	format, _ := cmd.Flags().GetString("format")
	if format == "" {
		format = "json"
		if strings.HasSuffix(path, ".snap") || strings.HasSuffix(path, ".msgpack") {
			format = "snapshot"
		}
	}

	var doc *report.Document
	switch format {
	case "json":
		doc, err = report.ReadJSON(f)
	case "snapshot":
		doc, err = report.ReadSnapshot(f)
	default:
		return fmt.Errorf("unknown input format %q (json|snapshot)", format)
	}
	if err != nil {
		return err
	}

	if len(doc.Hypotheses) == 0 {
		return fmt.Errorf("document contains no hypotheses (reason: %s)", doc.Reason)
	}

	h := doc.Hypotheses[0]
	if label, _ := cmd.Flags().GetString("label"); label != "" {
		h = nil
		for _, cand := range doc.Hypotheses {
			if cand.Label == label {
				h = cand
				break
			}
		}
		if h == nil {
			return fmt.Errorf("no hypothesis labeled %q in document", label)
		}
	}

	return report.Explain(h).Render(cmd.OutOrStdout())
}
