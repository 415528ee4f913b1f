package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cwbudde/algo-specid/rubric"
)

var rubricCmd = &cobra.Command{
	Use:   "rubric",
	Short: "Rubric utilities",
}

var rubricValidateCmd = &cobra.Command{
	Use:   "validate <rubric.yaml>",
	Short: "Validate a rubric document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := rubric.Load(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "rubric %q ok: %d modalities\n",
			r.Version, len(r.Modalities))
		return nil
	},
}

func init() {
	rubricCmd.AddCommand(rubricValidateCmd)
}
