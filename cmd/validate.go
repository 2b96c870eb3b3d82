package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/planwright/planwright/internal/plan"
)

var validateCmd = &cobra.Command{
	Use:   "validate <plan.json|plan.yaml>",
	Short: "Validate a plan file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := plan.LoadFile(args[0])
		if err != nil {
			return err
		}
		if err := plan.Validate(p); err != nil {
			if jsonOutput {
				json.NewEncoder(os.Stdout).Encode(map[string]any{"valid": false, "error": err.Error()})
			} else {
				fmt.Fprintf(os.Stderr, "Validation failed: %s\n", err)
			}
			os.Exit(1)
		}
		if jsonOutput {
			json.NewEncoder(os.Stdout).Encode(map[string]any{"valid": true, "num_steps": len(p.Steps)})
		} else {
			fmt.Printf("Plan is valid (%d steps).\n", len(p.Steps))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
