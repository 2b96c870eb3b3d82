package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/planwright/planwright/internal/artifact"
	"github.com/planwright/planwright/internal/executor"
	"github.com/planwright/planwright/internal/plan"
	"github.com/planwright/planwright/internal/sandbox"
)

var (
	runProject string
	runPersist bool
)

var runCmd = &cobra.Command{
	Use:   "run <plan.json|plan.yaml>",
	Short: "Execute a project plan",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		defer logger.Sync()

		p, err := plan.LoadFile(args[0])
		if err != nil {
			return err
		}
		if err := plan.Validate(p); err != nil {
			return err
		}

		exec := &executor.Executor{
			Runner: &sandbox.Runner{Interpreter: cfg.SandboxInterpreter, Logger: logger},
			Logger: logger,
		}
		report := exec.Execute(cmd.Context(), p, executor.RunOptions{ProjectName: runProject})

		if runPersist {
			if err := persistReport(report); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: could not persist run artifacts: %v\n", err)
			}
		}

		if jsonOutput {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		}
		printReport(report)
		if report.OverallStatus == executor.OverallError || report.OverallStatus == executor.OverallFailed {
			os.Exit(1)
		}
		return nil
	},
}

func printReport(report *executor.Report) {
	fmt.Printf("Overall status: %s\n", report.OverallStatus)
	if report.ErrorMessage != "" {
		fmt.Printf("Error: %s\n", report.ErrorMessage)
	}
	for _, sr := range report.StepResults {
		fmt.Printf("  [%s] %s (%s): %s\n", sr.Status, sr.StepID, sr.Type, sr.Description)
		if sr.ErrorMessage != "" {
			fmt.Printf("    Error: %s\n", sr.ErrorMessage)
		}
	}
	fmt.Printf("Steps processed: %d\n", report.NumStepsProcessed)
	fmt.Printf("Run ID: %s\n", report.RunID)
}

// persistReport writes the report and captured step output under the
// run's artifact directory.
func persistReport(report *executor.Report) error {
	wd, err := os.Getwd()
	if err != nil {
		return err
	}
	store, err := artifact.New(report.RunID, wd)
	if err != nil {
		return err
	}
	for _, sr := range report.StepResults {
		out, ok := sr.Output.(executor.ScriptOutput)
		if !ok {
			continue
		}
		if err := store.WriteStepOutput(sr.StepID, out.Stdout, out.Stderr); err != nil {
			return err
		}
		for name, content := range out.OutputFiles {
			if err := store.WriteOutputFile(sr.StepID, name, content); err != nil {
				return err
			}
		}
	}
	return store.WriteReport(report)
}

func init() {
	runCmd.Flags().StringVar(&runProject, "project", "", "Project name to associate with the run")
	runCmd.Flags().BoolVar(&runPersist, "persist", false, "Write run artifacts to .planwright/runs/<run_id>")
	rootCmd.AddCommand(runCmd)
}
