package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/planwright/planwright/internal/llm"
	"github.com/planwright/planwright/internal/project"
)

func newProjectService() (*project.Service, func(), error) {
	cfg, logger, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	svc := &project.Service{
		BaseDir: cfg.ProjectsDir,
		Client:  llm.NewOllamaClient(cfg.LLMBaseURL, cfg.LLMModel),
		Logger:  logger,
	}
	return svc, func() { logger.Sync() }, nil
}

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Manage LLM-planned projects",
}

var projectInitCmd = &cobra.Command{
	Use:   "init <name> <description>",
	Short: "Scaffold a new project with an LLM-generated development plan",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, done, err := newProjectService()
		if err != nil {
			return err
		}
		defer done()

		m, err := svc.Initiate(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		if jsonOutput {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(m)
		}
		fmt.Printf("Project %q initiated at %s with %d planned files.\n",
			args[0], m.ProjectDirectory, len(m.DevelopmentTasks))
		return nil
	},
}

var projectGenerateCmd = &cobra.Command{
	Use:   "generate <name> [filename]",
	Short: "Generate planned files; all remaining planned files when no filename is given",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, done, err := newProjectService()
		if err != nil {
			return err
		}
		defer done()

		if len(args) == 2 {
			if err := svc.GenerateFile(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			fmt.Printf("Generated %s.\n", args[1])
			return nil
		}

		report, err := svc.ExecuteCodingPlan(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if jsonOutput {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		}
		fmt.Printf("Generated %d file(s), %d failed, %d skipped.\n",
			len(report.Successful), len(report.Failed), len(report.Skipped))
		for _, f := range report.Failed {
			fmt.Fprintf(os.Stderr, "  Failed: %s\n", f)
		}
		if len(report.Failed) > 0 {
			os.Exit(1)
		}
		return nil
	},
}

func init() {
	projectCmd.AddCommand(projectInitCmd)
	projectCmd.AddCommand(projectGenerateCmd)
	rootCmd.AddCommand(projectCmd)
}
