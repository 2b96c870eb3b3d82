package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/planwright/planwright/internal/sandbox"
)

var (
	scriptTimeout     float64
	scriptInterpreter string
	scriptInputs      []string
	scriptOutputs     []string
)

var scriptCmd = &cobra.Command{
	Use:   "script <script.py>",
	Short: "Run one script in the sandbox",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		defer logger.Sync()

		content, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading script: %w", err)
		}

		inputs := map[string]string{}
		for name, path := range parseKeyValues(scriptInputs) {
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("reading input file %s: %w", path, err)
			}
			inputs[name] = string(data)
		}

		req := sandbox.Request{
			ScriptContent:   string(content),
			InputFiles:      inputs,
			OutputFilenames: scriptOutputs,
			Interpreter:     scriptInterpreter,
		}
		if scriptTimeout > 0 {
			req.Timeout = time.Duration(scriptTimeout * float64(time.Second))
		} else {
			req.Timeout = cfg.SandboxTimeout
		}
		if req.Interpreter == "" {
			req.Interpreter = cfg.SandboxInterpreter
		}

		runner := &sandbox.Runner{Logger: logger}
		res := runner.Run(cmd.Context(), req)

		if jsonOutput {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		}
		if res.Stdout != "" {
			fmt.Println(res.Stdout)
		}
		if res.Stderr != "" {
			fmt.Fprintln(os.Stderr, res.Stderr)
		}
		if res.Status != sandbox.StatusSuccess {
			fmt.Fprintf(os.Stderr, "Status: %s (%s)\n", res.Status, res.ErrorMessage)
			os.Exit(1)
		}
		return nil
	},
}

func init() {
	scriptCmd.Flags().Float64Var(&scriptTimeout, "timeout", 0, "Timeout in seconds")
	scriptCmd.Flags().StringVar(&scriptInterpreter, "interpreter", "", "Interpreter to run the script with")
	scriptCmd.Flags().StringArrayVar(&scriptInputs, "input", nil, "Input files to stage (name=path)")
	scriptCmd.Flags().StringArrayVar(&scriptOutputs, "output", nil, "Output filenames to capture")
	rootCmd.AddCommand(scriptCmd)
}
