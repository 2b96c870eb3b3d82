package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/planwright/planwright/internal/executor"
	"github.com/planwright/planwright/internal/llm"
	"github.com/planwright/planwright/internal/project"
	"github.com/planwright/planwright/internal/sandbox"
	"github.com/planwright/planwright/internal/server"
	"github.com/planwright/planwright/internal/tasks"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		defer logger.Sync()

		taskMgr := tasks.NewManager(tasks.NewNotificationManager(), logger)
		runner := &sandbox.Runner{Interpreter: cfg.SandboxInterpreter, Logger: logger}
		exec := &executor.Executor{Runner: runner, Reporter: taskMgr, Logger: logger}
		projects := &project.Service{
			BaseDir: cfg.ProjectsDir,
			Client:  llm.NewOllamaClient(cfg.LLMBaseURL, cfg.LLMModel),
			Logger:  logger,
		}
		srv := server.NewServer(cfg.Addr(), runner, exec, projects, taskMgr, logger)

		errCh := make(chan error, 1)
		go func() { errCh <- srv.Start() }()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

		select {
		case err := <-errCh:
			return err
		case <-sigCh:
			logger.Info("shutting down")
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Stop(ctx)
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
