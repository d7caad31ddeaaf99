package main

import (
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/studiowebux/blitzbar/internal/cli"
	"github.com/studiowebux/blitzbar/internal/config"
	"github.com/studiowebux/blitzbar/internal/history"
	"github.com/studiowebux/blitzbar/internal/logging"
	"github.com/studiowebux/blitzbar/internal/session"
)

var (
	version = "0.1.0"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(cli.ExitCode(err))
	}
}

var rootCmd = &cobra.Command{
	Use:   "blitzbar [command]",
	Short: "Run blitz rushes and sprints from curl-like commands",
	Long: `blitzbar compiles curl-like commands into blitz load tests (rushes) or
probes (sprints), runs them on the testing service and reports the result.

A command carrying -p/--pattern is a rush; any other command is a sprint.
Everything after -- belongs to the blitz bar command. A command that carries
any flag must follow --, otherwise blitzbar reads the flags as its own.

Examples:
  blitzbar http://example.com                                  # sprint
  blitzbar run -- -p 1-250:60 -r california http://example.com # rush
  blitzbar run -o json -- -X POST -d a=1 http://example.com
  blitzbar compile -- -p 1-10:30 http://example.com            # print the submission
  blitzbar batch smoke.txt --concurrency 2
  blitzbar history list
  blitzbar mock --port 9295`,
	Version:       version,
	Args:          cobra.ArbitraryArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return cmd.Help()
		}
		return runCommand(cmd, joinArgs(args))
	},
}

// Global flags
var (
	flagProfile string
	flagOutput  string
	flagVerbose bool
	flagLogJSON bool
	flagLogDir  string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&flagProfile, "profile", "", "Profile to use")
	rootCmd.PersistentFlags().StringVarP(&flagOutput, "output", "o", "", "Output format (text/json/yaml)")
	rootCmd.PersistentFlags().BoolVar(&flagVerbose, "verbose", false, "Log lifecycle transitions")
	rootCmd.PersistentFlags().BoolVar(&flagLogJSON, "log-json", false, "Log as JSON")
	rootCmd.PersistentFlags().StringVar(&flagLogDir, "log-dir", "", "Also write debug logs to a dated file in this directory")

	addRunFlags(rootCmd)

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(compileCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(profileCmd)
	rootCmd.AddCommand(mockCmd)
}

// environment is what a command needs from the config directory
type environment struct {
	app    *cli.App
	logger *logging.Logger
}

func (e *environment) Close() {
	if e.app.History != nil {
		e.app.History.Close()
	}
	e.logger.Close()
}

func newLogger() (*logging.Logger, error) {
	level := ""
	if flagVerbose {
		level = "debug"
	}
	return logging.New(logging.Config{Level: level, JSON: flagLogJSON, LogDir: flagLogDir})
}

// setup initializes config, logging, profiles and, unless disabled, history
func setup(withHistory bool) (*environment, error) {
	if err := config.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize config: %w", err)
	}

	logger, err := newLogger()
	if err != nil {
		return nil, err
	}

	sessions := session.NewManager()
	if err := sessions.Load(); err != nil {
		logger.Close()
		return nil, err
	}

	app := cli.NewApp(sessions, logger.Logger)
	app.Version = version
	app.Registry = prometheus.NewRegistry()

	if withHistory {
		hist, err := history.NewManager(config.DatabasePath)
		if err != nil {
			logger.Warn("history disabled", "error", err)
		} else {
			app.History = hist
		}
	}

	return &environment{app: app, logger: logger}, nil
}
