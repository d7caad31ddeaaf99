package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/studiowebux/blitzbar/internal/cli"
	"github.com/studiowebux/blitzbar/internal/export"
)

var runCmd = &cobra.Command{
	Use:   "run -- <command>",
	Short: "Compile and execute a blitz bar command",
	Long: `Compile and execute a blitz bar command.

Progress is printed to stderr while the job runs. The first Ctrl+C aborts the
job on the service; --timeout does the same once the deadline passes.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCommand(cmd, joinArgs(args))
	},
}

var compileCmd = &cobra.Command{
	Use:   "compile -- <command>",
	Short: "Print the submission a command compiles to, without contacting the service",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		spec, err := cli.CompileCommand(joinArgs(args), flagVariant)
		if err != nil {
			return err
		}
		if err := spec.Validate(); err != nil {
			return err
		}
		out, err := json.MarshalIndent(spec, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	},
}

var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Run every command of a command file concurrently",
	Long: `Run every command of a command file concurrently.

The file is plain text (one command per line, or ### sections with
# @profile, # @filter and # @query annotations), YAML or JSON.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := setup(!flagNoHistory)
		if err != nil {
			return err
		}
		defer env.Close()

		// The first Ctrl+C aborts the running jobs; restoring the default
		// handler lets a second one kill the process.
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		go func() {
			<-ctx.Done()
			stop()
		}()

		items, batchErr := env.app.Batch(ctx, cli.BatchOptions{
			File:        args[0],
			Profile:     flagProfile,
			Variant:     flagVariant,
			Concurrency: flagConcurrency,
			Rate:        flagRate,
			Timeout:     flagTimeout,
			Output:      flagOutput,
			NoHistory:   flagNoHistory,
		})
		if len(items) > 0 {
			if err := env.app.WriteBatch(cmd.OutOrStdout(), items, flagOutput); err != nil {
				return err
			}
		}
		return batchErr
	},
}

// Run flags
var (
	flagVariant     string
	flagFilter      string
	flagQuery       string
	flagTimeout     time.Duration
	flagNoHistory   bool
	flagMetricsFile string
	flagInflux      export.Config
)

// Batch flags
var (
	flagConcurrency int
	flagRate        float64
)

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&flagVariant, "variant", "", "Force the variant (rush/sprint)")
	cmd.Flags().StringVar(&flagFilter, "filter", "", "JMESPath filter applied to the report")
	cmd.Flags().StringVar(&flagQuery, "query", "", "JMESPath query, or $(command) fed the report on stdin")
	cmd.Flags().DurationVar(&flagTimeout, "timeout", 0, "Abort the job after this long")
	cmd.Flags().BoolVar(&flagNoHistory, "no-history", false, "Do not record the run")
	cmd.Flags().StringVar(&flagMetricsFile, "metrics-textfile", "", "Write Prometheus metrics to this file")
	cmd.Flags().StringVar(&flagInflux.URL, "influx-url", "", "InfluxDB URL for timeline export")
	cmd.Flags().StringVar(&flagInflux.Token, "influx-token", os.Getenv("INFLUX_TOKEN"), "InfluxDB token")
	cmd.Flags().StringVar(&flagInflux.Org, "influx-org", "", "InfluxDB organization")
	cmd.Flags().StringVar(&flagInflux.Bucket, "influx-bucket", "", "InfluxDB bucket")
	cmd.Flags().StringVar(&flagInflux.Measurement, "influx-measurement", export.DefaultMeasurement, "InfluxDB measurement")
}

func init() {
	addRunFlags(runCmd)
	compileCmd.Flags().StringVar(&flagVariant, "variant", "", "Force the variant (rush/sprint)")

	batchCmd.Flags().StringVar(&flagVariant, "variant", "", "Force the variant (rush/sprint)")
	batchCmd.Flags().DurationVar(&flagTimeout, "timeout", 0, "Abort each job after this long")
	batchCmd.Flags().BoolVar(&flagNoHistory, "no-history", false, "Do not record the runs")
	batchCmd.Flags().IntVar(&flagConcurrency, "concurrency", cli.DefaultBatchConcurrency, "Jobs running at once")
	batchCmd.Flags().Float64Var(&flagRate, "rate", cli.DefaultBatchRate, "Job submissions per second")
}

func runCommand(cmd *cobra.Command, command string) error {
	env, err := setup(!flagNoHistory)
	if err != nil {
		return err
	}
	defer env.Close()

	interrupt, stop := cli.NotifyInterrupt()
	defer stop()
	env.app.Interrupt = interrupt
	env.app.Stdout = cmd.OutOrStdout()

	_, err = env.app.Run(context.Background(), cli.RunOptions{
		Command:         command,
		Variant:         flagVariant,
		Profile:         flagProfile,
		Output:          flagOutput,
		Filter:          flagFilter,
		Query:           flagQuery,
		Timeout:         flagTimeout,
		NoHistory:       flagNoHistory,
		Influx:          flagInflux,
		MetricsTextfile: flagMetricsFile,
	})
	return err
}

// joinArgs rebuilds one command line from shell words. A single argument is
// taken as the whole command; otherwise words holding whitespace or quotes are
// quoted again so the lexer keeps them whole.
func joinArgs(args []string) string {
	if len(args) == 1 {
		return args[0]
	}
	words := make([]string, len(args))
	for i, arg := range args {
		if arg == "" || strings.ContainsAny(arg, " \t\n'\"") {
			arg = `"` + strings.ReplaceAll(arg, `"`, `\"`) + `"`
		}
		words[i] = arg
	}
	return strings.Join(words, " ")
}
