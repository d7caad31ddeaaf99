package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/studiowebux/blitzbar/internal/mock"
)

var (
	flagMockPort   int
	flagMockHost   string
	flagMockConfig string
)

var mockCmd = &cobra.Command{
	Use:   "mock",
	Short: "Run a fake testing service for local dry runs",
	Long: `Run a fake testing service for local dry runs.

Point a profile at it with:
  blitzbar profile add local --endpoint http://localhost:9295 --user any --api-key any`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, err := newLogger()
		if err != nil {
			return err
		}
		defer logger.Close()

		cfg := &mock.Config{}
		if flagMockConfig != "" {
			if cfg, err = mock.LoadConfig(flagMockConfig); err != nil {
				return err
			}
		}
		if cmd.Flags().Changed("port") || cfg.Port == 0 {
			cfg.Port = flagMockPort
		}
		if cmd.Flags().Changed("host") || cfg.Host == "" {
			cfg.Host = flagMockHost
		}
		cfg.Logging = true

		server := mock.NewServer(cfg, logger.Logger)
		if err := server.Start(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Fake service listening on %s (Ctrl+C to stop)\n", server.Address())

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		out := cmd.OutOrStdout()
		for {
			select {
			case <-ctx.Done():
				return server.Stop()
			case entry := <-server.NotifyChannel():
				fmt.Fprintf(out, "%s %s %s %d %s\n",
					entry.Timestamp.Format("15:04:05"), entry.Method, entry.Path, entry.Status,
					entry.Duration.Round(time.Microsecond))
			}
		}
	},
}

func init() {
	mockCmd.Flags().IntVar(&flagMockPort, "port", 9295, "Port to listen on")
	mockCmd.Flags().StringVar(&flagMockHost, "host", "localhost", "Host to bind")
	mockCmd.Flags().StringVar(&flagMockConfig, "config", "", "YAML or JSON file scripting the fake service")
}
