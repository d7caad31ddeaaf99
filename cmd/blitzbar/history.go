package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/studiowebux/blitzbar/internal/history"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect recorded runs",
}

var (
	flagHistoryLimit   int
	flagHistoryVariant string
)

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded runs, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := setup(true)
		if err != nil {
			return err
		}
		defer env.Close()
		return env.app.HistoryList(cmd.OutOrStdout(), history.Filter{
			Profile: flagProfile,
			Variant: flagHistoryVariant,
			Limit:   flagHistoryLimit,
		}, flagOutput)
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one run; a unique id prefix is enough",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := setup(true)
		if err != nil {
			return err
		}
		defer env.Close()
		return env.app.HistoryShow(cmd.OutOrStdout(), args[0], flagOutput)
	},
}

var historyStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Aggregate recorded runs per command",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := setup(true)
		if err != nil {
			return err
		}
		defer env.Close()
		return env.app.HistoryStats(cmd.OutOrStdout(), flagProfile, flagOutput)
	},
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every recorded run",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := setup(true)
		if err != nil {
			return err
		}
		defer env.Close()
		if err := env.app.HistoryClear(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "History cleared")
		return nil
	},
}

var historyToggleCmd = &cobra.Command{
	Use:       "record <on|off>",
	Short:     "Turn run recording on or off",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"on", "off"},
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := setup(false)
		if err != nil {
			return err
		}
		defer env.Close()
		switch args[0] {
		case "on":
			return env.app.Sessions.SetHistoryEnabled(true)
		case "off":
			return env.app.Sessions.SetHistoryEnabled(false)
		}
		return fmt.Errorf("expected on or off, got %q", args[0])
	},
}

func init() {
	historyListCmd.Flags().IntVarP(&flagHistoryLimit, "limit", "n", 20, "Maximum runs to list (0 for all)")
	historyListCmd.Flags().StringVar(&flagHistoryVariant, "variant", "", "Only list rush or sprint runs")

	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyStatsCmd)
	historyCmd.AddCommand(historyClearCmd)
	historyCmd.AddCommand(historyToggleCmd)
}
