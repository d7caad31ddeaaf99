package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/studiowebux/blitzbar/internal/config"
	"github.com/studiowebux/blitzbar/internal/executor"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage credential profiles",
}

var profileListCmd = &cobra.Command{
	Use:   "list",
	Short: "List profiles; the active one is marked",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := setup(false)
		if err != nil {
			return err
		}
		defer env.Close()
		return env.app.ProfileList(cmd.OutOrStdout(), flagOutput)
	},
}

var profileUseCmd = &cobra.Command{
	Use:   "use <name>",
	Short: "Make a profile the active one",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := setup(false)
		if err != nil {
			return err
		}
		defer env.Close()
		if err := env.app.ProfileUse(args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Active profile: %s\n", args[0])
		return nil
	},
}

var (
	flagNewUser     string
	flagNewKey      string
	flagNewEndpoint string
	flagNewRegion   string
	flagNewInterval time.Duration
)

var profileAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add a profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := setup(false)
		if err != nil {
			return err
		}
		defer env.Close()

		p := config.Profile{
			Name:         args[0],
			Username:     flagNewUser,
			APIKey:       flagNewKey,
			Region:       flagNewRegion,
			PollInterval: flagNewInterval,
		}
		if flagNewEndpoint != "" {
			ep, err := executor.ParseEndpoint(flagNewEndpoint)
			if err != nil {
				return err
			}
			p.Scheme, p.Host, p.Port = ep.Scheme, ep.Host, ep.Port
		}
		if err := env.app.ProfileAdd(p); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Profile %s added\n", p.Name)
		return nil
	},
}

var profileDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := setup(false)
		if err != nil {
			return err
		}
		defer env.Close()
		return env.app.ProfileDelete(args[0])
	},
}

func init() {
	profileAddCmd.Flags().StringVar(&flagNewUser, "user", "", "Account username")
	profileAddCmd.Flags().StringVar(&flagNewKey, "api-key", "", "Account API key")
	profileAddCmd.Flags().StringVar(&flagNewEndpoint, "endpoint", "", "Service endpoint, e.g. https://www.blitz.io")
	profileAddCmd.Flags().StringVar(&flagNewRegion, "region", "", "Default region for commands without -r")
	profileAddCmd.Flags().DurationVar(&flagNewInterval, "poll-interval", 0, "Delay between status polls")

	profileCmd.AddCommand(profileListCmd)
	profileCmd.AddCommand(profileUseCmd)
	profileCmd.AddCommand(profileAddCmd)
	profileCmd.AddCommand(profileDeleteCmd)
}
