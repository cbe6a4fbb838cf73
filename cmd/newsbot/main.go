package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/m3rciful/newsbot/core/buildinfo"
	corecmd "github.com/m3rciful/newsbot/core/cmd"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfgPath string
	opts := func() corecmd.Options {
		return corecmd.Options{ConfigPath: cfgPath, ConfigEnvVar: corecmd.DefaultConfigEnvVar}
	}

	run := &cobra.Command{
		Use:   "run",
		Short: "Poll Telegram and serve the operators",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return corecmd.Run(opts())
		},
	}
	root := &cobra.Command{
		Use:           "newsbot",
		Short:         "Telegram bot for managing site news",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          run.RunE,
	}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "YAML config file (default $"+corecmd.DefaultConfigEnvVar+")")

	check := &cobra.Command{
		Use:   "check",
		Short: "Validate the config and report store and lock status",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return corecmd.Check(cmd.Context(), cmd.OutOrStdout(), opts())
		},
	}
	version := &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "newsbot "+buildinfo.String())
		},
	}

	root.AddCommand(run, check, version)
	return root
}
