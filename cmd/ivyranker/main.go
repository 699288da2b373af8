package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"
)

var version = "0.1.0"

var (
	configFile string
	noMail     bool
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	rootCmd := &cobra.Command{
		Use:           "ivyranker",
		Short:         "Rank ETFs by relative strength and track 50/200-day crossings",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configFile, "config", defaultConfigPath(), "Path to config file")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run one batch: fetch, rank, write reports and mail them",
		RunE:  runBatch,
	}
	runCmd.Flags().BoolVar(&noMail, "no-mail", false, "Write reports without sending notifications")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the scheduler, metrics endpoint and Telegram commands until stopped",
		RunE:  serve,
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "ivyranker version %s\n", version)
		},
	}

	rootCmd.AddCommand(runCmd, serveCmd, versionCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func defaultConfigPath() string {
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		return v
	}
	return "configs/config.yaml"
}
