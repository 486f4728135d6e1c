package main

import (
	"fmt"
	"os"

	"github.com/benvon/scanwise/cmd/scanwise/commands"
	"github.com/spf13/cobra"
)

func main() {
	var rootCmd = &cobra.Command{
		Use:   "scanwise",
		Short: "Product photo analysis from the command line",
		Long:  "CLI for the scanwise analyzer: manage your profile, scan product photos, and browse scan history",
	}

	rootCmd.PersistentFlags().StringVar(&commands.ConfigPath, "config", "", "Path to an optional YAML config file")
	rootCmd.PersistentFlags().BoolVar(&commands.Debug, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(commands.NewProfileCmd())
	rootCmd.AddCommand(commands.NewScanCmd())
	rootCmd.AddCommand(commands.NewHistoryCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
