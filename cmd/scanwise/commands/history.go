package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/benvon/scanwise/internal/history"
	"github.com/spf13/cobra"
)

// NewHistoryCmd creates the history command group
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Browse or clear past scan results",
	}

	cmd.AddCommand(newHistoryListCmd())
	cmd.AddCommand(newHistoryClearCmd())
	return cmd
}

func newHistoryListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List past scans, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, adapter, cleanup, err := openStorage()
			if err != nil {
				return err
			}
			defer cleanup()

			store := history.NewStore(adapter, cfg.HistoryLimit, cliLogger())
			log := store.Load(context.Background())

			if len(log) == 0 {
				fmt.Println("No scans recorded")
				return nil
			}

			for _, entry := range log {
				ts := time.UnixMilli(entry.Timestamp).Local().Format("2006-01-02 15:04")
				fmt.Printf("%s  %s\n", ts, entry.Result.Summary)
				if entry.Result.CalorieAnalysis != nil {
					fmt.Printf("                  %d kcal per serving\n", entry.Result.CalorieAnalysis.ProductCalories)
				}
			}
			return nil
		},
	}
}

func newHistoryClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete all recorded scans",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, adapter, cleanup, err := openStorage()
			if err != nil {
				return err
			}
			defer cleanup()

			store := history.NewStore(adapter, cfg.HistoryLimit, cliLogger())
			store.Clear(context.Background())
			fmt.Println("History cleared")
			return nil
		},
	}
}
