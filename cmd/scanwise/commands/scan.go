package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/benvon/scanwise/internal/history"
	"github.com/benvon/scanwise/internal/ingest"
	"github.com/benvon/scanwise/internal/models"
	"github.com/benvon/scanwise/internal/profile"
	"github.com/benvon/scanwise/internal/scan"
	"github.com/benvon/scanwise/internal/services/ai"
	"github.com/spf13/cobra"
)

// NewScanCmd creates the scan command
func NewScanCmd() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "scan <image>...",
		Short: "Analyze one or more product photos",
		Long:  "Decode the given image files, send them for analysis together with the saved profile, and print the verdict. A successful scan is recorded in history.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, adapter, cleanup, err := openStorage()
			if err != nil {
				return err
			}
			defer cleanup()

			logger := cliLogger()
			profileStore := profile.NewStore(adapter, profile.ConsentPolicy{RequireOnEdit: cfg.ReconsentOnEdit}, logger)
			historyStore := history.NewStore(adapter, cfg.HistoryLimit, logger)
			ingestor := ingest.NewIngestor(logger)

			gateway, err := ai.NewOpenAIGateway(cfg.OpenAIKey, cfg.AIBaseURL, cfg.AIModel, logger, Debug)
			if err != nil {
				return err
			}

			// The orchestrator reports terminal states through its observer;
			// the CLI just waits for the attempt to leave Analyzing.
			done := make(chan scan.Snapshot, 1)
			orchestrator := scan.NewOrchestrator(profileStore, ingestor, historyStore, gateway, logger,
				scan.WithObserver(func(snap scan.Snapshot) {
					if snap.State == scan.StateAnalyzing || snap.State == scan.StateIdle {
						return
					}
					select {
					case done <- snap:
					default:
					}
				}),
			)

			sources := make([]ingest.Source, 0, len(args))
			for _, path := range args {
				sources = append(sources, ingest.FileSource(path))
			}

			ctx := context.Background()
			ingestor.AddFiles(ctx, sources...)
			if len(ingestor.Selection()) == 0 {
				return fmt.Errorf("none of the given files could be decoded as images")
			}

			if err := orchestrator.Start(ctx); err != nil {
				return err
			}
			fmt.Printf("Analyzing %d image(s)...\n", len(ingestor.Selection()))

			select {
			case snap := <-done:
				return printVerdict(snap)
			case <-time.After(timeout):
				return fmt.Errorf("analysis did not finish within %s", timeout)
			}
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 3*time.Minute, "How long to wait for the analysis")
	return cmd
}

func printVerdict(snap scan.Snapshot) error {
	switch snap.State {
	case scan.StateFailed:
		return fmt.Errorf("%s", snap.ErrorMessage)
	case scan.StateUnclear:
		fmt.Println("The photos could not be interpreted; retake them and scan again.")
		if snap.Result != nil && snap.Result.ImageQualityCheck.Reason != "" {
			fmt.Printf("Reason: %s\n", snap.Result.ImageQualityCheck.Reason)
		}
		return nil
	case scan.StateSucceeded:
		printResult(snap.Result)
		return nil
	default:
		return fmt.Errorf("unexpected scan state %q", snap.State)
	}
}

func printResult(result *models.AnalysisResult) {
	if result == nil {
		return
	}

	fmt.Printf("\n%s\n", result.Summary)

	if ca := result.CalorieAnalysis; ca != nil {
		fmt.Printf("\nCalories: %d kcal per serving (%d%% of your ~%d kcal daily need)\n",
			ca.ProductCalories, ca.Percentage, ca.UserDailyNeed)
		if ca.Note != "" {
			fmt.Printf("Note: %s\n", ca.Note)
		}
	}

	if len(result.Pros) > 0 {
		fmt.Println("\nPros:")
		for _, pro := range result.Pros {
			fmt.Printf("  + %s\n", pro)
		}
	}
	if len(result.Cons) > 0 {
		fmt.Println("\nCons:")
		for _, con := range result.Cons {
			fmt.Printf("  - %s\n", con)
		}
	}
	if len(result.Recommendations) > 0 {
		fmt.Println("\nAlternatives:")
		for _, rec := range result.Recommendations {
			fmt.Printf("  * %s: %s\n", rec.Name, rec.Reason)
		}
	}
}
