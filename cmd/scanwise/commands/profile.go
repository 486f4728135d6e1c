package commands

import (
	"context"
	"fmt"

	"github.com/benvon/scanwise/internal/models"
	"github.com/benvon/scanwise/internal/profile"
	"github.com/benvon/scanwise/internal/validation"
	"github.com/spf13/cobra"
)

// NewProfileCmd creates the profile command group
func NewProfileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Manage the analysis profile",
		Long:  "Show or set the profile (age, gender, health context) that personalizes every scan",
	}

	cmd.AddCommand(newProfileShowCmd())
	cmd.AddCommand(newProfileSetCmd())
	return cmd
}

func newProfileShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the saved profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, adapter, cleanup, err := openStorage()
			if err != nil {
				return err
			}
			defer cleanup()

			store := profile.NewStore(adapter, profile.ConsentPolicy{RequireOnEdit: cfg.ReconsentOnEdit}, cliLogger())
			p := store.Load(context.Background())

			if !profile.IsConfigured(p) {
				fmt.Println("Profile is not configured; run 'scanwise profile set' before scanning")
			}
			fmt.Printf("Age:            %s\n", valueOrUnset(p.Age))
			fmt.Printf("Gender:         %s\n", valueOrUnset(string(p.Gender)))
			fmt.Printf("Health context: %s\n", valueOrUnset(p.HealthContext))
			return nil
		},
	}
}

func newProfileSetCmd() *cobra.Command {
	var age, gender, healthContext string
	var consent bool

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Save the profile",
		Long:  "Save the profile wholesale. All three fields must be provided for the scan gate to open.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, adapter, cleanup, err := openStorage()
			if err != nil {
				return err
			}
			defer cleanup()

			store := profile.NewStore(adapter, profile.ConsentPolicy{RequireOnEdit: cfg.ReconsentOnEdit}, cliLogger())
			ctx := context.Background()

			if err := validation.ValidateGender(gender); err != nil {
				return err
			}
			if store.ConsentRequired(ctx) && !consent {
				return fmt.Errorf("the terms must be accepted: re-run with --consent")
			}

			p := models.Profile{
				Age:           validation.SanitizeText(age),
				Gender:        models.Gender(gender),
				HealthContext: validation.SanitizeText(healthContext),
			}
			if err := store.Save(ctx, p); err != nil {
				return fmt.Errorf("failed to save profile: %w", err)
			}

			if profile.IsConfigured(p) {
				fmt.Println("Profile saved; scanning is enabled")
			} else {
				fmt.Println("Profile saved, but incomplete; scanning stays disabled until age, gender, and health context are all set")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&age, "age", "", "Age (free text, e.g. 34)")
	cmd.Flags().StringVar(&gender, "gender", "", "Gender: male, female, or other")
	cmd.Flags().StringVar(&healthContext, "health-context", "", "Health context used to personalize analysis")
	cmd.Flags().BoolVar(&consent, "consent", false, "Accept the terms for this save")
	return cmd
}

func valueOrUnset(v string) string {
	if v == "" {
		return "(unset)"
	}
	return v
}
