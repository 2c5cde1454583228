package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/multifocus/pkg/client"
)

var plansCmd = &cobra.Command{
	Use:   "plans",
	Short: "Show the focus plans",
	Long: `Print the current plans as text, one position per plane each followed by
a semicolon (for example "100;310;550;").`,
	Args: cobra.NoArgs,
	RunE: runPlansGet,
}

var plansSetCmd = &cobra.Command{
	Use:   "set <text>",
	Short: "Replace the focus plans",
	Long: `Parse plan text with the current number of plans and adopt it. Slots the
text does not cover keep their previous positions. Text with no readable
position is rejected and the plans are left unchanged.`,
	Args: cobra.ExactArgs(1),
	RunE: runPlansSet,
}

func init() {
	plansCmd.AddCommand(plansSetCmd)
	rootCmd.AddCommand(plansCmd)
}

func runPlansGet(cmd *cobra.Command, _ []string) error {
	return withClient(cmd.Context(), func(ctx context.Context, c *client.Client) error {
		text, err := c.Plans(ctx)
		if err != nil {
			return fmt.Errorf("failed to get plans: %w", err)
		}
		fmt.Println(text)
		return nil
	})
}

func runPlansSet(cmd *cobra.Command, args []string) error {
	return withClient(cmd.Context(), func(ctx context.Context, c *client.Client) error {
		res, err := c.SetPlans(ctx, args[0])
		if err != nil {
			return fmt.Errorf("failed to set plans: %w", err)
		}
		if !res.Adopted {
			return fmt.Errorf("plans %q not adopted: nothing parsed or a scan is running; current plans %q", args[0], res.Plans)
		}
		printInfo("Plans: %s (%d parsed)", res.Plans, res.Parsed)
		return nil
	})
}
