package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jgoulah/usageledger/pkg/models"
)

var (
	publishYear int
	publishAll  bool
)

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Publish submitted entries to MQTT",
	Long:  `Publishes the monthly totals of submitted entries as retained MQTT messages.`,
	RunE:  runPublish,
}

func init() {
	publishCmd.Flags().IntVar(&publishYear, "year", 0, "Only publish entries of this year")
	publishCmd.Flags().BoolVar(&publishAll, "all", false, "Force republish all submitted entries (ignore published flag)")
	rootCmd.AddCommand(publishCmd)
}

func runPublish(cmd *cobra.Command, args []string) error {
	fmt.Printf("=== Publish started at %s ===\n", time.Now().Format("2006-01-02 15:04:05 MST"))

	a, err := openApp(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer a.Close()

	if a.publisher == nil {
		return fmt.Errorf("MQTT is not enabled in config")
	}

	var entries []models.Entry
	if publishAll {
		entries, err = a.db.ListEntries(cmd.Context(), publishYear)
	} else {
		entries, err = a.db.ListUnpublished(cmd.Context())
	}
	if err != nil {
		return fmt.Errorf("listing entries: %w", err)
	}

	var pending []models.Entry
	for _, e := range entries {
		if e.Status != models.StatusSubmitted {
			continue
		}
		if publishYear > 0 && e.Year != publishYear {
			continue
		}
		pending = append(pending, e)
	}
	if len(pending) == 0 {
		fmt.Println("No unpublished entries found")
		return nil
	}

	published := 0
	for i, e := range pending {
		fmt.Printf("[%d/%d] Publishing %s %d (%.2f %s)... ", i+1, len(pending), e.PageKey, e.Year, e.Amount, e.Unit)
		if err := a.publisher.Publish(cmd.Context(), e); err != nil {
			fmt.Printf("FAILED: %v\n", err)
			continue
		}

		if err := a.db.MarkPublished(cmd.Context(), e.ID); err != nil {
			fmt.Printf("✓ (warning: failed to mark as published: %v)\n", err)
		} else {
			fmt.Printf("✓\n")
		}
		published++
	}

	fmt.Printf("\nSuccessfully published %d/%d entries\n", published, len(pending))
	return nil
}
