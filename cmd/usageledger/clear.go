package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var clearCmd = &cobra.Command{
	Use:   "clear <category> <year>",
	Short: "Delete an entry and all of its evidence files",
	Args:  cobra.ExactArgs(2),
	RunE:  runClear,
}

func init() {
	rootCmd.AddCommand(clearCmd)
}

func runClear(cmd *cobra.Command, args []string) error {
	year, err := parseYear(args[1])
	if err != nil {
		return err
	}

	a, err := openApp(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer a.Close()

	entry, err := a.db.Get(cmd.Context(), args[0], year)
	if err != nil {
		return err
	}
	if entry == nil {
		fmt.Printf("No entry found for %s %d\n", args[0], year)
		return nil
	}

	failures, err := a.reconciler.Clear(cmd.Context(), entry.ID)
	if err != nil {
		return err
	}
	if len(failures) > 0 {
		for _, f := range failures {
			fmt.Printf("  ✗ %v\n", f)
		}
		return fmt.Errorf("%d file(s) could not be deleted, entry kept", len(failures))
	}

	fmt.Printf("Cleared %s %d\n", args[0], year)
	return nil
}
