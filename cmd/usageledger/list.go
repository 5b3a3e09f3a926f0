package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jgoulah/usageledger/internal/category"
)

var (
	listYear       int
	listCategories bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored entries",
	Long:  `Displays stored usage entries, newest year first.`,
	RunE:  runList,
}

func init() {
	listCmd.Flags().IntVar(&listYear, "year", 0, "Filter by reporting year")
	listCmd.Flags().BoolVar(&listCategories, "categories", false, "List known categories instead of entries")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	if listCategories {
		fmt.Printf("%-22s  %-8s  %-7s  %s\n", "Category", "Kind", "Unit", "Name")
		fmt.Println("------------------------------------------------------------")
		for _, key := range category.Keys() {
			c := category.Get(key)
			fmt.Printf("%-22s  %-8s  %-7s  %s\n", key, c.Kind, c.Unit, c.Name)
		}
		return nil
	}

	a, err := openApp(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer a.Close()

	entries, err := a.db.ListEntries(cmd.Context(), listYear)
	if err != nil {
		return fmt.Errorf("listing entries: %w", err)
	}
	if len(entries) == 0 {
		fmt.Println("No entries found")
		return nil
	}

	fmt.Printf("%-6s  %-22s  %14s  %-6s  %-10s  %s\n", "Year", "Category", "Amount", "Unit", "Status", "Updated")
	fmt.Println("--------------------------------------------------------------------------------")
	for _, e := range entries {
		status := e.Status
		if e.Published {
			status += "*"
		}
		fmt.Printf("%-6d  %-22s  %14s  %-6s  %-10s  %s\n",
			e.Year, e.PageKey, humanize.CommafWithDigits(e.Amount, 2), e.Unit, status, humanize.Time(e.UpdatedAt))
	}
	fmt.Println("--------------------------------------------------------------------------------")
	fmt.Printf("%d entries (* = published)\n", len(entries))
	return nil
}
