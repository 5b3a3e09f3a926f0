package main

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jgoulah/usageledger/internal/category"
	"github.com/jgoulah/usageledger/internal/database"
	"github.com/jgoulah/usageledger/pkg/models"
)

var showCmd = &cobra.Command{
	Use:   "show <category> <year>",
	Short: "Show an entry with the evidence of each record",
	Args:  cobra.ExactArgs(2),
	RunE:  runShow,
}

var showRecord string

func init() {
	showCmd.Flags().StringVar(&showRecord, "record", "", "List only the files uploaded for this record id")
	rootCmd.AddCommand(showCmd)
}

func parseYear(s string) (int, error) {
	year, err := strconv.Atoi(s)
	if err != nil || year <= 0 {
		return 0, fmt.Errorf("invalid year %q", s)
	}
	return year, nil
}

func runShow(cmd *cobra.Command, args []string) error {
	year, err := parseYear(args[1])
	if err != nil {
		return err
	}

	a, err := openApp(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer a.Close()

	if showRecord != "" {
		return showRecordFiles(cmd.Context(), a.db, args[0], year, showRecord)
	}

	loaded, err := a.reconciler.Reload(cmd.Context(), args[0], year)
	if err != nil {
		return err
	}
	if loaded == nil {
		fmt.Printf("No entry found for %s %d\n", args[0], year)
		return nil
	}

	cat := category.Get(args[0])
	e := loaded.Entry
	fmt.Printf("%s %d (%s)\n", cat.Name, e.Year, e.ID)
	fmt.Printf("Status: %s, updated %s\n", e.Status, humanize.Time(e.UpdatedAt))
	printMonthly(e.Monthly)

	fmt.Println("\nRecords:")
	fmt.Println("----------------------------------------")
	for i, rec := range loaded.Records {
		fmt.Printf("%2d. %s%s\n", i+1, rec.ID, describeRecord(rec))
		ev := loaded.Evidence.Records[i]
		printFiles("usage", ev.Usage)
		printFiles("spec", ev.Spec)
	}

	if len(loaded.Evidence.Shared) > 0 {
		fmt.Println("\nShared files:")
		printFiles("shared", loaded.Evidence.Shared)
	}
	fmt.Printf("\n%d records, %d files\n", len(loaded.Records), len(loaded.Files))
	return nil
}

// showRecordFiles lists the files whose record id list names recordID,
// straight from the record link table.
func showRecordFiles(ctx context.Context, db *database.DB, pageKey string, year int, recordID string) error {
	entry, err := db.Get(ctx, pageKey, year)
	if err != nil {
		return err
	}
	if entry == nil {
		fmt.Printf("No entry found for %s %d\n", pageKey, year)
		return nil
	}
	files, err := db.FilesForRecord(ctx, entry.ID, recordID)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Printf("No files uploaded for record %s\n", recordID)
		return nil
	}
	fmt.Printf("Files for record %s (%s):\n", recordID, entry.ID)
	printFiles("file", files)
	return nil
}

func describeRecord(r models.DataRecord) string {
	var s string
	if r.GroupID != "" {
		s += fmt.Sprintf(" [group %s]", r.GroupID)
	}
	switch {
	case r.IsBill():
		s += fmt.Sprintf(" %s → %s %.2f", r.BillingStart, r.BillingEnd, r.BillingUnits)
	case r.Date != "":
		s += fmt.Sprintf(" %s %.2f", r.Date, r.Quantity)
	case r.Month > 0:
		s += fmt.Sprintf(" month %d %.2f", r.Month, r.Quantity+r.Hours)
	default:
		s += fmt.Sprintf(" %.2f", r.Quantity)
	}
	if r.SpecID != "" {
		s += " spec " + r.SpecID
	}
	return s
}

func printFiles(label string, files []models.EvidenceFile) {
	for _, f := range files {
		fmt.Printf("      %-6s %s (%s, %s) %s\n", label, f.FileName, f.FileType, humanize.Bytes(uint64(f.FileSize)), f.ID)
	}
}

func printMonthly(m models.Monthly) {
	if len(m) == 0 {
		fmt.Println("No monthly usage")
		return
	}
	months := make([]int, 0, len(m))
	for month := range m {
		months = append(months, month)
	}
	sort.Ints(months)

	fmt.Println("----------------------------------------")
	fmt.Printf("%-8s  %14s\n", "Month", "Usage")
	fmt.Println("----------------------------------------")
	for _, month := range months {
		fmt.Printf("%-8s  %14s\n", fmt.Sprintf("%02d", month), humanize.CommafWithDigits(m[month], 2))
	}
	fmt.Println("----------------------------------------")
	fmt.Printf("Total: %s\n", humanize.CommafWithDigits(m.Total(), 2))
}
