package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jgoulah/usageledger/internal/grouping"
	"github.com/jgoulah/usageledger/internal/guard"
	"github.com/jgoulah/usageledger/internal/reconcile"
	"github.com/jgoulah/usageledger/pkg/models"
)

var submitDraft bool

var submitCmd = &cobra.Command{
	Use:   "submit <session.yaml>",
	Short: "Save or submit an entry from a session file",
	Long: `Reads records, group edits and specs from a YAML session file, saves the entry
and uploads every pending evidence file. The session file is then rewritten
with the saved entry id, record and group ids, and only the files that failed,
so submitting it again retries just those.`,
	Args: cobra.ExactArgs(1),
	RunE: runSubmit,
}

func init() {
	submitCmd.Flags().BoolVar(&submitDraft, "draft", false, "Save as draft without final submission")
	rootCmd.AddCommand(submitCmd)
}

func runSubmit(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := openApp(ctx, !submitDraft)
	if err != nil {
		return err
	}
	defer a.Close()

	var res *reconcile.Result
	g := guard.New(a.logger)
	err = g.ExecuteSubmit(ctx, func(ctx context.Context) error {
		var err error
		res, err = submitSession(ctx, a.reconciler, args[0], submitDraft, grouping.NewID)
		return err
	})
	if err != nil {
		return describe(err)
	}

	fmt.Printf("Entry %s %s\n", res.EntryID, res.Status)
	printMonthly(res.Monthly)
	fmt.Printf("Evidence files on entry: %d\n", len(res.Files))

	if len(res.Failures) > 0 {
		fmt.Printf("\n%d file operation(s) failed:\n", len(res.Failures))
		for _, f := range res.Failures {
			fmt.Printf("  ✗ %v\n", f)
		}
		return fmt.Errorf("%d file operation(s) failed, submit %s again to retry them", len(res.Failures), args[0])
	}
	return nil
}

// describe turns validation and persistence errors into user-facing text
func describe(err error) error {
	var verr *models.ValidationError
	if errors.As(err, &verr) {
		return fmt.Errorf("invalid input: %w", err)
	}
	var perr *reconcile.PersistenceError
	if errors.As(err, &perr) {
		return fmt.Errorf("entry was not saved, no files were changed: %w", err)
	}
	return err
}
