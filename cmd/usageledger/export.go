package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jgoulah/usageledger/internal/storage"
)

var exportCmd = &cobra.Command{
	Use:   "export <category> <year> <dir>",
	Short: "Copy an entry's evidence files into a directory",
	Args:  cobra.ExactArgs(3),
	RunE:  runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	year, err := parseYear(args[1])
	if err != nil {
		return err
	}
	outDir := args[2]

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

	files, err := a.files.List(cmd.Context(), entry.ID)
	if err != nil {
		return fmt.Errorf("listing files: %w", err)
	}

	var total uint64
	for _, f := range files {
		// prefix with the file id so equal names do not collide
		dst := filepath.Join(outDir, f.ID+"-"+filepath.Base(f.FileName))
		n, err := exportFile(cmd.Context(), a.files, f.ID, dst)
		if err != nil {
			return err
		}
		total += uint64(n)
		fmt.Printf("  %s (%s)\n", dst, humanize.Bytes(uint64(n)))
	}
	fmt.Printf("Exported %d files, %s\n", len(files), humanize.Bytes(total))
	return nil
}

func exportFile(ctx context.Context, files *storage.FileStore, fileID, dst string) (int64, error) {
	_, rc, err := files.Open(ctx, fileID)
	if err != nil {
		return 0, fmt.Errorf("opening %s: %w", fileID, err)
	}
	defer rc.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return 0, fmt.Errorf("creating export directory: %w", err)
	}
	out, err := os.Create(dst)
	if err != nil {
		return 0, fmt.Errorf("creating %s: %w", dst, err)
	}
	n, err := io.Copy(out, rc)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return 0, fmt.Errorf("writing %s: %w", dst, err)
	}
	return n, nil
}
