package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"go-omr-engine/internal/logger"
	"go-omr-engine/pkg/models"
	"go-omr-engine/pkg/omr"
)

var batchOpts struct {
	keyFile     string
	artifactDir string
	version     string
	workers     int
	strict      bool
	summaryOnly bool
}

var sheetExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true,
	".bmp": true, ".tif": true, ".tiff": true, ".webp": true,
	".pdf": true,
}

var batchCmd = &cobra.Command{
	Use:   "batch <dir>",
	Short: "Score every sheet in a directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, err := buildEngine(batchOpts.keyFile, batchOpts.artifactDir, batchOpts.strict)
		if err != nil {
			return err
		}

		paths, err := collectSheets(args[0])
		if err != nil {
			return err
		}
		if len(paths) == 0 {
			return fmt.Errorf("no sheet files found in %s", args[0])
		}

		sheets := make([]omr.Sheet, len(paths))
		for i, p := range paths {
			sheets[i] = omr.Sheet{Source: p, DeclaredVersion: batchOpts.version}
		}

		bar := progressbar.NewOptions(len(sheets),
			progressbar.OptionSetDescription("scoring"),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowCount(),
			progressbar.OptionOnCompletion(func() { fmt.Fprintln(os.Stderr) }),
		)

		results := engine.ProcessBatchFunc(cmd.Context(), sheets, batchOpts.workers, func(models.ProcessingResult) {
			bar.Add(1)
		})

		summary := omr.Summarize(results)
		logger.WithFields(map[string]interface{}{
			"total":      summary.TotalSheets,
			"successful": summary.Successful,
			"failed":     summary.Failed,
		}).Info("batch complete")

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if batchOpts.summaryOnly {
			return enc.Encode(summary)
		}
		return enc.Encode(struct {
			Summary omr.Summary               `json:"summary"`
			Results []models.ProcessingResult `json:"results"`
		}{summary, results})
	},
}

// collectSheets walks dir non-recursively and returns sheet files in a
// stable order so batch output is reproducible.
func collectSheets(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", dir, err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if sheetExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)
	return paths, nil
}

func init() {
	batchCmd.Flags().StringVarP(&batchOpts.keyFile, "keys", "k", "", "Path to answer key JSON file")
	batchCmd.Flags().StringVarP(&batchOpts.artifactDir, "out", "o", "", "Directory for audit artifacts")
	batchCmd.Flags().StringVar(&batchOpts.version, "sheet-version", "", "Declared sheet version for every sheet")
	batchCmd.Flags().IntVarP(&batchOpts.workers, "workers", "w", 4, "Number of parallel workers")
	batchCmd.Flags().BoolVar(&batchOpts.strict, "strict", false, "Treat unrepairable grids as terminal failures")
	batchCmd.Flags().BoolVar(&batchOpts.summaryOnly, "summary", false, "Print only the batch summary")
	rootCmd.AddCommand(batchCmd)
}
