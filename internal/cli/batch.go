package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"casewarden/internal/model"
	"casewarden/internal/pipeline"
	"casewarden/internal/worker"
)

var (
	batchFile        string
	batchJSONDir     string
	batchConcurrency int
	batchRate        float64
	batchTimeout     time.Duration
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch [case-dirs...]",
	Short: "Verify multiple case directories concurrently",
	Long: `Batch verifies many cases in one run. Cases are independent: every
step's inputs are scoped to one case directory, so cross-case parallelism
is safe.

Directories come from arguments, or from a file (one path per line,
# comments allowed) via --file.

Example:
  casewarden batch ./cases/*/
  casewarden batch --file cases.txt --concurrency 8
  casewarden batch --file cases.txt --rate 2 --json-dir ./reports`,
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().StringVar(&batchFile, "file", "", "file listing case directories, one per line")
	batchCmd.Flags().StringVar(&batchJSONDir, "json-dir", "", "directory to write per-case JSON reports (optional)")
	batchCmd.Flags().IntVar(&batchConcurrency, "concurrency", 0, "concurrent verifications (default from config)")
	batchCmd.Flags().Float64Var(&batchRate, "rate", 0, "max verification starts per second per storage root (0 = unlimited)")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 10*time.Minute, "overall batch timeout")
}

func runBatch(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig()
	if err != nil {
		return err
	}
	if batchConcurrency > 0 {
		cfg.Batch.Concurrency = batchConcurrency
	}
	if batchRate > 0 {
		cfg.Batch.CasesPerSecond = batchRate
	}

	dirs := args
	if batchFile != "" {
		fromFile, err := worker.ReadDirsFromFile(batchFile)
		if err != nil {
			return err
		}
		dirs = append(dirs, fromFile...)
	}
	if len(dirs) == 0 {
		return fmt.Errorf("no case directories given (arguments or --file)")
	}

	ctx, cancel := context.WithTimeout(context.Background(), batchTimeout)
	defer cancel()

	runner := pipeline.NewRunner(cfg)
	batch := worker.NewBatchVerifier(runner, cfg.Batch.Concurrency, cfg.Batch.CasesPerSecond)

	if verbose {
		fmt.Fprintf(os.Stderr, "Verifying %d cases with %d workers\n\n", len(dirs), cfg.Batch.Concurrency)
	}

	results := batch.VerifyDirs(ctx, dirs)

	renderer := pipeline.NewRenderer(cfg.Output.IncludeFooter)
	failed := 0
	for _, result := range results {
		if result.Error != nil {
			failed++
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", result.CaseRoot, result.Error)
			continue
		}

		if result.Report.Status == model.StatusFail {
			failed++
		}
		fmt.Printf("%-6s %s\n", result.Report.Status, result.CaseRoot)

		if batchJSONDir != "" {
			path := filepath.Join(batchJSONDir, result.Report.CaseID+".json")
			if err := renderer.RenderJSON(result.Report, path); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: write %s: %v\n", path, err)
			}
		}
	}

	fmt.Printf("\n%d/%d cases passed\n", len(results)-failed, len(results))
	if failed > 0 {
		return fmt.Errorf("%d of %d cases failed verification", failed, len(results))
	}
	return nil
}
