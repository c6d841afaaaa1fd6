package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"casewarden/internal/model"
	"casewarden/internal/pipeline"
)

var (
	outJSON     string
	outMD       string
	timeout     time.Duration
	noCache     bool
	noFooter    bool
	llmEnabled  bool
	llmProvider string
	llmModel    string
)

// verifyCmd represents the verify command
var verifyCmd = &cobra.Command{
	Use:   "verify <case-dir>",
	Short: "Verify one case directory and generate an integrity report",
	Long: `Verify runs the full verification pipeline against a case directory:
- Capture integrity: every cited source is registered, captured, and
  backed by a complete evidence bundle
- Evidence authenticity: recorded content hashes match the raw captures,
  capture signatures are present, no fabrication patterns
- Statistical accuracy: numeric claims in the article trace to the cited
  source's rendered content within tolerance

Example:
  casewarden verify ./cases/2026-011-harbor
  casewarden verify ./cases/2026-011-harbor --json report.json --md report.md
  casewarden verify ./cases/2026-011-harbor --llm --llm-provider openai`,
	Args: cobra.ExactArgs(1),
	RunE: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)

	// Output flags
	verifyCmd.Flags().StringVar(&outJSON, "json", "report.json", "output JSON path")
	verifyCmd.Flags().StringVar(&outMD, "md", "", "output Markdown path (optional)")

	verifyCmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "overall verification timeout")
	verifyCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the in-process bundle read cache")
	verifyCmd.Flags().BoolVar(&noFooter, "no-footer", false, "disable footer in Markdown reports")

	// LLM flags
	verifyCmd.Flags().BoolVar(&llmEnabled, "llm", false, "enable advisory LLM summary generation")
	verifyCmd.Flags().StringVar(&llmProvider, "llm-provider", "openai", "LLM provider (openai)")
	verifyCmd.Flags().StringVar(&llmModel, "llm-model", "gpt-4o-mini", "LLM model name")
}

// buildConfig merges defaults, the config file and env vars, then applies flags.
func buildConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	cfg.Cache.Enabled = cfg.Cache.Enabled && !noCache
	cfg.Output.Verbose = verbose
	cfg.Output.IncludeFooter = !noFooter

	if llmEnabled {
		cfg.LLM.Provider = llmProvider
		cfg.LLM.Model = llmModel

		switch llmProvider {
		case "openai":
			cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
			if cfg.LLM.APIKey == "" {
				return nil, fmt.Errorf("OPENAI_API_KEY environment variable not set")
			}
		}
	} else {
		cfg.LLM.Provider = ""
	}

	return cfg, nil
}

func runVerify(cmd *cobra.Command, args []string) error {
	caseRoot := args[0]
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	cfg, err := buildConfig()
	if err != nil {
		return err
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "Verifying: %s\n", caseRoot)
		fmt.Fprintf(os.Stderr, "Tolerance: ±%.1f%%\n", cfg.Thresholds.Tolerance*100)
		fmt.Fprintf(os.Stderr, "Cache: %v\n", cfg.Cache.Enabled)
		fmt.Fprintln(os.Stderr)
	}

	runner := pipeline.NewRunner(cfg)

	report, err := runner.VerifyCase(ctx, caseRoot)
	if err != nil {
		return fmt.Errorf("verification failed to run: %w", err)
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "✓ Ran %d steps\n", len(report.Steps))
		fmt.Fprintf(os.Stderr, "✓ Chain head: %s\n", report.ChainHead())
		if report.LLM != nil && report.LLM.Enabled {
			fmt.Fprintf(os.Stderr, "✓ Generated advisory summary using %s/%s\n", report.LLM.Provider, report.LLM.Model)
		}
		fmt.Fprintln(os.Stderr)
	}

	renderer := pipeline.NewRenderer(cfg.Output.IncludeFooter)
	if err := renderer.RenderReport(report, outJSON, outMD, verbose); err != nil {
		return fmt.Errorf("render failed: %w", err)
	}

	if report.Status == model.StatusFail {
		return fmt.Errorf("case %s failed verification", report.CaseID)
	}
	return nil
}
