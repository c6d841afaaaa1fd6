// Package pipeline runs the ordered verification steps against one case
// snapshot and aggregates per-step statuses into an overall verdict.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"casewarden/internal/casestore"
	"casewarden/internal/integrity"
	"casewarden/internal/llm"
	"casewarden/internal/model"
	"casewarden/internal/patterns"
	"casewarden/internal/stats"
)

// Step names, in execution order. Capture integrity runs first because later
// steps assume sources are structurally present; statistic matching runs last
// because it depends on evidence content being trustworthy.
const (
	StepCaptureIntegrity     = "capture_integrity"
	StepEvidenceAuthenticity = "evidence_authenticity"
	StepStatisticalAccuracy  = "statistical_accuracy"
)

// Runner orchestrates the verification pipeline for one case at a time.
// All steps are side-effect-free analyzers over the same immutable snapshot.
type Runner struct {
	config     *model.Config
	checker    *integrity.CaptureChecker
	verifier   *integrity.HashVerifier
	extractor  *stats.Extractor
	matcher    *stats.Matcher
	summarizer *llm.Summarizer // Optional advisory summarizer (nil if disabled)
}

// NewRunner creates a runner with the given configuration.
func NewRunner(cfg *model.Config) *Runner {
	patterns.Configure(cfg)

	var summarizer *llm.Summarizer
	if cfg.LLM.Provider != "" {
		s, err := llm.NewSummarizer(llm.ConfigFromModel(cfg.LLM))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: Failed to initialize LLM provider: %v\n", err)
		} else {
			summarizer = s
		}
	}

	return &Runner{
		config:     cfg,
		checker:    integrity.NewCaptureChecker(),
		verifier:   integrity.NewHashVerifier(),
		extractor:  stats.NewExtractor(),
		matcher:    stats.NewMatcher(),
		summarizer: summarizer,
	}
}

// stepFunc populates one step result from the snapshot.
type stepFunc func(*casestore.Snapshot, *model.StepResult)

// VerifyCase runs the full pipeline against one case directory.
// The runner never retries a failing step; correction is an external
// editorial action followed by a fresh run.
func (r *Runner) VerifyCase(ctx context.Context, caseRoot string) (*model.Report, error) {
	store := casestore.NewStore(caseRoot, r.config.Cache)
	snap, err := casestore.NewSnapshot(store)
	if err != nil {
		return nil, fmt.Errorf("load case %s: %w", caseRoot, err)
	}
	return r.VerifySnapshot(ctx, snap)
}

// VerifySnapshot runs the pipeline over a pre-loaded snapshot.
func (r *Runner) VerifySnapshot(ctx context.Context, snap *casestore.Snapshot) (*model.Report, error) {
	report := &model.Report{
		CaseID:    snap.CaseID(),
		CaseRoot:  snap.Store.Root(),
		StartedAt: time.Now().UTC(),
	}
	if report.CaseID == "" {
		report.CaseID = filepath.Base(snap.Store.Root())
	}

	steps := []struct {
		name string
		run  stepFunc
	}{
		{StepCaptureIntegrity, r.runCaptureIntegrity},
		{StepEvidenceAuthenticity, r.runEvidenceAuthenticity},
		{StepStatisticalAccuracy, r.runStatisticalAccuracy},
	}

	inputDigest := snap.Fingerprint()
	previousHash := ""

	for i, s := range steps {
		result := model.StepResult{
			Ordinal:   i + 1,
			Name:      s.name,
			Status:    model.StatusPending,
			StartedAt: time.Now().UTC(),
		}

		runStep(snap, &result, s.run)

		result.CompletedAt = time.Now().UTC()
		result.StepHash = chainHash(previousHash, inputDigest, &result)
		previousHash = result.StepHash

		report.Steps = append(report.Steps, result)
	}

	report.Status = model.AggregateStatus(report.Steps)
	report.CompletedAt = time.Now().UTC()

	// Advisory summary only after the verdict is final.
	if r.summarizer.IsEnabled() {
		summary, err := r.summarizer.GenerateSummary(ctx, *report)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: LLM summary generation failed: %v\n", err)
		} else if summary != nil {
			report.LLM = summary
		}
	}

	return report, nil
}

// runStep executes one step with the panic boundary: a step that blows up is
// recorded as status error and does not abort the remaining steps.
func runStep(snap *casestore.Snapshot, result *model.StepResult, fn stepFunc) {
	defer func() {
		if p := recover(); p != nil {
			result.Status = model.StatusError
			result.Error = fmt.Sprintf("step panicked: %v", p)
		}
	}()
	fn(snap, result)
}

// runCaptureIntegrity verifies cited sources are registered, captured and
// backed by complete bundles. Pass iff zero blocking issues.
func (r *Runner) runCaptureIntegrity(snap *casestore.Snapshot, result *model.StepResult) {
	issues, metrics := r.checker.Check(snap)
	result.Issues = issues
	result.Metrics = metrics

	if result.BlockingCount() > 0 {
		result.Status = model.StatusFail
	} else {
		result.Status = model.StatusPass
	}
}

// runEvidenceAuthenticity recomputes content hashes and scans for
// fabrication indicators across every cited bundle.
func (r *Runner) runEvidenceAuthenticity(snap *casestore.Snapshot, result *model.StepResult) {
	metrics := map[string]int{
		"bundles_verified":   0,
		"hash_mismatches":    0,
		"fabrication_hits":   0,
		"missing_signatures": 0,
		"round_timestamps":   0,
	}

	for _, id := range snap.CitedIDs {
		bundle, err := snap.Store.LoadBundle(id)
		if err != nil || bundle == nil {
			// Structural absence is the capture step's finding.
			continue
		}
		metrics["bundles_verified"]++

		for _, issue := range r.verifier.Verify(bundle) {
			result.Issues = append(result.Issues, issue)
			switch issue.Code {
			case model.IssueHashMismatch, model.IssueHashUnverifiable, model.IssueToolHashDisagrees:
				metrics["hash_mismatches"]++
			case model.IssueFabricationPattern:
				metrics["fabrication_hits"]++
			case model.IssueMissingSignature:
				metrics["missing_signatures"]++
			case model.IssueRoundTimestamp:
				metrics["round_timestamps"]++
			}
		}
	}

	result.Metrics = metrics
	if result.BlockingCount() > 0 {
		result.Status = model.StatusFail
	} else {
		result.Status = model.StatusPass
	}
}

// runStatisticalAccuracy extracts numeric claims and matches them against
// cited sources. Any mismatch fails the step; an over-ceiling count of
// uncited significant numbers degrades it to warn.
func (r *Runner) runStatisticalAccuracy(snap *casestore.Snapshot, result *model.StepResult) {
	statistics := r.extractor.Extract(snap.Article)
	outcome := r.matcher.Match(snap, statistics)

	result.Issues = outcome.Issues
	result.Metrics = outcome.Metrics

	var mismatched []string
	for _, m := range outcome.Matches {
		if m.Type == model.MatchMissing {
			mismatched = append(mismatched, m.Statistic.RawText)
		}
	}
	if len(mismatched) > 0 {
		result.Details = map[string]any{"mismatched_claims": mismatched}
	}

	switch {
	case outcome.Metrics["mismatches"] > 0:
		result.Status = model.StatusFail
	case outcome.Metrics["uncited_significant"] > patterns.Load().Thresholds.UncitedCeiling:
		result.Status = model.StatusWarn
	default:
		result.Status = model.StatusPass
	}
}
