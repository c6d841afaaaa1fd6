package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"casewarden/internal/model"
	"casewarden/internal/pipeline"
)

// Verifier defines the interface for verifying one case directory
type Verifier interface {
	VerifyCase(ctx context.Context, caseRoot string) (*model.Report, error)
}

// CaseJob represents a single case verification job
type CaseJob struct {
	CaseRoot string
	Verifier Verifier
	Limiter  *Limiter // Optional per-root throttle, nil disables
}

// Execute executes the verification job
func (j *CaseJob) Execute(ctx context.Context) Result {
	if j.Limiter != nil {
		if err := j.Limiter.Wait(ctx, j.CaseRoot); err != nil {
			return &CaseResult{CaseRoot: j.CaseRoot, Error: err}
		}
	}

	report, err := j.Verifier.VerifyCase(ctx, j.CaseRoot)
	if err != nil {
		return &CaseResult{CaseRoot: j.CaseRoot, Error: err}
	}
	return &CaseResult{CaseRoot: j.CaseRoot, Report: report}
}

// CaseResult represents the result of a case verification job
type CaseResult struct {
	CaseRoot string
	Report   *model.Report
	Error    error
}

// GetError returns the error from the case result
func (r *CaseResult) GetError() error {
	return r.Error
}

// BatchVerifier verifies multiple case directories concurrently.
// Cross-case parallelism is safe: every step's inputs are scoped to one
// case directory and no shared state is mutated.
type BatchVerifier struct {
	verifier    Verifier
	concurrency int
	limiter     *Limiter
}

// NewBatchVerifier creates a new batch verifier. casesPerSecond throttles
// verification starts per filesystem root; 0 disables the throttle.
func NewBatchVerifier(verifier Verifier, concurrency int, casesPerSecond float64) *BatchVerifier {
	var limiter *Limiter
	if casesPerSecond > 0 {
		limiter = NewLimiter(casesPerSecond, 1)
	}
	return &BatchVerifier{
		verifier:    verifier,
		concurrency: concurrency,
		limiter:     limiter,
	}
}

// VerifyDirs verifies multiple case directories concurrently
func (b *BatchVerifier) VerifyDirs(ctx context.Context, dirs []string) []*CaseResult {
	if len(dirs) == 0 {
		return []*CaseResult{}
	}

	pool := NewPool(b.concurrency)
	pool.Start(ctx)

	for _, dir := range dirs {
		pool.Submit(ctx, &CaseJob{
			CaseRoot: dir,
			Verifier: b.verifier,
			Limiter:  b.limiter,
		})
	}

	results := pool.Wait()

	caseResults := make([]*CaseResult, len(results))
	for i, result := range results {
		caseResults[i] = result.(*CaseResult)
	}

	return caseResults
}

// VerifyFile reads case directories from a file and verifies them concurrently
func (b *BatchVerifier) VerifyFile(ctx context.Context, filePath string) ([]*CaseResult, error) {
	dirs, err := ReadDirsFromFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read case list: %w", err)
	}

	return b.VerifyDirs(ctx, dirs), nil
}

// ReadDirsFromFile reads case directories from a file (one per line)
func ReadDirsFromFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var dirs []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Deduplicate directories
		if !seen[line] {
			seen[line] = true
			dirs = append(dirs, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return dirs, nil
}

// Compile-time check that the pipeline runner satisfies Verifier.
var _ Verifier = (*pipeline.Runner)(nil)
