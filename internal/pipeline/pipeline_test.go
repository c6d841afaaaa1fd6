package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"casewarden/internal/casestore"
	"casewarden/internal/integrity"
	"casewarden/internal/model"
	"casewarden/internal/patterns"
)

const pipelineRegistry = `case:
  id: CASE-2026-011
  title: Harbor contract irregularities
sources:
  - id: S001
    url: https://example.org/audit
    title: Port authority audit
    type: web
    captured: true
`

// writeCleanCase lays out a complete passing case: one captured source with a
// self-consistent bundle, cited once from the article.
func writeCleanCase(t *testing.T, article, content string) string {
	t.Helper()
	root := t.TempDir()

	if err := os.WriteFile(filepath.Join(root, casestore.RegistryFile), []byte(pipelineRegistry), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, casestore.ArticleFile), []byte(article), 0644); err != nil {
		t.Fatal(err)
	}

	raw := "<html><body>" + content + "</body></html>"
	meta := fmt.Sprintf(`{"url":"https://example.org/audit","captured_at":"2026-03-14T09:26:53Z","verification":{"computed_hash":"%s"},"capture_signature":"cw1:sig"}`,
		integrity.ContentHash([]byte(raw)))

	dir := filepath.Join(root, casestore.EvidenceDir, "S001")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	files := map[string]string{
		casestore.RawFile:      raw,
		casestore.ContentFile:  content,
		casestore.MetadataFile: meta,
	}
	for name, data := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(data), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func newTestRunner() *Runner {
	return NewRunner(model.DefaultConfig())
}

func stepByName(t *testing.T, report *model.Report, name string) *model.StepResult {
	t.Helper()
	for i := range report.Steps {
		if report.Steps[i].Name == name {
			return &report.Steps[i]
		}
	}
	t.Fatalf("Step %q not in report", name)
	return nil
}

func TestVerifyCase_CleanPass(t *testing.T) {
	patterns.Reset()
	defer patterns.Reset()

	root := writeCleanCase(t,
		"The audit confirms 340 complaints were filed [S001].",
		"Inspectors confirmed 340 complaints were filed with the port authority.")

	report, err := newTestRunner().VerifyCase(context.Background(), root)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if report.Status != model.StatusPass {
		t.Errorf("Expected pass, got %s (blocking: %v)", report.Status, report.BlockingIssues())
	}
	if report.CaseID != "CASE-2026-011" {
		t.Errorf("Unexpected case id %q", report.CaseID)
	}
	if len(report.Steps) != 3 {
		t.Fatalf("Expected 3 steps, got %d", len(report.Steps))
	}

	wantOrder := []string{StepCaptureIntegrity, StepEvidenceAuthenticity, StepStatisticalAccuracy}
	seen := map[string]bool{}
	for i, step := range report.Steps {
		if step.Name != wantOrder[i] {
			t.Errorf("Step %d: expected %s, got %s", i, wantOrder[i], step.Name)
		}
		if step.Ordinal != i+1 {
			t.Errorf("Step %s: expected ordinal %d, got %d", step.Name, i+1, step.Ordinal)
		}
		if step.StepHash == "" {
			t.Errorf("Step %s: missing step hash", step.Name)
		}
		if seen[step.StepHash] {
			t.Errorf("Step %s: duplicate step hash", step.Name)
		}
		seen[step.StepHash] = true
	}
	if report.ChainHead() != report.Steps[2].StepHash {
		t.Error("Expected chain head to be the last step hash")
	}
}

func TestVerifyCase_ChainIdempotent(t *testing.T) {
	patterns.Reset()
	defer patterns.Reset()

	root := writeCleanCase(t,
		"The audit confirms 340 complaints were filed [S001].",
		"Inspectors confirmed 340 complaints were filed with the port authority.")

	runner := newTestRunner()
	first, err := runner.VerifyCase(context.Background(), root)
	if err != nil {
		t.Fatal(err)
	}
	second, err := runner.VerifyCase(context.Background(), root)
	if err != nil {
		t.Fatal(err)
	}

	for i := range first.Steps {
		if first.Steps[i].StepHash != second.Steps[i].StepHash {
			t.Errorf("Step %s: hash changed on an unchanged case", first.Steps[i].Name)
		}
	}
	if first.ChainHead() != second.ChainHead() {
		t.Error("Expected identical chain heads across runs")
	}
}

func TestVerifyCase_TamperChangesChain(t *testing.T) {
	patterns.Reset()
	defer patterns.Reset()

	root := writeCleanCase(t,
		"The audit confirms 340 complaints were filed [S001].",
		"Inspectors confirmed 340 complaints were filed with the port authority.")

	runner := newTestRunner()
	before, err := runner.VerifyCase(context.Background(), root)
	if err != nil {
		t.Fatal(err)
	}

	tampered := "The audit confirms 350 complaints were filed [S001]."
	if err := os.WriteFile(filepath.Join(root, casestore.ArticleFile), []byte(tampered), 0644); err != nil {
		t.Fatal(err)
	}

	after, err := runner.VerifyCase(context.Background(), root)
	if err != nil {
		t.Fatal(err)
	}

	for i := range before.Steps {
		if before.Steps[i].StepHash == after.Steps[i].StepHash {
			t.Errorf("Step %s: hash unchanged after the article was edited", before.Steps[i].Name)
		}
	}
}

func TestVerifyCase_TamperedEvidenceChangesChain(t *testing.T) {
	patterns.Reset()
	defer patterns.Reset()

	root := writeCleanCase(t,
		"The audit confirms 340 complaints were filed [S001].",
		"Inspectors confirmed 340 complaints were filed with the port authority.")

	runner := newTestRunner()
	before, err := runner.VerifyCase(context.Background(), root)
	if err != nil {
		t.Fatal(err)
	}

	// A number-free addition to the rendered content changes no step outcome;
	// the chain must still move.
	contentPath := filepath.Join(root, casestore.EvidenceDir, "S001", casestore.ContentFile)
	old, err := os.ReadFile(contentPath)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(contentPath, append(old, " Nothing numeric was added here."...), 0644); err != nil {
		t.Fatal(err)
	}

	after, err := runner.VerifyCase(context.Background(), root)
	if err != nil {
		t.Fatal(err)
	}

	if before.Status != model.StatusPass || after.Status != model.StatusPass {
		t.Fatalf("Expected both runs to pass, got %s then %s", before.Status, after.Status)
	}
	if before.ChainHead() == after.ChainHead() {
		t.Error("Expected the chain head to change after the rendered content was edited")
	}
	for i := range before.Steps {
		if before.Steps[i].StepHash == after.Steps[i].StepHash {
			t.Errorf("Step %s: hash unchanged after evidence was edited", before.Steps[i].Name)
		}
	}
}

func TestNewRunner_ProviderWarningGoesToStderr(t *testing.T) {
	patterns.Reset()
	defer patterns.Reset()

	cfg := model.DefaultConfig()
	cfg.LLM.Provider = "clippy"

	oldStdout, oldStderr := os.Stdout, os.Stderr
	outR, outW, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	errR, errW, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	os.Stdout, os.Stderr = outW, errW

	runner := NewRunner(cfg)

	outW.Close()
	errW.Close()
	os.Stdout, os.Stderr = oldStdout, oldStderr

	stdout, _ := io.ReadAll(outR)
	stderr, _ := io.ReadAll(errR)

	if runner == nil {
		t.Fatal("Expected a usable runner despite the provider failure")
	}
	if !strings.Contains(string(stderr), "Warning") {
		t.Error("Expected the provider warning on stderr")
	}
	if strings.Contains(string(stdout), "Warning") {
		t.Error("Expected stdout to stay free of warnings")
	}
}

func TestVerifyCase_MismatchFails(t *testing.T) {
	patterns.Reset()
	defer patterns.Reset()

	root := writeCleanCase(t,
		"The survey shows 72% of users were affected [S001].",
		"In truth, 52% of users were affected by the outage.")

	report, err := newTestRunner().VerifyCase(context.Background(), root)
	if err != nil {
		t.Fatal(err)
	}

	if report.Status != model.StatusFail {
		t.Errorf("Expected fail, got %s", report.Status)
	}
	step := stepByName(t, report, StepStatisticalAccuracy)
	if step.Status != model.StatusFail {
		t.Errorf("Expected statistical step to fail, got %s", step.Status)
	}
	if step.Metrics["mismatches"] != 1 {
		t.Errorf("Expected 1 mismatch, got %d", step.Metrics["mismatches"])
	}
	if step.Details == nil || step.Details["mismatched_claims"] == nil {
		t.Error("Expected mismatched claims in the step details")
	}

	found := false
	for _, issue := range report.BlockingIssues() {
		if issue.Code == model.IssueStatisticMismatch {
			found = true
		}
	}
	if !found {
		t.Error("Expected STATISTIC_MISMATCH among blocking issues")
	}
}

func TestVerifyCase_WarnOnUncitedOverCeiling(t *testing.T) {
	patterns.Reset()
	defer patterns.Reset()

	// The rate figures sit well past the citation-adjacency window, so they
	// count as uncited.
	article := "The audit confirms 340 complaints were filed [S001]. The inspection " +
		"took most of the spring and covered every contract the port authority had " +
		"signed since the harbor expansion, along with the district filings. " +
		"Rates rose by 11% downtown, 12% uptown, 13% in the port district, " +
		"14% across the bay, 15% in the suburbs and 16% countywide."
	root := writeCleanCase(t, article,
		"Inspectors confirmed 340 complaints were filed with the port authority.")

	report, err := newTestRunner().VerifyCase(context.Background(), root)
	if err != nil {
		t.Fatal(err)
	}

	step := stepByName(t, report, StepStatisticalAccuracy)
	if step.Metrics["uncited_significant"] != 6 {
		t.Fatalf("Expected 6 uncited significant values, got %d", step.Metrics["uncited_significant"])
	}
	if step.Status != model.StatusWarn {
		t.Errorf("Expected statistical step to warn, got %s", step.Status)
	}
	if report.Status != model.StatusWarn {
		t.Errorf("Expected overall warn, got %s", report.Status)
	}
	if len(report.BlockingIssues()) != 0 {
		t.Errorf("Expected no blocking issues, got %v", report.BlockingIssues())
	}
}

func TestVerifyCase_FabricationFails(t *testing.T) {
	patterns.Reset()
	defer patterns.Reset()

	root := writeCleanCase(t,
		"The audit confirms 340 complaints were filed [S001].",
		"Research compilation from multiple sources confirms 340 complaints were filed.")

	report, err := newTestRunner().VerifyCase(context.Background(), root)
	if err != nil {
		t.Fatal(err)
	}

	if report.Status != model.StatusFail {
		t.Errorf("Expected fail, got %s", report.Status)
	}
	step := stepByName(t, report, StepEvidenceAuthenticity)
	if step.Status != model.StatusFail {
		t.Errorf("Expected authenticity step to fail, got %s", step.Status)
	}
	if step.Metrics["fabrication_hits"] == 0 {
		t.Error("Expected a fabrication hit in the metrics")
	}
}

func TestVerifyCase_UnregisteredSourceFails(t *testing.T) {
	patterns.Reset()
	defer patterns.Reset()

	root := writeCleanCase(t,
		"The claim cites [S001] and also [S099].",
		"Inspectors confirmed the filing.")

	report, err := newTestRunner().VerifyCase(context.Background(), root)
	if err != nil {
		t.Fatal(err)
	}

	if report.Status != model.StatusFail {
		t.Errorf("Expected fail, got %s", report.Status)
	}
	step := stepByName(t, report, StepCaptureIntegrity)
	if step.Status != model.StatusFail {
		t.Errorf("Expected capture step to fail, got %s", step.Status)
	}
	if step.Metrics["sources_missing"] != 1 {
		t.Errorf("Expected sources_missing=1, got %d", step.Metrics["sources_missing"])
	}
}

func TestVerifyCase_CaseIDFallsBackToDirName(t *testing.T) {
	patterns.Reset()
	defer patterns.Reset()

	root := t.TempDir()

	report, err := newTestRunner().VerifyCase(context.Background(), root)
	if err != nil {
		t.Fatal(err)
	}
	if report.CaseID != filepath.Base(root) {
		t.Errorf("Expected case id %q, got %q", filepath.Base(root), report.CaseID)
	}
	if report.Status != model.StatusFail {
		t.Errorf("Expected an empty case to fail, got %s", report.Status)
	}
}

func TestAggregateStatus(t *testing.T) {
	tests := []struct {
		name     string
		statuses []model.StepStatus
		want     model.StepStatus
	}{
		{"all pass", []model.StepStatus{model.StatusPass, model.StatusPass}, model.StatusPass},
		{"warn wins over pass", []model.StepStatus{model.StatusPass, model.StatusWarn}, model.StatusWarn},
		{"fail wins over warn", []model.StepStatus{model.StatusWarn, model.StatusFail}, model.StatusFail},
		{"error counts as fail", []model.StepStatus{model.StatusPass, model.StatusError}, model.StatusFail},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var steps []model.StepResult
			for _, s := range tt.statuses {
				steps = append(steps, model.StepResult{Status: s})
			}
			if got := model.AggregateStatus(steps); got != tt.want {
				t.Errorf("Expected %s, got %s", tt.want, got)
			}
		})
	}
}
