package stats

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"casewarden/internal/casestore"
	"casewarden/internal/model"
	"casewarden/internal/patterns"
)

const matchRegistry = `case:
  id: CASE-2026-011
  title: Harbor contract irregularities
sources:
  - id: S001
    url: https://example.org/audit
    title: Port authority audit
    type: web
    captured: true
`

// matchSnapshot builds a one-source case with the given article and rendered
// content for S001.
func matchSnapshot(t *testing.T, article, content string) *casestore.Snapshot {
	t.Helper()
	root := t.TempDir()

	if err := os.WriteFile(filepath.Join(root, casestore.RegistryFile), []byte(matchRegistry), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, casestore.ArticleFile), []byte(article), 0644); err != nil {
		t.Fatal(err)
	}
	if content != "" {
		dir := filepath.Join(root, casestore.EvidenceDir, "S001")
		if err := os.MkdirAll(dir, 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(dir, casestore.ContentFile), []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}

	store := casestore.NewStore(root, model.CacheConfig{Enabled: true, TTL: time.Minute})
	snap, err := casestore.NewSnapshot(store)
	if err != nil {
		t.Fatal(err)
	}
	return snap
}

func matchOutcome(t *testing.T, article, content string) *Outcome {
	t.Helper()
	snap := matchSnapshot(t, article, content)
	stats := NewExtractor().Extract(snap.Article)
	return NewMatcher().Match(snap, stats)
}

func findMatchIssue(issues []model.Issue, code string) *model.Issue {
	for i := range issues {
		if issues[i].Code == code {
			return &issues[i]
		}
	}
	return nil
}

func TestMatch_Mismatch(t *testing.T) {
	patterns.Reset()
	defer patterns.Reset()

	out := matchOutcome(t,
		"The survey shows 72% of users were affected [S001].",
		"In truth, 52% of users were affected by the outage.")

	if out.Metrics["mismatches"] != 1 {
		t.Fatalf("Expected 1 mismatch, got %d", out.Metrics["mismatches"])
	}
	issue := findMatchIssue(out.Issues, model.IssueStatisticMismatch)
	if issue == nil {
		t.Fatal("Expected STATISTIC_MISMATCH")
	}
	if !issue.Blocking() {
		t.Error("Expected mismatch to be blocking")
	}
	if issue.SourceID != "S001" {
		t.Errorf("Expected issue against S001, got %q", issue.SourceID)
	}
}

func TestMatch_ExactAcrossNotations(t *testing.T) {
	patterns.Reset()
	defer patterns.Reset()

	out := matchOutcome(t,
		"The $2.5 million contract [S001] drew scrutiny.",
		"A contract worth $2,500,000 was signed in March.")

	if out.Metrics["matches_exact"] != 1 {
		t.Errorf("Expected 1 exact match, got %d (metrics %v)", out.Metrics["matches_exact"], out.Metrics)
	}
	if out.Metrics["mismatches"] != 0 {
		t.Errorf("Expected no mismatches, got %d", out.Metrics["mismatches"])
	}
	if len(out.Issues) != 0 {
		t.Errorf("Expected no issues, got %v", out.Issues)
	}
}

func TestMatch_Approximate(t *testing.T) {
	patterns.Reset()
	defer patterns.Reset()

	out := matchOutcome(t,
		"Investigators logged 1000 complaints [S001].",
		"A total of 1005 complaints were logged last quarter.")

	if out.Metrics["matches_approximate"] != 1 {
		t.Fatalf("Expected 1 approximate match, got %d (metrics %v)", out.Metrics["matches_approximate"], out.Metrics)
	}
	issue := findMatchIssue(out.Issues, model.IssueStatisticApproximate)
	if issue == nil {
		t.Fatal("Expected STATISTIC_APPROXIMATE")
	}
	if issue.Blocking() {
		t.Error("Expected approximate match to be advisory")
	}
	if len(out.Matches) != 1 || out.Matches[0].Found != 1005 {
		t.Errorf("Expected found value 1005, got %v", out.Matches)
	}
}

func TestMatch_ContentUnavailable(t *testing.T) {
	patterns.Reset()
	defer patterns.Reset()

	out := matchOutcome(t, "The survey shows 72% of users were affected [S001].", "")

	if out.Metrics["mismatches"] != 1 {
		t.Errorf("Expected a mismatch for unavailable content, got metrics %v", out.Metrics)
	}
	issue := findMatchIssue(out.Issues, model.IssueStatisticMismatch)
	if issue == nil || !issue.Blocking() {
		t.Error("Expected a blocking STATISTIC_MISMATCH when the cited content is unavailable")
	}
}

func TestMatch_UncitedSignificant(t *testing.T) {
	patterns.Reset()
	defer patterns.Reset()

	article := "Rates rose by 11% downtown, 12% uptown, 13% in the port district, " +
		"14% across the bay, 15% in the suburbs and 16% countywide."
	out := matchOutcome(t, article, "")

	if out.Metrics["uncited_significant"] != 6 {
		t.Errorf("Expected 6 uncited significant values, got %d", out.Metrics["uncited_significant"])
	}
	if len(out.Uncited) != 6 {
		t.Errorf("Expected 6 uncited statistics, got %v", out.Uncited)
	}
	for _, issue := range out.Issues {
		if issue.Code != model.IssueUncitedStatistic {
			t.Errorf("Unexpected issue %+v", issue)
		}
		if issue.Blocking() {
			t.Error("Expected uncited statistics to be advisory")
		}
	}
}

func TestMatch_UncitedBelowFloorsIgnored(t *testing.T) {
	patterns.Reset()
	defer patterns.Reset()

	out := matchOutcome(t, "A $500 fine followed 12 complaints about parking.", "")

	if out.Metrics["uncited_significant"] != 0 {
		t.Errorf("Expected values under the floors to pass unflagged, got metrics %v", out.Metrics)
	}
	if out.Metrics["statistics_extracted"] != 2 {
		t.Errorf("Expected both values to be extracted, got %d", out.Metrics["statistics_extracted"])
	}
}
