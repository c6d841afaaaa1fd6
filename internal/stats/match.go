package stats

import (
	"fmt"
	"math"

	"casewarden/internal/casestore"
	"casewarden/internal/model"
	"casewarden/internal/patterns"
)

// Matcher searches cited sources' rendered content for each extracted claim
// and flags significant numbers that carry no citation at all.
type Matcher struct {
	set *patterns.Set
}

// NewMatcher creates a matcher over the process-wide pattern registry.
func NewMatcher() *Matcher {
	return &Matcher{set: patterns.Load()}
}

// Outcome is the result of matching one article's statistics.
type Outcome struct {
	Matches []model.StatMatch
	Uncited []model.Statistic
	Issues  []model.Issue
	Metrics map[string]int
}

// Match verifies every cited statistic against its source's rendered content
// and scans for significant uncited numbers. A value found exactly is an
// exact match; within tolerance but not exact is approximate (advisory);
// nothing within tolerance is a mismatch (blocking) - the statistical-drift
// defense.
func (m *Matcher) Match(snap *casestore.Snapshot, statistics []model.Statistic) *Outcome {
	out := &Outcome{
		Metrics: map[string]int{
			"statistics_extracted": len(statistics),
			"statistics_cited":     0,
			"matches_exact":        0,
			"matches_approximate":  0,
			"mismatches":           0,
			"uncited_significant":  0,
		},
	}

	body := m.set.StripSources(snap.Article)

	for _, stat := range statistics {
		if stat.Cited() {
			out.Metrics["statistics_cited"]++
			m.matchCited(snap, stat, out)
			continue
		}
		if m.significant(stat) && !m.citationNearby(body, stat) {
			out.Metrics["uncited_significant"]++
			out.Uncited = append(out.Uncited, stat)
			out.Issues = append(out.Issues, model.Issue{
				Code:     model.IssueUncitedStatistic,
				Severity: model.SeverityAdvisory,
				Message:  fmt.Sprintf("significant value %q has no citation", stat.RawText),
			})
		}
	}

	return out
}

func (m *Matcher) matchCited(snap *casestore.Snapshot, stat model.Statistic, out *Outcome) {
	bundle, err := snap.Store.LoadBundle(stat.SourceID)
	if err != nil || bundle == nil || bundle.Content == "" {
		// Content unavailable: the claim is unsupported as written. The
		// capture step reports the structural defect separately.
		out.Metrics["mismatches"]++
		out.Matches = append(out.Matches, model.StatMatch{Statistic: stat, Type: model.MatchMissing})
		out.Issues = append(out.Issues, model.Issue{
			Code:     model.IssueStatisticMismatch,
			Severity: model.SeverityBlocking,
			SourceID: stat.SourceID,
			Message:  fmt.Sprintf("%q cites %s but its rendered content is unavailable", stat.RawText, stat.SourceID),
		})
		return
	}

	match := m.search(bundle.Content, stat)
	out.Matches = append(out.Matches, match)

	switch match.Type {
	case model.MatchExact:
		out.Metrics["matches_exact"]++
	case model.MatchApproximate:
		out.Metrics["matches_approximate"]++
		out.Issues = append(out.Issues, model.Issue{
			Code:     model.IssueStatisticApproximate,
			Severity: model.SeverityAdvisory,
			SourceID: stat.SourceID,
			Message:  fmt.Sprintf("%q matches %s only approximately (found %v); flagged for review", stat.RawText, stat.SourceID, match.Found),
		})
	case model.MatchMissing:
		out.Metrics["mismatches"]++
		out.Issues = append(out.Issues, model.Issue{
			Code:     model.IssueStatisticMismatch,
			Severity: model.SeverityBlocking,
			SourceID: stat.SourceID,
			Message:  fmt.Sprintf("%q not found in %s within tolerance", stat.RawText, stat.SourceID),
		})
	}
}

// search scans rendered content for a numeric occurrence of the claim value.
// Numbers in the source are normalized with the same scale table, so
// "$2,500,000" and "$2.5 million" compare equal.
func (m *Matcher) search(content string, stat model.Statistic) model.StatMatch {
	match := model.StatMatch{Statistic: stat, Type: model.MatchMissing}
	tolerance := m.set.Thresholds.Tolerance
	bestDelta := math.Inf(1)

	for _, loc := range m.set.SourceNumber.FindAllStringSubmatchIndex(content, -1) {
		groups := submatches(content, loc)
		n, ok := parseNumber(groups[1])
		if !ok {
			continue
		}
		scale := groups[2]
		if scale == "" {
			scale = groups[3]
		}
		value := n * m.set.ScaleFactor(scale)

		delta := relativeDelta(stat.Value, value)
		if delta > tolerance {
			continue
		}
		if delta < bestDelta {
			bestDelta = delta
			match.Found = value
			if exactEqual(stat.Value, value) {
				match.Type = model.MatchExact
			} else {
				match.Type = model.MatchApproximate
			}
		}
		if match.Type == model.MatchExact {
			break
		}
	}

	return match
}

// significant reports whether an uncited number is worth flagging:
// percentages and scaled magnitudes always, currency and counts above
// their configured floors.
func (m *Matcher) significant(stat model.Statistic) bool {
	switch stat.Unit {
	case model.UnitPercentage, model.UnitMagnitude:
		return true
	case model.UnitCurrency:
		return stat.Value >= m.set.Thresholds.CurrencyFloor
	case model.UnitCount:
		return stat.Value >= m.set.Thresholds.CountFloor
	}
	return false
}

// citationNearby checks for any citation token within the uncited-scan
// window on either side of the match.
func (m *Matcher) citationNearby(body string, stat model.Statistic) bool {
	w := m.set.Thresholds.UncitedWindow
	lo := stat.Offset - w
	if lo < 0 {
		lo = 0
	}
	hi := stat.Offset + len(stat.RawText) + w
	if hi > len(body) {
		hi = len(body)
	}
	return m.set.Citation.MatchString(body[lo:hi])
}

func relativeDelta(claim, found float64) float64 {
	if claim == 0 {
		return math.Abs(found)
	}
	return math.Abs(claim-found) / math.Abs(claim)
}

func exactEqual(a, b float64) bool {
	if a == b {
		return true
	}
	// Normalized values pass through float arithmetic; absorb rounding noise.
	return relativeDelta(a, b) < 1e-9
}
