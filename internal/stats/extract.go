// Package stats extracts numeric claims from article text and matches them
// against the cited sources' rendered content.
package stats

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"casewarden/internal/model"
	"casewarden/internal/patterns"
)

// windowRadius is how much surrounding text each extraction keeps for audit.
const windowRadius = 60

// Extractor recognizes the four numeric-claim shapes. Each shape has its own
// matcher with distinct scale-normalization semantics; overlapping matches
// are deduplicated by text position with earlier matchers winning.
type Extractor struct {
	set *patterns.Set
}

// NewExtractor creates an extractor over the process-wide pattern registry.
func NewExtractor() *Extractor {
	return &Extractor{set: patterns.Load()}
}

// citation is one citation token located in the scanned text.
type citation struct {
	id         string
	start, end int
}

// span is a candidate extraction before dedup and citation attribution.
type span struct {
	stat       model.Statistic
	start, end int
}

// Extract scans article text for numeric claims. The trailing
// sources-consulted section is stripped first: citation lists are not claims.
func (e *Extractor) Extract(article string) []model.Statistic {
	body := e.set.StripSources(article)
	cites := e.findCitations(body)

	var spans []span
	spans = append(spans, e.matchPercentages(body)...)
	spans = append(spans, e.matchCurrency(body)...)
	spans = append(spans, e.matchCounts(body)...)
	spans = append(spans, e.matchMagnitudes(body)...)

	spans = dedupeByPosition(spans)

	stats := make([]model.Statistic, 0, len(spans))
	for _, sp := range spans {
		sp.stat.SourceID = nearestCitation(cites, sp.start, sp.end, e.set.Thresholds.CitationWindow)
		sp.stat.Window = window(body, sp.start, sp.end)
		stats = append(stats, sp.stat)
	}
	return stats
}

func (e *Extractor) findCitations(body string) []citation {
	var cites []citation
	for _, loc := range e.set.CitationID.FindAllStringSubmatchIndex(body, -1) {
		cites = append(cites, citation{
			id:    body[loc[2]:loc[3]],
			start: loc[0],
			end:   loc[1],
		})
	}
	return cites
}

func (e *Extractor) matchPercentages(body string) []span {
	return e.matchPattern(body, e.set.Percentage, model.UnitPercentage, func(groups []string) (float64, bool) {
		return parseNumber(groups[1])
	})
}

// matchCurrency normalizes "$2.5 million" and "$2.5M" alike to an absolute
// amount by multiplying by the scale factor.
func (e *Extractor) matchCurrency(body string) []span {
	return e.matchPattern(body, e.set.Currency, model.UnitCurrency, func(groups []string) (float64, bool) {
		n, ok := parseNumber(groups[1])
		if !ok {
			return 0, false
		}
		scale := groups[2]
		if scale == "" {
			scale = groups[3]
		}
		return n * e.set.ScaleFactor(scale), true
	})
}

func (e *Extractor) matchCounts(body string) []span {
	return e.matchPattern(body, e.set.Count, model.UnitCount, func(groups []string) (float64, bool) {
		return parseNumber(groups[1])
	})
}

func (e *Extractor) matchMagnitudes(body string) []span {
	return e.matchPattern(body, e.set.Magnitude, model.UnitMagnitude, func(groups []string) (float64, bool) {
		n, ok := parseNumber(groups[1])
		if !ok {
			return 0, false
		}
		return n * e.set.ScaleFactor(groups[2]), true
	})
}

func (e *Extractor) matchPattern(body string, re *regexp.Regexp, unit model.UnitClass, normalize func([]string) (float64, bool)) []span {
	var spans []span
	for _, loc := range re.FindAllStringSubmatchIndex(body, -1) {
		groups := submatches(body, loc)
		value, ok := normalize(groups)
		if !ok {
			continue
		}
		spans = append(spans, span{
			stat: model.Statistic{
				Value:   value,
				Unit:    unit,
				RawText: body[loc[0]:loc[1]],
				Offset:  loc[0],
			},
			start: loc[0],
			end:   loc[1],
		})
	}
	return spans
}

// dedupeByPosition drops any span overlapping an already accepted one.
// Spans arrive in matcher priority order, so "$2.5 million" stays currency
// and is not double-counted as a bare magnitude.
func dedupeByPosition(spans []span) []span {
	var kept []span
	for _, sp := range spans {
		overlaps := false
		for _, k := range kept {
			if sp.start < k.end && k.start < sp.end {
				overlaps = true
				break
			}
		}
		if !overlaps {
			kept = append(kept, sp)
		}
	}
	sort.Slice(kept, func(i, j int) bool { return kept[i].start < kept[j].start })
	return kept
}

// nearestCitation returns the id of the closest citation token within the
// adjacency window, or "" when the claim is uncited.
func nearestCitation(cites []citation, start, end, maxDistance int) string {
	best := ""
	bestDist := maxDistance + 1
	for _, c := range cites {
		d := 0
		switch {
		case c.start >= end:
			d = c.start - end
		case c.end <= start:
			d = start - c.end
		}
		if d < bestDist {
			bestDist = d
			best = c.id
		}
	}
	return best
}

func window(body string, start, end int) string {
	lo := start - windowRadius
	if lo < 0 {
		lo = 0
	}
	hi := end + windowRadius
	if hi > len(body) {
		hi = len(body)
	}
	return body[lo:hi]
}

func submatches(body string, loc []int) []string {
	groups := make([]string, len(loc)/2)
	for i := range groups {
		if loc[2*i] >= 0 {
			groups[i] = body[loc[2*i]:loc[2*i+1]]
		}
	}
	return groups
}

func parseNumber(s string) (float64, bool) {
	s = strings.ReplaceAll(s, ",", "")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
