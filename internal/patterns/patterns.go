// Package patterns holds the compiled structural matching rules: citation
// syntax, the numeric-claim matchers, the numeric-scale table and the
// matching thresholds. Rules are compiled once per process and shared.
package patterns

import (
	"regexp"
	"strings"
	"sync"

	"casewarden/internal/model"
)

// Set is the compiled pattern and threshold registry. Read-only after Load.
type Set struct {
	// Citation matches a bracketed citation token, e.g. [S012].
	Citation *regexp.Regexp
	// CitationID captures the source id inside a citation token.
	CitationID *regexp.Regexp

	// The four numeric-claim matchers, in priority order. Earlier matchers
	// win when matches overlap (currency before bare magnitude).
	Percentage *regexp.Regexp
	Currency   *regexp.Regexp
	Count      *regexp.Regexp
	Magnitude  *regexp.Regexp

	// SourceNumber matches any number (with optional currency sign and
	// scale word) in a source's rendered content.
	SourceNumber *regexp.Regexp

	// SourcesHeading locates the trailing sources-consulted section.
	SourcesHeading *regexp.Regexp

	Thresholds        model.ThresholdConfig
	Denylist          []string
	DenylistScanBytes int

	scales map[string]float64
}

var (
	mu        sync.Mutex
	once      sync.Once
	singleton *Set
	pending   *model.Config
)

// Configure sets the configuration applied on the next Load. Must be called
// before the first Load of the process (or after Reset) to take effect.
func Configure(cfg *model.Config) {
	mu.Lock()
	defer mu.Unlock()
	pending = cfg
}

// Load returns the process-wide pattern set, compiling it on first use.
func Load() *Set {
	once.Do(func() {
		mu.Lock()
		cfg := pending
		mu.Unlock()
		if cfg == nil {
			cfg = model.DefaultConfig()
		}
		singleton = compile(cfg)
	})
	return singleton
}

// Reset discards the compiled set and any pending configuration. Test hook.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	once = sync.Once{}
	singleton = nil
	pending = nil
}

func compile(cfg *model.Config) *Set {
	return &Set{
		Citation:   regexp.MustCompile(`\[S\d{3,4}\]`),
		CitationID: regexp.MustCompile(`\[(S\d{3,4})\]`),

		Percentage: regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)(?:\s*%|\s+percent\b)`),
		Currency:   regexp.MustCompile(`(?i)\$(\d+(?:,\d{3})*(?:\.\d+)?)(?:\s*(thousand|million|billion)\b|\s?([KMB])\b)?`),
		Count:      regexp.MustCompile(`(?i)(\d+(?:,\d{3})*)\s+(people|persons|individuals|victims|cases|incidents|reports|complaints|deaths|injuries|employees|users|customers|respondents|patients)\b`),
		Magnitude:  regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s+(thousand|million|billion)\b`),

		SourceNumber: regexp.MustCompile(`(?i)\$?(\d+(?:,\d{3})*(?:\.\d+)?)(?:\s*(thousand|million|billion)\b|\s?([KMB])\b)?`),

		SourcesHeading: regexp.MustCompile(`(?im)^#{0,6}\s*sources\s+consulted\b`),

		Thresholds:        cfg.Thresholds,
		Denylist:          lowerAll(cfg.Integrity.Denylist),
		DenylistScanBytes: cfg.Integrity.DenylistScanBytes,

		scales: map[string]float64{
			"thousand": 1_000,
			"k":        1_000,
			"million":  1_000_000,
			"m":        1_000_000,
			"billion":  1_000_000_000,
			"b":        1_000_000_000,
		},
	}
}

// ScaleFactor returns the multiplier for a scale word or suffix ("million",
// "M", ...). Unknown or empty words scale by 1.
func (s *Set) ScaleFactor(word string) float64 {
	if word == "" {
		return 1
	}
	if f, ok := s.scales[strings.ToLower(word)]; ok {
		return f
	}
	return 1
}

// StripSources removes the trailing sources-consulted section from article
// text. Citation lists are not claims.
func (s *Set) StripSources(article string) string {
	loc := s.SourcesHeading.FindStringIndex(article)
	if loc == nil {
		return article
	}
	return article[:loc[0]]
}

// CitedIDs returns the distinct source ids cited in the text, in first
// appearance order.
func (s *Set) CitedIDs(text string) []string {
	seen := make(map[string]bool)
	var ids []string
	for _, m := range s.CitationID.FindAllStringSubmatch(text, -1) {
		id := m[1]
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids
}

func lowerAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToLower(s)
	}
	return out
}
