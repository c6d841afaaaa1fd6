package model

// UnitClass categorizes the shape of a numeric claim.
type UnitClass string

const (
	UnitPercentage UnitClass = "percentage" // "72%" / "72 percent"
	UnitCurrency   UnitClass = "currency"   // "$2.5 million", "$40,000"
	UnitCount      UnitClass = "count"      // "340 victims", "12 incidents"
	UnitMagnitude  UnitClass = "magnitude"  // "3 million" without a currency sign
)

// Statistic is one numeric claim extracted from the article body.
// Transient: regenerated on every pipeline run, never persisted.
type Statistic struct {
	Value    float64   `json:"value"`               // Normalized absolute value (scale applied)
	Unit     UnitClass `json:"unit"`                // Claim shape
	RawText  string    `json:"raw_text"`            // Text as matched in the article
	SourceID string    `json:"source_id,omitempty"` // Nearest citation id within the window, "" if uncited
	Offset   int       `json:"offset"`              // Byte offset of the match in the scanned article
	Window   string    `json:"window,omitempty"`    // Surrounding text kept for audit
}

// Cited reports whether the statistic carries an adjacent citation.
func (s Statistic) Cited() bool { return s.SourceID != "" }

// MatchType classifies how a cited statistic compared against its source.
type MatchType string

const (
	MatchExact       MatchType = "exact"       // Identical value found in source content
	MatchApproximate MatchType = "approximate" // Value within tolerance but not identical
	MatchMissing     MatchType = "mismatch"    // No value within tolerance
)

// StatMatch records the outcome of matching one cited statistic.
type StatMatch struct {
	Statistic Statistic `json:"statistic"`
	Type      MatchType `json:"type"`
	Found     float64   `json:"found,omitempty"` // Closest value located in source content
}
