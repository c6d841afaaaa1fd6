package stats

import (
	"testing"

	"casewarden/internal/model"
	"casewarden/internal/patterns"
)

func extractOne(t *testing.T, article string, unit model.UnitClass) model.Statistic {
	t.Helper()
	stats := NewExtractor().Extract(article)
	for _, s := range stats {
		if s.Unit == unit {
			return s
		}
	}
	t.Fatalf("No %s extraction in %v", unit, stats)
	return model.Statistic{}
}

func TestExtract_Percentage(t *testing.T) {
	patterns.Reset()
	defer patterns.Reset()

	s := extractOne(t, "Roughly 72% of users were affected [S001].", model.UnitPercentage)
	if s.Value != 72 {
		t.Errorf("Expected value 72, got %v", s.Value)
	}
	if s.SourceID != "S001" {
		t.Errorf("Expected citation S001, got %q", s.SourceID)
	}
	if s.RawText != "72%" {
		t.Errorf("Unexpected raw text %q", s.RawText)
	}
}

func TestExtract_PercentWord(t *testing.T) {
	patterns.Reset()
	defer patterns.Reset()

	s := extractOne(t, "Roughly 72 percent of users were affected [S001].", model.UnitPercentage)
	if s.Value != 72 {
		t.Errorf("Expected value 72, got %v", s.Value)
	}
}

func TestExtract_CurrencyWithScale(t *testing.T) {
	patterns.Reset()
	defer patterns.Reset()

	tests := []struct {
		text string
		want float64
	}{
		{"The $2.5 million budget [S045] was approved.", 2_500_000},
		{"A $40,000 payment [S045] followed.", 40_000},
		{"Roughly $3B [S045] in liabilities.", 3_000_000_000},
		{"Another $12K [S045] vanished.", 12_000},
	}

	for _, tt := range tests {
		s := extractOne(t, tt.text, model.UnitCurrency)
		if s.Value != tt.want {
			t.Errorf("%q: expected %v, got %v", tt.text, tt.want, s.Value)
		}
	}
}

func TestExtract_Count(t *testing.T) {
	patterns.Reset()
	defer patterns.Reset()

	s := extractOne(t, "There were 340 complaints filed [S002].", model.UnitCount)
	if s.Value != 340 {
		t.Errorf("Expected 340, got %v", s.Value)
	}
	if s.RawText != "340 complaints" {
		t.Errorf("Unexpected raw text %q", s.RawText)
	}
}

func TestExtract_Magnitude(t *testing.T) {
	patterns.Reset()
	defer patterns.Reset()

	s := extractOne(t, "About 3 million records leaked [S003].", model.UnitMagnitude)
	if s.Value != 3_000_000 {
		t.Errorf("Expected 3000000, got %v", s.Value)
	}
}

func TestExtract_CurrencyNotDoubleCountedAsMagnitude(t *testing.T) {
	patterns.Reset()
	defer patterns.Reset()

	stats := NewExtractor().Extract("The $2.5 million budget [S045] was approved.")
	if len(stats) != 1 {
		t.Fatalf("Expected 1 extraction, got %d: %v", len(stats), stats)
	}
	if stats[0].Unit != model.UnitCurrency {
		t.Errorf("Expected currency, got %s", stats[0].Unit)
	}
}

func TestExtract_UncitedWhenCitationTooFar(t *testing.T) {
	patterns.Reset()
	defer patterns.Reset()

	padding := ""
	for i := 0; i < 40; i++ {
		padding += "filler "
	}
	article := "Exactly 72% of users were affected. " + padding + " Unrelated sentence [S001]."

	s := extractOne(t, article, model.UnitPercentage)
	if s.Cited() {
		t.Errorf("Expected uncited statistic, got citation %q", s.SourceID)
	}
}

func TestExtract_NearestCitationWins(t *testing.T) {
	patterns.Reset()
	defer patterns.Reset()

	s := extractOne(t, "[S002] earlier text. The figure of 72% stands [S001].", model.UnitPercentage)
	if s.SourceID != "S001" {
		t.Errorf("Expected the nearer S001, got %q", s.SourceID)
	}
}

func TestExtract_SourcesSectionIgnored(t *testing.T) {
	patterns.Reset()
	defer patterns.Reset()

	article := "No numbers in the body [S001].\n\n## Sources Consulted\n\n- [S001] survey covering 95% of the market"
	stats := NewExtractor().Extract(article)
	if len(stats) != 0 {
		t.Errorf("Expected no extractions from the sources section, got %v", stats)
	}
}

func TestExtract_WindowAndOffset(t *testing.T) {
	patterns.Reset()
	defer patterns.Reset()

	article := "Prefix words here. Exactly 72% of users were affected [S001]."
	s := extractOne(t, article, model.UnitPercentage)
	if article[s.Offset:s.Offset+len(s.RawText)] != s.RawText {
		t.Errorf("Offset %d does not point at %q", s.Offset, s.RawText)
	}
	if s.Window == "" {
		t.Error("Expected a surrounding-text window")
	}
}
