package llm

import (
	"context"
	"fmt"

	"casewarden/internal/model"
)

// Summarizer wraps a Provider and turns a finished report into an advisory
// LLMSummary. A nil or unavailable provider degrades to a disabled summary,
// never to a failed verification.
type Summarizer struct {
	provider Provider
	config   Config
}

// NewSummarizer creates a summarizer from configuration. Returns a disabled
// summarizer (not an error) when no provider is configured.
func NewSummarizer(config Config) (*Summarizer, error) {
	provider, err := NewProvider(config)
	if err != nil {
		return nil, err
	}
	return &Summarizer{provider: provider, config: config}, nil
}

// IsEnabled reports whether a provider is configured.
func (s *Summarizer) IsEnabled() bool {
	return s != nil && s.provider != nil
}

// GenerateSummary produces the advisory summary for a finished report.
// The report's steps and verdict are inputs only; they are never modified.
func (s *Summarizer) GenerateSummary(ctx context.Context, report model.Report) (*model.LLMSummary, error) {
	if !s.IsEnabled() {
		return &model.LLMSummary{Enabled: false}, nil
	}

	if !s.provider.IsAvailable(ctx) {
		return &model.LLMSummary{
			Enabled:  false,
			Provider: s.provider.Name(),
			Warnings: []string{"provider unavailable; summary skipped"},
		}, nil
	}

	allowed := allowedSources(report)
	resp, err := s.provider.Summarize(ctx, SummarizeRequest{
		Report:         report,
		AllowedSources: allowed,
	})
	if err != nil {
		return nil, fmt.Errorf("generate summary: %w", err)
	}

	summary := &model.LLMSummary{
		Enabled:   true,
		Provider:  s.provider.Name(),
		Model:     resp.Model,
		SummaryMD: resp.Summary,
	}
	return summary, nil
}

// allowedSources collects every source id mentioned by any step issue.
func allowedSources(report model.Report) []string {
	seen := make(map[string]bool)
	var ids []string
	for _, step := range report.Steps {
		for _, issue := range step.Issues {
			if issue.SourceID != "" && !seen[issue.SourceID] {
				seen[issue.SourceID] = true
				ids = append(ids, issue.SourceID)
			}
		}
	}
	return ids
}

// RenderSeparateMarkdown renders the summary for a standalone .llm.md file,
// clearly separated from the structural report.
func RenderSeparateMarkdown(summary *model.LLMSummary) string {
	if summary == nil || !summary.Enabled {
		return ""
	}
	md := "# Advisory Summary (LLM-generated)\n\n"
	md += fmt.Sprintf("> Generated by %s/%s. Advisory only; the verdict above it is structural.\n\n", summary.Provider, summary.Model)
	md += summary.SummaryMD + "\n"
	for _, w := range summary.Warnings {
		md += fmt.Sprintf("\n- warning: %s", w)
	}
	return md
}
