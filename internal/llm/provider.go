// Package llm generates an optional, advisory summary of a finished
// verification report. The summary is produced strictly after the verdict
// and never feeds back into any step status.
package llm

import (
	"context"
	"fmt"

	"casewarden/internal/model"
)

// Provider defines the interface for LLM providers
type Provider interface {
	// Name returns the provider name
	Name() string

	// Summarize generates a summary of the report with strict citation mode
	Summarize(ctx context.Context, req SummarizeRequest) (*SummarizeResponse, error)

	// IsAvailable checks if the provider is properly configured and accessible
	IsAvailable(ctx context.Context) bool
}

// SummarizeRequest contains the input for LLM summarization
type SummarizeRequest struct {
	// Report is the verification report to summarize
	Report model.Report

	// AllowedSources is the STRICT allowlist of source ids the LLM can cite.
	// The LLM cannot reference any source id not in this list.
	AllowedSources []string

	// Prompt is an optional custom prompt (if empty, use default)
	Prompt string

	// Model is the specific model to use (provider-specific)
	Model string

	// MaxTokens limits the response length
	MaxTokens int
}

// SummarizeResponse contains the LLM's summary output
type SummarizeResponse struct {
	// Summary is the generated summary text
	Summary string

	// CitedSources are the source ids the LLM actually cited (for verification)
	CitedSources []string

	// Model is the model that generated the response
	Model string

	// TokensUsed tracks token consumption
	TokensUsed int
}

// Config holds LLM provider configuration
type Config struct {
	// Provider name: "openai", ""
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey for the provider
	APIKey string

	// BaseURL for custom endpoints
	BaseURL string

	// Timeout for API requests, in seconds
	Timeout int

	// StrictCitations enforces the source-id allowlist (should always be true)
	StrictCitations bool

	// MaxTokens for response generation
	MaxTokens int
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Provider:        "", // Disabled by default
		Model:           "",
		Timeout:         30,
		StrictCitations: true,
		MaxTokens:       1000,
	}
}

// BuildPrompt constructs the default prompt. The verdict is already decided;
// the summary only restates findings and may not introduce new sources.
func BuildPrompt(report model.Report, allowedSources []string) string {
	prompt := fmt.Sprintf(`You are summarizing a casewarden evidence-verification report. Casewarden checks whether article claims are traceable to captured evidence - it never decides what is true.

CRITICAL RULES:
1. You MUST ONLY reference source ids from this allowed list:
%s

2. DO NOT infer, speculate, or reference sources beyond this list.
3. The verdict below is final; describe it, never second-guess it.
4. Focus on INTEGRITY FINDINGS, not truth. Use phrases like:
   - "The hash check failed for..."
   - "N claims could not be traced to..."

Report Summary:
- Case: %s
- Verdict: %s
- Steps: %d
- Blocking issues: %d

Step outcomes:
`, joinSources(allowedSources), report.CaseID, report.Status, len(report.Steps), len(report.BlockingIssues()))

	for _, step := range report.Steps {
		prompt += fmt.Sprintf("- %s: %s (%d issues)\n", step.Name, step.Status, len(step.Issues))
	}

	prompt += "\nProvide a 3-4 sentence summary of the integrity findings."

	return prompt
}

func joinSources(ids []string) string {
	if len(ids) == 0 {
		return "(No sources cited in this case)"
	}
	result := ""
	for i, id := range ids {
		if i >= 20 { // Limit to first 20 to avoid token bloat
			result += fmt.Sprintf("\n... and %d more sources", len(ids)-20)
			break
		}
		result += fmt.Sprintf("\n- %s", id)
	}
	return result
}
