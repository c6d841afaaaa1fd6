package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"casewarden/internal/llm"
	"casewarden/internal/model"
)

// Renderer writes verification reports to files and stdout.
type Renderer struct {
	includeFooter bool
}

// NewRenderer creates a renderer.
func NewRenderer(includeFooter bool) *Renderer {
	return &Renderer{includeFooter: includeFooter}
}

// RenderJSON writes the report as indented JSON.
func (r *Renderer) RenderJSON(report *model.Report, path string) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

// RenderMarkdown writes a human-readable report.
func (r *Renderer) RenderMarkdown(report *model.Report, path string) error {
	var b strings.Builder

	fmt.Fprintf(&b, "# Verification Report: %s\n\n", report.CaseID)
	fmt.Fprintf(&b, "- Case root: `%s`\n", report.CaseRoot)
	fmt.Fprintf(&b, "- Verdict: **%s**\n", strings.ToUpper(string(report.Status)))
	fmt.Fprintf(&b, "- Chain head: `%s`\n", report.ChainHead())
	fmt.Fprintf(&b, "- Completed: %s\n\n", report.CompletedAt.Format("2006-01-02 15:04:05 UTC"))

	for _, step := range report.Steps {
		fmt.Fprintf(&b, "## %d. %s — %s\n\n", step.Ordinal, step.Name, step.Status)
		if step.Error != "" {
			fmt.Fprintf(&b, "Error: %s\n\n", step.Error)
		}
		if len(step.Metrics) > 0 {
			b.WriteString("| metric | value |\n|---|---|\n")
			for _, k := range sortedKeys(step.Metrics) {
				fmt.Fprintf(&b, "| %s | %d |\n", k, step.Metrics[k])
			}
			b.WriteString("\n")
		}
		for _, issue := range step.Issues {
			marker := "warning"
			if issue.Blocking() {
				marker = "BLOCKING"
			}
			fmt.Fprintf(&b, "- [%s] %s: %s\n", marker, issue.Code, issue.Message)
		}
		if len(step.Issues) > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "Step hash: `%s`\n\n", step.StepHash)
	}

	if r.includeFooter {
		b.WriteString("---\n\nGenerated by casewarden. The verdict is structural: it proves traceability, not truth.\n")
	}

	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		return fmt.Errorf("write markdown: %w", err)
	}
	return nil
}

// RenderLLMMarkdown writes the advisory summary to its own file, kept apart
// from the structural report.
func (r *Renderer) RenderLLMMarkdown(markdown string, path string) error {
	if markdown == "" {
		return nil
	}
	if err := os.WriteFile(path, []byte(markdown), 0644); err != nil {
		return fmt.Errorf("write llm markdown: %w", err)
	}
	return nil
}

// RenderSummary prints a short digest to stdout.
func (r *Renderer) RenderSummary(report *model.Report) {
	fmt.Printf("\nCase %s: %s\n", report.CaseID, strings.ToUpper(string(report.Status)))
	for _, step := range report.Steps {
		fmt.Printf("  %d. %-24s %s", step.Ordinal, step.Name, step.Status)
		if n := step.BlockingCount(); n > 0 {
			fmt.Printf(" (%d blocking)", n)
		}
		fmt.Println()
	}
	if blocking := report.BlockingIssues(); len(blocking) > 0 {
		fmt.Printf("\nBlocking issues:\n")
		for _, issue := range blocking {
			fmt.Printf("  - %s %s\n", issue.Code, issue.Message)
		}
	}
	fmt.Printf("\nChain head: %s\n", report.ChainHead())
}

// RenderReport renders the report to the configured outputs.
func (r *Renderer) RenderReport(report *model.Report, jsonPath, mdPath string, verbose bool) error {
	if jsonPath != "" {
		if err := r.RenderJSON(report, jsonPath); err != nil {
			return fmt.Errorf("render JSON: %w", err)
		}
		if verbose {
			fmt.Printf("✓ Wrote JSON: %s\n", jsonPath)
		}
	}

	if mdPath != "" {
		if err := r.RenderMarkdown(report, mdPath); err != nil {
			return fmt.Errorf("render markdown: %w", err)
		}
		if verbose {
			fmt.Printf("✓ Wrote Markdown: %s\n", mdPath)
		}
	}

	if report.LLM != nil && report.LLM.Enabled && mdPath != "" {
		llmPath := strings.TrimSuffix(mdPath, ".md") + ".llm.md"
		if err := r.RenderLLMMarkdown(llm.RenderSeparateMarkdown(report.LLM), llmPath); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: Failed to write LLM summary: %v\n", err)
		} else if verbose {
			fmt.Printf("✓ Wrote LLM Summary: %s\n", llmPath)
		}
	}

	r.RenderSummary(report)
	return nil
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
