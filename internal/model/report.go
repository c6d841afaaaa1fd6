package model

import "time"

// Report is the complete result of one verification pipeline run.
type Report struct {
	CaseID      string    `json:"case_id"`
	CaseRoot    string    `json:"case_root"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`

	Steps  []StepResult `json:"steps"`
	Status StepStatus   `json:"status"` // Aggregate verdict over all steps

	LLM *LLMSummary `json:"llm,omitempty"` // Optional advisory summary, never affects the verdict
}

// ChainHead returns the final step hash, the head of the tamper-evident chain.
func (r *Report) ChainHead() string {
	if len(r.Steps) == 0 {
		return ""
	}
	return r.Steps[len(r.Steps)-1].StepHash
}

// BlockingIssues returns every blocking issue across all steps.
func (r *Report) BlockingIssues() []Issue {
	var issues []Issue
	for _, step := range r.Steps {
		for _, issue := range step.Issues {
			if issue.Blocking() {
				issues = append(issues, issue)
			}
		}
	}
	return issues
}

// AggregateStatus folds step statuses into the overall verdict:
// fail if any step failed or errored, else warn if any warned, else pass.
func AggregateStatus(steps []StepResult) StepStatus {
	status := StatusPass
	for _, step := range steps {
		switch step.Status {
		case StatusFail, StatusError:
			return StatusFail
		case StatusWarn:
			status = StatusWarn
		}
	}
	return status
}

// LLMSummary contains the optional post-verdict summary.
// It is generated after all steps complete and never feeds back into them.
type LLMSummary struct {
	Enabled   bool     `json:"enabled"`
	Provider  string   `json:"provider,omitempty"`
	Model     string   `json:"model,omitempty"`
	SummaryMD string   `json:"summary_md,omitempty"`
	Warnings  []string `json:"warnings,omitempty"`
}
