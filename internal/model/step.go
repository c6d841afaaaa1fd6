package model

import "time"

// StepStatus is the outcome of one verification step.
type StepStatus string

const (
	StatusPending StepStatus = "pending"
	StatusPass    StepStatus = "pass"
	StatusWarn    StepStatus = "warn"
	StatusFail    StepStatus = "fail"
	StatusError   StepStatus = "error" // Step itself misbehaved (panic/unexpected failure)
)

// IssueSeverity splits issues into verdict-affecting and review-only.
type IssueSeverity string

const (
	SeverityBlocking IssueSeverity = "blocking"
	SeverityAdvisory IssueSeverity = "advisory"
)

// Issue codes emitted by the verification steps.
const (
	IssueArticleMissing       = "ARTICLE_MISSING"
	IssueRegistryMissing      = "REGISTRY_MISSING"
	IssueSourceNotInRegistry  = "SOURCE_NOT_IN_REGISTRY"
	IssueSourceNotCaptured    = "SOURCE_NOT_CAPTURED"
	IssueEvidenceDirMissing   = "EVIDENCE_DIR_MISSING"
	IssueMetadataMissing      = "METADATA_MISSING"
	IssueMetadataInvalid      = "METADATA_INVALID"
	IssueContentMissing       = "CONTENT_MISSING"
	IssueContentEmpty         = "CONTENT_EMPTY"
	IssueHashMismatch         = "HASH_MISMATCH"
	IssueHashUnverifiable     = "HASH_UNVERIFIABLE"
	IssueToolHashDisagrees    = "TOOL_HASH_DISAGREES"
	IssueFabricationPattern   = "FABRICATION_PATTERN"
	IssueMissingSignature     = "MISSING_SIGNATURE"
	IssueRoundTimestamp       = "ROUND_TIMESTAMP"
	IssueStatisticMismatch    = "STATISTIC_MISMATCH"
	IssueStatisticApproximate = "STATISTIC_APPROXIMATE"
	IssueUncitedStatistic     = "UNCITED_STATISTIC"
)

// Issue is one typed finding produced by a step.
type Issue struct {
	Code     string        `json:"code"`
	Severity IssueSeverity `json:"severity"`
	SourceID string        `json:"source_id,omitempty"`
	Message  string        `json:"message"`
}

// Blocking reports whether the issue affects the step verdict.
func (i Issue) Blocking() bool { return i.Severity == SeverityBlocking }

// StepResult is the record of one executed verification step.
// StepHash chains over the previous step's hash so any post-hoc edit to
// case files changes every hash downstream of the edit.
type StepResult struct {
	Ordinal     int            `json:"ordinal"`
	Name        string         `json:"name"`
	Status      StepStatus     `json:"status"`
	StartedAt   time.Time      `json:"started_at"`
	CompletedAt time.Time      `json:"completed_at"`
	Metrics     map[string]int `json:"metrics,omitempty"`
	Issues      []Issue        `json:"issues,omitempty"`
	Details     map[string]any `json:"details,omitempty"`
	Error       string         `json:"error,omitempty"`
	StepHash    string         `json:"step_hash"`
}

// BlockingCount returns the number of blocking issues on the step.
func (s *StepResult) BlockingCount() int {
	n := 0
	for _, issue := range s.Issues {
		if issue.Blocking() {
			n++
		}
	}
	return n
}

// AddIssue appends an issue to the step result.
func (s *StepResult) AddIssue(code string, severity IssueSeverity, sourceID, message string) {
	s.Issues = append(s.Issues, Issue{
		Code:     code,
		Severity: severity,
		SourceID: sourceID,
		Message:  message,
	})
}
