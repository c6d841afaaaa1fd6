// Package integrity verifies that captured evidence is structurally complete,
// hash self-consistent and free of fabrication indicators. All checks are
// read-only analyzers over an immutable case snapshot.
package integrity

import (
	"fmt"

	"casewarden/internal/casestore"
	"casewarden/internal/model"
)

// CaptureChecker verifies that every cited source is registered, captured,
// and backed by a complete evidence bundle.
type CaptureChecker struct{}

// NewCaptureChecker creates a capture checker.
func NewCaptureChecker() *CaptureChecker {
	return &CaptureChecker{}
}

// Check runs the ordered per-source checks over every cited id. Checks are
// exhaustive rather than short-circuiting so one run surfaces every defect.
func (c *CaptureChecker) Check(snap *casestore.Snapshot) ([]model.Issue, map[string]int) {
	var issues []model.Issue
	metrics := map[string]int{
		"sources_cited":      len(snap.CitedIDs),
		"sources_registered": 0,
		"sources_captured":   0,
		"sources_missing":    0,
		"sources_uncaptured": 0,
		"checks_failed":      0,
	}

	if !snap.ArticleFound {
		issues = append(issues, model.Issue{
			Code:     model.IssueArticleMissing,
			Severity: model.SeverityBlocking,
			Message:  "article file is missing from the case directory",
		})
	}
	if snap.Registry == nil {
		issues = append(issues, model.Issue{
			Code:     model.IssueRegistryMissing,
			Severity: model.SeverityBlocking,
			Message:  "source registry is missing from the case directory",
		})
	}

	for _, id := range snap.CitedIDs {
		issues = append(issues, c.checkSource(snap, id, metrics)...)
	}

	metrics["checks_failed"] = countBlocking(issues)
	return issues, metrics
}

// checkSource runs the five ordered checks for one cited source id. Every
// check runs regardless of earlier failures, so one run surfaces every
// defect the source carries.
func (c *CaptureChecker) checkSource(snap *casestore.Snapshot, id string, metrics map[string]int) []model.Issue {
	var issues []model.Issue

	// 1. Identifier exists in the registry.
	var record *model.SourceRecord
	if snap.Registry != nil {
		record = snap.Registry.Find(id)
	}
	if record == nil {
		metrics["sources_missing"]++
		issues = append(issues, model.Issue{
			Code:     model.IssueSourceNotInRegistry,
			Severity: model.SeverityBlocking,
			SourceID: id,
			Message:  fmt.Sprintf("%s is cited in the article but not registered", id),
		})
	} else {
		metrics["sources_registered"]++

		// 2. Captured flag is set.
		if !record.Captured {
			metrics["sources_uncaptured"]++
			issues = append(issues, model.Issue{
				Code:     model.IssueSourceNotCaptured,
				Severity: model.SeverityBlocking,
				SourceID: id,
				Message:  fmt.Sprintf("%s is registered but not marked captured", id),
			})
		} else {
			metrics["sources_captured"]++
		}
	}

	// 3. Evidence directory exists.
	if !snap.Store.HasEvidenceDir(id) {
		issues = append(issues, model.Issue{
			Code:     model.IssueEvidenceDirMissing,
			Severity: model.SeverityBlocking,
			SourceID: id,
			Message:  fmt.Sprintf("%s has no evidence directory", id),
		})
	}

	// A metadata parse failure still yields the partially loaded bundle.
	bundle, err := snap.Store.LoadBundle(id)

	// 4. Metadata file exists and parses.
	switch {
	case err != nil:
		issues = append(issues, model.Issue{
			Code:     model.IssueMetadataInvalid,
			Severity: model.SeverityBlocking,
			SourceID: id,
			Message:  fmt.Sprintf("%s metadata is unreadable: %v", id, err),
		})
	case bundle == nil || bundle.Meta == nil:
		code := model.IssueMetadataMissing
		msg := fmt.Sprintf("%s has no metadata file", id)
		if snap.Store.HasMetadata(id) {
			code = model.IssueMetadataInvalid
			msg = fmt.Sprintf("%s metadata did not parse", id)
		}
		issues = append(issues, model.Issue{
			Code:     code,
			Severity: model.SeverityBlocking,
			SourceID: id,
			Message:  msg,
		})
	}

	// 5. Rendered content exists and is non-empty.
	content := ""
	if bundle != nil {
		content = bundle.Content
	}
	if content == "" {
		code := model.IssueContentMissing
		msg := fmt.Sprintf("%s has no rendered content file", id)
		if snap.Store.HasContent(id) {
			code = model.IssueContentEmpty
			msg = fmt.Sprintf("%s rendered content is empty", id)
		}
		issues = append(issues, model.Issue{
			Code:     code,
			Severity: model.SeverityBlocking,
			SourceID: id,
			Message:  msg,
		})
	}

	return issues
}

func countBlocking(issues []model.Issue) int {
	n := 0
	for _, issue := range issues {
		if issue.Blocking() {
			n++
		}
	}
	return n
}
