package integrity

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"casewarden/internal/model"
	"casewarden/internal/patterns"
	"casewarden/internal/util"
)

// HashVerifier recomputes the content hash of a raw capture and compares it
// to the hash recorded at capture time. Hash self-consistency is the single
// load-bearing integrity guarantee: if it fails, the evidence cannot be
// trusted regardless of any other signal.
type HashVerifier struct {
	denylist  []string
	scanBytes int
}

// NewHashVerifier creates a verifier using the process-wide pattern registry
// for its fabrication denylist.
func NewHashVerifier() *HashVerifier {
	set := patterns.Load()
	return &HashVerifier{
		denylist:  set.Denylist,
		scanBytes: set.DenylistScanBytes,
	}
}

// ContentHash returns the hex SHA-256 digest of the given bytes.
func ContentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Verify runs every check against one bundle and returns the issues found.
// Hash mismatches and fabrication-pattern hits are blocking; a missing
// signature and a round timestamp are advisory.
func (v *HashVerifier) Verify(bundle *model.Bundle) []model.Issue {
	var issues []model.Issue
	id := bundle.SourceID

	issues = append(issues, v.verifyHash(bundle)...)

	if bundle.Meta != nil {
		if bundle.Meta.CaptureSignature == "" {
			issues = append(issues, model.Issue{
				Code:     model.IssueMissingSignature,
				Severity: model.SeverityAdvisory,
				SourceID: id,
				Message:  fmt.Sprintf("%s metadata carries no capture signature", id),
			})
		}
		if msg, round := roundTimestamp(bundle.Meta); round {
			issues = append(issues, model.Issue{
				Code:     model.IssueRoundTimestamp,
				Severity: model.SeverityAdvisory,
				SourceID: id,
				Message:  msg,
			})
		}
	}

	if phrase := v.fabricationHit(bundle); phrase != "" {
		issues = append(issues, model.Issue{
			Code:     model.IssueFabricationPattern,
			Severity: model.SeverityBlocking,
			SourceID: id,
			Message:  fmt.Sprintf("%s content matches fabrication pattern %q", id, phrase),
		})
	}

	return issues
}

// verifyHash checks hash self-consistency: the recomputed digest of the raw
// file must equal the digest recorded in the verification block, and the
// capture tool's own digest when one was reported.
func (v *HashVerifier) verifyHash(bundle *model.Bundle) []model.Issue {
	id := bundle.SourceID

	if bundle.Meta == nil || bundle.Meta.Verification == nil || bundle.Meta.Verification.ComputedHash == "" {
		return []model.Issue{{
			Code:     model.IssueHashUnverifiable,
			Severity: model.SeverityBlocking,
			SourceID: id,
			Message:  fmt.Sprintf("%s metadata has no verification hash", id),
		}}
	}
	if bundle.Raw == nil {
		return []model.Issue{{
			Code:     model.IssueHashUnverifiable,
			Severity: model.SeverityBlocking,
			SourceID: id,
			Message:  fmt.Sprintf("%s has no raw capture to hash", id),
		}}
	}

	var issues []model.Issue
	recorded := normalizeHash(bundle.Meta.Verification.ComputedHash)
	computed := ContentHash(bundle.Raw)

	if computed != recorded {
		issues = append(issues, model.Issue{
			Code:     model.IssueHashMismatch,
			Severity: model.SeverityBlocking,
			SourceID: id,
			Message:  fmt.Sprintf("%s raw capture hash %s does not match recorded %s", id, computed[:12], recorded),
		})
	}

	if tool := normalizeHash(bundle.Meta.Verification.ToolHash); tool != "" && tool != recorded {
		issues = append(issues, model.Issue{
			Code:     model.IssueToolHashDisagrees,
			Severity: model.SeverityBlocking,
			SourceID: id,
			Message:  fmt.Sprintf("%s capture tool reported a different hash than the verification block", id),
		})
	}

	return issues
}

// fabricationHit scans the rendered content and the raw capture's visible
// text for denylisted phrasing. Returns the matched phrase, or "".
func (v *HashVerifier) fabricationHit(bundle *model.Bundle) string {
	texts := []string{bundle.Content}
	if len(bundle.Raw) > 0 {
		texts = append(texts, util.VisibleText(string(bundle.Raw)))
	}

	for _, text := range texts {
		head := strings.ToLower(text)
		if v.scanBytes > 0 && len(head) > v.scanBytes {
			head = head[:v.scanBytes]
		}
		for _, phrase := range v.denylist {
			if strings.Contains(head, phrase) {
				return phrase
			}
		}
	}
	return ""
}

// roundTimestamp flags capture timestamps landing exactly on a minute or
// hour mark. Hand-authored metadata tends to carry round timestamps; real
// capture tools rarely do.
func roundTimestamp(meta *model.BundleMeta) (string, bool) {
	t := meta.CapturedAt
	if t.IsZero() {
		return "", false
	}
	if t.Second() != 0 || t.Nanosecond() != 0 {
		return "", false
	}
	if t.Minute() == 0 {
		return fmt.Sprintf("capture timestamp %s lands on an exact hour", t.Format("2006-01-02T15:04:05Z07:00")), true
	}
	return fmt.Sprintf("capture timestamp %s lands on an exact minute", t.Format("2006-01-02T15:04:05Z07:00")), true
}

// normalizeHash lowercases a digest and strips an optional algorithm prefix.
func normalizeHash(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	return strings.TrimPrefix(h, "sha256:")
}
