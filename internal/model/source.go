package model

import "time"

// SourceRecord is one entry in a case's source registry.
// Records are created at capture time and only ever amended, never deleted.
type SourceRecord struct {
	ID       string `yaml:"id" json:"id"`             // "S" + zero-padded number, unique per case
	URL      string `yaml:"url" json:"url"`           // Original source URL
	Title    string `yaml:"title" json:"title"`       // Human-readable title
	Type     string `yaml:"type" json:"type"`         // Declared source type (web, pdf, dataset, ...)
	Captured bool   `yaml:"captured" json:"captured"` // Whether evidence was captured for this source
}

// CaseInfo identifies the case a registry belongs to.
type CaseInfo struct {
	ID    string `yaml:"id" json:"id"`
	Title string `yaml:"title" json:"title"`
}

// Registry is the case-wide source registry (sources.yaml).
type Registry struct {
	Case    CaseInfo       `yaml:"case" json:"case"`
	Sources []SourceRecord `yaml:"sources" json:"sources"`
}

// Find returns the record for the given source id, or nil if absent.
func (r *Registry) Find(id string) *SourceRecord {
	for i := range r.Sources {
		if r.Sources[i].ID == id {
			return &r.Sources[i]
		}
	}
	return nil
}

// FileInfo describes one captured file inside an evidence bundle.
type FileInfo struct {
	SHA256 string `json:"sha256"`
	Size   int64  `json:"size"`
}

// VerificationBlock holds the hashes recorded when the bundle was captured.
// ComputedHash is mandatory; ToolHash is present only when the capture tool
// reported its own digest.
type VerificationBlock struct {
	ComputedHash string `json:"computed_hash"`
	ToolHash     string `json:"tool_hash,omitempty"`
}

// BundleMeta is the metadata record of an evidence bundle (metadata.json).
type BundleMeta struct {
	URL              string              `json:"url"`
	CapturedAt       time.Time           `json:"captured_at"`
	Files            map[string]FileInfo `json:"files,omitempty"`
	Verification     *VerificationBlock  `json:"verification"`
	CaptureSignature string              `json:"capture_signature,omitempty"`
}

// Bundle is the complete evidence set for one captured source.
// Written exactly once by the capture step; read-only thereafter.
type Bundle struct {
	SourceID string      // Owning source id
	Raw      []byte      // Original fetched bytes/markup (raw.html)
	Content  string      // Rendered content used for matching (content.txt)
	Meta     *BundleMeta // Parsed metadata.json, nil when missing/unparseable
}

// HasRenderedContent reports whether the bundle carries non-empty rendered text.
func (b *Bundle) HasRenderedContent() bool {
	return b != nil && len(b.Content) > 0
}
