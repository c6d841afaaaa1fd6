package casestore

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"

	"casewarden/internal/model"
)

// Snapshot is the immutable view of a case that verification steps share.
// It is constructed once per pipeline run so steps never repeat file reads,
// and can be handed to a single step in isolation for testing.
type Snapshot struct {
	Store        *Store
	Registry     *model.Registry // nil when sources.yaml is missing
	RegistryRaw  []byte          // Raw sources.yaml bytes, nil when missing
	Article      string
	ArticleFound bool
	CitedIDs     []string // Distinct citation ids in appearance order
}

// NewSnapshot loads the registry and article once and records the cited ids.
func NewSnapshot(store *Store) (*Snapshot, error) {
	reg, err := store.LoadRegistry()
	if err != nil {
		return nil, err
	}
	regRaw, _, err := store.readFile(filepath.Join(store.root, RegistryFile))
	if err != nil {
		return nil, err
	}

	article, found, err := store.LoadArticle()
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{
		Store:        store,
		Registry:     reg,
		RegistryRaw:  regRaw,
		Article:      article,
		ArticleFound: found,
	}
	if found {
		snap.CitedIDs = store.CitedSources(article)
	}
	return snap, nil
}

// CaseID returns the registry's case id, or "" when no registry is present.
func (s *Snapshot) CaseID() string {
	if s.Registry == nil {
		return ""
	}
	return s.Registry.Case.ID
}

// Fingerprint digests every case input the verification steps read: the
// article text, the raw registry bytes, and the raw capture, rendered
// content and metadata of each cited source. A byte-level edit to any of
// them yields a different fingerprint even when no step outcome changes.
// Missing files contribute empty segments.
func (s *Snapshot) Fingerprint() string {
	h := sha256.New()
	h.Write([]byte(s.Article))
	h.Write([]byte{0})
	h.Write(s.RegistryRaw)

	for _, id := range s.CitedIDs {
		dir := s.Store.EvidencePath(id)
		h.Write([]byte{0})
		h.Write([]byte(id))
		for _, name := range []string{RawFile, ContentFile, MetadataFile} {
			data, _, _ := s.Store.readFile(filepath.Join(dir, name))
			h.Write([]byte{0})
			h.Write(data)
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}
