// Package casestore is the read-only accessor over one case directory.
// It never mutates case state; missing files are reported as absent values,
// not errors, so callers can treat "missing" as a normal condition.
package casestore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"casewarden/internal/cache"
	"casewarden/internal/model"
	"casewarden/internal/patterns"
)

// Well-known file names inside a case directory.
const (
	RegistryFile = "sources.yaml"
	ArticleFile  = "article.md"
	EvidenceDir  = "evidence"
	RawFile      = "raw.html"
	ContentFile  = "content.txt"
	MetadataFile = "metadata.json"
)

// Store reads a case's persisted records. Bundle file reads are memoized in
// an in-process cache: the hash verifier and the statistic matcher read the
// same immutable bundles within one run.
type Store struct {
	root  string
	cache cache.Cache
	ttl   time.Duration
}

// NewStore creates a store over the given case root.
func NewStore(root string, cacheCfg model.CacheConfig) *Store {
	s := &Store{root: root, ttl: cacheCfg.TTL}
	if cacheCfg.Enabled {
		s.cache = cache.NewMemoryCache(cacheCfg.TTL, 2*cacheCfg.TTL)
	}
	return s
}

// Root returns the case root directory.
func (s *Store) Root() string { return s.root }

// LoadRegistry loads sources.yaml. Returns (nil, nil) when the file is absent.
func (s *Store) LoadRegistry() (*model.Registry, error) {
	data, found, err := s.readFile(filepath.Join(s.root, RegistryFile))
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	var reg model.Registry
	if err := yaml.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", RegistryFile, err)
	}
	return &reg, nil
}

// LoadArticle loads article.md. found is false when the file is absent.
func (s *Store) LoadArticle() (text string, found bool, err error) {
	data, found, err := s.readFile(filepath.Join(s.root, ArticleFile))
	if err != nil || !found {
		return "", found, err
	}
	return string(data), true, nil
}

// EvidencePath returns the evidence directory for a source id.
func (s *Store) EvidencePath(sourceID string) string {
	return filepath.Join(s.root, EvidenceDir, sourceID)
}

// HasEvidenceDir reports whether the source has an evidence directory.
func (s *Store) HasEvidenceDir(sourceID string) bool {
	info, err := os.Stat(s.EvidencePath(sourceID))
	return err == nil && info.IsDir()
}

// LoadBundle loads a source's evidence bundle. Returns (nil, nil) when the
// evidence directory is absent. Individual missing files leave the matching
// bundle field zero-valued; a metadata file that exists but does not parse
// is reported as an error alongside the partially loaded bundle, so callers
// can still inspect the raw and rendered files.
func (s *Store) LoadBundle(sourceID string) (*model.Bundle, error) {
	dir := s.EvidencePath(sourceID)
	if !s.HasEvidenceDir(sourceID) {
		return nil, nil
	}

	bundle := &model.Bundle{SourceID: sourceID}

	if raw, found, err := s.readFile(filepath.Join(dir, RawFile)); err != nil {
		return nil, err
	} else if found {
		bundle.Raw = raw
	}

	if content, found, err := s.readFile(filepath.Join(dir, ContentFile)); err != nil {
		return nil, err
	} else if found {
		bundle.Content = string(content)
	}

	metaData, found, err := s.readFile(filepath.Join(dir, MetadataFile))
	if err != nil {
		return nil, err
	}
	if found {
		var meta model.BundleMeta
		if err := json.Unmarshal(metaData, &meta); err != nil {
			return bundle, fmt.Errorf("parse %s/%s: %w", sourceID, MetadataFile, err)
		}
		bundle.Meta = &meta
	}

	return bundle, nil
}

// HasMetadata reports whether the source's metadata file exists on disk.
func (s *Store) HasMetadata(sourceID string) bool {
	_, err := os.Stat(filepath.Join(s.EvidencePath(sourceID), MetadataFile))
	return err == nil
}

// HasContent reports whether the source's rendered content file exists,
// regardless of whether it is empty.
func (s *Store) HasContent(sourceID string) bool {
	_, err := os.Stat(filepath.Join(s.EvidencePath(sourceID), ContentFile))
	return err == nil
}

// CitedSources scans article text for all distinct citation identifiers,
// in first appearance order.
func (s *Store) CitedSources(article string) []string {
	return patterns.Load().CitedIDs(article)
}

// readFile reads a file through the memoization cache. found is false when
// the file does not exist; other read failures are errors.
func (s *Store) readFile(path string) (data []byte, found bool, err error) {
	key := cache.Key(path)
	if s.cache != nil {
		if data, ok := s.cache.Get(key); ok {
			return data, true, nil
		}
	}

	data, err = os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("read %s: %w", path, err)
	}

	if s.cache != nil {
		s.cache.Set(key, data, s.ttl)
	}
	return data, true, nil
}
