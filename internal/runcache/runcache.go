// Package runcache caches per-command results keyed by tree identity.
//
// Each command gets its own notes namespace derived from its cache key;
// within that namespace the tree identity selects the entry. Content
// addressing makes expiry unnecessary: an entry is valid exactly as long
// as its tree identity describes the working copy.
package runcache

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/ShayCichocki/gatecheck/internal/notes"
	"github.com/ShayCichocki/gatecheck/pkg/models"
)

// Namespace is the notes ref prefix for command result entries.
const Namespace = notes.RootRef + "/cmd"

// Entry is one cached command execution result.
type Entry struct {
	TreeIdentity string             `json:"tree_identity"`
	CacheKey     string             `json:"cache_key"`
	Command      string             `json:"command"`
	Workdir      string             `json:"workdir,omitempty"`
	Timestamp    time.Time          `json:"timestamp"`
	ExitCode     int                `json:"exit_code"`
	DurationMS   int64              `json:"duration_ms"`
	Extraction   *models.Extraction `json:"extraction,omitempty"`
}

// Passed reports whether the cached execution succeeded.
func (e *Entry) Passed() bool { return e.ExitCode == 0 }

// MetaStore is the subset of the notes store the cache needs.
type MetaStore interface {
	Put(namespace, objectID, content string, force bool) (bool, error)
	Get(namespace, objectID string) (string, bool, error)
	Namespaces(prefix string) ([]string, error)
}

// Cache reads and writes command result entries.
type Cache struct {
	store MetaStore
}

// New creates a Cache backed by the given metadata store.
func New(store MetaStore) *Cache {
	return &Cache{store: store}
}

func namespaceFor(cacheKey string) string {
	return Namespace + "/" + cacheKey
}

// Get returns the entry for (treeIdentity, cacheKey), or nil on a miss.
// Content that fails to parse is a miss, never an error: a corrupt note
// only costs a re-run.
func (c *Cache) Get(treeIdentity, cacheKey string) (*Entry, error) {
	content, ok, err := c.store.Get(namespaceFor(cacheKey), treeIdentity)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	var entry Entry
	if err := json.Unmarshal([]byte(content), &entry); err != nil {
		return nil, nil
	}
	return &entry, nil
}

// Put stores an entry, overwriting any previous result. At a given tree
// identity the content is by definition unchanged, so last writer wins.
func (c *Cache) Put(treeIdentity, cacheKey string, entry *Entry) error {
	entry.TreeIdentity = treeIdentity
	entry.CacheKey = cacheKey
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}
	if _, err := c.store.Put(namespaceFor(cacheKey), treeIdentity, string(payload), true); err != nil {
		return fmt.Errorf("store cache entry: %w", err)
	}
	return nil
}

// ListForTree returns every cached entry for a tree identity across all
// command namespaces. Unreadable or corrupt entries are skipped.
func (c *Cache) ListForTree(treeIdentity string) ([]Entry, error) {
	namespaces, err := c.store.Namespaces(Namespace)
	if err != nil {
		return nil, err
	}
	var entries []Entry
	for _, ns := range namespaces {
		content, ok, err := c.store.Get(ns, treeIdentity)
		if err != nil || !ok {
			continue
		}
		var entry Entry
		if json.Unmarshal([]byte(content), &entry) != nil {
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
