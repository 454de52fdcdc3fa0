// Package history maintains the per-identity log of validation runs.
//
// Each tree identity carries one note holding its recent runs. The log is
// append-only in intent but pruned to a maximum length on write, oldest
// first. History is telemetry: a failed write is reported back to the
// caller but never fails the validation that produced it.
package history

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ShayCichocki/gatecheck/internal/notes"
	"github.com/ShayCichocki/gatecheck/pkg/models"
)

// Namespace is the notes ref for validation history.
const Namespace = notes.RootRef + "/history"

// DefaultMaxRuns bounds the number of runs kept per tree identity.
const DefaultMaxRuns = 20

// Run is one recorded validation run.
type Run struct {
	ID          string                   `json:"id"`
	Timestamp   time.Time                `json:"timestamp"`
	DurationMS  int64                    `json:"duration_ms"`
	Passed      bool                     `json:"passed"`
	Branch      string                   `json:"branch,omitempty"`
	HeadCommit  string                   `json:"head_commit,omitempty"`
	Uncommitted bool                     `json:"uncommitted_changes,omitempty"`
	Result      *models.ValidationResult `json:"result,omitempty"`
}

// Note is the persisted history for one tree identity. Runs are ordered
// oldest first.
type Note struct {
	TreeIdentity string            `json:"tree_identity"`
	Components   map[string]string `json:"component_tree_identities,omitempty"`
	Runs         []Run             `json:"runs"`
}

// MetaStore is the subset of the notes store history needs.
type MetaStore interface {
	Put(namespace, objectID, content string, force bool) (bool, error)
	Get(namespace, objectID string) (string, bool, error)
}

// RepoInfo supplies repository context recorded alongside each run.
type RepoInfo interface {
	CurrentBranch() (string, error)
	HeadCommit() (string, error)
	HasChanges() (bool, error)
}

// RecordOutcome reports whether a run was persisted.
type RecordOutcome struct {
	Recorded bool
	Reason   string
}

// Store reads and writes history notes.
type Store struct {
	store      MetaStore
	repo       RepoInfo
	maxRuns    int
	components map[string]string
	now        func() time.Time
	newID      func() string
}

// NewStore creates a history store. repo may be nil when no repository
// context is available (branch and commit are then left empty).
func NewStore(store MetaStore, repo RepoInfo) *Store {
	return &Store{
		store:   store,
		repo:    repo,
		maxRuns: DefaultMaxRuns,
		now:     time.Now,
		newID:   func() string { return uuid.New().String()[:8] },
	}
}

// SetMaxRuns overrides the per-identity run cap. Values < 1 are ignored.
func (s *Store) SetMaxRuns(n int) {
	if n >= 1 {
		s.maxRuns = n
	}
}

// SetComponents records the per-root identities behind a composite tree
// identity; subsequent Record calls persist them on the note.
func (s *Store) SetComponents(components map[string]string) {
	s.components = components
}

// Load returns the history note for a tree identity. Absent or corrupt
// notes yield an empty note with ok=false.
func (s *Store) Load(treeIdentity string) (*Note, bool) {
	empty := &Note{TreeIdentity: treeIdentity}
	content, ok, err := s.store.Get(Namespace, treeIdentity)
	if err != nil || !ok {
		return empty, false
	}
	var note Note
	if json.Unmarshal([]byte(content), &note) != nil {
		return empty, false
	}
	if note.TreeIdentity == "" {
		note.TreeIdentity = treeIdentity
	}
	return &note, true
}

// Record appends a run for the given result and writes the note back,
// pruning the oldest runs beyond the cap. The note is owned by this
// subsystem, so the write always forces.
func (s *Store) Record(treeIdentity string, result *models.ValidationResult) RecordOutcome {
	note, _ := s.Load(treeIdentity)

	run := Run{
		ID:        s.newID(),
		Timestamp: s.now().UTC(),
		Passed:    result.Passed,
		Result:    result,
	}
	for _, phase := range result.Phases {
		run.DurationMS += phase.DurationMS
	}
	if s.repo != nil {
		if branch, err := s.repo.CurrentBranch(); err == nil {
			run.Branch = branch
		}
		if commit, err := s.repo.HeadCommit(); err == nil {
			run.HeadCommit = commit
		}
		if dirty, err := s.repo.HasChanges(); err == nil {
			run.Uncommitted = dirty
		}
	}

	note.SetComponents(s.components)
	note.Runs = append(note.Runs, run)
	if len(note.Runs) > s.maxRuns {
		note.Runs = note.Runs[len(note.Runs)-s.maxRuns:]
	}

	payload, err := json.Marshal(note)
	if err != nil {
		return RecordOutcome{Reason: fmt.Sprintf("encode history note: %v", err)}
	}
	if _, err := s.store.Put(Namespace, treeIdentity, string(payload), true); err != nil {
		return RecordOutcome{Reason: fmt.Sprintf("write history note: %v", err)}
	}
	return RecordOutcome{Recorded: true}
}

// SetComponents records the component identities contributing to a
// composite tree identity, for later diffing of multi-root setups.
func (n *Note) SetComponents(components map[string]string) {
	if len(components) == 0 {
		return
	}
	n.Components = components
}
