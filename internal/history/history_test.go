package history

import (
	"fmt"
	"testing"
	"time"

	"github.com/ShayCichocki/gatecheck/pkg/models"
)

// fakeMeta is an in-memory MetaStore.
type fakeMeta struct {
	data    map[string]map[string]string
	failPut bool
}

func newFakeMeta() *fakeMeta {
	return &fakeMeta{data: make(map[string]map[string]string)}
}

func (f *fakeMeta) Put(namespace, objectID, content string, force bool) (bool, error) {
	if f.failPut {
		return false, fmt.Errorf("ref locked")
	}
	ns := f.data[namespace]
	if ns == nil {
		ns = make(map[string]string)
		f.data[namespace] = ns
	}
	ns[objectID] = content
	return true, nil
}

func (f *fakeMeta) Get(namespace, objectID string) (string, bool, error) {
	content, ok := f.data[namespace][objectID]
	return content, ok, nil
}

// fakeRepo supplies fixed repository context.
type fakeRepo struct{}

func (fakeRepo) CurrentBranch() (string, error) { return "main", nil }
func (fakeRepo) HeadCommit() (string, error) {
	return "1111111111111111111111111111111111111111", nil
}
func (fakeRepo) HasChanges() (bool, error) { return true, nil }

const tree = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"

func passingResult() *models.ValidationResult {
	return &models.ValidationResult{
		Passed:    true,
		Timestamp: time.Now().UTC(),
		Phases: []models.PhaseResult{{
			Name:       "test",
			Passed:     true,
			DurationMS: 1000,
			Steps: []models.StepResult{{
				Name: "Unit Tests", Status: models.StepPassed, Passed: true, DurationMS: 1000,
			}},
		}},
	}
}

func newTestStore(meta MetaStore) *Store {
	s := NewStore(meta, fakeRepo{})
	seq := 0
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	s.newID = func() string { seq++; return fmt.Sprintf("run-%04d", seq) }
	s.now = func() time.Time { seq2 := seq; return base.Add(time.Duration(seq2) * time.Minute) }
	return s
}

func TestRecordCreatesNote(t *testing.T) {
	store := newTestStore(newFakeMeta())

	outcome := store.Record(tree, passingResult())
	if !outcome.Recorded {
		t.Fatalf("Record() = %+v, want recorded", outcome)
	}

	note, ok := store.Load(tree)
	if !ok {
		t.Fatal("Load() after Record() reports absent note")
	}
	if len(note.Runs) != 1 {
		t.Fatalf("runs = %d, want 1", len(note.Runs))
	}
	run := note.Runs[0]
	if !run.Passed || run.Branch != "main" || !run.Uncommitted {
		t.Errorf("run = %+v", run)
	}
	if run.DurationMS != 1000 {
		t.Errorf("duration = %d, want 1000", run.DurationMS)
	}
	if run.Result == nil {
		t.Error("run result breakdown missing")
	}
}

func TestRecordPrunesOldestBeyondCap(t *testing.T) {
	store := newTestStore(newFakeMeta())
	store.SetMaxRuns(10)

	for i := 0; i < 10; i++ {
		if out := store.Record(tree, passingResult()); !out.Recorded {
			t.Fatalf("Record() #%d failed: %s", i, out.Reason)
		}
	}
	note, _ := store.Load(tree)
	if len(note.Runs) != 10 {
		t.Fatalf("runs before overflow = %d, want 10", len(note.Runs))
	}
	firstID := note.Runs[0].ID

	if out := store.Record(tree, passingResult()); !out.Recorded {
		t.Fatalf("Record() overflow failed: %s", out.Reason)
	}
	note, _ = store.Load(tree)
	if len(note.Runs) != 10 {
		t.Fatalf("runs after overflow = %d, want 10", len(note.Runs))
	}
	for _, run := range note.Runs {
		if run.ID == firstID {
			t.Errorf("oldest run %s survived pruning", firstID)
		}
	}
	// Chronological order preserved, oldest first.
	for i := 1; i < len(note.Runs); i++ {
		if note.Runs[i].Timestamp.Before(note.Runs[i-1].Timestamp) {
			t.Error("runs out of chronological order after pruning")
			break
		}
	}
}

func TestRecordPersistsComponents(t *testing.T) {
	store := newTestStore(newFakeMeta())
	store.SetComponents(map[string]string{
		".":          tree,
		"vendor/lib": "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb",
	})

	if out := store.Record(tree, passingResult()); !out.Recorded {
		t.Fatalf("Record() failed: %s", out.Reason)
	}
	note, _ := store.Load(tree)
	if len(note.Components) != 2 {
		t.Fatalf("components = %v, want 2 entries", note.Components)
	}
	if note.Components["vendor/lib"] != "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb" {
		t.Errorf("components = %v", note.Components)
	}
}

func TestRecordWriteFailureIsReportedNotFatal(t *testing.T) {
	meta := newFakeMeta()
	meta.failPut = true
	store := newTestStore(meta)

	outcome := store.Record(tree, passingResult())
	if outcome.Recorded {
		t.Fatal("Record() succeeded against failing store")
	}
	if outcome.Reason == "" {
		t.Error("outcome carries no reason")
	}
}

func TestLoadCorruptNoteIsEmpty(t *testing.T) {
	meta := newFakeMeta()
	if _, err := meta.Put(Namespace, tree, "{broken", true); err != nil {
		t.Fatal(err)
	}
	store := newTestStore(meta)

	note, ok := store.Load(tree)
	if ok {
		t.Error("Load() of corrupt note reported ok")
	}
	if len(note.Runs) != 0 {
		t.Errorf("corrupt note yielded %d runs, want 0", len(note.Runs))
	}
	if note.TreeIdentity != tree {
		t.Errorf("tree identity = %q", note.TreeIdentity)
	}
}
