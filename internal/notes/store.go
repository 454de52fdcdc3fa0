package notes

import (
	"fmt"
	"strings"
)

// RootRef is the reserved ref namespace for all gatecheck metadata.
// Bulk deletion refuses to operate outside it.
const RootRef = "refs/notes/gatecheck"

// Client is the subset of git operations the store needs.
type Client interface {
	NotesAdd(ref, object, content string, force bool) error
	NotesShow(ref, object string) (string, error)
	NotesList(ref string) ([]string, error)
	NotesRemove(ref, object string) error
	ForEachRef(prefix string) ([]string, error)
	DeleteRef(ref string) error
}

// Entry is one (object id, content) pair under a namespace.
type Entry struct {
	ObjectID string
	Content  string
}

// Store is a validated adapter over git notes.
type Store struct {
	git Client
}

// NewStore creates a Store backed by the given git client.
func NewStore(git Client) *Store {
	return &Store{git: git}
}

// Put attaches content to an object under the given namespace ref.
// Returns false without error when a note already exists and force is
// unset; the existing note is left untouched.
func (s *Store) Put(namespace, objectID, content string, force bool) (bool, error) {
	if err := ValidateRef(namespace); err != nil {
		return false, err
	}
	if err := ValidateObjectID(objectID); err != nil {
		return false, err
	}
	if !force {
		if _, err := s.git.NotesShow(namespace, objectID); err == nil {
			return false, nil
		}
	}
	if err := s.git.NotesAdd(namespace, objectID, content, force); err != nil {
		return false, fmt.Errorf("write note %s @ %s: %w", namespace, objectID, err)
	}
	return true, nil
}

// Get returns the note content for an object, with ok=false when no
// note exists. A failing read is reported as absence, not an error;
// callers treat missing metadata as a cache miss.
func (s *Store) Get(namespace, objectID string) (string, bool, error) {
	if err := ValidateRef(namespace); err != nil {
		return "", false, err
	}
	if err := ValidateObjectID(objectID); err != nil {
		return "", false, err
	}
	content, err := s.git.NotesShow(namespace, objectID)
	if err != nil {
		return "", false, nil
	}
	return content, true, nil
}

// List returns every entry under a namespace. Individual entries whose
// id fails validation or whose content cannot be read are skipped so a
// single bad note cannot abort the whole listing.
func (s *Store) List(namespace string) ([]Entry, error) {
	if err := ValidateRef(namespace); err != nil {
		return nil, err
	}
	objects, err := s.git.NotesList(namespace)
	if err != nil {
		return nil, nil
	}
	var entries []Entry
	for _, obj := range objects {
		if ValidateObjectID(obj) != nil {
			continue
		}
		content, err := s.git.NotesShow(namespace, obj)
		if err != nil {
			continue
		}
		entries = append(entries, Entry{ObjectID: obj, Content: content})
	}
	return entries, nil
}

// Remove deletes the note for an object. Returns false when no note
// existed or the removal failed.
func (s *Store) Remove(namespace, objectID string) (bool, error) {
	if err := ValidateRef(namespace); err != nil {
		return false, err
	}
	if err := ValidateObjectID(objectID); err != nil {
		return false, err
	}
	if err := s.git.NotesRemove(namespace, objectID); err != nil {
		return false, nil
	}
	return true, nil
}

// Namespaces returns the refs under the given prefix, dropping any
// enumerated ref that fails validation.
func (s *Store) Namespaces(prefix string) ([]string, error) {
	if err := ValidateRef(prefix); err != nil {
		return nil, err
	}
	refs, err := s.git.ForEachRef(prefix)
	if err != nil {
		return nil, fmt.Errorf("enumerate refs under %s: %w", prefix, err)
	}
	var out []string
	for _, ref := range refs {
		if ValidateRef(ref) == nil {
			out = append(out, ref)
		}
	}
	return out, nil
}

// RemoveAll deletes every note under every namespace matching the given
// prefix and returns the number of notes removed. The prefix must sit
// inside RootRef; each enumerated ref and object id is re-validated
// before deletion.
func (s *Store) RemoveAll(prefix string) (int, error) {
	if err := ValidateRef(prefix); err != nil {
		return 0, err
	}
	if prefix != RootRef && !strings.HasPrefix(prefix, RootRef+"/") {
		return 0, &InputError{Field: "ref", Value: prefix, Reason: ReasonOutsideRoot}
	}
	refs, err := s.git.ForEachRef(prefix)
	if err != nil {
		return 0, fmt.Errorf("enumerate refs under %s: %w", prefix, err)
	}
	removed := 0
	for _, ref := range refs {
		if ValidateRef(ref) != nil {
			continue
		}
		if ref != RootRef && !strings.HasPrefix(ref, RootRef+"/") {
			continue
		}
		objects, err := s.git.NotesList(ref)
		if err != nil {
			continue
		}
		for _, obj := range objects {
			if ValidateObjectID(obj) != nil {
				continue
			}
			if err := s.git.NotesRemove(ref, obj); err == nil {
				removed++
			}
		}
		_ = s.git.DeleteRef(ref)
	}
	return removed, nil
}
