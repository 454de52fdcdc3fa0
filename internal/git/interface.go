// Package git provides an interface for git operations.
package git

// WorkTreeOperations defines the interface for repository discovery.
type WorkTreeOperations interface {
	// IsWorkTree returns true when the runner's path is inside a git work tree.
	IsWorkTree() bool
	// GitDir returns the absolute path to the repository's .git directory.
	GitDir() (string, error)
	// TopLevel returns the absolute path to the work tree root.
	TopLevel() (string, error)
	// HasCommits returns true if HEAD resolves to a commit.
	// A freshly initialized repository has no commits.
	HasCommits() bool
}

// IndexOperations defines the interface for operations against an
// alternate index file. All three set GIT_INDEX_FILE so the real index
// is never touched.
type IndexOperations interface {
	// ReadTreeInto populates the given index file from a tree-ish.
	ReadTreeInto(indexFile, treeish string) error
	// AddAllInto stages every tracked, modified, and untracked path
	// (git add -A) into the given index file.
	AddAllInto(indexFile string) error
	// WriteTreeFrom writes a tree object from the given index file and
	// returns its hex object id.
	WriteTreeFrom(indexFile string) (string, error)
}

// InfoOperations defines the interface for read-only repository state.
type InfoOperations interface {
	// CurrentBranch returns the name of the current branch.
	CurrentBranch() (string, error)
	// HeadCommit returns the hex object id of HEAD.
	HeadCommit() (string, error)
	// Status returns the output of git status --porcelain.
	Status() (string, error)
	// HasChanges returns true if there are uncommitted changes.
	HasChanges() (bool, error)
}

// NotesOperations defines the interface for git notes manipulation.
// Every ref and object id must already be validated by the caller; the
// runner passes them through as discrete argv entries, never a shell string.
type NotesOperations interface {
	// NotesAdd attaches a note to an object under the given notes ref.
	NotesAdd(ref, object, content string, force bool) error
	// NotesShow returns the note content for an object, or an error if
	// no note exists.
	NotesShow(ref, object string) (string, error)
	// NotesList returns the annotated object ids under a notes ref.
	NotesList(ref string) ([]string, error)
	// NotesRemove deletes the note attached to an object.
	NotesRemove(ref, object string) error
}

// RefOperations defines the interface for ref enumeration and deletion.
type RefOperations interface {
	// ForEachRef returns the full ref names under the given prefix.
	ForEachRef(prefix string) ([]string, error)
	// DeleteRef deletes a ref.
	DeleteRef(ref string) error
}

// Runner defines the complete interface for git operations.
// Consumers should prefer the focused interfaces when possible.
type Runner interface {
	WorkTreeOperations
	IndexOperations
	InfoOperations
	NotesOperations
	RefOperations
	// Run executes an arbitrary git command with the given arguments.
	Run(args ...string) (string, error)
}
