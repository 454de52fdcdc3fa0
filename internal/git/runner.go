// Package git provides an interface for git operations.
package git

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// ExecRunner implements Runner using exec.Command.
type ExecRunner struct {
	repoPath string
}

// NewRunner creates a new git runner for the repository at the given path.
func NewRunner(repoPath string) *ExecRunner {
	return &ExecRunner{repoPath: repoPath}
}

// run executes a git command and returns its trimmed output.
func (r *ExecRunner) run(args ...string) (string, error) {
	return r.runEnv(nil, args...)
}

// runEnv executes a git command with extra environment variables appended
// to the current process environment.
func (r *ExecRunner) runEnv(extraEnv []string, args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = r.repoPath
	if len(extraEnv) > 0 {
		cmd.Env = append(os.Environ(), extraEnv...)
	}
	out, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("git %s: %w: %s", strings.Join(args, " "), err, string(out))
	}
	return strings.TrimSpace(string(out)), nil
}

// runSilent executes a git command and ignores output.
func (r *ExecRunner) runSilent(args ...string) error {
	_, err := r.run(args...)
	return err
}

// Run executes an arbitrary git command with the given arguments.
func (r *ExecRunner) Run(args ...string) (string, error) {
	return r.run(args...)
}

// IsWorkTree returns true when repoPath is inside a git work tree.
func (r *ExecRunner) IsWorkTree() bool {
	out, err := r.run("rev-parse", "--is-inside-work-tree")
	return err == nil && out == "true"
}

// GitDir returns the absolute path to the repository's .git directory.
func (r *ExecRunner) GitDir() (string, error) {
	out, err := r.run("rev-parse", "--git-dir")
	if err != nil {
		return "", err
	}
	if filepath.IsAbs(out) {
		return out, nil
	}
	return filepath.Join(r.repoPath, out), nil
}

// TopLevel returns the absolute path to the work tree root.
func (r *ExecRunner) TopLevel() (string, error) {
	return r.run("rev-parse", "--show-toplevel")
}

// HasCommits returns true if HEAD resolves to a commit.
func (r *ExecRunner) HasCommits() bool {
	err := r.runSilent("rev-parse", "--verify", "--quiet", "HEAD")
	return err == nil
}

// ReadTreeInto populates the given index file from a tree-ish.
func (r *ExecRunner) ReadTreeInto(indexFile, treeish string) error {
	_, err := r.runEnv([]string{"GIT_INDEX_FILE=" + indexFile}, "read-tree", treeish)
	return err
}

// AddAllInto stages all changes, including untracked files, into the
// given index file. The real index is untouched.
func (r *ExecRunner) AddAllInto(indexFile string) error {
	_, err := r.runEnv([]string{"GIT_INDEX_FILE=" + indexFile}, "add", "-A")
	return err
}

// WriteTreeFrom writes a tree object from the given index file.
func (r *ExecRunner) WriteTreeFrom(indexFile string) (string, error) {
	return r.runEnv([]string{"GIT_INDEX_FILE=" + indexFile}, "write-tree")
}

// CurrentBranch returns the name of the current branch.
func (r *ExecRunner) CurrentBranch() (string, error) {
	return r.run("rev-parse", "--abbrev-ref", "HEAD")
}

// HeadCommit returns the hex object id of HEAD.
func (r *ExecRunner) HeadCommit() (string, error) {
	return r.run("rev-parse", "HEAD")
}

// Status returns the output of git status --porcelain.
func (r *ExecRunner) Status() (string, error) {
	return r.run("status", "--porcelain")
}

// HasChanges returns true if there are uncommitted changes.
func (r *ExecRunner) HasChanges() (bool, error) {
	status, err := r.Status()
	if err != nil {
		return false, err
	}
	return len(status) > 0, nil
}

// NotesAdd attaches a note to an object under the given notes ref.
func (r *ExecRunner) NotesAdd(ref, object, content string, force bool) error {
	args := []string{"notes", "--ref=" + ref, "add"}
	if force {
		args = append(args, "-f")
	}
	args = append(args, "-m", content, object)
	return r.runSilent(args...)
}

// NotesShow returns the note content for an object.
func (r *ExecRunner) NotesShow(ref, object string) (string, error) {
	return r.run("notes", "--ref="+ref, "show", object)
}

// NotesList returns the annotated object ids under a notes ref.
// The underlying output is "<note-object> <annotated-object>" per line.
func (r *ExecRunner) NotesList(ref string) ([]string, error) {
	out, err := r.run("notes", "--ref="+ref, "list")
	if err != nil {
		return nil, err
	}
	if out == "" {
		return nil, nil
	}
	var objects []string
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 2 {
			objects = append(objects, fields[1])
		}
	}
	return objects, nil
}

// NotesRemove deletes the note attached to an object.
func (r *ExecRunner) NotesRemove(ref, object string) error {
	return r.runSilent("notes", "--ref="+ref, "remove", object)
}

// ForEachRef returns the full ref names under the given prefix.
func (r *ExecRunner) ForEachRef(prefix string) ([]string, error) {
	out, err := r.run("for-each-ref", "--format=%(refname)", prefix)
	if err != nil {
		return nil, err
	}
	if out == "" {
		return nil, nil
	}
	return strings.Split(out, "\n"), nil
}

// DeleteRef deletes a ref.
func (r *ExecRunner) DeleteRef(ref string) error {
	return r.runSilent("update-ref", "-d", ref)
}

// Verify ExecRunner implements Runner at compile time.
var _ Runner = (*ExecRunner)(nil)
