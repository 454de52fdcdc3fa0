// Package treeid computes deterministic content identities for working copies.
//
// The identity of a working copy is the hex id of a git tree object built
// from the full current state: staged, unstaged, and untracked content.
// Tree objects carry no timestamps or authorship, so the identity depends
// only on content. The tree is written through a throwaway index file
// (GIT_INDEX_FILE), which means the real index and working copy are never
// mutated; cleanup is a single file removal that runs on every path out.
package treeid

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/zeebo/blake3"
)

// FallbackPrefix marks identities produced outside a git work tree.
// Such identities are intentionally unstable so results computed against
// them are never cached.
const FallbackPrefix = "fallback-"

// Identity is a hex digest representing working-copy content state.
type Identity string

// Deterministic reports whether the identity is content-derived and
// therefore safe to use as a cache key.
func (id Identity) Deterministic() bool {
	return id != "" && !strings.HasPrefix(string(id), FallbackPrefix)
}

// String returns the identity as a plain string.
func (id Identity) String() string { return string(id) }

// GitClient is the subset of git operations identity computation needs.
type GitClient interface {
	IsWorkTree() bool
	GitDir() (string, error)
	HasCommits() bool
	ReadTreeInto(indexFile, treeish string) error
	AddAllInto(indexFile string) error
	WriteTreeFrom(indexFile string) (string, error)
}

// Computer computes working-copy identities for one repository root.
type Computer struct {
	git GitClient
	// warn receives non-fatal diagnostics (e.g. fallback identity use).
	warn func(format string, args ...interface{})
}

// NewComputer creates a Computer for the given git client.
func NewComputer(git GitClient) *Computer {
	return &Computer{
		git:  git,
		warn: log.Printf,
	}
}

// SetWarnFunc overrides the warning sink. A nil fn silences warnings.
func (c *Computer) SetWarnFunc(fn func(format string, args ...interface{})) {
	if fn == nil {
		fn = func(string, ...interface{}) {}
	}
	c.warn = fn
}

// Compute returns the identity of the current working-copy state.
//
// Outside a git work tree it returns a fallback identity that differs on
// every call, so nothing is ever cached against it, and emits a warning.
func (c *Computer) Compute() (Identity, error) {
	if !c.git.IsWorkTree() {
		id := fallbackIdentity()
		c.warn("gatecheck: not inside a git work tree, results will not be cached (identity %s)", id)
		return id, nil
	}

	gitDir, err := c.git.GitDir()
	if err != nil {
		return "", fmt.Errorf("locate git dir: %w", err)
	}

	tmp, err := os.CreateTemp(gitDir, "gatecheck-index-*")
	if err != nil {
		return "", fmt.Errorf("create scratch index: %w", err)
	}
	indexFile := tmp.Name()
	tmp.Close()
	// The scratch index is the only state this computation creates.
	// Removing it is the unstage step; it runs on error paths too.
	defer os.Remove(indexFile)

	if c.git.HasCommits() {
		if err := c.git.ReadTreeInto(indexFile, "HEAD"); err != nil {
			return "", fmt.Errorf("seed scratch index: %w", err)
		}
	} else if err := truncate(indexFile); err != nil {
		return "", err
	}

	if err := c.git.AddAllInto(indexFile); err != nil {
		return "", fmt.Errorf("stage working copy: %w", err)
	}

	tree, err := c.git.WriteTreeFrom(indexFile)
	if err != nil {
		return "", fmt.Errorf("write tree: %w", err)
	}
	return Identity(tree), nil
}

// truncate empties the scratch index so git treats it as a fresh index
// rather than a zero-byte corrupt one.
func truncate(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("reset scratch index: %w", err)
	}
	return nil
}

// fallbackIdentity returns a placeholder identity that is different on
// every call. It hashes wall clock, pid, and hostname so two concurrent
// processes cannot collide either.
func fallbackIdentity() Identity {
	host, _ := os.Hostname()
	h := blake3.New()
	fmt.Fprintf(h, "%d|%d|%s", time.Now().UnixNano(), os.Getpid(), host)
	sum := h.Sum(nil)
	return Identity(FallbackPrefix + fmt.Sprintf("%x", sum[:16]))
}
