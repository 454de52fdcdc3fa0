package treeid

import (
	"encoding/hex"
	"fmt"
	"sort"

	"github.com/zeebo/blake3"
)

// Component is one repository root's contribution to a composite identity.
type Component struct {
	// Path locates the root relative to the primary repository.
	Path string
	// Identity is the root's own tree identity.
	Identity Identity
}

// Combine derives a composite identity from a set of components.
//
// Components are canonicalized (sorted by path, then identity) before
// hashing, so the result is independent of input order. Any change to a
// component's identity changes the composite. A single fallback component
// poisons the composite: the result is itself a fallback identity.
func Combine(components []Component) Identity {
	for _, comp := range components {
		if !comp.Identity.Deterministic() {
			return fallbackIdentity()
		}
	}

	sorted := make([]Component, len(components))
	copy(sorted, components)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Path != sorted[j].Path {
			return sorted[i].Path < sorted[j].Path
		}
		return sorted[i].Identity < sorted[j].Identity
	})

	h := blake3.New()
	for _, comp := range sorted {
		// Length-prefix both fields so adjacent components can never
		// produce the same byte stream by shifting a boundary.
		fmt.Fprintf(h, "%d:%s%d:%s", len(comp.Path), comp.Path, len(comp.Identity), comp.Identity)
	}
	return Identity(hex.EncodeToString(h.Sum(nil)))
}

// CompositeComputer computes one identity spanning multiple repository
// roots, e.g. nested checkouts validated together.
type CompositeComputer struct {
	roots []compositeRoot
	// components holds the per-root identities captured by the last
	// Compute call, so annotations describe the same content state as
	// the composite they accompany.
	components map[string]string
}

type compositeRoot struct {
	path     string
	computer *Computer
}

// NewCompositeComputer creates an empty CompositeComputer. Roots are
// registered with Add.
func NewCompositeComputer() *CompositeComputer {
	return &CompositeComputer{}
}

// Add registers a root under the given path label.
func (c *CompositeComputer) Add(path string, computer *Computer) {
	c.roots = append(c.roots, compositeRoot{path: path, computer: computer})
}

// Compute computes each root's identity and combines them. Combining
// inherits fallback poisoning: one non-deterministic root makes the
// composite non-deterministic.
func (c *CompositeComputer) Compute() (Identity, error) {
	components := make([]Component, 0, len(c.roots))
	snapshot := make(map[string]string, len(c.roots))
	for _, root := range c.roots {
		id, err := root.computer.Compute()
		if err != nil {
			return "", fmt.Errorf("identity for %s: %w", root.path, err)
		}
		components = append(components, Component{Path: root.path, Identity: id})
		snapshot[root.path] = id.String()
	}
	c.components = snapshot
	return Combine(components), nil
}

// Components returns the per-root identities captured by the last
// Compute call, for recording alongside composite history. Errors until
// Compute has run; a fresh computation here could describe a different
// working-copy state than the composite it annotates.
func (c *CompositeComputer) Components() (map[string]string, error) {
	if c.components == nil {
		return nil, fmt.Errorf("no composite identity computed yet")
	}
	return c.components, nil
}
