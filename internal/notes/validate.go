// Package notes stores and retrieves gatecheck metadata as git notes.
//
// Git notes attach arbitrary content to an object id under a namespaced
// ref, which makes them usable as a content-addressed key-value store.
// Every ref and object id is validated here before it reaches git; the
// runner only ever receives discrete argv entries, never a shell string.
package notes

import "fmt"

// Reason identifies why an input was rejected.
type Reason string

const (
	// ReasonEmpty means the input was empty.
	ReasonEmpty Reason = "empty"
	// ReasonControlChar means the input contained a NUL byte or newline.
	ReasonControlChar Reason = "control_character"
	// ReasonLeadingDash means the input started with '-' and could be
	// mistaken for a command-line option.
	ReasonLeadingDash Reason = "leading_dash"
	// ReasonPathTraversal means the input contained a ".." sequence.
	ReasonPathTraversal Reason = "path_traversal"
	// ReasonShellMeta means the input contained a shell metacharacter.
	ReasonShellMeta Reason = "shell_metacharacter"
	// ReasonRefChar means a ref contained a character outside the
	// allowed set [A-Za-z0-9/_.-].
	ReasonRefChar Reason = "invalid_ref_character"
	// ReasonNotHex means an object id contained non-hexadecimal characters.
	ReasonNotHex Reason = "not_hexadecimal"
	// ReasonBadLength means an object id was hexadecimal but not a
	// plausible digest length.
	ReasonBadLength Reason = "implausible_length"
	// ReasonOutsideRoot means a bulk operation targeted a ref outside
	// the reserved gatecheck namespace.
	ReasonOutsideRoot Reason = "outside_reserved_root"
)

// InputError is a security-relevant validation failure. It aborts the
// operation that produced it; silently proceeding would risk command
// injection or cross-namespace corruption.
type InputError struct {
	// Field names the rejected input ("ref" or "object id").
	Field string
	// Value is the rejected input.
	Value string
	// Reason identifies the failed check.
	Reason Reason
}

func (e *InputError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

// shellMeta is the set of characters that carry meaning to a shell.
// None of them are legal in gatecheck refs or object ids.
const shellMeta = ";|&$`<>()!{}*?~[]'\"\\ \t"

func containsAny(s, chars string) bool {
	for _, c := range s {
		for _, m := range chars {
			if c == m {
				return true
			}
		}
	}
	return false
}

// ValidateRef checks a notes ref or ref prefix before it is passed to git.
func ValidateRef(ref string) error {
	fail := func(reason Reason) error {
		return &InputError{Field: "ref", Value: ref, Reason: reason}
	}
	if ref == "" {
		return fail(ReasonEmpty)
	}
	for i := 0; i < len(ref); i++ {
		if ref[i] == 0 || ref[i] == '\n' || ref[i] == '\r' {
			return fail(ReasonControlChar)
		}
	}
	if ref[0] == '-' {
		return fail(ReasonLeadingDash)
	}
	if containsDotDot(ref) {
		return fail(ReasonPathTraversal)
	}
	if containsAny(ref, shellMeta) {
		return fail(ReasonShellMeta)
	}
	for i := 0; i < len(ref); i++ {
		c := ref[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '/' || c == '_' || c == '.' || c == '-':
		default:
			return fail(ReasonRefChar)
		}
	}
	return nil
}

// ValidateObjectID checks that an object id is a plausible hex digest.
// Symbolic names (branches, HEAD) are rejected: only full sha1 or sha256
// digests may key gatecheck metadata.
func ValidateObjectID(id string) error {
	fail := func(reason Reason) error {
		return &InputError{Field: "object id", Value: id, Reason: reason}
	}
	if id == "" {
		return fail(ReasonEmpty)
	}
	for i := 0; i < len(id); i++ {
		if id[i] == 0 || id[i] == '\n' || id[i] == '\r' {
			return fail(ReasonControlChar)
		}
	}
	if id[0] == '-' {
		return fail(ReasonLeadingDash)
	}
	if containsDotDot(id) {
		return fail(ReasonPathTraversal)
	}
	if containsAny(id, shellMeta) {
		return fail(ReasonShellMeta)
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		if (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F') {
			continue
		}
		return fail(ReasonNotHex)
	}
	if len(id) != 40 && len(id) != 64 {
		return fail(ReasonBadLength)
	}
	return nil
}

func containsDotDot(s string) bool {
	for i := 0; i+1 < len(s); i++ {
		if s[i] == '.' && s[i+1] == '.' {
			return true
		}
	}
	return false
}
