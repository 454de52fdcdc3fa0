// Package cachekey derives storage-safe cache keys from commands.
//
// A key must be stable for semantically identical invocations and safe
// to embed in a notes ref path. Simple commands are whitespace-collapsed
// so "npm  test" and "npm test" share a key; commands carrying shell
// metacharacters are left untouched apart from trimming, because inside
// quotes or substitutions spacing is significant.
package cachekey

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/zeebo/blake3"
)

// shellMeta marks commands whose internal spacing must be preserved.
const shellMeta = "|&;<>()$`\\\"'*?[]#~!{}"

// Normalize canonicalizes a command for keying.
func Normalize(command string) string {
	if strings.ContainsAny(command, shellMeta) {
		return strings.TrimSpace(command)
	}
	return strings.Join(strings.Fields(command), " ")
}

// Encode derives the cache key for a (command, workdir) pair.
//
// The key is a readable slug of the command followed by a digest of the
// normalized command and working directory. Only [a-z0-9_-] appear in
// the result, so it embeds directly in a ref path; dots are excluded
// because git refuses ".." sequences and trailing dots in refnames.
func Encode(command, workdir string) string {
	norm := Normalize(command)

	h := blake3.New()
	fmt.Fprintf(h, "%d:%s%d:%s", len(norm), norm, len(workdir), workdir)
	digest := hex.EncodeToString(h.Sum(nil))[:16]

	slug := slugify(norm, 32)
	if slug == "" {
		return digest
	}
	return slug + "-" + digest
}

// slugify reduces a command to a ref-safe fragment of at most max bytes.
func slugify(s string, max int) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(s) {
		if b.Len() >= max {
			break
		}
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}
