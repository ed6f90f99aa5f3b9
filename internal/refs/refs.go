// Package refs enumerates candidate branches from a git remote.
package refs

import (
	"bufio"
	"bytes"
	"context"
	"strings"
)

// headRef is the symbolic origin/HEAD entry, which is never a candidate
const headRef = "HEAD"

// Lister is the part of the workspace the enumerator needs
type Lister interface {
	RemoteRefs(ctx context.Context, remote string) ([]byte, error)
}

// Enumerator produces the ordered candidate list for a run
type Enumerator struct {
	lister   Lister
	remote   string
	baseline string
}

// NewEnumerator creates an Enumerator over remote that skips baseline
func NewEnumerator(lister Lister, remote, baseline string) *Enumerator {
	return &Enumerator{lister: lister, remote: remote, baseline: baseline}
}

// Candidates lists the remote's branches in git's output order. A failing
// git command is not fatal: whatever it printed is still parsed, so a broken
// remote simply yields fewer (or zero) candidates.
func (e *Enumerator) Candidates(ctx context.Context) []string {
	out, _ := e.lister.RemoteRefs(ctx, e.remote)
	return Parse(out, e.baseline)
}

// Parse turns for-each-ref output into candidate names: one per line,
// enclosing quotes stripped, blanks and the baseline dropped.
func Parse(out []byte, baseline string) []string {
	var candidates []string
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		name := Unquote(strings.TrimRight(scanner.Text(), "\r"))
		if name == "" || name == baseline || name == headRef {
			continue
		}
		candidates = append(candidates, name)
	}
	return candidates
}

// Unquote strips one pair of matching single or double quotes
func Unquote(s string) string {
	if len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if first == last && (first == '\'' || first == '"') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
