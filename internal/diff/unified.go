package diff

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/cockroachdb/errors"
)

// DefaultContext is the number of context lines in unified hunks.
const DefaultContext = 3

// Unified renders a classic unified patch (---/+++ headers, @@ hunks)
// between the current document text and the snapshot document text. It is a
// presentation supplement to Compare: the structural entries drive restore
// decisions, the patch is for human review.
func Unified(label string, current, snapshot []byte, contextLines int) (string, error) {
	if contextLines <= 0 {
		contextLines = DefaultContext
	}

	u := difflib.UnifiedDiff{
		A:        splitLinesKeepNL(string(current)),
		B:        splitLinesKeepNL(string(snapshot)),
		FromFile: label + " (current)",
		ToFile:   label + " (snapshot)",
		Context:  contextLines,
	}
	s, err := difflib.GetUnifiedDiffString(u)
	if err != nil {
		return "", errors.Wrap(err, "rendering unified diff")
	}
	return s, nil
}

// splitLinesKeepNL splits into lines keeping the trailing newline on each
// element, which produces cleaner unified hunks.
func splitLinesKeepNL(s string) []string {
	if s == "" {
		return []string{}
	}
	return strings.SplitAfter(s, "\n")
}
