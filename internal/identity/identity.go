// Package identity defines the stable identity token that names one logical
// object across file renames and moves, and the codec that embeds tokens in
// snapshot filenames.
package identity

import (
	"regexp"
	"strings"

	"github.com/cockroachdb/errors"
)

// HexLength is the fixed width of an identity token in hex characters.
const HexLength = 32

// Separator joins the human-readable alias and the identity token in a
// snapshot filename. The alias part is cosmetic; only the token is
// authoritative for lookup.
const Separator = "__"

// ErrInvalidIdentity indicates a string is not a valid identity token.
var ErrInvalidIdentity = errors.New("invalid identity token")

// idPattern matches one fixed-width hex run, case-insensitively.
var idPattern = regexp.MustCompile(`(?i)[0-9a-f]{32}`)

// ID is an opaque identity token: exactly HexLength lowercase hex characters.
type ID string

// Parse validates s as an identity token and normalizes it to lowercase.
func Parse(s string) (ID, error) {
	if len(s) != HexLength {
		return "", errors.Wrapf(ErrInvalidIdentity, "want %d hex chars, got %d", HexLength, len(s))
	}
	lower := strings.ToLower(s)
	for _, r := range lower {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
			return "", errors.Wrapf(ErrInvalidIdentity, "non-hex character %q", r)
		}
	}
	return ID(lower), nil
}

// String returns the token in its canonical lowercase form.
func (id ID) String() string { return string(id) }

// Short returns the first 8 characters for log and report output.
func (id ID) Short() string {
	if len(id) < 8 {
		return string(id)
	}
	return string(id[:8])
}

// EncodeFileName builds a snapshot file stem from an identity and an
// optional alias: "sanitizedAlias__identity", or the bare identity when the
// alias sanitizes to nothing.
func EncodeFileName(id ID, alias string) string {
	clean := SanitizeAlias(alias)
	if clean == "" {
		return id.String()
	}
	return clean + Separator + id.String()
}

// DecodeFileName extracts the identity from a snapshot file stem. The whole
// stem may be a bare token, or the token may be embedded anywhere in the
// name; the first fixed-width hex run wins. The extension, if present, is
// ignored. Returns false when no token is found.
//
// An alias that itself contains a 32-hex run placed before the true identity
// changes first-match order; callers choose aliases, so this is accepted.
func DecodeFileName(name string) (ID, bool) {
	stem := name
	if i := strings.LastIndexByte(stem, '.'); i > 0 {
		stem = stem[:i]
	}
	match := idPattern.FindString(stem)
	if match == "" {
		return "", false
	}
	return ID(strings.ToLower(match)), true
}

// SanitizeAlias makes an alias safe for use in a filename: characters that
// are illegal or troublesome in filenames become '_', and trailing
// separators and whitespace are trimmed.
func SanitizeAlias(alias string) string {
	var b strings.Builder
	b.Grow(len(alias))
	for _, r := range alias {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', 0:
			b.WriteRune('_')
		default:
			if r < 0x20 {
				b.WriteRune('_')
			} else {
				b.WriteRune(r)
			}
		}
	}
	return strings.TrimRight(b.String(), "_ \t.")
}
