// Package sources expands bibliographic references found in cells of
// columns bound to the source property.
//
// A reference token is a citation key with an optional bracketed
// qualifier, usually page numbers: "Meier2005" or "Meier2005[3-7]".
// Keys are resolved against a Bibliography, which is loaded lazily and
// only once. Parsing bibliography files is done elsewhere.
package sources

import (
	"strings"
)

// Reference is a parsed reference token.
type Reference struct {
	// Key is the citation key.
	Key string
	// Qualifier is the text inside brackets, empty if there are none.
	Qualifier string
	// HasQualifier distinguishes "key[]" from "key".
	HasQualifier bool
	// Entry is the resolved bibliography entry, nil when the key is missing
	// from the bibliography or was not resolved yet.
	Entry *Entry
}

// ParseReference splits a token on its first "[" into a key and a
// qualifier. A token with a bracket must end with "]". The key cannot be
// empty, and the qualifier cannot contain brackets or ";".
func ParseReference(token string) (Reference, error) {
	var res Reference
	token = strings.TrimSpace(token)
	key, rest, found := strings.Cut(token, "[")
	if key == "" || strings.ContainsAny(key, "];") ||
		strings.ContainsFunc(key, isSpace) {
		return res, InvalidReferenceError(token)
	}
	res.Key = key
	if !found {
		return res, nil
	}
	qual, ok := strings.CutSuffix(rest, "]")
	if !ok || strings.ContainsAny(qual, "[];") {
		return res, InvalidReferenceError(token)
	}
	res.Qualifier = qual
	res.HasQualifier = true
	return res, nil
}

// String renders the reference back to its token.
func (r Reference) String() string {
	if !r.HasQualifier {
		return r.Key
	}
	return r.Key + "[" + r.Qualifier + "]"
}

// IsResolved is true if the key was found in the bibliography.
func (r Reference) IsResolved() bool {
	return r.Entry != nil
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}
