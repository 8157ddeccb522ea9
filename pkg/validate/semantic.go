package validate

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/gnames/gncldf/pkg/sources"
)

var (
	iso639P3 = regexp.MustCompile(`^[a-z]{3}$`)
	glotto   = regexp.MustCompile(`^[a-z0-9]{4}[0-9]{4}$`)
	mime     = regexp.MustCompile(`^[^/\s]+/\S+$`)
)

// cellCheck validates one non-null value of a column bound to a property.
type cellCheck func(v any) error

var propertyChecks = map[string]cellCheck{
	"iso639P3code": regexCheck(iso639P3, "ISO 639-3 code"),
	"glottocode":   regexCheck(glotto, "Glottocode"),
	"mediaType":    regexCheck(mime, "media type"),
	"latitude":     rangeCheck(-90, 90),
	"longitude":    rangeCheck(-180, 180),
}

func regexCheck(re *regexp.Regexp, what string) cellCheck {
	return func(v any) error {
		for _, s := range cellStrings(v) {
			if !re.MatchString(s) {
				return fmt.Errorf("%q is not a valid %s", s, what)
			}
		}
		return nil
	}
}

func rangeCheck(lo, hi float64) cellCheck {
	return func(v any) error {
		var f float64
		switch n := v.(type) {
		case float64:
			f = n
		case int64:
			f = float64(n)
		case string:
			var err error
			f, err = strconv.ParseFloat(strings.TrimSpace(n), 64)
			if err != nil {
				return fmt.Errorf("%q is not a coordinate", n)
			}
		default:
			return nil
		}
		if f < lo || f > hi {
			return fmt.Errorf("%v is outside of [%v, %v]", f, lo, hi)
		}
		return nil
	}
}

// cellStrings returns string forms of a scalar or list value.
func cellStrings(v any) []string {
	switch val := v.(type) {
	case nil:
		return nil
	case string:
		return []string{val}
	case []any:
		res := make([]string, 0, len(val))
		for _, item := range val {
			res = append(res, cellStrings(item)...)
		}
		return res
	default:
		return []string{fmt.Sprint(val)}
	}
}

// checkIGT compares the number of words of an analyzed text with the
// number of glosses.
func checkIGT(words, glosses any) error {
	w, g := cellStrings(words), cellStrings(glosses)
	if len(w) == 0 || len(g) == 0 {
		return nil
	}
	if len(w) != len(g) {
		return fmt.Errorf("%d analyzed words but %d glosses", len(w), len(g))
	}
	return nil
}

// checkSources parses reference tokens of a source cell and resolves their
// keys. Invalid tokens are errors, missing keys are warnings.
func (e *Engine) checkSources(v any, add func(Severity, Check, string)) error {
	tokens := cellStrings(v)
	for _, tok := range tokens {
		ref, err := sources.ParseReference(tok)
		if err != nil {
			add(Error, SourceCheck, fmt.Sprintf("invalid reference %q", tok))
			continue
		}
		if e.exp == nil {
			continue
		}
		_, ok, err := e.exp.Resolve(ref)
		if err != nil {
			return err
		}
		if !ok {
			add(Warning, SourceCheck, fmt.Sprintf("missing source key %q", ref.Key))
		}
	}
	return nil
}
