package validate

import (
	"fmt"
	"math"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/gnames/gncldf/pkg/metadata"
	"github.com/goccy/go-json"
	"github.com/yosida95/uritemplate/v3"
)

var integerTypes = map[string]bool{
	"integer": true, "int": true, "long": true, "short": true, "byte": true,
	"nonNegativeInteger": true, "positiveInteger": true,
	"nonPositiveInteger": true, "negativeInteger": true,
	"unsignedLong": true, "unsignedInt": true, "unsignedShort": true,
	"unsignedByte": true,
}

var numberTypes = map[string]bool{
	"decimal": true, "float": true, "double": true, "number": true,
}

var timeLayouts = map[string][]string{
	"date":     {"2006-01-02"},
	"dateTime": {time.RFC3339Nano, "2006-01-02T15:04:05"},
	"datetime": {time.RFC3339Nano, "2006-01-02T15:04:05"},
	"time":     {"15:04:05", "15:04"},
}

// coercer converts raw cells of one column into typed values.
type coercer struct {
	col      *metadata.Column
	base     string
	format   *regexp.Regexp
	trueTok  []string
	falseTok []string
}

func newCoercer(col *metadata.Column) (*coercer, error) {
	c := &coercer{col: col, base: col.Datatype.BaseOrDefault()}
	f := col.Datatype.Format
	switch {
	case f == "":
	case c.base == "boolean":
		t, fl, ok := strings.Cut(f, "|")
		if !ok {
			return nil, fmt.Errorf("boolean format %q has no '|'", f)
		}
		c.trueTok, c.falseTok = []string{t}, []string{fl}
	case integerTypes[c.base] || numberTypes[c.base] || timeLayouts[c.base] != nil:
		// number and date patterns are not regular expressions
	default:
		re, err := regexp.Compile(`^(?:` + f + `)$`)
		if err != nil {
			return nil, fmt.Errorf("format of %s: %w", col.Name, err)
		}
		c.format = re
	}
	if c.base == "boolean" && c.trueTok == nil {
		c.trueTok = []string{"true", "1"}
		c.falseTok = []string{"false", "0"}
	}
	return c, nil
}

// cell converts a raw cell. Null cells give nil, multi-valued cells give
// []any. On failure the raw cell is returned with the error.
func (c *coercer) cell(raw string) (any, error) {
	if c.col.IsNull(raw) {
		return nil, nil
	}
	if !c.col.IsMultiValued() {
		return c.single(raw)
	}
	parts := splitList(raw, c.col.Separator)
	res := make([]any, 0, len(parts))
	for _, p := range parts {
		v, err := c.single(p)
		if err != nil {
			return raw, err
		}
		res = append(res, v)
	}
	return res, nil
}

func splitList(raw, sep string) []string {
	parts := strings.Split(raw, sep)
	res := parts[:0]
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			res = append(res, p)
		}
	}
	return res
}

func (c *coercer) single(raw string) (any, error) {
	dt := c.col.Datatype
	switch {
	case integerTypes[c.base]:
		n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil {
			return raw, fmt.Errorf("%q is not an integer", raw)
		}
		if err = checkSign(c.base, n); err != nil {
			return raw, err
		}
		if err = checkRange(float64(n), dt); err != nil {
			return raw, err
		}
		return n, nil
	case numberTypes[c.base]:
		f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil || math.IsNaN(f) {
			return raw, fmt.Errorf("%q is not a number", raw)
		}
		if err = checkRange(f, dt); err != nil {
			return raw, err
		}
		return f, nil
	case c.base == "boolean":
		for _, t := range c.trueTok {
			if raw == t {
				return true, nil
			}
		}
		for _, f := range c.falseTok {
			if raw == f {
				return false, nil
			}
		}
		return raw, fmt.Errorf("%q is not a boolean", raw)
	case c.base == "anyURI":
		if strings.ContainsAny(raw, " \t\n") {
			return raw, fmt.Errorf("%q is not a URI", raw)
		}
		if _, err := url.Parse(raw); err != nil {
			return raw, fmt.Errorf("%q is not a URI", raw)
		}
		return raw, nil
	case c.base == "uriTemplate":
		if _, err := uritemplate.New(raw); err != nil {
			return raw, fmt.Errorf("%q is not a URI template", raw)
		}
		return raw, nil
	case c.base == "json":
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			return raw, fmt.Errorf("invalid JSON: %v", err)
		}
		return v, nil
	case timeLayouts[c.base] != nil:
		for _, l := range timeLayouts[c.base] {
			if _, err := time.Parse(l, raw); err == nil {
				return raw, nil
			}
		}
		return raw, fmt.Errorf("%q is not a valid %s", raw, c.base)
	}

	if c.format != nil && !c.format.MatchString(raw) {
		return raw, fmt.Errorf("%q does not match format %q", raw, dt.Format)
	}
	n := len([]rune(raw))
	if dt.MinLength != nil && n < *dt.MinLength {
		return raw, fmt.Errorf("%q is shorter than %d", raw, *dt.MinLength)
	}
	if dt.MaxLength != nil && n > *dt.MaxLength {
		return raw, fmt.Errorf("%q is longer than %d", raw, *dt.MaxLength)
	}
	return raw, nil
}

func checkSign(base string, n int64) error {
	switch {
	case strings.HasPrefix(base, "unsigned") || base == "nonNegativeInteger":
		if n < 0 {
			return fmt.Errorf("%d is negative", n)
		}
	case base == "positiveInteger":
		if n <= 0 {
			return fmt.Errorf("%d is not positive", n)
		}
	case base == "negativeInteger":
		if n >= 0 {
			return fmt.Errorf("%d is not negative", n)
		}
	case base == "nonPositiveInteger":
		if n > 0 {
			return fmt.Errorf("%d is positive", n)
		}
	}
	return nil
}

func checkRange(f float64, dt metadata.Datatype) error {
	if dt.Minimum != nil && f < *dt.Minimum {
		return fmt.Errorf("%v is less than minimum %v", f, *dt.Minimum)
	}
	if dt.Maximum != nil && f > *dt.Maximum {
		return fmt.Errorf("%v is greater than maximum %v", f, *dt.Maximum)
	}
	return nil
}
