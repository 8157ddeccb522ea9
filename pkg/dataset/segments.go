package dataset

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gnames/gncldf/pkg/metadata"
	"github.com/gnames/gncldf/pkg/orm"
)

// Segments returns the segments of a form.
func Segments(form *orm.Object) []string {
	v, ok := form.Get("segments")
	if !ok {
		return nil
	}
	return strs(v)
}

// Subsequence returns the segments of the form of a cognate judgement
// that the judgement selects with its segment slice. Without a slice the
// whole segments are returned.
func Subsequence(cognate *orm.Object) ([]string, error) {
	form, err := cognate.Form()
	if err != nil {
		return nil, err
	}
	if form == nil {
		return nil, nil
	}
	segs := Segments(form)
	v, ok := cognate.Get("segmentSlice")
	if !ok || v == nil {
		return segs, nil
	}
	return Multislice(segs, strs(v)...)
}

// Multislice concatenates slices of segments. A slice is given by a
// 1-based index "4" or an inclusive range "2:3".
func Multislice(segs []string, specs ...string) ([]string, error) {
	var res []string
	for _, spec := range specs {
		from, to, err := sliceBounds(spec)
		if err != nil {
			return nil, err
		}
		if from < 1 || to < from || to > len(segs) {
			return nil, metadata.SchemaError(
				"Segment slice <em>%s</em> is out of range 1:%d", spec, len(segs),
			)
		}
		res = append(res, segs[from-1:to]...)
	}
	return res, nil
}

func sliceBounds(spec string) (int, int, error) {
	a, b, isRange := strings.Cut(strings.TrimSpace(spec), ":")
	from, err := strconv.Atoi(a)
	if err != nil {
		return 0, 0, metadata.SchemaError("Invalid segment slice <em>%s</em>", spec)
	}
	if !isRange {
		return from, from, nil
	}
	to, err := strconv.Atoi(b)
	if err != nil {
		return 0, 0, metadata.SchemaError("Invalid segment slice <em>%s</em>", spec)
	}
	return from, to, nil
}

func strs(v any) []string {
	switch val := v.(type) {
	case nil:
		return nil
	case []any:
		res := make([]string, len(val))
		for i := range val {
			res[i] = fmt.Sprint(val[i])
		}
		return res
	default:
		return []string{fmt.Sprint(val)}
	}
}
