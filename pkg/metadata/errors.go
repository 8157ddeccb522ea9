package metadata

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/gnames/gn"
	"github.com/gnames/gncldf/pkg/errcode"
)

var stripTags = strings.NewReplacer("<em>", "", "</em>", "")

// SchemaError reports a mutation or a document that breaks consistency of
// the model. The message is formatted with vars.
func SchemaError(msg string, vars ...any) error {
	pc, _, _, _ := runtime.Caller(1)
	fn := runtime.FuncForPC(pc)
	return &gn.Error{
		Code: errcode.SchemaError,
		Msg:  msg,
		Vars: vars,
		Err: fmt.Errorf("from %s: schema error: %s",
			fn.Name(), stripTags.Replace(fmt.Sprintf(msg, vars...))),
	}
}

// LookupError reports addressing of a table or column that does not exist.
func LookupError(what string) error {
	msg := "Cannot find <em>%s</em>"
	vars := []any{what}
	pc, _, _, _ := runtime.Caller(1)
	fn := runtime.FuncForPC(pc)
	return &gn.Error{
		Code: errcode.LookupError,
		Msg:  msg,
		Vars: vars,
		Err:  fmt.Errorf("from %s: lookup error: %s not found", fn.Name(), what),
	}
}

// ShapeError reports a metadata document of unexpected structure.
func ShapeError(where string, err error) error {
	msg := "Malformed metadata in <em>%s</em>"
	vars := []any{where}
	pc, _, _, _ := runtime.Caller(1)
	fn := runtime.FuncForPC(pc)
	return &gn.Error{
		Code: errcode.MetadataShapeError,
		Msg:  msg,
		Vars: vars,
		Err:  fmt.Errorf("from %s: %s: %w", fn.Name(), where, err),
	}
}
