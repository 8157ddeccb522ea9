package orm

import (
	"fmt"
	"runtime"

	"github.com/gnames/gn"
	"github.com/gnames/gncldf/pkg/errcode"
)

// NotFoundError reports a missing object.
func NotFoundError(table, id string) error {
	msg := "No object <em>%s</em> in <em>%s</em>"
	vars := []any{id, table}
	pc, _, _, _ := runtime.Caller(1)
	fn := runtime.FuncForPC(pc)
	return &gn.Error{
		Code: errcode.NotFoundError,
		Msg:  msg,
		Vars: vars,
		Err:  fmt.Errorf("from %s: %s: object %q not found", fn.Name(), table, id),
	}
}

// RelationError reports navigation over a column that is not a suitable
// reference.
func RelationError(table, column, reason string) error {
	msg := "Cannot follow <em>%s.%s</em>: %s"
	vars := []any{table, column, reason}
	pc, _, _, _ := runtime.Caller(1)
	fn := runtime.FuncForPC(pc)
	return &gn.Error{
		Code: errcode.RelationError,
		Msg:  msg,
		Vars: vars,
		Err:  fmt.Errorf("from %s: %s.%s: %s", fn.Name(), table, column, reason),
	}
}
