package validate

import (
	"fmt"
	"runtime"

	"github.com/gnames/gn"
	"github.com/gnames/gncldf/pkg/errcode"
)

// RowValidationError wraps a RowError into gn.Error.
func RowValidationError(re *RowError) error {
	msg := "Invalid data in <em>%s</em>, row %d"
	vars := []any{re.Table, re.Row}
	if re.Column != "" {
		msg = "Invalid data in <em>%s</em>, row %d, column <em>%s</em>: %s"
		vars = []any{re.Table, re.Row, re.Column, re.Reason}
	}
	pc, _, _, _ := runtime.Caller(1)
	fn := runtime.FuncForPC(pc)
	return &gn.Error{
		Code: errcode.RowValidationError,
		Msg:  msg,
		Vars: vars,
		Err:  fmt.Errorf("from %s: %w", fn.Name(), re),
	}
}

func RowReadError(table string, err error) error {
	msg := "Cannot read rows of <em>%s</em>"
	vars := []any{table}
	pc, _, _, _ := runtime.Caller(1)
	fn := runtime.FuncForPC(pc)
	return &gn.Error{
		Code: errcode.RowReadError,
		Msg:  msg,
		Vars: vars,
		Err:  fmt.Errorf("from %s: %s: %w", fn.Name(), table, err),
	}
}
