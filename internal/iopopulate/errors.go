package iopopulate

import (
	"fmt"

	"github.com/gnames/gn"
	"github.com/gnames/gncldf/pkg/errcode"
)

// NotConnectedError creates an error for when populate
// operation is attempted without database connection.
func NotConnectedError() error {
	msg := "Populate operation attempted without database connection"

	return &gn.Error{
		Code: errcode.DBNotConnectedError,
		Msg:  msg,
		Vars: nil,
		Err:  fmt.Errorf("not connected to database"),
	}
}

// PopulateError creates an error for failed inserts. The table is empty
// when the failure concerns the whole transaction.
func PopulateError(table string, err error) error {
	msg := "Cannot import data into the database"
	var vars []any
	if table != "" {
		msg = "Cannot import data into table <em>%s</em>"
		vars = []any{table}
	}

	return &gn.Error{
		Code: errcode.DBPopulateError,
		Msg:  msg,
		Vars: vars,
		Err:  fmt.Errorf("failed to populate %q: %w", table, err),
	}
}
