package sources

import (
	"fmt"
	"runtime"

	"github.com/gnames/gn"
	"github.com/gnames/gncldf/pkg/errcode"
)

func InvalidReferenceError(token string) error {
	msg := "Invalid source reference <em>%s</em>"
	vars := []any{token}
	pc, _, _, _ := runtime.Caller(1)
	fn := runtime.FuncForPC(pc)
	return &gn.Error{
		Code: errcode.InvalidReferenceError,
		Msg:  msg,
		Vars: vars,
		Err:  fmt.Errorf("from %s: invalid reference %q", fn.Name(), token),
	}
}

func BibliographyLoadError(err error) error {
	msg := "Cannot load bibliography"
	pc, _, _, _ := runtime.Caller(1)
	fn := runtime.FuncForPC(pc)
	return &gn.Error{
		Code: errcode.BibliographyReadError,
		Msg:  msg,
		Err:  fmt.Errorf("from %s: %w", fn.Name(), err),
	}
}
