package iometa

import (
	"fmt"
	"runtime"

	"github.com/gnames/gn"
	"github.com/gnames/gncldf/pkg/errcode"
)

// DecodeError reports a metadata file that is not valid JSON.
func DecodeError(path string, err error) error {
	msg := "Cannot decode metadata <em>%s</em>"
	vars := []any{path}
	pc, _, _, _ := runtime.Caller(1)
	fn := runtime.FuncForPC(pc)
	return &gn.Error{
		Code: errcode.MetadataDecodeError,
		Msg:  msg,
		Vars: vars,
		Err:  fmt.Errorf("from %s: cannot decode %s: %w", fn.Name(), path, err),
	}
}

// ShapeError reports a metadata document of unexpected structure.
func ShapeError(path string, err error) error {
	msg := "Metadata <em>%s</em> is not a CSVW table group"
	vars := []any{path}
	pc, _, _, _ := runtime.Caller(1)
	fn := runtime.FuncForPC(pc)
	return &gn.Error{
		Code: errcode.MetadataShapeError,
		Msg:  msg,
		Vars: vars,
		Err:  fmt.Errorf("from %s: %s: %w", fn.Name(), path, err),
	}
}

// EncodeError reports a metadata document that cannot be written.
func EncodeError(path string, err error) error {
	msg := "Cannot write metadata <em>%s</em>"
	vars := []any{path}
	pc, _, _, _ := runtime.Caller(1)
	fn := runtime.FuncForPC(pc)
	return &gn.Error{
		Code: errcode.MetadataEncodeError,
		Msg:  msg,
		Vars: vars,
		Err:  fmt.Errorf("from %s: cannot write %s: %w", fn.Name(), path, err),
	}
}
