package iosources

import (
	"fmt"
	"runtime"

	"github.com/gnames/gn"
	"github.com/gnames/gncldf/pkg/errcode"
)

// BibliographyReadError creates an error for a BibTeX file that cannot
// be read or parsed.
func BibliographyReadError(path string, err error) error {
	msg := `Cannot read bibliography

<em>File:</em> %s

<em>Possible causes:</em>
  - Invalid BibTeX syntax
  - Corrupted zip archive
  - Permission denied`

	vars := []any{path}
	pc, _, _, _ := runtime.Caller(1)
	fn := runtime.FuncForPC(pc)
	return &gn.Error{
		Code: errcode.BibliographyReadError,
		Msg:  msg,
		Vars: vars,
		Err:  fmt.Errorf("from %s: cannot read %s: %w", fn.Name(), path, err),
	}
}

// BibliographyWriteError creates an error for a BibTeX file that cannot
// be written.
func BibliographyWriteError(path string, err error) error {
	msg := "Cannot write bibliography <em>%s</em>"
	vars := []any{path}
	pc, _, _, _ := runtime.Caller(1)
	fn := runtime.FuncForPC(pc)
	return &gn.Error{
		Code: errcode.BibliographyWriteError,
		Msg:  msg,
		Vars: vars,
		Err:  fmt.Errorf("from %s: cannot write %s: %w", fn.Name(), path, err),
	}
}
