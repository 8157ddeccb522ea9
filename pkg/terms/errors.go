package terms

import (
	"fmt"
	"runtime"

	"github.com/gnames/gn"
	"github.com/gnames/gncldf/pkg/errcode"
)

func UnknownVersionError(version string, err error) error {
	msg := "Unknown CLDF ontology version <em>%s</em>"
	vars := []any{version}
	pc, _, _, _ := runtime.Caller(1)
	fn := runtime.FuncForPC(pc)
	return &gn.Error{
		Code: errcode.UnknownTermsVersionError,
		Msg:  msg,
		Vars: vars,
		Err:  fmt.Errorf("from %s: no ontology for version %s: %w", fn, version, err),
	}
}

func LoadError(err error) error {
	msg := "Cannot load CLDF ontology"
	pc, _, _, _ := runtime.Caller(1)
	fn := runtime.FuncForPC(pc)
	return &gn.Error{
		Code: errcode.TermsLoadError,
		Msg:  msg,
		Err:  fmt.Errorf("from %s: %w", fn, err),
	}
}
