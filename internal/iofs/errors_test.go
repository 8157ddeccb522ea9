package iofs

import (
	"errors"
	"testing"

	"github.com/gnames/gn"
	"github.com/gnames/gncldf/pkg/errcode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestErrors_Structure verifies codes, message variables and wrapping.
func TestErrors_Structure(t *testing.T) {
	cause := errors.New("permission denied")

	tests := []struct {
		msg     string
		err     error
		code    gn.ErrorCode
		vars    []any
		wrapped bool
		text    string
	}{
		{
			msg:     "create dir",
			err:     CreateDirError("/test/dir", cause),
			code:    errcode.CreateDirError,
			vars:    []any{"/test/dir"},
			wrapped: true,
			text:    "cannot create",
		},
		{
			msg:     "copy file",
			err:     CopyFileError("/test/config.yaml", cause),
			code:    errcode.CopyFileError,
			vars:    []any{"/test/config.yaml"},
			wrapped: true,
			text:    "cannot copy",
		},
		{
			msg:     "read file",
			err:     ReadFileError("/test/data.zip", cause),
			code:    errcode.ReadFileError,
			vars:    []any{"/test/data.zip"},
			wrapped: true,
			text:    "cannot read",
		},
		{
			msg:     "write file",
			err:     WriteFileError("/test/forms.csv", cause),
			code:    errcode.WriteFileError,
			vars:    []any{"/test/forms.csv"},
			wrapped: true,
			text:    "cannot write",
		},
		{
			msg:  "discovery",
			err:  DiscoveryError("/test/empty", "no CSV files"),
			code: errcode.DiscoveryError,
			vars: []any{"/test/empty", "no CSV files"},
			text: "no dataset at /test/empty",
		},
		{
			msg:     "fetch",
			err:     FetchError("https://example.org/a.json", cause),
			code:    errcode.FetchError,
			vars:    []any{"https://example.org/a.json"},
			wrapped: true,
			text:    "cannot download",
		},
	}

	for _, v := range tests {
		t.Run(v.msg, func(t *testing.T) {
			gnErr, ok := v.err.(*gn.Error)
			require.True(t, ok, "Error should be of type *gn.Error")
			assert.Equal(t, v.code, gnErr.Code)
			assert.Contains(t, gnErr.Msg, "%s")
			assert.Equal(t, v.vars, gnErr.Vars)
			require.NotNil(t, gnErr.Err)
			assert.Contains(t, gnErr.Err.Error(), v.text)
			if v.wrapped {
				assert.ErrorIs(t, gnErr.Err, cause)
			}
		})
	}
}
