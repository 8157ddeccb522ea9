package iodb

import (
	"errors"
	"testing"

	"github.com/gnames/gn"
	"github.com/gnames/gncldf/pkg/errcode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrors(t *testing.T) {
	cause := errors.New("boom")

	tests := []struct {
		name  string
		err   error
		code  gn.ErrorCode
		vars  int
		cause bool
	}{
		{
			name:  "connection",
			err:   ConnectionError("localhost", 5432, "cldf", "postgres", cause),
			code:  errcode.DBConnectionError,
			vars:  4,
			cause: true,
		},
		{
			name:  "open",
			err:   OpenError("/nope/cldf.sqlite", cause),
			code:  errcode.DBConnectionError,
			vars:  1,
			cause: true,
		},
		{
			name: "not connected",
			err:  NotConnectedError(),
			code: errcode.DBNotConnectedError,
		},
		{
			name:  "table check",
			err:   TableCheckError(cause),
			code:  errcode.DBTableCheckError,
			cause: true,
		},
		{
			name:  "table exists",
			err:   TableExistsCheckError("FormTable", cause),
			code:  errcode.DBTableCheckError,
			vars:  1,
			cause: true,
		},
		{
			name:  "drop table",
			err:   DropTableError("FormTable", cause),
			code:  errcode.DBDropTableError,
			vars:  1,
			cause: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gnErr *gn.Error
			require.ErrorAs(t, tt.err, &gnErr)
			assert.Equal(t, tt.code, gnErr.Code)
			assert.NotEmpty(t, gnErr.Msg)
			assert.Len(t, gnErr.Vars, tt.vars)
			if tt.cause {
				assert.ErrorIs(t, gnErr.Err, cause)
			}
		})
	}
}
