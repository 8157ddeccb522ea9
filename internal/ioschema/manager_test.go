package ioschema_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/gnames/gncldf/internal/iodataset"
	"github.com/gnames/gncldf/internal/iodb"
	"github.com/gnames/gncldf/internal/ioschema"
	"github.com/gnames/gncldf/internal/iotesting"
	"github.com/gnames/gncldf/pkg/config"
	"github.com/gnames/gncldf/pkg/db"
	"github.com/gnames/gncldf/pkg/errcode"
	"github.com/gnames/gncldf/pkg/schema"
	"github.com/gnames/gncldf/pkg/terms"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func wordlistSchema(t *testing.T) *schema.Schema {
	reg, err := terms.Load(terms.DefaultVersion)
	require.NoError(t, err)
	dir := t.TempDir()
	iotesting.WriteWordlist(t, dir)
	d, err := iodataset.Open(context.Background(), reg, dir, t.TempDir())
	require.NoError(t, err)
	res, err := d.Resolved()
	require.NoError(t, err)
	bib, err := d.Bibliography()
	require.NoError(t, err)
	s, err := schema.Build(res, bib)
	require.NoError(t, err)
	return s
}

func TestManagerNotConnected(t *testing.T) {
	var mgr db.SchemaManager = ioschema.NewManager(iodb.NewSQLiteOperator())
	err := mgr.Create(context.Background(), &schema.Schema{})
	assert.Equal(t, errcode.DBNotConnectedError, errcode.Code(err))
}

func TestCreateSQLite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that uses file system in short mode")
	}
	ctx := context.Background()
	s := wordlistSchema(t)

	cfg := config.New()
	cfg.Database.Path = filepath.Join(t.TempDir(), "cldf.sqlite")
	op := iodb.NewOperator(&cfg.Database)
	require.NoError(t, op.Connect(ctx, &cfg.Database))
	defer op.Close()

	mgr := ioschema.NewManager(op)
	require.NoError(t, mgr.Create(ctx, s))

	names := []string{"cldf_datasets", schema.SourceTableName}
	for _, tbl := range s.Tables {
		names = append(names, tbl.Name)
	}
	for _, name := range names {
		exists, err := op.TableExists(ctx, name)
		require.NoError(t, err)
		assert.True(t, exists, name)
	}

	err := mgr.Create(ctx, s)
	assert.Equal(t, errcode.DBSchemaCreateError, errcode.Code(err),
		"tables exist already")
}

// Integration test that requires PostgreSQL, configured by
// GNCLDF_DATABASE_* environment variables.
func TestCreatePostgres(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	dbCfg := iotesting.GetTestDatabaseConfig(t)
	if dbCfg == nil {
		t.Skip("PostgreSQL is not configured")
	}
	ctx := context.Background()
	s := wordlistSchema(t)

	op := iodb.NewOperator(dbCfg)
	if err := op.Connect(ctx, dbCfg); err != nil {
		t.Skipf("PostgreSQL not available: %v", err)
	}
	defer op.Close()
	require.NoError(t, op.DropAllTables(ctx))
	defer func() { _ = op.DropAllTables(ctx) }()

	require.NoError(t, ioschema.NewManager(op).Create(ctx, s))
	for _, name := range []string{"cldf_datasets", "FormTable", "FormTable_SourceTable"} {
		exists, err := op.TableExists(ctx, name)
		require.NoError(t, err)
		assert.True(t, exists, name)
	}
}
