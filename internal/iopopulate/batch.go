package iopopulate

import (
	"context"
	"database/sql"

	"github.com/gnames/gncldf/pkg/schema"
)

// batch collects rows of one table and sends them as multi-row INSERT
// statements.
type batch struct {
	tx      *sql.Tx
	table   *schema.Table
	dialect schema.Dialect
	size    int
	rows    [][]any
}

func (p *populator) newBatch(tx *sql.Tx, t *schema.Table) *batch {
	return &batch{
		tx:      tx,
		table:   t,
		dialect: p.operator.Dialect(),
		size:    batchSize(p.cfg.Database.BatchSize, len(t.Columns)),
	}
}

// batchSize limits the configured size by the number of bind parameters
// a statement can carry.
func batchSize(configured, columns int) int {
	res := configured
	if columns > 0 && res*columns > maxParams {
		res = maxParams / columns
	}
	return max(res, 1)
}

func (b *batch) add(ctx context.Context, row []any) error {
	b.rows = append(b.rows, row)
	if len(b.rows) >= b.size {
		return b.flush(ctx)
	}
	return nil
}

func (b *batch) flush(ctx context.Context) error {
	if len(b.rows) == 0 {
		return nil
	}
	args := make([]any, 0, len(b.rows)*len(b.table.Columns))
	for _, r := range b.rows {
		args = append(args, r...)
	}
	q := b.table.InsertSQL(b.dialect, len(b.rows))
	if _, err := b.tx.ExecContext(ctx, q, args...); err != nil {
		return PopulateError(b.table.Name, err)
	}
	b.rows = b.rows[:0]
	return nil
}
