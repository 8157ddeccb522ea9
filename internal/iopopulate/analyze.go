package iopopulate

import (
	"context"
	"log/slog"
	"time"

	"github.com/gnames/gncldf/pkg/schema"
	"github.com/gnames/gnfmt"
)

// analyze updates query planner statistics after an import. PostgreSQL
// also reclaims space. It cannot run inside a transaction.
func (p *populator) analyze(ctx context.Context) error {
	q := "ANALYZE"
	if p.operator.Dialect() == schema.Postgres {
		q = "VACUUM ANALYZE"
	}
	slog.Info("Updating database statistics", "statement", q)
	timeStart := time.Now()

	if _, err := p.operator.DB().ExecContext(ctx, q); err != nil {
		return err
	}

	slog.Info("Database statistics updated",
		"duration", gnfmt.TimeString(time.Since(timeStart).Seconds()))
	return nil
}
