// Package iopopulate implements Populator interface for importing
// validated CLDF rows into SQLite or PostgreSQL.
// This is an impure I/O package that reads CSV tables and performs
// bulk inserts.
package iopopulate

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/cheggaaa/pb/v3"
	"github.com/dustin/go-humanize"
	"github.com/gnames/gn"
	"github.com/gnames/gncldf/pkg/config"
	"github.com/gnames/gncldf/pkg/dataset"
	"github.com/gnames/gncldf/pkg/db"
	"github.com/gnames/gncldf/pkg/schema"
	"github.com/gnames/gnfmt"
)

// maxParams keeps multi-row statements below the bind parameter limits
// of SQLite and PostgreSQL.
const maxParams = 30_000

// populator implements the db.Populator interface.
type populator struct {
	cfg      *config.Config
	operator db.Operator
}

// NewPopulator creates a new Populator.
func NewPopulator(op db.Operator, cfg *config.Config) db.Populator {
	return &populator{cfg: cfg, operator: op}
}

// Populate imports the bibliography and all tables of the dataset in
// one transaction and records the import in cldf_datasets. Rows that
// did not pass validation are skipped. Planner statistics are updated
// afterwards.
func (p *populator) Populate(
	ctx context.Context,
	d *dataset.Dataset,
	s *schema.Schema,
) (err error) {
	sdb := p.operator.DB()
	if sdb == nil {
		return NotConnectedError()
	}
	startTime := time.Now()
	slog.Info("Starting database population", "location", d.Location())

	stats, err := d.Stats()
	if err != nil {
		return err
	}

	tx, err := sdb.BeginTx(ctx, nil)
	if err != nil {
		return PopulateError("", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	sourcesNum, err := p.populateSources(ctx, tx, d, s)
	if err != nil {
		return err
	}

	var recordsNum int
	for _, ts := range stats.Tables {
		var n int
		n, err = p.populateTable(ctx, tx, d, s, ts)
		if err != nil {
			return err
		}
		recordsNum += n
	}

	ds := schema.Dataset{
		ID:         d.Identifier(),
		Module:     stats.Module,
		Title:      d.Metadata().Title(),
		Location:   d.Location(),
		TablesNum:  len(stats.Tables),
		RecordsNum: recordsNum,
		SourcesNum: sourcesNum,
		ImportedAt: time.Now().UTC(),
	}
	if err = p.insertDataset(ctx, tx, ds); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return PopulateError("", err)
	}
	if aErr := p.analyze(ctx); aErr != nil {
		slog.Warn("Cannot update database statistics", "error", aErr)
	}

	duration := gnfmt.TimeString(time.Since(startTime).Seconds())
	slog.Info("Population complete",
		"records", humanize.Comma(int64(recordsNum)),
		"sources", humanize.Comma(int64(sourcesNum)),
		"duration", duration,
	)
	gn.Info(`Imported <em>%s</em> rows and <em>%s</em> sources
Elapsed time: <em>%s</em>`,
		humanize.Comma(int64(recordsNum)),
		humanize.Comma(int64(sourcesNum)),
		duration,
	)
	return nil
}

func (p *populator) populateSources(
	ctx context.Context,
	tx *sql.Tx,
	d *dataset.Dataset,
	s *schema.Schema,
) (int, error) {
	st, ok := s.Table(schema.SourceTableName)
	if !ok {
		return 0, nil
	}
	bib, err := d.Bibliography()
	if err != nil {
		return 0, err
	}
	if bib == nil || bib.Len() == 0 {
		return 0, nil
	}

	b := p.newBatch(tx, st)
	for _, k := range bib.Keys() {
		e, _ := bib.Entry(k)
		if err = b.add(ctx, st.SourceValues(e)); err != nil {
			return 0, err
		}
	}
	if err = b.flush(ctx); err != nil {
		return 0, err
	}
	slog.Info("Processed sources", "count", humanize.Comma(int64(bib.Len())))
	return bib.Len(), nil
}

// populateTable inserts valid rows of one CSV table and the
// association rows of its list-valued columns.
func (p *populator) populateTable(
	ctx context.Context,
	tx *sql.Tx,
	d *dataset.Dataset,
	s *schema.Schema,
	ts dataset.TableStats,
) (int, error) {
	t, ok := s.ForURL(ts.URL)
	if !ok {
		return 0, nil
	}
	rows := p.newBatch(tx, t)
	links := s.LinksFrom(t)
	assoc := make(map[*schema.Table]*batch)
	for _, l := range links {
		if _, ok := assoc[l.Table]; !ok {
			assoc[l.Table] = p.newBatch(tx, l.Table)
		}
	}

	bar := p.progressBar(ts.Rows, t.Name)
	defer bar.Finish()

	var count, skipped int
	for row, err := range d.Rows(ts.URL) {
		if err != nil {
			return 0, PopulateError(t.Name, err)
		}
		bar.Increment()
		if !row.Valid {
			skipped++
			continue
		}
		if err = rows.add(ctx, t.Values(row)); err != nil {
			return 0, err
		}
		for _, l := range links {
			for _, r := range l.Rows(row) {
				if err = assoc[l.Table].add(ctx, r); err != nil {
					return 0, err
				}
			}
		}
		count++
	}

	if err := rows.flush(ctx); err != nil {
		return 0, err
	}
	for _, b := range assoc {
		if err := b.flush(ctx); err != nil {
			return 0, err
		}
	}

	if skipped > 0 {
		slog.Warn("Skipped invalid rows",
			"table", t.Name, "count", humanize.Comma(int64(skipped)))
	}
	slog.Info("Processed table",
		"table", t.Name, "count", humanize.Comma(int64(count)))
	return count, nil
}

func (p *populator) insertDataset(
	ctx context.Context,
	tx *sql.Tx,
	ds schema.Dataset,
) error {
	q := `INSERT INTO cldf_datasets
  (id, module, title, location, tables_num, records_num, sources_num,
   imported_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	if p.operator.Dialect() == schema.Postgres {
		q = `INSERT INTO cldf_datasets
  (id, module, title, location, tables_num, records_num, sources_num,
   imported_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	}
	_, err := tx.ExecContext(ctx, q,
		ds.ID, ds.Module, ds.Title, ds.Location,
		ds.TablesNum, ds.RecordsNum, ds.SourcesNum, ds.ImportedAt,
	)
	if err != nil {
		return PopulateError(ds.TableName(), err)
	}
	return nil
}

func (p *populator) progressBar(total int, name string) *pb.ProgressBar {
	bar := pb.New(total)
	bar.Set("prefix", "Importing "+name+": ")
	bar.Set(pb.CleanOnFinish, true)
	return bar.Start()
}
