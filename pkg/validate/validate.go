// Package validate is the row validation engine. It streams rows of every
// table and checks them in order: row width, datatypes, required values,
// primary key uniqueness, foreign keys and property specific rules.
//
// In strict mode the first failing row aborts the stream with an
// errcode.RowValidationError carrying a RowError. In report mode failures
// become diagnostics and the stream goes on; invalid rows are either
// passed through with raw cells retained or skipped.
//
// Key indexes are built in the same pass that validates a table and are
// kept for the life of the Engine. A table referenced before it was
// validated gets its index from a scan of the key columns only.
package validate

import (
	"errors"
	"io"
	"iter"
	"slices"
	"strconv"
	"strings"

	"github.com/gnames/gncldf/pkg/metadata"
	"github.com/gnames/gncldf/pkg/resolver"
	"github.com/gnames/gncldf/pkg/sources"
	"github.com/gnames/gncldf/pkg/terms"
)

// RowReader gives raw rows of one table.
type RowReader interface {
	// Header returns the column names of the file, nil if the file has no
	// header row.
	Header() []string
	// Next returns the cells of the next row or io.EOF.
	Next() ([]string, error)
	Close() error
}

// Opener opens table files for reading.
type Opener interface {
	Open(t *metadata.Table, d metadata.Dialect) (RowReader, error)
}

// State of a table read.
type State int

const (
	Start State = iota
	Streaming
	Done
	Aborted
)

func (s State) String() string {
	return [...]string{"start", "streaming", "done", "aborted"}[s]
}

// Row is a validated row.
type Row struct {
	Table string
	// Number is 1-based, the header excluded.
	Number  int
	Columns []string
	// Values are coerced cells: nil for null, []any for multi-valued
	// columns. Cells that failed coercion keep their raw string.
	Values []any
	Raw    []string
	// Valid is false if the row produced an error diagnostic.
	Valid bool
}

// Get returns the value of a column.
func (r *Row) Get(column string) (any, bool) {
	i := slices.Index(r.Columns, column)
	if i == -1 {
		return nil, false
	}
	return r.Values[i], true
}

// RawValue returns the raw cell of a column.
func (r *Row) RawValue(column string) string {
	i := slices.Index(r.Columns, column)
	if i == -1 || i >= len(r.Raw) {
		return ""
	}
	return r.Raw[i]
}

// Map returns the row as a map.
func (r *Row) Map() map[string]any {
	res := make(map[string]any, len(r.Columns))
	for i, c := range r.Columns {
		res[c] = r.Values[i]
	}
	return res
}

// KeyIndex is the set of key values of a table.
type KeyIndex struct {
	keys map[string]struct{}
}

// Has is true if the key exists.
func (k *KeyIndex) Has(parts ...string) bool {
	_, ok := k.keys[joinKey(parts)]
	return ok
}

// Len returns the number of keys.
func (k *KeyIndex) Len() int {
	return len(k.keys)
}

func joinKey(parts []string) string {
	return strings.Join(parts, "\x1f")
}

// Indexes holds key indexes by table and key columns. Engines of one
// dataset share it, so every index is built by a single scan and kept
// until it is dropped.
type Indexes struct {
	keys map[string]*KeyIndex
}

// NewIndexes creates an empty index cache.
func NewIndexes() *Indexes {
	return &Indexes{keys: make(map[string]*KeyIndex)}
}

// Drop removes indexes of a table given by URL, or all indexes if url is
// empty.
func (x *Indexes) Drop(url string) {
	if url == "" {
		clear(x.keys)
		return
	}
	prefix := url + "\x00"
	for k := range x.keys {
		if strings.HasPrefix(k, prefix) {
			delete(x.keys, k)
		}
	}
}

// Len returns the number of cached indexes.
func (x *Indexes) Len() int {
	return len(x.keys)
}

// Option configures an Engine.
type Option func(*Engine)

// OptStrict aborts on the first invalid row.
func OptStrict(b bool) Option {
	return func(e *Engine) {
		e.strict = b
	}
}

// OptSkipInvalidRows drops invalid rows from the stream in report mode.
func OptSkipInvalidRows(b bool) Option {
	return func(e *Engine) {
		e.skipInvalid = b
	}
}

// OptIndexes makes the engine use and fill a shared index cache.
func OptIndexes(x *Indexes) Option {
	return func(e *Engine) {
		if x != nil {
			e.keys = x
		}
	}
}

// OptExpander resolves source references against a bibliography.
func OptExpander(exp *sources.Expander) Option {
	return func(e *Engine) {
		e.exp = exp
	}
}

// Engine validates tables of one resolved dataset.
type Engine struct {
	res         *resolver.Resolved
	open        Opener
	exp         *sources.Expander
	strict      bool
	skipInvalid bool

	report Report
	keys   *Indexes
	states map[string]State
	counts map[string]int
}

// New creates an Engine.
func New(res *resolver.Resolved, open Opener, opts ...Option) *Engine {
	e := &Engine{
		res:    res,
		open:   open,
		keys:   NewIndexes(),
		states: make(map[string]State),
		counts: make(map[string]int),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Report returns diagnostics collected so far.
func (e *Engine) Report() *Report {
	return &e.report
}

// State returns the read state of a table.
func (e *Engine) State(url string) State {
	return e.states[url]
}

// RowCount returns the number of rows of a table read to the end.
func (e *Engine) RowCount(url string) (int, bool) {
	n, ok := e.counts[url]
	return n, ok
}

// Validate checks conformance of the schema, then validates all tables,
// referenced tables first. In strict mode the first row failure is
// returned as an error. Diagnostics are in the returned report in both
// modes.
func (e *Engine) Validate() (*Report, error) {
	e.checkConformance()
	for _, ti := range e.res.Ordered() {
		if e.states[ti.URL()] == Done {
			continue
		}
		for _, err := range e.Rows(ti.URL()) {
			if err != nil {
				return &e.report, err
			}
		}
	}
	return &e.report, nil
}

type tableCheck struct {
	ti       *resolver.TableInfo
	cols     []string
	coercers []*coercer
	pk       []int
	props    []terms.Term
	bound    []bool
	words    int
	glosses  int
}

func (e *Engine) prepare(ti *resolver.TableInfo) (*tableCheck, error) {
	t := ti.Table
	tc := &tableCheck{
		ti:      ti,
		cols:    t.ColumnNames(),
		props:   make([]terms.Term, len(t.Columns)),
		bound:   make([]bool, len(t.Columns)),
		words:   -1,
		glosses: -1,
	}
	for i, c := range t.Columns {
		co, err := newCoercer(c)
		if err != nil {
			return nil, metadata.SchemaError(
				"Invalid datatype of <em>%s.%s</em>: %s", t.URL, c.Name, err.Error(),
			)
		}
		tc.coercers = append(tc.coercers, co)
		if p, ok := ti.Property(c.Name); ok {
			tc.props[i], tc.bound[i] = p, true
			switch p.Name {
			case "analyzedWord":
				tc.words = i
			case "gloss":
				tc.glosses = i
			}
		}
	}
	for _, name := range t.PrimaryKey {
		tc.pk = append(tc.pk, t.ColumnIndex(name))
	}
	return tc, nil
}

type pendingRef struct {
	row    int
	column string
	key    string
}

// Rows streams validated rows of a table given by a component name or a
// URL. Only read errors and strict mode failures are yielded as errors.
func (e *Engine) Rows(table string) iter.Seq2[*Row, error] {
	return func(yield func(*Row, error) bool) {
		ti, err := e.res.Table(table)
		if err != nil {
			yield(nil, err)
			return
		}
		url := ti.URL()
		tc, err := e.prepare(ti)
		if err != nil {
			yield(nil, err)
			return
		}

		e.states[url] = Streaming
		rr, err := e.open.Open(ti.Table, e.res.Group.DialectFor(ti.Table))
		if err != nil {
			e.states[url] = Aborted
			yield(nil, RowReadError(url, err))
			return
		}
		defer rr.Close()

		abort := func(d Diagnostic) {
			e.states[url] = Aborted
			yield(nil, RowValidationError(&RowError{
				Table: d.Table, Component: d.Component, Row: d.Row,
				Column: d.Column, Reason: d.Message, Check: d.Check,
			}))
		}

		if d, ok := checkHeader(url, tc.cols, rr.Header()); !ok {
			d.Component = ti.ComponentName()
			if e.strict {
				abort(d)
				return
			}
			e.report.Add(d)
		}

		seen := make(map[string]struct{})
		var pending []pendingRef
		var n int
		for {
			cells, err := rr.Next()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				e.states[url] = Aborted
				yield(nil, RowReadError(url, err))
				return
			}
			n++
			row, diags, refs, err := e.checkRow(tc, n, cells, seen)
			if err != nil {
				e.states[url] = Aborted
				yield(nil, err)
				return
			}
			pending = append(pending, refs...)
			for _, d := range diags {
				if e.strict && d.Severity == Error {
					abort(d)
					return
				}
				e.report.Add(d)
			}
			if !row.Valid && e.skipInvalid {
				continue
			}
			if !yield(row, nil) {
				e.states[url] = Start
				return
			}
		}

		for _, p := range pending {
			if _, ok := seen[p.key]; ok {
				continue
			}
			d := Diagnostic{
				Severity: Error, Check: ForeignKeyCheck,
				Table: url, Component: ti.ComponentName(),
				Row: p.row, Column: p.column,
				Message: "key " + strconv.Quote(p.key) + " not found in " + url,
			}
			if e.strict {
				abort(d)
				return
			}
			e.report.Add(d)
		}

		if len(tc.pk) > 0 {
			e.keys.keys[indexName(url, ti.Table.PrimaryKey)] = &KeyIndex{keys: seen}
		}
		e.counts[url] = n
		e.states[url] = Done
	}
}

func checkHeader(url string, cols, header []string) (Diagnostic, bool) {
	if header == nil || slices.Equal(cols, header) {
		return Diagnostic{}, true
	}
	return Diagnostic{
		Severity: Error, Check: StructureCheck, Table: url,
		Message: "header " + strings.Join(header, ",") +
			" does not match columns " + strings.Join(cols, ","),
	}, false
}

func (e *Engine) checkRow(
	tc *tableCheck,
	num int,
	cells []string,
	seen map[string]struct{},
) (*Row, []Diagnostic, []pendingRef, error) {
	url := tc.ti.URL()
	t := tc.ti.Table
	var diags []Diagnostic
	add := func(col string) func(Severity, Check, string) {
		return func(s Severity, c Check, msg string) {
			diags = append(diags, Diagnostic{
				Severity: s, Check: c, Table: url, Component: tc.ti.ComponentName(),
				Row: num, Column: col, Message: msg,
			})
		}
	}

	if len(cells) != len(tc.cols) {
		add("")(Error, StructureCheck,
			"expected "+strconv.Itoa(len(tc.cols))+" cells, got "+strconv.Itoa(len(cells)))
		fixed := make([]string, len(tc.cols))
		copy(fixed, cells)
		cells = fixed
	}

	row := &Row{
		Table:   url,
		Number:  num,
		Columns: tc.cols,
		Values:  make([]any, len(tc.cols)),
		Raw:     cells,
	}

	bad := make([]bool, len(tc.cols))
	for i, co := range tc.coercers {
		v, err := co.cell(cells[i])
		row.Values[i] = v
		if err != nil {
			bad[i] = true
			add(tc.cols[i])(Error, DatatypeCheck, err.Error())
		}
	}

	for i, c := range t.Columns {
		if row.Values[i] != nil {
			continue
		}
		if c.Required {
			add(c.Name)(Error, RequiredCheck, "required value is missing")
		} else if slices.Contains(tc.pk, i) {
			add(c.Name)(Error, RequiredCheck, "primary key value is missing")
		}
	}

	if len(tc.pk) > 0 {
		parts := make([]string, 0, len(tc.pk))
		for _, i := range tc.pk {
			if row.Values[i] == nil {
				parts = nil
				break
			}
			parts = append(parts, strings.TrimSpace(cells[i]))
		}
		if parts != nil {
			key := joinKey(parts)
			if _, dup := seen[key]; dup {
				add(strings.Join(t.PrimaryKey, ","))(Error, PrimaryKeyCheck,
					"duplicate primary key "+strconv.Quote(strings.Join(parts, ",")))
			} else {
				seen[key] = struct{}{}
			}
		}
	}

	var pending []pendingRef
	for _, fk := range tc.ti.ForeignKeys {
		refs, err := e.checkForeignKey(fk, row, add)
		if err != nil {
			return nil, nil, nil, err
		}
		pending = append(pending, refs...)
	}

	for i, v := range row.Values {
		if v == nil || bad[i] || !tc.bound[i] {
			continue
		}
		p := tc.props[i]
		if p.Name == "source" {
			if err := e.checkSources(v, add(tc.cols[i])); err != nil {
				return nil, nil, nil, err
			}
			continue
		}
		if chk, ok := propertyChecks[p.Name]; ok {
			if err := chk(v); err != nil {
				add(tc.cols[i])(Error, SemanticCheck, err.Error())
			}
		}
	}
	if tc.words >= 0 && tc.glosses >= 0 {
		if err := checkIGT(row.Values[tc.words], row.Values[tc.glosses]); err != nil {
			add(tc.cols[tc.glosses])(Warning, SemanticCheck, err.Error())
		}
	}

	row.Valid = !slices.ContainsFunc(diags, func(d Diagnostic) bool {
		return d.Severity == Error
	})
	return row, diags, pending, nil
}

func (e *Engine) checkForeignKey(
	fk *resolver.ForeignKeyRef,
	row *Row,
	add func(string) func(Severity, Check, string),
) ([]pendingRef, error) {
	t := fk.Source
	idx := make([]int, len(fk.SourceColumns))
	for i, name := range fk.SourceColumns {
		idx[i] = t.ColumnIndex(name)
		if row.Values[idx[i]] == nil {
			return nil, nil
		}
	}

	var keys []string
	if len(idx) == 1 {
		raw := row.Raw[idx[0]]
		if fk.ListValued {
			keys = splitList(raw, t.Columns[idx[0]].Separator)
		} else {
			keys = []string{strings.TrimSpace(raw)}
		}
	} else {
		parts := make([]string, len(idx))
		for i, j := range idx {
			parts[i] = strings.TrimSpace(row.Raw[j])
		}
		keys = []string{joinKey(parts)}
	}

	col := strings.Join(fk.SourceColumns, ",")
	if fk.Target == fk.Source && slices.Equal(fk.TargetColumns, t.PrimaryKey) {
		res := make([]pendingRef, len(keys))
		for i, k := range keys {
			res[i] = pendingRef{row: row.Number, column: col, key: k}
		}
		return res, nil
	}

	ki, err := e.KeyIndex(fk.Target.URL, fk.TargetColumns)
	if err != nil {
		return nil, err
	}
	for _, k := range keys {
		if _, ok := ki.keys[k]; !ok {
			add(col)(Error, ForeignKeyCheck,
				"key "+strconv.Quote(k)+" not found in "+fk.Target.URL)
		}
	}
	return nil, nil
}

func indexName(url string, cols []string) string {
	return url + "\x00" + strings.Join(cols, "\x00")
}

// KeyIndex returns the index of key columns of a table, building it with
// a scan of the table on first use.
func (e *Engine) KeyIndex(url string, cols []string) (*KeyIndex, error) {
	name := indexName(url, cols)
	if ki, ok := e.keys.keys[name]; ok {
		return ki, nil
	}
	t := e.res.Group.Table(url)
	if t == nil {
		return nil, metadata.LookupError(url)
	}
	idx := make([]int, len(cols))
	for i, c := range cols {
		idx[i] = t.ColumnIndex(c)
		if idx[i] == -1 {
			return nil, metadata.LookupError(url + ":" + c)
		}
	}

	rr, err := e.open.Open(t, e.res.Group.DialectFor(t))
	if err != nil {
		return nil, RowReadError(url, err)
	}
	defer rr.Close()

	ki := &KeyIndex{keys: make(map[string]struct{})}
	parts := make([]string, len(idx))
	for {
		cells, err := rr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, RowReadError(url, err)
		}
		ok := true
		for i, j := range idx {
			if j >= len(cells) || t.Columns[j].IsNull(cells[j]) {
				ok = false
				break
			}
			parts[i] = strings.TrimSpace(cells[j])
		}
		if ok {
			ki.keys[joinKey(parts)] = struct{}{}
		}
	}
	e.keys.keys[name] = ki
	return ki, nil
}

// Reset drops key indexes, states and diagnostics, for example after the
// data of the dataset changed. A shared index cache is cleared too.
func (e *Engine) Reset() {
	e.report = Report{}
	e.keys.Drop("")
	clear(e.states)
	clear(e.counts)
}
