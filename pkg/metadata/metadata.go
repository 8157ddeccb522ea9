// Package metadata is the in-memory model of a CLDF dataset description:
// a CSVW table group with its tables, columns, foreign keys, datatypes and
// CSV dialects.
//
// The model is built from an already decoded JSON document
// (FromDocument) or from a listing of table files found in a directory
// (FromListing). Document() converts it back, so that reading a written
// document reproduces an equivalent model.
//
// All mutators keep the model consistent: primary key columns exist, foreign
// key columns exist on both sides, column names are unique within a table
// and table URLs are unique within the group. A mutation that would break
// this fails with errcode.SchemaError and leaves the model unchanged.
//
// The package does no I/O.
package metadata

import (
	"slices"
	"strings"

	"github.com/gnames/gncldf/pkg/terms"
)

// Annotation keys of the CSVW document that the model reads directly.
const (
	KeyConformsTo  = "dc:conformsTo"
	KeySource      = "dc:source"
	KeyTitle       = "dc:title"
	KeyDescription = "dc:description"
)

// TableGroup is the top level object of a metadata document.
type TableGroup struct {
	// Context is the "@context" value, kept as decoded.
	Context any
	// ConformsTo is the module URI, for example
	// "http://cldf.clld.org/v1.0/terms.rdf#Wordlist".
	ConformsTo string
	// Dialect applies to tables that do not declare their own.
	Dialect *Dialect
	Tables  []*Table
	// Extra keeps annotations the model does not interpret (dc:title,
	// dc:source, prov:*, rdf:ID and so on).
	Extra map[string]any
}

// Table describes one CSV file.
type Table struct {
	// URL locates the CSV file relative to the metadata document.
	URL string
	// ConformsTo is the component URI bound to the table, or empty for a
	// custom table.
	ConformsTo  string
	Description string
	Columns     []*Column
	PrimaryKey  []string
	ForeignKeys []ForeignKey
	// AboutURL is the table schema level URI template.
	AboutURL string
	Dialect  *Dialect
	Extra    map[string]any
	// SchemaExtra keeps tableSchema annotations the model does not
	// interpret.
	SchemaExtra map[string]any
}

// Column describes a CSV column.
type Column struct {
	Name        string
	PropertyURL string
	Datatype    Datatype
	// Separator is set for multi-valued columns.
	Separator string
	// Null lists cell values that mean "no value". Nil means the CSVW
	// default, the empty string.
	Null     []string
	Required bool
	Default  string
	ValueURL string
	AboutURL string
	Extra    map[string]any
}

// IsMultiValued is true if cells of the column are lists.
func (c *Column) IsMultiValued() bool {
	return c.Separator != ""
}

// IsNull is true if a raw cell value stands for a missing value.
func (c *Column) IsNull(cell string) bool {
	if c.Null == nil {
		return cell == ""
	}
	return slices.Contains(c.Null, cell)
}

// Clone returns a deep copy of the column.
func (c *Column) Clone() *Column {
	res := *c
	res.Null = slices.Clone(c.Null)
	res.Datatype = c.Datatype.clone()
	res.Extra = cloneMap(c.Extra)
	return &res
}

// Datatype is a CSVW datatype with the constraints the validation engine
// understands.
type Datatype struct {
	Base      string
	Format    string
	Minimum   *float64
	Maximum   *float64
	MinLength *int
	MaxLength *int
	// Extra keeps datatype keys not listed above.
	Extra map[string]any
}

// IsZero is true when no datatype was declared.
func (d Datatype) IsZero() bool {
	return d.Base == "" && d.Format == "" && d.Minimum == nil &&
		d.Maximum == nil && d.MinLength == nil && d.MaxLength == nil &&
		len(d.Extra) == 0
}

// BaseOrDefault returns the base type, "string" if none was declared.
func (d Datatype) BaseOrDefault() string {
	if d.Base == "" {
		return "string"
	}
	return d.Base
}

func (d Datatype) clone() Datatype {
	res := d
	if d.Minimum != nil {
		v := *d.Minimum
		res.Minimum = &v
	}
	if d.Maximum != nil {
		v := *d.Maximum
		res.Maximum = &v
	}
	if d.MinLength != nil {
		v := *d.MinLength
		res.MinLength = &v
	}
	if d.MaxLength != nil {
		v := *d.MaxLength
		res.MaxLength = &v
	}
	res.Extra = cloneMap(d.Extra)
	return res
}

// DatatypeFromTerm converts the ontology default of a property.
func DatatypeFromTerm(d terms.Datatype) Datatype {
	res := Datatype{Base: d.Base, Format: d.Format}
	if d.Minimum != nil {
		v := *d.Minimum
		res.Minimum = &v
	}
	if d.Maximum != nil {
		v := *d.Maximum
		res.Maximum = &v
	}
	if res.Base == "string" && res.Format == "" {
		res.Base = ""
	}
	return res
}

// ForeignKey links local columns to the primary key of another table.
type ForeignKey struct {
	ColumnReference []string
	// Resource is the URL of the referenced table.
	Resource string
	// ReferenceColumns are the referenced columns.
	ReferenceColumns []string
}

func (fk ForeignKey) clone() ForeignKey {
	return ForeignKey{
		ColumnReference:  slices.Clone(fk.ColumnReference),
		Resource:         fk.Resource,
		ReferenceColumns: slices.Clone(fk.ReferenceColumns),
	}
}

// Dialect describes how a CSV file is written. Unset fields take CSVW
// defaults, see Effective.
type Dialect struct {
	Delimiter     string
	Encoding      string
	QuoteChar     string
	CommentPrefix string
	Header        *bool
	DoubleQuote   *bool
	SkipBlankRows *bool
	Trim          *bool
}

// Effective returns a dialect with all defaults filled in.
func (d *Dialect) Effective() Dialect {
	t, f := true, false
	res := Dialect{
		Delimiter:     ",",
		Encoding:      "utf-8",
		QuoteChar:     `"`,
		Header:        &t,
		DoubleQuote:   &t,
		SkipBlankRows: &f,
		Trim:          &f,
	}
	if d == nil {
		return res
	}
	if d.Delimiter != "" {
		res.Delimiter = d.Delimiter
	}
	if d.Encoding != "" {
		res.Encoding = d.Encoding
	}
	if d.QuoteChar != "" {
		res.QuoteChar = d.QuoteChar
	}
	res.CommentPrefix = d.CommentPrefix
	if d.Header != nil {
		res.Header = d.Header
	}
	if d.DoubleQuote != nil {
		res.DoubleQuote = d.DoubleQuote
	}
	if d.SkipBlankRows != nil {
		res.SkipBlankRows = d.SkipBlankRows
	}
	if d.Trim != nil {
		res.Trim = d.Trim
	}
	return res
}

// New returns an empty table group conforming to a module URI.
func New(module string) *TableGroup {
	return &TableGroup{
		Context:    "http://www.w3.org/ns/csvw",
		ConformsTo: module,
		Extra:      make(map[string]any),
	}
}

// Source returns the bibliography file name (dc:source).
func (tg *TableGroup) Source() string {
	s, _ := tg.Extra[KeySource].(string)
	return s
}

// SetSource sets the bibliography file name.
func (tg *TableGroup) SetSource(fname string) {
	if tg.Extra == nil {
		tg.Extra = make(map[string]any)
	}
	tg.Extra[KeySource] = fname
}

// Title returns dc:title of the dataset.
func (tg *TableGroup) Title() string {
	s, _ := tg.Extra[KeyTitle].(string)
	return s
}

// Table finds a table by URL.
func (tg *TableGroup) Table(url string) *Table {
	for _, t := range tg.Tables {
		if t.URL == url {
			return t
		}
	}
	return nil
}

// DialectFor returns the effective dialect of a table.
func (tg *TableGroup) DialectFor(t *Table) Dialect {
	if t.Dialect != nil {
		return t.Dialect.Effective()
	}
	return tg.Dialect.Effective()
}

// Clone returns a deep copy of the table group.
func (tg *TableGroup) Clone() *TableGroup {
	res := &TableGroup{
		Context:    tg.Context,
		ConformsTo: tg.ConformsTo,
		Extra:      cloneMap(tg.Extra),
	}
	if tg.Dialect != nil {
		d := *tg.Dialect
		res.Dialect = &d
	}
	for _, t := range tg.Tables {
		res.Tables = append(res.Tables, t.Clone())
	}
	return res
}

// Column finds a column by name.
func (t *Table) Column(name string) *Column {
	for _, c := range t.Columns {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// ColumnByProperty finds a column bound to a property URI.
func (t *Table) ColumnByProperty(uri string) *Column {
	for _, c := range t.Columns {
		if c.PropertyURL == uri {
			return c
		}
	}
	return nil
}

// ColumnIndex returns the position of a column or -1.
func (t *Table) ColumnIndex(name string) int {
	return slices.IndexFunc(t.Columns, func(c *Column) bool {
		return c.Name == name
	})
}

// ColumnNames returns column names in order.
func (t *Table) ColumnNames() []string {
	res := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		res[i] = c.Name
	}
	return res
}

// Name is the URL without a CSV extension.
func (t *Table) Name() string {
	return strings.TrimSuffix(t.URL, ".csv")
}

// Clone returns a deep copy of the table.
func (t *Table) Clone() *Table {
	res := *t
	res.Columns = make([]*Column, len(t.Columns))
	for i, c := range t.Columns {
		res.Columns[i] = c.Clone()
	}
	res.PrimaryKey = slices.Clone(t.PrimaryKey)
	res.ForeignKeys = make([]ForeignKey, len(t.ForeignKeys))
	for i, fk := range t.ForeignKeys {
		res.ForeignKeys[i] = fk.clone()
	}
	if t.Dialect != nil {
		d := *t.Dialect
		res.Dialect = &d
	}
	res.Extra = cloneMap(t.Extra)
	res.SchemaExtra = cloneMap(t.SchemaExtra)
	return &res
}

// Component returns the component bound to the table: the explicit
// dc:conformsTo annotation if any, otherwise a match of the file name.
// The second value tells whether the binding came from the annotation.
func (t *Table) Component(reg *terms.Registry) (term terms.Term, explicit bool, ok bool) {
	if t.ConformsTo != "" {
		term, ok = reg.Component(t.ConformsTo)
		return term, true, ok
	}
	term, ok = reg.ComponentByFilename(t.URL)
	return term, false, ok
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	res := make(map[string]any, len(m))
	for k, v := range m {
		res[k] = v
	}
	return res
}
