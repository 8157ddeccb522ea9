package metadata

import (
	"fmt"
	"slices"
)

// FromDocument builds a TableGroup from a decoded metadata document.
func FromDocument(doc map[string]any) (*TableGroup, error) {
	tg := &TableGroup{Extra: make(map[string]any)}
	for k, v := range doc {
		switch k {
		case "@context":
			tg.Context = v
		case KeyConformsTo:
			s, err := asString(v, k)
			if err != nil {
				return nil, ShapeError("table group", err)
			}
			tg.ConformsTo = s
		case "dialect":
			d, err := decodeDialect(v)
			if err != nil {
				return nil, ShapeError("table group", err)
			}
			tg.Dialect = d
		case "tables":
			list, ok := v.([]any)
			if !ok {
				return nil, ShapeError("table group", fmt.Errorf("tables must be a list"))
			}
			for i, item := range list {
				m, ok := item.(map[string]any)
				if !ok {
					return nil, ShapeError(
						fmt.Sprintf("table %d", i+1), fmt.Errorf("table must be an object"),
					)
				}
				t, err := decodeTable(m)
				if err != nil {
					return nil, ShapeError(fmt.Sprintf("table %d", i+1), err)
				}
				tg.Tables = append(tg.Tables, t)
			}
		default:
			tg.Extra[k] = v
		}
	}

	if err := tg.Check(); err != nil {
		return nil, err
	}
	return tg, nil
}

func decodeTable(m map[string]any) (*Table, error) {
	t := &Table{}
	var err error
	for k, v := range m {
		switch k {
		case "url":
			t.URL, err = asString(v, k)
		case KeyConformsTo:
			t.ConformsTo, err = asString(v, k)
		case KeyDescription:
			if s, ok := v.(string); ok {
				t.Description = s
				continue
			}
			t.Extra = setExtra(t.Extra, k, v)
		case "dialect":
			t.Dialect, err = decodeDialect(v)
		case "tableSchema":
			sch, ok := v.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("tableSchema must be an object")
			}
			err = decodeSchema(t, sch)
		default:
			t.Extra = setExtra(t.Extra, k, v)
		}
		if err != nil {
			return nil, err
		}
	}
	if t.URL == "" {
		return nil, fmt.Errorf("table has no url")
	}
	return t, nil
}

func decodeSchema(t *Table, m map[string]any) error {
	var err error
	for k, v := range m {
		switch k {
		case "columns":
			list, ok := v.([]any)
			if !ok {
				return fmt.Errorf("columns must be a list")
			}
			for i, item := range list {
				cm, ok := item.(map[string]any)
				if !ok {
					return fmt.Errorf("column %d must be an object", i+1)
				}
				c, err := decodeColumn(cm)
				if err != nil {
					return fmt.Errorf("column %d: %w", i+1, err)
				}
				t.Columns = append(t.Columns, c)
			}
		case "primaryKey":
			t.PrimaryKey, err = asStrings(v, k)
		case "aboutUrl":
			t.AboutURL, err = asString(v, k)
		case "foreignKeys":
			list, ok := v.([]any)
			if !ok {
				return fmt.Errorf("foreignKeys must be a list")
			}
			for _, item := range list {
				fk, err := decodeForeignKey(item)
				if err != nil {
					return err
				}
				t.ForeignKeys = append(t.ForeignKeys, fk)
			}
		default:
			t.SchemaExtra = setExtra(t.SchemaExtra, k, v)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func decodeColumn(m map[string]any) (*Column, error) {
	c := &Column{}
	var err error
	for k, v := range m {
		switch k {
		case "name":
			c.Name, err = asString(v, k)
		case "propertyUrl":
			c.PropertyURL, err = asString(v, k)
		case "datatype":
			c.Datatype, err = decodeDatatype(v)
		case "separator":
			if v == nil {
				continue
			}
			c.Separator, err = asString(v, k)
		case "null":
			c.Null, err = asStrings(v, k)
		case "required":
			c.Required, err = asBool(v, k)
		case "default":
			c.Default, err = asString(v, k)
		case "valueUrl":
			c.ValueURL, err = asString(v, k)
		case "aboutUrl":
			c.AboutURL, err = asString(v, k)
		default:
			c.Extra = setExtra(c.Extra, k, v)
		}
		if err != nil {
			return nil, err
		}
	}
	if c.Name == "" {
		titles, _ := c.Extra["titles"]
		names, _ := asStrings(titles, "titles")
		if len(names) == 0 {
			return nil, fmt.Errorf("column has neither name nor titles")
		}
		c.Name = names[0]
	}
	return c, nil
}

func decodeDatatype(v any) (Datatype, error) {
	var res Datatype
	switch dt := v.(type) {
	case string:
		res.Base = dt
		return res, nil
	case map[string]any:
		var err error
		for k, val := range dt {
			switch k {
			case "base":
				res.Base, err = asString(val, k)
			case "format":
				res.Format, err = asString(val, k)
			case "minimum", "minInclusive":
				var f float64
				f, err = asFloat(val, k)
				res.Minimum = &f
			case "maximum", "maxInclusive":
				var f float64
				f, err = asFloat(val, k)
				res.Maximum = &f
			case "minLength":
				var f float64
				f, err = asFloat(val, k)
				n := int(f)
				res.MinLength = &n
			case "maxLength":
				var f float64
				f, err = asFloat(val, k)
				n := int(f)
				res.MaxLength = &n
			default:
				res.Extra = setExtra(res.Extra, k, val)
			}
			if err != nil {
				return res, err
			}
		}
		return res, nil
	default:
		return res, fmt.Errorf("datatype must be a string or an object")
	}
}

func decodeForeignKey(v any) (ForeignKey, error) {
	var fk ForeignKey
	m, ok := v.(map[string]any)
	if !ok {
		return fk, fmt.Errorf("foreign key must be an object")
	}
	var err error
	fk.ColumnReference, err = asStrings(m["columnReference"], "columnReference")
	if err != nil {
		return fk, err
	}
	ref, ok := m["reference"].(map[string]any)
	if !ok {
		return fk, fmt.Errorf("foreign key has no reference")
	}
	fk.Resource, err = asString(ref["resource"], "resource")
	if err != nil {
		return fk, err
	}
	fk.ReferenceColumns, err = asStrings(ref["columnReference"], "columnReference")
	if err != nil {
		return fk, err
	}
	if len(fk.ColumnReference) == 0 || fk.Resource == "" {
		return fk, fmt.Errorf("foreign key is incomplete")
	}
	return fk, nil
}

func decodeDialect(v any) (*Dialect, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("dialect must be an object")
	}
	d := &Dialect{}
	var err error
	boolPtr := func(val any, k string) *bool {
		var b bool
		b, err = asBool(val, k)
		return &b
	}
	for k, val := range m {
		switch k {
		case "delimiter":
			d.Delimiter, err = asString(val, k)
		case "encoding":
			d.Encoding, err = asString(val, k)
		case "quoteChar":
			d.QuoteChar, err = asString(val, k)
		case "commentPrefix":
			d.CommentPrefix, err = asString(val, k)
		case "header":
			d.Header = boolPtr(val, k)
		case "doubleQuote":
			d.DoubleQuote = boolPtr(val, k)
		case "skipBlankRows":
			d.SkipBlankRows = boolPtr(val, k)
		case "trim":
			d.Trim = boolPtr(val, k)
		}
		if err != nil {
			return nil, err
		}
	}
	return d, nil
}

// Document converts the table group to a metadata document ready for JSON
// encoding.
func (tg *TableGroup) Document() map[string]any {
	res := make(map[string]any, len(tg.Extra)+4)
	for k, v := range tg.Extra {
		res[k] = v
	}
	if tg.Context != nil {
		res["@context"] = tg.Context
	}
	if tg.ConformsTo != "" {
		res[KeyConformsTo] = tg.ConformsTo
	}
	if tg.Dialect != nil {
		res["dialect"] = encodeDialect(tg.Dialect)
	}
	tables := make([]any, 0, len(tg.Tables))
	for _, t := range tg.Tables {
		tables = append(tables, encodeTable(t))
	}
	res["tables"] = tables
	return res
}

func encodeTable(t *Table) map[string]any {
	res := make(map[string]any, len(t.Extra)+5)
	for k, v := range t.Extra {
		res[k] = v
	}
	res["url"] = t.URL
	if t.ConformsTo != "" {
		res[KeyConformsTo] = t.ConformsTo
	}
	if t.Description != "" {
		res[KeyDescription] = t.Description
	}
	if t.Dialect != nil {
		res["dialect"] = encodeDialect(t.Dialect)
	}

	sch := make(map[string]any, len(t.SchemaExtra)+4)
	for k, v := range t.SchemaExtra {
		sch[k] = v
	}
	cols := make([]any, 0, len(t.Columns))
	for _, c := range t.Columns {
		cols = append(cols, encodeColumn(c))
	}
	sch["columns"] = cols
	if len(t.PrimaryKey) > 0 {
		sch["primaryKey"] = toAny(t.PrimaryKey)
	}
	if t.AboutURL != "" {
		sch["aboutUrl"] = t.AboutURL
	}
	if len(t.ForeignKeys) > 0 {
		fks := make([]any, 0, len(t.ForeignKeys))
		for _, fk := range t.ForeignKeys {
			fks = append(fks, map[string]any{
				"columnReference": toAny(fk.ColumnReference),
				"reference": map[string]any{
					"resource":        fk.Resource,
					"columnReference": toAny(fk.ReferenceColumns),
				},
			})
		}
		sch["foreignKeys"] = fks
	}
	res["tableSchema"] = sch
	return res
}

func encodeColumn(c *Column) map[string]any {
	res := make(map[string]any, len(c.Extra)+6)
	for k, v := range c.Extra {
		res[k] = v
	}
	res["name"] = c.Name
	if c.PropertyURL != "" {
		res["propertyUrl"] = c.PropertyURL
	}
	if !c.Datatype.IsZero() {
		res["datatype"] = encodeDatatype(c.Datatype)
	}
	if c.Separator != "" {
		res["separator"] = c.Separator
	}
	if c.Null != nil {
		if len(c.Null) == 1 {
			res["null"] = c.Null[0]
		} else {
			res["null"] = toAny(c.Null)
		}
	}
	if c.Required {
		res["required"] = true
	}
	if c.Default != "" {
		res["default"] = c.Default
	}
	if c.ValueURL != "" {
		res["valueUrl"] = c.ValueURL
	}
	if c.AboutURL != "" {
		res["aboutUrl"] = c.AboutURL
	}
	return res
}

func encodeDatatype(d Datatype) any {
	if d.Format == "" && d.Minimum == nil && d.Maximum == nil &&
		d.MinLength == nil && d.MaxLength == nil && len(d.Extra) == 0 {
		return d.Base
	}
	res := make(map[string]any, len(d.Extra)+5)
	for k, v := range d.Extra {
		res[k] = v
	}
	res["base"] = d.BaseOrDefault()
	if d.Format != "" {
		res["format"] = d.Format
	}
	if d.Minimum != nil {
		res["minimum"] = *d.Minimum
	}
	if d.Maximum != nil {
		res["maximum"] = *d.Maximum
	}
	if d.MinLength != nil {
		res["minLength"] = *d.MinLength
	}
	if d.MaxLength != nil {
		res["maxLength"] = *d.MaxLength
	}
	return res
}

func encodeDialect(d *Dialect) map[string]any {
	res := make(map[string]any)
	if d.Delimiter != "" {
		res["delimiter"] = d.Delimiter
	}
	if d.Encoding != "" {
		res["encoding"] = d.Encoding
	}
	if d.QuoteChar != "" {
		res["quoteChar"] = d.QuoteChar
	}
	if d.CommentPrefix != "" {
		res["commentPrefix"] = d.CommentPrefix
	}
	if d.Header != nil {
		res["header"] = *d.Header
	}
	if d.DoubleQuote != nil {
		res["doubleQuote"] = *d.DoubleQuote
	}
	if d.SkipBlankRows != nil {
		res["skipBlankRows"] = *d.SkipBlankRows
	}
	if d.Trim != nil {
		res["trim"] = *d.Trim
	}
	return res
}

func asString(v any, key string) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%s must be a string, got %T", key, v)
	}
	return s, nil
}

func asStrings(v any, key string) ([]string, error) {
	switch vs := v.(type) {
	case string:
		return []string{vs}, nil
	case []string:
		return slices.Clone(vs), nil
	case []any:
		res := make([]string, 0, len(vs))
		for _, item := range vs {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%s must contain strings, got %T", key, item)
			}
			res = append(res, s)
		}
		return res, nil
	default:
		return nil, fmt.Errorf("%s must be a string or a list, got %T", key, v)
	}
}

func asBool(v any, key string) (bool, error) {
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("%s must be a boolean, got %T", key, v)
	}
	return b, nil
}

func asFloat(v any, key string) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("%s must be a number, got %T", key, v)
	}
}

func setExtra(m map[string]any, k string, v any) map[string]any {
	if m == nil {
		m = make(map[string]any)
	}
	m[k] = v
	return m
}

func toAny(ss []string) []any {
	res := make([]any, len(ss))
	for i, s := range ss {
		res[i] = s
	}
	return res
}
