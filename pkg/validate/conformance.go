package validate

import (
	"fmt"
)

// checkConformance reports schema level problems: components required by
// the module, properties required by components, terms of the ontology
// namespace that the ontology does not define, and resolution warnings.
func (e *Engine) checkConformance() {
	reg := e.res.Registry
	add := func(s Severity, table, column, msg string) {
		e.report.Add(Diagnostic{
			Severity: s, Check: ConformanceCheck,
			Table: table, Column: column, Message: msg,
		})
	}

	for _, w := range e.res.Warnings {
		add(Warning, w.Table, w.Column, w.Message)
	}

	tg := e.res.Group
	if tg.ConformsTo != "" && reg.InNamespace(tg.ConformsTo) {
		if _, ok := reg.Module(tg.ConformsTo); !ok {
			add(Error, "", "", fmt.Sprintf("unknown module %s", tg.ConformsTo))
		}
	}

	for _, c := range e.res.Module.Requires {
		if _, ok := e.res.ComponentTable(c); !ok {
			add(Error, "", "",
				fmt.Sprintf("%s requires a %s", e.res.Module.Name, c))
		}
	}

	for _, ti := range e.res.Tables() {
		t := ti.Table
		if t.ConformsTo != "" && reg.InNamespace(t.ConformsTo) {
			if _, ok := reg.Component(t.ConformsTo); !ok {
				add(Error, t.URL, "", fmt.Sprintf("unknown component %s", t.ConformsTo))
			}
		}
		for _, c := range t.Columns {
			if c.PropertyURL == "" || !reg.InNamespace(c.PropertyURL) {
				continue
			}
			if _, ok := reg.Property(c.PropertyURL); !ok {
				add(Error, t.URL, c.Name, fmt.Sprintf("unknown property %s", c.PropertyURL))
			}
		}
		if ti.Component == nil {
			continue
		}
		for _, uri := range reg.RequiredProperties(ti.Component.Name) {
			if ti.ColumnFor(uri) == nil {
				p, _ := reg.Property(uri)
				add(Error, t.URL, "",
					fmt.Sprintf("%s requires a column for %s", ti.Component.Name, p.Name))
			}
		}
	}
}
