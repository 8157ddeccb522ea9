// Package terms provides the Term Registry: an immutable, versioned catalog
// of CLDF components (table roles), properties (column roles) and modules
// (dataset types).
//
// A Registry is loaded from an embedded ontology file for a given version
// and is never stored in package-level state. Callers load it once per
// dataset handle and thread it through the resolver and the validation
// engine.
//
// Lookups accept either a bare local name ("LanguageTable") or the fully
// qualified ontology URI. Matching is exact and case-sensitive.
package terms

import (
	"embed"
	"fmt"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed cldf-*.yaml
var ontologyFS embed.FS

// DefaultVersion is the ontology version used when a dataset does not
// declare one.
const DefaultVersion = "1.0"

// Kind tells whether a term names a table, a column or a dataset type.
type Kind int

const (
	UnknownKind Kind = iota
	ComponentKind
	PropertyKind
	ModuleKind
)

func (k Kind) String() string {
	switch k {
	case ComponentKind:
		return "component"
	case PropertyKind:
		return "property"
	case ModuleKind:
		return "module"
	default:
		return "unknown"
	}
}

// Datatype is the expected base datatype of a property with optional
// constraints.
type Datatype struct {
	Base    string   `yaml:"base"`
	Format  string   `yaml:"format,omitempty"`
	Minimum *float64 `yaml:"minimum,omitempty"`
	Maximum *float64 `yaml:"maximum,omitempty"`
}

// Term is a canonical identifier of a semantic concept.
type Term struct {
	// Name is the local name, e.g. "languageReference".
	Name string
	// URI is the full ontology URI.
	URI  string
	Kind Kind

	// Label is the singular object name of a component ("Language").
	Label string
	// Filename is the conventional CSV file name of a component.
	Filename string

	// Column is the default column header for a property.
	Column string
	// Datatype is the default datatype of a property ("string" if not set).
	Datatype Datatype
	// Separator is set for properties that are multi-valued by default.
	Separator string
	// Null lists cell values that stand for a missing value.
	Null []string
	// SingleValued properties must never be bound to a multi-valued column.
	SingleValued bool
	// References is the component name a reference property points to.
	References string
}

// IsReference is true for properties that point to another component.
func (t Term) IsReference() bool {
	return t.References != ""
}

// ColumnTemplate is a default column of a component.
type ColumnTemplate struct {
	Name        string
	PropertyURI string
	Datatype    Datatype
	Separator   string
	Null        []string
	Required    bool
}

// Module is a dataset type with its required components.
type Module struct {
	Name     string
	URI      string
	Primary  string
	Requires []string
}

// Registry is the immutable catalog of terms for one ontology version.
type Registry struct {
	version   string
	namespace string

	components []Term
	properties []Term
	modules    []Module

	byName    map[string]termRef
	byURI     map[string]termRef
	templates map[string][]ColumnTemplate
}

type termRef struct {
	kind Kind
	idx  int
}

type ontologyColumn struct {
	Property string `yaml:"property"`
	Required bool   `yaml:"required"`
}

type ontology struct {
	Version   string `yaml:"version"`
	Namespace string `yaml:"namespace"`
	Modules   []struct {
		Name     string   `yaml:"name"`
		Primary  string   `yaml:"primary"`
		Requires []string `yaml:"requires"`
	} `yaml:"modules"`
	Components []struct {
		Name     string           `yaml:"name"`
		Label    string           `yaml:"label"`
		Filename string           `yaml:"filename"`
		Columns  []ontologyColumn `yaml:"columns"`
	} `yaml:"components"`
	Properties []struct {
		Name         string    `yaml:"name"`
		Column       string    `yaml:"column"`
		Datatype     *Datatype `yaml:"datatype"`
		Separator    string    `yaml:"separator"`
		Null         []string  `yaml:"null"`
		SingleValued bool      `yaml:"single_valued"`
		References   string    `yaml:"references"`
	} `yaml:"properties"`
}

// Versions returns ontology versions available in the embedded catalog.
func Versions() []string {
	var res []string
	entries, _ := ontologyFS.ReadDir(".")
	for _, e := range entries {
		name := e.Name()
		v := strings.TrimSuffix(strings.TrimPrefix(name, "cldf-"), ".yaml")
		res = append(res, v)
	}
	slices.Sort(res)
	return res
}

// Load returns the Registry of an embedded ontology version. An empty
// version means DefaultVersion.
func Load(version string) (*Registry, error) {
	if version == "" {
		version = DefaultVersion
	}
	data, err := ontologyFS.ReadFile("cldf-" + version + ".yaml")
	if err != nil {
		return nil, UnknownVersionError(version, err)
	}
	return Parse(data)
}

// Parse builds a Registry from ontology YAML data.
func Parse(data []byte) (*Registry, error) {
	var o ontology
	if err := yaml.Unmarshal(data, &o); err != nil {
		return nil, LoadError(err)
	}
	if o.Namespace == "" {
		return nil, LoadError(fmt.Errorf("ontology namespace is empty"))
	}

	r := &Registry{
		version:   o.Version,
		namespace: o.Namespace,
		byName:    make(map[string]termRef),
		byURI:     make(map[string]termRef),
		templates: make(map[string][]ColumnTemplate),
	}

	props := make(map[string]Term)
	for _, p := range o.Properties {
		t := Term{
			Name:         p.Name,
			URI:          o.Namespace + p.Name,
			Kind:         PropertyKind,
			Column:       p.Column,
			Datatype:     Datatype{Base: "string"},
			Separator:    p.Separator,
			Null:         p.Null,
			SingleValued: p.SingleValued,
			References:   p.References,
		}
		if p.Datatype != nil {
			t.Datatype = *p.Datatype
		}
		if t.SingleValued && t.Separator != "" {
			return nil, LoadError(
				fmt.Errorf("property %s is single-valued but has a separator", p.Name),
			)
		}
		if err := r.register(t); err != nil {
			return nil, err
		}
		props[p.Name] = t
	}

	for _, c := range o.Components {
		t := Term{
			Name:     c.Name,
			URI:      o.Namespace + c.Name,
			Kind:     ComponentKind,
			Label:    c.Label,
			Filename: c.Filename,
		}
		if err := r.register(t); err != nil {
			return nil, err
		}
		cols := make([]ColumnTemplate, 0, len(c.Columns))
		for _, col := range c.Columns {
			p, ok := props[col.Property]
			if !ok {
				return nil, LoadError(
					fmt.Errorf("component %s uses unknown property %s", c.Name, col.Property),
				)
			}
			cols = append(cols, ColumnTemplate{
				Name:        p.Column,
				PropertyURI: p.URI,
				Datatype:    p.Datatype,
				Separator:   p.Separator,
				Null:        p.Null,
				Required:    col.Required,
			})
		}
		r.templates[c.Name] = cols
	}

	for _, p := range r.properties {
		if p.References == "" {
			continue
		}
		if _, ok := r.Component(p.References); !ok {
			return nil, LoadError(
				fmt.Errorf("property %s references unknown component %s", p.Name, p.References),
			)
		}
	}

	for _, m := range o.Modules {
		mod := Module{
			Name:     m.Name,
			URI:      o.Namespace + m.Name,
			Primary:  m.Primary,
			Requires: m.Requires,
		}
		for _, c := range m.Requires {
			if _, ok := r.Component(c); !ok {
				return nil, LoadError(
					fmt.Errorf("module %s requires unknown component %s", m.Name, c),
				)
			}
		}
		r.modules = append(r.modules, mod)
	}

	return r, nil
}

func (r *Registry) register(t Term) error {
	if _, ok := r.byName[t.Name]; ok {
		return LoadError(fmt.Errorf("duplicate term %s", t.Name))
	}
	var idx int
	switch t.Kind {
	case ComponentKind:
		idx = len(r.components)
		r.components = append(r.components, t)
	case PropertyKind:
		idx = len(r.properties)
		r.properties = append(r.properties, t)
	}
	r.byName[t.Name] = termRef{kind: t.Kind, idx: idx}
	r.byURI[t.URI] = termRef{kind: t.Kind, idx: idx}
	return nil
}

// Version returns the ontology version.
func (r *Registry) Version() string {
	return r.version
}

// Namespace returns the URI prefix shared by all terms.
func (r *Registry) Namespace() string {
	return r.namespace
}

// InNamespace is true if the URI belongs to the ontology namespace, known
// or not.
func (r *Registry) InNamespace(uri string) bool {
	return strings.HasPrefix(uri, r.namespace)
}

// URI returns the full URI for a local name.
func (r *Registry) URI(name string) string {
	return r.namespace + name
}

func (r *Registry) lookup(nameOrURI string, kind Kind) (Term, bool) {
	ref, ok := r.byURI[nameOrURI]
	if !ok {
		ref, ok = r.byName[nameOrURI]
	}
	if !ok || ref.kind != kind {
		return Term{}, false
	}
	if kind == ComponentKind {
		return r.components[ref.idx], true
	}
	return r.properties[ref.idx], true
}

// Component resolves a component by local name or URI.
func (r *Registry) Component(nameOrURI string) (Term, bool) {
	return r.lookup(nameOrURI, ComponentKind)
}

// Property resolves a property by local name or URI.
func (r *Registry) Property(nameOrURI string) (Term, bool) {
	return r.lookup(nameOrURI, PropertyKind)
}

// Module resolves a module by local name or URI.
func (r *Registry) Module(nameOrURI string) (Module, bool) {
	for _, m := range r.modules {
		if m.Name == nameOrURI || m.URI == nameOrURI {
			return m, true
		}
	}
	return Module{}, false
}

// ComponentByFilename finds a component by its conventional file name
// ("languages.csv") or by "<ComponentName>.csv".
func (r *Registry) ComponentByFilename(fname string) (Term, bool) {
	fname = strings.TrimSuffix(fname, ".zip")
	for _, c := range r.components {
		if c.Filename == fname || c.Name+".csv" == fname {
			return c, true
		}
	}
	return Term{}, false
}

// DefaultColumns returns default columns of a component in order. The
// returned slice is a copy.
func (r *Registry) DefaultColumns(component string) []ColumnTemplate {
	c, ok := r.Component(component)
	if !ok {
		return nil
	}
	return slices.Clone(r.templates[c.Name])
}

// RequiredProperties returns URIs of properties a component must have.
func (r *Registry) RequiredProperties(component string) []string {
	var res []string
	for _, col := range r.DefaultColumns(component) {
		if col.Required {
			res = append(res, col.PropertyURI)
		}
	}
	return res
}

// ReferenceProperty returns the property that points to a component, for
// example "languageReference" for LanguageTable.
func (r *Registry) ReferenceProperty(component string) (Term, bool) {
	c, ok := r.Component(component)
	if !ok {
		return Term{}, false
	}
	name := strings.TrimSuffix(c.Name, "Table")
	if name == "" {
		return Term{}, false
	}
	name = strings.ToLower(name[:1]) + name[1:] + "Reference"
	p, ok := r.Property(name)
	if !ok || p.References != c.Name {
		return Term{}, false
	}
	return p, true
}

// Components returns all components in ontology order.
func (r *Registry) Components() []Term {
	return slices.Clone(r.components)
}

// Properties returns all properties in ontology order.
func (r *Registry) Properties() []Term {
	return slices.Clone(r.properties)
}

// Modules returns all modules in ontology order.
func (r *Registry) Modules() []Module {
	return slices.Clone(r.modules)
}
