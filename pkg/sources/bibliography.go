package sources

import (
	"slices"
	"strings"
)

// Entry is a bibliography record.
type Entry struct {
	Key  string
	Type string
	// Authors keeps the order of the author list.
	Authors []string
	// Fields holds all other fields with lower-case names.
	Fields map[string]string
}

// Field returns the value of a field, empty if absent.
func (e *Entry) Field(name string) string {
	return e.Fields[strings.ToLower(name)]
}

// Text renders a short citation: "Authors (Year) Title".
func (e *Entry) Text() string {
	var b strings.Builder
	if len(e.Authors) > 0 {
		b.WriteString(strings.Join(e.Authors, " and "))
	}
	if y := e.Field("year"); y != "" {
		if b.Len() > 0 {
			b.WriteString(" ")
		}
		b.WriteString("(" + y + ")")
	}
	if t := e.Field("title"); t != "" {
		if b.Len() > 0 {
			b.WriteString(" ")
		}
		b.WriteString(t)
	}
	if b.Len() == 0 {
		return e.Key
	}
	return b.String()
}

// Bibliography maps citation keys to entries.
type Bibliography interface {
	// Entry returns the entry of a key.
	Entry(key string) (*Entry, bool)
	// Has is true if the key exists.
	Has(key string) bool
	// Keys returns all keys in insertion order.
	Keys() []string
	// Len returns the number of entries.
	Len() int
}

// Collection is an in-memory Bibliography.
type Collection struct {
	keys    []string
	entries map[string]*Entry
}

// NewCollection creates a Collection. Later entries with a repeated key
// are ignored.
func NewCollection(entries ...*Entry) *Collection {
	res := &Collection{entries: make(map[string]*Entry, len(entries))}
	for _, e := range entries {
		res.Add(e)
	}
	return res
}

// Add inserts an entry and returns false if the key already exists.
func (c *Collection) Add(e *Entry) bool {
	if _, ok := c.entries[e.Key]; ok {
		return false
	}
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	c.keys = append(c.keys, e.Key)
	c.entries[e.Key] = e
	return true
}

// Entry returns the entry of a key.
func (c *Collection) Entry(key string) (*Entry, bool) {
	e, ok := c.entries[key]
	return e, ok
}

// Has is true if the key exists.
func (c *Collection) Has(key string) bool {
	_, ok := c.entries[key]
	return ok
}

// Keys returns all keys in insertion order.
func (c *Collection) Keys() []string {
	return slices.Clone(c.keys)
}

// Len returns the number of entries.
func (c *Collection) Len() int {
	return len(c.keys)
}

// Entries returns entries in insertion order.
func (c *Collection) Entries() []*Entry {
	res := make([]*Entry, len(c.keys))
	for i, k := range c.keys {
		res[i] = c.entries[k]
	}
	return res
}
