package sources

import (
	"iter"
	"regexp"
	"slices"
)

// glottologRef matches keys of Glottolog references, which are positive
// integers.
var glottologRef = regexp.MustCompile(`^[1-9][0-9]*$`)

// Loader loads the bibliography of a dataset.
type Loader func() (Bibliography, error)

// Expander resolves reference tokens against a bibliography that is
// loaded on first use. Missing numeric keys are taken for Glottolog
// references and added to the bibliography as "misc" entries.
type Expander struct {
	load   Loader
	loaded bool
	base   Bibliography
	added  *Collection
	err    error
}

// NewExpander creates an Expander. A nil loader means an empty
// bibliography.
func NewExpander(load Loader) *Expander {
	return &Expander{load: load, added: NewCollection()}
}

// Bibliography returns the loaded bibliography together with entries
// added for Glottolog references.
func (e *Expander) Bibliography() (Bibliography, error) {
	if !e.loaded {
		e.loaded = true
		e.base = NewCollection()
		if e.load != nil {
			bib, err := e.load()
			if err != nil {
				e.err = BibliographyLoadError(err)
			} else if bib != nil {
				e.base = bib
			}
		}
	}
	if e.err != nil {
		return nil, e.err
	}
	return overlay{base: e.base, added: e.added}, nil
}

// Added returns entries created for Glottolog references.
func (e *Expander) Added() []*Entry {
	return e.added.Entries()
}

// Resolve sets the entry of a reference. The second value is false when
// the key is missing from the bibliography.
func (e *Expander) Resolve(ref Reference) (Reference, bool, error) {
	bib, err := e.Bibliography()
	if err != nil {
		return ref, false, err
	}
	if entry, ok := bib.Entry(ref.Key); ok {
		ref.Entry = entry
		return ref, true, nil
	}
	if glottologRef.MatchString(ref.Key) {
		entry := &Entry{
			Key:    ref.Key,
			Type:   "misc",
			Fields: map[string]string{"glottolog_ref_id": ref.Key},
		}
		e.added.Add(entry)
		ref.Entry = entry
		return ref, true, nil
	}
	return ref, false, nil
}

// Expand lazily parses and resolves tokens. Tokens that cannot be parsed
// yield an errcode.InvalidReferenceError and the sequence goes on. A
// missing key is not an error: the reference is yielded without an entry
// and onMissing, if not nil, is called with it. A failure to load the
// bibliography is yielded once and stops the sequence.
func (e *Expander) Expand(tokens iter.Seq[string], onMissing func(Reference)) iter.Seq2[Reference, error] {
	return func(yield func(Reference, error) bool) {
		for tok := range tokens {
			ref, err := ParseReference(tok)
			if err != nil {
				if !yield(Reference{}, err) {
					return
				}
				continue
			}
			ref, ok, err := e.Resolve(ref)
			if err != nil {
				yield(ref, err)
				return
			}
			if !ok && onMissing != nil {
				onMissing(ref)
			}
			if !yield(ref, nil) {
				return
			}
		}
	}
}

type overlay struct {
	base  Bibliography
	added *Collection
}

func (o overlay) Entry(key string) (*Entry, bool) {
	if e, ok := o.base.Entry(key); ok {
		return e, true
	}
	return o.added.Entry(key)
}

func (o overlay) Has(key string) bool {
	return o.base.Has(key) || o.added.Has(key)
}

func (o overlay) Keys() []string {
	return append(o.base.Keys(), o.added.Keys()...)
}

func (o overlay) Len() int {
	return o.base.Len() + o.added.Len()
}

// Sorted returns all keys of a bibliography in lexical order.
func Sorted(b Bibliography) []string {
	keys := b.Keys()
	slices.Sort(keys)
	return keys
}
