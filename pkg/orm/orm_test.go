package orm_test

import (
	"testing"

	"github.com/gnames/gncldf/internal/iotesting"
	"github.com/gnames/gncldf/pkg/errcode"
	"github.com/gnames/gncldf/pkg/metadata"
	"github.com/gnames/gncldf/pkg/orm"
	"github.com/gnames/gncldf/pkg/resolver"
	"github.com/gnames/gncldf/pkg/sources"
	"github.com/gnames/gncldf/pkg/terms"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ns = "http://cldf.clld.org/v1.0/terms.rdf#"

func wordlist(t *testing.T) *resolver.Resolved {
	reg, err := terms.Load(terms.DefaultVersion)
	require.NoError(t, err)
	tg := metadata.New(ns + "Wordlist")
	for _, c := range []string{"LanguageTable", "ParameterTable", "FormTable"} {
		_, err = tg.AddComponent(reg, c)
		require.NoError(t, err)
	}
	tg.Table("forms.csv").AboutURL = "http://example.org/forms/{ID}"
	tg.Table("languages.csv").Column("Glottocode").ValueURL =
		"https://glottolog.org/resource/languoid/id/{Glottocode}"

	require.NoError(t, tg.AddTable(&metadata.Table{
		URL: "samples.csv",
		Columns: []*metadata.Column{
			{Name: "ID"},
			{Name: "Language_IDs", Separator: ";"},
		},
		PrimaryKey: []string{"ID"},
	}))
	require.NoError(t, tg.AddForeignKey(
		"samples.csv", []string{"Language_IDs"}, "languages.csv", nil,
	))
	res, err := resolver.Resolve(tg, reg)
	require.NoError(t, err)
	return res
}

func wordlistData() iotesting.MemTables {
	return iotesting.MemTables{
		"languages.csv": {
			{"ID", "Name", "Macroarea", "Latitude", "Longitude", "Glottocode", "ISO639P3code"},
			{"stan1293", "English", "Eurasia", "53", "-1", "stan1293", "eng"},
			{"stan1295", "German", "Eurasia", "", "", "stan1295", "deu"},
		},
		"parameters.csv": {
			{"ID", "Name", "Description"},
			{"hand", "hand", ""},
			{"foot", "foot", ""},
		},
		"forms.csv": {
			{"ID", "Language_ID", "Parameter_ID", "Form", "Segments", "Comment", "Source"},
			{"f1", "stan1293", "hand", "hand", "h a n d", "", "Meier2005[3-7]"},
			{"f2", "stan1295", "hand", "Hand", "h a n t", "", ""},
			{"f3", "stan1293", "foot", "foot", "f u t", "", "Smith1999;123"},
			{"f1", "stan1293", "foot", "feet", "f i t", "", ""},
		},
		"samples.csv": {
			{"ID", "Language_IDs"},
			{"s1", "stan1293;stan1295"},
			{"s2", ""},
		},
	}
}

func newStore(t *testing.T) *orm.Store {
	exp := sources.NewExpander(func() (sources.Bibliography, error) {
		return sources.NewCollection(&sources.Entry{
			Key:     "Meier2005",
			Type:    "book",
			Authors: []string{"Meier, A."},
			Fields:  map[string]string{"year": "2005", "title": "Words"},
		}), nil
	})
	return orm.New(wordlist(t), wordlistData(), exp, nil)
}

func TestGetObject(t *testing.T) {
	s := newStore(t)

	o1, err := s.GetObject("LanguageTable", "stan1293")
	require.NoError(t, err)
	o2, err := s.GetObject("languages.csv", "stan1293")
	require.NoError(t, err)
	assert.Same(t, o1, o2)
	assert.Equal(t, "LanguageTable", o1.Component())
	assert.Equal(t, "English", o1.Name())
	assert.Equal(t, "stan1293", o1.String("glottocode"))

	_, err = s.GetObject("LanguageTable", "nope")
	assert.Equal(t, errcode.NotFoundError, errcode.Code(err))

	_, err = s.GetObject("ValueTable", "v1")
	assert.Equal(t, errcode.LookupError, errcode.Code(err))
}

func TestObjects(t *testing.T) {
	s := newStore(t)

	for o, err := range s.Objects("FormTable") {
		require.NoError(t, err)
		assert.Equal(t, "f1", o.ID())
		break
	}
	f1, err := s.GetObject("FormTable", "f1")
	require.NoError(t, err)

	forms, err := s.All("FormTable")
	require.NoError(t, err)
	require.Len(t, forms, 3, "duplicate key is not a new object")
	assert.Same(t, f1, forms[0])
	assert.Equal(t, "hand", f1.String("Form"))

	again, err := s.All("forms.csv")
	require.NoError(t, err)
	assert.Equal(t, forms, again)
}

func TestRelated(t *testing.T) {
	s := newStore(t)

	f2, err := s.GetObject("FormTable", "f2")
	require.NoError(t, err)
	lang, err := f2.Language()
	require.NoError(t, err)
	german, err := s.GetObject("LanguageTable", "stan1295")
	require.NoError(t, err)
	assert.Same(t, german, lang)

	param, err := f2.Parameter()
	require.NoError(t, err)
	assert.Equal(t, "hand", param.ID())

	seg, ok := f2.Get("segments")
	assert.True(t, ok)
	assert.Equal(t, []any{"h", "a", "n", "t"}, seg)

	_, err = f2.Related("Form")
	assert.Equal(t, errcode.RelationError, errcode.Code(err))

	s1, err := s.GetObject("samples.csv", "s1")
	require.NoError(t, err)
	_, err = s1.Related("Language_IDs")
	assert.Equal(t, errcode.RelationError, errcode.Code(err))
	langs, err := s1.AllRelated("Language_IDs")
	require.NoError(t, err)
	require.Len(t, langs, 2)
	assert.Equal(t, "stan1293", langs[0].ID())
	assert.Same(t, german, langs[1])

	s2, err := s.GetObject("samples.csv", "s2")
	require.NoError(t, err)
	langs, err = s2.AllRelated("Language_IDs")
	require.NoError(t, err)
	assert.Empty(t, langs)
}

func TestReferrers(t *testing.T) {
	s := newStore(t)

	english, err := s.GetObject("LanguageTable", "stan1293")
	require.NoError(t, err)
	forms, err := english.Forms()
	require.NoError(t, err)
	var ids []string
	for _, f := range forms {
		ids = append(ids, f.ID())
	}
	assert.Equal(t, []string{"f1", "f3"}, ids)

	samples, err := english.Referrers("samples.csv")
	require.NoError(t, err)
	require.Len(t, samples, 1)
	assert.Equal(t, "s1", samples[0].ID())

	values, err := english.Values()
	require.NoError(t, err)
	assert.Nil(t, values)

	hand, err := s.GetObject("ParameterTable", "hand")
	require.NoError(t, err)
	_, err = hand.Referrers("samples.csv")
	assert.Equal(t, errcode.RelationError, errcode.Code(err))
}

func TestReferences(t *testing.T) {
	s := newStore(t)

	tests := []struct {
		msg   string
		id    string
		keys  []string
		entry []bool
		strs  []string
	}{
		{"qualifier", "f1", []string{"Meier2005"}, []bool{true}, []string{"Meier2005[3-7]"}},
		{"empty", "f2", nil, nil, nil},
		{"missing and glottolog", "f3",
			[]string{"Smith1999", "123"}, []bool{false, true}, []string{"Smith1999", "123"}},
	}

	for _, v := range tests {
		o, err := s.GetObject("FormTable", v.id)
		require.NoError(t, err, v.msg)
		refs, err := o.References()
		require.NoError(t, err, v.msg)
		require.Len(t, refs, len(v.keys), v.msg)
		for i, ref := range refs {
			assert.Equal(t, v.keys[i], ref.Key, v.msg)
			assert.Equal(t, v.entry[i], ref.IsResolved(), v.msg)
			assert.Equal(t, v.strs[i], ref.String(), v.msg)
		}
	}
}

func TestURLs(t *testing.T) {
	s := newStore(t)

	f1, err := s.GetObject("FormTable", "f1")
	require.NoError(t, err)
	u, err := f1.AboutURL("")
	require.NoError(t, err)
	assert.Equal(t, "http://example.org/forms/f1", u)

	english, err := s.GetObject("LanguageTable", "stan1293")
	require.NoError(t, err)
	u, err = english.ValueURL("Glottocode")
	require.NoError(t, err)
	assert.Equal(t, "https://glottolog.org/resource/languoid/id/stan1293", u)

	u, err = english.ValueURL("Name")
	require.NoError(t, err)
	assert.Empty(t, u)
}

func TestLonlat(t *testing.T) {
	s := newStore(t)

	english, err := s.GetObject("LanguageTable", "stan1293")
	require.NoError(t, err)
	lon, lat, ok := english.Lonlat()
	assert.True(t, ok)
	assert.Equal(t, -1.0, lon)
	assert.Equal(t, 53.0, lat)

	german, err := s.GetObject("LanguageTable", "stan1295")
	require.NoError(t, err)
	_, _, ok = german.Lonlat()
	assert.False(t, ok)
}

func TestInvalidate(t *testing.T) {
	data := wordlistData()
	s := orm.New(wordlist(t), data, nil, nil)

	f1, err := s.GetObject("FormTable", "f1")
	require.NoError(t, err)
	english, err := s.GetObject("LanguageTable", "stan1293")
	require.NoError(t, err)

	data["forms.csv"][1][3] = "palm"
	s.Invalidate("FormTable")

	f1b, err := s.GetObject("FormTable", "f1")
	require.NoError(t, err)
	assert.NotSame(t, f1, f1b)
	assert.Equal(t, "palm", f1b.String("Form"))

	englishB, err := s.GetObject("LanguageTable", "stan1293")
	require.NoError(t, err)
	assert.Same(t, english, englishB)

	s.Invalidate("")
	englishC, err := s.GetObject("LanguageTable", "stan1293")
	require.NoError(t, err)
	assert.NotSame(t, english, englishC)

	refs, err := f1b.References()
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.False(t, refs[0].IsResolved())
}
