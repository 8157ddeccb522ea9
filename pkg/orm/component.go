package orm

// Helpers for objects of common components. They return nil results when
// the dataset has no table or column for the relation.

// Language returns the language of a value, form, example or entry.
func (o *Object) Language() (*Object, error) {
	return o.relatedBy("languageReference")
}

// Parameter returns the parameter of a value, form or code.
func (o *Object) Parameter() (*Object, error) {
	return o.relatedBy("parameterReference")
}

// Code returns the code of a value.
func (o *Object) Code() (*Object, error) {
	return o.relatedBy("codeReference")
}

// Entry returns the dictionary entry of a sense.
func (o *Object) Entry() (*Object, error) {
	return o.relatedBy("entryReference")
}

// Form returns the form of a cognate judgement.
func (o *Object) Form() (*Object, error) {
	return o.relatedBy("formReference")
}

// Cognateset returns the cognate set of a cognate judgement.
func (o *Object) Cognateset() (*Object, error) {
	return o.relatedBy("cognatesetReference")
}

// Values returns values that refer to the object.
func (o *Object) Values() ([]*Object, error) {
	return o.referrersOf("ValueTable")
}

// Forms returns forms that refer to the object.
func (o *Object) Forms() ([]*Object, error) {
	return o.referrersOf("FormTable")
}

// Senses returns senses of a dictionary entry.
func (o *Object) Senses() ([]*Object, error) {
	return o.referrersOf("SenseTable")
}

// Examples returns examples that refer to the object.
func (o *Object) Examples() ([]*Object, error) {
	return o.referrersOf("ExampleTable")
}

// Cognates returns cognate judgements that refer to the object.
func (o *Object) Cognates() ([]*Object, error) {
	return o.referrersOf("CognateTable")
}

// Lonlat returns longitude and latitude of a language. The last value is
// false if one of them is missing.
func (o *Object) Lonlat() (float64, float64, bool) {
	lon, ok1 := o.float("longitude")
	lat, ok2 := o.float("latitude")
	return lon, lat, ok1 && ok2
}

func (o *Object) float(property string) (float64, bool) {
	v, ok := o.Get(property)
	if !ok {
		return 0, false
	}
	f, ok := v.(float64)
	return f, ok
}

func (o *Object) relatedBy(property string) (*Object, error) {
	c := o.info.ColumnFor(property)
	if c == nil {
		return nil, nil
	}
	return o.Related(c.Name)
}

func (o *Object) referrersOf(component string) ([]*Object, error) {
	ti, ok := o.store.res.ComponentTable(component)
	if !ok {
		return nil, nil
	}
	var refers bool
	for _, fk := range ti.ForeignKeys {
		if fk.Target.URL == o.Table() {
			refers = true
			break
		}
	}
	if !refers {
		return nil, nil
	}
	return o.Referrers(ti.URL())
}
