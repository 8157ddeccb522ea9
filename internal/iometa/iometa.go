// Package iometa reads and writes metadata documents of datasets.
// This is an impure I/O package.
package iometa

import (
	_ "embed"
	"os"
	"sync"

	"github.com/gnames/gnfmt"
	"github.com/goccy/go-json"
	"github.com/google/jsonschema-go/jsonschema"
)

//go:embed shape.json
var shapeJSON []byte

var (
	shapeOnce sync.Once
	shape     *jsonschema.Resolved
	shapeErr  error
)

// Read decodes a metadata file and checks its structure.
func Read(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, DecodeError(path, err)
	}
	return Decode(path, data)
}

// Decode decodes a metadata document and checks its structure. The name
// is used in error messages.
func Decode(name string, data []byte) (map[string]any, error) {
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, DecodeError(name, err)
	}
	if err := CheckShape(doc); err != nil {
		return nil, ShapeError(name, err)
	}
	return doc, nil
}

// CheckShape validates a decoded document against the JSON schema of
// a CSVW table group. Semantic consistency is checked later by the
// metadata model.
func CheckShape(doc map[string]any) error {
	shapeOnce.Do(func() {
		var s jsonschema.Schema
		if shapeErr = json.Unmarshal(shapeJSON, &s); shapeErr != nil {
			return
		}
		shape, shapeErr = s.Resolve(&jsonschema.ResolveOptions{})
	})
	if shapeErr != nil {
		return shapeErr
	}
	return shape.Validate(doc)
}

// Encode renders a metadata document as indented JSON.
func Encode(doc map[string]any) ([]byte, error) {
	enc := gnfmt.GNjson{Pretty: true}
	return enc.Encode(doc)
}

// Write stores a metadata document.
func Write(path string, doc map[string]any) error {
	data, err := Encode(doc)
	if err != nil {
		return EncodeError(path, err)
	}
	if err = os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return EncodeError(path, err)
	}
	return nil
}
