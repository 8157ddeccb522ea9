// Package iodataset opens datasets stored in directories, metadata
// files, zip archives or on the web.
package iodataset

import (
	"context"
	"path/filepath"

	"github.com/gnames/gncldf/internal/iocsv"
	"github.com/gnames/gncldf/internal/iofs"
	"github.com/gnames/gncldf/internal/iometa"
	"github.com/gnames/gncldf/internal/iosources"
	"github.com/gnames/gncldf/pkg/dataset"
	"github.com/gnames/gncldf/pkg/terms"
)

// Open finds a dataset at a location and creates its handle. Remote
// datasets and archives are kept in cacheDir.
func Open(
	ctx context.Context,
	reg *terms.Registry,
	loc, cacheDir string,
) (*dataset.Dataset, error) {
	l, err := iofs.Locate(ctx, loc, cacheDir)
	if err != nil {
		return nil, err
	}
	return FromLocation(reg, l)
}

// FromLocation creates a handle of a located dataset. Without a metadata
// file the metadata is inferred from CSV file names and headers.
func FromLocation(reg *terms.Registry, l *iofs.Location) (*dataset.Dataset, error) {
	op := iocsv.NewOpener(l.Dir)
	opts := []dataset.Option{dataset.OptLocation(l.Source)}

	if l.HasMetadata() {
		doc, err := iometa.Read(l.Metadata)
		if err != nil {
			return nil, err
		}
		if src, ok := doc["dc:source"].(string); ok && src != "" {
			opts = append(opts, bibOption(l.Dir, src))
		}
		return dataset.FromDocument(reg, doc, op, opts...)
	}

	files, err := op.TableFiles(l.Tables)
	if err != nil {
		return nil, iofs.ReadFileError(l.Dir, err)
	}
	if l.Bibliography != "" {
		opts = append(opts, bibOption(l.Dir, l.Bibliography))
	}
	return dataset.FromListing(reg, files, l.Bibliography, op, opts...)
}

func bibOption(dir, fname string) dataset.Option {
	path := filepath.Join(dir, filepath.FromSlash(fname))
	return dataset.OptBibliography(iosources.Loader(path))
}
