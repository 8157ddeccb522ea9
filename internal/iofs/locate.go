package iofs

import (
	"context"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/gnames/gnuuid"
)

// Location is a dataset found on disk.
type Location struct {
	// Source is the location as given by a user.
	Source string
	// Dir is the local directory table URLs are relative to.
	Dir string
	// Metadata is the path of the metadata file, empty for a dataset
	// given by CSV files only.
	Metadata string
	// Tables are CSV file names relative to Dir of a dataset without
	// metadata. Zipped tables keep their ".zip" suffix.
	Tables []string
	// Bibliography is the BibTeX file name relative to Dir of a dataset
	// without metadata.
	Bibliography string
}

// HasMetadata is true if the dataset is described by a metadata file.
func (l *Location) HasMetadata() bool {
	return l.Metadata != ""
}

// IsURL is true for http and https locations.
func IsURL(loc string) bool {
	u, err := url.Parse(loc)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// Locate finds a dataset at a location. The location is a directory, a
// metadata file, a zip archive or a URL of a metadata file or an archive.
// Downloads and extracted archives are kept in cacheDir.
func Locate(ctx context.Context, loc, cacheDir string) (*Location, error) {
	if IsURL(loc) {
		local, err := Fetch(ctx, loc, cacheDir)
		if err != nil {
			return nil, err
		}
		res, err := Locate(ctx, local, cacheDir)
		if err != nil {
			return nil, err
		}
		res.Source = loc
		return res, nil
	}

	info, err := os.Stat(loc)
	if err != nil {
		return nil, DiscoveryError(loc, "path does not exist")
	}

	lower := strings.ToLower(loc)
	switch {
	case info.IsDir():
		return locateDir(loc, loc, "*metadata.json")
	case strings.HasSuffix(lower, ".json"):
		return &Location{
			Source:   loc,
			Dir:      filepath.Dir(loc),
			Metadata: loc,
		}, nil
	case strings.HasSuffix(lower, ".zip"):
		abs, err := filepath.Abs(loc)
		if err != nil {
			return nil, ReadFileError(loc, err)
		}
		dir := filepath.Join(cacheDir, gnuuid.New(abs).String())
		if err = Extract(loc, dir); err != nil {
			return nil, err
		}
		return locateDir(loc, dir, "**/*metadata.json")
	}
	return nil, DiscoveryError(
		loc, "expected a directory, a metadata file or a zip archive",
	)
}

// locateDir searches dir for a metadata file matching pattern, falling
// back to a scan of CSV files.
func locateDir(src, dir, pattern string) (*Location, error) {
	metas, err := doublestar.Glob(os.DirFS(dir), pattern)
	if err != nil {
		return nil, ReadFileError(dir, err)
	}
	if len(metas) > 0 {
		if len(metas) > 1 {
			slog.Warn("Several metadata files found, using the first one",
				"location", src, "files", metas)
		}
		meta := filepath.Join(dir, filepath.FromSlash(metas[0]))
		return &Location{
			Source:   src,
			Dir:      filepath.Dir(meta),
			Metadata: meta,
		}, nil
	}
	return Scan(src, dir)
}

// Scan lists CSV and BibTeX files of a directory without metadata.
func Scan(src, dir string) (*Location, error) {
	fsys := os.DirFS(dir)
	tables, err := doublestar.Glob(fsys, "*.{csv,csv.zip}")
	if err != nil {
		return nil, ReadFileError(dir, err)
	}
	if len(tables) == 0 {
		return nil, DiscoveryError(src, "no metadata file and no CSV files")
	}
	slices.Sort(tables)
	res := &Location{Source: src, Dir: dir, Tables: dedupZipped(tables)}

	bibs, err := doublestar.Glob(fsys, "*.{bib,bib.zip}")
	if err != nil {
		return nil, ReadFileError(dir, err)
	}
	if len(bibs) > 0 {
		slices.Sort(bibs)
		res.Bibliography = strings.TrimSuffix(bibs[0], ".zip")
		if len(bibs) > 1 {
			slog.Warn("Several BibTeX files found, using the first one",
				"location", src, "files", bibs)
		}
	}
	return res, nil
}

// dedupZipped drops "x.csv.zip" when "x.csv" is present.
func dedupZipped(names []string) []string {
	plain := make(map[string]bool)
	for _, v := range names {
		if !strings.HasSuffix(v, ".zip") {
			plain[v] = true
		}
	}
	res := make([]string, 0, len(names))
	for _, v := range names {
		if strings.HasSuffix(v, ".zip") && plain[strings.TrimSuffix(v, ".zip")] {
			continue
		}
		res = append(res, v)
	}
	return res
}
