package iofs

import (
	"archive/zip"
	"fmt"
	"path/filepath"

	"github.com/gnames/gnsys"
)

// Extract unpacks a zip archive into dir, replacing its previous content.
// Members with paths leading outside of dir are rejected before anything
// is written.
func Extract(archive, dir string) error {
	if err := checkMembers(archive); err != nil {
		return err
	}
	if err := gnsys.CleanDir(dir); err != nil {
		return CreateDirError(dir, err)
	}
	if err := gnsys.ExtractZip(archive, dir); err != nil {
		return ReadFileError(archive, err)
	}
	return nil
}

func checkMembers(archive string) error {
	r, err := zip.OpenReader(archive)
	if err != nil {
		return ReadFileError(archive, err)
	}
	defer r.Close()

	for _, f := range r.File {
		if !filepath.IsLocal(f.Name) {
			return ReadFileError(
				archive, fmt.Errorf("member %q escapes the archive", f.Name),
			)
		}
	}
	return nil
}
