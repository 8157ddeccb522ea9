package errcode

import (
	"errors"

	"github.com/gnames/gn"
)

const (
	UnknownError gn.ErrorCode = iota

	// File System errors
	CreateDirError
	CopyFileError
	ReadFileError
	WriteFileError

	// Logging errors
	CreateLogFileError

	// Discovery errors
	DiscoveryError
	FetchError

	// Ontology errors
	TermsLoadError
	UnknownTermsVersionError

	// Metadata errors
	MetadataDecodeError
	MetadataShapeError
	MetadataEncodeError

	// Schema errors
	SchemaError
	LookupError

	// Row errors
	RowValidationError
	RowReadError

	// Bibliography errors
	BibliographyReadError
	BibliographyWriteError
	InvalidReferenceError

	// ORM errors
	NotFoundError
	RelationError

	// Database errors
	DBConnectionError
	DBNotConnectedError
	DBUnknownDriverError
	DBTableCheckError
	DBDropTableError
	DBSchemaCreateError
	DBGORMConnectionError
	DBPopulateError
)

// Code returns the gn.ErrorCode of an error created by gncldf, or
// UnknownError for any other error.
func Code(err error) gn.ErrorCode {
	var gnErr *gn.Error
	if errors.As(err, &gnErr) {
		return gnErr.Code
	}
	return UnknownError
}
