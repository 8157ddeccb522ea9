package validate

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gnames/gn"
)

// Severity of a diagnostic.
type Severity int

const (
	Warning Severity = iota + 1
	Error
)

func (s Severity) String() string {
	switch s {
	case Warning:
		return "warning"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// MarshalText makes Severity readable in JSON output.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Check is the category of a failed check.
type Check int

const (
	UnknownCheck Check = iota
	StructureCheck
	DatatypeCheck
	RequiredCheck
	PrimaryKeyCheck
	ForeignKeyCheck
	SemanticCheck
	SourceCheck
	ConformanceCheck
)

var checkNames = map[Check]string{
	StructureCheck:   "structure",
	DatatypeCheck:    "datatype",
	RequiredCheck:    "required",
	PrimaryKeyCheck:  "primary-key",
	ForeignKeyCheck:  "foreign-key",
	SemanticCheck:    "semantic",
	SourceCheck:      "source",
	ConformanceCheck: "conformance",
}

func (c Check) String() string {
	if s, ok := checkNames[c]; ok {
		return s
	}
	return "unknown"
}

// MarshalText makes Check readable in JSON output.
func (c Check) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// Diagnostic is one finding of the validation.
type Diagnostic struct {
	Severity Severity `json:"severity"`
	Check    Check    `json:"check"`
	Table    string   `json:"table,omitempty"`
	// Component is the component of the table, if any.
	Component string `json:"component,omitempty"`
	// Row is 1-based, the header excluded. Zero for table or dataset level
	// findings.
	Row     int    `json:"row,omitempty"`
	Column  string `json:"column,omitempty"`
	Message string `json:"message"`
}

func (d Diagnostic) String() string {
	var loc []string
	if d.Table != "" {
		loc = append(loc, d.Table)
	}
	if d.Row > 0 {
		loc = append(loc, fmt.Sprintf("row %d", d.Row))
	}
	if d.Column != "" {
		loc = append(loc, d.Column)
	}
	if len(loc) == 0 {
		return fmt.Sprintf("%s [%s] %s", d.Severity, d.Check, d.Message)
	}
	return fmt.Sprintf("%s [%s] %s: %s",
		d.Severity, d.Check, strings.Join(loc, ":"), d.Message)
}

// Report collects diagnostics in the order they were found.
type Report struct {
	Diagnostics []Diagnostic
}

// Add appends a diagnostic.
func (r *Report) Add(d Diagnostic) {
	r.Diagnostics = append(r.Diagnostics, d)
}

// HasErrors is true if any diagnostic has Error severity.
func (r *Report) HasErrors() bool {
	for _, d := range r.Diagnostics {
		if d.Severity == Error {
			return true
		}
	}
	return false
}

// Count returns the number of diagnostics of a severity.
func (r *Report) Count(s Severity) int {
	var res int
	for _, d := range r.Diagnostics {
		if d.Severity == s {
			res++
		}
	}
	return res
}

// Filter returns diagnostics that satisfy a predicate.
func (r *Report) Filter(fn func(Diagnostic) bool) []Diagnostic {
	var res []Diagnostic
	for _, d := range r.Diagnostics {
		if fn(d) {
			res = append(res, d)
		}
	}
	return res
}

// RowError is the payload of a strict mode failure.
type RowError struct {
	Table     string
	Component string
	Row       int
	Column    string
	Reason    string
	Check     Check
}

func (e *RowError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("%s: row %d: %s", e.Table, e.Row, e.Reason)
	}
	return fmt.Sprintf("%s: row %d: %s: %s", e.Table, e.Row, e.Column, e.Reason)
}

// AsRowError extracts the RowError of a strict mode failure.
func AsRowError(err error) (*RowError, bool) {
	var re *RowError
	if errors.As(err, &re) {
		return re, true
	}
	var gnErr *gn.Error
	if errors.As(err, &gnErr) && errors.As(gnErr.Err, &re) {
		return re, true
	}
	return nil, false
}
