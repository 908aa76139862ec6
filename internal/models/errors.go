package models

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrorType classifies errors surfaced by the pipeline
type ErrorType string

const (
	// ErrorTypePartialIngest marks an archive that was only partly readable
	ErrorTypePartialIngest ErrorType = "PARTIAL_INGEST"

	// ErrorTypeConfiguration marks a caller-supplied parameter out of range
	ErrorTypeConfiguration ErrorType = "CONFIGURATION"

	// ErrorTypeNotFound marks a missing stored record
	ErrorTypeNotFound ErrorType = "NOT_FOUND"
)

// ErrProfileNotFound is returned when no taste profile is stored for a user
var ErrProfileNotFound = errors.New("taste profile not found")

// ConfigurationError is returned before any work starts when a parameter is invalid
type ConfigurationError struct {
	Field   string
	Message string
}

// NewConfigurationError creates a configuration error for a field
func NewConfigurationError(field, format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrorTypeConfiguration, e.Field, e.Message)
}

// Type returns the error classification
func (e *ConfigurationError) Type() ErrorType { return ErrorTypeConfiguration }

// IsConfigurationError reports whether err wraps a ConfigurationError
func IsConfigurationError(err error) bool {
	var cfgErr *ConfigurationError
	return errors.As(err, &cfgErr)
}

// SourceFailure describes why one archive entry produced no events
type SourceFailure struct {
	Source EventKind `json:"source"`
	Entry  string    `json:"entry"`
	Reason string    `json:"reason"`
}

// PartialIngestWarning lists the archive sources that could not be read.
// Processing continues with whatever was parsed.
type PartialIngestWarning struct {
	FailedSources  []SourceFailure   `json:"failed_sources,omitempty"`
	SkippedRecords map[EventKind]int `json:"skipped_records,omitempty"`
}

// AddFailure records a failed source
func (w *PartialIngestWarning) AddFailure(source EventKind, entry, reason string) {
	w.FailedSources = append(w.FailedSources, SourceFailure{Source: source, Entry: entry, Reason: reason})
}

// AddSkipped counts a dropped record of the given kind
func (w *PartialIngestWarning) AddSkipped(kind EventKind) {
	if w.SkippedRecords == nil {
		w.SkippedRecords = make(map[EventKind]int)
	}
	w.SkippedRecords[kind]++
}

// Empty reports whether nothing was recorded
func (w *PartialIngestWarning) Empty() bool {
	return w == nil || (len(w.FailedSources) == 0 && len(w.SkippedRecords) == 0)
}

// Type returns the error classification
func (w *PartialIngestWarning) Type() ErrorType { return ErrorTypePartialIngest }

func (w *PartialIngestWarning) Error() string {
	parts := make([]string, 0, len(w.FailedSources)+len(w.SkippedRecords))
	for _, f := range w.FailedSources {
		parts = append(parts, fmt.Sprintf("%s (%s): %s", f.Source, f.Entry, f.Reason))
	}
	kinds := make([]string, 0, len(w.SkippedRecords))
	for k := range w.SkippedRecords {
		kinds = append(kinds, string(k))
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		parts = append(parts, fmt.Sprintf("%d %s records skipped", w.SkippedRecords[EventKind(k)], k))
	}
	return fmt.Sprintf("%s: %s", ErrorTypePartialIngest, strings.Join(parts, "; "))
}
