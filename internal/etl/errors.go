package etl

import (
	"errors"
	"fmt"
)

// ErrNoData signals that an export collected no rows.
var ErrNoData = errors.New("no data to export")

// ErrorKind classifies export failures. The engine decides fatal vs recovered by kind.
type ErrorKind string

const (
	KindConfiguration  ErrorKind = "configuration"
	KindInitialization ErrorKind = "initialization"
	KindEnumeration    ErrorKind = "enumeration"
	KindFetch          ErrorKind = "fetch"
	KindFlatten        ErrorKind = "flatten"
	KindSerialization  ErrorKind = "serialization"
)

// Fatal reports whether an error of this kind aborts the run.
func (k ErrorKind) Fatal() bool {
	switch k {
	case KindConfiguration, KindInitialization, KindSerialization:
		return true
	default:
		return false
	}
}

// ExportError is the error type surfaced by every stage of an export.
type ExportError struct {
	Kind       ErrorKind
	Collection string // set for fetch and flatten errors
	DocumentID string // set for flatten errors
	Path       string // file path for configuration/serialization, dotted key for flatten
	Cause      error
}

// Error implements the error interface.
func (e *ExportError) Error() string {
	msg := fmt.Sprintf("%s error", e.Kind)
	switch {
	case e.Collection != "" && e.DocumentID != "":
		msg += fmt.Sprintf(" [collection=%s, document=%s]", e.Collection, e.DocumentID)
	case e.Collection != "":
		msg += fmt.Sprintf(" [collection=%s]", e.Collection)
	}
	if e.Path != "" {
		msg += fmt.Sprintf(" (%s)", e.Path)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause error.
func (e *ExportError) Unwrap() error {
	return e.Cause
}

// NewConfigurationError reports a missing or unreadable configured artifact.
func NewConfigurationError(path string, cause error) *ExportError {
	return &ExportError{Kind: KindConfiguration, Path: path, Cause: cause}
}

// NewInitializationError reports a store client construction or auth failure.
func NewInitializationError(cause error) *ExportError {
	return &ExportError{Kind: KindInitialization, Cause: cause}
}

// NewEnumerationError reports a failure to list collections.
func NewEnumerationError(cause error) *ExportError {
	return &ExportError{Kind: KindEnumeration, Cause: cause}
}

// NewFetchError reports a failure while streaming one collection.
func NewFetchError(collection string, cause error) *ExportError {
	return &ExportError{Kind: KindFetch, Collection: collection, Cause: cause}
}

// NewFlattenError reports a document that could not be flattened.
func NewFlattenError(collection, documentID, key string, cause error) *ExportError {
	return &ExportError{Kind: KindFlatten, Collection: collection, DocumentID: documentID, Path: key, Cause: cause}
}

// NewSerializationError reports a failure writing the output file.
func NewSerializationError(path string, cause error) *ExportError {
	return &ExportError{Kind: KindSerialization, Path: path, Cause: cause}
}

// KindOf returns the kind of the first ExportError in err's chain.
func KindOf(err error) (ErrorKind, bool) {
	var ee *ExportError
	if errors.As(err, &ee) {
		return ee.Kind, true
	}
	return "", false
}

// IsFatal reports whether err should abort the run. Errors that carry no
// kind are treated as fatal.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	kind, ok := KindOf(err)
	if !ok {
		return true
	}
	return kind.Fatal()
}
