package thermoml

import (
	"errors"
	"fmt"
)

// Sentinel errors classifying why a document could not be extracted.
// Each one is fatal to the containing document only.
var (
	// ErrDocumentLoad indicates the XML could not be read or decoded.
	ErrDocumentLoad = errors.New("document load failure")

	// ErrSchemaAssumption indicates a structural assumption about the
	// schema did not hold, e.g. a constraint with two type tags.
	ErrSchemaAssumption = errors.New("schema assumption violated")

	// ErrUnresolvedReference indicates a registry number with no matching
	// compound declaration.
	ErrUnresolvedReference = errors.New("unresolved compound reference")
)

// LoadError wraps a decoding failure with the file it came from.
type LoadError struct {
	Filename string
	Err      error
}

func (e *LoadError) Error() string {
	if e.Filename != "" {
		return fmt.Sprintf("failed to load %s: %v", e.Filename, e.Err)
	}
	return fmt.Sprintf("failed to load ThermoML document: %v", e.Err)
}

// Unwrap exposes both ErrDocumentLoad and the underlying cause.
func (e *LoadError) Unwrap() []error {
	return []error{ErrDocumentLoad, e.Err}
}

// SchemaError reports a violated "exactly one" style assumption.
type SchemaError struct {
	Element string
	Message string
	Count   int
}

func (e *SchemaError) Error() string {
	if e.Count > 0 {
		return fmt.Sprintf("%s: %s (got %d)", e.Element, e.Message, e.Count)
	}
	return fmt.Sprintf("%s: %s", e.Element, e.Message)
}

func (e *SchemaError) Unwrap() error {
	return ErrSchemaAssumption
}

// ReferenceError reports a compound reference that cannot be resolved.
type ReferenceError struct {
	// Context names where the reference appeared, e.g. "Component".
	Context string

	// RegNum is the referenced organization number.
	RegNum int

	// Missing is set when the element carried no registry number at all.
	Missing bool
}

func (e *ReferenceError) Error() string {
	if e.Missing {
		return fmt.Sprintf("%s: missing registry number", e.Context)
	}
	return fmt.Sprintf("%s: no compound with registry number %d", e.Context, e.RegNum)
}

func (e *ReferenceError) Unwrap() error {
	return ErrUnresolvedReference
}
