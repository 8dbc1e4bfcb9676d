// Package measurement flattens the PureOrMixtureData sections of a ThermoML
// document into one Record per NumValues block.
package measurement

import (
	"fmt"
	"sort"
)

// Fixed record keys.
const (
	FieldFilename    = "filename"
	FieldComponents  = "components"
	FieldPressure    = "Pressure, kPa"
	FieldTemperature = "Temperature, K"
	FieldPhase       = "phase"
)

// Suffixes and separators used to build dynamic keys and values.
const (
	// StdSuffix is appended to a property label for its standard uncertainty.
	StdSuffix = "_std"

	// MetadataSuffix is appended to a composition constraint label.
	MetadataSuffix = " metadata"

	// VariableMetadataSuffix is appended to a composition variable label.
	VariableMetadataSuffix = " Variable metadata"

	// ComponentSeparator joins component names and solvent names.
	ComponentSeparator = "__"

	// SolventSeparator separates a compound from its solvents in metadata.
	SolventSeparator = "___"

	// MaxInChIComponents is how many components get an InChI column.
	MaxInChIComponents = 4
)

// InChIField returns the key holding the InChI of the component at the
// given 1-based position.
func InChIField(position int) string {
	return fmt.Sprintf("component_%d_inchi", position)
}

// FixedFields returns the keys every tabular export places first.
func FixedFields() []string {
	fields := []string{FieldFilename, FieldComponents}
	for position := 1; position <= MaxInChIComponents; position++ {
		fields = append(fields, InChIField(position))
	}
	return append(fields, FieldPressure, FieldTemperature, FieldPhase)
}

// Record is one flattened measurement. Its key set depends on which
// constraint, variable, and property labels the section declares; an
// absent key means "not measured".
type Record map[string]Value

// Clone returns an independent copy of the record.
func (record Record) Clone() Record {
	clone := make(Record, len(record))
	for key, value := range record {
		clone[key] = value
	}
	return clone
}

// Keys returns the record keys in sorted order.
func (record Record) Keys() []string {
	keys := make([]string, 0, len(record))
	for key := range record {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
