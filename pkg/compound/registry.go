// Package compound builds the per-document compound registry that resolves
// ThermoML registry numbers (nOrgNum) to names, formulas, and InChI strings.
package compound

import (
	"fmt"

	"github.com/coolbeans/thermoml/pkg/thermoml"
)

// Compound is a chemical substance declared once per document.
type Compound struct {
	RegNum     int    `json:"reg_num"`
	CommonName string `json:"common_name"`
	Formula    string `json:"formula"`

	// InChI is the standard InChI; empty when the document declares none.
	InChI    string `json:"inchi,omitempty"`
	HasInChI bool   `json:"-"`
}

// Registry resolves registry numbers of a single document. It is built
// once and read-only afterwards, so it may be shared between goroutines.
type Registry struct {
	compounds map[int]Compound
	order     []int
}

// BuildRegistry scans the compound declarations of document. A declaration
// without a registry number or common name fails the whole document.
func BuildRegistry(document *thermoml.Document) (*Registry, error) {
	registry := &Registry{
		compounds: make(map[int]Compound, len(document.Compounds)),
	}

	for index, declaration := range document.Compounds {
		regNum, ok := declaration.RegNum.Number()
		if !ok {
			return nil, fmt.Errorf("compound %d: %w", index+1, &thermoml.SchemaError{
				Element: "Compound",
				Message: "missing RegNum/nOrgNum",
			})
		}
		if len(declaration.CommonNames) == 0 {
			return nil, fmt.Errorf("compound %d: %w", regNum, &thermoml.SchemaError{
				Element: "Compound",
				Message: "missing sCommonName",
			})
		}

		entry := Compound{
			RegNum:     regNum,
			CommonName: declaration.CommonNames[0],
			Formula:    declaration.Formula,
		}
		if declaration.InChI != nil {
			entry.InChI = *declaration.InChI
			entry.HasInChI = true
		}

		// A repeated number replaces the earlier declaration.
		if _, exists := registry.compounds[regNum]; !exists {
			registry.order = append(registry.order, regNum)
		}
		registry.compounds[regNum] = entry
	}

	return registry, nil
}

// Lookup returns the compound with the given registry number.
func (registry *Registry) Lookup(regNum int) (Compound, bool) {
	entry, ok := registry.compounds[regNum]
	return entry, ok
}

// Resolve returns the compound referenced by regNum, or a
// *thermoml.ReferenceError naming context when it is missing or undeclared.
func (registry *Registry) Resolve(context string, regNum *thermoml.RegNum) (Compound, error) {
	number, ok := regNum.Number()
	if !ok {
		return Compound{}, &thermoml.ReferenceError{Context: context, Missing: true}
	}

	entry, ok := registry.compounds[number]
	if !ok {
		return Compound{}, &thermoml.ReferenceError{Context: context, RegNum: number}
	}
	return entry, nil
}

// Name returns the common name of regNum.
func (registry *Registry) Name(regNum int) (string, error) {
	entry, ok := registry.compounds[regNum]
	if !ok {
		return "", &thermoml.ReferenceError{Context: "Compound", RegNum: regNum}
	}
	return entry.CommonName, nil
}

// Formula returns the molecular formula of regNum.
func (registry *Registry) Formula(regNum int) (string, error) {
	entry, ok := registry.compounds[regNum]
	if !ok {
		return "", &thermoml.ReferenceError{Context: "Compound", RegNum: regNum}
	}
	return entry.Formula, nil
}

// InChI returns the standard InChI of regNum and whether one was declared.
func (registry *Registry) InChI(regNum int) (string, bool, error) {
	entry, ok := registry.compounds[regNum]
	if !ok {
		return "", false, &thermoml.ReferenceError{Context: "Compound", RegNum: regNum}
	}
	return entry.InChI, entry.HasInChI, nil
}

// Compounds returns the registered compounds in declaration order.
func (registry *Registry) Compounds() []Compound {
	compounds := make([]Compound, 0, len(registry.order))
	for _, regNum := range registry.order {
		compounds = append(compounds, registry.compounds[regNum])
	}
	return compounds
}

// NameToFormula returns the common name to formula table of this document.
func (registry *Registry) NameToFormula() map[string]string {
	table := make(map[string]string, len(registry.compounds))
	for _, regNum := range registry.order {
		entry := registry.compounds[regNum]
		table[entry.CommonName] = entry.Formula
	}
	return table
}

// Len returns the number of registered compounds.
func (registry *Registry) Len() int {
	return len(registry.order)
}
