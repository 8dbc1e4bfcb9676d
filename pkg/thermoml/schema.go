// Package thermoml binds the subset of the IUPAC ThermoML schema needed to
// extract measurement records: compounds, PureOrMixtureData sections, their
// constraints, variables, properties, and NumValues blocks.
//
// Elements are matched by local name, so documents may carry the
// http://www.iupac.org/namespaces/ThermoML namespace or none at all.
package thermoml

import (
	"encoding/xml"
	"strings"
)


// Document represents the top-level <DataReport> element.
type Document struct {
	XMLName   xml.Name            `xml:"DataReport"`
	Compounds []Compound          `xml:"Compound"`
	Datasets  []PureOrMixtureData `xml:"PureOrMixtureData"`

	// Filename is the path the document was loaded from, if any.
	Filename string `xml:"-"`
}

// RegNum identifies a compound within one document.
type RegNum struct {
	OrgNum *int `xml:"nOrgNum"`
}

// Number returns the organization number and whether it was declared.
func (regNum *RegNum) Number() (int, bool) {
	if regNum == nil || regNum.OrgNum == nil {
		return 0, false
	}
	return *regNum.OrgNum, true
}

// Compound represents a <Compound> declaration.
type Compound struct {
	RegNum      *RegNum  `xml:"RegNum"`
	CommonNames []string `xml:"sCommonName"`
	Formula     string   `xml:"sFormulaMolec"`
	InChI       *string  `xml:"sStandardInChI"`
	InChIKey    string   `xml:"sStandardInChIKey"`
}

// PureOrMixtureData represents one experimental dataset block.
type PureOrMixtureData struct {
	Number      int          `xml:"nPureOrMixtureDataNumber"`
	Components  []Component  `xml:"Component"`
	Properties  []Property   `xml:"Property"`
	Constraints []Constraint `xml:"Constraint"`
	Variables   []Variable   `xml:"Variable"`
	NumValues   []NumValues  `xml:"NumValues"`
}

// Component references a compound taking part in a section.
type Component struct {
	RegNum       *RegNum `xml:"RegNum"`
	SampleNumber int     `xml:"nSampleNm"`
}

// Property declares a measured quantity of a section.
type Property struct {
	Number   int              `xml:"nPropNumber"`
	MethodID PropertyMethodID `xml:"Property-MethodID"`
	Phases   []PropPhaseID    `xml:"PropPhaseID"`
}

// PropertyMethodID represents the <Property-MethodID> element.
type PropertyMethodID struct {
	Group PropertyGroup `xml:"PropertyGroup"`
}

// PropertyGroup holds the property-group choice (VolumetricProp,
// TransportProp, ...). Any child element is accepted.
type PropertyGroup struct {
	Entries []PropertyGroupEntry `xml:",any"`
}

// PropertyGroupEntry is one child of <PropertyGroup>.
type PropertyGroupEntry struct {
	XMLName    xml.Name
	PropName   string `xml:"ePropName"`
	MethodName string `xml:"eMethodName"`
}

// PropPhaseID names the phase a property was measured in.
type PropPhaseID struct {
	Phase string `xml:"ePropPhase"`
}

// Constraint is a condition held fixed for a whole section.
type Constraint struct {
	ID      ConstraintID `xml:"ConstraintID"`
	Value   float64      `xml:"nConstraintValue"`
	Solvent *Solvent     `xml:"Solvent"`
}

// ConstraintID carries the constraint type and, for composition
// constraints, the constrained compound.
type ConstraintID struct {
	Type   TypeChoice `xml:"ConstraintType"`
	RegNum *RegNum    `xml:"RegNum"`
}

// Variable is a condition that changes between NumValues blocks.
type Variable struct {
	Number  int        `xml:"nVarNumber"`
	ID      VariableID `xml:"VariableID"`
	Solvent *Solvent   `xml:"Solvent"`
}

// VariableID carries the variable type and, for composition variables,
// the compound whose composition varies.
type VariableID struct {
	Type   TypeChoice `xml:"VariableType"`
	RegNum *RegNum    `xml:"RegNum"`
}

// Solvent lists the solvent compounds of a composition constraint or variable.
type Solvent struct {
	RegNums []RegNum `xml:"RegNum"`
}

// TypeChoice holds the children of <ConstraintType> or <VariableType>.
// The schema defines it as a choice, so exactly one child is expected.
type TypeChoice struct {
	Tags []TypeTag `xml:",any"`
}

// TypeTag is one child of a TypeChoice, e.g. <eTemperature>Temperature, K</eTemperature>.
type TypeTag struct {
	XMLName xml.Name
	Value   string `xml:",chardata"`
}

// NumValues is one row of simultaneous variable and property readings.
type NumValues struct {
	VariableValues []VariableValue `xml:"VariableValue"`
	PropertyValues []PropertyValue `xml:"PropertyValue"`
}

// VariableValue is a reading of a declared variable.
type VariableValue struct {
	Number int     `xml:"nVarNumber"`
	Value  float64 `xml:"nVarValue"`
}

// PropertyValue is a reading of a declared property.
type PropertyValue struct {
	Number        int               `xml:"nPropNumber"`
	Value         float64           `xml:"nPropValue"`
	Uncertainties []PropUncertainty `xml:"PropUncertainty"`
}

// PropUncertainty is one uncertainty assessment of a property value.
type PropUncertainty struct {
	StdUncertValue *float64 `xml:"nStdUncertValue"`
}

// Single returns the label of the only type tag. element names the owning
// element for error messages.
func (choice TypeChoice) Single(element string) (string, error) {
	if len(choice.Tags) != 1 {
		return "", &SchemaError{
			Element: element,
			Message: "expected exactly one type tag",
			Count:   len(choice.Tags),
		}
	}
	return cleanXMLText(choice.Tags[0].Value), nil
}

// PropertyName returns the ePropName of the single property-group entry.
func (group PropertyGroup) PropertyName() (string, error) {
	if len(group.Entries) != 1 {
		return "", &SchemaError{
			Element: "PropertyGroup",
			Message: "expected exactly one property group entry",
			Count:   len(group.Entries),
		}
	}
	return cleanXMLText(group.Entries[0].PropName), nil
}

// Phase returns the first declared measurement phase.
func (property Property) Phase() (string, error) {
	if len(property.Phases) == 0 {
		return "", &SchemaError{
			Element: "PropPhaseID",
			Message: "property declares no phase",
		}
	}
	return cleanXMLText(property.Phases[0].Phase), nil
}

// StdUncertainty returns the standard uncertainty of the first
// PropUncertainty entry, if one was reported.
func (value PropertyValue) StdUncertainty() (float64, bool) {
	if len(value.Uncertainties) == 0 || value.Uncertainties[0].StdUncertValue == nil {
		return 0, false
	}
	return *value.Uncertainties[0].StdUncertValue, true
}

// cleanXMLText cleans up text extracted from XML, normalizing whitespace.
func cleanXMLText(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
