package measurement

import (
	"fmt"
	"strings"

	"github.com/coolbeans/thermoml/pkg/compound"
	"github.com/coolbeans/thermoml/pkg/thermoml"
)

// compositionLabels are the constraint and variable types that refer to a
// specific compound and optionally its solvents.
var compositionLabels = []string{
	"Mole fraction",
	"Mass fraction",
	"Molality, mol/kg",
	"Solvent: Amount concentration (molarity), mol/dm3",
}

// IsCompositionLabel reports whether label is a composition type.
// Matching ignores case.
func IsCompositionLabel(label string) bool {
	for _, candidate := range compositionLabels {
		if strings.EqualFold(label, candidate) {
			return true
		}
	}
	return false
}

// propertyDefinition is the meaning of a section-local property number.
type propertyDefinition struct {
	label string
	phase string
}

// Extract flattens every section of document into records, in section
// order and then NumValues order. registry must belong to the same
// document. Any unresolved reference or violated schema assumption fails
// the whole document and no records are returned.
func Extract(document *thermoml.Document, registry *compound.Registry) ([]Record, error) {
	var records []Record

	for index, dataset := range document.Datasets {
		sectionRecords, err := extractSection(document.Filename, dataset, registry)
		if err != nil {
			sectionNumber := dataset.Number
			if sectionNumber == 0 {
				sectionNumber = index + 1
			}
			return nil, fmt.Errorf("PureOrMixtureData %d: %w", sectionNumber, err)
		}
		records = append(records, sectionRecords...)
	}

	return records, nil
}

// extractSection produces one record per NumValues block of a section.
func extractSection(filename string, dataset thermoml.PureOrMixtureData, registry *compound.Registry) ([]Record, error) {
	base, err := baseRecord(filename, dataset.Components, registry)
	if err != nil {
		return nil, err
	}

	if err := applyConstraints(base, dataset.Constraints, registry); err != nil {
		return nil, err
	}

	variables, err := defineVariables(base, dataset.Variables, registry)
	if err != nil {
		return nil, err
	}

	properties, err := defineProperties(dataset.Properties)
	if err != nil {
		return nil, err
	}

	records := make([]Record, 0, len(dataset.NumValues))
	for _, block := range dataset.NumValues {
		record := base.Clone()

		for _, variableValue := range block.VariableValues {
			label, ok := variables[variableValue.Number]
			if !ok {
				return nil, &thermoml.SchemaError{
					Element: "VariableValue",
					Message: fmt.Sprintf("undeclared variable number %d", variableValue.Number),
				}
			}
			record[label] = Number(variableValue.Value)
		}

		for _, propertyValue := range block.PropertyValues {
			definition, ok := properties[propertyValue.Number]
			if !ok {
				return nil, &thermoml.SchemaError{
					Element: "PropertyValue",
					Message: fmt.Sprintf("undeclared property number %d", propertyValue.Number),
				}
			}

			record[definition.label] = Number(propertyValue.Value)
			// With several properties in one block only the last phase survives.
			record[FieldPhase] = String(definition.phase)

			if uncertainty, ok := propertyValue.StdUncertainty(); ok {
				record[definition.label+StdSuffix] = Number(uncertainty)
			} else {
				record[definition.label+StdSuffix] = NaN()
			}
		}

		records = append(records, record)
	}

	return records, nil
}

// baseRecord builds the state shared by every record of a section.
func baseRecord(filename string, components []thermoml.Component, registry *compound.Registry) (Record, error) {
	names := make([]string, 0, len(components))
	base := Record{
		FieldFilename:    String(filename),
		FieldPressure:    Null(),
		FieldTemperature: Null(),
	}

	for position, component := range components {
		entry, err := registry.Resolve("Component", component.RegNum)
		if err != nil {
			return nil, err
		}
		names = append(names, entry.CommonName)

		if position < MaxInChIComponents {
			inchi := Null()
			if entry.HasInChI {
				inchi = String(entry.InChI)
			}
			base[InChIField(position+1)] = inchi
		}
	}

	base[FieldComponents] = String(strings.Join(names, ComponentSeparator))
	return base, nil
}

// applyConstraints stores every constraint value in base.
func applyConstraints(base Record, constraints []thermoml.Constraint, registry *compound.Registry) error {
	for _, constraint := range constraints {
		label, err := constraint.ID.Type.Single("ConstraintType")
		if err != nil {
			return err
		}
		base[label] = Number(constraint.Value)

		if IsCompositionLabel(label) {
			metadata, err := compositionMetadata("Constraint", constraint.ID.RegNum, constraint.Solvent, registry)
			if err != nil {
				return err
			}
			base[label+MetadataSuffix] = String(metadata)
		}
	}
	return nil
}

// defineVariables maps variable numbers to labels and stores composition
// metadata in base.
func defineVariables(base Record, variables []thermoml.Variable, registry *compound.Registry) (map[int]string, error) {
	labels := make(map[int]string, len(variables))

	for _, variable := range variables {
		label, err := variable.ID.Type.Single("VariableType")
		if err != nil {
			return nil, err
		}
		labels[variable.Number] = label

		if IsCompositionLabel(label) {
			metadata, err := compositionMetadata("Variable", variable.ID.RegNum, variable.Solvent, registry)
			if err != nil {
				return nil, err
			}
			base[label+VariableMetadataSuffix] = String(metadata)
		}
	}

	return labels, nil
}

// defineProperties maps property numbers to their label and phase.
func defineProperties(properties []thermoml.Property) (map[int]propertyDefinition, error) {
	definitions := make(map[int]propertyDefinition, len(properties))

	for _, property := range properties {
		label, err := property.MethodID.Group.PropertyName()
		if err != nil {
			return nil, fmt.Errorf("property %d: %w", property.Number, err)
		}
		phase, err := property.Phase()
		if err != nil {
			return nil, fmt.Errorf("property %d: %w", property.Number, err)
		}
		definitions[property.Number] = propertyDefinition{label: label, phase: phase}
	}

	return definitions, nil
}

// compositionMetadata formats "<compound>___<solvent1>__<solvent2>". Without
// solvents it is the compound name alone.
func compositionMetadata(context string, regNum *thermoml.RegNum, solvent *thermoml.Solvent, registry *compound.Registry) (string, error) {
	entry, err := registry.Resolve(context, regNum)
	if err != nil {
		return "", err
	}

	if solvent == nil || len(solvent.RegNums) == 0 {
		return entry.CommonName, nil
	}

	solventNames := make([]string, 0, len(solvent.RegNums))
	for index := range solvent.RegNums {
		solventEntry, err := registry.Resolve("Solvent", &solvent.RegNums[index])
		if err != nil {
			return "", err
		}
		solventNames = append(solventNames, solventEntry.CommonName)
	}

	return entry.CommonName + SolventSeparator + strings.Join(solventNames, ComponentSeparator), nil
}
