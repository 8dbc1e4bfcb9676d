package compound

import (
	"errors"
	"strings"
	"testing"

	"github.com/coolbeans/thermoml/pkg/thermoml"
)

func parseDocument(t *testing.T, input string) *thermoml.Document {
	t.Helper()
	document, err := thermoml.Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("failed to parse fixture: %v", err)
	}
	return document
}

func TestBuildRegistryRoundTrip(t *testing.T) {
	document := parseDocument(t, `<DataReport>
  <Compound>
    <RegNum><nOrgNum>1</nOrgNum></RegNum>
    <sStandardInChI>InChI=1S/H2O/h1H2</sStandardInChI>
    <sFormulaMolec>H2O</sFormulaMolec>
    <sCommonName>Water</sCommonName>
  </Compound>
</DataReport>`)

	registry, err := BuildRegistry(document)
	if err != nil {
		t.Fatalf("BuildRegistry failed: %v", err)
	}

	entry, ok := registry.Lookup(1)
	if !ok {
		t.Fatal("expected compound 1")
	}
	want := Compound{RegNum: 1, CommonName: "Water", Formula: "H2O", InChI: "InChI=1S/H2O/h1H2", HasInChI: true}
	if entry != want {
		t.Errorf("got %+v, want %+v", entry, want)
	}

	name, err := registry.Name(1)
	if err != nil || name != "Water" {
		t.Errorf("Name(1) = %q, %v", name, err)
	}
	formula, err := registry.Formula(1)
	if err != nil || formula != "H2O" {
		t.Errorf("Formula(1) = %q, %v", formula, err)
	}
	inchi, declared, err := registry.InChI(1)
	if err != nil || !declared || inchi != "InChI=1S/H2O/h1H2" {
		t.Errorf("InChI(1) = %q, %v, %v", inchi, declared, err)
	}
}

func TestBuildRegistryFirstNameAndOrder(t *testing.T) {
	document := parseDocument(t, `<DataReport>
  <Compound><RegNum><nOrgNum>5</nOrgNum></RegNum><sFormulaMolec>C2H6O</sFormulaMolec>
    <sCommonName>ethanol</sCommonName><sCommonName>ethyl alcohol</sCommonName></Compound>
  <Compound><RegNum><nOrgNum>2</nOrgNum></RegNum><sFormulaMolec>H2O</sFormulaMolec>
    <sCommonName>water</sCommonName></Compound>
</DataReport>`)

	registry, err := BuildRegistry(document)
	if err != nil {
		t.Fatalf("BuildRegistry failed: %v", err)
	}

	if registry.Len() != 2 {
		t.Fatalf("expected 2 compounds, got %d", registry.Len())
	}

	compounds := registry.Compounds()
	if compounds[0].RegNum != 5 || compounds[1].RegNum != 2 {
		t.Errorf("expected declaration order [5 2], got [%d %d]", compounds[0].RegNum, compounds[1].RegNum)
	}
	if compounds[0].CommonName != "ethanol" {
		t.Errorf("expected first common name, got %q", compounds[0].CommonName)
	}
	if compounds[0].HasInChI {
		t.Error("expected no InChI for ethanol")
	}

	table := registry.NameToFormula()
	if table["ethanol"] != "C2H6O" || table["water"] != "H2O" || len(table) != 2 {
		t.Errorf("unexpected name to formula table: %v", table)
	}
}

func TestBuildRegistryFailures(t *testing.T) {
	testCases := []struct {
		name  string
		input string
	}{
		{
			name:  "missing registry number",
			input: `<DataReport><Compound><sCommonName>water</sCommonName></Compound></DataReport>`,
		},
		{
			name:  "missing common name",
			input: `<DataReport><Compound><RegNum><nOrgNum>1</nOrgNum></RegNum></Compound></DataReport>`,
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			_, err := BuildRegistry(parseDocument(t, testCase.input))
			if !errors.Is(err, thermoml.ErrSchemaAssumption) {
				t.Errorf("expected ErrSchemaAssumption, got %v", err)
			}
		})
	}
}

func TestRegistryUnresolved(t *testing.T) {
	registry, err := BuildRegistry(&thermoml.Document{})
	if err != nil {
		t.Fatalf("BuildRegistry failed: %v", err)
	}

	if _, err := registry.Name(42); !errors.Is(err, thermoml.ErrUnresolvedReference) {
		t.Errorf("expected ErrUnresolvedReference from Name, got %v", err)
	}
	if _, err := registry.Formula(42); !errors.Is(err, thermoml.ErrUnresolvedReference) {
		t.Errorf("expected ErrUnresolvedReference from Formula, got %v", err)
	}
	if _, _, err := registry.InChI(42); !errors.Is(err, thermoml.ErrUnresolvedReference) {
		t.Errorf("expected ErrUnresolvedReference from InChI, got %v", err)
	}

	number := 42
	_, err = registry.Resolve("Solvent", &thermoml.RegNum{OrgNum: &number})
	var referenceErr *thermoml.ReferenceError
	if !errors.As(err, &referenceErr) {
		t.Fatalf("expected *ReferenceError, got %v", err)
	}
	if referenceErr.Context != "Solvent" || referenceErr.RegNum != 42 {
		t.Errorf("unexpected reference error %+v", referenceErr)
	}

	_, err = registry.Resolve("Component", nil)
	if !errors.As(err, &referenceErr) || !referenceErr.Missing {
		t.Errorf("expected missing reference error, got %v", err)
	}
}
