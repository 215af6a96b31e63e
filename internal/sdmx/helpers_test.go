package sdmx

import "testing"

// newTestCodelist registers the small energy hierarchy used across tests:
// Energy → Supply → Electricity, Energy → Demand absent on purpose.
func newTestCodelist(t *testing.T) *Codelist {
	t.Helper()
	cl := NewCodelist("CL_VARIABLE")
	for _, path := range [][]string{
		{"Energy"},
		{"Energy", "Supply"},
		{"Energy", "Supply", "Electricity"},
		{"Transport"},
	} {
		if _, err := cl.RegisterPath(path); err != nil {
			t.Fatalf("RegisterPath(%v): %v", path, err)
		}
	}
	return cl
}

// newTestStructure builds and seals the canonical wide-format structure:
// MODEL, SCENARIO, REGION, VARIABLE (enumerated) + varying YEAR, attribute
// UNIT.
func newTestStructure(t *testing.T) *StructureDefinition {
	t.Helper()
	cs := NewConceptScheme("CS_TEST")
	for _, id := range []string{"MODEL", "SCENARIO", "REGION", "VARIABLE", "YEAR", "UNIT"} {
		if _, err := cs.Add(id, ""); err != nil {
			t.Fatalf("Add(%s): %v", id, err)
		}
	}
	cl := newTestCodelist(t)
	if err := cs.BindEnumeration("VARIABLE", cl); err != nil {
		t.Fatalf("BindEnumeration: %v", err)
	}

	sd := NewStructure("DSD_TEST", cs)
	for _, d := range []struct{ id, concept string }{
		{"MODEL", "MODEL"},
		{"SCENARIO", "SCENARIO"},
		{"REGION", "REGION"},
		{"VARIABLE", "VARIABLE"},
		{"YEAR", "YEAR"},
	} {
		if err := sd.AddDimension(d.id, d.concept); err != nil {
			t.Fatalf("AddDimension(%s): %v", d.id, err)
		}
	}
	if err := sd.AddAttribute("UNIT", "UNIT"); err != nil {
		t.Fatalf("AddAttribute(UNIT): %v", err)
	}
	if err := sd.SetVaryingDimension("YEAR"); err != nil {
		t.Fatalf("SetVaryingDimension: %v", err)
	}
	if err := sd.Seal(); err != nil {
		t.Fatalf("Seal: %v", err)
	}
	return sd
}

// testKey builds a key over MODEL/SCENARIO/REGION/VARIABLE in order.
func testKey(model, scenario, region, variable string) *SeriesKey {
	return NewKey(
		KeyValue{Dim: "MODEL", Value: model},
		KeyValue{Dim: "SCENARIO", Value: scenario},
		KeyValue{Dim: "REGION", Value: region},
		KeyValue{Dim: "VARIABLE", Value: variable},
	)
}
