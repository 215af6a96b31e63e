package sdmx

import (
	"errors"
	"testing"
)

func TestConceptSchemeAdd(t *testing.T) {
	t.Parallel()

	t.Run("upsert is idempotent", func(t *testing.T) {
		t.Parallel()
		cs := NewConceptScheme("CS")
		first, err := cs.Add("REGION", "Geographic region")
		if err != nil {
			t.Fatalf("Add: %v", err)
		}
		again, err := cs.Add("REGION", "Geographic region")
		if err != nil {
			t.Fatalf("re-Add: %v", err)
		}
		if first != again {
			t.Errorf("re-Add returned a different concept")
		}
		if cs.Len() != 1 {
			t.Errorf("Len = %d, want 1", cs.Len())
		}
	})

	t.Run("redefinition with different name fails", func(t *testing.T) {
		t.Parallel()
		cs := NewConceptScheme("CS")
		if _, err := cs.Add("UNIT", "Unit of measure"); err != nil {
			t.Fatalf("Add: %v", err)
		}
		_, err := cs.Add("UNIT", "Currency unit")
		var conflict *ConceptConflictError
		if !errors.As(err, &conflict) {
			t.Fatalf("want ConceptConflictError, got %v", err)
		}
		if conflict.Existing != "Unit of measure" || conflict.Incoming != "Currency unit" {
			t.Errorf("conflict = %+v", conflict)
		}
		if !errors.Is(err, ErrSchema) {
			t.Errorf("ConceptConflictError should match ErrSchema")
		}
	})

	t.Run("empty name defaults to id", func(t *testing.T) {
		t.Parallel()
		cs := NewConceptScheme("CS")
		c, err := cs.Add("MODEL", "")
		if err != nil {
			t.Fatalf("Add: %v", err)
		}
		if c.Name != "MODEL" {
			t.Errorf("Name = %q, want MODEL", c.Name)
		}
		// Defaulted name and explicit identical name do not conflict.
		if _, err := cs.Add("MODEL", "MODEL"); err != nil {
			t.Errorf("re-Add with explicit name: %v", err)
		}
	})
}

func TestBindEnumeration(t *testing.T) {
	t.Parallel()

	t.Run("binds once", func(t *testing.T) {
		t.Parallel()
		cs := NewConceptScheme("CS")
		if _, err := cs.Add("VARIABLE", ""); err != nil {
			t.Fatal(err)
		}
		cl := NewCodelist("CL")
		if err := cs.BindEnumeration("VARIABLE", cl); err != nil {
			t.Fatalf("BindEnumeration: %v", err)
		}
		c, ok := cs.Enumerated()
		if !ok || c.ID != "VARIABLE" || c.Enum != cl {
			t.Fatalf("Enumerated = %+v ok=%v", c, ok)
		}
		// Same concept, same codelist: no-op.
		if err := cs.BindEnumeration("VARIABLE", cl); err != nil {
			t.Errorf("idempotent rebind: %v", err)
		}
	})

	t.Run("unknown concept fails", func(t *testing.T) {
		t.Parallel()
		cs := NewConceptScheme("CS")
		err := cs.BindEnumeration("VARIABLE", NewCodelist("CL"))
		var unk *UnknownConceptError
		if !errors.As(err, &unk) {
			t.Fatalf("want UnknownConceptError, got %v", err)
		}
	})

	t.Run("second enumerated concept fails", func(t *testing.T) {
		t.Parallel()
		cs := NewConceptScheme("CS")
		for _, id := range []string{"VARIABLE", "FUEL"} {
			if _, err := cs.Add(id, ""); err != nil {
				t.Fatal(err)
			}
		}
		if err := cs.BindEnumeration("VARIABLE", NewCodelist("CL1")); err != nil {
			t.Fatal(err)
		}
		err := cs.BindEnumeration("FUEL", NewCodelist("CL2"))
		var conflict *EnumerationConflictError
		if !errors.As(err, &conflict) {
			t.Fatalf("want EnumerationConflictError, got %v", err)
		}
		if conflict.Existing != "VARIABLE" || conflict.Incoming != "FUEL" {
			t.Errorf("conflict = %+v", conflict)
		}
	})
}
