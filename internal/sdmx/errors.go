package sdmx

import (
	"errors"
	"fmt"
	"strings"
)

// Error families. Every concrete error type in this package matches exactly
// one family via errors.Is, so callers can branch coarsely:
//
//	if errors.Is(err, sdmx.ErrHierarchy) { ... }
//
// and still recover full context with errors.As:
//
//	var perr *sdmx.HierarchyPathError
//	if errors.As(err, &perr) { log.Printf("bad segment %q", perr.Segment) }
//
// None of these are fatal to the caller's run: schema and hierarchy errors
// abort schema construction, row errors are scoped to the row that caused
// them.
var (
	ErrSchema    = errors.New("schema error")
	ErrHierarchy = errors.New("hierarchy error")
	ErrRow       = errors.New("row error")
)

// ErrFinalized is returned by Builder.AddGroup once Finalize has been called.
var ErrFinalized = errors.New("dataset already finalized")

// DuplicateCodeError reports a Register call for a code id that already
// exists. Code ids are unique across the whole codelist, not per sibling set.
type DuplicateCodeError struct {
	ID string
}

func (e *DuplicateCodeError) Error() string {
	return fmt.Sprintf("duplicate code %q", e.ID)
}

func (e *DuplicateCodeError) Is(target error) bool { return target == ErrHierarchy }

// UnknownParentError reports a Register call whose parent id has not been
// registered yet. Parents must always precede their children.
type UnknownParentError struct {
	ID     string
	Parent string
}

func (e *UnknownParentError) Error() string {
	return fmt.Sprintf("code %q references unknown parent %q", e.ID, e.Parent)
}

func (e *UnknownParentError) Is(target error) bool { return target == ErrHierarchy }

// HierarchyPathError reports the first segment of a path that could not be
// resolved: either the id is not registered at all (Missing), or it is
// registered under a parent other than the one the path implies. The
// expected and actual parents are both carried so the bad input can be
// located without re-deriving the walk.
type HierarchyPathError struct {
	Path       []string
	Segment    string
	Index      int
	WantParent string // parent implied by the path; empty at index 0
	GotParent  string // registered parent when the segment exists; empty for roots
	Missing    bool   // segment is not registered at all
}

func (e *HierarchyPathError) Error() string {
	path := strings.Join(e.Path, "|")
	if e.Missing {
		if e.Index == 0 {
			return fmt.Sprintf("invalid hierarchy path %q: code %q is not registered", path, e.Segment)
		}
		return fmt.Sprintf("invalid hierarchy path %q: code %q is not registered (expected under %q)", path, e.Segment, e.WantParent)
	}
	got := e.GotParent
	if got == "" {
		got = "(root)"
	}
	return fmt.Sprintf("invalid hierarchy path %q: code %q has parent %q, want %q", path, e.Segment, got, e.WantParent)
}

func (e *HierarchyPathError) Is(target error) bool { return target == ErrHierarchy }

// ConceptConflictError reports a concept id being re-added with a different
// name. Idempotent re-registration with an identical name is allowed;
// silent redefinition is not.
type ConceptConflictError struct {
	ID       string
	Existing string
	Incoming string
}

func (e *ConceptConflictError) Error() string {
	return fmt.Sprintf("concept %q redefined: name %q conflicts with existing %q", e.ID, e.Incoming, e.Existing)
}

func (e *ConceptConflictError) Is(target error) bool { return target == ErrSchema }

// UnknownConceptError reports a dimension, attribute or enumeration binding
// that references a concept id absent from the scheme.
type UnknownConceptError struct {
	ID string
}

func (e *UnknownConceptError) Error() string {
	return fmt.Sprintf("unknown concept %q", e.ID)
}

func (e *UnknownConceptError) Is(target error) bool { return target == ErrSchema }

// EnumerationConflictError reports a second enumeration binding on a scheme
// that already has one. This data model carries exactly one enumerated
// concept.
type EnumerationConflictError struct {
	Existing string
	Incoming string
}

func (e *EnumerationConflictError) Error() string {
	return fmt.Sprintf("enumeration already bound to concept %q, cannot bind %q", e.Existing, e.Incoming)
}

func (e *EnumerationConflictError) Is(target error) bool { return target == ErrSchema }

// DuplicateComponentError reports a dimension or attribute id declared twice
// within one structure.
type DuplicateComponentError struct {
	ID string
}

func (e *DuplicateComponentError) Error() string {
	return fmt.Sprintf("component %q already declared", e.ID)
}

func (e *DuplicateComponentError) Is(target error) bool { return target == ErrSchema }

// SchemaFrozenError reports a mutation attempted after the named object was
// sealed. Schema objects freeze before row processing begins; late mutation
// fails fast instead of racing the readers.
type SchemaFrozenError struct {
	What string
}

func (e *SchemaFrozenError) Error() string {
	return fmt.Sprintf("%s is sealed against mutation", e.What)
}

func (e *SchemaFrozenError) Is(target error) bool { return target == ErrSchema }

// MissingFieldError reports a row (or a header, Line 0) that lacks a
// declared key-defining field.
type MissingFieldError struct {
	Field string
	Line  int
}

func (e *MissingFieldError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: missing required field %q", e.Line, e.Field)
	}
	return fmt.Sprintf("missing required field %q", e.Field)
}

func (e *MissingFieldError) Is(target error) bool { return target == ErrRow }

// ValueError reports a cell that violates the declared value policy: a
// non-numeric cell under a strict numeric policy, or an empty cell where
// empty cells are declared errors (Value is empty in that case).
type ValueError struct {
	Label string
	Value string
	Line  int
}

func (e *ValueError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("line %d: column %q: empty cell", e.Line, e.Label)
	}
	return fmt.Sprintf("line %d: column %q: value %q is not numeric", e.Line, e.Label, e.Value)
}

func (e *ValueError) Is(target error) bool { return target == ErrRow }

// RowError scopes any error to the input row it occurred on. Unwrap exposes
// the cause, so a hierarchy failure inside a row matches both ErrRow and
// ErrHierarchy.
type RowError struct {
	Line int
	Err  error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }

func (e *RowError) Is(target error) bool { return target == ErrRow }

// DuplicateKeyError reports a second group arriving for a series key that
// was already added while merging is disabled. Data is never silently
// dropped or folded.
type DuplicateKeyError struct {
	Key *SeriesKey
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("duplicate series key [%s]", e.Key)
}

func (e *DuplicateKeyError) Is(target error) bool { return target == ErrRow }

// AttributeConflictError reports two merged groups disagreeing on an
// attribute value for the same series.
type AttributeConflictError struct {
	Key       *SeriesKey
	Attribute string
	Existing  string
	Incoming  string
}

func (e *AttributeConflictError) Error() string {
	return fmt.Sprintf("series [%s]: attribute %q value %q conflicts with existing %q",
		e.Key, e.Attribute, e.Incoming, e.Existing)
}

func (e *AttributeConflictError) Is(target error) bool { return target == ErrRow }

// RowErrorList collects per-row failures in collect mode. It reports a
// compact summary; individual entries keep their full context.
type RowErrorList []*RowError

func (l RowErrorList) Error() string {
	switch len(l) {
	case 0:
		return "no row errors"
	case 1:
		return l[0].Error()
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d row errors; first: %v", len(l), l[0])
	return sb.String()
}

// AsRowErrors unwraps err into a RowErrorList when possible, so callers can
// iterate individual failures after a collect-mode run.
func AsRowErrors(err error) (RowErrorList, bool) {
	var list RowErrorList
	if errors.As(err, &list) {
		return list, true
	}
	return nil, false
}
