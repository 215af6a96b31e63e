package sdmx

import (
	"fmt"
	"slices"
	"strings"
)

// PathSeparator joins hierarchy segments in canonical path renderings.
const PathSeparator = "|"

// Code is one node in a codelist hierarchy: an id unique across the whole
// list, a display name, and the parent's id (empty for roots). Parent is an
// id back-reference, never a pointer, so the hierarchy stays a flat arena
// with O(1) existence and parent checks and no cyclic object graph.
type Code struct {
	ID     string
	Name   string
	Parent string
}

// Codelist is a flat registry of hierarchical codes. The forest invariants
// (unique ids, parent registered before child) are enforced at Register
// time; since a parent must already exist when its child arrives, the parent
// chain is always strictly older than the child and cycles cannot form.
//
// A Codelist is built once, then frozen. Read methods take no locks: after
// Freeze the list is safe to share across goroutines.
type Codelist struct {
	ID     string
	codes  map[string]*Code
	order  []string
	frozen bool
}

// NewCodelist returns an empty codelist with the given id.
func NewCodelist(id string) *Codelist {
	return &Codelist{ID: id, codes: make(map[string]*Code)}
}

// Register adds one code. parent may be empty for a root. An empty name
// defaults to the id. Fails with DuplicateCodeError when the id exists and
// UnknownParentError when the parent does not.
func (cl *Codelist) Register(id, name, parent string) (*Code, error) {
	if cl.frozen {
		return nil, &SchemaFrozenError{What: "codelist " + cl.ID}
	}
	if id == "" {
		return nil, fmt.Errorf("codelist %s: empty code id: %w", cl.ID, ErrHierarchy)
	}
	if _, ok := cl.codes[id]; ok {
		return nil, &DuplicateCodeError{ID: id}
	}
	if parent != "" {
		if _, ok := cl.codes[parent]; !ok {
			return nil, &UnknownParentError{ID: id, Parent: parent}
		}
	}
	if name == "" {
		name = id
	}
	c := &Code{ID: id, Name: name, Parent: parent}
	cl.codes[id] = c
	cl.order = append(cl.order, id)
	return c, nil
}

// RegisterPath registers a full ancestor chain given as path segments,
// e.g. ["Energy", "Supply", "Electricity"]. Missing segments are created
// under their predecessor (roots for the first segment); segments that
// already exist must sit under the parent the path implies, otherwise the
// call fails with HierarchyPathError exactly like ResolvePath would.
// Returns the final (most specific) code.
//
// Because every path carries its ancestors, callers feeding path strings
// never need to pre-sort input: parents are registered before children by
// construction.
func (cl *Codelist) RegisterPath(segments []string) (*Code, error) {
	if cl.frozen {
		return nil, &SchemaFrozenError{What: "codelist " + cl.ID}
	}
	if len(segments) == 0 {
		return nil, fmt.Errorf("codelist %s: empty path: %w", cl.ID, ErrHierarchy)
	}
	var last *Code
	for i, seg := range segments {
		want := ""
		if i > 0 {
			want = segments[i-1]
		}
		if c, ok := cl.codes[seg]; ok {
			if i > 0 && c.Parent != want {
				return nil, &HierarchyPathError{
					Path:       clonePath(segments),
					Segment:    seg,
					Index:      i,
					WantParent: want,
					GotParent:  c.Parent,
				}
			}
			last = c
			continue
		}
		c, err := cl.Register(seg, "", want)
		if err != nil {
			return nil, err
		}
		last = c
	}
	return last, nil
}

// ResolvePath walks the segments left to right: the first id must be
// registered (root or otherwise), each subsequent id must be registered with
// the previous segment as its literal parent. Returns the final code.
// "A|B" resolves only if B's registered parent is A; a B that exists under a
// different parent fails, it never resolves to the wrong node. ResolvePath
// is read-only and idempotent.
func (cl *Codelist) ResolvePath(segments []string) (*Code, error) {
	if len(segments) == 0 {
		return nil, fmt.Errorf("codelist %s: empty path: %w", cl.ID, ErrHierarchy)
	}
	var last *Code
	for i, seg := range segments {
		want := ""
		if i > 0 {
			want = segments[i-1]
		}
		c, ok := cl.codes[seg]
		if !ok {
			return nil, &HierarchyPathError{
				Path:       clonePath(segments),
				Segment:    seg,
				Index:      i,
				WantParent: want,
				Missing:    true,
			}
		}
		if i > 0 && c.Parent != want {
			return nil, &HierarchyPathError{
				Path:       clonePath(segments),
				Segment:    seg,
				Index:      i,
				WantParent: want,
				GotParent:  c.Parent,
			}
		}
		last = c
	}
	return last, nil
}

// Get returns the code registered under id.
func (cl *Codelist) Get(id string) (*Code, bool) {
	c, ok := cl.codes[id]
	return c, ok
}

// Path returns the full ancestor chain of a code, root first, by walking
// parent references. The inverse of RegisterPath: registering
// ["Energy","Supply","Electricity"] makes Path("Electricity") return those
// segments. Fails when id is not registered.
func (cl *Codelist) Path(id string) ([]string, error) {
	segs := make([]string, 0, 4)
	for cur := id; cur != ""; {
		c, ok := cl.codes[cur]
		if !ok {
			return nil, fmt.Errorf("code %q is not in codelist %s: %w", cur, cl.ID, ErrHierarchy)
		}
		segs = append(segs, c.ID)
		cur = c.Parent
	}
	slices.Reverse(segs)
	return segs, nil
}

// PathString returns the full ancestor chain joined with PathSeparator,
// e.g. "Energy|Supply|Electricity".
func (cl *Codelist) PathString(id string) (string, error) {
	segs, err := cl.Path(id)
	if err != nil {
		return "", err
	}
	return strings.Join(segs, PathSeparator), nil
}

// Children returns the ids of all codes whose parent is id, in registration
// order. Pass an empty id for the roots.
func (cl *Codelist) Children(id string) []string {
	var out []string
	for _, cid := range cl.order {
		if cl.codes[cid].Parent == id {
			out = append(out, cid)
		}
	}
	return out
}

// Codes returns all codes in registration order.
func (cl *Codelist) Codes() []*Code {
	out := make([]*Code, 0, len(cl.order))
	for _, id := range cl.order {
		out = append(out, cl.codes[id])
	}
	return out
}

// Len returns the number of registered codes.
func (cl *Codelist) Len() int { return len(cl.codes) }

// Freeze seals the codelist against further registration. Reads remain
// valid and lock-free.
func (cl *Codelist) Freeze() { cl.frozen = true }

// Frozen reports whether Freeze has been called.
func (cl *Codelist) Frozen() bool { return cl.frozen }

func clonePath(segments []string) []string {
	out := make([]string, len(segments))
	copy(out, segments)
	return out
}
