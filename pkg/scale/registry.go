package scale

import (
	"fmt"
	"strings"
)

// TypeID is an opaque handle into a Registry, assigned by the runtime that
// produced the metadata.
type TypeID uint32

// Kind discriminates the shape of a type definition.
type Kind int

const (
	KindComposite Kind = iota
	KindVariant
	KindSequence
	KindArray
	KindTuple
	KindPrimitive
	KindCompact
	KindBitSequence
)

// Primitive identifies a primitive type and its width.
type Primitive int

const (
	PrimBool Primitive = iota
	PrimChar
	PrimStr
	PrimU8
	PrimU16
	PrimU32
	PrimU64
	PrimU128
	PrimU256
	PrimI8
	PrimI16
	PrimI32
	PrimI64
	PrimI128
	PrimI256
)

// Field is one field of a composite or variant. Name is empty for
// positional (unnamed) fields.
type Field struct {
	Name string
	Type TypeID
}

// Variant is one arm of a variant type.
type Variant struct {
	Name   string
	Index  uint8
	Fields []Field
}

// TypeDef is the shape of a type. Exactly the members relevant to Kind are
// populated.
type TypeDef struct {
	Kind     Kind
	Fields   []Field   // KindComposite
	Variants []Variant // KindVariant
	Elem     TypeID    // KindSequence, KindArray, KindCompact
	Len      uint32    // KindArray
	Tuple    []TypeID  // KindTuple
	Prim     Primitive // KindPrimitive
}

// Type is a registry entry: a definition plus the ordered name-path segments
// the naming heuristics key off.
type Type struct {
	Path []string
	Def  TypeDef
}

// LastPathSegment returns the trailing path segment, or "" for anonymous
// types such as tuples and sequences.
func (t *Type) LastPathSegment() string {
	if len(t.Path) == 0 {
		return ""
	}
	return t.Path[len(t.Path)-1]
}

// PathContains reports whether any path segment equals one of the given names.
func (t *Type) PathContains(names ...string) bool {
	for _, seg := range t.Path {
		for _, n := range names {
			if seg == n {
				return true
			}
		}
	}
	return false
}

// Registry is the chain-supplied catalog of type descriptors. It is built
// once per runtime version and must not be mutated after construction;
// concurrent reads are safe.
type Registry struct {
	types map[TypeID]*Type
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{types: make(map[TypeID]*Type)}
}

// Define registers a type under id. Only metadata parsing and test fixtures
// call this; the registry is read-only afterwards.
func (r *Registry) Define(id TypeID, t Type) {
	cp := t
	r.types[id] = &cp
}

// Resolve returns the type for id, or an ErrUnresolvedType error.
func (r *Registry) Resolve(id TypeID) (*Type, error) {
	t, ok := r.types[id]
	if !ok {
		return nil, fmt.Errorf("type %d: %w", id, ErrUnresolvedType)
	}
	return t, nil
}

// Len returns the number of registered types.
func (r *Registry) Len() int {
	return len(r.types)
}

// FindByPathSuffix returns the lowest type id whose path ends with the given
// segments, e.g. FindByPathSuffix("frame_system", "EventRecord").
func (r *Registry) FindByPathSuffix(segments ...string) (TypeID, bool) {
	var (
		best  TypeID
		found bool
	)
	for id, t := range r.types {
		if !pathHasSuffix(t.Path, segments) {
			continue
		}
		if !found || id < best {
			best = id
			found = true
		}
	}
	return best, found
}

// FindSequenceOf returns the lowest sequence type id whose element's path
// ends with the given segments. Used to locate Vec<EventRecord>.
func (r *Registry) FindSequenceOf(segments ...string) (TypeID, bool) {
	var (
		best  TypeID
		found bool
	)
	for id, t := range r.types {
		if t.Def.Kind != KindSequence {
			continue
		}
		elem, ok := r.types[t.Def.Elem]
		if !ok || !pathHasSuffix(elem.Path, segments) {
			continue
		}
		if !found || id < best {
			best = id
			found = true
		}
	}
	return best, found
}

// FindCallType returns the outermost dispatchable call type: the variant type
// whose last path segment is exactly "RuntimeCall" or, failing that, "Call".
func (r *Registry) FindCallType() (TypeID, bool) {
	if id, ok := r.findVariantByLastSegment("RuntimeCall"); ok {
		return id, true
	}
	return r.findVariantByLastSegment("Call")
}

func (r *Registry) findVariantByLastSegment(name string) (TypeID, bool) {
	var (
		best  TypeID
		found bool
	)
	for id, t := range r.types {
		if t.Def.Kind != KindVariant || t.LastPathSegment() != name {
			continue
		}
		if !found || id < best {
			best = id
			found = true
		}
	}
	return best, found
}

func pathHasSuffix(path, suffix []string) bool {
	if len(suffix) == 0 || len(path) < len(suffix) {
		return false
	}
	off := len(path) - len(suffix)
	for i, s := range suffix {
		if path[off+i] != s {
			return false
		}
	}
	return true
}

// isCallPath reports whether a type path marks a dispatchable call type:
// the last segment contains the substring "Call".
func isCallPath(t *Type) bool {
	return strings.Contains(t.LastPathSegment(), "Call")
}
