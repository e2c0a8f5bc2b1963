package scale

// IsBasicEnum reports whether every variant of the type carries zero fields.
// Such enums decode to a bare string (the variant name, first character
// lowercased) instead of a wrapper object.
//
// The classification is recomputed from the registry on every call; because
// the registry is immutable after construction, callers decoding many values
// against one runtime version may memoize the result per TypeID.
//
// Option types are never classified: None and Some are handled before this
// check is reached.
func IsBasicEnum(reg *Registry, id TypeID) bool {
	t, err := reg.Resolve(id)
	if err != nil || t.Def.Kind != KindVariant {
		return false
	}
	for _, v := range t.Def.Variants {
		if len(v.Fields) > 0 {
			return false
		}
	}
	return true
}

// findVariant returns the variant with the given wire index.
func findVariant(t *Type, index uint8) (*Variant, bool) {
	for i := range t.Def.Variants {
		if t.Def.Variants[i].Index == index {
			return &t.Def.Variants[i], true
		}
	}
	return nil, false
}
