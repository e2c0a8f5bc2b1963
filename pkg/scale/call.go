package scale

// decodeCall restructures a dispatchable call value into the canonical
// {method: {pallet, method}, args} shape used across the whole API. A call is
// a two-level variant: the outer variant selects the pallet and its single
// field is the pallet's own call enum selecting the method. Everything under
// a call decodes in snake_case naming mode.
func (d *Decoder) decodeCall(cur *Cursor, v *Variant, depth int) (any, error) {
	if len(v.Fields) == 1 && v.Fields[0].Name == "" {
		inner, err := d.decode(cur, v.Fields[0].Type, SnakeCase, depth+1)
		if err != nil {
			return nil, err
		}
		// A nested method object means the recursion already produced a call
		// shape (the pallet call enum, or a wrapped batch/proxy dispatch).
		// Splice the pallet in and promote args so exactly one method object
		// comes out.
		if obj, ok := inner.(map[string]any); ok {
			if method, ok := obj["method"].(map[string]any); ok {
				method["pallet"] = v.Name
				return map[string]any{"method": method, "args": obj["args"]}, nil
			}
		}
		return map[string]any{"method": map[string]any{"pallet": v.Name}, "args": inner}, nil
	}

	// Method-level shape: the variant name is the method and its fields are
	// the arguments. The pallet is filled in by the level above.
	var args any
	switch {
	case len(v.Fields) == 0:
		args = map[string]any{}
	case allNamed(v.Fields):
		obj := make(map[string]any, len(v.Fields))
		for _, f := range v.Fields {
			fv, err := d.decode(cur, f.Type, SnakeCase, depth+1)
			if err != nil {
				return nil, err
			}
			obj[fieldKey(f.Name, SnakeCase)] = fv
		}
		args = obj
	default:
		arr := make([]any, 0, len(v.Fields))
		for _, f := range v.Fields {
			fv, err := d.decode(cur, f.Type, SnakeCase, depth+1)
			if err != nil {
				return nil, err
			}
			arr = append(arr, fv)
		}
		args = arr
	}
	return map[string]any{"method": map[string]any{"method": toCamel(v.Name)}, "args": args}, nil
}
