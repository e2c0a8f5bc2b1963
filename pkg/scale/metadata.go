package scale

import (
	"fmt"
	"unicode/utf8"
)

// metadataMagic prefixes every runtime metadata blob.
var metadataMagic = [4]byte{'m', 'e', 't', 'a'}

// ParseMetadata reads the type lookup out of a SCALE-encoded runtime metadata
// blob (version 14 or later) and materializes it as a Registry. Only the
// portable type registry at the head of the blob is consumed; pallet
// definitions and the rest of the metadata are left unread.
func ParseMetadata(blob []byte) (*Registry, error) {
	cur := NewCursor(blob)

	magic, err := cur.Take(4)
	if err != nil {
		return nil, fmt.Errorf("metadata magic: %w", err)
	}
	for i, b := range magic {
		if b != metadataMagic[i] {
			return nil, fmt.Errorf("bad metadata magic %x", magic)
		}
	}
	version, err := cur.Byte()
	if err != nil {
		return nil, fmt.Errorf("metadata version: %w", err)
	}
	if version < 14 {
		return nil, fmt.Errorf("metadata v%d has no type registry, need v14 or later", version)
	}

	count, err := cur.CompactUint()
	if err != nil {
		return nil, fmt.Errorf("type count: %w", err)
	}

	reg := NewRegistry()
	for i := uint64(0); i < count; i++ {
		id, err := cur.CompactUint()
		if err != nil {
			return nil, fmt.Errorf("type %d id: %w", i, err)
		}
		t, err := parseType(cur)
		if err != nil {
			return nil, fmt.Errorf("type %d (id %d): %w", i, id, err)
		}
		reg.Define(TypeID(id), t)
	}
	return reg, nil
}

func parseType(cur *Cursor) (Type, error) {
	var t Type

	path, err := parseStringVec(cur)
	if err != nil {
		return t, fmt.Errorf("path: %w", err)
	}
	t.Path = path

	// Type parameters are not retained but must advance the cursor.
	nparams, err := cur.CompactUint()
	if err != nil {
		return t, fmt.Errorf("param count: %w", err)
	}
	for i := uint64(0); i < nparams; i++ {
		if _, err := parseString(cur); err != nil {
			return t, fmt.Errorf("param name: %w", err)
		}
		if err := skipOptionCompact(cur); err != nil {
			return t, fmt.Errorf("param type: %w", err)
		}
	}

	def, err := parseTypeDef(cur)
	if err != nil {
		return t, err
	}
	t.Def = def

	if _, err := parseStringVec(cur); err != nil {
		return t, fmt.Errorf("docs: %w", err)
	}
	return t, nil
}

func parseTypeDef(cur *Cursor) (TypeDef, error) {
	var def TypeDef
	tag, err := cur.Byte()
	if err != nil {
		return def, err
	}
	switch tag {
	case 0: // composite
		def.Kind = KindComposite
		fields, err := parseFields(cur)
		if err != nil {
			return def, err
		}
		def.Fields = fields
	case 1: // variant
		def.Kind = KindVariant
		n, err := cur.CompactUint()
		if err != nil {
			return def, err
		}
		def.Variants = make([]Variant, 0, n)
		for i := uint64(0); i < n; i++ {
			name, err := parseString(cur)
			if err != nil {
				return def, fmt.Errorf("variant name: %w", err)
			}
			fields, err := parseFields(cur)
			if err != nil {
				return def, fmt.Errorf("variant %q: %w", name, err)
			}
			index, err := cur.Byte()
			if err != nil {
				return def, err
			}
			if _, err := parseStringVec(cur); err != nil {
				return def, fmt.Errorf("variant docs: %w", err)
			}
			def.Variants = append(def.Variants, Variant{Name: name, Index: index, Fields: fields})
		}
	case 2: // sequence
		def.Kind = KindSequence
		elem, err := cur.CompactUint()
		if err != nil {
			return def, err
		}
		def.Elem = TypeID(elem)
	case 3: // array
		def.Kind = KindArray
		length, err := cur.Uint32()
		if err != nil {
			return def, err
		}
		elem, err := cur.CompactUint()
		if err != nil {
			return def, err
		}
		def.Len = length
		def.Elem = TypeID(elem)
	case 4: // tuple
		def.Kind = KindTuple
		n, err := cur.CompactUint()
		if err != nil {
			return def, err
		}
		def.Tuple = make([]TypeID, 0, n)
		for i := uint64(0); i < n; i++ {
			elem, err := cur.CompactUint()
			if err != nil {
				return def, err
			}
			def.Tuple = append(def.Tuple, TypeID(elem))
		}
	case 5: // primitive
		def.Kind = KindPrimitive
		p, err := cur.Byte()
		if err != nil {
			return def, err
		}
		if p > byte(PrimI256) {
			return def, fmt.Errorf("unknown primitive tag %d", p)
		}
		def.Prim = Primitive(p)
	case 6: // compact
		def.Kind = KindCompact
		elem, err := cur.CompactUint()
		if err != nil {
			return def, err
		}
		def.Elem = TypeID(elem)
	case 7: // bit sequence
		def.Kind = KindBitSequence
		if _, err := cur.CompactUint(); err != nil { // bit store type
			return def, err
		}
		if _, err := cur.CompactUint(); err != nil { // bit order type
			return def, err
		}
	default:
		return def, fmt.Errorf("unknown type definition tag %d", tag)
	}
	return def, nil
}

func parseFields(cur *Cursor) ([]Field, error) {
	n, err := cur.CompactUint()
	if err != nil {
		return nil, err
	}
	fields := make([]Field, 0, n)
	for i := uint64(0); i < n; i++ {
		name, err := parseOptionString(cur)
		if err != nil {
			return nil, fmt.Errorf("field name: %w", err)
		}
		id, err := cur.CompactUint()
		if err != nil {
			return nil, fmt.Errorf("field type: %w", err)
		}
		// type_name hint and docs advance the cursor only.
		if _, err := parseOptionString(cur); err != nil {
			return nil, fmt.Errorf("field type name: %w", err)
		}
		if _, err := parseStringVec(cur); err != nil {
			return nil, fmt.Errorf("field docs: %w", err)
		}
		fields = append(fields, Field{Name: name, Type: TypeID(id)})
	}
	return fields, nil
}

func parseString(cur *Cursor) (string, error) {
	n, err := cur.CompactUint()
	if err != nil {
		return "", err
	}
	raw, err := cur.Take(int(n))
	if err != nil {
		return "", err
	}
	if !utf8.Valid(raw) {
		return "", ErrInvalidUTF8
	}
	return string(raw), nil
}

func parseStringVec(cur *Cursor) ([]string, error) {
	n, err := cur.CompactUint()
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, n)
	for i := uint64(0); i < n; i++ {
		s, err := parseString(cur)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func parseOptionString(cur *Cursor) (string, error) {
	tag, err := cur.Byte()
	if err != nil {
		return "", err
	}
	if tag == 0 {
		return "", nil
	}
	return parseString(cur)
}

func skipOptionCompact(cur *Cursor) error {
	tag, err := cur.Byte()
	if err != nil {
		return err
	}
	if tag == 0 {
		return nil
	}
	_, err = cur.CompactUint()
	return err
}
