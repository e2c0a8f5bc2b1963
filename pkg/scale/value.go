package scale

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strconv"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/paritytech/polkadot-rest-api-sub000/pkg/ss58"
)

// maxDepth bounds schema recursion. Runtime schemas are acyclic and shallow
// in practice; the guard only trips on malicious or corrupt metadata.
const maxDepth = 64

// Decoder walks a type registry and turns SCALE bytes into a JSON value tree:
// nil, bool, string, []any or map[string]any. Integers of every width are
// rendered as decimal strings so values above 53 bits survive JSON, and byte
// buffers recognized by heuristics are rendered as 0x-prefixed lowercase hex.
//
// A Decoder carries no mutable state and is safe for concurrent use as long
// as each caller owns its cursor.
type Decoder struct {
	reg    *Registry
	prefix uint16
	log    *zap.Logger
}

// NewDecoder creates a decoder over reg. ss58Prefix is the network address
// format used when rendering recognized 32-byte account identifiers. A nil
// logger is replaced with a nop logger.
func NewDecoder(reg *Registry, ss58Prefix uint16, logger *zap.Logger) *Decoder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Decoder{reg: reg, prefix: ss58Prefix, log: logger}
}

// Registry returns the registry the decoder reads from.
func (d *Decoder) Registry() *Registry {
	return d.reg
}

// Decode consumes one value of the given type from the cursor, in camelCase
// naming mode. Any field-level failure aborts the whole call.
func (d *Decoder) Decode(cur *Cursor, id TypeID) (any, error) {
	return d.decode(cur, id, CamelCase, 0)
}

func (d *Decoder) decode(cur *Cursor, id TypeID, mode NamingMode, depth int) (any, error) {
	if depth > maxDepth {
		return nil, fmt.Errorf("type %d: %w", id, ErrDepthExceeded)
	}
	t, err := d.reg.Resolve(id)
	if err != nil {
		return nil, err
	}

	switch t.Def.Kind {
	case KindPrimitive:
		return d.decodePrimitive(cur, t.Def.Prim)
	case KindCompact:
		v, err := cur.CompactBig()
		if err != nil {
			return nil, fmt.Errorf("compact: %w", err)
		}
		return v.String(), nil
	case KindSequence:
		n, err := cur.CompactUint()
		if err != nil {
			return nil, fmt.Errorf("sequence length: %w", err)
		}
		return d.decodeElems(cur, t.Def.Elem, int(n), mode, depth)
	case KindArray:
		return d.decodeElems(cur, t.Def.Elem, int(t.Def.Len), mode, depth)
	case KindTuple:
		vals := make([]any, 0, len(t.Def.Tuple))
		for _, elem := range t.Def.Tuple {
			v, err := d.decode(cur, elem, mode, depth+1)
			if err != nil {
				return nil, err
			}
			vals = append(vals, v)
		}
		return shapePositional(vals), nil
	case KindBitSequence:
		return d.decodeBitSequence(cur)
	case KindComposite:
		return d.decodeComposite(cur, t, mode, depth)
	case KindVariant:
		return d.decodeVariant(cur, id, t, mode, depth)
	default:
		return nil, fmt.Errorf("type %d has unsupported kind %d", id, t.Def.Kind)
	}
}

func (d *Decoder) decodePrimitive(cur *Cursor, p Primitive) (any, error) {
	switch p {
	case PrimBool:
		b, err := cur.Byte()
		if err != nil {
			return nil, err
		}
		return b == 1, nil
	case PrimChar:
		v, err := cur.Uint32()
		if err != nil {
			return nil, err
		}
		return string(rune(v)), nil
	case PrimStr:
		n, err := cur.CompactUint()
		if err != nil {
			return nil, fmt.Errorf("string length: %w", err)
		}
		raw, err := cur.Take(int(n))
		if err != nil {
			return nil, err
		}
		if !utf8.Valid(raw) {
			return nil, ErrInvalidUTF8
		}
		return string(raw), nil
	case PrimU8:
		b, err := cur.Byte()
		if err != nil {
			return nil, err
		}
		return strconv.FormatUint(uint64(b), 10), nil
	case PrimU16:
		v, err := cur.Uint16()
		if err != nil {
			return nil, err
		}
		return strconv.FormatUint(uint64(v), 10), nil
	case PrimU32:
		v, err := cur.Uint32()
		if err != nil {
			return nil, err
		}
		return strconv.FormatUint(uint64(v), 10), nil
	case PrimU64:
		v, err := cur.Uint64()
		if err != nil {
			return nil, err
		}
		return strconv.FormatUint(v, 10), nil
	case PrimU128:
		raw, err := cur.Take(16)
		if err != nil {
			return nil, err
		}
		return new(big.Int).SetBytes(reverseBytes(raw)).String(), nil
	case PrimI8:
		b, err := cur.Byte()
		if err != nil {
			return nil, err
		}
		return strconv.FormatInt(int64(int8(b)), 10), nil
	case PrimI16:
		v, err := cur.Uint16()
		if err != nil {
			return nil, err
		}
		return strconv.FormatInt(int64(int16(v)), 10), nil
	case PrimI32:
		v, err := cur.Uint32()
		if err != nil {
			return nil, err
		}
		return strconv.FormatInt(int64(int32(v)), 10), nil
	case PrimI64:
		v, err := cur.Uint64()
		if err != nil {
			return nil, err
		}
		return strconv.FormatInt(int64(v), 10), nil
	case PrimI128:
		raw, err := cur.Take(16)
		if err != nil {
			return nil, err
		}
		return signedBigString(raw), nil
	case PrimU256, PrimI256:
		// No decimal conversion for 256-bit words: raw big-endian hex.
		raw, err := cur.Take(32)
		if err != nil {
			return nil, err
		}
		return "0x" + hex.EncodeToString(reverseBytes(raw)), nil
	default:
		return nil, fmt.Errorf("unsupported primitive %d", p)
	}
}

// signedBigString renders a little-endian two's-complement word as decimal.
func signedBigString(le []byte) string {
	v := new(big.Int).SetBytes(reverseBytes(le))
	bits := uint(len(le) * 8)
	if v.Bit(int(bits-1)) == 1 {
		v.Sub(v, new(big.Int).Lsh(big.NewInt(1), bits))
	}
	return v.String()
}

// decodeElems decodes n sequence/array elements and applies the byte-folding
// heuristic: 2+ elements that are all decimal strings <=255 collapse into one
// hex string. Single-element and non-numeric results stay arrays.
func (d *Decoder) decodeElems(cur *Cursor, elem TypeID, n int, mode NamingMode, depth int) (any, error) {
	vals := make([]any, 0, n)
	for i := 0; i < n; i++ {
		v, err := d.decode(cur, elem, mode, depth+1)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		vals = append(vals, v)
	}
	if folded, ok := foldToHex(vals); ok {
		return folded, nil
	}
	return vals, nil
}

func (d *Decoder) decodeBitSequence(cur *Cursor) (any, error) {
	nbits, err := cur.CompactUint()
	if err != nil {
		return nil, fmt.Errorf("bit count: %w", err)
	}
	nbytes := int((nbits + 7) / 8)
	if nbytes > cur.Remaining() {
		return nil, fmt.Errorf("%d bits exceed remaining input: %w", nbits, ErrInvalidBitSequence)
	}
	raw, err := cur.Take(nbytes)
	if err != nil {
		return nil, err
	}
	return "0x" + hex.EncodeToString(raw), nil
}

func (d *Decoder) decodeComposite(cur *Cursor, t *Type, mode NamingMode, depth int) (any, error) {
	// 32-byte account identifiers render as a checksummed address instead of
	// their structural shape.
	if t.PathContains("AccountId32", "MultiAddress", "AccountId") {
		if addr, ok := d.tryAccountAddress(cur, t, depth); ok {
			return addr, nil
		}
	}
	// Single-byte vote wrappers render as a two-digit hex byte.
	if t.PathContains("Vote") && len(t.Def.Fields) == 1 {
		if v, ok := d.tryVoteByte(cur, t, mode, depth); ok {
			return v, nil
		}
	}

	fields := t.Def.Fields
	if len(fields) == 0 {
		return nil, nil
	}
	if allNamed(fields) {
		obj := make(map[string]any, len(fields))
		for _, f := range fields {
			v, err := d.decode(cur, f.Type, mode, depth+1)
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", f.Name, err)
			}
			obj[fieldKey(f.Name, mode)] = v
		}
		return obj, nil
	}

	vals := make([]any, 0, len(fields))
	for i, f := range fields {
		v, err := d.decode(cur, f.Type, mode, depth+1)
		if err != nil {
			return nil, fmt.Errorf("field %d: %w", i, err)
		}
		vals = append(vals, v)
	}
	return shapePositional(vals), nil
}

func (d *Decoder) decodeVariant(cur *Cursor, id TypeID, t *Type, mode NamingMode, depth int) (any, error) {
	idx, err := cur.Byte()
	if err != nil {
		return nil, err
	}
	v, ok := findVariant(t, idx)
	if !ok {
		return nil, fmt.Errorf("type %d index %d: %w", id, idx, ErrUnknownVariant)
	}

	switch v.Name {
	case "None":
		// Fields, if any, still advance the cursor.
		for _, f := range v.Fields {
			if _, err := d.decode(cur, f.Type, mode, depth+1); err != nil {
				return nil, err
			}
		}
		return nil, nil
	case "Some":
		if len(v.Fields) == 1 {
			return d.decode(cur, v.Fields[0].Type, mode, depth+1)
		}
	}

	if isCallPath(t) {
		return d.decodeCall(cur, v, depth)
	}

	name := lowerFirst(v.Name)
	if IsBasicEnum(d.reg, id) {
		return name, nil
	}

	inner, err := d.decodeVariantPayload(cur, v, mode, depth)
	if err != nil {
		return nil, fmt.Errorf("variant %q: %w", v.Name, err)
	}
	return map[string]any{name: inner}, nil
}

// decodeVariantPayload shapes a non-basic variant's fields. Junction variants
// X2..X8 stay positional even with a single field because that field is a
// fixed-size tuple of path hops.
func (d *Decoder) decodeVariantPayload(cur *Cursor, v *Variant, mode NamingMode, depth int) (any, error) {
	if len(v.Fields) == 0 {
		return nil, nil
	}
	if allNamed(v.Fields) && !isJunctionVariant(v.Name) {
		obj := make(map[string]any, len(v.Fields))
		for _, f := range v.Fields {
			fv, err := d.decode(cur, f.Type, mode, depth+1)
			if err != nil {
				return nil, err
			}
			obj[fieldKey(f.Name, mode)] = fv
		}
		return obj, nil
	}

	vals := make([]any, 0, len(v.Fields))
	for _, f := range v.Fields {
		fv, err := d.decode(cur, f.Type, mode, depth+1)
		if err != nil {
			return nil, err
		}
		vals = append(vals, fv)
	}
	if isJunctionVariant(v.Name) {
		return vals, nil
	}
	if len(vals) == 1 {
		return vals[0], nil
	}
	return vals, nil
}

// tryAccountAddress speculatively collects exactly 32 bytes from the
// composite's fields and renders them as a checksummed address. The cursor
// only advances when collection succeeds.
func (d *Decoder) tryAccountAddress(cur *Cursor, t *Type, depth int) (string, bool) {
	fork := cur.Fork()
	buf := make([]byte, 0, 32)
	for _, f := range t.Def.Fields {
		if err := d.collectBytes(fork, f.Type, &buf, 32, depth+1); err != nil {
			return "", false
		}
	}
	if len(buf) != 32 {
		return "", false
	}
	addr, err := ss58.Encode(buf, d.prefix)
	if err != nil {
		return "", false
	}
	cur.Join(fork)
	return addr, true
}

// collectBytes appends the raw bytes reachable through a type to buf, failing
// once buf would exceed limit or a non-byte-bearing shape is hit.
func (d *Decoder) collectBytes(cur *Cursor, id TypeID, buf *[]byte, limit int, depth int) error {
	if depth > maxDepth {
		return ErrDepthExceeded
	}
	t, err := d.reg.Resolve(id)
	if err != nil {
		return err
	}
	switch t.Def.Kind {
	case KindPrimitive:
		if t.Def.Prim != PrimU8 {
			return fmt.Errorf("primitive %d is not a byte", t.Def.Prim)
		}
		b, err := cur.Byte()
		if err != nil {
			return err
		}
		*buf = append(*buf, b)
	case KindArray:
		for i := 0; i < int(t.Def.Len); i++ {
			if err := d.collectBytes(cur, t.Def.Elem, buf, limit, depth+1); err != nil {
				return err
			}
		}
	case KindSequence:
		n, err := cur.CompactUint()
		if err != nil {
			return err
		}
		for i := 0; i < int(n); i++ {
			if err := d.collectBytes(cur, t.Def.Elem, buf, limit, depth+1); err != nil {
				return err
			}
		}
	case KindComposite:
		for _, f := range t.Def.Fields {
			if err := d.collectBytes(cur, f.Type, buf, limit, depth+1); err != nil {
				return err
			}
		}
	case KindTuple:
		for _, elem := range t.Def.Tuple {
			if err := d.collectBytes(cur, elem, buf, limit, depth+1); err != nil {
				return err
			}
		}
	case KindVariant:
		idx, err := cur.Byte()
		if err != nil {
			return err
		}
		v, ok := findVariant(t, idx)
		if !ok {
			return ErrUnknownVariant
		}
		for _, f := range v.Fields {
			if err := d.collectBytes(cur, f.Type, buf, limit, depth+1); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("kind %d carries no raw bytes", t.Def.Kind)
	}
	if len(*buf) > limit {
		return fmt.Errorf("collected more than %d bytes", limit)
	}
	return nil
}

// tryVoteByte renders a single-field vote composite as "0x" plus one hex byte.
func (d *Decoder) tryVoteByte(cur *Cursor, t *Type, mode NamingMode, depth int) (string, bool) {
	fork := cur.Fork()
	v, err := d.decode(fork, t.Def.Fields[0].Type, mode, depth+1)
	if err != nil {
		return "", false
	}
	s, ok := v.(string)
	if !ok {
		return "", false
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil || n > 255 {
		return "", false
	}
	cur.Join(fork)
	return fmt.Sprintf("0x%02x", n), true
}

// shapePositional applies the unnamed-field shape rules shared by tuples and
// positional composites: empty collapses to null, a byte-like group of 2+
// folds to hex, a single value unwraps, anything else stays an array.
func shapePositional(vals []any) any {
	if len(vals) == 0 {
		return nil
	}
	if folded, ok := foldToHex(vals); ok {
		return folded
	}
	if len(vals) == 1 {
		return vals[0]
	}
	return vals
}

// foldToHex re-encodes 2+ decoded values as a hex string when every value is
// a decimal string no greater than 255. The rule is a heuristic: a genuine
// Vec<u16> of small values folds too, matching the established contract.
func foldToHex(vals []any) (string, bool) {
	if len(vals) < 2 {
		return "", false
	}
	buf := make([]byte, 0, len(vals))
	for _, v := range vals {
		s, ok := v.(string)
		if !ok {
			return "", false
		}
		n, err := strconv.ParseUint(s, 10, 64)
		if err != nil || n > 255 {
			return "", false
		}
		buf = append(buf, byte(n))
	}
	return "0x" + hex.EncodeToString(buf), true
}

func allNamed(fields []Field) bool {
	if len(fields) == 0 {
		return false
	}
	for _, f := range fields {
		if f.Name == "" {
			return false
		}
	}
	return true
}

// isJunctionVariant reports whether name is one of the cross-chain junction
// path variants X2..X8.
func isJunctionVariant(name string) bool {
	return len(name) == 2 && name[0] == 'X' && name[1] >= '2' && name[1] <= '8'
}
