package scale

import "errors"

// Structural decode errors. Any of these aborts the enclosing Decode call;
// callers distinguish them with errors.Is.
var (
	// ErrUnresolvedType means a type id was not present in the registry.
	ErrUnresolvedType = errors.New("type not found in registry")

	// ErrUnexpectedEOF means the cursor ran out of bytes mid-field.
	ErrUnexpectedEOF = errors.New("unexpected end of input")

	// ErrInvalidUTF8 means a string field did not hold valid UTF-8.
	ErrInvalidUTF8 = errors.New("string field is not valid utf-8")

	// ErrInvalidBitSequence means packed-bit data was malformed.
	ErrInvalidBitSequence = errors.New("malformed bit sequence")

	// ErrUnknownVariant means a variant index byte matched no declared variant.
	ErrUnknownVariant = errors.New("unknown variant index")

	// ErrDepthExceeded guards against pathological schema nesting.
	ErrDepthExceeded = errors.New("type nesting exceeds decode depth limit")
)
