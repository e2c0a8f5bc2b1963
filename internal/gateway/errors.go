package gateway

import (
	"errors"

	"github.com/paritytech/polkadot-rest-api-sub000/pkg/rpc"
	"github.com/paritytech/polkadot-rest-api-sub000/pkg/scale"
)

// ErrNotFound marks requests for resources the chain does not have, such as
// an extrinsic index past the end of a block.
var ErrNotFound = errors.New("not found")

// IsNotFound reports whether err means the requested block or extrinsic does
// not exist, on our side or the node's.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, rpc.ErrNoBlock)
}

// IsDecodeError reports whether err originated in the binary decoder rather
// than transport or the node. Handlers map these to a client-visible 422.
func IsDecodeError(err error) bool {
	return errors.Is(err, scale.ErrUnresolvedType) ||
		errors.Is(err, scale.ErrUnexpectedEOF) ||
		errors.Is(err, scale.ErrInvalidUTF8) ||
		errors.Is(err, scale.ErrInvalidBitSequence) ||
		errors.Is(err, scale.ErrUnknownVariant) ||
		errors.Is(err, scale.ErrDepthExceeded)
}
