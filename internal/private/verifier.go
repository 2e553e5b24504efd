package private

import (
	"bytes"
	"context"
)

// Verifier checks an opaque attestation or proof blob. Blob contents are never
// inspected by domain logic; a failed verification is the only signal.
type Verifier interface {
	Verify(ctx context.Context, blob []byte) (bool, error)
}

// NonZeroVerifier accepts any blob that is non-empty and not all zero bytes.
// It stands in for a real enclave or proof-system verifier.
type NonZeroVerifier struct{}

func (NonZeroVerifier) Verify(_ context.Context, blob []byte) (bool, error) {
	if len(blob) == 0 {
		return false, nil
	}
	return !bytes.Equal(blob, make([]byte, len(blob))), nil
}
