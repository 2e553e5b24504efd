package hai

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
)

// Randomness supplies integers for the source-sampling path. Only uniformity
// matters; scores derived from sampling are never authoritative.
type Randomness interface {
	Next() (uint64, error)
}

// CryptoRandomness draws from crypto/rand.
type CryptoRandomness struct{}

func (CryptoRandomness) Next() (uint64, error) {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 0, fmt.Errorf("read randomness: %w", err)
	}
	return binary.BigEndian.Uint64(buf[:]), nil
}

// FixedRandomness returns the same value every time. Tests use it to pin the
// sampling path.
type FixedRandomness uint64

func (f FixedRandomness) Next() (uint64, error) { return uint64(f), nil }
