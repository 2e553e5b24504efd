// Package domain holds the identifier types shared across the reserve,
// activity, scoring, and governance packages.
package domain

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/blake2b"
)

// Identity is an opaque participant or caller identifier. The auth layer
// produces it from the token subject; stores key on its string form.
type Identity string

func (i Identity) IsZero() bool { return i == "" }

func (i Identity) String() string { return string(i) }

// ActivityID uniquely identifies one funded activity. Derived, not assigned,
// so the same (initiator, nonce, time) triple always names the same activity.
type ActivityID [32]byte

// DeriveActivityID computes the activity identifier from the initiator, the
// initiator's proposal nonce, and the proposal time in Unix nanoseconds.
func DeriveActivityID(initiator Identity, nonce uint64, unixNano int64) ActivityID {
	buf := make([]byte, 0, len(initiator)+16)
	buf = append(buf, initiator...)
	buf = binary.BigEndian.AppendUint64(buf, nonce)
	buf = binary.BigEndian.AppendUint64(buf, uint64(unixNano))
	return ActivityID(blake2b.Sum256(buf))
}

func (a ActivityID) String() string { return hex.EncodeToString(a[:]) }

func (a ActivityID) IsZero() bool { return a == ActivityID{} }

// ParseActivityID decodes the hex form produced by String.
func ParseActivityID(s string) (ActivityID, error) {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return ActivityID{}, fmt.Errorf("parse activity id: %w", err)
	}
	if len(raw) != 32 {
		return ActivityID{}, fmt.Errorf("parse activity id: want 32 bytes, got %d", len(raw))
	}
	var id ActivityID
	copy(id[:], raw)
	return id, nil
}

// ProposalID is a monotonically assigned governance proposal number.
type ProposalID uint64

// SnapshotID is a monotonically assigned score snapshot number.
type SnapshotID uint64
