package tracker

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"slices"

	"ctfd-bot/internal/domain"
)

// Fingerprint marks a position in the solve history. Two solves of the same
// challenge by the same user share a fingerprint. The empty value means none.
type Fingerprint string

func FingerprintOf(s domain.Solve) Fingerprint {
	sum := sha256.Sum224(fmt.Appendf(nil, "%d | %d", s.UserID, s.ChallengeID))
	return Fingerprint(hex.EncodeToString(sum[:]))
}

func (f Fingerprint) IsZero() bool { return f == "" }

// IDSet holds challenge ids. A nil set has not been seeded yet.
type IDSet map[int]struct{}

func NewIDSet(ids ...int) IDSet {
	s := make(IDSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func (s IDSet) Has(id int) bool {
	_, ok := s[id]
	return ok
}

// SubsetOf reports whether every id of s is in o.
func (s IDSet) SubsetOf(o IDSet) bool {
	if len(s) > len(o) {
		return false
	}
	for id := range s {
		if !o.Has(id) {
			return false
		}
	}
	return true
}

// Sorted returns the ids in ascending order.
func (s IDSet) Sorted() []int {
	ids := make([]int, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func (s IDSet) Clone() IDSet {
	if s == nil {
		return nil
	}
	c := make(IDSet, len(s))
	for id := range s {
		c[id] = struct{}{}
	}
	return c
}
