package tracker

import (
	"context"
	"fmt"

	"ctfd-bot/internal/domain"
)

type ChallengeReader interface {
	VisibleChallengeIDs(ctx context.Context) ([]int, error)
}

// ChallengeResolver looks up the display fields of a challenge.
type ChallengeResolver interface {
	ChallengeInfo(ctx context.Context, id int) (*domain.ChallengeInfo, error)
}

type VisibilityTracker struct {
	reader ChallengeReader
}

func NewVisibilityTracker(reader ChallengeReader) *VisibilityTracker {
	return &VisibilityTracker{reader: reader}
}

// Poll fetches the visible challenge ids and diffs them against known.
func (t *VisibilityTracker) Poll(ctx context.Context, known IDSet) (IDSet, []int, error) {
	ids, err := t.reader.VisibleChallengeIDs(ctx)
	if err != nil {
		return known, nil, fmt.Errorf("failed to fetch visible challenges: %w", err)
	}
	next, added := DiffVisible(known, NewIDSet(ids...))
	return next, added, nil
}

// DiffVisible returns the set to remember and the ids that became visible.
// A shrink (or no change) resyncs to fetched without reporting anything, so
// a challenge hidden and shown again is reported a second time.
func DiffVisible(known, fetched IDSet) (IDSet, []int) {
	if fetched == nil {
		fetched = IDSet{}
	}
	if known == nil || fetched.SubsetOf(known) {
		return fetched, nil
	}

	var added []int
	for _, id := range fetched.Sorted() {
		if !known.Has(id) {
			added = append(added, id)
		}
	}
	return fetched, added
}
