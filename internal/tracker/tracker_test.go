package tracker

import (
	"context"
	"errors"
	"testing"
	"time"

	"ctfd-bot/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSubmissions struct {
	solves []domain.Solve
	err    error
	calls  int
	filter domain.RoleFilter
}

func (f *fakeSubmissions) CorrectSolves(_ context.Context, filter domain.RoleFilter) ([]domain.Solve, error) {
	f.calls++
	f.filter = filter
	return f.solves, f.err
}

// push prepends a solve, keeping the newest-first order of the store.
func (f *fakeSubmissions) push(s domain.Solve) {
	f.solves = append([]domain.Solve{s}, f.solves...)
}

var base = time.Date(2019, 8, 15, 18, 0, 0, 0, time.UTC)

func solve(id, userID, challengeID int) domain.Solve {
	return domain.Solve{
		SubmissionID:   id,
		UserID:         userID,
		UserName:       "user" + string(rune('0'+userID)),
		ChallengeID:    challengeID,
		ChallengeName:  "Challenge" + string(rune('0'+challengeID)),
		ChallengeValue: 50 * challengeID,
		SubmittedAt:    base.Add(time.Duration(id) * time.Minute),
	}
}

func TestFingerprintOf(t *testing.T) {
	a := FingerprintOf(solve(1, 1, 2))
	b := FingerprintOf(solve(7, 1, 2))
	c := FingerprintOf(solve(1, 2, 1))

	assert.Len(t, string(a), 56)
	assert.Equal(t, a, b, "same user and challenge share a fingerprint")
	assert.NotEqual(t, a, c)
	assert.False(t, a.IsZero())
	assert.True(t, Fingerprint("").IsZero())
}

func TestSolveTrackerColdStart(t *testing.T) {
	ctx := context.Background()
	fake := &fakeSubmissions{solves: []domain.Solve{solve(3, 2, 2), solve(2, 1, 1), solve(1, 1, 2)}}
	tr := NewSolveTracker(fake, domain.FilterPlayers)

	tag, ev, err := tr.Poll(ctx, "")
	require.NoError(t, err)
	assert.Nil(t, ev, "no backfill on cold start")
	assert.Equal(t, FingerprintOf(fake.solves[0]), tag)
	assert.Equal(t, domain.FilterPlayers, fake.filter)
}

func TestSolveTrackerColdStartEmpty(t *testing.T) {
	tr := NewSolveTracker(&fakeSubmissions{}, domain.FilterEveryone)

	tag, ev, err := tr.Poll(context.Background(), "")
	require.NoError(t, err)
	assert.Nil(t, ev)
	assert.True(t, tag.IsZero())
}

func TestSolveTrackerSteadyState(t *testing.T) {
	ctx := context.Background()
	fake := &fakeSubmissions{solves: []domain.Solve{solve(2, 1, 1), solve(1, 1, 2)}}
	tr := NewSolveTracker(fake, domain.FilterPlayers)
	seed := FingerprintOf(fake.solves[0])

	for range 2 {
		tag, ev, err := tr.Poll(ctx, seed)
		require.NoError(t, err)
		assert.Nil(t, ev)
		assert.Equal(t, seed, tag)
	}
}

func TestSolveTrackerDripsOnePerPoll(t *testing.T) {
	ctx := context.Background()
	s := solve(1, 1, 1)
	fake := &fakeSubmissions{solves: []domain.Solve{s}}
	tr := NewSolveTracker(fake, domain.FilterPlayers)

	a, b := solve(2, 2, 1), solve(3, 3, 2)
	fake.push(a)
	fake.push(b)

	tag, ev, err := tr.Poll(ctx, FingerprintOf(s))
	require.NoError(t, err)
	require.NotNil(t, ev)
	assert.Equal(t, FingerprintOf(a), tag)
	assert.Equal(t, a.UserName, ev.UserName)
	assert.Equal(t, a.ChallengeName, ev.ChallengeName)
	assert.Equal(t, a.ChallengeValue, ev.ChallengeValue)
	assert.Equal(t, a.SubmittedAt, ev.SubmittedAt)

	tag, ev, err = tr.Poll(ctx, tag)
	require.NoError(t, err)
	require.NotNil(t, ev)
	assert.Equal(t, FingerprintOf(b), tag)
	assert.Equal(t, b.UserName, ev.UserName)

	tag, ev, err = tr.Poll(ctx, tag)
	require.NoError(t, err)
	assert.Nil(t, ev)
	assert.Equal(t, FingerprintOf(b), tag)
}

func TestSolveTrackerMissingTag(t *testing.T) {
	fake := &fakeSubmissions{solves: []domain.Solve{solve(3, 3, 3), solve(2, 2, 2), solve(1, 1, 1)}}
	tr := NewSolveTracker(fake, domain.FilterPlayers)

	gone := FingerprintOf(solve(99, 9, 9))
	tag, ev, err := tr.Poll(context.Background(), gone)
	require.NoError(t, err)
	require.NotNil(t, ev)
	assert.Equal(t, "user1", ev.UserName, "oldest fetched entry is emitted")
	assert.Equal(t, FingerprintOf(fake.solves[2]), tag)
}

func TestSolveTrackerQueryError(t *testing.T) {
	fake := &fakeSubmissions{err: errors.New("connection refused")}
	tr := NewSolveTracker(fake, domain.FilterPlayers)
	last := FingerprintOf(solve(1, 1, 1))

	tag, ev, err := tr.Poll(context.Background(), last)
	require.Error(t, err)
	assert.Nil(t, ev)
	assert.Equal(t, last, tag)
}

func TestSolveTrackerIdempotent(t *testing.T) {
	ctx := context.Background()
	fake := &fakeSubmissions{solves: []domain.Solve{solve(3, 3, 3), solve(2, 2, 2), solve(1, 1, 1)}}
	tr := NewSolveTracker(fake, domain.FilterPlayers)
	last := FingerprintOf(fake.solves[2])

	tag1, ev1, err := tr.Poll(ctx, last)
	require.NoError(t, err)
	tag2, ev2, err := tr.Poll(ctx, last)
	require.NoError(t, err)
	assert.Equal(t, tag1, tag2)
	assert.Equal(t, ev1, ev2)
}

func TestDiffVisible(t *testing.T) {
	tests := []struct {
		name      string
		known     IDSet
		fetched   IDSet
		wantKnown IDSet
		wantNew   []int
	}{
		{"growth", NewIDSet(1, 2), NewIDSet(1, 2, 3), NewIDSet(1, 2, 3), []int{3}},
		{"shrink", NewIDSet(1, 2, 3), NewIDSet(1, 2), NewIDSet(1, 2), nil},
		{"equal", NewIDSet(1, 2), NewIDSet(1, 2), NewIDSet(1, 2), nil},
		{"swap", NewIDSet(1, 2), NewIDSet(1, 3), NewIDSet(1, 3), []int{3}},
		{"ascending", NewIDSet(5), NewIDSet(9, 5, 2, 7), NewIDSet(2, 5, 7, 9), []int{2, 7, 9}},
		{"seed", nil, NewIDSet(1, 2), NewIDSet(1, 2), nil},
		{"all hidden", NewIDSet(1), nil, IDSet{}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotKnown, gotNew := DiffVisible(tt.known, tt.fetched)
			assert.Equal(t, tt.wantKnown, gotKnown)
			assert.Equal(t, tt.wantNew, gotNew)
		})
	}
}

func TestDiffVisibleShrinkThenRegrow(t *testing.T) {
	known, added := DiffVisible(NewIDSet(1, 2, 3), NewIDSet(1, 2))
	assert.Empty(t, added)

	known, added = DiffVisible(known, NewIDSet(1, 2, 3))
	assert.Equal(t, []int{3}, added)
	assert.Equal(t, NewIDSet(1, 2, 3), known)
}

type fakeChallenges struct {
	visible IDSet
	err     error
	calls   int
}

func (f *fakeChallenges) VisibleChallengeIDs(context.Context) ([]int, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.visible.Sorted(), nil
}

func TestVisibilityTrackerPoll(t *testing.T) {
	ctx := context.Background()
	fake := &fakeChallenges{visible: NewIDSet(1, 2, 3)}
	tr := NewVisibilityTracker(fake)

	known, added, err := tr.Poll(ctx, NewIDSet(1, 2))
	require.NoError(t, err)
	assert.Equal(t, []int{3}, added)

	again, added, err := tr.Poll(ctx, known)
	require.NoError(t, err)
	assert.Empty(t, added)
	assert.Equal(t, known, again)

	fake.err = errors.New("timeout")
	kept, added, err := tr.Poll(ctx, known)
	require.Error(t, err)
	assert.Empty(t, added)
	assert.Equal(t, known, kept)
}
