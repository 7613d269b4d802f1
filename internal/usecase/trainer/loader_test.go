package trainer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"polgar_trainer/internal/domain/puzzle"
	errs "polgar_trainer/internal/errors"
)

type fakeStore struct {
	puzzles  map[int]puzzle.Puzzle
	last     map[string]int
	countErr error
	saveErr  error
}

func newFakeStore(count int) *fakeStore {
	s := &fakeStore{
		puzzles: make(map[int]puzzle.Puzzle),
		last:    make(map[string]int),
	}
	for i := 1; i <= count; i++ {
		s.puzzles[i] = puzzle.Puzzle{ProblemID: i, FEN: "fen", Tree: puzzle.NewNode()}
	}
	return s
}

func (s *fakeStore) GetPuzzleByID(_ context.Context, id int) (puzzle.Puzzle, error) {
	p, ok := s.puzzles[id]
	if !ok {
		return puzzle.Puzzle{}, errs.ErrPuzzleNotFound
	}
	return p, nil
}

func (s *fakeStore) CountPuzzles(_ context.Context) (int, error) {
	if s.countErr != nil {
		return 0, s.countErr
	}
	return len(s.puzzles), nil
}

func (s *fakeStore) SaveLastPuzzleID(_ context.Context, userID string, id int) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.last[userID] = id
	return nil
}

func (s *fakeStore) LoadLastPuzzleID(_ context.Context, userID string) (int, error) {
	return s.last[userID], nil
}

func newLoader(store PuzzleStore) *TrainerUseCase {
	return NewTrainerUseCase(store, zap.NewNop().Sugar())
}

func TestLoadPuzzlePersistsLastID(t *testing.T) {
	store := newFakeStore(10)
	uc := newLoader(store)

	puz, err := uc.LoadPuzzle(context.Background(), "user-1", 7)
	require.NoError(t, err)
	assert.Equal(t, 7, puz.ProblemID)
	assert.Equal(t, 7, store.last["user-1"])
}

func TestLoadPuzzleSurvivesPersistFailure(t *testing.T) {
	store := newFakeStore(10)
	store.saveErr = errors.New("redis down")
	uc := newLoader(store)

	puz, err := uc.LoadPuzzle(context.Background(), "user-1", 3)
	require.NoError(t, err)
	assert.Equal(t, 3, puz.ProblemID)
}

func TestLoadPuzzleNotFound(t *testing.T) {
	uc := newLoader(newFakeStore(10))

	_, err := uc.LoadPuzzle(context.Background(), "user-1", 999)
	assert.ErrorIs(t, err, errs.ErrPuzzleNotFound)
}

func TestStartPuzzleIDPrecedence(t *testing.T) {
	store := newFakeStore(100)
	store.last["user-1"] = 55
	uc := newLoader(store)
	ctx := context.Background()

	assert.Equal(t, 12, uc.StartPuzzleID(ctx, "user-1", 12), "url id wins")
	assert.Equal(t, 55, uc.StartPuzzleID(ctx, "user-1", 0), "stored id next")
	assert.Equal(t, 55, uc.StartPuzzleID(ctx, "user-1", 400), "out-of-range url id ignored")
	assert.Equal(t, 1, uc.StartPuzzleID(ctx, "user-2", 0), "fresh user starts at 1")
	assert.Equal(t, 1, uc.StartPuzzleID(ctx, "", 0), "anonymous starts at 1")
}

func TestStartPuzzleIDStoredOutOfRange(t *testing.T) {
	store := newFakeStore(10)
	store.last["user-1"] = 4462
	uc := newLoader(store)

	assert.Equal(t, 1, uc.StartPuzzleID(context.Background(), "user-1", 0))
}

func TestStartPuzzleIDCountFailure(t *testing.T) {
	store := newFakeStore(10)
	store.countErr = errors.New("mongo down")
	uc := newLoader(store)

	assert.Equal(t, 1, uc.StartPuzzleID(context.Background(), "user-1", 5))
}

func TestNextPrevWrapAround(t *testing.T) {
	uc := newLoader(newFakeStore(10))
	ctx := context.Background()

	assert.Equal(t, 4, uc.NextPuzzleID(ctx, 3))
	assert.Equal(t, 1, uc.NextPuzzleID(ctx, 10))
	assert.Equal(t, 2, uc.PrevPuzzleID(ctx, 3))
	assert.Equal(t, 10, uc.PrevPuzzleID(ctx, 1))
}

func TestNextPrevCountFailureKeepsCurrent(t *testing.T) {
	store := newFakeStore(10)
	store.countErr = errors.New("mongo down")
	uc := newLoader(store)
	ctx := context.Background()

	assert.Equal(t, 3, uc.NextPuzzleID(ctx, 3))
	assert.Equal(t, 3, uc.PrevPuzzleID(ctx, 3))
}
