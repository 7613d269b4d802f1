package trainer

import (
	"context"

	"go.uber.org/zap"

	"polgar_trainer/internal/domain/puzzle"
)

// PuzzleStore is what the navigation layer needs from persistence.
type PuzzleStore interface {
	GetPuzzleByID(ctx context.Context, id int) (puzzle.Puzzle, error)
	CountPuzzles(ctx context.Context) (int, error)
	SaveLastPuzzleID(ctx context.Context, userID string, id int) error
	LoadLastPuzzleID(ctx context.Context, userID string) (int, error)
}

// TrainerUseCase handles puzzle loading and navigation between puzzles.
type TrainerUseCase struct {
	store PuzzleStore
	log   *zap.SugaredLogger
}

func NewTrainerUseCase(store PuzzleStore, log *zap.SugaredLogger) *TrainerUseCase {
	return &TrainerUseCase{store: store, log: log}
}

// LoadPuzzle fetches a puzzle and remembers it as the user's last one. The
// persistence write is best effort: a failure is logged, not surfaced.
func (t *TrainerUseCase) LoadPuzzle(ctx context.Context, userID string, id int) (puzzle.Puzzle, error) {
	puz, err := t.store.GetPuzzleByID(ctx, id)
	if err != nil {
		return puzzle.Puzzle{}, err
	}

	if userID != "" {
		if err := t.store.SaveLastPuzzleID(ctx, userID, id); err != nil {
			t.log.Errorf("failed to persist last puzzle id for user %s: %v", userID, err)
		}
	}

	return puz, nil
}

// StartPuzzleID picks the puzzle a fresh session opens with: a URL-carried id
// wins when it is in range, then the user's persisted last puzzle, then 1.
func (t *TrainerUseCase) StartPuzzleID(ctx context.Context, userID string, urlID int) int {
	count, err := t.store.CountPuzzles(ctx)
	if err != nil || count == 0 {
		if err != nil {
			t.log.Errorf("failed to count puzzles: %v", err)
		}
		return 1
	}

	if urlID >= 1 && urlID <= count {
		return urlID
	}

	if userID != "" {
		last, err := t.store.LoadLastPuzzleID(ctx, userID)
		if err == nil && last >= 1 && last <= count {
			return last
		}
		if err != nil {
			t.log.Errorf("failed to load last puzzle id for user %s: %v", userID, err)
		}
	}

	return 1
}

// NextPuzzleID wraps around past the last puzzle.
func (t *TrainerUseCase) NextPuzzleID(ctx context.Context, current int) int {
	count, err := t.store.CountPuzzles(ctx)
	if err != nil || count == 0 {
		return current
	}
	next := current + 1
	if next > count {
		next = 1
	}
	return next
}

// PrevPuzzleID wraps around before the first puzzle.
func (t *TrainerUseCase) PrevPuzzleID(ctx context.Context, current int) int {
	count, err := t.store.CountPuzzles(ctx)
	if err != nil || count == 0 {
		return current
	}
	prev := current - 1
	if prev < 1 {
		prev = count
	}
	return prev
}

// CountPuzzles exposes the total for the delivery layer.
func (t *TrainerUseCase) CountPuzzles(ctx context.Context) (int, error) {
	return t.store.CountPuzzles(ctx)
}
