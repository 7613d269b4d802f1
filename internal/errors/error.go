package errors

import "errors"

var (
	ErrPuzzleNotFound     = errors.New("puzzle with provided id was not found")
	ErrNoPuzzles          = errors.New("no puzzles in storage")
	ErrIllegalMove        = errors.New("move is not legal in the current position")
	ErrNoMoveToUndo       = errors.New("no move to undo")
	ErrInvalidMoveKey     = errors.New("invalid move key")
	ErrInvalidSquare      = errors.New("invalid square")
	ErrNoPendingPromotion = errors.New("no promotion choice is pending")
	ErrInternal           = errors.New("internal error")
)
