package rules

import (
	chess "github.com/garlicgarrison/go-chess"

	errs "polgar_trainer/internal/errors"
)

// Game wraps a go-chess game behind the small surface the trainer needs:
// coordinate moves, undo, checkmate detection. The library has no undo, so the
// wrapper keeps the starting FEN plus the applied moves and rebuilds on demand.
type Game struct {
	startFEN string
	game     *chess.Game
	applied  []moveRecord
}

type moveRecord struct {
	from, to, promotion string
}

var promoLetters = map[chess.PieceType]string{
	chess.Queen:  "q",
	chess.Rook:   "r",
	chess.Bishop: "b",
	chess.Knight: "n",
}

// NewGame builds a game from a FEN position string.
func NewGame(fen string) (*Game, error) {
	opt, err := chess.FEN(fen)
	if err != nil {
		return nil, err
	}
	return &Game{
		startFEN: fen,
		game:     chess.NewGame(opt),
	}, nil
}

// Move plays the move given by coordinates and an optional promotion letter
// ("q", "r", "b", "n"). Returns ErrIllegalMove when no legal move matches.
func (g *Game) Move(from, to, promotion string) error {
	mv := g.findMove(from, to, promotion)
	if mv == nil {
		return errs.ErrIllegalMove
	}
	if err := g.game.Move(mv); err != nil {
		return err
	}
	g.applied = append(g.applied, moveRecord{from: from, to: to, promotion: promotion})
	return nil
}

// UndoLastMove rewinds the last played move by replaying the rest from the
// starting position.
func (g *Game) UndoLastMove() error {
	if len(g.applied) == 0 {
		return errs.ErrNoMoveToUndo
	}

	opt, err := chess.FEN(g.startFEN)
	if err != nil {
		return err
	}
	rebuilt := chess.NewGame(opt)

	remaining := g.applied[:len(g.applied)-1]
	for _, rec := range remaining {
		mv := findMoveIn(rebuilt, rec.from, rec.to, rec.promotion)
		if mv == nil {
			return errs.ErrInternal
		}
		if err := rebuilt.Move(mv); err != nil {
			return err
		}
	}

	g.game = rebuilt
	g.applied = remaining
	return nil
}

// IsCheckmate reports whether the side to move has been mated.
func (g *Game) IsCheckmate() bool {
	return g.game.Method() == chess.Checkmate
}

// SideToMove returns "w" or "b".
func (g *Game) SideToMove() string {
	return g.game.Position().Turn().String()
}

// FEN returns the current position.
func (g *Game) FEN() string {
	return g.game.FEN()
}

// IsPromotion reports whether moving the piece on from to to would promote:
// a pawn of the side to move reaching its last rank. Legality is not checked
// here, callers probe the move separately.
func (g *Game) IsPromotion(from, to string) bool {
	sq, err := parseSquare(from)
	if err != nil {
		return false
	}
	piece := g.game.Position().Board().Piece(sq)
	if piece.Type() != chess.Pawn {
		return false
	}
	switch piece.Color() {
	case chess.White:
		return to[1] == '8'
	case chess.Black:
		return to[1] == '1'
	}
	return false
}

// MovesPlayed returns how many plies have been committed.
func (g *Game) MovesPlayed() int {
	return len(g.applied)
}

func (g *Game) findMove(from, to, promotion string) *chess.Move {
	return findMoveIn(g.game, from, to, promotion)
}

func findMoveIn(game *chess.Game, from, to, promotion string) *chess.Move {
	for _, mv := range game.ValidMoves() {
		if mv.S1().String() != from || mv.S2().String() != to {
			continue
		}
		if promoLetters[mv.Promo()] != promotion {
			continue
		}
		return mv
	}
	return nil
}

func parseSquare(s string) (chess.Square, error) {
	if len(s) != 2 || s[0] < 'a' || s[0] > 'h' || s[1] < '1' || s[1] > '8' {
		return chess.NoSquare, errs.ErrInvalidSquare
	}
	file := int(s[0] - 'a')
	rank := int(s[1] - '1')
	return chess.Square(rank*8 + file), nil
}
