package puzzle

import (
	"strings"

	errs "polgar_trainer/internal/errors"
)

// promotion letters accepted in a move key, lowercase UCI style
const promotionLetters = "qrbn"

// EncodeMoveKey builds the solution-tree key for a move: source square,
// target square and an optional promotion letter, e.g. "e7e8q".
func EncodeMoveKey(from, to, promotion string) string {
	return from + to + promotion
}

// DecodeMoveKey splits a tree key back into its components.
func DecodeMoveKey(key string) (from, to, promotion string, err error) {
	if len(key) != 4 && len(key) != 5 {
		return "", "", "", errs.ErrInvalidMoveKey
	}

	from = key[0:2]
	to = key[2:4]
	if !ValidSquare(from) || !ValidSquare(to) {
		return "", "", "", errs.ErrInvalidMoveKey
	}

	if len(key) == 5 {
		promotion = key[4:5]
		if !strings.Contains(promotionLetters, promotion) {
			return "", "", "", errs.ErrInvalidMoveKey
		}
	}

	return from, to, promotion, nil
}

// ValidSquare reports whether s names a board square, "a1" through "h8".
func ValidSquare(s string) bool {
	return len(s) == 2 &&
		s[0] >= 'a' && s[0] <= 'h' &&
		s[1] >= '1' && s[1] <= '8'
}
