package puzzle

import (
	"strconv"
	"strings"
)

// Puzzle is one mate-in-N problem as served to the trainer. Immutable once
// loaded; the session keeps its own pointer into Tree.
type Puzzle struct {
	ProblemID int       `json:"problemid"`
	First     string    `json:"first"` // side to move label, e.g. "White to Move"
	Type      string    `json:"type"`  // e.g. "Mate in Two"
	FEN       string    `json:"fen"`
	Tree      *TreeNode `json:"tree"`
}

var numberWords = map[string]int{
	"one": 1, "two": 2, "three": 3, "four": 4, "five": 5,
	"six": 6, "seven": 7, "eight": 8, "nine": 9, "ten": 10,
}

// MateIn extracts N from the type label ("Mate in Two" -> 2, "Mate in 3" -> 3).
// Returns 0 when the label carries no count.
func (p Puzzle) MateIn() int {
	for _, word := range strings.Fields(strings.ToLower(p.Type)) {
		if n, ok := numberWords[word]; ok {
			return n
		}
		if n, err := strconv.Atoi(word); err == nil {
			return n
		}
	}
	return 0
}
