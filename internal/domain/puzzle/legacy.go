package puzzle

import (
	"fmt"
	"strings"
)

// TreeFromLegacyMoves converts the old generator output — a flat solution line
// like "d5-c3;e6-f6;e8-f8" — into a single-branch solution tree. The flat
// format is import-only; the trainer consumes trees.
func TreeFromLegacyMoves(moves string) (*TreeNode, error) {
	root := NewNode()

	moves = strings.TrimSpace(moves)
	if moves == "" {
		return root, nil
	}

	node := root
	for _, m := range strings.Split(moves, ";") {
		key := strings.ReplaceAll(strings.TrimSpace(m), "-", "")
		if _, _, _, err := DecodeMoveKey(key); err != nil {
			return nil, fmt.Errorf("legacy move %q: %w", m, err)
		}
		node = node.Add(key, nil)
	}

	return root, nil
}
