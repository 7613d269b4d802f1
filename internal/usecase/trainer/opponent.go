package trainer

import (
	"polgar_trainer/internal/domain/puzzle"
)

// scheduleReplyLocked arms the opponent-reply timer. The captured generation
// ties the callback to the current puzzle: navigating away bumps the counter
// and the stale timer becomes a no-op.
func (s *Session) scheduleReplyLocked() {
	gen := s.generation
	s.schedule(s.replyDelay, func() {
		s.playOpponentReply(gen)
	})
}

// playOpponentReply executes the forced reply baked into the tree: commit to
// the rules engine, animate the board move, and once the animation settles
// redraw the position (the widget's move animation does not know about
// promoted pieces) and advance the tree pointer.
func (s *Session) playOpponentReply(gen uint64) {
	s.mu.Lock()

	if gen != s.generation || s.solved || s.node == nil {
		s.mu.Unlock()
		return
	}

	key := s.node.FirstChildMove()
	if key == "" {
		// a well-formed tree always has the reply here
		s.log.Errorf("no opponent reply at puzzle %d", s.puz.ProblemID)
		s.mu.Unlock()
		return
	}

	from, to, promotion, err := puzzle.DecodeMoveKey(key)
	if err != nil {
		s.log.Errorf("malformed opponent reply key %q: %v", key, err)
		s.mu.Unlock()
		return
	}

	child, _ := s.node.Child(key)
	if err := s.game.Move(from, to, promotion); err != nil {
		s.log.Errorf("opponent reply %s is not legal: %v", key, err)
		s.mu.Unlock()
		return
	}
	fen := s.game.FEN()
	board := s.board
	s.mu.Unlock()

	board.MovePiece(from, to, true, func() {
		s.advanceAfterReply(gen, child, fen)
	})
}

func (s *Session) advanceAfterReply(gen uint64, child *puzzle.TreeNode, fen string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.generation {
		return
	}

	s.board.SetPosition(fen, false)
	s.node = child
}
