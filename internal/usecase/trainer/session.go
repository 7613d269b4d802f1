package trainer

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"polgar_trainer/internal/domain/puzzle"
)

// RulesGame is the chess rules collaborator: legality, mutation, undo and
// checkmate detection are delegated here, the trainer owns none of it.
type RulesGame interface {
	Move(from, to, promotion string) error
	UndoLastMove() error
	IsCheckmate() bool
	SideToMove() string
	FEN() string
	IsPromotion(from, to string) bool
}

// BoardView is the board widget collaborator. MovePiece must call settled once
// the visual move has completed; the session advances its tree pointer only
// then, so board state and tree state never observably diverge.
type BoardView interface {
	SetPosition(fen string, animate bool)
	MovePiece(from, to string, animate bool, settled func())
	SetOrientation(color string)
}

// Notifier surfaces transient outcome toasts. Fire-and-forget.
type Notifier interface {
	ShowOutcome(success bool)
	ShowLoadError()
}

// Verdict is the result of one user move attempt.
type Verdict int

const (
	// VerdictIllegal: not a legal chess move (or no puzzle / input closed).
	// Rejected silently, the board veto is the only feedback.
	VerdictIllegal Verdict = iota
	// VerdictRejected: legal but off the solution tree.
	VerdictRejected
	// VerdictAccepted: on the tree, opponent reply scheduled.
	VerdictAccepted
	// VerdictSolved: the mating move was played.
	VerdictSolved
	// VerdictPromotionPending: validation is suspended until the user picks a
	// promotion piece; resume via ResumePromotion.
	VerdictPromotionPending
)

func (v Verdict) String() string {
	switch v {
	case VerdictIllegal:
		return "illegal"
	case VerdictRejected:
		return "rejected"
	case VerdictAccepted:
		return "accepted"
	case VerdictSolved:
		return "solved"
	case VerdictPromotionPending:
		return "promotion_pending"
	default:
		return "unknown"
	}
}

// DefaultReplyDelay paces the opponent reply so the user's own move animation
// can finish first. UX only, not a correctness requirement.
const DefaultReplyDelay = 500 * time.Millisecond

type pendingPromotion struct {
	from, to string
	priorFEN string
}

// Session drives one user's puzzle attempt: it validates moves against the
// solution tree, plays back forced opponent replies and tracks the solved
// state. All collaborator effects go through the injected BoardView and
// Notifier, so a Session is fully testable in isolation.
type Session struct {
	log    *zap.SugaredLogger
	board  BoardView
	notify Notifier

	replyDelay time.Duration
	schedule   func(d time.Duration, f func())

	mu         sync.Mutex
	game       RulesGame
	puz        *puzzle.Puzzle
	node       *puzzle.TreeNode // nil until the first move is accepted
	solved     bool
	generation uint64
	pending    *pendingPromotion
}

// Option tweaks a Session at construction time.
type Option func(*Session)

// WithReplyDelay overrides the pause before the opponent reply.
func WithReplyDelay(d time.Duration) Option {
	return func(s *Session) { s.replyDelay = d }
}

// WithScheduler replaces the timer used to defer the opponent reply.
func WithScheduler(schedule func(d time.Duration, f func())) Option {
	return func(s *Session) { s.schedule = schedule }
}

func NewSession(log *zap.SugaredLogger, board BoardView, notify Notifier, opts ...Option) *Session {
	s := &Session{
		log:        log,
		board:      board,
		notify:     notify,
		replyDelay: DefaultReplyDelay,
		schedule: func(d time.Duration, f func()) {
			time.AfterFunc(d, f)
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load replaces the whole session state with a fresh puzzle. Bumping the
// generation makes any still-pending opponent-reply timer of the previous
// puzzle inert.
func (s *Session) Load(puz *puzzle.Puzzle, game RulesGame) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.generation++
	s.puz = puz
	s.game = game
	s.node = nil
	s.solved = false
	s.pending = nil

	s.board.SetOrientation(game.SideToMove())
	s.board.SetPosition(game.FEN(), false)
}

// Solved reports whether the current puzzle has been solved.
func (s *Session) Solved() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.solved
}

// AwaitingFirstMove reports whether no move has been accepted yet.
func (s *Session) AwaitingFirstMove() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.puz != nil && s.node == nil && !s.solved
}

// PuzzleID returns the id of the loaded puzzle, 0 when none is loaded.
func (s *Session) PuzzleID() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.puz == nil {
		return 0
	}
	return s.puz.ProblemID
}

// AttemptMove validates a user move given by source and target square. When
// the move is a pawn promotion the verdict is VerdictPromotionPending and the
// attempt is parked until ResumePromotion supplies the chosen piece.
func (s *Session) AttemptMove(from, to string) Verdict {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.game == nil || s.puz == nil || s.solved || s.pending != nil {
		return VerdictIllegal
	}
	if !puzzle.ValidSquare(from) || !puzzle.ValidSquare(to) {
		return VerdictIllegal
	}

	// legality pre-check with a speculative queen promotion; the probe is
	// undone no matter what, the rules engine never stays mutated by it
	probePromo := ""
	if s.game.IsPromotion(from, to) {
		probePromo = "q"
	}
	if err := s.game.Move(from, to, probePromo); err != nil {
		return VerdictIllegal
	}
	if err := s.game.UndoLastMove(); err != nil {
		s.log.Errorf("failed to undo probe move %s%s: %v", from, to, err)
		return VerdictIllegal
	}

	if probePromo != "" {
		s.pending = &pendingPromotion{from: from, to: to, priorFEN: s.game.FEN()}
		return VerdictPromotionPending
	}

	return s.resolve(from, to, "", "")
}

// ResumePromotion continues a suspended promotion attempt with the piece the
// user picked in the dialog ("q", "r", "b" or "n").
func (s *Session) ResumePromotion(piece string) Verdict {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending == nil || s.game == nil || s.solved {
		return VerdictIllegal
	}

	p := s.pending
	s.pending = nil

	if len(piece) != 1 || !isPromotionPiece(piece) {
		s.board.SetPosition(p.priorFEN, false)
		return VerdictIllegal
	}

	return s.resolve(p.from, p.to, piece, p.priorFEN)
}

func isPromotionPiece(piece string) bool {
	switch piece {
	case "q", "r", "b", "n":
		return true
	}
	return false
}

// resolve decides accept/reject for a legality-checked move. revertFEN is
// non-empty for promotion-dialog flows, where a rejection must also repaint
// the board back to the pre-attempt position. Any panic (malformed tree,
// rules engine surprise) is logged and downgraded to a rejection so the input
// loop never crashes.
func (s *Session) resolve(from, to, promotion, revertFEN string) (verdict Verdict) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Errorf("move validation panicked: %v", r)
			s.rejectLocked(revertFEN)
			verdict = VerdictRejected
		}
	}()

	key := puzzle.EncodeMoveKey(from, to, promotion)

	// first move: exact key lookup at the tree root
	if s.node == nil {
		child, ok := s.puz.Tree.Child(key)
		if !ok {
			s.rejectLocked(revertFEN)
			return VerdictRejected
		}
		return s.acceptLocked(from, to, promotion, child)
	}

	if child, ok := s.node.Child(key); ok {
		return s.acceptLocked(from, to, promotion, child)
	}

	// final ply leniency: any move that mates is a solution, even one the
	// generator did not enumerate (alternate mating promotions and the like)
	if s.node.AllChildrenTerminal() {
		if err := s.game.Move(from, to, promotion); err == nil {
			if s.game.IsCheckmate() {
				s.solved = true
				s.board.SetPosition(s.game.FEN(), false)
				s.notify.ShowOutcome(true)
				return VerdictSolved
			}
			if err := s.game.UndoLastMove(); err != nil {
				s.log.Errorf("failed to undo mate probe %s%s%s: %v", from, to, promotion, err)
			}
		}
	}

	s.rejectLocked(revertFEN)
	return VerdictRejected
}

// acceptLocked commits a tree move, repaints the board and either finishes
// the puzzle or advances the pointer and schedules the opponent reply.
func (s *Session) acceptLocked(from, to, promotion string, child *puzzle.TreeNode) Verdict {
	if err := s.game.Move(from, to, promotion); err != nil {
		// the probe said legal, so this should not happen
		s.log.Errorf("failed to commit move %s%s%s: %v", from, to, promotion, err)
		s.rejectLocked("")
		return VerdictRejected
	}

	s.node = child
	s.board.SetPosition(s.game.FEN(), false)

	if child.IsTerminal() {
		s.solved = true
		s.notify.ShowOutcome(true)
		return VerdictSolved
	}

	s.scheduleReplyLocked()
	return VerdictAccepted
}

func (s *Session) rejectLocked(revertFEN string) {
	s.notify.ShowOutcome(false)
	if revertFEN != "" {
		s.board.SetPosition(revertFEN, false)
	}
}
