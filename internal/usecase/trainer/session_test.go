package trainer

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"polgar_trainer/internal/domain/puzzle"
	errs "polgar_trainer/internal/errors"
)

// fakeGame scripts the rules engine: which coordinate pairs are legal and
// which full move keys deliver checkmate.
type fakeGame struct {
	legal   map[string]bool // "d5c3" -> legal, promotion-agnostic
	mates   map[string]bool // "e8g8", "e7e8q" -> position after is mate
	promos  map[string]bool // "e7e8" -> pawn reaching last rank
	applied []string
}

func (f *fakeGame) Move(from, to, promotion string) error {
	if !f.legal[from+to] {
		return errs.ErrIllegalMove
	}
	f.applied = append(f.applied, from+to+promotion)
	return nil
}

func (f *fakeGame) UndoLastMove() error {
	if len(f.applied) == 0 {
		return errs.ErrNoMoveToUndo
	}
	f.applied = f.applied[:len(f.applied)-1]
	return nil
}

func (f *fakeGame) IsCheckmate() bool {
	if len(f.applied) == 0 {
		return false
	}
	return f.mates[f.applied[len(f.applied)-1]]
}

func (f *fakeGame) SideToMove() string { return "w" }

func (f *fakeGame) FEN() string { return fmt.Sprintf("fen-%d", len(f.applied)) }

func (f *fakeGame) IsPromotion(from, to string) bool { return f.promos[from+to] }

type boardCall struct {
	op       string
	from, to string
	fen      string
	animate  bool
}

// fakeBoard records directives; MovePiece settles synchronously like the
// websocket board does.
type fakeBoard struct {
	calls      []boardCall
	panicOnSet bool
}

func (b *fakeBoard) SetPosition(fen string, animate bool) {
	if b.panicOnSet {
		panic("board exploded")
	}
	b.calls = append(b.calls, boardCall{op: "setPosition", fen: fen, animate: animate})
}

func (b *fakeBoard) MovePiece(from, to string, animate bool, settled func()) {
	b.calls = append(b.calls, boardCall{op: "movePiece", from: from, to: to, animate: animate})
	settled()
}

func (b *fakeBoard) SetOrientation(color string) {
	b.calls = append(b.calls, boardCall{op: "setOrientation", fen: color})
}

func (b *fakeBoard) lastCall() boardCall {
	if len(b.calls) == 0 {
		return boardCall{}
	}
	return b.calls[len(b.calls)-1]
}

type fakeNotifier struct {
	outcomes   []bool
	loadErrors int
}

func (n *fakeNotifier) ShowOutcome(success bool) { n.outcomes = append(n.outcomes, success) }
func (n *fakeNotifier) ShowLoadError()           { n.loadErrors++ }

// manualScheduler captures the opponent-reply timers so tests fire them by hand.
type manualScheduler struct {
	fns []func()
}

func (m *manualScheduler) schedule(d time.Duration, f func()) { m.fns = append(m.fns, f) }

func (m *manualScheduler) fire() {
	fns := m.fns
	m.fns = nil
	for _, f := range fns {
		f()
	}
}

func mustTree(t *testing.T, raw string) *puzzle.TreeNode {
	t.Helper()
	root := puzzle.NewNode()
	require.NoError(t, json.Unmarshal([]byte(raw), root))
	return root
}

type fixture struct {
	sess   *Session
	game   *fakeGame
	board  *fakeBoard
	notify *fakeNotifier
	sched  *manualScheduler
}

func newFixture(t *testing.T, tree string, game *fakeGame) *fixture {
	t.Helper()

	f := &fixture{
		game:   game,
		board:  &fakeBoard{},
		notify: &fakeNotifier{},
		sched:  &manualScheduler{},
	}
	f.sess = NewSession(zap.NewNop().Sugar(), f.board, f.notify,
		WithScheduler(f.sched.schedule),
		WithReplyDelay(0),
	)
	f.sess.Load(&puzzle.Puzzle{
		ProblemID: 42,
		First:     "White to Move",
		Type:      "Mate in Two",
		FEN:       "fen-0",
		Tree:      mustTree(t, tree),
	}, game)
	return f
}

const mateInTwoTree = `{"d5c3":{"e6f6":{"e8f8":{}}}}`

func TestScenarioFollowTheTree(t *testing.T) {
	f := newFixture(t, mateInTwoTree, &fakeGame{
		legal: map[string]bool{"d5c3": true, "e6f6": true, "e8f8": true},
	})

	assert.True(t, f.sess.AwaitingFirstMove())

	verdict := f.sess.AttemptMove("d5", "c3")
	assert.Equal(t, VerdictAccepted, verdict)
	assert.False(t, f.sess.AwaitingFirstMove())
	assert.False(t, f.sess.Solved())
	assert.Equal(t, []string{"d5c3"}, f.game.applied)
	assert.Equal(t, "e6f6", f.sess.node.FirstChildMove())

	// forced reply plays back and the pointer advances after the animation
	require.Len(t, f.sched.fns, 1)
	f.sched.fire()
	assert.Equal(t, []string{"d5c3", "e6f6"}, f.game.applied)
	assert.Equal(t, "e8f8", f.sess.node.FirstChildMove())
	assert.Equal(t, "setPosition", f.board.lastCall().op)

	verdict = f.sess.AttemptMove("e8", "f8")
	assert.Equal(t, VerdictSolved, verdict)
	assert.True(t, f.sess.Solved())
	assert.True(t, f.sess.node.IsTerminal())
	assert.Equal(t, []bool{true}, f.notify.outcomes)

	// no further input once solved
	assert.Equal(t, VerdictIllegal, f.sess.AttemptMove("e8", "f8"))
	assert.Equal(t, []string{"d5c3", "e6f6", "e8f8"}, f.game.applied)
}

func TestScenarioLenientMatingMove(t *testing.T) {
	f := newFixture(t, mateInTwoTree, &fakeGame{
		legal: map[string]bool{"d5c3": true, "e6f6": true, "e8f8": true, "e8g8": true},
		mates: map[string]bool{"e8g8": true},
	})

	require.Equal(t, VerdictAccepted, f.sess.AttemptMove("d5", "c3"))
	f.sched.fire()

	// e8g8 is not in the tree, but it mates, and this is the final ply
	verdict := f.sess.AttemptMove("e8", "g8")
	assert.Equal(t, VerdictSolved, verdict)
	assert.True(t, f.sess.Solved())
	assert.Equal(t, "e8g8", f.game.applied[len(f.game.applied)-1])
}

func TestLeniencyOnlyAtFinalPly(t *testing.T) {
	// the tree still has depth beyond this ply, so a mating side-move does not
	// count: only the exact key is accepted
	f := newFixture(t, `{"d5c3":{"e6f6":{"e8f8":{"a1a2":{"a2a3":{}}}}}}`, &fakeGame{
		legal: map[string]bool{"d5c3": true, "e6f6": true, "c3e4": true},
		mates: map[string]bool{"c3e4": true},
	})
	require.Equal(t, VerdictAccepted, f.sess.AttemptMove("d5", "c3"))
	f.sched.fire()

	verdict := f.sess.AttemptMove("c3", "e4")
	assert.Equal(t, VerdictRejected, verdict)
	assert.False(t, f.sess.Solved())
	assert.Equal(t, []string{"d5c3", "e6f6"}, f.game.applied, "no mate probe off the final ply")
}

func TestScenarioFirstMoveOffTree(t *testing.T) {
	f := newFixture(t, mateInTwoTree, &fakeGame{
		legal: map[string]bool{"d5c3": true, "a2a3": true},
	})

	verdict := f.sess.AttemptMove("a2", "a3")
	assert.Equal(t, VerdictRejected, verdict)
	assert.True(t, f.sess.AwaitingFirstMove())
	assert.Equal(t, 42, f.sess.PuzzleID())
	assert.Empty(t, f.game.applied, "probe undone, nothing committed")
	assert.Equal(t, []bool{false}, f.notify.outcomes)
	assert.Empty(t, f.sched.fns)
}

func TestIllegalMoveIsSilent(t *testing.T) {
	f := newFixture(t, mateInTwoTree, &fakeGame{
		legal: map[string]bool{"d5c3": true},
	})

	verdict := f.sess.AttemptMove("h1", "h5")
	assert.Equal(t, VerdictIllegal, verdict)
	assert.Empty(t, f.notify.outcomes, "no toast for illegal moves")
	assert.Empty(t, f.game.applied)

	// malformed squares are vetoed the same way
	assert.Equal(t, VerdictIllegal, f.sess.AttemptMove("", "e4"))
	assert.Equal(t, VerdictIllegal, f.sess.AttemptMove("z9", "e4"))
}

func TestRejectionMutatesNothing(t *testing.T) {
	f := newFixture(t, mateInTwoTree, &fakeGame{
		legal: map[string]bool{"d5c3": true, "e6f6": true, "b1b2": true},
	})

	require.Equal(t, VerdictAccepted, f.sess.AttemptMove("d5", "c3"))
	f.sched.fire()

	nodeBefore := f.sess.node
	appliedBefore := len(f.game.applied)

	require.Equal(t, VerdictRejected, f.sess.AttemptMove("b1", "b2"))

	assert.Same(t, nodeBefore, f.sess.node)
	assert.False(t, f.sess.Solved())
	assert.Equal(t, 42, f.sess.PuzzleID())
	assert.Equal(t, appliedBefore, len(f.game.applied))
}

func TestScenarioPromotionDialog(t *testing.T) {
	f := newFixture(t, `{"d5c3":{"e6f6":{"e7e8q":{}}}}`, &fakeGame{
		legal:  map[string]bool{"d5c3": true, "e6f6": true, "e7e8": true},
		promos: map[string]bool{"e7e8": true},
	})

	require.Equal(t, VerdictAccepted, f.sess.AttemptMove("d5", "c3"))
	f.sched.fire()

	verdict := f.sess.AttemptMove("e7", "e8")
	assert.Equal(t, VerdictPromotionPending, verdict)
	assert.Equal(t, []string{"d5c3", "e6f6"}, f.game.applied, "probe undone while dialog is open")

	// input is parked until the dialog resolves
	assert.Equal(t, VerdictIllegal, f.sess.AttemptMove("d5", "c3"))

	// wrong piece: rejected, board reverts, pointer untouched
	nodeBefore := f.sess.node
	verdict = f.sess.ResumePromotion("n")
	assert.Equal(t, VerdictRejected, verdict)
	assert.Same(t, nodeBefore, f.sess.node)
	assert.Equal(t, []bool{false}, f.notify.outcomes)
	assert.Equal(t, boardCall{op: "setPosition", fen: "fen-2"}, f.board.lastCall())
	assert.Equal(t, []string{"d5c3", "e6f6"}, f.game.applied)

	// retry with the right piece solves the puzzle
	require.Equal(t, VerdictPromotionPending, f.sess.AttemptMove("e7", "e8"))
	verdict = f.sess.ResumePromotion("q")
	assert.Equal(t, VerdictSolved, verdict)
	assert.Equal(t, "e7e8q", f.game.applied[len(f.game.applied)-1])
}

func TestResumeWithoutPendingPromotion(t *testing.T) {
	f := newFixture(t, mateInTwoTree, &fakeGame{
		legal: map[string]bool{"d5c3": true},
	})
	assert.Equal(t, VerdictIllegal, f.sess.ResumePromotion("q"))
}

func TestStaleOpponentTimerIsInert(t *testing.T) {
	f := newFixture(t, mateInTwoTree, &fakeGame{
		legal: map[string]bool{"d5c3": true, "e6f6": true},
	})

	require.Equal(t, VerdictAccepted, f.sess.AttemptMove("d5", "c3"))
	require.Len(t, f.sched.fns, 1)

	// navigate away before the reply timer fires
	nextGame := &fakeGame{legal: map[string]bool{"a1a2": true}}
	f.sess.Load(&puzzle.Puzzle{
		ProblemID: 43,
		FEN:       "fen-0",
		Tree:      mustTree(t, `{"a1a2":{}}`),
	}, nextGame)

	f.sched.fire()

	assert.Empty(t, nextGame.applied, "stale timer must not touch the new game")
	assert.Nil(t, f.sess.node)
	assert.True(t, f.sess.AwaitingFirstMove())
	assert.Equal(t, 43, f.sess.PuzzleID())
}

func TestValidationPanicBecomesRejection(t *testing.T) {
	f := newFixture(t, mateInTwoTree, &fakeGame{
		legal: map[string]bool{"d5c3": true},
	})
	f.board.panicOnSet = true

	verdict := f.sess.AttemptMove("d5", "c3")
	assert.Equal(t, VerdictRejected, verdict)
	assert.Equal(t, []bool{false}, f.notify.outcomes)
}

func TestMateInOneTerminalFirstMove(t *testing.T) {
	f := newFixture(t, `{"d1d8":{}}`, &fakeGame{
		legal: map[string]bool{"d1d8": true},
	})

	verdict := f.sess.AttemptMove("d1", "d8")
	assert.Equal(t, VerdictSolved, verdict)
	assert.True(t, f.sess.Solved())
	assert.Empty(t, f.sched.fns, "no opponent reply after the mating move")
}
