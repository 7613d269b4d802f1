package trainer

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"polgar_trainer/internal/bootstrap"
	"polgar_trainer/internal/delivery/identity"
	"polgar_trainer/internal/domain/puzzle"
	"polgar_trainer/internal/domain/rules"
	errs "polgar_trainer/internal/errors"
	"polgar_trainer/internal/httpresponse"
	usecase "polgar_trainer/internal/usecase/trainer"
	"polgar_trainer/internal/utils"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type TrainerHandler struct {
	cfg      bootstrap.Config
	log      *zap.SugaredLogger
	trainer  *usecase.TrainerUseCase
	identity *identity.Handler
}

func NewTrainerHandler(cfg bootstrap.Config, log *zap.SugaredLogger, trainer *usecase.TrainerUseCase, id *identity.Handler) *TrainerHandler {
	return &TrainerHandler{
		cfg:      cfg,
		log:      log,
		trainer:  trainer,
		identity: id,
	}
}

// clientCommand is one frame read from the board widget.
type clientCommand struct {
	Action    string `json:"action"`
	From      string `json:"from,omitempty"`
	To        string `json:"to,omitempty"`
	Piece     string `json:"piece,omitempty"`
	ProblemID int    `json:"problemid,omitempty"`
}

// wsBoard renders board commands as websocket frames. It implements both the
// BoardView and Notifier collaborators of a session; a write mutex keeps
// session callbacks and opponent-reply timers from interleaving frames.
type wsBoard struct {
	mu   sync.Mutex
	conn *websocket.Conn
	log  *zap.SugaredLogger
}

func (b *wsBoard) send(frame any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.conn.WriteJSON(frame); err != nil {
		b.log.Errorf("failed to write frame: %v", err)
	}
}

func (b *wsBoard) SetPosition(fen string, animate bool) {
	b.send(map[string]any{"type": "position", "fen": fen, "animate": animate})
}

func (b *wsBoard) MovePiece(from, to string, animate bool, settled func()) {
	b.send(map[string]any{"type": "move", "from": from, "to": to, "animate": animate})
	// the frame is on the wire, the widget animates on its own clock
	settled()
}

func (b *wsBoard) SetOrientation(color string) {
	b.send(map[string]any{"type": "orientation", "color": color})
}

func (b *wsBoard) ShowOutcome(success bool) {
	b.send(map[string]any{"type": "outcome", "success": success})
}

func (b *wsBoard) ShowLoadError() {
	b.send(map[string]any{"type": "load_error"})
}

func (b *wsBoard) sendPuzzle(puz puzzle.Puzzle, total int) {
	b.send(map[string]any{
		"type":      "puzzle",
		"problemid": puz.ProblemID,
		"first":     puz.First,
		"label":     puz.Type,
		"total":     total,
	})
}

func (b *wsBoard) sendVerdict(v usecase.Verdict) {
	b.send(map[string]any{"type": "verdict", "verdict": v.String()})
}

func (b *wsBoard) sendPromotionPrompt(square, color string) {
	b.send(map[string]any{"type": "promotion_prompt", "square": square, "color": color})
}

// ServeWS runs one trainer connection: pick the starting puzzle, load it into
// a fresh session and translate widget commands into session calls until the
// socket closes.
func (h *TrainerHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	userID := h.identity.EnsureUserID(w, r)

	urlID := 0
	if raw := r.URL.Query().Get("problem"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			urlID = parsed
		}
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Errorf("websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	board := &wsBoard{conn: conn, log: h.log}
	var opts []usecase.Option
	if h.cfg.ReplyDelayMs > 0 {
		opts = append(opts, usecase.WithReplyDelay(time.Duration(h.cfg.ReplyDelayMs)*time.Millisecond))
	}
	session := usecase.NewSession(h.log, board, board, opts...)

	ctx := r.Context()
	startID := h.trainer.StartPuzzleID(ctx, userID, urlID)
	h.loadIntoSession(ctx, session, board, userID, startID)

	for {
		var cmd clientCommand
		if err := conn.ReadJSON(&cmd); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Errorf("connection closed unexpectedly: %v", err)
			}
			return
		}
		h.handleCommand(ctx, session, board, userID, cmd)
	}
}

func (h *TrainerHandler) handleCommand(ctx context.Context, session *usecase.Session, board *wsBoard, userID string, cmd clientCommand) {
	switch cmd.Action {
	case "move":
		verdict := session.AttemptMove(cmd.From, cmd.To)
		board.sendVerdict(verdict)
		if verdict == usecase.VerdictPromotionPending {
			board.sendPromotionPrompt(cmd.To, promotionColor(cmd.To))
		}
	case "promote":
		board.sendVerdict(session.ResumePromotion(cmd.Piece))
	case "load":
		h.loadIntoSession(ctx, session, board, userID, cmd.ProblemID)
	case "next":
		h.loadIntoSession(ctx, session, board, userID, h.trainer.NextPuzzleID(ctx, session.PuzzleID()))
	case "prev":
		h.loadIntoSession(ctx, session, board, userID, h.trainer.PrevPuzzleID(ctx, session.PuzzleID()))
	default:
		h.log.Errorf("unknown action %q from user %s", cmd.Action, userID)
	}
}

// promotionColor derives the promoting side from the target rank.
func promotionColor(to string) string {
	if len(to) == 2 && to[1] == '8' {
		return "w"
	}
	return "b"
}

func (h *TrainerHandler) loadIntoSession(ctx context.Context, session *usecase.Session, board *wsBoard, userID string, id int) {
	puz, err := h.trainer.LoadPuzzle(ctx, userID, id)
	if err != nil {
		h.log.Errorf("failed to load puzzle %d: %v", id, err)
		board.ShowLoadError()
		return
	}

	game, err := rules.NewGame(puz.FEN)
	if err != nil {
		h.log.Errorf("puzzle %d has an invalid position %q: %v", id, puz.FEN, err)
		board.ShowLoadError()
		return
	}

	total, err := h.trainer.CountPuzzles(ctx)
	if err != nil {
		total = 0
	}

	board.sendPuzzle(puz, total)
	session.Load(&puz, game)
}

type getPuzzleRequest struct {
	ProblemID int `json:"problemid"`
}

type puzzleResponse struct {
	ProblemID int              `json:"problemid"`
	First     string           `json:"first"`
	Type      string           `json:"type"`
	FEN       string           `json:"fen"`
	Moves     *puzzle.TreeNode `json:"moves"`
}

// GetPuzzleByID serves one puzzle as JSON, solution tree included.
func (h *TrainerHandler) GetPuzzleByID(w http.ResponseWriter, r *http.Request) {
	var req getPuzzleRequest
	if err := utils.DecodeJSONRequest(r, &req); err != nil {
		httpresponse.WriteResponseWithStatus(w, http.StatusBadRequest, httpresponse.ErrorResponse{
			ErrorDescription: httpresponse.MALFORMEDJSON_errorDesc,
		})
		return
	}

	puz, err := h.trainer.LoadPuzzle(r.Context(), "", req.ProblemID)
	if errors.Is(err, errs.ErrPuzzleNotFound) {
		httpresponse.WriteResponseWithStatus(w, http.StatusNotFound, httpresponse.ErrorResponse{
			ErrorDescription: err.Error(),
		})
		return
	} else if err != nil {
		httpresponse.WriteInternalErrorResponse(w)
		return
	}

	httpresponse.WriteResponseWithStatus(w, http.StatusOK, puzzleResponse{
		ProblemID: puz.ProblemID,
		First:     puz.First,
		Type:      puz.Type,
		FEN:       puz.FEN,
		Moves:     puz.Tree,
	})
}

// PuzzleCount serves the total number of puzzles in the set.
func (h *TrainerHandler) PuzzleCount(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	count, err := h.trainer.CountPuzzles(ctx)
	if err != nil {
		httpresponse.WriteInternalErrorResponse(w)
		return
	}

	httpresponse.WriteResponseWithStatus(w, http.StatusOK, map[string]int{"count": count})
}
