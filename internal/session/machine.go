package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/park285/hotseat-chess/internal/msgcat"
	"github.com/park285/hotseat-chess/internal/obslog"
	"github.com/park285/hotseat-chess/internal/rules"
)

const announceTimeout = 2 * time.Second

// Machine owns one game session. All methods are safe for concurrent use.
type Machine struct {
	mu sync.Mutex

	engine    rules.Engine
	sink      ResultSink
	catalog   *msgcat.Catalog
	announcer Announcer
	logger    *zap.Logger
	strict    bool
	now       func() time.Time

	state      State
	pos        rules.Position
	selected   rules.Square
	hasSel     bool
	gameOver   bool
	result     string
	lastMove   *rules.Move
	moves      []string
	gameID     string
	startedAt  time.Time
	completed  int
	persistErr error
}

type Option func(*Machine)

// WithCatalog sets the catalog used for result texts and side names.
func WithCatalog(c *msgcat.Catalog) Option { return func(m *Machine) { m.catalog = c } }

// WithAnnouncer registers a receiver for finished games.
func WithAnnouncer(a Announcer) Option { return func(m *Machine) { m.announcer = a } }

// WithLogger overrides the global logger.
func WithLogger(l *zap.Logger) Option { return func(m *Machine) { m.logger = l } }

// WithStrictInvariants makes invariant violations panic instead of self-correcting.
func WithStrictInvariants(strict bool) Option { return func(m *Machine) { m.strict = strict } }

// WithClock overrides time.Now for result timestamps.
func WithClock(now func() time.Time) Option { return func(m *Machine) { m.now = now } }

// New starts a session at the engine's start position. sink may be nil, in
// which case results are not persisted.
func New(engine rules.Engine, sink ResultSink, opts ...Option) *Machine {
	if engine == nil {
		panic("session: nil engine")
	}
	m := &Machine{engine: engine, sink: sink, now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = obslog.L()
	}
	m.resetLocked()
	return m
}

// Select feeds one square pick into the machine.
func (m *Machine) Select(sq rules.Square) Outcome {
	m.mu.Lock()
	out, finished := m.selectLocked(sq)
	m.checkInvariantsLocked()
	announcer := m.announcer
	m.mu.Unlock()

	if finished != nil && announcer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), announceTimeout)
		defer cancel()
		if err := announcer.Announce(ctx, *finished); err != nil {
			m.logger.Warn("session_announce_error", zap.String("game_id", finished.GameID), zap.Error(err))
		}
	}
	return out
}

func (m *Machine) selectLocked(sq rules.Square) (Outcome, *Result) {
	switch m.state {
	case GameOver:
		return Ignored, nil
	case AwaitingSelection:
		if !sq.Valid() {
			return Ignored, nil
		}
		owner, ok := m.engine.PieceOwner(m.pos, sq)
		if !ok || owner != m.engine.SideToMove(m.pos) {
			return Ignored, nil
		}
		m.selected, m.hasSel = sq, true
		m.state = AwaitingDestination
		return Selected, nil
	}

	from := m.selected
	m.clearSelectionLocked()
	if sq == from {
		return Deselected, nil
	}
	mv, ok := m.matchLegal(from, sq)
	if !ok {
		m.logger.Debug("session_move_rejected", zap.String("game_id", m.gameID), zap.String("from", from.String()), zap.String("to", sq.String()))
		return Rejected, nil
	}
	next, err := m.engine.Apply(m.pos, mv)
	if err != nil {
		// listed as legal but refused: keep the old position
		m.logger.Error("session_apply_error", zap.String("game_id", m.gameID), zap.String("move", mv.String()), zap.Error(err))
		return Rejected, nil
	}
	mover := m.engine.SideToMove(m.pos)
	m.pos = next
	m.lastMove = &mv
	m.moves = append(m.moves, mv.String())
	m.logger.Info("session_move",
		zap.String("game_id", m.gameID),
		zap.String("side", mover.String()),
		zap.String("move", mv.String()),
		zap.Int("ply", len(m.moves)),
	)

	res := m.evaluateLocked()
	if res == nil {
		return Moved, nil
	}
	return Finished, res
}

// matchLegal finds the legal move for a pick pair. Promotions are completed with a queen.
func (m *Machine) matchLegal(from, to rules.Square) (rules.Move, bool) {
	var (
		found bool
		pick  rules.Move
	)
	for _, lm := range m.engine.LegalMoves(m.pos) {
		if lm.From != from || lm.To != to {
			continue
		}
		if !found || lm.Promotion == rules.Queen {
			pick, found = lm, true
		}
	}
	return pick, found
}

// evaluateLocked checks terminal conditions of the new position, first match wins.
func (m *Machine) evaluateLocked() *Result {
	var (
		method Method
		winner rules.Side
		text   string
	)
	switch {
	case m.engine.IsCheckmate(m.pos):
		// the mated side is the one to move
		method, winner = MethodCheckmate, m.engine.SideToMove(m.pos).Opponent()
		name := m.sideName(winner)
		text = m.catalog.RenderOr("result.checkmate", map[string]any{"Winner": name}, name+" wins")
	case m.engine.IsStalemate(m.pos):
		method = MethodStalemate
		text = m.catalog.RenderOr("result.stalemate", nil, "draw (stalemate)")
	case m.engine.HasInsufficientMaterial(m.pos):
		method = MethodInsufficientMaterial
		text = m.catalog.RenderOr("result.insufficient_material", nil, "draw (insufficient material)")
	default:
		return nil
	}

	m.gameOver = true
	m.result = text
	m.state = GameOver
	m.completed++
	m.persistLocked(text)

	res := &Result{
		GameID:     m.gameID,
		Text:       text,
		Winner:     winner,
		Method:     method,
		MovesUCI:   append([]string(nil), m.moves...),
		FEN:        m.pos.FEN(),
		StartedAt:  m.startedAt,
		FinishedAt: m.now(),
	}
	if winner != rules.NoSide {
		res.WinnerName = winner.String()
	}
	m.logger.Info("session_result",
		zap.String("game_id", m.gameID),
		zap.String("method", string(method)),
		zap.String("result", text),
		zap.Int("ply", len(m.moves)),
	)
	return res
}

func (m *Machine) persistLocked(record string) {
	if m.sink == nil {
		return
	}
	if err := m.sink.Append(record); err != nil {
		m.persistErr = fmt.Errorf("persist result: %w", err)
		m.logger.Error("result_persist_error", zap.String("game_id", m.gameID), zap.Error(err))
		return
	}
	m.persistErr = nil
}

func (m *Machine) sideName(s rules.Side) string {
	key := "side.white"
	if s == rules.Black {
		key = "side.black"
	}
	return m.catalog.RenderOr(key, nil, s.String())
}

// Reset replaces the whole session with a fresh game. Valid in any state.
func (m *Machine) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	prev := m.gameID
	m.resetLocked()
	m.logger.Info("session_reset", zap.String("prev_game_id", prev), zap.String("game_id", m.gameID))
}

func (m *Machine) resetLocked() {
	m.state = AwaitingSelection
	m.pos = m.engine.Start()
	m.clearSelectionLocked()
	m.gameOver = false
	m.result = ""
	m.lastMove = nil
	m.moves = nil
	m.gameID = uuid.NewString()
	m.startedAt = m.now()
	m.persistErr = nil
}

func (m *Machine) clearSelectionLocked() {
	m.selected, m.hasSel = rules.NoSquare, false
	if m.state == AwaitingDestination {
		m.state = AwaitingSelection
	}
}

// Snapshot returns a copy of the current session.
func (m *Machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := Snapshot{
		State:      m.state,
		Position:   m.pos,
		GameOver:   m.gameOver,
		Result:     m.result,
		SideToMove: m.engine.SideToMove(m.pos),
		Ply:        len(m.moves),
		GameID:     m.gameID,
		Completed:  m.completed,
		PersistErr: m.persistErr,
	}
	if m.hasSel {
		sel := m.selected
		s.Selected = &sel
	}
	if m.lastMove != nil {
		lm := *m.lastMove
		s.LastMove = &lm
	}
	return s
}

// checkInvariantsLocked enforces: GameOver implies no selection and a result;
// a selection always holds a piece of the side to move.
func (m *Machine) checkInvariantsLocked() {
	var violation string
	switch {
	case m.gameOver && m.hasSel:
		violation = "selection while game over"
	case m.gameOver && m.result == "":
		violation = "game over without result"
	case m.gameOver != (m.state == GameOver):
		violation = "state disagrees with game over flag"
	case m.hasSel != (m.state == AwaitingDestination):
		violation = "state disagrees with selection"
	case m.hasSel:
		owner, ok := m.engine.PieceOwner(m.pos, m.selected)
		if !ok || owner != m.engine.SideToMove(m.pos) {
			violation = "selection does not hold a piece of the side to move"
		}
	}
	if violation == "" {
		return
	}
	if m.strict {
		panic("session invariant violated: " + violation)
	}
	m.hasSel, m.selected = false, rules.NoSquare
	switch {
	case m.gameOver && m.result == "":
		m.gameOver = false
		m.state = AwaitingSelection
	case m.gameOver:
		m.state = GameOver
	default:
		m.state = AwaitingSelection
	}
	m.logger.Warn("session_invariant_corrected", zap.String("game_id", m.gameID), zap.String("violation", violation))
}
