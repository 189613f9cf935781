package session

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/park285/hotseat-chess/internal/msgcat"
	"github.com/park285/hotseat-chess/internal/resultlog"
	"github.com/park285/hotseat-chess/internal/rules"
)

// fakePos is a position for fakeEngine; ply decides the side to move.
type fakePos struct {
	ply   int
	board rules.Board
}

func (p *fakePos) FEN() string        { return fmt.Sprintf("fake/%d", p.ply) }
func (p *fakePos) Board() rules.Board { return p.board }

// fakeEngine accepts every listed move and reports whatever terminal flags are set.
type fakeEngine struct {
	legal        []rules.Move
	checkmate    bool
	stalemate    bool
	insufficient bool
	applyErr     error

	// lieAfter > 0 makes PieceOwner report an empty square after that many calls.
	lieAfter   int
	ownerCalls int
}

func (e *fakeEngine) Start() rules.Position {
	var b rules.Board
	b[rules.MustSquare("e2")] = rules.Piece{Side: rules.White, Kind: rules.Pawn}
	b[rules.MustSquare("e7")] = rules.Piece{Side: rules.Black, Kind: rules.Pawn}
	return &fakePos{board: b}
}

func (e *fakeEngine) LegalMoves(rules.Position) []rules.Move { return e.legal }

func (e *fakeEngine) Apply(p rules.Position, m rules.Move) (rules.Position, error) {
	if e.applyErr != nil {
		return nil, e.applyErr
	}
	fp := p.(*fakePos)
	next := &fakePos{ply: fp.ply + 1, board: fp.board}
	next.board[m.To] = next.board[m.From]
	next.board[m.From] = rules.NoPiece
	return next, nil
}

func (e *fakeEngine) IsCheckmate(rules.Position) bool             { return e.checkmate }
func (e *fakeEngine) IsStalemate(rules.Position) bool             { return e.stalemate }
func (e *fakeEngine) HasInsufficientMaterial(rules.Position) bool { return e.insufficient }

func (e *fakeEngine) PieceOwner(p rules.Position, sq rules.Square) (rules.Side, bool) {
	e.ownerCalls++
	if e.lieAfter > 0 && e.ownerCalls > e.lieAfter {
		return rules.NoSide, false
	}
	pc := p.Board().Piece(sq)
	if pc.Empty() {
		return rules.NoSide, false
	}
	return pc.Side, true
}

func (e *fakeEngine) SideToMove(p rules.Position) rules.Side {
	if p.(*fakePos).ply%2 == 0 {
		return rules.White
	}
	return rules.Black
}

type memSink struct {
	mu      sync.Mutex
	records []string
	err     error
}

func (s *memSink) Append(record string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.records = append(s.records, record)
	return nil
}

type recordingAnnouncer struct {
	mu      sync.Mutex
	results []Result
	err     error
}

func (a *recordingAnnouncer) Announce(_ context.Context, r Result) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.results = append(a.results, r)
	return a.err
}

func sq(s string) rules.Square { return rules.MustSquare(s) }

// play feeds UCI moves as two picks each and returns the last outcome.
func play(t *testing.T, m *Machine, moves ...string) Outcome {
	t.Helper()
	var out Outcome
	for _, mv := range moves {
		require.Len(t, mv, 4, "move %q", mv)
		require.Equal(t, Selected, m.Select(sq(mv[:2])), "pick from for %s", mv)
		out = m.Select(sq(mv[2:4]))
		require.Contains(t, []Outcome{Moved, Finished}, out, "move %s", mv)
	}
	return out
}

func newRealMachine(t *testing.T, opts ...Option) (*Machine, *resultlog.Log) {
	t.Helper()
	log, err := resultlog.Open(filepath.Join(t.TempDir(), "scores.txt"))
	require.NoError(t, err)
	return New(rules.NewChessEngine(), log, opts...), log
}

func TestInitialSnapshot(t *testing.T) {
	m, _ := newRealMachine(t)
	s := m.Snapshot()
	require.Equal(t, AwaitingSelection, s.State)
	require.Nil(t, s.Selected)
	require.False(t, s.GameOver)
	require.Empty(t, s.Result)
	require.Equal(t, rules.White, s.SideToMove)
	require.Equal(t, rules.NewChessEngine().Start().FEN(), s.Position.FEN())
	require.NotEmpty(t, s.GameID)
}

func TestSelectOnlyOwnPieces(t *testing.T) {
	m, _ := newRealMachine(t)
	require.Equal(t, Ignored, m.Select(sq("e7")), "opponent piece")
	require.Equal(t, Ignored, m.Select(sq("e4")), "empty square")
	require.Equal(t, Ignored, m.Select(rules.NoSquare))
	require.Equal(t, AwaitingSelection, m.Snapshot().State)

	require.Equal(t, Selected, m.Select(sq("g1")))
	s := m.Snapshot()
	require.Equal(t, AwaitingDestination, s.State)
	require.NotNil(t, s.Selected)
	require.Equal(t, sq("g1"), *s.Selected)
}

func TestOpeningMove(t *testing.T) {
	m, _ := newRealMachine(t)
	require.Equal(t, Selected, m.Select(sq("e2")))
	require.Equal(t, AwaitingDestination, m.Snapshot().State)
	require.Equal(t, Moved, m.Select(sq("e4")))

	s := m.Snapshot()
	require.Equal(t, AwaitingSelection, s.State)
	require.Equal(t, rules.Black, s.SideToMove)
	require.False(t, s.GameOver)
	require.Nil(t, s.Selected)
	require.Equal(t, 1, s.Ply)
	require.NotNil(t, s.LastMove)
	require.Equal(t, "e2e4", s.LastMove.String())

	eng := rules.NewChessEngine()
	want, err := eng.Apply(eng.Start(), rules.Move{From: sq("e2"), To: sq("e4")})
	require.NoError(t, err)
	require.Equal(t, want.FEN(), s.Position.FEN())
}

func TestIllegalDestinationTwice(t *testing.T) {
	m, _ := newRealMachine(t)
	start := m.Snapshot().Position.FEN()
	for i := 0; i < 2; i++ {
		require.Equal(t, Selected, m.Select(sq("e2")))
		require.Equal(t, Rejected, m.Select(sq("e5")))
		s := m.Snapshot()
		require.Equal(t, start, s.Position.FEN())
		require.Equal(t, AwaitingSelection, s.State)
		require.Nil(t, s.Selected)
	}
}

func TestRepickCollapsesSelection(t *testing.T) {
	m, _ := newRealMachine(t)
	require.Equal(t, Selected, m.Select(sq("e2")))
	require.Equal(t, Deselected, m.Select(sq("e2")))
	require.Equal(t, AwaitingSelection, m.Snapshot().State)

	require.Equal(t, Selected, m.Select(sq("e2")))
	require.Equal(t, Rejected, m.Select(sq("d2")), "another own piece is just an illegal destination")
	require.Nil(t, m.Snapshot().Selected)
}

func TestFoolsMate(t *testing.T) {
	m, log := newRealMachine(t)
	require.Equal(t, Finished, play(t, m, "f2f3", "e7e5", "g2g4", "d8h4"))

	s := m.Snapshot()
	require.True(t, s.GameOver)
	require.Equal(t, GameOver, s.State)
	require.Equal(t, "Black wins", s.Result)
	require.Nil(t, s.Selected)
	require.Equal(t, 1, s.Completed)
	require.NoError(t, s.PersistErr)

	recent, err := log.ReadRecent(10)
	require.NoError(t, err)
	require.Equal(t, []string{"Black wins"}, recent)

	// further picks change nothing and do not append again
	require.Equal(t, Ignored, m.Select(sq("e1")))
	require.Equal(t, Ignored, m.Select(sq("a7")))
	recent, err = log.ReadRecent(10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
}

func TestStalemate(t *testing.T) {
	m, log := newRealMachine(t)
	out := play(t, m,
		"e2e3", "a7a5", "d1h5", "a8a6", "h5a5", "h7h5", "h2h4", "a6h6", "a5c7", "f7f6",
		"c7d7", "e8f7", "d7b7", "d8d3", "b7b8", "d3h7", "b8c8", "f7g6", "c8e6",
	)
	require.Equal(t, Finished, out)
	require.Equal(t, "draw (stalemate)", m.Snapshot().Result)
	recent, err := log.ReadRecent(1)
	require.NoError(t, err)
	require.Equal(t, []string{"draw (stalemate)"}, recent)
}

func TestPromotionAutoQueens(t *testing.T) {
	m, _ := newRealMachine(t)
	play(t, m, "h2h4", "g7g5", "h4g5", "h7h6", "g5h6", "a7a6", "h6h7", "a6a5", "h7g8")
	s := m.Snapshot()
	require.NotNil(t, s.LastMove)
	require.Equal(t, "h7g8q", s.LastMove.String())
	pc := s.Position.Board().Piece(sq("g8"))
	require.Equal(t, rules.Piece{Side: rules.White, Kind: rules.Queen}, pc)
}

func TestResetAfterGameOver(t *testing.T) {
	m, _ := newRealMachine(t)
	play(t, m, "f2f3", "e7e5", "g2g4", "d8h4")
	before := m.Snapshot()

	m.Reset()
	s := m.Snapshot()
	require.Equal(t, AwaitingSelection, s.State)
	require.False(t, s.GameOver)
	require.Empty(t, s.Result)
	require.Nil(t, s.LastMove)
	require.Zero(t, s.Ply)
	require.Equal(t, rules.NewChessEngine().Start().FEN(), s.Position.FEN())
	require.NotEqual(t, before.GameID, s.GameID)
	require.Equal(t, 1, s.Completed)

	require.Equal(t, Selected, m.Select(sq("e2")))
}

func TestResetMidSelection(t *testing.T) {
	m, _ := newRealMachine(t)
	play(t, m, "e2e4")
	require.Equal(t, Selected, m.Select(sq("e7")))
	m.Reset()
	s := m.Snapshot()
	require.Nil(t, s.Selected)
	require.Equal(t, rules.White, s.SideToMove)
}

func TestTerminalPriority(t *testing.T) {
	cases := []struct {
		name   string
		eng    fakeEngine
		result string
	}{
		{"checkmate beats insufficient material", fakeEngine{checkmate: true, insufficient: true}, "White wins"},
		{"checkmate beats stalemate", fakeEngine{checkmate: true, stalemate: true}, "White wins"},
		{"stalemate beats insufficient material", fakeEngine{stalemate: true, insufficient: true}, "draw (stalemate)"},
		{"insufficient material alone", fakeEngine{insufficient: true}, "draw (insufficient material)"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			eng := tc.eng
			eng.legal = []rules.Move{{From: sq("e2"), To: sq("e4")}}
			sink := &memSink{}
			m := New(&eng, sink)
			require.Equal(t, Finished, play(t, m, "e2e4"))
			require.Equal(t, tc.result, m.Snapshot().Result)
			require.Equal(t, []string{tc.result}, sink.records)
		})
	}
}

func TestApplyFailureKeepsPosition(t *testing.T) {
	eng := &fakeEngine{legal: []rules.Move{{From: sq("e2"), To: sq("e4")}}, applyErr: errors.New("boom")}
	m := New(eng, nil)
	require.Equal(t, Selected, m.Select(sq("e2")))
	require.Equal(t, Rejected, m.Select(sq("e4")))
	require.Equal(t, "fake/0", m.Snapshot().Position.FEN())
}

func TestPersistFailureDoesNotStopPlay(t *testing.T) {
	eng := &fakeEngine{legal: []rules.Move{{From: sq("e2"), To: sq("e4")}}, checkmate: true}
	sink := &memSink{err: errors.New("disk full")}
	m := New(eng, sink)
	require.Equal(t, Finished, play(t, m, "e2e4"))

	s := m.Snapshot()
	require.True(t, s.GameOver)
	require.Error(t, s.PersistErr)
	require.Contains(t, s.PersistErr.Error(), "disk full")

	m.Reset()
	require.NoError(t, m.Snapshot().PersistErr)
	require.Equal(t, Selected, m.Select(sq("e2")))
}

// stepClock returns base, then base+step, base+2*step and so on.
func stepClock(base time.Time, step time.Duration) func() time.Time {
	n := 0
	return func() time.Time {
		t := base.Add(time.Duration(n) * step)
		n++
		return t
	}
}

func TestAnnouncerOncePerGame(t *testing.T) {
	ann := &recordingAnnouncer{err: errors.New("offline")}
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m, _ := newRealMachine(t, WithAnnouncer(ann), WithClock(stepClock(base, time.Minute)))
	play(t, m, "f2f3", "e7e5", "g2g4", "d8h4")
	m.Select(sq("e1"))

	require.Len(t, ann.results, 1)
	r := ann.results[0]
	require.Equal(t, m.Snapshot().GameID, r.GameID)
	require.Equal(t, MethodCheckmate, r.Method)
	require.Equal(t, rules.Black, r.Winner)
	require.Equal(t, "Black", r.WinnerName)
	require.Equal(t, []string{"f2f3", "e7e5", "g2g4", "d8h4"}, r.MovesUCI)
	require.Equal(t, base, r.StartedAt)
	require.Equal(t, base.Add(time.Minute), r.FinishedAt)
}

func TestLocalizedResult(t *testing.T) {
	cat, err := msgcat.New("pl", "")
	require.NoError(t, err)
	m, log := newRealMachine(t, WithCatalog(cat))
	play(t, m, "f2f3", "e7e5", "g2g4", "d8h4")
	require.Equal(t, "Czarny wygrał!", m.Snapshot().Result)
	recent, err := log.ReadRecent(1)
	require.NoError(t, err)
	require.Equal(t, []string{"Czarny wygrał!"}, recent)
}

func TestInvariantSelfCorrects(t *testing.T) {
	eng := &fakeEngine{lieAfter: 1}
	m := New(eng, nil)
	require.Equal(t, Selected, m.Select(sq("e2")))
	s := m.Snapshot()
	require.Nil(t, s.Selected)
	require.Equal(t, AwaitingSelection, s.State)
}

func TestInvariantStrictPanics(t *testing.T) {
	eng := &fakeEngine{lieAfter: 1}
	m := New(eng, nil, WithStrictInvariants(true))
	require.Panics(t, func() { m.Select(sq("e2")) })
}

func TestConcurrentSnapshots(t *testing.T) {
	m, _ := newRealMachine(t)
	var (
		wg           sync.WaitGroup
		inconsistent atomic.Bool
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			s := m.Snapshot()
			if s.GameOver && s.Selected != nil {
				inconsistent.Store(true)
			}
		}
	}()
	play(t, m, "f2f3", "e7e5", "g2g4", "d8h4")
	wg.Wait()
	require.False(t, inconsistent.Load(), "snapshot had a selection after game over")
}

func TestInsufficientMaterialAfterCapture(t *testing.T) {
	eng, err := rules.NewChessEngineFromFEN("7k/8/8/3n4/8/2N5/8/K7 w - - 0 1")
	require.NoError(t, err)
	log, err := resultlog.Open(filepath.Join(t.TempDir(), "scores.txt"))
	require.NoError(t, err)
	core, logs := observer.New(zap.InfoLevel)
	m := New(eng, log, WithLogger(zap.New(core)))

	// the engine's automatic fivefold draw does not end the session
	for i := 0; i < 4; i++ {
		require.Equal(t, Moved, play(t, m, "a1a2", "h8h7", "a2a1", "h7h8"))
	}
	require.False(t, m.Snapshot().GameOver)

	require.Equal(t, Finished, play(t, m, "c3d5"))
	s := m.Snapshot()
	require.True(t, s.GameOver)
	require.Equal(t, "draw (insufficient material)", s.Result)

	require.Equal(t, Ignored, m.Select(sq("a1")))
	recent, err := log.ReadRecent(10)
	require.NoError(t, err)
	require.Equal(t, []string{"draw (insufficient material)"}, recent)

	results := logs.FilterMessage("session_result").All()
	require.Len(t, results, 1)
	require.Equal(t, string(MethodInsufficientMaterial), results[0].ContextMap()["method"])
	require.Equal(t, 17, logs.FilterMessage("session_move").Len())
}
