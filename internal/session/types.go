package session

import (
	"context"
	"time"

	"github.com/park285/hotseat-chess/internal/rules"
)

// State is the machine's current phase.
type State uint8

const (
	AwaitingSelection State = iota
	AwaitingDestination
	GameOver
)

func (s State) String() string {
	switch s {
	case AwaitingSelection:
		return "awaiting_selection"
	case AwaitingDestination:
		return "awaiting_destination"
	case GameOver:
		return "game_over"
	}
	return "unknown"
}

// Outcome reports what a single Select did. It is never an error: invalid picks
// are ordinary transitions.
type Outcome uint8

const (
	Ignored    Outcome = iota // nothing changed
	Selected                  // own piece picked, waiting for a destination
	Deselected                // the selected square was picked again
	Moved                     // legal move applied, game continues
	Rejected                  // destination did not form a legal move
	Finished                  // legal move applied and the game ended
)

func (o Outcome) String() string {
	switch o {
	case Ignored:
		return "ignored"
	case Selected:
		return "selected"
	case Deselected:
		return "deselected"
	case Moved:
		return "moved"
	case Rejected:
		return "rejected"
	case Finished:
		return "finished"
	}
	return "unknown"
}

// Method names how a finished game ended.
type Method string

const (
	MethodCheckmate            Method = "checkmate"
	MethodStalemate            Method = "stalemate"
	MethodInsufficientMaterial Method = "insufficient_material"
)

// Snapshot is a consistent copy of the session taken under the machine lock.
type Snapshot struct {
	State      State
	Position   rules.Position
	Selected   *rules.Square
	GameOver   bool
	Result     string
	SideToMove rules.Side
	LastMove   *rules.Move
	Ply        int
	GameID     string
	// Completed counts finished games over the machine's lifetime; Reset does not clear it.
	Completed  int
	PersistErr error
}

// Result describes a finished game for announcers.
type Result struct {
	GameID     string     `json:"game_id"`
	Text       string     `json:"text"`
	Winner     rules.Side `json:"-"`
	WinnerName string     `json:"winner,omitempty"`
	Method     Method     `json:"method"`
	MovesUCI   []string   `json:"moves_uci"`
	FEN        string     `json:"fen"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt time.Time  `json:"finished_at"`
}

// ResultSink persists one result record per finished game.
type ResultSink interface {
	Append(record string) error
}

// Announcer is told about finished games after they are persisted.
type Announcer interface {
	Announce(ctx context.Context, r Result) error
}
