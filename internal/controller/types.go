package controller

import (
	"context"

	"github.com/park285/hotseat-chess/internal/rules"
	"github.com/park285/hotseat-chess/internal/session"
)

type EventKind uint8

const (
	EventQuit EventKind = iota + 1
	EventPick
	EventReset
	EventExport
)

func (k EventKind) String() string {
	switch k {
	case EventQuit:
		return "quit"
	case EventPick:
		return "pick"
	case EventReset:
		return "reset"
	case EventExport:
		return "export"
	}
	return "unknown"
}

// Event is one classified input from the presentation adapter. X and Y are
// adapter coordinates and only meaningful for EventPick.
type Event struct {
	Kind EventKind
	X, Y int
}

func Pick(x, y int) Event { return Event{Kind: EventPick, X: x, Y: y} }
func Quit() Event         { return Event{Kind: EventQuit} }
func Reset() Event        { return Event{Kind: EventReset} }
func Export() Event       { return Event{Kind: EventExport} }

// Geometry places the board in adapter coordinates, rank 8 on top.
type Geometry struct {
	OriginX, OriginY int
	SquareW, SquareH int
}

// SquareAt maps a point to a square. Points outside the board report false.
func (g Geometry) SquareAt(x, y int) (rules.Square, bool) {
	if g.SquareW <= 0 || g.SquareH <= 0 {
		return rules.NoSquare, false
	}
	dx, dy := x-g.OriginX, y-g.OriginY
	if dx < 0 || dy < 0 {
		return rules.NoSquare, false
	}
	file, row := dx/g.SquareW, dy/g.SquareH
	if file > 7 || row > 7 {
		return rules.NoSquare, false
	}
	return rules.NewSquare(file, 7-row), true
}

// Origin returns the top-left point of sq.
func (g Geometry) Origin(sq rules.Square) (x, y int) {
	return g.OriginX + sq.File()*g.SquareW, g.OriginY + (7-sq.Rank())*g.SquareH
}

// View is everything a presenter needs for one frame.
type View struct {
	Session session.Snapshot
	Recent  []string
	Status  string
}

// Presenter draws frames and reports input. PollEvents must not block.
type Presenter interface {
	Render(View) error
	PollEvents() []Event
	Geometry() Geometry
}

// Session is the part of session.Machine the loop drives.
type Session interface {
	Select(rules.Square) session.Outcome
	Reset()
	Snapshot() session.Snapshot
}

// RecentSource yields the newest finished-game records.
type RecentSource interface {
	ReadRecent(n int) ([]string, error)
}

// Exporter saves a picture of the current board and returns where it went.
type Exporter interface {
	Export(ctx context.Context, snap session.Snapshot) (string, error)
}
