package termui

import (
	"strconv"

	"github.com/gdamore/tcell/v2"

	"github.com/park285/hotseat-chess/internal/controller"
	"github.com/park285/hotseat-chess/internal/msgcat"
	"github.com/park285/hotseat-chess/internal/rules"
)

const (
	leftMargin   = 3
	topMargin    = 2
	squareWidth  = 4
	squareHeight = 2
	panelGap     = 4
	maxRecent    = 10
)

// boardGeometry is where the board sits on screen.
var boardGeometry = controller.Geometry{
	OriginX: leftMargin,
	OriginY: topMargin,
	SquareW: squareWidth,
	SquareH: squareHeight,
}

// DefStyle is the default style for tcell rendering
var DefStyle = tcell.StyleDefault.Background(tcell.ColorReset).Foreground(tcell.ColorReset)

// drawText places text at the specified coordinates with the provided style
func drawText(s tcell.Screen, x, y int, style tcell.Style, text string) {
	for _, r := range text {
		s.SetContent(x, y, r, nil, style)
		x++
	}
}

func squareBg(sq rules.Square, v controller.View, t Theme) tcell.Color {
	snap := v.Session
	if snap.Selected != nil && *snap.Selected == sq {
		return t.SquareSelected
	}
	if lm := snap.LastMove; lm != nil && (lm.From == sq || lm.To == sq) {
		return t.SquareLastMove
	}
	// a1 is dark
	if (sq.File()+sq.Rank())%2 == 0 {
		return t.SquareDark
	}
	return t.SquareLight
}

// drawSquare fills one square and puts the piece glyph in its upper row.
func drawSquare(s tcell.Screen, sq rules.Square, p rules.Piece, bg tcell.Color, t Theme) {
	x, y := boardGeometry.Origin(sq)
	fill := tcell.StyleDefault.Background(bg)
	for dy := 0; dy < squareHeight; dy++ {
		for dx := 0; dx < squareWidth; dx++ {
			s.SetContent(x+dx, y+dy, ' ', nil, fill)
		}
	}
	if p.Empty() {
		return
	}
	fg := t.White
	if p.Side == rules.Black {
		fg = t.Black
	}
	s.SetContent(x+squareWidth/2-1, y+squareHeight/2-1, p.Glyph(), nil, fill.Foreground(fg))
}

func drawBoard(s tcell.Screen, v controller.View, t Theme) {
	var board rules.Board
	if v.Session.Position != nil {
		board = v.Session.Position.Board()
	}
	for i := 0; i < 64; i++ {
		sq := rules.Square(i)
		drawSquare(s, sq, board.Piece(sq), squareBg(sq, v, t), t)
	}

	rankStyle := DefStyle.Foreground(t.Rank)
	for rank := 0; rank < 8; rank++ {
		_, y := boardGeometry.Origin(rules.NewSquare(0, rank))
		s.SetContent(leftMargin-2, y, rune('1'+rank), nil, rankStyle)
	}
	fileStyle := DefStyle.Foreground(t.File)
	labelY := topMargin + 8*squareHeight
	for file := 0; file < 8; file++ {
		x, _ := boardGeometry.Origin(rules.NewSquare(file, 0))
		s.SetContent(x+squareWidth/2-1, labelY, rune('a'+file), nil, fileStyle)
	}
}

// drawPanel renders the turn or result label and the scoreboard right of the board.
func drawPanel(s tcell.Screen, v controller.View, t Theme, cat *msgcat.Catalog) {
	x := leftMargin + 8*squareWidth + panelGap
	y := topMargin
	snap := v.Session

	if snap.GameOver {
		text := cat.RenderOr("ui.game_over", map[string]any{"Result": snap.Result}, "Game over: "+snap.Result)
		drawText(s, x, y, DefStyle.Foreground(t.Msg).Bold(true), text)
	} else {
		side := sideName(cat, snap.SideToMove)
		drawText(s, x, y, DefStyle.Foreground(t.Title), cat.RenderOr("ui.turn", map[string]any{"Side": side}, "Turn: "+side))
	}
	y += 2

	drawText(s, x, y, DefStyle.Foreground(t.Title).Underline(true), cat.RenderOr("ui.scoreboard", nil, "Results:"))
	y++
	recent := v.Recent
	if len(recent) > maxRecent {
		recent = recent[len(recent)-maxRecent:]
	}
	for i, rec := range recent {
		line := cat.RenderOr("ui.scoreboard_entry", map[string]any{"Index": i + 1, "Record": rec}, "")
		if line == "" {
			line = strconv.Itoa(i+1) + ". " + rec
		}
		drawText(s, x, y, DefStyle.Foreground(t.Score), line)
		y++
	}
}

func drawFooter(s tcell.Screen, v controller.View, t Theme, cat *msgcat.Catalog) {
	y := topMargin + 8*squareHeight + 2
	if v.Status != "" {
		drawText(s, leftMargin-2, y, DefStyle.Foreground(t.Error), v.Status)
	}
	drawText(s, leftMargin-2, y+1, DefStyle.Foreground(t.Rank), cat.RenderOr("ui.help", nil, "click: select/move  r: new game  p: save image  q: quit"))
}

func drawHeader(s tcell.Screen, t Theme, cat *msgcat.Catalog) {
	drawText(s, leftMargin-2, 0, DefStyle.Foreground(t.Title).Bold(true), cat.RenderOr("ui.title", nil, "Chess"))
}

func sideName(cat *msgcat.Catalog, side rules.Side) string {
	key := "side.white"
	if side == rules.Black {
		key = "side.black"
	}
	return cat.RenderOr(key, nil, side.String())
}

func render(s tcell.Screen, v controller.View, t Theme, cat *msgcat.Catalog) {
	s.Clear()
	drawHeader(s, t, cat)
	drawBoard(s, v, t)
	drawPanel(s, v, t, cat)
	drawFooter(s, v, t, cat)
	s.Show()
}
