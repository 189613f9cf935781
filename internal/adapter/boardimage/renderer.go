package boardimage

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	imagedraw "image/draw"
	"image/png"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/park285/hotseat-chess/internal/rules"
)

const DefaultSquareSize = 64

// Options control overlays and the text around the board.
type Options struct {
	Selected *rules.Square
	LastMove *rules.Move
	Header   string
	Footer   string
}

// Renderer draws boards to PNG. It is safe for concurrent use.
type Renderer struct {
	squareSize int
	pieces     *pieceSet
	face       font.Face
}

func NewRenderer(squareSize int) *Renderer {
	if squareSize <= 0 {
		squareSize = DefaultSquareSize
	}
	return &Renderer{squareSize: squareSize, pieces: newPieceSet(squareSize), face: basicfont.Face7x13}
}

// layout is the pixel placement of the board for one render.
type layout struct {
	squareSize int
	origin     image.Point
	width      int
	height     int
}

func (r *Renderer) layout() layout {
	const (
		sideMargin   = 28
		topMargin    = 40
		bottomMargin = 48
	)
	boardSize := r.squareSize * 8
	return layout{
		squareSize: r.squareSize,
		origin:     image.Point{X: sideMargin, Y: topMargin},
		width:      boardSize + sideMargin*2,
		height:     boardSize + topMargin + bottomMargin,
	}
}

func (l layout) boardRect() image.Rectangle {
	return image.Rect(l.origin.X, l.origin.Y, l.origin.X+l.squareSize*8, l.origin.Y+l.squareSize*8)
}

func (l layout) squareRect(sq rules.Square) image.Rectangle {
	x := l.origin.X + sq.File()*l.squareSize
	y := l.origin.Y + (7-sq.Rank())*l.squareSize
	return image.Rect(x, y, x+l.squareSize, y+l.squareSize)
}

var (
	backgroundColor           = color.RGBA{R: 28, G: 31, B: 46, A: 255}
	lightSquare               = color.RGBA{233, 207, 163, 255}
	darkSquare                = color.RGBA{187, 136, 96, 255}
	selectedHighlightColor    = color.NRGBA{R: 120, G: 200, B: 120, A: 150}
	whiteMoveHighlightFill    = color.NRGBA{R: 255, G: 228, B: 120, A: 140}
	blackMoveHighlightArrow   = color.NRGBA{R: 148, G: 207, B: 255, A: 170}
	neutralMoveHighlightArrow = color.NRGBA{R: 182, G: 184, B: 190, A: 140}
	hudTextPrimary            = color.NRGBA{R: 236, G: 239, B: 255, A: 255}
	coordinateTextColor       = color.NRGBA{R: 8, G: 214, B: 120, A: 255}
)

func (r *Renderer) RenderPNG(ctx context.Context, board rules.Board, opts Options) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	l := r.layout()
	img := image.NewRGBA(image.Rect(0, 0, l.width, l.height))
	imagedraw.Draw(img, img.Bounds(), image.NewUniform(backgroundColor), image.Point{}, imagedraw.Src)

	drawSquares(img, l)
	drawHighlight(img, board, opts.LastMove, l)
	if opts.Selected != nil && opts.Selected.Valid() {
		drawSquareOverlay(img, l.squareRect(*opts.Selected), selectedHighlightColor)
	}
	if err := r.drawPieces(img, board, l); err != nil {
		return nil, err
	}
	r.drawCoordinates(img, l)
	r.drawCaptions(img, l, opts)

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	var pngBuf bytes.Buffer
	if err := png.Encode(&pngBuf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return pngBuf.Bytes(), nil
}

func squareColor(sq rules.Square) color.Color {
	if (sq.File()+sq.Rank())%2 == 0 {
		return darkSquare
	}
	return lightSquare
}

func drawSquares(dst imagedraw.Image, l layout) {
	for i := 0; i < 64; i++ {
		sq := rules.Square(i)
		imagedraw.Draw(dst, l.squareRect(sq), image.NewUniform(squareColor(sq)), image.Point{}, imagedraw.Src)
	}
}

func (r *Renderer) drawPieces(dst imagedraw.Image, board rules.Board, l layout) error {
	for i := 0; i < 64; i++ {
		sq := rules.Square(i)
		piece := board.Piece(sq)
		if piece.Empty() {
			continue
		}
		img, err := r.pieces.image(piece)
		if err != nil {
			return err
		}
		imagedraw.Draw(dst, l.squareRect(sq), img, image.Point{}, imagedraw.Over)
	}
	return nil
}

// drawHighlight marks White's last move with square fills and Black's with an arrow.
func drawHighlight(img *image.RGBA, board rules.Board, mv *rules.Move, l layout) {
	if mv == nil || !mv.From.Valid() || !mv.To.Valid() {
		return
	}
	mover := board.Piece(mv.To).Side
	if mover == rules.NoSide {
		mover = board.Piece(mv.From).Side
	}
	switch mover {
	case rules.White:
		drawSquareOverlay(img, l.squareRect(mv.From), whiteMoveHighlightFill)
		drawSquareOverlay(img, l.squareRect(mv.To), whiteMoveHighlightFill)
	case rules.Black:
		drawArrow(img, l.squareRect(mv.From), l.squareRect(mv.To), l.squareSize, blackMoveHighlightArrow)
	default:
		drawArrow(img, l.squareRect(mv.From), l.squareRect(mv.To), l.squareSize, neutralMoveHighlightArrow)
	}
}

func (r *Renderer) drawCoordinates(dst imagedraw.Image, l layout) {
	drawer := &font.Drawer{Dst: dst, Face: r.face, Src: image.NewUniform(coordinateTextColor)}
	ascent := r.face.Metrics().Ascent.Ceil()
	board := l.boardRect()

	for rank := 0; rank < 8; rank++ {
		rect := l.squareRect(rules.NewSquare(0, rank))
		center := rect.Min.Y + l.squareSize/2
		drawCenteredText(drawer, string(rune('1'+rank)), board.Min.X/2, center+ascent/2)
	}
	for file := 0; file < 8; file++ {
		rect := l.squareRect(rules.NewSquare(file, 0))
		drawCenteredText(drawer, string(rune('a'+file)), rect.Min.X+l.squareSize/2, board.Max.Y+ascent+2)
	}
}

func (r *Renderer) drawCaptions(dst imagedraw.Image, l layout, opts Options) {
	drawer := &font.Drawer{Dst: dst, Face: r.face}
	board := l.boardRect()
	if header := strings.TrimSpace(opts.Header); header != "" {
		rect := image.Rect(board.Min.X, 0, board.Max.X, board.Min.Y)
		drawCenteredString(drawer, rect, truncateWithEllipsis(r.face, header, rect.Dx()), hudTextPrimary)
	}
	if footer := strings.TrimSpace(opts.Footer); footer != "" {
		rect := image.Rect(board.Min.X, board.Max.Y+20, board.Max.X, l.height)
		drawCenteredString(drawer, rect, truncateWithEllipsis(r.face, footer, rect.Dx()), hudTextPrimary)
	}
}

func truncateWithEllipsis(face font.Face, text string, maxWidth int) string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" || maxWidth <= 0 || face == nil {
		return trimmed
	}

	drawer := font.Drawer{Face: face}
	if drawer.MeasureString(trimmed).Round() <= maxWidth {
		return trimmed
	}

	ellipsis := "..."
	if drawer.MeasureString(ellipsis).Round() > maxWidth {
		return ""
	}

	runes := []rune(trimmed)
	for len(runes) > 0 {
		runes = runes[:len(runes)-1]
		candidate := string(runes) + ellipsis
		if drawer.MeasureString(candidate).Round() <= maxWidth {
			return candidate
		}
	}
	return ellipsis
}

func drawCenteredString(drawer *font.Drawer, rect image.Rectangle, text string, clr color.Color) {
	if drawer == nil || text == "" {
		return
	}
	metrics := drawer.Face.Metrics()
	width := drawer.MeasureString(text).Round()
	x := rect.Min.X + (rect.Dx()-width)/2
	if x < rect.Min.X {
		x = rect.Min.X
	}
	baseline := rect.Min.Y + (rect.Dy()+metrics.Ascent.Ceil()-metrics.Descent.Ceil())/2
	drawer.Src = image.NewUniform(clr)
	drawer.Dot = fixed.P(x, baseline)
	drawer.DrawString(text)
}

func drawCenteredText(drawer *font.Drawer, text string, centerX, baseline int) {
	if text == "" {
		return
	}
	width := drawer.MeasureString(text).Round()
	drawer.Dot = fixed.P(centerX-width/2, baseline)
	drawer.DrawString(text)
}
