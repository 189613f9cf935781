package rules

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrIllegalMove      = errors.New("illegal move")
	ErrForeignPosition  = errors.New("position was not produced by this engine")
	ErrInvalidSquareTag = errors.New("invalid square")
)

// Side identifies one of the two players.
type Side uint8

const (
	NoSide Side = iota
	White
	Black
)

func (s Side) Opponent() Side {
	switch s {
	case White:
		return Black
	case Black:
		return White
	}
	return NoSide
}

func (s Side) String() string {
	switch s {
	case White:
		return "White"
	case Black:
		return "Black"
	}
	return "None"
}

// Kind is a piece type without color.
type Kind uint8

const (
	NoKind Kind = iota
	King
	Queen
	Rook
	Bishop
	Knight
	Pawn
)

// Letter returns the lowercase UCI promotion letter ("" for kinds that cannot be promoted to).
func (k Kind) Letter() string {
	switch k {
	case Queen:
		return "q"
	case Rook:
		return "r"
	case Bishop:
		return "b"
	case Knight:
		return "n"
	}
	return ""
}

// Piece is a colored piece. The zero value is an empty square.
type Piece struct {
	Side Side
	Kind Kind
}

var NoPiece = Piece{}

func (p Piece) Empty() bool { return p.Kind == NoKind }

var (
	whiteGlyphs = map[Kind]rune{King: '♔', Queen: '♕', Rook: '♖', Bishop: '♗', Knight: '♘', Pawn: '♙'}
	blackGlyphs = map[Kind]rune{King: '♚', Queen: '♛', Rook: '♜', Bishop: '♝', Knight: '♞', Pawn: '♟'}
)

// Glyph returns the Unicode chess symbol for the piece, or a space when empty.
func (p Piece) Glyph() rune {
	glyphs := whiteGlyphs
	if p.Side == Black {
		glyphs = blackGlyphs
	}
	if r, ok := glyphs[p.Kind]; ok && p.Side != NoSide {
		return r
	}
	return ' '
}

// Square is a board cell numbered rank*8+file, a1 = 0 and h8 = 63.
type Square int8

const NoSquare Square = -1

func NewSquare(file, rank int) Square {
	if file < 0 || file > 7 || rank < 0 || rank > 7 {
		return NoSquare
	}
	return Square(rank*8 + file)
}

func (sq Square) Valid() bool { return sq >= 0 && sq < 64 }
func (sq Square) File() int   { return int(sq) % 8 }
func (sq Square) Rank() int   { return int(sq) / 8 }

func (sq Square) String() string {
	if !sq.Valid() {
		return "-"
	}
	return fmt.Sprintf("%c%c", 'a'+sq.File(), '1'+sq.Rank())
}

// ParseSquare parses algebraic coordinates such as "e4".
func ParseSquare(s string) (Square, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) != 2 || s[0] < 'a' || s[0] > 'h' || s[1] < '1' || s[1] > '8' {
		return NoSquare, fmt.Errorf("%w: %q", ErrInvalidSquareTag, s)
	}
	return NewSquare(int(s[0]-'a'), int(s[1]-'1')), nil
}

// MustSquare is ParseSquare for literals; it panics on bad input.
func MustSquare(s string) Square {
	sq, err := ParseSquare(s)
	if err != nil {
		panic(err)
	}
	return sq
}

// Move is an origin/destination pair with optional promotion.
type Move struct {
	From      Square
	To        Square
	Promotion Kind
}

// String renders the move in UCI notation.
func (m Move) String() string {
	return m.From.String() + m.To.String() + m.Promotion.Letter()
}

// Board is the read-only piece placement of a position, indexed by Square.
type Board [64]Piece

func (b Board) Piece(sq Square) Piece {
	if !sq.Valid() {
		return NoPiece
	}
	return b[sq]
}

// Position is an opaque board state produced by an Engine.
// Two positions are the same when their FEN strings are equal.
type Position interface {
	FEN() string
	Board() Board
}

// Engine is the rules capability the session consumes. Implementations must
// treat positions as values: Apply returns a new Position and leaves its input untouched.
type Engine interface {
	Start() Position
	LegalMoves(p Position) []Move
	Apply(p Position, m Move) (Position, error)
	IsCheckmate(p Position) bool
	IsStalemate(p Position) bool
	HasInsufficientMaterial(p Position) bool
	PieceOwner(p Position, sq Square) (Side, bool)
	SideToMove(p Position) Side
}
