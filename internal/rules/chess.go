package rules

import (
	"fmt"

	nchess "github.com/corentings/chess/v2"
)

type chessEngine struct {
	startFEN string // empty for the standard start position
}

// NewChessEngine returns an Engine backed by corentings/chess.
func NewChessEngine() Engine { return chessEngine{} }

// NewChessEngineFromFEN returns an Engine whose Start position is fen.
func NewChessEngineFromFEN(fen string) (Engine, error) {
	if _, err := nchess.FEN(fen); err != nil {
		return nil, fmt.Errorf("start position %q: %w", fen, err)
	}
	return chessEngine{startFEN: fen}, nil
}

// chessPosition is immutable once built: Apply replays the history into a fresh game.
type chessPosition struct {
	startFEN string
	history  []string // UCI moves from startFEN
	game     *nchess.Game
}

func (p *chessPosition) FEN() string { return p.game.FEN() }

func (p *chessPosition) Board() Board {
	var b Board
	for sq, piece := range p.game.Position().Board().SquareMap() {
		if piece == nchess.NoPiece {
			continue
		}
		b[Square(sq)] = Piece{Side: sideFrom(piece.Color()), Kind: kindFrom(piece.Type())}
	}
	return b
}

func (e chessEngine) Start() Position {
	game, err := newGame(e.startFEN)
	if err != nil {
		// startFEN was validated by NewChessEngineFromFEN
		panic(err)
	}
	return &chessPosition{startFEN: e.startFEN, game: game}
}

func (e chessEngine) LegalMoves(p Position) []Move {
	cp, ok := p.(*chessPosition)
	if !ok || cp == nil {
		return nil
	}
	valid := cp.game.ValidMoves()
	out := make([]Move, 0, len(valid))
	for _, mv := range valid {
		out = append(out, Move{From: Square(mv.S1()), To: Square(mv.S2()), Promotion: kindFrom(mv.Promo())})
	}
	return out
}

func (e chessEngine) Apply(p Position, m Move) (Position, error) {
	cp, ok := p.(*chessPosition)
	if !ok || cp == nil {
		return nil, ErrForeignPosition
	}
	if !m.From.Valid() || !m.To.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrIllegalMove, m)
	}
	game, err := replay(cp.startFEN, cp.history)
	if err != nil {
		return nil, err
	}
	uci := m.String()
	mv, err := nchess.UCINotation{}.Decode(game.Position(), uci)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrIllegalMove, uci, err)
	}
	if err := game.Move(mv, nil); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrIllegalMove, uci, err)
	}
	history := make([]string, 0, len(cp.history)+1)
	history = append(history, cp.history...)
	history = append(history, uci)
	return &chessPosition{startFEN: cp.startFEN, history: history, game: game}, nil
}

func (e chessEngine) IsCheckmate(p Position) bool {
	return statusOf(p) == nchess.Checkmate
}

func (e chessEngine) IsStalemate(p Position) bool {
	return statusOf(p) == nchess.Stalemate
}

func (e chessEngine) HasInsufficientMaterial(p Position) bool {
	cp, ok := p.(*chessPosition)
	if !ok || cp == nil {
		return false
	}
	return insufficientMaterial(cp.Board())
}

func (e chessEngine) PieceOwner(p Position, sq Square) (Side, bool) {
	cp, ok := p.(*chessPosition)
	if !ok || cp == nil || !sq.Valid() {
		return NoSide, false
	}
	piece := cp.game.Position().Board().Piece(nchess.Square(sq))
	if piece == nchess.NoPiece {
		return NoSide, false
	}
	return sideFrom(piece.Color()), true
}

func (e chessEngine) SideToMove(p Position) Side {
	cp, ok := p.(*chessPosition)
	if !ok || cp == nil {
		return NoSide
	}
	return sideFrom(cp.game.Position().Turn())
}

// statusOf reads the position itself. Game.Method stays pinned to the first
// automatic draw (fivefold repetition, seventy-five moves), which the session
// does not treat as terminal.
func statusOf(p Position) nchess.Method {
	cp, ok := p.(*chessPosition)
	if !ok || cp == nil {
		return nchess.NoMethod
	}
	return cp.game.Position().Status()
}

// insufficientMaterial reports positions where neither side can mate: bare
// kings, a single minor piece, or only bishops all standing on one square colour.
func insufficientMaterial(b Board) bool {
	var minors, knights, kings int
	var bishopColours [2]int
	for i, pc := range b {
		switch pc.Kind {
		case NoKind:
		case King:
			kings++
		case Knight:
			knights++
			minors++
		case Bishop:
			minors++
			sq := Square(i)
			bishopColours[(sq.File()+sq.Rank())%2]++
		default:
			return false
		}
	}
	if kings < 2 {
		return false
	}
	if minors <= 1 {
		return true
	}
	return knights == 0 && (bishopColours[0] == 0 || bishopColours[1] == 0)
}

func newGame(fen string) (*nchess.Game, error) {
	if fen == "" {
		return nchess.NewGame(), nil
	}
	opt, err := nchess.FEN(fen)
	if err != nil {
		return nil, err
	}
	return nchess.NewGame(opt), nil
}

// replay always rebuilds from the start position so a Position never shares a game with another.
func replay(startFEN string, moves []string) (*nchess.Game, error) {
	game, err := newGame(startFEN)
	if err != nil {
		return nil, err
	}
	notation := nchess.UCINotation{}
	for _, uci := range moves {
		mv, err := notation.Decode(game.Position(), uci)
		if err != nil {
			return nil, fmt.Errorf("decode move %s: %w", uci, err)
		}
		if err := game.Move(mv, nil); err != nil {
			return nil, fmt.Errorf("apply move %s: %w", uci, err)
		}
	}
	return game, nil
}

func sideFrom(c nchess.Color) Side {
	switch c {
	case nchess.White:
		return White
	case nchess.Black:
		return Black
	}
	return NoSide
}

func kindFrom(t nchess.PieceType) Kind {
	switch t {
	case nchess.King:
		return King
	case nchess.Queen:
		return Queen
	case nchess.Rook:
		return Rook
	case nchess.Bishop:
		return Bishop
	case nchess.Knight:
		return Knight
	case nchess.Pawn:
		return Pawn
	}
	return NoKind
}
