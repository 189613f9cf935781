package boardimage

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"sync"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"

	"github.com/park285/hotseat-chess/internal/rules"
)

// Piece outlines on a 45x45 canvas.
var pieceShapes = map[rules.Kind]string{
	rules.Pawn: `<circle cx="22.5" cy="14" r="5.5"/>
<polygon points="17,24 28,24 31,37 14,37"/>`,
	rules.Rook: `<path d="M 12 36 L 33 36 L 33 33 L 30 33 L 29 17 L 32 17 L 32 10 L 28 10 L 28 13 L 24.5 13 L 24.5 10 L 20.5 10 L 20.5 13 L 17 13 L 17 10 L 13 10 L 13 17 L 16 17 L 15 33 L 12 33 Z"/>`,
	rules.Knight: `<polygon points="14,36 33,36 32,22 28,11 22,9 19,12 12,19 13,23 19,21 16,28"/>`,
	rules.Bishop: `<circle cx="22.5" cy="9" r="2.5"/>
<polygon points="22.5,12 29,21 27,30 18,30 16,21"/>
<rect x="13" y="31" width="19" height="5"/>`,
	rules.Queen: `<polygon points="9,26 12,14 16,24 18,11 22.5,23 27,11 29,24 33,14 36,26 32,36 13,36"/>
<circle cx="12" cy="12" r="2"/>
<circle cx="18" cy="9" r="2"/>
<circle cx="27" cy="9" r="2"/>
<circle cx="33" cy="12" r="2"/>`,
	rules.King: `<path d="M 21 4 L 24 4 L 24 7 L 27 7 L 27 10 L 24 10 L 24 14 L 21 14 L 21 10 L 18 10 L 18 7 L 21 7 Z"/>
<polygon points="11,26 15,16 22.5,20 30,16 34,26 31,36 14,36"/>`,
}

func pieceSVG(p rules.Piece) ([]byte, error) {
	shape, ok := pieceShapes[p.Kind]
	if !ok || p.Side == rules.NoSide {
		return nil, fmt.Errorf("no outline for piece %v", p)
	}
	fill, stroke := "#ffffff", "#000000"
	if p.Side == rules.Black {
		fill, stroke = "#1c1c1c", "#000000"
	}
	svg := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 45 45" width="45" height="45">
<g fill="%s" stroke="%s" stroke-width="1.5" stroke-linejoin="round">
%s
</g>
</svg>`, fill, stroke, shape)
	return []byte(svg), nil
}

// pieceSet rasterizes each piece once per size and keeps the result.
type pieceSet struct {
	size int

	mu     sync.RWMutex
	images map[rules.Piece]image.Image
}

func newPieceSet(size int) *pieceSet {
	return &pieceSet{size: size, images: make(map[rules.Piece]image.Image)}
}

func (s *pieceSet) image(piece rules.Piece) (image.Image, error) {
	s.mu.RLock()
	if img, ok := s.images[piece]; ok {
		s.mu.RUnlock()
		return img, nil
	}
	s.mu.RUnlock()

	data, err := pieceSVG(piece)
	if err != nil {
		return nil, err
	}
	icon, err := oksvg.ReadIconStream(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse piece svg: %w", err)
	}

	size := s.size
	icon.SetTarget(0, 0, float64(size), float64(size))

	img := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.Transparent), image.Point{}, draw.Src)

	scanner := rasterx.NewScannerGV(size, size, img, img.Bounds())
	raster := rasterx.NewDasher(size, size, scanner)
	icon.Draw(raster, 1.0)

	s.mu.Lock()
	s.images[piece] = img
	s.mu.Unlock()
	return img, nil
}
