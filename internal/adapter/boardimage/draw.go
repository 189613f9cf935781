package boardimage

import (
	"image"
	"image/color"
	imagedraw "image/draw"
	"math"

	"github.com/srwiley/rasterx"
	"golang.org/x/image/math/fixed"
)

func drawSquareOverlay(img *image.RGBA, rect image.Rectangle, clr color.Color) {
	if img == nil {
		return
	}
	imagedraw.Draw(img, rect, image.NewUniform(clr), image.Point{}, imagedraw.Over)
}

// arrowOutline returns the closed outline of an arrow from the centre of
// from to the centre of to, or nil when both squares coincide.
func arrowOutline(from, to image.Rectangle, squareSize int) []fixed.Point26_6 {
	sx, sy := centre(from)
	ex, ey := centre(to)
	dx, dy := ex-sx, ey-sy
	length := math.Hypot(dx, dy)
	if length == 0 {
		return nil
	}
	size := float64(squareSize)
	shaft := length - size*0.45
	if shaft < size*0.35 {
		shaft = length * 0.6
	}
	halfShaft, halfHead := size*0.18, size*0.16

	// along/across the arrow in image coordinates
	ux, uy := dx/length, dy/length
	at := func(along, across float64) fixed.Point26_6 {
		return rasterx.ToFixedP(sx+ux*along-uy*across, sy+uy*along+ux*across)
	}
	return []fixed.Point26_6{
		at(0, -halfShaft),
		at(shaft, -halfShaft),
		at(shaft, -halfHead),
		at(length, 0),
		at(shaft, halfHead),
		at(shaft, halfShaft),
		at(0, halfShaft),
	}
}

func drawArrow(img *image.RGBA, from, to image.Rectangle, squareSize int, clr color.Color) {
	if img == nil {
		return
	}
	outline := arrowOutline(from, to, squareSize)
	if outline == nil {
		return
	}
	b := img.Bounds()
	filler := rasterx.NewFiller(b.Dx(), b.Dy(), rasterx.NewScannerGV(b.Dx(), b.Dy(), img, b))
	filler.SetColor(clr)
	filler.Start(outline[0])
	for _, p := range outline[1:] {
		filler.Line(p)
	}
	filler.Stop(true)
	filler.Draw()
}

func centre(r image.Rectangle) (float64, float64) {
	return float64(r.Min.X+r.Max.X) / 2, float64(r.Min.Y+r.Max.Y) / 2
}
