// Package overlay draws recognized hands on top of camera frames.
package overlay

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/ayusman/signassess/internal/detector"
)

// Style controls how hands are drawn.
type Style struct {
	Connector      color.RGBA
	ConnectorWidth int
	Landmark       color.RGBA
	LandmarkRadius int
	LandmarkWidth  int
}

// DefaultStyle draws green bones and red joints.
func DefaultStyle() Style {
	return Style{
		Connector:      color.RGBA{G: 255, A: 255},
		ConnectorWidth: 5,
		Landmark:       color.RGBA{R: 255, A: 255},
		LandmarkRadius: 4,
		LandmarkWidth:  2,
	}
}

// Draw renders every hand onto img in place.
func Draw(img *gocv.Mat, hands []detector.HandLandmarks, style Style) {
	if img == nil || img.Empty() {
		return
	}

	size := image.Pt(img.Cols(), img.Rows())
	for i := range hands {
		pts := Project(&hands[i], size)

		for _, c := range detector.HandConnections {
			gocv.Line(img, pts[c.From], pts[c.To], style.Connector, style.ConnectorWidth)
		}
		for _, p := range pts {
			gocv.Circle(img, p, style.LandmarkRadius, style.Landmark, style.LandmarkWidth)
		}
	}
}

// Project maps normalized landmark coordinates to pixel positions in an
// image of the given size, clamped to the image bounds.
func Project(hand *detector.HandLandmarks, size image.Point) [detector.NumLandmarks]image.Point {
	var pts [detector.NumLandmarks]image.Point
	for i, p := range hand.Points {
		pts[i] = image.Pt(
			clamp(int(p.X*float64(size.X)), 0, size.X-1),
			clamp(int(p.Y*float64(size.Y)), 0, size.Y-1),
		)
	}
	return pts
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	return max(lo, min(v, hi))
}
