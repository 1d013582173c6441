// Package analysis estimates how noisy and how structurally busy an image is.
package analysis

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"photo-cleaner/internal/models"
	"photo-cleaner/internal/processing/border"
)

// Perceptual luma weights. They must stay exactly these values for parity
// with profiles computed by earlier runs.
const (
	LumaR = 0.2989
	LumaG = 0.5870
	LumaB = 0.1140
)

const (
	DefaultNoiseScale    = 25.0
	DefaultEdgeThreshold = 20.0
)

type Analyzer struct {
	noiseScale    float64
	edgeThreshold float64
}

// NewAnalyzer builds an analyzer. Non-positive values select the defaults.
func NewAnalyzer(noiseScale, edgeThreshold float64) *Analyzer {
	if noiseScale <= 0 {
		noiseScale = DefaultNoiseScale
	}
	if edgeThreshold <= 0 {
		edgeThreshold = DefaultEdgeThreshold
	}
	return &Analyzer{noiseScale: noiseScale, edgeThreshold: edgeThreshold}
}

func (a *Analyzer) Name() string {
	return "noise_edge_analyzer"
}

// Analyze computes the NoiseProfile of a 3-channel buffer on the 0-255 scale.
func (a *Analyzer) Analyze(buf *models.ImageBuffer) (models.NoiseProfile, error) {
	if err := buf.Validate("Analyze"); err != nil {
		return models.NoiseProfile{}, err
	}
	if buf.Channels != 3 {
		return models.NoiseProfile{}, fmt.Errorf("analyzer requires 3 channels, got %d", buf.Channels)
	}

	luma := Luma(buf)

	noiseSigma := stat.PopStdDev(luma, nil) / a.noiseScale

	edges := 0
	w, h := buf.Width, buf.Height
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			dx, dy := sobelAt(luma, w, h, x, y)
			if math.Sqrt(dx*dx+dy*dy) > a.edgeThreshold {
				edges++
			}
		}
	}

	return models.NoiseProfile{
		NoiseSigma:  noiseSigma,
		EdgeDensity: float64(edges) / float64(w*h),
	}, nil
}

// Luma converts an RGB buffer to a single luma plane, row-major.
func Luma(buf *models.ImageBuffer) []float64 {
	out := make([]float64, buf.Width*buf.Height)
	for i := range out {
		p := buf.Pix[i*3 : i*3+3]
		out[i] = LumaR*p[0] + LumaG*p[1] + LumaB*p[2]
	}
	return out
}

// sobelAt applies the 3x3 Sobel operator in both axes at (x, y) with
// reflect-101 borders.
func sobelAt(plane []float64, w, h, x, y int) (float64, float64) {
	xm, xp := border.Reflect101(x-1, w), border.Reflect101(x+1, w)
	ym, yp := border.Reflect101(y-1, h), border.Reflect101(y+1, h)

	at := func(xx, yy int) float64 { return plane[yy*w+xx] }

	dx := (at(xp, ym) + 2*at(xp, y) + at(xp, yp)) -
		(at(xm, ym) + 2*at(xm, y) + at(xm, yp))
	dy := (at(xm, yp) + 2*at(x, yp) + at(xp, yp)) -
		(at(xm, ym) + 2*at(x, ym) + at(xp, ym))

	return dx, dy
}
