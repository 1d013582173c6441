package filters

import (
	"fmt"
	"math"

	"photo-cleaner/internal/models"
	"photo-cleaner/internal/processing/border"
)

type bilateralTap struct {
	dx, dy int
	weight float64
}

// BilateralFilter is an edge-preserving smoother: each output pixel is the
// average of a circular neighbourhood weighted by spatial distance and by
// colour similarity to the centre pixel.
type BilateralFilter struct {
	diameter   int
	sigmaColor float64
	sigmaSpace float64
	colorCoeff float64
	taps       []bilateralTap
}

func NewBilateralFilter(diameter int, sigmaColor, sigmaSpace float64) (*BilateralFilter, error) {
	if diameter < 1 {
		return nil, fmt.Errorf("bilateral diameter must be positive, got %d", diameter)
	}
	if sigmaColor <= 0 || sigmaSpace <= 0 {
		return nil, fmt.Errorf("bilateral sigmas must be positive, got color=%v space=%v", sigmaColor, sigmaSpace)
	}

	radius := diameter / 2
	spaceCoeff := -0.5 / (sigmaSpace * sigmaSpace)

	taps := make([]bilateralTap, 0, diameter*diameter)
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			r2 := float64(dx*dx + dy*dy)
			if math.Sqrt(r2) > float64(radius) {
				continue
			}
			taps = append(taps, bilateralTap{dx: dx, dy: dy, weight: math.Exp(r2 * spaceCoeff)})
		}
	}

	return &BilateralFilter{
		diameter:   diameter,
		sigmaColor: sigmaColor,
		sigmaSpace: sigmaSpace,
		colorCoeff: -0.5 / (sigmaColor * sigmaColor),
		taps:       taps,
	}, nil
}

func (b *BilateralFilter) Name() string {
	return "bilateral_filter"
}

// Apply filters src into dst. Both must be 3-channel and the same shape.
// The colour distance is the L1 distance over the three channels.
func (b *BilateralFilter) Apply(src, dst *models.ImageBuffer) error {
	if !src.SameShape(dst) {
		return fmt.Errorf("bilateral: shape mismatch %v vs %v", src, dst)
	}
	if src.Channels != 3 {
		return fmt.Errorf("bilateral: requires 3 channels, got %d", src.Channels)
	}

	w, h := src.Width, src.Height
	pix := src.Pix

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			o := (y*w + x) * 3
			c0, c1, c2 := pix[o], pix[o+1], pix[o+2]

			var sum0, sum1, sum2, wsum float64
			for _, tap := range b.taps {
				xx := border.Reflect101(x+tap.dx, w)
				yy := border.Reflect101(y+tap.dy, h)
				n := (yy*w + xx) * 3

				d0, d1, d2 := pix[n]-c0, pix[n+1]-c1, pix[n+2]-c2
				diff := math.Abs(d0) + math.Abs(d1) + math.Abs(d2)
				weight := tap.weight * math.Exp(diff*diff*b.colorCoeff)

				sum0 += weight * d0
				sum1 += weight * d1
				sum2 += weight * d2
				wsum += weight
			}

			// Accumulating offsets from the centre keeps flat regions exact.
			dst.Pix[o] = c0 + sum0/wsum
			dst.Pix[o+1] = c1 + sum1/wsum
			dst.Pix[o+2] = c2 + sum2/wsum
		}
	}

	return nil
}
