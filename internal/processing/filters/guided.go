package filters

import (
	"fmt"

	"photo-cleaner/internal/models"
)

// GuidedFilter smooths an input image using the local linear structure of a
// fixed colour guide. The guide statistics (window means and the inverse of
// the regularised 3x3 covariance) are computed once, and the per-pass planes
// are reused, so repeated passes against the same guide allocate nothing.
// A GuidedFilter is not safe for concurrent use.
type GuidedFilter struct {
	radius  int
	epsilon float64
	width   int
	height  int
	box     *boxFilter

	guide [3][]float64
	meanI [3][]float64
	// Symmetric inverse of (cov(I) + eps*U), entries 00 01 02 11 12 22.
	inv [6][]float64

	p      []float64
	meanP  []float64
	meanIP [3][]float64
	a      [3][]float64
	b      []float64
}

func NewGuidedFilter(guide *models.ImageBuffer, radius int, epsilon float64) (*GuidedFilter, error) {
	if err := guide.Validate("NewGuidedFilter"); err != nil {
		return nil, err
	}
	if guide.Channels != 3 {
		return nil, fmt.Errorf("guided filter requires a 3-channel guide, got %d", guide.Channels)
	}
	if radius < 1 {
		return nil, fmt.Errorf("guided radius must be >= 1, got %d", radius)
	}
	if epsilon <= 0 {
		return nil, fmt.Errorf("guided epsilon must be positive, got %v", epsilon)
	}

	n := guide.Width * guide.Height
	g := &GuidedFilter{
		radius:  radius,
		epsilon: epsilon,
		width:   guide.Width,
		height:  guide.Height,
		box:     newBoxFilter(guide.Width, guide.Height, radius),
		p:       make([]float64, n),
		meanP:   make([]float64, n),
		b:       make([]float64, n),
	}
	g.guide = splitChannels(guide)
	for c := 0; c < 3; c++ {
		g.meanI[c] = g.box.mean(g.guide[c])
		g.meanIP[c] = make([]float64, n)
		g.a[c] = make([]float64, n)
	}

	// The window means of the guide products are built in place and then
	// inverted pixel by pixel into the same planes.
	pairs := [6][2]int{{0, 0}, {0, 1}, {0, 2}, {1, 1}, {1, 2}, {2, 2}}
	cov := &g.inv
	for k, pair := range pairs {
		cov[k] = product(g.guide[pair[0]], g.guide[pair[1]])
		g.box.meanInto(cov[k], cov[k])
	}

	for i := 0; i < n; i++ {
		mr, mg, mb := g.meanI[0][i], g.meanI[1][i], g.meanI[2][i]
		a := cov[0][i] - mr*mr + epsilon
		b := cov[1][i] - mr*mg
		c := cov[2][i] - mr*mb
		d := cov[3][i] - mg*mg + epsilon
		e := cov[4][i] - mg*mb
		f := cov[5][i] - mb*mb + epsilon

		i00 := d*f - e*e
		i01 := c*e - b*f
		i02 := b*e - c*d
		i11 := a*f - c*c
		i12 := b*c - a*e
		i22 := a*d - b*b
		det := a*i00 + b*i01 + c*i02

		g.inv[0][i] = i00 / det
		g.inv[1][i] = i01 / det
		g.inv[2][i] = i02 / det
		g.inv[3][i] = i11 / det
		g.inv[4][i] = i12 / det
		g.inv[5][i] = i22 / det
	}

	return g, nil
}

func (g *GuidedFilter) Name() string {
	return "guided_filter"
}

// Apply filters each channel of src against the guide and writes into dst.
func (g *GuidedFilter) Apply(src, dst *models.ImageBuffer) error {
	if !src.SameShape(dst) {
		return fmt.Errorf("guided: shape mismatch %v vs %v", src, dst)
	}
	if src.Width != g.width || src.Height != g.height || src.Channels != 3 {
		return fmt.Errorf("guided: input %v does not match guide %dx%dx3", src, g.width, g.height)
	}

	box := g.box
	n := g.width * g.height
	p, meanP, meanIP := g.p, g.meanP, g.meanIP
	ak, bk := g.a, g.b

	for c := 0; c < 3; c++ {
		for i := 0; i < n; i++ {
			p[i] = src.Pix[i*3+c]
		}
		box.meanInto(p, meanP)
		for k := 0; k < 3; k++ {
			guide, prod := g.guide[k], meanIP[k]
			for i := 0; i < n; i++ {
				prod[i] = guide[i] * p[i]
			}
			box.meanInto(prod, prod)
		}

		for i := 0; i < n; i++ {
			covR := meanIP[0][i] - g.meanI[0][i]*meanP[i]
			covG := meanIP[1][i] - g.meanI[1][i]*meanP[i]
			covB := meanIP[2][i] - g.meanI[2][i]*meanP[i]

			ar := g.inv[0][i]*covR + g.inv[1][i]*covG + g.inv[2][i]*covB
			ag := g.inv[1][i]*covR + g.inv[3][i]*covG + g.inv[4][i]*covB
			ab := g.inv[2][i]*covR + g.inv[4][i]*covG + g.inv[5][i]*covB

			ak[0][i], ak[1][i], ak[2][i] = ar, ag, ab
			bk[i] = meanP[i] - ar*g.meanI[0][i] - ag*g.meanI[1][i] - ab*g.meanI[2][i]
		}

		for k := 0; k < 3; k++ {
			box.meanInto(ak[k], ak[k])
		}
		box.meanInto(bk, bk)
		meanA, meanB := ak, bk

		for i := 0; i < n; i++ {
			dst.Pix[i*3+c] = meanA[0][i]*g.guide[0][i] + meanA[1][i]*g.guide[1][i] + meanA[2][i]*g.guide[2][i] + meanB[i]
		}
	}

	return nil
}

// boxFilter averages over a (2r+1)^2 window clipped to the image through a
// reused integral image.
type boxFilter struct {
	width, height, radius int
	integral              []float64
}

func newBoxFilter(width, height, radius int) *boxFilter {
	return &boxFilter{
		width:    width,
		height:   height,
		radius:   radius,
		integral: make([]float64, (width+1)*(height+1)),
	}
}

func (bf *boxFilter) mean(plane []float64) []float64 {
	out := make([]float64, len(plane))
	bf.meanInto(plane, out)
	return out
}

// meanInto writes the window means of plane into out. The integral image is
// complete before out is written, so out may alias plane.
func (bf *boxFilter) meanInto(plane, out []float64) {
	w, h, r := bf.width, bf.height, bf.radius
	stride := w + 1
	integral := bf.integral

	for y := 1; y <= h; y++ {
		rowSum := 0.0
		for x := 1; x <= w; x++ {
			rowSum += plane[(y-1)*w+(x-1)]
			integral[y*stride+x] = integral[(y-1)*stride+x] + rowSum
		}
	}

	for y := 0; y < h; y++ {
		y1 := max(0, y-r)
		y2 := min(h-1, y+r)
		for x := 0; x < w; x++ {
			x1 := max(0, x-r)
			x2 := min(w-1, x+r)

			area := float64((y2 - y1 + 1) * (x2 - x1 + 1))
			sum := integral[(y2+1)*stride+x2+1] - integral[y1*stride+x2+1] - integral[(y2+1)*stride+x1] + integral[y1*stride+x1]
			out[y*w+x] = sum / area
		}
	}
}

func splitChannels(buf *models.ImageBuffer) [3][]float64 {
	n := buf.Width * buf.Height
	planes := [3][]float64{make([]float64, n), make([]float64, n), make([]float64, n)}
	for i := 0; i < n; i++ {
		planes[0][i] = buf.Pix[i*3]
		planes[1][i] = buf.Pix[i*3+1]
		planes[2][i] = buf.Pix[i*3+2]
	}
	return planes
}

func product(a, b []float64) []float64 {
	out := make([]float64, len(a))
	for i := range a {
		out[i] = a[i] * b[i]
	}
	return out
}
