package filters

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"photo-cleaner/internal/models"
	"photo-cleaner/internal/processing/params"
)

// noisyBuffer fills a buffer with a deterministic pseudo-random texture.
func noisyBuffer(t *testing.T, w, h int, scale float64) *models.ImageBuffer {
	t.Helper()
	buf, err := models.NewImageBuffer(w, h, 3)
	require.NoError(t, err)
	state := uint32(12345)
	for i := range buf.Pix {
		state = state*1664525 + 1013904223
		buf.Pix[i] = float64(state>>24) / 255 * scale
	}
	return buf
}

func flatBuffer(t *testing.T, w, h int, v float64) *models.ImageBuffer {
	t.Helper()
	buf, err := models.NewImageBuffer(w, h, 3)
	require.NoError(t, err)
	buf.Fill(v, v, v)
	return buf
}

func mustParams(t *testing.T, d int, sc, ss float64, r int, eps float64, bi, gi int) models.FilterParameters {
	t.Helper()
	p, err := models.NewFilterParameters(d, sc, ss, r, eps, bi, gi)
	require.NoError(t, err)
	return p
}

func TestBilateralKeepsFlatImageExact(t *testing.T) {
	t.Parallel()

	src := flatBuffer(t, 9, 7, 0.42)
	dst := src.Clone()
	f, err := NewBilateralFilter(5, 4, 4)
	require.NoError(t, err)
	require.NoError(t, f.Apply(src, dst))
	assert.Equal(t, src.Pix, dst.Pix)
}

func TestBilateralOutputIsWithinInputRange(t *testing.T) {
	t.Parallel()

	src := noisyBuffer(t, 12, 10, 1)
	dst := src.Clone()
	f, err := NewBilateralFilter(5, 0.2, 3)
	require.NoError(t, err)
	require.NoError(t, f.Apply(src, dst))

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range src.Pix {
		lo, hi = math.Min(lo, v), math.Max(hi, v)
	}
	changed := false
	for i, v := range dst.Pix {
		assert.GreaterOrEqual(t, v, lo-1e-12)
		assert.LessOrEqual(t, v, hi+1e-12)
		if v != src.Pix[i] {
			changed = true
		}
	}
	assert.True(t, changed, "filter should smooth a noisy image")
}

func TestBilateralTapsAreCircular(t *testing.T) {
	t.Parallel()

	f, err := NewBilateralFilter(5, 4, 4)
	require.NoError(t, err)
	// Offsets with dx*dx+dy*dy <= 4: the centre, eight neighbours and the
	// four axis points at distance 2.
	assert.Len(t, f.taps, 13)
	for _, tap := range f.taps {
		assert.LessOrEqual(t, tap.dx*tap.dx+tap.dy*tap.dy, 4)
	}

	_, err = NewBilateralFilter(0, 4, 4)
	assert.Error(t, err)
	_, err = NewBilateralFilter(5, 0, 4)
	assert.Error(t, err)
}

func TestBilateralRejectsMismatchedBuffers(t *testing.T) {
	t.Parallel()

	f, err := NewBilateralFilter(3, 1, 1)
	require.NoError(t, err)
	assert.Error(t, f.Apply(flatBuffer(t, 4, 4, 0), flatBuffer(t, 4, 2, 0)))
}

func TestGuidedFilterFlatImage(t *testing.T) {
	t.Parallel()

	src := flatBuffer(t, 10, 8, 0.5)
	g, err := NewGuidedFilter(src, 2, 3.2)
	require.NoError(t, err)
	dst := src.Clone()
	require.NoError(t, g.Apply(src, dst))
	for i := range dst.Pix {
		assert.InDelta(t, 0.5, dst.Pix[i], 1e-9)
	}
}

func TestGuidedFilterSelfGuidedSmallEpsPreservesInput(t *testing.T) {
	t.Parallel()

	src := noisyBuffer(t, 12, 9, 1)
	g, err := NewGuidedFilter(src, 1, 1e-10)
	require.NoError(t, err)
	dst := src.Clone()
	require.NoError(t, g.Apply(src, dst))
	for i := range dst.Pix {
		assert.InDelta(t, src.Pix[i], dst.Pix[i], 1e-4)
	}
}

func TestGuidedFilterLargeEpsApproachesBoxMean(t *testing.T) {
	t.Parallel()

	src := noisyBuffer(t, 6, 6, 1)
	g, err := NewGuidedFilter(src, 1, 1e9)
	require.NoError(t, err)
	dst := src.Clone()
	require.NoError(t, g.Apply(src, dst))

	// Centre pixel (2,2): mean of box means over its 3x3 neighbourhood.
	box := newBoxFilter(6, 6, 1)
	planes := splitChannels(src)
	for c := 0; c < 3; c++ {
		twice := box.mean(box.mean(planes[c]))
		assert.InDelta(t, twice[2*6+2], dst.At(2, 2, c), 1e-6)
	}
}

func TestGuidedFilterValidation(t *testing.T) {
	t.Parallel()

	src := flatBuffer(t, 4, 4, 0.5)
	_, err := NewGuidedFilter(src, 0, 1)
	assert.Error(t, err)
	_, err = NewGuidedFilter(src, 1, 0)
	assert.Error(t, err)

	gray, err := models.NewImageBuffer(4, 4, 1)
	require.NoError(t, err)
	_, err = NewGuidedFilter(gray, 1, 1)
	assert.Error(t, err)

	g, err := NewGuidedFilter(src, 1, 1)
	require.NoError(t, err)
	other := flatBuffer(t, 6, 4, 0.5)
	assert.Error(t, g.Apply(other, other.Clone()))
}

func TestGuidedFilterReusesPlanesAcrossPasses(t *testing.T) {
	src := noisyBuffer(t, 32, 24, 1)
	g, err := NewGuidedFilter(src, 2, 0.01)
	require.NoError(t, err)
	dst := src.Clone()

	first := dst.Clone()
	require.NoError(t, g.Apply(src, first))

	allocs := testing.AllocsPerRun(5, func() {
		if err := g.Apply(src, dst); err != nil {
			t.Fatal(err)
		}
	})
	assert.Zero(t, allocs)
	assert.Equal(t, first.Pix, dst.Pix, "reused planes must not leak state between passes")
}

func TestBoxFilterMeanIntoMayAlias(t *testing.T) {
	t.Parallel()

	plane := []float64{
		1, 2, 3,
		4, 5, 6,
	}
	box := newBoxFilter(3, 2, 1)
	want := box.mean(plane)
	box.meanInto(plane, plane)
	assert.Equal(t, want, plane)
}

func TestBoxFilterClipsWindowAtBorders(t *testing.T) {
	t.Parallel()

	plane := []float64{
		1, 2, 3,
		4, 5, 6,
	}
	got := newBoxFilter(3, 2, 1).mean(plane)
	assert.InDelta(t, (1+2+4+5)/4.0, got[0], 1e-12)
	assert.InDelta(t, 21/6.0, got[1], 1e-12)
	assert.InDelta(t, (2+3+5+6)/4.0, got[2], 1e-12)
}

func TestEnginePreservesShape(t *testing.T) {
	t.Parallel()

	for _, size := range [][2]int{{8, 6}, {10, 4}, {2, 2}} {
		input := noisyBuffer(t, size[0], size[1], 255)
		out, err := NewEngine(nil).Apply(context.Background(), input, mustParams(t, 3, 8, 8, 1, 16, 2, 1))
		require.NoError(t, err)
		assert.True(t, out.SameShape(input), "size %v", size)
	}
}

func TestEngineFlatImageIsFixedPoint(t *testing.T) {
	t.Parallel()

	input := flatBuffer(t, 40, 30, 128)
	out, err := NewEngine(nil).Apply(context.Background(), input, params.Defaults())
	require.NoError(t, err)
	for i := range out.Pix {
		require.InDelta(t, 128, out.Pix[i], 1e-9)
	}
}

func TestEngineDoesNotModifyInput(t *testing.T) {
	t.Parallel()

	input := noisyBuffer(t, 8, 8, 255)
	before := input.Clone()
	_, err := NewEngine(nil).Apply(context.Background(), input, mustParams(t, 5, 8, 8, 2, 16, 3, 2))
	require.NoError(t, err)
	assert.Equal(t, before.Pix, input.Pix)
}

func TestEngineOutputIsConvexBlendOfGuidedAndSource(t *testing.T) {
	t.Parallel()

	input := noisyBuffer(t, 12, 10, 255)
	stages, err := NewEngine(nil).run(context.Background(), input, mustParams(t, 5, 10, 10, 2, 20, 4, 2))
	require.NoError(t, err)

	for i, v := range stages.output.Pix {
		g, s := stages.guided.Pix[i], stages.source.Pix[i]
		lo, hi := math.Min(g, s), math.Max(g, s)
		scaled := v / intensityScale
		require.GreaterOrEqual(t, scaled, lo-1e-12)
		require.LessOrEqual(t, scaled, hi+1e-12)
		mix := math.Min(1, math.Max(0, 0.3*g+0.7*s))
		require.InDelta(t, mix, scaled, 1e-12)
	}
}

type countingSmoother struct {
	calls int
}

func (c *countingSmoother) Name() string { return "copy" }

func (c *countingSmoother) Apply(src, dst *models.ImageBuffer) error {
	c.calls++
	copy(dst.Pix, src.Pix)
	return nil
}

func TestEngineRunsConfiguredSmoother(t *testing.T) {
	t.Parallel()

	counter := &countingSmoother{}
	var gotDiameter int
	var gotColor, gotSpace float64
	engine := NewEngineWithSmoother(func(d int, sc, ss float64) (Smoother, error) {
		gotDiameter, gotColor, gotSpace = d, sc, ss
		return counter, nil
	}, nil)

	input := flatBuffer(t, 6, 4, 100)
	out, err := engine.Apply(context.Background(), input, mustParams(t, 5, 10, 12, 2, 16, 3, 1))
	require.NoError(t, err)

	assert.Equal(t, 3, counter.calls)
	assert.Equal(t, 5, gotDiameter)
	assert.Equal(t, 5.0, gotColor)
	assert.Equal(t, 6.0, gotSpace)
	for _, v := range out.Pix {
		require.InDelta(t, 100, v, 1e-9)
	}
}

func TestEngineReportsSmootherFailure(t *testing.T) {
	t.Parallel()

	engine := NewEngineWithSmoother(func(int, float64, float64) (Smoother, error) {
		return nil, errors.New("no backend")
	}, nil)
	_, err := engine.Apply(context.Background(), flatBuffer(t, 4, 4, 1), params.Defaults())
	assert.ErrorContains(t, err, "no backend")
}

func TestEngineZeroIterationsReturnsSource(t *testing.T) {
	t.Parallel()

	input := noisyBuffer(t, 6, 4, 255)
	out, err := NewEngine(nil).Apply(context.Background(), input, mustParams(t, 3, 8, 8, 1, 16, 0, 0))
	require.NoError(t, err)
	for i := range out.Pix {
		assert.InDelta(t, input.Pix[i], out.Pix[i], 1e-9)
	}
}

func TestEngineIsDeterministic(t *testing.T) {
	t.Parallel()

	input := noisyBuffer(t, 10, 8, 255)
	p := mustParams(t, 5, 9, 9, 2, 18, 5, 3)
	first, err := NewEngine(nil).Apply(context.Background(), input, p)
	require.NoError(t, err)
	second, err := NewEngine(nil).Apply(context.Background(), input, p)
	require.NoError(t, err)
	assert.Equal(t, first.Pix, second.Pix)
}

func TestEngineRejectsInvalidInput(t *testing.T) {
	t.Parallel()

	engine := NewEngine(nil)
	_, err := engine.Apply(context.Background(), flatBuffer(t, 4, 4, 1), models.FilterParameters{})
	assert.Error(t, err)

	gray, err := models.NewImageBuffer(4, 4, 1)
	require.NoError(t, err)
	_, err = engine.Apply(context.Background(), gray, params.Defaults())
	assert.Error(t, err)

	_, err = engine.Apply(context.Background(), nil, params.Defaults())
	assert.Error(t, err)
}

func TestEngineHonoursCancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewEngine(nil).Apply(ctx, flatBuffer(t, 4, 4, 1), params.Defaults())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBlendClampsAndMixes(t *testing.T) {
	t.Parallel()

	filtered := flatBuffer(t, 1, 1, 5)
	source := flatBuffer(t, 1, 1, 0.5)
	out, err := Blend(filtered, source, 0.3)
	require.NoError(t, err)
	assert.Equal(t, 1.0, out.Pix[0])

	filtered.Fill(0, 0, 0)
	out, err = Blend(filtered, source, 0.3)
	require.NoError(t, err)
	assert.InDelta(t, 0.35, out.Pix[0], 1e-12)

	_, err = Blend(flatBuffer(t, 2, 1, 0), source, 0.3)
	assert.Error(t, err)
}
