package params

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"photo-cleaner/internal/models"
)

type flat struct {
	Diameter            int
	SigmaColor          float64
	SigmaSpace          float64
	Radius              int
	Eps                 float64
	BilateralIterations int
	GuidedIterations    int
}

func flatten(p models.FilterParameters) flat {
	return flat{
		Diameter:            p.Diameter(),
		SigmaColor:          p.SigmaColor(),
		SigmaSpace:          p.SigmaSpace(),
		Radius:              p.Radius(),
		Eps:                 p.Eps(),
		BilateralIterations: p.BilateralIterations(),
		GuidedIterations:    p.GuidedIterations(),
	}
}

func TestMapZeroProfileYieldsBaselines(t *testing.T) {
	t.Parallel()

	got := flatten(Map(models.NoiseProfile{}))
	want := flat{
		Diameter:            5,
		SigmaColor:          8,
		SigmaSpace:          8,
		Radius:              4,
		Eps:                 16,
		BilateralIterations: 64,
		GuidedIterations:    4,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Map(zero) mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, want, flatten(Defaults()))
}

func TestMapSaturatesAtUpperBands(t *testing.T) {
	t.Parallel()

	got := flatten(Map(models.NoiseProfile{NoiseSigma: 1000, EdgeDensity: 1}))
	want := flat{
		Diameter:            5,
		SigmaColor:          10,
		SigmaSpace:          10,
		Radius:              5,
		Eps:                 24,
		BilateralIterations: 96,
		GuidedIterations:    5,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Map(large) mismatch (-want +got):\n%s", diff)
	}
}

func TestMapModerateNoise(t *testing.T) {
	t.Parallel()

	// Diameter 5.4, radius 4.6 and guided 4.4 all truncate toward zero.
	got := flatten(Map(models.NoiseProfile{NoiseSigma: 0.2, EdgeDensity: 0.3}))
	assert.Equal(t, 5, got.Diameter)
	assert.InDelta(t, 9.0, got.SigmaColor, 1e-12)
	assert.InDelta(t, 9.0, got.SigmaSpace, 1e-12)
	assert.Equal(t, 4, got.Radius)
	assert.InDelta(t, 20.0, got.Eps, 1e-12)
	assert.Equal(t, 74, got.BilateralIterations)
	assert.Equal(t, 4, got.GuidedIterations)
}

func TestMapStaysInsideBands(t *testing.T) {
	t.Parallel()

	sigmas := []float64{0, 1e-9, 0.1, 0.5, 0.99, 1, 2.5, 10, 1000, 1e12, math.Inf(1), math.NaN(), -5}
	densities := []float64{0, 0.25, 0.5, 0.75, 1, 7, math.NaN(), -1}

	for _, sigma := range sigmas {
		for _, density := range densities {
			p := Map(models.NoiseProfile{NoiseSigma: sigma, EdgeDensity: density})
			require.True(t, p.Valid())

			assert.True(t, DiameterBand.Contains(float64(p.Diameter())), "diameter %d", p.Diameter())
			assert.Equal(t, 1, p.Diameter()%2, "diameter must be odd")
			assert.True(t, SigmaColorBand.Contains(p.SigmaColor()))
			assert.True(t, SigmaSpaceBand.Contains(p.SigmaSpace()))
			assert.True(t, RadiusBand.Contains(float64(p.Radius())))
			assert.True(t, EpsBand.Contains(p.Eps()))
			assert.True(t, BilateralIterationsBand.Contains(float64(p.BilateralIterations())))
			assert.True(t, GuidedIterationsBand.Contains(float64(p.GuidedIterations())))
		}
	}
}

func TestMapperStage(t *testing.T) {
	t.Parallel()

	m := NewMapper()
	assert.Equal(t, "parameter_mapper", m.Name())
	assert.Equal(t, Map(models.NoiseProfile{NoiseSigma: 0.4}), m.Map(models.NoiseProfile{NoiseSigma: 0.4}))
}
