// Package params turns a NoiseProfile into FilterParameters through clamped
// linear rules around fixed baselines.
package params

import (
	"fmt"
	"math"

	"photo-cleaner/internal/models"
)

// Baselines the clamp bands are centred on.
const (
	BaseDiameter            = 5
	BaseSigmaColor          = 8.0
	BaseSigmaSpace          = 8.0
	BaseRadius              = 4
	BaseEps                 = 16.0
	BaseBilateralIterations = 64
	BaseGuidedIterations    = 4
)

// Band is the closed interval a mapped value is clamped into.
type Band struct {
	Min, Max float64
}

func (b Band) Clamp(v float64) float64 {
	if v < b.Min {
		return b.Min
	}
	if v > b.Max {
		return b.Max
	}
	return v
}

func (b Band) Contains(v float64) bool {
	return v >= b.Min && v <= b.Max
}

var (
	DiameterBand            = Band{3, BaseDiameter + 1}
	SigmaColorBand          = Band{BaseSigmaColor - 2, BaseSigmaColor + 2}
	SigmaSpaceBand          = Band{BaseSigmaSpace - 2, BaseSigmaSpace + 2}
	RadiusBand              = Band{BaseRadius - 1, BaseRadius + 1}
	EpsBand                 = Band{BaseEps / 2, BaseEps * 1.5}
	BilateralIterationsBand = Band{BaseBilateralIterations / 2, BaseBilateralIterations * 1.5}
	GuidedIterationsBand    = Band{BaseGuidedIterations - 1, BaseGuidedIterations + 1}
)

// Map derives filter parameters from a noise profile. It never fails: NaN and
// negative statistics count as zero and infinities saturate at the band edge.
// Integer geometry is truncated toward zero, and an even diameter is lowered
// to the next odd value so the bilateral kernel keeps a centre pixel.
func Map(profile models.NoiseProfile) models.FilterParameters {
	sigma := sanitize(profile.NoiseSigma)
	edges := sanitize(profile.EdgeDensity)

	diameter := int(DiameterBand.Clamp(BaseDiameter + 2*sigma))
	if diameter%2 == 0 {
		diameter--
	}

	params, err := models.NewFilterParameters(
		diameter,
		SigmaColorBand.Clamp(BaseSigmaColor+5*sigma),
		SigmaSpaceBand.Clamp(BaseSigmaSpace+5*sigma),
		int(RadiusBand.Clamp(BaseRadius+2*edges)),
		EpsBand.Clamp(BaseEps+20*sigma),
		int(BilateralIterationsBand.Clamp(BaseBilateralIterations+50*sigma)),
		int(GuidedIterationsBand.Clamp(BaseGuidedIterations+2*sigma)),
	)
	if err != nil {
		// The bands above only admit valid values.
		panic(fmt.Sprintf("params: clamp bands produced invalid parameters: %v", err))
	}
	return params
}

// Defaults returns the parameters of a perfectly clean, flat image.
func Defaults() models.FilterParameters {
	return Map(models.NoiseProfile{})
}

func sanitize(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	return v
}

// Mapper adapts Map to the stage interface used by the pipeline.
type Mapper struct{}

func NewMapper() *Mapper {
	return &Mapper{}
}

func (m *Mapper) Name() string {
	return "parameter_mapper"
}

func (m *Mapper) Map(profile models.NoiseProfile) models.FilterParameters {
	return Map(profile)
}
