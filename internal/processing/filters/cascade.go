// Package filters implements the adaptive denoising cascade: an iterated
// bilateral smoothing pass, an iterated guided refinement against the
// untouched source, and a fixed blend back toward the source.
package filters

import (
	"context"
	"fmt"

	"photo-cleaner/internal/logger"
	"photo-cleaner/internal/models"
)

const (
	// BlendWeight is the share of the filtered image in the final result.
	BlendWeight = 0.3

	// The smoothing stage uses half the mapped sigmas and the guided stage a
	// fifth of the mapped eps.
	bilateralSigmaDivisor = 2.0
	guidedEpsDivisor      = 5.0

	intensityScale = 255.0
)

// Smoother is one edge-preserving smoothing pass from src into dst. Both
// buffers are 3-channel on the 0-1 scale and never alias.
type Smoother interface {
	Name() string
	Apply(src, dst *models.ImageBuffer) error
}

// SmootherFactory builds the smoothing pass for one image's parameters.
type SmootherFactory func(diameter int, sigmaColor, sigmaSpace float64) (Smoother, error)

// NewBilateralSmoother is the SmootherFactory of the pure Go BilateralFilter.
func NewBilateralSmoother(diameter int, sigmaColor, sigmaSpace float64) (Smoother, error) {
	f, err := NewBilateralFilter(diameter, sigmaColor, sigmaSpace)
	if err != nil {
		return nil, err
	}
	return f, nil
}

type Engine struct {
	smoother SmootherFactory
	logger   logger.Logger
}

func NewEngine(log logger.Logger) *Engine {
	return NewEngineWithSmoother(nil, log)
}

// NewEngineWithSmoother returns an Engine whose smoothing stage is built by
// factory. A nil factory selects NewBilateralSmoother.
func NewEngineWithSmoother(factory SmootherFactory, log logger.Logger) *Engine {
	if log == nil {
		log = logger.NoOpLogger{}
	}
	if factory == nil {
		factory = NewBilateralSmoother
	}
	return &Engine{smoother: factory, logger: log}
}

func (e *Engine) Name() string {
	return "filter_cascade"
}

// Apply runs the cascade on a 3-channel buffer on the 0-255 scale and returns
// a new buffer of identical shape on the same scale. The input is not modified.
func (e *Engine) Apply(ctx context.Context, input *models.ImageBuffer, params models.FilterParameters) (*models.ImageBuffer, error) {
	stages, err := e.run(ctx, input, params)
	if err != nil {
		return nil, err
	}
	return stages.output, nil
}

type cascadeStages struct {
	source *models.ImageBuffer
	guided *models.ImageBuffer
	output *models.ImageBuffer
}

func (e *Engine) run(ctx context.Context, input *models.ImageBuffer, params models.FilterParameters) (*cascadeStages, error) {
	if err := input.Validate("FilterCascade"); err != nil {
		return nil, err
	}
	if input.Channels != 3 {
		return nil, fmt.Errorf("filter cascade requires 3 channels, got %d", input.Channels)
	}
	if !params.Valid() {
		return nil, fmt.Errorf("filter cascade received uninitialised parameters")
	}

	source := input.Clone()
	source.Scale(1 / intensityScale)

	smoother, err := e.smoother(params.Diameter(),
		params.SigmaColor()/bilateralSigmaDivisor,
		params.SigmaSpace()/bilateralSigmaDivisor)
	if err != nil {
		return nil, fmt.Errorf("failed to build smoothing filter: %w", err)
	}

	working := source.Clone()
	scratch := source.Clone()
	for i := 0; i < params.BilateralIterations(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := smoother.Apply(working, scratch); err != nil {
			return nil, fmt.Errorf("%s pass %d: %w", smoother.Name(), i+1, err)
		}
		working, scratch = scratch, working
	}

	e.logger.Debug("FilterCascade", "smoothing stage complete", map[string]interface{}{
		"filter":     smoother.Name(),
		"iterations": params.BilateralIterations(),
		"size":       input.String(),
	})

	guided, err := NewGuidedFilter(source, params.Radius(), params.Eps()/guidedEpsDivisor)
	if err != nil {
		return nil, fmt.Errorf("failed to build guided filter: %w", err)
	}
	for i := 0; i < params.GuidedIterations(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := guided.Apply(working, scratch); err != nil {
			return nil, fmt.Errorf("guided pass %d: %w", i+1, err)
		}
		working, scratch = scratch, working
	}

	e.logger.Debug("FilterCascade", "guided stage complete", map[string]interface{}{
		"iterations": params.GuidedIterations(),
	})

	// The blend lands in the scratch buffer, which no later stage reads.
	output := scratch
	if err := blendInto(output, working, source, BlendWeight); err != nil {
		return nil, err
	}
	output.Scale(intensityScale)

	return &cascadeStages{
		source: source,
		guided: working,
		output: output,
	}, nil
}

// Blend returns alpha*filtered + (1-alpha)*source clamped to [0, 1].
func Blend(filtered, source *models.ImageBuffer, alpha float64) (*models.ImageBuffer, error) {
	out := source.Clone()
	if err := blendInto(out, filtered, source, alpha); err != nil {
		return nil, err
	}
	return out, nil
}

func blendInto(out, filtered, source *models.ImageBuffer, alpha float64) error {
	if !filtered.SameShape(source) || !out.SameShape(source) {
		return fmt.Errorf("blend: shape mismatch %v vs %v", filtered, source)
	}

	for i, s := range source.Pix {
		v := alpha*filtered.Pix[i] + (1-alpha)*s
		if v < 0 {
			v = 0
		} else if v > 1 {
			v = 1
		}
		out.Pix[i] = v
	}
	return nil
}
