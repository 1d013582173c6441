package stages

import (
	"context"
	"fmt"
	"time"

	"photo-cleaner/internal/logger"
	"photo-cleaner/internal/models"
	"photo-cleaner/internal/processing/analysis"
	"photo-cleaner/internal/processing/filters"
	"photo-cleaner/internal/processing/params"
	"photo-cleaner/internal/timing"
)

// Result is the output of one processed image with the measurements that
// drove it.
type Result struct {
	Output  *models.ImageBuffer
	Profile models.NoiseProfile
	Params  models.FilterParameters
}

// Processor runs analyze, map and cascade in order on one image.
type Processor struct {
	analyzer *analysis.Analyzer
	mapper   *params.Mapper
	engine   *filters.Engine
	timing   *timing.Tracker
	logger   logger.Logger
}

// NewProcessor wires the stages of one image. Nil arguments select the
// defaults: the standard analyzer and the pure Go filter cascade.
func NewProcessor(analyzer *analysis.Analyzer, engine *filters.Engine, tracker *timing.Tracker, log logger.Logger) *Processor {
	if log == nil {
		log = logger.NoOpLogger{}
	}
	if engine == nil {
		engine = filters.NewEngine(log)
	}
	if analyzer == nil {
		analyzer = analysis.NewAnalyzer(0, 0)
	}
	if tracker == nil {
		tracker = timing.NewTracker(log)
	}
	return &Processor{
		analyzer: analyzer,
		mapper:   params.NewMapper(),
		engine:   engine,
		timing:   tracker,
		logger:   log,
	}
}

func (p *Processor) Process(ctx context.Context, input *models.ImageBuffer) (*Result, error) {
	startTime := time.Now()

	stageCtx := p.timing.Start(ctx, p.analyzer.Name())
	profile, err := p.analyzer.Analyze(input)
	p.timing.End(stageCtx)
	if err != nil {
		return nil, fmt.Errorf("analysis failed: %w", err)
	}

	stageCtx = p.timing.Start(ctx, p.mapper.Name())
	filterParams := p.mapper.Map(profile)
	p.timing.End(stageCtx)

	stageCtx = p.timing.Start(ctx, p.engine.Name())
	output, err := p.engine.Apply(stageCtx, input, filterParams)
	p.timing.End(stageCtx)
	if err != nil {
		return nil, fmt.Errorf("filter cascade failed: %w", err)
	}

	fields := filterParams.Fields()
	fields["noise_sigma"] = profile.NoiseSigma
	fields["edge_density"] = profile.EdgeDensity
	fields["process_time_ms"] = time.Since(startTime).Milliseconds()
	p.logger.Debug("PipelineProcessor", "image processed", fields)

	return &Result{Output: output, Profile: profile, Params: filterParams}, nil
}
