// Package pipeline chains the per-image stages and turns their errors into
// terminal work item outcomes.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"photo-cleaner/internal/codec"
	"photo-cleaner/internal/logger"
	"photo-cleaner/internal/models"
	"photo-cleaner/internal/pipeline/stages"
	"photo-cleaner/internal/processing/analysis"
	"photo-cleaner/internal/processing/filters"
	"photo-cleaner/internal/timing"
)

const (
	stageLoad = "load"
	stageSave = "save"
)

// Coordinator runs load, process and save for one work item at a time. It
// holds no per-image state, so one Coordinator serves every worker.
type Coordinator struct {
	loader    ImageLoader
	processor ImageProcessor
	saver     ImageSaver
	timing    *timing.Tracker
	logger    logger.Logger
}

func NewCoordinator(c codec.Codec, analyzer *analysis.Analyzer, engine *filters.Engine, tracker *timing.Tracker, log logger.Logger) *Coordinator {
	if log == nil {
		log = logger.NoOpLogger{}
	}
	if tracker == nil {
		tracker = timing.NewTracker(log)
	}
	return NewCoordinatorWithStages(
		stages.NewLoader(c, log),
		stages.NewProcessor(analyzer, engine, tracker, log),
		stages.NewSaver(c, log),
		tracker,
		log,
	)
}

func NewCoordinatorWithStages(loader ImageLoader, processor ImageProcessor, saver ImageSaver, tracker *timing.Tracker, log logger.Logger) *Coordinator {
	if log == nil {
		log = logger.NoOpLogger{}
	}
	if tracker == nil {
		tracker = timing.NewTracker(log)
	}
	return &Coordinator{
		loader:    loader,
		processor: processor,
		saver:     saver,
		timing:    tracker,
		logger:    log,
	}
}

func (c *Coordinator) Timing() *timing.Tracker {
	return c.timing
}

// Process runs the item through every stage and always returns a terminal
// outcome. Failures are classified, never propagated.
func (c *Coordinator) Process(ctx context.Context, item models.WorkItem) models.Outcome {
	startTime := time.Now()

	result, err := c.run(ctx, item)
	if err != nil {
		itemErr := models.NewItemError(models.ReasonOf(err), item.RelPath, err)
		c.logger.Warning("PipelineCoordinator", "item failed", map[string]interface{}{
			"path":   item.RelPath,
			"reason": string(itemErr.Reason),
			"error":  err.Error(),
		})
		return models.FailedOutcome(item, itemErr, time.Since(startTime))
	}

	return models.SucceededOutcome(item, result.Profile, result.Params, time.Since(startTime))
}

func (c *Coordinator) run(ctx context.Context, item models.WorkItem) (*stages.Result, error) {
	if _, err := os.Stat(item.InputPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", models.ErrNotFound, item.InputPath)
		}
		return nil, fmt.Errorf("failed to stat input: %w", err)
	}

	loadCtx := c.timing.Start(ctx, stageLoad)
	input, err := c.loader.Load(item.InputPath)
	c.timing.End(loadCtx)
	if err != nil {
		return nil, err
	}

	result, err := c.processor.Process(ctx, input)
	if err != nil {
		return nil, err
	}

	saveCtx := c.timing.Start(ctx, stageSave)
	err = c.saver.Save(item.OutputPath, result.Output)
	c.timing.End(saveCtx)
	if err != nil {
		return nil, err
	}

	return result, nil
}
