// Package batch runs a whole directory of photos through the pipeline on a
// fixed pool of workers and reconciles the results.
package batch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"photo-cleaner/internal/config"
	"photo-cleaner/internal/logger"
	"photo-cleaner/internal/manifest"
	"photo-cleaner/internal/models"
	"photo-cleaner/internal/report"
	"photo-cleaner/internal/timing"
)

var errInterrupted = errors.New("run interrupted")

// Processor takes one work item to a terminal outcome. Implementations must
// be safe for concurrent use.
type Processor interface {
	Process(ctx context.Context, item models.WorkItem) models.Outcome
}

type timed interface {
	Timing() *timing.Tracker
}

// Summary is the reconciled result of a run. Succeeded+Failed == Total.
type Summary struct {
	RunID        string
	Total        int
	Succeeded    int
	Failed       int
	Report       *models.ErrorReport
	ReportPath   string
	Outcomes     []models.Outcome
	Elapsed      time.Duration
	StageTimings []timing.StageStats
}

type Orchestrator struct {
	cfg    config.Config
	proc   Processor
	logger logger.Logger
}

func NewOrchestrator(cfg config.Config, proc Processor, log logger.Logger) *Orchestrator {
	if log == nil {
		log = logger.NoOpLogger{}
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.QueueSize < 0 {
		cfg.QueueSize = 0
	}
	if cfg.ReportName == "" {
		cfg.ReportName = config.DefaultReportName
	}
	return &Orchestrator{cfg: cfg, proc: proc, logger: log}
}

// Enumerate lists the work items of the run: every accepted file under the
// input root, or only the files named by the manifest when one is set.
func (o *Orchestrator) Enumerate() ([]models.WorkItem, error) {
	info, err := os.Stat(o.cfg.InputRoot)
	if err != nil {
		return nil, fmt.Errorf("input root unavailable: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("input root %s is not a directory", o.cfg.InputRoot)
	}

	if o.cfg.ManifestPath != "" {
		return o.enumerateManifest()
	}
	return o.enumerateTree()
}

func (o *Orchestrator) enumerateTree() ([]models.WorkItem, error) {
	inputRoot, err := filepath.Abs(o.cfg.InputRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve input root: %w", err)
	}
	outputRoot, err := filepath.Abs(o.cfg.OutputRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve output root: %w", err)
	}

	var items []models.WorkItem
	err = filepath.WalkDir(inputRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			// An output tree nested inside the input must not be fed back in.
			if path == outputRoot {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || !o.cfg.AcceptsExt(filepath.Ext(path)) {
			return nil
		}

		rel, err := filepath.Rel(inputRoot, path)
		if err != nil {
			return err
		}
		items = append(items, o.itemFor(filepath.ToSlash(rel)))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk input root: %w", err)
	}
	return items, nil
}

func (o *Orchestrator) enumerateManifest() ([]models.WorkItem, error) {
	entries, err := manifest.Load(o.cfg.ManifestPath)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(entries))
	items := make([]models.WorkItem, 0, len(entries))
	for _, entry := range entries {
		rel, err := manifest.Clean(entry.FileName)
		if err != nil {
			o.logger.Warning("Orchestrator", "skipping manifest entry", map[string]interface{}{
				"entry": entry.FileName,
				"error": err.Error(),
			})
			continue
		}
		if seen[rel] || !o.cfg.AcceptsExt(filepath.Ext(rel)) {
			continue
		}
		seen[rel] = true
		items = append(items, o.itemFor(rel))
	}
	return items, nil
}

func (o *Orchestrator) itemFor(rel string) models.WorkItem {
	native := filepath.FromSlash(rel)
	return models.WorkItem{
		InputPath:  filepath.Join(o.cfg.InputRoot, native),
		OutputPath: filepath.Join(o.cfg.OutputRoot, native),
		RelPath:    rel,
	}
}

// Run processes every enumerated item exactly once. Only a failed
// enumeration or an unusable output root returns an error; item failures
// end up in the summary and the error report. Cancelling ctx stops dispatch
// of queued items, which are then recorded as interrupted.
func (o *Orchestrator) Run(ctx context.Context) (*Summary, error) {
	startTime := time.Now()
	runID := uuid.NewString()

	items, err := o.Enumerate()
	if err != nil {
		o.logger.Error("Orchestrator", err, map[string]interface{}{"run_id": runID})
		return nil, err
	}
	if err := os.MkdirAll(o.cfg.OutputRoot, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output root: %w", err)
	}

	o.logger.Info("Orchestrator", "batch started", map[string]interface{}{
		"run_id":  runID,
		"items":   len(items),
		"workers": o.cfg.Workers,
		"input":   o.cfg.InputRoot,
		"output":  o.cfg.OutputRoot,
	})

	summary := &Summary{
		RunID:      runID,
		Total:      len(items),
		Report:     models.NewErrorReport(),
		ReportPath: o.cfg.ReportPath(),
		Outcomes:   make([]models.Outcome, 0, len(items)),
	}

	queue := make(chan models.WorkItem, o.cfg.QueueSize)
	results := make(chan models.Outcome, o.cfg.Workers)

	aggregated := make(chan struct{})
	go func() {
		defer close(aggregated)
		for outcome := range results {
			o.aggregate(summary, outcome)
		}
	}()

	// Items already dispatched run to completion even if ctx is cancelled.
	workCtx := context.WithoutCancel(ctx)
	var wg sync.WaitGroup
	for i := 0; i < o.cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range queue {
				results <- o.proc.Process(workCtx, item)
			}
		}()
	}

	o.dispatch(ctx, items, queue, results)
	close(queue)
	wg.Wait()
	close(results)
	<-aggregated

	sort.Slice(summary.Outcomes, func(i, j int) bool {
		return summary.Outcomes[i].Item.RelPath < summary.Outcomes[j].Item.RelPath
	})
	if t, ok := o.proc.(timed); ok {
		summary.StageTimings = t.Timing().Summary()
	}
	summary.Elapsed = time.Since(startTime)

	o.finish(summary)
	return summary, nil
}

func (o *Orchestrator) dispatch(ctx context.Context, items []models.WorkItem, queue chan<- models.WorkItem, results chan<- models.Outcome) {
	for i, item := range items {
		if ctx.Err() == nil {
			select {
			case queue <- item:
				continue
			case <-ctx.Done():
			}
		}

		o.logger.Warning("Orchestrator", "dispatch interrupted", map[string]interface{}{
			"remaining": len(items) - i,
		})
		for _, rest := range items[i:] {
			itemErr := models.NewItemError(models.ReasonProcessingError, rest.RelPath, errInterrupted)
			results <- models.FailedOutcome(rest, itemErr, 0)
		}
		return
	}
}

func (o *Orchestrator) aggregate(summary *Summary, outcome models.Outcome) {
	summary.Outcomes = append(summary.Outcomes, outcome)
	if outcome.State == models.Succeeded {
		summary.Succeeded++
		return
	}

	summary.Failed++
	summary.Report.Append(models.ReportEntry{
		Reason: outcome.Reason,
		Path:   outcome.Item.RelPath,
		Detail: outcome.Detail,
	})
}

func (o *Orchestrator) finish(summary *Summary) {
	fields := map[string]interface{}{
		"run_id":     summary.RunID,
		"total":      summary.Total,
		"succeeded":  summary.Succeeded,
		"failed":     summary.Failed,
		"elapsed_ms": summary.Elapsed.Milliseconds(),
	}

	if summary.Failed > 0 {
		if err := report.WriteErrorReport(summary.ReportPath, summary.Report); err != nil {
			o.logger.Error("Orchestrator", err, fields)
		}
		fields["report"] = summary.ReportPath
		o.logger.Warning("Orchestrator", "batch finished with failures", fields)
	} else {
		if err := report.RemoveStale(summary.ReportPath); err != nil {
			o.logger.Error("Orchestrator", err, fields)
		}
		summary.ReportPath = ""
		o.logger.Info("Orchestrator", "batch finished", fields)
	}

	for _, stage := range summary.StageTimings {
		o.logger.Debug("Orchestrator", "stage timing", map[string]interface{}{
			"stage":   stage.Stage,
			"count":   stage.Count,
			"mean_ms": stage.Mean.Milliseconds(),
			"max_ms":  stage.Max.Milliseconds(),
		})
	}

	if o.cfg.ProfilePlot != "" {
		err := report.PlotProfiles(summary.Outcomes, o.cfg.ProfilePlot)
		switch {
		case errors.Is(err, report.ErrNoProfiles):
			o.logger.Info("Orchestrator", "no profiles to plot", nil)
		case err != nil:
			o.logger.Error("Orchestrator", err, map[string]interface{}{"plot": o.cfg.ProfilePlot})
		}
	}
}

// FormatSummary renders a one-line human summary.
func FormatSummary(s *Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "run %s: %d processed, %d succeeded, %d failed in %s",
		s.RunID, s.Total, s.Succeeded, s.Failed, s.Elapsed.Round(time.Millisecond))
	if s.ReportPath != "" {
		fmt.Fprintf(&b, " (see %s)", s.ReportPath)
	}
	return b.String()
}
