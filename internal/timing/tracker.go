// Package timing records per-stage durations across a batch.
package timing

import (
	"context"
	"sort"
	"sync"
	"time"

	"photo-cleaner/internal/logger"
)

type contextKey struct{}

type timingInfo struct {
	Stage     string
	StartTime time.Time
}

// StageStats summarises every recorded duration of one stage.
type StageStats struct {
	Stage string        `json:"stage"`
	Count int           `json:"count"`
	Total time.Duration `json:"total"`
	Mean  time.Duration `json:"mean"`
	Max   time.Duration `json:"max"`
}

type Tracker struct {
	timings map[string][]time.Duration
	mu      sync.RWMutex
	logger  logger.Logger
}

func NewTracker(log logger.Logger) *Tracker {
	if log == nil {
		log = logger.NoOpLogger{}
	}
	return &Tracker{
		timings: make(map[string][]time.Duration),
		logger:  log,
	}
}

// Start returns a child of ctx carrying the stage start time.
func (tt *Tracker) Start(ctx context.Context, stage string) context.Context {
	return context.WithValue(ctx, contextKey{}, timingInfo{Stage: stage, StartTime: time.Now()})
}

// End records the time elapsed since the matching Start and returns it.
func (tt *Tracker) End(ctx context.Context) time.Duration {
	info, ok := ctx.Value(contextKey{}).(timingInfo)
	if !ok {
		return 0
	}

	duration := time.Since(info.StartTime)
	tt.record(info.Stage, duration)
	return duration
}

func (tt *Tracker) record(stage string, duration time.Duration) {
	tt.mu.Lock()
	tt.timings[stage] = append(tt.timings[stage], duration)
	tt.mu.Unlock()

	tt.logger.Debug("Timing", "stage completed", map[string]interface{}{
		"stage":       stage,
		"duration_ms": duration.Milliseconds(),
	})
}

// Summary returns the statistics of every stage, ordered by stage name.
func (tt *Tracker) Summary() []StageStats {
	tt.mu.RLock()
	defer tt.mu.RUnlock()

	stats := make([]StageStats, 0, len(tt.timings))
	for stage, timings := range tt.timings {
		s := StageStats{Stage: stage, Count: len(timings)}
		for _, d := range timings {
			s.Total += d
			s.Max = max(s.Max, d)
		}
		if s.Count > 0 {
			s.Mean = s.Total / time.Duration(s.Count)
		}
		stats = append(stats, s)
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Stage < stats[j].Stage })
	return stats
}
