package timing

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrackerStartEnd(t *testing.T) {
	t.Parallel()

	tr := NewTracker(nil)
	ctx := tr.Start(context.Background(), "load")
	time.Sleep(2 * time.Millisecond)
	d := tr.End(ctx)

	assert.GreaterOrEqual(t, d, 2*time.Millisecond)
	summary := tr.Summary()
	require.Len(t, summary, 1)
	assert.Equal(t, StageStats{Stage: "load", Count: 1, Total: d, Mean: d, Max: d}, summary[0])
}

func TestTrackerEndWithoutStart(t *testing.T) {
	t.Parallel()

	tr := NewTracker(nil)
	assert.Zero(t, tr.End(context.Background()))
	assert.Empty(t, tr.Summary())
}

func TestTrackerSummary(t *testing.T) {
	t.Parallel()

	tr := NewTracker(nil)
	tr.record("save", 10*time.Millisecond)
	tr.record("analyze", 4*time.Millisecond)
	tr.record("analyze", 6*time.Millisecond)

	summary := tr.Summary()
	require.Len(t, summary, 2)
	assert.Equal(t, StageStats{
		Stage: "analyze",
		Count: 2,
		Total: 10 * time.Millisecond,
		Mean:  5 * time.Millisecond,
		Max:   6 * time.Millisecond,
	}, summary[0])
	assert.Equal(t, "save", summary[1].Stage)
}

func TestTrackerConcurrentStages(t *testing.T) {
	t.Parallel()

	tr := NewTracker(nil)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx := tr.Start(context.Background(), "cascade")
			tr.End(ctx)
		}()
	}
	wg.Wait()

	summary := tr.Summary()
	require.Len(t, summary, 1)
	assert.Equal(t, 20, summary[0].Count)
}
