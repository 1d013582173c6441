package shutdown

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShutdownCancelsOnce(t *testing.T) {
	t.Parallel()

	m := NewManager(context.Background(), nil)
	m.Listen()

	m.Shutdown()
	m.Shutdown()

	assert.ErrorIs(t, m.Context().Err(), context.Canceled)
}

func TestParentCancellationPropagates(t *testing.T) {
	t.Parallel()

	parent, cancel := context.WithCancel(context.Background())
	m := NewManager(parent, nil)
	m.Listen()
	cancel()

	assert.ErrorIs(t, m.Context().Err(), context.Canceled)
	m.Shutdown()
}
