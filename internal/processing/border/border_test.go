package border

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReflect101(t *testing.T) {
	t.Parallel()

	cases := []struct {
		i, n, want int
	}{
		{-1, 5, 1},
		{-2, 5, 2},
		{5, 5, 3},
		{6, 5, 2},
		{2, 5, 2},
		{-3, 1, 0},
		{-7, 3, 1},
		{0, 2, 0},
		{2, 2, 0},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Reflect101(tc.i, tc.n), "Reflect101(%d, %d)", tc.i, tc.n)
	}
}

func TestClip(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0, Clip(-4, 10))
	assert.Equal(t, 9, Clip(12, 10))
	assert.Equal(t, 3, Clip(3, 10))
}
