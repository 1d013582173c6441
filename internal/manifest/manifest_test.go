package manifest

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteThenRead(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, []Entry{{FileName: "2019/a.jpg"}, {FileName: "b.png"}}))
	assert.Contains(t, buf.String(), `"FileName": "2019/a.jpg"`)

	entries, err := Read(&buf)
	require.NoError(t, err)
	assert.Equal(t, []Entry{{FileName: "2019/a.jpg"}, {FileName: "b.png"}}, entries)
}

func TestWriteEmptyIsArray(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, nil))
	assert.Equal(t, "[]\n", buf.String())
}

func TestLoad(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "m.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"FileName":"x.jpg"}]`), 0o644))

	entries, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []Entry{{FileName: "x.jpg"}}, entries)

	_, err = Load(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(path, []byte(`{"FileName":"x.jpg"}`), 0o644))
	_, err = Load(path)
	assert.ErrorContains(t, err, "failed to parse manifest")
}

func TestClean(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"a/b.jpg":      "a/b.jpg",
		"/a/b.jpg":     "a/b.jpg",
		`a\b.jpg`:      "a/b.jpg",
		"./a/../b.jpg": "b.jpg",
		" c.png ":      "c.png",
	}
	for in, want := range tests {
		got, err := Clean(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	for _, in := range []string{"", ".", "..", "../x.jpg", "a/../../x.jpg"} {
		_, err := Clean(in)
		assert.Error(t, err, in)
	}
}
