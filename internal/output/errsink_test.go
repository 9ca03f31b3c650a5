package output

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSafeBaseName(t *testing.T) {
	cases := map[string]string{
		"/in/weird name (1)!.pdf":   "weird_name_1_.pdf",
		"/in/normal-file_1.2.pdf":   "normal-file_1.2.pdf",
		"/in/汉字 документ.pdf":       "_.pdf",
		"/in/tabs\tand\nbreaks.tif": "tabs_and_breaks.tif",
	}
	for in, want := range cases {
		assert.Equal(t, want, SafeBaseName(in), in)
	}
}

func TestSinkMovesFailedFile(t *testing.T) {
	errDir := t.TempDir()
	srcDir := t.TempDir()
	src := filepath.Join(srcDir, "bad copy!.pdf")
	require.NoError(t, os.WriteFile(src, []byte("data"), 0o644))

	s := NewSink(errDir)
	s.Move(src, "classify: broken xref")

	_, err := os.Stat(src)
	assert.True(t, os.IsNotExist(err))

	moved := filepath.Join(errDir, "bad_copy_.pdf")
	data, err := os.ReadFile(moved)
	require.NoError(t, err)
	assert.Equal(t, "data", string(data))
}

func TestSinkMissingSourceDoesNotPanic(t *testing.T) {
	s := NewSink(t.TempDir())
	s.Move("/does/not/exist.pdf", "whatever")
}
