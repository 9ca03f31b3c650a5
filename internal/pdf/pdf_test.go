package pdf

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRunner records invocations and plays back scripted behavior.
type fakeRunner struct {
	calls  [][]string
	stdout []byte
	stderr []byte
	err    error
	onRun  func(name string, args []string)
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	f.calls = append(f.calls, append([]string{name}, args...))
	if f.onRun != nil {
		f.onRun(name, args)
	}
	return f.stdout, f.stderr, f.err
}

func TestPageTextInvocation(t *testing.T) {
	r := &fakeRunner{stdout: []byte("Hello layout\n\f")}
	tk := NewToolkit(Config{})
	tk.runner = r

	text, err := tk.PageText(context.Background(), "/in/doc.pdf", 3)
	require.NoError(t, err)
	assert.Equal(t, "Hello layout\n", text)

	require.Len(t, r.calls, 1)
	assert.Equal(t, []string{
		"pdftotext", "-f", "3", "-l", "3", "-layout", "-enc", "UTF-8", "-eol", "unix", "/in/doc.pdf", "-",
	}, r.calls[0])
}

func TestPageRawTextInvocation(t *testing.T) {
	r := &fakeRunner{stdout: []byte("raw run")}
	tk := NewToolkit(Config{Pdftotext: "/opt/poppler/bin/pdftotext"})
	tk.runner = r

	text, err := tk.PageRawText(context.Background(), "/in/doc.pdf", 1)
	require.NoError(t, err)
	assert.Equal(t, "raw run", text)

	require.Len(t, r.calls, 1)
	assert.Equal(t, "/opt/poppler/bin/pdftotext", r.calls[0][0])
	assert.Contains(t, r.calls[0], "-raw")
	assert.NotContains(t, r.calls[0], "-layout")
}

func TestPageTextReportsStderr(t *testing.T) {
	r := &fakeRunner{err: errors.New("exit status 1"), stderr: []byte("Syntax Error: couldn't read xref table")}
	tk := NewToolkit(Config{})
	tk.runner = r

	_, err := tk.PageText(context.Background(), "/in/doc.pdf", 1)
	require.Error(t, err)
	assert.ErrorContains(t, err, "xref")
}

func TestRenderPagePicksUpProducedImage(t *testing.T) {
	dir := t.TempDir()
	r := &fakeRunner{}
	r.onRun = func(_ string, args []string) {
		// pdftoppm writes <prefix>-<n>.png; emulate that.
		prefix := args[len(args)-1]
		require.NoError(t, os.WriteFile(prefix+"-2.png", []byte("png"), 0o644))
	}
	tk := NewToolkit(Config{DPI: 150})
	tk.runner = r

	img, err := tk.RenderPage(context.Background(), "/in/doc.pdf", 2, dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "page-000002-2.png"), img)

	require.Len(t, r.calls, 1)
	assert.Equal(t, []string{
		"pdftoppm", "-f", "2", "-l", "2", "-r", "150", "-png", "/in/doc.pdf",
		filepath.Join(dir, "page-000002"),
	}, r.calls[0])
}

func TestRenderPageNoOutputFails(t *testing.T) {
	tk := NewToolkit(Config{})
	tk.runner = &fakeRunner{}

	_, err := tk.RenderPage(context.Background(), "/in/doc.pdf", 1, t.TempDir())
	require.Error(t, err)
	assert.ErrorContains(t, err, "no image")
}

func TestToolkitDefaults(t *testing.T) {
	tk := NewToolkit(Config{})
	assert.Equal(t, "pdftotext", tk.cfg.Pdftotext)
	assert.Equal(t, "pdftoppm", tk.cfg.Pdftoppm)
	assert.Equal(t, 300, tk.cfg.DPI)
}
