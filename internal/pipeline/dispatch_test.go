package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dococr/dococr/internal/ocr"
)

// fakeRenderer pretends to rasterize by returning a per-page image path.
type fakeRenderer struct {
	err     error
	delay   time.Duration
	running int64
	peak    int64
}

func (f *fakeRenderer) RenderPage(_ context.Context, path string, page int, dir string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	n := atomic.AddInt64(&f.running, 1)
	defer atomic.AddInt64(&f.running, -1)
	for {
		old := atomic.LoadInt64(&f.peak)
		if n <= old || atomic.CompareAndSwapInt64(&f.peak, old, n) {
			break
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	return fmt.Sprintf("%s/page-%06d.png", dir, page), nil
}

// fakeEngine recognizes by echoing the page number, with raw line breaks so
// normalization is observable.
type fakeEngine struct {
	err error
}

func (f *fakeEngine) Recognize(_ context.Context, in ocr.Input) (ocr.Result, error) {
	if f.err != nil {
		return ocr.Result{}, f.err
	}
	return ocr.Result{
		Text: fmt.Sprintf("page\n%d\n", in.PageIndex),
		PDF:  []byte(fmt.Sprintf("%%PDF-%d", in.PageIndex)),
	}, nil
}

func TestDispatchKeysResultsByPageIndex(t *testing.T) {
	d := NewDispatcher(&fakeRenderer{}, &fakeEngine{}, 4)

	results, err := d.Run(context.Background(), "doc.pdf", []int{0, 3, 7}, t.TempDir())
	require.NoError(t, err)
	require.Len(t, results, 3)

	for _, idx := range []int{0, 3, 7} {
		res, ok := results[idx]
		require.True(t, ok, "missing page %d", idx)
		assert.Equal(t, fmt.Sprintf("page %d", idx), res.Text)
		assert.Equal(t, fmt.Sprintf("%%PDF-%d", idx), string(res.PDF))
	}
}

func TestDispatchNoScanPages(t *testing.T) {
	d := NewDispatcher(&fakeRenderer{}, &fakeEngine{}, 2)
	results, err := d.Run(context.Background(), "doc.pdf", nil, t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestDispatchBoundsConcurrency(t *testing.T) {
	r := &fakeRenderer{delay: 20 * time.Millisecond}
	d := NewDispatcher(r, &fakeEngine{}, 2)

	pages := make([]int, 12)
	for i := range pages {
		pages[i] = i
	}
	_, err := d.Run(context.Background(), "doc.pdf", pages, t.TempDir())
	require.NoError(t, err)
	assert.LessOrEqual(t, atomic.LoadInt64(&r.peak), int64(2))
}

func TestDispatchRenderFailureFailsBatch(t *testing.T) {
	d := NewDispatcher(&fakeRenderer{err: errors.New("pdftoppm exploded")}, &fakeEngine{}, 2)
	_, err := d.Run(context.Background(), "doc.pdf", []int{0, 1}, t.TempDir())
	require.Error(t, err)
	assert.ErrorContains(t, err, "render page")
}

func TestDispatchRecognizeFailureFailsBatch(t *testing.T) {
	d := NewDispatcher(&fakeRenderer{}, &fakeEngine{err: errors.New("no tessdata")}, 2)
	_, err := d.Run(context.Background(), "doc.pdf", []int{4}, t.TempDir())
	require.Error(t, err)
	assert.ErrorContains(t, err, "recognize page 4")
}
