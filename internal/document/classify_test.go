package document

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProber struct {
	pages []string // layout text per page, 0-based
	raw   []string // raw probe per page, 0-based
	err   error
}

func (f *fakeProber) PageCount(string) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	return len(f.pages), nil
}

func (f *fakeProber) PageText(_ context.Context, _ string, page int) (string, error) {
	return f.pages[page-1], nil
}

func (f *fakeProber) PageRawText(_ context.Context, _ string, page int) (string, error) {
	return f.raw[page-1], nil
}

func TestClassifySplitsTextAndScanPages(t *testing.T) {
	prober := &fakeProber{
		pages: []string{
			"This page has a perfectly usable text layer.",
			"",
			"short",
		},
		raw: []string{"", "", ""},
	}
	c := NewClassifier(prober, 16)

	doc, err := c.Classify(context.Background(), "doc.pdf")
	require.NoError(t, err)
	require.Len(t, doc.Pages, 3)
	assert.Equal(t, 3, doc.PageCount)

	assert.Equal(t, TextPage, doc.Pages[0].Kind)
	assert.Equal(t, "This page has a perfectly usable text layer.", doc.Pages[0].Text)
	assert.Equal(t, ScanPage, doc.Pages[1].Kind)
	assert.Equal(t, ScanPage, doc.Pages[2].Kind)
	assert.Equal(t, []int{1, 2}, doc.ScanIndices())
}

func TestClassifyCountsInkNotWhitespace(t *testing.T) {
	// 16 characters spread across heavy whitespace still count.
	prober := &fakeProber{
		pages: []string{"a b c d e f g h\n i j k l m n o p"},
		raw:   []string{""},
	}
	c := NewClassifier(prober, 16)

	doc, err := c.Classify(context.Background(), "doc.pdf")
	require.NoError(t, err)
	assert.Equal(t, TextPage, doc.Pages[0].Kind)
}

func TestClassifyRawProbeRescuesSparsePage(t *testing.T) {
	// The layout pass flattened the page, but the raw probe still sees a run.
	prober := &fakeProber{
		pages: []string{""},
		raw:   []string{"  faint header  "},
	}
	c := NewClassifier(prober, 16)

	doc, err := c.Classify(context.Background(), "doc.pdf")
	require.NoError(t, err)
	assert.Equal(t, TextPage, doc.Pages[0].Kind)
	assert.Equal(t, "", doc.Pages[0].Text)
}

func TestClassifyPropagatesProberError(t *testing.T) {
	prober := &fakeProber{err: errors.New("broken xref")}
	c := NewClassifier(prober, 16)

	_, err := c.Classify(context.Background(), "doc.pdf")
	require.Error(t, err)
	assert.ErrorContains(t, err, "page count")
}

func TestClassifyNormalizesTextPages(t *testing.T) {
	prober := &fakeProber{
		pages: []string{"wrapped line one\nwrapped line two with enough ink"},
		raw:   []string{""},
	}
	c := NewClassifier(prober, 16)

	doc, err := c.Classify(context.Background(), "doc.pdf")
	require.NoError(t, err)
	assert.Equal(t, "wrapped line one wrapped line two with enough ink", doc.Pages[0].Text)
}
