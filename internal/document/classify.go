package document

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/rs/zerolog"

	"github.com/dococr/dococr/internal/logger"
)

// TextProber exposes the per-page views of a PDF the classifier needs: the
// layout-preserving text layer and a raw content-stream probe.
type TextProber interface {
	PageCount(path string) (int, error)
	PageText(ctx context.Context, path string, page int) (string, error)
	PageRawText(ctx context.Context, path string, page int) (string, error)
}

// Classifier decides per page whether a usable native text layer exists.
type Classifier struct {
	prober   TextProber
	minChars int
	log      zerolog.Logger
}

// NewClassifier builds a classifier that treats a page as text when its
// layer holds at least minChars non-whitespace characters.
func NewClassifier(prober TextProber, minChars int) *Classifier {
	if minChars <= 0 {
		minChars = 16
	}
	return &Classifier{
		prober:   prober,
		minChars: minChars,
		log:      logger.WithComponent("document.classifier"),
	}
}

// Classify parses the PDF at path into a Document with per-page variants.
// A page counts as text when its extracted layer is long enough, or when
// the raw probe still finds a non-empty text run behind a sparse layout.
// Pages below both thresholds are scans and will be recognized.
func (c *Classifier) Classify(ctx context.Context, path string) (*Document, error) {
	n, err := c.prober.PageCount(path)
	if err != nil {
		return nil, fmt.Errorf("page count: %w", err)
	}

	doc := &Document{Path: path, PageCount: n, Pages: make([]Page, 0, n)}
	for i := 0; i < n; i++ {
		flat, err := c.prober.PageText(ctx, path, i+1)
		if err != nil {
			return nil, fmt.Errorf("extract page %d: %w", i, err)
		}
		hasText := countInk(flat) >= c.minChars
		if !hasText {
			raw, err := c.prober.PageRawText(ctx, path, i+1)
			if err != nil {
				return nil, fmt.Errorf("probe page %d: %w", i, err)
			}
			hasText = strings.TrimSpace(raw) != ""
		}
		if hasText {
			doc.Pages = append(doc.Pages, Page{Index: i, Kind: TextPage, Text: Normalize(flat)})
		} else {
			doc.Pages = append(doc.Pages, Page{Index: i, Kind: ScanPage})
		}
	}

	c.log.Info().Str("path", path).Int("pages", n).
		Int("scan_pages", len(doc.ScanIndices())).Msg("classified")
	return doc, nil
}

// countInk counts non-whitespace runes.
func countInk(s string) int {
	n := 0
	for _, r := range s {
		if !unicode.IsSpace(r) {
			n++
		}
	}
	return n
}
