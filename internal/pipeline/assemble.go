package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dococr/dococr/internal/document"
	"github.com/dococr/dococr/internal/ocr"
	"github.com/dococr/dococr/internal/pdf"
)

// Assembler merges native pages and recognized fragments back into one text
// stream and one PDF, in original page order.
type Assembler struct {
	pdf *pdf.Toolkit
}

func NewAssembler(toolkit *pdf.Toolkit) *Assembler {
	return &Assembler{pdf: toolkit}
}

// Text concatenates page text in index order, one blank line between pages.
func (a *Assembler) Text(doc *document.Document, results map[int]ocr.Result) string {
	parts := make([]string, len(doc.Pages))
	for i, pg := range doc.Pages {
		if pg.Kind == document.TextPage {
			parts[i] = pg.Text
		} else {
			parts[i] = results[pg.Index].Text
		}
	}
	return strings.Join(parts, "\n\n")
}

// PDF writes the assembled document to outPath: native pages are carried
// over from the source, scan pages are replaced by their searchable
// fragments. Page order in the output equals page order in the source.
func (a *Assembler) PDF(doc *document.Document, results map[int]ocr.Result, workDir, outPath string) error {
	splitDir := filepath.Join(workDir, "pages")
	if err := os.MkdirAll(splitDir, 0o755); err != nil {
		return err
	}
	pageFiles, err := a.pdf.SplitPages(doc.Path, splitDir)
	if err != nil {
		return err
	}

	fragments := make(map[int]string, len(results))
	for idx, res := range results {
		frag := filepath.Join(workDir, fmt.Sprintf("ocr-%06d.pdf", idx))
		if err := os.WriteFile(frag, res.PDF, 0o644); err != nil {
			return fmt.Errorf("write fragment %d: %w", idx, err)
		}
		fragments[idx] = frag
	}

	ordered, err := planMerge(doc, pageFiles, fragments)
	if err != nil {
		return err
	}
	return a.pdf.Merge(ordered, outPath)
}

// planMerge picks, for each page index in order, either the page split from
// the source or the recognized fragment.
func planMerge(doc *document.Document, pageFiles []string, fragments map[int]string) ([]string, error) {
	if len(pageFiles) != len(doc.Pages) {
		return nil, fmt.Errorf("split produced %d pages, document has %d", len(pageFiles), len(doc.Pages))
	}
	ordered := make([]string, 0, len(doc.Pages))
	for _, pg := range doc.Pages {
		if pg.Kind == document.TextPage {
			ordered = append(ordered, pageFiles[pg.Index])
			continue
		}
		frag, ok := fragments[pg.Index]
		if !ok {
			return nil, fmt.Errorf("missing recognition result for page %d", pg.Index)
		}
		ordered = append(ordered, frag)
	}
	return ordered, nil
}
