package pipeline

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/dococr/dococr/internal/document"
	"github.com/dococr/dococr/internal/logger"
	"github.com/dococr/dococr/internal/ocr"
)

// pageRenderer rasterizes one page (1-based) of a PDF to an image file.
type pageRenderer interface {
	RenderPage(ctx context.Context, path string, page int, dir string) (string, error)
}

// Dispatcher recognizes the scan pages of one document across a bounded
// worker group. Results are keyed by page index, so completion order never
// affects the assembled document.
type Dispatcher struct {
	renderer pageRenderer
	engine   ocr.Engine
	threads  int
	log      zerolog.Logger
}

func NewDispatcher(renderer pageRenderer, engine ocr.Engine, threads int) *Dispatcher {
	if threads <= 0 {
		threads = 2
	}
	return &Dispatcher{
		renderer: renderer,
		engine:   engine,
		threads:  threads,
		log:      logger.WithComponent("pipeline.dispatch"),
	}
}

// Run renders and recognizes the given pages (0-based indices) of the PDF at
// path, writing scratch files under workDir. A failure on any page fails the
// whole batch.
func (d *Dispatcher) Run(ctx context.Context, path string, pages []int, workDir string) (map[int]ocr.Result, error) {
	if len(pages) == 0 {
		return map[int]ocr.Result{}, nil
	}
	d.log.Info().Str("path", path).Int("scan_pages", len(pages)).
		Int("threads", d.threads).Msg("dispatching pages for recognition")

	results := make(map[int]ocr.Result, len(pages))
	var mu sync.Mutex

	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(d.threads)

	for _, idx := range pages {
		pageIndex := idx
		eg.Go(func() error {
			img, err := d.renderer.RenderPage(gctx, path, pageIndex+1, workDir)
			if err != nil {
				return fmt.Errorf("render page %d: %w", pageIndex, err)
			}
			res, err := d.engine.Recognize(gctx, ocr.Input{ImagePath: img, PageIndex: pageIndex, WorkDir: workDir})
			if err != nil {
				return fmt.Errorf("recognize page %d: %w", pageIndex, err)
			}
			res.Text = document.Normalize(res.Text)

			mu.Lock()
			results[pageIndex] = res
			mu.Unlock()
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
