package pipeline

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"

	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"

	"github.com/rs/zerolog"

	"github.com/dococr/dococr/constants"
	"github.com/dococr/dococr/internal/async"
	"github.com/dococr/dococr/internal/common"
	"github.com/dococr/dococr/internal/document"
	"github.com/dococr/dococr/internal/logger"
	"github.com/dococr/dococr/internal/ocr"
	"github.com/dococr/dococr/internal/output"
	"github.com/dococr/dococr/internal/pdf"
)

// classifier splits a PDF into text and scan pages.
type classifier interface {
	Classify(ctx context.Context, path string) (*document.Document, error)
}

// dispatcher recognizes a set of pages and returns results keyed by index.
type dispatcher interface {
	Run(ctx context.Context, path string, pages []int, workDir string) (map[int]ocr.Result, error)
}

// Options selects which artifacts a job emits.
type Options struct {
	EmitText bool
	EmitPDF  bool
}

// Processor coordinates the document pipeline for one job: classify the
// pages, recognize the scans, assemble, publish. Any failure is terminal:
// the source file moves to the error sink and no partial artifact remains.
type Processor struct {
	classify classifier
	dispatch dispatcher
	assemble *Assembler
	engine   ocr.Engine
	toolkit  *pdf.Toolkit
	store    *output.Store
	sink     *output.Sink
	opts     Options
	log      zerolog.Logger
}

func NewProcessor(cls classifier, disp dispatcher, asm *Assembler, engine ocr.Engine,
	toolkit *pdf.Toolkit, store *output.Store, sink *output.Sink, opts Options) *Processor {
	return &Processor{
		classify: cls,
		dispatch: disp,
		assemble: asm,
		engine:   engine,
		toolkit:  toolkit,
		store:    store,
		sink:     sink,
		opts:     opts,
		log:      logger.WithComponent("pipeline.processor"),
	}
}

// ProcessJob executes one claimed job to its terminal state. On failure the
// source file has already been routed to the error sink when this returns.
func (p *Processor) ProcessJob(ctx context.Context, job async.Job) error {
	log := p.log.With().Str("job_id", job.ID.String()).Str("path", job.Path).Logger()

	var err error
	switch constants.MapExtToFormat(filepath.Ext(job.Path)) {
	case constants.PDF:
		err = p.processPDF(ctx, log, job.Path)
	case constants.IMAGE:
		err = p.processImage(ctx, log, job.Path)
	default:
		err = fmt.Errorf("%w: %s", common.ErrUnsupportedInput, filepath.Ext(job.Path))
	}

	if err != nil {
		log.Error().Err(err).Msg("processing failed")
		p.sink.Move(job.Path, err.Error())
		return err
	}
	return nil
}

func (p *Processor) processPDF(ctx context.Context, log zerolog.Logger, path string) error {
	workDir, err := os.MkdirTemp("", "dococr-*")
	if err != nil {
		return fmt.Errorf("workdir: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(workDir); err != nil {
			log.Warn().Err(err).Str("dir", workDir).Msg("failed to remove workdir")
		}
	}()

	doc, err := p.classify.Classify(ctx, path)
	if err != nil {
		return fmt.Errorf("classify: %w", err)
	}

	scans := doc.ScanIndices()
	var results map[int]ocr.Result
	if len(scans) > 0 {
		results, err = p.dispatch.Run(ctx, path, scans, workDir)
		if err != nil {
			return err
		}
	}

	if p.opts.EmitText {
		dest, err := p.store.WriteText(path, p.assemble.Text(doc, results))
		if err != nil {
			return fmt.Errorf("write text: %w", err)
		}
		log.Info().Str("artifact", dest).Msg("text artifact written")
	}
	if p.opts.EmitPDF {
		dest, err := p.store.WritePDF(path, func(tmp string) error {
			if len(scans) == 0 {
				// Every page already carries text; pass the source through.
				return p.toolkit.Optimize(path, tmp)
			}
			return p.assemble.PDF(doc, results, workDir, tmp)
		})
		if err != nil {
			return fmt.Errorf("write pdf: %w", err)
		}
		log.Info().Str("artifact", dest).Msg("pdf artifact written")
	}

	log.Info().Int("pages", doc.PageCount).Int("ocr_pages", len(scans)).Msg("pdf processed")
	return nil
}

func (p *Processor) processImage(ctx context.Context, log zerolog.Logger, path string) error {
	if err := preflightImage(path); err != nil {
		return fmt.Errorf("unreadable image: %w", err)
	}

	workDir, err := os.MkdirTemp("", "dococr-*")
	if err != nil {
		return fmt.Errorf("workdir: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(workDir); err != nil {
			log.Warn().Err(err).Str("dir", workDir).Msg("failed to remove workdir")
		}
	}()

	res, err := p.engine.Recognize(ctx, ocr.Input{ImagePath: path, PageIndex: 0, WorkDir: workDir})
	if err != nil {
		return fmt.Errorf("recognize: %w", err)
	}

	if p.opts.EmitText {
		dest, err := p.store.WriteText(path, document.Normalize(res.Text))
		if err != nil {
			return fmt.Errorf("write text: %w", err)
		}
		log.Info().Str("artifact", dest).Msg("text artifact written")
	}
	if p.opts.EmitPDF {
		dest, err := p.store.WritePDFBytes(path, res.PDF)
		if err != nil {
			return fmt.Errorf("write pdf: %w", err)
		}
		log.Info().Str("artifact", dest).Msg("pdf artifact written")
	}

	log.Info().Msg("image processed")
	return nil
}

// preflightImage confirms the file decodes as one of the supported raster
// formats before any recognition time is spent on it.
func preflightImage(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, _, err = image.DecodeConfig(f)
	return err
}
