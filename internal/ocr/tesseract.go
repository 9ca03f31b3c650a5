package ocr

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/dococr/dococr/internal/logger"
)

// Config holds the tesseract invocation parameters. Zero values select the
// defaults.
type Config struct {
	Tesseract   string   // binary name or absolute path
	Lang        string   // recognition language, e.g. "eng" or "eng+deu"
	ExtraArgs   []string // extra CLI arguments, e.g. ["--psm", "6"]
	TessdataDir string   // optional explicit tessdata directory
}

// Tesseract shells out to the tesseract CLI, producing the text and the
// searchable PDF in a single pass.
type Tesseract struct {
	cfg    Config
	runner Runner
	log    zerolog.Logger
}

func NewTesseract(cfg Config) *Tesseract {
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.Lang == "" {
		cfg.Lang = "eng"
	}
	return &Tesseract{
		cfg:    cfg,
		runner: execRunner{},
		log:    logger.WithComponent("ocr.tesseract"),
	}
}

// Recognize runs OCR on one page image. Tesseract writes <base>.txt and
// <base>.pdf for the given output base; both are read back and returned.
func (t *Tesseract) Recognize(ctx context.Context, in Input) (Result, error) {
	base := strings.TrimSuffix(filepath.Base(in.ImagePath), filepath.Ext(in.ImagePath))
	dir := in.WorkDir
	if dir == "" {
		dir = filepath.Dir(in.ImagePath)
	}
	outBase := filepath.Join(dir, base)

	args := []string{in.ImagePath, outBase, "-l", t.cfg.Lang}
	args = append(args, t.cfg.ExtraArgs...)
	if t.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", t.cfg.TessdataDir)
	}
	args = append(args, "txt", "pdf")

	_, errb, err := t.runner.Run(ctx, t.cfg.Tesseract, args...)
	if err != nil {
		return Result{}, fmt.Errorf("tesseract: %w: %s", err, truncate(string(errb), 512))
	}

	txt, err := os.ReadFile(outBase + ".txt")
	if err != nil {
		return Result{}, fmt.Errorf("read recognized text: %w", err)
	}
	pdf, err := os.ReadFile(outBase + ".pdf")
	if err != nil {
		return Result{}, fmt.Errorf("read searchable pdf: %w", err)
	}

	t.log.Debug().Str("image", in.ImagePath).Int("page", in.PageIndex).
		Int("text_bytes", len(txt)).Int("pdf_bytes", len(pdf)).Msg("page recognized")
	return Result{Text: string(txt), PDF: pdf}, nil
}
