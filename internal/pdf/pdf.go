package pdf

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/rs/zerolog"

	"github.com/dococr/dococr/internal/logger"
)

// Config points at the poppler binaries and sets the rasterization DPI.
// Zero values select the defaults.
type Config struct {
	Pdftotext string
	Pdftoppm  string
	DPI       int
}

// Toolkit bundles the structural PDF operations the pipeline needs: page
// counting, per-page text extraction, rasterization, split and merge.
type Toolkit struct {
	cfg    Config
	runner Runner
	log    zerolog.Logger
}

func NewToolkit(cfg Config) *Toolkit {
	if cfg.Pdftotext == "" {
		cfg.Pdftotext = "pdftotext"
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}
	return &Toolkit{cfg: cfg, runner: execRunner{}, log: logger.WithComponent("pdf")}
}

// PageCount reads the page count without shelling out.
func (t *Toolkit) PageCount(path string) (int, error) {
	n, err := api.PageCountFile(path)
	if err != nil {
		return 0, fmt.Errorf("page count: %w", err)
	}
	return n, nil
}

// PageText extracts the layout-preserving text of one page (1-based).
func (t *Toolkit) PageText(ctx context.Context, path string, page int) (string, error) {
	p := strconv.Itoa(page)
	out, errb, err := t.runner.Run(ctx, t.cfg.Pdftotext,
		"-f", p, "-l", p, "-layout", "-enc", "UTF-8", "-eol", "unix", path, "-")
	if err != nil {
		return "", fmt.Errorf("pdftotext: %w: %s", err, truncate(string(errb), 512))
	}
	return strings.TrimSuffix(string(out), "\f"), nil
}

// PageRawText extracts one page in content-stream order, without layout
// reconstruction. Used as the structural probe for sparse text runs the
// layout pass flattens away.
func (t *Toolkit) PageRawText(ctx context.Context, path string, page int) (string, error) {
	p := strconv.Itoa(page)
	out, errb, err := t.runner.Run(ctx, t.cfg.Pdftotext,
		"-f", p, "-l", p, "-raw", "-enc", "UTF-8", "-eol", "unix", path, "-")
	if err != nil {
		return "", fmt.Errorf("pdftotext -raw: %w: %s", err, truncate(string(errb), 512))
	}
	return strings.TrimSuffix(string(out), "\f"), nil
}

// RenderPage rasterizes one page (1-based) to a PNG under dir and returns
// the image path.
func (t *Toolkit) RenderPage(ctx context.Context, path string, page int, dir string) (string, error) {
	p := strconv.Itoa(page)
	prefix := filepath.Join(dir, fmt.Sprintf("page-%06d", page))
	_, errb, err := t.runner.Run(ctx, t.cfg.Pdftoppm,
		"-f", p, "-l", p, "-r", strconv.Itoa(t.cfg.DPI), "-png", path, prefix)
	if err != nil {
		return "", fmt.Errorf("pdftoppm: %w: %s", err, truncate(string(errb), 512))
	}
	// pdftoppm appends its own page suffix; glob it back.
	matches, _ := filepath.Glob(prefix + "-*.png")
	if len(matches) == 0 {
		return "", fmt.Errorf("pdftoppm produced no image for page %d", page)
	}
	sort.Strings(matches)
	return matches[0], nil
}

// SplitPages splits path into single-page PDFs under dir and returns their
// paths in page order.
func (t *Toolkit) SplitPages(path, dir string) ([]string, error) {
	n, err := t.PageCount(path)
	if err != nil {
		return nil, err
	}
	if err := api.SplitFile(path, dir, 1, relaxedConf()); err != nil {
		return nil, fmt.Errorf("split: %w", err)
	}

	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	pages := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		p := filepath.Join(dir, fmt.Sprintf("%s_%d.pdf", stem, i))
		if _, err := os.Stat(p); err != nil {
			return nil, fmt.Errorf("split page %d missing: %w", i, err)
		}
		pages = append(pages, p)
	}
	t.log.Debug().Str("path", path).Int("pages", n).Msg("split into pages")
	return pages, nil
}

// Merge assembles ordered single-page PDFs into one document at outFile.
func (t *Toolkit) Merge(inFiles []string, outFile string) error {
	if err := api.MergeCreateFile(inFiles, outFile, false, relaxedConf()); err != nil {
		return fmt.Errorf("merge: %w", err)
	}
	return nil
}

// Optimize rewrites a PDF through relaxed validation. The pipeline uses it
// to pass an all-text document through to its output location.
func (t *Toolkit) Optimize(in, out string) error {
	if err := api.OptimizeFile(in, out, relaxedConf()); err != nil {
		return fmt.Errorf("optimize: %w", err)
	}
	return nil
}

func relaxedConf() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}
