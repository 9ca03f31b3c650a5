package output

import (
	"io"
	"os"
	"path/filepath"
	"regexp"

	"github.com/rs/zerolog"

	"github.com/dococr/dococr/internal/logger"
)

var reUnsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// SafeBaseName replaces every run of unsafe characters in a file's base name
// with a single underscore.
func SafeBaseName(path string) string {
	return reUnsafeName.ReplaceAllString(filepath.Base(path), "_")
}

// Sink collects failed source files in the error root so they are out of the
// watched tree but never silently lost.
type Sink struct {
	dir string
	log zerolog.Logger
}

func NewSink(dir string) *Sink {
	return &Sink{dir: dir, log: logger.WithComponent("output.errsink")}
}

// Move relocates src into the sink under a sanitized name and logs the
// failure reason. When the move itself fails the file stays where it is and
// the failure is logged distinctly.
func (s *Sink) Move(src, reason string) {
	dst := filepath.Join(s.dir, SafeBaseName(src))
	if err := moveFile(src, dst); err != nil {
		s.log.Error().Err(err).Str("path", src).Str("reason", reason).
			Msg("failed to move file into error sink")
		return
	}
	s.log.Error().Str("path", src).Str("dest", dst).Str("reason", reason).
		Msg("file moved to error sink")
}

// moveFile renames src to dst, falling back to copy+remove when the rename
// fails, e.g. across filesystems.
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Remove(src)
}
