package output

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/dococr/dococr/internal/logger"
)

// Store publishes output artifacts under the output root, mirroring each
// source file's directory relative to the input root. Writes are atomic:
// content lands under a temp name in the destination directory and is
// renamed into place, so readers never observe a partial artifact.
type Store struct {
	inRoot  string
	outRoot string
	log     zerolog.Logger
}

func NewStore(inRoot, outRoot string) *Store {
	return &Store{
		inRoot:  inRoot,
		outRoot: outRoot,
		log:     logger.WithComponent("output.store"),
	}
}

// PathHash returns the short stable suffix derived from the full source
// path. It keeps same-named files from different subtrees apart.
func PathHash(path string) string {
	sum := sha1.Sum([]byte(path))
	return hex.EncodeToString(sum[:])[:8]
}

// WriteText publishes the text artifact for src and returns its path.
func (s *Store) WriteText(src, text string) (string, error) {
	return s.publish(src, ".txt", func(tmp string) error {
		return os.WriteFile(tmp, []byte(text), 0o644)
	})
}

// WritePDFBytes publishes a ready-made PDF artifact for src.
func (s *Store) WritePDFBytes(src string, data []byte) (string, error) {
	return s.publish(src, ".pdf", func(tmp string) error {
		return os.WriteFile(tmp, data, 0o644)
	})
}

// WritePDF publishes a PDF artifact produced by build, which must write the
// complete document to the temp path it is given.
func (s *Store) WritePDF(src string, build func(tmpPath string) error) (string, error) {
	return s.publish(src, ".pdf", build)
}

func (s *Store) publish(src, ext string, write func(tmpPath string) error) (string, error) {
	dest := s.destBase(src) + ext
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", err
	}
	tmp := filepath.Join(filepath.Dir(dest), ".tmp-"+filepath.Base(dest))
	if err := write(tmp); err != nil {
		_ = os.Remove(tmp)
		return "", err
	}
	if err := os.Rename(tmp, dest); err != nil {
		_ = os.Remove(tmp)
		return "", err
	}
	s.log.Debug().Str("artifact", dest).Msg("artifact published")
	return dest, nil
}

// destBase returns the artifact path for src without extension: the mirrored
// subdirectory plus the source stem and path hash. Sources outside the input
// root land at the top of the output root.
func (s *Store) destBase(src string) string {
	rel, err := filepath.Rel(s.inRoot, filepath.Dir(src))
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		rel = ""
	}
	if rel == "." {
		rel = ""
	}
	stem := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
	return filepath.Join(s.outRoot, rel, fmt.Sprintf("%s_%s", stem, PathHash(src)))
}
