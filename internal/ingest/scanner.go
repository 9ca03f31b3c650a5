package ingest

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/dococr/dococr/constants"
	"github.com/dococr/dococr/internal/logger"
)

// ScanConfig controls directory pruning during tree walks.
type ScanConfig struct {
	ExcludeDirs   []string // directory basenames to prune, matched case-insensitively
	FollowReparse bool     // descend into symlinked directories
}

// Scanner enumerates candidate document files under a root, pruning excluded
// and redirecting directories along the way.
type Scanner struct {
	excluded map[string]struct{}
	follow   bool
	log      zerolog.Logger
}

func NewScanner(cfg ScanConfig) *Scanner {
	excluded := make(map[string]struct{}, len(cfg.ExcludeDirs))
	for _, name := range cfg.ExcludeDirs {
		name = strings.ToLower(strings.TrimSpace(name))
		if name != "" {
			excluded[name] = struct{}{}
		}
	}
	return &Scanner{
		excluded: excluded,
		follow:   cfg.FollowReparse,
		log:      logger.WithComponent("ingest.scanner"),
	}
}

// Scan walks root and calls emit for every regular file with a supported
// extension. Traversal errors abandon only the affected subtree; the rest of
// the walk continues.
func (s *Scanner) Scan(ctx context.Context, root string, emit func(path string)) {
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return
	}

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if ctx.Err() != nil {
			return filepath.SkipAll
		}
		if err != nil {
			s.log.Warn().Err(err).Str("path", path).Msg("walk error, skipping subtree")
			return nil
		}

		if d.IsDir() {
			if path != root && s.excludedName(d.Name()) {
				s.log.Info().Str("path", path).Msg("skip directory")
				return filepath.SkipDir
			}
			return nil
		}

		// WalkDir never descends symlinks, so symlinked directories arrive
		// here as plain entries. Recurse by hand when following is on.
		if d.Type()&fs.ModeSymlink != 0 {
			target, err := os.Stat(path)
			if err != nil {
				s.log.Warn().Err(err).Str("path", path).Msg("stat failed, skipping")
				return nil
			}
			if target.IsDir() {
				if s.follow && !s.excludedName(d.Name()) {
					resolved, err := filepath.EvalSymlinks(path)
					if err != nil {
						s.log.Warn().Err(err).Str("path", path).Msg("resolve failed, skipping")
						return nil
					}
					s.Scan(ctx, resolved, emit)
				} else {
					s.log.Info().Str("path", path).Msg("skip directory")
				}
				return nil
			}
			if target.Mode().IsRegular() && constants.IsAllowedExt(filepath.Ext(path)) {
				emit(path)
			}
			return nil
		}

		if d.Type().IsRegular() && constants.IsAllowedExt(filepath.Ext(path)) {
			emit(path)
		}
		return nil
	})
	if walkErr != nil {
		s.log.Warn().Err(walkErr).Str("root", root).Msg("walk aborted")
	}
}

// excludedName reports whether a directory basename is excluded from traversal.
func (s *Scanner) excludedName(name string) bool {
	_, ok := s.excluded[strings.ToLower(name)]
	return ok
}
