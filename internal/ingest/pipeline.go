package ingest

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dococr/dococr/constants"
	"github.com/dococr/dococr/internal/async"
	"github.com/dococr/dococr/internal/logger"
)

// Pipeline accepts candidate paths and turns them into processing jobs:
// extension and file-type filtering, then readiness, then dedup, then the
// hand-off to the transport.
type Pipeline struct {
	root    string
	scanner *Scanner
	ready   *ReadyChecker
	reg     *Registry
	queue   async.Queue
	log     zerolog.Logger
}

func NewPipeline(root string, scanner *Scanner, ready *ReadyChecker, reg *Registry, queue async.Queue) *Pipeline {
	return &Pipeline{
		root:    root,
		scanner: scanner,
		ready:   ready,
		reg:     reg,
		queue:   queue,
		log:     logger.WithComponent("ingest.pipeline"),
	}
}

// InitialScan submits every qualifying file already present under the root.
// It runs to completion before the caller starts the live watcher.
func (p *Pipeline) InitialScan(ctx context.Context) {
	p.log.Info().Str("root", p.root).Msg("initial recursive scan")
	p.scanner.Scan(ctx, p.root, func(path string) {
		p.Submit(ctx, path)
	})
	p.log.Info().Str("root", p.root).Int("known", p.reg.Len()).Msg("initial scan complete")
}

// Submit runs the acceptance chain for one candidate path and reports
// whether a job was handed to the transport. Rejections are not errors:
// unsupported and duplicate paths are dropped, a file that never settles is
// left for a future event or rescan.
func (p *Pipeline) Submit(ctx context.Context, path string) bool {
	if !constants.IsAllowedExt(filepath.Ext(path)) {
		p.log.Debug().Str("path", path).Msg("skip unsupported extension")
		return false
	}
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		p.log.Debug().Str("path", path).Msg("skip non-file")
		return false
	}
	if !p.ready.Wait(ctx, path) {
		p.log.Warn().Str("path", path).Msg("file not ready, skipping")
		return false
	}
	key, err := NormalizeKey(path)
	if err != nil {
		p.log.Warn().Err(err).Str("path", path).Msg("cannot normalize path")
		return false
	}
	if !p.reg.MarkIfNew(key) {
		p.log.Debug().Str("path", path).Msg("duplicate, skipping")
		return false
	}

	job := async.Job{
		ID:          uuid.New(),
		Path:        path,
		SubmittedAt: time.Now().UTC(),
	}
	if err := p.queue.Enqueue(ctx, job); err != nil {
		p.log.Error().Err(err).Str("path", path).Msg("enqueue failed")
		return false
	}
	p.log.Info().Str("path", path).Str("job_id", job.ID.String()).
		Str("status", string(constants.JobStatusQueued)).Msg("job enqueued")
	return true
}
