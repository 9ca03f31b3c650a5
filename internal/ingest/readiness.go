package ingest

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/dococr/dococr/internal/logger"
)

// ReadyChecker decides whether a file has finished being written by watching
// its size settle across consecutive samples.
type ReadyChecker struct {
	retries  int
	step     time.Duration
	statSize func(string) (int64, error)
	log      zerolog.Logger
}

// NewReadyChecker samples a file up to retries times, step apart. A file is
// ready once two consecutive samples report the same size.
func NewReadyChecker(retries int, step time.Duration) *ReadyChecker {
	if retries <= 0 {
		retries = 40
	}
	if step <= 0 {
		step = 500 * time.Millisecond
	}
	return &ReadyChecker{
		retries:  retries,
		step:     step,
		statSize: fileSize,
		log:      logger.WithComponent("ingest.readiness"),
	}
}

// Wait blocks until path is ready, the retry budget runs out, or ctx ends.
// A file that disappears mid-check is not ready.
func (c *ReadyChecker) Wait(ctx context.Context, path string) bool {
	last := int64(-1)
	for i := 0; i < c.retries; i++ {
		size, err := c.statSize(path)
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				c.log.Warn().Err(err).Str("path", path).Msg("size sample failed")
			}
			return false
		}
		if size == last {
			return true
		}
		last = size

		select {
		case <-ctx.Done():
			return false
		case <-time.After(c.step):
		}
	}
	return false
}

func fileSize(path string) (int64, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return fi.Size(), nil
}
