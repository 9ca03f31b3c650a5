package async

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/dococr/dococr/internal/logger"
)

const (
	spoolPending = "pending"
	spoolClaimed = "claimed"
)

// Spool is a directory-backed job transport between the watcher and worker
// processes. Producers publish JSON tickets into pending/; a consumer claims
// a ticket by renaming it into claimed/, so every ticket has at most one
// winner. There is no retry path: a claimed ticket is removed once its job
// finishes, however it finishes.
type Spool struct {
	dir string
	log zerolog.Logger

	watchOnce sync.Once
	w         *fsnotify.Watcher
	watchErr  error
}

// Ticket is one claimed job plus the spool file tracking it.
type Ticket struct {
	Job  Job
	path string
}

func NewSpool(dir string) (*Spool, error) {
	for _, sub := range []string{spoolPending, spoolClaimed} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return nil, fmt.Errorf("create spool directory: %w", err)
		}
	}
	return &Spool{dir: dir, log: logger.WithComponent("async.spool")}, nil
}

// Enqueue publishes one ticket into pending/. The write lands under a temp
// name and is renamed into place, so consumers never see a partial ticket.
func (s *Spool) Enqueue(_ context.Context, job Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}
	name := job.ID.String() + ".json"
	tmp := filepath.Join(s.dir, spoolPending, "."+name+".tmp")
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, filepath.Join(s.dir, spoolPending, name)); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	s.log.Debug().Str("job_id", job.ID.String()).Str("path", job.Path).Msg("ticket spooled")
	return nil
}

// Shutdown satisfies Queue. Tickets already spooled stay durable on disk.
func (s *Spool) Shutdown(context.Context) {}

// Close releases the consumer-side watch, if one was opened.
func (s *Spool) Close() error {
	if s.w != nil {
		return s.w.Close()
	}
	return nil
}

// Next blocks until a ticket is claimed or ctx ends. It wakes on filesystem
// events and on a coarse tick, so tickets published while the consumer was
// down are still picked up.
func (s *Spool) Next(ctx context.Context) (Ticket, error) {
	w, err := s.pendingWatcher()
	if err != nil {
		return Ticket{}, err
	}

	tick := time.NewTicker(time.Second)
	defer tick.Stop()

	for {
		if t, ok := s.claimOne(); ok {
			return t, nil
		}
		select {
		case <-ctx.Done():
			return Ticket{}, ctx.Err()
		case <-w.Events:
		case err := <-w.Errors:
			s.log.Warn().Err(err).Msg("spool watch error")
		case <-tick.C:
		}
	}
}

// Finish removes a claimed ticket. Jobs are terminal on first execution, so
// this runs on success and failure alike.
func (s *Spool) Finish(t Ticket) {
	if t.path == "" {
		return
	}
	if err := os.Remove(t.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		s.log.Warn().Err(err).Str("ticket", t.path).Msg("remove ticket failed")
	}
}

// claimOne scans pending/ and tries to claim the first ticket it can. The
// rename into claimed/ is the claim; losing the race just moves on.
func (s *Spool) claimOne() (Ticket, bool) {
	pending := filepath.Join(s.dir, spoolPending)
	entries, err := os.ReadDir(pending)
	if err != nil {
		s.log.Warn().Err(err).Msg("read spool failed")
		return Ticket{}, false
	}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || filepath.Ext(name) != ".json" {
			continue
		}
		claimed := filepath.Join(s.dir, spoolClaimed, name)
		if err := os.Rename(filepath.Join(pending, name), claimed); err != nil {
			continue
		}
		data, err := os.ReadFile(claimed)
		if err != nil {
			s.log.Error().Err(err).Str("ticket", name).Msg("read claimed ticket failed")
			_ = os.Remove(claimed)
			continue
		}
		var job Job
		if err := json.Unmarshal(data, &job); err != nil {
			s.log.Error().Err(err).Str("ticket", name).Msg("malformed ticket dropped")
			_ = os.Remove(claimed)
			continue
		}
		return Ticket{Job: job, path: claimed}, true
	}
	return Ticket{}, false
}

func (s *Spool) pendingWatcher() (*fsnotify.Watcher, error) {
	s.watchOnce.Do(func() {
		w, err := fsnotify.NewWatcher()
		if err != nil {
			s.watchErr = err
			return
		}
		if err := w.Add(filepath.Join(s.dir, spoolPending)); err != nil {
			_ = w.Close()
			s.watchErr = err
			return
		}
		s.w = w
	})
	return s.w, s.watchErr
}
