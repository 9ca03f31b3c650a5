package async

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newJob(path string) Job {
	return Job{ID: uuid.New(), Path: path, SubmittedAt: time.Now().UTC()}
}

func TestSpoolRoundtrip(t *testing.T) {
	s, err := NewSpool(t.TempDir())
	require.NoError(t, err)
	defer s.Close()

	job := newJob("/in/a.pdf")
	require.NoError(t, s.Enqueue(context.Background(), job))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ticket, err := s.Next(ctx)
	require.NoError(t, err)

	assert.Equal(t, job.ID, ticket.Job.ID)
	assert.Equal(t, job.Path, ticket.Job.Path)
	assert.WithinDuration(t, job.SubmittedAt, ticket.Job.SubmittedAt, time.Second)
}

func TestSpoolTicketLifecycle(t *testing.T) {
	dir := t.TempDir()
	s, err := NewSpool(dir)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Enqueue(context.Background(), newJob("/in/a.pdf")))

	pending, err := os.ReadDir(filepath.Join(dir, "pending"))
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, ".json", filepath.Ext(pending[0].Name()))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ticket, err := s.Next(ctx)
	require.NoError(t, err)

	// Claiming moves the ticket out of pending; finishing removes it.
	pending, err = os.ReadDir(filepath.Join(dir, "pending"))
	require.NoError(t, err)
	assert.Empty(t, pending)
	claimed, err := os.ReadDir(filepath.Join(dir, "claimed"))
	require.NoError(t, err)
	assert.Len(t, claimed, 1)

	s.Finish(ticket)
	claimed, err = os.ReadDir(filepath.Join(dir, "claimed"))
	require.NoError(t, err)
	assert.Empty(t, claimed)
}

func TestSpoolNextBlocksUntilEnqueue(t *testing.T) {
	s, err := NewSpool(t.TempDir())
	require.NoError(t, err)
	defer s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	got := make(chan Ticket, 1)
	go func() {
		ticket, err := s.Next(ctx)
		if err == nil {
			got <- ticket
		}
	}()

	time.Sleep(50 * time.Millisecond)
	job := newJob("/in/late.pdf")
	require.NoError(t, s.Enqueue(context.Background(), job))

	select {
	case ticket := <-got:
		assert.Equal(t, job.ID, ticket.Job.ID)
	case <-time.After(5 * time.Second):
		t.Fatal("consumer never woke")
	}
}

func TestSpoolEachTicketClaimedOnce(t *testing.T) {
	s, err := NewSpool(t.TempDir())
	require.NoError(t, err)
	defer s.Close()

	const n = 20
	want := make(map[uuid.UUID]struct{}, n)
	for i := 0; i < n; i++ {
		job := newJob("/in/doc.pdf")
		want[job.ID] = struct{}{}
		require.NoError(t, s.Enqueue(context.Background(), job))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var mu sync.Mutex
	got := make(map[uuid.UUID]int, n)
	var wg sync.WaitGroup
	for c := 0; c < 4; c++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				ticket, err := s.Next(ctx)
				if err != nil {
					return
				}
				mu.Lock()
				got[ticket.Job.ID]++
				if len(got) == n {
					cancel() // release the other consumers
				}
				mu.Unlock()
				s.Finish(ticket)
			}
		}()
	}
	wg.Wait()

	require.Len(t, got, n)
	for id, count := range got {
		assert.Equal(t, 1, count, id.String())
		_, ok := want[id]
		assert.True(t, ok)
	}
}

func TestSpoolDropsMalformedTicket(t *testing.T) {
	dir := t.TempDir()
	s, err := NewSpool(dir)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "pending", "garbage.json"), []byte("{nope"), 0o644))

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	_, err = s.Next(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// The bad ticket is gone, not stuck in either directory.
	pending, _ := os.ReadDir(filepath.Join(dir, "pending"))
	assert.Empty(t, pending)
	claimed, _ := os.ReadDir(filepath.Join(dir, "claimed"))
	assert.Empty(t, claimed)

	// A good ticket still flows afterwards.
	job := newJob("/in/good.pdf")
	require.NoError(t, s.Enqueue(context.Background(), job))
	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	ticket, err := s.Next(ctx2)
	require.NoError(t, err)
	assert.Equal(t, job.ID, ticket.Job.ID)
}

func TestSpoolNextHonorsContext(t *testing.T) {
	s, err := NewSpool(t.TempDir())
	require.NoError(t, err)
	defer s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = s.Next(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
