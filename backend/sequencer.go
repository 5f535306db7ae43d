package backend

import (
	"context"
	"sync"

	"github.com/etnz/fundtrade"
)

// Sequencer orders concurrent quote requests so that only the latest one
// may commit its result. Starting a request cancels the previous one.
type Sequencer struct {
	mu     sync.Mutex
	latest uint64
	cancel context.CancelFunc
}

// Ticket identifies one request of a Sequencer.
type Ticket struct {
	seq *Sequencer
	id  uint64
}

// Start begins a new request. The returned context is cancelled when a newer
// request starts or when done is called.
func (s *Sequencer) Start(ctx context.Context) (context.Context, Ticket, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
	s.latest++
	s.cancel = cancel
	return ctx, Ticket{seq: s, id: s.latest}, cancel
}

// ID returns the ticket's position in the sequence, starting at 1.
func (t Ticket) ID() uint64 { return t.id }

// Commit runs apply only if t is still the latest ticket, holding the
// sequencer lock so no newer request can start meanwhile. It returns
// fundtrade.ErrSuperseded otherwise.
func (t Ticket) Commit(apply func()) error {
	t.seq.mu.Lock()
	defer t.seq.mu.Unlock()
	if t.id != t.seq.latest {
		return fundtrade.ErrSuperseded
	}
	if apply != nil {
		apply()
	}
	return nil
}
