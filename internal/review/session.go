package review

import (
	"context"
	"errors"
	"sync"
)

// Session serializes submissions from one client: starting a new
// submission cancels the one still in flight, whose caller then receives
// ErrSuperseded instead of a stale report.
type Session struct {
	engine *Engine

	mu     sync.Mutex
	seq    uint64
	cancel context.CancelCauseFunc
}

// NewSession returns a Session running submissions on e.
func NewSession(e *Engine) *Session {
	return &Session{engine: e}
}

// Submit runs source, superseding any earlier submission.
func (s *Session) Submit(ctx context.Context, source string) (*Report, error) {
	runCtx, cancel := context.WithCancelCause(ctx)

	s.mu.Lock()
	if s.cancel != nil {
		s.cancel(ErrSuperseded)
	}
	s.seq++
	mine := s.seq
	s.cancel = cancel
	s.mu.Unlock()

	report, err := s.engine.Run(runCtx, source)

	s.mu.Lock()
	latest := s.seq == mine
	if latest {
		s.cancel = nil
	}
	s.mu.Unlock()
	cancel(nil)

	if !latest || errors.Is(context.Cause(runCtx), ErrSuperseded) {
		return nil, ErrSuperseded
	}
	return report, err
}

// Cancel aborts the in-flight submission, if any.
func (s *Session) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel(ErrSuperseded)
		s.cancel = nil
	}
}
