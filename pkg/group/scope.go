package group

import (
	"context"
	"errors"

	"github.com/marmos91/dittoiod/internal/logger"
	"github.com/marmos91/dittoiod/pkg/store/object"
)

// handleScope owns the handles a request opens and closes whatever is still
// owned when the request returns, on success and error paths alike.
//
// Handles handed back to the caller are removed with keep; handles whose
// release is a protocol step are closed with release so their errors are
// surfaced instead of logged.
type handleScope struct {
	ctx     context.Context
	c       object.Container
	handles []object.Handle
}

func newHandleScope(ctx context.Context, c object.Container) *handleScope {
	// Cleanup must run even if the request context was cancelled.
	return &handleScope{ctx: context.WithoutCancel(ctx), c: c}
}

func (s *handleScope) track(h object.Handle) {
	if h.IsDefined() {
		s.handles = append(s.handles, h)
	}
}

func (s *handleScope) trackPair(p object.HandlePair) {
	s.track(p.Read)
	s.track(p.Write)
}

// openPair opens id for read and write and tracks both handles.
func (s *handleScope) openPair(id object.ObjectID) (object.HandlePair, error) {
	rd, err := s.c.OpenRead(s.ctx, id)
	if err != nil {
		return object.UndefinedPair(), err
	}
	s.track(rd)
	wr, err := s.c.OpenWrite(s.ctx, id)
	if err != nil {
		return object.UndefinedPair(), err
	}
	s.track(wr)
	return object.HandlePair{Read: rd, Write: wr}, nil
}

// forget stops tracking h and reports whether it was tracked.
func (s *handleScope) forget(h object.Handle) bool {
	for i, owned := range s.handles {
		if owned == h {
			s.handles = append(s.handles[:i], s.handles[i+1:]...)
			return true
		}
	}
	return false
}

// keep transfers ownership of hs out of the scope.
func (s *handleScope) keep(hs ...object.Handle) {
	for _, h := range hs {
		s.forget(h)
	}
}

// release closes owned handles now and returns the first close error.
// Handles the scope does not own are left alone.
func (s *handleScope) release(hs ...object.Handle) error {
	var first error
	for _, h := range hs {
		if !s.forget(h) {
			continue
		}
		if err := s.c.CloseObject(s.ctx, h); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Close closes every handle still owned, newest first.
func (s *handleScope) Close() error {
	var errs []error
	for i := len(s.handles) - 1; i >= 0; i-- {
		if err := s.c.CloseObject(s.ctx, s.handles[i]); err != nil {
			logger.Warn("group: failed to release handle %s: %v", s.handles[i], err)
			errs = append(errs, err)
		}
	}
	s.handles = nil
	return errors.Join(errs...)
}
