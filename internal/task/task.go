// Package task tracks the single in-flight asynchronous operation of an
// owner (a wizard session, a studio) and tells the owner whether a result
// is still wanted when it arrives.
//
// Lock order: an owner may call Slot and Ticket methods while holding its
// own mutex; Slot never calls back into the owner.
package task

import (
	"context"
	"errors"
	"sync"
)

// ErrBusy is returned by Begin while another operation holds the slot.
var ErrBusy = errors.New("operation already in progress")

// Slot admits at most one operation at a time.
type Slot struct {
	mu     sync.Mutex
	epoch  uint64
	busy   bool
	cancel context.CancelFunc
}

// Ticket identifies one admitted operation.
type Ticket struct {
	slot   *Slot
	epoch  uint64
	ctx    context.Context
	cancel context.CancelFunc
}

// Begin reserves the slot. The ticket's context is derived from parent and
// is cancelled by Cancel or Finish.
func (s *Slot) Begin(parent context.Context) (*Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy {
		return nil, ErrBusy
	}
	ctx, cancel := context.WithCancel(parent)
	s.epoch++
	s.busy = true
	s.cancel = cancel
	return &Ticket{slot: s, epoch: s.epoch, ctx: ctx, cancel: cancel}, nil
}

// Busy reports whether an operation holds the slot.
func (s *Slot) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}

// Cancel invalidates the current operation, if any, and frees the slot.
// A cancelled ticket's Finish reports false.
func (s *Slot) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.epoch++
	s.busy = false
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

// Context returns the operation context.
func (t *Ticket) Context() context.Context {
	return t.ctx
}

// Current reports whether the ticket has not been superseded or cancelled.
func (t *Ticket) Current() bool {
	t.slot.mu.Lock()
	defer t.slot.mu.Unlock()
	return t.epoch == t.slot.epoch
}

// Finish releases the slot and reports whether the ticket was still
// current. A false result means the owner moved on and the result must be
// discarded. Finish is idempotent.
func (t *Ticket) Finish() bool {
	t.slot.mu.Lock()
	defer t.slot.mu.Unlock()
	t.cancel()
	if t.epoch != t.slot.epoch {
		return false
	}
	t.slot.epoch++
	t.slot.busy = false
	t.slot.cancel = nil
	return true
}

// Go begins an operation and runs fn on a new goroutine. done receives
// the ticket with fn's result and decides, via Finish, whether to apply it.
func Go[T any](s *Slot, parent context.Context, fn func(context.Context) (T, error), done func(t *Ticket, v T, err error)) (*Ticket, error) {
	t, err := s.Begin(parent)
	if err != nil {
		return nil, err
	}
	go func() {
		v, err := fn(t.ctx)
		done(t, v, err)
	}()
	return t, nil
}
