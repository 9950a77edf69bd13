// Package session holds the state of a single image's trip through the
// forensics pipeline. A Session is the only writer of its State: readers take
// snapshots or subscribe to changes, and every write is a whole-field
// replacement guarded by a generation check so that responses issued before a
// reset are never applied after it.
package session

import (
	"context"
	"log/slog"
	"sync"

	"github.com/JaimeStill/lineage/internal/forensics"
	"github.com/JaimeStill/lineage/internal/verdict"
)

// Releaser frees preview handles.
type Releaser interface {
	Release(ctx context.Context, id string) error
}

// Session owns one State.
type Session struct {
	mu          sync.Mutex
	state       State
	generation  uint64
	subscribers map[uint64]chan State
	nextSub     uint64
	closed      bool
	previews    Releaser
	logger      *slog.Logger
}

// New creates an empty session. previews may be nil when no preview handles
// are attached.
func New(previews Releaser, logger *slog.Logger) *Session {
	return &Session{
		subscribers: make(map[uint64]chan State),
		previews:    previews,
		logger:      logger.With("system", "session"),
	}
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Target returns the identity responses must match to be applied.
func (s *Session) Target() Target {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.target()
}

// Begin marks stage as in flight and clears the previous error. It fails with
// ErrBusy if the stage is already running and with ErrNoImage if requireImage
// is set and nothing has been uploaded.
func (s *Session) Begin(stage Stage, requireImage bool) (Target, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	flag := s.state.Busy.flag(stage)
	if flag == nil {
		return Target{}, ErrValidation
	}
	if *flag {
		return Target{}, ErrBusy
	}
	if requireImage && s.state.ImageID == "" {
		return Target{}, ErrNoImage
	}

	*flag = true
	s.state.Error = ""
	s.notify()
	return s.target(), nil
}

// Restart resets the session and begins its upload stage in one step. It
// fails with ErrBusy while an upload or analysis is in flight.
func (s *Session) Restart(ctx context.Context) (Target, error) {
	s.mu.Lock()
	if s.state.Busy.Upload || s.state.Busy.Analyze {
		s.mu.Unlock()
		return Target{}, ErrBusy
	}

	prev := s.state.Preview
	s.state = State{Busy: Busy{Upload: true}}
	s.generation++
	t := s.target()
	s.notify()
	s.mu.Unlock()

	s.release(ctx, prev)
	return t, nil
}

// Continue begins stage for the session t was issued against. It fails with
// ErrStaleResponse if the session has been reset since, and otherwise behaves
// like Begin with an image required.
func (s *Session) Continue(t Target, stage Stage) (Target, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t.Generation != s.generation {
		return Target{}, ErrStaleResponse
	}

	flag := s.state.Busy.flag(stage)
	if flag == nil {
		return Target{}, ErrValidation
	}
	if *flag {
		return Target{}, ErrBusy
	}
	if s.state.ImageID == "" {
		return Target{}, ErrNoImage
	}

	*flag = true
	s.state.Error = ""
	s.notify()
	return s.target(), nil
}

// End clears the busy flag Begin set. It is a no-op once the session has been
// reset since Begin.
func (s *Session) End(t Target, stage Stage) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t.Generation != s.generation {
		return
	}
	if flag := s.state.Busy.flag(stage); flag != nil && *flag {
		*flag = false
		s.notify()
	}
}

// SetPreview attaches a preview handle, releasing any handle it replaces. On
// a stale target the new handle is released instead.
func (s *Session) SetPreview(ctx context.Context, t Target, id string) error {
	s.mu.Lock()
	if t.Generation != s.generation {
		s.mu.Unlock()
		s.release(ctx, id)
		return ErrStaleResponse
	}

	prev := s.state.Preview
	s.state.Preview = id
	s.notify()
	s.mu.Unlock()

	if prev != id {
		s.release(ctx, prev)
	}
	return nil
}

// SetUpload stores the upload result and makes its image current.
func (s *Session) SetUpload(t Target, u *forensics.Upload) error {
	return s.apply(t, func(st *State) {
		st.Upload = u
		st.ImageID = u.ImageID
	})
}

// SetAnalysis stores the analysis bundle and its interim verdict.
func (s *Session) SetAnalysis(t Target, a *forensics.Analysis, v verdict.Verdict) error {
	return s.apply(t, func(st *State) {
		st.Analysis = a
		st.Verdict = v
	})
}

func (s *Session) SetGraph(t Target, g *forensics.Graph) error {
	return s.apply(t, func(st *State) { st.Graph = g })
}

func (s *Session) SetSocial(t Target, sp *forensics.Spread) error {
	return s.apply(t, func(st *State) { st.Social = sp })
}

func (s *Session) SetReport(t Target, r *forensics.Report) error {
	return s.apply(t, func(st *State) { st.Report = r })
}

// SetError records the single active error message.
func (s *Session) SetError(t Target, msg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.matches(t) {
		return ErrStaleResponse
	}
	s.state.Error = msg
	s.notify()
	return nil
}

// Reset restores the initial state and releases the current preview handle.
// Responses to requests issued before the reset become stale.
func (s *Session) Reset(ctx context.Context) {
	s.mu.Lock()
	prev := s.state.Preview
	s.state = State{}
	s.generation++
	s.notify()
	s.mu.Unlock()

	s.release(ctx, prev)
}

// Close resets the session and closes every subscription.
func (s *Session) Close(ctx context.Context) {
	s.Reset(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	for id, ch := range s.subscribers {
		delete(s.subscribers, id)
		close(ch)
	}
}

// Subscribe returns a channel that receives the current state immediately and
// the latest state after every change. Slow readers only see the most recent
// state. The returned func unsubscribes and closes the channel.
func (s *Session) Subscribe() (<-chan State, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan State, 1)
	if s.closed {
		close(ch)
		return ch, func() {}
	}

	id := s.nextSub
	s.nextSub++
	s.subscribers[id] = ch
	ch <- s.state

	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if ch, ok := s.subscribers[id]; ok {
			delete(s.subscribers, id)
			close(ch)
		}
	}
}

func (s *Session) apply(t Target, fn func(*State)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.matches(t) {
		return ErrStaleResponse
	}
	fn(&s.state)
	s.state.Error = ""
	s.notify()
	return nil
}

func (s *Session) target() Target {
	return Target{Generation: s.generation, ImageID: s.state.ImageID}
}

func (s *Session) matches(t Target) bool {
	return t.Generation == s.generation && t.ImageID == s.state.ImageID
}

// notify must be called with s.mu held.
func (s *Session) notify() {
	for _, ch := range s.subscribers {
		select {
		case ch <- s.state:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- s.state
		}
	}
}

func (s *Session) release(ctx context.Context, id string) {
	if id == "" || s.previews == nil {
		return
	}
	if err := s.previews.Release(ctx, id); err != nil {
		s.logger.WarnContext(ctx, "preview release failed", "preview", id, "error", err)
	}
}
