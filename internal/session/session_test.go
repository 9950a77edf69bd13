package session_test

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"

	"github.com/JaimeStill/lineage/internal/forensics"
	"github.com/JaimeStill/lineage/internal/session"
	"github.com/JaimeStill/lineage/internal/verdict"
)

type releaser struct {
	mu       sync.Mutex
	released map[string]int
}

func newReleaser() *releaser {
	return &releaser{released: make(map[string]int)}
}

func (r *releaser) Release(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.released[id]++
	return nil
}

func (r *releaser) count(id string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.released[id]
}

func newSession(r session.Releaser) *session.Session {
	return session.New(r, slog.New(slog.DiscardHandler))
}

// populate drives s through every stage for image "img-1".
func populate(t *testing.T, s *session.Session) {
	t.Helper()
	ctx := context.Background()

	tgt, err := s.Begin(session.StageUpload, false)
	if err != nil {
		t.Fatalf("begin upload: %v", err)
	}
	if err := s.SetPreview(ctx, tgt, "preview-1"); err != nil {
		t.Fatalf("set preview: %v", err)
	}
	if err := s.SetUpload(tgt, &forensics.Upload{ImageID: "img-1", Width: 640, Height: 480}); err != nil {
		t.Fatalf("set upload: %v", err)
	}

	tgt = s.Target()
	steps := []error{
		s.SetAnalysis(tgt, &forensics.Analysis{ImageID: "img-1"}, verdict.Suspicious),
		s.SetGraph(tgt, &forensics.Graph{ImageID: "img-1", RootNodeID: "n0"}),
		s.SetSocial(tgt, &forensics.Spread{ImageID: "img-1"}),
		s.SetReport(tgt, &forensics.Report{ImageID: "img-1", Verdict: "SUSPICIOUS"}),
		s.SetError(tgt, "Report failed"),
	}
	for i, err := range steps {
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}

	if _, err := s.Begin(session.StageGraph, true); err != nil {
		t.Fatalf("begin graph: %v", err)
	}
}

func TestResetRestoresInitialState(t *testing.T) {
	rel := newReleaser()
	s := newSession(rel)
	populate(t, s)

	if s.Snapshot().ImageID == "" {
		t.Fatal("populate left session empty")
	}

	s.Reset(context.Background())

	want := newSession(nil).Snapshot()
	if diff := cmp.Diff(want, s.Snapshot()); diff != "" {
		t.Errorf("state after reset differs from new session (-want +got):\n%s", diff)
	}
}

func TestResetReleasesPreviewOnce(t *testing.T) {
	rel := newReleaser()
	s := newSession(rel)
	populate(t, s)

	s.Reset(context.Background())
	s.Reset(context.Background())

	if n := rel.count("preview-1"); n != 1 {
		t.Errorf("preview released %d times, want 1", n)
	}
}

func TestSetPreviewReleasesReplaced(t *testing.T) {
	rel := newReleaser()
	s := newSession(rel)
	ctx := context.Background()
	tgt := s.Target()

	if err := s.SetPreview(ctx, tgt, "a"); err != nil {
		t.Fatal(err)
	}
	if err := s.SetPreview(ctx, tgt, "b"); err != nil {
		t.Fatal(err)
	}

	if rel.count("a") != 1 || rel.count("b") != 0 {
		t.Errorf("released = %v, want only a", rel.released)
	}
}

func TestStaleResponsesAreDiscarded(t *testing.T) {
	rel := newReleaser()
	s := newSession(rel)
	populate(t, s)
	ctx := context.Background()

	stale := s.Target()
	s.Reset(ctx)

	tests := []struct {
		name  string
		apply func() error
	}{
		{"analysis", func() error { return s.SetAnalysis(stale, &forensics.Analysis{}, verdict.Deepfake) }},
		{"graph", func() error { return s.SetGraph(stale, &forensics.Graph{}) }},
		{"social", func() error { return s.SetSocial(stale, &forensics.Spread{}) }},
		{"report", func() error { return s.SetReport(stale, &forensics.Report{}) }},
		{"error", func() error { return s.SetError(stale, "late failure") }},
		{"preview", func() error { return s.SetPreview(ctx, stale, "late-preview") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.apply(); !errors.Is(err, session.ErrStaleResponse) {
				t.Errorf("err = %v, want ErrStaleResponse", err)
			}
		})
	}

	if diff := cmp.Diff(session.State{}, s.Snapshot()); diff != "" {
		t.Errorf("stale responses changed state (-want +got):\n%s", diff)
	}
	if rel.count("late-preview") != 1 {
		t.Error("stale preview handle was not released")
	}
}

func TestResponseForReplacedImageIsStale(t *testing.T) {
	s := newSession(nil)
	tgt := s.Target()
	if err := s.SetUpload(tgt, &forensics.Upload{ImageID: "img-1"}); err != nil {
		t.Fatal(err)
	}

	old := s.Target()
	if err := s.SetUpload(old, &forensics.Upload{ImageID: "img-2"}); err != nil {
		t.Fatal(err)
	}

	if err := s.SetGraph(old, &forensics.Graph{ImageID: "img-1"}); !errors.Is(err, session.ErrStaleResponse) {
		t.Errorf("err = %v, want ErrStaleResponse", err)
	}
}

func TestBegin(t *testing.T) {
	s := newSession(nil)

	if _, err := s.Begin(session.StageAnalyze, true); !errors.Is(err, session.ErrNoImage) {
		t.Errorf("analyze without image: err = %v, want ErrNoImage", err)
	}

	tgt, err := s.Begin(session.StageUpload, false)
	if err != nil {
		t.Fatal(err)
	}
	if !s.Snapshot().Busy.Upload {
		t.Error("upload busy flag not set")
	}

	_, err = s.Begin(session.StageUpload, false)
	if !errors.Is(err, session.ErrBusy) {
		t.Errorf("second begin: err = %v, want ErrBusy", err)
	}
	if !errors.Is(err, session.ErrValidation) {
		t.Error("ErrBusy should be a validation error")
	}

	s.End(tgt, session.StageUpload)
	if s.Snapshot().Busy.Any() {
		t.Error("busy flag not released")
	}
}

func TestBeginClearsError(t *testing.T) {
	s := newSession(nil)
	if err := s.SetError(s.Target(), "Upload failed"); err != nil {
		t.Fatal(err)
	}

	if _, err := s.Begin(session.StageUpload, false); err != nil {
		t.Fatal(err)
	}
	if got := s.Snapshot().Error; got != "" {
		t.Errorf("error = %q, want cleared", got)
	}
}

func TestSuccessfulSetterClearsError(t *testing.T) {
	s := newSession(nil)
	tgt := s.Target()
	if err := s.SetError(tgt, "Upload failed"); err != nil {
		t.Fatal(err)
	}
	if err := s.SetUpload(tgt, &forensics.Upload{ImageID: "img-1"}); err != nil {
		t.Fatal(err)
	}
	if got := s.Snapshot().Error; got != "" {
		t.Errorf("error = %q, want cleared", got)
	}
}

func TestSetterReplacesOnlyItsField(t *testing.T) {
	s := newSession(nil)
	populate(t, s)
	before := s.Snapshot()

	graph := &forensics.Graph{ImageID: "img-1", RootNodeID: "n9"}
	if err := s.SetGraph(s.Target(), graph); err != nil {
		t.Fatal(err)
	}

	after := s.Snapshot()
	before.Graph = graph
	before.Error = ""
	if diff := cmp.Diff(before, after); diff != "" {
		t.Errorf("unexpected changes (-want +got):\n%s", diff)
	}
}

func TestEndAfterResetDoesNotTouchNewState(t *testing.T) {
	s := newSession(nil)
	ctx := context.Background()

	old, err := s.Begin(session.StageUpload, false)
	if err != nil {
		t.Fatal(err)
	}
	s.Reset(ctx)

	if _, err := s.Begin(session.StageUpload, false); err != nil {
		t.Fatalf("begin after reset: %v", err)
	}
	s.End(old, session.StageUpload)

	if !s.Snapshot().Busy.Upload {
		t.Error("stale End released the new upload")
	}
}

func TestSubscribe(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := newSession(nil)
	ch, unsubscribe := s.Subscribe()

	initial := <-ch
	if diff := cmp.Diff(session.State{}, initial); diff != "" {
		t.Errorf("initial snapshot (-want +got):\n%s", diff)
	}

	tgt := s.Target()
	if err := s.SetUpload(tgt, &forensics.Upload{ImageID: "img-1"}); err != nil {
		t.Fatal(err)
	}
	if err := s.SetError(s.Target(), "Analysis failed"); err != nil {
		t.Fatal(err)
	}

	latest := <-ch
	if latest.ImageID != "img-1" || latest.Error != "Analysis failed" {
		t.Errorf("latest = %+v, want newest state", latest)
	}

	unsubscribe()
	unsubscribe()

	if _, ok := <-ch; ok {
		t.Error("channel still open after unsubscribe")
	}
}

func TestSubscribersReceiveConcurrently(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := newSession(nil)
	ch, unsubscribe := s.Subscribe()
	defer unsubscribe()

	done := make(chan string)
	go func() {
		for st := range ch {
			if st.ImageID == "img-final" {
				done <- st.ImageID
				return
			}
		}
		close(done)
	}()

	tgt := s.Target()
	for _, id := range []string{"img-a", "img-b", "img-final"} {
		if err := s.SetUpload(tgt, &forensics.Upload{ImageID: id}); err != nil {
			t.Fatal(err)
		}
		tgt = s.Target()
	}

	if got := <-done; got != "img-final" {
		t.Errorf("subscriber saw %q, want img-final", got)
	}
}

func TestCloseEndsSubscriptions(t *testing.T) {
	defer goleak.VerifyNone(t)

	rel := newReleaser()
	s := newSession(rel)
	populate(t, s)

	ch, _ := s.Subscribe()
	<-ch

	s.Close(context.Background())

	for range ch {
	}

	late, _ := s.Subscribe()
	if _, ok := <-late; ok {
		t.Error("subscription after close should be closed")
	}
	if rel.count("preview-1") != 1 {
		t.Error("close did not release the preview")
	}
}

func TestMapHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{session.ErrBusy, 409},
		{session.ErrNoImage, 400},
		{session.ErrNoFile, 400},
		{session.ErrStaleResponse, 409},
		{errors.New("other"), 500},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			if got := session.MapHTTPStatus(tt.err); got != tt.want {
				t.Errorf("MapHTTPStatus = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestRestart(t *testing.T) {
	rel := newReleaser()
	s := newSession(rel)
	populate(t, s)
	ctx := context.Background()

	if _, err := s.Begin(session.StageAnalyze, true); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Restart(ctx); !errors.Is(err, session.ErrBusy) {
		t.Fatalf("restart during analysis: err = %v, want ErrBusy", err)
	}

	s.Reset(ctx)
	old := s.Target()

	tgt, err := s.Restart(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if tgt.Generation == old.Generation {
		t.Error("restart did not advance the generation")
	}

	want := session.State{Busy: session.Busy{Upload: true}}
	if diff := cmp.Diff(want, s.Snapshot()); diff != "" {
		t.Errorf("state after restart (-want +got):\n%s", diff)
	}
	if rel.count("preview-1") != 1 {
		t.Errorf("preview released %d times, want 1", rel.count("preview-1"))
	}
}

func TestContinue(t *testing.T) {
	s := newSession(nil)
	ctx := context.Background()

	tgt, err := s.Restart(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.SetUpload(tgt, &forensics.Upload{ImageID: "img-1"}); err != nil {
		t.Fatal(err)
	}
	s.End(tgt, session.StageUpload)

	next, err := s.Continue(tgt, session.StageAnalyze)
	if err != nil {
		t.Fatal(err)
	}
	if next.ImageID != "img-1" {
		t.Errorf("target image = %q, want img-1", next.ImageID)
	}
	s.End(next, session.StageAnalyze)

	s.Reset(ctx)
	if _, err := s.Continue(next, session.StageAnalyze); !errors.Is(err, session.ErrStaleResponse) {
		t.Errorf("continue after reset: err = %v, want ErrStaleResponse", err)
	}
}
