package app

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/ayusman/signassess/internal/capture"
	"github.com/ayusman/signassess/internal/detector"
	"github.com/ayusman/signassess/internal/session"
	"github.com/ayusman/signassess/internal/sink"
	"github.com/ayusman/signassess/internal/store"
)

// waitFor polls cond until it holds or the timeout passes.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestApp_Pipeline_RecordsFrames(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	cam := capture.NewBlankCamera(160, 120)
	cam.SetFPS(60)

	rec := detector.NewMockRecognizer()
	rec.SetGesture("Hello", 0.9, detector.HelloLandmarks())

	s := newTestStore(t)
	user := &store.User{ID: "user-1", Name: "Asha", TokenHash: "hash"}
	if err := s.Users().Create(user); err != nil {
		t.Fatalf("create user: %v", err)
	}

	a := newTestApp(t, Config{
		Store:      s,
		Camera:     cam,
		Recognizer: rec,
		Sink:       sink.NewStoreSink(s),
	})

	if _, err := a.StartSession(session.Identity{UserID: user.ID, Name: user.Name}); err != nil {
		t.Fatalf("StartSession() error = %v", err)
	}

	waitFor(t, 2*time.Second, func() bool { return rec.Calls() >= 3 })

	out := a.Snapshot()
	if out.Gesture != "Hello" || out.Progress != 90 {
		t.Errorf("Snapshot() = %q/%d, want Hello/90", out.Gesture, out.Progress)
	}
	frame := a.Frame()
	if !bytes.HasPrefix(frame, []byte{0xFF, 0xD8}) {
		t.Errorf("Frame() should be a JPEG, got %d bytes", len(frame))
	}

	// Switch signs mid-session
	rec.SetGesture("V", 0.8, detector.VLandmarks())
	calls := rec.Calls()
	waitFor(t, 2*time.Second, func() bool { return rec.Calls() >= calls+3 })

	record, saved, err := a.StopSession(context.Background())
	if err != nil {
		t.Fatalf("StopSession() error = %v", err)
	}
	if !saved {
		t.Error("authenticated session should be saved")
	}
	if len(record.TopSigns) != 2 {
		t.Fatalf("TopSigns = %+v, want Hello and V", record.TopSigns)
	}
	if record.TopSigns[0].Label != "Hello" || record.TopSigns[1].Label != "V" {
		t.Errorf("TopSigns = %+v, want first-appearance order on ties", record.TopSigns)
	}
	if a.Frame() != nil {
		t.Error("Frame() should be cleared after the session")
	}

	stored, err := s.Sessions().GetByID(record.ID)
	if err != nil {
		t.Fatalf("stored session: %v", err)
	}
	if len(stored.TopSigns) != 2 {
		t.Errorf("stored TopSigns = %+v", stored.TopSigns)
	}

	// The camera is reusable for the next session
	if _, err := a.StartSession(session.Identity{}); err != nil {
		t.Fatalf("restart StartSession() error = %v", err)
	}
	if !cam.IsOpen() {
		t.Error("camera should reopen for the next session")
	}
}

func TestApp_StopSession_CancelledContextStillSaves(t *testing.T) {
	s := newTestStore(t)
	if err := s.Users().Create(&store.User{ID: "user-1", Name: "Asha", TokenHash: "h"}); err != nil {
		t.Fatalf("create user: %v", err)
	}
	a := newTestApp(t, Config{Store: s, Sink: sink.NewStoreSink(s)})

	if _, err := a.StartSession(session.Identity{UserID: "user-1", Name: "Asha"}); err != nil {
		t.Fatalf("StartSession() error = %v", err)
	}
	a.Observe(gestureResult("Hello", 0.9))

	// The client went away before the stop request was handled.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rec, saved, err := a.StopSession(ctx)
	if err != nil {
		t.Fatalf("StopSession() error = %v", err)
	}
	if !saved {
		t.Fatal("record should be saved")
	}
	got, err := s.Sessions().GetByID(rec.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.UserID != "user-1" {
		t.Errorf("UserID = %q, want user-1", got.UserID)
	}
}
