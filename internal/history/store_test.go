package history_test

import (
	"context"
	"path/filepath"
	"testing"

	"dashcam/internal/config"
	"dashcam/internal/history"
)

func openStore(t *testing.T) *history.Store {
	t.Helper()
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.VideoDir = filepath.Join(base, "videos")
	cfg.Paths.FlightLogDir = filepath.Join(base, "flightlogs")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.SettingsPath = filepath.Join(base, "settings.json")

	store, err := history.Open(&cfg)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSessionLifecycle(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	id, err := store.StartSession(ctx, "00000042")
	if err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}
	if err := store.AddRecording(ctx, id, "cam1", "00000042_cam1_20260825_120000"); err != nil {
		t.Fatalf("AddRecording failed: %v", err)
	}
	if err := store.AddRecording(ctx, id, "cam2", "00000042_cam2_20260825_120000"); err != nil {
		t.Fatalf("AddRecording failed: %v", err)
	}
	if err := store.FinishRecording(ctx, "00000042_cam1_20260825_120000", "completed"); err != nil {
		t.Fatalf("FinishRecording failed: %v", err)
	}
	if err := store.EndSession(ctx, id); err != nil {
		t.Fatalf("EndSession failed: %v", err)
	}

	sessions, err := store.RecentSessions(ctx, 10)
	if err != nil {
		t.Fatalf("RecentSessions failed: %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("sessions = %d, want 1", len(sessions))
	}
	session := sessions[0]
	if session.ID != id || session.BaseFilename != "00000042" {
		t.Fatalf("session = %#v", session)
	}
	if session.DisarmedAt == nil {
		t.Fatal("disarmed_at should be set")
	}
	if session.Recordings != 2 {
		t.Fatalf("recording count = %d, want 2", session.Recordings)
	}

	recordings, err := store.SessionRecordings(ctx, id)
	if err != nil {
		t.Fatalf("SessionRecordings failed: %v", err)
	}
	if len(recordings) != 2 {
		t.Fatalf("recordings = %d, want 2", len(recordings))
	}
	var finished, open int
	for _, rec := range recordings {
		if rec.EndedAt != nil {
			finished++
			if rec.Outcome != "completed" {
				t.Fatalf("outcome = %q, want completed", rec.Outcome)
			}
		} else {
			open++
		}
	}
	if finished != 1 || open != 1 {
		t.Fatalf("finished=%d open=%d, want 1/1", finished, open)
	}
}

func TestEndSessionUnknown(t *testing.T) {
	store := openStore(t)
	if err := store.EndSession(context.Background(), "nope"); err == nil {
		t.Fatal("expected error for unknown session")
	}
}

func TestFinishRecordingUnknownIsNoop(t *testing.T) {
	store := openStore(t)
	if err := store.FinishRecording(context.Background(), "ghost_prefix", "crashed"); err != nil {
		t.Fatalf("FinishRecording should tolerate unknown prefix: %v", err)
	}
}

func TestRecentSessionsOrderAndLimit(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	var last string
	for i := 0; i < 3; i++ {
		id, err := store.StartSession(ctx, "base")
		if err != nil {
			t.Fatalf("StartSession failed: %v", err)
		}
		last = id
	}

	sessions, err := store.RecentSessions(ctx, 2)
	if err != nil {
		t.Fatalf("RecentSessions failed: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("sessions = %d, want 2", len(sessions))
	}
	if sessions[0].ID != last {
		t.Fatalf("newest session should come first")
	}
}
