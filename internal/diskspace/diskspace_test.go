package diskspace_test

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"dashcam/internal/config"
	"dashcam/internal/diskspace"
)

// fakeProbe returns the queued free-space values in order, repeating the
// last one once the queue drains.
type fakeProbe struct {
	values []int64
	calls  int
}

func (f *fakeProbe) probe(string) (int64, error) {
	i := f.calls
	if i >= len(f.values) {
		i = len(f.values) - 1
	}
	f.calls++
	return f.values[i], nil
}

func newController(t *testing.T, videoDir string, probe diskspace.Probe, attempts int) *diskspace.Controller {
	t.Helper()
	cfg := config.Default()
	cfg.Paths.VideoDir = videoDir
	cfg.Recording.RemediationAttempts = attempts
	return diskspace.NewController(&cfg, probe, nil)
}

func writeVideo(t *testing.T, dir, name string, age time.Duration) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("v"), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	mod := time.Now().Add(-age)
	if err := os.Chtimes(path, mod, mod); err != nil {
		t.Fatalf("chtimes %s: %v", name, err)
	}
	return path
}

func TestAdmitWithEnoughSpace(t *testing.T) {
	probe := &fakeProbe{values: []int64{4096}}
	ctrl := newController(t, t.TempDir(), probe.probe, 10)

	policy := diskspace.Policy{MinimumFreeSpaceMB: 1024, OutOfSpaceAction: config.OutOfSpaceActionStop}
	if err := ctrl.Admit("cam1", policy, nil); err != nil {
		t.Fatalf("Admit failed: %v", err)
	}
	if probe.calls != 1 {
		t.Fatalf("probe calls = %d, want 1", probe.calls)
	}
}

func TestAdmitStopActionStopsActiveRecordings(t *testing.T) {
	dir := t.TempDir()
	kept := writeVideo(t, dir, "old_000.mp4", time.Hour)

	// Space recovers once the active writers are gone.
	probe := &fakeProbe{values: []int64{100, 2048}}
	ctrl := newController(t, dir, probe.probe, 10)
	stops := 0
	ctrl.SetStopActive(func() { stops++ })

	policy := diskspace.Policy{MinimumFreeSpaceMB: 1024, OutOfSpaceAction: config.OutOfSpaceActionStop}
	if err := ctrl.Admit("cam1", policy, nil); err != nil {
		t.Fatalf("Admit failed: %v", err)
	}
	if stops != 1 {
		t.Fatalf("stop hook calls = %d, want 1", stops)
	}
	if probe.calls != 2 {
		t.Fatalf("probe calls = %d, want 2", probe.calls)
	}
	if _, statErr := os.Stat(kept); statErr != nil {
		t.Fatal("stop action must not delete recordings")
	}
}

func TestAdmitStopActionBoundedWhenSpaceNeverRecovers(t *testing.T) {
	probe := &fakeProbe{values: []int64{100}}
	ctrl := newController(t, t.TempDir(), probe.probe, 2)
	stops := 0
	ctrl.SetStopActive(func() { stops++ })

	policy := diskspace.Policy{MinimumFreeSpaceMB: 1024, OutOfSpaceAction: config.OutOfSpaceActionStop}
	err := ctrl.Admit("cam1", policy, nil)
	if !errors.Is(err, diskspace.ErrOutOfSpace) {
		t.Fatalf("err = %v, want ErrOutOfSpace", err)
	}
	if stops != 2 {
		t.Fatalf("stop hook calls = %d, want 2", stops)
	}
}

func TestAdmitStopActionDeniesWithoutHook(t *testing.T) {
	probe := &fakeProbe{values: []int64{100}}
	ctrl := newController(t, t.TempDir(), probe.probe, 10)

	policy := diskspace.Policy{MinimumFreeSpaceMB: 1024, OutOfSpaceAction: config.OutOfSpaceActionStop}
	err := ctrl.Admit("cam1", policy, nil)
	if !errors.Is(err, diskspace.ErrOutOfSpace) {
		t.Fatalf("err = %v, want ErrOutOfSpace", err)
	}
	if probe.calls != 1 {
		t.Fatalf("probe calls = %d, want 1", probe.calls)
	}
}

func TestAdmitDeletesOldestUntilSpaceRecovers(t *testing.T) {
	dir := t.TempDir()
	oldest := writeVideo(t, dir, "a_000.mp4", 3*time.Hour)
	middle := writeVideo(t, dir, "b_000.mp4", 2*time.Hour)
	newest := writeVideo(t, dir, "c_000.mp4", time.Hour)

	probe := &fakeProbe{values: []int64{100, 500, 2048}}
	ctrl := newController(t, dir, probe.probe, 10)

	policy := diskspace.Policy{MinimumFreeSpaceMB: 1024, OutOfSpaceAction: config.OutOfSpaceActionDeleteOldest}
	if err := ctrl.Admit("cam1", policy, nil); err != nil {
		t.Fatalf("Admit failed: %v", err)
	}

	for _, path := range []string{oldest, middle} {
		if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
			t.Fatalf("%s should have been deleted", path)
		}
	}
	if _, err := os.Stat(newest); err != nil {
		t.Fatal("newest recording should survive")
	}
}

func TestAdmitNeverDeletesActiveOutputs(t *testing.T) {
	dir := t.TempDir()
	active := writeVideo(t, dir, "log7_cam1_20260825_000.mp4", 3*time.Hour)
	victim := writeVideo(t, dir, "log6_cam1_000.mp4", 2*time.Hour)

	probe := &fakeProbe{values: []int64{100, 2048}}
	ctrl := newController(t, dir, probe.probe, 10)

	policy := diskspace.Policy{MinimumFreeSpaceMB: 1024, OutOfSpaceAction: config.OutOfSpaceActionDeleteOldest}
	if err := ctrl.Admit("cam2", policy, []string{"log7_cam1_20260825"}); err != nil {
		t.Fatalf("Admit failed: %v", err)
	}

	if _, err := os.Stat(active); err != nil {
		t.Fatal("active output must never be deleted")
	}
	if _, err := os.Stat(victim); !errors.Is(err, os.ErrNotExist) {
		t.Fatal("completed recording should have been deleted")
	}
}

func TestAdmitBoundsRemediation(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 5; i++ {
		writeVideo(t, dir, fmt.Sprintf("v%c_000.mp4", 'a'+i), time.Duration(5-i)*time.Hour)
	}

	// Space never recovers no matter how much is deleted.
	probe := &fakeProbe{values: []int64{100}}
	ctrl := newController(t, dir, probe.probe, 2)

	policy := diskspace.Policy{MinimumFreeSpaceMB: 1024, OutOfSpaceAction: config.OutOfSpaceActionDeleteOldest}
	err := ctrl.Admit("cam1", policy, nil)
	if !errors.Is(err, diskspace.ErrOutOfSpace) {
		t.Fatalf("err = %v, want ErrOutOfSpace", err)
	}

	entries, readErr := os.ReadDir(dir)
	if readErr != nil {
		t.Fatalf("read dir: %v", readErr)
	}
	if len(entries) != 3 {
		t.Fatalf("remaining videos = %d, want 3 (two deletions allowed)", len(entries))
	}
}

func TestAdmitDeniesWhenNothingDeletable(t *testing.T) {
	probe := &fakeProbe{values: []int64{100}}
	ctrl := newController(t, t.TempDir(), probe.probe, 10)

	policy := diskspace.Policy{MinimumFreeSpaceMB: 1024, OutOfSpaceAction: config.OutOfSpaceActionDeleteOldest}
	err := ctrl.Admit("cam1", policy, nil)
	if !errors.Is(err, diskspace.ErrOutOfSpace) {
		t.Fatalf("err = %v, want ErrOutOfSpace", err)
	}
}

func TestDeleteOldestExplicit(t *testing.T) {
	dir := t.TempDir()
	oldest := writeVideo(t, dir, "a_000.mp4", 2*time.Hour)
	writeVideo(t, dir, "b_000.mp4", time.Hour)

	ctrl := newController(t, dir, (&fakeProbe{values: []int64{100}}).probe, 10)

	removed, err := ctrl.DeleteOldest(nil)
	if err != nil {
		t.Fatalf("DeleteOldest failed: %v", err)
	}
	if removed != oldest {
		t.Fatalf("removed = %q, want %q", removed, oldest)
	}
}
