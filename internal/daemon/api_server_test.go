package daemon

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"dashcam/internal/config"
)

func newTestAPI(t *testing.T) (*httptest.Server, *Daemon) {
	t.Helper()
	d := newTestDaemon(t)
	server := httptest.NewServer(d.api.handler())
	t.Cleanup(server.Close)
	return server, d
}

func decodeBody(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestAPIStatus(t *testing.T) {
	server, _ := newTestAPI(t)

	resp, err := http.Get(server.URL + "/api/status")
	if err != nil {
		t.Fatalf("GET status: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var payload statusPayload
	decodeBody(t, resp, &payload)
	if payload.Running {
		t.Fatal("daemon has not been started")
	}
	if payload.Armed {
		t.Fatal("vehicle should report disarmed")
	}
	if payload.DiskSpace.FreeMB != 10240 {
		t.Fatalf("free space = %d, want 10240", payload.DiskSpace.FreeMB)
	}
	if payload.ActiveStreams == nil {
		t.Fatal("active_streams should serialize as an empty list")
	}
}

func TestAPIStreamsCRUD(t *testing.T) {
	server, _ := newTestAPI(t)

	resp, err := http.Post(server.URL+"/api/streams", "application/json",
		strings.NewReader(`{"name":"front_cam","url":"rtsp://cam/front"}`))
	if err != nil {
		t.Fatalf("POST stream: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("add status = %d, want 200", resp.StatusCode)
	}

	resp, err = http.Get(server.URL + "/api/streams")
	if err != nil {
		t.Fatalf("GET streams: %v", err)
	}
	var list struct {
		Streams []streamPayload `json:"streams"`
	}
	decodeBody(t, resp, &list)
	if len(list.Streams) != 1 {
		t.Fatalf("streams = %d, want 1", len(list.Streams))
	}
	if list.Streams[0].Name != "front_cam" || list.Streams[0].URL != "rtsp://cam/front" {
		t.Fatalf("unexpected stream: %#v", list.Streams[0])
	}
	if list.Streams[0].Enabled == nil || !*list.Streams[0].Enabled {
		t.Fatal("new stream should be enabled")
	}

	resp, err = http.Post(server.URL+"/api/streams", "application/json",
		strings.NewReader(`{"name":"front_cam","enabled":false}`))
	if err != nil {
		t.Fatalf("POST toggle: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("toggle status = %d, want 200", resp.StatusCode)
	}

	resp, err = http.Get(server.URL + "/api/streams")
	if err != nil {
		t.Fatalf("GET streams: %v", err)
	}
	decodeBody(t, resp, &list)
	if *list.Streams[0].Enabled {
		t.Fatal("stream should be disabled after toggle")
	}

	req, err := http.NewRequest(http.MethodDelete, server.URL+"/api/streams/front_cam", nil)
	if err != nil {
		t.Fatalf("build delete request: %v", err)
	}
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE stream: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete status = %d, want 200", resp.StatusCode)
	}

	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE stream again: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("second delete status = %d, want 404", resp.StatusCode)
	}
}

func TestAPIStreamsRejectsBadPayload(t *testing.T) {
	server, _ := newTestAPI(t)

	resp, err := http.Post(server.URL+"/api/streams", "application/json",
		strings.NewReader(`{"name":"","url":"rtsp://cam/front"}`))
	if err != nil {
		t.Fatalf("POST stream: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestAPISettingsRoundTrip(t *testing.T) {
	server, _ := newTestAPI(t)

	resp, err := http.Post(server.URL+"/api/settings", "application/json",
		strings.NewReader(`{"minimum_free_space_mb":2048,"out_of_space_action":"delete_oldest"}`))
	if err != nil {
		t.Fatalf("POST settings: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update status = %d, want 200", resp.StatusCode)
	}

	resp, err = http.Get(server.URL + "/api/settings")
	if err != nil {
		t.Fatalf("GET settings: %v", err)
	}
	var payload settingsPayload
	decodeBody(t, resp, &payload)
	if payload.MinimumFreeSpaceMB != 2048 {
		t.Fatalf("minimum_free_space_mb = %d, want 2048", payload.MinimumFreeSpaceMB)
	}
	if payload.OutOfSpaceAction != config.OutOfSpaceActionDeleteOldest {
		t.Fatalf("out_of_space_action = %q", payload.OutOfSpaceAction)
	}
}

func TestAPISettingsRejectsInvalidAction(t *testing.T) {
	server, _ := newTestAPI(t)

	resp, err := http.Post(server.URL+"/api/settings", "application/json",
		strings.NewReader(`{"minimum_free_space_mb":2048,"out_of_space_action":"panic"}`))
	if err != nil {
		t.Fatalf("POST settings: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestAPIDeleteOldest(t *testing.T) {
	server, d := newTestAPI(t)

	resp, err := http.Post(server.URL+"/api/delete_oldest", "application/json", nil)
	if err != nil {
		t.Fatalf("POST delete_oldest: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("empty dir status = %d, want 404", resp.StatusCode)
	}

	victim := filepath.Join(d.cfg.Paths.VideoDir, "old_front_cam_20240101_000000_000.mp4")
	if err := os.WriteFile(victim, []byte("mp4"), 0o644); err != nil {
		t.Fatalf("seed video: %v", err)
	}
	old := time.Now().Add(-time.Hour)
	if err := os.Chtimes(victim, old, old); err != nil {
		t.Fatalf("age video: %v", err)
	}

	resp, err = http.Post(server.URL+"/api/delete_oldest", "application/json", nil)
	if err != nil {
		t.Fatalf("POST delete_oldest: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var payload map[string]string
	decodeBody(t, resp, &payload)
	if payload["deleted"] != victim {
		t.Fatalf("deleted = %q, want %q", payload["deleted"], victim)
	}
	if _, err := os.Stat(victim); !os.IsNotExist(err) {
		t.Fatal("video should have been removed")
	}
}

func TestAPISessionsEmpty(t *testing.T) {
	server, _ := newTestAPI(t)

	resp, err := http.Get(server.URL + "/api/sessions?limit=5")
	if err != nil {
		t.Fatalf("GET sessions: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var payload struct {
		Sessions []sessionPayload `json:"sessions"`
	}
	decodeBody(t, resp, &payload)
	if len(payload.Sessions) != 0 {
		t.Fatalf("sessions = %d, want 0", len(payload.Sessions))
	}
}

func TestAPIRegisterService(t *testing.T) {
	server, _ := newTestAPI(t)

	resp, err := http.Get(server.URL + "/register_service")
	if err != nil {
		t.Fatalf("GET register_service: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var payload registerServicePayload
	decodeBody(t, resp, &payload)
	if payload.Name != "Dashcam" {
		t.Fatalf("name = %q", payload.Name)
	}
	if payload.API != "/api" {
		t.Fatalf("api = %q", payload.API)
	}
}

func TestAPIMethodNotAllowed(t *testing.T) {
	server, _ := newTestAPI(t)

	resp, err := http.Post(server.URL+"/api/status", "application/json", nil)
	if err != nil {
		t.Fatalf("POST status: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", resp.StatusCode)
	}
}
