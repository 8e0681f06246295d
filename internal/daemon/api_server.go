package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"log/slog"

	"dashcam/internal/config"
	"dashcam/internal/logging"
	"dashcam/internal/settings"
)

type apiServer struct {
	bind   string
	logger *slog.Logger
	daemon *Daemon

	listener net.Listener
	server   *http.Server
}

// registerServicePayload is the service advertisement consumed by the BlueOS
// frontend to list the dashcam in its service menu.
type registerServicePayload struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	Company     string `json:"company"`
	Version     string `json:"version"`
	Webpage     string `json:"webpage"`
	API         string `json:"api"`
}

type streamPayload struct {
	Name    string `json:"name"`
	URL     string `json:"url"`
	Enabled *bool  `json:"enabled,omitempty"`
}

type settingsPayload struct {
	MinimumFreeSpaceMB int64  `json:"minimum_free_space_mb"`
	OutOfSpaceAction   string `json:"out_of_space_action"`
	SegmentSeconds     int    `json:"segment_seconds,omitempty"`
}

type statusPayload struct {
	Running       bool             `json:"running"`
	Armed         bool             `json:"armed"`
	BaseFilename  string           `json:"base_filename,omitempty"`
	ActiveStreams []streamStatus   `json:"active_streams"`
	DiskSpace     diskSpacePayload `json:"disk_space"`
}

type streamStatus struct {
	Stream       string `json:"stream"`
	State        string `json:"state"`
	OutputPrefix string `json:"output_prefix"`
	StartedAt    string `json:"started_at"`
}

type diskSpacePayload struct {
	FreeMB             int64  `json:"free_mb"`
	MinimumFreeSpaceMB int64  `json:"minimum_free_space_mb"`
	OutOfSpaceAction   string `json:"out_of_space_action"`
}

type sessionPayload struct {
	ID           string  `json:"id"`
	BaseFilename string  `json:"base_filename"`
	ArmedAt      string  `json:"armed_at"`
	DisarmedAt   *string `json:"disarmed_at,omitempty"`
	Recordings   int     `json:"recordings"`
}

type recordingPayload struct {
	Stream       string  `json:"stream"`
	OutputPrefix string  `json:"output_prefix"`
	StartedAt    string  `json:"started_at"`
	EndedAt      *string `json:"ended_at,omitempty"`
	Outcome      string  `json:"outcome,omitempty"`
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) *apiServer {
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil
	}

	srv := &apiServer{
		bind:   bind,
		logger: logger,
		daemon: d,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", srv.handleStatus)
	mux.HandleFunc("/api/disk_space", srv.handleDiskSpace)
	mux.HandleFunc("/api/streams", srv.handleStreams)
	mux.HandleFunc("/api/streams/", srv.handleStreamItem)
	mux.HandleFunc("/api/settings", srv.handleSettings)
	mux.HandleFunc("/api/delete_oldest", srv.handleDeleteOldest)
	mux.HandleFunc("/api/sessions", srv.handleSessions)
	mux.HandleFunc("/api/sessions/", srv.handleSessionItem)
	mux.HandleFunc("/register_service", srv.handleRegisterService)

	srv.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv
}

func (s *apiServer) start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log().Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.log().Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s == nil {
		return
	}
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *apiServer) handler() http.Handler {
	return s.server.Handler
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	status := s.daemon.Status(r.Context())
	active := make([]streamStatus, 0, len(status.ActiveStreams))
	for _, stream := range status.ActiveStreams {
		active = append(active, streamStatus{
			Stream:       stream.Stream,
			State:        string(stream.State),
			OutputPrefix: stream.OutputPrefix,
			StartedAt:    stream.StartedAt.UTC().Format(time.RFC3339),
		})
	}
	s.writeJSON(w, http.StatusOK, statusPayload{
		Running:       status.Running,
		Armed:         status.Armed,
		BaseFilename:  status.BaseFilename,
		ActiveStreams: active,
		DiskSpace: diskSpacePayload{
			FreeMB:             status.FreeSpaceMB,
			MinimumFreeSpaceMB: status.MinimumFreeSpaceMB,
			OutOfSpaceAction:   status.OutOfSpaceAction,
		},
	})
}

func (s *apiServer) handleDiskSpace(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	free, err := s.daemon.FreeSpaceMB(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	current := s.daemon.Settings(r.Context())
	s.writeJSON(w, http.StatusOK, diskSpacePayload{
		FreeMB:             free,
		MinimumFreeSpaceMB: current.MinimumFreeSpaceMB,
		OutOfSpaceAction:   current.OutOfSpaceAction,
	})
}

func (s *apiServer) handleStreams(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		streams := s.daemon.ListStreams(r.Context())
		payload := make([]streamPayload, 0, len(streams))
		for _, stream := range streams {
			enabled := stream.Enabled
			payload = append(payload, streamPayload{Name: stream.Name, URL: stream.URL, Enabled: &enabled})
		}
		s.writeJSON(w, http.StatusOK, map[string]any{"streams": payload})
	case http.MethodPost:
		var body streamPayload
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid stream payload")
			return
		}
		if strings.TrimSpace(body.URL) != "" {
			if err := s.daemon.AddStream(r.Context(), body.Name, body.URL); err != nil {
				s.writeError(w, http.StatusBadRequest, err.Error())
				return
			}
		}
		if body.Enabled != nil {
			if err := s.daemon.SetStreamEnabled(r.Context(), strings.TrimSpace(body.Name), *body.Enabled); err != nil {
				s.writeError(w, http.StatusNotFound, err.Error())
				return
			}
		}
		s.writeJSON(w, http.StatusOK, map[string]string{"result": "ok"})
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *apiServer) handleStreamItem(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(r.URL.Path, "/api/streams/")
	if name == "" || strings.Contains(name, "/") {
		s.writeError(w, http.StatusNotFound, "stream not found")
		return
	}
	if r.Method != http.MethodDelete {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	removed, err := s.daemon.RemoveStream(r.Context(), name)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !removed {
		s.writeError(w, http.StatusNotFound, "stream not found")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"result": "deleted"})
}

func (s *apiServer) handleSettings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		current := s.daemon.Settings(r.Context())
		s.writeJSON(w, http.StatusOK, settingsPayload{
			MinimumFreeSpaceMB: current.MinimumFreeSpaceMB,
			OutOfSpaceAction:   current.OutOfSpaceAction,
			SegmentSeconds:     current.SegmentSeconds,
		})
	case http.MethodPost:
		var body settingsPayload
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid settings payload")
			return
		}
		err := s.daemon.UpdateSettings(r.Context(), settings.Settings{
			MinimumFreeSpaceMB: body.MinimumFreeSpaceMB,
			OutOfSpaceAction:   body.OutOfSpaceAction,
			SegmentSeconds:     body.SegmentSeconds,
		})
		if err != nil {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]string{"result": "ok"})
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *apiServer) handleDeleteOldest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	removed, err := s.daemon.DeleteOldestVideo(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if removed == "" {
		s.writeError(w, http.StatusNotFound, "no completed recordings to delete")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"deleted": removed})
}

func (s *apiServer) handleSessions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	sessions, err := s.daemon.RecentSessions(r.Context(), limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	payload := make([]sessionPayload, 0, len(sessions))
	for _, session := range sessions {
		entry := sessionPayload{
			ID:           session.ID,
			BaseFilename: session.BaseFilename,
			ArmedAt:      session.ArmedAt.UTC().Format(time.RFC3339),
			Recordings:   session.Recordings,
		}
		if session.DisarmedAt != nil {
			formatted := session.DisarmedAt.UTC().Format(time.RFC3339)
			entry.DisarmedAt = &formatted
		}
		payload = append(payload, entry)
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"sessions": payload})
}

func (s *apiServer) handleSessionItem(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/api/sessions/")
	if id == "" || strings.Contains(id, "/") {
		s.writeError(w, http.StatusNotFound, "session not found")
		return
	}
	recordings, err := s.daemon.SessionRecordings(r.Context(), id)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	payload := make([]recordingPayload, 0, len(recordings))
	for _, rec := range recordings {
		entry := recordingPayload{
			Stream:       rec.Stream,
			OutputPrefix: rec.OutputPrefix,
			StartedAt:    rec.StartedAt.UTC().Format(time.RFC3339),
			Outcome:      rec.Outcome,
		}
		if rec.EndedAt != nil {
			formatted := rec.EndedAt.UTC().Format(time.RFC3339)
			entry.EndedAt = &formatted
		}
		payload = append(payload, entry)
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"recordings": payload})
}

func (s *apiServer) handleRegisterService(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.writeJSON(w, http.StatusOK, registerServicePayload{
		Name:        "Dashcam",
		Description: "Records camera streams while the vehicle is armed",
		Icon:        "mdi-video",
		Company:     "Blue Robotics",
		Version:     "0.1.0",
		Webpage:     "",
		API:         "/api",
	})
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log().Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

func (s *apiServer) log() *slog.Logger {
	if s.logger != nil {
		return s.logger.With(logging.String(logging.FieldComponent, "api-server"))
	}
	return logging.NewNop()
}
