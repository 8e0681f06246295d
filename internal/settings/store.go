package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"dashcam/internal/config"
	"dashcam/internal/fileutil"
)

// StreamConfig describes one configured camera stream.
type StreamConfig struct {
	Name    string `json:"name"`
	URL     string `json:"url"`
	Enabled bool   `json:"enabled"`
}

// Settings holds the storage policy the admission controller reads and the
// segment length new recordings are started with.
type Settings struct {
	MinimumFreeSpaceMB int64  `json:"minimum_free_space_mb"`
	OutOfSpaceAction   string `json:"out_of_space_action"`
	SegmentSeconds     int    `json:"segment_seconds"`
}

// Candidate is a stream discovered through the source catalog.
type Candidate struct {
	Name string
	URL  string
}

// Store owns the settings document on disk. All accessors return copies;
// mutations persist before returning.
type Store struct {
	path     string
	defaults Settings

	mu       sync.Mutex
	settings Settings
	streams  []StreamConfig
}

type document struct {
	Streams  []streamEntry `json:"streams"`
	Settings settingsEntry `json:"settings"`
}

// Pointer fields distinguish "absent" from zero so missing optional fields
// pick up defaults instead of zero values.
type streamEntry struct {
	Name    string `json:"name"`
	URL     string `json:"url"`
	Enabled *bool  `json:"enabled,omitempty"`
}

type settingsEntry struct {
	MinimumFreeSpaceMB *int64  `json:"minimum_free_space_mb,omitempty"`
	OutOfSpaceAction   *string `json:"out_of_space_action,omitempty"`
	SegmentSeconds     *int    `json:"segment_seconds,omitempty"`
}

// Open loads the settings document at path, creating it with defaults drawn
// from the daemon configuration when absent.
func Open(cfg *config.Config) (*Store, error) {
	if cfg == nil {
		return nil, errors.New("settings store requires config")
	}
	defaults := Settings{
		MinimumFreeSpaceMB: cfg.Recording.MinimumFreeSpaceMB,
		OutOfSpaceAction:   cfg.Recording.OutOfSpaceAction,
		SegmentSeconds:     cfg.Recording.SegmentSeconds,
	}

	store := &Store{
		path:     cfg.Paths.SettingsPath,
		defaults: defaults,
		settings: defaults,
	}

	data, err := os.ReadFile(store.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read settings: %w", err)
		}
		if err := store.save(); err != nil {
			return nil, err
		}
		return store, nil
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse settings %s: %w", store.path, err)
	}
	store.applyDocument(doc)
	return store, nil
}

func (s *Store) applyDocument(doc document) {
	settings := s.defaults
	if doc.Settings.MinimumFreeSpaceMB != nil && *doc.Settings.MinimumFreeSpaceMB > 0 {
		settings.MinimumFreeSpaceMB = *doc.Settings.MinimumFreeSpaceMB
	}
	if doc.Settings.OutOfSpaceAction != nil {
		if action, ok := normalizeAction(*doc.Settings.OutOfSpaceAction); ok {
			settings.OutOfSpaceAction = action
		}
	}
	if doc.Settings.SegmentSeconds != nil && *doc.Settings.SegmentSeconds > 0 {
		settings.SegmentSeconds = *doc.Settings.SegmentSeconds
	}
	s.settings = settings

	streams := make([]StreamConfig, 0, len(doc.Streams))
	seen := make(map[string]struct{}, len(doc.Streams))
	for _, entry := range doc.Streams {
		name := strings.TrimSpace(entry.Name)
		if name == "" {
			continue
		}
		// Dedupe by the sanitized form: names that collide there would also
		// collide in output filenames.
		token := fileutil.SanitizeStreamName(name)
		if _, dup := seen[token]; dup {
			continue
		}
		seen[token] = struct{}{}
		enabled := true
		if entry.Enabled != nil {
			enabled = *entry.Enabled
		}
		streams = append(streams, StreamConfig{
			Name:    name,
			URL:     strings.TrimSpace(entry.URL),
			Enabled: enabled,
		})
	}
	s.streams = streams
}

// normalizeAction canonicalizes the out-of-space action, accepting the legacy
// "delete_oldest_video" spelling written by earlier releases.
func normalizeAction(value string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case config.OutOfSpaceActionStop:
		return config.OutOfSpaceActionStop, true
	case config.OutOfSpaceActionDeleteOldest, "delete_oldest_video":
		return config.OutOfSpaceActionDeleteOldest, true
	default:
		return "", false
	}
}

// Settings returns the current storage policy.
func (s *Store) Settings() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

// Streams returns a snapshot of the configured streams in stable order.
// This is the read-only registry view the orchestrator iterates per cycle.
func (s *Store) Streams() []StreamConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]StreamConfig, len(s.streams))
	copy(out, s.streams)
	return out
}

// UpdateSettings validates and persists a new storage policy.
func (s *Store) UpdateSettings(settings Settings) error {
	action, ok := normalizeAction(settings.OutOfSpaceAction)
	if !ok {
		return fmt.Errorf("unknown out_of_space_action %q", settings.OutOfSpaceAction)
	}
	if settings.MinimumFreeSpaceMB <= 0 {
		return fmt.Errorf("minimum_free_space_mb must be positive, got %d", settings.MinimumFreeSpaceMB)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = Settings{
		MinimumFreeSpaceMB: settings.MinimumFreeSpaceMB,
		OutOfSpaceAction:   action,
		SegmentSeconds:     s.settings.SegmentSeconds,
	}
	if settings.SegmentSeconds > 0 {
		s.settings.SegmentSeconds = settings.SegmentSeconds
	}
	return s.save()
}

// UpsertStream adds a stream or updates the URL of an existing one. New
// streams start enabled. A name whose sanitized form matches another stream
// is rejected: both would write segments under the same filename prefix.
func (s *Store) UpsertStream(name, url string) error {
	name = strings.TrimSpace(name)
	url = strings.TrimSpace(url)
	if name == "" {
		return errors.New("stream name is required")
	}
	if url == "" {
		return errors.New("stream url is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	token := fileutil.SanitizeStreamName(name)
	for i := range s.streams {
		if s.streams[i].Name == name {
			s.streams[i].URL = url
			return s.save()
		}
		if fileutil.SanitizeStreamName(s.streams[i].Name) == token {
			return fmt.Errorf("stream name %q conflicts with %q: both map to output prefix %q",
				name, s.streams[i].Name, token)
		}
	}
	s.streams = append(s.streams, StreamConfig{Name: name, URL: url, Enabled: true})
	return s.save()
}

// SetStreamEnabled toggles a stream without touching its URL.
func (s *Store) SetStreamEnabled(name string, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.streams {
		if s.streams[i].Name == name {
			s.streams[i].Enabled = enabled
			return s.save()
		}
	}
	return fmt.Errorf("stream %q not found", name)
}

// DeleteStream removes a stream by name. Returns false when no such stream
// was configured.
func (s *Store) DeleteStream(name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.streams {
		if s.streams[i].Name == name {
			s.streams = append(s.streams[:i], s.streams[i+1:]...)
			return true, s.save()
		}
	}
	return false, nil
}

// MergeCatalog folds discovered stream sources into the configuration:
// unknown names are appended enabled, known names have only their URL
// refreshed. The enabled flag is user-owned and never changed here.
func (s *Store) MergeCatalog(candidates []Candidate) (added, updated int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	byName := make(map[string]int, len(s.streams))
	byToken := make(map[string]struct{}, len(s.streams))
	for i, stream := range s.streams {
		byName[stream.Name] = i
		byToken[fileutil.SanitizeStreamName(stream.Name)] = struct{}{}
	}

	changed := false
	for _, candidate := range candidates {
		name := strings.TrimSpace(candidate.Name)
		url := strings.TrimSpace(candidate.URL)
		if name == "" || url == "" {
			continue
		}
		if i, ok := byName[name]; ok {
			if s.streams[i].URL != url {
				s.streams[i].URL = url
				updated++
				changed = true
			}
			continue
		}
		// A discovered name that sanitizes to an existing stream's prefix is
		// skipped rather than added under a colliding filename.
		token := fileutil.SanitizeStreamName(name)
		if _, clash := byToken[token]; clash {
			continue
		}
		byName[name] = len(s.streams)
		byToken[token] = struct{}{}
		s.streams = append(s.streams, StreamConfig{Name: name, URL: url, Enabled: true})
		added++
		changed = true
	}

	if !changed {
		return 0, 0, nil
	}
	return added, updated, s.save()
}

// Path returns the on-disk location of the settings document.
func (s *Store) Path() string {
	return s.path
}

// save writes the document atomically. Callers hold s.mu.
func (s *Store) save() error {
	doc := document{
		Streams: make([]streamEntry, 0, len(s.streams)),
		Settings: settingsEntry{
			MinimumFreeSpaceMB: &s.settings.MinimumFreeSpaceMB,
			OutOfSpaceAction:   &s.settings.OutOfSpaceAction,
			SegmentSeconds:     &s.settings.SegmentSeconds,
		},
	}
	for i := range s.streams {
		enabled := s.streams[i].Enabled
		doc.Streams = append(doc.Streams, streamEntry{
			Name:    s.streams[i].Name,
			URL:     s.streams[i].URL,
			Enabled: &enabled,
		})
	}

	data, err := json.MarshalIndent(doc, "", "    ")
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create settings directory: %w", err)
		}
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace settings: %w", err)
	}
	return nil
}
