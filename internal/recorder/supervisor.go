package recorder

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"dashcam/internal/config"
	"dashcam/internal/fileutil"
	"dashcam/internal/logging"
)

// State describes where a stream's recording is in its lifecycle.
type State string

const (
	StateVerifying State = "verifying"
	StateRecording State = "recording"
	StateStopping  State = "stopping"
)

// Recording end outcomes reported through Events.
const (
	OutcomeCompleted   = "completed"
	OutcomeCrashed     = "crashed"
	OutcomeStartFailed = "start_failed"
)

// Source identifies one camera stream to record.
type Source struct {
	Name string
	URL  string
}

// Events receives recording lifecycle notifications. Callbacks run on
// supervisor goroutines and must not call back into the supervisor.
type Events interface {
	RecordingVerified(stream, outputPrefix string)
	RecordingEnded(stream, outputPrefix, outcome string)
}

type noopEvents struct{}

func (noopEvents) RecordingVerified(string, string) {}

func (noopEvents) RecordingEnded(string, string, string) {}

// StreamStatus is a point-in-time view of one active recording.
type StreamStatus struct {
	Stream       string
	State        State
	OutputPrefix string
	StartedAt    time.Time
}

type recording struct {
	source       Source
	outputPrefix string
	handle       Handle
	state        State
	startedAt    time.Time
	stopping     bool
	failed       bool
	exitErr      error
	exited       chan struct{}
}

// Supervisor owns all active recording processes, at most one per stream.
type Supervisor struct {
	videoDir       string
	segmentSeconds int
	verifyGrace    time.Duration
	verifyInterval time.Duration
	verifyChecks   int
	stopTimeout    time.Duration

	pipeline Pipeline
	events   Events
	logger   *slog.Logger

	mu     sync.Mutex
	active map[string]*recording
}

// NewSupervisor builds a supervisor from the recording configuration.
func NewSupervisor(cfg *config.Config, pipeline Pipeline, events Events, logger *slog.Logger) *Supervisor {
	if events == nil {
		events = noopEvents{}
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Supervisor{
		videoDir:       cfg.Paths.VideoDir,
		segmentSeconds: cfg.Recording.SegmentSeconds,
		verifyGrace:    time.Duration(cfg.Recording.VerifyGraceSeconds) * time.Second,
		verifyInterval: time.Duration(cfg.Recording.VerifyIntervalSeconds) * time.Second,
		verifyChecks:   cfg.Recording.VerifyChecks,
		stopTimeout:    time.Duration(cfg.Recording.StopTimeoutSeconds) * time.Second,
		pipeline:       pipeline,
		events:         events,
		logger:         logging.NewComponentLogger(logger, "recorder"),
	}
}

// Start launches a recording process for source. Output files are named
// base_stream_timestamp_NNN.mp4 in the video directory. The recording is
// segmented every segmentSeconds; zero or negative falls back to the
// configured default. Returns the output prefix shared by all segments of
// this recording.
func (s *Supervisor) Start(source Source, base string, segmentSeconds int) (string, error) {
	if segmentSeconds <= 0 {
		segmentSeconds = s.segmentSeconds
	}
	prefix := fmt.Sprintf("%s_%s_%s",
		base,
		fileutil.SanitizeStreamName(source.Name),
		time.Now().Format("20060102_150405"))
	pattern := filepath.Join(s.videoDir, prefix+"_%03d.mp4")

	s.mu.Lock()
	if s.active == nil {
		s.active = make(map[string]*recording)
	}
	if _, exists := s.active[source.Name]; exists {
		s.mu.Unlock()
		return "", fmt.Errorf("stream %q is already recording", source.Name)
	}

	streamLog := s.logger.With(logging.String(logging.FieldStream, source.Name))
	handle, err := s.pipeline.Launch(LaunchSpec{
		InputURL:       source.URL,
		OutputPattern:  pattern,
		SegmentSeconds: segmentSeconds,
	}, func(line string) {
		streamLog.Debug(line)
	})
	if err != nil {
		s.mu.Unlock()
		return "", fmt.Errorf("launch recorder for %q: %w", source.Name, err)
	}

	rec := &recording{
		source:       source,
		outputPrefix: prefix,
		handle:       handle,
		state:        StateVerifying,
		startedAt:    time.Now(),
		exited:       make(chan struct{}),
	}
	s.active[source.Name] = rec
	s.mu.Unlock()

	streamLog.Info("recording process started", logging.String("output_prefix", prefix))

	go s.monitor(rec, streamLog)
	go s.verify(rec, streamLog)
	return prefix, nil
}

// monitor waits for the process to exit, removes the recording from the
// active set, and reports the outcome. An exit nobody asked for is a crash;
// the stream stays stopped until the next arm cycle.
func (s *Supervisor) monitor(rec *recording, streamLog *slog.Logger) {
	err := <-rec.handle.Done()

	s.mu.Lock()
	rec.exitErr = err
	deliberate := rec.stopping
	failed := rec.failed
	if cur, ok := s.active[rec.source.Name]; ok && cur == rec {
		delete(s.active, rec.source.Name)
	}
	s.mu.Unlock()
	close(rec.exited)

	switch {
	case failed:
		s.events.RecordingEnded(rec.source.Name, rec.outputPrefix, OutcomeStartFailed)
	case deliberate:
		streamLog.Info("recording stopped", logging.String("output_prefix", rec.outputPrefix))
		s.events.RecordingEnded(rec.source.Name, rec.outputPrefix, OutcomeCompleted)
	default:
		streamLog.Error("recording process exited unexpectedly",
			logging.String("output_prefix", rec.outputPrefix),
			logging.Error(err))
		s.events.RecordingEnded(rec.source.Name, rec.outputPrefix, OutcomeCrashed)
	}
}

// verify waits out the startup grace period and then polls for a nonzero
// output file. A process that never produces output is stopped and reported
// as a failed start rather than left running blind.
func (s *Supervisor) verify(rec *recording, streamLog *slog.Logger) {
	select {
	case <-rec.exited:
		return
	case <-time.After(s.verifyGrace):
	}

	for i := 0; i < s.verifyChecks; i++ {
		if i > 0 {
			select {
			case <-rec.exited:
				return
			case <-time.After(s.verifyInterval):
			}
		}
		if s.hasOutput(rec.outputPrefix) {
			s.mu.Lock()
			verified := !rec.stopping
			if verified {
				rec.state = StateRecording
			}
			s.mu.Unlock()
			if verified {
				streamLog.Info("recording verified", logging.String("output_prefix", rec.outputPrefix))
				s.events.RecordingVerified(rec.source.Name, rec.outputPrefix)
			}
			return
		}
	}

	s.mu.Lock()
	if rec.stopping {
		s.mu.Unlock()
		return
	}
	rec.failed = true
	rec.stopping = true
	rec.state = StateStopping
	s.mu.Unlock()

	streamLog.Error("recording produced no output, giving up",
		logging.String("output_prefix", rec.outputPrefix),
		logging.Int("checks", s.verifyChecks))
	s.terminate(rec, streamLog)
}

// hasOutput reports whether any nonzero segment with the given prefix exists.
func (s *Supervisor) hasOutput(prefix string) bool {
	entries, err := os.ReadDir(s.videoDir)
	if err != nil {
		return false
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), prefix) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.Size() > 0 {
			return true
		}
	}
	return false
}

// Stop gracefully stops the recording for stream, waiting for the process to
// exit. Stopping a stream that is not recording is a no-op.
func (s *Supervisor) Stop(stream string) {
	s.mu.Lock()
	rec, ok := s.active[stream]
	if !ok || rec.stopping {
		s.mu.Unlock()
		return
	}
	rec.stopping = true
	rec.state = StateStopping
	s.mu.Unlock()

	s.terminate(rec, s.logger.With(logging.String(logging.FieldStream, stream)))
}

// terminate interrupts the process so ffmpeg can finalize the open segment,
// escalating to a kill when it does not exit within the stop timeout.
func (s *Supervisor) terminate(rec *recording, streamLog *slog.Logger) {
	if err := rec.handle.Interrupt(); err != nil {
		streamLog.Debug("interrupt failed", logging.Error(err))
	}
	select {
	case <-rec.exited:
		return
	case <-time.After(s.stopTimeout):
	}

	streamLog.Warn("recording process ignored interrupt, killing",
		logging.Duration("waited", s.stopTimeout))
	if err := rec.handle.Kill(); err != nil {
		streamLog.Debug("kill failed", logging.Error(err))
	}
	<-rec.exited
}

// StopAll stops every active recording and returns once all processes have
// exited.
func (s *Supervisor) StopAll() {
	s.mu.Lock()
	streams := make([]string, 0, len(s.active))
	for name := range s.active {
		streams = append(streams, name)
	}
	s.mu.Unlock()

	var wg sync.WaitGroup
	for _, name := range streams {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			s.Stop(name)
		}(name)
	}
	wg.Wait()
}

// ActiveStreams returns the names of streams with a live recording process.
func (s *Supervisor) ActiveStreams() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.active))
	for name := range s.active {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ActiveOutputPrefixes returns the output prefixes of live recordings so
// space remediation never deletes a file being written.
func (s *Supervisor) ActiveOutputPrefixes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	prefixes := make([]string, 0, len(s.active))
	for _, rec := range s.active {
		prefixes = append(prefixes, rec.outputPrefix)
	}
	sort.Strings(prefixes)
	return prefixes
}

// Snapshot returns the status of all active recordings, ordered by stream.
func (s *Supervisor) Snapshot() []StreamStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	statuses := make([]StreamStatus, 0, len(s.active))
	for _, rec := range s.active {
		statuses = append(statuses, StreamStatus{
			Stream:       rec.source.Name,
			State:        rec.state,
			OutputPrefix: rec.outputPrefix,
			StartedAt:    rec.startedAt,
		})
	}
	sort.Slice(statuses, func(i, j int) bool { return statuses[i].Stream < statuses[j].Stream })
	return statuses
}
