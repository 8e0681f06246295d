package orchestrator

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"dashcam/internal/config"
	"dashcam/internal/diskspace"
	"dashcam/internal/fileutil"
	"dashcam/internal/history"
	"dashcam/internal/logging"
	"dashcam/internal/notifications"
	"dashcam/internal/recorder"
	"dashcam/internal/services/camsource"
	"dashcam/internal/settings"
)

// Status is a point-in-time view of the recording state.
type Status struct {
	Armed         bool
	BaseFilename  string
	ActiveStreams []recorder.StreamStatus
}

// Manager owns the arm/disarm driven recording lifecycle. It implements
// mavlink.ArmEvents, so transitions arrive on the telemetry read goroutine
// and disarm handling completes before the next heartbeat is consumed.
type Manager struct {
	cfg        *config.Config
	store      *settings.Store
	disk       *diskspace.Controller
	history    *history.Store
	notifier   notifications.Service
	catalog    camsource.Catalog
	supervisor *recorder.Supervisor
	logger     *slog.Logger

	mu           sync.Mutex
	armed        bool
	sessionID    string
	baseFilename string
}

// New wires a manager and its recording supervisor together.
func New(
	cfg *config.Config,
	store *settings.Store,
	disk *diskspace.Controller,
	hist *history.Store,
	notifier notifications.Service,
	catalog camsource.Catalog,
	pipeline recorder.Pipeline,
	logger *slog.Logger,
) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	m := &Manager{
		cfg:      cfg,
		store:    store,
		disk:     disk,
		history:  hist,
		notifier: notifier,
		catalog:  catalog,
		logger:   logging.NewComponentLogger(logger, "orchestrator"),
	}
	m.supervisor = recorder.NewSupervisor(cfg, pipeline, m, logger)
	disk.SetStopActive(m.supervisor.StopAll)
	return m
}

// VehicleArmed starts a recording session for every enabled stream.
func (m *Manager) VehicleArmed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.armed {
		return
	}
	m.armed = true

	ctx := context.Background()
	m.refreshCatalog(ctx)

	base := m.deriveBase()
	m.baseFilename = base

	sessionID, err := m.history.StartSession(ctx, base)
	if err != nil {
		m.logger.Error("failed to open history session", logging.Error(err))
		sessionID = ""
	}
	m.sessionID = sessionID

	// One settings read per arm edge so concurrent edits cannot give two
	// streams of the same session different policies.
	current := m.store.Settings()
	policy := diskspace.Policy{
		MinimumFreeSpaceMB: current.MinimumFreeSpaceMB,
		OutOfSpaceAction:   current.OutOfSpaceAction,
	}
	started := 0
	for _, stream := range m.store.Streams() {
		if !stream.Enabled {
			continue
		}
		if err := m.disk.Admit(stream.Name, policy, m.supervisor.ActiveOutputPrefixes()); err != nil {
			m.logger.Warn("stream not admitted",
				logging.String(logging.FieldStream, stream.Name),
				logging.Error(err))
			if notifyErr := m.notifier.NotifyAdmissionDenied(ctx, stream.Name, err.Error()); notifyErr != nil {
				m.logger.Debug("admission notification failed", logging.Error(notifyErr))
			}
			continue
		}

		prefix, err := m.supervisor.Start(recorder.Source{Name: stream.Name, URL: stream.URL}, base, current.SegmentSeconds)
		if err != nil {
			m.logger.Error("failed to start recording",
				logging.String(logging.FieldStream, stream.Name),
				logging.Error(err))
			if notifyErr := m.notifier.NotifyError(ctx, err, "recording start"); notifyErr != nil {
				m.logger.Debug("error notification failed", logging.Error(notifyErr))
			}
			continue
		}
		if sessionID != "" {
			if err := m.history.AddRecording(ctx, sessionID, stream.Name, prefix); err != nil {
				m.logger.Error("failed to record history entry", logging.Error(err))
			}
		}
		started++
	}

	m.logger.Info("session started",
		logging.String(logging.FieldSession, base),
		logging.Int("streams", started))
	if err := m.notifier.NotifyArmed(ctx, base, started); err != nil {
		m.logger.Debug("arm notification failed", logging.Error(err))
	}
}

// VehicleDisarmed stops all recordings and closes the session. It returns
// only after every recording process has exited.
func (m *Manager) VehicleDisarmed() {
	m.mu.Lock()
	if !m.armed {
		m.mu.Unlock()
		return
	}
	m.armed = false
	sessionID := m.sessionID
	base := m.baseFilename
	m.sessionID = ""
	m.mu.Unlock()

	m.supervisor.StopAll()

	ctx := context.Background()
	if sessionID != "" {
		if err := m.history.EndSession(ctx, sessionID); err != nil {
			m.logger.Error("failed to close history session", logging.Error(err))
		}
	}
	m.logger.Info("session ended", logging.String(logging.FieldSession, base))
	if err := m.notifier.NotifyDisarmed(ctx, base); err != nil {
		m.logger.Debug("disarm notification failed", logging.Error(err))
	}
}

// RecordingVerified implements recorder.Events.
func (m *Manager) RecordingVerified(stream, outputPrefix string) {
	m.logger.Debug("recording verified",
		logging.String(logging.FieldStream, stream),
		logging.String("output_prefix", outputPrefix))
}

// RecordingEnded implements recorder.Events. It deliberately avoids the
// manager mutex: it runs on supervisor goroutines while VehicleDisarmed may
// be waiting on those same processes.
func (m *Manager) RecordingEnded(stream, outputPrefix, outcome string) {
	ctx := context.Background()
	if err := m.history.FinishRecording(ctx, outputPrefix, outcome); err != nil {
		m.logger.Error("failed to finish history entry", logging.Error(err))
	}

	switch outcome {
	case recorder.OutcomeCrashed:
		if err := m.notifier.NotifyRecordingFailed(ctx, stream, "recording process exited unexpectedly"); err != nil {
			m.logger.Debug("failure notification failed", logging.Error(err))
		}
	case recorder.OutcomeStartFailed:
		if err := m.notifier.NotifyRecordingFailed(ctx, stream, "recording never produced output"); err != nil {
			m.logger.Debug("failure notification failed", logging.Error(err))
		}
	}
}

// Status reports the current arm state and active recordings.
func (m *Manager) Status() Status {
	m.mu.Lock()
	armed := m.armed
	base := m.baseFilename
	m.mu.Unlock()
	return Status{
		Armed:         armed,
		BaseFilename:  base,
		ActiveStreams: m.supervisor.Snapshot(),
	}
}

// StopStream stops the active recording for one stream, if any. Used when a
// stream is deleted through the API while armed.
func (m *Manager) StopStream(name string) {
	m.supervisor.Stop(name)
}

// FreeSpaceMB reports free space in the video directory.
func (m *Manager) FreeSpaceMB() (int64, error) {
	return m.disk.Free()
}

// DeleteOldestVideo removes the oldest completed recording on request.
func (m *Manager) DeleteOldestVideo() (string, error) {
	return m.disk.DeleteOldest(m.supervisor.ActiveOutputPrefixes())
}

// refreshCatalog merges discovered streams into settings, best-effort.
func (m *Manager) refreshCatalog(ctx context.Context) {
	if m.catalog == nil {
		return
	}
	timeout := time.Duration(m.cfg.MAVLink.CatalogTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	discoverCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	candidates, err := m.catalog.Discover(discoverCtx)
	if err != nil {
		m.logger.Warn("camera catalog refresh failed", logging.Error(err))
		return
	}
	added, updated, err := m.store.MergeCatalog(candidates)
	if err != nil {
		m.logger.Error("failed to merge camera catalog", logging.Error(err))
		return
	}
	if added > 0 || updated > 0 {
		m.logger.Info("camera catalog merged",
			logging.Int("added", added),
			logging.Int("updated", updated))
	}
}

// deriveBase names the session after the newest flight log so video and
// telemetry can be correlated later, falling back to a local counter when no
// flight log exists.
func (m *Manager) deriveBase() string {
	base, err := fileutil.NewestFlightLogBase(m.cfg.Paths.FlightLogDir)
	if err != nil {
		m.logger.Warn("flight log scan failed", logging.Error(err))
	}
	if base != "" {
		return base
	}
	fallback, err := fileutil.FallbackSessionBase(m.cfg.Paths.VideoDir)
	if err != nil {
		m.logger.Warn("session counter scan failed", logging.Error(err))
		return "session_0001"
	}
	return fallback
}
