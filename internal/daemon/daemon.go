package daemon

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync/atomic"

	"log/slog"

	"github.com/gofrs/flock"

	"dashcam/internal/config"
	"dashcam/internal/diskspace"
	"dashcam/internal/history"
	"dashcam/internal/logging"
	"dashcam/internal/mavlink"
	"dashcam/internal/notifications"
	"dashcam/internal/orchestrator"
	"dashcam/internal/recorder"
	"dashcam/internal/services/camsource"
	"dashcam/internal/settings"
)

// Daemon owns the recording service lifecycle and enforces single-instance
// execution.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *settings.Store
	history  *history.Store
	notifier notifications.Service
	manager  *orchestrator.Manager
	client   *mavlink.Client
	api      *apiServer
	logPath  string

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running            bool
	Armed              bool
	BaseFilename       string
	ActiveStreams      []recorder.StreamStatus
	FreeSpaceMB        int64
	MinimumFreeSpaceMB int64
	OutOfSpaceAction   string
	HistoryDBPath      string
	SettingsPath       string
	LockFilePath       string
}

// Option overrides a daemon dependency, primarily for tests.
type Option func(*buildOptions)

type buildOptions struct {
	pipeline recorder.Pipeline
	probe    diskspace.Probe
	catalog  camsource.Catalog
	notifier notifications.Service
}

// WithPipeline replaces the ffmpeg pipeline.
func WithPipeline(p recorder.Pipeline) Option {
	return func(o *buildOptions) { o.pipeline = p }
}

// WithDiskProbe replaces the free-space probe.
func WithDiskProbe(p diskspace.Probe) Option {
	return func(o *buildOptions) { o.probe = p }
}

// WithCatalog replaces the camera catalog client.
func WithCatalog(c camsource.Catalog) Option {
	return func(o *buildOptions) { o.catalog = c }
}

// WithNotifier replaces the notification service.
func WithNotifier(n notifications.Service) Option {
	return func(o *buildOptions) { o.notifier = n }
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Daemon, error) {
	if cfg == nil || logger == nil {
		return nil, errors.New("daemon requires config and logger")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}

	build := buildOptions{}
	for _, opt := range opts {
		opt(&build)
	}
	if build.pipeline == nil {
		build.pipeline = recorder.NewFFmpegPipeline(cfg.FFmpegBinary())
	}
	if build.catalog == nil {
		build.catalog = camsource.NewCatalog(cfg)
	}
	if build.notifier == nil {
		build.notifier = notifications.NewService(cfg)
	}

	store, err := settings.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open settings: %w", err)
	}
	hist, err := history.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}

	disk := diskspace.NewController(cfg, build.probe, logger)
	manager := orchestrator.New(cfg, store, disk, hist, build.notifier, build.catalog, build.pipeline, logger)
	detector := mavlink.NewDetector(logger, manager)
	client := mavlink.NewClient(cfg, logger, detector)

	lockPath := filepath.Join(cfg.Paths.LogDir, "dashcamd.lock")
	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    store,
		history:  hist,
		notifier: build.notifier,
		manager:  manager,
		client:   client,
		logPath:  filepath.Join(cfg.Paths.LogDir, "dashcam.log"),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	d.api = newAPIServer(cfg, d, logger)
	return d, nil
}

// Start acquires the daemon lock, starts the HTTP API, and begins consuming
// telemetry.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another dashcam daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	if d.api != nil {
		if err := d.api.start(d.ctx); err != nil {
			_ = d.lock.Unlock()
			d.cancel()
			d.ctx = nil
			d.cancel = nil
			return err
		}
	}

	runCtx := d.ctx
	go func() {
		if err := d.client.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
			d.logger.Error("telemetry client stopped", logging.Error(err))
		}
	}()

	d.running.Store(true)
	d.logger.Info("dashcam daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop halts telemetry, stops any active recordings, and releases the lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	// Stop recordings before exiting so ffmpeg finalizes open segments.
	d.manager.VehicleDisarmed()
	if d.api != nil {
		d.api.stop()
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("dashcam daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.history != nil {
		return d.history.Close()
	}
	return nil
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	state := d.manager.Status()
	current := d.store.Settings()
	free, err := d.manager.FreeSpaceMB()
	if err != nil {
		d.logger.Warn("free space probe failed", logging.Error(err))
		free = -1
	}
	return Status{
		Running:            d.running.Load(),
		Armed:              state.Armed,
		BaseFilename:       state.BaseFilename,
		ActiveStreams:      state.ActiveStreams,
		FreeSpaceMB:        free,
		MinimumFreeSpaceMB: current.MinimumFreeSpaceMB,
		OutOfSpaceAction:   current.OutOfSpaceAction,
		HistoryDBPath:      d.history.Path(),
		SettingsPath:       d.store.Path(),
		LockFilePath:       d.lockPath,
	}
}

// ListStreams returns the configured streams.
func (d *Daemon) ListStreams(ctx context.Context) []settings.StreamConfig {
	return d.store.Streams()
}

// AddStream adds or updates a stream.
func (d *Daemon) AddStream(ctx context.Context, name, url string) error {
	return d.store.UpsertStream(name, url)
}

// SetStreamEnabled toggles a stream.
func (d *Daemon) SetStreamEnabled(ctx context.Context, name string, enabled bool) error {
	return d.store.SetStreamEnabled(name, enabled)
}

// RemoveStream deletes a stream, stopping its recording first when active.
func (d *Daemon) RemoveStream(ctx context.Context, name string) (bool, error) {
	d.manager.StopStream(name)
	return d.store.DeleteStream(name)
}

// UpdateSettings replaces the storage policy.
func (d *Daemon) UpdateSettings(ctx context.Context, updated settings.Settings) error {
	return d.store.UpdateSettings(updated)
}

// Settings returns the current storage policy.
func (d *Daemon) Settings(ctx context.Context) settings.Settings {
	return d.store.Settings()
}

// RecentSessions returns recent recording sessions.
func (d *Daemon) RecentSessions(ctx context.Context, limit int) ([]history.Session, error) {
	return d.history.RecentSessions(ctx, limit)
}

// SessionRecordings returns the recordings of one session.
func (d *Daemon) SessionRecordings(ctx context.Context, sessionID string) ([]history.Recording, error) {
	return d.history.SessionRecordings(ctx, sessionID)
}

// DeleteOldestVideo removes the oldest completed recording.
func (d *Daemon) DeleteOldestVideo(ctx context.Context) (string, error) {
	return d.manager.DeleteOldestVideo()
}

// FreeSpaceMB reports free space in the video directory.
func (d *Daemon) FreeSpaceMB(ctx context.Context) (int64, error) {
	return d.manager.FreeSpaceMB()
}

// TestNotification triggers a test notification using the current configuration.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if strings.TrimSpace(d.cfg.Notifications.NtfyTopic) == "" {
		return false, "ntfy topic not configured", nil
	}
	if err := d.notifier.TestNotification(ctx); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}

// LogPath returns the path to the daemon log file.
func (d *Daemon) LogPath() string {
	return d.logPath
}
