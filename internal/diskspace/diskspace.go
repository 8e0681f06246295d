// Package diskspace gates recording starts on available storage. When free
// space falls below the configured floor the controller runs the configured
// remediation a bounded number of times before denying the start.
package diskspace

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"golang.org/x/sys/unix"

	"dashcam/internal/config"
	"dashcam/internal/fileutil"
	"dashcam/internal/logging"
)

// ErrOutOfSpace is returned when admission fails after remediation.
var ErrOutOfSpace = errors.New("insufficient disk space")

// Probe reports free megabytes on the filesystem containing path.
type Probe func(path string) (int64, error)

// FreeMB is the default probe, backed by statfs.
func FreeMB(path string) (int64, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return 0, fmt.Errorf("statfs %s: %w", path, err)
	}
	return int64(st.Bavail) * st.Bsize / (1 << 20), nil
}

// Policy is the admission policy in effect for one decision. It is captured
// from the settings store at decision time so concurrent edits cannot tear it.
type Policy struct {
	MinimumFreeSpaceMB int64
	OutOfSpaceAction   string
}

// Controller makes admission decisions for the video directory.
type Controller struct {
	videoDir   string
	probe      Probe
	attempts   int
	stopActive func()
	logger     *slog.Logger
}

// NewController builds a controller over videoDir. A nil probe uses statfs.
func NewController(cfg *config.Config, probe Probe, logger *slog.Logger) *Controller {
	if probe == nil {
		probe = FreeMB
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	attempts := cfg.Recording.RemediationAttempts
	if attempts <= 0 {
		attempts = 1
	}
	return &Controller{
		videoDir: cfg.Paths.VideoDir,
		probe:    probe,
		attempts: attempts,
		logger:   logging.NewComponentLogger(logger, "diskspace"),
	}
}

// SetStopActive registers the hook the stop remediation uses to terminate
// all active recordings so their writers release disk space. Without a hook
// the stop action denies immediately.
func (c *Controller) SetStopActive(fn func()) {
	c.stopActive = fn
}

// Free reports current free space in megabytes.
func (c *Controller) Free() (int64, error) {
	return c.probe(c.videoDir)
}

// Admit decides whether a recording for stream may start under policy.
// When space is short the configured remediation runs and the check repeats,
// at most the configured number of times: delete_oldest removes one completed
// recording per attempt, stop terminates all active recordings so their
// writers release space. Paths in activeOutputs are never deletion candidates.
//
// A denial applies only to the stream being admitted.
func (c *Controller) Admit(stream string, policy Policy, activeOutputs []string) error {
	for attempt := 0; ; attempt++ {
		free, err := c.probe(c.videoDir)
		if err != nil {
			return fmt.Errorf("check free space: %w", err)
		}
		if free >= policy.MinimumFreeSpaceMB {
			if attempt > 0 {
				c.logger.Info("space recovered after remediation",
					logging.String("stream", stream),
					logging.Int64("free_mb", free),
					logging.Int("attempts", attempt))
			}
			return nil
		}
		if attempt >= c.attempts {
			c.logger.Warn("recording denied, remediation budget exhausted",
				logging.String("stream", stream),
				logging.Int64("free_mb", free),
				logging.Int("attempts", attempt))
			return fmt.Errorf("%w after %d remediation attempts: %d MB free, %d MB required",
				ErrOutOfSpace, attempt, free, policy.MinimumFreeSpaceMB)
		}

		switch policy.OutOfSpaceAction {
		case config.OutOfSpaceActionDeleteOldest:
			removed, err := c.deleteOldest(activeOutputs)
			if err != nil {
				return err
			}
			if removed == "" {
				c.logger.Warn("recording denied, no completed recordings to delete",
					logging.String("stream", stream),
					logging.Int64("free_mb", free))
				return fmt.Errorf("%w: nothing left to delete", ErrOutOfSpace)
			}
		case config.OutOfSpaceActionStop:
			if c.stopActive == nil {
				c.logger.Warn("recording denied, disk space below floor",
					logging.String("stream", stream),
					logging.Int64("free_mb", free),
					logging.Int64("minimum_mb", policy.MinimumFreeSpaceMB))
				return fmt.Errorf("%w: %d MB free, %d MB required", ErrOutOfSpace, free, policy.MinimumFreeSpaceMB)
			}
			c.logger.Warn("stopping active recordings to free space",
				logging.String("stream", stream),
				logging.Int64("free_mb", free),
				logging.Int64("minimum_mb", policy.MinimumFreeSpaceMB))
			c.stopActive()
		default:
			c.logger.Warn("recording denied, disk space below floor",
				logging.String("stream", stream),
				logging.Int64("free_mb", free),
				logging.Int64("minimum_mb", policy.MinimumFreeSpaceMB))
			return fmt.Errorf("%w: %d MB free, %d MB required", ErrOutOfSpace, free, policy.MinimumFreeSpaceMB)
		}
	}
}

func (c *Controller) deleteOldest(activeOutputs []string) (string, error) {
	oldest, err := fileutil.OldestVideo(c.videoDir, activeOutputs)
	if err != nil {
		return "", fmt.Errorf("find oldest recording: %w", err)
	}
	if oldest == "" {
		return "", nil
	}
	if err := os.Remove(oldest); err != nil {
		return "", fmt.Errorf("delete oldest recording: %w", err)
	}
	c.logger.Info("deleted oldest recording to free space", logging.String("path", oldest))
	return oldest, nil
}

// DeleteOldest removes the oldest completed recording on explicit request
// from the API or CLI. Returns the removed path, or "" when none existed.
func (c *Controller) DeleteOldest(activeOutputs []string) (string, error) {
	return c.deleteOldest(activeOutputs)
}
