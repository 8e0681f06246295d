package recorder

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"sync"
)

// LaunchSpec describes one recording process.
type LaunchSpec struct {
	InputURL       string
	OutputPattern  string // path containing a %03d segment counter
	SegmentSeconds int
}

// Handle controls a launched recording process.
type Handle interface {
	// Interrupt requests a graceful shutdown so ffmpeg finalizes the
	// current segment.
	Interrupt() error
	// Kill terminates the process immediately.
	Kill() error
	// Done yields the process exit error once and is then closed.
	Done() <-chan error
}

// Pipeline launches recording processes. Abstracted for testability.
type Pipeline interface {
	Launch(spec LaunchSpec, onLine func(string)) (Handle, error)
}

// ffmpegPipeline runs the real ffmpeg binary. Video is copied without
// re-encoding and audio is dropped; output is segmented so a crash loses at
// most one segment.
type ffmpegPipeline struct {
	binary string
}

// NewFFmpegPipeline returns the production pipeline.
func NewFFmpegPipeline(binary string) Pipeline {
	return &ffmpegPipeline{binary: binary}
}

func (p *ffmpegPipeline) Launch(spec LaunchSpec, onLine func(string)) (Handle, error) {
	args := []string{
		"-nostdin",
		"-i", spec.InputURL,
		"-c:v", "copy",
		"-an",
		"-f", "segment",
		"-segment_time", strconv.Itoa(spec.SegmentSeconds),
		"-segment_format", "mp4",
		"-reset_timestamps", "1",
		spec.OutputPattern,
	}

	cmd := exec.Command(p.binary, args...) //nolint:gosec
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", p.binary, err)
	}

	var wg sync.WaitGroup
	scan := func(r io.Reader) {
		defer wg.Done()
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), 256*1024)
		for scanner.Scan() {
			if onLine != nil {
				onLine(scanner.Text())
			}
		}
	}
	wg.Add(2)
	go scan(stdout)
	go scan(stderr)

	done := make(chan error, 1)
	go func() {
		wg.Wait()
		done <- cmd.Wait()
		close(done)
	}()

	return &processHandle{cmd: cmd, done: done}, nil
}

type processHandle struct {
	cmd  *exec.Cmd
	done chan error
}

func (h *processHandle) Interrupt() error {
	return h.cmd.Process.Signal(os.Interrupt)
}

func (h *processHandle) Kill() error {
	return h.cmd.Process.Kill()
}

func (h *processHandle) Done() <-chan error {
	return h.done
}
