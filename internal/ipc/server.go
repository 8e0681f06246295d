package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"strings"
	"sync"
	"time"

	"log/slog"

	"dashcam/internal/daemon"
	"dashcam/internal/logging"
	"dashcam/internal/logs"
	"dashcam/internal/settings"
)

// Server exposes daemon control via JSON-RPC over a Unix domain socket.
type Server struct {
	path      string
	daemon    *daemon.Daemon
	logger    *slog.Logger
	listener  net.Listener
	rpcServer *rpc.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer configures the IPC server at the given socket path.
func NewServer(ctx context.Context, path string, d *daemon.Daemon, logger *slog.Logger) (*Server, error) {
	if d == nil {
		return nil, errors.New("ipc server requires daemon")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	rpcServer := rpc.NewServer()
	srv := &service{daemon: d, logger: logger, ctx: ctx}
	if err := rpcServer.RegisterName("Dashcam", srv); err != nil {
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	return &Server{
		path:      path,
		daemon:    d,
		logger:    logger,
		listener:  listener,
		rpcServer: rpcServer,
		ctx:       serverCtx,
		cancel:    cancel,
	}, nil
}

// Serve starts accepting RPC connections until the context is canceled.
func (s *Server) Serve() {
	s.logger.Debug("ipc server listening", logging.String("socket", s.path))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				select {
				case <-s.ctx.Done():
					return
				default:
				}
				s.logger.Warn("accept failed", logging.Error(err))
				continue
			}
			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(c))
			}(conn)
		}
	}()
}

// Close stops the server and removes the socket file.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.wg.Wait()
	if err := os.RemoveAll(s.path); err != nil {
		s.logger.Warn("failed to remove socket",
			logging.String("socket", s.path),
			logging.Error(err))
	}
}

type service struct {
	daemon *daemon.Daemon
	logger *slog.Logger
	ctx    context.Context
}

func (s *service) log() *slog.Logger {
	if s.logger == nil {
		return logging.NewNop()
	}
	return s.logger.With(logging.String(logging.FieldComponent, "ipc"))
}

func (s *service) Start(_ StartRequest, resp *StartResponse) error {
	s.log().Debug("daemon start requested")
	if err := s.daemon.Start(s.ctx); err != nil {
		resp.Started = false
		resp.Message = err.Error()
		return nil
	}
	resp.Started = true
	resp.Message = "daemon started"
	return nil
}

func (s *service) Stop(_ StopRequest, resp *StopResponse) error {
	s.log().Debug("daemon stop requested")
	s.daemon.Stop()
	resp.Stopped = true
	return nil
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	status := s.daemon.Status(s.ctx)
	resp.Running = status.Running
	resp.Armed = status.Armed
	resp.BaseFilename = status.BaseFilename
	resp.FreeSpaceMB = status.FreeSpaceMB
	resp.MinimumFreeSpaceMB = status.MinimumFreeSpaceMB
	resp.OutOfSpaceAction = status.OutOfSpaceAction
	resp.HistoryDBPath = status.HistoryDBPath
	resp.SettingsPath = status.SettingsPath
	resp.LockPath = status.LockFilePath
	resp.ActiveStreams = make([]ActiveStream, 0, len(status.ActiveStreams))
	for _, stream := range status.ActiveStreams {
		resp.ActiveStreams = append(resp.ActiveStreams, ActiveStream{
			Stream:       stream.Stream,
			State:        string(stream.State),
			OutputPrefix: stream.OutputPrefix,
			StartedAt:    stream.StartedAt.UTC().Format(time.RFC3339),
		})
	}
	return nil
}

func (s *service) StreamList(_ StreamListRequest, resp *StreamListResponse) error {
	streams := s.daemon.ListStreams(s.ctx)
	resp.Streams = make([]Stream, 0, len(streams))
	for _, stream := range streams {
		resp.Streams = append(resp.Streams, Stream{
			Name:    stream.Name,
			URL:     stream.URL,
			Enabled: stream.Enabled,
		})
	}
	return nil
}

func (s *service) StreamAdd(req StreamAddRequest, resp *StreamAddResponse) error {
	if err := s.daemon.AddStream(s.ctx, req.Name, req.URL); err != nil {
		return err
	}
	stream, err := s.findStream(strings.TrimSpace(req.Name))
	if err != nil {
		return err
	}
	resp.Stream = stream
	return nil
}

func (s *service) StreamEnable(req StreamEnableRequest, resp *StreamEnableResponse) error {
	if err := s.daemon.SetStreamEnabled(s.ctx, req.Name, req.Enabled); err != nil {
		return err
	}
	stream, err := s.findStream(strings.TrimSpace(req.Name))
	if err != nil {
		return err
	}
	resp.Stream = stream
	return nil
}

func (s *service) StreamRemove(req StreamRemoveRequest, resp *StreamRemoveResponse) error {
	removed, err := s.daemon.RemoveStream(s.ctx, req.Name)
	if err != nil {
		return err
	}
	resp.Removed = removed
	return nil
}

func (s *service) Settings(_ SettingsRequest, resp *SettingsResponse) error {
	current := s.daemon.Settings(s.ctx)
	*resp = settingsResponse(current)
	return nil
}

func (s *service) SettingsUpdate(req SettingsUpdateRequest, resp *SettingsUpdateResponse) error {
	err := s.daemon.UpdateSettings(s.ctx, settings.Settings{
		MinimumFreeSpaceMB: req.MinimumFreeSpaceMB,
		OutOfSpaceAction:   req.OutOfSpaceAction,
		SegmentSeconds:     req.SegmentSeconds,
	})
	if err != nil {
		return err
	}
	resp.Settings = settingsResponse(s.daemon.Settings(s.ctx))
	return nil
}

func (s *service) Sessions(req SessionListRequest, resp *SessionListResponse) error {
	sessions, err := s.daemon.RecentSessions(s.ctx, req.Limit)
	if err != nil {
		return err
	}
	resp.Sessions = make([]Session, 0, len(sessions))
	for _, session := range sessions {
		entry := Session{
			ID:           session.ID,
			BaseFilename: session.BaseFilename,
			ArmedAt:      session.ArmedAt.UTC().Format(time.RFC3339),
			Recordings:   session.Recordings,
		}
		if session.DisarmedAt != nil {
			entry.DisarmedAt = session.DisarmedAt.UTC().Format(time.RFC3339)
		}
		resp.Sessions = append(resp.Sessions, entry)
	}
	return nil
}

func (s *service) SessionRecordings(req SessionRecordingsRequest, resp *SessionRecordingsResponse) error {
	if strings.TrimSpace(req.SessionID) == "" {
		return errors.New("session id is required")
	}
	recordings, err := s.daemon.SessionRecordings(s.ctx, req.SessionID)
	if err != nil {
		return err
	}
	resp.Recordings = make([]Recording, 0, len(recordings))
	for _, rec := range recordings {
		entry := Recording{
			Stream:       rec.Stream,
			OutputPrefix: rec.OutputPrefix,
			StartedAt:    rec.StartedAt.UTC().Format(time.RFC3339),
			Outcome:      rec.Outcome,
		}
		if rec.EndedAt != nil {
			entry.EndedAt = rec.EndedAt.UTC().Format(time.RFC3339)
		}
		resp.Recordings = append(resp.Recordings, entry)
	}
	return nil
}

func (s *service) DiskSpace(_ DiskSpaceRequest, resp *DiskSpaceResponse) error {
	free, err := s.daemon.FreeSpaceMB(s.ctx)
	if err != nil {
		return err
	}
	current := s.daemon.Settings(s.ctx)
	resp.FreeMB = free
	resp.MinimumFreeSpaceMB = current.MinimumFreeSpaceMB
	resp.OutOfSpaceAction = current.OutOfSpaceAction
	return nil
}

func (s *service) DeleteOldest(_ DeleteOldestRequest, resp *DeleteOldestResponse) error {
	removed, err := s.daemon.DeleteOldestVideo(s.ctx)
	if err != nil {
		return err
	}
	resp.Deleted = removed
	return nil
}

func (s *service) LogTail(req LogTailRequest, resp *LogTailResponse) error {
	logPath := s.daemon.LogPath()
	if logPath == "" {
		resp.Offset = 0
		return nil
	}
	wait := time.Duration(req.WaitMillis) * time.Millisecond
	if wait <= 0 && req.Follow {
		wait = time.Second
	}
	options := logs.TailOptions{
		Offset: req.Offset,
		Limit:  req.Limit,
		Follow: req.Follow,
		Wait:   wait,
	}
	ctx := s.ctx
	if req.Follow && wait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(s.ctx, wait+500*time.Millisecond)
		defer cancel()
	}
	result, err := logs.Tail(ctx, logPath, options)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			resp.Offset = result.Offset
			return nil
		}
		return err
	}
	resp.Lines = result.Lines
	resp.Offset = result.Offset
	return nil
}

func (s *service) TestNotification(_ TestNotificationRequest, resp *TestNotificationResponse) error {
	sent, message, err := s.daemon.TestNotification(s.ctx)
	resp.Sent = sent
	resp.Message = message
	return err
}

func (s *service) findStream(name string) (Stream, error) {
	for _, stream := range s.daemon.ListStreams(s.ctx) {
		if stream.Name == name {
			return Stream{Name: stream.Name, URL: stream.URL, Enabled: stream.Enabled}, nil
		}
	}
	return Stream{}, fmt.Errorf("stream %q not found", name)
}

func settingsResponse(current settings.Settings) SettingsResponse {
	return SettingsResponse{
		MinimumFreeSpaceMB: current.MinimumFreeSpaceMB,
		OutOfSpaceAction:   current.OutOfSpaceAction,
		SegmentSeconds:     current.SegmentSeconds,
	}
}
