package ipc

import (
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"
)

// Client provides RPC access to the daemon.
type Client struct {
	conn   net.Conn
	client *rpc.Client
}

// Dial connects to the IPC server at the given socket path.
func Dial(path string) (*Client, error) {
	conn, err := net.DialTimeout("unix", path, 2*time.Second)
	if err != nil {
		return nil, err
	}
	rpcClient := rpc.NewClientWithCodec(jsonrpc.NewClientCodec(conn))
	return &Client{conn: conn, client: rpcClient}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	if c.client != nil {
		_ = c.client.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// Start requests the daemon to start.
func (c *Client) Start() (*StartResponse, error) {
	var resp StartResponse
	if err := c.client.Call("Dashcam.Start", StartRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Stop requests the daemon to stop.
func (c *Client) Stop() (*StopResponse, error) {
	var resp StopResponse
	if err := c.client.Call("Dashcam.Stop", StopRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Status retrieves the daemon status.
func (c *Client) Status() (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.client.Call("Dashcam.Status", StatusRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// StreamList returns configured camera streams.
func (c *Client) StreamList() (*StreamListResponse, error) {
	var resp StreamListResponse
	if err := c.client.Call("Dashcam.StreamList", StreamListRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// StreamAdd adds or updates a camera stream.
func (c *Client) StreamAdd(name, url string) (*StreamAddResponse, error) {
	var resp StreamAddResponse
	req := StreamAddRequest{Name: name, URL: url}
	if err := c.client.Call("Dashcam.StreamAdd", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// StreamEnable toggles a camera stream.
func (c *Client) StreamEnable(name string, enabled bool) (*StreamEnableResponse, error) {
	var resp StreamEnableResponse
	req := StreamEnableRequest{Name: name, Enabled: enabled}
	if err := c.client.Call("Dashcam.StreamEnable", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// StreamRemove deletes a camera stream.
func (c *Client) StreamRemove(name string) (*StreamRemoveResponse, error) {
	var resp StreamRemoveResponse
	req := StreamRemoveRequest{Name: name}
	if err := c.client.Call("Dashcam.StreamRemove", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Settings retrieves the storage policy.
func (c *Client) Settings() (*SettingsResponse, error) {
	var resp SettingsResponse
	if err := c.client.Call("Dashcam.Settings", SettingsRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SettingsUpdate replaces the storage policy.
func (c *Client) SettingsUpdate(req SettingsUpdateRequest) (*SettingsUpdateResponse, error) {
	var resp SettingsUpdateResponse
	if err := c.client.Call("Dashcam.SettingsUpdate", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Sessions returns recent recording sessions.
func (c *Client) Sessions(limit int) (*SessionListResponse, error) {
	var resp SessionListResponse
	req := SessionListRequest{Limit: limit}
	if err := c.client.Call("Dashcam.Sessions", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SessionRecordings returns the recordings of one session.
func (c *Client) SessionRecordings(sessionID string) (*SessionRecordingsResponse, error) {
	var resp SessionRecordingsResponse
	req := SessionRecordingsRequest{SessionID: sessionID}
	if err := c.client.Call("Dashcam.SessionRecordings", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DiskSpace returns free space and the storage policy.
func (c *Client) DiskSpace() (*DiskSpaceResponse, error) {
	var resp DiskSpaceResponse
	if err := c.client.Call("Dashcam.DiskSpace", DiskSpaceRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DeleteOldest removes the oldest completed recording.
func (c *Client) DeleteOldest() (*DeleteOldestResponse, error) {
	var resp DeleteOldestResponse
	if err := c.client.Call("Dashcam.DeleteOldest", DeleteOldestRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// LogTail returns log lines from the daemon.
func (c *Client) LogTail(req LogTailRequest) (*LogTailResponse, error) {
	var resp LogTailResponse
	if err := c.client.Call("Dashcam.LogTail", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// TestNotification triggers a notification test via the daemon.
func (c *Client) TestNotification() (*TestNotificationResponse, error) {
	var resp TestNotificationResponse
	if err := c.client.Call("Dashcam.TestNotification", TestNotificationRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
