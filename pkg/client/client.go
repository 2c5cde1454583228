// Package client provides a client for connecting to the multifocusd daemon.
// It wraps the gRPC client with convenience methods and type conversions.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	focusv1 "github.com/jamesainslie/multifocus/pkg/api/focus/v1"
	"github.com/jamesainslie/multifocus/pkg/multifocus/config"
	"github.com/jamesainslie/multifocus/pkg/multifocus/engine"
)

const daemonBinary = "multifocusd"

// Client connects to the multifocusd daemon via gRPC.
type Client struct {
	conn   *grpc.ClientConn
	client focusv1.FocusControlClient
}

// DaemonPaths configures paths for daemon operations.
// Empty fields use defaults.
type DaemonPaths struct {
	Binary string // Path to multifocusd binary (auto-discovered if empty)
	Socket string // Unix socket path
	PID    string // PID file path
	Config string // Config file passed to the daemon, if any
}

// withDefaults returns a copy with empty fields filled with defaults.
func (p DaemonPaths) withDefaults() DaemonPaths {
	if p.Socket == "" {
		p.Socket = config.DefaultSocketPath()
	}
	if p.PID == "" {
		p.PID = config.DefaultPIDPath()
	}
	return p
}

// statusPath is where the daemon reports startup success or failure.
func (p DaemonPaths) statusPath() string {
	return filepath.Join(filepath.Dir(p.Socket), "multifocus.status")
}

// Connect establishes a connection to the daemon.
// Uses a default timeout of 5 seconds.
func Connect(socketPath string) (*Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return ConnectWithContext(ctx, socketPath)
}

// ConnectWithContext establishes a connection to the daemon with a custom context.
func ConnectWithContext(ctx context.Context, socketPath string) (*Client, error) {
	if _, err := os.Stat(socketPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("daemon socket not found at %s", socketPath)
	}

	//nolint:staticcheck // grpc.DialContext is deprecated but NewClient doesn't support blocking
	conn, err := grpc.DialContext(
		ctx,
		"unix://"+socketPath,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithBlock(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to daemon: %w", err)
	}

	return &Client{
		conn:   conn,
		client: focusv1.NewFocusControlClient(conn),
	}, nil
}

// Close closes the connection to the daemon.
func (c *Client) Close() error {
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// Status returns the engine snapshot.
func (c *Client) Status(ctx context.Context) (*engine.Status, error) {
	s, err := c.client.GetStatus(ctx, &emptypb.Empty{})
	if err != nil {
		return nil, fmt.Errorf("GetStatus RPC failed: %w", err)
	}
	var st engine.Status
	if err := focusv1.FromStruct(s, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// Reset restarts plan discovery.
func (c *Client) Reset(ctx context.Context) error {
	if _, err := c.client.Reset(ctx, &emptypb.Empty{}); err != nil {
		return fmt.Errorf("Reset RPC failed: %w", err)
	}
	return nil
}

// Next confirms the current manual slot.
func (c *Client) Next(ctx context.Context) error {
	if _, err := c.client.Next(ctx, &emptypb.Empty{}); err != nil {
		return fmt.Errorf("Next RPC failed: %w", err)
	}
	return nil
}

// Calibrate starts a latency measurement.
func (c *Client) Calibrate(ctx context.Context) error {
	if _, err := c.client.Calibrate(ctx, &emptypb.Empty{}); err != nil {
		return fmt.Errorf("Calibrate RPC failed: %w", err)
	}
	return nil
}

// SetWork enables or freezes the engine.
func (c *Client) SetWork(ctx context.Context, on bool) error {
	if _, err := c.client.SetWork(ctx, wrapperspb.Bool(on)); err != nil {
		return fmt.Errorf("SetWork RPC failed: %w", err)
	}
	return nil
}

// SetParams assigns named engine parameters in one call. Nothing is
// applied if any key is unknown.
func (c *Client) SetParams(ctx context.Context, params map[string]any) error {
	s, err := structpb.NewStruct(params)
	if err != nil {
		return fmt.Errorf("encode parameters: %w", err)
	}
	if _, err := c.client.SetParam(ctx, s); err != nil {
		return fmt.Errorf("SetParam RPC failed: %w", err)
	}
	return nil
}

// Plans returns the current plan text.
func (c *Client) Plans(ctx context.Context) (string, error) {
	v, err := c.client.GetPlans(ctx, &emptypb.Empty{})
	if err != nil {
		return "", fmt.Errorf("GetPlans RPC failed: %w", err)
	}
	return v.GetValue(), nil
}

// SetPlans sends plan text to be parsed with the daemon's number of plans.
func (c *Client) SetPlans(ctx context.Context, text string) (*focusv1.PlansResult, error) {
	s, err := c.client.SetPlans(ctx, wrapperspb.String(text))
	if err != nil {
		return nil, fmt.Errorf("SetPlans RPC failed: %w", err)
	}
	var res focusv1.PlansResult
	if err := focusv1.FromStruct(s, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// History returns up to limit recorded scans and calibrations. A limit of
// zero uses the daemon's default.
func (c *Client) History(ctx context.Context, limit int) (*focusv1.History, error) {
	s, err := c.client.GetHistory(ctx, wrapperspb.Int32(int32(limit))) //nolint:gosec // small limit
	if err != nil {
		return nil, fmt.Errorf("GetHistory RPC failed: %w", err)
	}
	var h focusv1.History
	if err := focusv1.FromStruct(s, &h); err != nil {
		return nil, err
	}
	return &h, nil
}

// GetDaemonStatus returns the current status of the daemon.
func (c *Client) GetDaemonStatus(ctx context.Context) (*focusv1.DaemonStatus, error) {
	s, err := c.client.GetDaemonStatus(ctx, &emptypb.Empty{})
	if err != nil {
		return nil, fmt.Errorf("GetDaemonStatus RPC failed: %w", err)
	}
	var st focusv1.DaemonStatus
	if err := focusv1.FromStruct(s, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// Shutdown requests the daemon to shut down gracefully.
func (c *Client) Shutdown(ctx context.Context) error {
	if _, err := c.client.Shutdown(ctx, &emptypb.Empty{}); err != nil {
		return fmt.Errorf("Shutdown RPC failed: %w", err)
	}
	return nil
}

// WatchEvents subscribes to engine events. The first event describes the
// current state. The channel is closed when the stream ends or ctx is
// cancelled.
func (c *Client) WatchEvents(ctx context.Context) (<-chan engine.Event, error) {
	stream, err := c.client.WatchEvents(ctx, &emptypb.Empty{})
	if err != nil {
		return nil, fmt.Errorf("WatchEvents RPC failed: %w", err)
	}

	events := make(chan engine.Event, 100)
	go func() {
		defer close(events)
		for {
			msg, err := stream.Recv()
			if err != nil {
				return // Stream closed or error
			}
			var ev engine.Event
			if err := focusv1.FromStruct(msg, &ev); err != nil {
				continue
			}
			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	return events, nil
}

// EnsureDaemon ensures the daemon is running, starting it if necessary.
// Idempotent: returns nil if daemon is already running.
func EnsureDaemon(paths DaemonPaths) error {
	return StartDaemon(paths)
}

// StartDaemon starts multifocusd in the background.
// Idempotent: returns nil if daemon is already running.
func StartDaemon(paths DaemonPaths) error {
	paths = paths.withDefaults()

	if IsDaemonRunning(paths.PID) {
		return nil
	}

	binary, err := resolveBinary(paths.Binary)
	if err != nil {
		return fmt.Errorf("find %s: %w", daemonBinary, err)
	}

	statusPath := paths.statusPath()
	_ = os.Remove(statusPath)

	var args []string
	if paths.Config != "" {
		args = append(args, "--config", paths.Config)
	}

	// Use exec.Command (not CommandContext) intentionally: daemon must outlive caller
	cmd := exec.Command(binary, args...) //nolint:gosec // binary path is validated
	cmd.Stdout = nil
	cmd.Stderr = nil
	cmd.Stdin = nil
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start daemon: %w", err)
	}
	if cmd.Process != nil {
		_ = cmd.Process.Release()
	}

	// Poll for socket OR status file
	for range 50 {
		time.Sleep(100 * time.Millisecond)

		if status, err := readStatusFile(statusPath); err == nil {
			switch status.Status {
			case "ready":
				return nil
			case "error":
				return fmt.Errorf("daemon failed to start: %s", status.Error)
			}
		}
		if _, err := os.Stat(paths.Socket); err == nil {
			return nil
		}
	}

	return errors.New("daemon did not become ready within timeout")
}

// StopDaemon stops the daemon gracefully via RPC.
// Idempotent: returns nil if daemon is not running.
func StopDaemon(paths DaemonPaths) error {
	paths = paths.withDefaults()

	if !IsDaemonRunning(paths.PID) {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := ConnectWithContext(ctx, paths.Socket)
	if err != nil {
		return fmt.Errorf("connect to daemon: %w", err)
	}
	defer client.Close()

	if err := client.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown daemon: %w", err)
	}

	for range 20 {
		time.Sleep(250 * time.Millisecond)
		if !IsDaemonRunning(paths.PID) {
			return nil
		}
	}

	return errors.New("daemon did not stop within timeout")
}

// RestartDaemon stops and starts the daemon.
func RestartDaemon(paths DaemonPaths) error {
	if err := StopDaemon(paths); err != nil {
		return fmt.Errorf("stop: %w", err)
	}
	if err := StartDaemon(paths); err != nil {
		return fmt.Errorf("start: %w", err)
	}
	return nil
}

// resolveBinary finds the multifocusd binary path.
// Priority: configured path > same directory as executable > GOBIN/GOPATH > PATH.
func resolveBinary(configured string) (string, error) {
	if configured != "" {
		path, err := config.ExpandPath(configured)
		if err != nil {
			return "", err
		}
		if _, err := os.Stat(path); err != nil {
			return "", fmt.Errorf("configured binary not found: %s", configured)
		}
		return path, nil
	}

	if execPath, err := os.Executable(); err == nil {
		candidate := filepath.Join(filepath.Dir(execPath), daemonBinary)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}

	for _, dir := range goBinDirs() {
		candidate := filepath.Join(dir, daemonBinary)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}

	if path, err := exec.LookPath(daemonBinary); err == nil {
		return path, nil
	}

	return "", fmt.Errorf("%s not found", daemonBinary)
}

// goBinDirs lists where `go install` puts binaries: GOBIN, then each
// GOPATH entry's bin, then $HOME/go/bin.
func goBinDirs() []string {
	var dirs []string
	if gobin := os.Getenv("GOBIN"); gobin != "" {
		dirs = append(dirs, gobin)
	}
	if gopath := os.Getenv("GOPATH"); gopath != "" {
		for _, p := range filepath.SplitList(gopath) {
			dirs = append(dirs, filepath.Join(p, "bin"))
		}
	}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(home, "go", "bin"))
	}
	return dirs
}

// IsDaemonRunning checks if the daemon is running based on the PID file.
func IsDaemonRunning(pidPath string) bool {
	pid, err := readPIDFile(pidPath)
	if err != nil || pid <= 0 {
		return false
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}

	// Send signal 0 to check if process exists
	return process.Signal(syscall.Signal(0)) == nil
}

func readPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

// statusFile represents the daemon startup status file.
type statusFile struct {
	Status string `json:"status"`
	PID    int    `json:"pid,omitempty"`
	Error  string `json:"error,omitempty"`
}

func readStatusFile(path string) (*statusFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var status statusFile
	if err := json.Unmarshal(data, &status); err != nil {
		return nil, err
	}
	return &status, nil
}
