package daemon

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/status"

	focusv1 "github.com/jamesainslie/multifocus/pkg/api/focus/v1"
	"github.com/jamesainslie/multifocus/pkg/multifocus/logging"
)

// Config holds server configuration.
type Config struct {
	SocketPath string
}

// Server is the multifocusd gRPC server.
type Server struct {
	cfg      Config
	grpc     *grpc.Server
	listener net.Listener
}

// NewServer listens on the configured unix socket and registers svc.
func NewServer(cfg Config, svc focusv1.FocusControlServer) (*Server, error) {
	// Remove stale socket if exists
	if err := os.RemoveAll(cfg.SocketPath); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(cfg.SocketPath), 0o755); err != nil {
		return nil, err
	}

	var lc net.ListenConfig
	listener, err := lc.Listen(context.Background(), "unix", cfg.SocketPath)
	if err != nil {
		return nil, err
	}

	srv := &Server{
		cfg:      cfg,
		grpc:     grpc.NewServer(grpc.ChainUnaryInterceptor(logUnary)),
		listener: listener,
	}
	focusv1.RegisterFocusControlServer(srv.grpc, svc)

	return srv, nil
}

// Serve starts the gRPC server. Blocks until stopped.
func (s *Server) Serve() error {
	return s.grpc.Serve(s.listener)
}

// Shutdown lets in-flight calls finish, falling back to Stop when they
// take longer than timeout, then removes the socket.
func (s *Server) Shutdown(timeout time.Duration) error {
	done := make(chan struct{})
	go func() {
		s.grpc.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
		logging.Get("daemon").Warn("graceful stop timed out, closing connections", "timeout", timeout)
		s.grpc.Stop()
		<-done
	}
	return os.RemoveAll(s.cfg.SocketPath)
}

// Stop closes open streams immediately.
func (s *Server) Stop() error {
	s.grpc.Stop()
	return os.RemoveAll(s.cfg.SocketPath)
}

func logUnary(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	log := logging.Get("rpc")
	if err != nil {
		log.Warn("rpc failed", "method", info.FullMethod, "code", status.Code(err), "error", err,
			"duration", time.Since(start))
	} else {
		log.Debug("rpc", "method", info.FullMethod, "duration", time.Since(start))
	}
	return resp, err
}
