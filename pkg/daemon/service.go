package daemon

import (
	"context"
	"os"
	"runtime"
	"slices"
	"sort"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	focusv1 "github.com/jamesainslie/multifocus/pkg/api/focus/v1"
	"github.com/jamesainslie/multifocus/pkg/daemon/broadcaster"
	"github.com/jamesainslie/multifocus/pkg/daemon/store"
	"github.com/jamesainslie/multifocus/pkg/multifocus/engine"
	"github.com/jamesainslie/multifocus/pkg/multifocus/logging"
)

// DefaultHistoryLimit is used when GetHistory is called without a limit.
const DefaultHistoryLimit = 20

// ServiceConfig wires a Service to the running daemon.
type ServiceConfig struct {
	Engine      *engine.Engine
	Store       *store.Store
	Broadcaster *broadcaster.Broadcaster

	// Info fills the rig-specific part of GetDaemonStatus.
	Info func() focusv1.DaemonStatus
	// Shutdown is called, asynchronously, when a client asks the daemon
	// to stop.
	Shutdown func()
}

// Service implements the FocusControl gRPC service.
type Service struct {
	focusv1.UnimplementedFocusControlServer

	engine      *engine.Engine
	settings    *engine.Settings
	store       *store.Store
	broadcaster *broadcaster.Broadcaster
	info        func() focusv1.DaemonStatus
	shutdown    func()
	startTime   time.Time
}

// NewService creates a new gRPC service. Store and Broadcaster may be nil;
// the RPCs that need them then answer Unavailable.
func NewService(cfg ServiceConfig) *Service {
	return &Service{
		engine:      cfg.Engine,
		settings:    cfg.Engine.Settings(),
		store:       cfg.Store,
		broadcaster: cfg.Broadcaster,
		info:        cfg.Info,
		shutdown:    cfg.Shutdown,
		startTime:   time.Now(),
	}
}

// Reset restarts plan discovery.
func (s *Service) Reset(_ context.Context, _ *emptypb.Empty) (*emptypb.Empty, error) {
	logging.Get("daemon").Info("reset requested")
	s.settings.Reset()
	return &emptypb.Empty{}, nil
}

// Next confirms the current manual slot.
func (s *Service) Next(_ context.Context, _ *emptypb.Empty) (*emptypb.Empty, error) {
	s.settings.Next()
	return &emptypb.Empty{}, nil
}

// Calibrate starts a latency measurement.
func (s *Service) Calibrate(_ context.Context, _ *emptypb.Empty) (*emptypb.Empty, error) {
	logging.Get("daemon").Info("calibration requested")
	s.settings.Calibrate()
	return &emptypb.Empty{}, nil
}

// SetWork enables or freezes the engine.
func (s *Service) SetWork(_ context.Context, req *wrapperspb.BoolValue) (*emptypb.Empty, error) {
	s.settings.SetWork(req.GetValue())
	return &emptypb.Empty{}, nil
}

// SetParam assigns named parameters. Keys are validated before any is
// applied, and they are applied in declaration order so number_of_plans
// takes effect before plans.
func (s *Service) SetParam(_ context.Context, req *structpb.Struct) (*emptypb.Empty, error) {
	values := make(map[string]any, len(req.GetFields()))
	for k, v := range req.AsMap() {
		key := strings.ToLower(strings.TrimSpace(k))
		if !slices.Contains(engine.Keys, key) {
			return nil, status.Errorf(codes.InvalidArgument, "unknown parameter %q (valid: %s)",
				k, strings.Join(paramKeys(), ", "))
		}
		values[key] = v
	}

	log := logging.Get("daemon")
	for _, key := range engine.Keys {
		v, ok := values[key]
		if !ok {
			continue
		}
		if err := s.settings.Set(key, v); err != nil {
			return nil, status.Error(codes.InvalidArgument, err.Error())
		}
		log.Debug("parameter set", "key", key, "value", v)
	}
	return &emptypb.Empty{}, nil
}

// GetStatus returns the engine snapshot.
func (s *Service) GetStatus(_ context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return toStruct(s.engine.Status())
}

// GetPlans returns the current plan text.
func (s *Service) GetPlans(_ context.Context, _ *emptypb.Empty) (*wrapperspb.StringValue, error) {
	return wrapperspb.String(s.settings.Plans()), nil
}

// SetPlans parses plan text with the current number of plans.
func (s *Service) SetPlans(_ context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	res := s.settings.SetPlans(req.GetValue())
	logging.Get("daemon").Info("plans set", "text", req.GetValue(), "parsed", res.Parsed)
	return toStruct(focusv1.PlansResult{
		Parsed:  res.Parsed,
		Plans:   s.settings.Plans(),
		Adopted: res.Parsed > 0,
	})
}

// GetHistory returns recorded scans and calibrations, newest first.
func (s *Service) GetHistory(_ context.Context, req *wrapperspb.Int32Value) (*structpb.Struct, error) {
	if s.store == nil {
		return nil, status.Error(codes.Unavailable, "history store not available")
	}
	limit := int(req.GetValue())
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	scans, err := s.store.Scans(limit)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "reading scans: %v", err)
	}
	calibrations, err := s.store.Calibrations(limit)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "reading calibrations: %v", err)
	}

	h := focusv1.History{
		Scans:        make([]engine.ScanReport, 0, len(scans)),
		Calibrations: calibrations,
	}
	for _, r := range scans {
		h.Scans = append(h.Scans, *r)
	}
	if h.Calibrations == nil {
		h.Calibrations = []engine.CalibrationResult{}
	}
	return toStruct(h)
}

// GetDaemonStatus returns daemon health information.
func (s *Service) GetDaemonStatus(_ context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	var st focusv1.DaemonStatus
	if s.info != nil {
		st = s.info()
	}
	st.Running = true
	st.PID = os.Getpid()
	st.UptimeSeconds = int64(time.Since(s.startTime).Seconds())
	st.MemoryBytes = mem.Alloc
	st.Disabled = s.engine.Disabled()
	if s.broadcaster != nil {
		st.Subscribers = s.broadcaster.SubscriberCount()
	}
	return toStruct(st)
}

// Shutdown gracefully shuts down the daemon.
func (s *Service) Shutdown(_ context.Context, _ *emptypb.Empty) (*emptypb.Empty, error) {
	logging.Get("daemon").Info("shutdown requested")
	if s.shutdown != nil {
		go s.shutdown()
	}
	return &emptypb.Empty{}, nil
}

// WatchEvents streams engine events. The first message is a
// state_changed event describing the current status.
func (s *Service) WatchEvents(_ *emptypb.Empty, stream grpc.ServerStreamingServer[structpb.Struct]) error {
	if s.broadcaster == nil {
		return status.Error(codes.Unavailable, "event watching not available")
	}

	sub := s.broadcaster.Subscribe()
	if sub == nil {
		return status.Error(codes.Unavailable, "failed to subscribe")
	}
	defer s.broadcaster.Unsubscribe(sub.ID)

	st := s.engine.Status()
	first := engine.Event{
		Kind:      engine.EventStateChanged,
		Time:      st.UpdatedAt,
		State:     st.State,
		Plans:     st.Plans,
		PlansText: st.PlansText,
	}
	if err := sendEvent(stream, first); err != nil {
		return err
	}

	ctx := stream.Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-sub.Events:
			if !ok {
				return nil
			}
			if err := sendEvent(stream, ev); err != nil {
				return err
			}
		}
	}
}

func sendEvent(stream grpc.ServerStreamingServer[structpb.Struct], ev engine.Event) error {
	msg, err := toStruct(ev)
	if err != nil {
		return err
	}
	return stream.Send(msg)
}

func toStruct(v any) (*structpb.Struct, error) {
	msg, err := focusv1.ToStruct(v)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return msg, nil
}

// paramKeys lists the accepted SetParam keys, sorted.
func paramKeys() []string {
	keys := slices.Clone(engine.Keys)
	sort.Strings(keys)
	return keys
}
