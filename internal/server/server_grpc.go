package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/izzyreal/bbdash/internal/server/grpcapi"
)

const (
	minWatchInterval = 250 * time.Millisecond
	maxWatchInterval = 60 * time.Second
)

// dashboardGRPCServer serves the gRPC API by replaying requests through the
// HTTP router, so both surfaces render identical documents.
type dashboardGRPCServer struct {
	grpcapi.UnimplementedDashboardServiceServer
	router   http.Handler
	watchers *notifier
	interval time.Duration
}

func newDashboardGRPCServer(router http.Handler, watchers *notifier, interval time.Duration) *dashboardGRPCServer {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &dashboardGRPCServer{router: router, watchers: watchers, interval: interval}
}

func (g *dashboardGRPCServer) GetServerInfo(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return g.invokeStruct(ctx, http.MethodGet, "/api/v1/server-info", nil)
}

func (g *dashboardGRPCServer) GetDashboard(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return g.invokeStruct(ctx, http.MethodGet, "/api/v1/dashboard", nil)
}

func (g *dashboardGRPCServer) WatchDashboard(req *structpb.Struct, stream grpc.ServerStreamingServer[structpb.Struct]) error {
	ctx := stream.Context()

	interval := g.interval
	if v, ok := req.GetFields()["interval_ms"]; ok {
		if ms := int64(v.GetNumberValue()); ms > 0 {
			interval = time.Duration(ms) * time.Millisecond
		}
	}
	interval = min(max(interval, minWatchInterval), maxWatchInterval)

	var changed <-chan struct{}
	if g.watchers != nil {
		ch, unsubscribe := g.watchers.subscribe()
		defer unsubscribe()
		changed = ch
	}

	streamID := "watch-" + uuid.NewString()
	seq := int64(0)
	sendSnapshot := func() error {
		seq++
		serverInfo, err := g.GetServerInfo(ctx, &emptypb.Empty{})
		if err != nil {
			return err
		}
		dashboard, err := g.GetDashboard(ctx, &emptypb.Empty{})
		if err != nil {
			return err
		}
		evt, err := structpb.NewStruct(map[string]any{
			"stream_id": streamID,
			"seq":       seq,
			"sent_utc":  time.Now().UTC().Format(time.RFC3339Nano),
		})
		if err != nil {
			return status.Errorf(codes.Internal, "build watch event: %v", err)
		}
		evt.Fields["server_info"] = structpb.NewStructValue(serverInfo)
		evt.Fields["dashboard"] = structpb.NewStructValue(dashboard)
		return stream.Send(evt)
	}

	if err := sendSnapshot(); err != nil {
		return err
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		case <-changed:
		}
		if err := sendSnapshot(); err != nil {
			return err
		}
	}
}

func (g *dashboardGRPCServer) invokeStruct(ctx context.Context, method, targetPath string, body map[string]any) (*structpb.Struct, error) {
	raw, err := g.invokeJSON(ctx, method, targetPath, body)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return &structpb.Struct{Fields: map[string]*structpb.Value{}}, nil
	}
	out, err := grpcapi.StructFromJSON(raw)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "decode JSON response: %v", err)
	}
	return out, nil
}

func (g *dashboardGRPCServer) invokeJSON(ctx context.Context, method, targetPath string, body map[string]any) ([]byte, error) {
	if g == nil || g.router == nil {
		return nil, status.Error(codes.Internal, "gRPC bridge is not initialized")
	}

	var payload io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, status.Errorf(codes.InvalidArgument, "marshal request body: %v", err)
		}
		payload = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, targetPath, payload).WithContext(ctx)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if values := md.Get("authorization"); len(values) > 0 {
			req.Header.Set("Authorization", values[0])
		}
	}
	w := httptest.NewRecorder()
	g.router.ServeHTTP(w, req)

	resp := w.Result()
	defer resp.Body.Close()
	rawBody, _ := io.ReadAll(resp.Body)
	trimmed := strings.TrimSpace(string(rawBody))
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		if trimmed == "" {
			trimmed = http.StatusText(resp.StatusCode)
		}
		return nil, status.Errorf(httpStatusToGRPCCode(resp.StatusCode), "http %d: %s", resp.StatusCode, trimmed)
	}
	return rawBody, nil
}

func httpStatusToGRPCCode(statusCode int) codes.Code {
	switch statusCode {
	case http.StatusBadRequest:
		return codes.InvalidArgument
	case http.StatusUnauthorized:
		return codes.Unauthenticated
	case http.StatusForbidden:
		return codes.PermissionDenied
	case http.StatusNotFound:
		return codes.NotFound
	case http.StatusConflict:
		return codes.FailedPrecondition
	case http.StatusTooManyRequests:
		return codes.ResourceExhausted
	case http.StatusMethodNotAllowed:
		return codes.Unimplemented
	default:
		if statusCode >= 500 {
			return codes.Internal
		}
		return codes.Unknown
	}
}
