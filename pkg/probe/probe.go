// Package probe checks whether a backing content service is reachable before
// a boundary declares a retry successful.
package probe

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"

	"github.com/Goden-Gun/resilience-lib/pkg/tracing"
)

// ErrUnreachable is returned when a check completes but reports the target down.
var ErrUnreachable = errors.New("probe: target unreachable")

// Status is the outcome of one check.
type Status struct {
	Target    string
	Connected bool
	Latency   time.Duration
	Detail    string
}

// Probe reports connectivity. An error or Connected == false both mean a
// retry is not yet viable.
type Probe interface {
	Check(ctx context.Context) (Status, error)
}

// Func adapts a function to Probe.
type Func func(ctx context.Context) (Status, error)

func (f Func) Check(ctx context.Context) (Status, error) { return f(ctx) }

// Verify runs p and folds a disconnected status into ErrUnreachable.
func Verify(ctx context.Context, p Probe) (Status, error) {
	st, err := p.Check(ctx)
	if err != nil {
		return st, err
	}
	if !st.Connected {
		if st.Detail != "" {
			return st, fmt.Errorf("%w: %s", ErrUnreachable, st.Detail)
		}
		return st, ErrUnreachable
	}
	return st, nil
}

// GRPCHealth checks a service through the standard gRPC health protocol.
func GRPCHealth(conn grpc.ClientConnInterface, service string) Probe {
	client := healthpb.NewHealthClient(conn)
	return Func(func(ctx context.Context) (Status, error) {
		start := time.Now()
		md, _ := metadata.FromOutgoingContext(ctx)
		ctx = metadata.NewOutgoingContext(ctx, tracing.InjectMetadata(ctx, md.Copy()))

		resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: service})
		st := Status{Target: "grpc:" + service, Latency: time.Since(start)}
		if err != nil {
			return st, err
		}
		st.Detail = resp.GetStatus().String()
		st.Connected = resp.GetStatus() == healthpb.HealthCheckResponse_SERVING
		return st, nil
	})
}

// Pinger is the subset of a redis client used by Redis.
type Pinger interface {
	Ping(ctx context.Context) *redis.StatusCmd
}

// Redis checks a redis server with PING.
func Redis(client Pinger) Probe {
	return Func(func(ctx context.Context) (Status, error) {
		start := time.Now()
		res, err := client.Ping(ctx).Result()
		st := Status{Target: "redis", Latency: time.Since(start), Detail: res}
		if err != nil {
			return st, err
		}
		st.Connected = res == "PONG"
		return st, nil
	})
}

// HTTP issues a GET and treats any 2xx/3xx answer as connected.
func HTTP(client *http.Client, url string) Probe {
	if client == nil {
		client = http.DefaultClient
	}
	return Func(func(ctx context.Context) (Status, error) {
		start := time.Now()
		st := Status{Target: url}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return st, err
		}
		tracing.InjectHTTP(ctx, req.Header)
		resp, err := client.Do(req)
		st.Latency = time.Since(start)
		if err != nil {
			return st, err
		}
		_ = resp.Body.Close()
		st.Detail = resp.Status
		st.Connected = resp.StatusCode < 400
		return st, nil
	})
}
