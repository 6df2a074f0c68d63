package service

import (
	"context"
	"time"

	"marketflow/internal/util"

	"go.opentelemetry.io/otel/trace"
)

// Latency simulates the network round trip of a remote API. Every service
// method waits its base delay multiplied by Scale; a zero Scale disables the
// wait.
type Latency struct {
	Scale float64
}

// NoLatency disables simulated delays
var NoLatency = Latency{}

// Wait blocks for base*Scale or until ctx is done
func (l Latency) Wait(ctx context.Context, base time.Duration) error {
	d := time.Duration(float64(base) * l.Scale)
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// call tracks one service method invocation: span, latency histogram and
// result counter.
type call struct {
	service string
	method  string
	start   time.Time
	span    trace.Span
}

func startCall(ctx context.Context, service, method string) (context.Context, *call) {
	ctx, span := util.StartSpan(ctx, service+"."+method)
	return ctx, &call{
		service: service,
		method:  method,
		start:   time.Now(),
		span:    span,
	}
}

func (c *call) end(err error) {
	util.ServiceCallLatency.WithLabelValues(c.service, c.method).Observe(time.Since(c.start).Seconds())
	util.ServiceCallsTotal.WithLabelValues(c.service, c.method, errorResult(err)).Inc()
	util.EndSpan(c.span, err)
}
