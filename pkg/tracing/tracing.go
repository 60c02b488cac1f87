// Package tracing propagates trace context across the transports used by
// probes, sinks and the HTTP surface.
package tracing

import (
	"context"
	"net/http"

	"github.com/IBM/sarama"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc/metadata"
)

const traceMetadataKey = "x-trace-id"

var propagator = propagation.TraceContext{}

// InjectMetadata injects tracing context into gRPC metadata.
func InjectMetadata(ctx context.Context, md metadata.MD) metadata.MD {
	if md == nil {
		md = metadata.New(nil)
	}
	propagator.Inject(ctx, propagation.HeaderCarrier(md))
	if span := trace.SpanFromContext(ctx); span.SpanContext().HasTraceID() {
		md.Set(traceMetadataKey, span.SpanContext().TraceID().String())
	}
	return md
}

// ExtractMetadata extracts tracing context from metadata.
func ExtractMetadata(ctx context.Context, md metadata.MD) context.Context {
	if md == nil {
		return ctx
	}
	ctx = propagator.Extract(ctx, propagation.HeaderCarrier(md))
	if traceIDs := md.Get(traceMetadataKey); len(traceIDs) > 0 {
		span := trace.SpanFromContext(ctx)
		span.SetAttributes(attribute.String(traceMetadataKey, traceIDs[0]))
	}
	return ctx
}

// InjectHTTP writes tracing context into outgoing request headers.
func InjectHTTP(ctx context.Context, h http.Header) {
	propagator.Inject(ctx, propagation.HeaderCarrier(h))
}

// ExtractHTTP reads tracing context from incoming request headers.
func ExtractHTTP(ctx context.Context, h http.Header) context.Context {
	return propagator.Extract(ctx, propagation.HeaderCarrier(h))
}

// KafkaHeaders adapts sarama record headers to a propagation carrier.
type KafkaHeaders []sarama.RecordHeader

func (c *KafkaHeaders) Get(key string) string {
	for _, h := range *c {
		if string(h.Key) == key {
			return string(h.Value)
		}
	}
	return ""
}

func (c *KafkaHeaders) Set(key, value string) {
	*c = append(*c, sarama.RecordHeader{Key: []byte(key), Value: []byte(value)})
}

func (c *KafkaHeaders) Keys() []string {
	keys := make([]string, 0, len(*c))
	for _, h := range *c {
		keys = append(keys, string(h.Key))
	}
	return keys
}

// InjectKafka returns record headers carrying the tracing context of ctx.
func InjectKafka(ctx context.Context) []sarama.RecordHeader {
	var headers KafkaHeaders
	propagator.Inject(ctx, &headers)
	return headers
}

// ExtractKafka reads tracing context from consumed record headers.
func ExtractKafka(ctx context.Context, headers []*sarama.RecordHeader) context.Context {
	carrier := make(KafkaHeaders, 0, len(headers))
	for _, h := range headers {
		if h != nil {
			carrier = append(carrier, *h)
		}
	}
	return propagator.Extract(ctx, &carrier)
}

// Fail records err on span and marks it failed. A nil err is a no-op.
func Fail(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(otelcodes.Error, err.Error())
}

// Tracer returns named tracer for resilience components.
func Tracer(name string) trace.Tracer {
	return otel.Tracer(name)
}
