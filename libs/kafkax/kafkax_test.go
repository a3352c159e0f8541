package kafkax

import (
	"context"
	"testing"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

func TestSplitBrokers(t *testing.T) {
	got := SplitBrokers(" kafka-1:9092, kafka-2:9092 ,,kafka-3:9092")
	if len(got) != 3 || got[0] != "kafka-1:9092" || got[2] != "kafka-3:9092" {
		t.Fatalf("unexpected brokers: %v", got)
	}
	if SplitBrokers("") != nil {
		t.Fatal("empty input should yield nil")
	}
}

func TestInjectTraceHeadersAppends(t *testing.T) {
	prev := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	defer otel.SetTextMapPropagator(prev)

	carrier := propagation.MapCarrier{
		"traceparent": "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01",
	}
	ctx := propagation.TraceContext{}.Extract(context.Background(), carrier)
	headers := InjectTraceHeaders(ctx, []kafka.Header{{Key: "event_id", Value: []byte("e1")}})

	var traceparent string
	for _, h := range headers {
		if h.Key == "traceparent" {
			traceparent = string(h.Value)
		}
	}
	if traceparent == "" {
		t.Fatal("traceparent header not appended")
	}
	if headers[0].Key != "event_id" {
		t.Fatal("existing headers must be preserved")
	}

	// Injecting again overwrites in place instead of duplicating.
	again := InjectTraceHeaders(ctx, headers)
	count := 0
	for _, h := range again {
		if h.Key == "traceparent" {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("expected one traceparent header, got %d", count)
	}
}
