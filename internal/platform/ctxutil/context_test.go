package ctxutil

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestLogFields(t *testing.T) {
	ctx := context.Background()
	if got := LogFields(ctx); len(got) != 0 {
		t.Fatalf("empty ctx gave %v", got)
	}
	if GetTraceData(ctx) != nil || GetRequestData(ctx) != nil {
		t.Fatalf("expected nil data on empty ctx")
	}

	ctx = WithTraceData(ctx, &TraceData{TraceID: "t1", RequestID: "r1"})
	ctx = WithRequestData(ctx, &RequestData{Subject: "u1"})
	want := []interface{}{"trace_id", "t1", "request_id", "r1", "subject", "u1"}
	if diff := cmp.Diff(want, LogFields(ctx)); diff != "" {
		t.Fatalf("LogFields (-want +got):\n%s", diff)
	}
}
