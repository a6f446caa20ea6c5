package observability

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseHeaders(t *testing.T) {
	got := ParseHeaders(" api-key = abc , broken, =x, tenant=eva ")
	want := map[string]string{"api-key": "abc", "tenant": "eva"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("headers (-want +got):\n%s", diff)
	}
	if ParseHeaders("") != nil {
		t.Fatal("expected nil for empty input")
	}
}

func TestDisabledOTelIsNoop(t *testing.T) {
	shutdown := InitOTel(context.Background(), nil, OtelConfig{})
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

func TestClampRatio(t *testing.T) {
	for in, want := range map[float64]float64{-1: 0, 0.25: 0.25, 4: 1} {
		if got := clampRatio(in); got != want {
			t.Fatalf("clampRatio(%v)=%v", in, got)
		}
	}
}
