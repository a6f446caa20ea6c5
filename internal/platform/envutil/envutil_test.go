package envutil

import (
	"testing"
	"time"
)

func TestFallbacks(t *testing.T) {
	t.Setenv("MASTERY_TEST_INT", "12")
	t.Setenv("MASTERY_TEST_BAD_INT", "twelve")
	t.Setenv("MASTERY_TEST_FLOAT", "0.25")
	t.Setenv("MASTERY_TEST_BOOL", "off")
	t.Setenv("MASTERY_TEST_DURATION", "750ms")

	if got := Int("MASTERY_TEST_INT", 1); got != 12 {
		t.Fatalf("Int=%d", got)
	}
	if got := Int("MASTERY_TEST_BAD_INT", 7); got != 7 {
		t.Fatalf("Int fallback=%d", got)
	}
	if got := Float("MASTERY_TEST_FLOAT", 0); got != 0.25 {
		t.Fatalf("Float=%v", got)
	}
	if got := Bool("MASTERY_TEST_BOOL", true); got {
		t.Fatalf("Bool=%v", got)
	}
	if got := Bool("MASTERY_TEST_UNSET", true); !got {
		t.Fatalf("Bool default=%v", got)
	}
	if got := Duration("MASTERY_TEST_DURATION", time.Second); got != 750*time.Millisecond {
		t.Fatalf("Duration=%v", got)
	}
	if got := String("MASTERY_TEST_UNSET", "x"); got != "x" {
		t.Fatalf("String=%q", got)
	}
}
