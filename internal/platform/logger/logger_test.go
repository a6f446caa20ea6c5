package logger

import (
	"strings"
	"testing"
)

func TestRedactorMasksSecretsAndHashesLearners(t *testing.T) {
	r := &redactor{salt: "s"}
	out := r.kvs([]interface{}{"jwt_token", "abc", "user_id", "learner-1", "skill_id", "eva_suit", "dangling"})

	if len(out) != 7 {
		t.Fatalf("len=%d", len(out))
	}
	if out[1] != "[REDACTED]" {
		t.Fatalf("token not redacted: %v", out[1])
	}
	hashed, ok := out[3].(string)
	if !ok || !strings.HasPrefix(hashed, "hash:") || strings.Contains(hashed, "learner-1") {
		t.Fatalf("user_id not hashed: %v", out[3])
	}
	if out[5] != "eva_suit" {
		t.Fatalf("skill_id changed: %v", out[5])
	}
	if out[6] != "dangling" {
		t.Fatalf("dangling key dropped: %v", out[6])
	}

	again := r.kvs([]interface{}{"user_id", "learner-1"})
	if again[1] != hashed {
		t.Fatalf("hash not stable: %v vs %v", again[1], hashed)
	}
}

func TestNilRedactorPassesThrough(t *testing.T) {
	var r *redactor
	in := []interface{}{"user_id", "u1"}
	out := r.kvs(in)
	if out[1] != "u1" {
		t.Fatalf("unexpected %v", out[1])
	}
}

func TestNopLogger(t *testing.T) {
	l := Nop().With("module_id", "airlock")
	l.Info("ok", "user_id", "u1")
	l.Sync()
}
