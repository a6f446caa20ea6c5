package mastery

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestActionEnumerationIsCompleteAndStable(t *testing.T) {
	all := AllActions()
	if len(all) != ActionCount || ActionCount != 27 {
		t.Fatalf("expected 27 actions, got %d (ActionCount=%d)", len(all), ActionCount)
	}
	seen := map[Action]bool{}
	for i, a := range all {
		if a.Index() != i {
			t.Fatalf("action %v at %d reports index %d", a, i, a.Index())
		}
		if seen[a] {
			t.Fatalf("duplicate action %v", a)
		}
		seen[a] = true
		back, err := ActionAt(i)
		if err != nil || back != a {
			t.Fatalf("ActionAt(%d)=%v,%v", i, back, err)
		}
	}
	if FallbackAction.String() != "medium/normal/maintain" {
		t.Fatalf("fallback=%s", FallbackAction)
	}
}

func TestInvalidActions(t *testing.T) {
	bad := Action{Difficulty: 3}
	if bad.Valid() || bad.Index() != -1 {
		t.Fatalf("expected invalid action")
	}
	if _, err := ActionAt(27); !errors.Is(err, ErrInvalidAction) {
		t.Fatalf("ActionAt(27) err=%v", err)
	}
	if _, err := ParseAction("hard/fast"); !errors.Is(err, ErrInvalidAction) {
		t.Fatalf("ParseAction err=%v", err)
	}
	if _, err := ParseAction("brutal/fast/increase"); !errors.Is(err, ErrInvalidAction) {
		t.Fatalf("ParseAction err=%v", err)
	}
}

func TestActionJSONUsesTextForm(t *testing.T) {
	in := Action{Difficulty: DifficultyHard, Pace: PaceSlow, Adaptation: AdaptationDecrease}
	b, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `"hard/slow/decrease"` {
		t.Fatalf("json=%s", b)
	}
	var out Action
	if err := json.Unmarshal(b, &out); err != nil || out != in {
		t.Fatalf("unmarshal=%v err=%v", out, err)
	}
}

func TestUnavailableWrapsOnce(t *testing.T) {
	base := errors.New("connection refused")
	err := Unavailable(base)
	if !errors.Is(err, ErrPersistenceUnavailable) || !errors.Is(err, base) {
		t.Fatalf("wrap lost identity: %v", err)
	}
	if Unavailable(err) != err {
		t.Fatalf("double wrap")
	}
	if Unavailable(nil) != nil {
		t.Fatalf("nil should stay nil")
	}
	if IsCallerError(err) || !IsCallerError(ErrInvalidSkillID) {
		t.Fatalf("IsCallerError misclassified")
	}
}
