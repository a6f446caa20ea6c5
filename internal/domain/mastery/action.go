package mastery

import (
	"fmt"
	"strings"
)

type Difficulty int

const (
	DifficultyEasy Difficulty = iota
	DifficultyMedium
	DifficultyHard
	difficultyCount
)

type Pace int

const (
	PaceSlow Pace = iota
	PaceNormal
	PaceFast
	paceCount
)

type Adaptation int

const (
	AdaptationIncrease Adaptation = iota
	AdaptationDecrease
	AdaptationMaintain
	adaptationCount
)

// ActionCount is the size of the canonical action enumeration. Policy rows are
// arrays of exactly this length.
const ActionCount = int(difficultyCount) * int(paceCount) * int(adaptationCount)

var (
	difficultyNames = [...]string{"easy", "medium", "hard"}
	paceNames       = [...]string{"slow", "normal", "fast"}
	adaptationNames = [...]string{"increase", "decrease", "maintain"}
)

func (d Difficulty) String() string {
	if d < 0 || d >= difficultyCount {
		return fmt.Sprintf("difficulty(%d)", int(d))
	}
	return difficultyNames[d]
}

func (p Pace) String() string {
	if p < 0 || p >= paceCount {
		return fmt.Sprintf("pace(%d)", int(p))
	}
	return paceNames[p]
}

func (a Adaptation) String() string {
	if a < 0 || a >= adaptationCount {
		return fmt.Sprintf("adaptation(%d)", int(a))
	}
	return adaptationNames[a]
}

// Action is one training recommendation.
type Action struct {
	Difficulty Difficulty
	Pace       Pace
	Adaptation Adaptation
}

// FallbackAction is recommended whenever the policy cannot produce an answer.
var FallbackAction = Action{Difficulty: DifficultyMedium, Pace: PaceNormal, Adaptation: AdaptationMaintain}

var canonicalActions = func() [ActionCount]Action {
	var out [ActionCount]Action
	for d := Difficulty(0); d < difficultyCount; d++ {
		for p := Pace(0); p < paceCount; p++ {
			for a := Adaptation(0); a < adaptationCount; a++ {
				act := Action{Difficulty: d, Pace: p, Adaptation: a}
				out[act.Index()] = act
			}
		}
	}
	return out
}()

// AllActions returns the canonical enumeration ordered by index.
func AllActions() []Action {
	out := make([]Action, ActionCount)
	copy(out, canonicalActions[:])
	return out
}

func (a Action) Valid() bool {
	return a.Difficulty >= 0 && a.Difficulty < difficultyCount &&
		a.Pace >= 0 && a.Pace < paceCount &&
		a.Adaptation >= 0 && a.Adaptation < adaptationCount
}

// Index is the action's stable slot in the enumeration, or -1 if invalid.
func (a Action) Index() int {
	if !a.Valid() {
		return -1
	}
	return int(a.Difficulty)*int(paceCount)*int(adaptationCount) + int(a.Pace)*int(adaptationCount) + int(a.Adaptation)
}

func ActionAt(index int) (Action, error) {
	if index < 0 || index >= ActionCount {
		return Action{}, fmt.Errorf("%w: index %d", ErrInvalidAction, index)
	}
	return canonicalActions[index], nil
}

func (a Action) String() string {
	return a.Difficulty.String() + "/" + a.Pace.String() + "/" + a.Adaptation.String()
}

// ParseAction accepts "difficulty/pace/adaptation".
func ParseAction(s string) (Action, error) {
	parts := strings.Split(strings.ToLower(strings.TrimSpace(s)), "/")
	if len(parts) != 3 {
		return Action{}, fmt.Errorf("%w: %q", ErrInvalidAction, s)
	}
	d := indexOf(difficultyNames[:], parts[0])
	p := indexOf(paceNames[:], parts[1])
	a := indexOf(adaptationNames[:], parts[2])
	if d < 0 || p < 0 || a < 0 {
		return Action{}, fmt.Errorf("%w: %q", ErrInvalidAction, s)
	}
	return Action{Difficulty: Difficulty(d), Pace: Pace(p), Adaptation: Adaptation(a)}, nil
}

func indexOf(names []string, v string) int {
	for i, n := range names {
		if n == strings.TrimSpace(v) {
			return i
		}
	}
	return -1
}

// ActionView is the wire shape of an Action.
type ActionView struct {
	Index      int    `json:"index"`
	Difficulty string `json:"difficulty"`
	Pace       string `json:"pace"`
	Adaptation string `json:"adaptation"`
}

func (a Action) View() ActionView {
	return ActionView{
		Index:      a.Index(),
		Difficulty: a.Difficulty.String(),
		Pace:       a.Pace.String(),
		Adaptation: a.Adaptation.String(),
	}
}

func (a Action) MarshalText() ([]byte, error) {
	if !a.Valid() {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAction, a)
	}
	return []byte(a.String()), nil
}

func (a *Action) UnmarshalText(b []byte) error {
	parsed, err := ParseAction(string(b))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
