package mastery

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// SkillDefinition is a node of the prerequisite graph. PrerequisiteFor lists the
// skills that depend on this one.
type SkillDefinition struct {
	ID               string   `json:"id" yaml:"id"`
	DisplayName      string   `json:"display_name" yaml:"display_name"`
	MasteryThreshold float64  `json:"mastery_threshold" yaml:"mastery_threshold"`
	PrerequisiteFor  []string `json:"prerequisite_for,omitempty" yaml:"prerequisite_for"`
}

// IsPrerequisite reports whether any other skill depends on this one.
func (s SkillDefinition) IsPrerequisite() bool { return len(s.PrerequisiteFor) > 0 }

type Level string

const (
	LevelBasics   Level = "basics"
	LevelAdvanced Level = "advanced"
	LevelExpert   Level = "expert"
	LevelZeroG    Level = "zero_g"
)

// DefaultLevelThresholds are used when a module does not override a level.
var DefaultLevelThresholds = map[Level]float64{
	LevelBasics:   0.70,
	LevelAdvanced: 0.85,
	LevelExpert:   0.95,
	LevelZeroG:    0.90,
}

// SkillRequirement is one gated skill; Threshold 0 means the level default.
type SkillRequirement struct {
	SkillID   string  `json:"skill_id" yaml:"skill_id"`
	Threshold float64 `json:"threshold,omitempty" yaml:"threshold"`
}

type ModuleDefinition struct {
	ID          string `json:"id" yaml:"id"`
	DisplayName string `json:"display_name" yaml:"display_name"`
	// RequiredSkills apply at every level with the level threshold.
	RequiredSkills []string `json:"required_skills,omitempty" yaml:"required_skills"`
	// Requirements adds or overrides per-level requirements.
	Requirements map[Level][]SkillRequirement `json:"requirements,omitempty" yaml:"requirements"`
	// LevelThresholds overrides DefaultLevelThresholds for this module.
	LevelThresholds map[Level]float64 `json:"level_thresholds,omitempty" yaml:"level_thresholds"`
}

// SkillState is the per learner, per skill mastery estimate.
type SkillState struct {
	UserID           string    `gorm:"column:user_id;primaryKey;size:128" json:"user_id"`
	SkillID          string    `gorm:"column:skill_id;primaryKey;size:128" json:"skill_id"`
	KnownProbability float64   `gorm:"column:known_probability;not null" json:"known_probability"`
	Attempts         int       `gorm:"column:attempts;not null;default:0" json:"attempts"`
	Successes        int       `gorm:"column:successes;not null;default:0" json:"successes"`
	EvidenceSum      float64   `gorm:"column:evidence_sum;not null;default:0" json:"evidence_sum"`
	LastUpdated      time.Time `gorm:"column:last_updated;not null" json:"last_updated"`
}

func (SkillState) TableName() string { return "skill_state" }

type Mastery struct {
	Probability float64 `json:"probability"`
	Attempts    int     `json:"attempts"`
}

type ProficiencyLabel string

const (
	ProficiencyBeginner     ProficiencyLabel = "beginner"
	ProficiencyIntermediate ProficiencyLabel = "intermediate"
	ProficiencyAdvanced     ProficiencyLabel = "advanced"
	ProficiencyExpert       ProficiencyLabel = "expert"
)

type PriorityTier string

const (
	PriorityCritical PriorityTier = "critical"
	PriorityHigh     PriorityTier = "high"
	PriorityMedium   PriorityTier = "medium"
	PriorityLow      PriorityTier = "low"
)

// Rank orders tiers, critical first.
func (p PriorityTier) Rank() int {
	switch p {
	case PriorityCritical:
		return 0
	case PriorityHigh:
		return 1
	case PriorityMedium:
		return 2
	default:
		return 3
	}
}

type KnowledgeGap struct {
	SkillID          string           `json:"skill_id"`
	DisplayName      string           `json:"display_name,omitempty"`
	Probability      float64          `json:"probability"`
	Threshold        float64          `json:"threshold"`
	Gap              float64          `json:"gap"`
	ProficiencyLabel ProficiencyLabel `json:"proficiency_label"`
	PriorityTier     PriorityTier     `json:"priority_tier"`
}

type RequirementStatus struct {
	SkillID     string  `json:"skill_id"`
	Probability float64 `json:"probability"`
	Required    float64 `json:"required"`
	Met         bool    `json:"met"`
}

type Readiness struct {
	ModuleID     string              `json:"module_id"`
	Level        Level               `json:"level"`
	Ready        bool                `json:"ready"`
	Missing      []string            `json:"missing"`
	Requirements []RequirementStatus `json:"requirements"`
}

// DecisionState is a discretised policy lookup key.
type DecisionState string

// Scope partitions the policy table per learner and module.
type Scope struct {
	UserID   string
	ModuleID string
}

type QEntry struct {
	UserID      string        `gorm:"column:user_id;primaryKey;size:128" json:"user_id"`
	ModuleID    string        `gorm:"column:module_id;primaryKey;size:128" json:"module_id"`
	State       DecisionState `gorm:"column:state;primaryKey;size:255" json:"state"`
	ActionIndex int           `gorm:"column:action_index;primaryKey;autoIncrement:false" json:"action_index"`
	QValue      float64       `gorm:"column:q_value;not null;default:0" json:"q_value"`
	VisitCount  int           `gorm:"column:visit_count;not null;default:0" json:"visit_count"`
	UpdatedAt   time.Time     `gorm:"column:updated_at" json:"updated_at"`
}

func (QEntry) TableName() string { return "policy_q_entry" }

// DecisionMemory remembers the last recommendation for a scope so the next
// outcome can be credited to it.
type DecisionMemory struct {
	UserID      string        `gorm:"column:user_id;primaryKey;size:128" json:"user_id"`
	ModuleID    string        `gorm:"column:module_id;primaryKey;size:128" json:"module_id"`
	State       DecisionState `gorm:"column:state;size:255;not null" json:"state"`
	ActionIndex int           `gorm:"column:action_index;not null" json:"action_index"`
	DecidedAt   time.Time     `gorm:"column:decided_at;not null" json:"decided_at"`
}

func (DecisionMemory) TableName() string { return "policy_decision_memory" }

// OutcomeTrace is an audit row written for every processed outcome.
type OutcomeTrace struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID      string         `gorm:"column:user_id;size:128;not null;index:idx_outcome_trace_scope,priority:1" json:"user_id"`
	ModuleID    string         `gorm:"column:module_id;size:128;not null;index:idx_outcome_trace_scope,priority:2" json:"module_id"`
	SkillID     string         `gorm:"column:skill_id;size:128;not null" json:"skill_id"`
	SuccessRate float64        `gorm:"column:success_rate;not null" json:"success_rate"`
	Reward      float64        `gorm:"column:reward;not null" json:"reward"`
	PrevState   DecisionState  `gorm:"column:prev_state;size:255" json:"prev_state,omitempty"`
	State       DecisionState  `gorm:"column:state;size:255;not null" json:"state"`
	ActionIndex int            `gorm:"column:action_index;not null" json:"action_index"`
	Fallback    bool           `gorm:"column:fallback;not null;default:false" json:"fallback"`
	Metrics     datatypes.JSON `gorm:"column:metrics" json:"metrics"`
	Unlocks     datatypes.JSON `gorm:"column:unlocks" json:"unlocks"`
	GapCount    int            `gorm:"column:gap_count;not null;default:0" json:"gap_count"`
	ObservedAt  time.Time      `gorm:"column:observed_at;not null;index:idx_outcome_trace_scope,priority:3" json:"observed_at"`
	CreatedAt   time.Time      `gorm:"column:created_at;not null" json:"created_at"`
}

func (OutcomeTrace) TableName() string { return "outcome_trace" }

// ModuleUnlock is emitted when a module becomes ready for a learner.
type ModuleUnlock struct {
	UserID   string    `json:"user_id"`
	ModuleID string    `json:"module_id"`
	Level    Level     `json:"level"`
	At       time.Time `json:"at"`
}
