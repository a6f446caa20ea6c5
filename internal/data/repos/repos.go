package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/neurobridge-mastery/internal/data/repos/learning"
	"github.com/yungbote/neurobridge-mastery/internal/data/repos/memory"
	"github.com/yungbote/neurobridge-mastery/internal/platform/logger"
)

type SkillStateRepo = learning.SkillStateRepo
type QValueRepo = learning.QValueRepo
type DecisionMemoryRepo = learning.DecisionMemoryRepo
type OutcomeTraceRepo = learning.OutcomeTraceRepo

// Set groups every repository the engine consumes.
type Set struct {
	SkillStates    SkillStateRepo
	QValues        QValueRepo
	DecisionMemory DecisionMemoryRepo
	OutcomeTraces  OutcomeTraceRepo
}

func NewGormSet(db *gorm.DB, log *logger.Logger) Set {
	return Set{
		SkillStates:    learning.NewSkillStateRepo(db, log),
		QValues:        learning.NewQValueRepo(db, log),
		DecisionMemory: learning.NewDecisionMemoryRepo(db, log),
		OutcomeTraces:  learning.NewOutcomeTraceRepo(db, log),
	}
}

func NewMemorySet() Set {
	st := memory.New()
	return Set{
		SkillStates:    st.SkillStates(),
		QValues:        st.QValues(),
		DecisionMemory: st.DecisionMemory(),
		OutcomeTraces:  st.OutcomeTraces(),
	}
}

var (
	_ SkillStateRepo     = (*memory.SkillStates)(nil)
	_ QValueRepo         = (*memory.QValues)(nil)
	_ DecisionMemoryRepo = (*memory.DecisionMemory)(nil)
	_ OutcomeTraceRepo   = (*memory.OutcomeTraces)(nil)
)
