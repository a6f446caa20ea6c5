package handlers

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	types "github.com/yungbote/neurobridge-mastery/internal/domain/mastery"
	"github.com/yungbote/neurobridge-mastery/internal/http/response"
	"github.com/yungbote/neurobridge-mastery/internal/mastery/coordinator"
	"github.com/yungbote/neurobridge-mastery/internal/platform/logger"
	"github.com/yungbote/neurobridge-mastery/internal/services"
)

// OutcomeDispatcher queues an outcome for asynchronous processing.
type OutcomeDispatcher interface {
	Submit(ctx context.Context, o coordinator.Outcome) (workflowID string, runID string, err error)
}

type MasteryHandlerDeps struct {
	Log     *logger.Logger
	Mastery services.MasteryService
	// Async is optional; without it ?async=true answers 503.
	Async OutcomeDispatcher
}

type MasteryHandler struct {
	log     *logger.Logger
	mastery services.MasteryService
	async   OutcomeDispatcher
}

func NewMasteryHandler(deps MasteryHandlerDeps) *MasteryHandler {
	log := deps.Log
	if log == nil {
		log = logger.Nop()
	}
	return &MasteryHandler{log: log.With("handler", "MasteryHandler"), mastery: deps.Mastery, async: deps.Async}
}

type observationRequest struct {
	SuccessRate *float64   `json:"success_rate"`
	At          *time.Time `json:"at,omitempty"`
}

// POST /v1/users/:userID/skills/:skillID/observations
func (h *MasteryHandler) Observe(c *gin.Context) {
	var req observationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if req.SuccessRate == nil {
		response.RespondDomainError(c, fmt.Errorf("%w: success_rate is required", types.ErrInvalidObservation))
		return
	}
	at := time.Now().UTC()
	if req.At != nil {
		at = *req.At
	}
	st, err := h.mastery.ObserveSkillPerformance(c.Request.Context(), c.Param("userID"), c.Param("skillID"), *req.SuccessRate, at)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"skill_state": st})
}

// GET /v1/users/:userID/skills/:skillID/mastery
func (h *MasteryHandler) GetMastery(c *gin.Context) {
	ctx := c.Request.Context()
	userID, skillID := c.Param("userID"), c.Param("skillID")

	var (
		m   types.Mastery
		err error
	)
	if raw := strings.TrimSpace(c.Query("at")); raw != "" {
		at, perr := time.Parse(time.RFC3339, raw)
		if perr != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_at", perr)
			return
		}
		m, err = h.mastery.GetMasteryAt(ctx, userID, skillID, at)
	} else {
		m, err = h.mastery.GetMastery(ctx, userID, skillID)
	}
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"skill_id": skillID, "mastery": m})
}

// GET /v1/users/:userID/mastery
func (h *MasteryHandler) ListMastery(c *gin.Context) {
	rows, err := h.mastery.ListMastery(c.Request.Context(), c.Param("userID"))
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	if rows == nil {
		rows = []types.SkillState{}
	}
	response.RespondOK(c, gin.H{"skills": rows})
}

// GET /v1/users/:userID/gaps
func (h *MasteryHandler) IdentifyGaps(c *gin.Context) {
	gaps, err := h.mastery.IdentifyGaps(c.Request.Context(), c.Param("userID"))
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	if gaps == nil {
		gaps = []types.KnowledgeGap{}
	}
	response.RespondOK(c, gin.H{"gaps": gaps})
}

// GET /v1/users/:userID/modules/:moduleID/readiness?level=
func (h *MasteryHandler) CheckReadiness(c *gin.Context) {
	level := types.Level(strings.ToLower(strings.TrimSpace(c.Query("level"))))
	r, err := h.mastery.CheckModuleReadiness(c.Request.Context(), c.Param("userID"), c.Param("moduleID"), level)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"readiness": r})
}

// POST /v1/users/:userID/modules/:moduleID/outcomes[?async=true]
func (h *MasteryHandler) ProcessOutcome(c *gin.Context) {
	var in coordinator.Outcome
	if err := c.ShouldBindJSON(&in); err != nil {
		response.RespondDomainError(c, fmt.Errorf("%w: %v", types.ErrInvalidObservation, err))
		return
	}
	in.UserID = c.Param("userID")
	in.ModuleID = c.Param("moduleID")

	async, _ := strconv.ParseBool(c.DefaultQuery("async", "false"))
	if async {
		h.submit(c, in)
		return
	}

	fb, err := h.mastery.ProcessOutcome(c.Request.Context(), in)
	if err != nil && (types.IsCallerError(err) || errors.Is(err, types.ErrNotInitialized)) {
		response.RespondDomainError(c, err)
		return
	}
	if err != nil {
		// best-effort feedback rides along with the 503
		h.log.Warn("outcome processed with errors", "user_id", in.UserID, "module_id", in.ModuleID, "error", err)
		response.RespondDomainErrorWithDetails(c, err, gin.H{"feedback": fb})
		return
	}
	response.RespondOK(c, gin.H{"feedback": fb})
}

func (h *MasteryHandler) submit(c *gin.Context, in coordinator.Outcome) {
	if h.async == nil {
		response.RespondError(c, http.StatusServiceUnavailable, "async_unavailable", fmt.Errorf("asynchronous processing is not configured"))
		return
	}
	if strings.TrimSpace(in.UserID) == "" || strings.TrimSpace(in.SkillID) == "" {
		response.RespondDomainError(c, fmt.Errorf("%w: user and skill are required", types.ErrInvalidSkillID))
		return
	}
	if math.IsNaN(in.SuccessRate) || in.SuccessRate < 0 || in.SuccessRate > 1 {
		response.RespondDomainError(c, fmt.Errorf("%w: success_rate %v outside [0,1]", types.ErrInvalidObservation, in.SuccessRate))
		return
	}
	if in.At.IsZero() {
		in.At = time.Now().UTC()
	}
	wfID, runID, err := h.async.Submit(c.Request.Context(), in)
	if err != nil {
		h.log.Error("outcome dispatch failed", "workflow_id", wfID, "error", err)
		response.RespondError(c, http.StatusServiceUnavailable, "dispatch_failed", err)
		return
	}
	response.RespondAccepted(c, gin.H{"workflow_id": wfID, "run_id": runID})
}

// GET /v1/users/:userID/modules/:moduleID/outcomes?limit=
func (h *MasteryHandler) ListOutcomes(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 {
		response.RespondError(c, http.StatusBadRequest, "invalid_limit", fmt.Errorf("limit must be a positive integer"))
		return
	}
	if limit > 500 {
		limit = 500
	}
	rows, err := h.mastery.ListOutcomes(c.Request.Context(), scopeOf(c), limit)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	if rows == nil {
		rows = []*types.OutcomeTrace{}
	}
	response.RespondOK(c, gin.H{"outcomes": rows})
}

type actionValue struct {
	types.ActionView
	Q float64 `json:"q"`
}

// GET /v1/users/:userID/modules/:moduleID/policy?state=
func (h *MasteryHandler) PolicyValues(c *gin.Context) {
	state := types.DecisionState(strings.TrimSpace(c.Query("state")))
	if state == "" {
		response.RespondError(c, http.StatusBadRequest, "invalid_state", fmt.Errorf("state is required"))
		return
	}
	values, err := h.mastery.PolicyValues(c.Request.Context(), scopeOf(c), state)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	out := make([]actionValue, 0, types.ActionCount)
	best := 0
	for i, a := range types.AllActions() {
		out = append(out, actionValue{ActionView: a.View(), Q: values[i]})
		if values[i] > values[best] {
			best = i
		}
	}
	response.RespondOK(c, gin.H{"state": state, "values": out, "greedy": out[best].ActionView})
}

type selectRequest struct {
	State     types.DecisionState `json:"state"`
	Available []types.Action      `json:"available_actions,omitempty"`
	Epsilon   *float64            `json:"epsilon,omitempty"`
}

// POST /v1/users/:userID/modules/:moduleID/policy/select
func (h *MasteryHandler) SelectAction(c *gin.Context) {
	var req selectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondDomainError(c, fmt.Errorf("%w: %v", types.ErrInvalidAction, err))
		return
	}
	a, err := h.mastery.SelectAction(c.Request.Context(), scopeOf(c), req.State, req.Available, req.Epsilon)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"action": a.View()})
}

type updateRequest struct {
	State         types.DecisionState `json:"state"`
	Action        types.Action        `json:"action"`
	Reward        *float64            `json:"reward"`
	NextState     types.DecisionState `json:"next_state"`
	NextAvailable []types.Action      `json:"next_available_actions,omitempty"`
}

// POST /v1/users/:userID/modules/:moduleID/policy/update
func (h *MasteryHandler) UpdatePolicy(c *gin.Context) {
	var req updateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondDomainError(c, fmt.Errorf("%w: %v", types.ErrInvalidObservation, err))
		return
	}
	if req.Reward == nil {
		response.RespondDomainError(c, fmt.Errorf("%w: reward is required", types.ErrInvalidObservation))
		return
	}
	entry, err := h.mastery.UpdatePolicy(c.Request.Context(), scopeOf(c), req.State, req.Action, *req.Reward, req.NextState, req.NextAvailable)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"entry": entry})
}

// GET /v1/actions
func (h *MasteryHandler) ListActions(c *gin.Context) {
	all := types.AllActions()
	out := make([]types.ActionView, 0, len(all))
	for _, a := range all {
		out = append(out, a.View())
	}
	response.RespondOK(c, gin.H{"actions": out, "fallback": types.FallbackAction.View()})
}

// GET /v1/skill-graph
func (h *MasteryHandler) SkillGraph(c *gin.Context) {
	def, err := h.mastery.SkillGraph()
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"skills": def.Skills, "modules": def.Modules})
}

func scopeOf(c *gin.Context) types.Scope {
	return types.Scope{UserID: c.Param("userID"), ModuleID: c.Param("moduleID")}
}
