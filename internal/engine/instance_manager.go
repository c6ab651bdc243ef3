package engine

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/pulseopti/hrflow/pkg/hrflow/core"
	"github.com/pulseopti/hrflow/pkg/hrflow/domain"
	"github.com/pulseopti/hrflow/pkg/hrflow/models"
)

// InstanceManager is the single entry point for workflow instance
// mutations. Every mutation follows the same shape: load, validate,
// mutate in memory, then commit through one guarded row update. The
// audit trail and notification events are appended strictly after the
// commit and can never unwind it.
type InstanceManager struct {
	instances      InstanceRepo
	history        HistoryRepo
	clock          core.Clock
	conditions     ConditionEvaluator
	listeners      []Listener
	historyRetries int
}

func NewInstanceManager(instances InstanceRepo, history HistoryRepo, clock core.Clock, historyRetries int) *InstanceManager {
	return &InstanceManager{
		instances:      instances,
		history:        history,
		clock:          clock,
		conditions:     VariableConditionEvaluator{},
		historyRetries: historyRetries,
	}
}

// SetConditionEvaluator replaces the evaluator used for condition
// steps. Call during wiring, before the manager serves requests.
func (m *InstanceManager) SetConditionEvaluator(ev ConditionEvaluator) {
	m.conditions = ev
}

// CreateSpec carries everything needed to start a new instance. Step
// ids are generated when blank; steps always start out pending.
type CreateSpec struct {
	CompanyID  string
	Type       string
	Name       string
	ExternalID string
	Steps      []domain.StepDefinition
	Variables  map[string]string
}

// CreateInstance validates the step list, persists the new instance and
// walks it forward until the first approval step (or completion, when
// the list holds no approval steps at all).
func (m *InstanceManager) CreateInstance(ctx context.Context, spec CreateSpec, initiator Actor) (*domain.WorkflowInstance, error) {
	if spec.CompanyID == "" {
		return nil, validationError("companyId is required")
	}
	if spec.Type == "" {
		return nil, validationError("workflow type is required")
	}
	if len(spec.Steps) == 0 {
		return nil, validationError("workflow requires at least one step")
	}

	steps := make([]domain.StepDefinition, len(spec.Steps))
	seen := make(map[string]bool, len(spec.Steps))
	for i, s := range spec.Steps {
		if s.Name == "" {
			return nil, validationError("step %d has no name", i)
		}
		switch s.Type {
		case domain.StepTypeTask, domain.StepTypeCondition:
		case domain.StepTypeApproval:
			if (s.AssigneeID == "") == (s.AssigneeRole == "") {
				return nil, validationError("approval step %q requires exactly one of assigneeId or assigneeRole", s.Name)
			}
		default:
			return nil, validationError("step %q has unknown type %q", s.Name, s.Type)
		}
		if s.ID == "" {
			s.ID = uuid.New().String()
		}
		if seen[s.ID] {
			return nil, validationError("duplicate step id %q", s.ID)
		}
		seen[s.ID] = true
		s.Status = domain.StepPending
		s.StartTime = nil
		s.EndTime = nil
		s.Comments = ""
		steps[i] = s
	}

	now := m.clock.Now().UTC()
	inst := &domain.WorkflowInstance{
		CompanyID:        spec.CompanyID,
		Type:             spec.Type,
		Name:             spec.Name,
		ExternalID:       spec.ExternalID,
		Steps:            steps,
		CurrentStepIndex: 0,
		Status:           domain.InstanceActive,
		InitiatorID:      initiator.ID,
		InitiatorName:    initiator.Name,
		Variables:        spec.Variables,
		StartDate:        now,
		Modified:         now,
	}

	trail := []domain.HistoryEntry{m.instanceEntry(inst, domain.ActionCreated, initiator, "workflow instance created")}
	events := m.runSteps(inst, initiator, now, &trail)

	if _, err := m.instances.Save(inst); err != nil {
		if errors.Is(err, domain.ErrDuplicateExternalID) {
			return nil, conflictError("workflow instance already exists for external id %q", spec.ExternalID)
		}
		return nil, persistenceError(err, "failed to save workflow instance")
	}

	m.appendTrail(ctx, inst.ID, trail)
	m.emit(ctx, events)
	return inst, nil
}

// GetInstance loads an instance within the caller's tenant.
func (m *InstanceManager) GetInstance(id int64, actor Actor) (*domain.WorkflowInstance, error) {
	return m.loadForActor(id, actor)
}

// GetInstanceByExternalID resolves a business record reference such as
// "leave:42" to its workflow instance.
func (m *InstanceManager) GetInstanceByExternalID(externalID string, actor Actor) (*domain.WorkflowInstance, error) {
	inst, err := m.instances.FindByExternalID(actor.CompanyID, externalID)
	if err != nil {
		return nil, persistenceError(err, "failed to load workflow instance")
	}
	if inst == nil {
		return nil, notFoundError("workflow instance not found for external id %q", externalID)
	}
	return inst, nil
}

// ApproveStep completes the current approval step and walks the
// instance forward to the next approval step or to completion.
// Beyond tenancy, no authorization is applied here; whether the actor
// may decide this step (including self-approval) is the caller's call.
func (m *InstanceManager) ApproveStep(ctx context.Context, instanceID int64, stepID string, comments string, actor Actor) (*domain.WorkflowInstance, error) {
	inst, step, err := m.loadForDecision(instanceID, stepID, actor)
	if err != nil {
		return nil, err
	}
	expected := inst.Modified
	now := m.clock.Now().UTC()

	step.Status = domain.StepCompleted
	step.EndTime = &now
	step.Comments = comments

	trail := []domain.HistoryEntry{m.stepEntry(inst, step, domain.ActionApproved, actor, "step approved", comments)}
	var events []Event
	if inst.CurrentStepIndex == len(inst.Steps)-1 {
		m.completeInstance(inst, actor, now, &trail)
		events = append(events, Event{Type: EventCompleted, Instance: inst, Actor: actor})
	} else {
		inst.CurrentStepIndex++
		events = m.runSteps(inst, actor, now, &trail)
	}

	if err := m.commit(inst, expected); err != nil {
		return nil, err
	}
	m.appendTrail(ctx, inst.ID, trail)
	m.emit(ctx, events)
	return inst, nil
}

// RejectStep terminates the instance. Rejection is final: the instance
// moves to cancelled and the remaining steps stay pending forever.
func (m *InstanceManager) RejectStep(ctx context.Context, instanceID int64, stepID string, comments string, actor Actor) (*domain.WorkflowInstance, error) {
	inst, step, err := m.loadForDecision(instanceID, stepID, actor)
	if err != nil {
		return nil, err
	}
	expected := inst.Modified
	now := m.clock.Now().UTC()

	step.Status = domain.StepCompleted
	step.EndTime = &now
	step.Comments = comments
	inst.Status = domain.InstanceCancelled
	inst.EndDate = sql.NullTime{Time: now, Valid: true}

	trail := []domain.HistoryEntry{
		m.stepEntry(inst, step, domain.ActionRejected, actor, "step rejected", comments),
		m.instanceEntry(inst, domain.ActionCancelled, actor, "workflow cancelled after rejection"),
	}

	if err := m.commit(inst, expected); err != nil {
		return nil, err
	}
	m.appendTrail(ctx, inst.ID, trail)
	m.emit(ctx, []Event{{Type: EventRejected, Instance: inst, Step: step, Actor: actor, Detail: comments}})
	return inst, nil
}

// ReturnStep sends the instance back for rework. The pointer moves to
// the nearest earlier approval step, which re-opens with a fresh start
// time; task and condition steps in between reset to pending and re-run
// when that approval is decided again. The earlier completions stay
// visible in the history.
func (m *InstanceManager) ReturnStep(ctx context.Context, instanceID int64, stepID string, comments string, actor Actor) (*domain.WorkflowInstance, error) {
	inst, step, err := m.loadForDecision(instanceID, stepID, actor)
	if err != nil {
		return nil, err
	}
	if inst.CurrentStepIndex == 0 {
		return nil, conflictError("cannot return from the first step")
	}
	target := -1
	for i := inst.CurrentStepIndex - 1; i >= 0; i-- {
		if inst.Steps[i].Type == domain.StepTypeApproval {
			target = i
			break
		}
	}
	if target == -1 {
		return nil, conflictError("no earlier approval step to return to")
	}
	expected := inst.Modified
	now := m.clock.Now().UTC()

	step.Status = domain.StepPending
	step.StartTime = nil
	step.EndTime = nil
	step.Comments = comments

	for i := target + 1; i < inst.CurrentStepIndex; i++ {
		inst.Steps[i].Status = domain.StepPending
		inst.Steps[i].StartTime = nil
		inst.Steps[i].EndTime = nil
	}

	inst.CurrentStepIndex = target
	prev := &inst.Steps[target]
	prev.Status = domain.StepInProgress
	prev.StartTime = &now
	prev.EndTime = nil

	trail := []domain.HistoryEntry{
		m.stepEntry(inst, step, domain.ActionReturned, actor, "step returned to "+prev.Name, comments),
		m.stepEntry(inst, prev, domain.ActionStepStarted, actor, "step re-opened", ""),
	}

	if err := m.commit(inst, expected); err != nil {
		return nil, err
	}
	m.appendTrail(ctx, inst.ID, trail)
	m.emit(ctx, []Event{{Type: EventApprovalPending, Instance: inst, Step: prev, Actor: actor, Detail: comments}})
	return inst, nil
}

// CancelInstance terminates an active instance out of band, without a
// step decision.
func (m *InstanceManager) CancelInstance(ctx context.Context, instanceID int64, reason string, actor Actor) (*domain.WorkflowInstance, error) {
	inst, err := m.loadForActor(instanceID, actor)
	if err != nil {
		return nil, err
	}
	if inst.Status != domain.InstanceActive {
		return nil, conflictError("workflow instance is not active")
	}
	expected := inst.Modified
	now := m.clock.Now().UTC()

	inst.Status = domain.InstanceCancelled
	inst.EndDate = sql.NullTime{Time: now, Valid: true}

	entry := m.instanceEntry(inst, domain.ActionCancelled, actor, "workflow cancelled")
	if reason != "" {
		entry.Metadata = metadataJSON(map[string]string{"reason": reason})
	}

	if err := m.commit(inst, expected); err != nil {
		return nil, err
	}
	m.appendTrail(ctx, inst.ID, []domain.HistoryEntry{entry})
	m.emit(ctx, []Event{{Type: EventCancelled, Instance: inst, Actor: actor, Detail: reason}})
	return inst, nil
}

// SearchInstances runs a tenant-scoped search. The company filter comes
// from the authenticated actor, never from the request body.
func (m *InstanceManager) SearchInstances(req models.SearchInstancesRequest, actor Actor) (*[]domain.WorkflowInstance, error) {
	req.CompanyID = actor.CompanyID
	res, err := m.instances.SearchInstances(req)
	if err != nil {
		return nil, persistenceError(err, "failed to search workflow instances")
	}
	return res, nil
}

// InstanceHistory returns the append-only trail for one instance.
func (m *InstanceManager) InstanceHistory(instanceID int64, actor Actor) (*[]domain.HistoryEntry, error) {
	if _, err := m.loadForActor(instanceID, actor); err != nil {
		return nil, err
	}
	entries, err := m.history.FindAllByInstanceID(instanceID)
	if err != nil {
		return nil, persistenceError(err, "failed to load workflow history")
	}
	return entries, nil
}

// SearchHistory runs a tenant-scoped query over the audit trail.
func (m *InstanceManager) SearchHistory(q models.HistoryQuery, actor Actor) (*[]domain.HistoryEntry, int64, error) {
	q.CompanyID = actor.CompanyID
	entries, total, err := m.history.Search(q)
	if err != nil {
		return nil, 0, persistenceError(err, "failed to search workflow history")
	}
	return entries, total, nil
}

// runSteps walks the instance forward from the current pointer until it
// parks on an approval step or the instance completes. Task steps
// complete as soon as they start; condition steps evaluate their
// predicate and, when unsatisfied, skip the step that follows them.
func (m *InstanceManager) runSteps(inst *domain.WorkflowInstance, actor Actor, now time.Time, trail *[]domain.HistoryEntry) []Event {
	for {
		step := &inst.Steps[inst.CurrentStepIndex]
		if step.Status == domain.StepSkipped {
			*trail = append(*trail, m.stepEntry(inst, step, domain.ActionStepSkipped, actor, "step skipped by condition", ""))
			if inst.CurrentStepIndex == len(inst.Steps)-1 {
				m.completeInstance(inst, actor, now, trail)
				return []Event{{Type: EventCompleted, Instance: inst, Actor: actor}}
			}
			inst.CurrentStepIndex++
			continue
		}

		step.Status = domain.StepInProgress
		step.StartTime = &now
		step.EndTime = nil
		*trail = append(*trail, m.stepEntry(inst, step, domain.ActionStepStarted, actor, "step started", ""))

		switch step.Type {
		case domain.StepTypeApproval:
			return []Event{{Type: EventApprovalPending, Instance: inst, Step: step, Actor: actor}}

		case domain.StepTypeTask:
			step.Status = domain.StepCompleted
			step.EndTime = &now
			*trail = append(*trail, m.stepEntry(inst, step, domain.ActionStepCompleted, actor, "step completed", ""))

		case domain.StepTypeCondition:
			ok, err := m.conditions.Evaluate(step.Condition, inst.Variables)
			if err != nil {
				slog.Warn("Condition evaluation failed, treating as satisfied",
					"instanceId", inst.ID, "stepId", step.ID, "error", err)
				ok = true
			}
			step.Status = domain.StepCompleted
			step.EndTime = &now
			outcome := "condition satisfied"
			if !ok {
				outcome = "condition not satisfied"
			}
			*trail = append(*trail, m.stepEntry(inst, step, domain.ActionStepCompleted, actor, outcome, ""))
			if !ok && inst.CurrentStepIndex < len(inst.Steps)-1 {
				inst.Steps[inst.CurrentStepIndex+1].Status = domain.StepSkipped
			}
		}

		if inst.CurrentStepIndex == len(inst.Steps)-1 {
			m.completeInstance(inst, actor, now, trail)
			return []Event{{Type: EventCompleted, Instance: inst, Actor: actor}}
		}
		inst.CurrentStepIndex++
	}
}

// completeInstance freezes the pointer on the last step and marks the
// instance completed.
func (m *InstanceManager) completeInstance(inst *domain.WorkflowInstance, actor Actor, now time.Time, trail *[]domain.HistoryEntry) {
	inst.Status = domain.InstanceCompleted
	inst.EndDate = sql.NullTime{Time: now, Valid: true}
	*trail = append(*trail, m.instanceEntry(inst, domain.ActionCompleted, actor, "workflow completed"))
}

// loadForActor fetches an instance and enforces tenancy. A foreign
// tenant's instance reads as not found so ids do not leak across
// companies.
func (m *InstanceManager) loadForActor(id int64, actor Actor) (*domain.WorkflowInstance, error) {
	inst, err := m.instances.FindByID(id)
	if err != nil {
		return nil, persistenceError(err, "failed to load workflow instance")
	}
	if inst == nil || (actor.CompanyID != "" && inst.CompanyID != actor.CompanyID) {
		return nil, notFoundError("workflow instance %d not found", id)
	}
	return inst, nil
}

// loadForDecision loads the instance and checks that it is active and
// that stepID names the current in-progress step.
func (m *InstanceManager) loadForDecision(instanceID int64, stepID string, actor Actor) (*domain.WorkflowInstance, *domain.StepDefinition, error) {
	inst, err := m.loadForActor(instanceID, actor)
	if err != nil {
		return nil, nil, err
	}
	if inst.Status != domain.InstanceActive {
		return nil, nil, conflictError("workflow instance is not active")
	}
	cur := inst.CurrentStep()
	if cur == nil {
		return nil, nil, conflictError("workflow instance has no current step")
	}
	if cur.ID != stepID {
		if target, idx := inst.StepByID(stepID); target != nil && idx < inst.CurrentStepIndex {
			return nil, nil, conflictError("step %q has already been processed", stepID)
		}
		return nil, nil, conflictError("step %q is not the current step", stepID)
	}
	if cur.Type != domain.StepTypeApproval {
		return nil, nil, conflictError("current step is not an approval step")
	}
	return inst, cur, nil
}

// commit writes the mutated instance through the guarded update. Zero
// rows affected means another request won the race; nothing was
// written and the caller's state is stale.
func (m *InstanceManager) commit(inst *domain.WorkflowInstance, expectedModified time.Time) error {
	ok, err := m.instances.UpdateGuarded(inst, expectedModified)
	if err != nil {
		return persistenceError(err, "failed to update workflow instance")
	}
	if !ok {
		return conflictError("workflow instance was modified concurrently, reload and retry")
	}
	return nil
}

// appendTrail writes history entries after the commit. Failures are
// retried and then logged; the committed transition is never unwound
// for the sake of its audit rows.
func (m *InstanceManager) appendTrail(ctx context.Context, instanceID int64, entries []domain.HistoryEntry) {
	for i := range entries {
		entries[i].InstanceID = instanceID
		var err error
		for attempt := 0; attempt <= m.historyRetries; attempt++ {
			if _, err = m.history.Save(&entries[i]); err == nil {
				break
			}
		}
		if err != nil {
			slog.ErrorContext(ctx, "Failed to append workflow history entry",
				"instanceId", instanceID, "action", entries[i].Action, "error", err)
		}
	}
}

func (m *InstanceManager) instanceEntry(inst *domain.WorkflowInstance, action string, actor Actor, description string) domain.HistoryEntry {
	return domain.HistoryEntry{
		InstanceID:   inst.ID,
		CompanyID:    inst.CompanyID,
		InstanceType: inst.Type,
		Action:       action,
		ActorID:      actor.ID,
		ActorName:    actor.Name,
		Description:  description,
		Created:      m.clock.Now().UTC(),
	}
}

func (m *InstanceManager) stepEntry(inst *domain.WorkflowInstance, step *domain.StepDefinition, action string, actor Actor, description string, comments string) domain.HistoryEntry {
	e := m.instanceEntry(inst, action, actor, description)
	e.StepID = sql.NullString{String: step.ID, Valid: true}
	e.StepName = sql.NullString{String: step.Name, Valid: true}
	if comments != "" {
		e.Metadata = metadataJSON(map[string]string{"comments": comments})
	}
	return e
}

func metadataJSON(values map[string]string) sql.NullString {
	b, err := json.Marshal(values)
	if err != nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(b), Valid: true}
}
