package workflows

import (
	"context"

	"github.com/pulseopti/hrflow/internal/engine"
	"github.com/pulseopti/hrflow/pkg/hrflow/core"
	"github.com/pulseopti/hrflow/pkg/hrflow/domain"
)

// Factory encodes one business process as a step list. Factories hold
// routing policy only; every state-machine rule lives in the engine.
type Factory interface {
	Type() string
	Description() string
	// TemplateSteps returns the canonical step shape with role
	// placeholders, stored as the workflow template row.
	TemplateSteps() []domain.StepDefinition
	// BuildSteps resolves the template against per-request parameters
	// such as the employee's direct manager.
	BuildSteps(params map[string]string) ([]domain.StepDefinition, error)
}

// Registry holds the domain workflow factories and the typed start and
// lookup operations built on top of the instance manager.
type Registry struct {
	manager   *engine.InstanceManager
	templates engine.TemplateRepo
	clock     core.Clock
	factories map[string]Factory
}

func NewRegistry(manager *engine.InstanceManager, templates engine.TemplateRepo, clock core.Clock) *Registry {
	r := &Registry{
		manager:   manager,
		templates: templates,
		clock:     clock,
		factories: make(map[string]Factory),
	}
	r.Register(RecruitmentFactory{})
	r.Register(LeaveFactory{})
	r.Register(OvertimeFactory{})
	r.Register(PointsApprovalFactory{})
	return r
}

func (r *Registry) Register(f Factory) {
	r.factories[f.Type()] = f
}

// RegisterTemplates upserts each factory's template row. Called once at
// startup after migrations.
func (r *Registry) RegisterTemplates() error {
	now := r.clock.Now().UTC()
	for _, f := range r.factories {
		raw, err := domain.MarshalSteps(f.TemplateSteps())
		if err != nil {
			return err
		}
		t := &domain.WorkflowTemplate{
			Type:        f.Type(),
			Description: f.Description(),
			Steps:       raw,
			Created:     now,
			Updated:     now,
		}
		if err := r.templates.Save(t); err != nil {
			return err
		}
	}
	return nil
}

// BuildSteps expands request parameters through the factory registered
// for workflowType.
func (r *Registry) BuildSteps(workflowType string, params map[string]string) ([]domain.StepDefinition, error) {
	f, ok := r.factories[workflowType]
	if !ok {
		return nil, engine.ValidationErrorf("no workflow factory registered for type %q", workflowType)
	}
	return f.BuildSteps(params)
}

// Start builds the step list for a business record and creates its
// instance. The external id ties the instance back to the record.
func (r *Registry) Start(ctx context.Context, workflowType string, recordID string, name string, params map[string]string, variables map[string]string, actor engine.Actor) (*domain.WorkflowInstance, error) {
	steps, err := r.BuildSteps(workflowType, params)
	if err != nil {
		return nil, err
	}
	spec := engine.CreateSpec{
		CompanyID:  actor.CompanyID,
		Type:       workflowType,
		Name:       name,
		ExternalID: ExternalID(workflowType, recordID),
		Steps:      steps,
		Variables:  variables,
	}
	return r.manager.CreateInstance(ctx, spec, actor)
}

// Lookup resolves the workflow instance attached to a business record,
// used by CRUD routes to decorate records with workflow status.
func (r *Registry) Lookup(workflowType string, recordID string, actor engine.Actor) (*domain.WorkflowInstance, error) {
	return r.manager.GetInstanceByExternalID(ExternalID(workflowType, recordID), actor)
}

// ExternalID builds the "<type>:<recordId>" key linking an instance to
// its business record.
func ExternalID(workflowType string, recordID string) string {
	return workflowType + ":" + recordID
}

// assignee fills exactly one of assigneeId or assigneeRole: a concrete
// user id from params wins, otherwise the fallback role applies.
func assignee(params map[string]string, key string, fallbackRole string) (string, string) {
	if id := params[key]; id != "" {
		return id, ""
	}
	return "", fallbackRole
}
