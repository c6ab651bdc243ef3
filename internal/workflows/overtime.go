package workflows

import (
	"context"

	"github.com/pulseopti/hrflow/internal/engine"
	"github.com/pulseopti/hrflow/pkg/hrflow/domain"
)

const TypeOvertime = "overtime"

// OvertimeFactory mirrors the leave chain for overtime claims.
type OvertimeFactory struct{}

func (OvertimeFactory) Type() string { return TypeOvertime }

func (OvertimeFactory) Description() string {
	return "Overtime claim: direct manager approval, then HR approval"
}

func (OvertimeFactory) TemplateSteps() []domain.StepDefinition {
	return []domain.StepDefinition{
		{Name: "manager-approval", Type: domain.StepTypeApproval, AssigneeRole: "manager", Description: "Direct manager sign-off"},
		{Name: "hr-approval", Type: domain.StepTypeApproval, AssigneeRole: "hr", Description: "HR sign-off"},
	}
}

func (f OvertimeFactory) BuildSteps(params map[string]string) ([]domain.StepDefinition, error) {
	managerID := params["managerId"]
	if managerID == "" {
		return nil, engine.ValidationErrorf("overtime workflow requires a managerId parameter")
	}
	hrRole := params["hrRole"]
	if hrRole == "" {
		hrRole = "hr"
	}
	steps := f.TemplateSteps()
	steps[0].AssigneeID = managerID
	steps[0].AssigneeRole = ""
	steps[1].AssigneeRole = hrRole
	return steps, nil
}

// StartOvertimeWorkflow creates the approval chain for one overtime
// claim.
func (r *Registry) StartOvertimeWorkflow(ctx context.Context, claimID string, params map[string]string, actor engine.Actor) (*domain.WorkflowInstance, error) {
	vars := map[string]string{"overtimeClaimId": claimID}
	return r.Start(ctx, TypeOvertime, claimID, "Overtime claim "+claimID, params, vars, actor)
}

// GetOvertimeWorkflow looks up the instance attached to an overtime
// claim.
func (r *Registry) GetOvertimeWorkflow(claimID string, actor engine.Actor) (*domain.WorkflowInstance, error) {
	return r.Lookup(TypeOvertime, claimID, actor)
}
