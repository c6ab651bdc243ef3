package workflows

import (
	"context"

	"github.com/pulseopti/hrflow/internal/engine"
	"github.com/pulseopti/hrflow/pkg/hrflow/domain"
)

const TypeLeave = "leave"

// LeaveFactory routes a leave request to the employee's direct manager
// and then to HR.
type LeaveFactory struct{}

func (LeaveFactory) Type() string { return TypeLeave }

func (LeaveFactory) Description() string {
	return "Leave request: direct manager approval, then HR approval"
}

func (LeaveFactory) TemplateSteps() []domain.StepDefinition {
	return []domain.StepDefinition{
		{Name: "manager-approval", Type: domain.StepTypeApproval, AssigneeRole: "manager", Description: "Direct manager sign-off"},
		{Name: "hr-approval", Type: domain.StepTypeApproval, AssigneeRole: "hr", Description: "HR sign-off"},
	}
}

func (f LeaveFactory) BuildSteps(params map[string]string) ([]domain.StepDefinition, error) {
	managerID := params["managerId"]
	if managerID == "" {
		return nil, engine.ValidationErrorf("leave workflow requires a managerId parameter")
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

// StartLeaveWorkflow creates the approval chain for one leave request.
func (r *Registry) StartLeaveWorkflow(ctx context.Context, requestID string, params map[string]string, actor engine.Actor) (*domain.WorkflowInstance, error) {
	vars := map[string]string{"leaveRequestId": requestID}
	return r.Start(ctx, TypeLeave, requestID, "Leave request "+requestID, params, vars, actor)
}

// GetLeaveWorkflow looks up the instance attached to a leave request.
func (r *Registry) GetLeaveWorkflow(requestID string, actor engine.Actor) (*domain.WorkflowInstance, error) {
	return r.Lookup(TypeLeave, requestID, actor)
}
