package workflows

import (
	"context"

	"github.com/pulseopti/hrflow/internal/engine"
	"github.com/pulseopti/hrflow/pkg/hrflow/domain"
)

const TypePointsApproval = "points_approval"

// PointsApprovalFactory gates a point balance adjustment behind a
// single approval. The balance mutation itself happens in the points
// service once the instance completes.
type PointsApprovalFactory struct{}

func (PointsApprovalFactory) Type() string { return TypePointsApproval }

func (PointsApprovalFactory) Description() string {
	return "Points adjustment: single approval gate before the balance changes"
}

func (PointsApprovalFactory) TemplateSteps() []domain.StepDefinition {
	return []domain.StepDefinition{
		{Name: "points-approval", Type: domain.StepTypeApproval, AssigneeRole: "hr", Description: "Approve the point adjustment"},
	}
}

func (f PointsApprovalFactory) BuildSteps(params map[string]string) ([]domain.StepDefinition, error) {
	steps := f.TemplateSteps()
	steps[0].AssigneeID, steps[0].AssigneeRole = assignee(params, "approverId", steps[0].AssigneeRole)
	return steps, nil
}

// StartPointsApprovalWorkflow creates the approval gate for one point
// adjustment record.
func (r *Registry) StartPointsApprovalWorkflow(ctx context.Context, adjustmentID string, params map[string]string, actor engine.Actor) (*domain.WorkflowInstance, error) {
	vars := map[string]string{"pointsAdjustmentId": adjustmentID}
	return r.Start(ctx, TypePointsApproval, adjustmentID, "Points adjustment "+adjustmentID, params, vars, actor)
}

// GetPointsApprovalWorkflow looks up the instance attached to a point
// adjustment record.
func (r *Registry) GetPointsApprovalWorkflow(adjustmentID string, actor engine.Actor) (*domain.WorkflowInstance, error) {
	return r.Lookup(TypePointsApproval, adjustmentID, actor)
}
