package workflows

import (
	"context"

	"github.com/pulseopti/hrflow/internal/engine"
	"github.com/pulseopti/hrflow/pkg/hrflow/domain"
)

const TypeRecruitment = "recruitment"

// RecruitmentFactory routes a candidate from CV screening through
// interviews to the final offer approval.
type RecruitmentFactory struct{}

func (RecruitmentFactory) Type() string { return TypeRecruitment }

func (RecruitmentFactory) Description() string {
	return "Candidate pipeline: screening, interview scheduling, interview feedback, offer approval"
}

func (RecruitmentFactory) TemplateSteps() []domain.StepDefinition {
	return []domain.StepDefinition{
		{Name: "screening", Type: domain.StepTypeTask, Description: "Initial CV screening"},
		{Name: "interview-schedule", Type: domain.StepTypeApproval, AssigneeRole: "recruiter", Description: "Schedule the interview round"},
		{Name: "interview-feedback", Type: domain.StepTypeApproval, AssigneeRole: "interviewer", Description: "Record the interview outcome"},
		{Name: "offer-approval", Type: domain.StepTypeApproval, AssigneeRole: "hr", Description: "Approve the offer"},
	}
}

func (f RecruitmentFactory) BuildSteps(params map[string]string) ([]domain.StepDefinition, error) {
	steps := f.TemplateSteps()
	for i := range steps {
		if steps[i].Type != domain.StepTypeApproval {
			continue
		}
		var key string
		switch steps[i].Name {
		case "interview-schedule":
			key = "recruiterId"
		case "interview-feedback":
			key = "interviewerId"
		case "offer-approval":
			key = "offerApproverId"
		}
		steps[i].AssigneeID, steps[i].AssigneeRole = assignee(params, key, steps[i].AssigneeRole)
	}
	return steps, nil
}

// StartRecruitmentWorkflow creates the pipeline instance for one
// candidate.
func (r *Registry) StartRecruitmentWorkflow(ctx context.Context, candidateID string, candidateName string, params map[string]string, actor engine.Actor) (*domain.WorkflowInstance, error) {
	vars := map[string]string{"candidateId": candidateID}
	return r.Start(ctx, TypeRecruitment, candidateID, "Recruitment: "+candidateName, params, vars, actor)
}

// GetRecruitmentWorkflow looks up the instance attached to a candidate.
func (r *Registry) GetRecruitmentWorkflow(candidateID string, actor engine.Actor) (*domain.WorkflowInstance, error) {
	return r.Lookup(TypeRecruitment, candidateID, actor)
}
