package controllers

import (
	"log/slog"
	"net/http"

	"github.com/pulseopti/hrflow/internal/engine"
	"github.com/pulseopti/hrflow/internal/util"
	"github.com/pulseopti/hrflow/pkg/hrflow/domain"
	"github.com/pulseopti/hrflow/pkg/hrflow/models"
)

// TemplatesController lists the step templates the factory registry
// registered at startup.
type TemplatesController struct {
	AuthController
	TemplateRepo engine.TemplateRepo
}

func NewTemplatesController(templateRepo engine.TemplateRepo, auth AuthController) *TemplatesController {
	return &TemplatesController{AuthController: auth, TemplateRepo: templateRepo}
}

func (c *TemplatesController) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := c.TemplateRepo.FindAll()
	if err != nil {
		slog.Error("Failed to list workflow templates", "error", err)
		util.WriteJSONError(w, http.StatusInternalServerError, "failed to load templates")
		return
	}
	out := make([]models.TemplateApiResponse, 0, len(*templates))
	for i := range *templates {
		out = append(out, mapTemplateToApi(&(*templates)[i]))
	}
	util.WriteJSONResponse(w, http.StatusOK, out)
}

func (c *TemplatesController) handleGetTemplateByType(w http.ResponseWriter, r *http.Request) {
	workflowType := r.PathValue("type")
	if workflowType == "" {
		util.WriteJSONError(w, http.StatusBadRequest, "type is required")
		return
	}
	t, err := c.TemplateRepo.FindByType(workflowType)
	if err != nil {
		slog.Error("Failed to get workflow template", "type", workflowType, "error", err)
		util.WriteJSONError(w, http.StatusInternalServerError, "failed to load template")
		return
	}
	if t == nil {
		util.WriteJSONError(w, http.StatusNotFound, "template not found")
		return
	}
	util.WriteJSONResponse(w, http.StatusOK, mapTemplateToApi(t))
}

func mapTemplateToApi(t *domain.WorkflowTemplate) models.TemplateApiResponse {
	api := models.TemplateApiResponse{
		Type:        t.Type,
		Description: t.Description,
		Steps:       []models.StepInput{},
		Created:     t.Created,
		Updated:     t.Updated,
	}
	steps, err := domain.UnmarshalSteps(t.Steps)
	if err != nil {
		slog.Warn("Failed to parse template steps", "type", t.Type, "error", err)
		return api
	}
	for _, s := range steps {
		api.Steps = append(api.Steps, models.StepInput{
			Name:         s.Name,
			Description:  s.Description,
			Type:         string(s.Type),
			AssigneeID:   s.AssigneeID,
			AssigneeRole: s.AssigneeRole,
			Condition:    s.Condition,
		})
	}
	return api
}
