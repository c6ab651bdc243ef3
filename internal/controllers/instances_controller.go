package controllers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/pulseopti/hrflow/internal/config"
	"github.com/pulseopti/hrflow/internal/engine"
	"github.com/pulseopti/hrflow/internal/util"
	"github.com/pulseopti/hrflow/internal/workflows"
	"github.com/pulseopti/hrflow/pkg/hrflow/domain"
	"github.com/pulseopti/hrflow/pkg/hrflow/models"
)

// InstancesController exposes the workflow engine over HTTP.
type InstancesController struct {
	AuthController
	Manager  *engine.InstanceManager
	Registry *workflows.Registry
}

func NewInstancesController(manager *engine.InstanceManager, registry *workflows.Registry, auth AuthController) *InstancesController {
	return &InstancesController{AuthController: auth, Manager: manager, Registry: registry}
}

// writeEngineError maps the engine error taxonomy onto HTTP statuses.
func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case engine.IsValidation(err):
		util.WriteJSONError(w, http.StatusBadRequest, err.Error())
	case engine.IsStateConflict(err):
		util.WriteJSONError(w, http.StatusConflict, err.Error())
	case engine.IsNotFound(err):
		util.WriteJSONError(w, http.StatusNotFound, err.Error())
	case engine.IsPersistence(err):
		slog.Error("Persistence failure", "error", err)
		util.WriteJSONError(w, http.StatusServiceUnavailable, "storage unavailable, retry later")
	default:
		slog.Error("Unexpected engine error", "error", err)
		util.WriteJSONError(w, http.StatusInternalServerError, "internal error")
	}
}

func (c *InstancesController) handleCreateInstance(w http.ResponseWriter, r *http.Request) {
	var req models.CreateInstanceRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		util.WriteJSONError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if req.Type == "" {
		util.WriteJSONError(w, http.StatusBadRequest, "type is required")
		return
	}
	actor := actorFromContext(r.Context())

	var steps []domain.StepDefinition
	if len(req.Steps) > 0 {
		steps = make([]domain.StepDefinition, len(req.Steps))
		for i, s := range req.Steps {
			steps[i] = domain.StepDefinition{
				ID:           s.ID,
				Name:         s.Name,
				Description:  s.Description,
				Type:         domain.StepType(s.Type),
				AssigneeID:   s.AssigneeID,
				AssigneeRole: s.AssigneeRole,
				Condition:    s.Condition,
			}
		}
	} else {
		built, err := c.Registry.BuildSteps(req.Type, req.Params)
		if err != nil {
			writeEngineError(w, err)
			return
		}
		steps = built
	}

	name := req.Name
	if name == "" {
		name = req.Type + " " + req.ExternalID
	}

	slog.InfoContext(r.Context(), "Creating workflow instance",
		"type", req.Type, "externalId", req.ExternalID, "companyId", actor.CompanyID)

	inst, err := c.Manager.CreateInstance(r.Context(), engine.CreateSpec{
		CompanyID:  actor.CompanyID,
		Type:       req.Type,
		Name:       name,
		ExternalID: req.ExternalID,
		Steps:      steps,
		Variables:  req.Variables,
	}, actor)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	util.WriteJSONResponse(w, http.StatusCreated, models.CreateInstanceResponse{ID: inst.ID})
}

func (c *InstancesController) handleGetInstanceById(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		util.WriteJSONError(w, http.StatusBadRequest, "id is an integer")
		return
	}
	inst, err := c.Manager.GetInstance(id, actorFromContext(r.Context()))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	util.WriteJSONResponse(w, http.StatusOK, mapInstanceToApi(inst))
}

func (c *InstancesController) handleGetInstanceByExternalId(w http.ResponseWriter, r *http.Request) {
	externalID := r.PathValue("externalId")
	if externalID == "" {
		util.WriteJSONError(w, http.StatusBadRequest, "externalId is required")
		return
	}
	inst, err := c.Manager.GetInstanceByExternalID(externalID, actorFromContext(r.Context()))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	util.WriteJSONResponse(w, http.StatusOK, mapInstanceToApi(inst))
}

func (c *InstancesController) handleDecision(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		util.WriteJSONError(w, http.StatusBadRequest, "id is an integer")
		return
	}
	var req models.DecisionRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		util.WriteJSONError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if req.StepID == "" {
		util.WriteJSONError(w, http.StatusBadRequest, "stepId is required")
		return
	}
	actor := actorFromContext(r.Context())

	slog.InfoContext(r.Context(), "Workflow decision",
		"instanceId", id, "stepId", req.StepID, "action", req.Action, "actorId", actor.ID)

	var inst *domain.WorkflowInstance
	switch req.Action {
	case models.DecisionApprove:
		inst, err = c.Manager.ApproveStep(r.Context(), id, req.StepID, req.Comments, actor)
	case models.DecisionReject:
		inst, err = c.Manager.RejectStep(r.Context(), id, req.StepID, req.Comments, actor)
	case models.DecisionReturn:
		inst, err = c.Manager.ReturnStep(r.Context(), id, req.StepID, req.Comments, actor)
	default:
		util.WriteJSONError(w, http.StatusBadRequest, "action must be approve, reject or return")
		return
	}
	if err != nil {
		writeEngineError(w, err)
		return
	}
	util.WriteJSONResponse(w, http.StatusOK, mapInstanceToApi(inst))
}

func (c *InstancesController) handleCancelInstance(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		util.WriteJSONError(w, http.StatusBadRequest, "id is an integer")
		return
	}
	var req models.CancelInstanceRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		util.WriteJSONError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	inst, err := c.Manager.CancelInstance(r.Context(), id, req.Reason, actorFromContext(r.Context()))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	util.WriteJSONResponse(w, http.StatusOK, mapInstanceToApi(inst))
}

func (c *InstancesController) handleSearchInstances(w http.ResponseWriter, r *http.Request) {
	var req models.SearchInstancesRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		util.WriteJSONError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	maxLimit := int64(config.GetSystemSettingInteger(config.SEARCH_MAX_LIMIT))
	if req.Limit > maxLimit {
		util.WriteJSONError(w, http.StatusBadRequest, "limit cannot be greater than "+strconv.FormatInt(maxLimit, 10))
		return
	}

	results, err := c.Manager.SearchInstances(req, actorFromContext(r.Context()))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	instances := make([]models.InstanceApiResponse, 0, len(*results))
	for i := range *results {
		instances = append(instances, mapInstanceToApi(&(*results)[i]))
	}
	util.WriteJSONResponse(w, http.StatusOK, models.SearchInstancesResponse{
		Results:   len(instances),
		Offset:    req.Offset,
		Instances: instances,
	})
}

func mapInstanceToApi(inst *domain.WorkflowInstance) models.InstanceApiResponse {
	steps := make([]models.StepApiResponse, len(inst.Steps))
	for i, s := range inst.Steps {
		steps[i] = models.StepApiResponse{
			ID:           s.ID,
			Name:         s.Name,
			Description:  s.Description,
			Type:         string(s.Type),
			AssigneeID:   s.AssigneeID,
			AssigneeRole: s.AssigneeRole,
			Status:       string(s.Status),
			StartTime:    s.StartTime,
			EndTime:      s.EndTime,
			Comments:     s.Comments,
		}
	}
	resp := models.InstanceApiResponse{
		ID:               inst.ID,
		CompanyID:        inst.CompanyID,
		Type:             inst.Type,
		Name:             inst.Name,
		ExternalID:       inst.ExternalID,
		Status:           string(inst.Status),
		CurrentStepIndex: inst.CurrentStepIndex,
		Steps:            steps,
		InitiatorID:      inst.InitiatorID,
		InitiatorName:    inst.InitiatorName,
		Variables:        inst.Variables,
		StartDate:        inst.StartDate,
	}
	if inst.Status == domain.InstanceActive {
		if cur := inst.CurrentStep(); cur != nil {
			s := steps[inst.CurrentStepIndex]
			resp.CurrentStep = &s
		}
	}
	if inst.EndDate.Valid {
		t := inst.EndDate.Time
		resp.EndDate = &t
	}
	return resp
}
