package controllers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/pulseopti/hrflow/internal/config"
	"github.com/pulseopti/hrflow/internal/engine"
	"github.com/pulseopti/hrflow/internal/util"
	"github.com/pulseopti/hrflow/pkg/hrflow/domain"
	"github.com/pulseopti/hrflow/pkg/hrflow/models"
)

// HistoryController serves the append-only audit trail.
type HistoryController struct {
	AuthController
	Manager *engine.InstanceManager
}

func NewHistoryController(manager *engine.InstanceManager, auth AuthController) *HistoryController {
	return &HistoryController{AuthController: auth, Manager: manager}
}

func (c *HistoryController) handleGetInstanceHistory(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		util.WriteJSONError(w, http.StatusBadRequest, "id is an integer")
		return
	}
	entries, err := c.Manager.InstanceHistory(id, actorFromContext(r.Context()))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	util.WriteJSONResponse(w, http.StatusOK, mapHistoryToApi(entries))
}

// handleSearchHistory serves the dashboard query over all instances.
// Filters come from query params; the company always comes from the
// session.
func (c *HistoryController) handleSearchHistory(w http.ResponseWriter, r *http.Request) {
	q := models.HistoryQuery{
		Type:    r.URL.Query().Get("type"),
		Action:  r.URL.Query().Get("action"),
		ActorID: r.URL.Query().Get("actorId"),
	}
	if v := r.URL.Query().Get("instanceId"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			util.WriteJSONError(w, http.StatusBadRequest, "instanceId is an integer")
			return
		}
		q.InstanceID = id
	}
	if v := r.URL.Query().Get("startDate"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			util.WriteJSONError(w, http.StatusBadRequest, "startDate must be RFC3339")
			return
		}
		q.StartDate = t
	}
	if v := r.URL.Query().Get("endDate"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			util.WriteJSONError(w, http.StatusBadRequest, "endDate must be RFC3339")
			return
		}
		q.EndDate = t
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			util.WriteJSONError(w, http.StatusBadRequest, "limit is an integer")
			return
		}
		q.Limit = n
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			util.WriteJSONError(w, http.StatusBadRequest, "offset is an integer")
			return
		}
		q.Offset = n
	}
	maxLimit := int64(config.GetSystemSettingInteger(config.SEARCH_MAX_LIMIT))
	if q.Limit > maxLimit {
		util.WriteJSONError(w, http.StatusBadRequest, "limit cannot be greater than "+strconv.FormatInt(maxLimit, 10))
		return
	}

	entries, total, err := c.Manager.SearchHistory(q, actorFromContext(r.Context()))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	util.WriteJSONResponse(w, http.StatusOK, models.HistoryQueryResponse{
		Total:   total,
		Offset:  q.Offset,
		Entries: mapHistoryToApi(entries),
	})
}

func mapHistoryToApi(entries *[]domain.HistoryEntry) []models.HistoryEntryApiResponse {
	out := make([]models.HistoryEntryApiResponse, 0, len(*entries))
	for _, e := range *entries {
		api := models.HistoryEntryApiResponse{
			ID:           e.ID,
			InstanceID:   e.InstanceID,
			CompanyID:    e.CompanyID,
			InstanceType: e.InstanceType,
			Action:       e.Action,
			ActorID:      e.ActorID,
			ActorName:    e.ActorName,
			Description:  e.Description,
			Created:      e.Created,
		}
		if e.StepID.Valid {
			api.StepID = e.StepID.String
		}
		if e.StepName.Valid {
			api.StepName = e.StepName.String
		}
		if e.Metadata.Valid {
			api.Metadata = e.Metadata.String
		}
		out = append(out, api)
	}
	return out
}
