package controllers

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulseopti/hrflow/internal/engine"
	"github.com/pulseopti/hrflow/internal/workflows"
	"github.com/pulseopti/hrflow/pkg/hrflow/domain"
	"github.com/pulseopti/hrflow/pkg/hrflow/models"
)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

type memInstanceRepo struct {
	mu     sync.Mutex
	nextID int64
	byID   map[int64]*domain.WorkflowInstance
}

func newMemInstanceRepo() *memInstanceRepo {
	return &memInstanceRepo{nextID: 1, byID: map[int64]*domain.WorkflowInstance{}}
}

func clone(inst *domain.WorkflowInstance) *domain.WorkflowInstance {
	c := *inst
	c.Steps = append([]domain.StepDefinition(nil), inst.Steps...)
	return &c
}

func (m *memInstanceRepo) Save(inst *domain.WorkflowInstance) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, stored := range m.byID {
		if stored.CompanyID == inst.CompanyID && stored.ExternalID == inst.ExternalID {
			return 0, fmt.Errorf("%w %q", domain.ErrDuplicateExternalID, inst.ExternalID)
		}
	}
	inst.ID = m.nextID
	m.nextID++
	m.byID[inst.ID] = clone(inst)
	return inst.ID, nil
}
func (m *memInstanceRepo) FindByID(id int64) (*domain.WorkflowInstance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if inst, ok := m.byID[id]; ok {
		return clone(inst), nil
	}
	return nil, nil
}
func (m *memInstanceRepo) FindByExternalID(companyID string, externalID string) (*domain.WorkflowInstance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, inst := range m.byID {
		if inst.CompanyID == companyID && inst.ExternalID == externalID {
			return clone(inst), nil
		}
	}
	return nil, nil
}
func (m *memInstanceRepo) UpdateGuarded(inst *domain.WorkflowInstance, expectedModified time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.byID[inst.ID]
	if !ok || !stored.Modified.Equal(expectedModified) || stored.Status != domain.InstanceActive {
		return false, nil
	}
	m.byID[inst.ID] = clone(inst)
	return true, nil
}
func (m *memInstanceRepo) SearchInstances(req models.SearchInstancesRequest) (*[]domain.WorkflowInstance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.WorkflowInstance, 0)
	for _, inst := range m.byID {
		if inst.CompanyID == req.CompanyID {
			out = append(out, *clone(inst))
		}
	}
	return &out, nil
}

type memHistoryRepo struct {
	mu      sync.Mutex
	entries []domain.HistoryEntry
}

func (m *memHistoryRepo) Save(e *domain.HistoryEntry) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.ID = int64(len(m.entries) + 1)
	m.entries = append(m.entries, *e)
	return e.ID, nil
}
func (m *memHistoryRepo) FindAllByInstanceID(instanceID int64) (*[]domain.HistoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.HistoryEntry, 0)
	for _, e := range m.entries {
		if e.InstanceID == instanceID {
			out = append(out, e)
		}
	}
	return &out, nil
}
func (m *memHistoryRepo) Search(q models.HistoryQuery) (*[]domain.HistoryEntry, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.HistoryEntry, 0)
	for _, e := range m.entries {
		if e.CompanyID == q.CompanyID {
			out = append(out, e)
		}
	}
	return &out, int64(len(out)), nil
}

type memTemplateRepo struct {
	mu   sync.Mutex
	byTy map[string]domain.WorkflowTemplate
}

func newMemTemplateRepo() *memTemplateRepo {
	return &memTemplateRepo{byTy: map[string]domain.WorkflowTemplate{}}
}
func (m *memTemplateRepo) Save(t *domain.WorkflowTemplate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byTy[t.Type] = *t
	return nil
}
func (m *memTemplateRepo) FindByType(workflowType string) (*domain.WorkflowTemplate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.byTy[workflowType]; ok {
		return &t, nil
	}
	return nil, nil
}
func (m *memTemplateRepo) FindAll() (*[]domain.WorkflowTemplate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.WorkflowTemplate, 0, len(m.byTy))
	for _, t := range m.byTy {
		out = append(out, t)
	}
	return &out, nil
}

type memUserRepo struct {
	users []domain.User
}

func (m *memUserRepo) FindBySessionID(sessionID string, now time.Time) (*domain.User, error) {
	for i := range m.users {
		u := &m.users[i]
		if u.SessionID.Valid && u.SessionID.String == sessionID &&
			u.SessionExpiry.Valid && u.SessionExpiry.Time.After(now) {
			return u, nil
		}
	}
	return nil, nil
}
func (m *memUserRepo) FindByApiKey(apiKey string) (*domain.User, error) {
	for i := range m.users {
		if m.users[i].ApiKey.Valid && m.users[i].ApiKey.String == apiKey {
			return &m.users[i], nil
		}
	}
	return nil, nil
}
func (m *memUserRepo) FindByUsername(username string) (*domain.User, error) {
	for i := range m.users {
		if m.users[i].Username == username {
			return &m.users[i], nil
		}
	}
	return nil, nil
}
func (m *memUserRepo) FindById(id int64) (*domain.User, error) {
	for i := range m.users {
		if m.users[i].ID == id {
			return &m.users[i], nil
		}
	}
	return nil, nil
}
func (m *memUserRepo) FindAllByCompany(companyID string) (*[]domain.User, error) {
	out := make([]domain.User, 0)
	for _, u := range m.users {
		if u.CompanyID == companyID {
			out = append(out, u)
		}
	}
	return &out, nil
}
func (m *memUserRepo) Save(user *domain.User) (int64, error) {
	user.ID = int64(len(m.users) + 1)
	m.users = append(m.users, *user)
	return user.ID, nil
}
func (m *memUserRepo) DeleteById(id int64) error {
	for i := range m.users {
		if m.users[i].ID == id {
			m.users = append(m.users[:i], m.users[i+1:]...)
			return nil
		}
	}
	return nil
}
func (m *memUserRepo) UpdateSession(userID int64, sessionID string, expiry time.Time) error {
	for i := range m.users {
		if m.users[i].ID == userID {
			m.users[i].SessionID = sql.NullString{String: sessionID, Valid: true}
			m.users[i].SessionExpiry = sql.NullTime{Time: expiry, Valid: true}
		}
	}
	return nil
}
func (m *memUserRepo) ClearSessionBySessionID(sessionID string) error {
	for i := range m.users {
		if m.users[i].SessionID.Valid && m.users[i].SessionID.String == sessionID {
			m.users[i].SessionID = sql.NullString{}
			m.users[i].SessionExpiry = sql.NullTime{}
		}
	}
	return nil
}

const (
	acmeApiKey   = "key-acme"
	globexApiKey = "key-globex"
)

func newTestServer(t *testing.T) (*http.ServeMux, *engine.InstanceManager) {
	t.Helper()
	clock := fixedClock{now: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
	users := &memUserRepo{users: []domain.User{
		{ID: 1, CompanyID: "acme", Username: "amara", ApiKey: sql.NullString{String: acmeApiKey, Valid: true}},
		{ID: 2, CompanyID: "globex", Username: "mallory", ApiKey: sql.NullString{String: globexApiKey, Valid: true}},
	}}

	manager := engine.NewInstanceManager(newMemInstanceRepo(), &memHistoryRepo{}, clock, 1)
	templates := newMemTemplateRepo()
	registry := workflows.NewRegistry(manager, templates, clock)
	require.NoError(t, registry.RegisterTemplates())

	mux := http.NewServeMux()
	auth := AuthController{UserRepo: users, Clock: clock}
	auth.RegisterRoutes(mux)
	NewInstancesController(manager, registry, auth).RegisterRoutes(mux)
	NewHistoryController(manager, auth).RegisterRoutes(mux)
	NewTemplatesController(templates, auth).RegisterRoutes(mux)
	NewUsersController(users, auth).RegisterRoutes(mux)
	return mux, manager
}

func doJSON(t *testing.T, mux *http.ServeMux, method, path, apiKey string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func createLeave(t *testing.T, mux *http.ServeMux) models.InstanceApiResponse {
	t.Helper()
	rec := doJSON(t, mux, http.MethodPost, "/api/workflows/instances", acmeApiKey, models.CreateInstanceRequest{
		Type:       "leave",
		ExternalID: "leave:301",
		Params:     map[string]string{"managerId": "11"},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created models.CreateInstanceResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	get := doJSON(t, mux, http.MethodGet, "/api/workflows/instances/1", acmeApiKey, nil)
	require.Equal(t, http.StatusOK, get.Code)
	var inst models.InstanceApiResponse
	require.NoError(t, json.Unmarshal(get.Body.Bytes(), &inst))
	return inst
}

func TestCreateInstance_RequiresAuth(t *testing.T) {
	mux, _ := newTestServer(t)
	rec := doJSON(t, mux, http.MethodPost, "/api/workflows/instances", "", models.CreateInstanceRequest{Type: "leave"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateInstance_FactoryPath(t *testing.T) {
	mux, _ := newTestServer(t)
	inst := createLeave(t, mux)

	assert.Equal(t, "leave", inst.Type)
	assert.Equal(t, "acme", inst.CompanyID)
	assert.Equal(t, "active", inst.Status)
	require.Len(t, inst.Steps, 2)
	require.NotNil(t, inst.CurrentStep)
	assert.Equal(t, "manager-approval", inst.CurrentStep.Name)
	assert.Equal(t, "amara", inst.InitiatorName)
}

func TestCreateInstance_FactoryValidation(t *testing.T) {
	mux, _ := newTestServer(t)
	rec := doJSON(t, mux, http.MethodPost, "/api/workflows/instances", acmeApiKey, models.CreateInstanceRequest{
		Type:       "leave",
		ExternalID: "leave:302",
		// managerId missing
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, mux, http.MethodPost, "/api/workflows/instances", acmeApiKey, models.CreateInstanceRequest{
		Type:       "unknown-type",
		ExternalID: "x:1",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateInstance_DuplicateExternalIDConflicts(t *testing.T) {
	mux, _ := newTestServer(t)
	createLeave(t, mux)

	rec := doJSON(t, mux, http.MethodPost, "/api/workflows/instances", acmeApiKey, models.CreateInstanceRequest{
		Type:       "leave",
		ExternalID: "leave:301",
		Params:     map[string]string{"managerId": "11"},
	})
	assert.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())
}

func TestDecision_ApproveAndStatusMapping(t *testing.T) {
	mux, _ := newTestServer(t)
	inst := createLeave(t, mux)
	stepID := inst.CurrentStep.ID

	// bad action
	rec := doJSON(t, mux, http.MethodPost, "/api/workflows/instances/1/decision", acmeApiKey,
		models.DecisionRequest{StepID: stepID, Action: "escalate"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// approve moves to hr-approval
	rec = doJSON(t, mux, http.MethodPost, "/api/workflows/instances/1/decision", acmeApiKey,
		models.DecisionRequest{StepID: stepID, Action: models.DecisionApprove, Comments: "ok"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated models.InstanceApiResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, 1, updated.CurrentStepIndex)
	assert.Equal(t, "hr-approval", updated.CurrentStep.Name)

	// replaying the processed step conflicts
	rec = doJSON(t, mux, http.MethodPost, "/api/workflows/instances/1/decision", acmeApiKey,
		models.DecisionRequest{StepID: stepID, Action: models.DecisionApprove})
	assert.Equal(t, http.StatusConflict, rec.Code)

	// missing instance is a 404
	rec = doJSON(t, mux, http.MethodPost, "/api/workflows/instances/999/decision", acmeApiKey,
		models.DecisionRequest{StepID: stepID, Action: models.DecisionApprove})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDecision_RejectCancelsInstance(t *testing.T) {
	mux, _ := newTestServer(t)
	inst := createLeave(t, mux)

	rec := doJSON(t, mux, http.MethodPost, "/api/workflows/instances/1/decision", acmeApiKey,
		models.DecisionRequest{StepID: inst.CurrentStep.ID, Action: models.DecisionReject, Comments: "no"})
	require.Equal(t, http.StatusOK, rec.Code)
	var updated models.InstanceApiResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, "cancelled", updated.Status)
	assert.NotNil(t, updated.EndDate)
	assert.Nil(t, updated.CurrentStep)
}

func TestTenancy_ForeignCompanyGets404(t *testing.T) {
	mux, _ := newTestServer(t)
	inst := createLeave(t, mux)

	rec := doJSON(t, mux, http.MethodGet, "/api/workflows/instances/1", globexApiKey, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, mux, http.MethodPost, "/api/workflows/instances/1/decision", globexApiKey,
		models.DecisionRequest{StepID: inst.CurrentStep.ID, Action: models.DecisionApprove})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, mux, http.MethodGet, "/api/workflows/instances/byExternalId/leave:301", globexApiKey, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetInstanceByExternalId(t *testing.T) {
	mux, _ := newTestServer(t)
	createLeave(t, mux)

	rec := doJSON(t, mux, http.MethodGet, "/api/workflows/instances/byExternalId/leave:301", acmeApiKey, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var inst models.InstanceApiResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &inst))
	assert.Equal(t, int64(1), inst.ID)
}

func TestSearchInstances_ScopedAndLimited(t *testing.T) {
	mux, _ := newTestServer(t)
	createLeave(t, mux)

	rec := doJSON(t, mux, http.MethodPost, "/api/workflows/instances/search", acmeApiKey,
		models.SearchInstancesRequest{Limit: 10})
	require.Equal(t, http.StatusOK, rec.Code)
	var res models.SearchInstancesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, 1, res.Results)

	// the other tenant sees nothing
	rec = doJSON(t, mux, http.MethodPost, "/api/workflows/instances/search", globexApiKey,
		models.SearchInstancesRequest{Limit: 10})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, 0, res.Results)

	rec = doJSON(t, mux, http.MethodPost, "/api/workflows/instances/search", acmeApiKey,
		models.SearchInstancesRequest{Limit: 100000})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestInstanceHistoryEndpoint(t *testing.T) {
	mux, _ := newTestServer(t)
	inst := createLeave(t, mux)

	rec := doJSON(t, mux, http.MethodPost, "/api/workflows/instances/1/decision", acmeApiKey,
		models.DecisionRequest{StepID: inst.CurrentStep.ID, Action: models.DecisionApprove})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, mux, http.MethodGet, "/api/workflows/instances/1/history", acmeApiKey, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var entries []models.HistoryEntryApiResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))

	// created, step_started, approved, step_started
	require.Len(t, entries, 4)
	assert.Equal(t, domain.ActionCreated, entries[0].Action)
	assert.Equal(t, domain.ActionApproved, entries[2].Action)

	rec = doJSON(t, mux, http.MethodGet, "/api/workflows/instances/1/history", globexApiKey, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHistorySearchEndpoint(t *testing.T) {
	mux, _ := newTestServer(t)
	createLeave(t, mux)

	rec := doJSON(t, mux, http.MethodGet, "/api/workflows/history?type=leave&limit=50", acmeApiKey, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var res models.HistoryQueryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, int64(2), res.Total)
	require.Len(t, res.Entries, 2)

	rec = doJSON(t, mux, http.MethodGet, "/api/workflows/history?startDate=yesterday", acmeApiKey, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTemplatesEndpoints(t *testing.T) {
	mux, _ := newTestServer(t)

	rec := doJSON(t, mux, http.MethodGet, "/api/workflows/templates", acmeApiKey, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var all []models.TemplateApiResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &all))
	assert.Len(t, all, 4)

	rec = doJSON(t, mux, http.MethodGet, "/api/workflows/templates/leave", acmeApiKey, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var leave models.TemplateApiResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &leave))
	require.Len(t, leave.Steps, 2)
	assert.Equal(t, "manager-approval", leave.Steps[0].Name)

	rec = doJSON(t, mux, http.MethodGet, "/api/workflows/templates/no-such", acmeApiKey, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUsersEndpoints_CompanyScoped(t *testing.T) {
	mux, _ := newTestServer(t)

	rec := doJSON(t, mux, http.MethodPost, "/api/users", acmeApiKey, models.CreateUserRequest{
		Username:       "newbie",
		DisplayName:    "New Person",
		Password:       "s3cret",
		GenerateApiKey: true,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created models.UserApiResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "acme", created.CompanyID)
	assert.NotEmpty(t, created.ApiKey)

	// the list shows the new user but never the api key
	rec = doJSON(t, mux, http.MethodGet, "/api/users", acmeApiKey, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []models.UserApiResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 2)
	for _, u := range list {
		assert.Empty(t, u.ApiKey)
	}

	// the other tenant cannot see or delete acme's user
	rec = doJSON(t, mux, http.MethodGet, "/api/users/1", globexApiKey, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = doJSON(t, mux, http.MethodDelete, "/api/users/1", globexApiKey, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
