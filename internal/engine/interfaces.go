package engine

import (
	"time"

	"github.com/pulseopti/hrflow/pkg/hrflow/domain"
	"github.com/pulseopti/hrflow/pkg/hrflow/models"
)

// InstanceRepo defines the persistence interface for workflow instances,
// matching repository.WorkflowInstanceRepository.
type InstanceRepo interface {
	Save(inst *domain.WorkflowInstance) (int64, error)
	FindByID(id int64) (*domain.WorkflowInstance, error)
	FindByExternalID(companyID string, externalID string) (*domain.WorkflowInstance, error)
	UpdateGuarded(inst *domain.WorkflowInstance, expectedModified time.Time) (bool, error)
	SearchInstances(req models.SearchInstancesRequest) (*[]domain.WorkflowInstance, error)
}

// HistoryRepo defines the persistence interface for the audit trail.
type HistoryRepo interface {
	Save(e *domain.HistoryEntry) (int64, error)
	FindAllByInstanceID(instanceID int64) (*[]domain.HistoryEntry, error)
	Search(q models.HistoryQuery) (*[]domain.HistoryEntry, int64, error)
}

// TemplateRepo defines the persistence interface for workflow templates.
type TemplateRepo interface {
	Save(t *domain.WorkflowTemplate) error
	FindByType(workflowType string) (*domain.WorkflowTemplate, error)
	FindAll() (*[]domain.WorkflowTemplate, error)
}

// UserRepo defines the interface for user persistence consumed by the
// auth middleware.
type UserRepo interface {
	FindBySessionID(sessionID string, now time.Time) (*domain.User, error)
	FindByApiKey(apiKey string) (*domain.User, error)
	FindByUsername(username string) (*domain.User, error)
	FindById(id int64) (*domain.User, error)
	FindAllByCompany(companyID string) (*[]domain.User, error)
	Save(user *domain.User) (int64, error)
	DeleteById(id int64) error
	UpdateSession(userID int64, sessionID string, expiry time.Time) error
	ClearSessionBySessionID(sessionID string) error
}
