package engine

import (
	"context"
	"log/slog"

	"github.com/pulseopti/hrflow/pkg/hrflow/domain"
)

type EventType string

const (
	EventApprovalPending EventType = "approval_pending"
	EventCompleted       EventType = "completed"
	EventRejected        EventType = "rejected"
	EventCancelled       EventType = "cancelled"
)

// Actor identifies who performed an engine operation.
type Actor struct {
	ID        string
	Name      string
	CompanyID string
}

// Event describes a committed state transition. Events are emitted only
// after the instance write succeeded; a listener can never influence or
// roll back engine state.
type Event struct {
	Type     EventType
	Instance *domain.WorkflowInstance
	Step     *domain.StepDefinition
	Actor    Actor
	Detail   string
}

type Listener interface {
	HandleWorkflowEvent(ctx context.Context, ev Event)
}

// Subscribe registers a post-commit listener. Not safe for concurrent
// use; subscribe during wiring, before the manager serves requests.
func (m *InstanceManager) Subscribe(l Listener) {
	m.listeners = append(m.listeners, l)
}

func (m *InstanceManager) emit(ctx context.Context, events []Event) {
	for _, ev := range events {
		for _, l := range m.listeners {
			func() {
				defer func() {
					if rec := recover(); rec != nil {
						slog.ErrorContext(ctx, "Workflow event listener panicked", "event", string(ev.Type), "panic", rec)
					}
				}()
				l.HandleWorkflowEvent(ctx, ev)
			}()
		}
	}
}
