package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pulseopti/hrflow/internal/engine"
	"github.com/pulseopti/hrflow/pkg/hrflow/domain"
)

// OutboxRepo is the slice of the notification repository the dispatcher
// needs.
type OutboxRepo interface {
	Save(n *domain.Notification) (int64, error)
}

// Dispatcher turns committed workflow events into notification outbox
// rows. It runs inline on the request goroutine after the instance
// write, so it must never fail the request: save errors are logged and
// dropped.
type Dispatcher struct {
	outbox OutboxRepo
}

func NewDispatcher(outbox OutboxRepo) *Dispatcher {
	return &Dispatcher{outbox: outbox}
}

func (d *Dispatcher) HandleWorkflowEvent(ctx context.Context, ev engine.Event) {
	for _, n := range d.buildNotifications(ev) {
		if _, err := d.outbox.Save(&n); err != nil {
			slog.ErrorContext(ctx, "Failed to save notification",
				"instanceId", ev.Instance.ID, "kind", string(n.Kind), "error", err)
		}
	}
}

func (d *Dispatcher) buildNotifications(ev engine.Event) []domain.Notification {
	inst := ev.Instance
	switch ev.Type {
	case engine.EventApprovalPending:
		recipient := ev.Step.AssigneeID
		if recipient == "" {
			// Role assignments fan out at delivery time; the outbox
			// row carries the role as its recipient.
			recipient = "role:" + ev.Step.AssigneeRole
		}
		return []domain.Notification{{
			CompanyID:   inst.CompanyID,
			InstanceID:  inst.ID,
			RecipientID: recipient,
			Kind:        domain.NotifyApprovalPending,
			Message:     fmt.Sprintf("%s: step %q is waiting for your approval", inst.Name, ev.Step.Name),
		}}

	case engine.EventCompleted:
		return []domain.Notification{{
			CompanyID:   inst.CompanyID,
			InstanceID:  inst.ID,
			RecipientID: inst.InitiatorID,
			Kind:        domain.NotifyCompleted,
			Message:     fmt.Sprintf("%s has completed", inst.Name),
		}}

	case engine.EventRejected:
		msg := fmt.Sprintf("%s was rejected at step %q", inst.Name, ev.Step.Name)
		if ev.Detail != "" {
			msg += ": " + ev.Detail
		}
		return []domain.Notification{{
			CompanyID:   inst.CompanyID,
			InstanceID:  inst.ID,
			RecipientID: inst.InitiatorID,
			Kind:        domain.NotifyRejected,
			Message:     msg,
		}}

	case engine.EventCancelled:
		msg := fmt.Sprintf("%s was cancelled", inst.Name)
		if ev.Detail != "" {
			msg += ": " + ev.Detail
		}
		return []domain.Notification{{
			CompanyID:   inst.CompanyID,
			InstanceID:  inst.ID,
			RecipientID: inst.InitiatorID,
			Kind:        domain.NotifyCancelled,
			Message:     msg,
		}}
	}
	return nil
}
