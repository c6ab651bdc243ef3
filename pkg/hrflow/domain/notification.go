package domain

import "time"

type NotificationKind string

const (
	NotifyApprovalPending NotificationKind = "approval_pending"
	NotifyApproved        NotificationKind = "approved"
	NotifyRejected        NotificationKind = "rejected"
	NotifyCompleted       NotificationKind = "completed"
	NotifyCancelled       NotificationKind = "cancelled"
)

// Notification is one outbox row produced by the dispatcher. Delivery
// channels (email, SMS, in-app) consume these rows outside this service.
type Notification struct {
	ID          int64
	CompanyID   string
	InstanceID  int64
	RecipientID string
	Kind        NotificationKind
	Message     string
	Created     time.Time
}
