package repository

import (
	"database/sql"
	"strings"

	"github.com/pulseopti/hrflow/pkg/hrflow/core"
	"github.com/pulseopti/hrflow/pkg/hrflow/domain"
)

// NotificationRepository is the outbox written by the dispatcher. Rows
// are write-once; delivery channels poll them outside this service.
type NotificationRepository struct {
	db    *sql.DB
	clock core.Clock
}

func NewNotificationRepository(db *sql.DB, clock core.Clock) *NotificationRepository {
	return &NotificationRepository{db: db, clock: clock}
}

func (r *NotificationRepository) Save(n *domain.Notification) (int64, error) {
	if n.Created.IsZero() {
		n.Created = r.clock.Now().UTC()
	}
	vals := []interface{}{n.CompanyID, n.InstanceID, n.RecipientID, string(n.Kind), n.Message, formatDateInDatabase(n.Created)}
	pps := make([]string, 0, len(vals))
	for i := range vals {
		pps = append(pps, placeholder(i+1))
	}
	base := `INSERT INTO notifications (company_id, instance_id, recipient_id, kind, message, created)
		VALUES (` + strings.Join(pps, ", ") + `)`

	if supportsReturning() {
		if err := r.db.QueryRow(base+" RETURNING id", vals...).Scan(&n.ID); err != nil {
			return 0, err
		}
		return n.ID, nil
	}
	res, err := r.db.Exec(base, vals...)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	n.ID = id
	return id, nil
}

// FindRecentByCompany returns the newest notifications for a tenant.
func (r *NotificationRepository) FindRecentByCompany(companyID string, limit int) ([]*domain.Notification, error) {
	query := `
		SELECT id, company_id, instance_id, recipient_id, kind, message, created
		FROM notifications
		WHERE company_id = ` + placeholder(1) + `
		ORDER BY id DESC
		LIMIT ` + placeholder(2) + `
	`
	rows, err := r.db.Query(query, companyID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notifications []*domain.Notification
	for rows.Next() {
		var n domain.Notification
		var kind string
		if err := rows.Scan(&n.ID, &n.CompanyID, &n.InstanceID, &n.RecipientID, &kind, &n.Message, &n.Created); err != nil {
			return nil, err
		}
		n.Kind = domain.NotificationKind(kind)
		notifications = append(notifications, &n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return notifications, nil
}
