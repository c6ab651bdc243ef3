package repository

import (
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pulseopti/hrflow/pkg/hrflow/core"
	"github.com/pulseopti/hrflow/pkg/hrflow/domain"
	"github.com/pulseopti/hrflow/pkg/hrflow/models"
)

// HistoryRepository persists the append-only audit trail. Rows are only
// ever inserted; ordering is by insertion id.
type HistoryRepository struct {
	db    *sql.DB
	clock core.Clock
}

const HISTORY_COLUMNS = ` id, instance_id, company_id, instance_type, action,
		actor_id, actor_name, step_id, step_name, description, metadata, created `

func NewHistoryRepository(db *sql.DB, clock core.Clock) *HistoryRepository {
	return &HistoryRepository{db: db, clock: clock}
}

// Save inserts one history entry and returns its id. Created defaults to
// the repository clock when unset.
func (r *HistoryRepository) Save(e *domain.HistoryEntry) (int64, error) {
	if e.Created.IsZero() {
		e.Created = r.clock.Now().UTC()
	}
	vals := []interface{}{
		e.InstanceID, e.CompanyID, e.InstanceType, e.Action,
		e.ActorID, e.ActorName, e.StepID, e.StepName,
		e.Description, e.Metadata, formatDateInDatabase(e.Created),
	}
	pps := make([]string, 0, len(vals))
	for i := range vals {
		pps = append(pps, placeholder(i+1))
	}
	base := `INSERT INTO workflow_history (
		instance_id, company_id, instance_type, action,
		actor_id, actor_name, step_id, step_name, description, metadata, created
	) VALUES (` + strings.Join(pps, ", ") + `)`

	var err error
	if supportsReturning() {
		err = r.db.QueryRow(base+" RETURNING id", vals...).Scan(&e.ID)
	} else {
		res, e2 := r.db.Exec(base, vals...)
		if e2 != nil {
			err = e2
		} else {
			id, e3 := res.LastInsertId()
			if e3 != nil {
				err = e3
			} else {
				e.ID = id
			}
		}
	}
	if err != nil {
		slog.Error("Failed to save history entry", "instance_id", e.InstanceID, "action", e.Action, "error", err)
	}
	return e.ID, err
}

// FindAllByInstanceID returns the full trail for one instance in
// creation order.
func (r *HistoryRepository) FindAllByInstanceID(instanceID int64) (*[]domain.HistoryEntry, error) {
	query := `
		SELECT ` + HISTORY_COLUMNS + `
		FROM workflow_history
		WHERE instance_id = ` + placeholder(1) + `
		ORDER BY id ASC
	`
	rows, err := r.db.Query(query, instanceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanHistoryRows(rows)
}

// Search returns a filtered page of history entries plus the unpaged
// total count.
func (r *HistoryRepository) Search(q models.HistoryQuery) (*[]domain.HistoryEntry, int64, error) {
	whereClause, args := buildHistoryWhereClause(q)

	var total int64
	countQuery := `SELECT COUNT(*) FROM workflow_history` + whereClause
	if err := r.db.QueryRow(countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT ` + HISTORY_COLUMNS + `
		FROM workflow_history
		` + whereClause + `
		ORDER BY id ASC
	` + buildLimitsAndOffset(q.Limit, q.Offset)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	entries, err := scanHistoryRows(rows)
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

func scanHistoryRows(rows *sql.Rows) (*[]domain.HistoryEntry, error) {
	var entries []domain.HistoryEntry
	for rows.Next() {
		var e domain.HistoryEntry
		if err := rows.Scan(
			&e.ID,
			&e.InstanceID,
			&e.CompanyID,
			&e.InstanceType,
			&e.Action,
			&e.ActorID,
			&e.ActorName,
			&e.StepID,
			&e.StepName,
			&e.Description,
			&e.Metadata,
			&e.Created,
		); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &entries, nil
}

func buildHistoryWhereClause(q models.HistoryQuery) (string, []interface{}) {
	var clauses []string
	var args []interface{}

	args = append(args, q.CompanyID)
	clauses = append(clauses, fmt.Sprintf("company_id = %s", placeholder(len(args))))

	if q.InstanceID != 0 {
		args = append(args, q.InstanceID)
		clauses = append(clauses, fmt.Sprintf("instance_id = %s", placeholder(len(args))))
	}
	if q.Type != "" {
		args = append(args, q.Type)
		clauses = append(clauses, fmt.Sprintf("instance_type = %s", placeholder(len(args))))
	}
	if q.Action != "" {
		args = append(args, q.Action)
		clauses = append(clauses, fmt.Sprintf("action = %s", placeholder(len(args))))
	}
	if q.ActorID != "" {
		args = append(args, q.ActorID)
		clauses = append(clauses, fmt.Sprintf("actor_id = %s", placeholder(len(args))))
	}
	if !q.StartDate.IsZero() {
		args = append(args, formatDateInDatabase(q.StartDate))
		clauses = append(clauses, fmt.Sprintf("created >= %s", placeholder(len(args))))
	}
	if !q.EndDate.IsZero() {
		args = append(args, formatDateInDatabase(q.EndDate))
		clauses = append(clauses, fmt.Sprintf("created <= %s", placeholder(len(args))))
	}

	return " WHERE " + strings.Join(clauses, " AND "), args
}
