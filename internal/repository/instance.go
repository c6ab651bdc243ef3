package repository

import (
	"database/sql"
	"fmt"
	"strings"

	"time"

	"github.com/pulseopti/hrflow/pkg/hrflow/core"
	"github.com/pulseopti/hrflow/pkg/hrflow/domain"
	"github.com/pulseopti/hrflow/pkg/hrflow/models"
)

// WorkflowInstanceRepository persists workflow instances. The step list
// and variables are JSON columns on the row, so every state mutation is a
// single-row write.
type WorkflowInstanceRepository struct {
	db    *sql.DB
	clock core.Clock
}

const INSTANCE_COLUMNS = ` id, company_id, type, name, external_id, steps,
		current_step_index, status, initiator_id, initiator_name,
		variables, start_date, modified, end_date `

func NewWorkflowInstanceRepository(db *sql.DB, clock core.Clock) *WorkflowInstanceRepository {
	return &WorkflowInstanceRepository{db: db, clock: clock}
}

func (r *WorkflowInstanceRepository) Save(inst *domain.WorkflowInstance) (int64, error) {
	stepsJSON, err := domain.MarshalSteps(inst.Steps)
	if err != nil {
		return 0, err
	}
	varsJSON, err := marshalVariables(inst.Variables)
	if err != nil {
		return 0, err
	}

	vals := []interface{}{
		inst.CompanyID, inst.Type, inst.Name, inst.ExternalID, stepsJSON,
		inst.CurrentStepIndex, string(inst.Status), inst.InitiatorID, inst.InitiatorName,
		varsJSON, formatDateInDatabase(inst.StartDate), formatDateInDatabase(inst.Modified),
		formatDateInDatabaseNull(inst.EndDate),
	}
	pps := make([]string, 0, len(vals))
	for i := range vals {
		pps = append(pps, placeholder(i+1))
	}
	base := `INSERT INTO workflow_instances (
		company_id, type, name, external_id, steps,
		current_step_index, status, initiator_id, initiator_name,
		variables, start_date, modified, end_date
	) VALUES (` + strings.Join(pps, ", ") + `)`

	if supportsReturning() {
		err = r.db.QueryRow(base+" RETURNING id", vals...).Scan(&inst.ID)
	} else {
		res, e := r.db.Exec(base, vals...)
		if e != nil {
			err = e
		} else {
			id, e2 := res.LastInsertId()
			if e2 != nil {
				err = e2
			} else {
				inst.ID = id
			}
		}
	}
	if err != nil && isUniqueViolation(err) {
		return 0, fmt.Errorf("%w %q for company %s", domain.ErrDuplicateExternalID, inst.ExternalID, inst.CompanyID)
	}
	return inst.ID, err
}

func (r *WorkflowInstanceRepository) FindByID(id int64) (*domain.WorkflowInstance, error) {
	query := `
		SELECT ` + INSTANCE_COLUMNS + `
		FROM workflow_instances WHERE id = ` + placeholder(1) + `
	`
	return r.scanOne(r.db.QueryRow(query, id))
}

func (r *WorkflowInstanceRepository) FindByExternalID(companyID string, externalID string) (*domain.WorkflowInstance, error) {
	query := `
		SELECT ` + INSTANCE_COLUMNS + `
		FROM workflow_instances
		WHERE company_id = ` + placeholder(1) + ` AND external_id = ` + placeholder(2) + `
	`
	return r.scanOne(r.db.QueryRow(query, companyID, externalID))
}

// UpdateGuarded writes steps, pointer, status, variables and end date in
// one conditional UPDATE. The guard on modified plus active status is the
// engine's concurrency control: two racing approvers cannot both match
// the same modified value, so the loser sees zero rows affected.
func (r *WorkflowInstanceRepository) UpdateGuarded(inst *domain.WorkflowInstance, expectedModified time.Time) (bool, error) {
	stepsJSON, err := domain.MarshalSteps(inst.Steps)
	if err != nil {
		return false, err
	}
	varsJSON, err := marshalVariables(inst.Variables)
	if err != nil {
		return false, err
	}
	newModified := r.clock.Now().UTC()

	query := `
		UPDATE workflow_instances
		SET steps = ` + placeholder(1) + `,
		    current_step_index = ` + placeholder(2) + `,
		    status = ` + placeholder(3) + `,
		    variables = ` + placeholder(4) + `,
		    end_date = ` + placeholder(5) + `,
		    modified = ` + placeholder(6) + `
		WHERE id = ` + placeholder(7) + `
		  AND modified = ` + placeholder(8) + `
		  AND status = 'active'
	`
	res, err := r.db.Exec(query,
		stepsJSON,
		inst.CurrentStepIndex,
		string(inst.Status),
		varsJSON,
		formatDateInDatabaseNull(inst.EndDate),
		formatDateInDatabase(newModified),
		inst.ID,
		formatDateInDatabase(expectedModified),
	)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if affected != 1 {
		return false, nil
	}
	inst.Modified = newModified
	return true, nil
}

func (r *WorkflowInstanceRepository) SearchInstances(req models.SearchInstancesRequest) (*[]domain.WorkflowInstance, error) {
	whereClause, args := buildInstanceWhereClause(req)
	query := `
		SELECT ` + INSTANCE_COLUMNS + `
		FROM workflow_instances
		` + whereClause + `
		ORDER BY id DESC
	` + buildLimitsAndOffset(req.Limit, req.Offset)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var instances []domain.WorkflowInstance
	for rows.Next() {
		inst, err := scanInstance(rows)
		if err != nil {
			return nil, err
		}
		instances = append(instances, *inst)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &instances, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *WorkflowInstanceRepository) scanOne(row *sql.Row) (*domain.WorkflowInstance, error) {
	inst, err := scanInstance(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return inst, nil
}

func scanInstance(row rowScanner) (*domain.WorkflowInstance, error) {
	var inst domain.WorkflowInstance
	var status string
	var stepsJSON string
	var varsJSON sql.NullString
	err := row.Scan(
		&inst.ID,
		&inst.CompanyID,
		&inst.Type,
		&inst.Name,
		&inst.ExternalID,
		&stepsJSON,
		&inst.CurrentStepIndex,
		&status,
		&inst.InitiatorID,
		&inst.InitiatorName,
		&varsJSON,
		&inst.StartDate,
		&inst.Modified,
		&inst.EndDate,
	)
	if err != nil {
		return nil, err
	}
	inst.Status = domain.InstanceStatus(status)
	inst.Steps, err = domain.UnmarshalSteps(stepsJSON)
	if err != nil {
		return nil, fmt.Errorf("corrupt steps column on instance %d: %w", inst.ID, err)
	}
	if varsJSON.Valid && varsJSON.String != "" {
		inst.Variables, err = unmarshalVariables(varsJSON.String)
		if err != nil {
			return nil, fmt.Errorf("corrupt variables column on instance %d: %w", inst.ID, err)
		}
	}
	return &inst, nil
}

func buildLimitsAndOffset(limit int64, offset int64) string {
	if limit > 0 {
		return fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset)
	}
	return ""
}

func buildInstanceWhereClause(req models.SearchInstancesRequest) (string, []interface{}) {
	var clauses []string
	var args []interface{}

	// company scope is mandatory; every other filter is optional
	args = append(args, req.CompanyID)
	clauses = append(clauses, fmt.Sprintf("company_id = %s", placeholder(len(args))))

	if req.ID != 0 {
		args = append(args, req.ID)
		clauses = append(clauses, fmt.Sprintf("id = %s", placeholder(len(args))))
	}
	if req.ExternalID != "" {
		args = append(args, req.ExternalID)
		clauses = append(clauses, fmt.Sprintf("external_id = %s", placeholder(len(args))))
	}
	if req.Type != "" {
		args = append(args, req.Type)
		clauses = append(clauses, fmt.Sprintf("type = %s", placeholder(len(args))))
	}
	if req.Status != "" {
		args = append(args, req.Status)
		clauses = append(clauses, fmt.Sprintf("status = %s", placeholder(len(args))))
	}
	if req.InitiatorID != "" {
		args = append(args, req.InitiatorID)
		clauses = append(clauses, fmt.Sprintf("initiator_id = %s", placeholder(len(args))))
	}

	return " WHERE " + strings.Join(clauses, " AND "), args
}
