package repository

import (
	"database/sql"

	"github.com/pulseopti/hrflow/internal/config"
	"github.com/pulseopti/hrflow/pkg/hrflow/domain"
)

type WorkflowTemplateRepository struct {
	db *sql.DB
}

func NewWorkflowTemplateRepository(db *sql.DB) *WorkflowTemplateRepository {
	return &WorkflowTemplateRepository{db: db}
}

// Save inserts a new workflow template or updates an existing one by type.
func (r *WorkflowTemplateRepository) Save(t *domain.WorkflowTemplate) error {
	query := ""
	db := config.GetSystemSettingString(config.DATABASE_TYPE)
	if db == config.DATABASE_TYPE_POSTGRES || db == config.DATABASE_TYPE_SQLLITE {
		query = `
		INSERT INTO workflow_templates (type, description, steps, created, updated)
		VALUES (` + placeholder(1) + `, ` + placeholder(2) + `, ` + placeholder(3) + `, ` + placeholder(4) + `, ` + placeholder(5) + `)
		ON CONFLICT (type)
		DO UPDATE SET description = EXCLUDED.description,
			steps = EXCLUDED.steps,
			updated = EXCLUDED.updated
	`
	} else if db == config.DATABASE_TYPE_MYSQL {
		query = `
		INSERT INTO workflow_templates (type, description, steps, created, updated)
		VALUES (` + placeholder(1) + `, ` + placeholder(2) + `, ` + placeholder(3) + `, ` + placeholder(4) + `, ` + placeholder(5) + `)
		ON DUPLICATE KEY UPDATE description = VALUES(description),
			steps = VALUES(steps),
			updated = VALUES(updated)
	`
	} else {
		panic("Unknown database type trying to save workflow template")
	}

	_, err := r.db.Exec(query, t.Type, t.Description, t.Steps,
		formatDateInDatabase(t.Created), formatDateInDatabase(t.Updated))
	return err
}

// FindByType fetches a template by workflow type. Returns (nil, nil) when absent.
func (r *WorkflowTemplateRepository) FindByType(workflowType string) (*domain.WorkflowTemplate, error) {
	query := `
		SELECT type, description, steps, created, updated
		FROM workflow_templates WHERE type = ` + placeholder(1) + `
	`
	var t domain.WorkflowTemplate
	err := r.db.QueryRow(query, workflowType).Scan(
		&t.Type,
		&t.Description,
		&t.Steps,
		&t.Created,
		&t.Updated,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// FindAll returns all templates ordered by type.
func (r *WorkflowTemplateRepository) FindAll() (*[]domain.WorkflowTemplate, error) {
	query := `
		SELECT type, description, steps, created, updated
		FROM workflow_templates
		ORDER BY type
	`
	rows, err := r.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	templates := make([]domain.WorkflowTemplate, 0)
	for rows.Next() {
		var t domain.WorkflowTemplate
		if err := rows.Scan(&t.Type, &t.Description, &t.Steps, &t.Created, &t.Updated); err != nil {
			return nil, err
		}
		templates = append(templates, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &templates, nil
}
