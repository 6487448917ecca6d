package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jordanlanch/leadrouter/pkg/domain"
	"github.com/jordanlanch/leadrouter/pkg/models"
)

// FollowUpRepository stores follow-up actions and their degraded task form.
type FollowUpRepository struct {
	db querier
}

// NewFollowUpRepository creates a follow-up repository.
func NewFollowUpRepository(db *sql.DB) *FollowUpRepository {
	return &FollowUpRepository{db: db}
}

var _ domain.FollowUpRepository = (*FollowUpRepository)(nil)

// Save inserts the full action. It returns false without error when an
// action with the same idempotency key is already stored.
func (r *FollowUpRepository) Save(ctx context.Context, a models.FollowUpAction) (bool, error) {
	query := `
		INSERT INTO follow_up_actions (id, tenant_id, lead_id, action_type, status, scheduled_at,
		                               priority, template_id, channel, target, title, subject, body,
		                               idempotency_key, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (idempotency_key) DO NOTHING
	`
	res, err := r.db.ExecContext(ctx, query,
		a.ID,
		a.TenantID,
		a.LeadID,
		string(a.ActionType),
		string(a.Status),
		a.ScheduledAt.UTC(),
		string(a.Priority),
		a.TemplateID,
		string(a.Channel),
		a.Target,
		a.Title,
		a.Subject,
		a.Body,
		a.IdempotencyKey,
		a.CreatedAt.UTC(),
	)
	if err != nil {
		return false, fmt.Errorf("failed to save follow-up %s: %w", a.ActionType, err)
	}
	return inserted(res)
}

// SaveTask inserts the generic task variant.
func (r *FollowUpRepository) SaveTask(ctx context.Context, t models.GenericTask) (bool, error) {
	query := `
		INSERT INTO tasks (id, tenant_id, lead_id, title, description, due_at, priority, idempotency_key, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (idempotency_key) DO NOTHING
	`
	res, err := r.db.ExecContext(ctx, query,
		t.ID,
		t.TenantID,
		t.LeadID,
		t.Title,
		t.Description,
		t.DueAt.UTC(),
		string(t.Priority),
		t.IdempotencyKey,
		t.CreatedAt.UTC(),
	)
	if err != nil {
		return false, fmt.Errorf("failed to save task: %w", err)
	}
	return inserted(res)
}

// ListForLead returns the stored follow-ups of a lead in schedule order.
func (r *FollowUpRepository) ListForLead(ctx context.Context, tenantID, leadID string) ([]models.FollowUpAction, error) {
	query := `
		SELECT id, tenant_id, lead_id, action_type, status, scheduled_at, priority,
		       template_id, channel, target, title, subject, body, idempotency_key, created_at
		  FROM follow_up_actions
		 WHERE tenant_id = $1 AND lead_id = $2
		 ORDER BY scheduled_at ASC, id ASC
	`
	rows, err := r.db.QueryContext(ctx, query, tenantID, leadID)
	if err != nil {
		return nil, fmt.Errorf("failed to list follow-ups: %w", err)
	}
	defer rows.Close()

	var actions []models.FollowUpAction
	for rows.Next() {
		a := models.FollowUpAction{Shape: models.ShapePrimary}
		if err := rows.Scan(
			&a.ID, &a.TenantID, &a.LeadID, &a.ActionType, &a.Status, &a.ScheduledAt, &a.Priority,
			&a.TemplateID, &a.Channel, &a.Target, &a.Title, &a.Subject, &a.Body, &a.IdempotencyKey, &a.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan follow-up: %w", err)
		}
		a.ScheduledAt = a.ScheduledAt.UTC()
		a.CreatedAt = a.CreatedAt.UTC()
		actions = append(actions, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate follow-ups: %w", err)
	}
	return actions, nil
}

func inserted(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n > 0, nil
}
