package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jordanlanch/leadrouter/pkg/domain"
	"github.com/jordanlanch/leadrouter/pkg/logger"
	"github.com/jordanlanch/leadrouter/pkg/models"
)

// LeadRepository reads and updates leads in PostgreSQL or SQLite.
type LeadRepository struct {
	db     querier
	logger logger.Logger
}

// NewLeadRepository creates a lead repository.
func NewLeadRepository(db *sql.DB, log logger.Logger) *LeadRepository {
	if log == nil {
		log = logger.Nop()
	}
	return &LeadRepository{db: db, logger: log}
}

var _ domain.LeadRepository = (*LeadRepository)(nil)

const leadColumns = `tenant_id, id, stage, priority, attributes, assignee_id,
		       follow_up_count, last_follow_up, appointment_at, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLead(row rowScanner) (*models.Lead, error) {
	var (
		lead        models.Lead
		attrs       string
		assignee    sql.NullString
		lastFollow  sql.NullTime
		appointment sql.NullTime
	)
	if err := row.Scan(
		&lead.TenantID,
		&lead.ID,
		&lead.Stage,
		&lead.Priority,
		&attrs,
		&assignee,
		&lead.FollowUpCount,
		&lastFollow,
		&appointment,
		&lead.CreatedAt,
	); err != nil {
		return nil, err
	}

	if attrs != "" {
		if err := json.Unmarshal([]byte(attrs), &lead.Attributes); err != nil {
			return nil, fmt.Errorf("lead %s has malformed attributes: %w", lead.ID, err)
		}
	}
	if lead.Attributes == nil {
		lead.Attributes = map[string]any{}
	}
	if assignee.Valid {
		lead.AssigneeID = &assignee.String
	}
	if lastFollow.Valid {
		t := lastFollow.Time.UTC()
		lead.LastFollowUp = &t
	}
	if appointment.Valid {
		t := appointment.Time.UTC()
		lead.AppointmentAt = &t
	}
	lead.CreatedAt = lead.CreatedAt.UTC()
	return &lead, nil
}

// Get returns one lead.
func (r *LeadRepository) Get(ctx context.Context, tenantID, leadID string) (*models.Lead, error) {
	query := `
		SELECT ` + leadColumns + `
		  FROM leads
		 WHERE tenant_id = $1 AND id = $2
	`

	lead, err := scanLead(r.db.QueryRowContext(ctx, query, tenantID, leadID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NewNotFoundError("lead")
		}
		return nil, fmt.Errorf("failed to get lead %s: %w", leadID, err)
	}
	return lead, nil
}

// Insert stores a new lead. Used for seeding and tests; leads are otherwise
// owned by the CRM.
func (r *LeadRepository) Insert(ctx context.Context, lead models.Lead) error {
	attrs, err := json.Marshal(lead.Attributes)
	if err != nil {
		return fmt.Errorf("failed to encode lead attributes: %w", err)
	}

	query := `
		INSERT INTO leads (tenant_id, id, stage, priority, attributes, assignee_id,
		                   follow_up_count, last_follow_up, appointment_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err = r.db.ExecContext(ctx, query,
		lead.TenantID,
		lead.ID,
		string(lead.Stage),
		string(lead.Priority),
		string(attrs),
		nullString(lead.AssigneeID),
		lead.FollowUpCount,
		nullTime(lead.LastFollowUp),
		nullTime(lead.AppointmentAt),
		lead.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert lead %s: %w", lead.ID, err)
	}
	return nil
}

// SetAssignee writes the routing decision back to the lead.
func (r *LeadRepository) SetAssignee(ctx context.Context, tenantID, leadID, repID string) error {
	query := `UPDATE leads SET assignee_id = $1 WHERE tenant_id = $2 AND id = $3`
	return r.execOne(ctx, "set assignee", leadID, query, repID, tenantID, leadID)
}

// RecordFollowUps adds n to follow_up_count and sets last_follow_up in one
// statement so concurrent invocations never lose an increment.
func (r *LeadRepository) RecordFollowUps(ctx context.Context, tenantID, leadID string, n int, at time.Time) error {
	query := `
		UPDATE leads
		   SET follow_up_count = follow_up_count + $1,
		       last_follow_up = $2
		 WHERE tenant_id = $3 AND id = $4
	`
	return r.execOne(ctx, "record follow-ups", leadID, query, n, at.UTC(), tenantID, leadID)
}

func (r *LeadRepository) execOne(ctx context.Context, what, leadID, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to %s on lead %s: %w", what, leadID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to %s on lead %s: %w", what, leadID, err)
	}
	if n == 0 {
		return domain.NewNotFoundError("lead")
	}
	return nil
}

// MarkSwept records that the stale-lead sweep evaluated the lead at the
// given time, whether or not anything new was scheduled.
func (r *LeadRepository) MarkSwept(ctx context.Context, tenantID, leadID string, at time.Time) error {
	query := `UPDATE leads SET swept_at = $1 WHERE tenant_id = $2 AND id = $3`
	return r.execOne(ctx, "mark swept", leadID, query, at.UTC(), tenantID, leadID)
}

// ListStale returns open leads whose last touch (last follow-up, or creation
// when there was none) is before the cutoff, oldest first. Leads the sweep
// already evaluated after the cutoff are left out.
func (r *LeadRepository) ListStale(ctx context.Context, before time.Time, limit int) ([]models.Lead, error) {
	query := `
		SELECT ` + leadColumns + `
		  FROM leads
		 WHERE stage NOT IN ('closed_won', 'closed_lost')
		   AND COALESCE(last_follow_up, created_at) < $1
		   AND (swept_at IS NULL OR swept_at < $1)
		 ORDER BY COALESCE(last_follow_up, created_at) ASC, tenant_id ASC, id ASC
		 LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, before.UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list stale leads: %w", err)
	}
	defer rows.Close()

	var leads []models.Lead
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			r.logger.Warn("skipping unreadable lead row", "error", err)
			continue
		}
		leads = append(leads, *lead)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate stale leads: %w", err)
	}
	return leads, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
