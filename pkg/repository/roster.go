package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jordanlanch/leadrouter/pkg/domain"
	"github.com/jordanlanch/leadrouter/pkg/models"
)

// RosterRepository reads reps and teams and records load increments.
type RosterRepository struct {
	db querier
}

// NewRosterRepository creates a roster repository.
func NewRosterRepository(db *sql.DB) *RosterRepository {
	return &RosterRepository{db: db}
}

var _ domain.RosterRepository = (*RosterRepository)(nil)

// Load returns every rep of the tenant, active or not, ordered by id, and the
// team memberships.
func (r *RosterRepository) Load(ctx context.Context, tenantID string) (models.Roster, error) {
	roster := models.Roster{Teams: make(map[string][]string)}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, tenant_id, name, email, active, current_load, max_capacity
		  FROM reps
		 WHERE tenant_id = $1
		 ORDER BY id ASC
	`, tenantID)
	if err != nil {
		return roster, fmt.Errorf("failed to load reps: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var rep models.Rep
		if err := rows.Scan(&rep.ID, &rep.TenantID, &rep.Name, &rep.Email, &rep.Active, &rep.CurrentLoad, &rep.MaxCapacity); err != nil {
			return roster, fmt.Errorf("failed to scan rep: %w", err)
		}
		roster.Reps = append(roster.Reps, rep)
	}
	if err := rows.Err(); err != nil {
		return roster, fmt.Errorf("failed to iterate reps: %w", err)
	}

	teamRows, err := r.db.QueryContext(ctx, `
		SELECT team_id, rep_id
		  FROM team_members
		 WHERE tenant_id = $1
		 ORDER BY team_id ASC, rep_id ASC
	`, tenantID)
	if err != nil {
		return roster, fmt.Errorf("failed to load teams: %w", err)
	}
	defer teamRows.Close()

	for teamRows.Next() {
		var teamID, repID string
		if err := teamRows.Scan(&teamID, &repID); err != nil {
			return roster, fmt.Errorf("failed to scan team member: %w", err)
		}
		roster.Teams[teamID] = append(roster.Teams[teamID], repID)
	}
	if err := teamRows.Err(); err != nil {
		return roster, fmt.Errorf("failed to iterate teams: %w", err)
	}

	return roster, nil
}

// IncrementLoad bumps the rep's load by one in a single row update and
// returns the stored value.
func (r *RosterRepository) IncrementLoad(ctx context.Context, tenantID, repID string) (int, error) {
	query := `
		UPDATE reps
		   SET current_load = current_load + 1
		 WHERE tenant_id = $1 AND id = $2
		RETURNING current_load
	`

	var load int
	if err := r.db.QueryRowContext(ctx, query, tenantID, repID).Scan(&load); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, domain.NewNotFoundError("rep")
		}
		return 0, fmt.Errorf("failed to increment load for rep %s: %w", repID, err)
	}
	return load, nil
}

// Upsert inserts or replaces a rep.
func (r *RosterRepository) Upsert(ctx context.Context, rep models.Rep) error {
	query := `
		INSERT INTO reps (tenant_id, id, name, email, active, current_load, max_capacity)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (tenant_id, id) DO UPDATE
		   SET name = excluded.name,
		       email = excluded.email,
		       active = excluded.active,
		       current_load = excluded.current_load,
		       max_capacity = excluded.max_capacity
	`
	if _, err := r.db.ExecContext(ctx, query,
		rep.TenantID, rep.ID, rep.Name, rep.Email, rep.Active, rep.CurrentLoad, rep.MaxCapacity,
	); err != nil {
		return fmt.Errorf("failed to upsert rep %s: %w", rep.ID, err)
	}
	return nil
}

// AddTeamMember puts a rep on a team. Adding an existing member is a no-op.
func (r *RosterRepository) AddTeamMember(ctx context.Context, tenantID, teamID, repID string) error {
	query := `
		INSERT INTO team_members (tenant_id, team_id, rep_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (tenant_id, team_id, rep_id) DO NOTHING
	`
	if _, err := r.db.ExecContext(ctx, query, tenantID, teamID, repID); err != nil {
		return fmt.Errorf("failed to add rep %s to team %s: %w", repID, teamID, err)
	}
	return nil
}
