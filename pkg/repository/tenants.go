package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jordanlanch/leadrouter/pkg/domain"
	"github.com/jordanlanch/leadrouter/pkg/models"
)

// TenantRepository reads per-tenant routing settings.
type TenantRepository struct {
	db              *sql.DB
	defaultTimeZone string
}

// NewTenantRepository creates a tenant repository. defaultTimeZone applies to
// tenants without a settings row.
func NewTenantRepository(db *sql.DB, defaultTimeZone string) *TenantRepository {
	if defaultTimeZone == "" {
		defaultTimeZone = "UTC"
	}
	return &TenantRepository{db: db, defaultTimeZone: defaultTimeZone}
}

var _ domain.TenantRepository = (*TenantRepository)(nil)

// GetSettings returns the tenant's settings. Tenants without a row get the
// defaults rather than an error.
func (r *TenantRepository) GetSettings(ctx context.Context, tenantID string) (*models.TenantSettings, error) {
	query := `SELECT time_zone, default_directive FROM tenants WHERE id = $1`

	var (
		tz        string
		directive sql.NullString
	)
	err := r.db.QueryRowContext(ctx, query, tenantID).Scan(&tz, &directive)
	if errors.Is(err, sql.ErrNoRows) {
		return &models.TenantSettings{TenantID: tenantID, TimeZone: r.defaultTimeZone}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get tenant settings: %w", err)
	}

	settings := &models.TenantSettings{TenantID: tenantID, TimeZone: tz}
	if settings.TimeZone == "" {
		settings.TimeZone = r.defaultTimeZone
	}
	if directive.Valid && directive.String != "" {
		var d models.AssignmentDirective
		if err := json.Unmarshal([]byte(directive.String), &d); err != nil {
			return nil, fmt.Errorf("tenant %s has malformed default directive: %w", tenantID, err)
		}
		settings.DefaultDirective = &d
	}
	return settings, nil
}

// Upsert stores tenant settings.
func (r *TenantRepository) Upsert(ctx context.Context, settings models.TenantSettings) error {
	var directive sql.NullString
	if settings.DefaultDirective != nil {
		raw, err := json.Marshal(settings.DefaultDirective)
		if err != nil {
			return fmt.Errorf("failed to encode default directive: %w", err)
		}
		directive = sql.NullString{String: string(raw), Valid: true}
	}

	query := `
		INSERT INTO tenants (id, time_zone, default_directive)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE
		   SET time_zone = excluded.time_zone,
		       default_directive = excluded.default_directive
	`
	if _, err := r.db.ExecContext(ctx, query, settings.TenantID, settings.TimeZone, directive); err != nil {
		return fmt.Errorf("failed to upsert tenant %s: %w", settings.TenantID, err)
	}
	return nil
}
