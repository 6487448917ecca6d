package domain

import (
	"context"
	"time"

	"github.com/jordanlanch/leadrouter/pkg/models"
)

// LeadReader loads lead snapshots.
type LeadReader interface {
	Get(ctx context.Context, tenantID, leadID string) (*models.Lead, error)
}

// LeadWriter writes routing results back to a lead.
type LeadWriter interface {
	SetAssignee(ctx context.Context, tenantID, leadID, repID string) error
	// RecordFollowUps adds n to follow_up_count and sets last_follow_up in one
	// atomic update.
	RecordFollowUps(ctx context.Context, tenantID, leadID string, n int, at time.Time) error
}

// LeadRepository reads lead snapshots and writes back routing results.
type LeadRepository interface {
	LeadReader
	LeadWriter
	// ListStale returns open leads whose last follow-up (or creation, when
	// they never had one) is older than before.
	ListStale(ctx context.Context, before time.Time, limit int) ([]models.Lead, error)
	// MarkSwept records when the stale-lead sweep last handled the lead.
	// ListStale skips leads swept at or after its cutoff.
	MarkSwept(ctx context.Context, tenantID, leadID string, at time.Time) error
}

// RuleRepository reads a tenant's assignment rules.
type RuleRepository interface {
	ListActive(ctx context.Context, tenantID string) ([]models.AssignmentRule, error)
}

// RosterReader loads the live roster of a tenant.
type RosterReader interface {
	Load(ctx context.Context, tenantID string) (models.Roster, error)
}

// LoadRecorder persists a load increment for a rep and returns the new load.
type LoadRecorder interface {
	IncrementLoad(ctx context.Context, tenantID, repID string) (int, error)
}

// RosterRepository reads live reps and accepts load increments.
type RosterRepository interface {
	RosterReader
	LoadRecorder
}

// TenantRepository reads per-tenant engine settings.
type TenantRepository interface {
	GetSettings(ctx context.Context, tenantID string) (*models.TenantSettings, error)
}

// FollowUpRepository stores follow-ups. Save takes the full record; SaveTask
// takes the degraded generic task used when Save is rejected. Both report
// false when a record with the same idempotency key already exists.
type FollowUpRepository interface {
	Save(ctx context.Context, action models.FollowUpAction) (bool, error)
	SaveTask(ctx context.Context, task models.GenericTask) (bool, error)
}

// Tx is the write side of one orchestrator invocation. A Save rejected
// inside a Tx leaves it usable for SaveTask.
type Tx interface {
	LeadWriter
	LoadRecorder
	FollowUpRepository
}

// UnitOfWork runs fn in a transaction. Everything fn wrote through tx is
// committed when fn returns nil and discarded when it returns an error or
// ctx ends first.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}
