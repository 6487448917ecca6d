package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jordanlanch/leadrouter/pkg/domain"
	"github.com/jordanlanch/leadrouter/pkg/logger"
	"github.com/jordanlanch/leadrouter/pkg/models"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store runs the writes of one orchestrator invocation in a single
// transaction: assignee, rep load, follow-ups and the follow-up count.
type Store struct {
	db *sql.DB
}

// NewStore creates a transactional store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

var _ domain.UnitOfWork = (*Store)(nil)

// Do runs fn inside a transaction. The transaction commits only when fn
// returns nil; cancelling ctx rolls it back.
func (s *Store) Do(ctx context.Context, fn func(ctx context.Context, tx domain.Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = sqlTx.Rollback() }()

	tx := &txWriter{
		tx:        sqlTx,
		leads:     &LeadRepository{db: sqlTx, logger: logger.Nop()},
		roster:    &RosterRepository{db: sqlTx},
		followUps: &FollowUpRepository{db: sqlTx},
	}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

type txWriter struct {
	tx        *sql.Tx
	leads     *LeadRepository
	roster    *RosterRepository
	followUps *FollowUpRepository
}

var _ domain.Tx = (*txWriter)(nil)

func (w *txWriter) SetAssignee(ctx context.Context, tenantID, leadID, repID string) error {
	return w.leads.SetAssignee(ctx, tenantID, leadID, repID)
}

func (w *txWriter) RecordFollowUps(ctx context.Context, tenantID, leadID string, n int, at time.Time) error {
	return w.leads.RecordFollowUps(ctx, tenantID, leadID, n, at)
}

func (w *txWriter) IncrementLoad(ctx context.Context, tenantID, repID string) (int, error) {
	return w.roster.IncrementLoad(ctx, tenantID, repID)
}

// Save inserts under a savepoint. PostgreSQL aborts the whole transaction on
// a failed statement, so a rejected record is rolled back to the savepoint
// to keep the transaction open for SaveTask.
func (w *txWriter) Save(ctx context.Context, a models.FollowUpAction) (bool, error) {
	if _, err := w.tx.ExecContext(ctx, `SAVEPOINT follow_up`); err != nil {
		return false, fmt.Errorf("failed to create savepoint: %w", err)
	}

	inserted, err := w.followUps.Save(ctx, a)
	if err != nil {
		if _, rbErr := w.tx.ExecContext(ctx, `ROLLBACK TO SAVEPOINT follow_up`); rbErr != nil {
			return false, errors.Join(err, fmt.Errorf("failed to roll back to savepoint: %w", rbErr))
		}
	}
	if _, relErr := w.tx.ExecContext(ctx, `RELEASE SAVEPOINT follow_up`); relErr != nil {
		return false, errors.Join(err, fmt.Errorf("failed to release savepoint: %w", relErr))
	}
	return inserted, err
}

func (w *txWriter) SaveTask(ctx context.Context, t models.GenericTask) (bool, error) {
	return w.followUps.SaveTask(ctx, t)
}
