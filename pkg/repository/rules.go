package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/jordanlanch/leadrouter/pkg/domain"
	"github.com/jordanlanch/leadrouter/pkg/logger"
	"github.com/jordanlanch/leadrouter/pkg/models"
)

// RuleRepository reads assignment rules.
type RuleRepository struct {
	db     *sql.DB
	logger logger.Logger
}

// NewRuleRepository creates a rule repository.
func NewRuleRepository(db *sql.DB, log logger.Logger) *RuleRepository {
	if log == nil {
		log = logger.Nop()
	}
	return &RuleRepository{db: db, logger: log}
}

var _ domain.RuleRepository = (*RuleRepository)(nil)

// ListActive returns the tenant's active rules in evaluation order, ties on
// priority and creation time broken by id. A rule whose stored conditions or
// directive cannot be decoded is skipped.
func (r *RuleRepository) ListActive(ctx context.Context, tenantID string) ([]models.AssignmentRule, error) {
	query := `
		SELECT id, tenant_id, name, priority, status, conditions, directive, created_at
		  FROM assignment_rules
		 WHERE tenant_id = $1 AND status = 'active'
		 ORDER BY priority ASC, created_at ASC, id ASC
	`

	rows, err := r.db.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list rules: %w", err)
	}
	defer rows.Close()

	var rules []models.AssignmentRule
	for rows.Next() {
		var (
			rule       models.AssignmentRule
			conditions string
			directive  string
		)
		if err := rows.Scan(
			&rule.ID,
			&rule.TenantID,
			&rule.Name,
			&rule.Priority,
			&rule.Status,
			&conditions,
			&directive,
			&rule.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}
		if err := json.Unmarshal([]byte(conditions), &rule.Conditions); err != nil {
			r.logger.Warn("skipping rule with malformed conditions", "tenant_id", tenantID, "rule_id", rule.ID, "error", err)
			continue
		}
		if err := json.Unmarshal([]byte(directive), &rule.Directive); err != nil {
			r.logger.Warn("skipping rule with malformed directive", "tenant_id", tenantID, "rule_id", rule.ID, "error", err)
			continue
		}
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rules: %w", err)
	}
	return rules, nil
}

// Insert stores a rule.
func (r *RuleRepository) Insert(ctx context.Context, rule models.AssignmentRule) error {
	conditions, err := json.Marshal(rule.Conditions)
	if err != nil {
		return fmt.Errorf("failed to encode conditions: %w", err)
	}
	directive, err := json.Marshal(rule.Directive)
	if err != nil {
		return fmt.Errorf("failed to encode directive: %w", err)
	}

	query := `
		INSERT INTO assignment_rules (tenant_id, id, name, priority, status, conditions, directive, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	if _, err := r.db.ExecContext(ctx, query,
		rule.TenantID,
		rule.ID,
		rule.Name,
		rule.Priority,
		string(rule.Status),
		string(conditions),
		string(directive),
		rule.CreatedAt.UTC(),
	); err != nil {
		return fmt.Errorf("failed to insert rule %s: %w", rule.ID, err)
	}
	return nil
}
