// api/dao/sql_policy_dao.go
package dao

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/oarkflow/squealx"
	"go.uber.org/zap"

	gk_errors "github.com/dev-mohitbeniwal/gatekeeper/api/errors"
	logger "github.com/dev-mohitbeniwal/gatekeeper/api/logging"
	"github.com/dev-mohitbeniwal/gatekeeper/api/model"
	helper_util "github.com/dev-mohitbeniwal/gatekeeper/api/util/helper"
)

const (
	policyColumns    = `id, name, description, effect, enabled, tenant_id, version, created_at, updated_at`
	conditionColumns = `policy_id, attribute, operator, value_json, condition_order`
)

// SQLPolicyDAO stores policies in two tables: one row per policy and one row
// per condition.
type SQLPolicyDAO struct {
	db      *squealx.DB
	timeout time.Duration
	now     func() time.Time
}

func NewSQLPolicyDAO(db *squealx.DB, queryTimeout time.Duration) *SQLPolicyDAO {
	return &SQLPolicyDAO{db: db, timeout: queryTimeout, now: func() time.Time { return time.Now().UTC() }}
}

// ListEnabledPolicies returns every enabled policy visible under filter.
// Global policies are always visible.
func (dao *SQLPolicyDAO) ListEnabledPolicies(ctx context.Context, filter model.TenantFilter) ([]model.Policy, error) {
	start := time.Now()
	ctx, cancel := withQueryTimeout(ctx, dao.timeout)
	defer cancel()

	where := ` WHERE enabled = 1`
	params := map[string]any{}
	if tenantID := filter.TenantID(); tenantID != "" {
		where += ` AND (tenant_id IS NULL OR tenant_id = :tenant_id)`
		params["tenant_id"] = tenantID
	}

	policies, err := dao.queryPolicies(ctx, where, "", params)
	if err != nil {
		logger.Error("Failed to list enabled policies",
			zap.Error(err),
			zap.Duration("duration", time.Since(start)))
		return nil, fmt.Errorf("%w: list enabled policies: %w", gk_errors.ErrDatabaseOperation, err)
	}

	logger.Debug("Enabled policies loaded",
		zap.Int("count", len(policies)),
		zap.Duration("duration", time.Since(start)))
	out := make([]model.Policy, len(policies))
	for i, p := range policies {
		out[i] = *p
	}
	return out, nil
}

// CreatePolicy inserts a new policy with version 1.
func (dao *SQLPolicyDAO) CreatePolicy(ctx context.Context, policy model.Policy) (*model.Policy, error) {
	start := time.Now()
	logger.Info("Creating new policy", zap.String("policyName", policy.Name))

	if policy.ID == "" {
		policy.ID = uuid.New().String()
	} else if _, err := dao.GetPolicy(ctx, policy.ID); err == nil {
		return nil, gk_errors.ErrPolicyConflict
	} else if !errors.Is(err, gk_errors.ErrPolicyNotFound) {
		return nil, err
	}
	if _, err := dao.FindPolicyByName(ctx, policy.Name); err == nil {
		return nil, gk_errors.ErrPolicyConflict
	} else if !errors.Is(err, gk_errors.ErrPolicyNotFound) {
		return nil, err
	}

	now := dao.now()
	policy.Version = 1
	policy.CreatedAt = now
	policy.UpdatedAt = now

	err := dao.withTx(ctx, func(qctx context.Context, tx *squealx.Tx) error {
		q := `INSERT INTO policies(id, name, description, effect, enabled, tenant_id, version, created_at, updated_at)
			VALUES(:id, :name, :description, :effect, :enabled, :tenant_id, :version, :created_at, :updated_at)`
		if _, err := tx.NamedExecContext(qctx, q, policyParams(policy)); err != nil {
			return fmt.Errorf("%w: insert policy: %w", gk_errors.ErrDatabaseOperation, err)
		}
		return insertConditions(qctx, tx, policy.ID, policy.Conditions)
	})
	if err != nil {
		logger.Error("Failed to create policy",
			zap.Error(err),
			zap.String("policyName", policy.Name),
			zap.Duration("duration", time.Since(start)))
		return nil, err
	}

	logger.Info("Policy created successfully",
		zap.String("policyID", policy.ID),
		zap.Duration("duration", time.Since(start)))
	return &policy, nil
}

// UpdatePolicy replaces a policy and its conditions and bumps the version.
func (dao *SQLPolicyDAO) UpdatePolicy(ctx context.Context, policy model.Policy) (*model.Policy, error) {
	start := time.Now()
	logger.Info("Updating policy", zap.String("policyID", policy.ID))

	existing, err := dao.GetPolicy(ctx, policy.ID)
	if err != nil {
		return nil, err
	}
	if policy.Name != existing.Name {
		if other, err := dao.FindPolicyByName(ctx, policy.Name); err == nil && other.ID != policy.ID {
			return nil, gk_errors.ErrPolicyConflict
		} else if err != nil && !errors.Is(err, gk_errors.ErrPolicyNotFound) {
			return nil, err
		}
	}

	policy.Version = existing.Version + 1
	policy.CreatedAt = existing.CreatedAt
	policy.UpdatedAt = dao.now()

	err = dao.withTx(ctx, func(qctx context.Context, tx *squealx.Tx) error {
		q := `UPDATE policies SET name = :name, description = :description, effect = :effect, enabled = :enabled,
			tenant_id = :tenant_id, version = :version, updated_at = :updated_at WHERE id = :id`
		if _, err := tx.NamedExecContext(qctx, q, policyParams(policy)); err != nil {
			return fmt.Errorf("%w: update policy: %w", gk_errors.ErrDatabaseOperation, err)
		}
		if _, err := tx.NamedExecContext(qctx, `DELETE FROM policy_conditions WHERE policy_id = :policy_id`,
			map[string]any{"policy_id": policy.ID}); err != nil {
			return fmt.Errorf("%w: replace conditions: %w", gk_errors.ErrDatabaseOperation, err)
		}
		return insertConditions(qctx, tx, policy.ID, policy.Conditions)
	})
	if err != nil {
		logger.Error("Failed to update policy",
			zap.Error(err),
			zap.String("policyID", policy.ID),
			zap.Duration("duration", time.Since(start)))
		return nil, err
	}

	logger.Info("Policy updated successfully",
		zap.String("policyID", policy.ID),
		zap.Int("version", policy.Version),
		zap.Duration("duration", time.Since(start)))
	return &policy, nil
}

func (dao *SQLPolicyDAO) DeletePolicy(ctx context.Context, policyID string) error {
	start := time.Now()
	logger.Info("Deleting policy", zap.String("policyID", policyID))

	err := dao.withTx(ctx, func(qctx context.Context, tx *squealx.Tx) error {
		if _, err := tx.NamedExecContext(qctx, `DELETE FROM policy_conditions WHERE policy_id = :policy_id`,
			map[string]any{"policy_id": policyID}); err != nil {
			return fmt.Errorf("%w: delete conditions: %w", gk_errors.ErrDatabaseOperation, err)
		}
		res, err := tx.NamedExecContext(qctx, `DELETE FROM policies WHERE id = :id`, map[string]any{"id": policyID})
		if err != nil {
			return fmt.Errorf("%w: delete policy: %w", gk_errors.ErrDatabaseOperation, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("%w: delete policy: %w", gk_errors.ErrDatabaseOperation, err)
		}
		if affected == 0 {
			return gk_errors.ErrPolicyNotFound
		}
		return nil
	})
	if err != nil {
		if !errors.Is(err, gk_errors.ErrPolicyNotFound) {
			logger.Error("Failed to delete policy", zap.Error(err), zap.String("policyID", policyID))
		}
		return err
	}

	logger.Info("Policy deleted successfully",
		zap.String("policyID", policyID),
		zap.Duration("duration", time.Since(start)))
	return nil
}

func (dao *SQLPolicyDAO) GetPolicy(ctx context.Context, policyID string) (*model.Policy, error) {
	return dao.findOne(ctx, ` WHERE id = :id`, map[string]any{"id": policyID})
}

func (dao *SQLPolicyDAO) FindPolicyByName(ctx context.Context, name string) (*model.Policy, error) {
	return dao.findOne(ctx, ` WHERE name = :name`, map[string]any{"name": name})
}

// ListPolicies pages through all policies, enabled or not, in creation order.
func (dao *SQLPolicyDAO) ListPolicies(ctx context.Context, limit int, offset int) ([]*model.Policy, error) {
	start := time.Now()
	ctx, cancel := withQueryTimeout(ctx, dao.timeout)
	defer cancel()

	policies, err := dao.queryPolicies(ctx, "", ` LIMIT :limit OFFSET :offset`, map[string]any{"limit": limit, "offset": offset})
	if err != nil {
		logger.Error("Failed to list policies", zap.Error(err), zap.Duration("duration", time.Since(start)))
		return nil, fmt.Errorf("%w: list policies: %w", gk_errors.ErrDatabaseOperation, err)
	}
	logger.Info("Policies listed successfully",
		zap.Int("count", len(policies)),
		zap.Duration("duration", time.Since(start)))
	return policies, nil
}

func (dao *SQLPolicyDAO) findOne(ctx context.Context, where string, params map[string]any) (*model.Policy, error) {
	ctx, cancel := withQueryTimeout(ctx, dao.timeout)
	defer cancel()

	policies, err := dao.queryPolicies(ctx, where, "", params)
	if err != nil {
		return nil, fmt.Errorf("%w: get policy: %w", gk_errors.ErrDatabaseOperation, err)
	}
	if len(policies) == 0 {
		return nil, gk_errors.ErrPolicyNotFound
	}
	return policies[0], nil
}

// queryPolicies selects policies and then their conditions with the same
// where clause, so both reads see the same set of ids.
func (dao *SQLPolicyDAO) queryPolicies(ctx context.Context, where, suffix string, params map[string]any) ([]*model.Policy, error) {
	q := `SELECT ` + policyColumns + ` FROM policies` + where + ` ORDER BY seq` + suffix
	rows, err := dao.db.NamedQueryContext(ctx, q, params)
	if err != nil {
		return nil, err
	}
	var policies []*model.Policy
	byID := make(map[string]*model.Policy)
	for rows.Next() {
		var (
			p                      model.Policy
			effect                 string
			enabled                int
			tenantID               sql.NullString
			createdRaw, updatedRaw interface{}
		)
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &effect, &enabled, &tenantID, &p.Version, &createdRaw, &updatedRaw); err != nil {
			rows.Close()
			return nil, err
		}
		p.Effect = model.Effect(effect)
		p.Enabled = enabled != 0
		if tenantID.Valid {
			id := tenantID.String
			p.TenantID = &id
		}
		if p.CreatedAt, err = helper_util.ParseRequiredTime(createdRaw); err != nil {
			rows.Close()
			return nil, err
		}
		if p.UpdatedAt, err = helper_util.ParseRequiredTime(updatedRaw); err != nil {
			rows.Close()
			return nil, err
		}
		p.Conditions = []model.Condition{}
		policies = append(policies, &p)
		byID[p.ID] = &p
	}
	rows.Close()
	if len(policies) == 0 {
		return policies, nil
	}

	cq := `SELECT ` + conditionColumns + ` FROM policy_conditions WHERE policy_id IN (SELECT id FROM policies` +
		where + ` ORDER BY seq` + suffix + `) ORDER BY policy_id, condition_order, seq`
	crows, err := dao.db.NamedQueryContext(ctx, cq, params)
	if err != nil {
		return nil, err
	}
	defer crows.Close()
	for crows.Next() {
		var (
			policyID  string
			condition model.Condition
			valueJSON string
		)
		if err := crows.Scan(&policyID, &condition.Attribute, &condition.Operator, &valueJSON, &condition.Order); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(valueJSON), &condition.Value); err != nil {
			return nil, fmt.Errorf("decode condition value of policy %s: %w", policyID, err)
		}
		if p, ok := byID[policyID]; ok {
			p.Conditions = append(p.Conditions, condition)
		}
	}
	return policies, nil
}

// withTx runs fn in one transaction bounded by the query timeout. The
// transaction is committed only when fn succeeds.
func (dao *SQLPolicyDAO) withTx(ctx context.Context, fn func(context.Context, *squealx.Tx) error) error {
	ctx, cancel := withQueryTimeout(ctx, dao.timeout)
	defer cancel()

	tx, err := dao.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin transaction: %w", gk_errors.ErrDatabaseOperation, err)
	}
	if err := fn(ctx, tx); err != nil {
		if rerr := tx.Rollback(); rerr != nil && !errors.Is(rerr, sql.ErrTxDone) {
			logger.Error("Failed to roll back policy write", zap.Error(rerr))
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %w", gk_errors.ErrDatabaseOperation, err)
	}
	return nil
}

func insertConditions(ctx context.Context, tx *squealx.Tx, policyID string, conditions []model.Condition) error {
	q := `INSERT INTO policy_conditions(policy_id, attribute, operator, value_json, condition_order)
		VALUES(:policy_id, :attribute, :operator, :value_json, :condition_order)`
	for _, c := range conditions {
		value, err := json.Marshal(c.Value)
		if err != nil {
			return fmt.Errorf("%w: encode condition value: %v", gk_errors.ErrInvalidPolicyData, err)
		}
		if _, err := tx.NamedExecContext(ctx, q, map[string]any{
			"policy_id":       policyID,
			"attribute":       c.Attribute,
			"operator":        c.Operator,
			"value_json":      string(value),
			"condition_order": c.Order,
		}); err != nil {
			return fmt.Errorf("%w: insert condition: %w", gk_errors.ErrDatabaseOperation, err)
		}
	}
	return nil
}

func policyParams(p model.Policy) map[string]any {
	var tenantID interface{}
	if p.TenantID != nil {
		tenantID = *p.TenantID
	}
	return map[string]any{
		"id":          p.ID,
		"name":        p.Name,
		"description": p.Description,
		"effect":      string(p.Effect),
		"enabled":     boolToInt(p.Enabled),
		"tenant_id":   tenantID,
		"version":     p.Version,
		"created_at":  p.CreatedAt,
		"updated_at":  p.UpdatedAt,
	}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
