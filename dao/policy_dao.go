// api/dao/policy_dao.go
package dao

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	gk_errors "github.com/dev-mohitbeniwal/gatekeeper/api/errors"
	logger "github.com/dev-mohitbeniwal/gatekeeper/api/logging"
	"github.com/dev-mohitbeniwal/gatekeeper/api/model"
	gk_neo4j "github.com/dev-mohitbeniwal/gatekeeper/api/model/neo4j"
	helper_util "github.com/dev-mohitbeniwal/gatekeeper/api/util/helper"
)

// Neo4jPolicyDAO keeps each policy as one node. Conditions are stored as a
// JSON array property in their stored order.
type Neo4jPolicyDAO struct {
	Driver  neo4j.Driver
	timeout time.Duration
}

func NewNeo4jPolicyDAO(driver neo4j.Driver, txTimeout time.Duration) (*Neo4jPolicyDAO, error) {
	dao := &Neo4jPolicyDAO{Driver: driver, timeout: txTimeout}
	if err := dao.EnsureUniqueConstraint(context.Background()); err != nil {
		return nil, err
	}
	return dao, nil
}

// EnsureUniqueConstraint ensures policy ids and names are unique
func (dao *Neo4jPolicyDAO) EnsureUniqueConstraint(ctx context.Context) error {
	logger.Info("Ensuring unique constraints on Policy")
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer func() {
		if err := session.Close(); err != nil {
			logger.Error("Failed to close Neo4j session", zap.Error(err))
		}
	}()

	_, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		for _, query := range []string{
			`CREATE CONSTRAINT unique_policy_id IF NOT EXISTS FOR (p:` + gk_neo4j.LabelPolicy + `) REQUIRE p.id IS UNIQUE`,
			`CREATE CONSTRAINT unique_policy_name IF NOT EXISTS FOR (p:` + gk_neo4j.LabelPolicy + `) REQUIRE p.name IS UNIQUE`,
		} {
			if _, err := transaction.Run(query, nil); err != nil {
				return nil, fmt.Errorf("failed to create unique constraint: %w", err)
			}
		}
		return nil, nil
	})
	if err != nil {
		logger.Error("Failed to ensure unique constraints on Policy", zap.Error(err))
		return err
	}
	return nil
}

// ListEnabledPolicies returns enabled policies in creation order. A tenant
// filter keeps global policies and those of the given tenant.
func (dao *Neo4jPolicyDAO) ListEnabledPolicies(ctx context.Context, filter model.TenantFilter) ([]model.Policy, error) {
	start := time.Now()
	query := `
    MATCH (p:` + gk_neo4j.LabelPolicy + `)
    WHERE p.enabled = true AND ($tenantId IS NULL OR p.tenantId IS NULL OR p.tenantId = $tenantId)
    RETURN p
    ORDER BY p.createdAt, p.id
    `
	var tenantID interface{}
	if id := filter.TenantID(); id != "" {
		tenantID = id
	}

	policies, err := dao.readPolicies(query, map[string]interface{}{"tenantId": tenantID})
	if err != nil {
		logger.Error("Failed to list enabled policies",
			zap.Error(err),
			zap.Duration("duration", time.Since(start)))
		return nil, fmt.Errorf("%w: list enabled policies: %w", gk_errors.ErrDatabaseOperation, err)
	}

	out := make([]model.Policy, len(policies))
	for i, p := range policies {
		out[i] = *p
	}
	return out, nil
}

// CreatePolicy creates a new policy node in Neo4j
func (dao *Neo4jPolicyDAO) CreatePolicy(ctx context.Context, policy model.Policy) (*model.Policy, error) {
	start := time.Now()
	logger.Info("Creating new policy", zap.String("policyName", policy.Name))
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	if policy.ID == "" {
		policy.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	policy.Version = 1
	policy.CreatedAt = now
	policy.UpdatedAt = now

	props, err := policyProps(policy)
	if err != nil {
		return nil, err
	}

	_, err = session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		checkQuery := `
        MATCH (p:` + gk_neo4j.LabelPolicy + `)
        WHERE p.id = $id OR p.name = $name
        RETURN p.id
        `
		checkResult, err := transaction.Run(checkQuery, map[string]interface{}{"id": policy.ID, "name": policy.Name})
		if err != nil {
			return nil, gk_errors.ErrDatabaseOperation
		}
		if checkResult.Next() {
			return nil, gk_errors.ErrPolicyConflict
		}

		createQuery := `
        CREATE (p:` + gk_neo4j.LabelPolicy + `)
        SET p = $props
        RETURN p.id AS id
        `
		createResult, err := transaction.Run(createQuery, map[string]interface{}{"props": props})
		if err != nil {
			return nil, gk_errors.ErrDatabaseOperation
		}
		if createResult.Next() {
			return createResult.Record().Values[0], nil
		}
		return nil, gk_errors.ErrInternalServer
	}, neo4j.WithTxTimeout(dao.timeout))

	duration := time.Since(start)
	if err != nil {
		logger.Error("Failed to create policy",
			zap.Error(err),
			zap.String("policyName", policy.Name),
			zap.Duration("duration", duration))
		return nil, err
	}

	logger.Info("Policy created successfully",
		zap.String("policyID", policy.ID),
		zap.Duration("duration", duration))
	return &policy, nil
}

// UpdatePolicy updates an existing policy in Neo4j
func (dao *Neo4jPolicyDAO) UpdatePolicy(ctx context.Context, policy model.Policy) (*model.Policy, error) {
	start := time.Now()
	logger.Info("Updating policy", zap.String("policyID", policy.ID))

	existing, err := dao.GetPolicy(ctx, policy.ID)
	if err != nil {
		return nil, err
	}
	policy.Version = existing.Version + 1
	policy.CreatedAt = existing.CreatedAt
	policy.UpdatedAt = time.Now().UTC()

	props, err := policyProps(policy)
	if err != nil {
		return nil, err
	}

	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	_, err = session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		conflict, err := transaction.Run(`
        MATCH (p:`+gk_neo4j.LabelPolicy+` {name: $name})
        WHERE p.id <> $id
        RETURN p.id
        `, map[string]interface{}{"id": policy.ID, "name": policy.Name})
		if err != nil {
			return nil, gk_errors.ErrDatabaseOperation
		}
		if conflict.Next() {
			return nil, gk_errors.ErrPolicyConflict
		}

		result, err := transaction.Run(`
        MATCH (p:`+gk_neo4j.LabelPolicy+` {id: $id})
        SET p = $props
        RETURN p
        `, map[string]interface{}{"id": policy.ID, "props": props})
		if err != nil {
			return nil, fmt.Errorf("failed to execute update query: %w", err)
		}
		if result.Next() {
			return nil, nil
		}
		return nil, gk_errors.ErrPolicyNotFound
	}, neo4j.WithTxTimeout(dao.timeout))

	duration := time.Since(start)
	if err != nil {
		logger.Error("Failed to update policy",
			zap.Error(err),
			zap.String("policyID", policy.ID),
			zap.Duration("duration", duration))
		return nil, err
	}

	logger.Info("Policy updated successfully",
		zap.String("policyID", policy.ID),
		zap.Duration("duration", duration))
	return &policy, nil
}

// DeletePolicy deletes a policy from Neo4j
func (dao *Neo4jPolicyDAO) DeletePolicy(ctx context.Context, policyID string) error {
	start := time.Now()
	logger.Info("Deleting policy", zap.String("policyID", policyID))

	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	_, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
        MATCH (p:` + gk_neo4j.LabelPolicy + ` {id: $id})
        DETACH DELETE p
        `
		result, err := transaction.Run(query, map[string]interface{}{"id": policyID})
		if err != nil {
			return nil, fmt.Errorf("failed to execute delete query: %w", err)
		}
		summary, err := result.Consume()
		if err != nil {
			return nil, fmt.Errorf("failed to consume delete result: %w", err)
		}
		if summary.Counters().NodesDeleted() == 0 {
			return nil, gk_errors.ErrPolicyNotFound
		}
		return nil, nil
	}, neo4j.WithTxTimeout(dao.timeout))

	duration := time.Since(start)
	if err != nil {
		logger.Error("Failed to delete policy",
			zap.Error(err),
			zap.String("policyID", policyID),
			zap.Duration("duration", duration))
		return err
	}

	logger.Info("Policy deleted successfully",
		zap.String("policyID", policyID),
		zap.Duration("duration", duration))
	return nil
}

// GetPolicy retrieves a policy from Neo4j by its ID
func (dao *Neo4jPolicyDAO) GetPolicy(ctx context.Context, policyID string) (*model.Policy, error) {
	return dao.readOne(`MATCH (p:`+gk_neo4j.LabelPolicy+` {id: $value}) RETURN p`, policyID)
}

func (dao *Neo4jPolicyDAO) FindPolicyByName(ctx context.Context, name string) (*model.Policy, error) {
	return dao.readOne(`MATCH (p:`+gk_neo4j.LabelPolicy+` {name: $value}) RETURN p`, name)
}

// ListPolicies retrieves all policies from Neo4j with pagination
func (dao *Neo4jPolicyDAO) ListPolicies(ctx context.Context, limit int, offset int) ([]*model.Policy, error) {
	start := time.Now()
	logger.Info("Listing policies", zap.Int("limit", limit), zap.Int("offset", offset))

	query := `
    MATCH (p:` + gk_neo4j.LabelPolicy + `)
    RETURN p
    ORDER BY p.createdAt, p.id
    SKIP $offset
    LIMIT $limit
    `
	policies, err := dao.readPolicies(query, map[string]interface{}{"limit": limit, "offset": offset})
	if err != nil {
		logger.Error("Failed to execute list policies query",
			zap.Error(err),
			zap.Duration("duration", time.Since(start)))
		return nil, fmt.Errorf("%w: list policies: %w", gk_errors.ErrDatabaseOperation, err)
	}

	logger.Info("Policies listed successfully",
		zap.Int("count", len(policies)),
		zap.Duration("duration", time.Since(start)))
	return policies, nil
}

func (dao *Neo4jPolicyDAO) readOne(query string, value string) (*model.Policy, error) {
	policies, err := dao.readPolicies(query, map[string]interface{}{"value": value})
	if err != nil {
		return nil, fmt.Errorf("%w: get policy: %w", gk_errors.ErrDatabaseOperation, err)
	}
	if len(policies) == 0 {
		return nil, gk_errors.ErrPolicyNotFound
	}
	return policies[0], nil
}

func (dao *Neo4jPolicyDAO) readPolicies(query string, params map[string]interface{}) ([]*model.Policy, error) {
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close()

	result, err := session.ReadTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		result, err := transaction.Run(query, params)
		if err != nil {
			return nil, err
		}
		var policies []*model.Policy
		for result.Next() {
			node, ok := result.Record().Values[0].(neo4j.Node)
			if !ok {
				return nil, fmt.Errorf("unexpected record value %T", result.Record().Values[0])
			}
			policy, err := mapNodeToPolicy(node)
			if err != nil {
				return nil, err
			}
			policies = append(policies, policy)
		}
		return policies, nil
	}, neo4j.WithTxTimeout(dao.timeout))
	if err != nil {
		return nil, err
	}
	policies, _ := result.([]*model.Policy)
	return policies, nil
}

func policyProps(policy model.Policy) (map[string]interface{}, error) {
	conditionsJSON, err := json.Marshal(policy.Conditions)
	if err != nil {
		return nil, fmt.Errorf("%w: encode conditions: %v", gk_errors.ErrInvalidPolicyData, err)
	}
	var tenantID interface{}
	if policy.TenantID != nil {
		tenantID = *policy.TenantID
	}
	return map[string]interface{}{
		gk_neo4j.AttrID:          policy.ID,
		gk_neo4j.AttrName:        policy.Name,
		gk_neo4j.AttrDescription: policy.Description,
		gk_neo4j.AttrEffect:      string(policy.Effect),
		gk_neo4j.AttrEnabled:     policy.Enabled,
		gk_neo4j.AttrTenantID:    tenantID,
		gk_neo4j.AttrVersion:     policy.Version,
		gk_neo4j.AttrCreatedAt:   policy.CreatedAt.Format(time.RFC3339Nano),
		gk_neo4j.AttrUpdatedAt:   policy.UpdatedAt.Format(time.RFC3339Nano),
		gk_neo4j.AttrConditions:  string(conditionsJSON),
	}, nil
}

// Helper function to map Neo4j Node to Policy struct
func mapNodeToPolicy(node neo4j.Node) (*model.Policy, error) {
	props := node.Props
	policy := &model.Policy{}

	id, ok := props[gk_neo4j.AttrID].(string)
	if !ok {
		return nil, fmt.Errorf("failed to assert type for policy ID: %v", props[gk_neo4j.AttrID])
	}
	policy.ID = id

	name, ok := props[gk_neo4j.AttrName].(string)
	if !ok {
		return nil, fmt.Errorf("failed to assert type for policy name: %v", props[gk_neo4j.AttrName])
	}
	policy.Name = name

	effect, ok := props[gk_neo4j.AttrEffect].(string)
	if !ok {
		return nil, fmt.Errorf("failed to assert type for policy effect: %v", props[gk_neo4j.AttrEffect])
	}
	policy.Effect = model.Effect(effect)

	policy.Description, _ = props[gk_neo4j.AttrDescription].(string)
	policy.Enabled, _ = props[gk_neo4j.AttrEnabled].(bool)
	if version, ok := props[gk_neo4j.AttrVersion].(int64); ok {
		policy.Version = int(version)
	}
	if tenantID, ok := props[gk_neo4j.AttrTenantID].(string); ok && tenantID != "" {
		policy.TenantID = &tenantID
	}

	var err error
	if policy.CreatedAt, err = helper_util.ParseRequiredTime(props[gk_neo4j.AttrCreatedAt]); err != nil {
		return nil, fmt.Errorf("failed to parse policy createdAt: %w", err)
	}
	if policy.UpdatedAt, err = helper_util.ParseRequiredTime(props[gk_neo4j.AttrUpdatedAt]); err != nil {
		return nil, fmt.Errorf("failed to parse policy updatedAt: %w", err)
	}

	policy.Conditions = []model.Condition{}
	if conditionsJSON, ok := props[gk_neo4j.AttrConditions].(string); ok && conditionsJSON != "" {
		if err := json.Unmarshal([]byte(conditionsJSON), &policy.Conditions); err != nil {
			return nil, fmt.Errorf("failed to unmarshal policy conditions: %w", err)
		}
	}
	return policy, nil
}
