// api/dao/tenant_dao.go
package dao

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	gk_errors "github.com/dev-mohitbeniwal/gatekeeper/api/errors"
	logger "github.com/dev-mohitbeniwal/gatekeeper/api/logging"
	"github.com/dev-mohitbeniwal/gatekeeper/api/model"
	gk_neo4j "github.com/dev-mohitbeniwal/gatekeeper/api/model/neo4j"
	helper_util "github.com/dev-mohitbeniwal/gatekeeper/api/util/helper"
)

type Neo4jTenantDAO struct {
	Driver  neo4j.Driver
	timeout time.Duration
}

func NewNeo4jTenantDAO(driver neo4j.Driver, txTimeout time.Duration) (*Neo4jTenantDAO, error) {
	dao := &Neo4jTenantDAO{Driver: driver, timeout: txTimeout}
	if err := dao.EnsureUniqueConstraint(context.Background()); err != nil {
		return nil, err
	}
	return dao, nil
}

func (dao *Neo4jTenantDAO) EnsureUniqueConstraint(ctx context.Context) error {
	logger.Info("Ensuring unique constraints on Tenant")
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	_, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		for _, query := range []string{
			`CREATE CONSTRAINT unique_tenant_id IF NOT EXISTS FOR (t:` + gk_neo4j.LabelTenant + `) REQUIRE t.id IS UNIQUE`,
			`CREATE CONSTRAINT unique_tenant_slug IF NOT EXISTS FOR (t:` + gk_neo4j.LabelTenant + `) REQUIRE t.slug IS UNIQUE`,
		} {
			if _, err := transaction.Run(query, nil); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	if err != nil {
		logger.Error("Failed to ensure unique constraints on Tenant", zap.Error(err))
		return err
	}
	return nil
}

func (dao *Neo4jTenantDAO) FindActiveTenantBySlug(ctx context.Context, slug string) (*model.Tenant, error) {
	return dao.findActive(`t.slug = $value`, slug)
}

func (dao *Neo4jTenantDAO) FindActiveTenantByID(ctx context.Context, id string) (*model.Tenant, error) {
	return dao.findActive(`t.id = $value`, id)
}

func (dao *Neo4jTenantDAO) FindActiveTenantByDomain(ctx context.Context, domain string) (*model.Tenant, error) {
	return dao.findActive(`toLower(t.domain) = $value`, strings.ToLower(domain))
}

func (dao *Neo4jTenantDAO) findActive(predicate string, value string) (*model.Tenant, error) {
	if value == "" {
		return nil, gk_errors.ErrTenantNotFound
	}
	start := time.Now()
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close()

	query := `
    MATCH (t:` + gk_neo4j.LabelTenant + `)
    WHERE ` + predicate + ` AND t.isActive = true AND t.deletedAt IS NULL
    RETURN t
    LIMIT 1
    `
	result, err := session.ReadTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		result, err := transaction.Run(query, map[string]interface{}{"value": value})
		if err != nil {
			return nil, err
		}
		if !result.Next() {
			return nil, gk_errors.ErrTenantNotFound
		}
		node, ok := result.Record().Values[0].(neo4j.Node)
		if !ok {
			return nil, fmt.Errorf("unexpected record value %T", result.Record().Values[0])
		}
		return mapNodeToTenant(node)
	}, neo4j.WithTxTimeout(dao.timeout))
	if err != nil {
		if err == gk_errors.ErrTenantNotFound {
			return nil, err
		}
		logger.Error("Failed to find tenant",
			zap.Error(err),
			zap.Duration("duration", time.Since(start)))
		return nil, fmt.Errorf("%w: find tenant: %w", gk_errors.ErrDatabaseOperation, err)
	}
	return result.(*model.Tenant), nil
}

func mapNodeToTenant(node neo4j.Node) (*model.Tenant, error) {
	props := node.Props
	tenant := &model.Tenant{}

	id, ok := props[gk_neo4j.AttrID].(string)
	if !ok {
		return nil, fmt.Errorf("failed to assert type for tenant ID: %v", props[gk_neo4j.AttrID])
	}
	tenant.ID = id

	slug, ok := props[gk_neo4j.AttrSlug].(string)
	if !ok {
		return nil, fmt.Errorf("failed to assert type for tenant slug: %v", props[gk_neo4j.AttrSlug])
	}
	tenant.Slug = slug

	tenant.Name, _ = props[gk_neo4j.AttrName].(string)
	tenant.IsActive, _ = props[gk_neo4j.AttrIsActive].(bool)
	if domain, ok := props[gk_neo4j.AttrDomain].(string); ok && domain != "" {
		tenant.Domain = &domain
	}

	var err error
	if tenant.DeletedAt, err = helper_util.ParseNullableTime(props[gk_neo4j.AttrDeletedAt]); err != nil {
		return nil, err
	}
	if tenant.CreatedAt, err = helper_util.ParseRequiredTime(props[gk_neo4j.AttrCreatedAt]); err != nil {
		return nil, err
	}
	if tenant.UpdatedAt, err = helper_util.ParseRequiredTime(props[gk_neo4j.AttrUpdatedAt]); err != nil {
		return nil, err
	}
	return tenant, nil
}
