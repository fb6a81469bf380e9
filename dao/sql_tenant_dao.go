// api/dao/sql_tenant_dao.go
package dao

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/oarkflow/squealx"
	"go.uber.org/zap"

	gk_errors "github.com/dev-mohitbeniwal/gatekeeper/api/errors"
	logger "github.com/dev-mohitbeniwal/gatekeeper/api/logging"
	"github.com/dev-mohitbeniwal/gatekeeper/api/model"
	helper_util "github.com/dev-mohitbeniwal/gatekeeper/api/util/helper"
)

const tenantColumns = `id, slug, name, domain, is_active, deleted_at, created_at, updated_at`

type SQLTenantDAO struct {
	db      *squealx.DB
	timeout time.Duration
}

func NewSQLTenantDAO(db *squealx.DB, queryTimeout time.Duration) *SQLTenantDAO {
	return &SQLTenantDAO{db: db, timeout: queryTimeout}
}

func (dao *SQLTenantDAO) FindActiveTenantBySlug(ctx context.Context, slug string) (*model.Tenant, error) {
	return dao.findActive(ctx, `slug = :value`, slug)
}

func (dao *SQLTenantDAO) FindActiveTenantByID(ctx context.Context, id string) (*model.Tenant, error) {
	return dao.findActive(ctx, `id = :value`, id)
}

// FindActiveTenantByDomain matches custom domains case-insensitively.
func (dao *SQLTenantDAO) FindActiveTenantByDomain(ctx context.Context, domain string) (*model.Tenant, error) {
	return dao.findActive(ctx, `LOWER(domain) = :value`, strings.ToLower(domain))
}

// CreateTenant inserts a tenant record. Slugs and domains are unique.
func (dao *SQLTenantDAO) CreateTenant(ctx context.Context, tenant model.Tenant) (*model.Tenant, error) {
	logger.Info("Creating new tenant", zap.String("slug", tenant.Slug))
	if tenant.ID == "" {
		tenant.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if tenant.CreatedAt.IsZero() {
		tenant.CreatedAt = now
	}
	tenant.UpdatedAt = now

	var domain, deletedAt interface{}
	if tenant.Domain != nil {
		domain = strings.ToLower(*tenant.Domain)
	}
	if tenant.DeletedAt != nil {
		deletedAt = *tenant.DeletedAt
	}

	ctx, cancel := withQueryTimeout(ctx, dao.timeout)
	defer cancel()

	q := `INSERT INTO tenants(` + tenantColumns + `)
		VALUES(:id, :slug, :name, :domain, :is_active, :deleted_at, :created_at, :updated_at)`
	if _, err := dao.db.NamedExecContext(ctx, q, map[string]any{
		"id":         tenant.ID,
		"slug":       tenant.Slug,
		"name":       tenant.Name,
		"domain":     domain,
		"is_active":  boolToInt(tenant.IsActive),
		"deleted_at": deletedAt,
		"created_at": tenant.CreatedAt,
		"updated_at": tenant.UpdatedAt,
	}); err != nil {
		logger.Error("Failed to create tenant", zap.Error(err), zap.String("slug", tenant.Slug))
		return nil, fmt.Errorf("%w: insert tenant: %w", gk_errors.ErrDatabaseOperation, err)
	}
	return &tenant, nil
}

func (dao *SQLTenantDAO) findActive(ctx context.Context, predicate string, value string) (*model.Tenant, error) {
	if value == "" {
		return nil, gk_errors.ErrTenantNotFound
	}
	ctx, cancel := withQueryTimeout(ctx, dao.timeout)
	defer cancel()

	q := `SELECT ` + tenantColumns + ` FROM tenants WHERE ` + predicate + ` AND is_active = 1 AND deleted_at IS NULL`
	rows, err := dao.db.NamedQueryContext(ctx, q, map[string]any{"value": value})
	if err != nil {
		return nil, fmt.Errorf("%w: find tenant: %w", gk_errors.ErrDatabaseOperation, err)
	}
	defer rows.Close()
	if !rows.Next() {
		return nil, gk_errors.ErrTenantNotFound
	}

	var (
		t                      model.Tenant
		domain                 sql.NullString
		isActive               int
		deletedRaw             interface{}
		createdRaw, updatedRaw interface{}
	)
	if err := rows.Scan(&t.ID, &t.Slug, &t.Name, &domain, &isActive, &deletedRaw, &createdRaw, &updatedRaw); err != nil {
		return nil, fmt.Errorf("%w: scan tenant: %w", gk_errors.ErrDatabaseOperation, err)
	}
	if domain.Valid {
		d := domain.String
		t.Domain = &d
	}
	t.IsActive = isActive != 0
	if t.DeletedAt, err = helper_util.ParseNullableTime(deletedRaw); err != nil {
		return nil, err
	}
	if t.CreatedAt, err = helper_util.ParseRequiredTime(createdRaw); err != nil {
		return nil, err
	}
	if t.UpdatedAt, err = helper_util.ParseRequiredTime(updatedRaw); err != nil {
		return nil, err
	}
	return &t, nil
}
