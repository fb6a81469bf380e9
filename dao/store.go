// api/dao/store.go
package dao

import (
	"context"
	"time"

	"github.com/dev-mohitbeniwal/gatekeeper/api/model"
)

// PolicyStore is the persistence contract for policy definitions. Conditions
// come back ordered by their stored order and policies in creation order.
type PolicyStore interface {
	ListEnabledPolicies(ctx context.Context, filter model.TenantFilter) ([]model.Policy, error)
	CreatePolicy(ctx context.Context, policy model.Policy) (*model.Policy, error)
	UpdatePolicy(ctx context.Context, policy model.Policy) (*model.Policy, error)
	DeletePolicy(ctx context.Context, policyID string) error
	GetPolicy(ctx context.Context, policyID string) (*model.Policy, error)
	ListPolicies(ctx context.Context, limit int, offset int) ([]*model.Policy, error)
	FindPolicyByName(ctx context.Context, name string) (*model.Policy, error)
}

// TenantStore looks up active, non-deleted tenants. Every method returns
// ErrTenantNotFound when nothing matches.
type TenantStore interface {
	FindActiveTenantBySlug(ctx context.Context, slug string) (*model.Tenant, error)
	FindActiveTenantByID(ctx context.Context, id string) (*model.Tenant, error)
	FindActiveTenantByDomain(ctx context.Context, domain string) (*model.Tenant, error)
}

func withQueryTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
