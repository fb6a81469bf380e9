// api/model/tenant.go
package model

import (
	"context"
	"time"
)

type Tenant struct {
	ID        string     `json:"id"`
	Slug      string     `json:"slug"`
	Name      string     `json:"name"`
	Domain    *string    `json:"domain,omitempty"`
	IsActive  bool       `json:"is_active"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Usable reports whether the tenant may be resolved for a request.
func (t *Tenant) Usable() bool {
	return t != nil && t.IsActive && t.DeletedAt == nil
}

// Context converts the stored tenant into the per-request view.
func (t *Tenant) Context() *TenantContext {
	tc := &TenantContext{
		ID:       t.ID,
		Slug:     t.Slug,
		Name:     t.Name,
		IsActive: t.IsActive,
	}
	if t.Domain != nil {
		domain := *t.Domain
		tc.Domain = &domain
	}
	return tc
}

// TenantContext is the tenant resolved for one request. It is never mutated
// after resolution.
type TenantContext struct {
	ID       string  `json:"id"`
	Slug     string  `json:"slug"`
	Name     string  `json:"name"`
	Domain   *string `json:"domain,omitempty"`
	IsActive bool    `json:"is_active"`
}

// TenantFilter is the constraint applied to tenant-scoped reads. An empty
// filter means no tenant constraint.
type TenantFilter map[string]interface{}

const TenantFilterKey = "tenantId"

// TenantID returns the constrained tenant id, or "" for an empty filter.
func (f TenantFilter) TenantID() string {
	id, _ := f[TenantFilterKey].(string)
	return id
}

type tenantCtxKey struct{}

func WithTenant(ctx context.Context, tc *TenantContext) context.Context {
	return context.WithValue(ctx, tenantCtxKey{}, tc)
}

func TenantFromContext(ctx context.Context) (*TenantContext, bool) {
	tc, ok := ctx.Value(tenantCtxKey{}).(*TenantContext)
	return tc, ok && tc != nil
}
