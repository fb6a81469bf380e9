// api/service/tenant_service.go
package service

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/dev-mohitbeniwal/gatekeeper/api/config"
	"github.com/dev-mohitbeniwal/gatekeeper/api/dao"
	gk_errors "github.com/dev-mohitbeniwal/gatekeeper/api/errors"
	logger "github.com/dev-mohitbeniwal/gatekeeper/api/logging"
	"github.com/dev-mohitbeniwal/gatekeeper/api/model"
)

const (
	HeaderTenantSlug = "X-Tenant-Slug"
	HeaderTenantID   = "X-Tenant-ID"
)

var (
	tenantPathPattern = regexp.MustCompile(`^/api/tenant/([^/]+)(?:/|$)`)
	reservedLabels    = map[string]struct{}{"www": {}, "api": {}}
)

type ITenantService interface {
	ResolveTenantFromRequest(ctx context.Context, r *http.Request) (*model.TenantContext, error)
	FindTenantByID(ctx context.Context, id string) (*model.TenantContext, error)
	FindTenantBySlug(ctx context.Context, slug string) (*model.TenantContext, error)
	FindTenantByDomain(ctx context.Context, domain string) (*model.TenantContext, error)
}

// TenantService resolves the tenant a request belongs to.
type TenantService struct {
	store dao.TenantStore
	mode  string
}

func NewTenantService(store dao.TenantStore, mode string) *TenantService {
	if mode == "" {
		mode = config.TenantModeJWT
	}
	return &TenantService{store: store, mode: mode}
}

// ResolveTenantFromRequest returns (nil, nil) when the request names no
// tenant and ErrTenantNotFound when it names one that is not active.
func (s *TenantService) ResolveTenantFromRequest(ctx context.Context, r *http.Request) (*model.TenantContext, error) {
	switch s.mode {
	case config.TenantModeSubdomain:
		return s.fromHost(ctx, r.Host)
	case config.TenantModeHeader:
		if slug := strings.TrimSpace(r.Header.Get(HeaderTenantSlug)); slug != "" {
			return s.FindTenantBySlug(ctx, slug)
		}
		if id := strings.TrimSpace(r.Header.Get(HeaderTenantID)); id != "" {
			return s.FindTenantByID(ctx, id)
		}
		return nil, nil
	case config.TenantModePath:
		m := tenantPathPattern.FindStringSubmatch(r.URL.Path)
		if m == nil {
			return nil, nil
		}
		return s.FindTenantBySlug(ctx, m[1])
	case config.TenantModeJWT:
		actor, ok := model.ActorFromContext(ctx)
		if !ok || actor.TenantID == "" {
			return nil, nil
		}
		return s.FindTenantByID(ctx, actor.TenantID)
	}
	return nil, fmt.Errorf("unknown tenant mode %q", s.mode)
}

func (s *TenantService) fromHost(ctx context.Context, hostport string) (*model.TenantContext, error) {
	host := hostport
	if h, _, err := net.SplitHostPort(hostport); err == nil {
		host = h
	}
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	if host == "" || net.ParseIP(host) != nil {
		return nil, nil
	}

	if tc, err := s.FindTenantByDomain(ctx, host); err == nil {
		return tc, nil
	}

	labels := strings.Split(host, ".")
	if len(labels) < 2 {
		return nil, nil
	}
	if _, reserved := reservedLabels[labels[0]]; reserved {
		return nil, nil
	}
	return s.FindTenantBySlug(ctx, labels[0])
}

func (s *TenantService) FindTenantByID(ctx context.Context, id string) (*model.TenantContext, error) {
	return s.find(ctx, "id", id, s.store.FindActiveTenantByID)
}

func (s *TenantService) FindTenantBySlug(ctx context.Context, slug string) (*model.TenantContext, error) {
	return s.find(ctx, "slug", slug, s.store.FindActiveTenantBySlug)
}

func (s *TenantService) FindTenantByDomain(ctx context.Context, domain string) (*model.TenantContext, error) {
	return s.find(ctx, "domain", domain, s.store.FindActiveTenantByDomain)
}

func (s *TenantService) find(ctx context.Context, kind, value string,
	lookup func(context.Context, string) (*model.Tenant, error)) (*model.TenantContext, error) {
	tenant, err := lookup(ctx, value)
	if err != nil {
		if !errors.Is(err, gk_errors.ErrTenantNotFound) {
			logger.Warn("Tenant lookup failed", zap.Error(err), zap.String(kind, value))
		}
		return nil, gk_errors.ErrTenantNotFound
	}
	if !tenant.Usable() {
		return nil, gk_errors.ErrTenantNotFound
	}
	return tenant.Context(), nil
}

// TenantFilter builds the constraint for tenant-scoped reads. A nil tenant
// means no constraint.
func TenantFilter(tc *model.TenantContext) model.TenantFilter {
	if tc == nil || tc.ID == "" {
		return model.TenantFilter{}
	}
	return model.TenantFilter{model.TenantFilterKey: tc.ID}
}

// ValidateTenantAccess checks that an actor may touch a resource owned by
// resourceTenantID. Resources without a tenant are shared.
func ValidateTenantAccess(actorTenantID, resourceTenantID string) error {
	if actorTenantID == "" {
		return gk_errors.ErrTenantRequired
	}
	if resourceTenantID == "" {
		return nil
	}
	if actorTenantID != resourceTenantID {
		return gk_errors.ErrCrossTenantAccess
	}
	return nil
}
