package service_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	testifymock "github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dev-mohitbeniwal/gatekeeper/api/config"
	gk_errors "github.com/dev-mohitbeniwal/gatekeeper/api/errors"
	"github.com/dev-mohitbeniwal/gatekeeper/api/model"
	"github.com/dev-mohitbeniwal/gatekeeper/api/service"
	"github.com/dev-mohitbeniwal/gatekeeper/api/test/mock"
)

func acmeTenant() *model.Tenant {
	return &model.Tenant{ID: "t-acme", Slug: "acme", Name: "Acme", IsActive: true}
}

func TestTenantService_HeaderMode(t *testing.T) {
	store := new(mock.MockTenantStore)
	store.On("FindActiveTenantBySlug", testifymock.Anything, "acme").Return(acmeTenant(), nil)
	store.On("FindActiveTenantBySlug", testifymock.Anything, "ghost").Return(nil, gk_errors.ErrTenantNotFound)
	store.On("FindActiveTenantByID", testifymock.Anything, "t-acme").Return(acmeTenant(), nil)
	svc := service.NewTenantService(store, config.TenantModeHeader)

	t.Run("SlugHeader", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/policies", nil)
		req.Header.Set("x-tenant-slug", "acme")

		tc, err := svc.ResolveTenantFromRequest(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, "t-acme", tc.ID)
	})

	t.Run("IDHeader", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(service.HeaderTenantID, "t-acme")

		tc, err := svc.ResolveTenantFromRequest(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, "acme", tc.Slug)
	})

	t.Run("NoHeader", func(t *testing.T) {
		tc, err := svc.ResolveTenantFromRequest(context.Background(), httptest.NewRequest(http.MethodGet, "/", nil))
		assert.NoError(t, err)
		assert.Nil(t, tc)
	})

	t.Run("UnknownSlug", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(service.HeaderTenantSlug, "ghost")

		_, err := svc.ResolveTenantFromRequest(context.Background(), req)
		assert.ErrorIs(t, err, gk_errors.ErrTenantNotFound)
	})
}

func TestTenantService_SubdomainMode(t *testing.T) {
	store := new(mock.MockTenantStore)
	custom := acmeTenant()
	domain := "portal.acme-corp.com"
	custom.Domain = &domain
	store.On("FindActiveTenantByDomain", testifymock.Anything, "portal.acme-corp.com").Return(custom, nil)
	store.On("FindActiveTenantByDomain", testifymock.Anything, testifymock.Anything).Return(nil, gk_errors.ErrTenantNotFound)
	store.On("FindActiveTenantBySlug", testifymock.Anything, "acme").Return(acmeTenant(), nil)
	svc := service.NewTenantService(store, config.TenantModeSubdomain)

	resolve := func(host string) (*model.TenantContext, error) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Host = host
		return svc.ResolveTenantFromRequest(context.Background(), req)
	}

	tc, err := resolve("acme.gatekeeper.io:8443")
	require.NoError(t, err)
	assert.Equal(t, "t-acme", tc.ID)

	tc, err = resolve("portal.acme-corp.com")
	require.NoError(t, err)
	require.NotNil(t, tc.Domain)
	assert.Equal(t, domain, *tc.Domain)

	for _, host := range []string{"www.gatekeeper.io", "api.gatekeeper.io", "10.0.0.1:8080", "[::1]:8080", "", "localhost"} {
		tc, err := resolve(host)
		assert.NoError(t, err, host)
		assert.Nil(t, tc, host)
	}
	store.AssertNotCalled(t, "FindActiveTenantBySlug", testifymock.Anything, "www")
}

func TestTenantService_PathMode(t *testing.T) {
	store := new(mock.MockTenantStore)
	store.On("FindActiveTenantBySlug", testifymock.Anything, "acme").Return(acmeTenant(), nil)
	svc := service.NewTenantService(store, config.TenantModePath)

	for path, want := range map[string]string{
		"/api/tenant/acme":          "t-acme",
		"/api/tenant/acme/policies": "t-acme",
		"/api/tenants/acme":         "",
		"/api/v1/policies":          "",
	} {
		tc, err := svc.ResolveTenantFromRequest(context.Background(), httptest.NewRequest(http.MethodGet, path, nil))
		require.NoError(t, err, path)
		if want == "" {
			assert.Nil(t, tc, path)
			continue
		}
		assert.Equal(t, want, tc.ID, path)
	}
}

func TestTenantService_JWTMode(t *testing.T) {
	store := new(mock.MockTenantStore)
	store.On("FindActiveTenantByID", testifymock.Anything, "t-acme").Return(acmeTenant(), nil)
	svc := service.NewTenantService(store, "")
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	tc, err := svc.ResolveTenantFromRequest(context.Background(), req)
	assert.NoError(t, err)
	assert.Nil(t, tc)

	ctx := model.WithActor(context.Background(), &model.Actor{ID: "u1", TenantID: "t-acme"})
	tc, err = svc.ResolveTenantFromRequest(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "acme", tc.Slug)

	ctx = model.WithActor(context.Background(), &model.Actor{ID: "u2"})
	tc, err = svc.ResolveTenantFromRequest(ctx, req)
	assert.NoError(t, err)
	assert.Nil(t, tc)
}

func TestTenantService_Find(t *testing.T) {
	deletedAt := time.Now()
	store := new(mock.MockTenantStore)
	store.On("FindActiveTenantByID", testifymock.Anything, "timeout").Return(nil, errors.New("context deadline exceeded"))
	store.On("FindActiveTenantByID", testifymock.Anything, "deleted").
		Return(&model.Tenant{ID: "deleted", IsActive: true, DeletedAt: &deletedAt}, nil)
	store.On("FindActiveTenantByDomain", testifymock.Anything, "acme.com").Return(acmeTenant(), nil)
	svc := service.NewTenantService(store, config.TenantModeJWT)

	_, err := svc.FindTenantByID(context.Background(), "timeout")
	assert.ErrorIs(t, err, gk_errors.ErrTenantNotFound)

	_, err = svc.FindTenantByID(context.Background(), "deleted")
	assert.ErrorIs(t, err, gk_errors.ErrTenantNotFound)

	tc, err := svc.FindTenantByDomain(context.Background(), "acme.com")
	require.NoError(t, err)
	assert.Equal(t, "t-acme", tc.ID)
}

func TestTenantFilter(t *testing.T) {
	assert.Equal(t, model.TenantFilter{}, service.TenantFilter(nil))
	assert.Equal(t, model.TenantFilter{"tenantId": "t1"}, service.TenantFilter(&model.TenantContext{ID: "t1"}))
}

func TestValidateTenantAccess(t *testing.T) {
	assert.ErrorIs(t, service.ValidateTenantAccess("", "t1"), gk_errors.ErrTenantRequired)
	assert.NoError(t, service.ValidateTenantAccess("t1", ""))
	assert.NoError(t, service.ValidateTenantAccess("t1", "t1"))
	assert.ErrorIs(t, service.ValidateTenantAccess("t1", "t2"), gk_errors.ErrCrossTenantAccess)
}
