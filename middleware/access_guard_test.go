package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gk_errors "github.com/dev-mohitbeniwal/gatekeeper/api/errors"
	"github.com/dev-mohitbeniwal/gatekeeper/api/model"
	pdp_model "github.com/dev-mohitbeniwal/gatekeeper/api/pdp/model"
	"github.com/dev-mohitbeniwal/gatekeeper/api/service"
)

type stubAccess struct {
	allow bool
	views []service.RequestView
}

func (s *stubAccess) Authorize(ctx context.Context, view service.RequestView) bool {
	s.views = append(s.views, view)
	return s.allow && view.Actor != nil
}

func newGuardRouter(access service.IAccessService, actor *model.Actor, preload *pdp_model.Resource) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	if actor != nil {
		r.Use(withActor(actor))
	}
	if preload != nil {
		r.Use(func(c *gin.Context) {
			c.Set(ResourceKey, preload)
			c.Next()
		})
	}
	r.DELETE("/policies/:id", AccessGuard(access), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func TestAccessGuard(t *testing.T) {
	actor := &model.Actor{ID: "u1", Roles: []string{"USER"}}

	t.Run("Anonymous", func(t *testing.T) {
		access := &stubAccess{allow: true}
		w := httptest.NewRecorder()
		newGuardRouter(access, nil, nil).ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/policies/9", nil))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Empty(t, access.views)
	})

	t.Run("Denied", func(t *testing.T) {
		access := &stubAccess{allow: false}
		w := httptest.NewRecorder()
		router := newGuardRouter(access, actor, nil)
		router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/policies/9", nil))

		assert.Equal(t, http.StatusForbidden, w.Code)
		require.Len(t, access.views, 1)
		assert.Equal(t, "9", access.views[0].PathID)
		assert.Equal(t, http.MethodDelete, access.views[0].Method)
	})

	t.Run("Allowed", func(t *testing.T) {
		access := &stubAccess{allow: true}
		preload := &pdp_model.Resource{ID: "9", OwnerID: "u1"}
		w := httptest.NewRecorder()
		newGuardRouter(access, actor, preload).ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/policies/9", nil))

		assert.Equal(t, http.StatusNoContent, w.Code)
		require.Len(t, access.views, 1)
		assert.Same(t, preload, access.views[0].Resource)
	})
}

type stubResolver struct {
	tc  *model.TenantContext
	err error
}

func (s stubResolver) ResolveTenantFromRequest(ctx context.Context, r *http.Request) (*model.TenantContext, error) {
	return s.tc, s.err
}

func TestTenantResolver(t *testing.T) {
	for name, tc := range map[string]struct {
		resolver stubResolver
		wantID   string
	}{
		"Resolved": {resolver: stubResolver{tc: &model.TenantContext{ID: "t1", Slug: "acme"}}, wantID: "t1"},
		"None":     {resolver: stubResolver{}},
		"NotFound": {resolver: stubResolver{err: gk_errors.ErrTenantNotFound}},
		"Failure":  {resolver: stubResolver{err: errors.New("redis: i/o timeout")}},
	} {
		gin.SetMode(gin.TestMode)
		r := gin.New()
		r.Use(TenantResolver(tc.resolver))
		var got *model.TenantContext
		r.GET("/", func(c *gin.Context) {
			got = GetTenant(c)
			c.Status(http.StatusOK)
		})

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusOK, w.Code, name)
		if tc.wantID == "" {
			assert.Nil(t, got, name)
			continue
		}
		require.NotNil(t, got, name)
		assert.Equal(t, tc.wantID, got.ID, name)
	}
}
