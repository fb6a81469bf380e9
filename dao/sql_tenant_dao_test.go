package dao

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gk_errors "github.com/dev-mohitbeniwal/gatekeeper/api/errors"
	"github.com/dev-mohitbeniwal/gatekeeper/api/model"
)

func TestSQLTenantDAO_FindActive(t *testing.T) {
	dao := NewSQLTenantDAO(newTestDB(t), time.Second)
	ctx := context.Background()
	deletedAt := time.Now().Add(-time.Hour).UTC()

	acme, err := dao.CreateTenant(ctx, model.Tenant{Slug: "acme", Name: "Acme", Domain: strPtr("Portal.Acme.com"), IsActive: true})
	require.NoError(t, err)
	_, err = dao.CreateTenant(ctx, model.Tenant{Slug: "dormant", Name: "Dormant", IsActive: false})
	require.NoError(t, err)
	_, err = dao.CreateTenant(ctx, model.Tenant{Slug: "gone", Name: "Gone", IsActive: true, DeletedAt: &deletedAt})
	require.NoError(t, err)

	bySlug, err := dao.FindActiveTenantBySlug(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, acme.ID, bySlug.ID)
	assert.Equal(t, "Acme", bySlug.Name)
	assert.True(t, bySlug.IsActive)
	assert.Nil(t, bySlug.DeletedAt)
	require.NotNil(t, bySlug.Domain)
	assert.Equal(t, "portal.acme.com", *bySlug.Domain)

	byID, err := dao.FindActiveTenantByID(ctx, acme.ID)
	require.NoError(t, err)
	assert.Equal(t, "acme", byID.Slug)

	byDomain, err := dao.FindActiveTenantByDomain(ctx, "PORTAL.acme.com")
	require.NoError(t, err)
	assert.Equal(t, acme.ID, byDomain.ID)

	for _, slug := range []string{"dormant", "gone", "missing", ""} {
		_, err := dao.FindActiveTenantBySlug(ctx, slug)
		assert.ErrorIs(t, err, gk_errors.ErrTenantNotFound, slug)
	}
}
