// test/mock/store.go
package mock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/dev-mohitbeniwal/gatekeeper/api/model"
)

// MockTenantStore is a mock implementation of dao.TenantStore
type MockTenantStore struct {
	mock.Mock
}

func (m *MockTenantStore) FindActiveTenantBySlug(ctx context.Context, slug string) (*model.Tenant, error) {
	args := m.Called(ctx, slug)
	tenant, _ := args.Get(0).(*model.Tenant)
	return tenant, args.Error(1)
}

func (m *MockTenantStore) FindActiveTenantByID(ctx context.Context, id string) (*model.Tenant, error) {
	args := m.Called(ctx, id)
	tenant, _ := args.Get(0).(*model.Tenant)
	return tenant, args.Error(1)
}

func (m *MockTenantStore) FindActiveTenantByDomain(ctx context.Context, domain string) (*model.Tenant, error) {
	args := m.Called(ctx, domain)
	tenant, _ := args.Get(0).(*model.Tenant)
	return tenant, args.Error(1)
}

// MockPolicyStore is a mock implementation of dao.PolicyStore
type MockPolicyStore struct {
	mock.Mock
}

func (m *MockPolicyStore) ListEnabledPolicies(ctx context.Context, filter model.TenantFilter) ([]model.Policy, error) {
	args := m.Called(ctx, filter)
	policies, _ := args.Get(0).([]model.Policy)
	return policies, args.Error(1)
}

func (m *MockPolicyStore) CreatePolicy(ctx context.Context, policy model.Policy) (*model.Policy, error) {
	args := m.Called(ctx, policy)
	created, _ := args.Get(0).(*model.Policy)
	return created, args.Error(1)
}

func (m *MockPolicyStore) UpdatePolicy(ctx context.Context, policy model.Policy) (*model.Policy, error) {
	args := m.Called(ctx, policy)
	updated, _ := args.Get(0).(*model.Policy)
	return updated, args.Error(1)
}

func (m *MockPolicyStore) DeletePolicy(ctx context.Context, policyID string) error {
	args := m.Called(ctx, policyID)
	return args.Error(0)
}

func (m *MockPolicyStore) GetPolicy(ctx context.Context, policyID string) (*model.Policy, error) {
	args := m.Called(ctx, policyID)
	policy, _ := args.Get(0).(*model.Policy)
	return policy, args.Error(1)
}

func (m *MockPolicyStore) ListPolicies(ctx context.Context, limit int, offset int) ([]*model.Policy, error) {
	args := m.Called(ctx, limit, offset)
	policies, _ := args.Get(0).([]*model.Policy)
	return policies, args.Error(1)
}

func (m *MockPolicyStore) FindPolicyByName(ctx context.Context, name string) (*model.Policy, error) {
	args := m.Called(ctx, name)
	policy, _ := args.Get(0).(*model.Policy)
	return policy, args.Error(1)
}
