// api/service/policy_service.go
package service

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/dev-mohitbeniwal/gatekeeper/api/dao"
	gk_errors "github.com/dev-mohitbeniwal/gatekeeper/api/errors"
	logger "github.com/dev-mohitbeniwal/gatekeeper/api/logging"
	"github.com/dev-mohitbeniwal/gatekeeper/api/model"
	"github.com/dev-mohitbeniwal/gatekeeper/api/util"
)

// bulkConcurrency caps the number of concurrent store writes in a bulk create.
const bulkConcurrency = 10

type IPolicyService interface {
	CreatePolicy(ctx context.Context, policy model.Policy, actorID string) (*model.Policy, error)
	UpdatePolicy(ctx context.Context, policy model.Policy, actorID string) (*model.Policy, error)
	DeletePolicy(ctx context.Context, policyID string, actorID string) error
	GetPolicy(ctx context.Context, policyID string) (*model.Policy, error)
	ListPolicies(ctx context.Context, limit, offset int) ([]*model.Policy, error)
	BulkCreatePolicies(ctx context.Context, policies []model.Policy, actorID string) ([]string, error)
	LoadEnabledPolicies(ctx context.Context) ([]model.Policy, error)
	ReloadCache(ctx context.Context) error
}

// PolicyService handles business logic for policy operations. It is also the
// policy source of the decision engine.
type PolicyService struct {
	store          dao.PolicyStore
	validationUtil *util.ValidationUtil
	cache          *util.PolicyCache
}

func NewPolicyService(store dao.PolicyStore, validationUtil *util.ValidationUtil, cache *util.PolicyCache) *PolicyService {
	return &PolicyService{
		store:          store,
		validationUtil: validationUtil,
		cache:          cache,
	}
}

// CreatePolicy validates and stores a new policy. Like every write, it drops
// the cached policy set whether or not the store accepted it.
func (s *PolicyService) CreatePolicy(ctx context.Context, policy model.Policy, actorID string) (*model.Policy, error) {
	created, err := s.create(ctx, policy, actorID)
	// a failed write may still have reached the store
	s.cache.Invalidate()
	if err != nil {
		return nil, err
	}

	logger.Info("Policy created successfully",
		zap.String("policyID", created.ID),
		zap.String("name", created.Name),
		zap.String("actorID", actorID))
	return created, nil
}

func (s *PolicyService) create(ctx context.Context, policy model.Policy, actorID string) (*model.Policy, error) {
	if err := s.validationUtil.ValidatePolicy(policy); err != nil {
		logger.Warn("Rejected invalid policy", zap.Error(err), zap.String("name", policy.Name), zap.String("actorID", actorID))
		return nil, fmt.Errorf("%w: %v", gk_errors.ErrInvalidPolicyData, err)
	}

	created, err := s.store.CreatePolicy(ctx, policy)
	if err != nil {
		logger.Error("Error creating policy", zap.Error(err), zap.String("name", policy.Name), zap.String("actorID", actorID))
		return nil, fmt.Errorf("failed to create policy: %w", err)
	}
	return created, nil
}

// UpdatePolicy replaces an existing policy and bumps its version.
func (s *PolicyService) UpdatePolicy(ctx context.Context, policy model.Policy, actorID string) (*model.Policy, error) {
	if err := s.validationUtil.ValidatePolicy(policy); err != nil {
		logger.Warn("Rejected invalid policy update", zap.Error(err), zap.String("policyID", policy.ID), zap.String("actorID", actorID))
		return nil, fmt.Errorf("%w: %v", gk_errors.ErrInvalidPolicyData, err)
	}

	updated, err := s.store.UpdatePolicy(ctx, policy)
	s.cache.Invalidate()
	if err != nil {
		logger.Error("Error updating policy", zap.Error(err), zap.String("policyID", policy.ID), zap.String("actorID", actorID))
		return nil, fmt.Errorf("failed to update policy: %w", err)
	}

	logger.Info("Policy updated successfully",
		zap.String("policyID", updated.ID),
		zap.Int("version", updated.Version),
		zap.String("actorID", actorID))
	return updated, nil
}

func (s *PolicyService) DeletePolicy(ctx context.Context, policyID string, actorID string) error {
	err := s.store.DeletePolicy(ctx, policyID)
	s.cache.Invalidate()
	if err != nil {
		logger.Error("Error deleting policy", zap.Error(err), zap.String("policyID", policyID), zap.String("actorID", actorID))
		return fmt.Errorf("failed to delete policy: %w", err)
	}

	logger.Info("Policy deleted successfully", zap.String("policyID", policyID), zap.String("actorID", actorID))
	return nil
}

func (s *PolicyService) GetPolicy(ctx context.Context, policyID string) (*model.Policy, error) {
	policy, err := s.store.GetPolicy(ctx, policyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get policy: %w", err)
	}
	return policy, nil
}

func (s *PolicyService) ListPolicies(ctx context.Context, limit, offset int) ([]*model.Policy, error) {
	if limit <= 0 || offset < 0 {
		return nil, gk_errors.ErrInvalidPagination
	}
	policies, err := s.store.ListPolicies(ctx, limit, offset)
	if err != nil {
		logger.Error("Error listing policies", zap.Error(err), zap.Int("limit", limit), zap.Int("offset", offset))
		return nil, fmt.Errorf("failed to list policies: %w", err)
	}
	return policies, nil
}

// BulkCreatePolicies creates multiple policies in parallel. The cache is
// invalidated once, after every write has finished, even when some failed.
func (s *PolicyService) BulkCreatePolicies(ctx context.Context, policies []model.Policy, actorID string) ([]string, error) {
	defer s.cache.Invalidate()

	g, ctx := errgroup.WithContext(ctx)
	policyIDs := make([]string, len(policies))

	semaphore := make(chan struct{}, bulkConcurrency)

	for i, policy := range policies {
		g.Go(func() error {
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			createdPolicy, err := s.create(ctx, policy, actorID)
			if err != nil {
				return fmt.Errorf("policies[%d]: %w", i, err)
			}
			policyIDs[i] = createdPolicy.ID
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		logger.Error("Error in bulk create policies", zap.Error(err), zap.String("actorID", actorID))
		return nil, fmt.Errorf("failed to bulk create policies: %w", err)
	}

	logger.Info("Bulk create policies completed", zap.Int("count", len(policyIDs)), zap.String("actorID", actorID))
	return policyIDs, nil
}

// LoadEnabledPolicies returns the enabled policies in store order, serving
// from the cache when it holds a current entry.
func (s *PolicyService) LoadEnabledPolicies(ctx context.Context) ([]model.Policy, error) {
	if policies, ok := s.cache.Get(); ok {
		return policies, nil
	}

	generation := s.cache.Generation()
	policies, err := s.store.ListEnabledPolicies(ctx, model.TenantFilter{})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", gk_errors.ErrPolicyStoreUnavailable, err)
	}
	s.cache.Set(policies, generation)

	logger.Debug("Enabled policies loaded from store", zap.Int("count", len(policies)))
	return model.ClonePolicies(policies), nil
}

// ReloadCache drops the cached policy set and loads it again.
func (s *PolicyService) ReloadCache(ctx context.Context) error {
	s.cache.Invalidate()
	policies, err := s.LoadEnabledPolicies(ctx)
	if err != nil {
		logger.Error("Failed to reload policy cache", zap.Error(err))
		return err
	}
	logger.Info("Policy cache reloaded", zap.Int("count", len(policies)))
	return nil
}

// LoadBootstrapPolicies reads default policies from a YAML file holding a
// list of policies. Every entry is validated; bootstrap policies are enabled
// unless the file says otherwise.
func LoadBootstrapPolicies(path string, validationUtil *util.ValidationUtil) ([]model.Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read bootstrap policies: %w", err)
	}

	var policies []model.Policy
	if err := yaml.Unmarshal(data, &policies); err != nil {
		return nil, fmt.Errorf("failed to parse bootstrap policies: %w", err)
	}
	// a second pass tells an explicit "enabled: false" apart from a missing key
	var flags []struct {
		Enabled *bool `yaml:"enabled"`
	}
	if err := yaml.Unmarshal(data, &flags); err != nil {
		return nil, fmt.Errorf("failed to parse bootstrap policies: %w", err)
	}

	for i := range policies {
		policy := &policies[i]
		policy.Enabled = flags[i].Enabled == nil || *flags[i].Enabled
		if policy.ID == "" {
			policy.ID = fmt.Sprintf("bootstrap-%d", i)
		}
		if err := validationUtil.ValidatePolicy(*policy); err != nil {
			return nil, fmt.Errorf("%w: bootstrap policy %q: %v", gk_errors.ErrInvalidPolicyData, policy.Name, err)
		}
	}
	return policies, nil
}
