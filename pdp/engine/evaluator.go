package engine

import (
	"context"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"

	gk_errors "github.com/dev-mohitbeniwal/gatekeeper/api/errors"
	logger "github.com/dev-mohitbeniwal/gatekeeper/api/logging"
	"github.com/dev-mohitbeniwal/gatekeeper/api/model"
	pdp_model "github.com/dev-mohitbeniwal/gatekeeper/api/pdp/model"
)

// PolicySource supplies the ordered list of enabled policies. The policy
// administration layer implements it.
type PolicySource interface {
	LoadEnabledPolicies(ctx context.Context) ([]model.Policy, error)
}

type policySnapshot struct {
	policies []model.Policy
}

// PolicyEvaluator is the policy decision point. Evaluation is lock free: the
// default policy list is an immutable snapshot swapped through an atomic
// pointer, and the loaded list comes from the source as a fresh slice.
type PolicyEvaluator struct {
	source   PolicySource
	defaults atomic.Pointer[policySnapshot]
}

// NewPolicyEvaluator creates an evaluator reading policies from source. A nil
// source leaves the evaluator with the defaults registered through AddPolicy.
func NewPolicyEvaluator(source PolicySource) *PolicyEvaluator {
	pe := &PolicyEvaluator{source: source}
	pe.defaults.Store(&policySnapshot{})
	return pe
}

// AddPolicy appends a default policy. Defaults are used whenever the source
// fails or has no enabled policies.
func (pe *PolicyEvaluator) AddPolicy(policy model.Policy) {
	added := policy.Clone()
	for {
		current := pe.defaults.Load()
		next := make([]model.Policy, len(current.policies), len(current.policies)+1)
		copy(next, current.policies)
		next = append(next, added)
		if pe.defaults.CompareAndSwap(current, &policySnapshot{policies: next}) {
			logger.Debug("Default policy registered", zap.String("policy", added.Name), zap.Int("count", len(next)))
			return
		}
	}
}

// DefaultPolicies returns a copy of the registered default policies.
func (pe *PolicyEvaluator) DefaultPolicies() []model.Policy {
	return model.ClonePolicies(pe.defaults.Load().policies)
}

// ActivePolicies returns the policies decisions are currently made against:
// the source's enabled policies, or the defaults when the source fails or is
// empty.
func (pe *PolicyEvaluator) ActivePolicies(ctx context.Context) []model.Policy {
	if pe.source == nil {
		return pe.defaults.Load().policies
	}

	policies, err := pe.source.LoadEnabledPolicies(ctx)
	if err != nil {
		logger.Warn("Falling back to default policies",
			zap.Error(fmt.Errorf("%w: %v", gk_errors.ErrPolicyStoreUnavailable, err)),
			zap.Int("defaults", len(pe.defaults.Load().policies)))
		return pe.defaults.Load().policies
	}
	if len(policies) == 0 {
		logger.Debug("No enabled policies loaded, using defaults")
		return pe.defaults.Load().policies
	}
	return policies
}

// Evaluate decides the context against the active policies.
func (pe *PolicyEvaluator) Evaluate(ctx context.Context, dc *pdp_model.DecisionContext) pdp_model.Decision {
	decision := EvaluatePolicies(dc, pe.ActivePolicies(ctx))
	logger.Debug("Access decision",
		zap.String("subject", dc.Subject.ID),
		zap.String("action", dc.Action),
		zap.String("effect", string(decision.Effect)),
		zap.String("policy", decision.PolicyName),
		zap.String("reason", decision.Reason))
	return decision
}

// EvaluatePolicies returns the effect of the first policy, in the order
// given, whose conditions all hold. Without a match the decision is deny.
func EvaluatePolicies(dc *pdp_model.DecisionContext, policies []model.Policy) pdp_model.Decision {
	if dc == nil {
		dc = &pdp_model.DecisionContext{}
	}
	for _, policy := range policies {
		if !policyMatches(dc, policy) {
			continue
		}
		return pdp_model.Decision{
			Effect:     policy.Effect,
			PolicyID:   policy.ID,
			PolicyName: policy.Name,
		}
	}
	return pdp_model.Decision{
		Effect: model.EffectDeny,
		Reason: pdp_model.ReasonNoPolicyMatched,
	}
}

func policyMatches(dc *pdp_model.DecisionContext, policy model.Policy) bool {
	for _, condition := range policy.SortedConditions() {
		if !evaluateCondition(dc, condition) {
			return false
		}
	}
	return true
}

func evaluateCondition(dc *pdp_model.DecisionContext, condition model.Condition) bool {
	actual := lookup(dc, condition.Attribute)
	expected := resolveValue(dc, condition.Value)
	return applyOperator(condition.Operator, actual, expected)
}
