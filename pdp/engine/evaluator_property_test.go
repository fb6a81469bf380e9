//go:build property
// +build property

package engine

import (
	"reflect"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/dev-mohitbeniwal/gatekeeper/api/model"
	pdp_model "github.com/dev-mohitbeniwal/gatekeeper/api/pdp/model"
)

// TestFirstMatchProperty checks that the decision is the effect of the first
// policy whose conditions hold, or deny when none does.
func TestFirstMatchProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("first matching policy decides", prop.ForAll(
		func(roles []string, allows []bool, role string) bool {
			var policies []model.Policy
			for i := 0; i < len(roles) && i < len(allows); i++ {
				effect := model.EffectDeny
				if allows[i] {
					effect = model.EffectAllow
				}
				policies = append(policies, model.Policy{
					ID:     roles[i] + "-policy",
					Effect: effect,
					Conditions: []model.Condition{
						{Attribute: "subject.role", Operator: model.OpEquals, Value: roles[i]},
					},
				})
			}
			dc := &pdp_model.DecisionContext{Subject: pdp_model.Subject{Role: role}}

			decision := EvaluatePolicies(dc, policies)

			for _, p := range policies {
				if role != "" && p.Conditions[0].Value == role {
					return decision.Effect == p.Effect && decision.PolicyID == p.ID
				}
			}
			return decision.Effect == model.EffectDeny && decision.Reason == pdp_model.ReasonNoPolicyMatched
		},
		gen.SliceOf(gen.OneConstOf("ADMIN", "USER", "AUDITOR", "GUEST"), reflect.TypeOf("")),
		gen.SliceOf(gen.Bool()),
		gen.OneConstOf("ADMIN", "USER", "AUDITOR", "GUEST", ""),
	))

	properties.TestingRun(t)
}

// TestTenantIsolationProperty checks that distinct tenants never satisfy a
// same-tenant condition.
func TestTenantIsolationProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	sameTenant := model.Policy{Name: "same-tenant", Effect: model.EffectAllow, Conditions: []model.Condition{
		{Attribute: "subject.tenantId", Operator: model.OpEquals, Value: map[string]interface{}{"$ref": "resource.tenantId"}},
	}}

	properties.Property("cross-tenant contexts never match", prop.ForAll(
		func(a, b string) bool {
			dc := &pdp_model.DecisionContext{
				Subject:  pdp_model.Subject{TenantID: a},
				Resource: &pdp_model.Resource{TenantID: b},
			}
			allowed := EvaluatePolicies(dc, []model.Policy{sameTenant}).Allowed()
			if a != b || a == "" {
				return !allowed
			}
			return allowed
		},
		gen.AlphaString(),
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}
