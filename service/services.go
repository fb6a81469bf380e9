// api/service/services.go
package service

import (
	"github.com/dev-mohitbeniwal/gatekeeper/api/audit"
	"github.com/dev-mohitbeniwal/gatekeeper/api/dao"
	"github.com/dev-mohitbeniwal/gatekeeper/api/pdp/engine"
	"github.com/dev-mohitbeniwal/gatekeeper/api/util"
)

type Services struct {
	Policy    IPolicyService
	Tenant    ITenantService
	Access    IAccessService
	Audit     audit.Service
	Evaluator *engine.PolicyEvaluator
}

// Stores groups the persistence adapters the services run on.
type Stores struct {
	Policy dao.PolicyStore
	Tenant dao.TenantStore
}

func InitializeServices(
	stores Stores,
	auditService audit.Service,
	validationUtil *util.ValidationUtil,
	policyCache *util.PolicyCache,
	tenantMode string,
) (*Services, error) {
	policyService := NewPolicyService(stores.Policy, validationUtil, policyCache)
	evaluator := engine.NewPolicyEvaluator(policyService)

	services := &Services{
		Policy:    policyService,
		Tenant:    NewTenantService(stores.Tenant, tenantMode),
		Access:    NewAccessService(evaluator),
		Audit:     auditService,
		Evaluator: evaluator,
	}

	return services, nil
}
