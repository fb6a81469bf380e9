// api/controller/controllers.go
package controller

import "github.com/dev-mohitbeniwal/gatekeeper/api/service"

type Controllers struct {
	Policy *PolicyController
	Audit  *AuditController
}

func InitializeControllers(services *service.Services) *Controllers {
	return &Controllers{
		Policy: NewPolicyController(services.Policy),
		Audit:  NewAuditController(services.Audit),
	}
}
