// api/model/neo4j/nodes.go
package gk_neo4j

// Node Labels
const (
	// LabelTenant represents an isolated organizational scope
	LabelTenant = "Tenant"

	// LabelPolicy represents an access control policy
	LabelPolicy = "Policy"
)
