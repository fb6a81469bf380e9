// api/model/neo4j/attributes.go
package gk_neo4j

// Attribute Keys
const (
	AttrID          = "id"
	AttrName        = "name"
	AttrDescription = "description"
	AttrEffect      = "effect"
	AttrEnabled     = "enabled"
	AttrTenantID    = "tenantId"
	AttrVersion     = "version"
	AttrCreatedAt   = "createdAt"
	AttrUpdatedAt   = "updatedAt"
	AttrConditions  = "conditions"

	// Tenant node attributes
	AttrSlug      = "slug"
	AttrDomain    = "domain"
	AttrIsActive  = "isActive"
	AttrDeletedAt = "deletedAt"
)
