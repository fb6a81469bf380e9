package model

// DecisionContext is the attribute bundle a decision is evaluated against.
// It is built per request and never persisted.
type DecisionContext struct {
	Subject     Subject     `json:"subject"`
	Resource    *Resource   `json:"resource,omitempty"`
	Action      string      `json:"action"`
	Environment Environment `json:"environment"`
}

type Subject struct {
	ID             string                 `json:"id,omitempty"`
	Role           string                 `json:"role,omitempty"`
	Roles          []string               `json:"roles,omitempty"`
	Permissions    []string               `json:"permissions,omitempty"`
	Department     string                 `json:"department,omitempty"`
	TenantID       string                 `json:"tenantId,omitempty"`
	ClearanceLevel *int                   `json:"clearanceLevel,omitempty"`
	Extra          map[string]interface{} `json:"extra,omitempty"`
}

type Resource struct {
	ID          string                 `json:"id,omitempty"`
	OwnerID     string                 `json:"ownerId,omitempty"`
	Department  string                 `json:"department,omitempty"`
	TenantID    string                 `json:"tenantId,omitempty"`
	Sensitivity string                 `json:"sensitivity,omitempty"`
	Status      string                 `json:"status,omitempty"`
	Extra       map[string]interface{} `json:"extra,omitempty"`
}

type Environment struct {
	TimeOfDay string                 `json:"timeOfDay,omitempty"`
	Date      string                 `json:"date,omitempty"`
	IPAddress string                 `json:"ipAddress,omitempty"`
	UserAgent string                 `json:"userAgent,omitempty"`
	Extra     map[string]interface{} `json:"extra,omitempty"`
}

// Field returns a subject attribute by name. Empty typed fields count as
// absent.
func (s Subject) Field(name string) (interface{}, bool) {
	switch name {
	case "id":
		return nonEmpty(s.ID)
	case "role":
		return nonEmpty(s.Role)
	case "roles":
		return nonEmptySlice(s.Roles)
	case "permissions":
		return nonEmptySlice(s.Permissions)
	case "department":
		return nonEmpty(s.Department)
	case "tenantId":
		return nonEmpty(s.TenantID)
	case "clearanceLevel":
		if s.ClearanceLevel == nil {
			return nil, false
		}
		return *s.ClearanceLevel, true
	}
	return extra(s.Extra, name)
}

func (r *Resource) Field(name string) (interface{}, bool) {
	if r == nil {
		return nil, false
	}
	switch name {
	case "id":
		return nonEmpty(r.ID)
	case "ownerId":
		return nonEmpty(r.OwnerID)
	case "department":
		return nonEmpty(r.Department)
	case "tenantId":
		return nonEmpty(r.TenantID)
	case "sensitivity":
		return nonEmpty(r.Sensitivity)
	case "status":
		return nonEmpty(r.Status)
	}
	return extra(r.Extra, name)
}

func (e Environment) Field(name string) (interface{}, bool) {
	switch name {
	case "timeOfDay":
		return nonEmpty(e.TimeOfDay)
	case "date":
		return nonEmpty(e.Date)
	case "ipAddress":
		return nonEmpty(e.IPAddress)
	case "userAgent":
		return nonEmpty(e.UserAgent)
	}
	return extra(e.Extra, name)
}

func nonEmpty(s string) (interface{}, bool) {
	return s, s != ""
}

func nonEmptySlice(s []string) (interface{}, bool) {
	if len(s) == 0 {
		return nil, false
	}
	out := make([]interface{}, len(s))
	for i, v := range s {
		out[i] = v
	}
	return out, true
}

func extra(m map[string]interface{}, name string) (interface{}, bool) {
	v, ok := m[name]
	return v, ok
}
