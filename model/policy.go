// api/model/policy.go
package model

import (
	"sort"
	"time"
)

type Effect string

const (
	EffectAllow Effect = "allow"
	EffectDeny  Effect = "deny"
)

// Condition operators.
const (
	OpEquals    = "equals"
	OpNotEquals = "not_equals"
	OpGreater   = "greater"
	OpLess      = "less"
	OpIn        = "in"
	OpContains  = "contains"
)

// Attribute namespaces.
const (
	NamespaceSubject     = "subject"
	NamespaceResource    = "resource"
	NamespaceAction      = "action"
	NamespaceEnvironment = "environment"
)

// RefKey marks a condition value that points at another attribute.
const RefKey = "$ref"

type Policy struct {
	ID          string      `json:"id" yaml:"id"`
	Name        string      `json:"name" yaml:"name" validate:"required,max=255"`
	Description string      `json:"description,omitempty" yaml:"description"`
	Effect      Effect      `json:"effect" yaml:"effect" validate:"required,oneof=allow deny"`
	Conditions  []Condition `json:"conditions" yaml:"conditions" validate:"dive"`
	Enabled     bool        `json:"enabled" yaml:"enabled"`
	TenantID    *string     `json:"tenant_id,omitempty" yaml:"tenant_id"`
	Version     int         `json:"version" yaml:"-"`
	CreatedAt   time.Time   `json:"created_at" yaml:"-"`
	UpdatedAt   time.Time   `json:"updated_at" yaml:"-"`
}

type Condition struct {
	Attribute string      `json:"attribute" yaml:"attribute" validate:"required,attribute_path"`
	Operator  string      `json:"operator" yaml:"operator" validate:"required,oneof=equals not_equals greater less in contains"`
	Value     interface{} `json:"value" yaml:"value"`
	Order     int         `json:"order" yaml:"order"`
}

// Ref builds a reference value, equivalent to {"$ref": path} in JSON.
type Ref struct {
	Path string `json:"$ref" yaml:"$ref"`
}

// RefPath reports the attribute path a condition value points at, if any.
func RefPath(value interface{}) (string, bool) {
	switch v := value.(type) {
	case Ref:
		return v.Path, v.Path != ""
	case *Ref:
		if v == nil {
			return "", false
		}
		return v.Path, v.Path != ""
	case map[string]interface{}:
		if len(v) != 1 {
			return "", false
		}
		path, ok := v[RefKey].(string)
		return path, ok && path != ""
	case map[string]string:
		if len(v) != 1 {
			return "", false
		}
		path, ok := v[RefKey]
		return path, ok && path != ""
	}
	return "", false
}

// SortedConditions returns the conditions ordered by Order. Equal orders keep
// their stored position.
func (p Policy) SortedConditions() []Condition {
	out := make([]Condition, len(p.Conditions))
	copy(out, p.Conditions)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

// Clone copies the policy deep enough that callers can't mutate shared
// condition slices.
func (p Policy) Clone() Policy {
	c := p
	c.Conditions = make([]Condition, len(p.Conditions))
	copy(c.Conditions, p.Conditions)
	if p.TenantID != nil {
		tenantID := *p.TenantID
		c.TenantID = &tenantID
	}
	return c
}

// ClonePolicies copies a policy list element by element.
func ClonePolicies(policies []Policy) []Policy {
	out := make([]Policy, len(policies))
	for i, p := range policies {
		out[i] = p.Clone()
	}
	return out
}
