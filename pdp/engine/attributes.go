package engine

import (
	"strings"

	"github.com/dev-mohitbeniwal/gatekeeper/api/model"
	pdp_model "github.com/dev-mohitbeniwal/gatekeeper/api/pdp/model"
)

// undefined marks an attribute that could not be resolved. It takes part in
// comparisons like any other value and never equals anything.
type undefined struct{}

var absent = undefined{}

func isAbsent(v interface{}) bool {
	_, ok := v.(undefined)
	return ok
}

// lookup resolves "<namespace>.<field>" against the context. The action
// namespace ignores the field.
func lookup(dc *pdp_model.DecisionContext, path string) interface{} {
	namespace, field, _ := strings.Cut(path, ".")

	var (
		value interface{}
		ok    bool
	)
	switch namespace {
	case model.NamespaceAction:
		return dc.Action
	case model.NamespaceSubject:
		value, ok = dc.Subject.Field(field)
	case model.NamespaceResource:
		value, ok = dc.Resource.Field(field)
	case model.NamespaceEnvironment:
		value, ok = dc.Environment.Field(field)
	}
	if !ok {
		return absent
	}
	return value
}

// resolveValue dereferences {"$ref": path} values against the same context
// and passes literals through.
func resolveValue(dc *pdp_model.DecisionContext, value interface{}) interface{} {
	if path, ok := model.RefPath(value); ok {
		return lookup(dc, path)
	}
	return value
}
