// api/util/validation_util.go

package util

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/dev-mohitbeniwal/gatekeeper/api/model"
)

type ValidationUtil struct {
	validate *validator.Validate
}

func NewValidationUtil() *ValidationUtil {
	v := validator.New(validator.WithRequiredStructEnabled())
	// registration only fails for an empty tag or nil func
	_ = v.RegisterValidation("attribute_path", validateAttributePath)
	return &ValidationUtil{validate: v}
}

// ValidatePolicy checks a policy before it is written. Unknown operators and
// attribute namespaces are rejected here so that typos never turn into
// silently false conditions.
func (v *ValidationUtil) ValidatePolicy(policy model.Policy) error {
	if err := v.validate.Struct(policy); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return describe(verrs)
		}
		return err
	}
	for i, condition := range policy.Conditions {
		if path, ok := model.RefPath(condition.Value); ok && !isAttributePath(path) {
			return fmt.Errorf("conditions[%d].value: invalid reference %q", i, path)
		}
	}
	return nil
}

func validateAttributePath(fl validator.FieldLevel) bool {
	return isAttributePath(fl.Field().String())
}

func isAttributePath(path string) bool {
	namespace, field, found := strings.Cut(path, ".")
	switch namespace {
	case model.NamespaceAction:
		return true
	case model.NamespaceSubject, model.NamespaceResource, model.NamespaceEnvironment:
		return found && field != ""
	}
	return false
}

func describe(verrs validator.ValidationErrors) error {
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", fe.Namespace()))
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s must be one of [%s], got %q", fe.Namespace(), fe.Param(), fe.Value()))
		case "attribute_path":
			msgs = append(msgs, fmt.Sprintf("%s must be <subject|resource|action|environment>.<field>, got %q", fe.Namespace(), fe.Value()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
		}
	}
	return errors.New(strings.Join(msgs, "; "))
}
