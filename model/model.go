package model

import (
	"fmt"

	"github.com/google/uuid"
)

// Role identifies the caller submitting a claim update. Internal roles
// carry broker/back-office privileges; external roles act on behalf of a
// single client.
type Role string

const (
	RoleBroker      Role = "BROKER"
	RoleBackOffice  Role = "BACK_OFFICE"
	RoleAnalyst     Role = "ANALYST"
	RoleClientAdmin Role = "CLIENT_ADMIN"
)

// KnownRoles lists every role the API accepts.
var KnownRoles = []Role{RoleBroker, RoleBackOffice, RoleAnalyst, RoleClientAdmin}

func (r Role) IsKnown() bool {
	for _, known := range KnownRoles {
		if r == known {
			return true
		}
	}
	return false
}

// FieldSet is a sparse field -> value map of a proposed update. Keys use
// the persisted snake_case field names; a "status" key requests a
// transition.
type FieldSet map[string]interface{}

// Clone returns a shallow copy, used to hand back an approved subset
// without aliasing the caller's request.
func (f FieldSet) Clone() FieldSet {
	out := make(FieldSet, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

func (f FieldSet) HasNonEmptyString(key string) bool {
	v, ok := f[key]
	if !ok {
		return false
	}
	s, ok := v.(string)
	return ok && s != ""
}

// RuleViolation classifies why a proposed update was rejected.
type RuleViolation string

const (
	IllegalTransition      RuleViolation = "ILLEGAL_TRANSITION"
	UnauthorizedTransition RuleViolation = "UNAUTHORIZED_TRANSITION"
	FieldNotEditable       RuleViolation = "FIELD_NOT_EDITABLE_IN_STATE"
	MissingRequiredField   RuleViolation = "MISSING_REQUIRED_TRANSITION_FIELD"
	InvalidDateOrdering    RuleViolation = "INVALID_DATE_ORDERING"
)

// ValidationError is the single descriptive rejection returned by the
// state machines. It is a normal return value, never a panic, and never
// accompanies a partial write.
type ValidationError struct {
	Rule    RuleViolation
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Rule, e.Message)
}

func newValidationError(rule RuleViolation, format string, args ...interface{}) ValidationError {
	return ValidationError{Rule: rule, Message: fmt.Sprintf(format, args...)}
}

// GenerateUUIDWithSuffix generates a UUID prefixed with a module name,
// e.g. clm_4f9d... for claims.
func GenerateUUIDWithSuffix(module string) string {
	id := uuid.New()
	return fmt.Sprintf("%s_%s", module, id.String())
}
