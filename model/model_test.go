package model

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateUUIDWithSuffix(t *testing.T) {
	id := GenerateUUIDWithSuffix("clm")
	assert.True(t, strings.HasPrefix(id, "clm_"))
	assert.NotEqual(t, id, GenerateUUIDWithSuffix("clm"))
}

func TestRole_IsKnown(t *testing.T) {
	assert.True(t, RoleBroker.IsKnown())
	assert.True(t, RoleClientAdmin.IsKnown())
	assert.False(t, Role("SUPERVISOR").IsKnown())
	assert.False(t, Role("").IsKnown())
}

func TestFieldSet_Clone(t *testing.T) {
	original := FieldSet{"status": "VALIDATION", "description": "updated"}
	clone := original.Clone()
	clone["status"] = "SUBMITTED"

	assert.Equal(t, "VALIDATION", original["status"])
	assert.Equal(t, "SUBMITTED", clone["status"])
	assert.Equal(t, "updated", clone["description"])
}

func TestFieldSet_HasNonEmptyString(t *testing.T) {
	fields := FieldSet{
		"settlement_number": "STL-100",
		"return_reason":     "",
		"amount_submitted":  250.0,
	}

	assert.True(t, fields.HasNonEmptyString("settlement_number"))
	assert.False(t, fields.HasNonEmptyString("return_reason"))
	assert.False(t, fields.HasNonEmptyString("amount_submitted"))
	assert.False(t, fields.HasNonEmptyString("missing"))
}

func TestValidationError_Error(t *testing.T) {
	err := newValidationError(IllegalTransition, "cannot move from %s to %s", "DRAFT", "SETTLED")
	assert.Equal(t, "ILLEGAL_TRANSITION: cannot move from DRAFT to SETTLED", err.Error())
	assert.Equal(t, IllegalTransition, err.Rule)
}
