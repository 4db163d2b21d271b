package model

// SideEffectKind tags the secondary record a transition asks the caller to
// create in the same transaction as the main update.
type SideEffectKind string

const (
	SideEffectNone             SideEffectKind = ""
	SideEffectCreateReprocess  SideEffectKind = "CREATE_REPROCESS"
	SideEffectCreateExpiration SideEffectKind = "CREATE_EXPIRATION"
)

// Transition describes one legal status change. RequiredFields must be
// present in the proposed update itself; RequiredSet fields must be
// non-null on the entity after the update is applied (either already set
// or supplied in the same call).
type Transition struct {
	Target         string
	Roles          []Role
	RequiredFields []string
	RequiredSet    []string
	SideEffect     SideEffectKind
}

func (t Transition) allowsRole(role Role) bool {
	if len(t.Roles) == 0 {
		return true
	}
	for _, r := range t.Roles {
		if r == role {
			return true
		}
	}
	return false
}

var internalRoles = []Role{RoleBroker, RoleBackOffice}
var reviewRoles = []Role{RoleBroker, RoleBackOffice, RoleAnalyst}

// claimTransitions is the single source of truth for the claim workflow.
// Adding or retiring a transition is a change to this table, not to the
// validation code.
var claimTransitions = map[string][]Transition{
	ClaimStatusDraft: {
		{Target: ClaimStatusValidation},
		{Target: ClaimStatusCancelled, RequiredFields: []string{"cancellation_reason"}},
	},
	ClaimStatusValidation: {
		{
			Target:      ClaimStatusSubmitted,
			Roles:       internalRoles,
			RequiredSet: []string{"amount_submitted", "submitted_date"},
		},
		{Target: ClaimStatusReturned, Roles: reviewRoles, RequiredFields: []string{"return_reason"}},
		{Target: ClaimStatusCancelled, RequiredFields: []string{"cancellation_reason"}},
	},
	ClaimStatusSubmitted: {
		{Target: ClaimStatusPendingInfo, Roles: internalRoles, RequiredFields: []string{"pending_reason"}},
		{Target: ClaimStatusSettled, Roles: internalRoles, RequiredFields: []string{"settlement_number"}},
		{Target: ClaimStatusCancelled, Roles: internalRoles, RequiredFields: []string{"cancellation_reason"}},
	},
	ClaimStatusPendingInfo: {
		{
			Target:         ClaimStatusSubmitted,
			Roles:          internalRoles,
			RequiredFields: []string{"reprocess_date", "reprocess_description"},
			SideEffect:     SideEffectCreateReprocess,
		},
		{Target: ClaimStatusCancelled, Roles: internalRoles, RequiredFields: []string{"cancellation_reason"}},
	},
	ClaimStatusReturned: {
		{Target: ClaimStatusValidation},
		{Target: ClaimStatusCancelled, RequiredFields: []string{"cancellation_reason"}},
	},
	ClaimStatusSettled:   {},
	ClaimStatusCancelled: {},
}

var policyTransitions = map[string][]Transition{
	PolicyStatusPending: {
		{Target: PolicyStatusActive},
		{Target: PolicyStatusCancelled, RequiredFields: []string{"cancellation_reason"}},
	},
	PolicyStatusActive: {
		{
			Target:         PolicyStatusExpired,
			RequiredFields: []string{"expiration_reason"},
			SideEffect:     SideEffectCreateExpiration,
		},
		{Target: PolicyStatusCancelled, RequiredFields: []string{"cancellation_reason"}},
	},
	PolicyStatusExpired:   {},
	PolicyStatusCancelled: {},
}

var claimDescriptiveFields = []string{
	"claim_number",
	"incident_date",
	"description",
	"care_type",
	"diagnosis_code",
	"diagnosis_description",
}

var claimSettlementFields = []string{
	"amount_submitted",
	"amount_approved",
	"amount_denied",
	"amount_unprocessed",
	"deductible_applied",
	"copay_applied",
	"submitted_date",
	"settlement_date",
}

// claimEditableFields whitelists plain field edits per current status.
// Terminal statuses accept no edits at all.
var claimEditableFields = map[string][]string{
	ClaimStatusDraft:       claimDescriptiveFields,
	ClaimStatusValidation:  claimDescriptiveFields,
	ClaimStatusSubmitted:   claimSettlementFields,
	ClaimStatusPendingInfo: claimSettlementFields,
	ClaimStatusReturned:    claimDescriptiveFields,
	ClaimStatusSettled:     {},
	ClaimStatusCancelled:   {},
}

var policyEditableFields = map[string][]string{
	PolicyStatusPending:   {"policy_number", "start_date", "end_date", "premium_amount", "copay_amount"},
	PolicyStatusActive:    {"premium_amount", "copay_amount"},
	PolicyStatusExpired:   {},
	PolicyStatusCancelled: {},
}

// claimReasonFields may always accompany an update; they carry the
// narrative of a transition rather than claim data, so they bypass the
// per-status whitelist.
var claimReasonFields = map[string]struct{}{
	"pending_reason":      {},
	"return_reason":       {},
	"cancellation_reason": {},
	"settlement_number":   {},
	"settlement_notes":    {},
}

var policyReasonFields = map[string]struct{}{
	"cancellation_reason": {},
}

// sideEffectParams lists the update fields each side-effect record
// consumes. They travel with the update but are never persisted on the
// entity row, and they are only accepted when the update requests the
// transition that carries that side effect.
var sideEffectParams = map[SideEffectKind][]string{
	SideEffectCreateReprocess:  {"reprocess_date", "reprocess_description"},
	SideEffectCreateExpiration: {"expiration_reason"},
}

func findTransition(table map[string][]Transition, from, to string) (Transition, bool) {
	for _, tr := range table[from] {
		if tr.Target == to {
			return tr, true
		}
	}
	return Transition{}, false
}

func fieldInList(list []string, field string) bool {
	for _, f := range list {
		if f == field {
			return true
		}
	}
	return false
}
