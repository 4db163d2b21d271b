package model

import (
	"time"
)

// SideEffect is the secondary record a verdict instructs the caller to
// create transactionally with the main update.
type SideEffect struct {
	Kind                 SideEffectKind `json:"kind"`
	ReprocessDate        time.Time      `json:"reprocess_date,omitempty"`
	ReprocessDescription string         `json:"reprocess_description,omitempty"`
	BusinessDays         *int           `json:"business_days,omitempty"`
	ExpirationReason     string         `json:"expiration_reason,omitempty"`
}

// ClaimVerdict is the approved mutation plan for a claim update. Approved
// never contains fields the caller did not request, and never the status
// key or side-effect parameters.
type ClaimVerdict struct {
	Approved   FieldSet
	NewStatus  string
	SideEffect *SideEffect
}

// StatusChanged reports whether the verdict carries a transition.
func (v ClaimVerdict) StatusChanged() bool {
	return v.NewStatus != ""
}

// ValidateClaimUpdate checks a sparse update against the current claim
// snapshot and the caller's role. It is a pure function: the only state
// it consults beyond its arguments is the static transition table. On
// success it returns the exact field set the caller may persist plus an
// optional side effect; on failure it returns a single ValidationError
// and an empty verdict.
//
// lastReprocess is the most recent reprocess record for the claim, or nil;
// it anchors the business-day computation of a new reprocess. cal supplies
// the business-day calendar.
func ValidateClaimUpdate(current *Claim, lastReprocess *ClaimReprocess, updates FieldSet, role Role, cal Calendar) (ClaimVerdict, error) {
	if _, known := claimTransitions[current.Status]; !known {
		return ClaimVerdict{}, newValidationError(IllegalTransition, "claim %s has unknown status %q", current.ClaimID, current.Status)
	}

	verdict := ClaimVerdict{Approved: FieldSet{}}

	newStatus, transitioning, err := requestedTransition(current.Status, updates)
	if err != nil {
		return ClaimVerdict{}, err
	}

	var transition Transition
	if transitioning {
		tr, legal := findTransition(claimTransitions, current.Status, newStatus)
		if !legal {
			return ClaimVerdict{}, newValidationError(IllegalTransition, "cannot move claim from %s to %s", current.Status, newStatus)
		}
		if !tr.allowsRole(role) {
			return ClaimVerdict{}, newValidationError(UnauthorizedTransition, "role %s may not move claim from %s to %s", role, current.Status, newStatus)
		}
		transition = tr
		verdict.NewStatus = newStatus
	}

	// Plain field edits are gated by the current status. A requested
	// transition widens the editable set with its own required fields and
	// its side-effect parameters, so a claim can satisfy a stage
	// requirement in the same call that enters the stage.
	whitelist := claimEditableFields[current.Status]
	for field, value := range updates {
		if field == "status" {
			continue
		}
		if transitioning && fieldInList(sideEffectParams[transition.SideEffect], field) {
			continue
		}
		if transitioning && fieldInList(transition.RequiredSet, field) {
			verdict.Approved[field] = value
			continue
		}
		if _, reason := claimReasonFields[field]; reason {
			verdict.Approved[field] = value
			continue
		}
		if !fieldInList(whitelist, field) {
			return ClaimVerdict{}, newValidationError(FieldNotEditable, "field %s is not editable while claim is %s", field, current.Status)
		}
		verdict.Approved[field] = value
	}

	if transitioning {
		if err := checkTransitionRequirements(transition, current, updates); err != nil {
			return ClaimVerdict{}, err
		}
		if transition.SideEffect == SideEffectCreateReprocess {
			effect, err := buildReprocessEffect(current, lastReprocess, updates, cal)
			if err != nil {
				return ClaimVerdict{}, err
			}
			verdict.SideEffect = effect
		}
	}

	return verdict, nil
}

func requestedTransition(currentStatus string, updates FieldSet) (string, bool, error) {
	raw, present := updates["status"]
	if !present {
		return "", false, nil
	}
	newStatus, ok := raw.(string)
	if !ok || newStatus == "" {
		return "", false, newValidationError(IllegalTransition, "status must be a non-empty string")
	}
	if newStatus == currentStatus {
		return "", false, nil
	}
	return newStatus, true, nil
}

func checkTransitionRequirements(transition Transition, current *Claim, updates FieldSet) error {
	for _, field := range transition.RequiredFields {
		if field == "reprocess_date" {
			if _, ok := updates[field].(time.Time); !ok {
				return newValidationError(MissingRequiredField, "transition to %s requires %s", transition.Target, field)
			}
			continue
		}
		if !updates.HasNonEmptyString(field) {
			return newValidationError(MissingRequiredField, "transition to %s requires %s", transition.Target, field)
		}
	}
	for _, field := range transition.RequiredSet {
		if !claimFieldSatisfied(current, updates, field) {
			return newValidationError(MissingRequiredField, "transition to %s requires %s to be set", transition.Target, field)
		}
	}
	return nil
}

// claimFieldSatisfied reports whether a required-by-stage field is already
// on the claim or arrives in the same update.
func claimFieldSatisfied(current *Claim, updates FieldSet, field string) bool {
	if _, present := updates[field]; present {
		return true
	}
	switch field {
	case "amount_submitted":
		return current.AmountSubmitted != nil
	case "submitted_date":
		return current.SubmittedDate != nil
	case "settlement_date":
		return current.SettlementDate != nil
	}
	return false
}

// buildReprocessEffect derives the reprocess side effect for the
// PENDING_INFO -> SUBMITTED transition. Business days are counted from the
// previous reprocess date, falling back to the claim's submitted date;
// with no anchor at all the count is left unset rather than blocking the
// transition.
func buildReprocessEffect(current *Claim, lastReprocess *ClaimReprocess, updates FieldSet, cal Calendar) (*SideEffect, error) {
	reprocessDate, _ := updates["reprocess_date"].(time.Time)
	description, _ := updates["reprocess_description"].(string)

	effect := &SideEffect{
		Kind:                 SideEffectCreateReprocess,
		ReprocessDate:        reprocessDate,
		ReprocessDescription: description,
	}

	var anchor *time.Time
	if lastReprocess != nil {
		anchor = &lastReprocess.ReprocessDate
	} else if current.SubmittedDate != nil {
		anchor = current.SubmittedDate
	}
	if anchor != nil {
		days := cal.BusinessDaysBetween(*anchor, reprocessDate)
		effect.BusinessDays = &days
	}
	return effect, nil
}
