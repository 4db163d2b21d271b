package model

import (
	"time"
)

// PolicyVerdict mirrors ClaimVerdict for policy updates. SetCancelledAt
// instructs the caller to stamp cancelled_at with the persistence time;
// it is only ever set on the first transition into CANCELLED.
type PolicyVerdict struct {
	Approved       FieldSet
	NewStatus      string
	SetCancelledAt bool
	SideEffect     *SideEffect
}

func (v PolicyVerdict) StatusChanged() bool {
	return v.NewStatus != ""
}

// ValidatePolicyUpdate checks a sparse policy update against the current
// snapshot. Policies carry no per-transition role gate; callers are
// screened upstream. Pure function over its inputs and the static table.
func ValidatePolicyUpdate(current *Policy, updates FieldSet) (PolicyVerdict, error) {
	if _, known := policyTransitions[current.Status]; !known {
		return PolicyVerdict{}, newValidationError(IllegalTransition, "policy %s has unknown status %q", current.PolicyID, current.Status)
	}

	verdict := PolicyVerdict{Approved: FieldSet{}}

	newStatus, transitioning, err := requestedTransition(current.Status, updates)
	if err != nil {
		return PolicyVerdict{}, err
	}

	var transition Transition
	if transitioning {
		tr, legal := findTransition(policyTransitions, current.Status, newStatus)
		if !legal {
			return PolicyVerdict{}, newValidationError(IllegalTransition, "cannot move policy from %s to %s", current.Status, newStatus)
		}
		transition = tr
		verdict.NewStatus = newStatus
	}

	whitelist := policyEditableFields[current.Status]
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
		if _, reason := policyReasonFields[field]; reason {
			verdict.Approved[field] = value
			continue
		}
		if !fieldInList(whitelist, field) {
			return PolicyVerdict{}, newValidationError(FieldNotEditable, "field %s is not editable while policy is %s", field, current.Status)
		}
		verdict.Approved[field] = value
	}

	if err := checkPolicyDateOrdering(current, updates); err != nil {
		return PolicyVerdict{}, err
	}

	if transitioning {
		for _, field := range transition.RequiredFields {
			if !updates.HasNonEmptyString(field) {
				return PolicyVerdict{}, newValidationError(MissingRequiredField, "transition to %s requires %s", transition.Target, field)
			}
		}
		if transition.SideEffect == SideEffectCreateExpiration {
			reason, _ := updates["expiration_reason"].(string)
			verdict.SideEffect = &SideEffect{Kind: SideEffectCreateExpiration, ExpirationReason: reason}
		}
		// cancelled_at is written exactly once; re-cancelling an already
		// cancelled policy cannot happen (no transition out of CANCELLED),
		// so a nil CancelledAt is the only stamping condition needed.
		if newStatus == PolicyStatusCancelled && current.CancelledAt == nil {
			verdict.SetCancelledAt = true
		}
	}

	return verdict, nil
}

// checkPolicyDateOrdering re-validates start/end ordering whenever either
// date is being changed, comparing the effective pair (updated value where
// present, stored value otherwise).
func checkPolicyDateOrdering(current *Policy, updates FieldSet) error {
	startRaw, startUpdated := updates["start_date"]
	endRaw, endUpdated := updates["end_date"]
	if !startUpdated && !endUpdated {
		return nil
	}

	start := current.StartDate
	if startUpdated {
		if t, ok := startRaw.(time.Time); ok {
			start = &t
		}
	}
	end := current.EndDate
	if endUpdated {
		if t, ok := endRaw.(time.Time); ok {
			end = &t
		}
	}
	if start != nil && end != nil && end.Before(*start) {
		return newValidationError(InvalidDateOrdering, "end date %s is before start date %s", end.Format("2006-01-02"), start.Format("2006-01-02"))
	}
	return nil
}
