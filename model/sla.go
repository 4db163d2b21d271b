package model

import (
	"time"
)

const (
	SlaOnTime  = "on_time"
	SlaAtRisk  = "at_risk"
	SlaOverdue = "overdue"
)

// SlaRuleSet maps a status to its business-day limit. A nil limit marks a
// status that is never aged (terminal stages classify on_time).
type SlaRuleSet map[string]*int

func intPtr(v int) *int { return &v }

// DefaultClaimSlaRules are the stage deadlines for the claim workflow,
// overridable from configuration.
var DefaultClaimSlaRules = SlaRuleSet{
	ClaimStatusDraft:       intPtr(3),
	ClaimStatusValidation:  intPtr(2),
	ClaimStatusSubmitted:   intPtr(10),
	ClaimStatusPendingInfo: intPtr(5),
	ClaimStatusReturned:    intPtr(5),
	ClaimStatusSettled:     nil,
	ClaimStatusCancelled:   nil,
}

var DefaultPolicySlaRules = SlaRuleSet{
	PolicyStatusPending:   intPtr(5),
	PolicyStatusActive:    nil,
	PolicyStatusExpired:   nil,
	PolicyStatusCancelled: nil,
}

// Classify grades elapsed business days against the status limit.
func (r SlaRuleSet) Classify(status string, businessDays int) string {
	limit := r[status]
	if limit == nil {
		return SlaOnTime
	}
	switch {
	case businessDays > *limit:
		return SlaOverdue
	case businessDays == *limit:
		return SlaAtRisk
	default:
		return SlaOnTime
	}
}

// SlaStage is one reconstructed interval of an entity's life in a single
// status. ExitedAt is nil only on the last stage, which is always the
// current, open one.
type SlaStage struct {
	Status       string     `json:"status"`
	EnteredAt    time.Time  `json:"entered_at"`
	ExitedAt     *time.Time `json:"exited_at,omitempty"`
	BusinessDays int        `json:"business_days"`
	CalendarDays int        `json:"calendar_days"`
	Limit        *int       `json:"limit,omitempty"`
	Indicator    string     `json:"indicator"`
}

// SlaTimeline is the full derived report: never persisted, recomputed on
// every query.
type SlaTimeline struct {
	Stages            []SlaStage `json:"stages"`
	TotalBusinessDays int        `json:"total_business_days"`
	TotalCalendarDays int        `json:"total_calendar_days"`
	CurrentIndicator  string     `json:"current_indicator"`
}

// BuildTimeline replays the ordered STATUS_CHANGE history of an entity
// into a gapless sequence of stages covering [createdAt, now]. The first
// stage opens at createdAt with initialStatus; each event whose recorded
// status differs from the open stage closes it and opens the next at the
// same instant. Re-entering a previously visited status yields a fresh
// stage; stages are positional, never merged by status. If currentStatus
// disagrees with the last recorded event (a correction applied without an
// audit trail), a zero-duration stage is opened at now rather than
// failing.
//
// now is an explicit parameter: two calls with identical inputs return
// identical timelines.
func BuildTimeline(createdAt time.Time, initialStatus, currentStatus string, events []StatusChange, now time.Time, rules SlaRuleSet, cal Calendar) SlaTimeline {
	type openStage struct {
		status    string
		enteredAt time.Time
	}

	open := openStage{status: initialStatus, enteredAt: createdAt}
	var stages []SlaStage

	closeStage := func(exitedAt time.Time, final bool) {
		stage := SlaStage{
			Status:       open.status,
			EnteredAt:    open.enteredAt,
			BusinessDays: cal.BusinessDaysBetween(open.enteredAt, exitedAt),
			CalendarDays: CalendarDaysBetween(open.enteredAt, exitedAt),
			Limit:        rules[open.status],
		}
		if !final {
			t := exitedAt
			stage.ExitedAt = &t
		}
		stage.Indicator = rules.Classify(open.status, stage.BusinessDays)
		stages = append(stages, stage)
	}

	for _, event := range events {
		if event.Status == open.status {
			continue
		}
		closeStage(event.OccurredAt, false)
		open = openStage{status: event.Status, enteredAt: event.OccurredAt}
	}

	if open.status != currentStatus {
		closeStage(now, false)
		open = openStage{status: currentStatus, enteredAt: now}
	}
	closeStage(now, true)

	// Stage spans tile [createdAt, now] exactly, so totals are measured
	// over the whole span; summing per-stage calendar ceilings would
	// overcount partial days at stage boundaries.
	timeline := SlaTimeline{
		Stages:            stages,
		TotalBusinessDays: cal.BusinessDaysBetween(createdAt, now),
		TotalCalendarDays: CalendarDaysBetween(createdAt, now),
	}
	timeline.CurrentIndicator = stages[len(stages)-1].Indicator
	return timeline
}
