package model

import (
	"encoding/json"
	"time"
)

const (
	ClaimStatusDraft       = "DRAFT"
	ClaimStatusValidation  = "VALIDATION"
	ClaimStatusSubmitted   = "SUBMITTED"
	ClaimStatusPendingInfo = "PENDING_INFO"
	ClaimStatusReturned    = "RETURNED"
	ClaimStatusSettled     = "SETTLED"
	ClaimStatusCancelled   = "CANCELLED"
)

type Claim struct {
	ID                   int64                  `json:"-"`
	ClaimID              string                 `json:"claim_id"`
	ClientID             string                 `json:"client_id"`
	PolicyID             string                 `json:"policy_id"`
	ClaimNumber          string                 `json:"claim_number"`
	Status               string                 `json:"status"`
	AmountSubmitted      *float64               `json:"amount_submitted,omitempty"`
	AmountApproved       *float64               `json:"amount_approved,omitempty"`
	AmountDenied         *float64               `json:"amount_denied,omitempty"`
	AmountUnprocessed    *float64               `json:"amount_unprocessed,omitempty"`
	DeductibleApplied    *float64               `json:"deductible_applied,omitempty"`
	CopayApplied         *float64               `json:"copay_applied,omitempty"`
	IncidentDate         *time.Time             `json:"incident_date,omitempty"`
	SubmittedDate        *time.Time             `json:"submitted_date,omitempty"`
	SettlementDate       *time.Time             `json:"settlement_date,omitempty"`
	Description          string                 `json:"description"`
	CareType             string                 `json:"care_type"`
	DiagnosisCode        string                 `json:"diagnosis_code"`
	DiagnosisDescription string                 `json:"diagnosis_description"`
	PendingReason        string                 `json:"pending_reason,omitempty"`
	ReturnReason         string                 `json:"return_reason,omitempty"`
	CancellationReason   string                 `json:"cancellation_reason,omitempty"`
	SettlementNumber     string                 `json:"settlement_number,omitempty"`
	SettlementNotes      string                 `json:"settlement_notes,omitempty"`
	CreatedAt            time.Time              `json:"created_at"`
	MetaData             map[string]interface{} `json:"meta_data,omitempty"`
}

// ClaimReprocess records one resubmission cycle of a claim that was sent
// back for missing information. BusinessDays spans from the previous
// reprocess (or the claim's original submitted date) to ReprocessDate.
type ClaimReprocess struct {
	ID                   int64     `json:"-"`
	ReprocessID          string    `json:"reprocess_id"`
	ClaimID              string    `json:"claim_id"`
	ReprocessDate        time.Time `json:"reprocess_date"`
	ReprocessDescription string    `json:"reprocess_description"`
	BusinessDays         *int      `json:"business_days,omitempty"`
	CreatedAt            time.Time `json:"created_at"`
}

func (claim *Claim) ToJSON() ([]byte, error) {
	return json.Marshal(claim)
}

func (claim *Claim) IsTerminal() bool {
	return claim.Status == ClaimStatusSettled || claim.Status == ClaimStatusCancelled
}
