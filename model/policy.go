package model

import (
	"encoding/json"
	"time"
)

const (
	PolicyStatusPending   = "PENDING"
	PolicyStatusActive    = "ACTIVE"
	PolicyStatusExpired   = "EXPIRED"
	PolicyStatusCancelled = "CANCELLED"
)

type Policy struct {
	ID                 int64                  `json:"-"`
	PolicyID           string                 `json:"policy_id"`
	ClientID           string                 `json:"client_id"`
	InsurerID          string                 `json:"insurer_id"`
	PolicyNumber       string                 `json:"policy_number"`
	Status             string                 `json:"status"`
	StartDate          *time.Time             `json:"start_date,omitempty"`
	EndDate            *time.Time             `json:"end_date,omitempty"`
	PremiumAmount      *float64               `json:"premium_amount,omitempty"`
	CopayAmount        *float64               `json:"copay_amount,omitempty"`
	CancellationReason string                 `json:"cancellation_reason,omitempty"`
	CancelledAt        *time.Time             `json:"cancelled_at,omitempty"`
	CreatedAt          time.Time              `json:"created_at"`
	MetaData           map[string]interface{} `json:"meta_data,omitempty"`
}

// PolicyExpiration is the side-effect record written when a policy moves
// from ACTIVE to EXPIRED.
type PolicyExpiration struct {
	ID               int64     `json:"-"`
	ExpirationID     string    `json:"expiration_id"`
	PolicyID         string    `json:"policy_id"`
	ExpirationReason string    `json:"expiration_reason"`
	CreatedAt        time.Time `json:"created_at"`
}

func (policy *Policy) ToJSON() ([]byte, error) {
	return json.Marshal(policy)
}

func (policy *Policy) IsTerminal() bool {
	return policy.Status == PolicyStatusExpired || policy.Status == PolicyStatusCancelled
}
