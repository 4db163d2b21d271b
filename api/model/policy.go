/*
Copyright 2024 Claimdesk Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package model

import (
	"github.com/claimdesk/claimdesk/model"
)

// CreatePolicy is the request body for registering a policy. Every
// policy starts in PENDING.
type CreatePolicy struct {
	ClientID      string                 `json:"client_id"`
	InsurerID     string                 `json:"insurer_id"`
	PolicyNumber  string                 `json:"policy_number"`
	StartDate     string                 `json:"start_date"`
	EndDate       string                 `json:"end_date"`
	PremiumAmount *float64               `json:"premium_amount"`
	CopayAmount   *float64               `json:"copay_amount"`
	MetaData      map[string]interface{} `json:"meta_data"`
}

func (p *CreatePolicy) ToPolicy() model.Policy {
	policy := model.Policy{
		ClientID:      p.ClientID,
		InsurerID:     p.InsurerID,
		PolicyNumber:  p.PolicyNumber,
		PremiumAmount: p.PremiumAmount,
		CopayAmount:   p.CopayAmount,
		MetaData:      p.MetaData,
	}
	if p.StartDate != "" {
		if parsed, err := parseDate(p.StartDate); err == nil {
			policy.StartDate = &parsed
		}
	}
	if p.EndDate != "" {
		if parsed, err := parseDate(p.EndDate); err == nil {
			policy.EndDate = &parsed
		}
	}
	return policy
}
