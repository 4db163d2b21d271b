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

// CreateClaim is the request body for opening a claim. Every claim
// starts in DRAFT; status is not accepted here.
type CreateClaim struct {
	ClientID             string                 `json:"client_id"`
	PolicyID             string                 `json:"policy_id"`
	ClaimNumber          string                 `json:"claim_number"`
	IncidentDate         string                 `json:"incident_date"`
	Description          string                 `json:"description"`
	CareType             string                 `json:"care_type"`
	DiagnosisCode        string                 `json:"diagnosis_code"`
	DiagnosisDescription string                 `json:"diagnosis_description"`
	MetaData             map[string]interface{} `json:"meta_data"`
}

func (c *CreateClaim) ToClaim() model.Claim {
	claim := model.Claim{
		ClientID:             c.ClientID,
		PolicyID:             c.PolicyID,
		ClaimNumber:          c.ClaimNumber,
		Description:          c.Description,
		CareType:             c.CareType,
		DiagnosisCode:        c.DiagnosisCode,
		DiagnosisDescription: c.DiagnosisDescription,
		MetaData:             c.MetaData,
	}
	if c.IncidentDate != "" {
		if parsed, err := parseDate(c.IncidentDate); err == nil {
			claim.IncidentDate = &parsed
		}
	}
	return claim
}
