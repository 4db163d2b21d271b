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

package database

import (
	"context"

	"github.com/claimdesk/claimdesk/model"
)

// IDataSource defines the interface for data source operations, grouping related functionalities.
type IDataSource interface {
	claim  // Interface for claim-related operations
	policy // Interface for policy-related operations
	audit  // Interface for audit-log operations
}

// claim defines methods for handling claims and their reprocess records.
type claim interface {
	CreateClaim(ctx context.Context, claim model.Claim) (model.Claim, error)
	GetClaimByID(ctx context.Context, id string) (*model.Claim, error)
	GetAllClaims(ctx context.Context, limit, offset int) ([]model.Claim, error)
	ApplyClaimUpdate(ctx context.Context, claim *model.Claim, verdict model.ClaimVerdict, event *model.AuditEvent) (*model.Claim, error)
	GetLastReprocess(ctx context.Context, claimID string) (*model.ClaimReprocess, error)
	GetReprocesses(ctx context.Context, claimID string) ([]model.ClaimReprocess, error)
}

// policy defines methods for handling policies and their expiration records.
type policy interface {
	CreatePolicy(ctx context.Context, policy model.Policy) (model.Policy, error)
	GetPolicyByID(ctx context.Context, id string) (*model.Policy, error)
	GetAllPolicies(ctx context.Context, limit, offset int) ([]model.Policy, error)
	ApplyPolicyUpdate(ctx context.Context, policy *model.Policy, verdict model.PolicyVerdict, event *model.AuditEvent) (*model.Policy, error)
	GetExpirations(ctx context.Context, policyID string) ([]model.PolicyExpiration, error)
}

// audit defines methods for the append-only audit log.
type audit interface {
	RecordAuditEvent(ctx context.Context, event *model.AuditEvent) (*model.AuditEvent, error)
	GetAuditEvents(ctx context.Context, resourceType, resourceID string) ([]model.AuditEvent, error)
	GetStatusChanges(ctx context.Context, resourceType, resourceID string) ([]model.StatusChange, error)
}
