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

package claimdesk

import (
	"context"
	"time"

	"github.com/claimdesk/claimdesk/model"
)

// GetClaimSla rebuilds the full SLA timeline for a claim from its audit
// history. The timeline is derived on every call, never stored.
func (c *Claimdesk) GetClaimSla(ctx context.Context, claimID string) (*model.SlaTimeline, error) {
	ctx, span := tracer.Start(ctx, "Building claim SLA timeline")
	defer span.End()

	claim, err := c.datasource.GetClaimByID(ctx, claimID)
	if err != nil {
		return nil, err
	}
	events, err := c.datasource.GetStatusChanges(ctx, model.ResourceClaim, claimID)
	if err != nil {
		return nil, err
	}

	rules := applyLimitOverrides(model.DefaultClaimSlaRules, c.Config().Sla.ClaimLimits)
	timeline := model.BuildTimeline(claim.CreatedAt, model.ClaimStatusDraft, claim.Status, events, time.Now(), rules, c.calendar())
	return &timeline, nil
}

// GetPolicySla rebuilds the SLA timeline for a policy.
func (c *Claimdesk) GetPolicySla(ctx context.Context, policyID string) (*model.SlaTimeline, error) {
	ctx, span := tracer.Start(ctx, "Building policy SLA timeline")
	defer span.End()

	policy, err := c.datasource.GetPolicyByID(ctx, policyID)
	if err != nil {
		return nil, err
	}
	events, err := c.datasource.GetStatusChanges(ctx, model.ResourcePolicy, policyID)
	if err != nil {
		return nil, err
	}

	rules := applyLimitOverrides(model.DefaultPolicySlaRules, c.Config().Sla.PolicyLimits)
	timeline := model.BuildTimeline(policy.CreatedAt, model.PolicyStatusPending, policy.Status, events, time.Now(), rules, c.calendar())
	return &timeline, nil
}

// GetAuditEvents returns the full history of a resource in insertion
// order.
func (c *Claimdesk) GetAuditEvents(ctx context.Context, resourceType, resourceID string) ([]model.AuditEvent, error) {
	return c.datasource.GetAuditEvents(ctx, resourceType, resourceID)
}

// applyLimitOverrides layers configured per-status limits over the
// built-in rule set. An override of -1 removes the limit so the status
// never ages.
func applyLimitOverrides(defaults model.SlaRuleSet, overrides map[string]int) model.SlaRuleSet {
	if len(overrides) == 0 {
		return defaults
	}
	rules := model.SlaRuleSet{}
	for status, limit := range defaults {
		rules[status] = limit
	}
	for status, limit := range overrides {
		if limit < 0 {
			rules[status] = nil
			continue
		}
		value := limit
		rules[status] = &value
	}
	return rules
}
