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

	"github.com/claimdesk/claimdesk/internal/notification"
	"github.com/claimdesk/claimdesk/model"
)

// CreatePolicy persists a new policy in PENDING and records the opening
// audit event.
func (c *Claimdesk) CreatePolicy(ctx context.Context, policy model.Policy, role model.Role) (model.Policy, error) {
	ctx, span := tracer.Start(ctx, "Creating policy")
	defer span.End()

	created, err := c.datasource.CreatePolicy(ctx, policy)
	if err != nil {
		return model.Policy{}, logAndRecordError(span, "error creating policy: ", err)
	}

	event := &model.AuditEvent{
		ResourceType: model.ResourcePolicy,
		ResourceID:   created.PolicyID,
		Action:       model.AuditActionCreate,
		ActorRole:    string(role),
		Changes: model.AuditChanges{
			Before: map[string]interface{}{},
			After:  map[string]interface{}{"status": created.Status},
		},
	}
	if _, err := c.datasource.RecordAuditEvent(ctx, event); err != nil {
		notification.NotifyError(err)
	}

	c.postPolicyActions("policy.created", &created)
	return created, nil
}

func (c *Claimdesk) GetPolicy(ctx context.Context, id string) (*model.Policy, error) {
	ctx, span := tracer.Start(ctx, "Getting policy")
	defer span.End()
	return c.datasource.GetPolicyByID(ctx, id)
}

func (c *Claimdesk) GetAllPolicies(ctx context.Context, limit, offset int) ([]model.Policy, error) {
	return c.datasource.GetAllPolicies(ctx, limit, offset)
}

func (c *Claimdesk) GetPolicyExpirations(ctx context.Context, policyID string) ([]model.PolicyExpiration, error) {
	if _, err := c.datasource.GetPolicyByID(ctx, policyID); err != nil {
		return nil, err
	}
	return c.datasource.GetExpirations(ctx, policyID)
}

// UpdatePolicy applies a sparse update to a policy. Policies carry no
// per-transition role gate, but the acting role is still recorded on the
// audit trail.
func (c *Claimdesk) UpdatePolicy(ctx context.Context, id string, updates model.FieldSet, role model.Role) (*model.Policy, error) {
	ctx, span := tracer.Start(ctx, "Updating policy")
	defer span.End()

	locker, err := c.acquireLock(ctx, model.ResourcePolicy, id)
	if err != nil {
		return nil, err
	}
	defer c.releaseLock(ctx, locker)

	policy, err := c.datasource.GetPolicyByID(ctx, id)
	if err != nil {
		return nil, err
	}

	verdict, err := model.ValidatePolicyUpdate(policy, updates)
	if err != nil {
		return nil, mapValidationError(err)
	}

	event := buildUpdateEvent(model.ResourcePolicy, id, role, snapshotFields(policy), verdict.Approved, verdict.NewStatus)

	updated, err := c.datasource.ApplyPolicyUpdate(ctx, policy, verdict, event)
	if err != nil {
		return nil, logAndRecordError(span, "error applying policy update: ", err)
	}

	if verdict.StatusChanged() {
		c.postPolicyActions("policy.status_changed", updated)
	} else {
		c.postPolicyActions("policy.updated", updated)
	}
	return updated, nil
}

func (c *Claimdesk) postPolicyActions(event string, policy *model.Policy) {
	go func() {
		err := SendWebhook(NewWebhook{
			Event:   event,
			Payload: policy,
		})
		if err != nil {
			notification.NotifyError(err)
		}
	}()
}
