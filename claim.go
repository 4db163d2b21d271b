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
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/claimdesk/claimdesk/internal/apierror"
	redlock "github.com/claimdesk/claimdesk/internal/lock"
	"github.com/claimdesk/claimdesk/internal/notification"
	"github.com/claimdesk/claimdesk/model"
)

var tracer = otel.Tracer("claimdesk.service")

func logAndRecordError(span trace.Span, msg string, err error) error {
	span.RecordError(err)
	logrus.Error(msg, err)
	return err
}

// CreateClaim persists a new claim in DRAFT and records the opening
// audit event.
func (c *Claimdesk) CreateClaim(ctx context.Context, claim model.Claim, role model.Role) (model.Claim, error) {
	ctx, span := tracer.Start(ctx, "Creating claim")
	defer span.End()

	created, err := c.datasource.CreateClaim(ctx, claim)
	if err != nil {
		return model.Claim{}, logAndRecordError(span, "error creating claim: ", err)
	}

	event := &model.AuditEvent{
		ResourceType: model.ResourceClaim,
		ResourceID:   created.ClaimID,
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

	c.postClaimActions("claim.created", &created)
	return created, nil
}

func (c *Claimdesk) GetClaim(ctx context.Context, id string) (*model.Claim, error) {
	ctx, span := tracer.Start(ctx, "Getting claim")
	defer span.End()
	return c.datasource.GetClaimByID(ctx, id)
}

func (c *Claimdesk) GetAllClaims(ctx context.Context, limit, offset int) ([]model.Claim, error) {
	return c.datasource.GetAllClaims(ctx, limit, offset)
}

func (c *Claimdesk) GetClaimReprocesses(ctx context.Context, claimID string) ([]model.ClaimReprocess, error) {
	// Existence check first so a bad ID reads as 404, not an empty list.
	if _, err := c.datasource.GetClaimByID(ctx, claimID); err != nil {
		return nil, err
	}
	return c.datasource.GetReprocesses(ctx, claimID)
}

// UpdateClaim applies a sparse update to a claim under the acting role.
// The claim is locked across instances for the duration, the update is
// screened by the state machine, and the approved mutation is persisted
// atomically with its audit event.
func (c *Claimdesk) UpdateClaim(ctx context.Context, id string, updates model.FieldSet, role model.Role) (*model.Claim, error) {
	ctx, span := tracer.Start(ctx, "Updating claim")
	defer span.End()

	locker, err := c.acquireLock(ctx, model.ResourceClaim, id)
	if err != nil {
		return nil, err
	}
	defer c.releaseLock(ctx, locker)

	claim, err := c.datasource.GetClaimByID(ctx, id)
	if err != nil {
		return nil, err
	}

	lastReprocess, err := c.datasource.GetLastReprocess(ctx, id)
	if err != nil {
		return nil, err
	}

	verdict, err := model.ValidateClaimUpdate(claim, lastReprocess, updates, role, c.calendar())
	if err != nil {
		return nil, mapValidationError(err)
	}

	event := buildUpdateEvent(model.ResourceClaim, id, role, snapshotFields(claim), verdict.Approved, verdict.NewStatus)

	updated, err := c.datasource.ApplyClaimUpdate(ctx, claim, verdict, event)
	if err != nil {
		return nil, logAndRecordError(span, "error applying claim update: ", err)
	}

	if verdict.StatusChanged() {
		c.postClaimActions("claim.status_changed", updated)
	} else {
		c.postClaimActions("claim.updated", updated)
	}
	return updated, nil
}

func (c *Claimdesk) postClaimActions(event string, claim *model.Claim) {
	go func() {
		err := SendWebhook(NewWebhook{
			Event:   event,
			Payload: claim,
		})
		if err != nil {
			notification.NotifyError(err)
		}
	}()
}

func (c *Claimdesk) acquireLock(ctx context.Context, resourceType, id string) (*redlock.Locker, error) {
	lockKey := fmt.Sprintf("%s:%s", resourceType, id)
	locker := redlock.NewLocker(c.redis, lockKey, model.GenerateUUIDWithSuffix("loc"))
	if err := locker.WaitLock(ctx, lockDuration, lockWaitTimeout); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrConflict, "Resource is locked by another update", err)
	}
	return locker, nil
}

func (c *Claimdesk) releaseLock(ctx context.Context, locker *redlock.Locker) {
	if err := locker.Unlock(ctx); err != nil {
		notification.NotifyError(err)
	}
}

// mapValidationError grades a state-machine rejection into the right
// HTTP family: role failures are forbidden, everything else is a bad
// request.
func mapValidationError(err error) error {
	vErr, ok := err.(model.ValidationError)
	if !ok {
		return err
	}
	if vErr.Rule == model.UnauthorizedTransition {
		return apierror.NewAPIError(apierror.ErrForbidden, vErr.Message, vErr)
	}
	return apierror.NewAPIError(apierror.ErrBadRequest, vErr.Message, vErr)
}

// buildUpdateEvent diffs the approved fields against the pre-update
// snapshot. A transition upgrades the action to STATUS_CHANGE and folds
// the status flip into the diff.
func buildUpdateEvent(resourceType, id string, role model.Role, before map[string]interface{}, approved model.FieldSet, newStatus string) *model.AuditEvent {
	combined := approved.Clone()
	action := model.AuditActionUpdate
	if newStatus != "" {
		combined["status"] = newStatus
		action = model.AuditActionStatusChange
	}
	changes := model.DiffFields(before, combined)
	if len(changes.After) == 0 {
		return nil
	}
	return &model.AuditEvent{
		ResourceType: resourceType,
		ResourceID:   id,
		Action:       action,
		ActorRole:    string(role),
		Changes:      changes,
	}
}

// snapshotFields flattens an entity into its wire representation so the
// audit diff compares against what a reader of the API would have seen.
func snapshotFields(entity interface{}) map[string]interface{} {
	raw, err := json.Marshal(entity)
	if err != nil {
		return map[string]interface{}{}
	}
	fields := map[string]interface{}{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return map[string]interface{}{}
	}
	return fields
}
