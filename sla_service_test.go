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
	"testing"
	"time"

	"github.com/claimdesk/claimdesk/model"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
)

func TestGetClaimSla_RebuildsTimelineFromHistory(t *testing.T) {
	service, mock := newTestService(t)

	createdAt := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC) // Monday
	movedAt := time.Date(2024, 3, 4, 17, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT .* FROM claimdesk.claims WHERE claim_id =").
		WithArgs("clm_1").
		WillReturnRows(serviceClaimRow("clm_1", model.ClaimStatusValidation, "Consultation", createdAt))
	mock.ExpectQuery("SELECT changes, created_at FROM claimdesk.audit_events").
		WithArgs(model.ResourceClaim, "clm_1", model.AuditActionStatusChange).
		WillReturnRows(sqlmock.NewRows([]string{"changes", "created_at"}).
			AddRow([]byte(`{"before":{"status":"DRAFT"},"after":{"status":"VALIDATION"}}`), movedAt))

	timeline, err := service.GetClaimSla(context.Background(), "clm_1")
	assert.NoError(t, err)
	assert.Len(t, timeline.Stages, 2)

	assert.Equal(t, model.ClaimStatusDraft, timeline.Stages[0].Status)
	assert.Equal(t, createdAt, timeline.Stages[0].EnteredAt)
	assert.NotNil(t, timeline.Stages[0].ExitedAt)
	assert.Equal(t, 0, timeline.Stages[0].BusinessDays)

	assert.Equal(t, model.ClaimStatusValidation, timeline.Stages[1].Status)
	assert.Nil(t, timeline.Stages[1].ExitedAt)
	// The claim entered VALIDATION long before "now", so the open stage
	// is far past its two-day limit.
	assert.Equal(t, model.SlaOverdue, timeline.CurrentIndicator)
}

func TestGetPolicySla_UsesConfiguredOverrides(t *testing.T) {
	service, mock := newTestService(t)
	service.Config().Sla.PolicyLimits = map[string]int{model.PolicyStatusPending: -1}

	createdAt := time.Now().Add(-30 * 24 * time.Hour)

	mock.ExpectQuery("SELECT .* FROM claimdesk.policies WHERE policy_id =").
		WithArgs("pol_1").
		WillReturnRows(servicePolicyRow("pol_1", model.PolicyStatusPending, nil, nil, createdAt))
	mock.ExpectQuery("SELECT changes, created_at FROM claimdesk.audit_events").
		WithArgs(model.ResourcePolicy, "pol_1", model.AuditActionStatusChange).
		WillReturnRows(sqlmock.NewRows([]string{"changes", "created_at"}))

	timeline, err := service.GetPolicySla(context.Background(), "pol_1")
	assert.NoError(t, err)
	assert.Len(t, timeline.Stages, 1)
	// The -1 override removes the PENDING limit, so a month-old pending
	// policy still reads on_time.
	assert.Equal(t, model.SlaOnTime, timeline.CurrentIndicator)
}

func TestApplyLimitOverrides(t *testing.T) {
	base := model.DefaultClaimSlaRules

	overridden := applyLimitOverrides(base, map[string]int{
		model.ClaimStatusDraft:     7,
		model.ClaimStatusSubmitted: -1,
	})

	assert.Equal(t, 7, *overridden[model.ClaimStatusDraft])
	assert.Nil(t, overridden[model.ClaimStatusSubmitted])
	// Untouched statuses keep their defaults, and the base set is not
	// mutated.
	assert.Equal(t, 2, *overridden[model.ClaimStatusValidation])
	assert.Equal(t, 3, *base[model.ClaimStatusDraft])
	assert.Equal(t, 10, *base[model.ClaimStatusSubmitted])
}
