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

	"github.com/alicebob/miniredis/v2"
	"github.com/brianvoe/gofakeit/v6"

	"github.com/claimdesk/claimdesk/config"
	"github.com/claimdesk/claimdesk/database"
	"github.com/claimdesk/claimdesk/internal/apierror"
	"github.com/claimdesk/claimdesk/model"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
)

var serviceClaimColumns = []string{
	"claim_id", "client_id", "policy_id", "claim_number", "status",
	"amount_submitted", "amount_approved", "amount_denied", "amount_unprocessed",
	"deductible_applied", "copay_applied", "incident_date", "submitted_date",
	"settlement_date", "description", "care_type", "diagnosis_code",
	"diagnosis_description", "pending_reason", "return_reason",
	"cancellation_reason", "settlement_number", "settlement_notes", "created_at",
	"meta_data",
}

func serviceClaimRow(claimID, status, description string, createdAt time.Time) *sqlmock.Rows {
	return sqlmock.NewRows(serviceClaimColumns).AddRow(
		claimID, "cli_1", "pol_1", "CLM-001", status,
		nil, nil, nil, nil,
		nil, nil, nil, nil,
		nil, description, "OUTPATIENT", "J06.9",
		"Acute upper respiratory infection", "", "",
		"", "", "", createdAt,
		[]byte(`{}`),
	)
}

func newTestService(t *testing.T) (*Claimdesk, sqlmock.Sqlmock) {
	t.Helper()
	mr := miniredis.RunT(t)
	config.MockConfig(&config.Configuration{
		Redis: config.RedisConfig{Dns: mr.Addr()},
	})

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	service, err := NewClaimdesk(&database.Datasource{Conn: db})
	if err != nil {
		t.Fatalf("Error creating Claimdesk instance: %s", err)
	}
	return service, mock
}

func TestCreateClaim(t *testing.T) {
	service, mock := newTestService(t)

	claim := model.Claim{
		ClientID:    gofakeit.UUID(),
		PolicyID:    gofakeit.UUID(),
		ClaimNumber: "CLM-101",
		Description: "Consultation",
	}

	mock.ExpectExec("INSERT INTO claimdesk.claims").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO claimdesk.audit_events").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	created, err := service.CreateClaim(context.Background(), claim, model.RoleBroker)
	assert.NoError(t, err)
	assert.Contains(t, created.ClaimID, "clm_")
	assert.Equal(t, model.ClaimStatusDraft, created.Status)
	assert.WithinDuration(t, time.Now(), created.CreatedAt, time.Second)

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}

func TestUpdateClaim_Transition(t *testing.T) {
	service, mock := newTestService(t)

	createdAt := time.Now().Add(-24 * time.Hour)

	mock.ExpectQuery("SELECT .* FROM claimdesk.claims WHERE claim_id =").
		WithArgs("clm_1").
		WillReturnRows(serviceClaimRow("clm_1", model.ClaimStatusDraft, "Consultation", createdAt))
	mock.ExpectQuery("SELECT .* FROM claimdesk.claim_reprocesses").
		WithArgs("clm_1").
		WillReturnRows(sqlmock.NewRows([]string{"reprocess_id", "claim_id", "reprocess_date", "reprocess_description", "business_days", "created_at"}))

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT status FROM claimdesk.claims WHERE claim_id = .* FOR UPDATE").
		WithArgs("clm_1").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow(model.ClaimStatusDraft))
	mock.ExpectExec("UPDATE claimdesk.claims SET").
		WithArgs("Updated after review", model.ClaimStatusValidation, "clm_1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO claimdesk.audit_events").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()
	mock.ExpectQuery("SELECT .* FROM claimdesk.claims WHERE claim_id =").
		WithArgs("clm_1").
		WillReturnRows(serviceClaimRow("clm_1", model.ClaimStatusValidation, "Updated after review", createdAt))

	updates := model.FieldSet{
		"status":      model.ClaimStatusValidation,
		"description": "Updated after review",
	}
	updated, err := service.UpdateClaim(context.Background(), "clm_1", updates, model.RoleBroker)
	assert.NoError(t, err)
	assert.Equal(t, model.ClaimStatusValidation, updated.Status)

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}

func TestUpdateClaim_UnauthorizedRole(t *testing.T) {
	service, mock := newTestService(t)

	mock.ExpectQuery("SELECT .* FROM claimdesk.claims WHERE claim_id =").
		WithArgs("clm_1").
		WillReturnRows(serviceClaimRow("clm_1", model.ClaimStatusSubmitted, "Consultation", time.Now()))
	mock.ExpectQuery("SELECT .* FROM claimdesk.claim_reprocesses").
		WithArgs("clm_1").
		WillReturnRows(sqlmock.NewRows([]string{"reprocess_id", "claim_id", "reprocess_date", "reprocess_description", "business_days", "created_at"}))

	updates := model.FieldSet{
		"status":            model.ClaimStatusSettled,
		"settlement_number": "STL-9",
	}
	_, err := service.UpdateClaim(context.Background(), "clm_1", updates, model.RoleClientAdmin)
	assert.Error(t, err)

	apiErr, ok := err.(apierror.APIError)
	assert.True(t, ok)
	assert.Equal(t, apierror.ErrForbidden, apiErr.Code)
}

func TestUpdateClaim_FieldNotEditableWhenSettled(t *testing.T) {
	service, mock := newTestService(t)

	mock.ExpectQuery("SELECT .* FROM claimdesk.claims WHERE claim_id =").
		WithArgs("clm_1").
		WillReturnRows(serviceClaimRow("clm_1", model.ClaimStatusSettled, "Consultation", time.Now()))
	mock.ExpectQuery("SELECT .* FROM claimdesk.claim_reprocesses").
		WithArgs("clm_1").
		WillReturnRows(sqlmock.NewRows([]string{"reprocess_id", "claim_id", "reprocess_date", "reprocess_description", "business_days", "created_at"}))

	updates := model.FieldSet{"description": "Too late"}
	_, err := service.UpdateClaim(context.Background(), "clm_1", updates, model.RoleBackOffice)
	assert.Error(t, err)

	apiErr, ok := err.(apierror.APIError)
	assert.True(t, ok)
	assert.Equal(t, apierror.ErrBadRequest, apiErr.Code)
}

func TestGetClaimReprocesses_UnknownClaim(t *testing.T) {
	service, mock := newTestService(t)

	mock.ExpectQuery("SELECT .* FROM claimdesk.claims WHERE claim_id =").
		WithArgs("clm_missing").
		WillReturnRows(sqlmock.NewRows(serviceClaimColumns))

	_, err := service.GetClaimReprocesses(context.Background(), "clm_missing")
	assert.Error(t, err)

	apiErr, ok := err.(apierror.APIError)
	assert.True(t, ok)
	assert.Equal(t, apierror.ErrNotFound, apiErr.Code)
}
