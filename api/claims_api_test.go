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

package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/brianvoe/gofakeit/v6"

	"github.com/claimdesk/claimdesk"
	"github.com/claimdesk/claimdesk/api/middleware"
	"github.com/claimdesk/claimdesk/config"
	"github.com/claimdesk/claimdesk/database"
	"github.com/claimdesk/claimdesk/model"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

type TestRequest struct {
	Payload  io.Reader
	Router   *gin.Engine
	Response interface{}
	Method   string
	Route    string
	Header   map[string]string
}

func SetUpTestRequest(s TestRequest) (*httptest.ResponseRecorder, error) {
	req := httptest.NewRequest(s.Method, s.Route, s.Payload)
	for key, value := range s.Header {
		req.Header.Set(key, value)
	}
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	s.Router.ServeHTTP(resp, req)

	if s.Response != nil {
		if err := json.NewDecoder(resp.Body).Decode(&s.Response); err != nil {
			return nil, err
		}
	}
	return resp, nil
}

var apiClaimColumns = []string{
	"claim_id", "client_id", "policy_id", "claim_number", "status",
	"amount_submitted", "amount_approved", "amount_denied", "amount_unprocessed",
	"deductible_applied", "copay_applied", "incident_date", "submitted_date",
	"settlement_date", "description", "care_type", "diagnosis_code",
	"diagnosis_description", "pending_reason", "return_reason",
	"cancellation_reason", "settlement_number", "settlement_notes", "created_at",
	"meta_data",
}

func apiClaimRow(claimID, status string, createdAt time.Time) *sqlmock.Rows {
	return sqlmock.NewRows(apiClaimColumns).AddRow(
		claimID, "cli_1", "pol_1", "CLM-001", status,
		nil, nil, nil, nil,
		nil, nil, nil, nil,
		nil, "Consultation", "OUTPATIENT", "J06.9",
		"Acute upper respiratory infection", "", "",
		"", "", "", createdAt,
		[]byte(`{}`),
	)
}

func setupRouter(t *testing.T) (*gin.Engine, sqlmock.Sqlmock) {
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

	service, err := claimdesk.NewClaimdesk(&database.Datasource{Conn: db})
	if err != nil {
		t.Fatalf("Error creating Claimdesk instance: %s", err)
	}
	return NewAPI(service).Router(), mock
}

func TestCreateClaimAPI(t *testing.T) {
	router, mock := setupRouter(t)

	mock.ExpectExec("INSERT INTO claimdesk.claims").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO claimdesk.audit_events").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	payload := `{
		"client_id": "` + gofakeit.UUID() + `",
		"policy_id": "pol_1",
		"claim_number": "CLM-101",
		"incident_date": "2024-02-10",
		"description": "Consultation"
	}`

	var response model.Claim
	resp, err := SetUpTestRequest(TestRequest{
		Payload:  strings.NewReader(payload),
		Router:   router,
		Response: &response,
		Method:   http.MethodPost,
		Route:    "/claims",
		Header:   map[string]string{middleware.RoleHeader: string(model.RoleBroker)},
	})
	assert.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.Code)
	assert.Contains(t, response.ClaimID, "clm_")
	assert.Equal(t, model.ClaimStatusDraft, response.Status)
}

func TestCreateClaimAPI_MissingRole(t *testing.T) {
	router, _ := setupRouter(t)

	payload := `{"client_id": "cli_1", "policy_id": "pol_1"}`
	resp, err := SetUpTestRequest(TestRequest{
		Payload: strings.NewReader(payload),
		Router:  router,
		Method:  http.MethodPost,
		Route:   "/claims",
	})
	assert.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.Code)
}

func TestCreateClaimAPI_MissingClientID(t *testing.T) {
	router, _ := setupRouter(t)

	payload := `{"policy_id": "pol_1"}`
	resp, err := SetUpTestRequest(TestRequest{
		Payload: strings.NewReader(payload),
		Router:  router,
		Method:  http.MethodPost,
		Route:   "/claims",
		Header:  map[string]string{middleware.RoleHeader: string(model.RoleBroker)},
	})
	assert.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestGetClaimAPI_NotFound(t *testing.T) {
	router, mock := setupRouter(t)

	mock.ExpectQuery("SELECT .* FROM claimdesk.claims WHERE claim_id =").
		WithArgs("clm_missing").
		WillReturnRows(sqlmock.NewRows(apiClaimColumns))

	resp, err := SetUpTestRequest(TestRequest{
		Router: router,
		Method: http.MethodGet,
		Route:  "/claims/clm_missing",
	})
	assert.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestUpdateClaimAPI_Transition(t *testing.T) {
	router, mock := setupRouter(t)

	createdAt := time.Now().Add(-24 * time.Hour)

	mock.ExpectQuery("SELECT .* FROM claimdesk.claims WHERE claim_id =").
		WithArgs("clm_1").
		WillReturnRows(apiClaimRow("clm_1", model.ClaimStatusDraft, createdAt))
	mock.ExpectQuery("SELECT .* FROM claimdesk.claim_reprocesses").
		WithArgs("clm_1").
		WillReturnRows(sqlmock.NewRows([]string{"reprocess_id", "claim_id", "reprocess_date", "reprocess_description", "business_days", "created_at"}))
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT status FROM claimdesk.claims WHERE claim_id = .* FOR UPDATE").
		WithArgs("clm_1").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow(model.ClaimStatusDraft))
	mock.ExpectExec("UPDATE claimdesk.claims SET").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO claimdesk.audit_events").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()
	mock.ExpectQuery("SELECT .* FROM claimdesk.claims WHERE claim_id =").
		WithArgs("clm_1").
		WillReturnRows(apiClaimRow("clm_1", model.ClaimStatusValidation, createdAt))

	var response model.Claim
	resp, err := SetUpTestRequest(TestRequest{
		Payload:  strings.NewReader(`{"status": "VALIDATION"}`),
		Router:   router,
		Response: &response,
		Method:   http.MethodPut,
		Route:    "/claims/clm_1",
		Header:   map[string]string{middleware.RoleHeader: string(model.RoleBackOffice)},
	})
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, model.ClaimStatusValidation, response.Status)
}

func TestUpdateClaimAPI_SubmitWithStageFields(t *testing.T) {
	router, mock := setupRouter(t)

	createdAt := time.Now().Add(-48 * time.Hour)

	mock.ExpectQuery("SELECT .* FROM claimdesk.claims WHERE claim_id =").
		WithArgs("clm_1").
		WillReturnRows(apiClaimRow("clm_1", model.ClaimStatusValidation, createdAt))
	mock.ExpectQuery("SELECT .* FROM claimdesk.claim_reprocesses").
		WithArgs("clm_1").
		WillReturnRows(sqlmock.NewRows([]string{"reprocess_id", "claim_id", "reprocess_date", "reprocess_description", "business_days", "created_at"}))
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT status FROM claimdesk.claims WHERE claim_id = .* FOR UPDATE").
		WithArgs("clm_1").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow(model.ClaimStatusValidation))
	mock.ExpectExec("UPDATE claimdesk.claims SET").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO claimdesk.audit_events").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()
	mock.ExpectQuery("SELECT .* FROM claimdesk.claims WHERE claim_id =").
		WithArgs("clm_1").
		WillReturnRows(apiClaimRow("clm_1", model.ClaimStatusSubmitted, createdAt))

	// The submission amount and date arrive in the same call as the
	// transition they are required for.
	payload := `{"status": "SUBMITTED", "amount_submitted": 300.0, "submitted_date": "2024-03-04"}`

	var response model.Claim
	resp, err := SetUpTestRequest(TestRequest{
		Payload:  strings.NewReader(payload),
		Router:   router,
		Response: &response,
		Method:   http.MethodPut,
		Route:    "/claims/clm_1",
		Header:   map[string]string{middleware.RoleHeader: string(model.RoleBroker)},
	})
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, model.ClaimStatusSubmitted, response.Status)
}

func TestUpdateClaimAPI_IllegalTransition(t *testing.T) {
	router, mock := setupRouter(t)

	mock.ExpectQuery("SELECT .* FROM claimdesk.claims WHERE claim_id =").
		WithArgs("clm_1").
		WillReturnRows(apiClaimRow("clm_1", model.ClaimStatusDraft, time.Now()))
	mock.ExpectQuery("SELECT .* FROM claimdesk.claim_reprocesses").
		WithArgs("clm_1").
		WillReturnRows(sqlmock.NewRows([]string{"reprocess_id", "claim_id", "reprocess_date", "reprocess_description", "business_days", "created_at"}))

	resp, err := SetUpTestRequest(TestRequest{
		Payload: strings.NewReader(`{"status": "SETTLED", "settlement_number": "STL-1"}`),
		Router:  router,
		Method:  http.MethodPut,
		Route:   "/claims/clm_1",
		Header:  map[string]string{middleware.RoleHeader: string(model.RoleBackOffice)},
	})
	assert.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestGetClaimSlaAPI(t *testing.T) {
	router, mock := setupRouter(t)

	createdAt := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)
	movedAt := time.Date(2024, 3, 4, 17, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT .* FROM claimdesk.claims WHERE claim_id =").
		WithArgs("clm_1").
		WillReturnRows(apiClaimRow("clm_1", model.ClaimStatusValidation, createdAt))
	mock.ExpectQuery("SELECT changes, created_at FROM claimdesk.audit_events").
		WithArgs(model.ResourceClaim, "clm_1", model.AuditActionStatusChange).
		WillReturnRows(sqlmock.NewRows([]string{"changes", "created_at"}).
			AddRow([]byte(`{"before":{"status":"DRAFT"},"after":{"status":"VALIDATION"}}`), movedAt))

	var timeline model.SlaTimeline
	resp, err := SetUpTestRequest(TestRequest{
		Router:   router,
		Response: &timeline,
		Method:   http.MethodGet,
		Route:    "/claims/clm_1/sla",
	})
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Len(t, timeline.Stages, 2)
	assert.Equal(t, model.ClaimStatusDraft, timeline.Stages[0].Status)
}
