package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/claimdesk/claimdesk/internal/apierror"
	"github.com/claimdesk/claimdesk/model"
	"github.com/lib/pq"
)

// Reason columns are NULL until their transition happens, hence the
// COALESCE on read.
const claimColumns = `claim_id, client_id, policy_id, claim_number, status,
	amount_submitted, amount_approved, amount_denied, amount_unprocessed,
	deductible_applied, copay_applied, incident_date, submitted_date,
	settlement_date, description, care_type, diagnosis_code,
	diagnosis_description, COALESCE(pending_reason, ''), COALESCE(return_reason, ''),
	COALESCE(cancellation_reason, ''), COALESCE(settlement_number, ''),
	COALESCE(settlement_notes, ''), created_at, meta_data`

func (d Datasource) CreateClaim(ctx context.Context, claim model.Claim) (model.Claim, error) {
	metaDataJSON, err := json.Marshal(claim.MetaData)
	if err != nil {
		return model.Claim{}, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to marshal metadata", err)
	}

	claim.ClaimID = model.GenerateUUIDWithSuffix("clm")
	claim.Status = model.ClaimStatusDraft
	claim.CreatedAt = time.Now()

	_, err = d.Conn.ExecContext(ctx, `
		INSERT INTO claimdesk.claims (claim_id, client_id, policy_id, claim_number, status, incident_date, description, care_type, diagnosis_code, diagnosis_description, created_at, meta_data)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, claim.ClaimID, claim.ClientID, claim.PolicyID, claim.ClaimNumber, claim.Status, claim.IncidentDate, claim.Description, claim.CareType, claim.DiagnosisCode, claim.DiagnosisDescription, claim.CreatedAt, metaDataJSON)

	if err != nil {
		pqErr, ok := err.(*pq.Error)
		if ok {
			switch pqErr.Code.Name() {
			case "unique_violation":
				return model.Claim{}, apierror.NewAPIError(apierror.ErrConflict, "Claim with this ID already exists", err)
			default:
				return model.Claim{}, apierror.NewAPIError(apierror.ErrInternalServer, "Database error occurred", err)
			}
		}
		return model.Claim{}, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to create claim", err)
	}

	return claim, nil
}

func (d Datasource) GetClaimByID(ctx context.Context, id string) (*model.Claim, error) {
	if d.Cache != nil {
		var cached model.Claim
		if err := d.Cache.Get(ctx, claimCacheKey(id), &cached); err == nil && cached.ClaimID == id {
			return &cached, nil
		}
	}

	row := d.Conn.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT %s FROM claimdesk.claims WHERE claim_id = $1
	`, claimColumns), id)

	claim, err := scanClaim(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Claim with ID '%s' not found", id), err)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve claim", err)
	}

	if d.Cache != nil {
		_ = d.Cache.Set(ctx, claimCacheKey(id), claim, 5*time.Minute)
	}
	return claim, nil
}

func (d Datasource) GetAllClaims(ctx context.Context, limit, offset int) ([]model.Claim, error) {
	rows, err := d.Conn.QueryContext(ctx, fmt.Sprintf(`
		SELECT %s FROM claimdesk.claims ORDER BY created_at DESC LIMIT $1 OFFSET $2
	`, claimColumns), limit, offset)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve claims", err)
	}
	defer rows.Close()

	claims := []model.Claim{}
	for rows.Next() {
		claim, err := scanClaim(rows)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan claim data", err)
		}
		claims = append(claims, *claim)
	}

	if err = rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Error occurred while iterating over claims", err)
	}

	return claims, nil
}

// ApplyClaimUpdate persists an approved mutation plan atomically: the
// sparse field update, the status change, the optional reprocess record
// and the audit event share one transaction. The claim row is locked for
// the duration so concurrent writers cannot apply against a stale
// snapshot.
func (d Datasource) ApplyClaimUpdate(ctx context.Context, claim *model.Claim, verdict model.ClaimVerdict, event *model.AuditEvent) (*model.Claim, error) {
	tx, err := d.Conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to begin transaction", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var lockedStatus string
	err = tx.QueryRowContext(ctx, `
		SELECT status FROM claimdesk.claims WHERE claim_id = $1 FOR UPDATE
	`, claim.ClaimID).Scan(&lockedStatus)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Claim with ID '%s' not found", claim.ClaimID), err)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to lock claim", err)
	}
	if lockedStatus != claim.Status {
		return nil, apierror.NewAPIError(apierror.ErrConflict, "Claim was modified by a concurrent request", nil)
	}

	assignments, args := buildClaimAssignments(verdict)
	if len(assignments) > 0 {
		args = append(args, claim.ClaimID)
		query := fmt.Sprintf(`UPDATE claimdesk.claims SET %s WHERE claim_id = $%d`,
			strings.Join(assignments, ", "), len(args))
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to update claim", err)
		}
	}

	if verdict.SideEffect != nil && verdict.SideEffect.Kind == model.SideEffectCreateReprocess {
		reprocess := model.ClaimReprocess{
			ReprocessID:          model.GenerateUUIDWithSuffix("rep"),
			ClaimID:              claim.ClaimID,
			ReprocessDate:        verdict.SideEffect.ReprocessDate,
			ReprocessDescription: verdict.SideEffect.ReprocessDescription,
			BusinessDays:         verdict.SideEffect.BusinessDays,
			CreatedAt:            time.Now(),
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO claimdesk.claim_reprocesses (reprocess_id, claim_id, reprocess_date, reprocess_description, business_days, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, reprocess.ReprocessID, reprocess.ClaimID, reprocess.ReprocessDate, reprocess.ReprocessDescription, reprocess.BusinessDays, reprocess.CreatedAt)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to create reprocess record", err)
		}
	}

	if event != nil {
		if err := insertAuditEvent(ctx, tx, event); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to commit claim update", err)
	}

	if d.Cache != nil {
		_ = d.Cache.Delete(ctx, claimCacheKey(claim.ClaimID))
	}

	return d.GetClaimByID(ctx, claim.ClaimID)
}

func (d Datasource) GetLastReprocess(ctx context.Context, claimID string) (*model.ClaimReprocess, error) {
	row := d.Conn.QueryRowContext(ctx, `
		SELECT reprocess_id, claim_id, reprocess_date, reprocess_description, business_days, created_at
		FROM claimdesk.claim_reprocesses
		WHERE claim_id = $1
		ORDER BY reprocess_date DESC
		LIMIT 1
	`, claimID)

	reprocess := model.ClaimReprocess{}
	err := row.Scan(&reprocess.ReprocessID, &reprocess.ClaimID, &reprocess.ReprocessDate, &reprocess.ReprocessDescription, &reprocess.BusinessDays, &reprocess.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve reprocess record", err)
	}
	return &reprocess, nil
}

func (d Datasource) GetReprocesses(ctx context.Context, claimID string) ([]model.ClaimReprocess, error) {
	rows, err := d.Conn.QueryContext(ctx, `
		SELECT reprocess_id, claim_id, reprocess_date, reprocess_description, business_days, created_at
		FROM claimdesk.claim_reprocesses
		WHERE claim_id = $1
		ORDER BY reprocess_date ASC
	`, claimID)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve reprocess records", err)
	}
	defer rows.Close()

	reprocesses := []model.ClaimReprocess{}
	for rows.Next() {
		reprocess := model.ClaimReprocess{}
		err = rows.Scan(&reprocess.ReprocessID, &reprocess.ClaimID, &reprocess.ReprocessDate, &reprocess.ReprocessDescription, &reprocess.BusinessDays, &reprocess.CreatedAt)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan reprocess data", err)
		}
		reprocesses = append(reprocesses, reprocess)
	}

	if err = rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Error occurred while iterating over reprocess records", err)
	}
	return reprocesses, nil
}

// buildClaimAssignments turns a verdict into SET clauses. Field keys come
// from the state machine's whitelist tables, so they are safe to splice
// as column names.
func buildClaimAssignments(verdict model.ClaimVerdict) ([]string, []interface{}) {
	assignments := []string{}
	args := []interface{}{}
	add := func(column string, value interface{}) {
		args = append(args, value)
		assignments = append(assignments, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	for field, value := range verdict.Approved {
		add(field, normalizeFieldValue(value))
	}
	if verdict.StatusChanged() {
		add("status", verdict.NewStatus)
	}
	return assignments, args
}

func normalizeFieldValue(value interface{}) interface{} {
	if t, ok := value.(time.Time); ok {
		return t
	}
	return value
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanClaim(row rowScanner) (*model.Claim, error) {
	claim := &model.Claim{}
	var metaDataJSON []byte
	err := row.Scan(
		&claim.ClaimID, &claim.ClientID, &claim.PolicyID, &claim.ClaimNumber, &claim.Status,
		&claim.AmountSubmitted, &claim.AmountApproved, &claim.AmountDenied, &claim.AmountUnprocessed,
		&claim.DeductibleApplied, &claim.CopayApplied, &claim.IncidentDate, &claim.SubmittedDate,
		&claim.SettlementDate, &claim.Description, &claim.CareType, &claim.DiagnosisCode,
		&claim.DiagnosisDescription, &claim.PendingReason, &claim.ReturnReason,
		&claim.CancellationReason, &claim.SettlementNumber, &claim.SettlementNotes, &claim.CreatedAt,
		&metaDataJSON,
	)
	if err != nil {
		return nil, err
	}
	if len(metaDataJSON) > 0 {
		if err := json.Unmarshal(metaDataJSON, &claim.MetaData); err != nil {
			return nil, err
		}
	}
	return claim, nil
}

func claimCacheKey(id string) string {
	return "claim:" + id
}
