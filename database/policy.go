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

const policyColumns = `policy_id, client_id, insurer_id, policy_number, status,
	start_date, end_date, premium_amount, copay_amount,
	COALESCE(cancellation_reason, ''), cancelled_at, created_at, meta_data`

func (d Datasource) CreatePolicy(ctx context.Context, policy model.Policy) (model.Policy, error) {
	metaDataJSON, err := json.Marshal(policy.MetaData)
	if err != nil {
		return model.Policy{}, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to marshal metadata", err)
	}

	policy.PolicyID = model.GenerateUUIDWithSuffix("pol")
	policy.Status = model.PolicyStatusPending
	policy.CreatedAt = time.Now()

	_, err = d.Conn.ExecContext(ctx, `
		INSERT INTO claimdesk.policies (policy_id, client_id, insurer_id, policy_number, status, start_date, end_date, premium_amount, copay_amount, created_at, meta_data)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, policy.PolicyID, policy.ClientID, policy.InsurerID, policy.PolicyNumber, policy.Status, policy.StartDate, policy.EndDate, policy.PremiumAmount, policy.CopayAmount, policy.CreatedAt, metaDataJSON)

	if err != nil {
		pqErr, ok := err.(*pq.Error)
		if ok {
			switch pqErr.Code.Name() {
			case "unique_violation":
				return model.Policy{}, apierror.NewAPIError(apierror.ErrConflict, "Policy with this ID already exists", err)
			default:
				return model.Policy{}, apierror.NewAPIError(apierror.ErrInternalServer, "Database error occurred", err)
			}
		}
		return model.Policy{}, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to create policy", err)
	}

	return policy, nil
}

func (d Datasource) GetPolicyByID(ctx context.Context, id string) (*model.Policy, error) {
	if d.Cache != nil {
		var cached model.Policy
		if err := d.Cache.Get(ctx, policyCacheKey(id), &cached); err == nil && cached.PolicyID == id {
			return &cached, nil
		}
	}

	row := d.Conn.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT %s FROM claimdesk.policies WHERE policy_id = $1
	`, policyColumns), id)

	policy, err := scanPolicy(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Policy with ID '%s' not found", id), err)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve policy", err)
	}

	if d.Cache != nil {
		_ = d.Cache.Set(ctx, policyCacheKey(id), policy, 5*time.Minute)
	}
	return policy, nil
}

func (d Datasource) GetAllPolicies(ctx context.Context, limit, offset int) ([]model.Policy, error) {
	rows, err := d.Conn.QueryContext(ctx, fmt.Sprintf(`
		SELECT %s FROM claimdesk.policies ORDER BY created_at DESC LIMIT $1 OFFSET $2
	`, policyColumns), limit, offset)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve policies", err)
	}
	defer rows.Close()

	policies := []model.Policy{}
	for rows.Next() {
		policy, err := scanPolicy(rows)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan policy data", err)
		}
		policies = append(policies, *policy)
	}

	if err = rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Error occurred while iterating over policies", err)
	}

	return policies, nil
}

// ApplyPolicyUpdate persists an approved policy mutation atomically,
// mirroring ApplyClaimUpdate. The cancelled_at stamp is written here so
// it reflects persistence time, and only on the first move into
// CANCELLED.
func (d Datasource) ApplyPolicyUpdate(ctx context.Context, policy *model.Policy, verdict model.PolicyVerdict, event *model.AuditEvent) (*model.Policy, error) {
	tx, err := d.Conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to begin transaction", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var lockedStatus string
	err = tx.QueryRowContext(ctx, `
		SELECT status FROM claimdesk.policies WHERE policy_id = $1 FOR UPDATE
	`, policy.PolicyID).Scan(&lockedStatus)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Policy with ID '%s' not found", policy.PolicyID), err)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to lock policy", err)
	}
	if lockedStatus != policy.Status {
		return nil, apierror.NewAPIError(apierror.ErrConflict, "Policy was modified by a concurrent request", nil)
	}

	assignments, args := buildPolicyAssignments(verdict)
	if len(assignments) > 0 {
		args = append(args, policy.PolicyID)
		query := fmt.Sprintf(`UPDATE claimdesk.policies SET %s WHERE policy_id = $%d`,
			strings.Join(assignments, ", "), len(args))
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to update policy", err)
		}
	}

	if verdict.SideEffect != nil && verdict.SideEffect.Kind == model.SideEffectCreateExpiration {
		expiration := model.PolicyExpiration{
			ExpirationID:     model.GenerateUUIDWithSuffix("exp"),
			PolicyID:         policy.PolicyID,
			ExpirationReason: verdict.SideEffect.ExpirationReason,
			CreatedAt:        time.Now(),
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO claimdesk.policy_expirations (expiration_id, policy_id, expiration_reason, created_at)
			VALUES ($1, $2, $3, $4)
		`, expiration.ExpirationID, expiration.PolicyID, expiration.ExpirationReason, expiration.CreatedAt)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to create expiration record", err)
		}
	}

	if event != nil {
		if err := insertAuditEvent(ctx, tx, event); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to commit policy update", err)
	}

	if d.Cache != nil {
		_ = d.Cache.Delete(ctx, policyCacheKey(policy.PolicyID))
	}

	return d.GetPolicyByID(ctx, policy.PolicyID)
}

func (d Datasource) GetExpirations(ctx context.Context, policyID string) ([]model.PolicyExpiration, error) {
	rows, err := d.Conn.QueryContext(ctx, `
		SELECT expiration_id, policy_id, expiration_reason, created_at
		FROM claimdesk.policy_expirations
		WHERE policy_id = $1
		ORDER BY created_at ASC
	`, policyID)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve expiration records", err)
	}
	defer rows.Close()

	expirations := []model.PolicyExpiration{}
	for rows.Next() {
		expiration := model.PolicyExpiration{}
		err = rows.Scan(&expiration.ExpirationID, &expiration.PolicyID, &expiration.ExpirationReason, &expiration.CreatedAt)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan expiration data", err)
		}
		expirations = append(expirations, expiration)
	}

	if err = rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Error occurred while iterating over expiration records", err)
	}
	return expirations, nil
}

func buildPolicyAssignments(verdict model.PolicyVerdict) ([]string, []interface{}) {
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
	if verdict.SetCancelledAt {
		add("cancelled_at", time.Now())
	}
	return assignments, args
}

func scanPolicy(row rowScanner) (*model.Policy, error) {
	policy := &model.Policy{}
	var metaDataJSON []byte
	err := row.Scan(
		&policy.PolicyID, &policy.ClientID, &policy.InsurerID, &policy.PolicyNumber, &policy.Status,
		&policy.StartDate, &policy.EndDate, &policy.PremiumAmount, &policy.CopayAmount,
		&policy.CancellationReason, &policy.CancelledAt, &policy.CreatedAt,
		&metaDataJSON,
	)
	if err != nil {
		return nil, err
	}
	if len(metaDataJSON) > 0 {
		if err := json.Unmarshal(metaDataJSON, &policy.MetaData); err != nil {
			return nil, err
		}
	}
	return policy, nil
}

func policyCacheKey(id string) string {
	return "policy:" + id
}
