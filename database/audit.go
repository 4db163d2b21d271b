package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/claimdesk/claimdesk/internal/apierror"
	"github.com/claimdesk/claimdesk/model"
)

// insertAuditEvent appends one event inside an open transaction so the
// history row commits or rolls back with the mutation it describes.
func insertAuditEvent(ctx context.Context, tx *sql.Tx, event *model.AuditEvent) error {
	if event.EventID == "" {
		event.EventID = model.GenerateUUIDWithSuffix("evt")
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	changesJSON, err := json.Marshal(event.Changes)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to marshal audit changes", err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO claimdesk.audit_events (event_id, resource_type, resource_id, action, actor_role, changes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, event.EventID, event.ResourceType, event.ResourceID, event.Action, event.ActorRole, changesJSON, event.CreatedAt)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to record audit event", err)
	}
	return nil
}

func (d Datasource) RecordAuditEvent(ctx context.Context, event *model.AuditEvent) (*model.AuditEvent, error) {
	tx, err := d.Conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to begin transaction", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := insertAuditEvent(ctx, tx, event); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to commit audit event", err)
	}
	return event, nil
}

func (d Datasource) GetAuditEvents(ctx context.Context, resourceType, resourceID string) ([]model.AuditEvent, error) {
	rows, err := d.Conn.QueryContext(ctx, `
		SELECT id, event_id, resource_type, resource_id, action, COALESCE(actor_role, ''), changes, created_at
		FROM claimdesk.audit_events
		WHERE resource_type = $1 AND resource_id = $2
		ORDER BY created_at ASC, id ASC
	`, resourceType, resourceID)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve audit events", err)
	}
	defer rows.Close()

	events := []model.AuditEvent{}
	for rows.Next() {
		event := model.AuditEvent{}
		var changesJSON []byte
		err = rows.Scan(&event.ID, &event.EventID, &event.ResourceType, &event.ResourceID, &event.Action, &event.ActorRole, &changesJSON, &event.CreatedAt)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan audit event data", err)
		}
		if len(changesJSON) > 0 {
			if err := json.Unmarshal(changesJSON, &event.Changes); err != nil {
				return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to decode audit changes", err)
			}
		}
		events = append(events, event)
	}

	if err = rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Error occurred while iterating over audit events", err)
	}
	return events, nil
}

// GetStatusChanges replays the status history of a resource in the order
// it happened. Only STATUS_CHANGE events carry an after-status, and rows
// whose changes blob lacks one are skipped rather than failing the whole
// timeline.
func (d Datasource) GetStatusChanges(ctx context.Context, resourceType, resourceID string) ([]model.StatusChange, error) {
	rows, err := d.Conn.QueryContext(ctx, `
		SELECT changes, created_at
		FROM claimdesk.audit_events
		WHERE resource_type = $1 AND resource_id = $2 AND action = $3
		ORDER BY created_at ASC, id ASC
	`, resourceType, resourceID, model.AuditActionStatusChange)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve status history", err)
	}
	defer rows.Close()

	changes := []model.StatusChange{}
	for rows.Next() {
		var changesJSON []byte
		var createdAt time.Time
		if err := rows.Scan(&changesJSON, &createdAt); err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan status history data", err)
		}
		status, ok := afterStatus(changesJSON)
		if !ok {
			continue
		}
		changes = append(changes, model.StatusChange{Status: status, OccurredAt: createdAt})
	}

	if err = rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Error occurred while iterating over status history", err)
	}
	return changes, nil
}

func afterStatus(changesJSON []byte) (string, bool) {
	if len(changesJSON) == 0 {
		return "", false
	}
	var changes model.AuditChanges
	if err := json.Unmarshal(changesJSON, &changes); err != nil {
		return "", false
	}
	status, ok := changes.After["status"].(string)
	return status, ok && status != ""
}
