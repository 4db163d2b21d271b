package model

import (
	"encoding/json"
	"reflect"
	"time"
)

const (
	AuditActionCreate       = "CREATE"
	AuditActionUpdate       = "UPDATE"
	AuditActionDelete       = "DELETE"
	AuditActionStatusChange = "STATUS_CHANGE"
)

const (
	ResourceClaim  = "claim"
	ResourcePolicy = "policy"
)

// AuditChanges holds the before/after snapshot diff of the fields an
// update actually changed.
type AuditChanges struct {
	Before map[string]interface{} `json:"before"`
	After  map[string]interface{} `json:"after"`
}

// AuditEvent is one append-only history entry for a resource. The SLA
// timeline treats the time-ordered STATUS_CHANGE events of an entity as
// the sole source of truth for its past states.
type AuditEvent struct {
	ID           int64        `json:"-"`
	EventID      string       `json:"event_id"`
	ResourceType string       `json:"resource_type"`
	ResourceID   string       `json:"resource_id"`
	Action       string       `json:"action"`
	ActorRole    string       `json:"actor_role,omitempty"`
	Changes      AuditChanges `json:"changes"`
	CreatedAt    time.Time    `json:"created_at"`
}

func (e *AuditEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// StatusChange is the slice of an audit event the SLA timeline replays:
// the recorded "after" status and when it took effect.
type StatusChange struct {
	Status     string    `json:"status"`
	OccurredAt time.Time `json:"occurred_at"`
}

// DiffFields builds the before/after diff for an approved field set
// against the pre-update snapshot, keeping only keys whose value actually
// changed. The snapshot comes from a JSON round-trip of the entity, so
// approved values pass through the same encoding before comparing: dates
// become RFC3339 strings on both sides, and resubmitting an unchanged
// value produces no entry.
func DiffFields(before map[string]interface{}, approved FieldSet) AuditChanges {
	changes := AuditChanges{
		Before: map[string]interface{}{},
		After:  map[string]interface{}{},
	}
	for field, after := range approved {
		normalized := normalizeJSONValue(after)
		prev, had := before[field]
		if had && reflect.DeepEqual(prev, normalized) {
			continue
		}
		changes.Before[field] = prev
		changes.After[field] = normalized
	}
	return changes
}

// normalizeJSONValue reduces a value to what it looks like after a JSON
// round-trip, matching the snapshot representation.
func normalizeJSONValue(v interface{}) interface{} {
	raw, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out interface{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return v
	}
	return out
}
