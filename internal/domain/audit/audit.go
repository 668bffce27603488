// Package audit produces typed before/after field diffs for the audit
// trail. The core computes diffs; retention and replay live in the
// external audit store.
package audit

import (
	"context"
	"reflect"
	"time"

	"github.com/shopspring/decimal"

	"fincore/internal/core/id"
)

// Action classifies the audited operation.
type Action string

const (
	ActionInsert  Action = "INSERT"
	ActionUpdate  Action = "UPDATE"
	ActionDelete  Action = "DELETE"
	ActionPost    Action = "POST"
	ActionReverse Action = "REVERSE"
)

// FieldChange is one field's old and new value.
type FieldChange struct {
	Old any `json:"old"`
	New any `json:"new"`
}

// Record is one audit trail entry.
type Record struct {
	ID       id.ID                  `db:"id" json:"id"`
	Entity   string                 `db:"entity" json:"entity"`
	EntityID id.ID                  `db:"entity_id" json:"entityId"`
	Action   Action                 `db:"action" json:"action"`
	Changes  map[string]FieldChange `db:"changes" json:"changes,omitempty"`
	UserID   string                 `db:"user_id" json:"userId,omitempty"`
	At       time.Time              `db:"at" json:"at"`
}

// Recorder persists audit records. Implementations must not fail the
// business operation on audit errors; they log and continue.
type Recorder interface {
	Record(ctx context.Context, rec *Record) error
}

// Changes computes the typed field diff between two snapshots. Keys
// present on only one side diff against nil. Unchanged fields are
// omitted.
func Changes(before, after map[string]any) map[string]FieldChange {
	diff := make(map[string]FieldChange)

	for key, oldVal := range before {
		newVal, ok := after[key]
		if !ok {
			diff[key] = FieldChange{Old: oldVal, New: nil}
			continue
		}
		if !equal(oldVal, newVal) {
			diff[key] = FieldChange{Old: oldVal, New: newVal}
		}
	}
	for key, newVal := range after {
		if _, ok := before[key]; !ok {
			diff[key] = FieldChange{Old: nil, New: newVal}
		}
	}

	if len(diff) == 0 {
		return nil
	}
	return diff
}

// equal compares snapshot values. Decimals compare by numeric value, not
// representation: 100 and 100.00 are the same amount.
func equal(a, b any) bool {
	if da, ok := a.(decimal.Decimal); ok {
		if db, ok := b.(decimal.Decimal); ok {
			return da.Equal(db)
		}
	}
	return reflect.DeepEqual(a, b)
}

// NewRecord builds an audit record for an entity operation.
func NewRecord(entity string, entityID id.ID, action Action, changes map[string]FieldChange, userID string) *Record {
	return &Record{
		ID:       id.New(),
		Entity:   entity,
		EntityID: entityID,
		Action:   action,
		Changes:  changes,
		UserID:   userID,
		At:       time.Now().UTC(),
	}
}
