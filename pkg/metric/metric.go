// Package metric manages MetricDefinition, MetricInstance, and Threshold —
// the per-client named metric schema, its per-machine bindings, and the
// alerting threshold attached to each binding.
package metric

import (
	"time"

	"github.com/google/uuid"
)

// State is the evaluator-owned lifecycle state of a MetricInstance.
type State string

const (
	StateUnknown  State = "UNKNOWN"
	StateNormal   State = "NORMAL"
	StateCritical State = "CRITICAL"
)

// Comparison is the closed comparison set a Threshold may use.
type Comparison string

const (
	CompareGT       Comparison = "gt"
	CompareLT       Comparison = "lt"
	CompareEQ       Comparison = "eq"
	CompareGE       Comparison = "ge"
	CompareLE       Comparison = "le"
	CompareNE       Comparison = "ne"
	CompareContains Comparison = "contains"
)

// Severity is the closed set of severities a Threshold carries.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

// DefinitionRow is a row from metric_definitions.
type DefinitionRow struct {
	ID        uuid.UUID
	ClientID  uuid.UUID
	Name      string
	ValueType ValueType
	Unit      *string
	Suggested bool
	CreatedAt time.Time
}

// InstanceRow is a row from metric_instances.
type InstanceRow struct {
	ID                  uuid.UUID
	MachineID           uuid.UUID
	DefinitionID        uuid.UUID
	AlertEnabled        bool
	Paused              bool
	LastValue           *Value
	LastValueAt         *time.Time
	State               State
	PendingSince        *time.Time
	ConsecutiveFailures int
}

// PendingInstance is one MetricInstance currently sitting in a grace-period
// "pending" state, as surfaced by Store.ListPending for the periodic sweep.
type PendingInstance struct {
	ClientID   uuid.UUID
	InstanceID uuid.UUID
}

// ThresholdRow is a row from thresholds.
type ThresholdRow struct {
	ID               uuid.UUID
	MetricInstanceID uuid.UUID
	Comparison       Comparison
	Value            Value
	Severity         Severity
	CreatedAt        time.Time
}

// DefinitionResponse is the JSON representation of a MetricDefinition.
type DefinitionResponse struct {
	ID        uuid.UUID `json:"id"`
	ClientID  uuid.UUID `json:"client_id"`
	Name      string    `json:"name"`
	ValueType ValueType `json:"value_type"`
	Unit      *string   `json:"unit,omitempty"`
	Suggested bool      `json:"suggested"`
	CreatedAt time.Time `json:"created_at"`
}

// ToResponse converts a DefinitionRow to its public DTO.
func (r *DefinitionRow) ToResponse() DefinitionResponse {
	return DefinitionResponse{
		ID:        r.ID,
		ClientID:  r.ClientID,
		Name:      r.Name,
		ValueType: r.ValueType,
		Unit:      r.Unit,
		Suggested: r.Suggested,
		CreatedAt: r.CreatedAt,
	}
}

// InstanceResponse is the JSON representation of a MetricInstance, joined
// with its definition name for display.
type InstanceResponse struct {
	ID                  uuid.UUID  `json:"id"`
	MachineID           uuid.UUID  `json:"machine_id"`
	DefinitionID        uuid.UUID  `json:"definition_id"`
	Name                string     `json:"name"`
	AlertEnabled        bool       `json:"alert_enabled"`
	Paused              bool       `json:"paused"`
	LastValue           *Value     `json:"last_value,omitempty"`
	LastValueAt         *time.Time `json:"last_value_at,omitempty"`
	State               State      `json:"state"`
	ConsecutiveFailures int        `json:"consecutive_failures"`
}

// ToResponse converts an InstanceRow joined with its definition name.
func (r *InstanceRow) ToResponse(name string) InstanceResponse {
	return InstanceResponse{
		ID:                  r.ID,
		MachineID:           r.MachineID,
		DefinitionID:        r.DefinitionID,
		Name:                name,
		AlertEnabled:        r.AlertEnabled,
		Paused:              r.Paused,
		LastValue:           r.LastValue,
		LastValueAt:         r.LastValueAt,
		State:               r.State,
		ConsecutiveFailures: r.ConsecutiveFailures,
	}
}

// ThresholdRequest is the JSON body for POST /metrics/{id}/thresholds/default.
type ThresholdRequest struct {
	Comparison Comparison `json:"comparison" validate:"required"`
	Value      any        `json:"value" validate:"required"`
	Severity   Severity   `json:"severity" validate:"required"`
}

// ThresholdResponse is the JSON representation of a Threshold.
type ThresholdResponse struct {
	ID               uuid.UUID  `json:"id"`
	MetricInstanceID uuid.UUID  `json:"metric_instance_id"`
	Comparison       Comparison `json:"comparison"`
	Value            Value      `json:"value"`
	Severity         Severity   `json:"severity"`
	CreatedAt        time.Time  `json:"created_at"`
}

// ToResponse converts a ThresholdRow to its public DTO.
func (r *ThresholdRow) ToResponse() ThresholdResponse {
	return ThresholdResponse{
		ID:               r.ID,
		MetricInstanceID: r.MetricInstanceID,
		Comparison:       r.Comparison,
		Value:            r.Value,
		Severity:         r.Severity,
		CreatedAt:        r.CreatedAt,
	}
}
