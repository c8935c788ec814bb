package metric

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DBTX is satisfied by pgxpool.Pool and by a transaction, so the ingest
// pipeline can run definition/instance resolution inside its own
// transaction through the package-level functions that take one.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgx.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store provides pool-backed database operations for metric definitions,
// instances, and thresholds.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

const definitionColumns = `id, client_id, name, value_type, unit, suggested, created_at`

func scanDefinition(row pgx.Row) (DefinitionRow, error) {
	var r DefinitionRow
	err := row.Scan(&r.ID, &r.ClientID, &r.Name, &r.ValueType, &r.Unit, &r.Suggested, &r.CreatedAt)
	return r, err
}

// GetDefinitionByName looks up a MetricDefinition by (client_id, name).
func GetDefinitionByName(ctx context.Context, db DBTX, clientID uuid.UUID, name string) (DefinitionRow, error) {
	query := `SELECT ` + definitionColumns + ` FROM metric_definitions WHERE client_id = $1 AND name = $2`
	return scanDefinition(db.QueryRow(ctx, query, clientID, name))
}

// CreateDefinition inserts a new MetricDefinition.
func CreateDefinition(ctx context.Context, db DBTX, clientID uuid.UUID, name string, valueType ValueType, unit *string) (DefinitionRow, error) {
	query := `INSERT INTO metric_definitions (client_id, name, value_type, unit)
	VALUES ($1, $2, $3, $4)
	RETURNING ` + definitionColumns
	return scanDefinition(db.QueryRow(ctx, query, clientID, name, valueType, unit))
}

// ResolveDefinition resolves or creates a MetricDefinition by (client_id,
// name), matching §4.1: "if existing with different type, fail with
// VALIDATION".
func ResolveDefinition(ctx context.Context, db DBTX, clientID uuid.UUID, name string, valueType ValueType, unit *string) (DefinitionRow, error) {
	existing, err := GetDefinitionByName(ctx, db, clientID, name)
	if err == nil {
		if existing.ValueType != valueType {
			return DefinitionRow{}, fmt.Errorf("%w: metric %q already has type %s, got %s", ErrTypeMismatch, name, existing.ValueType, valueType)
		}
		return existing, nil
	}
	if err != pgx.ErrNoRows {
		return DefinitionRow{}, fmt.Errorf("looking up metric definition: %w", err)
	}
	return CreateDefinition(ctx, db, clientID, name, valueType, unit)
}

// GetDefinition returns a MetricDefinition by ID.
func (s *Store) GetDefinition(ctx context.Context, id uuid.UUID) (DefinitionRow, error) {
	query := `SELECT ` + definitionColumns + ` FROM metric_definitions WHERE id = $1`
	return scanDefinition(s.pool.QueryRow(ctx, query, id))
}

func (s *Store) ListDefinitions(ctx context.Context, clientID uuid.UUID) ([]DefinitionRow, error) {
	query := `SELECT ` + definitionColumns + ` FROM metric_definitions WHERE client_id = $1 ORDER BY name`
	rows, err := s.pool.Query(ctx, query, clientID)
	if err != nil {
		return nil, fmt.Errorf("listing metric definitions: %w", err)
	}
	defer rows.Close()

	var items []DefinitionRow
	for rows.Next() {
		r, err := scanDefinition(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning metric definition row: %w", err)
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

const instanceColumns = `id, machine_id, definition_id, alert_enabled, paused, last_value_number, last_value_bool, last_value_string, last_value_at, state, pending_since, consecutive_failures`

func scanInstance(row pgx.Row) (InstanceRow, error) {
	var (
		r        InstanceRow
		numVal   pgtype.Float8
		boolVal  pgtype.Bool
		stringVal pgtype.Text
	)
	err := row.Scan(
		&r.ID, &r.MachineID, &r.DefinitionID, &r.AlertEnabled, &r.Paused,
		&numVal, &boolVal, &stringVal, &r.LastValueAt, &r.State,
		&r.PendingSince, &r.ConsecutiveFailures,
	)
	if err != nil {
		return r, err
	}
	r.LastValue = coalesceValue(numVal, boolVal, stringVal)
	return r, nil
}

func coalesceValue(numVal pgtype.Float8, boolVal pgtype.Bool, stringVal pgtype.Text) *Value {
	switch {
	case numVal.Valid:
		v := NumberValue(numVal.Float64)
		return &v
	case boolVal.Valid:
		v := BoolValue(boolVal.Bool)
		return &v
	case stringVal.Valid:
		v := StringValue(stringVal.String)
		return &v
	default:
		return nil
	}
}

// GetInstanceByMachineDefinition resolves a MetricInstance by its unique
// (machine_id, definition_id) pair.
func GetInstanceByMachineDefinition(ctx context.Context, db DBTX, machineID, definitionID uuid.UUID) (InstanceRow, error) {
	query := `SELECT ` + instanceColumns + ` FROM metric_instances WHERE machine_id = $1 AND definition_id = $2`
	return scanInstance(db.QueryRow(ctx, query, machineID, definitionID))
}

// CreateInstance inserts a new MetricInstance.
func CreateInstance(ctx context.Context, db DBTX, machineID, definitionID uuid.UUID) (InstanceRow, error) {
	query := `INSERT INTO metric_instances (machine_id, definition_id) VALUES ($1, $2) RETURNING ` + instanceColumns
	return scanInstance(db.QueryRow(ctx, query, machineID, definitionID))
}

// ResolveInstance resolves or creates a MetricInstance for (machine,
// definition), per §4.1.
func ResolveInstance(ctx context.Context, db DBTX, machineID, definitionID uuid.UUID) (InstanceRow, error) {
	existing, err := GetInstanceByMachineDefinition(ctx, db, machineID, definitionID)
	if err == nil {
		return existing, nil
	}
	if err != pgx.ErrNoRows {
		return InstanceRow{}, fmt.Errorf("looking up metric instance: %w", err)
	}
	return CreateInstance(ctx, db, machineID, definitionID)
}

// UpdateLastValue records the latest observed value for a MetricInstance.
func UpdateLastValue(ctx context.Context, db DBTX, instanceID uuid.UUID, v Value, at pgtype.Timestamptz) error {
	var numVal, boolVal, stringVal any
	switch v.Type {
	case TypeNumber:
		numVal = v.Number
	case TypeBool:
		boolVal = v.Bool
	case TypeString:
		stringVal = v.String
	}
	query := `UPDATE metric_instances
	SET last_value_number = $2, last_value_bool = $3, last_value_string = $4, last_value_at = $5
	WHERE id = $1`
	_, err := db.Exec(ctx, query, instanceID, numVal, boolVal, stringVal, at)
	return err
}

// UpdateState writes the evaluator-owned lifecycle fields.
func UpdateState(ctx context.Context, db DBTX, instanceID uuid.UUID, state State, pendingSince *pgtype.Timestamptz, consecutiveFailures int) error {
	query := `UPDATE metric_instances SET state = $2, pending_since = $3, consecutive_failures = $4 WHERE id = $1`
	var ps any
	if pendingSince != nil {
		ps = *pendingSince
	}
	_, err := db.Exec(ctx, query, instanceID, state, ps, consecutiveFailures)
	return err
}

func (s *Store) GetInstance(ctx context.Context, id uuid.UUID) (InstanceRow, error) {
	query := `SELECT ` + instanceColumns + ` FROM metric_instances WHERE id = $1`
	return scanInstance(s.pool.QueryRow(ctx, query, id))
}

func (s *Store) SetAlertEnabled(ctx context.Context, id uuid.UUID, enabled bool) error {
	tag, err := s.pool.Exec(ctx, `UPDATE metric_instances SET alert_enabled = $2 WHERE id = $1`, id, enabled)
	if err != nil {
		return fmt.Errorf("updating alert_enabled: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (s *Store) SetPaused(ctx context.Context, id uuid.UUID, paused bool) error {
	tag, err := s.pool.Exec(ctx, `UPDATE metric_instances SET paused = $2 WHERE id = $1`, id, paused)
	if err != nil {
		return fmt.Errorf("updating paused: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// ListInstancesByMachine returns every MetricInstance for a machine, joined
// with its definition name.
func (s *Store) ListInstancesByMachine(ctx context.Context, machineID uuid.UUID) ([]InstanceRow, map[uuid.UUID]string, error) {
	query := `SELECT mi.id, mi.machine_id, mi.definition_id, mi.alert_enabled, mi.paused,
		mi.last_value_number, mi.last_value_bool, mi.last_value_string, mi.last_value_at,
		mi.state, mi.pending_since, mi.consecutive_failures, md.name
	FROM metric_instances mi
	JOIN metric_definitions md ON md.id = mi.definition_id
	WHERE mi.machine_id = $1
	ORDER BY md.name`

	rows, err := s.pool.Query(ctx, query, machineID)
	if err != nil {
		return nil, nil, fmt.Errorf("listing metric instances: %w", err)
	}
	defer rows.Close()

	var items []InstanceRow
	names := make(map[uuid.UUID]string)
	for rows.Next() {
		var (
			r         InstanceRow
			numVal    pgtype.Float8
			boolVal   pgtype.Bool
			stringVal pgtype.Text
			name      string
		)
		if err := rows.Scan(
			&r.ID, &r.MachineID, &r.DefinitionID, &r.AlertEnabled, &r.Paused,
			&numVal, &boolVal, &stringVal, &r.LastValueAt, &r.State,
			&r.PendingSince, &r.ConsecutiveFailures, &name,
		); err != nil {
			return nil, nil, fmt.Errorf("scanning metric instance row: %w", err)
		}
		r.LastValue = coalesceValue(numVal, boolVal, stringVal)
		items = append(items, r)
		names[r.ID] = name
	}
	return items, names, rows.Err()
}

const thresholdColumns = `id, metric_instance_id, comparison, value_number, value_bool, value_string, severity, created_at`

func scanThreshold(row pgx.Row) (ThresholdRow, error) {
	var (
		r         ThresholdRow
		numVal    pgtype.Float8
		boolVal   pgtype.Bool
		stringVal pgtype.Text
	)
	err := row.Scan(&r.ID, &r.MetricInstanceID, &r.Comparison, &numVal, &boolVal, &stringVal, &r.Severity, &r.CreatedAt)
	if err != nil {
		return r, err
	}
	if v := coalesceValue(numVal, boolVal, stringVal); v != nil {
		r.Value = *v
	}
	return r, nil
}

// ListPending returns every MetricInstance currently mid-grace-period,
// joined through to its owning client, for the periodic evaluate sweep that
// catches a grace period elapsing with no new incoming sample.
func (s *Store) ListPending(ctx context.Context) ([]PendingInstance, error) {
	query := `SELECT m.client_id, mi.id
	FROM metric_instances mi
	JOIN machines m ON m.id = mi.machine_id
	WHERE mi.pending_since IS NOT NULL AND mi.paused = false`
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing pending metric instances: %w", err)
	}
	defer rows.Close()

	var items []PendingInstance
	for rows.Next() {
		var p PendingInstance
		if err := rows.Scan(&p.ClientID, &p.InstanceID); err != nil {
			return nil, fmt.Errorf("scanning pending metric instance: %w", err)
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

// GetThreshold returns the at-most-one Threshold for a MetricInstance.
func (s *Store) GetThreshold(ctx context.Context, instanceID uuid.UUID) (ThresholdRow, error) {
	query := `SELECT ` + thresholdColumns + ` FROM thresholds WHERE metric_instance_id = $1`
	return scanThreshold(s.pool.QueryRow(ctx, query, instanceID))
}

// UpsertThreshold installs or replaces the Threshold for a MetricInstance.
func (s *Store) UpsertThreshold(ctx context.Context, instanceID uuid.UUID, comparison Comparison, value Value, severity Severity) (ThresholdRow, error) {
	var numVal, boolVal, stringVal any
	switch value.Type {
	case TypeNumber:
		numVal = value.Number
	case TypeBool:
		boolVal = value.Bool
	case TypeString:
		stringVal = value.String
	}

	query := `INSERT INTO thresholds (metric_instance_id, comparison, value_number, value_bool, value_string, severity)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (metric_instance_id) DO UPDATE SET
		comparison = EXCLUDED.comparison,
		value_number = EXCLUDED.value_number,
		value_bool = EXCLUDED.value_bool,
		value_string = EXCLUDED.value_string,
		severity = EXCLUDED.severity
	RETURNING ` + thresholdColumns

	row := s.pool.QueryRow(ctx, query, instanceID, comparison, numVal, boolVal, stringVal, severity)
	return scanThreshold(row)
}

// ErrTypeMismatch is returned when a batch tries to redefine a
// MetricDefinition's value_type.
var ErrTypeMismatch = fmt.Errorf("metric type mismatch")
