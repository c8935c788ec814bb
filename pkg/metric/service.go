package metric

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Service encapsulates metric definition/instance/threshold business logic.
type Service struct {
	store  *Store
	logger *slog.Logger
}

func NewService(pool *pgxpool.Pool, logger *slog.Logger) *Service {
	return &Service{store: NewStore(pool), logger: logger}
}

// ListByMachine returns every MetricInstance bound to a machine, joined with
// its definition name.
func (s *Service) ListByMachine(ctx context.Context, machineID uuid.UUID) ([]InstanceResponse, error) {
	rows, names, err := s.store.ListInstancesByMachine(ctx, machineID)
	if err != nil {
		return nil, fmt.Errorf("listing metric instances: %w", err)
	}
	items := make([]InstanceResponse, 0, len(rows))
	for i := range rows {
		items = append(items, rows[i].ToResponse(names[rows[i].ID]))
	}
	return items, nil
}

// SetAlertEnabled toggles whether a MetricInstance emits incident intents.
func (s *Service) SetAlertEnabled(ctx context.Context, id uuid.UUID, enabled bool) error {
	if err := s.store.SetAlertEnabled(ctx, id, enabled); err != nil {
		return fmt.Errorf("setting alert_enabled: %w", err)
	}
	return nil
}

// SetPaused toggles operator-suppression for a MetricInstance.
func (s *Service) SetPaused(ctx context.Context, id uuid.UUID, paused bool) error {
	if err := s.store.SetPaused(ctx, id, paused); err != nil {
		return fmt.Errorf("setting paused: %w", err)
	}
	return nil
}

// InstallDefaultThreshold installs the threshold for a MetricInstance using
// the requester-supplied comparison, value and severity. "default"
// names the slot, not a guessed value — see SPEC_FULL.md.
func (s *Service) InstallDefaultThreshold(ctx context.Context, instanceID uuid.UUID, req ThresholdRequest) (ThresholdRow, error) {
	instance, err := s.store.GetInstance(ctx, instanceID)
	if err != nil {
		return ThresholdRow{}, fmt.Errorf("getting metric instance: %w", err)
	}

	definition, err := s.definitionForInstance(ctx, instance)
	if err != nil {
		return ThresholdRow{}, err
	}

	value, err := coerceThresholdValue(definition.ValueType, req.Value)
	if err != nil {
		return ThresholdRow{}, err
	}

	row, err := s.store.UpsertThreshold(ctx, instanceID, req.Comparison, value, req.Severity)
	if err != nil {
		return ThresholdRow{}, fmt.Errorf("installing default threshold: %w", err)
	}
	return row, nil
}

func (s *Service) definitionForInstance(ctx context.Context, instance InstanceRow) (DefinitionRow, error) {
	return s.store.GetDefinition(ctx, instance.DefinitionID)
}

func coerceThresholdValue(valueType ValueType, raw any) (Value, error) {
	switch valueType {
	case TypeNumber:
		n, ok := raw.(float64)
		if !ok {
			return Value{}, fmt.Errorf("threshold value must be a number for this metric")
		}
		return NumberValue(n), nil
	case TypeBool:
		b, ok := raw.(bool)
		if !ok {
			return Value{}, fmt.Errorf("threshold value must be a boolean for this metric")
		}
		return BoolValue(b), nil
	case TypeString:
		str, ok := raw.(string)
		if !ok || str == "" {
			return Value{}, fmt.Errorf("threshold value must be a non-empty string for this metric")
		}
		return StringValue(str), nil
	default:
		return Value{}, fmt.Errorf("unknown metric value type %q", valueType)
	}
}
