package parking

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// InstrumentedCoordinator decorates the occupancy coordinator with traces and
// metrics. The guarantees live in the embedded Coordinator; this layer only
// observes.
type InstrumentedCoordinator struct {
	*Coordinator
	telemetry *TelemetryProvider

	enterOperations   metric.Int64Counter
	exitOperations    metric.Int64Counter
	occupancyGauge    metric.Int64UpDownCounter
	operationDuration metric.Float64Histogram
	fareCollected     metric.Float64Counter
	totalSlotsGauge   metric.Int64UpDownCounter
}

func NewInstrumentedCoordinator(coordinator *Coordinator, telemetry *TelemetryProvider) (*InstrumentedCoordinator, error) {
	meter := telemetry.Meter()

	enterOperations, err := meter.Int64Counter("parking_enter_operations_total",
		metric.WithDescription("Total number of enter transactions"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}

	exitOperations, err := meter.Int64Counter("parking_exit_operations_total",
		metric.WithDescription("Total number of exit transactions"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}

	occupancyGauge, err := meter.Int64UpDownCounter("parking_lot_occupancy",
		metric.WithDescription("Current number of occupied parking slots"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}

	operationDuration, err := meter.Float64Histogram("operation_duration_seconds",
		metric.WithDescription("Duration of occupancy transactions"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	fareCollected, err := meter.Float64Counter("parking_fare_collected_total",
		metric.WithDescription("Sum of fares debited on successful exits"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}

	totalSlotsGauge, err := meter.Int64UpDownCounter("parking_lot_total_slots",
		metric.WithDescription("Total number of provisioned parking slots"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}

	ic := &InstrumentedCoordinator{
		Coordinator:       coordinator,
		telemetry:         telemetry,
		enterOperations:   enterOperations,
		exitOperations:    exitOperations,
		occupancyGauge:    occupancyGauge,
		operationDuration: operationDuration,
		fareCollected:     fareCollected,
		totalSlotsGauge:   totalSlotsGauge,
	}

	totalSlotsGauge.Add(context.Background(), int64(coordinator.slots.Capacity()))

	return ic, nil
}

func (ic *InstrumentedCoordinator) Enter(ctx context.Context, v VehicleRef, at time.Time) (EnterReceipt, error) {
	tracer := ic.telemetry.Tracer()
	ctx, span := tracer.Start(ctx, "occupancy.enter",
		trace.WithAttributes(
			attribute.String("vehicle.plate", v.Plate),
			attribute.String("vehicle.class", string(v.Class)),
		))
	defer span.End()

	start := time.Now()
	receipt, err := ic.Coordinator.Enter(ctx, v, at)
	duration := time.Since(start).Seconds()

	labels := []attribute.KeyValue{
		attribute.String("operation", "enter"),
		attribute.String("vehicle_class", string(v.Class)),
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		labels = append(labels, attribute.String("status", enterFailureLabel(err)))
	} else {
		labels = append(labels, attribute.String("status", "success"))
		span.SetAttributes(attribute.Int("allocated_slot", receipt.SlotID))
		span.AddEvent("slot_allocated", trace.WithAttributes(
			attribute.Int("slot_number", receipt.SlotID),
		))
		ic.occupancyGauge.Add(ctx, 1)
	}

	ic.enterOperations.Add(ctx, 1, metric.WithAttributes(labels...))
	ic.operationDuration.Record(ctx, duration, metric.WithAttributes(labels...))

	return receipt, err
}

func (ic *InstrumentedCoordinator) Exit(ctx context.Context, v VehicleRef, at time.Time) (ExitReceipt, error) {
	tracer := ic.telemetry.Tracer()
	ctx, span := tracer.Start(ctx, "occupancy.exit",
		trace.WithAttributes(
			attribute.String("vehicle.plate", v.Plate),
			attribute.String("vehicle.class", string(v.Class)),
		))
	defer span.End()

	start := time.Now()
	receipt, err := ic.Coordinator.Exit(ctx, v, at)
	duration := time.Since(start).Seconds()

	labels := []attribute.KeyValue{
		attribute.String("operation", "exit"),
		attribute.String("vehicle_class", string(v.Class)),
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		labels = append(labels, attribute.String("status", exitFailureLabel(err)))
	} else {
		labels = append(labels, attribute.String("status", "success"))
		span.SetAttributes(
			attribute.Int("released_slot", receipt.SlotID),
			attribute.Int("duration_minutes", receipt.DurationMinutes),
			attribute.Float64("fare", receipt.Fare),
		)
		span.AddEvent("slot_released", trace.WithAttributes(
			attribute.Int("slot_number", receipt.SlotID),
		))
		ic.occupancyGauge.Add(ctx, -1)
		ic.fareCollected.Add(ctx, receipt.Fare, metric.WithAttributes(
			attribute.String("vehicle_class", string(v.Class)),
		))
	}

	ic.exitOperations.Add(ctx, 1, metric.WithAttributes(labels...))
	ic.operationDuration.Record(ctx, duration, metric.WithAttributes(labels...))

	return receipt, err
}

func (ic *InstrumentedCoordinator) Status(ctx context.Context) map[int]*string {
	tracer := ic.telemetry.Tracer()
	ctx, span := tracer.Start(ctx, "occupancy.status")
	defer span.End()

	status := ic.Coordinator.Status(ctx)

	occupied := 0
	for _, plate := range status {
		if plate != nil {
			occupied++
		}
	}
	span.SetAttributes(
		attribute.Int("occupied_slots_count", occupied),
		attribute.Int("total_slots", len(status)),
	)

	return status
}

func enterFailureLabel(err error) string {
	switch {
	case errors.Is(err, ErrAlreadyInside):
		return "already_inside"
	case errors.Is(err, ErrNoSlotAvailable):
		return "no_slot_available"
	default:
		return "error"
	}
}

func exitFailureLabel(err error) string {
	var insufficient *InsufficientFundsError
	switch {
	case errors.Is(err, ErrNotInside):
		return "not_inside"
	case errors.As(err, &insufficient):
		return "insufficient_funds"
	default:
		return "error"
	}
}
