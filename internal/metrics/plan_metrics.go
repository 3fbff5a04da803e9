package metrics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var meter = otel.Meter("travel-planner")

// PlanMetrics records planning run and chat activity.
type PlanMetrics struct {
	runsStartedCounter   metric.Int64Counter
	runsFinishedCounter  metric.Int64Counter
	runsActiveGauge      metric.Int64UpDownCounter
	runDurationHistogram metric.Float64Histogram
	revisionsHistogram   metric.Int64Histogram
	stageDuration        metric.Float64Histogram
	searchFailures       metric.Int64Counter
	chatTurnsCounter     metric.Int64Counter
}

// NewPlanMetrics creates the instruments on the global meter provider.
func NewPlanMetrics() (*PlanMetrics, error) {
	runsStartedCounter, err := meter.Int64Counter(
		"travel_planner.runs.started",
		metric.WithDescription("Total number of planning runs started"),
		metric.WithUnit("{run}"),
	)
	if err != nil {
		return nil, err
	}

	runsFinishedCounter, err := meter.Int64Counter(
		"travel_planner.runs.finished",
		metric.WithDescription("Total number of planning runs that reached a terminal status"),
		metric.WithUnit("{run}"),
	)
	if err != nil {
		return nil, err
	}

	runsActiveGauge, err := meter.Int64UpDownCounter(
		"travel_planner.runs.active",
		metric.WithDescription("Number of planning runs in progress"),
		metric.WithUnit("{run}"),
	)
	if err != nil {
		return nil, err
	}

	runDurationHistogram, err := meter.Float64Histogram(
		"travel_planner.run.duration",
		metric.WithDescription("Duration of planning runs in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	revisionsHistogram, err := meter.Int64Histogram(
		"travel_planner.run.revisions",
		metric.WithDescription("Number of revisions a run needed before stopping"),
		metric.WithUnit("{revision}"),
	)
	if err != nil {
		return nil, err
	}

	stageDuration, err := meter.Float64Histogram(
		"travel_planner.stage.duration",
		metric.WithDescription("Duration of a single loop stage in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	searchFailures, err := meter.Int64Counter(
		"travel_planner.search.failures",
		metric.WithDescription("Research queries that produced an error blob"),
		metric.WithUnit("{query}"),
	)
	if err != nil {
		return nil, err
	}

	chatTurnsCounter, err := meter.Int64Counter(
		"travel_planner.chat.turns",
		metric.WithDescription("Follow-up chat turns answered"),
		metric.WithUnit("{turn}"),
	)
	if err != nil {
		return nil, err
	}

	return &PlanMetrics{
		runsStartedCounter:   runsStartedCounter,
		runsFinishedCounter:  runsFinishedCounter,
		runsActiveGauge:      runsActiveGauge,
		runDurationHistogram: runDurationHistogram,
		revisionsHistogram:   revisionsHistogram,
		stageDuration:        stageDuration,
		searchFailures:       searchFailures,
		chatTurnsCounter:     chatTurnsCounter,
	}, nil
}

// RecordRunStarted records a new planning run
func (pm *PlanMetrics) RecordRunStarted(ctx context.Context, provider string) {
	pm.runsStartedCounter.Add(ctx, 1,
		metric.WithAttributes(attribute.String("llm.provider", provider)),
	)
	pm.runsActiveGauge.Add(ctx, 1)
}

// RecordRunFinished records a run reaching a terminal status.
func (pm *PlanMetrics) RecordRunFinished(ctx context.Context, status string, revisions int, duration time.Duration) {
	attrs := metric.WithAttributes(attribute.String("status", status))
	pm.runsFinishedCounter.Add(ctx, 1, attrs)
	pm.runDurationHistogram.Record(ctx, duration.Seconds(), attrs)
	pm.revisionsHistogram.Record(ctx, int64(revisions), attrs)
	pm.runsActiveGauge.Add(ctx, -1)
}

// RecordStage records the duration of one stage.
func (pm *PlanMetrics) RecordStage(ctx context.Context, stage string, duration time.Duration) {
	pm.stageDuration.Record(ctx, duration.Seconds(),
		metric.WithAttributes(attribute.String("stage", stage)),
	)
}

// RecordSearchFailures records research queries that failed.
func (pm *PlanMetrics) RecordSearchFailures(ctx context.Context, count int) {
	if count <= 0 {
		return
	}
	pm.searchFailures.Add(ctx, int64(count))
}

// RecordChatTurn records an answered chat turn
func (pm *PlanMetrics) RecordChatTurn(ctx context.Context, failed bool) {
	status := "answered"
	if failed {
		status = "failed"
	}
	pm.chatTurnsCounter.Add(ctx, 1,
		metric.WithAttributes(attribute.String("status", status)),
	)
}
