package llm

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ResilientGenerator guards a Generator with a circuit breaker and traces every call.
type ResilientGenerator struct {
	next    Generator
	name    string
	tracer  trace.Tracer
	breaker *gobreaker.CircuitBreaker
}

// WithCircuitBreaker wraps next so repeated provider failures open the circuit.
func WithCircuitBreaker(name string, next Generator) *ResilientGenerator {
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Printf("Circuit breaker %s changed from %s to %s", name, from, to)
		},
	}

	return &ResilientGenerator{
		next:    next,
		name:    name,
		tracer:  otel.Tracer("llm-generator"),
		breaker: gobreaker.NewCircuitBreaker(settings),
	}
}

// Generate implements Generator.
func (g *ResilientGenerator) Generate(ctx context.Context, req Request) (Result, error) {
	ctx, span := g.tracer.Start(ctx, "llm.generate")
	defer span.End()

	span.SetAttributes(
		attribute.String("llm.provider", g.name),
		attribute.Int("llm.messages", len(req.Messages)),
		attribute.Int("llm.tools", len(req.Tools)),
	)

	result, err := g.breaker.Execute(func() (interface{}, error) {
		return g.next.Generate(ctx, req)
	})
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("%s generation failed: %w", g.name, err)
	}

	res := result.(Result)
	_, toolRequested := res.(ToolRequested)
	span.SetAttributes(attribute.Bool("llm.tool_requested", toolRequested))

	return res, nil
}

// State exposes the breaker state for readiness checks.
func (g *ResilientGenerator) State() gobreaker.State {
	return g.breaker.State()
}
