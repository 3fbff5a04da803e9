package search

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

// ResilientTool guards a search provider with a circuit breaker and traces every query.
type ResilientTool struct {
	next    Tool
	name    string
	tracer  trace.Tracer
	breaker *gobreaker.CircuitBreaker
}

// NewResilientTool wraps next in a circuit breaker named after the provider.
func NewResilientTool(name string, next Tool) *ResilientTool {
	settings := gobreaker.Settings{
		Name:        "search-" + name,
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

	return &ResilientTool{
		next:    next,
		name:    name,
		tracer:  otel.Tracer("search-tool"),
		breaker: gobreaker.NewCircuitBreaker(settings),
	}
}

// Search implements Tool.
func (r *ResilientTool) Search(ctx context.Context, query string) ([]Result, error) {
	ctx, span := r.tracer.Start(ctx, "search.query")
	defer span.End()

	span.SetAttributes(
		attribute.String("search.provider", r.name),
		attribute.String("search.query", query),
	)

	result, err := r.breaker.Execute(func() (interface{}, error) {
		return r.next.Search(ctx, query)
	})
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("%s search failed: %w", r.name, err)
	}

	results := result.([]Result)
	span.SetAttributes(attribute.Int("search.results", len(results)))
	return results, nil
}
