package planner

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/bizmatters/agent-builder/travel-planner/internal/models"
	"github.com/bizmatters/agent-builder/travel-planner/internal/search"
)

// ResearchStage runs every planned query against the search tool.
type ResearchStage struct {
	tool        search.Tool
	concurrency int
}

// NewResearchStage creates the research stage. Queries run with at most
// concurrency searches in flight.
func NewResearchStage(tool search.Tool, concurrency int) *ResearchStage {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &ResearchStage{tool: tool, concurrency: concurrency}
}

// Run implements Stage. A failed query becomes an error blob in its slot;
// only cancellation of ctx aborts the stage.
func (s *ResearchStage) Run(ctx context.Context, state *models.PlanningState) (models.StateDelta, error) {
	blobs := make([]string, len(state.Plan))

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, query := range state.Plan {
		g.Go(func() error {
			results, err := s.tool.Search(ctx, query)
			if err != nil {
				blobs[i] = ErrorBlob(query, err)
				return nil
			}
			blobs[i] = ResultBlob(query, search.Format(results))
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return models.StateDelta{}, fmt.Errorf("research: %w", err)
	}
	return models.StateDelta{SearchResults: blobs}, nil
}

// ResultBlob records a successful query.
func ResultBlob(query, results string) string {
	return fmt.Sprintf("Query: %s\nResults: %s\n", query, results)
}

// ErrorBlob records a failed query.
func ErrorBlob(query string, err error) string {
	return fmt.Sprintf("Query: %s\nError: %v\n", query, err)
}

// IsErrorBlob reports whether blob was produced by ErrorBlob.
func IsErrorBlob(blob string) bool {
	_, rest, ok := strings.Cut(blob, "\n")
	return ok && strings.HasPrefix(rest, "Error: ")
}
