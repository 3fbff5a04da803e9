// Package chat answers follow-up questions about an accepted itinerary.
package chat

import (
	"context"
	"fmt"
	"log"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/bizmatters/agent-builder/travel-planner/internal/llm"
	"github.com/bizmatters/agent-builder/travel-planner/internal/models"
	"github.com/bizmatters/agent-builder/travel-planner/internal/search"
)

// SearchToolName is the tool name advertised to the generator.
const SearchToolName = "web_search"

var searchTool = llm.ToolDescriptor{
	Name:        SearchToolName,
	Description: "Search the web for real-time travel information such as weather, restaurants, opening hours and events.",
	Parameters: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]any{
				"type":        "string",
				"description": "The search query",
			},
		},
		"required": []string{"query"},
	},
}

type searchArgs struct {
	Query string `json:"query"`
}

// Assistant answers one user turn at a time with an optional web search.
type Assistant struct {
	gen          llm.Generator
	tool         search.Tool
	temperature  float32
	historyLimit int
	tracer       trace.Tracer
}

// NewAssistant creates an Assistant. Only the last historyLimit turns are sent
// to the generator; zero or less sends the whole history.
func NewAssistant(gen llm.Generator, tool search.Tool, temperature float32, historyLimit int) *Assistant {
	return &Assistant{
		gen:          gen,
		tool:         tool,
		temperature:  temperature,
		historyLimit: historyLimit,
		tracer:       otel.Tracer("travel-planner"),
	}
}

// Reply produces the assistant's answer to the last turn of history. At most
// one tool call is honoured per turn. A failed search is reported in the reply
// text; only generator errors are returned.
func (a *Assistant) Reply(ctx context.Context, history []models.ChatTurn, itinerary string) (string, error) {
	ctx, span := a.tracer.Start(ctx, "chat.reply")
	defer span.End()
	span.SetAttributes(attribute.Int("chat.history_length", len(history)))

	messages := a.buildMessages(history, itinerary)
	req := llm.Request{
		Messages:    messages,
		Tools:       []llm.ToolDescriptor{searchTool},
		Temperature: a.temperature,
	}

	result, err := a.gen.Generate(ctx, req)
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("chat: %w", err)
	}

	requested, ok := result.(llm.ToolRequested)
	if !ok {
		return result.Text(), nil
	}
	call := requested.First()
	if call.Name != SearchToolName {
		return result.Text(), nil
	}
	span.SetAttributes(attribute.Bool("chat.tool_used", true))

	output, err := a.runSearch(ctx, call)
	if err != nil {
		log.Printf(`{"level":"warn","message":"chat search failed","error":%q}`, err)
		return fmt.Sprintf("I tried to search but encountered an error: %v", err), nil
	}

	req.Messages = append(messages, requested.AssistantTurn(), llm.ToolResultMessage(call.ID, output))
	final, err := a.gen.Generate(ctx, req)
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("chat: %w", err)
	}
	return final.Text(), nil
}

func (a *Assistant) runSearch(ctx context.Context, call llm.ToolCall) (string, error) {
	var args searchArgs
	if err := call.DecodeArguments(&args); err != nil {
		return "", err
	}
	if args.Query == "" {
		return "", fmt.Errorf("tool %s called without a query", call.Name)
	}

	results, err := a.tool.Search(ctx, args.Query)
	if err != nil {
		return "", err
	}
	return search.Format(results), nil
}

func (a *Assistant) buildMessages(history []models.ChatTurn, itinerary string) []llm.Message {
	if a.historyLimit > 0 && len(history) > a.historyLimit {
		history = history[len(history)-a.historyLimit:]
	}

	messages := make([]llm.Message, 0, len(history)+1)
	messages = append(messages, llm.SystemMessage(systemPrompt(itinerary)))
	for _, turn := range history {
		switch turn.Role {
		case models.ChatRoleUser:
			messages = append(messages, llm.UserMessage(turn.Content))
		case models.ChatRoleAssistant:
			messages = append(messages, llm.AssistantMessage(turn.Content))
		}
	}
	return messages
}

func systemPrompt(itinerary string) string {
	return fmt.Sprintf(`You are a helpful travel assistant.
The user has just generated a travel itinerary (below).
Your goal is to answer follow-up questions about this trip, search for extra details (weather, specific restaurants, events), and provide helpful advice.

--- ITINERARY CONTEXT ---
%s
-------------------------

If the user asks for something not in the itinerary, use your search tool to find real-time info.
Be concise and friendly.`, itinerary)
}
