package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"

	openai "github.com/sashabaranov/go-openai"

	"github.com/bizmatters/agent-builder/travel-planner/internal/config"
)

// ChatClient captures the subset of the go-openai client used by the adapter.
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAIOptions configures the OpenAI adapter.
type OpenAIOptions struct {
	Client    ChatClient
	Model     string
	MaxTokens int
}

// OpenAIGenerator talks to OpenAI or any OpenAI-compatible endpoint such as Groq.
type OpenAIGenerator struct {
	chat      ChatClient
	model     string
	maxTokens int
}

// NewOpenAI builds a generator from an existing chat client.
func NewOpenAI(opts OpenAIOptions) (*OpenAIGenerator, error) {
	if opts.Client == nil {
		return nil, errors.New("openai client is required")
	}
	if opts.Model == "" {
		return nil, errors.New("model is required")
	}
	return &OpenAIGenerator{chat: opts.Client, model: opts.Model, maxTokens: opts.MaxTokens}, nil
}

// NewOpenAIFromConfig builds a generator using the go-openai HTTP client.
func NewOpenAIFromConfig(cfg config.LLMConfig) (*OpenAIGenerator, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("api key is required")
	}
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	clientConfig.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	return NewOpenAI(OpenAIOptions{
		Client:    openai.NewClientWithConfig(clientConfig),
		Model:     cfg.Model,
		MaxTokens: cfg.MaxTokens,
	})
}

// Generate implements Generator.
func (g *OpenAIGenerator) Generate(ctx context.Context, req Request) (Result, error) {
	if len(req.Messages) == 0 {
		return nil, errors.New("messages are required")
	}

	tools, err := encodeOpenAITools(req.Tools)
	if err != nil {
		return nil, err
	}

	// go-openai drops a zero temperature from the payload, which makes the API fall back to 1.
	temperature := req.Temperature
	if temperature == 0 {
		temperature = math.SmallestNonzeroFloat32
	}

	request := openai.ChatCompletionRequest{
		Model:       g.model,
		Messages:    encodeOpenAIMessages(req.Messages),
		Temperature: temperature,
		MaxTokens:   g.maxTokens,
		Tools:       tools,
	}

	response, err := g.chat.CreateChatCompletion(ctx, request)
	if err != nil {
		return nil, fmt.Errorf("openai chat completion: %w", err)
	}
	if len(response.Choices) == 0 {
		return nil, ErrNoChoices
	}

	msg := response.Choices[0].Message
	if len(msg.ToolCalls) == 0 {
		return TextOnly{Content: msg.Content}, nil
	}

	calls := make([]ToolCall, 0, len(msg.ToolCalls))
	for _, call := range msg.ToolCalls {
		calls = append(calls, ToolCall{
			ID:        call.ID,
			Name:      call.Function.Name,
			Arguments: json.RawMessage(call.Function.Arguments),
		})
	}
	return ToolRequested{Content: msg.Content, Calls: calls}, nil
}

func encodeOpenAIMessages(msgs []Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(msgs))
	for _, m := range msgs {
		msg := openai.ChatCompletionMessage{Role: string(m.Role), Content: m.Content}
		switch m.Role {
		case RoleAssistant:
			for _, call := range m.ToolCalls {
				msg.ToolCalls = append(msg.ToolCalls, openai.ToolCall{
					ID:   call.ID,
					Type: openai.ToolTypeFunction,
					Function: openai.FunctionCall{
						Name:      call.Name,
						Arguments: string(call.Arguments),
					},
				})
			}
		case RoleTool:
			msg.Role = openai.ChatMessageRoleTool
			msg.ToolCallID = m.ToolCallID
		}
		out = append(out, msg)
	}
	return out
}

func encodeOpenAITools(defs []ToolDescriptor) ([]openai.Tool, error) {
	if len(defs) == 0 {
		return nil, nil
	}
	tools := make([]openai.Tool, 0, len(defs))
	for _, def := range defs {
		params, err := json.Marshal(def.Parameters)
		if err != nil {
			return nil, fmt.Errorf("marshal tool %s schema: %w", def.Name, err)
		}
		tools = append(tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        def.Name,
				Description: def.Description,
				Parameters:  json.RawMessage(params),
			},
		})
	}
	return tools, nil
}
