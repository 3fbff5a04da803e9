// Package llm wraps chat-completion providers behind a single Generator
// contract whose result is either plain text or a request to call a tool.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNoChoices is returned when a provider answers without any message.
var ErrNoChoices = errors.New("llm: response contained no choices")

// Role identifies the author of a Message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolCall is a tool invocation requested by the model.
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// DecodeArguments unmarshals the call arguments into v.
func (c ToolCall) DecodeArguments(v any) error {
	if len(c.Arguments) == 0 {
		return fmt.Errorf("tool %s called without arguments", c.Name)
	}
	if err := json.Unmarshal(c.Arguments, v); err != nil {
		return fmt.Errorf("invalid arguments for tool %s: %w", c.Name, err)
	}
	return nil
}

// Message is one entry of the conversation sent to a Generator.
// ToolCalls is only set on assistant messages, ToolCallID only on tool messages.
type Message struct {
	Role       Role
	Content    string
	ToolCalls  []ToolCall
	ToolCallID string
}

func SystemMessage(content string) Message    { return Message{Role: RoleSystem, Content: content} }
func UserMessage(content string) Message      { return Message{Role: RoleUser, Content: content} }
func AssistantMessage(content string) Message { return Message{Role: RoleAssistant, Content: content} }

// ToolResultMessage answers the tool call with the given correlation id.
func ToolResultMessage(callID, content string) Message {
	return Message{Role: RoleTool, Content: content, ToolCallID: callID}
}

// ToolDescriptor advertises a callable tool. Parameters is a JSON schema object.
type ToolDescriptor struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// Request is a single generation call.
type Request struct {
	Messages    []Message
	Tools       []ToolDescriptor
	Temperature float32
}

// Result is either TextOnly or ToolRequested.
type Result interface {
	Text() string
	isResult()
}

// TextOnly is a plain answer.
type TextOnly struct {
	Content string
}

func (r TextOnly) Text() string { return r.Content }
func (TextOnly) isResult()      {}

// ToolRequested asks the caller to run one or more tools. Calls is never empty.
type ToolRequested struct {
	Content string
	Calls   []ToolCall
}

func (r ToolRequested) Text() string { return r.Content }
func (ToolRequested) isResult()      {}

// First returns the first requested call.
func (r ToolRequested) First() ToolCall { return r.Calls[0] }

// AssistantTurn renders the request as the assistant message that must precede tool results.
func (r ToolRequested) AssistantTurn() Message {
	return Message{Role: RoleAssistant, Content: r.Content, ToolCalls: r.Calls}
}

// Generator produces the next assistant turn for a conversation.
type Generator interface {
	Generate(ctx context.Context, req Request) (Result, error)
}

// Complete sends a single user prompt without tools and returns the text of the answer.
func Complete(ctx context.Context, g Generator, temperature float32, prompt string) (string, error) {
	result, err := g.Generate(ctx, Request{
		Messages:    []Message{UserMessage(prompt)},
		Temperature: temperature,
	})
	if err != nil {
		return "", err
	}
	return result.Text(), nil
}
