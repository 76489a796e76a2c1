package chat

import (
	"context"

	"github.com/Zacy-Sokach/crmassist/internal/api"
)

// ChatSender is the part of api.Client the conversation needs.
type ChatSender interface {
	SendChat(ctx context.Context, message string, history []api.ChatMessage) (*api.ChatResponse, error)
}

// APITransport sends turns to the CRM backend's chat endpoint.
type APITransport struct {
	sender ChatSender
}

func NewAPITransport(sender ChatSender) *APITransport {
	return &APITransport{sender: sender}
}

func (t *APITransport) Send(ctx context.Context, message string, history []Message) (Result, error) {
	resp, err := t.sender.SendChat(ctx, message, toAPIMessages(history))
	if err != nil {
		return Result{}, err
	}
	return Result{
		Reply:   resp.Response,
		History: fromAPIMessages(resp.History),
		Trace:   fromAPISteps(resp.ThinkingSteps),
	}, nil
}

func toAPIMessages(msgs []Message) []api.ChatMessage {
	out := make([]api.ChatMessage, len(msgs))
	for i, m := range msgs {
		out[i] = api.TextMessage(string(m.Role), m.Content)
	}
	return out
}

func fromAPIMessages(msgs []api.ChatMessage) []Message {
	out := make([]Message, len(msgs))
	for i, m := range msgs {
		out[i] = Message{Role: Role(m.Role), Content: m.Content}
	}
	return out
}

func fromAPISteps(steps []api.ThinkingStep) []ReasoningStep {
	if len(steps) == 0 {
		return nil
	}
	out := make([]ReasoningStep, len(steps))
	for i, s := range steps {
		out[i] = ReasoningStep{
			Thought:     s.Thought,
			Action:      s.Action,
			ActionInput: s.ActionInput,
			Observation: s.Observation,
		}
	}
	return out
}
