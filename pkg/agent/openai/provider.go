package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"ai-lending-be/internal/pkg/apperrors"
	"ai-lending-be/internal/pkg/logger"
	"ai-lending-be/pkg/agent"
)

// Provider talks to an OpenAI-compatible Assistants API. The remote service
// owns the conversation context (threads); this provider only moves messages
// in and out and extracts tool calls as structured intents.
type Provider struct {
	BaseURL      string
	APIKey       string
	Model        string
	AssistantID  string
	Instructions string
	PollInterval time.Duration
	Client       *http.Client

	logger logger.ILogger
}

var _ agent.Provider = &Provider{}

func NewProvider(baseURL, apiKey, model, assistantID, instructions string, log logger.ILogger) *Provider {
	return &Provider{
		BaseURL:      baseURL,
		APIKey:       apiKey,
		Model:        model,
		AssistantID:  assistantID,
		Instructions: instructions,
		PollInterval: 500 * time.Millisecond,
		Client: &http.Client{
			Timeout: 120 * time.Second,
		},
		logger: log,
	}
}

// --- Wire structs (internal to this package) ---

type assistantResource struct {
	Id string `json:"id"`
}

type threadResource struct {
	Id string `json:"id"`
}

type runResource struct {
	Id             string          `json:"id"`
	Status         string          `json:"status"`
	RequiredAction *requiredAction `json:"required_action,omitempty"`
}

type requiredAction struct {
	SubmitToolOutputs struct {
		ToolCalls []toolCall `json:"tool_calls"`
	} `json:"submit_tool_outputs"`
}

type toolCall struct {
	Id       string `json:"id"`
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}

type messageList struct {
	Data []struct {
		Role    string `json:"role"`
		Content []struct {
			Type string `json:"type"`
			Text struct {
				Value string `json:"value"`
			} `json:"text"`
		} `json:"content"`
	} `json:"data"`
}

type toolWire struct {
	Type     string `json:"type"`
	Function struct {
		Name        string          `json:"name"`
		Description string          `json:"description"`
		Parameters  json.RawMessage `json:"parameters"`
	} `json:"function"`
}

// --- Interface implementation ---

// EnsureAssistant retrieves the configured assistant or creates a new one
// with the current instruction set and tool schema. Safe to call repeatedly.
func (p *Provider) EnsureAssistant(ctx context.Context) (string, error) {
	if p.AssistantID != "" {
		var existing assistantResource
		err := p.call(ctx, http.MethodGet, "/assistants/"+p.AssistantID, nil, &existing)
		if err == nil {
			return existing.Id, nil
		}
		p.logger.Warn("AgentGateway", "Configured assistant not retrievable, creating a new one", map[string]interface{}{
			"assistant_id": p.AssistantID,
			"error":        err.Error(),
		})
	}

	tools := make([]toolWire, 0, len(agent.ToolDefinitions()))
	for _, def := range agent.ToolDefinitions() {
		var t toolWire
		t.Type = "function"
		t.Function.Name = def.Name
		t.Function.Description = def.Description
		t.Function.Parameters = def.Parameters
		tools = append(tools, t)
	}

	payload := map[string]interface{}{
		"name":         "Lucy - AI Loan Officer",
		"model":        p.Model,
		"instructions": p.Instructions,
		"tools":        tools,
	}

	var created assistantResource
	if err := p.call(ctx, http.MethodPost, "/assistants", payload, &created); err != nil {
		return "", fmt.Errorf("create assistant: %w", err)
	}
	p.AssistantID = created.Id
	p.logger.Info("AgentGateway", "Created assistant", map[string]interface{}{"assistant_id": created.Id})
	return created.Id, nil
}

func (p *Provider) CreateThread(ctx context.Context) (string, error) {
	var thread threadResource
	if err := p.call(ctx, http.MethodPost, "/threads", map[string]interface{}{}, &thread); err != nil {
		return "", fmt.Errorf("create thread: %w", err)
	}
	return thread.Id, nil
}

// Converse appends the utterance, starts a run, and polls until the run
// completes or demands a tool call. A tool call is returned as a validated
// Intent and the run is cancelled: executing business operations is the
// orchestrator's responsibility, not the gateway's. Malformed tool calls
// degrade to a plain reply.
func (p *Provider) Converse(ctx context.Context, threadHandle, utterance string) (*agent.Turn, error) {
	msgPayload := map[string]interface{}{
		"role":    "user",
		"content": utterance,
	}
	if err := p.call(ctx, http.MethodPost, "/threads/"+threadHandle+"/messages", msgPayload, nil); err != nil {
		return nil, fmt.Errorf("append message: %w", err)
	}

	var run runResource
	runPayload := map[string]interface{}{"assistant_id": p.AssistantID}
	if err := p.call(ctx, http.MethodPost, "/threads/"+threadHandle+"/runs", runPayload, &run); err != nil {
		return nil, fmt.Errorf("create run: %w", err)
	}

	for {
		switch run.Status {
		case "completed":
			reply, err := p.latestAssistantMessage(ctx, threadHandle)
			if err != nil {
				return nil, err
			}
			return &agent.Turn{Reply: reply}, nil

		case "requires_action":
			turn := p.turnFromToolCalls(run)
			// The run would otherwise sit open waiting for tool outputs.
			_ = p.call(ctx, http.MethodPost, "/threads/"+threadHandle+"/runs/"+run.Id+"/cancel", nil, nil)
			if turn != nil {
				return turn, nil
			}
			// Every tool call was malformed; fall back to a plain reply so
			// the conversation keeps moving.
			reply, err := p.latestAssistantMessage(ctx, threadHandle)
			if err != nil || reply == "" {
				return &agent.Turn{Reply: ""}, nil
			}
			return &agent.Turn{Reply: reply}, nil

		case "failed", "cancelled", "expired", "incomplete":
			return nil, fmt.Errorf("%w: run ended with status %s", apperrors.ErrGatewayError, run.Status)
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", apperrors.ErrGatewayTimeout, ctx.Err())
		case <-time.After(p.PollInterval):
		}

		if err := p.call(ctx, http.MethodGet, "/threads/"+threadHandle+"/runs/"+run.Id, nil, &run); err != nil {
			return nil, fmt.Errorf("poll run: %w", err)
		}
	}
}

func (p *Provider) turnFromToolCalls(run runResource) *agent.Turn {
	if run.RequiredAction == nil {
		return nil
	}
	for _, tc := range run.RequiredAction.SubmitToolOutputs.ToolCalls {
		intent, err := agent.ParseIntent(tc.Function.Name, []byte(tc.Function.Arguments))
		if err != nil {
			p.logger.Warn("AgentGateway", "IntentParseWarning: dropping malformed tool call", map[string]interface{}{
				"tool":  tc.Function.Name,
				"error": err.Error(),
			})
			continue
		}
		return &agent.Turn{Intent: intent}
	}
	return nil
}

func (p *Provider) latestAssistantMessage(ctx context.Context, threadHandle string) (string, error) {
	var msgs messageList
	if err := p.call(ctx, http.MethodGet, "/threads/"+threadHandle+"/messages?order=desc&limit=1", nil, &msgs); err != nil {
		return "", fmt.Errorf("list messages: %w", err)
	}
	if len(msgs.Data) == 0 || msgs.Data[0].Role != "assistant" {
		return "", nil
	}
	for _, part := range msgs.Data[0].Content {
		if part.Type == "text" {
			return part.Text.Value, nil
		}
	}
	return "", nil
}

func (p *Provider) call(ctx context.Context, method, path string, payload interface{}, out interface{}) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewBuffer(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.APIKey)
	req.Header.Set("OpenAI-Beta", "assistants=v2")

	resp, err := p.Client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
			return fmt.Errorf("%w: %v", apperrors.ErrGatewayTimeout, err)
		}
		return fmt.Errorf("%w: %v", apperrors.ErrGatewayError, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: status %d: %s", apperrors.ErrGatewayError, resp.StatusCode, truncate(raw, 200))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
