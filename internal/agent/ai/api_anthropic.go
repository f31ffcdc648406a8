package ai

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/nexus-app/nexus/internal/logging"
)

const defaultMaxTokens = 4096

// Client talks to the Anthropic Messages API. The streamed body is reduced
// by StreamParser rather than the SDK's event iterator so partial lines are
// handled the same way regardless of how the transport splits them.
type Client struct {
	client anthropic.Client
}

// NewClient creates a client authenticated with apiKey. baseURL may be
// empty. Automatic retries are disabled; the orchestrator decides what to
// do with failures.
func NewClient(apiKey, baseURL string, opts ...option.RequestOption) *Client {
	all := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		all = append(all, option.WithBaseURL(baseURL))
	}
	all = append(all, opts...)
	return &Client{client: anthropic.NewClient(all...)}
}

// Stream sends req with streaming enabled and parses the response.
func (c *Client) Stream(ctx context.Context, req *ChatRequest, onText func(string)) (*StreamResult, error) {
	params := c.buildParams(req)

	logging.Debugf("[Anthropic] Sending request: model=%s messages=%d tools=%d",
		req.Model, len(params.Messages), len(params.Tools))

	var resp *http.Response
	err := c.client.Post(ctx, "v1/messages", params, &resp,
		option.WithJSONSet("stream", true),
		option.WithHeader("Accept", "text/event-stream"),
	)
	if err != nil {
		return nil, wrapRequestError(err)
	}
	defer resp.Body.Close()

	res, err := ParseStream(resp.Body, onText)
	if err != nil {
		return nil, err
	}
	if !res.Started {
		return nil, &ProviderError{Kind: KindTransport, Message: "malformed response: stream ended before message_start"}
	}
	if res.Skipped > 0 {
		logging.Warnf("[Anthropic] skipped %d malformed stream events", res.Skipped)
	}
	return res, nil
}

func (c *Client) buildParams(req *ChatRequest) anthropic.MessageNewParams {
	maxTokens := int64(defaultMaxTokens)
	if req.MaxTokens > 0 {
		maxTokens = int64(req.MaxTokens)
	}
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Model),
		MaxTokens: maxTokens,
		Messages:  buildMessages(req.Messages),
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}
	if len(req.Tools) > 0 {
		params.Tools = buildTools(req.Tools)
	}
	return params
}

func buildTools(defs []ToolDefinition) []anthropic.ToolUnionParam {
	tools := make([]anthropic.ToolUnionParam, 0, len(defs))
	for _, tool := range defs {
		var schema struct {
			Properties any      `json:"properties"`
			Required   []string `json:"required"`
		}
		if err := json.Unmarshal(tool.InputSchema, &schema); err != nil {
			logging.Errorf("[Anthropic] Failed to parse tool schema for %s: %v", tool.Name, err)
			continue
		}
		toolParam := anthropic.ToolParam{
			Name:        tool.Name,
			Description: anthropic.String(tool.Description),
			InputSchema: anthropic.ToolInputSchemaParam{
				Properties: schema.Properties,
				Required:   schema.Required,
			},
		}
		tools = append(tools, anthropic.ToolUnionParam{OfTool: &toolParam})
	}
	return tools
}

// buildMessages converts the outgoing message list to API params. Leading
// assistant entries (left behind by history trimming) are dropped because
// the conversation must open with a user turn.
func buildMessages(msgs []Message) []anthropic.MessageParam {
	var result []anthropic.MessageParam
	for _, msg := range msgs {
		switch msg.Role {
		case RoleUser:
			if len(msg.ToolResults) > 0 {
				blocks := make([]anthropic.ContentBlockParamUnion, 0, len(msg.ToolResults))
				for _, r := range msg.ToolResults {
					blocks = append(blocks, anthropic.NewToolResultBlock(r.ToolCallID, r.Content, r.IsError))
				}
				result = append(result, anthropic.NewUserMessage(blocks...))
				continue
			}
			// Empty text blocks are rejected upstream
			if msg.Text == "" {
				continue
			}
			result = append(result, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Text)))

		case RoleAssistant:
			if len(result) == 0 {
				continue
			}
			var blocks []anthropic.ContentBlockParamUnion
			if msg.Text != "" {
				blocks = append(blocks, anthropic.NewTextBlock(msg.Text))
			}
			for _, tc := range msg.ToolCalls {
				var input map[string]any
				if err := json.Unmarshal(tc.Input, &input); err != nil || input == nil {
					input = map[string]any{}
				}
				blocks = append(blocks, anthropic.ContentBlockParamUnion{
					OfToolUse: &anthropic.ToolUseBlockParam{
						ID:    tc.ID,
						Name:  tc.Name,
						Input: input,
					},
				})
			}
			if len(blocks) > 0 {
				result = append(result, anthropic.MessageParam{
					Role:    anthropic.MessageParamRoleAssistant,
					Content: blocks,
				})
			}
		}
	}
	return result
}
