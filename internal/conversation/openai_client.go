package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/rayfield/solar-ai-platform/pkg/logging"
)

var openaiTracer = otel.Tracer("solarai.internal.conversation.openai")

type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAIClient implements LLMClient against the OpenAI chat completions API
// with the qualification actions declared as tools.
type OpenAIClient struct {
	client  chatCompleter
	model   string
	timeout time.Duration
	logger  *logging.Logger
}

// NewOpenAIClient builds a client around the provided SDK handle.
func NewOpenAIClient(client chatCompleter, model string, timeout time.Duration, logger *logging.Logger) *OpenAIClient {
	if client == nil {
		panic("conversation: openai client cannot be nil")
	}
	if model == "" {
		model = "gpt-4o"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &OpenAIClient{client: client, model: model, timeout: timeout, logger: logger}
}

var _ LLMClient = (*OpenAIClient)(nil)

func openaiTools() []openai.Tool {
	tools := make([]openai.Tool, 0, len(qualificationActions))
	for _, action := range qualificationActions {
		tools = append(tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        action.Name,
				Description: action.Description,
				Parameters:  action.Parameters,
			},
		})
	}
	return tools
}

// Complete sends the transcript plus the action schema and decodes at most
// one tool call from the response.
func (c *OpenAIClient) Complete(ctx context.Context, req CompletionRequest) (CompletionResult, error) {
	ctx, span := openaiTracer.Start(ctx, "conversation.openai.complete")
	defer span.End()
	span.SetAttributes(attribute.String("solarai.model", c.model))

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages))
	for _, msg := range req.Messages {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		})
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		Tools:       openaiTools(),
		ToolChoice:  "auto",
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		span.RecordError(err)
		return CompletionResult{}, fmt.Errorf("conversation: openai completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return CompletionResult{}, errors.New("conversation: openai returned no choices")
	}

	choice := resp.Choices[0].Message
	result := CompletionResult{
		Reply: choice.Content,
		Usage: TokenUsage{
			InputTokens:  int32(resp.Usage.PromptTokens),
			OutputTokens: int32(resp.Usage.CompletionTokens),
			TotalTokens:  int32(resp.Usage.TotalTokens),
		},
	}

	if len(choice.ToolCalls) > 0 {
		call := choice.ToolCalls[0]
		result.Action = &ActionCall{
			Name:      call.Function.Name,
			Arguments: json.RawMessage(call.Function.Arguments),
		}
		if len(choice.ToolCalls) > 1 {
			c.logger.Warn("openai returned multiple tool calls, keeping first",
				"count", len(choice.ToolCalls),
			)
		}
	}

	return result, nil
}
