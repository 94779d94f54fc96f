package conversation

import (
	"context"
	"errors"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChatCompleter struct {
	response openai.ChatCompletionResponse
	err      error
	request  openai.ChatCompletionRequest
}

func (f *fakeChatCompleter) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.request = req
	if f.err != nil {
		return openai.ChatCompletionResponse{}, f.err
	}
	return f.response, nil
}

func TestOpenAIClientComplete(t *testing.T) {
	fake := &fakeChatCompleter{
		response: openai.ChatCompletionResponse{
			Choices: []openai.ChatCompletionChoice{{
				Message: openai.ChatCompletionMessage{Content: "Great, what's your monthly bill?"},
			}},
			Usage: openai.Usage{PromptTokens: 120, CompletionTokens: 18, TotalTokens: 138},
		},
	}
	client := NewOpenAIClient(fake, "", 0, nil)

	result, err := client.Complete(context.Background(), CompletionRequest{
		Messages: []ChatMessage{
			{Role: ChatRoleSystem, Content: "persona"},
			{Role: ChatRoleUser, Content: "yes I own it"},
		},
		Temperature: 0.7,
		MaxTokens:   200,
	})
	require.NoError(t, err)

	assert.Equal(t, "Great, what's your monthly bill?", result.Reply)
	assert.Nil(t, result.Action)
	assert.Equal(t, int32(138), result.Usage.TotalTokens)

	assert.Equal(t, "gpt-4o", fake.request.Model)
	assert.Len(t, fake.request.Messages, 2)
	assert.Len(t, fake.request.Tools, 3, "all qualification actions must be declared")
}

func TestOpenAIClientCompleteToolCall(t *testing.T) {
	fake := &fakeChatCompleter{
		response: openai.ChatCompletionResponse{
			Choices: []openai.ChatCompletionChoice{{
				Message: openai.ChatCompletionMessage{
					Content: "You're a great fit!",
					ToolCalls: []openai.ToolCall{{
						Function: openai.FunctionCall{
							Name:      ActionQualifyLead,
							Arguments: `{"is_homeowner":true,"monthly_bill":200}`,
						},
					}},
				},
			}},
		},
	}
	client := NewOpenAIClient(fake, "gpt-4o-mini", time.Minute, nil)

	result, err := client.Complete(context.Background(), CompletionRequest{})
	require.NoError(t, err)

	require.NotNil(t, result.Action)
	assert.Equal(t, ActionQualifyLead, result.Action.Name)
	assert.JSONEq(t, `{"is_homeowner":true,"monthly_bill":200}`, string(result.Action.Arguments))
}

func TestOpenAIClientCompleteErrors(t *testing.T) {
	t.Run("api error", func(t *testing.T) {
		fake := &fakeChatCompleter{err: errors.New("429 rate limit")}
		client := NewOpenAIClient(fake, "", 0, nil)

		_, err := client.Complete(context.Background(), CompletionRequest{})
		assert.ErrorContains(t, err, "openai completion failed")
	})

	t.Run("no choices", func(t *testing.T) {
		fake := &fakeChatCompleter{}
		client := NewOpenAIClient(fake, "", 0, nil)

		_, err := client.Complete(context.Background(), CompletionRequest{})
		assert.ErrorContains(t, err, "no choices")
	})
}
