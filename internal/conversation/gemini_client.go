package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiClient implements LLMClient using Google's Gemini API, used as the
// fallback provider when OpenAI is unavailable.
type GeminiClient struct {
	client  *genai.Client
	modelID string
}

// NewGeminiClient creates a Gemini-backed completion client.
func NewGeminiClient(ctx context.Context, apiKey, modelID string) (*GeminiClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("conversation: gemini api key is required")
	}
	if strings.TrimSpace(modelID) == "" {
		modelID = "gemini-2.5-flash"
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("conversation: failed to create gemini client: %w", err)
	}

	return &GeminiClient{client: client, modelID: modelID}, nil
}

var _ LLMClient = (*GeminiClient)(nil)

func geminiTools() []*genai.Tool {
	return []*genai.Tool{{
		FunctionDeclarations: []*genai.FunctionDeclaration{
			{
				Name:        ActionQualifyLead,
				Description: "Updates the lead record once homeowner status, monthly electric bill, timeline, and interest level are known.",
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"is_homeowner":   {Type: genai.TypeBoolean, Description: "Whether the lead owns their home (true) or rents/leases (false)"},
						"monthly_bill":   {Type: genai.TypeNumber, Description: "Average monthly electric bill in dollars"},
						"timeline":       {Type: genai.TypeString, Enum: []string{"immediate", "3-6_months", "6-12_months", "exploring"}, Description: "Timeline for going solar"},
						"interest_level": {Type: genai.TypeInteger, Description: "Interest score 1-10. 8-10=hot, 5-7=warm, 1-4=cold"},
					},
					Required: []string{"is_homeowner"},
				},
			},
			{
				Name:        ActionBookAppointment,
				Description: "Books a consultation appointment for a qualified, interested lead.",
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"preferred_date": {Type: genai.TypeString, Description: "Preferred date for the appointment"},
						"preferred_time": {Type: genai.TypeString, Description: "Preferred time slot"},
						"contact_method": {Type: genai.TypeString, Enum: []string{"phone", "video"}, Description: "Preferred consultation method"},
					},
					Required: []string{"contact_method"},
				},
			},
			{
				Name:        ActionMarkUnqualified,
				Description: "Marks a lead as not qualified for solar (not a homeowner, very low bill, or not interested).",
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"reason": {Type: genai.TypeString, Description: "Reason for disqualification"},
					},
					Required: []string{"reason"},
				},
			},
		},
	}}
}

// Complete sends the transcript to Gemini with the qualification actions
// declared and translates the response back to the engine's shape.
func (c *GeminiClient) Complete(ctx context.Context, req CompletionRequest) (CompletionResult, error) {
	model := c.client.GenerativeModel(c.modelID)
	model.Tools = geminiTools()

	if req.Temperature >= 0 {
		model.SetTemperature(req.Temperature)
	}
	if req.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(req.MaxTokens))
	}

	var history []ChatMessage
	for _, msg := range req.Messages {
		if msg.Role == ChatRoleSystem {
			if strings.TrimSpace(msg.Content) != "" {
				model.SystemInstruction = genai.NewUserContent(genai.Text(msg.Content))
			}
			continue
		}
		history = append(history, msg)
	}
	if len(history) == 0 {
		return CompletionResult{}, errors.New("conversation: gemini requires at least one message")
	}

	cs := model.StartChat()
	for _, msg := range history[:len(history)-1] {
		content := strings.TrimSpace(msg.Content)
		if content == "" {
			continue
		}
		role := "user"
		if msg.Role == ChatRoleAssistant {
			role = "model"
		}
		cs.History = append(cs.History, &genai.Content{
			Role:  role,
			Parts: []genai.Part{genai.Text(content)},
		})
	}

	resp, err := cs.SendMessage(ctx, genai.Text(history[len(history)-1].Content))
	if err != nil {
		return CompletionResult{}, fmt.Errorf("conversation: gemini completion failed: %w", err)
	}
	if len(resp.Candidates) == 0 {
		return CompletionResult{}, errors.New("conversation: gemini returned no candidates")
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return CompletionResult{}, errors.New("conversation: gemini returned empty content")
	}

	var result CompletionResult
	var replyText strings.Builder
	for _, part := range candidate.Content.Parts {
		switch p := part.(type) {
		case genai.Text:
			replyText.WriteString(string(p))
		case genai.FunctionCall:
			if result.Action != nil {
				continue
			}
			args, err := json.Marshal(p.Args)
			if err != nil {
				return CompletionResult{}, fmt.Errorf("conversation: failed to encode gemini action arguments: %w", err)
			}
			result.Action = &ActionCall{Name: p.Name, Arguments: args}
		}
	}
	result.Reply = strings.TrimSpace(replyText.String())

	if resp.UsageMetadata != nil {
		result.Usage = TokenUsage{
			InputTokens:  resp.UsageMetadata.PromptTokenCount,
			OutputTokens: resp.UsageMetadata.CandidatesTokenCount,
			TotalTokens:  resp.UsageMetadata.TotalTokenCount,
		}
	}

	return result, nil
}

// Close releases resources held by the Gemini client.
func (c *GeminiClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}
