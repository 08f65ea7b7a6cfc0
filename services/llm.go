package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"google.golang.org/genai"
)

// LLMModelName is the Gemini model used for reasoning calls.
type LLMModelName int32

const (
	Pro25 LLMModelName = iota
	Flash25
	FlashLite25
	Flash20
)

func (t LLMModelName) String() string {
	switch t {
	case Pro25:
		return "gemini-2.5-pro"
	case Flash25:
		return "gemini-2.5-flash"
	case FlashLite25:
		return "gemini-2.5-flash-lite"
	case Flash20:
		return "gemini-2.0-flash"
	default:
		return "gemini-2.5-flash"
	}
}

func ParseLLMModelName(name string) LLMModelName {
	for _, model := range []LLMModelName{Pro25, Flash25, FlashLite25, Flash20} {
		if model.String() == name {
			return model
		}
	}
	return Flash25
}

func floatPointer(f float32) *float32 {
	return &f
}

func Int32Pointer(i int32) *int32 {
	return &i
}

type ReasoningRequest struct {
	SystemPrompt    string
	Prompt          string
	Temperature     float32
	MaxOutputTokens int32
	// asks the model for application/json output
	JSON bool
}

type LLMResponse struct {
	Response           string `json:"response"`
	Model              string `json:"model"`
	Truncated          bool   `json:"truncated"`
	InputTokenCount    int32  `json:"input_token_count"`
	Thoughts           string `json:"thoughts"`
	ThoughtsTokenCount int32  `json:"thoughts_token_count"`
	OutputTokenCount   int32  `json:"output_token_count"`
	TotalTokenCount    int32  `json:"total_token_count"`
}

// Reasoner is the structured-output language model capability.
// Failures of the call itself are returned as *ReasoningError.
type Reasoner interface {
	Generate(ctx context.Context, req ReasoningRequest) (*LLMResponse, error)
}

type GoogleReasoner struct {
	APIKey string
	Model  LLMModelName
}

func (g GoogleReasoner) Generate(ctx context.Context, req ReasoningRequest) (*LLMResponse, error) {
	if g.APIKey == "" {
		return nil, &ReasoningError{Kind: ReasoningAuth, Message: "GOOGLE_API_KEY is not set"}
	}
	log := logrus.WithFields(logrus.Fields{"provider": "gemini", "model": g.Model.String()})
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  g.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, &ReasoningError{Kind: ReasoningAuth, Message: err.Error()}
	}
	genConfig := &genai.GenerateContentConfig{
		CandidateCount:  1,
		MaxOutputTokens: req.MaxOutputTokens,
		Temperature:     floatPointer(req.Temperature),
	}
	if req.SystemPrompt != "" {
		genConfig.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: req.SystemPrompt}},
		}
	}
	if req.JSON {
		genConfig.ResponseMIMEType = "application/json"
	}

	result, err := client.Models.GenerateContent(ctx, g.Model.String(), []*genai.Content{{Parts: []*genai.Part{{Text: req.Prompt}}}}, genConfig)
	if err != nil {
		log.WithError(err).Error("GenerateContent failed")
		return nil, classifyGenAIError(err)
	}
	if result.PromptFeedback != nil && result.PromptFeedback.BlockReason != "" {
		return nil, &ReasoningError{Kind: ReasoningUpstream, Message: fmt.Sprintf("prompt blocked: %s %s", result.PromptFeedback.BlockReason, result.PromptFeedback.BlockReasonMessage)}
	}

	response := &LLMResponse{Model: g.Model.String()}
	if result.UsageMetadata != nil {
		response.InputTokenCount = result.UsageMetadata.PromptTokenCount
		response.ThoughtsTokenCount = result.UsageMetadata.ThoughtsTokenCount
		response.OutputTokenCount = result.UsageMetadata.CandidatesTokenCount
		response.TotalTokenCount = result.UsageMetadata.TotalTokenCount
	}
	text, err := GetFirstCandidateTextWithThoughts(result)
	if err != nil {
		return nil, &ReasoningError{Kind: ReasoningUpstream, Message: err.Error()}
	}
	response.Response = text.Text
	response.Thoughts = text.Thoughts
	response.Truncated = text.FinishReason == genai.FinishReasonMaxTokens
	log.WithFields(logrus.Fields{
		"input_tokens":  response.InputTokenCount,
		"output_tokens": response.OutputTokenCount,
		"total_tokens":  response.TotalTokenCount,
		"finish_reason": text.FinishReason,
	}).Debug("reasoning call finished")
	return response, nil
}

func classifyGenAIError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		kind := ReasoningUpstream
		if apiErr.Code == 401 || apiErr.Code == 403 {
			kind = ReasoningAuth
		}
		return &ReasoningError{Kind: kind, StatusCode: apiErr.Code, Message: apiErr.Message}
	}
	// anything that is not an API reply is a network or timeout problem
	return &ReasoningError{Kind: ReasoningTransport, Message: err.Error()}
}

type ResponseWithThoughts struct {
	Thoughts     string
	Text         string
	FinishReason genai.FinishReason
}

// GetFirstCandidateTextWithThoughts reads only the first candidate.
func GetFirstCandidateTextWithThoughts(result *genai.GenerateContentResponse) (*ResponseWithThoughts, error) {
	if result == nil || len(result.Candidates) == 0 {
		return nil, fmt.Errorf("response has no candidates")
	}
	candidate := result.Candidates[0]
	for _, rating := range candidate.SafetyRatings {
		if rating.Blocked {
			return nil, fmt.Errorf("content violation: blocked by %s", rating.Category)
		}
	}
	out := &ResponseWithThoughts{FinishReason: candidate.FinishReason}
	if candidate.Content == nil {
		return out, nil
	}
	var text strings.Builder
	for _, part := range candidate.Content.Parts {
		if part.Thought {
			out.Thoughts = part.Text
			continue
		}
		text.WriteString(part.Text)
	}
	out.Text = text.String()
	return out, nil
}

// cleanAIResponseText strips markdown code fences models sometimes wrap JSON in.
func cleanAIResponseText(text string) string {
	cleanContent := strings.TrimSpace(text)
	cleanContent = strings.TrimPrefix(cleanContent, "```json")
	cleanContent = strings.TrimPrefix(cleanContent, "```JSON")
	cleanContent = strings.TrimPrefix(cleanContent, "```")
	cleanContent = strings.TrimSuffix(cleanContent, "```")
	return strings.TrimSpace(cleanContent)
}

const logSnippetLimit = 160

func logSnippet(value string) string {
	value = strings.TrimSpace(value)
	runes := []rune(value)
	if len(runes) <= logSnippetLimit {
		return value
	}
	return string(runes[:logSnippetLimit]) + "..."
}
