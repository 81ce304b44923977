package extraction

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Client defines the Anthropic API operations the LLM extraction service
// uses. Tests substitute a fake.
type Client interface {
	CreateMessage(ctx context.Context, req MessageRequest) (*MessageResponse, error)
}

// MessageRequest is our own request type for CreateMessage.
type MessageRequest struct {
	Model     string
	MaxTokens int64
	System    string
	Messages  []Message
}

// Message represents a single conversational message.
type Message struct {
	Role    string // "user" or "assistant"
	Content string
}

// MessageResponse is our own response type from CreateMessage.
type MessageResponse struct {
	ID         string
	Model      string
	Content    []ContentBlock
	StopReason string
}

// ContentBlock represents a block of content in a response.
type ContentBlock struct {
	Type string
	Text string
}

// sdkClient implements Client using the official anthropic-sdk-go.
type sdkClient struct {
	client sdk.Client
}

// NewClient creates an Anthropic client backed by the SDK.
func NewClient(apiKey string) Client {
	return &sdkClient{
		client: sdk.NewClient(
			option.WithAPIKey(apiKey),
		),
	}
}

func (c *sdkClient) CreateMessage(ctx context.Context, req MessageRequest) (*MessageResponse, error) {
	params := sdk.MessageNewParams{
		Model:     sdk.Model(req.Model),
		MaxTokens: req.MaxTokens,
		Messages:  toSDKMessages(req.Messages),
	}
	if req.System != "" {
		params.System = []sdk.TextBlockParam{{Text: req.System}}
	}

	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return nil, eris.Wrap(err, "extraction: create message")
	}

	blocks := make([]ContentBlock, 0, len(msg.Content))
	for _, b := range msg.Content {
		blocks = append(blocks, ContentBlock{Type: b.Type, Text: b.Text})
	}
	return &MessageResponse{
		ID:         msg.ID,
		Model:      string(msg.Model),
		Content:    blocks,
		StopReason: string(msg.StopReason),
	}, nil
}

func toSDKMessages(msgs []Message) []sdk.MessageParam {
	out := make([]sdk.MessageParam, len(msgs))
	for i, m := range msgs {
		block := sdk.NewTextBlock(m.Content)
		switch m.Role {
		case "assistant":
			out[i] = sdk.NewAssistantMessage(block)
		default:
			out[i] = sdk.NewUserMessage(block)
		}
	}
	return out
}

const llmSystemPrompt = `You are a listing extraction agent for a pet community exchange board. You read a user's free-text listing and produce structured JSON. Titles are short (at most 60 characters). The category must be one of: "Pet Food", "Supplies & Gear", "Medical Items", "Toys & Accessories", "Other". When an important field cannot be determined from the text, add a clarifying question for it instead of guessing; order questions most impactful first and ask at most 3. Always return valid JSON and nothing else.`

const parsePromptTemplate = `Listing type: %s

Listing text:
%s

Extract the listing. Return a valid JSON object:
{"parsed": {"title": "<short title>", "brand": "<brand or omit>", "category": "<one of the allowed categories>", "quantity": "<amount or omit>", "condition": "<condition or omit>", "expiration": "<date or omit>", "description": "<cleaned-up description>", "pet_type": "<target animal or omit>", "estimated_value": "<value or omit>"}, "questions": [{"field": "<field name>", "prompt": "<question for the user>", "suggested": ["<option>", ...]}]}`

const refinePromptTemplate = `Original listing text:
%s

Current extraction:
%s

The user answered these follow-up questions:
%s

Produce the refined extraction incorporating the answers. Keep fields the answers do not touch unchanged. Return a valid JSON object of the same shape, with "questions" empty:
{"parsed": {...}, "questions": []}`

// LLMService realizes the extraction contract directly against the Anthropic
// API instead of a remote extraction endpoint.
type LLMService struct {
	client    Client
	model     string
	maxTokens int64
}

// NewLLM creates an LLM-backed extraction service.
func NewLLM(client Client, model string) *LLMService {
	return &LLMService{client: client, model: model, maxTokens: 1024}
}

// Parse extracts a structured listing from free text.
func (s *LLMService) Parse(ctx context.Context, req ParseRequest) (*Result, error) {
	prompt := fmt.Sprintf(parsePromptTemplate, req.PostType, req.RawText)
	return s.complete(ctx, prompt)
}

// Refine folds question answers into an existing draft.
func (s *LLMService) Refine(ctx context.Context, req RefineRequest) (*Result, error) {
	parsedJSON, err := json.MarshalIndent(req.Parsed, "", "  ")
	if err != nil {
		return nil, eris.Wrap(err, "extraction: marshal draft")
	}

	var answers strings.Builder
	for _, a := range req.Answers {
		fmt.Fprintf(&answers, "- %s: %s\n", a.Field, a.Value)
	}
	if answers.Len() == 0 {
		answers.WriteString("(none)\n")
	}

	prompt := fmt.Sprintf(refinePromptTemplate, req.RawText, parsedJSON, answers.String())
	return s.complete(ctx, prompt)
}

func (s *LLMService) complete(ctx context.Context, prompt string) (*Result, error) {
	resp, err := s.client.CreateMessage(ctx, MessageRequest{
		Model:     s.model,
		MaxTokens: s.maxTokens,
		System:    llmSystemPrompt,
		Messages:  []Message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return nil, &NetworkError{Err: err}
	}

	text := extractText(resp)
	cleaned := cleanJSON(text)

	var res Result
	if unmarshalErr := json.Unmarshal([]byte(cleaned), &res); unmarshalErr != nil {
		zap.L().Warn("extraction: failed to parse model output",
			zap.String("model", s.model),
			zap.String("body", snippet([]byte(text))),
		)
		return nil, &MalformedResponseError{Err: unmarshalErr, Body: snippet([]byte(text))}
	}
	return normalize(&res), nil
}

func extractText(resp *MessageResponse) string {
	if resp == nil {
		return ""
	}
	var sb strings.Builder
	for _, b := range resp.Content {
		if b.Type == "" || b.Type == "text" {
			sb.WriteString(b.Text)
		}
	}
	return sb.String()
}

// cleanJSON strips markdown fences and extracts the JSON object.
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}

	return strings.TrimSpace(text)
}
