package extract

import (
	"context"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/docintake/internal/resilience"
)

// MessageRequest is the subset of a messages call the extractor needs.
type MessageRequest struct {
	Model     string
	MaxTokens int64
	System    string
	Messages  []Message
}

// Message is a single conversational message.
type Message struct {
	Role    string // "user" or "assistant"
	Content string
}

// MessageResponse is the extractor-facing response shape.
type MessageResponse struct {
	ID         string
	Model      string
	Text       string
	StopReason string
	Usage      TokenUsage
}

// TokenUsage tracks token consumption per call.
type TokenUsage struct {
	InputTokens  int64
	OutputTokens int64
}

// Client is the Anthropic API surface the extractor uses.
type Client interface {
	CreateMessage(ctx context.Context, req MessageRequest) (*MessageResponse, error)
}

// sdkClient implements Client with the official SDK.
type sdkClient struct {
	client sdk.Client
}

// NewClient creates an Anthropic client with the given API key.
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
		return nil, eris.Wrap(err, "extract: create message")
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}

	return &MessageResponse{
		ID:         msg.ID,
		Model:      string(msg.Model),
		Text:       sb.String(),
		StopReason: string(msg.StopReason),
		Usage: TokenUsage{
			InputTokens:  msg.Usage.InputTokens,
			OutputTokens: msg.Usage.OutputTokens,
		},
	}, nil
}

func toSDKMessages(msgs []Message) []sdk.MessageParam {
	out := make([]sdk.MessageParam, len(msgs))
	for i, m := range msgs {
		if m.Role == "assistant" {
			out[i] = sdk.NewAssistantMessage(sdk.NewTextBlock(m.Content))
		} else {
			out[i] = sdk.NewUserMessage(sdk.NewTextBlock(m.Content))
		}
	}
	return out
}

// AnthropicExtractor implements FieldExtractor over a Client, with rate
// limiting and transient-failure retries.
type AnthropicExtractor struct {
	client    Client
	model     string
	maxTokens int64
	limiter   *rate.Limiter
	retry     resilience.RetryConfig
}

// NewAnthropicExtractor creates an extractor. If rps <= 0, calls are not
// throttled.
func NewAnthropicExtractor(client Client, modelID string, maxTokens int64, rps float64) *AnthropicExtractor {
	var limiter *rate.Limiter
	if rps > 0 {
		limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	retry := resilience.DefaultRetryConfig()
	retry.OnRetry = resilience.RetryLogger("anthropic", "extract_page")
	return &AnthropicExtractor{
		client:    client,
		model:     modelID,
		maxTokens: maxTokens,
		limiter:   limiter,
		retry:     retry,
	}
}

// ExtractPage runs the extraction prompt for one page and parses the
// strict-JSON answer.
func (e *AnthropicExtractor) ExtractPage(ctx context.Context, req PageRequest) (*PageExtraction, error) {
	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "extract: rate limit wait")
		}
	}

	resp, err := resilience.DoVal(ctx, e.retry, func(ctx context.Context) (*MessageResponse, error) {
		return e.client.CreateMessage(ctx, MessageRequest{
			Model:     e.model,
			MaxTokens: e.maxTokens,
			System:    extractionSystemPrompt,
			Messages:  []Message{{Role: "user", Content: buildExtractionPrompt(req)}},
		})
	})
	if err != nil {
		return nil, err
	}

	zap.L().Debug("page extraction complete",
		zap.String("document_id", req.DocumentID),
		zap.Int("page_index", req.PageIndex),
		zap.Int64("input_tokens", resp.Usage.InputTokens),
		zap.Int64("output_tokens", resp.Usage.OutputTokens),
	)

	ext, err := ParseExtraction(resp.Text)
	if err != nil {
		return nil, eris.Wrapf(err, "extract: page %d of %s", req.PageIndex, req.DocumentID)
	}
	return ext, nil
}
