// Package openai provides an implementation of model.Model using the OpenAI
// Chat Completions API. The request instructions are sent as the system
// message, which is how benchmark answer prompts are delivered.
package openai

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/hupe1980/memorybench/core"
	"github.com/hupe1980/memorybench/model"
)

// Options configure the OpenAI model adapter.
type Options struct {
	Model               string
	MaxCompletionTokens int64
	APIKey              string
	// BaseURL overrides the API endpoint, e.g. for compatible gateways.
	BaseURL string
}

// Model wraps the OpenAI Chat Completions API behind the generic model.Model interface.
type Model struct {
	client *openai.Client
	opts   Options
}

var _ model.Model = (*Model)(nil)

func defaultOptions() Options {
	return Options{
		Model:               openai.ChatModelGPT4oMini,
		MaxCompletionTokens: 1024,
	}
}

// NewModel creates a new OpenAI model using the official client. SDK level
// retries are disabled; callers wrap Generate in their own retry policy.
func NewModel(optFns ...func(o *Options)) *Model {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	clientOpts := []option.RequestOption{option.WithMaxRetries(0)}
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}
	if opts.BaseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(opts.BaseURL))
	}
	client := openai.NewClient(clientOpts...)
	return &Model{client: &client, opts: opts}
}

// NewModelFromClient creates a new OpenAI model from an existing client
func NewModelFromClient(client *openai.Client, optFns ...func(o *Options)) *Model {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Model{client: client, opts: opts}
}

// Generate performs a non-streaming completion.
func (m *Model) Generate(ctx context.Context, req model.Request) (*model.Response, error) {
	messages := buildMessages(req)
	if len(messages) == 0 {
		return nil, model.ErrEmptyRequest
	}
	maxTokens := m.opts.MaxCompletionTokens
	if req.MaxTokens > 0 {
		maxTokens = req.MaxTokens
	}
	params := openai.ChatCompletionNewParams{
		Messages:            messages,
		Model:               m.opts.Model,
		Temperature:         openai.Float(req.Temperature),
		MaxCompletionTokens: openai.Int(maxTokens),
	}

	resp, err := m.client.Chat.Completions.New(ctx, params)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) && isPermanentStatus(apiErr.StatusCode) {
			return nil, core.Permanent(fmt.Errorf("openai api error: %w", err))
		}
		return nil, fmt.Errorf("openai api error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no choices returned")
	}
	ch0 := resp.Choices[0]
	return &model.Response{
		ID:           resp.ID,
		Text:         ch0.Message.Content,
		FinishReason: ch0.FinishReason,
		Usage: &model.TokenUsage{
			PromptTokens:     int(resp.Usage.PromptTokens),
			CompletionTokens: int(resp.Usage.CompletionTokens),
			TotalTokens:      int(resp.Usage.TotalTokens),
		},
	}, nil
}

func buildMessages(req model.Request) []openai.ChatCompletionMessageParamUnion {
	var messages []openai.ChatCompletionMessageParamUnion
	if req.Instructions != "" {
		messages = append(messages, openai.SystemMessage(req.Instructions))
	}
	if req.Prompt != "" {
		messages = append(messages, openai.UserMessage(req.Prompt))
	}
	return messages
}

// isPermanentStatus reports client errors that a retry cannot fix.
func isPermanentStatus(code int) bool {
	return code == 400 || code == 401 || code == 403 || code == 404
}

// Info returns metadata describing this OpenAI model implementation.
func (m *Model) Info() model.Info {
	return model.Info{Name: m.opts.Model, Provider: "openai"}
}
