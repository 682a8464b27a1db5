package summarize

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/hpungsan/carryon/internal/errors"
)

// OpenAI summarizes with the Chat Completions API.
type OpenAI struct {
	client *openai.Client
	opts   Options
}

// NewOpenAI creates an OpenAI summarizer with its own client.
func NewOpenAI(optFns ...func(o *Options)) *OpenAI {
	opts := defaultOpenAIOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}
	if opts.BaseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(strings.TrimRight(opts.BaseURL, "/")+"/"))
	}
	client := openai.NewClient(clientOpts...)

	return &OpenAI{client: &client, opts: opts}
}

// NewOpenAIFromClient wraps an existing client.
func NewOpenAIFromClient(client *openai.Client, optFns ...func(o *Options)) *OpenAI {
	opts := defaultOpenAIOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	return &OpenAI{client: client, opts: opts}
}

func defaultOpenAIOptions() Options {
	return Options{
		Model:       openai.ChatModelGPT4oMini,
		Temperature: 0.2,
		MaxTokens:   1024,
		Timeout:     DefaultTimeout,
	}
}

func (s *OpenAI) Summarize(ctx context.Context, system, message string, background bool) (string, error) {
	ctx, cancel := s.opts.callContext(ctx, background)
	defer cancel()

	params := openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(message),
		},
		Model:               s.opts.model(background),
		Temperature:         openai.Float(s.opts.Temperature),
		MaxCompletionTokens: openai.Int(s.opts.MaxTokens),
	}

	resp, err := s.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", errors.NewSummarizerFailed(fmt.Errorf("openai: %w", err))
	}
	if len(resp.Choices) == 0 {
		return "", errors.NewSummarizerFailed(fmt.Errorf("openai: response has no choices"))
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
