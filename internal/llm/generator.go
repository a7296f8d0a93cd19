package llm

import (
	"context"
	"errors"
	"strings"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.uber.org/zap"

	"finqa/internal/domain"
	"finqa/internal/logging"
)

// Config configures the chat model. Model and temperature are fixed for the
// life of the process.
type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	Timeout     time.Duration
	MaxRetries  int
}

// Generator answers prompts with an OpenAI-compatible chat completions API.
// It holds no per-request state and is safe for concurrent use.
type Generator struct {
	client      oai.Client
	model       string
	temperature float64
	log         *zap.Logger
}

// New builds the SDK client once. An empty API key is a configuration error.
func New(cfg Config, log *zap.Logger) (*Generator, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, domain.NewError(domain.KindConfig, "API key is required for the language model", nil)
	}
	if cfg.Model == "" {
		return nil, domain.NewError(domain.KindConfig, "model is required for the language model", nil)
	}
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}
	return &Generator{
		client:      oai.NewClient(opts...),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		log:         logging.OrNop(log).Named("llm"),
	}, nil
}

// Generate sends prompt as a single user message and returns the reply text.
// Every failure is returned as a KindGenerate error.
func (g *Generator) Generate(ctx context.Context, prompt string) (domain.Response, error) {
	start := time.Now()
	completion, err := g.client.Chat.Completions.New(ctx, oai.ChatCompletionNewParams{
		Model:       oai.ChatModel(g.model),
		Temperature: oai.Float(g.temperature),
		Messages: []oai.ChatCompletionMessageParamUnion{
			oai.UserMessage(prompt),
		},
	})
	if err != nil {
		return domain.Response{}, domain.NewError(domain.KindGenerate, "language model request failed", err)
	}
	if len(completion.Choices) == 0 {
		return domain.Response{}, domain.NewError(domain.KindGenerate, "language model request failed",
			errors.New("no choices in completion"))
	}

	g.log.Debug("completion received",
		zap.String("model", completion.Model),
		zap.Int64("prompt_tokens", completion.Usage.PromptTokens),
		zap.Int64("completion_tokens", completion.Usage.CompletionTokens),
		zap.Duration("took", time.Since(start)))

	return domain.Response{Text: completion.Choices[0].Message.Content}, nil
}
