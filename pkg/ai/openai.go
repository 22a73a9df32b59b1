package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	completionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "quizfeedback",
		Subsystem: "ai",
		Name:      "completion_duration_seconds",
		Help:      "Duration of chat completion requests",
	}, []string{"model"})

	completionFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "quizfeedback",
		Subsystem: "ai",
		Name:      "completion_failures_total",
		Help:      "Number of failed chat completion requests",
	}, []string{"model"})
)

// OpenAIConfig defines configuration options for the OpenAI completion client.
type OpenAIConfig struct {
	APIKey    string
	Model     string
	MaxTokens int
	Timeout   time.Duration
	Logger    zerolog.Logger
}

// OpenAICompleter implements Completer against the OpenAI chat completion API.
type OpenAICompleter struct {
	client *openai.Client
	cfg    OpenAIConfig
	tracer trace.Tracer
	logger zerolog.Logger
}

// NewOpenAICompleter builds a completion client from the provided
// configuration. A missing API key is a configuration error.
func NewOpenAICompleter(cfg OpenAIConfig) (*OpenAICompleter, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}

	if cfg.Model == "" {
		cfg.Model = "gpt-4o"
	}

	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 4000
	}

	tracer := otel.Tracer("github.com/edulens/quizfeedback-api/pkg/ai/openai")
	logger := cfg.Logger
	if logger.GetLevel() == zerolog.Disabled {
		logger = zerolog.Nop()
	}

	config := openai.DefaultConfig(cfg.APIKey)
	client := openai.NewClientWithConfig(config)

	return &OpenAICompleter{
		client: client,
		cfg:    cfg,
		tracer: tracer,
		logger: logger.With().Str("component", "openai_completer").Logger(),
	}, nil
}

// GenerateResponse sends the prompt to the chat model and returns the
// generated text. Any provider failure collapses to ErrGenerationFailed.
func (c *OpenAICompleter) GenerateResponse(ctx context.Context, prompt string) (string, error) {
	return c.complete(ctx, "generate_response", prompt)
}

// GenerateSummary asks the chat model for a detailed summary of the text.
func (c *OpenAICompleter) GenerateSummary(ctx context.Context, text string) (string, error) {
	prompt := fmt.Sprintf("Please generate a detailed summary of the following text: %s", text)
	return c.complete(ctx, "generate_summary", prompt)
}

func (c *OpenAICompleter) complete(parent context.Context, operation, prompt string) (string, error) {
	ctx, span := c.tracer.Start(parent, "openai.completion", trace.WithAttributes(
		attribute.String("model", c.cfg.Model),
		attribute.String("operation", operation),
	))
	defer span.End()

	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	request := openai.ChatCompletionRequest{
		Model:     c.cfg.Model,
		MaxTokens: c.cfg.MaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
	}

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, request)
	completionDuration.WithLabelValues(c.cfg.Model).Observe(time.Since(start).Seconds())
	if err != nil {
		completionFailures.WithLabelValues(c.cfg.Model).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.logger.Error().Err(err).Str("operation", operation).Msg("chat completion failed")
		return "", fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	if len(resp.Choices) == 0 {
		completionFailures.WithLabelValues(c.cfg.Model).Inc()
		err := fmt.Errorf("%w: no choices returned", ErrGenerationFailed)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.logger.Error().Str("operation", operation).Msg("chat completion returned no choices")
		return "", err
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
