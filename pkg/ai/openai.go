package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
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
	judgeDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "gema",
		Subsystem: "ai",
		Name:      "judge_duration_seconds",
		Help:      "Duration of answer equivalence judge requests",
	}, []string{"model"})

	judgeFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gema",
		Subsystem: "ai",
		Name:      "judge_failures_total",
		Help:      "Number of answer equivalence judge failures",
	}, []string{"model"})
)

// OpenAIConfig defines configuration options for the OpenAI judge.
type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float32
	Logger      zerolog.Logger
}

// OpenAIJudge implements Judge against any OpenAI-compatible chat completion API.
type OpenAIJudge struct {
	client    *openai.Client
	cfg       OpenAIConfig
	tracer    trace.Tracer
	logger    zerolog.Logger
	sanitizer *bluemonday.Policy
}

// NewOpenAIJudge builds a new judge using the provided configuration.
func NewOpenAIJudge(cfg OpenAIConfig) (*OpenAIJudge, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}

	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}

	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 256
	}

	logger := cfg.Logger
	if logger.GetLevel() == zerolog.Disabled {
		logger = zerolog.Nop()
	}

	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}

	return &OpenAIJudge{
		client:    openai.NewClientWithConfig(config),
		cfg:       cfg,
		tracer:    otel.Tracer("github.com/noah-isme/gema-assessment-api/pkg/ai/openai"),
		logger:    logger.With().Str("component", "openai_judge").Logger(),
		sanitizer: bluemonday.StrictPolicy(),
	}, nil
}

// Judge asks the model for a verdict and parses its JSON reply.
func (j *OpenAIJudge) Judge(parent context.Context, input EquivalenceInput) (Verdict, error) {
	ctx, span := j.tracer.Start(parent, "openai.judge", trace.WithAttributes(
		attribute.String("model", j.cfg.Model),
		attribute.String("question_type", input.QuestionType),
	))
	defer span.End()

	start := time.Now()
	resp, err := j.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       j.cfg.Model,
		MaxTokens:   j.cfg.MaxTokens,
		Temperature: j.cfg.Temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: judgeSystemPrompt()},
			{Role: openai.ChatMessageRoleUser, Content: buildJudgePrompt(input)},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
	})
	judgeDuration.WithLabelValues(j.cfg.Model).Observe(time.Since(start).Seconds())
	if err != nil {
		return Verdict{}, j.fail(span, fmt.Errorf("openai judge: %w", err))
	}

	if len(resp.Choices) == 0 {
		return Verdict{}, j.fail(span, fmt.Errorf("no choices returned from openai"))
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	j.logger.Debug().Str("raw", content).Msg("judge response")

	verdict, err := ParseVerdict(content)
	if err != nil {
		return Verdict{}, j.fail(span, err)
	}

	verdict.Explanation = strings.TrimSpace(j.sanitizer.Sanitize(verdict.Explanation))
	span.SetAttributes(attribute.Bool("judge.is_correct", verdict.IsCorrect))
	return verdict, nil
}

func (j *OpenAIJudge) fail(span trace.Span, err error) error {
	judgeFailures.WithLabelValues(j.cfg.Model).Inc()
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
