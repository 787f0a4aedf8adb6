package chat

// service.go holds the orchestration Service: five stateless request/response
// calls to the Gemini and Imagen models. The Service performs no retries,
// caching, or concurrency control; callers (see internal/studio) own those.

import (
	"context"
	"encoding/base64"
	"strings"
	"time"

	"github.com/fpang/ai-vision-studio/internal/metrics"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/genai"
)

var tracer = otel.Tracer("ai-vision-studio/chat")

// DefaultSuggestionCount is the number of edit suggestions requested when no
// count is configured.
const DefaultSuggestionCount = 3

// ModelClient is the subset of the genai Models service used by Service.
// *genai.Models satisfies it; tests substitute a fake.
type ModelClient interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
	GenerateImages(ctx context.Context, model string, prompt string, config *genai.GenerateImagesConfig) (*genai.GenerateImagesResponse, error)
}

// Image is an encoded image with its media type.
type Image struct {
	Data     []byte
	MIMEType string
}

// DataURL renders the image as a data: URI for direct display.
func (img Image) DataURL() string {
	if len(img.Data) == 0 {
		return ""
	}
	return "data:" + img.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
}

// EditSuggestion is one proposed edit. Description doubles as an edit instruction.
type EditSuggestion struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Service issues orchestration calls against a ModelClient.
type Service struct {
	client          ModelClient
	models          Models
	suggestionCount int
}

// Option configures a Service.
type Option func(*Service)

// WithModels overrides the model used per operation. Empty entries keep their default.
func WithModels(m Models) Option {
	return func(s *Service) {
		s.models = m.withDefaults()
	}
}

// WithSuggestionCount sets how many edit suggestions are requested.
func WithSuggestionCount(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.suggestionCount = n
		}
	}
}

// NewService creates a Service. Pass genaiClient.Models as client.
func NewService(client ModelClient, opts ...Option) *Service {
	s := &Service{
		client:          client,
		models:          DefaultModels(),
		suggestionCount: DefaultSuggestionCount,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Models returns the model assignment in use.
func (s *Service) Models() Models {
	return s.models
}

// call tracks one orchestration call: a span, a latency metric, and log lines.
type call struct {
	op    Operation
	model string
	start time.Time
	span  trace.Span
}

func (s *Service) begin(ctx context.Context, op Operation, model string, inputBytes int) (context.Context, *call) {
	ctx, span := tracer.Start(ctx, string(op))
	span.SetAttributes(
		attribute.String("gemini.model", model),
		attribute.Int("gemini.input_bytes", inputBytes),
	)
	log.Info().
		Str("operation", string(op)).
		Str("model", model).
		Int("input_bytes", inputBytes).
		Msg("Sending request to Gemini")
	return ctx, &call{op: op, model: model, start: time.Now(), span: span}
}

// fail records err and returns it wrapped as the operation's OperationError.
func (c *call) fail(err error) error {
	elapsed := time.Since(c.start)
	c.span.RecordError(err)
	c.span.SetStatus(codes.Error, c.op.Message())
	c.span.End()

	log.Error().
		Err(err).
		Str("operation", string(c.op)).
		Str("model", c.model).
		Dur("duration", elapsed).
		Msg("Gemini request failed")

	emitOperationMetric(c.op, "error", elapsed)
	return newOperationError(c.op, err)
}

// done records a successful call. outputBytes is the size of the result.
func (c *call) done(outputBytes int) {
	elapsed := time.Since(c.start)
	c.span.SetAttributes(attribute.Int("gemini.output_bytes", outputBytes))
	c.span.End()

	log.Info().
		Str("operation", string(c.op)).
		Str("model", c.model).
		Int("output_bytes", outputBytes).
		Dur("duration", elapsed).
		Msg("Gemini request complete")

	emitOperationMetric(c.op, "success", elapsed)
}

func emitOperationMetric(op Operation, result string, elapsed time.Duration) {
	metrics.New(metrics.Namespace).
		Dimension("Operation", string(op)).
		Dimension("Result", result).
		Metric("OperationLatencyMs", float64(elapsed.Milliseconds()), metrics.UnitMilliseconds).
		Count("OperationCount").
		Flush()
}

// imageContents builds a single user turn: the image followed by the text instruction.
func imageContents(img Image, text string) []*genai.Content {
	parts := []*genai.Part{
		{InlineData: &genai.Blob{MIMEType: img.MIMEType, Data: img.Data}},
		genai.NewPartFromText(text),
	}
	return []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}
}

// responseText concatenates the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var out strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil && part.Text != "" && !part.Thought {
			out.WriteString(part.Text)
		}
	}
	return out.String()
}
