package genai

import (
	"context"
	"errors"
	"fmt"

	"github.com/invopop/jsonschema"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/rewired-gh/hydrowatch/internal/logger"
	"github.com/rewired-gh/hydrowatch/internal/models"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gpt-4o"

// reportSchema mirrors models.AnalysisReport for structured-output schema generation.
type reportSchema struct {
	RiskLevel        string `json:"riskLevel" jsonschema:"enum=Low,enum=Moderate,enum=High,enum=Critical" jsonschema_description:"Overall reservoir risk level"`
	FloodProbability int    `json:"floodProbability" jsonschema:"minimum=0,maximum=100" jsonschema_description:"Flood probability in percent"`
	DroughtSeverity  string `json:"droughtSeverity" jsonschema:"enum=Normal,enum=Moderate,enum=Severe,enum=Extreme" jsonschema_description:"Drought severity classification"`
	Forecast         string `json:"forecast" jsonschema_description:"Short outlook for the next 7 days"`
	Summary          string `json:"summary" jsonschema_description:"One or two sentence situation summary"`
	Recommendation   string `json:"recommendation" jsonschema_description:"Operational recommendation for reservoir managers"`
}

// GenerateSchema generates a JSON schema for a given type.
func GenerateSchema[T any]() interface{} {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	return reflector.Reflect(v)
}

// OpenAIGenerator asks an OpenAI-compatible chat model for a report.
type OpenAIGenerator struct {
	client openai.Client
	model  string
	schema interface{}
}

// NewOpenAIGenerator creates a generator. baseURL may be empty to use the
// default OpenAI endpoint.
func NewOpenAIGenerator(apiKey, baseURL, model string) (*OpenAIGenerator, error) {
	if apiKey == "" {
		return nil, errors.New("genai api key is not set")
	}
	if model == "" {
		model = DefaultModel
	}

	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0), // The access layer never retries a tier
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	return &OpenAIGenerator{
		client: openai.NewClient(opts...),
		model:  model,
		schema: GenerateSchema[reportSchema](),
	}, nil
}

// GenerateReport sends the analysis prompt and returns the validated,
// guardrail-clamped report.
func (g *OpenAIGenerator) GenerateReport(ctx context.Context, req models.ReportRequest) (*models.AnalysisReport, error) {
	schemaParam := openai.ResponseFormatJSONSchemaJSONSchemaParam{
		Name:        "analysis_report",
		Description: openai.String("Reservoir risk analysis report"),
		Schema:      g.schema,
		Strict:      openai.Bool(true),
	}

	chat, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage("You produce reservoir risk reports as strict JSON."),
			openai.UserMessage(BuildPrompt(req)),
		},
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{JSONSchema: schemaParam},
		},
		Model: openai.ChatModel(g.model),
	})
	if err != nil {
		return nil, fmt.Errorf("error calling generative API: %w", err)
	}

	if len(chat.Choices) == 0 || chat.Choices[0].Message.Content == "" {
		return nil, fmt.Errorf("%w: received empty response from generative API", ErrMalformedReply)
	}

	report, err := ParseReport(chat.Choices[0].Message.Content)
	if err != nil {
		logger.Debug("Unparseable generative reply: %s", chat.Choices[0].Message.Content)
		return nil, err
	}

	ApplyGuardrails(report, req)
	return report, nil
}
