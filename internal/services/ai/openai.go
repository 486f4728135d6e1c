package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/benvon/scanwise/internal/models"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
	"go.uber.org/zap"
)

const (
	// DefaultOpenAIModel is the default vision-capable model to use
	DefaultOpenAIModel = "gpt-4o-mini"
	// DefaultOpenAIBaseURL is the default OpenAI API base URL
	DefaultOpenAIBaseURL = "https://api.openai.com/v1"
	// DefaultTimeout is the default timeout for API calls. Image analysis is
	// slower than text completion, so this is generous.
	DefaultTimeout = 120 * time.Second

	// ErrNoChoicesInResponse is returned when the API response has no choices
	ErrNoChoicesInResponse = "no choices in response"
)

// OpenAIGateway implements the Gateway interface using OpenAI's vision API
type OpenAIGateway struct {
	client    openai.Client
	model     string
	logger    *zap.Logger
	debugMode bool
}

// NewOpenAIGateway creates a new OpenAI-backed analysis gateway. A missing
// API key is a configuration error, surfaced immediately rather than on the
// first scan.
func NewOpenAIGateway(apiKey, baseURL, model string, logger *zap.Logger, debugMode bool) (*OpenAIGateway, error) {
	if apiKey == "" {
		return nil, &ConfigError{Reason: "OPENAI_API_KEY is not set"}
	}
	if model == "" {
		model = DefaultOpenAIModel
	}
	if baseURL == "" {
		baseURL = DefaultOpenAIBaseURL
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	httpClient := &http.Client{
		Timeout: DefaultTimeout,
	}

	client := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(baseURL),
		option.WithHTTPClient(httpClient),
	)

	logger.Debug("openai_gateway_initialized",
		zap.String("model", model),
		zap.String("base_url", baseURL),
		zap.String("api_key", SanitizeAPIKey(apiKey)),
	)

	return &OpenAIGateway{
		client:    client,
		model:     model,
		logger:    logger,
		debugMode: debugMode,
	}, nil
}

// Analyze sends the profile and staged images to the model and returns the
// structured verdict. One request, one response or one failure.
func (g *OpenAIGateway) Analyze(ctx context.Context, profile models.Profile, images models.Selection) (*models.AnalysisResult, error) {
	if len(images) == 0 {
		return nil, errors.New("no images selected for analysis")
	}

	prompt := buildAnalysisPrompt(profile, len(images))

	parts := make([]openai.ChatCompletionContentPartUnionParam, 0, len(images)+1)
	parts = append(parts, openai.TextContentPart(prompt))
	for _, img := range images {
		parts = append(parts, openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
			URL: img.DataURI(),
		}))
	}

	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(systemPrompt),
		openai.UserMessage(parts),
	}

	req := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(g.model),
		Messages: messages,
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
	}

	if g.debugMode {
		g.logger.Debug("llm_api_request",
			zap.String("operation", "analyze_product"),
			zap.String("model", g.model),
			zap.Int("image_count", len(images)),
			zap.Int("prompt_length", len(prompt)),
			zap.String("prompt_preview", SanitizePrompt(prompt, true)),
		)
	}

	start := time.Now()
	resp, err := g.client.Chat.Completions.New(ctx, req)
	latency := time.Since(start)

	if err != nil {
		if g.debugMode {
			g.logger.Debug("llm_api_error",
				zap.String("operation", "analyze_product"),
				zap.String("model", g.model),
				zap.Error(err),
				zap.Int64("latency_ms", latency.Milliseconds()),
			)
		}
		return nil, fmt.Errorf("failed to analyze product: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, errors.New(ErrNoChoicesInResponse)
	}
	content := resp.Choices[0].Message.Content

	if g.debugMode {
		g.logger.Debug("llm_api_response",
			zap.String("operation", "analyze_product"),
			zap.String("model", g.model),
			zap.Int("response_length", len(content)),
			zap.String("response_preview", SanitizeResponse(content, true)),
			zap.Int64("latency_ms", latency.Milliseconds()),
		)
	}

	result, err := parseAnalysisResponse(content)
	if err != nil {
		return nil, err
	}
	return result, nil
}

const systemPrompt = `You are a nutrition assistant that evaluates consumer products from photos for a specific user. Respond with valid JSON only, matching exactly this shape:
{
  "imageQualityCheck": {"isUnclear": false, "reason": ""},
  "calorieAnalysis": {"productCalories": 0, "userDailyNeed": 0, "percentage": 0, "note": ""},
  "summary": "",
  "pros": [""],
  "cons": [""],
  "recommendations": [{"name": "", "reason": ""}]
}
If the photos cannot be interpreted (blurry, not a product, label unreadable), set imageQualityCheck.isUnclear to true with a short reason and leave every other field empty. Omit calorieAnalysis entirely when no calorie estimate is possible.`

// buildAnalysisPrompt personalizes the request with the user's profile
func buildAnalysisPrompt(profile models.Profile, imageCount int) string {
	prompt := fmt.Sprintf(`Analyze the product shown in the %d attached photo(s) for this user:
- Age: %s
- Gender: %s
- Health context: %s

Provide a personalized verdict:
1. A short summary of whether this product suits the user.
2. Pros and cons relative to the user's health context.
3. A calorie analysis: estimated calories per typical serving, the user's estimated daily calorie need, and the percentage of that need this product covers.
4. Up to three alternative product recommendations with reasons.

Be specific to the user's profile rather than generic. Return only valid JSON.`,
		imageCount, profile.Age, profile.Gender, profile.HealthContext)
	return prompt
}
