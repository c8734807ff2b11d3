package llm

import (
	"context"
	"fmt"
	"strings"
	"tutor-ai/internal/models"
	"tutor-ai/internal/utils"
	"tutor-ai/pkg/logger"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

type GeminiClient struct {
	client              *genai.Client
	model               string
	maxCompletionTokens int
	temperature         float64
	systemPrompt        string
	schema              *genai.Schema
}

func NewGeminiClient(config Config) (*GeminiClient, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	opts := []option.ClientOption{option.WithAPIKey(config.APIKey)}
	if config.BaseURL != "" {
		opts = append(opts, option.WithEndpoint(config.BaseURL))
	}
	client, err := genai.NewClient(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	schema, _ := config.Schema.(*genai.Schema)

	return &GeminiClient{
		client:              client,
		model:               config.Model,
		maxCompletionTokens: config.MaxCompletionTokens,
		temperature:         config.Temperature,
		systemPrompt:        config.SystemPrompt,
		schema:              schema,
	}, nil
}

func (c *GeminiClient) GenerateScenario(ctx context.Context, req ScenarioRequest) (*models.ScenarioData, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	model := c.client.GenerativeModel(c.model)
	model.MaxOutputTokens = utils.ToInt32Ptr(int32(c.maxCompletionTokens))
	model.SetTemperature(float32(c.temperature))
	model.ResponseMIMEType = "application/json"
	model.ResponseSchema = c.schema
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(c.systemPrompt)},
	}

	result, err := model.GenerateContent(ctx, genai.Text(BuildScenarioPrompt(req)))
	if err != nil {
		logger.Named("llm").Error("gemini generation failed", zap.String("model", c.model), zap.Error(err))
		return nil, fmt.Errorf("gemini API error: %w", err)
	}
	if len(result.Candidates) == 0 || result.Candidates[0].Content == nil || len(result.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("no response from Gemini")
	}

	var text strings.Builder
	for _, part := range result.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			text.WriteString(string(t))
		}
	}
	return ParseScenario(text.String())
}

func (c *GeminiClient) GetModelInfo() ModelInfo {
	return ModelInfo{
		Name:                c.model,
		Provider:            "gemini",
		MaxCompletionTokens: c.maxCompletionTokens,
	}
}

func (c *GeminiClient) Close() error {
	return c.client.Close()
}
