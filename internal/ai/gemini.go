package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"example.com/ecopulse/backend/internal/models"
)

const (
	mimeTypeJSON   = "application/json"
	geminiUserRole = "user"
)

// GeminiClient вызывает Gemini через официальный SDK: поиск Google, изображения и структурированный JSON.
type GeminiClient struct {
	client    *genai.Client
	model     string
	maxTokens int
}

// NewGeminiClient создает клиент Gemini.
func NewGeminiClient(ctx context.Context, apiKey, model string, maxTokens int) (*GeminiClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("gemini api key is missing")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	return &GeminiClient{
		client:    client,
		model:     model,
		maxTokens: maxTokens,
	}, nil
}

// Generate отправляет запрос в Gemini и возвращает текст и цитаты из grounding-метаданных.
func (c *GeminiClient) Generate(ctx context.Context, request Request) (Response, error) {
	parts := []*genai.Part{{Text: request.Prompt}}
	if request.Image != nil && len(request.Image.Data) > 0 {
		parts = append(parts, &genai.Part{
			InlineData: &genai.Blob{MIMEType: request.Image.MIMEType, Data: request.Image.Data},
		})
	}
	contents := []*genai.Content{{Role: geminiUserRole, Parts: parts}}

	config := &genai.GenerateContentConfig{
		MaxOutputTokens: int32(resolveMaxTokens(c.maxTokens)),
	}
	if request.System != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: request.System}},
		}
	}

	if request.Search {
		config.Tools = []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}}
		if request.Location.Valid() {
			config.ToolConfig = &genai.ToolConfig{
				RetrievalConfig: &genai.RetrievalConfig{
					LatLng: &genai.LatLng{
						Latitude:  genai.Ptr(request.Location.Latitude),
						Longitude: genai.Ptr(request.Location.Longitude),
					},
				},
			}
		}
	}

	if schema := schemaFor(request.Format); schema != nil {
		config.ResponseMIMEType = mimeTypeJSON
		config.ResponseSchema = schema
	}

	result, err := c.client.Models.GenerateContent(ctx, c.model, contents, config)
	if err != nil {
		return Response{}, fmt.Errorf("gemini request failed: %w", err)
	}

	raw, _ := json.Marshal(result)
	return Response{
		Text:      result.Text(),
		Citations: groundingCitations(result),
		Raw:       raw,
	}, nil
}

func groundingCitations(result *genai.GenerateContentResponse) []models.Citation {
	if result == nil || len(result.Candidates) == 0 {
		return nil
	}
	metadata := result.Candidates[0].GroundingMetadata
	if metadata == nil {
		return nil
	}

	citations := make([]models.Citation, 0, len(metadata.GroundingChunks))
	for _, chunk := range metadata.GroundingChunks {
		if chunk == nil || chunk.Web == nil {
			continue
		}
		citations = append(citations, models.Citation{URL: chunk.Web.URI, Title: chunk.Web.Title})
	}
	return citations
}

func schemaFor(format Format) *genai.Schema {
	switch format {
	case FormatMissions:
		return &genai.Schema{
			Type: genai.TypeArray,
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"title":       {Type: genai.TypeString},
					"description": {Type: genai.TypeString},
					"category":    {Type: genai.TypeString},
					"points":      {Type: genai.TypeNumber},
				},
				Required: []string{"title", "description", "category", "points"},
			},
		}
	case FormatQuiz:
		return &genai.Schema{
			Type: genai.TypeArray,
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"question": {Type: genai.TypeString},
					"options": {
						Type:  genai.TypeArray,
						Items: &genai.Schema{Type: genai.TypeString},
					},
					"correctAnswer": {Type: genai.TypeNumber},
					"explanation":   {Type: genai.TypeString},
				},
				Required: []string{"question", "options", "correctAnswer", "explanation"},
			},
		}
	default:
		return nil
	}
}
