package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"
)

// OpenAIClient вызывает OpenAI Responses API. Поддерживается только текст.
type OpenAIClient struct {
	client    *openai.Client
	model     string
	maxTokens int
}

// NewOpenAIClient создает клиент OpenAI. baseURL может указывать на совместимый шлюз.
func NewOpenAIClient(apiKey, baseURL, model string, maxTokens int) (*OpenAIClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("openai api key is missing")
	}

	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	client := openai.NewClient(opts...)

	return &OpenAIClient{
		client:    &client,
		model:     model,
		maxTokens: maxTokens,
	}, nil
}

// Generate отправляет запрос в OpenAI и возвращает выходной текст.
func (c *OpenAIClient) Generate(ctx context.Context, request Request) (Response, error) {
	input := responses.ResponseInputParam{
		responses.ResponseInputItemParamOfMessage(request.Prompt, responses.EasyInputMessageRoleUser),
	}

	params := responses.ResponseNewParams{
		Model: c.model,
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: input,
		},
		MaxOutputTokens: openai.Int(int64(resolveMaxTokens(c.maxTokens))),
	}
	if request.System != "" {
		params.Instructions = openai.String(request.System)
	}

	resp, err := c.client.Responses.New(ctx, params)
	if err != nil {
		return Response{}, fmt.Errorf("openai request failed: %w", err)
	}

	raw, _ := json.Marshal(resp)
	return Response{Text: resp.OutputText(), Raw: raw}, nil
}
