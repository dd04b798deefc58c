package llm

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

type OpenAIImageClient struct {
	client *openai.Client
}

func NewOpenAIImageClient(apiKey string) *OpenAIImageClient {
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &OpenAIImageClient{client: &client}
}

func (c *OpenAIImageClient) GenerateImage(ctx context.Context, prompt string) ([]byte, error) {
	resp, err := c.client.Images.Generate(ctx, openai.ImageGenerateParams{
		Prompt:         prompt,
		Model:          openai.ImageModelDallE3,
		Size:           openai.ImageGenerateParamsSize1024x1024,
		ResponseFormat: openai.ImageGenerateParamsResponseFormatB64JSON,
		N:              openai.Int(1),
	})
	if err != nil {
		return nil, fmt.Errorf("openai image error: %w", err)
	}

	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("no image from openai")
	}

	raw, err := base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
	if err != nil {
		return nil, fmt.Errorf("decode image payload: %w", err)
	}
	return raw, nil
}
