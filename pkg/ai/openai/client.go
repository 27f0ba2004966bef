package openai

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"

	"lyrics-viewer/pkg/ai"
)

var _ ai.AiInterface = (*OpenAI)(nil)

type OpenAI struct {
	model  string
	client *openai.Client
}

// NewOpenAI baseURL 为空时使用官方地址，可指向任意 OpenAI 兼容服务
func NewOpenAI(apiKey, modelName, baseURL string) *OpenAI {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	if modelName == "" {
		modelName = openai.GPT4oMini
	}
	return &OpenAI{model: modelName, client: openai.NewClientWithConfig(config)}
}

func (o *OpenAI) Name() string {
	return "openai"
}

func (o *OpenAI) HandleText(ctx context.Context, msg string) (string, error) {
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: msg,
			},
		},
		MaxTokens:   4000,
		Temperature: 0.2,
	})
	if err != nil {
		log.Error().Err(err).Msg("could not get response from openai")
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
