package translate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"slack-translate-bot/project/domain"
	"slack-translate-bot/project/service"
)

const defaultOpenAIModel = "gpt-4o-mini"

// OpenAIClient は OpenAI 互換 API（Chat Completions）を使う service.Translator 実装です
type OpenAIClient struct {
	client     *openai.Client
	model      string
	targetLang string
	configured bool
}

// NewOpenAIClient は OpenAI 互換クライアントを初期化します
// baseURL が空なら OpenAI の既定エンドポイントを使います
func NewOpenAIClient(apiKey, baseURL, model, targetLang string, timeout time.Duration) *OpenAIClient {
	if model == "" {
		model = defaultOpenAIModel
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	config.HTTPClient = &http.Client{Timeout: timeout}

	return &OpenAIClient{
		client:     openai.NewClientWithConfig(config),
		model:      model,
		targetLang: strings.ToUpper(targetLang),
		configured: apiKey != "",
	}
}

// openAITranslation はモデルに返させる JSON です
type openAITranslation struct {
	DetectedSourceLanguage string `json:"detected_source_language"`
	Text                   string `json:"text"`
}

func (c *OpenAIClient) systemPrompt() string {
	return fmt.Sprintf(`You are a translation engine. Translate the user's message into the language with ISO 639-1 code %q.

Rules:
1. Keep tokens like EMOJISLACK0X, Slack mentions (<@U123>), links and numbers exactly as they are.
2. Do not add explanations.
3. Reply with a JSON object only: {"detected_source_language": "<ISO 639-1 code of the original, upper case>", "text": "<translation>"}`, c.targetLang)
}

// Translate はテキストを翻訳します（原文言語はモデルが判定）
func (c *OpenAIClient) Translate(ctx context.Context, text string) (*service.TranslationResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("openai: %w: 空のテキスト", domain.ErrTranslationSkipped)
	}
	if !c.configured {
		return nil, fmt.Errorf("openai: %w: OPENAI_API_KEY が未設定です", domain.ErrTranslationSkipped)
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: c.systemPrompt()},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
		Temperature: 0.1,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == http.StatusTooManyRequests {
			return nil, fmt.Errorf("openai: %w: %v", domain.ErrRateLimited, err)
		}
		return nil, fmt.Errorf("openai: chat completion 失敗: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai: 応答が空です")
	}

	var out openAITranslation
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(content), &out); err != nil {
		return nil, fmt.Errorf("openai: 応答 JSON パース失敗: %w", err)
	}
	if strings.TrimSpace(out.Text) == "" {
		return nil, fmt.Errorf("openai: 翻訳結果が空です")
	}

	return &service.TranslationResult{
		Text:               out.Text,
		DetectedSourceLang: strings.ToUpper(strings.TrimSpace(out.DetectedSourceLanguage)),
	}, nil
}

var _ service.Translator = (*OpenAIClient)(nil)
