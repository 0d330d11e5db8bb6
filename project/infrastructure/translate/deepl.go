package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"slack-translate-bot/project/domain"
	"slack-translate-bot/project/service"
)

const (
	deeplFreeURL = "https://api-free.deepl.com/v2/translate"
	deeplProURL  = "https://api.deepl.com/v2/translate"
)

// DeepLClient は service.Translator の DeepL REST API 実装です
type DeepLClient struct {
	apiKey     string
	endpoint   string
	targetLang string
	httpClient *http.Client
}

// DeepLEndpointForKey は API キーに応じたエンドポイントを返します
// 無料プランのキーは ":fx" で終わります
func DeepLEndpointForKey(apiKey string) string {
	if strings.HasSuffix(apiKey, ":fx") {
		return deeplFreeURL
	}
	return deeplProURL
}

// NewDeepLClient は DeepL クライアントを初期化します
// endpoint が空ならキーから自動で選択します
func NewDeepLClient(apiKey, endpoint, targetLang string, timeout time.Duration) *DeepLClient {
	if endpoint == "" {
		endpoint = DeepLEndpointForKey(apiKey)
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &DeepLClient{
		apiKey:     apiKey,
		endpoint:   endpoint,
		targetLang: strings.ToUpper(targetLang),
		httpClient: &http.Client{Timeout: timeout},
	}
}

type deeplRequest struct {
	Text       []string `json:"text"`
	TargetLang string   `json:"target_lang"`
}

type deeplResponse struct {
	Translations []struct {
		DetectedSourceLanguage string `json:"detected_source_language"`
		Text                   string `json:"text"`
	} `json:"translations"`
}

// Translate はテキストを翻訳します（原文言語は自動検出）
func (c *DeepLClient) Translate(ctx context.Context, text string) (*service.TranslationResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("deepl: %w: 空のテキスト", domain.ErrTranslationSkipped)
	}
	if c.apiKey == "" {
		return nil, fmt.Errorf("deepl: %w: DEEPL_API_KEY が未設定です", domain.ErrTranslationSkipped)
	}

	reqBody, err := json.Marshal(deeplRequest{Text: []string{text}, TargetLang: c.targetLang})
	if err != nil {
		return nil, fmt.Errorf("deepl: リクエスト JSON 化失敗: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("deepl: リクエスト作成失敗: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "DeepL-Auth-Key "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("deepl: リクエスト送信失敗: %w", err)
	}
	defer resp.Body.Close()

	// レスポンスステータスチェック
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if resp.StatusCode == http.StatusTooManyRequests {
			return nil, fmt.Errorf("deepl: %w (status=%d): %s", domain.ErrRateLimited, resp.StatusCode, string(body))
		}
		return nil, fmt.Errorf("deepl: API エラー (status=%d): %s", resp.StatusCode, string(body))
	}

	var out deeplResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("deepl: レスポンス JSON パース失敗: %w", err)
	}
	if len(out.Translations) == 0 {
		return nil, fmt.Errorf("deepl: 翻訳結果が空です")
	}

	first := out.Translations[0]
	return &service.TranslationResult{
		Text:               first.Text,
		DetectedSourceLang: first.DetectedSourceLanguage,
	}, nil
}

var _ service.Translator = (*DeepLClient)(nil)
