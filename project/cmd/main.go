package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"slack-translate-bot/project/handler"
	"slack-translate-bot/project/infrastructure/config"
	"slack-translate-bot/project/infrastructure/slack"
	"slack-translate-bot/project/infrastructure/store"
	"slack-translate-bot/project/infrastructure/translate"
	"slack-translate-bot/project/service"
)

func main() {
	ctx := context.Background()

	// 1. 設定を読み込む（.env / 環境変数 / Secret Manager）
	cfg, err := config.NewConfig(ctx)
	if err != nil {
		log.Fatalf("設定読み込み失敗: %v", err)
	}

	// 2. 依存関係を初期化
	// Slack API ポート実装
	slackClient := slack.NewSlackClient(slack.Options{
		BotToken:  cfg.SlackBotToken,
		UserToken: cfg.SlackUserToken,
		APIURL:    cfg.SlackAPIURL,
		Timeout:   cfg.HTTPTimeout,
	})

	// 翻訳プロバイダ
	var translator service.Translator
	switch cfg.TranslateProvider {
	case config.ProviderOpenAI:
		translator = translate.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel, cfg.TargetLang, cfg.HTTPTimeout)
	default:
		translator = translate.NewDeepLClient(cfg.DeepLAPIKey, cfg.DeepLAPIURL, cfg.TargetLang, cfg.HTTPTimeout)
	}

	// 処理済みイベント台帳（プロセス内のみ）
	ledger := store.NewMemoryLedger(store.DefaultLedgerCapacity)

	// 3. サービス層を初期化
	triggerCfg := cfg.TriggerConfig()
	translationService := service.NewTranslationService(triggerCfg, cfg.SourceLang, ledger, slackClient, translator)

	// 4. HTTP ハンドラーを設定
	mux := http.NewServeMux()

	// Slack イベント受信
	events := handler.NewEventsHandler(cfg.SlackSigningSecret, triggerCfg.MaxAgeSeconds, translationService)
	mux.Handle("/events", events)
	mux.Handle("/slack/events", events)

	// ヘルスチェック
	mux.Handle("/health", handler.NewHealthHandler())

	// 5. サーバー起動
	addr := fmt.Sprintf(":%s", cfg.Port)
	log.Printf("サーバー起動: %s (trigger=%s provider=%s channels=%d)", addr, triggerCfg.Mode, cfg.TranslateProvider, len(triggerCfg.ChannelIDs))

	if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
		log.Fatalf("サーバーエラー: %v", err)
	}
}
