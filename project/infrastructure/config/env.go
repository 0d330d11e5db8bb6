package config

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"slack-translate-bot/project/domain"
	"slack-translate-bot/project/infrastructure/secret"
)

// 翻訳プロバイダ
const (
	ProviderDeepL  = "deepl"
	ProviderOpenAI = "openai"
)

// DefaultExtractPhrases は翻訳依頼の前置きとみなすフレーズの既定値です
var DefaultExtractPhrases = []string{
	"Can you please assist us with a translation of the following:",
	"Can you please assist with translating the following:",
	"Can you translate the following:",
	"Please translate the below:",
	"translation of the following:",
	"the following:",
}

// SecretSource はシークレットの取得元です（Secret Manager など）
// 存在しないシークレットは domain.ErrNotFound をラップして返します
type SecretSource interface {
	GetSecret(ctx context.Context, name string) (string, error)
}

// Config は環境変数から読み込まれるアプリケーション設定を表します
type Config struct {
	// 基本設定
	GcpProject  string
	Port        string
	HTTPTimeout time.Duration

	// Slack API設定
	SlackSigningSecret string // 環境変数 or Secret Manager
	SlackBotToken      string // 環境変数 or Secret Manager
	SlackUserToken     string // 環境変数 or Secret Manager（任意）
	SlackAPIURL        string

	// 翻訳設定
	TranslateProvider string
	SourceLang        string
	TargetLang        string
	DeepLAPIKey       string // 環境変数 or Secret Manager
	DeepLAPIURL       string
	OpenAIAPIKey      string // 環境変数 or Secret Manager
	OpenAIBaseURL     string
	OpenAIModel       string

	// トリガー設定
	TriggerMode     domain.TriggerMode
	TranslatePrefix string
	ReactionEmoji   string
	ChannelIDs      []string
	ExcludePhrases  []string
	ExtractPhrases  []string
	MaxAgeSeconds   int
}

// NewConfig は .env と環境変数から設定を読み込み、Config構造体を返します
// GCP_PROJECT が設定されていれば、未設定のシークレットを Secret Manager から取得します
func NewConfig(ctx context.Context) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf(".env 読み込み失敗: %w", err)
	}

	var secrets SecretSource
	if project := os.Getenv("GCP_PROJECT"); project != "" {
		mgr, err := secret.NewManager(ctx, project)
		if err != nil {
			return nil, err
		}
		defer mgr.Close()
		secrets = mgr
	}

	return Load(ctx, os.Getenv, secrets)
}

// Load は getenv と secrets から設定を組み立てます。secrets は nil でも構いません
func Load(ctx context.Context, getenv func(string) string, secrets SecretSource) (*Config, error) {
	env := func(key, def string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return def
	}

	mode, err := domain.ParseTriggerMode(getenv("TRANSLATE_TRIGGER"))
	if err != nil {
		return nil, fmt.Errorf("TRANSLATE_TRIGGER: %w", err)
	}

	maxAge, err := strconv.Atoi(env("SLACK_REQUEST_MAX_AGE_SECONDS", "300"))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid SLACK_REQUEST_MAX_AGE_SECONDS: %v", domain.ErrInvalid, err)
	}

	timeout, err := time.ParseDuration(env("HTTP_TIMEOUT", "15s"))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid HTTP_TIMEOUT format: %v", domain.ErrInvalid, err)
	}

	provider := strings.ToLower(env("TRANSLATE_PROVIDER", ProviderDeepL))
	if provider != ProviderDeepL && provider != ProviderOpenAI {
		return nil, fmt.Errorf("%w: 不明な TRANSLATE_PROVIDER です: %q", domain.ErrInvalid, provider)
	}

	extract := splitList(getenv("EXTRACT_PHRASES"), "|")
	if len(extract) == 0 {
		extract = append([]string(nil), DefaultExtractPhrases...)
	}
	exclude := splitList(getenv("EXCLUDE_PHRASES"), "|")
	if path := env("PHRASES_FILE", ""); path != "" {
		file, err := LoadPhrasesFile(path)
		if err != nil {
			return nil, err
		}
		extract = mergeUnique(extract, file.ExtractPhrases)
		exclude = mergeUnique(exclude, file.ExcludePhrases)
	}

	cfg := &Config{
		GcpProject:  env("GCP_PROJECT", ""),
		Port:        env("PORT", "8080"),
		HTTPTimeout: timeout,

		SlackAPIURL: env("SLACK_API_URL", "https://slack.com/api/"),

		TranslateProvider: provider,
		SourceLang:        strings.ToUpper(env("TRANSLATE_SOURCE_LANG", "EN")),
		TargetLang:        strings.ToUpper(env("TRANSLATE_TARGET_LANG", "DE")),
		DeepLAPIURL:       env("DEEPL_API_URL", ""),
		OpenAIBaseURL:     env("OPENAI_BASE_URL", ""),
		OpenAIModel:       env("OPENAI_MODEL", ""),

		TriggerMode:     mode,
		TranslatePrefix: env("TRANSLATE_PREFIX", "[translate]"),
		ReactionEmoji:   domain.NormalizeEmoji(env("REACTION_TRIGGER_EMOJI", "de")),
		ChannelIDs:      splitList(getenv("SLACK_CHANNEL_IDS"), ","),
		ExcludePhrases:  exclude,
		ExtractPhrases:  extract,
		MaxAgeSeconds:   maxAge,
	}

	// シークレット（環境変数を優先し、なければ Secret Manager）
	lookups := []secretLookup{
		{"SLACK_SIGNING_SECRET", &cfg.SlackSigningSecret},
		{"SLACK_BOT_TOKEN", &cfg.SlackBotToken},
		{"SLACK_USER_TOKEN", &cfg.SlackUserToken},
	}
	switch provider {
	case ProviderDeepL:
		lookups = append(lookups, secretLookup{"DEEPL_API_KEY", &cfg.DeepLAPIKey})
	case ProviderOpenAI:
		lookups = append(lookups, secretLookup{"OPENAI_API_KEY", &cfg.OpenAIAPIKey})
	}
	for _, l := range lookups {
		v, err := resolveSecret(ctx, getenv, secrets, l.key)
		if err != nil {
			return nil, err
		}
		*l.dst = v
	}

	if err := cfg.TriggerConfig().Validate(); err != nil {
		return nil, err
	}

	if cfg.SlackSigningSecret == "" {
		log.Printf("WARN SLACK_SIGNING_SECRET is not set; only url_verification requests will be accepted")
	}
	if cfg.SlackBotToken == "" {
		log.Printf("WARN SLACK_BOT_TOKEN is not set; replies cannot be posted")
	}

	return cfg, nil
}

// TriggerConfig はトリガー設定を返します
func (c *Config) TriggerConfig() domain.TriggerConfig {
	return domain.TriggerConfig{
		Mode:           c.TriggerMode,
		Prefix:         c.TranslatePrefix,
		ReactionEmoji:  c.ReactionEmoji,
		ChannelIDs:     c.ChannelIDs,
		ExcludePhrases: c.ExcludePhrases,
		ExtractPhrases: c.ExtractPhrases,
		MaxAgeSeconds:  c.MaxAgeSeconds,
	}
}

// secretLookup は環境変数名と格納先の組です
type secretLookup struct {
	key string
	dst *string
}

// resolveSecret は環境変数、なければ Secret Manager からシークレットを取得します
// Secret Manager に存在しない場合は未設定として扱います
func resolveSecret(ctx context.Context, getenv func(string) string, secrets SecretSource, key string) (string, error) {
	if v := strings.TrimSpace(getenv(key)); v != "" {
		return v, nil
	}
	if secrets == nil {
		return "", nil
	}

	name := secretName(key)
	v, err := secrets.GetSecret(ctx, name)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("%s 取得失敗: %w", key, err)
	}
	return strings.TrimSpace(v), nil
}

// secretName は環境変数名を Secret Manager のシークレット名に変換します（SLACK_BOT_TOKEN → slack-bot-token）
func secretName(key string) string {
	return strings.ToLower(strings.ReplaceAll(key, "_", "-"))
}

// splitList は区切り文字で分割し、空要素を除いて返します
func splitList(s, sep string) []string {
	var out []string
	for _, part := range strings.Split(s, sep) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// mergeUnique は base に extra のうち未登録のものを追加します
func mergeUnique(base, extra []string) []string {
	seen := make(map[string]bool, len(base))
	for _, s := range base {
		seen[s] = true
	}
	for _, s := range extra {
		if s = strings.TrimSpace(s); s != "" && !seen[s] {
			base = append(base, s)
			seen[s] = true
		}
	}
	return base
}
