package domain

import (
	"fmt"
	"strings"
)

// TriggerMode は翻訳対象を決めるトリガー方式です
type TriggerMode string

const (
	// TriggerAll はすべてのメッセージを翻訳します
	TriggerAll TriggerMode = "all"
	// TriggerPrefix は指定プレフィックスで始まるメッセージのみ翻訳します
	TriggerPrefix TriggerMode = "prefix"
	// TriggerMention は Bot へのメンションを含むメッセージのみ翻訳します
	TriggerMention TriggerMode = "mention"
	// TriggerReaction は指定リアクションが付いたメッセージを翻訳します
	TriggerReaction TriggerMode = "reaction"
)

// ParseTriggerMode は設定値からトリガー方式を解釈します（空文字は all）
func ParseTriggerMode(s string) (TriggerMode, error) {
	switch TriggerMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", TriggerAll:
		return TriggerAll, nil
	case TriggerPrefix:
		return TriggerPrefix, nil
	case TriggerMention:
		return TriggerMention, nil
	case TriggerReaction:
		return TriggerReaction, nil
	}
	return "", fmt.Errorf("%w: 不明なトリガー方式です: %q", ErrInvalid, s)
}

// TriggerConfig はプロセス起動時に一度だけ確定する翻訳トリガー設定です
type TriggerConfig struct {
	// Mode はトリガー方式
	Mode TriggerMode

	// Prefix は prefix モードで要求する先頭文字列（大文字小文字を区別）
	Prefix string

	// ReactionEmoji は reaction モードのトリガー絵文字（正規化済み）
	ReactionEmoji string

	// ChannelIDs は翻訳対象チャンネル（空なら全チャンネル）
	ChannelIDs []string

	// ExcludePhrases は本文（小文字化）に含まれていたら翻訳しないフレーズ
	ExcludePhrases []string

	// ExtractPhrases はこのフレーズ以降のみを翻訳対象とする前置きフレーズ
	ExtractPhrases []string

	// MaxAgeSeconds は署名検証のリプレイ許容秒数
	MaxAgeSeconds int
}

// ChannelAllowed はチャンネルが許可リストに含まれるかを判定します
func (c TriggerConfig) ChannelAllowed(channelID string) bool {
	if len(c.ChannelIDs) == 0 {
		return true
	}
	for _, id := range c.ChannelIDs {
		if id == channelID {
			return true
		}
	}
	return false
}

// Excluded は本文に除外フレーズが含まれるかを判定します
func (c TriggerConfig) Excluded(text string) bool {
	lower := strings.ToLower(text)
	for _, p := range c.ExcludePhrases {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" && strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// Validate は設定の整合性を検証します
func (c TriggerConfig) Validate() error {
	switch c.Mode {
	case TriggerAll, TriggerMention:
	case TriggerPrefix:
		if strings.TrimSpace(c.Prefix) == "" {
			return fmt.Errorf("%w: prefix モードには TRANSLATE_PREFIX が必須です", ErrInvalid)
		}
	case TriggerReaction:
		if NormalizeEmoji(c.ReactionEmoji) == "" {
			return fmt.Errorf("%w: reaction モードには REACTION_TRIGGER_EMOJI が必須です", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: 不明なトリガー方式です: %q", ErrInvalid, c.Mode)
	}
	if c.MaxAgeSeconds <= 0 {
		return fmt.Errorf("%w: MaxAgeSecondsは0より大きい必要があります", ErrInvalid)
	}
	return nil
}
