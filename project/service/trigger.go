package service

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strings"
	"sync"

	"slack-translate-bot/project/domain"
)

// horizontalSpace は改行を除く連続空白
var horizontalSpace = regexp.MustCompile(`[ \t]{2,}`)

// BotIdentity は Bot 自身のユーザーIDを遅延取得してプロセス存続中メモ化します
// 取得に失敗した場合はメモ化せず、次回の呼び出しで再取得します
type BotIdentity struct {
	mu     sync.Mutex
	userID string
	sp     SlackPort
}

// NewBotIdentity は BotIdentity を作成します
func NewBotIdentity(sp SlackPort) *BotIdentity {
	return &BotIdentity{sp: sp}
}

// UserID は Bot のユーザーIDを返します
func (b *BotIdentity) UserID(ctx context.Context) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.userID != "" {
		return b.userID, nil
	}
	id, err := b.sp.ResolveSelfIdentity(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrIdentityUnavailable, err)
	}
	if id == "" {
		return "", domain.ErrIdentityUnavailable
	}
	b.userID = id
	return id, nil
}

// TriggerPolicy はトリガー方式に応じて翻訳対象かどうかを判定し、翻訳前の本文を整えます
type TriggerPolicy struct {
	cfg      domain.TriggerConfig
	identity *BotIdentity
}

// NewTriggerPolicy は TriggerPolicy を作成します
func NewTriggerPolicy(cfg domain.TriggerConfig, identity *BotIdentity) *TriggerPolicy {
	return &TriggerPolicy{cfg: cfg, identity: identity}
}

// Apply は新規メッセージ本文にトリガー方式を適用します
// 翻訳対象外なら ok=false を返します。reaction モードでは新規メッセージは常に対象外です
func (p *TriggerPolicy) Apply(ctx context.Context, text string) (string, bool) {
	switch p.cfg.Mode {
	case domain.TriggerAll:
		return text, strings.TrimSpace(text) != ""

	case domain.TriggerPrefix:
		if !strings.HasPrefix(text, p.cfg.Prefix) {
			return "", false
		}
		stripped := strings.TrimSpace(strings.TrimPrefix(text, p.cfg.Prefix))
		return stripped, stripped != ""

	case domain.TriggerMention:
		botUserID, err := p.identity.UserID(ctx)
		if err != nil {
			// 自分のメンション形式が分からないため翻訳しない
			log.Printf("WARN mention trigger disabled: bot identity unavailable: %v", err)
			return "", false
		}
		token := fmt.Sprintf("<@%s>", botUserID)
		if !strings.Contains(text, token) {
			return "", false
		}
		stripped := strings.Replace(text, token, " ", 1)
		stripped = strings.TrimSpace(horizontalSpace.ReplaceAllString(stripped, " "))
		return stripped, stripped != ""
	}
	return "", false
}

// ReactionMatches はリアクション名がトリガー絵文字と一致するかを判定します
func (p *TriggerPolicy) ReactionMatches(reaction string) bool {
	if p.cfg.Mode != domain.TriggerReaction {
		return false
	}
	want := domain.NormalizeEmoji(p.cfg.ReactionEmoji)
	return want != "" && domain.NormalizeEmoji(reaction) == want
}
