package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"slack-translate-bot/project/domain"
)

// TranslationService は Slack イベントを受けて翻訳し、スレッドへ返信するサービスです
type TranslationService interface {
	// OnMessage は新規メッセージ受信時に呼ばれ、トリガー方式に従って翻訳・返信します
	OnMessage(ctx context.Context, ev *MessageEvent) error

	// OnReactionAdded はリアクション付与時に呼ばれ、対象メッセージを特定して翻訳・返信します
	OnReactionAdded(ctx context.Context, ev *ReactionEvent) error

	// OnMessageChanged はメッセージ編集時に呼ばれ、トリガーリアクション付きなら翻訳を再投稿します
	OnMessageChanged(ctx context.Context, ev *MessageChangedEvent) error
}

// translationService は TranslationService の実装です
type translationService struct {
	cfg        domain.TriggerConfig
	sourceLang string
	ledger     domain.DedupLedger
	sp         SlackPort
	tr         Translator
	policy     *TriggerPolicy
	resolver   *MessageResolver
	shaper     *ContentShaper
}

// NewTranslationService は TranslationService のインスタンスを作成します
// sourceLang は翻訳結果を採用する原文言語（例: "EN"）。空なら検出言語を問いません
func NewTranslationService(
	cfg domain.TriggerConfig,
	sourceLang string,
	ledger domain.DedupLedger,
	sp SlackPort,
	tr Translator,
) TranslationService {
	return &translationService{
		cfg:        cfg,
		sourceLang: strings.ToUpper(strings.TrimSpace(sourceLang)),
		ledger:     ledger,
		sp:         sp,
		tr:         tr,
		policy:     NewTriggerPolicy(cfg, NewBotIdentity(sp)),
		resolver:   NewMessageResolver(sp),
		shaper:     NewContentShaper(cfg.ExtractPhrases),
	}
}

// OnMessage は all / prefix / mention モードの新規メッセージを処理します
func (s *translationService) OnMessage(ctx context.Context, ev *MessageEvent) error {
	if s.cfg.Mode == domain.TriggerReaction {
		return nil
	}

	text := strings.TrimSpace(ev.Text)
	if ev.ChannelID == "" || ev.TS.IsZero() || text == "" {
		return nil
	}
	if !s.cfg.ChannelAllowed(ev.ChannelID) {
		return nil
	}

	key := domain.MessageKey{ChannelID: ev.ChannelID, TS: ev.TS}
	if s.ledger.CheckAndMark(key) {
		log.Printf("req=%s duplicate message ignored: channel=%s ts=%s", ev.RequestID, ev.ChannelID, ev.TS)
		return nil
	}

	stripped, ok := s.policy.Apply(ctx, text)
	if !ok {
		return nil
	}
	content := s.shaper.Extract(stripped)
	if s.cfg.Excluded(content) {
		log.Printf("req=%s message excluded by phrase: channel=%s ts=%s", ev.RequestID, ev.ChannelID, ev.TS)
		return nil
	}

	return s.translateAndReply(ctx, ev.RequestID, ev.ChannelID, ev.TS, content)
}

// OnReactionAdded は reaction モードでトリガー絵文字が付いたメッセージを翻訳します
func (s *translationService) OnReactionAdded(ctx context.Context, ev *ReactionEvent) error {
	if !s.policy.ReactionMatches(ev.Reaction) {
		return nil
	}
	if ev.ItemType != "message" || ev.ChannelID == "" || ev.ItemTS.IsZero() {
		return nil
	}
	if !s.cfg.ChannelAllowed(ev.ChannelID) {
		return nil
	}

	key := domain.MessageKey{ChannelID: ev.ChannelID, TS: ev.ItemTS}
	if s.ledger.CheckAndMark(key) {
		log.Printf("req=%s duplicate reaction ignored: channel=%s ts=%s", ev.RequestID, ev.ChannelID, ev.ItemTS)
		return nil
	}

	msg, err := s.resolver.Resolve(ctx, ev.ChannelID, ev.ItemTS, ev.ParentTSHint)
	if err != nil {
		return fmt.Errorf("OnReactionAdded: メッセージ特定失敗: %w", err)
	}

	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return nil
	}
	if s.cfg.Excluded(text) {
		log.Printf("req=%s message excluded by phrase: channel=%s ts=%s", ev.RequestID, ev.ChannelID, ev.ItemTS)
		return nil
	}

	return s.translateAndReply(ctx, ev.RequestID, ev.ChannelID, msg.ReplyAnchorTS, s.shaper.Extract(text))
}

// OnMessageChanged は reaction モードで、トリガーリアクション付きメッセージの編集を翻訳し直します
// 編集マーカーごとに一度だけ返信するため、編集のたびにスレッドへ新しい返信が増えます
func (s *translationService) OnMessageChanged(ctx context.Context, ev *MessageChangedEvent) error {
	if s.cfg.Mode != domain.TriggerReaction {
		return nil
	}

	text := strings.TrimSpace(ev.Text)
	if ev.ChannelID == "" || ev.TS.IsZero() || text == "" {
		return nil
	}
	if !s.cfg.ChannelAllowed(ev.ChannelID) {
		return nil
	}
	// 本文が変わらない更新（リンク展開など）は翻訳し直さない
	if ev.PreviousText != "" && strings.TrimSpace(ev.PreviousText) == text {
		return nil
	}

	if !s.hasTriggerReaction(ctx, ev) {
		return nil
	}

	key := domain.MessageKey{ChannelID: ev.ChannelID, TS: ev.TS}.EditKey(ev.EditMarker())
	if s.ledger.CheckAndMark(key) {
		log.Printf("req=%s duplicate edit ignored: channel=%s ts=%s edit=%s", ev.RequestID, ev.ChannelID, ev.TS, ev.EditMarker())
		return nil
	}

	if s.cfg.Excluded(text) {
		log.Printf("req=%s message excluded by phrase: channel=%s ts=%s", ev.RequestID, ev.ChannelID, ev.TS)
		return nil
	}

	return s.translateAndReply(ctx, ev.RequestID, ev.ChannelID, ev.ReplyAnchor(), s.shaper.Extract(text))
}

// hasTriggerReaction はペイロードのリアクション一覧、なければ reactions.get の結果からトリガー絵文字の有無を判定します
func (s *translationService) hasTriggerReaction(ctx context.Context, ev *MessageChangedEvent) bool {
	if domain.HasReaction(ev.Reactions, s.cfg.ReactionEmoji) {
		return true
	}
	reactions, err := s.sp.FetchReactions(ctx, ev.ChannelID, ev.TS)
	if err != nil {
		log.Printf("WARN req=%s reactions lookup failed: channel=%s ts=%s err=%v", ev.RequestID, ev.ChannelID, ev.TS, err)
		return false
	}
	return domain.HasReaction(reactions, s.cfg.ReactionEmoji)
}

// translateAndReply は前置き除去済みの本文を見出しと本文に分けて翻訳し、スレッドに返信します
func (s *translationService) translateAndReply(ctx context.Context, reqID, channelID string, anchor domain.Timestamp, content string) error {
	translated, ok := TranslateHeadlineAndBody(ctx, content, func(ctx context.Context, part string) (string, bool) {
		return s.translateUnit(ctx, reqID, part)
	})
	if !ok {
		log.Printf("req=%s nothing to post: channel=%s anchor=%s", reqID, channelID, anchor)
		return nil
	}

	if err := s.sp.PostReply(ctx, channelID, anchor, translated); err != nil {
		return fmt.Errorf("translateAndReply: 翻訳結果投稿失敗 (channel=%s, anchor=%s): %w", channelID, anchor, err)
	}
	log.Printf("req=%s posted translation: channel=%s anchor=%s", reqID, channelID, anchor)
	return nil
}

// translateUnit は1単位のテキストを翻訳します
// 検出言語が想定の原文言語と異なる場合は翻訳しない扱いにします（エラーではありません）
func (s *translationService) translateUnit(ctx context.Context, reqID, text string) (string, bool) {
	if strings.TrimSpace(text) == "" {
		return "", false
	}
	res, err := s.tr.Translate(ctx, text)
	if err != nil {
		if errors.Is(err, domain.ErrTranslationSkipped) {
			log.Printf("req=%s translation skipped: %v", reqID, err)
			return "", false
		}
		log.Printf("WARN req=%s translation failed: err=%v", reqID, err)
		return "", false
	}
	detected := strings.ToUpper(strings.TrimSpace(res.DetectedSourceLang))
	if s.sourceLang != "" && detected != "" && !strings.HasPrefix(detected, s.sourceLang) {
		log.Printf("req=%s translation skipped: detected=%s expected=%s", reqID, detected, s.sourceLang)
		return "", false
	}
	out := strings.TrimSpace(res.Text)
	return out, out != ""
}
