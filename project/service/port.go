package service

import (
	"context"

	"slack-translate-bot/project/domain"
)

// SlackPort は Slack Web API 呼び出しのポートです
// レート制限を受けた場合、各メソッドは domain.ErrRateLimited をラップしたエラーを返します
type SlackPort interface {
	// FetchHistory は conversations.history でチャンネル履歴を1ページ取得します
	FetchHistory(ctx context.Context, q HistoryQuery) (*MessagePage, error)

	// FetchThreadReplies は conversations.replies で anchor を起点としたスレッドを1ページ取得します
	FetchThreadReplies(ctx context.Context, channelID string, anchor domain.Timestamp, limit int, cursor string) (*MessagePage, error)

	// FetchReactions は reactions.get でメッセージの現在のリアクションを取得します
	FetchReactions(ctx context.Context, channelID string, ts domain.Timestamp) ([]domain.Reaction, error)

	// PostReply はスレッドにメッセージを投稿します
	PostReply(ctx context.Context, channelID string, threadTS domain.Timestamp, text string) error

	// ResolveSelfIdentity は auth.test で Bot 自身のユーザーIDを取得します
	ResolveSelfIdentity(ctx context.Context) (string, error)
}

// Translator は外部翻訳サービスのポートです
type Translator interface {
	// Translate はテキストを翻訳し、翻訳結果と検出された原文言語を返します
	Translate(ctx context.Context, text string) (*TranslationResult, error)
}
