package slack

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/slack-go/slack"

	"slack-translate-bot/project/domain"
	"slack-translate-bot/project/service"
)

// DefaultAPIURL は Slack Web API のエンドポイントです
const DefaultAPIURL = "https://slack.com/api/"

// Options は Slack クライアントの設定です
type Options struct {
	// BotToken は投稿と auth.test に使う Bot トークン
	BotToken string

	// UserToken は履歴・スレッド・リアクション取得に使う権限の強いトークン（任意）
	// チャンネルのスレッド返信を取得するには user トークンが必要です
	UserToken string

	// APIURL は Web API のベース URL（テスト用に差し替え可能）
	APIURL string

	// Timeout は1回の API 呼び出しのタイムアウト
	Timeout time.Duration
}

// SlackClient は service.SlackPort の Slack SDK 実装です
type SlackClient struct {
	bot    *slack.Client
	reader *slack.Client

	readerIsBot bool
	warnOnce    sync.Once
}

// NewSlackClient は Slack クライアントを初期化します
func NewSlackClient(opts Options) *SlackClient {
	apiURL := opts.APIURL
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	if !strings.HasSuffix(apiURL, "/") {
		apiURL += "/"
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	newClient := func(token string) *slack.Client {
		return slack.New(
			token,
			slack.OptionAPIURL(apiURL),
			slack.OptionHTTPClient(&http.Client{Timeout: timeout}),
		)
	}

	sc := &SlackClient{bot: newClient(opts.BotToken)}
	if opts.UserToken != "" {
		sc.reader = newClient(opts.UserToken)
	} else {
		sc.reader = sc.bot
		sc.readerIsBot = true
	}
	return sc
}

// readClient は読み取り系 API 用のクライアントを返します
// user トークンがなければ Bot トークンで代用し、初回だけ警告を出します
func (sc *SlackClient) readClient() *slack.Client {
	if sc.readerIsBot {
		sc.warnOnce.Do(func() {
			log.Printf("WARN SLACK_USER_TOKEN is not set; using bot token for history/replies/reactions (thread replies in channels may not be found)")
		})
	}
	return sc.reader
}

// FetchHistory は conversations.history でチャンネル履歴を1ページ取得します
func (sc *SlackClient) FetchHistory(ctx context.Context, q service.HistoryQuery) (*service.MessagePage, error) {
	resp, err := sc.readClient().GetConversationHistoryContext(ctx, &slack.GetConversationHistoryParameters{
		ChannelID: q.ChannelID,
		Cursor:    q.Cursor,
		Inclusive: q.Inclusive,
		Latest:    string(q.Latest),
		Oldest:    string(q.Oldest),
		Limit:     q.Limit,
	})
	if err != nil {
		return nil, fmt.Errorf("slack: 履歴取得失敗 (channel=%s, latest=%s): %w", q.ChannelID, q.Latest, mapError(err))
	}

	return &service.MessagePage{
		Messages:   toMessages(resp.Messages),
		NextCursor: resp.ResponseMetaData.NextCursor,
	}, nil
}

// FetchThreadReplies は conversations.replies で anchor を起点としたスレッドを1ページ取得します
func (sc *SlackClient) FetchThreadReplies(ctx context.Context, channelID string, anchor domain.Timestamp, limit int, cursor string) (*service.MessagePage, error) {
	msgs, _, nextCursor, err := sc.readClient().GetConversationRepliesContext(ctx, &slack.GetConversationRepliesParameters{
		ChannelID: channelID,
		Timestamp: string(anchor),
		Cursor:    cursor,
		Limit:     limit,
	})
	if err != nil {
		return nil, fmt.Errorf("slack: スレッド取得失敗 (channel=%s, ts=%s): %w", channelID, anchor, mapError(err))
	}

	return &service.MessagePage{
		Messages:   toMessages(msgs),
		NextCursor: nextCursor,
	}, nil
}

// FetchReactions は reactions.get でメッセージの現在のリアクションを取得します
func (sc *SlackClient) FetchReactions(ctx context.Context, channelID string, ts domain.Timestamp) ([]domain.Reaction, error) {
	items, err := sc.readClient().GetReactionsContext(ctx, slack.NewRefToMessage(channelID, string(ts)), slack.GetReactionsParameters{Full: true})
	if err != nil {
		return nil, fmt.Errorf("slack: リアクション取得失敗 (channel=%s, ts=%s): %w", channelID, ts, mapError(err))
	}
	return toReactions(items), nil
}

// PostReply はスレッドにメッセージを投稿します
func (sc *SlackClient) PostReply(ctx context.Context, channelID string, threadTS domain.Timestamp, text string) error {
	_, _, err := sc.bot.PostMessageContext(
		ctx,
		channelID,
		slack.MsgOptionText(text, false),
		slack.MsgOptionTS(string(threadTS)),
	)
	if err != nil {
		return fmt.Errorf("slack: スレッドメッセージ投稿失敗 (channel=%s, ts=%s): %w", channelID, threadTS, mapError(err))
	}
	return nil
}

// ResolveSelfIdentity は auth.test で Bot 自身のユーザーIDを取得します
func (sc *SlackClient) ResolveSelfIdentity(ctx context.Context) (string, error) {
	resp, err := sc.bot.AuthTestContext(ctx)
	if err != nil {
		return "", fmt.Errorf("slack: auth.test 失敗: %w", mapError(err))
	}
	return resp.UserID, nil
}

// mapError はレート制限を domain.ErrRateLimited に変換します
// それ以外のエラー（thread_not_found 等）はそのまま返します
func mapError(err error) error {
	var rl *slack.RateLimitedError
	if errors.As(err, &rl) {
		return fmt.Errorf("%w: retry after %s", domain.ErrRateLimited, rl.RetryAfter)
	}
	var se slack.SlackErrorResponse
	if errors.As(err, &se) && se.Err == "ratelimited" {
		return fmt.Errorf("%w: %s", domain.ErrRateLimited, se.Err)
	}
	return err
}

func toMessages(msgs []slack.Message) []domain.Message {
	out := make([]domain.Message, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, domain.Message{
			TS:         domain.Timestamp(m.Timestamp),
			ThreadTS:   domain.Timestamp(m.ThreadTimestamp),
			Text:       m.Text,
			ReplyCount: m.ReplyCount,
			Reactions:  toReactions(m.Reactions),
		})
	}
	return out
}

func toReactions(items []slack.ItemReaction) []domain.Reaction {
	if len(items) == 0 {
		return nil
	}
	out := make([]domain.Reaction, 0, len(items))
	for _, r := range items {
		out = append(out, domain.Reaction{Name: r.Name, Count: r.Count})
	}
	return out
}

var _ service.SlackPort = (*SlackClient)(nil)
