package dto

// SlackEventRequest は Slack Events API のリクエスト全体を表します
type SlackEventRequest struct {
	Token     string     `json:"token"`
	TeamID    string     `json:"team_id"`
	APIAppID  string     `json:"api_app_id"`
	Event     SlackEvent `json:"event"`
	Type      string     `json:"type"` // "event_callback", "url_verification"
	EventID   string     `json:"event_id"`
	EventTime int64      `json:"event_time"`
	Challenge *string    `json:"challenge,omitempty"` // URL検証時のみ
}

// SlackEvent は様々なSlackイベントを表現する汎用構造体です
type SlackEvent struct {
	Type      string `json:"type"`                // "message", "reaction_added" など
	User      string `json:"user"`                // イベント発生者（メッセージ送信者）
	Text      string `json:"text"`                // メッセージ本文
	Channel   string `json:"channel"`             // チャンネルID
	Timestamp string `json:"ts"`                  // メッセージTS
	ThreadTs  string `json:"thread_ts,omitempty"` // スレッドTS（スレッド内の場合）
	BotID     string `json:"bot_id,omitempty"`    // Bot投稿の場合
	SubType   string `json:"subtype,omitempty"`   // "message_changed", "bot_message" など
	EventTs   string `json:"event_ts,omitempty"`

	// reaction_added イベント固有
	Reaction string             `json:"reaction,omitempty"`
	Item     *SlackReactionItem `json:"item,omitempty"`

	// message_changed イベント固有
	Message         *SlackMessage `json:"message,omitempty"`
	PreviousMessage *SlackMessage `json:"previous_message,omitempty"`
}

// SlackReactionItem はリアクションが付けられた対象です
type SlackReactionItem struct {
	Type     string `json:"type"` // "message", "file" など
	Channel  string `json:"channel"`
	Ts       string `json:"ts"`
	ThreadTs string `json:"thread_ts,omitempty"` // 一部のペイロードのみ。親メッセージ探索のヒントに使う
}

// SlackMessage は message_changed に含まれる編集前後のメッセージです
type SlackMessage struct {
	Type      string          `json:"type"`
	User      string          `json:"user"`
	Text      string          `json:"text"`
	Timestamp string          `json:"ts"`
	ThreadTs  string          `json:"thread_ts,omitempty"`
	BotID     string          `json:"bot_id,omitempty"`
	Edited    *SlackEdited    `json:"edited,omitempty"`
	Reactions []SlackReaction `json:"reactions,omitempty"`
}

// SlackEdited は編集情報です
type SlackEdited struct {
	User      string `json:"user"`
	Timestamp string `json:"ts"`
}

// SlackReaction はメッセージに付いたリアクションの集計です
type SlackReaction struct {
	Name  string   `json:"name"`
	Count int      `json:"count"`
	Users []string `json:"users,omitempty"`
}

// URLVerificationResponse は url_verification への応答です
type URLVerificationResponse struct {
	Challenge string `json:"challenge"`
}

// HealthResponse はヘルスチェックの応答です
type HealthResponse struct {
	Status string `json:"status"`
}
