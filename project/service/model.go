package service

import "slack-translate-bot/project/domain"

// HistoryQuery は conversations.history の検索条件です
type HistoryQuery struct {
	ChannelID string
	Oldest    domain.Timestamp
	Latest    domain.Timestamp
	Inclusive bool
	Limit     int
	Cursor    string
}

// MessagePage は履歴・スレッド取得の1ページ分の結果です
type MessagePage struct {
	Messages []domain.Message

	// NextCursor は次ページのカーソル（最終ページなら空）
	NextCursor string
}

// TranslationResult は翻訳サービスの結果です
type TranslationResult struct {
	Text string

	// DetectedSourceLang は翻訳サービスが検出した原文言語（例: "EN"）
	DetectedSourceLang string
}

// MessageEvent は新規メッセージ（subtype なし・Bot 以外）のイベントです
type MessageEvent struct {
	// RequestID はログ相関用の配信ID
	RequestID string

	ChannelID string
	TS        domain.Timestamp
	Text      string
}

// ReactionEvent は reaction_added イベントです
type ReactionEvent struct {
	RequestID string

	// Reaction は付与された絵文字名
	Reaction string

	// ItemType はリアクション対象の種別（"message" のみ処理）
	ItemType  string
	ChannelID string
	ItemTS    domain.Timestamp

	// ParentTSHint はイベントにスレッド親 TS が含まれていた場合の値
	ParentTSHint domain.Timestamp
}

// MessageChangedEvent は message_changed（メッセージ編集）イベントです
type MessageChangedEvent struct {
	RequestID string

	ChannelID string
	TS        domain.Timestamp
	ThreadTS  domain.Timestamp
	Text      string

	// PreviousText は編集前の本文（ペイロードに含まれない場合は空）
	PreviousText string

	// EditedTS は edited.ts、EventTS は event_ts。前者を編集マーカーとして優先します
	EditedTS domain.Timestamp
	EventTS  domain.Timestamp

	// Reactions はペイロードに含まれていたリアクション一覧
	Reactions []domain.Reaction
}

// EditMarker は同一編集を識別するマーカーを返します
func (e *MessageChangedEvent) EditMarker() string {
	if !e.EditedTS.IsZero() {
		return string(e.EditedTS)
	}
	return string(e.EventTS)
}

// ReplyAnchor は翻訳結果を返信するスレッド親 TS を返します
func (e *MessageChangedEvent) ReplyAnchor() domain.Timestamp {
	if !e.ThreadTS.IsZero() {
		return e.ThreadTS
	}
	return e.TS
}
