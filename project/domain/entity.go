package domain

import (
	"strings"
)

// Reaction はメッセージに付与されたリアクション（絵文字）です
type Reaction struct {
	// Name は絵文字のショートコード名（コロンなし、例: "de"）
	Name string

	// Count はリアクション数
	Count int
}

// Message は Slack API から取得したメッセージの必要最小限の表現です
type Message struct {
	// TS はメッセージ自身のタイムスタンプ
	TS Timestamp

	// ThreadTS はスレッド親のタイムスタンプ（スレッド外なら空）
	ThreadTS Timestamp

	// Text はメッセージ本文
	Text string

	// ReplyCount はスレッド返信数（親メッセージのみ非ゼロ）
	ReplyCount int

	// Reactions は付与済みリアクション
	Reactions []Reaction
}

// ResolvedMessage はメッセージ解決の結果です
// ReplyAnchorTS はスレッド返信ならスレッド親の TS、トップレベルならメッセージ自身の TS です
type ResolvedMessage struct {
	Text          string
	ReplyAnchorTS Timestamp
}

// NormalizeEmoji はリアクション名を比較用に正規化します
// 前後のコロンを除去し、小文字化し、ハイフンをアンダースコアに置換します
func NormalizeEmoji(name string) string {
	name = strings.TrimSpace(name)
	name = strings.Trim(name, ":")
	name = strings.ToLower(name)
	return strings.ReplaceAll(name, "-", "_")
}

// HasReaction はリアクション一覧に指定の絵文字が含まれるかを判定します
func HasReaction(reactions []Reaction, emoji string) bool {
	want := NormalizeEmoji(emoji)
	if want == "" {
		return false
	}
	for _, r := range reactions {
		if NormalizeEmoji(r.Name) == want {
			return true
		}
	}
	return false
}
