package domain

import (
	"strconv"
	"strings"
)

// microDigits は TS の小数部の桁数（マイクロ秒）
const microDigits = 6

// Timestamp は Slack のメッセージ TS（"1700000000.123456" 形式の10進文字列）です
type Timestamp string

// Equal は文字列一致、またはマイクロ秒単位の整数として一致すれば true を返します
// "123.0" と "123.000000" のような表記揺れを吸収します
func (t Timestamp) Equal(other Timestamp) bool {
	if t == other {
		return true
	}
	a, okA := t.Micros()
	b, okB := other.Micros()
	if !okA || !okB {
		return false
	}
	return a == b
}

// Micros は TS をマイクロ秒単位の整数に変換します
// 小数部が6桁を超える TS は不正として扱います
func (t Timestamp) Micros() (int64, bool) {
	s := strings.TrimSpace(string(t))
	if s == "" {
		return 0, false
	}
	secPart, fracPart, _ := strings.Cut(s, ".")
	if secPart == "" || len(fracPart) > microDigits || !isDigits(secPart) || !isDigits(fracPart) {
		return 0, false
	}
	sec, err := strconv.ParseInt(secPart, 10, 64)
	if err != nil {
		return 0, false
	}
	frac := int64(0)
	if fracPart != "" {
		frac, err = strconv.ParseInt(fracPart+strings.Repeat("0", microDigits-len(fracPart)), 10, 64)
		if err != nil {
			return 0, false
		}
	}
	return sec*1_000_000 + frac, true
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// IsZero は TS が未設定かどうかを返します
func (t Timestamp) IsZero() bool {
	return strings.TrimSpace(string(t)) == ""
}

func (t Timestamp) String() string {
	return string(t)
}

// MessageKey はチャンネル内でメッセージを一意に識別するキーです
// チャンネルをまたいだ一意性はありません
type MessageKey struct {
	ChannelID string
	TS        Timestamp
}

// String は重複排除台帳で使うキー文字列を返します
// 形式: "channel:ts"
func (k MessageKey) String() string {
	return k.ChannelID + ":" + string(k.TS)
}

// EditKey は message_changed の同一編集を識別する複合キーを返します
// 形式: "channel:{ts}:edit:{editMarker}"
func (k MessageKey) EditKey(editMarker string) MessageKey {
	return MessageKey{
		ChannelID: k.ChannelID,
		TS:        Timestamp(string(k.TS) + ":edit:" + editMarker),
	}
}
