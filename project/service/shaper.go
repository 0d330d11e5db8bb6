package service

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"
)

var (
	// emojiPlaceholderPattern は翻訳中に絵文字を退避するプレースホルダ
	emojiPlaceholderPattern = regexp.MustCompile(`EMOJISLACK(\d+)X`)

	// protectedPattern は退避対象（Slack の絵文字ショートコードと、本文中に元からあるプレースホルダ表記）
	protectedPattern = regexp.MustCompile(`:[a-zA-Z0-9_+]+:|EMOJISLACK\d+X`)
)

// ProtectEmoji はショートコードを位置付きプレースホルダに置換し、元のショートコードを出現順に返します
// 翻訳サービスが ":loudspeaker:" のような語を翻訳してしまうのを防ぎます
// 本文に元からプレースホルダと同じ表記があればそれも退避し、復元時に元の文字列へ戻します
func ProtectEmoji(text string) (string, []string) {
	var shortcodes []string
	replaced := protectedPattern.ReplaceAllStringFunc(text, func(code string) string {
		placeholder := fmt.Sprintf("EMOJISLACK%dX", len(shortcodes))
		shortcodes = append(shortcodes, code)
		return placeholder
	})
	return replaced, shortcodes
}

// RestoreEmoji はプレースホルダを元のショートコードに戻します
// 範囲外のインデックスはそのまま残します
func RestoreEmoji(text string, shortcodes []string) string {
	if len(shortcodes) == 0 {
		return text
	}
	return emojiPlaceholderPattern.ReplaceAllStringFunc(text, func(placeholder string) string {
		m := emojiPlaceholderPattern.FindStringSubmatch(placeholder)
		idx, err := strconv.Atoi(m[1])
		if err != nil || idx < 0 || idx >= len(shortcodes) {
			return placeholder
		}
		return shortcodes[idx]
	})
}

// SplitHeadlineBody は最初の改行で見出しと本文に分割します
// 改行がなければ本文は空です。本文は複数行のままです
func SplitHeadlineBody(text string) (headline, body string) {
	idx := strings.Index(text, "\n")
	if idx < 0 {
		return strings.TrimSpace(text), ""
	}
	return strings.TrimSpace(text[:idx]), strings.TrimSpace(text[idx+1:])
}

// ContentShaper は翻訳前の本文整形（前置きフレーズの除去）を行います
type ContentShaper struct {
	extractPhrases []string // 長い順
}

// NewContentShaper は前置きフレーズ一覧から ContentShaper を作成します
// 短いフレーズが長いフレーズの一部に先にマッチしないよう、長い順に並べ替えます
func NewContentShaper(extractPhrases []string) *ContentShaper {
	phrases := make([]string, 0, len(extractPhrases))
	for _, p := range extractPhrases {
		if p = strings.TrimSpace(p); p != "" {
			phrases = append(phrases, p)
		}
	}
	sort.SliceStable(phrases, func(i, j int) bool {
		return len(phrases[i]) > len(phrases[j])
	})
	return &ContentShaper{extractPhrases: phrases}
}

// Extract は前置きフレーズ（大文字小文字を区別しない）以降の本文を返します
// フレーズが見つからない場合、またはフレーズの後に何もない場合は元の本文をそのまま返します
func (s *ContentShaper) Extract(text string) string {
	for _, phrase := range s.extractPhrases {
		idx := indexFold(text, phrase)
		if idx < 0 {
			continue
		}
		rest := strings.TrimSpace(text[idx+len(phrase):])
		if rest == "" {
			return text
		}
		return rest
	}
	return text
}

// indexFold は大文字小文字を区別せずに substr の最初の出現位置（バイト）を返します
func indexFold(s, substr string) int {
	n := len(substr)
	if n == 0 {
		return 0
	}
	for i := 0; i+n <= len(s); {
		if strings.EqualFold(s[i:i+n], substr) {
			return i
		}
		_, size := utf8.DecodeRuneInString(s[i:])
		i += size
	}
	return -1
}

// TranslateFunc は1単位のテキストを翻訳します。翻訳しない場合は ok=false を返します
type TranslateFunc func(ctx context.Context, text string) (translated string, ok bool)

// TranslateHeadlineAndBody は見出しと本文を別々に翻訳し、改行1つで結合します
// 絵文字は全体に対して一度だけ退避し、結合後に復元します
// 片方の翻訳に失敗した場合はその部分だけ原文のまま残します
// どちらも翻訳できなかった場合は ok=false を返します
func TranslateHeadlineAndBody(ctx context.Context, text string, translate TranslateFunc) (string, bool) {
	protected, shortcodes := ProtectEmoji(text)
	headline, body := SplitHeadlineBody(protected)
	if headline == "" && body == "" {
		return "", false
	}

	var parts []string
	translatedAny := false
	for _, part := range []string{headline, body} {
		if part == "" {
			continue
		}
		if out, ok := translate(ctx, part); ok && strings.TrimSpace(out) != "" {
			parts = append(parts, strings.TrimSpace(out))
			translatedAny = true
			continue
		}
		parts = append(parts, part)
	}
	if !translatedAny {
		return "", false
	}

	return RestoreEmoji(strings.Join(parts, "\n"), shortcodes), true
}
