package httpsec

import (
	"crypto/hmac"
	"crypto/sha256"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DefaultMaxAgeSeconds はリプレイ攻撃対策の既定許容秒数（5分）
const DefaultMaxAgeSeconds = 300

// now はテストで差し替え可能な現在時刻関数です
var now = time.Now

// Verify はリクエスト本体と署名ヘッダ・タイムスタンプヘッダから Slack 署名を検証し、
// 正当であれば true を返します。副作用はありません
func Verify(body []byte, signature, timestamp string, maxAgeSeconds int, signingSecret string) bool {
	return VerifySlackSignature(signingSecret, signature, timestamp, body, maxAgeSeconds) == nil
}

// VerifySlackSignature は Slack からのリクエストの署名を検証します
// リクエストの X-Slack-Signature ヘッダと X-Slack-Request-Timestamp ヘッダを確認し、
// 改ざんやリプレイ攻撃から保護します
func VerifySlackSignature(signingSecret, signature, timestamp string, body []byte, maxAgeSeconds int) error {
	if signingSecret == "" {
		return errors.New("signing secret not configured")
	}
	if signature == "" || timestamp == "" {
		return errors.New("missing signature headers")
	}
	if maxAgeSeconds <= 0 {
		maxAgeSeconds = DefaultMaxAgeSeconds
	}

	// タイムスタンプの検証
	ts, err := strconv.ParseInt(strings.TrimSpace(timestamp), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid timestamp format: %w", err)
	}

	current := now().Unix()
	if abs(current-ts) > int64(maxAgeSeconds) {
		return fmt.Errorf("request timestamp too old: now=%d, ts=%d", current, ts)
	}

	// 署名の検証
	// Slack署名: "v0=<hash>"
	// hash = HMAC-SHA256("v0:<timestamp>:<body>", signingSecret)
	expectedSignature := ComputeSignature(signingSecret, timestamp, body)

	// 定時間比較（タイミング攻撃対策）
	if !hmac.Equal([]byte(expectedSignature), []byte(signature)) {
		return errors.New("signature mismatch")
	}

	return nil
}

// ComputeSignature は Slack 署名を計算します
func ComputeSignature(signingSecret, timestamp string, body []byte) string {
	h := hmac.New(sha256.New, []byte(signingSecret))
	h.Write([]byte("v0:" + timestamp + ":"))
	h.Write(body)
	// 16進数文字列に変換して "v0=" プレフィックスを付与
	return fmt.Sprintf("v0=%x", h.Sum(nil))
}

// abs は絶対値を計算します
func abs(x int64) int64 {
	if x < 0 {
		return -x
	}
	return x
}

// ExtractSignatureFromHeader は X-Slack-Signature ヘッダ値から "v0=..." 形式の署名を取り出します
// 形式が異なる場合は空文字を返します
func ExtractSignatureFromHeader(headerValue string) string {
	headerValue = strings.TrimSpace(headerValue)
	if strings.HasPrefix(headerValue, "v0=") {
		return headerValue
	}
	return ""
}
