package domain

import "errors"

// ドメインエラー定義
var (
	// ErrInvalid は不正な値が設定された場合のエラー
	ErrInvalid = errors.New("ドメイン: 不正な値です")

	// ErrNotFound は要求されたメッセージ・シークレットが見つからない場合のエラー
	ErrNotFound = errors.New("ドメイン: 対象が見つかりません")

	// ErrRateLimited は Slack API や翻訳 API がレート制限を返した場合のエラー
	ErrRateLimited = errors.New("ドメイン: レート制限中です")

	// ErrTranslationSkipped は翻訳結果を採用しない場合（空文字・APIキー未設定）のエラー
	ErrTranslationSkipped = errors.New("ドメイン: 翻訳をスキップしました")

	// ErrIdentityUnavailable は Bot 自身のユーザーIDを解決できない場合のエラー
	ErrIdentityUnavailable = errors.New("ドメイン: Bot ユーザーIDを取得できません")
)
