package domain

// DedupLedger は処理済みイベントの識別子を記録する台帳です
type DedupLedger interface {
	// CheckAndMark はキーが既出なら true を返します
	// 未出の場合は既出として記録したうえで false を返します
	// 複数リクエストから同時に呼ばれても、同一キーで false を返すのは一度だけです
	CheckAndMark(key MessageKey) bool
}
