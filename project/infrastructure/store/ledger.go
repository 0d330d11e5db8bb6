package store

import (
	"container/list"
	"sync"

	"slack-translate-bot/project/domain"
)

// DefaultLedgerCapacity は重複排除台帳の既定上限件数です
const DefaultLedgerCapacity = 10_000

// MemoryLedger は domain.DedupLedger のインメモリ実装です
// 挿入順（FIFO）で古いものから追い出します。参照による順序の更新はしません
// プロセス再起動で内容は失われます
type MemoryLedger struct {
	mu       sync.Mutex
	capacity int
	order    *list.List               // 先頭が最古
	index    map[string]*list.Element // key -> order 内の要素
}

// NewMemoryLedger は上限件数を指定して台帳を作成します（0以下なら既定値）
func NewMemoryLedger(capacity int) *MemoryLedger {
	if capacity <= 0 {
		capacity = DefaultLedgerCapacity
	}
	return &MemoryLedger{
		capacity: capacity,
		order:    list.New(),
		index:    make(map[string]*list.Element, capacity),
	}
}

// CheckAndMark はキーが既出なら true を返し、未出なら記録して false を返します
// 判定・記録・追い出しは一つのロック内で行います
func (l *MemoryLedger) CheckAndMark(key domain.MessageKey) bool {
	k := key.String()

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, seen := l.index[k]; seen {
		return true
	}

	l.index[k] = l.order.PushBack(k)
	for l.order.Len() > l.capacity {
		oldest := l.order.Front()
		l.order.Remove(oldest)
		delete(l.index, oldest.Value.(string))
	}
	return false
}

// Len は現在の記録件数を返します
func (l *MemoryLedger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.order.Len()
}

var _ domain.DedupLedger = (*MemoryLedger)(nil)
