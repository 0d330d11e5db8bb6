package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"

	"slack-translate-bot/project/domain"
)

const (
	// maxPages は1回の探索で取得するページ数の上限
	maxPages = 4

	// repliesPageSize は conversations.replies の1ページ件数
	repliesPageSize = 200

	// historyPageSize は親メッセージ候補探索時の conversations.history の1ページ件数
	historyPageSize = 50

	// maxParentCandidates は親メッセージ候補の上限
	maxParentCandidates = 30
)

// lookupOutcome は各探索戦略の結果種別です
type lookupOutcome int

const (
	outcomeNotFound lookupOutcome = iota
	outcomeFound
	outcomeRateLimited
	outcomeTransient
)

// lookupResult は探索戦略の結果です
type lookupResult struct {
	outcome lookupOutcome
	message domain.ResolvedMessage
}

// lookupStrategy は探索戦略の1段階です
type lookupStrategy struct {
	name string
	run  func(ctx context.Context) lookupResult
}

// MessageResolver はチャンネルと TS だけを手がかりにメッセージ本文と返信先スレッドを特定します
// 見つかる・レート制限を受ける のいずれかで探索を打ち切り、見つからない・一時エラーなら次の戦略へ進みます
type MessageResolver struct {
	sp SlackPort
}

// NewMessageResolver は MessageResolver を作成します
func NewMessageResolver(sp SlackPort) *MessageResolver {
	return &MessageResolver{sp: sp}
}

// Resolve はメッセージを探索します
// 見つからない場合は domain.ErrNotFound を返します。レート制限で打ち切った場合は domain.ErrRateLimited もラップします
func (r *MessageResolver) Resolve(ctx context.Context, channelID string, target, parentHint domain.Timestamp) (*domain.ResolvedMessage, error) {
	tried := map[string]bool{}

	strategies := []lookupStrategy{
		{name: "history", run: func(ctx context.Context) lookupResult {
			return r.lookupInHistory(ctx, channelID, target)
		}},
		{name: "replies@target", run: func(ctx context.Context) lookupResult {
			tried[string(target)] = true
			return r.lookupInThread(ctx, channelID, target, target)
		}},
	}
	if !parentHint.IsZero() && !parentHint.Equal(target) {
		strategies = append(strategies, lookupStrategy{name: "replies@hint", run: func(ctx context.Context) lookupResult {
			tried[string(parentHint)] = true
			return r.lookupInThread(ctx, channelID, parentHint, target)
		}})
	}
	strategies = append(strategies, lookupStrategy{name: "replies@candidates", run: func(ctx context.Context) lookupResult {
		return r.lookupViaParentCandidates(ctx, channelID, target, tried)
	}})

	for _, s := range strategies {
		res := s.run(ctx)
		switch res.outcome {
		case outcomeFound:
			msg := res.message
			return &msg, nil
		case outcomeRateLimited:
			log.Printf("WARN resolve aborted by rate limit: strategy=%s channel=%s ts=%s", s.name, channelID, target)
			return nil, fmt.Errorf("resolve (channel=%s, ts=%s): %w: %w", channelID, target, domain.ErrNotFound, domain.ErrRateLimited)
		}
	}

	return nil, fmt.Errorf("resolve (channel=%s, ts=%s): %w", channelID, target, domain.ErrNotFound)
}

// lookupInHistory は対象 TS だけを含む履歴ウィンドウを取得します（トップレベルメッセージの高速経路）
func (r *MessageResolver) lookupInHistory(ctx context.Context, channelID string, target domain.Timestamp) lookupResult {
	page, err := r.sp.FetchHistory(ctx, HistoryQuery{
		ChannelID: channelID,
		Oldest:    target,
		Latest:    target,
		Inclusive: true,
		Limit:     1,
	})
	if err != nil {
		return failure("conversations.history", channelID, target, err)
	}
	for _, m := range page.Messages {
		if m.TS.Equal(target) {
			return lookupResult{
				outcome: outcomeFound,
				message: domain.ResolvedMessage{Text: m.Text, ReplyAnchorTS: target},
			}
		}
	}
	return lookupResult{outcome: outcomeNotFound}
}

// lookupInThread は anchor を起点にスレッドをページングし、target と一致する返信を探します
func (r *MessageResolver) lookupInThread(ctx context.Context, channelID string, anchor, target domain.Timestamp) lookupResult {
	cursor := ""
	for page := 0; page < maxPages; page++ {
		res, err := r.sp.FetchThreadReplies(ctx, channelID, anchor, repliesPageSize, cursor)
		if err != nil {
			return failure("conversations.replies", channelID, anchor, err)
		}
		for _, m := range res.Messages {
			if !m.TS.Equal(target) {
				continue
			}
			replyAnchor := m.ThreadTS
			if replyAnchor.IsZero() {
				replyAnchor = anchor
			}
			return lookupResult{
				outcome: outcomeFound,
				message: domain.ResolvedMessage{Text: m.Text, ReplyAnchorTS: replyAnchor},
			}
		}
		if res.NextCursor == "" {
			break
		}
		cursor = res.NextCursor
	}
	return lookupResult{outcome: outcomeNotFound}
}

// lookupViaParentCandidates は対象 TS 以前の履歴から親メッセージ候補を集め、各候補のスレッドを探索します
func (r *MessageResolver) lookupViaParentCandidates(ctx context.Context, channelID string, target domain.Timestamp, tried map[string]bool) lookupResult {
	candidates, res := r.collectParentCandidates(ctx, channelID, target)
	if res.outcome == outcomeRateLimited {
		return res
	}

	for _, c := range candidates {
		if tried[string(c)] {
			continue
		}
		tried[string(c)] = true

		found := r.lookupInThread(ctx, channelID, c, target)
		switch found.outcome {
		case outcomeFound, outcomeRateLimited:
			return found
		}
	}
	return lookupResult{outcome: outcomeNotFound}
}

// collectParentCandidates は返信を持つメッセージを優先して親候補の TS を新しい順に最大30件返します
// 返信を持つメッセージが一つもなければ、見えたすべての TS を候補にします
func (r *MessageResolver) collectParentCandidates(ctx context.Context, channelID string, target domain.Timestamp) ([]domain.Timestamp, lookupResult) {
	var withReplies, all []domain.Timestamp
	cursor := ""
	for page := 0; page < maxPages; page++ {
		res, err := r.sp.FetchHistory(ctx, HistoryQuery{
			ChannelID: channelID,
			Latest:    target,
			Inclusive: true,
			Limit:     historyPageSize,
			Cursor:    cursor,
		})
		if err != nil {
			failed := failure("conversations.history", channelID, target, err)
			if failed.outcome == outcomeRateLimited {
				return nil, failed
			}
			break
		}
		for _, m := range res.Messages {
			if m.TS.IsZero() {
				continue
			}
			all = append(all, m.TS)
			if m.ReplyCount > 0 {
				withReplies = append(withReplies, m.TS)
			}
		}
		if res.NextCursor == "" {
			break
		}
		cursor = res.NextCursor
	}

	candidates := withReplies
	if len(candidates) == 0 {
		candidates = all
	}
	sortNewestFirst(candidates)
	if len(candidates) > maxParentCandidates {
		candidates = candidates[:maxParentCandidates]
	}
	return candidates, lookupResult{outcome: outcomeNotFound}
}

// sortNewestFirst は TS を数値の降順に並べます
func sortNewestFirst(ts []domain.Timestamp) {
	sort.SliceStable(ts, func(i, j int) bool {
		a, _ := ts[i].Micros()
		b, _ := ts[j].Micros()
		return a > b
	})
}

// failure は API エラーを探索結果に変換し、診断用にログを残します
func failure(method, channelID string, anchor domain.Timestamp, err error) lookupResult {
	if errors.Is(err, domain.ErrRateLimited) {
		return lookupResult{outcome: outcomeRateLimited}
	}
	log.Printf("WARN resolve step failed: method=%s channel=%s anchor=%s err=%v", method, channelID, anchor, err)
	return lookupResult{outcome: outcomeTransient}
}
