package service

import (
	"context"
	"sync"

	"slack-translate-bot/project/domain"
)

type postedReply struct {
	ChannelID string
	ThreadTS  domain.Timestamp
	Text      string
}

type repliesCall struct {
	Anchor domain.Timestamp
	Cursor string
}

// fakeSlack は SlackPort のテスト用実装です
type fakeSlack struct {
	mu sync.Mutex

	historyFn   func(q HistoryQuery) (*MessagePage, error)
	repliesFn   func(anchor domain.Timestamp, cursor string) (*MessagePage, error)
	reactions   map[string][]domain.Reaction
	reactionErr error
	userID      string
	identityErr error
	postErr     error

	historyCalls  []HistoryQuery
	repliesCalls  []repliesCall
	identityCalls int
	posts         []postedReply
}

func (f *fakeSlack) FetchHistory(_ context.Context, q HistoryQuery) (*MessagePage, error) {
	f.mu.Lock()
	f.historyCalls = append(f.historyCalls, q)
	fn := f.historyFn
	f.mu.Unlock()

	if fn == nil {
		return &MessagePage{}, nil
	}
	return fn(q)
}

func (f *fakeSlack) FetchThreadReplies(_ context.Context, _ string, anchor domain.Timestamp, _ int, cursor string) (*MessagePage, error) {
	f.mu.Lock()
	f.repliesCalls = append(f.repliesCalls, repliesCall{Anchor: anchor, Cursor: cursor})
	fn := f.repliesFn
	f.mu.Unlock()

	if fn == nil {
		return &MessagePage{}, nil
	}
	return fn(anchor, cursor)
}

func (f *fakeSlack) FetchReactions(_ context.Context, channelID string, ts domain.Timestamp) ([]domain.Reaction, error) {
	if f.reactionErr != nil {
		return nil, f.reactionErr
	}
	return f.reactions[channelID+":"+string(ts)], nil
}

func (f *fakeSlack) PostReply(_ context.Context, channelID string, threadTS domain.Timestamp, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.postErr != nil {
		return f.postErr
	}
	f.posts = append(f.posts, postedReply{ChannelID: channelID, ThreadTS: threadTS, Text: text})
	return nil
}

func (f *fakeSlack) ResolveSelfIdentity(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.identityCalls++
	if f.identityErr != nil {
		return "", f.identityErr
	}
	return f.userID, nil
}

func (f *fakeSlack) repliesAnchors() []domain.Timestamp {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Timestamp
	for _, c := range f.repliesCalls {
		out = append(out, c.Anchor)
	}
	return out
}

// fakeTranslator は入力を記録し、"translated(...)" で包んだ結果を返します
type fakeTranslator struct {
	mu       sync.Mutex
	inputs   []string
	detected string
	fn       func(text string) (*TranslationResult, error)
}

func (f *fakeTranslator) Translate(_ context.Context, text string) (*TranslationResult, error) {
	f.mu.Lock()
	f.inputs = append(f.inputs, text)
	f.mu.Unlock()

	if f.fn != nil {
		return f.fn(text)
	}
	return &TranslationResult{Text: "translated(" + text + ")", DetectedSourceLang: f.detected}, nil
}
