package service

import (
	"context"
	"errors"
	"testing"

	"slack-translate-bot/project/domain"
)

func newPolicy(cfg domain.TriggerConfig, sp *fakeSlack) *TriggerPolicy {
	return NewTriggerPolicy(cfg, NewBotIdentity(sp))
}

func TestTriggerPolicyAll(t *testing.T) {
	p := newPolicy(domain.TriggerConfig{Mode: domain.TriggerAll}, &fakeSlack{})

	got, ok := p.Apply(context.Background(), "hello world")
	if !ok || got != "hello world" {
		t.Errorf("Apply() = (%q, %v)", got, ok)
	}
	if _, ok := p.Apply(context.Background(), "   "); ok {
		t.Error("blank text should not qualify")
	}
}

func TestTriggerPolicyPrefix(t *testing.T) {
	p := newPolicy(domain.TriggerConfig{Mode: domain.TriggerPrefix, Prefix: "[translate]"}, &fakeSlack{})

	cases := []struct {
		text string
		want string
		ok   bool
	}{
		{text: "[translate] hello", want: "hello", ok: true},
		{text: "[translate]   multi\nline  ", want: "multi\nline", ok: true},
		{text: "[translate]", ok: false},
		{text: "[TRANSLATE] hello", ok: false},
		{text: "hello [translate]", ok: false},
	}
	for _, tc := range cases {
		got, ok := p.Apply(context.Background(), tc.text)
		if ok != tc.ok || got != tc.want {
			t.Errorf("Apply(%q) = (%q, %v), want (%q, %v)", tc.text, got, ok, tc.want, tc.ok)
		}
	}
}

func TestTriggerPolicyMention(t *testing.T) {
	sp := &fakeSlack{userID: "UBOT"}
	p := newPolicy(domain.TriggerConfig{Mode: domain.TriggerMention}, sp)

	got, ok := p.Apply(context.Background(), "hey <@UBOT>  please   translate")
	if !ok || got != "hey please translate" {
		t.Errorf("Apply() = (%q, %v)", got, ok)
	}

	got, ok = p.Apply(context.Background(), "<@UBOT> one <@UBOT> two")
	if !ok || got != "one <@UBOT> two" {
		t.Errorf("only the first mention should be removed, got (%q, %v)", got, ok)
	}

	if _, ok := p.Apply(context.Background(), "hey <@UOTHER> hi"); ok {
		t.Error("mention of another user should not qualify")
	}
	if _, ok := p.Apply(context.Background(), "<@UBOT>"); ok {
		t.Error("bare mention should not qualify")
	}

	if sp.identityCalls != 1 {
		t.Errorf("bot identity should be memoized, got %d calls", sp.identityCalls)
	}
}

func TestTriggerPolicyMentionIdentityUnavailable(t *testing.T) {
	sp := &fakeSlack{identityErr: errors.New("invalid_auth")}
	p := newPolicy(domain.TriggerConfig{Mode: domain.TriggerMention}, sp)

	if _, ok := p.Apply(context.Background(), "<@UBOT> hello"); ok {
		t.Error("message should not qualify without bot identity")
	}

	// 失敗はメモ化されず、次回再取得される
	sp.identityErr = nil
	sp.userID = "UBOT"
	got, ok := p.Apply(context.Background(), "<@UBOT> hello")
	if !ok || got != "hello" {
		t.Errorf("Apply() = (%q, %v)", got, ok)
	}
	if sp.identityCalls != 2 {
		t.Errorf("expected 2 identity calls, got %d", sp.identityCalls)
	}
}

func TestBotIdentityErrorKind(t *testing.T) {
	b := NewBotIdentity(&fakeSlack{})
	if _, err := b.UserID(context.Background()); !errors.Is(err, domain.ErrIdentityUnavailable) {
		t.Errorf("expected ErrIdentityUnavailable, got %v", err)
	}
}

func TestTriggerPolicyReactionMode(t *testing.T) {
	p := newPolicy(domain.TriggerConfig{Mode: domain.TriggerReaction, ReactionEmoji: "flag-de"}, &fakeSlack{})

	if _, ok := p.Apply(context.Background(), "hello"); ok {
		t.Error("new messages never qualify in reaction mode")
	}
	for _, name := range []string{"flag-de", ":flag_de:", "FLAG-DE"} {
		if !p.ReactionMatches(name) {
			t.Errorf("ReactionMatches(%q) = false", name)
		}
	}
	if p.ReactionMatches("thumbsup") {
		t.Error("unrelated reaction matched")
	}

	other := newPolicy(domain.TriggerConfig{Mode: domain.TriggerAll, ReactionEmoji: "flag-de"}, &fakeSlack{})
	if other.ReactionMatches("flag-de") {
		t.Error("reactions only match in reaction mode")
	}
}
