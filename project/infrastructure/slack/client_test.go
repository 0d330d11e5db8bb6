package slack

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"slack-translate-bot/project/domain"
	"slack-translate-bot/project/service"
)

// fakeSlackAPI は Slack Web API の一部を模倣するテストサーバーです
type fakeSlackAPI struct {
	mu       sync.Mutex
	calls    []apiCall
	handlers map[string]func(w http.ResponseWriter, r *http.Request)
}

type apiCall struct {
	Method string
	Token  string
	Form   map[string]string
}

func newFakeSlackAPI(t *testing.T) (*fakeSlackAPI, *httptest.Server) {
	t.Helper()
	api := &fakeSlackAPI{handlers: map[string]func(http.ResponseWriter, *http.Request){}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		method := strings.TrimPrefix(r.URL.Path, "/")
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if token == "" {
			token = r.FormValue("token")
		}
		form := map[string]string{}
		for k := range r.Form {
			form[k] = r.FormValue(k)
		}

		api.mu.Lock()
		api.calls = append(api.calls, apiCall{Method: method, Token: token, Form: form})
		h, ok := api.handlers[method]
		api.mu.Unlock()

		if !ok {
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"ok":false,"error":"unknown_method"}`)
			return
		}
		h(w, r)
	}))
	t.Cleanup(srv.Close)
	return api, srv
}

func (f *fakeSlackAPI) on(method, body string) {
	f.handlers[method] = func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, body)
	}
}

func (f *fakeSlackAPI) lastCall(method string) (apiCall, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.calls) - 1; i >= 0; i-- {
		if f.calls[i].Method == method {
			return f.calls[i], true
		}
	}
	return apiCall{}, false
}

func newTestClient(srv *httptest.Server, userToken string) *SlackClient {
	return NewSlackClient(Options{
		BotToken:  "xoxb-bot",
		UserToken: userToken,
		APIURL:    srv.URL,
		Timeout:   5 * time.Second,
	})
}

func TestFetchHistory(t *testing.T) {
	api, srv := newFakeSlackAPI(t)
	api.on("conversations.history", `{"ok":true,"messages":[`+
		`{"type":"message","ts":"1700000000.000300","text":"parent","reply_count":2,"reactions":[{"name":"de","count":1,"users":["U1"]}]},`+
		`{"type":"message","ts":"1700000000.000100","text":"plain"}],`+
		`"has_more":true,"response_metadata":{"next_cursor":"bmV4dA=="}}`)

	page, err := newTestClient(srv, "xoxp-user").FetchHistory(context.Background(), service.HistoryQuery{
		ChannelID: "C1",
		Latest:    "1700000000.000300",
		Inclusive: true,
		Limit:     50,
	})
	if err != nil {
		t.Fatalf("FetchHistory error: %v", err)
	}

	if page.NextCursor != "bmV4dA==" {
		t.Errorf("NextCursor = %q", page.NextCursor)
	}
	if len(page.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(page.Messages))
	}
	first := page.Messages[0]
	if first.TS != "1700000000.000300" || first.Text != "parent" || first.ReplyCount != 2 {
		t.Errorf("unexpected message: %+v", first)
	}
	if len(first.Reactions) != 1 || first.Reactions[0].Name != "de" {
		t.Errorf("unexpected reactions: %+v", first.Reactions)
	}

	call, _ := api.lastCall("conversations.history")
	if call.Token != "xoxp-user" {
		t.Errorf("history should use the user token, got %q", call.Token)
	}
	if call.Form["channel"] != "C1" || call.Form["latest"] != "1700000000.000300" || call.Form["limit"] != "50" {
		t.Errorf("unexpected form: %v", call.Form)
	}
}

func TestFetchThreadReplies(t *testing.T) {
	api, srv := newFakeSlackAPI(t)
	api.on("conversations.replies", `{"ok":true,"messages":[`+
		`{"type":"message","ts":"100.000","thread_ts":"100.000","text":"root","reply_count":1},`+
		`{"type":"message","ts":"105.000","thread_ts":"100.000","text":"reply"}],`+
		`"has_more":true,"response_metadata":{"next_cursor":"c2"}}`)

	page, err := newTestClient(srv, "").FetchThreadReplies(context.Background(), "C1", "100.000", 200, "c1")
	if err != nil {
		t.Fatalf("FetchThreadReplies error: %v", err)
	}
	if page.NextCursor != "c2" || len(page.Messages) != 2 {
		t.Fatalf("unexpected page: %+v", page)
	}
	if page.Messages[1].ThreadTS != "100.000" || page.Messages[1].Text != "reply" {
		t.Errorf("unexpected reply: %+v", page.Messages[1])
	}

	call, _ := api.lastCall("conversations.replies")
	if call.Token != "xoxb-bot" {
		t.Errorf("without a user token the bot token should be used, got %q", call.Token)
	}
	if call.Form["ts"] != "100.000" || call.Form["cursor"] != "c1" {
		t.Errorf("unexpected form: %v", call.Form)
	}
}

func TestFetchThreadRepliesSlackError(t *testing.T) {
	api, srv := newFakeSlackAPI(t)
	api.on("conversations.replies", `{"ok":false,"error":"thread_not_found"}`)

	_, err := newTestClient(srv, "xoxp-user").FetchThreadReplies(context.Background(), "C1", "100.000", 200, "")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "thread_not_found") {
		t.Errorf("error should keep the Slack error code: %v", err)
	}
	if errors.Is(err, domain.ErrRateLimited) {
		t.Error("thread_not_found is not a rate limit")
	}
}

func TestRateLimitedMapsToDomainError(t *testing.T) {
	api, srv := newFakeSlackAPI(t)
	api.handlers["conversations.history"] = func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Retry-After", "3")
		w.WriteHeader(http.StatusTooManyRequests)
	}
	api.on("conversations.replies", `{"ok":false,"error":"ratelimited"}`)

	cli := newTestClient(srv, "xoxp-user")
	_, err := cli.FetchHistory(context.Background(), service.HistoryQuery{ChannelID: "C1", Limit: 1})
	if !errors.Is(err, domain.ErrRateLimited) {
		t.Errorf("HTTP 429 should map to ErrRateLimited, got %v", err)
	}

	_, err = cli.FetchThreadReplies(context.Background(), "C1", "1.0", 200, "")
	if !errors.Is(err, domain.ErrRateLimited) {
		t.Errorf("ratelimited error code should map to ErrRateLimited, got %v", err)
	}
}

func TestFetchReactions(t *testing.T) {
	api, srv := newFakeSlackAPI(t)
	api.on("reactions.get", `{"ok":true,"type":"message","channel":"C1","message":{"type":"message","ts":"111.001","text":"Hello",`+
		`"reactions":[{"name":"de","count":2,"users":["U1","U2"]},{"name":"thumbsup","count":1,"users":["U3"]}]}}`)

	reactions, err := newTestClient(srv, "xoxp-user").FetchReactions(context.Background(), "C1", "111.001")
	if err != nil {
		t.Fatalf("FetchReactions error: %v", err)
	}
	want := []domain.Reaction{{Name: "de", Count: 2}, {Name: "thumbsup", Count: 1}}
	if len(reactions) != len(want) || reactions[0] != want[0] || reactions[1] != want[1] {
		t.Errorf("reactions = %+v, want %+v", reactions, want)
	}

	call, _ := api.lastCall("reactions.get")
	if call.Form["channel"] != "C1" || call.Form["timestamp"] != "111.001" {
		t.Errorf("unexpected form: %v", call.Form)
	}
}

func TestPostReplyUsesBotToken(t *testing.T) {
	api, srv := newFakeSlackAPI(t)
	api.on("chat.postMessage", `{"ok":true,"channel":"C1","ts":"200.000"}`)

	if err := newTestClient(srv, "xoxp-user").PostReply(context.Background(), "C1", "100.000", "Hallo Welt"); err != nil {
		t.Fatalf("PostReply error: %v", err)
	}

	call, ok := api.lastCall("chat.postMessage")
	if !ok {
		t.Fatal("chat.postMessage was not called")
	}
	if call.Token != "xoxb-bot" {
		t.Errorf("posting should use the bot token, got %q", call.Token)
	}
	if call.Form["channel"] != "C1" || call.Form["thread_ts"] != "100.000" || call.Form["text"] != "Hallo Welt" {
		t.Errorf("unexpected form: %v", call.Form)
	}
}

func TestPostReplyFailure(t *testing.T) {
	api, srv := newFakeSlackAPI(t)
	api.on("chat.postMessage", `{"ok":false,"error":"channel_not_found"}`)

	err := newTestClient(srv, "").PostReply(context.Background(), "C404", "1.0", "x")
	if err == nil || !strings.Contains(err.Error(), "channel_not_found") {
		t.Errorf("expected channel_not_found error, got %v", err)
	}
}

func TestResolveSelfIdentity(t *testing.T) {
	api, srv := newFakeSlackAPI(t)
	api.on("auth.test", `{"ok":true,"url":"https://example.slack.com/","team":"Example","user":"translator","team_id":"T1","user_id":"UBOT"}`)

	id, err := newTestClient(srv, "xoxp-user").ResolveSelfIdentity(context.Background())
	if err != nil {
		t.Fatalf("ResolveSelfIdentity error: %v", err)
	}
	if id != "UBOT" {
		t.Errorf("user id = %q, want UBOT", id)
	}
	if call, _ := api.lastCall("auth.test"); call.Token != "xoxb-bot" {
		t.Errorf("auth.test should use the bot token, got %q", call.Token)
	}
}
