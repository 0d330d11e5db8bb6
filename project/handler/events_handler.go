package handler

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"slack-translate-bot/project/domain"
	"slack-translate-bot/project/dto"
	"slack-translate-bot/project/infrastructure/httpsec"
	"slack-translate-bot/project/service"
)

const (
	// maxBodyBytes はリクエスト本体の上限
	maxBodyBytes = 1 << 20

	// processTimeout は1配信あたりの処理時間の上限
	processTimeout = 30 * time.Second
)

// EventsHandler は Slack Events API からのイベントを処理します
type EventsHandler struct {
	signingSecret      string
	maxAgeSeconds      int
	translationService service.TranslationService
}

// NewEventsHandler はイベントハンドラーを作成します
func NewEventsHandler(signingSecret string, maxAgeSeconds int, translationService service.TranslationService) *EventsHandler {
	return &EventsHandler{
		signingSecret:      signingSecret,
		maxAgeSeconds:      maxAgeSeconds,
		translationService: translationService,
	}
}

// ServeHTTP は Slack イベント受信エンドポイントです
// 署名不正・JSON 不正以外は、内部の処理結果にかかわらず 200 を返します
func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// リクエスト本体を読み込む
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		http.Error(w, "リクエスト本体の読み込み失敗", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	// まず url_verification かどうかを確認（署名検証の前に）
	var preCheck struct {
		Type      string  `json:"type"`
		Challenge *string `json:"challenge"`
	}
	if err := json.Unmarshal(body, &preCheck); err == nil && preCheck.Type == "url_verification" {
		if preCheck.Challenge == nil {
			http.Error(w, "challenge がありません", http.StatusBadRequest)
			return
		}
		writeJSON(w, http.StatusOK, dto.URLVerificationResponse{Challenge: *preCheck.Challenge})
		return
	}

	// Slack 署名検証（url_verification 以外のリクエスト）
	rawSignature := r.Header.Get("X-Slack-Signature")
	signature := httpsec.ExtractSignatureFromHeader(rawSignature)
	if rawSignature != "" && signature == "" {
		log.Printf("WARN unsupported signature version: remote=%s", r.RemoteAddr)
		http.Error(w, "署名形式が不正です", http.StatusForbidden)
		return
	}
	timestamp := r.Header.Get("X-Slack-Request-Timestamp")
	if err := httpsec.VerifySlackSignature(h.signingSecret, signature, timestamp, body, h.maxAgeSeconds); err != nil {
		log.Printf("WARN signature verification failed: remote=%s err=%v", r.RemoteAddr, err)
		http.Error(w, "署名検証失敗", http.StatusForbidden)
		return
	}

	// JSON パース（完全版）
	var req dto.SlackEventRequest
	if err := json.Unmarshal(body, &req); err != nil {
		http.Error(w, "JSON パース失敗", http.StatusBadRequest)
		return
	}

	// event_callback のみ処理
	if req.Type != "event_callback" {
		writeOK(w)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), processTimeout)
	defer cancel()

	reqID := uuid.NewString()
	if err := h.handleEvent(ctx, reqID, &req); err != nil {
		// Slack側への応答は成功にして、ログだけ記録
		log.Printf("ERROR req=%s event_id=%s type=%s subtype=%s err=%v", reqID, req.EventID, req.Event.Type, req.Event.SubType, err)
	}

	writeOK(w)
}

// handleEvent は個別のイベントを処理します
func (h *EventsHandler) handleEvent(ctx context.Context, reqID string, req *dto.SlackEventRequest) error {
	ev := &req.Event

	switch ev.Type {
	case "reaction_added":
		if ev.Item == nil {
			return nil
		}
		return h.translationService.OnReactionAdded(ctx, &service.ReactionEvent{
			RequestID:    reqID,
			Reaction:     ev.Reaction,
			ItemType:     ev.Item.Type,
			ChannelID:    ev.Item.Channel,
			ItemTS:       domain.Timestamp(ev.Item.Ts),
			ParentTSHint: domain.Timestamp(ev.Item.ThreadTs),
		})

	case "message":
		switch ev.SubType {
		case "message_changed":
			return h.handleMessageChanged(ctx, reqID, ev)
		case "":
		default:
			// bot_message, channel_join などは無視
			return nil
		}

		// Bot 自身のメッセージは無視
		if ev.BotID != "" {
			return nil
		}
		return h.translationService.OnMessage(ctx, &service.MessageEvent{
			RequestID: reqID,
			ChannelID: ev.Channel,
			TS:        domain.Timestamp(ev.Timestamp),
			Text:      strings.TrimSpace(ev.Text),
		})
	}
	return nil
}

// handleMessageChanged は編集イベントをサービス層のモデルに変換します
func (h *EventsHandler) handleMessageChanged(ctx context.Context, reqID string, ev *dto.SlackEvent) error {
	msg := ev.Message
	if msg == nil || msg.BotID != "" {
		return nil
	}

	changed := &service.MessageChangedEvent{
		RequestID: reqID,
		ChannelID: ev.Channel,
		TS:        domain.Timestamp(msg.Timestamp),
		ThreadTS:  domain.Timestamp(msg.ThreadTs),
		Text:      strings.TrimSpace(msg.Text),
		EventTS:   domain.Timestamp(ev.EventTs),
	}
	if msg.Edited != nil {
		changed.EditedTS = domain.Timestamp(msg.Edited.Timestamp)
	}
	if ev.PreviousMessage != nil {
		changed.PreviousText = ev.PreviousMessage.Text
	}
	for _, r := range msg.Reactions {
		changed.Reactions = append(changed.Reactions, domain.Reaction{Name: r.Name, Count: r.Count})
	}

	return h.translationService.OnMessageChanged(ctx, changed)
}

func writeOK(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("WARN response encode failed: %v", err)
	}
}
