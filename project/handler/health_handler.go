package handler

import (
	"net/http"

	"slack-translate-bot/project/dto"
)

// HealthHandler は死活監視用のエンドポイントです
type HealthHandler struct{}

// NewHealthHandler はヘルスチェックハンドラーを作成します
func NewHealthHandler() *HealthHandler {
	return &HealthHandler{}
}

// ServeHTTP は /health エンドポイント
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, dto.HealthResponse{Status: "ok"})
}
