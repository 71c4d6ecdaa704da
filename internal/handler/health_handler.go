package handler

import "net/http"

// AvailabilityChecker は永続化ストアが現在利用可能かを返す。
type AvailabilityChecker interface {
	IsAvailable() bool
}

// HealthHandler は接続状態を報告するHTTPハンドラー。
// ストアの状態に関わらず常に200を返す。
type HealthHandler struct {
	checker AvailabilityChecker
}

// NewHealthHandler はHealthHandlerを生成する。
func NewHealthHandler(checker AvailabilityChecker) *HealthHandler {
	return &HealthHandler{checker: checker}
}

// apiHealthResponse はAPIヘルスチェックのレスポンス。
// dbConnectedはフロントエンド互換のためconnectedと同じ値を返す。
type apiHealthResponse struct {
	Connected   bool `json:"connected"`
	DBConnected bool `json:"dbConnected"`
}

// livenessResponse はコンテナ向けヘルスチェックのレスポンス。
type livenessResponse struct {
	Status    string `json:"status"`
	Connected bool   `json:"connected"`
}

// APIHealth はストアの接続状態を返す。
// GET /api/health
func (h *HealthHandler) APIHealth(w http.ResponseWriter, r *http.Request) {
	connected := h.checker.IsAvailable()
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, apiHealthResponse{
		Connected:   connected,
		DBConnected: connected,
	})
}

// Liveness はプロセスの生存を返す。DB未接続でも200を返す。
// GET /health
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, livenessResponse{
		Status:    "ok",
		Connected: h.checker.IsAvailable(),
	})
}
