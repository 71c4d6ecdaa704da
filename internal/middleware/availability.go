package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/nytreact/internal/model"
)

// AvailabilityChecker は永続化ストアが現在利用可能かを返す。
// connectivity.Stateが満たす。
type AvailabilityChecker interface {
	IsAvailable() bool
}

// gateRetryAfter は503応答でクライアントに伝える再試行までの目安。
// 接続監視のPing間隔のデフォルトに合わせる。
const gateRetryAfter = 5 * time.Second

// GateRecorder はゲートによる拒否を記録するインターフェース。
type GateRecorder interface {
	RecordGateRejection()
}

// NewAvailabilityGate はストアが利用不可のとき後続ハンドラーを呼ばずに503を返すミドルウェアを返す。
// 判定はリクエストごとに1回だけ行い、待機やリトライはしない。
// recorderはnilでもよい。
func NewAvailabilityGate(checker AvailabilityChecker, recorder GateRecorder) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !checker.IsAvailable() {
				if recorder != nil {
					recorder.RecordGateRejection()
				}
				slog.Debug("request rejected: database unavailable",
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
				)
				WriteRetryableErrorResponse(w, http.StatusServiceUnavailable, model.NewDatabaseUnavailableError(), gateRetryAfter)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
