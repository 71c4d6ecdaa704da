package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/nytreact/internal/metrics"
	"github.com/hitoshi/nytreact/internal/middleware"
)

// MetricsRecorder はルーターのミドルウェアが記録するメトリクスのインターフェース。
type MetricsRecorder interface {
	middleware.StatusRecorder
	middleware.GateRecorder
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	Metrics           MetricsRecorder     // nilの場合は記録しない
	MetricsGatherer   prometheus.Gatherer // nilの場合は/metricsを公開しない

	// 接続状態
	Availability AvailabilityChecker

	// 保存記事
	ArticleService ArticleServiceInterface

	// 記事検索（nilの場合は503 SEARCH_NOT_CONFIGURED）
	Searcher SearcherInterface

	// フロントエンドのビルド成果物（空の場合は配信しない）
	StaticDir string
}

// NewRouter は全エンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RequestID → Recovery → RealIP → Logging → SecurityHeaders → CORS → StripSlashes
//
// /api/saved 配下のみ可用性ゲートを通し、ヘルスチェックと検索はDBの状態に依存しない。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var (
		statusRecorder middleware.StatusRecorder
		gateRecorder   middleware.GateRecorder
	)
	if deps.Metrics != nil {
		statusRecorder = deps.Metrics
		gateRecorder = deps.Metrics
	}

	r.Use(chimw.RequestID)
	r.Use(middleware.NewRecoveryMiddleware(logger))
	r.Use(chimw.RealIP)
	r.Use(middleware.NewLoggingMiddleware(logger, statusRecorder))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(chimw.StripSlashes)

	healthHandler := NewHealthHandler(deps.Availability)
	articleHandler := NewArticleHandler(deps.ArticleService)
	searchHandler := NewSearchHandler(deps.Searcher)

	// --- 常に応答するルート ---
	r.Get("/health", healthHandler.Liveness)
	r.Get("/api/health", healthHandler.APIHealth)

	if deps.MetricsGatherer != nil {
		r.Handle("/metrics", metrics.Handler(deps.MetricsGatherer))
	}

	// --- レート制限付きのAPIルート ---
	r.Group(func(r chi.Router) {
		if deps.RateLimiter != nil {
			r.Use(deps.RateLimiter.GeneralMiddleware())
		}

		r.Get("/api/search", searchHandler.Search)

		// 保存記事（DB未接続時は503）
		r.Route("/api/saved", func(r chi.Router) {
			r.Use(middleware.NewAvailabilityGate(deps.Availability, gateRecorder))

			r.Get("/", articleHandler.ListSaved)
			r.Post("/", articleHandler.SaveArticle)
			r.Delete("/{id}", articleHandler.DeleteSaved)
		})
	})

	r.NotFound(NewSPAHandler(deps.StaticDir).ServeHTTP)

	return r
}
