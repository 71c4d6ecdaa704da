// Package app はアプリケーションの初期化・依存関係のワイヤリング・起動モードの切り替えを行う。
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hitoshi/nytreact/internal/article"
	"github.com/hitoshi/nytreact/internal/config"
	"github.com/hitoshi/nytreact/internal/connectivity"
	"github.com/hitoshi/nytreact/internal/database"
	"github.com/hitoshi/nytreact/internal/handler"
	"github.com/hitoshi/nytreact/internal/logger"
	"github.com/hitoshi/nytreact/internal/metrics"
	"github.com/hitoshi/nytreact/internal/middleware"
	"github.com/hitoshi/nytreact/internal/repository"
	"github.com/hitoshi/nytreact/internal/search"
	"github.com/hitoshi/nytreact/internal/security"
)

// defaultPort はSERVER_PORTとPORTが未設定の場合の待ち受けポート。
const defaultPort = "3002"

// shutdownTimeout はグレースフルシャットダウンの待機上限。
const shutdownTimeout = 30 * time.Second

// Init はアプリケーションの初期化を行う。
// JSON構造化ログをセットアップしてから環境変数を読み込み、ログレベルを設定に合わせる。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	level := logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	level.Set(cfg.LogLevel)

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。serveはctxのキャンセルまたはSIGINT/SIGTERMで終了する。
func Run(ctx context.Context, w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck と help は軽量サブコマンドのため、フル初期化をスキップする
	switch cmd {
	case CommandHealthcheck:
		return runHealthcheck(healthcheckPort())
	case CommandHelp:
		writeUsage(w)
		return nil
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("database_url", database.MaskURL(cfg.DatabaseURL)),
		slog.Bool("search_enabled", cfg.SearchEnabled()),
	)

	switch cmd {
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(ctx, cfg)
	}
}

// runServe はAPIサーバーモードで起動する。
// DBが起動していなくてもサーバーは起動し、保存記事のルートのみ503を返す。
// 接続状態はバックグラウンドのMonitorが更新する。
func runServe(ctx context.Context, cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. DB接続プール（この時点では接続しない）
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	// 2. メトリクス
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(reg)

	// 3. 接続監視
	state := connectivity.NewState()
	monitorCfg := connectivity.DefaultMonitorConfig(cfg.DatabaseURL)
	monitorCfg.ProbeTimeout = cfg.DBProbeTimeout
	monitorCfg.PingInterval = cfg.DBPingInterval
	monitorCfg.PingTimeout = cfg.DBPingTimeout
	monitorCfg.MaxBackoff = cfg.DBMaxBackoff
	monitor := connectivity.NewMonitor(state, db, monitorCfg, slog.Default(), collector)

	if cfg.AutoMigrate {
		monitor.OnConnected(func(ctx context.Context) {
			migrateCtx, cancel := context.WithTimeout(ctx, cfg.MigrateTimeout)
			defer cancel()
			if err := database.RunMigrationsContext(migrateCtx, cfg.DatabaseURL); err != nil {
				slog.Error("auto migration failed", slog.String("error", err.Error()))
				return
			}
			slog.Info("auto migration completed")
		})
	}

	// 4. リポジトリ・サービス
	repo := repository.NewPostgresSavedArticleRepo(db)
	articleService := article.NewService(repo, collector)

	// 5. 記事検索プロキシ（APIキー未設定時は無効）
	var searcher handler.SearcherInterface
	if cfg.SearchEnabled() {
		guard := security.NewOutboundGuard()
		if err := guard.ValidateEndpoint(cfg.SearchEndpoint); err != nil {
			slog.Error("search endpoint rejected; search proxy disabled",
				slog.String("error", err.Error()),
			)
		} else {
			searcher = search.NewClient(
				guard.NewSafeClient(cfg.SearchTimeout),
				slog.Default(),
				search.Config{Endpoint: cfg.SearchEndpoint, APIKey: cfg.NYTAPIKey},
				collector,
			)
		}
	} else {
		slog.Warn("NYT_API_KEY is not set; /api/search will return 503")
	}

	// 6. ルーターの構築
	rateLimiter := middleware.NewRateLimiter(middleware.NewRateLimiterConfig(cfg.RateLimitGeneral))
	defer rateLimiter.Stop()

	router := handler.NewRouter(&handler.RouterDeps{
		Logger:            slog.Default(),
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,
		Metrics:           collector,
		MetricsGatherer:   reg,
		Availability:      state,
		ArticleService:    articleService,
		Searcher:          searcher,
		StaticDir:         cfg.StaticDir,
	})

	// 7. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.SearchTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	monitor.Start(ctx)

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		stop()
		monitor.Wait()
		if err != nil {
			return fmt.Errorf("server listen error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down API server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	shutdownErr := server.Shutdown(shutdownCtx)

	// サーバーgoroutineと監視ループの終了を待ってから戻る
	<-serveErr
	monitor.Wait()

	if shutdownErr != nil {
		return fmt.Errorf("server shutdown failed: %w", shutdownErr)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。serveと異なり、DB未接続はエラーとする。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", database.MaskURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// healthcheckPort はヘルスチェック対象のポートを環境変数から決定する。
func healthcheckPort() string {
	if port := os.Getenv("SERVER_PORT"); port != "" {
		return port
	}
	if port := os.Getenv("PORT"); port != "" {
		return port
	}
	return defaultPort
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
// DB未接続でもプロセスが応答していれば成功とする。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}
