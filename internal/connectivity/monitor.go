package connectivity

import (
	"context"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/hitoshi/nytreact/internal/database"
)

// Pinger はDBへの疎通確認を行うインターフェース。*sql.DBが満たす。
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Observer は接続状態の変化を受け取るインターフェース。
// メトリクス収集などに使用する。
type Observer interface {
	SetDBConnected(connected bool)
}

// DialFunc はTCP到達性プローブに使用するダイヤル関数。
type DialFunc func(ctx context.Context, network, address string) (net.Conn, error)

// MonitorConfig はMonitorの設定を保持する。
type MonitorConfig struct {
	DatabaseURL  string
	ProbeTimeout time.Duration // 起動時TCPプローブのタイムアウト
	PingInterval time.Duration // 接続中のチェック間隔
	PingTimeout  time.Duration // 1回のPingのタイムアウト
	MaxBackoff   time.Duration // 切断中のチェック間隔の上限
}

// DefaultMonitorConfig はデフォルトのMonitor設定を返す。
func DefaultMonitorConfig(databaseURL string) MonitorConfig {
	return MonitorConfig{
		DatabaseURL:  databaseURL,
		ProbeTimeout: 300 * time.Millisecond,
		PingInterval: 5 * time.Second,
		PingTimeout:  2 * time.Second,
		MaxBackoff:   1 * time.Minute,
	}
}

// Monitor はDBの到達性を定期的に確認し、Stateを更新する。
// 接続エラーはログに記録するのみで、呼び出し元へ伝播させずプロセスも終了させない。
type Monitor struct {
	state    *State
	pinger   Pinger
	config   MonitorConfig
	logger   *slog.Logger
	observer Observer
	dial     DialFunc

	mu          sync.Mutex
	onConnected []func(ctx context.Context)
	wg          sync.WaitGroup

	checked             bool
	consecutiveFailures int
}

// NewMonitor はMonitorを生成する。observerはnilでもよい。
func NewMonitor(state *State, pinger Pinger, config MonitorConfig, logger *slog.Logger, observer Observer) *Monitor {
	dialer := &net.Dialer{}
	return &Monitor{
		state:    state,
		pinger:   pinger,
		config:   config,
		logger:   logger,
		observer: observer,
		dial:     dialer.DialContext,
	}
}

// OnConnected は未接続から接続状態へ遷移したときに呼ばれる関数を登録する。
// 再接続のたびに監視ループとは別のgoroutineで呼ばれるため、冪等な処理のみを登録すること。
// 監視ループのctxが渡されるので、長時間かかる処理はctxのキャンセルに従うこと。
func (m *Monitor) OnConnected(fn func(ctx context.Context)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onConnected = append(m.onConnected, fn)
}

// Start はバックグラウンドで監視ループを開始する。ブロックしない。
// ctxがキャンセルされるとループを終了する。
func (m *Monitor) Start(ctx context.Context) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.Run(ctx)
	}()
}

// Wait はStartで開始した監視ループと実行中のOnConnectedフックの終了を待つ。
func (m *Monitor) Wait() {
	m.wg.Wait()
}

// Run は監視ループを実行する。ctxがキャンセルされるまでブロックする。
//
// 起動時、接続先がローカルホストの場合はTCPプローブで到達性を先に確認し、
// 到達できなければドライバレベルの接続を試みずに未接続のまま待機する。
// 以降は一定間隔でPingし、切断中は間隔を指数的に延ばす。
func (m *Monitor) Run(ctx context.Context) {
	m.publish(false)

	if m.probe(ctx) {
		m.check(ctx)
	} else {
		m.consecutiveFailures = 1
	}

	timer := time.NewTimer(m.delay())
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			m.check(ctx)
			timer.Reset(m.delay())
		}
	}
}

// probe は起動時のTCP到達性プローブを行う。
// リモートホストの場合はプローブせずtrueを返す。
func (m *Monitor) probe(ctx context.Context) bool {
	host, port, err := database.HostPort(m.config.DatabaseURL)
	if err != nil {
		m.logger.Warn("could not pre-check database reachability; will keep retrying",
			slog.String("error", err.Error()),
		)
		return true
	}

	if !database.IsLocalHost(host) {
		return true
	}

	probeCtx, cancel := context.WithTimeout(ctx, m.config.ProbeTimeout)
	defer cancel()

	addr := net.JoinHostPort(host, port)
	conn, err := m.dial(probeCtx, "tcp", addr)
	if err != nil {
		m.logger.Warn("database not reachable; skipping connect, API will return 503 for saved-article routes",
			slog.String("addr", addr),
			slog.String("error", err.Error()),
		)
		return false
	}
	conn.Close()
	return true
}

// check はPingを1回実行してStateを更新する。
// 状態が変化したときのみログを出力する。
func (m *Monitor) check(ctx context.Context) {
	pingCtx, cancel := context.WithTimeout(ctx, m.config.PingTimeout)
	err := m.pinger.PingContext(pingCtx)
	cancel()

	if ctx.Err() != nil {
		return
	}

	first := !m.checked
	m.checked = true

	if err != nil {
		m.consecutiveFailures++
		changed := m.state.set(false)
		m.publish(false)
		switch {
		case changed:
			m.logger.Warn("database disconnected; continuing to serve non-persistence traffic",
				slog.String("error", err.Error()),
			)
		case first:
			m.logger.Error("database connection error; ensure the database is running and DATABASE_URL is correct",
				slog.String("error", err.Error()),
			)
		default:
			m.logger.Debug("database still unreachable",
				slog.Int("consecutive_failures", m.consecutiveFailures),
				slog.String("error", err.Error()),
			)
		}
		return
	}

	m.consecutiveFailures = 0
	if m.state.set(true) {
		m.publish(true)
		m.logger.Info("database connected")
		m.notifyConnected(ctx)
	}
}

// delay は次のチェックまでの待機時間を返す。
func (m *Monitor) delay() time.Duration {
	return nextDelay(m.config.PingInterval, m.config.MaxBackoff, m.consecutiveFailures)
}

func (m *Monitor) publish(connected bool) {
	if m.observer != nil {
		m.observer.SetDBConnected(connected)
	}
}

func (m *Monitor) notifyConnected(ctx context.Context) {
	m.mu.Lock()
	hooks := append([]func(ctx context.Context){}, m.onConnected...)
	m.mu.Unlock()

	for _, fn := range hooks {
		fn := fn
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			fn(ctx)
		}()
	}
}
