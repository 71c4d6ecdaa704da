// Package search はNYT Article Search APIのプロキシクライアントを提供する。
// APIキーはサーバー側で保持し、ブラウザには公開しない。
package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/hitoshi/nytreact/internal/model"
	"github.com/hitoshi/nytreact/internal/security"
)

const (
	// maxResponseBytes は上流レスポンスボディの最大サイズ（5MB）。
	maxResponseBytes = 5 * 1024 * 1024
	// maxQueryLength は検索語の最大長。
	maxQueryLength = 256
)

// 検索結果のメトリクスラベル。
const (
	ResultOK       = "ok"
	ResultFailed   = "failed"
	ResultRejected = "rejected"
)

// Recorder は検索の結果と所要時間を記録するインターフェース。
type Recorder interface {
	ObserveSearch(result string, duration time.Duration)
}

// Config はClientの設定を保持する。
type Config struct {
	Endpoint string
	APIKey   string
	Breaker  BreakerConfig
}

// BreakerConfig は上流APIのサーキットブレーカー設定。
type BreakerConfig struct {
	MaxRequests      uint32        // half-open状態で許可するリクエスト数
	Interval         time.Duration // closed状態で集計をリセットする周期
	Timeout          time.Duration // open状態からhalf-openへ移るまでの時間
	FailureThreshold float64       // open状態へ移る失敗率
	MinRequests      uint32        // 失敗率を評価する最小リクエスト数
}

// DefaultBreakerConfig はデフォルトのサーキットブレーカー設定を返す。
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxRequests:      3,
		Interval:         30 * time.Second,
		Timeout:          60 * time.Second,
		FailureThreshold: 0.6,
		MinRequests:      5,
	}
}

// Query は検索条件。BeginDate/EndDateはYYYYMMDDまたはYYYY-MM-DD形式。
type Query struct {
	Q         string
	BeginDate string
	EndDate   string
}

// Headline は記事の見出し。
type Headline struct {
	Main string `json:"main"`
}

// Byline は記事の署名。
type Byline struct {
	Original string `json:"original,omitempty"`
}

// Doc は検索結果の1記事。クライアントが参照する項目のみを保持する。
type Doc struct {
	ID            string   `json:"_id"`
	WebURL        string   `json:"web_url"`
	Headline      Headline `json:"headline"`
	PubDate       string   `json:"pub_date,omitempty"`
	Snippet       string   `json:"snippet,omitempty"`
	Abstract      string   `json:"abstract,omitempty"`
	LeadParagraph string   `json:"lead_paragraph,omitempty"`
	Source        string   `json:"source,omitempty"`
	Byline        Byline   `json:"byline"`
}

// Response は上流APIと同じ {"response":{"docs":[...]}} 形式の検索結果。
type Response struct {
	Response struct {
		Docs []Doc `json:"docs"`
	} `json:"response"`
}

// errUpstream は上流APIの異常応答を示す。
var errUpstream = errors.New("upstream search api error")

// Client はNYT Article Search APIのクライアント。
// 上流の連続障害時はサーキットブレーカーにより即座にSEARCH_UNAVAILABLEを返す。
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	endpoint   string
	apiKey     string
	breaker    *gobreaker.CircuitBreaker
	sanitizer  *security.TextSanitizer
	recorder   Recorder
}

// NewClient はClientを生成する。recorderはnilでもよい。
func NewClient(httpClient *http.Client, logger *slog.Logger, cfg Config, recorder Recorder) *Client {
	bc := cfg.Breaker
	if bc.MinRequests == 0 {
		bc = DefaultBreakerConfig()
	}

	settings := gobreaker.Settings{
		Name:        "nyt-search",
		MaxRequests: bc.MaxRequests,
		Interval:    bc.Interval,
		Timeout:     bc.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < bc.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= bc.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				slog.String("circuit", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
		},
	}

	return &Client{
		httpClient: httpClient,
		logger:     logger,
		endpoint:   cfg.Endpoint,
		apiKey:     cfg.APIKey,
		breaker:    gobreaker.NewCircuitBreaker(settings),
		sanitizer:  security.NewTextSanitizer(),
		recorder:   recorder,
	}
}

// Enabled はAPIキーが設定されているかを返す。
func (c *Client) Enabled() bool {
	return c.apiKey != ""
}

// Search は記事を検索する。
// 検索語が空の場合はINVALID_QUERY、APIキー未設定の場合はSEARCH_NOT_CONFIGURED、
// サーキットブレーカーがopenの場合はSEARCH_UNAVAILABLE、上流の失敗はSEARCH_FAILEDを返す。
func (c *Client) Search(ctx context.Context, q Query) (*Response, error) {
	term := strings.TrimSpace(q.Q)
	if term == "" || len(term) > maxQueryLength {
		return nil, model.NewInvalidQueryError()
	}
	if !c.Enabled() {
		return nil, model.NewSearchNotConfiguredError()
	}

	start := time.Now()
	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.fetch(ctx, term, NormalizeDate(q.BeginDate), NormalizeDate(q.EndDate))
	})
	elapsed := time.Since(start)

	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			c.observe(ResultRejected, elapsed)
			return nil, model.NewSearchUnavailableError()
		}
		c.observe(ResultFailed, elapsed)
		return nil, model.NewSearchFailedError(err)
	}

	c.observe(ResultOK, elapsed)
	resp := result.(*Response)
	c.sanitize(resp)
	return resp, nil
}

// fetch は上流APIを1回呼び出してレスポンスをデコードする。
func (c *Client) fetch(ctx context.Context, term, beginDate, endDate string) (*Response, error) {
	reqURL, err := url.Parse(c.endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse search endpoint: %w", err)
	}

	params := reqURL.Query()
	params.Set("q", term)
	params.Set("api-key", c.apiKey)
	if beginDate != "" {
		params.Set("begin_date", beginDate)
	}
	if endDate != "" {
		params.Set("end_date", endDate)
	}
	reqURL.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create search request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "NYTReact/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("search api request failed",
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("search api returned error status",
			slog.Int("http_status", resp.StatusCode),
		)
		return nil, fmt.Errorf("%w: status %d", errUpstream, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read search response: %w", err)
	}

	var decoded Response
	if err := json.Unmarshal(body, &decoded); err != nil {
		c.logger.Error("failed to parse search api response",
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("%w: decode response: %v", errUpstream, err)
	}
	if decoded.Response.Docs == nil {
		decoded.Response.Docs = []Doc{}
	}

	return &decoded, nil
}

// sanitize は検索結果のテキスト項目からマークアップを除去する。
func (c *Client) sanitize(resp *Response) {
	for i := range resp.Response.Docs {
		doc := &resp.Response.Docs[i]
		doc.Headline.Main = c.sanitizer.Sanitize(doc.Headline.Main)
		doc.Snippet = c.sanitizer.Sanitize(doc.Snippet)
		doc.Abstract = c.sanitizer.Sanitize(doc.Abstract)
		doc.LeadParagraph = c.sanitizer.Sanitize(doc.LeadParagraph)
		doc.Byline.Original = c.sanitizer.Sanitize(doc.Byline.Original)
	}
}

func (c *Client) observe(result string, d time.Duration) {
	if c.recorder != nil {
		c.recorder.ObserveSearch(result, d)
	}
}

// NormalizeDate は日付をAPIが受け付けるYYYYMMDD形式に正規化する。
// 形式が不正な場合は空文字列を返し、条件から除外する。
func NormalizeDate(raw string) string {
	digits := strings.ReplaceAll(strings.TrimSpace(raw), "-", "")
	if len(digits) != 8 {
		return ""
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return ""
		}
	}
	if _, err := time.Parse("20060102", digits); err != nil {
		return ""
	}
	return digits
}
