package middleware

import (
	"net/http"
	"strings"
)

const (
	// apiContentSecurityPolicy はJSONのみを返すAPIレスポンス用。何も読み込ませない。
	apiContentSecurityPolicy = "default-src 'none'; frame-ancestors 'none'"

	// spaContentSecurityPolicy はclient/buildのReactアプリ用。
	// 検索結果のサムネイルは外部のhttps画像、CRAのビルドはインラインstyleを含む。
	spaContentSecurityPolicy = "default-src 'self'; " +
		"img-src 'self' https: data:; " +
		"style-src 'self' 'unsafe-inline'; " +
		"connect-src 'self'; " +
		"base-uri 'self'; " +
		"form-action 'self'; " +
		"frame-ancestors 'none'"
)

// NewSecurityHeadersMiddleware はセキュリティ関連のHTTPレスポンスヘッダーを付与するミドルウェアを返す。
// /api と /metrics には厳格なCSPとno-storeを、それ以外（SPA配信）にはアプリが動作するCSPを設定する。
func NewSecurityHeadersMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
			h.Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")

			if isAPIPath(r.URL.Path) {
				h.Set("Content-Security-Policy", apiContentSecurityPolicy)
				h.Set("Cache-Control", "no-store")
			} else {
				h.Set("Content-Security-Policy", spaContentSecurityPolicy)
			}

			next.ServeHTTP(w, r)
		})
	}
}

func isAPIPath(path string) bool {
	return path == "/api" || strings.HasPrefix(path, "/api/") ||
		path == "/metrics" || path == "/health"
}
