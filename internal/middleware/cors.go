package middleware

import (
	"net/http"
	"strings"
)

// NewCORSMiddleware は許可オリジンに対するCORSミドルウェアを返す。
// 開発時にReact開発サーバー（別オリジン）からAPIを呼び出すために使用する。
//
// allowedOriginsはカンマ区切りで複数指定でき、"*" はすべてのオリジンを許可する。
// リクエストのOriginが一致した場合のみAccess-Control-Allow-Originを返す。
// OPTIONSプリフライトリクエストには常に204で応答し、後続ハンドラーを呼ばない。
func NewCORSMiddleware(allowedOrigins string) func(next http.Handler) http.Handler {
	allowAll := false
	allowed := make(map[string]struct{})
	for _, o := range strings.Split(allowedOrigins, ",") {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		switch o {
		case "":
		case "*":
			allowAll = true
		default:
			allowed[o] = struct{}{}
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Add("Vary", "Origin")

			if origin := r.Header.Get("Origin"); origin != "" {
				_, ok := allowed[origin]
				switch {
				case allowAll:
					h.Set("Access-Control-Allow-Origin", "*")
				case ok:
					h.Set("Access-Control-Allow-Origin", origin)
				}
				if allowAll || ok {
					h.Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
					h.Set("Access-Control-Allow-Headers", "Content-Type")
					h.Set("Access-Control-Expose-Headers", "X-Save-Status")
					h.Set("Access-Control-Max-Age", "86400")
				}
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
