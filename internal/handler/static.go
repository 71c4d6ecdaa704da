package handler

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/hitoshi/nytreact/internal/model"
)

// SPAHandler はフロントエンドのビルド成果物を配信する。
// 存在しないパスにはindex.htmlを返し、クライアント側ルーティングに委ねる。
type SPAHandler struct {
	dir        string
	fileServer http.Handler
}

// NewSPAHandler はdir配下を配信するSPAHandlerを生成する。
// dirが空の場合はAPI以外のパスに404を返す。
func NewSPAHandler(dir string) *SPAHandler {
	h := &SPAHandler{dir: dir}
	if dir != "" {
		h.fileServer = http.FileServer(http.Dir(dir))
	}
	return h
}

// ServeHTTP はhttp.Handlerを実装する。
// /api/ 配下の未定義パスはJSONの404を返す。
func (h *SPAHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/api" || strings.HasPrefix(r.URL.Path, "/api/") {
		writeAPIErrorResponse(w, http.StatusNotFound, &model.APIError{
			Code:     "NOT_FOUND",
			Message:  "Resource not found.",
			Category: "system",
			Action:   "Check the request path.",
		})
		return
	}

	if h.fileServer == nil {
		http.NotFound(w, r)
		return
	}

	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	cleaned := path.Clean("/" + r.URL.Path)
	if cleaned != "/" {
		info, err := os.Stat(filepath.Join(h.dir, filepath.FromSlash(cleaned)))
		if err == nil && !info.IsDir() {
			h.fileServer.ServeHTTP(w, r)
			return
		}
	}

	index := filepath.Join(h.dir, "index.html")
	if _, err := os.Stat(index); err != nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Cache-Control", "no-cache")
	http.ServeFile(w, r, index)
}
