package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/nytreact/internal/model"
	"github.com/hitoshi/nytreact/internal/search"
)

// SearcherInterface は記事検索ハンドラーが必要とするインターフェース。
type SearcherInterface interface {
	Search(ctx context.Context, q search.Query) (*search.Response, error)
}

// SearchHandler は記事検索プロキシのHTTPハンドラー。
type SearchHandler struct {
	searcher SearcherInterface
}

// NewSearchHandler はSearchHandlerを生成する。searcherがnilの場合は常にSEARCH_NOT_CONFIGUREDを返す。
func NewSearchHandler(searcher SearcherInterface) *SearchHandler {
	return &SearchHandler{searcher: searcher}
}

// Search は記事を検索する。
// GET /api/search?q=&begin_date=&end_date=
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	if h.searcher == nil {
		writeAPIErrorResponse(w, http.StatusServiceUnavailable, model.NewSearchNotConfiguredError())
		return
	}

	params := r.URL.Query()
	resp, err := h.searcher.Search(r.Context(), search.Query{
		Q:         params.Get("q"),
		BeginDate: params.Get("begin_date"),
		EndDate:   params.Get("end_date"),
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}
