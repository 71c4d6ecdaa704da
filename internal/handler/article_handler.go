package handler

import (
	"context"
	"encoding/json"
	"mime"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/nytreact/internal/article"
	"github.com/hitoshi/nytreact/internal/model"
)

// maxSaveBodyBytes は記事保存リクエストボディの最大サイズ。
const maxSaveBodyBytes = 64 * 1024

// saveStatusHeader は保存結果（created/exists）を示すレスポンスヘッダー。
const saveStatusHeader = "X-Save-Status"

// ArticleServiceInterface は記事ハンドラーが必要とするサービスインターフェース。
type ArticleServiceInterface interface {
	// Save は記事をURLをキーに冪等に保存する。
	Save(ctx context.Context, in article.SaveInput) (*article.SaveResult, error)
	// List は保存記事を新しい順に返す。
	List(ctx context.Context) ([]*model.SavedArticle, error)
	// Delete は指定IDの記事を削除し、削除したレコードを返す。
	Delete(ctx context.Context, id string) (*model.SavedArticle, error)
}

// ArticleHandler は保存記事のHTTPハンドラー。
type ArticleHandler struct {
	service ArticleServiceInterface
}

// NewArticleHandler はArticleHandlerを生成する。
func NewArticleHandler(service ArticleServiceInterface) *ArticleHandler {
	return &ArticleHandler{service: service}
}

// looseString はJSONの文字列以外の値（null、数値など）を空文字列として受け取る。
// 任意項目に想定外の型が来てもリクエスト全体を拒否しないために使用する。
type looseString string

// UnmarshalJSON はjson.Unmarshalerを実装する。
func (s *looseString) UnmarshalJSON(data []byte) error {
	var v string
	if err := json.Unmarshal(data, &v); err != nil {
		*s = ""
		return nil
	}
	*s = looseString(v)
	return nil
}

// saveArticleRequest は記事保存リクエストのボディ。
type saveArticleRequest struct {
	Title string      `json:"title"`
	URL   string      `json:"url"`
	Date  looseString `json:"date"`
}

// savedArticleResponse は保存記事のAPIレスポンス。
// フロントエンドはIDを "_id" で参照する。
type savedArticleResponse struct {
	ID    string     `json:"_id"`
	Title string     `json:"title"`
	URL   string     `json:"url"`
	Date  *time.Time `json:"date,omitempty"`
}

// ListSaved は保存記事一覧を返す。
// GET /api/saved
func (h *ArticleHandler) ListSaved(w http.ResponseWriter, r *http.Request) {
	articles, err := h.service.List(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]savedArticleResponse, 0, len(articles))
	for _, a := range articles {
		resp = append(resp, toSavedArticleResponse(a))
	}

	writeJSON(w, http.StatusOK, resp)
}

// SaveArticle は記事を保存する。
// POST /api/saved
//
// 新規作成時は201、同一URLの記事が既に存在する場合は200で既存レコードを返す。
// JSONとフォーム形式（application/x-www-form-urlencoded）の両方を受け付ける。
func (h *ArticleHandler) SaveArticle(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxSaveBodyBytes)

	in, ok := decodeSaveInput(r)
	if !ok {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidInputError("could not parse request body"))
		return
	}

	result, err := h.service.Save(r.Context(), in)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	status := http.StatusOK
	w.Header().Set(saveStatusHeader, "exists")
	if result.Created {
		status = http.StatusCreated
		w.Header().Set(saveStatusHeader, "created")
	}

	writeJSON(w, status, toSavedArticleResponse(result.Article))
}

// DeleteSaved は保存記事を削除し、削除したレコードを返す。
// DELETE /api/saved/{id}
func (h *ArticleHandler) DeleteSaved(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	deleted, err := h.service.Delete(r.Context(), id)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toSavedArticleResponse(deleted))
}

// decodeSaveInput はContent-Typeに応じてリクエストボディを解析する。
func decodeSaveInput(r *http.Request) (article.SaveInput, bool) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	switch mediaType {
	case "application/x-www-form-urlencoded", "multipart/form-data":
		var err error
		if mediaType == "multipart/form-data" {
			err = r.ParseMultipartForm(maxSaveBodyBytes)
		} else {
			err = r.ParseForm()
		}
		if err != nil {
			return article.SaveInput{}, false
		}
		return article.SaveInput{
			Title: r.PostFormValue("title"),
			URL:   r.PostFormValue("url"),
			Date:  r.PostFormValue("date"),
		}, true
	default:
		var req saveArticleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return article.SaveInput{}, false
		}
		return article.SaveInput{
			Title: req.Title,
			URL:   req.URL,
			Date:  string(req.Date),
		}, true
	}
}

// toSavedArticleResponse はmodel.SavedArticleからAPIレスポンスに変換する。
func toSavedArticleResponse(a *model.SavedArticle) savedArticleResponse {
	return savedArticleResponse{
		ID:    a.ID,
		Title: a.Title,
		URL:   a.URL,
		Date:  a.Date,
	}
}
