// Package model はドメインモデルを定義する。
package model

import (
	"errors"
	"fmt"
)

// リポジトリ境界で使用するセンチネルエラー。
var (
	// ErrNotFound は対象レコードが存在しないことを示す。
	ErrNotFound = errors.New("record not found")
	// ErrInvalidID はIDがストアのID形式として不正であることを示す。
	ErrInvalidID = errors.New("invalid id")
)

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: validation, article, search, system
	Action   string // ユーザー向け対処方法
	Err      error  // ログ用の内部エラー。レスポンスには含めない
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap は内部エラーを返す。
func (e *APIError) Unwrap() error {
	return e.Err
}

// 定義済みエラーコード
const (
	ErrCodeInvalidInput        = "INVALID_INPUT"
	ErrCodeInvalidID           = "INVALID_ID"
	ErrCodeArticleNotFound     = "ARTICLE_NOT_FOUND"
	ErrCodeDatabaseUnavailable = "DATABASE_UNAVAILABLE"
	ErrCodePersistence         = "PERSISTENCE_ERROR"
	ErrCodeInvalidQuery        = "INVALID_QUERY"
	ErrCodeSearchNotConfigured = "SEARCH_NOT_CONFIGURED"
	ErrCodeSearchUnavailable   = "SEARCH_UNAVAILABLE"
	ErrCodeSearchFailed        = "SEARCH_FAILED"
)

// NewInvalidInputError は必須項目の欠落エラーを生成する。
func NewInvalidInputError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidInput,
		Message:  fmt.Sprintf("Invalid request: %s", reason),
		Category: "validation",
		Action:   "Both title and url are required.",
	}
}

// NewInvalidIDError は不正な記事IDのエラーを生成する。
func NewInvalidIDError(id string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidID,
		Message:  fmt.Sprintf("Invalid article id: %s", id),
		Category: "validation",
		Action:   "Check the article id and try again.",
	}
}

// NewArticleNotFoundError は削除対象の記事が存在しないエラーを生成する。
func NewArticleNotFoundError(id string) *APIError {
	return &APIError{
		Code:     ErrCodeArticleNotFound,
		Message:  fmt.Sprintf("Article not found: %s", id),
		Category: "article",
		Action:   "Reload the saved list; the article may already be removed.",
	}
}

// NewDatabaseUnavailableError はストア到達不能エラーを生成する。
// 一般的なエラーと区別して「後で再試行」をクライアントに伝えるために使用する。
func NewDatabaseUnavailableError() *APIError {
	return &APIError{
		Code:     ErrCodeDatabaseUnavailable,
		Message:  "Database unavailable.",
		Category: "system",
		Action:   "Start the database or set DATABASE_URL to a reachable instance, then try again later.",
	}
}

// NewPersistenceError は想定外のストア障害エラーを生成する。
// errはログにのみ記録され、レスポンスには含まれない。
func NewPersistenceError(message string, err error) *APIError {
	return &APIError{
		Code:     ErrCodePersistence,
		Message:  message,
		Category: "system",
		Action:   "Please try again later.",
		Err:      err,
	}
}

// NewInvalidQueryError は検索クエリが空の場合のエラーを生成する。
func NewInvalidQueryError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidQuery,
		Message:  "Search query is required.",
		Category: "validation",
		Action:   "Enter a search topic.",
	}
}

// NewSearchNotConfiguredError はAPIキー未設定エラーを生成する。
func NewSearchNotConfiguredError() *APIError {
	return &APIError{
		Code:     ErrCodeSearchNotConfigured,
		Message:  "Missing NYT API key.",
		Category: "search",
		Action:   "Set NYT_API_KEY and restart the server.",
	}
}

// NewSearchUnavailableError は検索APIへの呼び出しが一時停止中のエラーを生成する。
func NewSearchUnavailableError() *APIError {
	return &APIError{
		Code:     ErrCodeSearchUnavailable,
		Message:  "Article search is temporarily unavailable.",
		Category: "search",
		Action:   "Please wait and try again later.",
	}
}

// NewSearchFailedError は検索APIの呼び出し失敗エラーを生成する。
func NewSearchFailedError(err error) *APIError {
	return &APIError{
		Code:     ErrCodeSearchFailed,
		Message:  "Failed to fetch articles.",
		Category: "search",
		Action:   "Please try again.",
		Err:      err,
	}
}
