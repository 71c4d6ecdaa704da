// Package article は保存記事の検証・正規化と冪等な保存処理を提供する。
package article

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/hitoshi/nytreact/internal/model"
	"github.com/hitoshi/nytreact/internal/repository"
)

// 保存・削除結果のメトリクスラベル。
const (
	ResultCreated  = "created"
	ResultExists   = "exists"
	ResultInvalid  = "invalid"
	ResultError    = "error"
	ResultDeleted  = "deleted"
	ResultNotFound = "not_found"
)

// Recorder は保存・削除結果を記録するインターフェース。
type Recorder interface {
	RecordSave(result string)
	RecordDelete(result string)
}

// SaveInput は記事保存リクエストの入力。
// Dateは任意で、解釈できない値は無視される。
type SaveInput struct {
	Title string
	URL   string
	Date  string
}

// SaveResult は記事保存の結果。
// Createdがfalseの場合、Articleは既存のレコードをそのまま返したものである。
type SaveResult struct {
	Article *model.SavedArticle
	Created bool
}

// Service は保存記事のユースケースを提供する。
type Service struct {
	repo     repository.SavedArticleRepository
	recorder Recorder
}

// NewService はServiceを生成する。recorderはnilでもよい。
func NewService(repo repository.SavedArticleRepository, recorder Recorder) *Service {
	return &Service{
		repo:     repo,
		recorder: recorder,
	}
}

// Save は入力を検証・正規化し、URLをキーに冪等に保存する。
//
// 処理手順:
//  1. title と url の前後の空白を除去し、空であればINVALID_INPUTを返す
//  2. date が指定されていれば解釈を試み、失敗した場合は項目ごと破棄する
//  3. UpsertIfAbsent で保存し、新規作成か既存かをSaveResult.Createdで返す
//
// ストアの想定外のエラーはPERSISTENCE_ERRORとして返す。
func (s *Service) Save(ctx context.Context, in SaveInput) (*SaveResult, error) {
	title := strings.TrimSpace(in.Title)
	url := strings.TrimSpace(in.URL)

	if title == "" || url == "" {
		s.recordSave(ResultInvalid)
		return nil, model.NewInvalidInputError("both title and url are required")
	}

	article := &model.SavedArticle{
		Title: title,
		URL:   url,
	}

	if raw := strings.TrimSpace(in.Date); raw != "" {
		if date, ok := ParseDate(raw); ok {
			article.Date = &date
		} else {
			slog.Debug("dropping unparseable article date",
				slog.String("url", url),
				slog.String("date", raw),
			)
		}
	}

	saved, created, err := s.repo.UpsertIfAbsent(ctx, article)
	if err != nil {
		s.recordSave(ResultError)
		slog.Error("save article failed",
			slog.String("url", url),
			slog.String("error", err.Error()),
		)
		return nil, model.NewPersistenceError("Could not save article.", err)
	}

	if created {
		s.recordSave(ResultCreated)
	} else {
		s.recordSave(ResultExists)
	}

	return &SaveResult{Article: saved, Created: created}, nil
}

// List は保存記事をdate降順で返す。
func (s *Service) List(ctx context.Context) ([]*model.SavedArticle, error) {
	articles, err := s.repo.ListAll(ctx)
	if err != nil {
		slog.Error("list saved articles failed", slog.String("error", err.Error()))
		return nil, model.NewPersistenceError("Failed to load saved articles.", err)
	}
	return articles, nil
}

// Delete は指定IDの記事を削除し、削除したレコードを返す。
// IDの形式が不正な場合はINVALID_ID、存在しない場合はARTICLE_NOT_FOUNDを返す。
func (s *Service) Delete(ctx context.Context, id string) (*model.SavedArticle, error) {
	deleted, err := s.repo.DeleteByID(ctx, id)
	switch {
	case err == nil:
		s.recordDelete(ResultDeleted)
		return deleted, nil
	case errors.Is(err, model.ErrInvalidID):
		s.recordDelete(ResultInvalid)
		return nil, model.NewInvalidIDError(id)
	case errors.Is(err, model.ErrNotFound):
		s.recordDelete(ResultNotFound)
		return nil, model.NewArticleNotFoundError(id)
	default:
		s.recordDelete(ResultError)
		slog.Error("delete saved article failed",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		return nil, model.NewPersistenceError("Delete failed.", err)
	}
}

func (s *Service) recordSave(result string) {
	if s.recorder != nil {
		s.recorder.RecordSave(result)
	}
}

func (s *Service) recordDelete(result string) {
	if s.recorder != nil {
		s.recorder.RecordDelete(result)
	}
}
