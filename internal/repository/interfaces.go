// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/nytreact/internal/model"
)

// SavedArticleRepository は保存記事の永続化インターフェース。
// URLを自然キーとした冪等な保存、一覧取得、ID指定削除を提供する。
type SavedArticleRepository interface {
	// UpsertIfAbsent は同一URLの記事が存在しなければ作成し、createdにtrueを返す。
	// 既に存在する場合は既存レコードを変更せずに返し、createdはfalseとなる。
	// 一意性はストアのUNIQUE制約で保証するため、同一URLの同時呼び出しでも重複は発生しない。
	UpsertIfAbsent(ctx context.Context, article *model.SavedArticle) (saved *model.SavedArticle, created bool, err error)

	// ListAll は全記事をdate降順で返す。dateを持たない記事は末尾に並ぶ。
	ListAll(ctx context.Context) ([]*model.SavedArticle, error)

	// DeleteByID は指定IDの記事を削除し、削除したレコードを返す。
	// IDの形式が不正な場合はmodel.ErrInvalidID、存在しない場合はmodel.ErrNotFoundを返す。
	DeleteByID(ctx context.Context, id string) (*model.SavedArticle, error)
}
