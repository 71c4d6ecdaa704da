package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/hitoshi/nytreact/internal/model"
)

// uniqueViolation はPostgreSQLの一意制約違反のSQLSTATE。
const uniqueViolation = "23505"

// savedArticleColumns はSELECT/RETURNINGで共通に使う列リスト。
const savedArticleColumns = `id, title, url, date, created_at`

// PostgresSavedArticleRepo はPostgreSQLを使用した保存記事リポジトリ。
type PostgresSavedArticleRepo struct {
	db *sql.DB
}

// NewPostgresSavedArticleRepo はPostgresSavedArticleRepoを生成する。
func NewPostgresSavedArticleRepo(db *sql.DB) *PostgresSavedArticleRepo {
	return &PostgresSavedArticleRepo{db: db}
}

// UpsertIfAbsent は同一URLの記事が存在しなければ作成する。
// INSERT ... ON CONFLICT (url) DO NOTHING で挿入し、行が返らなければ競合に負けたとみなして
// 既存レコードを読み直す。事前のSELECTによる存在確認は行わない。
func (r *PostgresSavedArticleRepo) UpsertIfAbsent(ctx context.Context, article *model.SavedArticle) (*model.SavedArticle, bool, error) {
	id := article.ID
	if id == "" {
		id = uuid.New().String()
	}

	row := r.db.QueryRowContext(ctx,
		`INSERT INTO saved_articles (id, title, url, date, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (url) DO NOTHING
		 RETURNING `+savedArticleColumns,
		id, article.Title, article.URL, nullTime(article.Date), time.Now().UTC(),
	)

	created, err := scanSavedArticle(row)
	if err == nil {
		return created, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) && !isUniqueViolation(err) {
		return nil, false, fmt.Errorf("failed to insert saved article: %w", err)
	}

	existing, err := r.findByURL(ctx, article.URL)
	if err != nil {
		return nil, false, err
	}
	if existing == nil {
		// 競合した行が読み直す前に削除された
		return nil, false, fmt.Errorf("saved article vanished after conflict: %s", article.URL)
	}

	return existing, false, nil
}

// ListAll は全記事をdate降順で返す。dateがNULLの記事は末尾に並べ、同順位は作成日時の新しい順とする。
func (r *PostgresSavedArticleRepo) ListAll(ctx context.Context) ([]*model.SavedArticle, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+savedArticleColumns+`
		 FROM saved_articles
		 ORDER BY date DESC NULLS LAST, created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list saved articles: %w", err)
	}
	defer rows.Close()

	articles := []*model.SavedArticle{}
	for rows.Next() {
		a, err := scanSavedArticle(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan saved article: %w", err)
		}
		articles = append(articles, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate saved articles: %w", err)
	}

	return articles, nil
}

// DeleteByID は指定IDの記事を削除し、削除したレコードを返す。
// IDがUUID形式でない場合はクエリを発行せずにmodel.ErrInvalidIDを返す。
func (r *PostgresSavedArticleRepo) DeleteByID(ctx context.Context, id string) (*model.SavedArticle, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", model.ErrInvalidID, id)
	}

	row := r.db.QueryRowContext(ctx,
		`DELETE FROM saved_articles WHERE id = $1 RETURNING `+savedArticleColumns,
		parsed.String(),
	)

	deleted, err := scanSavedArticle(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", model.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to delete saved article: %w", err)
	}

	return deleted, nil
}

// findByURL はURLで記事を検索する。見つからない場合はnilを返す。
func (r *PostgresSavedArticleRepo) findByURL(ctx context.Context, url string) (*model.SavedArticle, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+savedArticleColumns+` FROM saved_articles WHERE url = $1`,
		url,
	)

	a, err := scanSavedArticle(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find saved article by url: %w", err)
	}
	return a, nil
}

// rowScanner は*sql.Rowと*sql.Rowsの共通インターフェース。
type rowScanner interface {
	Scan(dest ...any) error
}

func scanSavedArticle(s rowScanner) (*model.SavedArticle, error) {
	a := &model.SavedArticle{}
	var date sql.NullTime

	if err := s.Scan(&a.ID, &a.Title, &a.URL, &date, &a.CreatedAt); err != nil {
		return nil, err
	}
	if date.Valid {
		t := date.Time
		a.Date = &t
	}
	return a, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
