// Package model はドメインモデルを定義する。
package model

import "time"

// SavedArticle はユーザーが保存した記事を表す。
// URLを自然キーとし、同一URLのレコードはストア全体で最大1件に限られる。
// 作成と削除のみを持ち、更新操作は存在しない。
type SavedArticle struct {
	ID        string
	Title     string
	URL       string
	Date      *time.Time // 公開日時。入力が解釈できない場合はnil
	CreatedAt time.Time
}

// HasDate は公開日時が設定されているかを返す。
func (a *SavedArticle) HasDate() bool {
	return a.Date != nil
}
