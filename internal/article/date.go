package article

import (
	"time"

	"github.com/araddon/dateparse"
)

const (
	minYear = 1
	maxYear = 9999
)

// ParseDate は記事の公開日時を解釈する。
// RFC3339、検索APIの "2019-03-01T12:00:00+0000"、"2019-03-01" など一般的な形式を受け付ける。
// タイムゾーンを持たない値はUTCとして扱う。解釈できない場合はfalseを返す。
// dateparseは "1/1/1" のような断片を0年として返すため、1年から9999年の範囲外も解釈失敗とする。
func ParseDate(raw string) (time.Time, bool) {
	t, err := dateparse.ParseIn(raw, time.UTC)
	if err != nil || t.IsZero() {
		return time.Time{}, false
	}
	t = t.UTC()
	if t.Year() < minYear || t.Year() > maxYear {
		return time.Time{}, false
	}
	return t, true
}
