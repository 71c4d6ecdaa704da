package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizer はHTMLを含み得る外部由来のテキストをプレーンテキストに正規化する。
// 検索APIの見出しやスニペットにはハイライト用のマークアップが混入するため、プロキシ応答に適用する。
type TextSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はすべてのタグを除去するStrictPolicyのTextSanitizerを生成する。
func NewTextSanitizer() *TextSanitizer {
	return &TextSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Sanitize はタグを除去し、エンティティを戻し、連続する空白を1つにまとめて前後を除去する。
// 同一入力に対して常に同一出力を返す（冪等）。
func (s *TextSanitizer) Sanitize(raw string) string {
	stripped := s.policy.Sanitize(raw)
	unescaped := html.UnescapeString(stripped)
	return strings.Join(strings.Fields(unescaped), " ")
}
