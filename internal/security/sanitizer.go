// Package security はアプリケーションのセキュリティ機能を提供する。
//
// TextSanitizer は利用者が入力する自由記述テキストからHTMLを取り除き、
// 保存済みデータを表示するクライアントでのXSSを防ぐ。
package security

import (
	"html"

	"github.com/microcosm-cc/bluemonday"
)

// maxUnescapePasses はエンティティで多重にエスケープされたタグを剥がす最大回数。
const maxUnescapePasses = 3

// TextSanitizer はすべてのHTMLタグを除去してプレーンテキストを返す。
// bluemondayのポリシーはスレッドセーフなので、1インスタンスを共有して使う。
type TextSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はタグを一切許可しないTextSanitizerを生成する。
func NewTextSanitizer() *TextSanitizer {
	return &TextSanitizer{policy: bluemonday.StrictPolicy()}
}

// Sanitize はタグを除去し、エンティティを元の文字に戻した文字列を返す。
// "&lt;script&gt;" のようにエスケープされたタグも除去対象とする。
// 同一入力に対して常に同一出力を返し、出力を再度渡しても変化しない。
func (s *TextSanitizer) Sanitize(raw string) string {
	if raw == "" {
		return ""
	}
	out := raw
	for range maxUnescapePasses {
		next := html.UnescapeString(s.policy.Sanitize(out))
		if next == out {
			return out
		}
		out = next
	}
	// 収束しない入力はエスケープされたまま返す
	return s.policy.Sanitize(out)
}
