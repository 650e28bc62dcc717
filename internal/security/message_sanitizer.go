// Package security はメッセージ入力の無害化と添付URLの検証を提供する。
//
// MessageSanitizer はメッセージ本文からHTMLマークアップを除去し、プレーンテキストとして保存できる形にする。
// 表示側は本文を常にテキストとして扱う前提。
package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// MessageSanitizer はメッセージ本文の無害化インターフェース。
type MessageSanitizer interface {
	// Sanitize はタグを除去したプレーンテキストを前後の空白を除いて返す。
	// 同一入力に対して常に同一出力を返す。
	Sanitize(content string) string
}

// messageSanitizer はbluemondayのStrictPolicyによるMessageSanitizer実装。
// *bluemonday.Policyは並行利用可能。
type messageSanitizer struct {
	policy *bluemonday.Policy
}

// NewMessageSanitizer はMessageSanitizerを生成する。
func NewMessageSanitizer() MessageSanitizer {
	return &messageSanitizer{policy: bluemonday.StrictPolicy()}
}

// Sanitize はHTMLタグを全て除去する。
// StrictPolicyはテキスト中の記号を実体参照にエスケープするため、保存前にプレーンテキストへ戻す。
func (s *messageSanitizer) Sanitize(content string) string {
	stripped := s.policy.Sanitize(content)
	return strings.TrimSpace(html.UnescapeString(stripped))
}
