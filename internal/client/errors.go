package client

import (
	"errors"
	"fmt"
	"net/http"
)

// 終端エラー。同期ループはこれらを受け取ると停止する。
var (
	ErrUnauthorized = errors.New("client: unauthorized")
	ErrForbidden    = errors.New("client: forbidden")
	ErrNotFound     = errors.New("client: not found")
)

// APIError はサーバーが400で返したエラー本文。
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Fields     map[string][]string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d %s: %s", e.StatusCode, e.Code, e.Message)
}

// StatusError は上記以外の非2xxレスポンス。再試行してよい。
type StatusError struct {
	StatusCode int
	Code       string
}

func (e *StatusError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("unexpected status %d (%s)", e.StatusCode, e.Code)
	}
	return fmt.Sprintf("unexpected status %d", e.StatusCode)
}

// IsTerminal はerrが再試行しても回復しないセッション・権限系のエラーかどうかを返す。
func IsTerminal(err error) bool {
	return errors.Is(err, ErrUnauthorized) ||
		errors.Is(err, ErrForbidden) ||
		errors.Is(err, ErrNotFound)
}

// statusToError はステータスコードとエラー本文をエラーに変換する。
func statusToError(status int, body *errorBody) error {
	switch status {
	case http.StatusUnauthorized:
		if body != nil && len(body.Errors) > 0 {
			// ログイン失敗はフィールド情報を保持する
			return fmt.Errorf("%w: %w", ErrUnauthorized, body.apiError(status))
		}
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusBadRequest:
		if body == nil {
			return &APIError{StatusCode: status}
		}
		return body.apiError(status)
	default:
		se := &StatusError{StatusCode: status}
		if body != nil {
			se.Code = body.Code
		}
		return se
	}
}

func (b *errorBody) apiError(status int) *APIError {
	return &APIError{
		StatusCode: status,
		Code:       b.Code,
		Message:    b.Message,
		Fields:     b.Errors,
	}
}
