// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string              // エラーコード
	Message  string              // エラーメッセージ
	Category string              // カテゴリ: auth, validation, conversation, system
	Action   string              // ユーザー向け対処方法
	Fields   map[string][]string // フィールド単位のバリデーションエラー（任意）
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeUnauthorized        = "UNAUTHORIZED"
	ErrCodeForbidden           = "FORBIDDEN"
	ErrCodeInvalidDiscussionID = "INVALID_DISCUSSION_ID"
	ErrCodeInvalidCursor       = "INVALID_CURSOR"
	ErrCodeDiscussionNotFound  = "DISCUSSION_NOT_FOUND"
	ErrCodeEmptyMessage        = "EMPTY_MESSAGE"
	ErrCodeInvalidMedia        = "INVALID_MEDIA"
	ErrCodeSelfDiscussion      = "SELF_DISCUSSION"
	ErrCodeUserNotFound        = "USER_NOT_FOUND"
	ErrCodeValidationFailed    = "VALIDATION_FAILED"
	ErrCodeInvalidCredentials  = "INVALID_CREDENTIALS"
	ErrCodeUsernameTaken       = "USERNAME_TAKEN"
	ErrCodeEmailTaken          = "EMAIL_TAKEN"
	ErrCodeInvalidRequest      = "INVALID_REQUEST"
	ErrCodeInvalidQuery        = "INVALID_QUERY"
	ErrCodeRateLimited         = "RATE_LIMITED"
	ErrCodeInternal            = "INTERNAL_ERROR"
)

// NewUnauthorizedError は未認証エラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインしてください。",
	}
}

// NewForbiddenError は会話の参加者でない場合のエラーを生成する。
// 会話やメッセージの内容は一切含めない。
func NewForbiddenError() *APIError {
	return &APIError{
		Code:     ErrCodeForbidden,
		Message:  "この会話にアクセスする権限がありません。",
		Category: "auth",
		Action:   "参加している会話を選択してください。",
	}
}

// NewInvalidDiscussionIDError は会話IDが数値でない場合のエラーを生成する。
func NewInvalidDiscussionIDError(raw string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidDiscussionID,
		Message:  fmt.Sprintf("無効な会話IDです: %s", raw),
		Category: "validation",
		Action:   "会話IDには正の整数を指定してください。",
	}
}

// NewInvalidCursorError はafterパラメータが不正な場合のエラーを生成する。
func NewInvalidCursorError(raw string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCursor,
		Message:  fmt.Sprintf("無効なカーソルです: %s", raw),
		Category: "validation",
		Action:   "afterには整数のメッセージIDを指定してください。",
	}
}

// NewDiscussionNotFoundError は会話が見つからない場合のエラーを生成する。
func NewDiscussionNotFoundError(discussionID int64) *APIError {
	return &APIError{
		Code:     ErrCodeDiscussionNotFound,
		Message:  fmt.Sprintf("指定された会話が見つかりません: %d", discussionID),
		Category: "conversation",
		Action:   "会話一覧から会話を選択し直してください。",
	}
}

// NewEmptyMessageError は本文も添付もないメッセージのエラーを生成する。
func NewEmptyMessageError() *APIError {
	return &APIError{
		Code:     ErrCodeEmptyMessage,
		Message:  "本文または添付ファイルのいずれかが必要です。",
		Category: "validation",
		Action:   "メッセージを入力するかファイルを添付してください。",
	}
}

// NewInvalidMediaError は添付URLが不正な場合のエラーを生成する。
func NewInvalidMediaError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidMedia,
		Message:  fmt.Sprintf("無効な添付ファイルです: %s", reason),
		Category: "validation",
		Action:   "http:// または https:// で始まるURLを指定してください。",
	}
}

// NewSelfDiscussionError は自分自身との会話を作成しようとした場合のエラーを生成する。
func NewSelfDiscussionError() *APIError {
	return &APIError{
		Code:     ErrCodeSelfDiscussion,
		Message:  "自分自身との会話は作成できません。",
		Category: "validation",
		Action:   "別のユーザーを選択してください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: "auth",
		Action:   "ユーザーを確認してください。",
	}
}

// NewValidationError はフィールド単位のバリデーションエラーを生成する。
func NewValidationError(fields map[string][]string) *APIError {
	return &APIError{
		Code:     ErrCodeValidationFailed,
		Message:  "入力内容に誤りがあります。",
		Category: "validation",
		Action:   "各項目のエラーを確認して入力し直してください。",
		Fields:   fields,
	}
}

// NewInvalidCredentialsError はログイン失敗エラーを生成する。
// fieldsにはどの項目が誤っているかを格納する。
func NewInvalidCredentialsError(fields map[string][]string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "ログインに失敗しました。",
		Category: "auth",
		Action:   "ユーザー名またはメールアドレスとパスワードを確認してください。",
		Fields:   fields,
	}
}

// NewUsernameTakenError はusernameが既に使用されている場合のエラーを生成する。
func NewUsernameTakenError() *APIError {
	return &APIError{
		Code:     ErrCodeUsernameTaken,
		Message:  "このユーザー名は既に使用されています。",
		Category: "validation",
		Action:   "別のユーザー名を指定してください。",
		Fields:   map[string][]string{"username": {"このユーザー名は既に使用されています。"}},
	}
}

// NewEmailTakenError はemailが既に登録されている場合のエラーを生成する。
func NewEmailTakenError() *APIError {
	return &APIError{
		Code:     ErrCodeEmailTaken,
		Message:  "このメールアドレスは既に登録されています。",
		Category: "validation",
		Action:   "別のメールアドレスを指定するか、ログインしてください。",
		Fields:   map[string][]string{"email": {"このメールアドレスは既に登録されています。"}},
	}
}

// NewInvalidRequestError はリクエストボディが解析できない場合のエラーを生成する。
func NewInvalidRequestError(message string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  message,
		Category: "validation",
		Action:   "正しいJSON形式でリクエストしてください。",
	}
}

// NewInvalidQueryError は検索クエリが短すぎる場合のエラーを生成する。
func NewInvalidQueryError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidQuery,
		Message:  "検索語は2文字以上で指定してください。",
		Category: "validation",
		Action:   "検索語を長くして再度お試しください。",
	}
}

// NewRateLimitedError はレート制限超過エラーを生成する。
func NewRateLimitedError() *APIError {
	return &APIError{
		Code:     ErrCodeRateLimited,
		Message:  "リクエストが多すぎます。",
		Category: "system",
		Action:   "Retry-Afterの秒数だけ待ってから再度お試しください。",
	}
}

// NewInternalError は内部エラーを生成する。詳細はログにのみ記録する。
func NewInternalError() *APIError {
	return &APIError{
		Code:     ErrCodeInternal,
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}
