package auth

import (
	"net/mail"
	"strings"
	"unicode"
	"unicode/utf8"
)

// FieldValidator は1フィールドの値を検証し、エラーメッセージの一覧を返す。
// formには同じフォームの他フィールドの値が入る（確認用パスワードの比較など）。
type FieldValidator func(value string, form map[string]string) []string

// フォームのフィールド名
const (
	FieldName            = "name"
	FieldSurname         = "surname"
	FieldUsername        = "username"
	FieldEmail           = "email"
	FieldPassword        = "password"
	FieldConfirmPassword = "confirmPassword"
	FieldLogin           = "login"
)

// signupValidators はサインアップフォームのフィールド別ルール。
var signupValidators = map[string]FieldValidator{
	FieldName:            validatePersonName,
	FieldSurname:         validatePersonName,
	FieldUsername:        validateUsername,
	FieldEmail:           validateEmail,
	FieldPassword:        validatePassword,
	FieldConfirmPassword: validateConfirmPassword,
}

// ValidateField は単一フィールドを検証する。ルールのないフィールドは常に有効。
func ValidateField(field, value string, form map[string]string) []string {
	v, ok := signupValidators[field]
	if !ok {
		return nil
	}
	return v(value, form)
}

// ValidateForm はformの全フィールドをルールに従って検証する。
// エラーのあるフィールドのみを含むmapを返し、全て有効な場合は空のmapを返す。
func ValidateForm(form map[string]string) map[string][]string {
	errs := make(map[string][]string)
	for field, v := range signupValidators {
		if msgs := v(form[field], form); len(msgs) > 0 {
			errs[field] = msgs
		}
	}
	return errs
}

func validatePersonName(value string, _ map[string]string) []string {
	n := utf8.RuneCountInString(strings.TrimSpace(value))
	switch {
	case n < 2:
		return []string{"2文字以上で入力してください。"}
	case n > 50:
		return []string{"50文字以内で入力してください。"}
	}
	return nil
}

func validateUsername(value string, _ map[string]string) []string {
	var msgs []string
	n := len(value)
	if n < 3 || n > 30 {
		msgs = append(msgs, "3文字以上30文字以内で入力してください。")
	}
	for _, r := range value {
		if !isUsernameRune(r) {
			msgs = append(msgs, "英数字とアンダースコアのみ使用できます。")
			break
		}
	}
	return msgs
}

func isUsernameRune(r rune) bool {
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

func validateEmail(value string, _ map[string]string) []string {
	value = strings.TrimSpace(value)
	if value == "" {
		return []string{"メールアドレスを入力してください。"}
	}
	addr, err := mail.ParseAddress(value)
	if err != nil || addr.Address != value {
		return []string{"有効なメールアドレスを入力してください。"}
	}
	// ドメイン部にドットのないアドレス（user@localhost など）は受け付けない
	domain := value[strings.LastIndex(value, "@")+1:]
	if !strings.Contains(domain, ".") {
		return []string{"有効なメールアドレスを入力してください。"}
	}
	return nil
}

func validatePassword(value string, _ map[string]string) []string {
	var msgs []string
	if utf8.RuneCountInString(value) < 8 {
		msgs = append(msgs, "8文字以上で入力してください。")
	}

	var hasLetter, hasDigit, hasSpecial bool
	for _, r := range value {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		default:
			hasSpecial = true
		}
	}
	if !hasLetter {
		msgs = append(msgs, "英字を1文字以上含めてください。")
	}
	if !hasDigit {
		msgs = append(msgs, "数字を1文字以上含めてください。")
	}
	if !hasSpecial {
		msgs = append(msgs, "記号を1文字以上含めてください。")
	}
	return msgs
}

func validateConfirmPassword(value string, form map[string]string) []string {
	if value == "" {
		return []string{"確認用パスワードを入力してください。"}
	}
	if value != form[FieldPassword] {
		return []string{"パスワードが一致しません。"}
	}
	return nil
}
