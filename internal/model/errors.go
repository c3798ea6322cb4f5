package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, tenant, conflict, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeAccountNotFound        = "ACCOUNT_NOT_FOUND"
	ErrCodeSectionNotFound        = "SECTION_NOT_FOUND"
	ErrCodeItemNotFound           = "ITEM_NOT_FOUND"
	ErrCodeUserNotFound           = "USER_NOT_FOUND"
	ErrCodeValidationFailed       = "VALIDATION_FAILED"
	ErrCodeAuthenticationRequired = "AUTHENTICATION_REQUIRED"
	ErrCodeAuthorizationDenied    = "AUTHORIZATION_DENIED"
	ErrCodeConflict               = "CONFLICT"
	ErrCodeProvisioningFailed     = "PROVISIONING_FAILED"
)

// NewAccountNotFoundError はアカウント未検出エラーを生成する。
func NewAccountNotFoundError(accountID string) *APIError {
	return &APIError{
		Code:     ErrCodeAccountNotFound,
		Message:  fmt.Sprintf("指定されたアカウントが見つかりません: %s", accountID),
		Category: "tenant",
		Action:   "アカウントIDを確認してください。",
	}
}

// NewSectionNotFoundError はセクション未検出エラーを生成する。
func NewSectionNotFoundError(slug string) *APIError {
	return &APIError{
		Code:     ErrCodeSectionNotFound,
		Message:  fmt.Sprintf("指定されたセクションが見つかりません: %s", slug),
		Category: "tenant",
		Action:   "セクションのスラグを確認してください。",
	}
}

// NewItemNotFoundError はアイテム未検出エラーを生成する。
// テナントバインディング下で不可視の行と実在しない行は意図的に区別しない。
func NewItemNotFoundError(itemID string) *APIError {
	return &APIError{
		Code:     ErrCodeItemNotFound,
		Message:  fmt.Sprintf("指定されたアイテムが見つかりません: %s", itemID),
		Category: "tenant",
		Action:   "アイテムIDを確認してください。",
	}
}

// NewUserNotFoundError はユーザー未検出エラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: "auth",
		Action:   "ユーザーIDを確認してください。",
	}
}

// NewValidationError は入力検証エラーを生成する。
func NewValidationError(message string) *APIError {
	return &APIError{
		Code:     ErrCodeValidationFailed,
		Message:  message,
		Category: "validation",
		Action:   "リクエスト内容を修正して再度お試しください。",
	}
}

// NewAuthenticationRequiredError は未認証エラーを生成する。
func NewAuthenticationRequiredError() *APIError {
	return &APIError{
		Code:     ErrCodeAuthenticationRequired,
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインしてください。",
	}
}

// NewInvalidCredentialsError は認証情報不一致エラーを生成する。
// 存在しないメールアドレスとパスワード不一致は意図的に区別しない。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeAuthenticationRequired,
		Message:  "メールアドレスまたはパスワードが正しくありません。",
		Category: "auth",
		Action:   "認証情報を確認して再度お試しください。",
	}
}

// NewAuthorizationDeniedError は権限不足エラーを生成する。
// 認証済みだが操作に必要な権限を持たない場合に使用する。
func NewAuthorizationDeniedError(message string) *APIError {
	return &APIError{
		Code:     ErrCodeAuthorizationDenied,
		Message:  message,
		Category: "auth",
		Action:   "必要な権限を持つユーザーで操作してください。",
	}
}

// NewConflictError は一意制約違反などの競合エラーを生成する。
func NewConflictError(message string) *APIError {
	return &APIError{
		Code:     ErrCodeConflict,
		Message:  message,
		Category: "conflict",
		Action:   "既存のデータと重複しない内容で再度お試しください。",
	}
}

// NewProvisioningFailedError はテナントスキーマのプロビジョニング失敗エラーを生成する。
// 呼び出し元のトランザクションはロールバックされ、アカウント作成は成立しない。
func NewProvisioningFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeProvisioningFailed,
		Message:  "テナントスキーマの作成に失敗しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}
