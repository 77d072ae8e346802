package domain

import (
	"errors"
	"fmt"
	"strings"
)

// エラー分類。すべて errors.Is で判定します。
var (
	ErrValidation        = errors.New("validation error")
	ErrCameraUnavailable = errors.New("camera unavailable")
	ErrDecode            = errors.New("decode error")
	ErrCropRasterization = errors.New("crop rasterization error")
	ErrGeneration        = errors.New("generation failure")
)

// ErrValidation から派生するエラー。
var (
	ErrBusy           = fmt.Errorf("%w: a generation is already in progress", ErrValidation)
	ErrCoolingDown    = fmt.Errorf("%w: please wait before generating again", ErrValidation)
	ErrQuotaExhausted = fmt.Errorf("%w: daily generation limit reached", ErrValidation)
)

// UnknownErrorMessage は説明のないエラーに対して表示する文言です。
const UnknownErrorMessage = "An unknown error occurred."

// UserError はユーザーにそのまま表示できるメッセージを持つエラーです。
type UserError struct {
	Kind    error
	Message string
}

func (e *UserError) Error() string {
	return e.Message
}

func (e *UserError) Unwrap() error {
	return e.Kind
}

// NewUserError は分類 kind に属する表示用エラーを生成します。
func NewUserError(kind error, format string, args ...any) error {
	return &UserError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// UserMessage はエラーから利用者向けのメッセージを取り出します。
// UserError があればその文言を、なければエラー文字列を、空なら汎用文言を返します。
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var ue *UserError
	if errors.As(err, &ue) && strings.TrimSpace(ue.Message) != "" {
		return ue.Message
	}
	if msg := strings.TrimSpace(err.Error()); msg != "" {
		return msg
	}
	return UnknownErrorMessage
}
