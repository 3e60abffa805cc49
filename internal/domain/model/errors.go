package model

import (
	"context"
	"errors"
	"fmt"
)

// TransientProviderError タイムアウト・5xx・レート制限など再試行可能な外部APIエラー
type TransientProviderError struct {
	Provider   string
	StatusCode int
	Err        error
}

func (e *TransientProviderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: 一時的なエラー (status: %d): %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: 一時的なエラー: %v", e.Provider, e.Err)
}

func (e *TransientProviderError) Unwrap() error { return e.Err }

// MalformedResponseError 想定外のレスポンス形式（JSON不正・AIテキスト解析不能など）
type MalformedResponseError struct {
	Provider string
	Err      error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("%s: レスポンスの形式が不正です: %v", e.Provider, e.Err)
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }

// ConfigurationError ネットワーク呼び出し前に検出される設定・入力エラー
type ConfigurationError struct {
	Field   string
	Message string
}

func (e *ConfigurationError) Error() string {
	return e.Field + ": " + e.Message
}

// NewTransientError TransientProviderError を生成
func NewTransientError(provider string, statusCode int, err error) error {
	return &TransientProviderError{Provider: provider, StatusCode: statusCode, Err: err}
}

// NewMalformedError MalformedResponseError を生成
func NewMalformedError(provider string, err error) error {
	return &MalformedResponseError{Provider: provider, Err: err}
}

// IsTransient 再試行すべきエラーか判定する
// 呼び出し単位のタイムアウト（DeadlineExceeded）も一時的エラーとして扱う
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var te *TransientProviderError
	if errors.As(err, &te) {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// IsMalformed レスポンス形式エラーか判定する
func IsMalformed(err error) bool {
	var me *MalformedResponseError
	return errors.As(err, &me)
}

// IsConfiguration 設定エラーか判定する
func IsConfiguration(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}
