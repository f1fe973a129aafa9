package model

import "fmt"

// ValidationError 入力検証の失敗。ストア呼び出しより前に検出される
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

// NotFoundError 指定されたキーのドキュメントがストアに存在しない
type NotFoundError struct {
	Key string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("feature not found: %s", e.Key)
}

// StoreUnavailableError 外部ストアへのネットワーク呼び出しが失敗した
type StoreUnavailableError struct {
	Op  string
	Err error
}

func (e *StoreUnavailableError) Error() string {
	return fmt.Sprintf("store unavailable during %s: %v", e.Op, e.Err)
}

func (e *StoreUnavailableError) Unwrap() error {
	return e.Err
}
