package domain

import (
	"errors"
	"fmt"
)

var (
	ErrPermission      = errors.New("permission denied")
	ErrInvalidState    = errors.New("invalid state for this operation")
	ErrNotFound        = errors.New("not found")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrUpstream        = errors.New("upstream unavailable")
	ErrDuplicate       = errors.New("duplicate record")
)

// ValidationError 字段级校验失败，可直接展示给调用方
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func Invalid(field, msg string) error { return &ValidationError{Field: field, Message: msg} }

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// Upstream 包装存储/身份服务的错误；保留原始错误链
func Upstream(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", op, ErrUpstream, err)
}
