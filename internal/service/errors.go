package service

import (
	"errors"
	"fmt"
)

// 对外暴露的错误类型，Handler 通过 errors.Is 映射状态码
var (
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrAppendFailed = errors.New("unable to create resource")
	ErrInternal     = errors.New("internal error")
)

func wrap(kind error, err error) error {
	return fmt.Errorf("%w: %v", kind, err)
}
