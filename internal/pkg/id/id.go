package id

import (
	"github.com/google/uuid"
)

// New 生成新的 UUID 字符串
func New() string {
	return uuid.NewString()
}
