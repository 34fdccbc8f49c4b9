package common

import (
	"github.com/google/uuid"
)

// GenerateUUID 生成 UUID
func GenerateUUID() string {
	return uuid.New().String()
}

// Int64Ptr 取得 int64 指標
func Int64Ptr(v int64) *int64 {
	return &v
}

// SameID 比較兩個可為空的 ID
func SameID(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
