package tracing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskPII(t *testing.T) {
	assert.Equal(t, "", MaskPII(""))
	assert.Equal(t, "*", MaskPII("a"))
	assert.Equal(t, "张*", MaskPII("张三"))
	assert.Equal(t, "王*明", MaskPII("王小明"))
	assert.Equal(t, "13*******78", MaskPII("13812345678"))
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "short", TruncateString("short", 10))

	long := "abcdefghijklmnopqrstuvwxyz"
	got := TruncateString(long, 11)
	assert.Contains(t, got, "...")
	assert.LessOrEqual(t, len([]rune(got)), 11)
}

func TestSafeAttributeValue(t *testing.T) {
	// 敏感字段名触发掩码
	masked := SafeAttributeValue("user_email", "myemail@example.com", DefaultMaxLength)
	assert.NotContains(t, masked, "myemail@example")
	assert.Contains(t, masked, "*")

	// 普通字段只做截断
	plain := SafeAttributeValue("query", "golang后端工程师", DefaultMaxLength)
	assert.Equal(t, "golang后端工程师", plain)
}
