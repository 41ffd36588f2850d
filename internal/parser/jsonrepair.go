package parser

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrUnparseable 表示LLM输出经过全部修复手段后仍无法解析为JSON。
// 调用方负责用各自场景的兜底对象替代，不允许把该错误抛到端点层之外。
var ErrUnparseable = errors.New("LLM输出无法解析为JSON")

var (
	fencedJSONRegex    = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")
	trailingCommaRegex = regexp.MustCompile(`,(\s*[}\]])`)
)

// ExtractJSON 从LLM的自由文本回复中提取一个JSON值（对象或数组）。
// 处理顺序：
//  1. 如果存在markdown代码围栏，取第一对围栏之间的内容
//  2. 截取首个'{'到最后一个'}'之间的子串作为候选，
//     没有对象时退而截取首个'['到最后一个']'
//  3. 严格解析；失败后剥离//注释、删除闭括号前的尾逗号再解析
//  4. 仍失败返回 ErrUnparseable
//
// 当文本中存在多个独立JSON对象时，只取首'{'到末'}'的最大跨度，
// 跨度内夹杂无关内容会导致解析失败，这一歧义保留原样不做猜测。
func ExtractJSON(raw string) (json.RawMessage, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return nil, fmt.Errorf("输入为空: %w", ErrUnparseable)
	}

	// 第一步：剥离markdown围栏
	if m := fencedJSONRegex.FindStringSubmatch(text); m != nil {
		text = strings.TrimSpace(m[1])
	}

	// 第二步：先找对象跨度，再找数组跨度
	found := false
	for _, pair := range [][2]string{{"{", "}"}, {"[", "]"}} {
		start := strings.Index(text, pair[0])
		end := strings.LastIndex(text, pair[1])
		if start == -1 || end == -1 || end < start {
			continue
		}
		found = true
		candidate := text[start : end+1]

		// 第三步：严格解析
		if valid(candidate) {
			return json.RawMessage(candidate), nil
		}

		// 修复后再解析
		repaired := repairJSON(candidate)
		if valid(repaired) {
			return json.RawMessage(repaired), nil
		}
	}

	if !found {
		return nil, fmt.Errorf("文本中不存在JSON值: %w", ErrUnparseable)
	}
	return nil, fmt.Errorf("修复后仍无法解析: %w", ErrUnparseable)
}

// ExtractInto 提取JSON并反序列化到目标结构
func ExtractInto(raw string, v any) error {
	data, err := ExtractJSON(raw)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("反序列化到目标结构失败: %w", ErrUnparseable)
	}
	return nil
}

func valid(candidate string) bool {
	var v any
	return json.Unmarshal([]byte(candidate), &v) == nil
}

// repairJSON 对候选串做两类修复：剥离//注释、删除闭括号前的尾逗号。
// 注释剥离逐字符扫描并跟踪字符串状态，避免误伤值里的"http://"。
func repairJSON(candidate string) string {
	stripped := stripLineComments(candidate)
	return trailingCommaRegex.ReplaceAllString(stripped, "$1")
}

func stripLineComments(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			b.WriteByte(c)
			if escaped {
				escaped = false
			} else if c == '\\' {
				escaped = true
			} else if c == '"' {
				inString = false
			}
			continue
		}
		if c == '"' {
			inString = true
			b.WriteByte(c)
			continue
		}
		if c == '/' && i+1 < len(s) && s[i+1] == '/' {
			// 跳到行尾
			for i < len(s) && s[i] != '\n' {
				i++
			}
			if i < len(s) {
				b.WriteByte('\n')
			}
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}
