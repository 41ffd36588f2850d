package parser

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestExtractJSONClean 纯JSON输入应与直接解析结果一致
func TestExtractJSONClean(t *testing.T) {
	raw := `{"agent": "resume", "score": 82.5, "tags": ["go", "redis"]}`

	got, err := ExtractJSON(raw)
	require.NoError(t, err)

	var direct, extracted map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &direct))
	require.NoError(t, json.Unmarshal(got, &extracted))
	assert.Equal(t, direct, extracted, "无包裹的合法JSON应等价于直接解析")
}

// TestExtractJSONFenced 围栏包裹的JSON应等价于先剥离围栏再解析
func TestExtractJSONFenced(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"json标注围栏", "```json\n{\"a\": 1}\n```"},
		{"无标注围栏", "```\n{\"a\": 1}\n```"},
		{"围栏前有说明文字", "好的，以下是结果：\n```json\n{\"a\": 1}\n```\n希望对你有帮助。"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ExtractJSON(tc.raw)
			require.NoError(t, err)

			var m map[string]any
			require.NoError(t, json.Unmarshal(got, &m))
			assert.Equal(t, float64(1), m["a"])
		})
	}
}

// TestExtractJSONTrailingComma 闭括号前的尾逗号应被修复
func TestExtractJSONTrailingComma(t *testing.T) {
	got, err := ExtractJSON(`{"a":1,}`)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(got, &m))
	assert.Equal(t, float64(1), m["a"])

	// 数组内的尾逗号
	got, err = ExtractJSON(`{"items": ["x", "y",], "n": 2,}`)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(got, &m))
	assert.Equal(t, float64(2), m["n"])
}

// TestExtractJSONLineComments //注释应被剥离且不误伤字符串内容
func TestExtractJSONLineComments(t *testing.T) {
	raw := "{\n  // 这是注释\n  \"url\": \"http://example.com\",\n  \"a\": 1\n}"

	got, err := ExtractJSON(raw)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(got, &m))
	assert.Equal(t, "http://example.com", m["url"], "字符串内的//不应被当作注释")
	assert.Equal(t, float64(1), m["a"])
}

// TestExtractJSONFailure 空输入或无JSON内容应返回ErrUnparseable而不是panic
func TestExtractJSONFailure(t *testing.T) {
	cases := []string{
		"",
		"   ",
		"这段话里没有任何结构化内容",
		"{broken json",
		"}{",
	}

	for _, raw := range cases {
		_, err := ExtractJSON(raw)
		require.Error(t, err, "输入: %q", raw)
		assert.ErrorIs(t, err, ErrUnparseable)
	}
}

// TestExtractJSONSurroundedByProse 前后夹杂说明文字时应取首{到末}的跨度
func TestExtractJSONSurroundedByProse(t *testing.T) {
	raw := `模型分析如下 {"has_update": true, "intent": "update_skills", "data": {"skills": ["Go"]}} 以上就是结论`

	var update struct {
		HasUpdate bool   `json:"has_update"`
		Intent    string `json:"intent"`
	}
	require.NoError(t, ExtractInto(raw, &update))
	assert.True(t, update.HasUpdate)
	assert.Equal(t, "update_skills", update.Intent)
}

// TestExtractJSONTopLevelArray 顶层数组（如面试题目清单）也应能提取
func TestExtractJSONTopLevelArray(t *testing.T) {
	var questions []string
	require.NoError(t, ExtractInto(`["问题一", "问题二"]`, &questions))
	assert.Equal(t, []string{"问题一", "问题二"}, questions)

	questions = nil
	require.NoError(t, ExtractInto("以下是题目：\n```json\n[\"q1\", \"q2\",]\n```", &questions))
	assert.Equal(t, []string{"q1", "q2"}, questions)
}

func TestExtractInto(t *testing.T) {
	var v struct {
		Score float64 `json:"score"`
	}
	require.NoError(t, ExtractInto("```json\n{\"score\": 77.5,}\n```", &v))
	assert.InDelta(t, 77.5, v.Score, 0.001)

	err := ExtractInto("没有JSON", &v)
	assert.ErrorIs(t, err, ErrUnparseable)
}
