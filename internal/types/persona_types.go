package types

import "time"

// Persona 聚合的用户画像，按用户一个JSON文件持久化
// 除 UserID 外所有字段都可能缺失，下游消费方必须容忍空值
type Persona struct {
	UserID   string `json:"user_id"`
	FullName string `json:"full_name,omitempty"`
	Title    string `json:"title,omitempty"`
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Location string `json:"location,omitempty"`
	Summary  string `json:"summary,omitempty"`

	// Skills 大小写不敏感去重，保留首次出现的写法和顺序
	Skills     []string     `json:"skills,omitempty"`
	Experience []Experience `json:"experience,omitempty"`
	Education  []Education  `json:"education,omitempty"`
	Goals      []string     `json:"goals,omitempty"`

	// JobPreferences 偏好键值对，例如 {"remote": "yes", "industry": "fintech"}
	JobPreferences map[string]string `json:"job_preferences,omitempty"`

	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// Experience 一段工作经历
type Experience struct {
	Role       string   `json:"role"`
	Company    string   `json:"company"`
	Duration   string   `json:"duration,omitempty"`
	Highlights []string `json:"highlights,omitempty"`
}

// Education 一段教育经历
type Education struct {
	Degree string `json:"degree"`
	School string `json:"school"`
	Year   string `json:"year,omitempty"`
}

// ResumeParseResult LLM从简历文本中抽取出的结构化结果
// 字段与 Persona 对齐，缺失字段不覆盖已有画像
type ResumeParseResult struct {
	FullName   string       `json:"full_name,omitempty"`
	Title      string       `json:"title,omitempty"`
	Email      string       `json:"email,omitempty"`
	Phone      string       `json:"phone,omitempty"`
	Location   string       `json:"location,omitempty"`
	Summary    string       `json:"summary,omitempty"`
	Skills     []string     `json:"skills,omitempty"`
	Experience []Experience `json:"experience,omitempty"`
	Education  []Education  `json:"education,omitempty"`
}

// MemoryUpdate 记忆代理的唯一输出：本轮对话是否携带需要写回画像的事实
type MemoryUpdate struct {
	HasUpdate bool           `json:"has_update"`
	Intent    string         `json:"intent,omitempty"` // update_goals / update_skills / update_preferences
	Data      map[string]any `json:"data,omitempty"`
}

// TailorSession 一次简历定制会话，按时间戳命名持久化
type TailorSession struct {
	ID              string    `json:"id"`
	UserID          string    `json:"user_id"`
	JobDescription  string    `json:"job_description"`
	TailoredSummary string    `json:"tailored_summary"`
	Suggestions     []string  `json:"suggestions,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}
