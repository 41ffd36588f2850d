package types

// ChatTurn 单轮对话消息，仅在当前请求的消息列表中存活
type ChatTurn struct {
	Role    string `json:"role"` // user / assistant / system
	Content string `json:"content"`
}

// ChatRequest 同步与流式聊天共用的请求体
type ChatRequest struct {
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id,omitempty"`
	Message   string `json:"message"`
}

// ChatResponse 同步聊天的响应体
type ChatResponse struct {
	Agent     string `json:"agent"`
	Reply     string `json:"reply"`
	Cached    bool   `json:"cached"`
	SessionID string `json:"session_id,omitempty"`
}

// JobSpec 一个职位描述的结构化视图，用于匹配与差距分析
type JobSpec struct {
	Title           string   `json:"title"`
	Company         string   `json:"company,omitempty"`
	Description     string   `json:"description,omitempty"`
	RequiredSkills  []string `json:"required_skills,omitempty"`
	PreferredSkills []string `json:"preferred_skills,omitempty"`
	MinYears        int      `json:"min_years,omitempty"`
	Education       string   `json:"education,omitempty"`
	Location        string   `json:"location,omitempty"`
	Remote          bool     `json:"remote,omitempty"`
	SalaryMin       int      `json:"salary_min,omitempty"`
	SalaryMax       int      `json:"salary_max,omitempty"`
}
