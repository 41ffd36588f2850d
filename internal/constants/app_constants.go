package constants

import "time"

const (
	// Application-level constants
	ServiceName = "career-agent-go"

	// ResponseCacheTTL 响应缓存过期时间
	ResponseCacheTTL = 24 * time.Hour
	// SessionTTL 面试/定制会话过期时间
	SessionTTL = 24 * time.Hour
	// ChatMemoryTTL 聊天记忆过期时间
	ChatMemoryTTL = 2 * time.Hour

	// MaxInterviewQuestions 单次模拟面试的问题上限
	MaxInterviewQuestions = 10
	// MaxNudges 单次返回的主动提醒上限
	MaxNudges = 5

	// CompactMaxHighlights 紧凑模式下每段经历保留的要点数
	CompactMaxHighlights = 2
	// CompactMaxSkills 紧凑模式下保留的技能数
	CompactMaxSkills = 8
)
