package constants

// Redis Key 前缀和格式常量
// 使用统一的命名规范: app:{module}:{entity}:{unique_id}
const (
	// AppPrefix 是所有Redis Key的统一应用前缀
	AppPrefix = "app"

	// CacheModulePrefix 缓存模块
	CacheModulePrefix = "cache"
	// SessionModulePrefix 会话模块
	SessionModulePrefix = "session"
	// ChatModulePrefix 聊天模块
	ChatModulePrefix = "chat"
	// PersonaModulePrefix 用户画像模块
	PersonaModulePrefix = "persona"

	// EntityResponse 代理响应实体
	EntityResponse = "response"
	// EntityInterview 面试会话实体
	EntityInterview = "interview"
	// EntityTailor 简历定制会话实体
	EntityTailor = "tailor"
	// EntityHistory 聊天历史实体
	EntityHistory = "history"
	// EntityLock 分布式锁实体
	EntityLock = "lock"

	// KeyResponseCache 代理响应缓存 (STRING)
	// 格式: app:cache:response:{agent}:{queryMD5}
	KeyResponseCache = AppPrefix + ":" + CacheModulePrefix + ":" + EntityResponse + ":%s:%s"

	// KeyInterviewSession 面试会话 (STRING, JSON)
	// 格式: app:session:interview:{sessionID}
	KeyInterviewSession = AppPrefix + ":" + SessionModulePrefix + ":" + EntityInterview + ":%s"

	// KeyTailorSession 简历定制会话 (STRING, JSON)
	// 格式: app:session:tailor:{userID}:{timestamp}
	KeyTailorSession = AppPrefix + ":" + SessionModulePrefix + ":" + EntityTailor + ":%s:%s"

	// KeyTailorSessionPattern 按用户列出定制会话的匹配模式
	KeyTailorSessionPattern = AppPrefix + ":" + SessionModulePrefix + ":" + EntityTailor + ":%s:*"

	// KeyChatHistory 聊天历史 (LIST, 每项一条JSON消息)
	// 格式: app:chat:history:{sessionID}
	KeyChatHistory = AppPrefix + ":" + ChatModulePrefix + ":" + EntityHistory + ":%s"

	// KeyPersonaLock 简历解析分布式锁 (STRING)
	// 格式: app:persona:lock:{userID}
	KeyPersonaLock = AppPrefix + ":" + PersonaModulePrefix + ":" + EntityLock + ":%s"
)
