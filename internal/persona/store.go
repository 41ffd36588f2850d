package persona

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"career-agent-go/internal/logger"
	"career-agent-go/internal/types"
)

// ErrNotFound 指定用户还没有画像文件，应映射为4xx错误
var ErrNotFound = errors.New("用户画像不存在")

// 记忆代理可触发的三种写回意图
const (
	IntentUpdateGoals       = "update_goals"
	IntentUpdateSkills      = "update_skills"
	IntentUpdatePreferences = "update_preferences"
)

// MutationHook 画像成功落盘后的回调，用于向外部画像服务投递同步事件。
// 回调失败只记日志，不影响本次写入。
type MutationHook func(p *types.Persona)

// Store 按用户一个JSON文件维护聚合画像。
// 写入为全量覆盖，最后写者胜出，不做跨请求的并发控制。
type Store struct {
	dataDir          string
	maxContextSkills int
	maxContextRoles  int
	onMutation       MutationHook
}

// StoreOption Store的配置选项
type StoreOption func(*Store)

// WithMutationHook 配置画像变更回调
func WithMutationHook(hook MutationHook) StoreOption {
	return func(s *Store) {
		s.onMutation = hook
	}
}

// WithContextLimits 配置注入提示词的技能与经历条数上限
func WithContextLimits(maxSkills, maxRoles int) StoreOption {
	return func(s *Store) {
		if maxSkills > 0 {
			s.maxContextSkills = maxSkills
		}
		if maxRoles > 0 {
			s.maxContextRoles = maxRoles
		}
	}
}

// NewStore 创建画像存储，数据目录不存在时自动创建
func NewStore(dataDir string, options ...StoreOption) (*Store, error) {
	if dataDir == "" {
		return nil, fmt.Errorf("画像数据目录不能为空")
	}
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("创建画像数据目录失败: %w", err)
	}

	s := &Store{
		dataDir:          dataDir,
		maxContextSkills: 20,
		maxContextRoles:  3,
	}
	for _, option := range options {
		option(s)
	}
	return s, nil
}

func (s *Store) path(userID string) string {
	// 文件名只保留安全字符，避免路径穿越
	safe := strings.Map(func(r rune) rune {
		if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '-' || r == '_' {
			return r
		}
		return '_'
	}, userID)
	return filepath.Join(s.dataDir, safe+".json")
}

// Get 读取用户画像
func (s *Store) Get(userID string) (*types.Persona, error) {
	data, err := os.ReadFile(s.path(userID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, userID)
		}
		return nil, fmt.Errorf("读取画像文件失败: %w", err)
	}

	var p types.Persona
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("画像文件损坏: %w", err)
	}
	if p.UserID == "" {
		p.UserID = userID
	}
	return &p, nil
}

// getOrCreate 不存在时返回空画像
func (s *Store) getOrCreate(userID string) *types.Persona {
	p, err := s.Get(userID)
	if err != nil {
		return &types.Persona{UserID: userID}
	}
	return p
}

// save 写穿到磁盘并触发变更回调
func (s *Store) save(p *types.Persona) error {
	p.UpdatedAt = time.Now()

	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("序列化画像失败: %w", err)
	}
	if err := os.WriteFile(s.path(p.UserID), data, 0644); err != nil {
		return fmt.Errorf("写入画像文件失败: %w", err)
	}

	if s.onMutation != nil {
		s.onMutation(p)
	}
	return nil
}

// IngestResume 用简历解析结果更新画像：
// 身份、经历、教育字段有值即覆盖，技能做大小写不敏感并集。
func (s *Store) IngestResume(userID string, parsed *types.ResumeParseResult) (*types.Persona, error) {
	p := s.getOrCreate(userID)

	if parsed.FullName != "" {
		p.FullName = parsed.FullName
	}
	if parsed.Title != "" {
		p.Title = parsed.Title
	}
	if parsed.Email != "" {
		p.Email = parsed.Email
	}
	if parsed.Phone != "" {
		p.Phone = parsed.Phone
	}
	if parsed.Location != "" {
		p.Location = parsed.Location
	}
	if parsed.Summary != "" {
		p.Summary = parsed.Summary
	}
	if len(parsed.Experience) > 0 {
		p.Experience = parsed.Experience
	}
	if len(parsed.Education) > 0 {
		p.Education = parsed.Education
	}
	p.Skills = unionSkills(p.Skills, parsed.Skills)

	if err := s.save(p); err != nil {
		return nil, err
	}
	logger.Info().Str("user_id", userID).Int("skills", len(p.Skills)).Msg("简历已合并进用户画像")
	return p, nil
}

// UpdateFromChat 按记忆代理给出的意图写回聊天中出现的事实。
// update_goals/update_skills 做并集，update_preferences 做浅覆盖，
// 未知意图忽略。
func (s *Store) UpdateFromChat(userID string, intent string, data map[string]any) (*types.Persona, error) {
	p := s.getOrCreate(userID)

	switch intent {
	case IntentUpdateGoals:
		p.Goals = unionSkills(p.Goals, stringSlice(data["goals"]))
	case IntentUpdateSkills:
		p.Skills = unionSkills(p.Skills, stringSlice(data["skills"]))
	case IntentUpdatePreferences:
		if p.JobPreferences == nil {
			p.JobPreferences = make(map[string]string)
		}
		for k, v := range data {
			if str, ok := v.(string); ok {
				p.JobPreferences[k] = str
			}
		}
	default:
		logger.Debug().Str("intent", intent).Msg("未知的画像更新意图，忽略")
		return p, nil
	}

	if err := s.save(p); err != nil {
		return nil, err
	}
	return p, nil
}

// Merge 手动编辑入口：非零字段浅覆盖，技能并集
func (s *Store) Merge(userID string, update *types.Persona) (*types.Persona, error) {
	p := s.getOrCreate(userID)

	if update.FullName != "" {
		p.FullName = update.FullName
	}
	if update.Title != "" {
		p.Title = update.Title
	}
	if update.Email != "" {
		p.Email = update.Email
	}
	if update.Phone != "" {
		p.Phone = update.Phone
	}
	if update.Location != "" {
		p.Location = update.Location
	}
	if update.Summary != "" {
		p.Summary = update.Summary
	}
	if len(update.Experience) > 0 {
		p.Experience = update.Experience
	}
	if len(update.Education) > 0 {
		p.Education = update.Education
	}
	if len(update.Goals) > 0 {
		p.Goals = unionSkills(p.Goals, update.Goals)
	}
	p.Skills = unionSkills(p.Skills, update.Skills)
	for k, v := range update.JobPreferences {
		if p.JobPreferences == nil {
			p.JobPreferences = make(map[string]string)
		}
		p.JobPreferences[k] = v
	}

	if err := s.save(p); err != nil {
		return nil, err
	}
	return p, nil
}

// ContextForLLM 渲染有界长度的画像摘要，供下游提示词使用。
// 技能取前N个，经历取前M段，刻意截断以控制提示词长度。
func (s *Store) ContextForLLM(userID string) string {
	p, err := s.Get(userID)
	if err != nil {
		return "（该用户还没有画像信息）"
	}

	var sb strings.Builder
	if p.FullName != "" {
		sb.WriteString("姓名: " + p.FullName + "\n")
	}
	if p.Title != "" {
		sb.WriteString("头衔: " + p.Title + "\n")
	}
	if p.Location != "" {
		sb.WriteString("所在地: " + p.Location + "\n")
	}
	if p.Summary != "" {
		sb.WriteString("概述: " + p.Summary + "\n")
	}

	if len(p.Skills) > 0 {
		skills := p.Skills
		if len(skills) > s.maxContextSkills {
			skills = skills[:s.maxContextSkills]
		}
		sb.WriteString("技能: " + strings.Join(skills, ", ") + "\n")
	}

	if len(p.Experience) > 0 {
		sb.WriteString("工作经历:\n")
		roles := p.Experience
		if len(roles) > s.maxContextRoles {
			roles = roles[:s.maxContextRoles]
		}
		for _, exp := range roles {
			sb.WriteString(fmt.Sprintf("- %s @ %s (%s)\n", exp.Role, exp.Company, exp.Duration))
		}
	}

	if len(p.Goals) > 0 {
		sb.WriteString("职业目标: " + strings.Join(p.Goals, "; ") + "\n")
	}
	if len(p.JobPreferences) > 0 {
		keys := make([]string, 0, len(p.JobPreferences))
		for k := range p.JobPreferences {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var prefs []string
		for _, k := range keys {
			prefs = append(prefs, k+"="+p.JobPreferences[k])
		}
		sb.WriteString("求职偏好: " + strings.Join(prefs, ", ") + "\n")
	}

	return sb.String()
}

// List 返回所有已有画像的用户ID
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dataDir)
	if err != nil {
		return nil, fmt.Errorf("读取画像数据目录失败: %w", err)
	}
	var users []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		users = append(users, strings.TrimSuffix(e.Name(), ".json"))
	}
	return users, nil
}

// unionSkills 大小写不敏感并集，保留首次出现的写法与顺序
func unionSkills(existing, incoming []string) []string {
	seen := make(map[string]struct{}, len(existing))
	result := make([]string, 0, len(existing)+len(incoming))
	for _, s := range existing {
		key := strings.ToLower(strings.TrimSpace(s))
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		result = append(result, s)
	}
	for _, s := range incoming {
		trimmed := strings.TrimSpace(s)
		key := strings.ToLower(trimmed)
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		result = append(result, trimmed)
	}
	return result
}

// stringSlice 把记忆代理返回的松散JSON值转成字符串切片
func stringSlice(v any) []string {
	switch vv := v.(type) {
	case []string:
		return vv
	case []any:
		var out []string
		for _, item := range vv {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		if vv == "" {
			return nil
		}
		return []string{vv}
	default:
		return nil
	}
}
