package scoring

import (
	"strings"

	"career-agent-go/internal/types"
)

// CareerPath 职业路径预测结果
type CareerPath struct {
	CurrentLevel string   `json:"current_level"`
	NextRoles    []string `json:"next_roles"`
	Timeline     string   `json:"timeline"`
	FocusSkills  []string `json:"focus_skills,omitempty"`
}

// 职级检测按从高到低的顺序扫描头衔关键词
var levelRules = []struct {
	level    string
	keywords []string
}{
	{"executive", []string{"cto", "vp", "director", "总监", "副总裁"}},
	{"manager", []string{"manager", "lead", "head", "经理", "主管", "负责人"}},
	{"staff", []string{"staff", "principal", "architect", "专家", "架构师"}},
	{"senior", []string{"senior", "sr.", "资深", "高级"}},
	{"mid", []string{"engineer", "developer", "analyst", "工程师", "开发"}},
}

// 每个职级的典型下一步
var nextRolesByLevel = map[string][]string{
	"junior":    {"Mid-level Engineer", "Specialist"},
	"mid":       {"Senior Engineer", "Tech Lead"},
	"senior":    {"Staff Engineer", "Engineering Manager"},
	"staff":     {"Principal Engineer", "Engineering Manager"},
	"manager":   {"Senior Manager", "Director"},
	"executive": {"VP of Engineering", "CTO"},
}

var timelineByLevel = map[string]string{
	"junior":    "2-3年",
	"mid":       "2-4年",
	"senior":    "3-5年",
	"staff":     "3-5年",
	"manager":   "3-6年",
	"executive": "5年以上",
}

// PredictCareerPath 基于头衔和经历段数的确定性路径预测。
// LLM版本的路径代理失败时也用它兜底。
func PredictCareerPath(p *types.Persona) *CareerPath {
	level := detectLevel(p)

	path := &CareerPath{
		CurrentLevel: level,
		NextRoles:    nextRolesByLevel[level],
		Timeline:     timelineByLevel[level],
	}

	// 经历多而技能清单短时提示补充技能
	if len(p.Experience) >= 2 && len(p.Skills) < 5 {
		path.FocusSkills = append(path.FocusSkills, "完善技能清单以获得更准确的路径建议")
	}
	for _, goal := range p.Goals {
		path.FocusSkills = append(path.FocusSkills, "对齐目标: "+goal)
	}
	return path
}

func detectLevel(p *types.Persona) string {
	title := strings.ToLower(p.Title)
	for _, rule := range levelRules {
		for _, kw := range rule.keywords {
			if strings.Contains(title, kw) {
				// mid级别但经历很少时降为junior
				if rule.level == "mid" && len(p.Experience) <= 1 {
					return "junior"
				}
				return rule.level
			}
		}
	}
	if len(p.Experience) >= 3 {
		return "senior"
	}
	if len(p.Experience) >= 1 {
		return "mid"
	}
	return "junior"
}
