package scoring

import (
	"sort"
	"time"

	"career-agent-go/internal/constants"
	"career-agent-go/internal/types"
)

// Nudge 一条主动提醒
type Nudge struct {
	Type     string `json:"type"`
	Message  string `json:"message"`
	Priority int    `json:"priority"` // 数字越小优先级越高
}

// BuildNudges 对画像跑六项健康检查，按优先级排序后最多返回前五条。
// 所有检查都是确定性的，不依赖LLM。
func BuildNudges(p *types.Persona, now time.Time) []Nudge {
	var nudges []Nudge

	if p.Summary == "" {
		nudges = append(nudges, Nudge{
			Type:     "missing_summary",
			Message:  "画像还没有个人概述，补充一句话概述能显著提升简历的第一印象",
			Priority: 1,
		})
	}

	if len(p.Skills) < 5 {
		nudges = append(nudges, Nudge{
			Type:     "few_skills",
			Message:  "技能清单少于5项，补全技能能让匹配和差距分析更准确",
			Priority: 2,
		})
	}

	if len(p.Goals) == 0 {
		nudges = append(nudges, Nudge{
			Type:     "no_goals",
			Message:  "还没有设定职业目标，告诉我你的目标后可以获得针对性的路径规划",
			Priority: 3,
		})
	}

	if missingHighlights(p) {
		nudges = append(nudges, Nudge{
			Type:     "no_highlights",
			Message:  "部分工作经历缺少成果要点，为每段经历补充2-3条量化成果",
			Priority: 4,
		})
	}

	if !p.UpdatedAt.IsZero() && now.Sub(p.UpdatedAt) > 30*24*time.Hour {
		nudges = append(nudges, Nudge{
			Type:     "stale_profile",
			Message:  "画像已超过30天未更新，上传最新简历或聊聊最近的进展",
			Priority: 5,
		})
	}

	if len(p.JobPreferences) == 0 {
		nudges = append(nudges, Nudge{
			Type:     "no_preferences",
			Message:  "还没有记录求职偏好（地点、远程、行业），设置后职位匹配会更贴合",
			Priority: 6,
		})
	}

	sort.SliceStable(nudges, func(i, j int) bool {
		return nudges[i].Priority < nudges[j].Priority
	})
	if len(nudges) > constants.MaxNudges {
		nudges = nudges[:constants.MaxNudges]
	}
	return nudges
}

func missingHighlights(p *types.Persona) bool {
	if len(p.Experience) == 0 {
		return false
	}
	for _, exp := range p.Experience {
		if len(exp.Highlights) == 0 {
			return true
		}
	}
	return false
}
