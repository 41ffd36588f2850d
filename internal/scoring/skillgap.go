package scoring

import (
	"career-agent-go/internal/types"
)

// 就绪度权重：必备技能覆盖占70%，加分技能覆盖占30%
const (
	gapRequiredShare  = 0.70
	gapPreferredShare = 0.30
)

// SkillGap 技能差距分析结果
type SkillGap struct {
	ReadinessScore   float64  `json:"readiness_score"`
	MatchedRequired  []string `json:"matched_required,omitempty"`
	MissingRequired  []string `json:"missing_required,omitempty"`
	MatchedPreferred []string `json:"matched_preferred,omitempty"`
	MissingPreferred []string `json:"missing_preferred,omitempty"`
	Recommendations  []string `json:"recommendations,omitempty"`
}

// AnalyzeSkillGap 对比画像技能与目标职位要求，产出就绪度与缺口清单
func AnalyzeSkillGap(p *types.Persona, job *types.JobSpec) *SkillGap {
	have := skillSet(p.Skills)

	reqCov, reqMatched, reqMissing := coverage(have, job.RequiredSkills)
	prefCov, prefMatched, prefMissing := coverage(have, job.PreferredSkills)

	gap := &SkillGap{
		ReadinessScore:   round1((reqCov*gapRequiredShare + prefCov*gapPreferredShare) * 100),
		MatchedRequired:  reqMatched,
		MissingRequired:  reqMissing,
		MatchedPreferred: prefMatched,
		MissingPreferred: prefMissing,
	}

	// 补齐顺序：先必备后加分
	for _, s := range reqMissing {
		gap.Recommendations = append(gap.Recommendations, "优先补齐必备技能: "+s)
	}
	for _, s := range prefMissing {
		gap.Recommendations = append(gap.Recommendations, "视情况补充加分技能: "+s)
	}
	if len(reqMissing) == 0 && len(prefMissing) == 0 {
		gap.Recommendations = append(gap.Recommendations, "技能已完全覆盖该职位要求，可直接投递")
	}
	return gap
}
