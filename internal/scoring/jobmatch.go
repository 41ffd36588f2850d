package scoring

import (
	"strings"

	"career-agent-go/internal/types"
)

// 职位匹配权重，总和为1
const (
	matchSkillsWeight     = 0.40
	matchExperienceWeight = 0.25
	matchEducationWeight  = 0.15
	matchLocationWeight   = 0.10
	matchSalaryWeight     = 0.10

	// 技能分内部：必备技能80%，加分技能20%
	requiredSkillShare  = 0.80
	preferredSkillShare = 0.20

	// 每段工作经历按2年估算
	yearsPerExperience = 2
)

// MatchScore 画像与职位的匹配评分结果
type MatchScore struct {
	TotalScore       float64            `json:"total_score"`
	ComponentScores  map[string]float64 `json:"component_scores"`
	MatchedRequired  []string           `json:"matched_required,omitempty"`
	MatchedPreferred []string           `json:"matched_preferred,omitempty"`
	MissingRequired  []string           `json:"missing_required,omitempty"`
	Notes            []string           `json:"notes,omitempty"`
}

// ScoreMatch 计算画像与职位的确定性匹配分
func ScoreMatch(p *types.Persona, job *types.JobSpec) *MatchScore {
	result := &MatchScore{
		ComponentScores: make(map[string]float64),
	}

	skillScore := scoreSkillMatch(p, job, result)
	expScore := scoreExperienceMatch(p, job, result)
	eduScore := scoreEducationMatch(p, job)
	locScore := scoreLocationMatch(p, job, result)
	salScore := scoreSalaryMatch(p, job, result)

	result.ComponentScores["skills"] = round1(skillScore)
	result.ComponentScores["experience"] = round1(expScore)
	result.ComponentScores["education"] = round1(eduScore)
	result.ComponentScores["location"] = round1(locScore)
	result.ComponentScores["salary"] = round1(salScore)

	result.TotalScore = round1(skillScore*matchSkillsWeight +
		expScore*matchExperienceWeight +
		eduScore*matchEducationWeight +
		locScore*matchLocationWeight +
		salScore*matchSalaryWeight)
	return result
}

func skillSet(skills []string) map[string]struct{} {
	set := make(map[string]struct{}, len(skills))
	for _, s := range skills {
		set[strings.ToLower(strings.TrimSpace(s))] = struct{}{}
	}
	return set
}

// coverage 返回目标技能的覆盖率以及命中/缺失清单
func coverage(have map[string]struct{}, want []string) (float64, []string, []string) {
	if len(want) == 0 {
		return 1.0, nil, nil
	}
	var matched, missing []string
	for _, w := range want {
		if _, ok := have[strings.ToLower(strings.TrimSpace(w))]; ok {
			matched = append(matched, w)
		} else {
			missing = append(missing, w)
		}
	}
	return float64(len(matched)) / float64(len(want)), matched, missing
}

func scoreSkillMatch(p *types.Persona, job *types.JobSpec, result *MatchScore) float64 {
	have := skillSet(p.Skills)

	reqCov, reqMatched, reqMissing := coverage(have, job.RequiredSkills)
	prefCov, prefMatched, _ := coverage(have, job.PreferredSkills)

	result.MatchedRequired = reqMatched
	result.MissingRequired = reqMissing
	result.MatchedPreferred = prefMatched

	return (reqCov*requiredSkillShare + prefCov*preferredSkillShare) * 100
}

// scoreExperienceMatch 按经历段数估算年限与职位要求对比
func scoreExperienceMatch(p *types.Persona, job *types.JobSpec, result *MatchScore) float64 {
	estimatedYears := len(p.Experience) * yearsPerExperience
	if job.MinYears <= 0 {
		return 100
	}
	if estimatedYears >= job.MinYears {
		return 100
	}
	result.Notes = append(result.Notes, "估算工作年限低于职位要求")
	return float64(estimatedYears) / float64(job.MinYears) * 100
}

func scoreEducationMatch(p *types.Persona, job *types.JobSpec) float64 {
	if job.Education == "" {
		return 100
	}
	if len(p.Education) == 0 {
		return 30
	}
	want := strings.ToLower(job.Education)
	for _, edu := range p.Education {
		if strings.Contains(strings.ToLower(edu.Degree), want) {
			return 100
		}
	}
	// 有教育经历但学位不匹配
	return 60
}

func scoreLocationMatch(p *types.Persona, job *types.JobSpec, result *MatchScore) float64 {
	if job.Remote || job.Location == "" {
		return 100
	}
	if p.Location == "" {
		result.Notes = append(result.Notes, "画像缺少所在地信息，地点分按中性处理")
		return 50
	}
	if strings.Contains(strings.ToLower(job.Location), strings.ToLower(p.Location)) ||
		strings.Contains(strings.ToLower(p.Location), strings.ToLower(job.Location)) {
		return 100
	}
	// 偏好远程时地点不匹配影响减半
	if strings.EqualFold(p.JobPreferences["remote"], "yes") {
		return 50
	}
	return 20
}

func scoreSalaryMatch(p *types.Persona, job *types.JobSpec, result *MatchScore) float64 {
	if job.SalaryMax <= 0 {
		return 100
	}
	expect := p.JobPreferences["min_salary"]
	if expect == "" {
		result.Notes = append(result.Notes, "画像缺少期望薪资，薪资分按中性处理")
		return 50
	}
	// 期望薪资只做量级比较，画像里存的是数字字符串
	var want int
	for _, r := range expect {
		if r < '0' || r > '9' {
			break
		}
		want = want*10 + int(r-'0')
	}
	if want == 0 {
		return 50
	}
	if want <= job.SalaryMax {
		return 100
	}
	return 30
}
