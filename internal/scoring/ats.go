package scoring

import (
	"regexp"
	"strings"
)

// ATS评分权重，总和为1
const (
	atsKeywordWeight    = 0.30
	atsFormattingWeight = 0.25
	atsSectionsWeight   = 0.25
	atsContentWeight    = 0.20

	// 总分达到该阈值视为ATS友好
	atsFriendlyThreshold = 75.0
)

// 段落检查中必要段占70%，可选段占30%
var (
	atsRequiredSections = []string{"contact", "experience", "education", "skills"}
	atsOptionalSections = []string{"summary", "certifications", "projects"}
)

// 各段落的识别关键词（中英文标题都算）
var sectionMarkers = map[string][]string{
	"experience":     {"experience", "employment", "work history", "工作经历", "工作经验"},
	"education":      {"education", "academic", "教育经历", "教育背景"},
	"skills":         {"skills", "technologies", "competencies", "技能"},
	"summary":        {"summary", "about", "profile", "objective", "概述", "简介"},
	"certifications": {"certification", "certificate", "license", "证书", "认证"},
	"projects":       {"project", "portfolio", "项目"},
}

var (
	atsEmailRegex  = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	atsPhoneRegex  = regexp.MustCompile(`\+?[0-9][0-9 \-()]{7,}[0-9]`)
	atsNumberRegex = regexp.MustCompile(`[0-9]+%?`)
	wordRegex      = regexp.MustCompile(`[a-zA-Z][a-zA-Z+#.\-]{1,}`)
)

// 内容质量检查用的行为动词表
var actionVerbs = []string{
	"led", "built", "designed", "implemented", "improved", "reduced", "increased",
	"launched", "delivered", "optimized", "managed", "created", "developed",
	"负责", "主导", "搭建", "设计", "实现", "优化", "提升", "降低", "交付",
}

// ATSScore 一次委托跟踪系统兼容性评分的完整结果
type ATSScore struct {
	TotalScore      float64            `json:"total_score"`
	ATSFriendly     bool               `json:"ats_friendly"`
	ComponentScores map[string]float64 `json:"component_scores"`
	MatchedKeywords []string           `json:"matched_keywords,omitempty"`
	MissingKeywords []string           `json:"missing_keywords,omitempty"`
	Issues          []string           `json:"issues,omitempty"`
	Recommendations []string           `json:"recommendations,omitempty"`
}

// ScoreATS 对简历文本做确定性的ATS兼容性评分。
// jobDescription可以为空，此时关键词分按满分处理（没有对照目标）。
func ScoreATS(resumeText, jobDescription string) *ATSScore {
	result := &ATSScore{
		ComponentScores: make(map[string]float64),
	}

	keywordScore := 100.0
	if strings.TrimSpace(jobDescription) != "" {
		keywordScore = scoreKeywords(resumeText, jobDescription, result)
	}
	formattingScore := scoreFormatting(resumeText, result)
	sectionScore := scoreSections(resumeText, result)
	contentScore := scoreContent(resumeText, result)

	result.ComponentScores["keyword_match"] = round1(keywordScore)
	result.ComponentScores["formatting"] = round1(formattingScore)
	result.ComponentScores["sections"] = round1(sectionScore)
	result.ComponentScores["content_quality"] = round1(contentScore)

	result.TotalScore = round1(keywordScore*atsKeywordWeight +
		formattingScore*atsFormattingWeight +
		sectionScore*atsSectionsWeight +
		contentScore*atsContentWeight)
	result.ATSFriendly = result.TotalScore >= atsFriendlyThreshold

	return result
}

// scoreKeywords 计算职位描述关键词在简历中的覆盖率
func scoreKeywords(resumeText, jobDescription string, result *ATSScore) float64 {
	resumeLower := strings.ToLower(resumeText)
	keywords := extractKeywords(jobDescription)
	if len(keywords) == 0 {
		return 100
	}

	matched := 0
	for _, kw := range keywords {
		if strings.Contains(resumeLower, kw) {
			matched++
			result.MatchedKeywords = append(result.MatchedKeywords, kw)
		} else {
			result.MissingKeywords = append(result.MissingKeywords, kw)
		}
	}

	score := float64(matched) / float64(len(keywords)) * 100
	if score < 60 {
		result.Issues = append(result.Issues, "职位描述中的多数关键词未出现在简历里")
		result.Recommendations = append(result.Recommendations, "把职位描述中的关键技能词自然地写进经历描述")
	}
	return score
}

// scoreFormatting 纯文本层面的格式检查：联系方式、要点符号、长度、特殊字符
func scoreFormatting(resumeText string, result *ATSScore) float64 {
	score := 100.0

	if !atsEmailRegex.MatchString(resumeText) {
		score -= 25
		result.Issues = append(result.Issues, "未检测到邮箱")
		result.Recommendations = append(result.Recommendations, "在简历顶部写明邮箱")
	}
	if !atsPhoneRegex.MatchString(resumeText) {
		score -= 15
		result.Issues = append(result.Issues, "未检测到电话")
	}
	if !strings.ContainsAny(resumeText, "-•*") {
		score -= 15
		result.Issues = append(result.Issues, "未使用要点符号组织内容")
		result.Recommendations = append(result.Recommendations, "用短要点列出每段经历的成果")
	}

	length := len([]rune(resumeText))
	if length < 300 {
		score -= 20
		result.Issues = append(result.Issues, "简历内容过短")
	} else if length > 12000 {
		score -= 10
		result.Issues = append(result.Issues, "简历内容过长，建议压缩到两页以内")
	}

	if score < 0 {
		score = 0
	}
	return score
}

// scoreSections 必要段70% + 可选段30%
func scoreSections(resumeText string, result *ATSScore) float64 {
	lower := strings.ToLower(resumeText)

	foundRequired := 0
	for _, section := range atsRequiredSections {
		if section == "contact" {
			// 联系方式按邮箱或电话存在判定
			if atsEmailRegex.MatchString(resumeText) || atsPhoneRegex.MatchString(resumeText) {
				foundRequired++
			} else {
				result.Issues = append(result.Issues, "缺少联系方式")
			}
			continue
		}
		if hasSection(lower, section) {
			foundRequired++
		} else {
			result.Issues = append(result.Issues, "缺少段落: "+section)
			result.Recommendations = append(result.Recommendations, "补充 "+section+" 段落")
		}
	}

	foundOptional := 0
	for _, section := range atsOptionalSections {
		if hasSection(lower, section) {
			foundOptional++
		}
	}

	return float64(foundRequired)/float64(len(atsRequiredSections))*70 +
		float64(foundOptional)/float64(len(atsOptionalSections))*30
}

func hasSection(lowerText, section string) bool {
	for _, marker := range sectionMarkers[section] {
		if strings.Contains(lowerText, marker) {
			return true
		}
	}
	return false
}

// scoreContent 行为动词与量化结果的使用情况
func scoreContent(resumeText string, result *ATSScore) float64 {
	lower := strings.ToLower(resumeText)
	score := 40.0

	verbHits := 0
	for _, verb := range actionVerbs {
		if strings.Contains(lower, verb) {
			verbHits++
		}
	}
	switch {
	case verbHits >= 5:
		score += 30
	case verbHits >= 2:
		score += 20
	case verbHits >= 1:
		score += 10
	default:
		result.Recommendations = append(result.Recommendations, "用行为动词开头描述每段经历")
	}

	numbers := atsNumberRegex.FindAllString(resumeText, -1)
	switch {
	case len(numbers) >= 6:
		score += 30
	case len(numbers) >= 3:
		score += 20
	case len(numbers) >= 1:
		score += 10
	default:
		result.Issues = append(result.Issues, "经历描述缺少量化结果")
		result.Recommendations = append(result.Recommendations, "为成果补充数字（百分比、规模、时长）")
	}

	if score > 100 {
		score = 100
	}
	return score
}

// extractKeywords 从职位描述中抽取候选关键词：
// 去掉常见停用词后按词频取前20个
func extractKeywords(jobDescription string) []string {
	words := wordRegex.FindAllString(strings.ToLower(jobDescription), -1)
	freq := make(map[string]int)
	var order []string
	for _, w := range words {
		if len(w) < 3 || isStopWord(w) {
			continue
		}
		if freq[w] == 0 {
			order = append(order, w)
		}
		freq[w]++
	}

	if len(order) > 20 {
		order = order[:20]
	}
	return order
}

var stopWords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "with": {}, "you": {}, "will": {}, "are": {},
	"our": {}, "have": {}, "this": {}, "that": {}, "from": {}, "your": {}, "work": {},
	"team": {}, "who": {}, "what": {}, "all": {}, "can": {}, "has": {}, "not": {},
	"about": {}, "role": {}, "job": {}, "join": {}, "years": {}, "experience": {},
	"strong": {}, "ability": {}, "skills": {}, "required": {}, "preferred": {},
}

func isStopWord(w string) bool {
	_, ok := stopWords[w]
	return ok
}

func round1(v float64) float64 {
	return float64(int(v*10+0.5)) / 10
}
