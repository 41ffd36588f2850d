package parser

import (
	"regexp"
	"strings"

	"career-agent-go/internal/types"
)

var (
	emailRegex = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	phoneRegex = regexp.MustCompile(`\+?[0-9][0-9 \-()]{7,}[0-9]`)
)

// 段落标题到规范段名的映射，兼容简历和LinkedIn导出文本的常见写法
var sectionAliases = map[string]string{
	"about":      "summary",
	"summary":    "summary",
	"profile":    "summary",
	"skills":     "skills",
	"experience": "experience",
	"education":  "education",
}

// ParsePlaintextProfile 对粘贴的纯文本简历做启发式解析，生成画像草稿。
// 这是LLM解析不可用时的降级路径，只识别常见的段落标题，
// 无法归入任何段落的开头行按"姓名、头衔"处理。
func ParsePlaintextProfile(text string) types.ResumeParseResult {
	var result types.ResumeParseResult

	result.Email = emailRegex.FindString(text)
	result.Phone = phoneRegex.FindString(text)

	lines := strings.Split(text, "\n")
	section := ""
	headerLines := 0
	var summaryParts []string

	for _, rawLine := range lines {
		line := strings.TrimSpace(rawLine)
		if line == "" {
			continue
		}

		if name, ok := sectionAliases[normalizeHeader(line)]; ok {
			section = name
			continue
		}

		switch section {
		case "skills":
			result.Skills = append(result.Skills, splitSkillLine(line)...)
		case "summary":
			summaryParts = append(summaryParts, line)
		case "experience":
			if exp, ok := parseExperienceLine(line); ok {
				result.Experience = append(result.Experience, exp)
			} else if len(result.Experience) > 0 {
				last := &result.Experience[len(result.Experience)-1]
				last.Highlights = append(last.Highlights, strings.TrimLeft(line, "-•* \t"))
			}
		case "education":
			result.Education = append(result.Education, types.Education{Degree: line})
		default:
			// 段落标题之前的头两行按 姓名、头衔 处理
			if headerLines == 0 && !strings.Contains(line, "@") {
				result.FullName = line
				headerLines++
			} else if headerLines == 1 && !strings.Contains(line, "@") {
				result.Title = line
				headerLines++
			}
		}
	}

	result.Summary = strings.Join(summaryParts, " ")
	return result
}

func normalizeHeader(line string) string {
	h := strings.ToLower(strings.TrimRight(line, ":："))
	return strings.TrimSpace(h)
}

// 技能行支持逗号、顿号、竖线和中点分隔
func splitSkillLine(line string) []string {
	line = strings.TrimLeft(line, "-•* \t")
	parts := strings.FieldsFunc(line, func(r rune) bool {
		return r == ',' || r == '，' || r == '、' || r == '|' || r == '·' || r == ';'
	})
	var skills []string
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			skills = append(skills, s)
		}
	}
	return skills
}

// 形如 "软件工程师 @ 某公司 (2020-2023)" 或 "Engineer - Acme (2020)" 的行开启一段经历
func parseExperienceLine(line string) (types.Experience, bool) {
	for _, sep := range []string{" @ ", " at ", " - ", " – "} {
		if idx := strings.Index(line, sep); idx > 0 {
			exp := types.Experience{
				Role:    strings.TrimSpace(line[:idx]),
				Company: strings.TrimSpace(line[idx+len(sep):]),
			}
			// 括号内的时间段拆为Duration
			if open := strings.LastIndex(exp.Company, "("); open >= 0 {
				if close := strings.LastIndex(exp.Company, ")"); close > open {
					exp.Duration = strings.TrimSpace(exp.Company[open+1 : close])
					exp.Company = strings.TrimSpace(exp.Company[:open])
				}
			}
			return exp, true
		}
	}
	return types.Experience{}, false
}
