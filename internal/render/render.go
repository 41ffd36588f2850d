package render

import (
	"errors"
	"strings"

	"career-agent-go/internal/constants"
	"career-agent-go/internal/types"
)

// ErrEmptyPersona 画像没有可渲染的内容
var ErrEmptyPersona = errors.New("画像为空，无法生成简历文档")

// 简历模板名称
const (
	TemplateProfessional = "professional"
	TemplateExecutive    = "executive"
	TemplateFresher      = "fresher"
)

// Options 渲染选项
type Options struct {
	// Template 模板名称，未知模板按professional处理
	Template string
	// Compact 紧凑模式，压缩要点和技能数量以适应单页
	Compact bool
}

// templateStyle 每个模板的视觉参数
type templateStyle struct {
	accentR, accentG, accentB int
	accentHex                 string
	nameSize                  float64
	headingSize               float64
}

var templateStyles = map[string]templateStyle{
	TemplateProfessional: {44, 62, 80, "2C3E50", 20, 13},
	TemplateExecutive:    {52, 44, 36, "342C24", 22, 14},
	TemplateFresher:      {22, 120, 104, "167868", 18, 12},
}

func styleFor(template string) templateStyle {
	if s, ok := templateStyles[strings.ToLower(strings.TrimSpace(template))]; ok {
		return s
	}
	return templateStyles[TemplateProfessional]
}

// prepare 校验画像并按需做紧凑裁剪，返回的副本可以安全修改
func prepare(p *types.Persona, opts Options) (*types.Persona, error) {
	if p == nil {
		return nil, ErrEmptyPersona
	}
	if p.FullName == "" && len(p.Experience) == 0 && len(p.Skills) == 0 {
		return nil, ErrEmptyPersona
	}

	out := *p
	if opts.Compact {
		out = compactPersona(out)
	}
	return &out, nil
}

// compactPersona 紧凑模式裁剪：限制技能数和每段经历的要点数
func compactPersona(p types.Persona) types.Persona {
	if len(p.Skills) > constants.CompactMaxSkills {
		p.Skills = p.Skills[:constants.CompactMaxSkills]
	}

	trimmed := make([]types.Experience, len(p.Experience))
	for i, exp := range p.Experience {
		if len(exp.Highlights) > constants.CompactMaxHighlights {
			exp.Highlights = exp.Highlights[:constants.CompactMaxHighlights]
		}
		trimmed[i] = exp
	}
	p.Experience = trimmed
	return p
}

// contactLine 联系方式拼成一行，空字段跳过
func contactLine(p *types.Persona) string {
	var parts []string
	for _, v := range []string{p.Email, p.Phone, p.Location} {
		if v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, " | ")
}

// experienceTitle 一段经历的标题行
func experienceTitle(exp types.Experience) string {
	title := exp.Role
	if exp.Company != "" {
		title += " @ " + exp.Company
	}
	if exp.Duration != "" {
		title += " (" + exp.Duration + ")"
	}
	return title
}

// educationLine 一条教育经历
func educationLine(edu types.Education) string {
	var parts []string
	for _, v := range []string{edu.Degree, edu.School, edu.Year} {
		if v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, ", ")
}
