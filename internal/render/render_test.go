package render

import (
	"testing"

	"career-agent-go/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func renderPersona() *types.Persona {
	return &types.Persona{
		UserID:   "u1",
		FullName: "Jane Doe",
		Title:    "Senior Backend Engineer",
		Email:    "jane@example.com",
		Phone:    "+1 415 555 0199",
		Location: "Shanghai",
		Summary:  "Backend engineer with 6 years of experience.",
		Skills:   []string{"Go", "Python", "Docker", "Kubernetes", "Redis", "MySQL", "Kafka", "gRPC", "Terraform", "Linux"},
		Experience: []types.Experience{
			{
				Role:       "Senior Engineer",
				Company:    "Acme",
				Duration:   "2020-2024",
				Highlights: []string{"Led migration", "Reduced costs", "Mentored juniors", "Shipped v2"},
			},
		},
		Education: []types.Education{
			{Degree: "B.S. Computer Science", School: "State University", Year: "2017"},
		},
	}
}

func TestRenderPDF(t *testing.T) {
	for _, template := range []string{TemplateProfessional, TemplateExecutive, TemplateFresher, "unknown"} {
		data, err := RenderPDF(renderPersona(), Options{Template: template})
		require.NoError(t, err, "模板: %s", template)
		require.NotEmpty(t, data)
		assert.Equal(t, "%PDF", string(data[:4]), "输出应是合法PDF文件头")
	}
}

func TestRenderDOCX(t *testing.T) {
	data, err := RenderDOCX(renderPersona(), Options{Template: TemplateExecutive})
	require.NoError(t, err)
	require.NotEmpty(t, data)
	// docx是zip容器
	assert.Equal(t, "PK", string(data[:2]))
}

func TestRenderEmptyPersona(t *testing.T) {
	_, err := RenderPDF(nil, Options{})
	assert.ErrorIs(t, err, ErrEmptyPersona)

	_, err = RenderPDF(&types.Persona{UserID: "u1"}, Options{})
	assert.ErrorIs(t, err, ErrEmptyPersona)

	_, err = RenderDOCX(&types.Persona{}, Options{})
	assert.ErrorIs(t, err, ErrEmptyPersona)
}

func TestCompactTrimming(t *testing.T) {
	p := renderPersona()
	trimmed := compactPersona(*p)

	assert.Len(t, trimmed.Skills, 8, "紧凑模式技能数应被限制")
	assert.Len(t, trimmed.Experience[0].Highlights, 2, "紧凑模式每段经历最多保留两条要点")

	// 原画像不受影响
	assert.Len(t, p.Skills, 10)
	assert.Len(t, p.Experience[0].Highlights, 4)
}

func TestCompactRenderStillValid(t *testing.T) {
	data, err := RenderPDF(renderPersona(), Options{Template: TemplateFresher, Compact: true})
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(data[:4]))
}

func TestStyleFallback(t *testing.T) {
	assert.Equal(t, styleFor(TemplateProfessional), styleFor("不存在的模板"))
	assert.Equal(t, styleFor(TemplateExecutive), styleFor(" Executive "))
}
