package render

import (
	"bytes"
	"fmt"

	"career-agent-go/internal/types"

	"github.com/fumiama/go-docx"
)

// DOCX字号是半磅字符串
const (
	docxNameSize    = "40"
	docxHeadingSize = "28"
	docxBodySize    = "22"
	docxGray        = "666666"
)

// RenderDOCX 把画像渲染成可二次编辑的Word简历
func RenderDOCX(p *types.Persona, opts Options) ([]byte, error) {
	persona, err := prepare(p, opts)
	if err != nil {
		return nil, err
	}
	style := styleFor(opts.Template)

	doc := docx.New().WithDefaultTheme()

	doc.AddParagraph().AddText(persona.FullName).Size(docxNameSize).Color(style.accentHex).Bold()
	if persona.Title != "" {
		doc.AddParagraph().AddText(persona.Title).Size(docxBodySize).Color(docxGray)
	}
	if contact := contactLine(persona); contact != "" {
		doc.AddParagraph().AddText(contact).Size(docxBodySize).Color(docxGray)
	}
	doc.AddParagraph()

	addHeading := func(title string) {
		doc.AddParagraph().AddText(title).Size(docxHeadingSize).Color(style.accentHex).Bold()
	}
	addBody := func(text string) {
		doc.AddParagraph().AddText(text).Size(docxBodySize)
	}

	if persona.Summary != "" {
		addHeading("Summary")
		addBody(persona.Summary)
		doc.AddParagraph()
	}

	if len(persona.Skills) > 0 {
		addHeading("Skills")
		addBody(joinSkills(persona.Skills))
		doc.AddParagraph()
	}

	if len(persona.Experience) > 0 {
		addHeading("Experience")
		for _, exp := range persona.Experience {
			doc.AddParagraph().AddText(experienceTitle(exp)).Size(docxBodySize).Bold()
			for _, h := range exp.Highlights {
				addBody("- " + h)
			}
		}
		doc.AddParagraph()
	}

	if len(persona.Education) > 0 {
		addHeading("Education")
		for _, edu := range persona.Education {
			addBody(educationLine(edu))
		}
	}

	var buf bytes.Buffer
	if _, err := doc.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("DOCX生成失败: %w", err)
	}
	return buf.Bytes(), nil
}
