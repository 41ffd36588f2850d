package render

import (
	"bytes"
	"fmt"

	"career-agent-go/internal/types"

	"github.com/go-pdf/fpdf"
)

// PDF版面参数
const (
	pdfMarginMM  = 15.0
	pdfLineH     = 5.5
	pdfHeadingH  = 8.0
	pdfBodyFont  = "Helvetica"
	pdfBodySize  = 10.5
	pdfSmallSize = 9.5
)

// RenderPDF 把画像渲染成A4简历PDF。
// 使用内置核心字体，超出Latin-1的字符由转换器做降级处理。
func RenderPDF(p *types.Persona, opts Options) ([]byte, error) {
	persona, err := prepare(p, opts)
	if err != nil {
		return nil, err
	}
	style := styleFor(opts.Template)

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pdfMarginMM, pdfMarginMM, pdfMarginMM)
	pdf.SetAutoPageBreak(true, pdfMarginMM)
	pdf.SetTitle(persona.FullName, true)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 2*pdfMarginMM

	// 姓名与头衔
	pdf.SetTextColor(style.accentR, style.accentG, style.accentB)
	pdf.SetFont(pdfBodyFont, "B", style.nameSize)
	pdf.CellFormat(contentW, 10, tr(persona.FullName), "", 1, "L", false, 0, "")
	if persona.Title != "" {
		pdf.SetTextColor(90, 90, 90)
		pdf.SetFont(pdfBodyFont, "", 12)
		pdf.CellFormat(contentW, 6, tr(persona.Title), "", 1, "L", false, 0, "")
	}
	if contact := contactLine(persona); contact != "" {
		pdf.SetTextColor(110, 110, 110)
		pdf.SetFont(pdfBodyFont, "", pdfSmallSize)
		pdf.CellFormat(contentW, 5, tr(contact), "", 1, "L", false, 0, "")
	}
	pdf.Ln(2)
	pdf.SetDrawColor(style.accentR, style.accentG, style.accentB)
	pdf.SetLineWidth(0.5)
	x := pdf.GetX()
	y := pdf.GetY()
	pdf.Line(x, y, x+contentW, y)
	pdf.Ln(3)

	writeHeading := func(title string) {
		pdf.SetTextColor(style.accentR, style.accentG, style.accentB)
		pdf.SetFont(pdfBodyFont, "B", style.headingSize)
		pdf.CellFormat(contentW, pdfHeadingH, tr(title), "", 1, "L", false, 0, "")
	}
	writeBody := func(text string) {
		pdf.SetTextColor(40, 40, 40)
		pdf.SetFont(pdfBodyFont, "", pdfBodySize)
		pdf.MultiCell(contentW, pdfLineH, tr(text), "", "L", false)
	}

	if persona.Summary != "" {
		writeHeading("Summary")
		writeBody(persona.Summary)
		pdf.Ln(2)
	}

	if len(persona.Skills) > 0 {
		writeHeading("Skills")
		writeBody(joinSkills(persona.Skills))
		pdf.Ln(2)
	}

	if len(persona.Experience) > 0 {
		writeHeading("Experience")
		for _, exp := range persona.Experience {
			pdf.SetTextColor(40, 40, 40)
			pdf.SetFont(pdfBodyFont, "B", pdfBodySize)
			pdf.CellFormat(contentW, pdfLineH+1, tr(experienceTitle(exp)), "", 1, "L", false, 0, "")
			pdf.SetFont(pdfBodyFont, "", pdfBodySize)
			for _, h := range exp.Highlights {
				pdf.MultiCell(contentW, pdfLineH, tr("- "+h), "", "L", false)
			}
			pdf.Ln(1)
		}
		pdf.Ln(1)
	}

	if len(persona.Education) > 0 {
		writeHeading("Education")
		for _, edu := range persona.Education {
			writeBody(educationLine(edu))
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("PDF生成失败: %w", err)
	}
	return buf.Bytes(), nil
}

func joinSkills(skills []string) string {
	out := ""
	for i, s := range skills {
		if i > 0 {
			out += " · "
		}
		out += s
	}
	return out
}
