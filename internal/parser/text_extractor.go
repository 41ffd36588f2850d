package parser

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"career-agent-go/internal/logger"

	"github.com/cloudwego/eino-ext/components/document/parser/pdf"
	einoParser "github.com/cloudwego/eino/components/document/parser"
	"github.com/fumiama/go-docx"
)

// ErrUnsupportedFileType 上传的文件类型不在支持范围内，应映射为4xx错误
var ErrUnsupportedFileType = errors.New("不支持的文件类型")

// TextExtractor 从上传的简历文件中提取纯文本，支持 pdf/docx/txt
type TextExtractor struct {
	pdfParser *pdf.PDFParser
}

// NewTextExtractor 初始化文本提取器
// PDF解析配置为不按页面分割，返回整个文档的连续文本
func NewTextExtractor(ctx context.Context) (*TextExtractor, error) {
	p, err := pdf.NewPDFParser(ctx, &pdf.Config{
		ToPages: false,
	})
	if err != nil {
		return nil, fmt.Errorf("创建PDF解析器失败: %w", err)
	}
	return &TextExtractor{pdfParser: p}, nil
}

// ExtractText 按文件扩展名分发到对应的提取逻辑
func (e *TextExtractor) ExtractText(ctx context.Context, data []byte, filename string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".pdf":
		return e.extractPDF(ctx, data, filename)
	case ".docx":
		return e.extractDOCX(data)
	case ".txt", ".md", "":
		return string(data), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFileType, ext)
	}
}

func (e *TextExtractor) extractPDF(ctx context.Context, data []byte, filename string) (string, error) {
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	docs, err := e.pdfParser.Parse(ctx, bytes.NewReader(data),
		einoParser.WithURI(filename),
	)
	if err != nil {
		return "", fmt.Errorf("PDF解析失败: %w", err)
	}
	if len(docs) == 0 {
		return "", fmt.Errorf("PDF解析未返回任何文档: %s", filename)
	}

	var sb strings.Builder
	for i, doc := range docs {
		sb.WriteString(doc.Content)
		if i < len(docs)-1 {
			sb.WriteString("\n\n")
		}
	}

	logger.Debug().
		Str("file", filename).
		Int("chars", sb.Len()).
		Dur("elapsed", time.Since(start)).
		Msg("PDF文本提取完成")
	return sb.String(), nil
}

func (e *TextExtractor) extractDOCX(data []byte) (string, error) {
	doc, err := docx.Parse(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("DOCX解析失败: %w", err)
	}

	var sb strings.Builder
	for _, it := range doc.Document.Body.Items {
		switch v := it.(type) {
		case *docx.Paragraph:
			sb.WriteString(v.String())
			sb.WriteString("\n")
		case *docx.Table:
			sb.WriteString(v.String())
			sb.WriteString("\n")
		}
	}
	return sb.String(), nil
}
