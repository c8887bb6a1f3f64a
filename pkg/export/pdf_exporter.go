package export

import (
	"bytes"
	"fmt"
	"path/filepath"

	"github.com/jung-kurt/gofpdf"
)

const utf8FontFamily = "report-utf8"

// ResultReport is the content of a single graded attempt.
type ResultReport struct {
	TestTitle       string
	Username        string
	CompletedAt     string
	DurationMinutes int
	Score           int
	CorrectCount    int
	TotalQuestions  int
	Rows            []ResultRow
}

// ResultRow describes one question of the attempt.
type ResultRow struct {
	Number   int
	Question string
	Chosen   string
	Correct  string
	Marked   bool
}

// PDFExporter renders result reports. Without a UTF-8 font it falls back to the core Arial font,
// which cannot draw Hangul.
type PDFExporter struct {
	fontPath string
}

// NewPDFExporter constructs a PDF exporter. fontPath may be empty.
func NewPDFExporter(fontPath string) *PDFExporter {
	return &PDFExporter{fontPath: fontPath}
}

// RenderResult creates a one-section PDF with the score summary and a per-question table.
func (e *PDFExporter) RenderResult(report ResultReport) ([]byte, error) {
	fontDir := ""
	if e.fontPath != "" {
		fontDir = filepath.Dir(e.fontPath)
	}
	pdf := gofpdf.New("P", "mm", "A4", fontDir)
	pdf.SetMargins(10, 15, 10)

	family := "Arial"
	if e.fontPath != "" {
		file := filepath.Base(e.fontPath)
		pdf.AddUTF8Font(utf8FontFamily, "", file)
		pdf.AddUTF8Font(utf8FontFamily, "B", file)
		family = utf8FontFamily
	}
	pdf.AddPage()

	pdf.SetFont(family, "B", 14)
	pdf.CellFormat(0, 10, report.TestTitle, "", 1, "C", false, 0, "")
	pdf.Ln(3)

	pdf.SetFont(family, "", 10)
	summary := []string{
		fmt.Sprintf("%s  |  %s", report.Username, report.CompletedAt),
		fmt.Sprintf("%d%%  (%d / %d)  |  %d min", report.Score, report.CorrectCount, report.TotalQuestions, report.DurationMinutes),
	}
	for _, line := range summary {
		pdf.CellFormat(0, 7, line, "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	widths := []float64{12, 118, 20, 20, 20}
	headers := []string{"#", "Question", "Answer", "Key", "OK"}
	pdf.SetFont(family, "B", 10)
	for i, header := range headers {
		pdf.CellFormat(widths[i], 8, header, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont(family, "", 9)
	for _, row := range report.Rows {
		mark := "X"
		if row.Marked {
			mark = "O"
		}
		cells := []string{fmt.Sprint(row.Number), truncateRunes(row.Question, 60), row.Chosen, row.Correct, mark}
		for i, cell := range cells {
			align := "C"
			if i == 1 {
				align = "L"
			}
			pdf.CellFormat(widths[i], 7, cell, "1", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}
