package service

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/noah-isme/studyhub-api/internal/models"
	appErrors "github.com/noah-isme/studyhub-api/pkg/errors"
	"github.com/noah-isme/studyhub-api/pkg/export"
)

// Export formats supported for a test's result table.
const (
	ExportFormatXLSX = "xlsx"
	ExportFormatCSV  = "csv"
)

const (
	contentTypePDF  = "application/pdf"
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	contentTypeCSV  = "text/csv; charset=utf-8"
)

type resultSource interface {
	LoadTest(ctx context.Context, id string) (*models.MockTest, bool)
	ListResultsByTest(ctx context.Context, testID string) []models.Result
	ResultDetail(ctx context.Context, actor models.Actor, testID, resultID string) (*models.ResultDetail, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type xlsxRenderer interface {
	Render(data export.Dataset, sheet string) ([]byte, error)
}

type pdfRenderer interface {
	RenderResult(report export.ResultReport) ([]byte, error)
}

// ExportFile is a rendered download.
type ExportFile struct {
	Filename    string
	ContentType string
	Payload     []byte
}

// ExportService renders result reports and result tables as downloadable files.
type ExportService struct {
	results resultSource
	csv     csvRenderer
	xlsx    xlsxRenderer
	pdf     pdfRenderer
	logger  *zap.Logger
}

// NewExportService constructs an ExportService. Nil renderers fall back to the defaults.
func NewExportService(results resultSource, logger *zap.Logger, csv csvRenderer, xlsx xlsxRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if xlsx == nil {
		xlsx = export.NewXLSXExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter("")
	}
	return &ExportService{results: results, csv: csv, xlsx: xlsx, pdf: pdf, logger: logger}
}

// ResultReport renders one attempt as PDF, enforcing the same access rule as viewing it.
func (s *ExportService) ResultReport(ctx context.Context, actor models.Actor, testID, resultID string) (*ExportFile, error) {
	detail, err := s.results.ResultDetail(ctx, actor, testID, resultID)
	if err != nil {
		return nil, err
	}

	report := export.ResultReport{
		TestTitle:       detail.Test.Title,
		Username:        actor.Username,
		CompletedAt:     detail.Result.CompletedAt,
		DurationMinutes: detail.Result.DurationMinutes,
		Score:           detail.Result.Score,
		CorrectCount:    detail.CorrectCount,
		TotalQuestions:  len(detail.Test.Questions),
		Rows:            make([]export.ResultRow, 0, len(detail.Test.Questions)),
	}
	if detail.Result.UserID != actor.UserID {
		report.Username = strconv.FormatInt(detail.Result.UserID, 10)
	}
	for i, q := range detail.Test.Questions {
		chosen, answered := detail.Result.Answers[strconv.Itoa(i+1)]
		row := export.ResultRow{
			Number:   i + 1,
			Question: q.Content,
			Chosen:   "-",
			Correct:  strconv.Itoa(q.CorrectAnswer),
			Marked:   answered && chosen == q.CorrectAnswer,
		}
		if answered {
			row.Chosen = strconv.Itoa(chosen)
		}
		report.Rows = append(report.Rows, row)
	}

	payload, err := s.pdf.RenderResult(report)
	if err != nil {
		s.logger.Error("render result report", zap.String("result_id", resultID), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "보고서 생성 중 오류가 발생했습니다.")
	}
	return &ExportFile{Filename: resultID + ".pdf", ContentType: contentTypePDF, Payload: payload}, nil
}

// TestResults renders every result of a test as an XLSX or CSV table.
func (s *ExportService) TestResults(ctx context.Context, testID, format string) (*ExportFile, error) {
	test, ok := s.results.LoadTest(ctx, testID)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "문제를 찾을 수 없습니다.")
	}

	dataset := export.Dataset{Headers: []string{"결과 ID", "사용자 ID", "점수", "소요 시간(분)", "완료 시각", "응답 수"}}
	for _, r := range s.results.ListResultsByTest(ctx, testID) {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"결과 ID":    r.ID,
			"사용자 ID":   strconv.FormatInt(r.UserID, 10),
			"점수":       strconv.Itoa(r.Score),
			"소요 시간(분)": strconv.Itoa(r.DurationMinutes),
			"완료 시각":    r.CompletedAt,
			"응답 수":     fmt.Sprintf("%d/%d", len(r.Answers), len(test.Questions)),
		})
	}

	var (
		payload []byte
		err     error
		file    = ExportFile{Filename: testID + "_results." + format}
	)
	switch format {
	case ExportFormatXLSX:
		payload, err = s.xlsx.Render(dataset, "results")
		file.ContentType = contentTypeXLSX
	case ExportFormatCSV:
		payload, err = s.csv.Render(dataset)
		file.ContentType = contentTypeCSV
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "지원하지 않는 형식입니다.")
	}
	if err != nil {
		s.logger.Error("render test results", zap.String("test_id", testID), zap.String("format", format), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "내보내기 중 오류가 발생했습니다.")
	}
	file.Payload = payload
	return &file, nil
}
