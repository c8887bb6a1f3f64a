package handler

import (
	"context"
	"iter"
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/studyhub-api/internal/dto"
	"github.com/noah-isme/studyhub-api/internal/models"
	"github.com/noah-isme/studyhub-api/internal/service"
	appErrors "github.com/noah-isme/studyhub-api/pkg/errors"
	"github.com/noah-isme/studyhub-api/pkg/response"
)

type mockTestService interface {
	ListTests(ctx context.Context) iter.Seq[models.TestSummary]
	LoadTest(ctx context.Context, id string) (*models.MockTest, bool)
	Submit(ctx context.Context, userID int64, testID string, req dto.SubmitTestRequest) (*dto.SubmitTestResponse, error)
	ListUserResults(ctx context.Context, userID int64) []models.Result
	ListResultsByTest(ctx context.Context, testID string) []models.Result
	ResultDetail(ctx context.Context, actor models.Actor, testID, resultID string) (*models.ResultDetail, error)
	CreateTest(ctx context.Context, req dto.CreateTestRequest) (*models.MockTest, error)
	DeleteTest(ctx context.Context, id string) error
}

type exportService interface {
	ResultReport(ctx context.Context, actor models.Actor, testID, resultID string) (*service.ExportFile, error)
	TestResults(ctx context.Context, testID, format string) (*service.ExportFile, error)
}

// NonfictionHandler exposes the reading mock-test endpoints for learners and admins.
type NonfictionHandler struct {
	tests   mockTestService
	exports exportService
}

// NewNonfictionHandler builds a new handler.
func NewNonfictionHandler(tests mockTestService, exports exportService) *NonfictionHandler {
	return &NonfictionHandler{tests: tests, exports: exports}
}

// ListTests godoc
// @Summary List mock tests
// @Tags Nonfiction
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /nonfiction/tests [get]
func (h *NonfictionHandler) ListTests(c *gin.Context) {
	summaries := slices.Collect(h.tests.ListTests(c.Request.Context()))
	if summaries == nil {
		summaries = []models.TestSummary{}
	}
	response.JSON(c, http.StatusOK, summaries, nil)
}

// GetTest godoc
// @Summary Get a mock test for taking
// @Description Answer keys and explanations are omitted.
// @Tags Nonfiction
// @Produce json
// @Security BearerAuth
// @Param id path string true "Test ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /nonfiction/tests/{id} [get]
func (h *NonfictionHandler) GetTest(c *gin.Context) {
	test, ok := h.tests.LoadTest(c.Request.Context(), c.Param("id"))
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "문제를 찾을 수 없습니다."))
		return
	}
	response.JSON(c, http.StatusOK, test.WithoutAnswers(), nil)
}

// Submit godoc
// @Summary Submit answers for grading
// @Tags Nonfiction
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Test ID"
// @Param payload body dto.SubmitTestRequest true "Answers keyed by question number"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /nonfiction/tests/{id}/submit [post]
func (h *NonfictionHandler) Submit(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.SubmitTestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "답안 형식이 올바르지 않습니다."))
		return
	}
	res, err := h.tests.Submit(c.Request.Context(), actor.UserID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// ListResults godoc
// @Summary List the caller's results
// @Tags Nonfiction
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /nonfiction/results [get]
func (h *NonfictionHandler) ListResults(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	response.JSON(c, http.StatusOK, h.tests.ListUserResults(c.Request.Context(), actor.UserID), nil)
}

// ResultDetail godoc
// @Summary Get one result with its test
// @Tags Nonfiction
// @Produce json
// @Security BearerAuth
// @Param testId path string true "Test ID"
// @Param resultId path string true "Result ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /nonfiction/results/{testId}/{resultId} [get]
func (h *NonfictionHandler) ResultDetail(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	detail, err := h.tests.ResultDetail(c.Request.Context(), actor, c.Param("testId"), c.Param("resultId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// ResultReport godoc
// @Summary Download a result as PDF
// @Tags Nonfiction
// @Produce application/pdf
// @Security BearerAuth
// @Param testId path string true "Test ID"
// @Param resultId path string true "Result ID"
// @Success 200 {file} binary
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /nonfiction/results/{testId}/{resultId}/report.pdf [get]
func (h *NonfictionHandler) ResultReport(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	file, err := h.exports.ResultReport(c.Request.Context(), actor, c.Param("testId"), c.Param("resultId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Payload)
}

// CreateTest godoc
// @Summary Add a mock test
// @Tags Nonfiction Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.CreateTestRequest true "Test payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /admin/nonfiction-tests [post]
func (h *NonfictionHandler) CreateTest(c *gin.Context) {
	var req dto.CreateTestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidBody(c, err)
		return
	}
	test, err := h.tests.CreateTest(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, test, "모의고사가 추가되었습니다.")
}

// AdminListTests godoc
// @Summary List mock tests with result counts
// @Tags Nonfiction Admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /admin/nonfiction-tests [get]
func (h *NonfictionHandler) AdminListTests(c *gin.Context) {
	ctx := c.Request.Context()
	items := make([]dto.AdminTestItem, 0)
	for summary := range h.tests.ListTests(ctx) {
		items = append(items, dto.AdminTestItem{
			TestSummary: summary,
			ResultCount: len(h.tests.ListResultsByTest(ctx, summary.ID)),
		})
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// AdminTestResults godoc
// @Summary List every result of a test
// @Tags Nonfiction Admin
// @Produce json
// @Security BearerAuth
// @Param id path string true "Test ID"
// @Success 200 {object} response.Envelope
// @Router /admin/nonfiction-tests/{id}/results [get]
func (h *NonfictionHandler) AdminTestResults(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.tests.ListResultsByTest(c.Request.Context(), c.Param("id")), nil)
}

// DeleteTest godoc
// @Summary Delete a mock test and its results
// @Tags Nonfiction Admin
// @Produce json
// @Security BearerAuth
// @Param id path string true "Test ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/nonfiction-tests/{id} [delete]
func (h *NonfictionHandler) DeleteTest(c *gin.Context) {
	if err := h.tests.DeleteTest(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, "모의고사가 삭제되었습니다.")
}

// ExportResultsXLSX godoc
// @Summary Download a test's results as XLSX
// @Tags Nonfiction Admin
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security BearerAuth
// @Param id path string true "Test ID"
// @Success 200 {file} binary
// @Router /admin/nonfiction-tests/{id}/results.xlsx [get]
func (h *NonfictionHandler) ExportResultsXLSX(c *gin.Context) {
	h.exportResults(c, service.ExportFormatXLSX)
}

// ExportResultsCSV godoc
// @Summary Download a test's results as CSV
// @Tags Nonfiction Admin
// @Produce text/csv
// @Security BearerAuth
// @Param id path string true "Test ID"
// @Success 200 {file} binary
// @Router /admin/nonfiction-tests/{id}/results.csv [get]
func (h *NonfictionHandler) ExportResultsCSV(c *gin.Context) {
	h.exportResults(c, service.ExportFormatCSV)
}

func (h *NonfictionHandler) exportResults(c *gin.Context, format string) {
	file, err := h.exports.TestResults(c.Request.Context(), c.Param("id"), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Payload)
}
