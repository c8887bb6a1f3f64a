package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"iter"
	"net/http"
	"net/http/httptest"
	"slices"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/studyhub-api/internal/dto"
	"github.com/noah-isme/studyhub-api/internal/middleware"
	"github.com/noah-isme/studyhub-api/internal/models"
	"github.com/noah-isme/studyhub-api/internal/service"
	appErrors "github.com/noah-isme/studyhub-api/pkg/errors"
)

type mockTestServiceMock struct {
	summaries  []models.TestSummary
	test       *models.MockTest
	submitResp *dto.SubmitTestResponse
	submitErr  error
	lastSubmit dto.SubmitTestRequest
	lastUserID int64
	results    []models.Result
	detailErr  error
	createErr  error
	deleteErr  error
	deletedID  string
	lastActor  models.Actor
}

func (m *mockTestServiceMock) ListTests(ctx context.Context) iter.Seq[models.TestSummary] {
	return slices.Values(m.summaries)
}

func (m *mockTestServiceMock) LoadTest(ctx context.Context, id string) (*models.MockTest, bool) {
	if m.test == nil || m.test.ID != id {
		return nil, false
	}
	return m.test, true
}

func (m *mockTestServiceMock) Submit(ctx context.Context, userID int64, testID string, req dto.SubmitTestRequest) (*dto.SubmitTestResponse, error) {
	m.lastUserID = userID
	m.lastSubmit = req
	return m.submitResp, m.submitErr
}

func (m *mockTestServiceMock) ListUserResults(ctx context.Context, userID int64) []models.Result {
	m.lastUserID = userID
	return m.results
}

func (m *mockTestServiceMock) ListResultsByTest(ctx context.Context, testID string) []models.Result {
	return m.results
}

func (m *mockTestServiceMock) ResultDetail(ctx context.Context, actor models.Actor, testID, resultID string) (*models.ResultDetail, error) {
	m.lastActor = actor
	if m.detailErr != nil {
		return nil, m.detailErr
	}
	return &models.ResultDetail{Result: models.Result{ID: resultID, TestID: testID}, Test: m.test}, nil
}

func (m *mockTestServiceMock) CreateTest(ctx context.Context, req dto.CreateTestRequest) (*models.MockTest, error) {
	if m.createErr != nil {
		return nil, m.createErr
	}
	return &models.MockTest{ID: req.ID, Title: req.Title}, nil
}

func (m *mockTestServiceMock) DeleteTest(ctx context.Context, id string) error {
	m.deletedID = id
	return m.deleteErr
}

type exportServiceMock struct {
	format string
	err    error
}

func (m *exportServiceMock) ResultReport(ctx context.Context, actor models.Actor, testID, resultID string) (*service.ExportFile, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &service.ExportFile{Filename: resultID + ".pdf", ContentType: "application/pdf", Payload: []byte("%PDF-")}, nil
}

func (m *exportServiceMock) TestResults(ctx context.Context, testID, format string) (*service.ExportFile, error) {
	m.format = format
	if m.err != nil {
		return nil, m.err
	}
	return &service.ExportFile{Filename: testID + "_results." + format, ContentType: "application/octet-stream", Payload: []byte("data")}, nil
}

var studentClaims = &models.JWTClaims{UserID: 7, Username: "kim", Role: models.RoleStudent}

func newTestContext(method, path, body string, claims *models.JWTClaims) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req, _ := http.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	if claims != nil {
		c.Set(middleware.ContextUserKey, claims)
	}
	return c, w
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestNonfictionHandlerGetTestHidesAnswers(t *testing.T) {
	svc := &mockTestServiceMock{test: &models.MockTest{ID: "t1", Title: "독해", Questions: []models.Question{
		{Number: 1, Content: "q", Options: []string{"A", "B"}, CorrectAnswer: 2, Explanation: "because"},
	}}}
	h := NewNonfictionHandler(svc, &exportServiceMock{})

	c, w := newTestContext(http.MethodGet, "/nonfiction/tests/t1", "", studentClaims)
	c.Params = gin.Params{{Key: "id", Value: "t1"}}
	h.GetTest(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "correct_answer")
	assert.NotContains(t, w.Body.String(), "because")
	assert.Equal(t, 2, svc.test.Questions[0].CorrectAnswer)

	c, w = newTestContext(http.MethodGet, "/nonfiction/tests/zzz", "", studentClaims)
	c.Params = gin.Params{{Key: "id", Value: "zzz"}}
	h.GetTest(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestNonfictionHandlerListTestsEmpty(t *testing.T) {
	h := NewNonfictionHandler(&mockTestServiceMock{}, &exportServiceMock{})
	c, w := newTestContext(http.MethodGet, "/nonfiction/tests", "", studentClaims)
	h.ListTests(c)

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeEnvelope(t, w)
	assert.Equal(t, []interface{}{}, body["data"])
}

func TestNonfictionHandlerSubmit(t *testing.T) {
	svc := &mockTestServiceMock{submitResp: &dto.SubmitTestResponse{ResultID: "result_x", Score: 50}}
	h := NewNonfictionHandler(svc, &exportServiceMock{})

	c, w := newTestContext(http.MethodPost, "/nonfiction/tests/t1/submit", `{"answers":{"1":2},"duration":4}`, studentClaims)
	c.Params = gin.Params{{Key: "id", Value: "t1"}}
	h.Submit(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(7), svc.lastUserID)
	assert.Equal(t, map[string]int{"1": 2}, svc.lastSubmit.Answers)
	assert.Equal(t, 4, svc.lastSubmit.Duration)

	c, w = newTestContext(http.MethodPost, "/nonfiction/tests/t1/submit", `{"answers":`, studentClaims)
	h.Submit(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	c, w = newTestContext(http.MethodPost, "/nonfiction/tests/t1/submit", `{}`, nil)
	h.Submit(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	svc.submitErr = appErrors.Clone(appErrors.ErrNotFound, "문제를 찾을 수 없습니다.")
	c, w = newTestContext(http.MethodPost, "/nonfiction/tests/t1/submit", `{}`, studentClaims)
	h.Submit(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "문제를 찾을 수 없습니다.", decodeEnvelope(t, w)["message"])
}

func TestNonfictionHandlerResultDetailForbidden(t *testing.T) {
	svc := &mockTestServiceMock{detailErr: appErrors.ErrForbidden}
	h := NewNonfictionHandler(svc, &exportServiceMock{})

	c, w := newTestContext(http.MethodGet, "/nonfiction/results/t1/r1", "", studentClaims)
	c.Params = gin.Params{{Key: "testId", Value: "t1"}, {Key: "resultId", Value: "r1"}}
	h.ResultDetail(c)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, models.Actor{UserID: 7, Username: "kim"}, svc.lastActor)
}

func TestNonfictionHandlerDownloads(t *testing.T) {
	exports := &exportServiceMock{}
	h := NewNonfictionHandler(&mockTestServiceMock{}, exports)

	c, w := newTestContext(http.MethodGet, "/nonfiction/results/t1/r1/report.pdf", "", studentClaims)
	c.Params = gin.Params{{Key: "testId", Value: "t1"}, {Key: "resultId", Value: "r1"}}
	h.ResultReport(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `attachment; filename="r1.pdf"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))

	c, w = newTestContext(http.MethodGet, "/admin/nonfiction-tests/t1/results.csv", "", studentClaims)
	c.Params = gin.Params{{Key: "id", Value: "t1"}}
	h.ExportResultsCSV(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, service.ExportFormatCSV, exports.format)

	exports.err = appErrors.ErrNotFound
	c, w = newTestContext(http.MethodGet, "/admin/nonfiction-tests/t1/results.xlsx", "", studentClaims)
	h.ExportResultsXLSX(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, service.ExportFormatXLSX, exports.format)
}

func TestNonfictionHandlerAdminActions(t *testing.T) {
	svc := &mockTestServiceMock{
		summaries: []models.TestSummary{{ID: "t1", Title: "독해"}},
		results:   []models.Result{{ID: "r1"}, {ID: "r2"}},
	}
	h := NewNonfictionHandler(svc, &exportServiceMock{})
	admin := &models.JWTClaims{UserID: 1, Role: models.RoleAdmin}

	c, w := newTestContext(http.MethodGet, "/admin/nonfiction-tests", "", admin)
	h.AdminListTests(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"result_count":2`)

	c, w = newTestContext(http.MethodPost, "/admin/nonfiction-tests", `{"id":"t2","title":"새 시험","passage":"p"}`, admin)
	h.CreateTest(c)
	assert.Equal(t, http.StatusCreated, w.Code)

	svc.createErr = appErrors.Clone(appErrors.ErrConflict, "이미 존재하는 문제 ID입니다.")
	c, w = newTestContext(http.MethodPost, "/admin/nonfiction-tests", `{"id":"t2","title":"새 시험","passage":"p"}`, admin)
	h.CreateTest(c)
	assert.Equal(t, http.StatusConflict, w.Code)

	c, w = newTestContext(http.MethodDelete, "/admin/nonfiction-tests/t1", "", admin)
	c.Params = gin.Params{{Key: "id", Value: "t1"}}
	h.DeleteTest(c)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "t1", svc.deletedID)
}
