package service

import (
	"context"
	"errors"
	"iter"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/studyhub-api/internal/dto"
	"github.com/noah-isme/studyhub-api/internal/models"
	"github.com/noah-isme/studyhub-api/internal/textrecord"
	appErrors "github.com/noah-isme/studyhub-api/pkg/errors"
	"github.com/noah-isme/studyhub-api/pkg/jobs"
	"github.com/noah-isme/studyhub-api/pkg/storage"
)

// recordStore is the flat-file namespace contract shared by the mock-test and ticket services.
type recordStore interface {
	Put(id string, content []byte) error
	Create(id string, content []byte) error
	Get(id string) ([]byte, bool, error)
	Exists(id string) (bool, error)
	List() ([]string, error)
	Delete(id string) (bool, error)
	DeleteWhere(match func(id string) bool) int
	Update(id string, fn func(current []byte) ([]byte, error)) error
}

type decodeRecorder interface {
	RecordPartialDecode(kind string)
}

type jobEnqueuer interface {
	Enqueue(job jobs.Job) error
}

const (
	resultIDPrefix = "result_"
	// JobPurgeResults removes the result files of a deleted test; the job key is the test id.
	JobPurgeResults = "purge_results"
)

// MockTestOption customises a MockTestService.
type MockTestOption func(*MockTestService)

// WithResultPurgeQueue moves the result cascade of DeleteTest onto a background queue.
// The cascade runs inline whenever the queue refuses the job.
func WithResultPurgeQueue(q jobEnqueuer) MockTestOption {
	return func(s *MockTestService) { s.purgeQueue = q }
}

// ResultPurgeHandler returns the queue handler for JobPurgeResults jobs.
func ResultPurgeHandler(results recordStore, logger *zap.Logger) jobs.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(ctx context.Context, job jobs.Job) error {
		if job.Kind != JobPurgeResults {
			logger.Warn("unexpected job kind", zap.String("kind", job.Kind))
			return nil
		}
		removed := purgeResults(results, job.Key)
		logger.Info("results purged", zap.String("test_id", job.Key), zap.Int("results_removed", removed))
		return nil
	}
}

// MockTestService manages flat-file reading tests and their graded results.
type MockTestService struct {
	tests     recordStore
	results   recordStore
	validator *validator.Validate
	metrics   decodeRecorder
	logger    *zap.Logger
	now       func() time.Time

	purgeQueue jobEnqueuer
}

// NewMockTestService constructs the service. results normally lives in the "results"
// subdirectory of the tests namespace.
func NewMockTestService(tests, results recordStore, validate *validator.Validate, metrics decodeRecorder, logger *zap.Logger, opts ...MockTestOption) *MockTestService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &MockTestService{
		tests:     tests,
		results:   results,
		validator: validate,
		metrics:   metrics,
		logger:    logger,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	registerSingleLine(svc.validator)
	return svc
}

// ListTests yields every readable test sorted by title. The directory is rescanned on each
// iteration, so the sequence can be ranged over repeatedly.
func (s *MockTestService) ListTests(ctx context.Context) iter.Seq[models.TestSummary] {
	return func(yield func(models.TestSummary) bool) {
		ids, err := s.tests.List()
		if err != nil {
			s.logger.Error("list mock tests", zap.Error(err))
			return
		}

		summaries := make([]models.TestSummary, 0, len(ids))
		for _, id := range ids {
			if ctx.Err() != nil {
				return
			}
			test, ok := s.LoadTest(ctx, id)
			if !ok {
				continue
			}
			summaries = append(summaries, test.Summary())
		}
		sort.SliceStable(summaries, func(i, j int) bool {
			if summaries[i].Title == summaries[j].Title {
				return summaries[i].ID < summaries[j].ID
			}
			return summaries[i].Title < summaries[j].Title
		})

		for _, summary := range summaries {
			if !yield(summary) {
				return
			}
		}
	}
}

// LoadTest returns the parsed test or false when it does not exist or cannot be read.
func (s *MockTestService) LoadTest(ctx context.Context, id string) (*models.MockTest, bool) {
	content, found, err := s.tests.Get(id)
	if err != nil {
		s.logStoreError("load mock test", id, err)
		return nil, false
	}
	if !found {
		return nil, false
	}

	test, report := textrecord.DecodeMockTest(id, content)
	s.notePartial("mock_test", id, report)
	return &test, true
}

// Grade scores answers against the test. Answers are keyed by 1-based position; unanswered
// questions count as wrong and a test without questions scores 0.
func (s *MockTestService) Grade(ctx context.Context, id string, answers map[string]int) (*models.GradeResult, bool) {
	test, ok := s.LoadTest(ctx, id)
	if !ok {
		return nil, false
	}
	result := gradeTest(test, answers)
	return &result, true
}

// SaveResult writes an immutable result record and returns its id, or false when it could not
// be stored. The score is recomputed from the test when it still exists.
func (s *MockTestService) SaveResult(ctx context.Context, userID int64, testID string, answers map[string]int, durationMinutes int, testTitle string) (string, bool) {
	score := 0
	if test, ok := s.LoadTest(ctx, testID); ok {
		score = gradeTest(test, answers).Score
	}
	return s.saveResult(userID, testID, answers, score, durationMinutes, testTitle)
}

func (s *MockTestService) saveResult(userID int64, testID string, answers map[string]int, score, durationMinutes int, testTitle string) (string, bool) {
	now := s.now()
	resultID := resultIDPrefix + now.Format(models.ResultTimestampLayout) + "_" + strconv.FormatInt(userID, 10) + "_" + testID

	if answers == nil {
		answers = map[string]int{}
	}
	record := models.Result{
		ID:              resultID,
		UserID:          userID,
		TestID:          testID,
		TestTitle:       testTitle,
		Score:           score,
		DurationMinutes: durationMinutes,
		CompletedAt:     models.FormatStoredTime(now),
		Answers:         answers,
	}

	if err := s.results.Put(resultID, textrecord.EncodeResult(record)); err != nil {
		s.logStoreError("save result", resultID, err)
		return "", false
	}
	return resultID, true
}

// Submit grades a submission and stores the result.
func (s *MockTestService) Submit(ctx context.Context, userID int64, testID string, req dto.SubmitTestRequest) (*dto.SubmitTestResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "답안 형식이 올바르지 않습니다.")
	}
	test, ok := s.LoadTest(ctx, testID)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "문제를 찾을 수 없습니다.")
	}

	grade := gradeTest(test, req.Answers)
	resultID, ok := s.saveResult(userID, testID, req.Answers, grade.Score, req.Duration, test.Title)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrStorage, "제출 중 오류가 발생했습니다.")
	}

	return &dto.SubmitTestResponse{
		ResultID:       resultID,
		Score:          grade.Score,
		CorrectCount:   grade.CorrectCount,
		TotalQuestions: grade.TotalQuestions,
	}, nil
}

// CreateTest stores a new test. Existing ids are never overwritten.
func (s *MockTestService) CreateTest(ctx context.Context, req dto.CreateTestRequest) (*models.MockTest, error) {
	req.ID = strings.TrimSpace(req.ID)
	req.Title = strings.TrimSpace(req.Title)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "문제 ID, 제목, 지문은 필수입니다.")
	}
	if err := storage.ValidateID(req.ID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "문제 ID에 사용할 수 없는 문자가 포함되어 있습니다.")
	}

	test := models.MockTest{
		ID:          req.ID,
		Title:       req.Title,
		Description: req.Description,
		Passage:     strings.TrimSpace(req.Passage),
		Questions:   make([]models.Question, 0, len(req.Questions)),
	}
	for i, q := range req.Questions {
		if q.CorrectAnswer > len(q.Options) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "정답 번호가 선택지 범위를 벗어났습니다. (문제 "+strconv.Itoa(i+1)+")")
		}
		test.Questions = append(test.Questions, models.Question{
			Number:        i + 1,
			Content:       strings.TrimSpace(q.Content),
			Options:       q.Options,
			CorrectAnswer: q.CorrectAnswer,
			Explanation:   strings.TrimSpace(q.Explanation),
		})
	}

	if err := s.tests.Create(test.ID, textrecord.EncodeMockTest(test)); err != nil {
		if errors.Is(err, storage.ErrExists) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "이미 존재하는 문제 ID입니다.")
		}
		s.logStoreError("create mock test", test.ID, err)
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, appErrors.ErrStorage.Message)
	}

	s.logger.Info("mock test created", zap.String("test_id", test.ID), zap.Int("questions", len(test.Questions)))
	return &test, nil
}

// DeleteTest removes a test and, best effort, every result recorded against it.
func (s *MockTestService) DeleteTest(ctx context.Context, id string) error {
	deleted, err := s.tests.Delete(id)
	if err != nil {
		if errors.Is(err, storage.ErrInvalidID) {
			return appErrors.Clone(appErrors.ErrNotFound, "문제를 찾을 수 없습니다.")
		}
		s.logStoreError("delete mock test", id, err)
		return appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "삭제 중 오류가 발생했습니다.")
	}
	if !deleted {
		return appErrors.Clone(appErrors.ErrNotFound, "문제를 찾을 수 없습니다.")
	}

	if s.purgeQueue != nil {
		err := s.purgeQueue.Enqueue(jobs.Job{Kind: JobPurgeResults, Key: id})
		if err == nil {
			s.logger.Info("mock test deleted, result purge queued", zap.String("test_id", id))
			return nil
		}
		s.logger.Warn("purge queue refused job, purging inline", zap.String("test_id", id), zap.Error(err))
	}

	removed := purgeResults(s.results, id)
	s.logger.Info("mock test deleted", zap.String("test_id", id), zap.Int("results_removed", removed))
	return nil
}

func purgeResults(results recordStore, testID string) int {
	return results.DeleteWhere(func(resultID string) bool {
		return strings.HasPrefix(resultID, resultIDPrefix) && resultTestID(resultID) == testID
	})
}

// LoadResult returns a stored result or false when it does not exist or cannot be read.
func (s *MockTestService) LoadResult(ctx context.Context, resultID string) (*models.Result, bool) {
	content, found, err := s.results.Get(resultID)
	if err != nil {
		s.logStoreError("load result", resultID, err)
		return nil, false
	}
	if !found {
		return nil, false
	}
	result, report := textrecord.DecodeResult(resultID, content)
	s.notePartial("result", resultID, report)
	return &result, true
}

// ListUserResults returns the user's results, newest completion first.
func (s *MockTestService) ListUserResults(ctx context.Context, userID int64) []models.Result {
	owner := strconv.FormatInt(userID, 10)
	results := s.collectResults(ctx, func(id string) bool {
		return resultUserID(id) == owner
	})

	filtered := results[:0]
	for _, r := range results {
		if r.UserID == userID {
			filtered = append(filtered, r)
		}
	}
	sortResultsNewestFirst(filtered)
	return filtered
}

// ListResultsByTest returns every result recorded for a test, newest completion first.
func (s *MockTestService) ListResultsByTest(ctx context.Context, testID string) []models.Result {
	results := s.collectResults(ctx, func(id string) bool {
		return resultTestID(id) == testID
	})
	sortResultsNewestFirst(results)
	return results
}

// ResultDetail loads a result together with its test and recomputes the correct count.
// Only the owner or an admin may view it.
func (s *MockTestService) ResultDetail(ctx context.Context, actor models.Actor, testID, resultID string) (*models.ResultDetail, error) {
	result, ok := s.LoadResult(ctx, resultID)
	if !ok || (result.TestID != "" && result.TestID != testID) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "결과를 찾을 수 없습니다.")
	}
	if result.UserID != actor.UserID && !actor.IsAdmin {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "")
	}
	test, ok := s.LoadTest(ctx, testID)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "결과를 찾을 수 없습니다.")
	}

	return &models.ResultDetail{
		Result:       *result,
		Test:         test,
		CorrectCount: gradeTest(test, result.Answers).CorrectCount,
	}, nil
}

func (s *MockTestService) collectResults(ctx context.Context, match func(id string) bool) []models.Result {
	ids, err := s.results.List()
	if err != nil {
		s.logger.Error("list results", zap.Error(err))
		return []models.Result{}
	}
	results := make([]models.Result, 0)
	for _, id := range ids {
		if ctx.Err() != nil {
			break
		}
		if !strings.HasPrefix(id, resultIDPrefix) || !match(id) {
			continue
		}
		if r, ok := s.LoadResult(ctx, id); ok {
			results = append(results, *r)
		}
	}
	return results
}

func (s *MockTestService) notePartial(kind, id string, report textrecord.Report) {
	if !report.Partial {
		return
	}
	s.logger.Warn("record decoded leniently", zap.String("kind", kind), zap.String("id", id), zap.Strings("reasons", report.Reasons))
	if s.metrics != nil {
		s.metrics.RecordPartialDecode(kind)
	}
}

func (s *MockTestService) logStoreError(action, id string, err error) {
	if errors.Is(err, storage.ErrInvalidID) {
		s.logger.Warn(action+": rejected identifier", zap.String("id", id))
		return
	}
	s.logger.Error(action, zap.String("id", id), zap.Error(err))
}

func gradeTest(test *models.MockTest, answers map[string]int) models.GradeResult {
	correct := 0
	for i, q := range test.Questions {
		if answer, ok := answers[strconv.Itoa(i+1)]; ok && answer == q.CorrectAnswer {
			correct++
		}
	}
	total := len(test.Questions)
	return models.GradeResult{
		TestID:         test.ID,
		Score:          scorePercent(correct, total),
		CorrectCount:   correct,
		TotalQuestions: total,
	}
}

func scorePercent(correct, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(100 * float64(correct) / float64(total)))
}

// result ids look like result_{YYYYMMDD}_{HHMMSS}_{userID}_{testID}; test ids may contain underscores.
func splitResultID(id string) []string {
	return strings.SplitN(id, "_", 5)
}

func resultUserID(id string) string {
	parts := splitResultID(id)
	if len(parts) < 5 {
		return ""
	}
	return parts[3]
}

func resultTestID(id string) string {
	parts := splitResultID(id)
	if len(parts) < 5 {
		return ""
	}
	return parts[4]
}

func sortResultsNewestFirst(results []models.Result) {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].CompletedAt > results[j].CompletedAt
	})
}
