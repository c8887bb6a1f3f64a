package textrecord

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/studyhub-api/internal/models"
)

func TestResultRoundTrip(t *testing.T) {
	result := models.Result{
		ID:              "result_20240301_101500_7_t1",
		UserID:          7,
		TestID:          "t1",
		TestTitle:       "샘플",
		Score:           67,
		DurationMinutes: 12,
		CompletedAt:     "2024-03-01T10:15:00.000000",
		Answers:         map[string]int{"10": 1, "2": 4, "1": 2},
	}

	encoded := EncodeResult(result)
	decoded, report := DecodeResult(result.ID, encoded)

	assert.False(t, report.Partial, report.String())
	assert.Equal(t, result, decoded)
	assert.Contains(t, string(encoded), "점수: 67점\n소요시간: 12분\n")
	assert.Contains(t, string(encoded), "=== 답안 ===\n문제 1: 2번\n문제 2: 4번\n문제 10: 1번\n")
}

func TestDecodeResultMissingFields(t *testing.T) {
	content := "=== 비문학 모의고사 결과 ===\n사용자 ID: 3\n점수: 많음점\n문제 1: 둘번\n문제 2: 3번\n"

	result, report := DecodeResult("r", []byte(content))

	assert.Equal(t, int64(3), result.UserID)
	assert.Zero(t, result.Score)
	assert.Empty(t, result.TestID)
	assert.Equal(t, map[string]int{"2": 3}, result.Answers)
	assert.True(t, report.Partial)
	assert.Contains(t, report.String(), "missing field \"문제 ID\"")
	assert.Contains(t, report.String(), "score is not a number")
}
