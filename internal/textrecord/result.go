package textrecord

import (
	"sort"
	"strconv"
	"strings"

	"github.com/noah-isme/studyhub-api/internal/models"
)

const (
	resultHeader       = "=== 비문학 모의고사 결과 ==="
	answersHeader      = "=== 답안 ==="
	labelResultID      = "결과 ID: "
	labelUserID        = "사용자 ID: "
	labelTestID        = "문제 ID: "
	labelTestTitle     = "문제 제목: "
	labelScore         = "점수: "
	labelDuration      = "소요시간: "
	labelCompletedAt   = "완료시간: "
	answerLinePrefix   = "문제 "
	suffixScore        = "점"
	suffixDuration     = "분"
	suffixAnswerChoice = "번"
)

// EncodeResult renders a quiz result. Answer lines are ordered by numeric question ordinal.
func EncodeResult(result models.Result) []byte {
	var b strings.Builder

	b.WriteString(resultHeader + "\n")
	b.WriteString(labelResultID + singleLine(result.ID) + "\n")
	b.WriteString(labelUserID + strconv.FormatInt(result.UserID, 10) + "\n")
	b.WriteString(labelTestID + singleLine(result.TestID) + "\n")
	b.WriteString(labelTestTitle + singleLine(result.TestTitle) + "\n")
	b.WriteString(labelScore + strconv.Itoa(result.Score) + suffixScore + "\n")
	b.WriteString(labelDuration + strconv.Itoa(result.DurationMinutes) + suffixDuration + "\n")
	b.WriteString(labelCompletedAt + singleLine(result.CompletedAt) + "\n")
	b.WriteString("\n" + answersHeader + "\n")

	for _, key := range sortedAnswerKeys(result.Answers) {
		b.WriteString(answerLinePrefix + key + ": " + strconv.Itoa(result.Answers[key]) + suffixAnswerChoice + "\n")
	}

	return []byte(b.String())
}

// DecodeResult parses a result file. Missing header fields stay at their zero value and are
// listed in the report; unit suffixes are stripped before integers are parsed.
func DecodeResult(id string, content []byte) (models.Result, Report) {
	var report Report
	result := models.Result{ID: id, Answers: map[string]int{}}
	seen := map[string]bool{}

	for lineNo, raw := range splitLines(content) {
		line, _ := cleanLine(raw)

		switch {
		case strings.HasPrefix(line, labelUserID):
			seen[labelUserID] = true
			v, err := strconv.ParseInt(strings.TrimPrefix(line, labelUserID), 10, 64)
			if err != nil {
				report.addf("line %d: user id is not a number", lineNo+1)
				continue
			}
			result.UserID = v
		case strings.HasPrefix(line, labelTestID):
			seen[labelTestID] = true
			result.TestID = strings.TrimPrefix(line, labelTestID)
		case strings.HasPrefix(line, labelTestTitle):
			seen[labelTestTitle] = true
			result.TestTitle = strings.TrimPrefix(line, labelTestTitle)
		case strings.HasPrefix(line, labelScore):
			seen[labelScore] = true
			v, ok := parseWithSuffix(strings.TrimPrefix(line, labelScore), suffixScore)
			if !ok {
				report.addf("line %d: score is not a number", lineNo+1)
				continue
			}
			result.Score = v
		case strings.HasPrefix(line, labelDuration):
			seen[labelDuration] = true
			v, ok := parseWithSuffix(strings.TrimPrefix(line, labelDuration), suffixDuration)
			if !ok {
				report.addf("line %d: duration is not a number", lineNo+1)
				continue
			}
			result.DurationMinutes = v
		case strings.HasPrefix(line, labelCompletedAt):
			seen[labelCompletedAt] = true
			result.CompletedAt = strings.TrimPrefix(line, labelCompletedAt)
		case strings.HasPrefix(line, answerLinePrefix) && strings.Contains(line, ": "):
			key, value, _ := strings.Cut(strings.TrimPrefix(line, answerLinePrefix), ": ")
			v, ok := parseWithSuffix(value, suffixAnswerChoice)
			if !ok {
				report.addf("line %d: answer for question %s is not a number", lineNo+1, key)
				continue
			}
			result.Answers[key] = v
		}
	}

	for _, label := range []string{labelUserID, labelTestID, labelTestTitle, labelScore, labelDuration, labelCompletedAt} {
		if !seen[label] {
			report.addf("missing field %q", strings.TrimSuffix(label, ": "))
		}
	}

	return result, report
}

func parseWithSuffix(value, suffix string) (int, bool) {
	v, err := strconv.Atoi(strings.TrimSpace(strings.TrimSuffix(value, suffix)))
	if err != nil {
		return 0, false
	}
	return v, true
}

// sortedAnswerKeys orders numeric keys numerically and anything else after them lexically.
func sortedAnswerKeys(answers map[string]int) []string {
	keys := make([]string, 0, len(answers))
	for k := range answers {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, errA := strconv.Atoi(keys[i])
		b, errB := strconv.Atoi(keys[j])
		switch {
		case errA == nil && errB == nil:
			return a < b
		case errA == nil:
			return true
		case errB == nil:
			return false
		}
		return keys[i] < keys[j]
	})
	return keys
}
