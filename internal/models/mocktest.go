package models

import "time"

// MaxQuestionOptions is the number of circled-digit option glyphs a question can carry.
const MaxQuestionOptions = 5

// MockTest is a reading-comprehension test stored as one text file.
type MockTest struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Passage     string     `json:"passage"`
	Questions   []Question `json:"questions"`
}

// Question is one multiple-choice item. CorrectAnswer is 1-based and not range-checked on decode.
type Question struct {
	Number        int      `json:"number"`
	Content       string   `json:"content"`
	Options       []string `json:"options"`
	CorrectAnswer int      `json:"correct_answer,omitempty"`
	Explanation   string   `json:"explanation,omitempty"`
}

// TestSummary is the list view of a MockTest.
type TestSummary struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	Description   string `json:"description"`
	QuestionCount int    `json:"question_count"`
}

// Summary derives the list view of the test.
func (t MockTest) Summary() TestSummary {
	return TestSummary{
		ID:            t.ID,
		Title:         t.Title,
		Description:   t.Description,
		QuestionCount: len(t.Questions),
	}
}

// WithoutAnswers returns a copy safe to hand to a test taker: answer keys and explanations are cleared.
func (t MockTest) WithoutAnswers() MockTest {
	questions := make([]Question, len(t.Questions))
	for i, q := range t.Questions {
		q.CorrectAnswer = 0
		q.Explanation = ""
		questions[i] = q
	}
	t.Questions = questions
	return t
}

// GradeResult is the outcome of grading an answer set against a test.
type GradeResult struct {
	TestID         string `json:"test_id"`
	Score          int    `json:"score"`
	CorrectCount   int    `json:"correct_count"`
	TotalQuestions int    `json:"total_questions"`
}

// Result is a persisted quiz submission. It is never modified after it is written.
type Result struct {
	ID              string         `json:"id"`
	UserID          int64          `json:"user_id"`
	TestID          string         `json:"test_id"`
	TestTitle       string         `json:"test_title"`
	Score           int            `json:"score"`
	DurationMinutes int            `json:"duration"`
	CompletedAt     string         `json:"completed_at"`
	Answers         map[string]int `json:"answers"`
}

// ResultDetail pairs a stored result with the test it was taken against.
type ResultDetail struct {
	Result       Result    `json:"result"`
	Test         *MockTest `json:"test,omitempty"`
	CorrectCount int       `json:"correct_count"`
}

// ResultTimestampLayout formats the timestamp embedded in result and ticket identifiers.
const ResultTimestampLayout = "20060102_150405"

// CompletedAtLayout matches the ISO-8601 text stored in result and ticket files.
const CompletedAtLayout = "2006-01-02T15:04:05.000000"

// FormatStoredTime renders t the way stored records expect.
func FormatStoredTime(t time.Time) string {
	return t.Format(CompletedAtLayout)
}
