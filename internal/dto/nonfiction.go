package dto

import "github.com/noah-isme/studyhub-api/internal/models"

// QuestionInput describes one question of a new mock test.
type QuestionInput struct {
	Content       string   `json:"content" validate:"required"`
	Options       []string `json:"options" validate:"min=1,max=5,dive,required,singleline"`
	CorrectAnswer int      `json:"correct_answer" validate:"required,min=1,max=5"`
	Explanation   string   `json:"explanation" validate:"singleline"`
}

// CreateTestRequest is the admin payload for adding a mock test.
type CreateTestRequest struct {
	ID          string          `json:"id" validate:"required,max=100"`
	Title       string          `json:"title" validate:"required,singleline,max=200"`
	Description string          `json:"description" validate:"singleline,max=500"`
	Passage     string          `json:"passage" validate:"required"`
	Questions   []QuestionInput `json:"questions" validate:"dive"`
}

// SubmitTestRequest carries a learner's answers keyed by 1-based question ordinal.
type SubmitTestRequest struct {
	Answers  map[string]int `json:"answers" validate:"omitempty,dive,keys,numeric,endkeys,min=1,max=5"`
	Duration int            `json:"duration" validate:"min=0,max=1440"`
}

// SubmitTestResponse reports the grade and the id of the stored result.
type SubmitTestResponse struct {
	ResultID       string `json:"result_id"`
	Score          int    `json:"score"`
	CorrectCount   int    `json:"correct_count"`
	TotalQuestions int    `json:"total_questions"`
}

// AdminTestItem is a test summary with the number of stored results, for the admin console.
type AdminTestItem struct {
	models.TestSummary
	ResultCount int `json:"result_count"`
}
