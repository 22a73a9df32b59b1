package models

import "time"

// Submission is one quiz submission row from the quiz_to_update sheet. Feedback
// starts absent and is written exactly once per generation run.
type Submission struct {
	SubmissionID      int64      `json:"submission_id" validate:"required"`
	CourseID          int64      `json:"course_id" validate:"required"`
	UserID            int64      `json:"user_id" validate:"required"`
	QuizID            int64      `json:"quiz_id" validate:"required"`
	Attempt           int        `json:"attempt" validate:"min=1"`
	DueDate           *time.Time `json:"due_date"`
	FinalScore        float64    `json:"final_score"`
	TotalScore        float64    `json:"total_score"`
	SubmissionDropped bool       `json:"submission_dropped"`
	QuizDropped       bool       `json:"quiz_dropped"`
	VisibleToEveryone bool       `json:"visible_to_everyone"`
	Feedback          *string    `json:"feedback"`
}

// HasFeedback reports whether feedback has already been generated for this submission.
func (s Submission) HasFeedback() bool {
	return s.Feedback != nil && *s.Feedback != ""
}

// QuestionAnswerRow is one flattened question/answer-choice row from the
// quiz_question_answers sheet: one row per answer choice, question fields repeated.
type QuestionAnswerRow struct {
	CourseID     int64  `json:"course_id" validate:"required"`
	QuizID       int64  `json:"quiz_id" validate:"required"`
	QuestionID   int64  `json:"question_id" validate:"required"`
	QuestionName string `json:"question_name"`
	QuestionType string `json:"question_type"`
	QuestionText string `json:"question_text"`
	AnswerID     int64  `json:"answer_id" validate:"required"`
	AnswerText   string `json:"answer_text"`
	Weight       int    `json:"weight"`
}

// AnswerChoice is one selectable answer for a question. Weight 100 marks the
// correct choice, 0 an incorrect one.
type AnswerChoice struct {
	AnswerID   int64  `json:"answer_id"`
	AnswerText string `json:"answer_text"`
	Weight     int    `json:"weight"`
}

// UserAnswer records which answer choice a student picked for one question of
// one submission.
type UserAnswer struct {
	SubmissionID int64 `json:"submission_id" validate:"required"`
	QuestionID   int64 `json:"question_id" validate:"required"`
	AnswerID     int64 `json:"user_answer"`
}

// PastPerformanceRecord is a historical submission snapshot from the
// quiz_user_past_performance sheet, used to compare a student's current quiz
// against earlier quizzes that already received feedback.
type PastPerformanceRecord struct {
	SubmissionID      int64      `json:"submission_id" validate:"required"`
	CourseID          int64      `json:"course_id" validate:"required"`
	UserID            int64      `json:"user_id" validate:"required"`
	QuizID            int64      `json:"quiz_id" validate:"required"`
	Attempt           int        `json:"attempt" validate:"min=1"`
	DueDate           *time.Time `json:"due_date"`
	FinalScore        float64    `json:"final_score"`
	TotalScore        float64    `json:"total_score"`
	Published         bool       `json:"published"`
	SubmissionDropped bool       `json:"submission_dropped"`
	QuizDropped       bool       `json:"quiz_dropped"`
	VisibleToEveryone bool       `json:"visible_to_everyone"`
	Feedback          *string    `json:"feedback"`
}

// HasFeedback reports whether this historical record carries feedback text.
func (p PastPerformanceRecord) HasFeedback() bool {
	return p.Feedback != nil && *p.Feedback != ""
}

// QuizQuestion is the combined view of one question: its metadata, every answer
// choice in encounter order, and the student's answer when one exists.
type QuizQuestion struct {
	QuestionID    int64          `json:"question_id"`
	QuestionName  string         `json:"question_name"`
	QuestionType  string         `json:"question_type"`
	QuestionText  string         `json:"question_text"`
	AnswerChoices []AnswerChoice `json:"answer_choices"`
	UserAnswer    *UserAnswer    `json:"user_answer,omitempty"`
}
