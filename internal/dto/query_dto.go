package dto

// AskRequest is the payload for a course question.
type AskRequest struct {
	Question string `json:"question" validate:"required,min=3"`
	TopK     int    `json:"top_k" validate:"omitempty,min=1,max=20"`
}

// FeedbackRunRequest triggers a feedback generation run for one student.
type FeedbackRunRequest struct {
	UserID int64 `json:"user_id" validate:"required,gt=0"`
	Limit  int   `json:"limit" validate:"omitempty,min=1"`
}
