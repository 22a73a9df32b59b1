package repository

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/samber/lo"

	"github.com/edulens/quizfeedback-api/internal/models"
	"github.com/edulens/quizfeedback-api/internal/store"
)

// DefaultPastPerformanceLimit caps how many historical records feed a prompt.
const DefaultPastPerformanceLimit = 3

// ErrSubmissionNotFound indicates a feedback update referenced an unknown submission.
var ErrSubmissionNotFound = errors.New("submission not found")

// QuizRepository exposes read filters over the loaded workbook plus the single
// mutation of the pipeline, the feedback write-back. All reads are pure: they
// never mutate the workbook and an empty result is not an error.
type QuizRepository interface {
	EligibleSubmissions(courseID, userID int64, limit int) []models.Submission
	QuestionAnswers(courseID, quizID int64) []models.QuestionAnswerRow
	UserAnswers(submissionID int64) []models.UserAnswer
	PastPerformance(courseID, userID int64, before time.Time, limit int) []models.PastPerformanceRecord
	UpdateFeedback(submissionID int64, feedback string) error
}

type quizRepository struct {
	workbook *store.Workbook
	now      func() time.Time
}

// NewQuizRepository builds a repository over an opened workbook.
func NewQuizRepository(workbook *store.Workbook) QuizRepository {
	return &quizRepository{
		workbook: workbook,
		now:      time.Now,
	}
}

// EligibleSubmissions returns, in store order, the submissions due for new
// feedback: first attempt, not dropped at either level, visible, feedback
// still absent, matching course and user, with a due date in the past. A
// positive limit truncates the filtered result.
func (r *quizRepository) EligibleSubmissions(courseID, userID int64, limit int) []models.Submission {
	now := r.now()

	eligible := lo.Filter(r.workbook.Submissions, func(s models.Submission, _ int) bool {
		return s.SubmissionID != 0 &&
			s.Attempt == 1 &&
			!s.SubmissionDropped &&
			!s.QuizDropped &&
			s.VisibleToEveryone &&
			!s.HasFeedback() &&
			s.CourseID == courseID &&
			s.UserID == userID &&
			s.DueDate != nil && s.DueDate.Before(now)
	})

	if limit > 0 && len(eligible) > limit {
		eligible = eligible[:limit]
	}
	return eligible
}

// QuestionAnswers returns the flattened question/answer-choice rows of one quiz.
func (r *quizRepository) QuestionAnswers(courseID, quizID int64) []models.QuestionAnswerRow {
	return lo.Filter(r.workbook.QuestionAnswers, func(q models.QuestionAnswerRow, _ int) bool {
		return q.CourseID == courseID && q.QuizID == quizID
	})
}

// UserAnswers returns the answers a student gave on one submission.
func (r *quizRepository) UserAnswers(submissionID int64) []models.UserAnswer {
	return lo.Filter(r.workbook.UserAnswers, func(a models.UserAnswer, _ int) bool {
		return a.SubmissionID == submissionID
	})
}

// PastPerformance returns historical records that already carry feedback, due
// strictly before the given quiz date, sorted most recent first and truncated
// to limit. Most-recent-first keeps the comparison anchored to the quizzes the
// student still remembers.
func (r *quizRepository) PastPerformance(courseID, userID int64, before time.Time, limit int) []models.PastPerformanceRecord {
	if limit <= 0 {
		limit = DefaultPastPerformanceLimit
	}

	past := lo.Filter(r.workbook.PastPerformance, func(p models.PastPerformanceRecord, _ int) bool {
		return p.Attempt == 1 &&
			p.Published &&
			p.VisibleToEveryone &&
			!p.SubmissionDropped &&
			!p.QuizDropped &&
			p.CourseID == courseID &&
			p.UserID == userID &&
			p.DueDate != nil && p.DueDate.Before(before) &&
			p.HasFeedback()
	})

	sort.SliceStable(past, func(i, j int) bool {
		return past[i].DueDate.After(*past[j].DueDate)
	})

	if len(past) > limit {
		past = past[:limit]
	}
	return past
}

// UpdateFeedback writes generated feedback onto the submission and mirrors it
// onto every past-performance row for the same quiz and user. The mirror is a
// denormalization kept consistent here by explicit dual update.
func (r *quizRepository) UpdateFeedback(submissionID int64, feedback string) error {
	index := -1
	for i, s := range r.workbook.Submissions {
		if s.SubmissionID == submissionID {
			index = i
			break
		}
	}
	if index < 0 {
		return fmt.Errorf("update feedback for submission %d: %w", submissionID, ErrSubmissionNotFound)
	}

	submission := &r.workbook.Submissions[index]
	submission.Feedback = &feedback

	for i := range r.workbook.PastPerformance {
		past := &r.workbook.PastPerformance[i]
		if past.QuizID == submission.QuizID && past.UserID == submission.UserID {
			past.Feedback = &feedback
		}
	}
	return nil
}
