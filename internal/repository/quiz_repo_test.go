package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/edulens/quizfeedback-api/internal/models"
	"github.com/edulens/quizfeedback-api/internal/store"
)

const (
	testCourse = int64(395298)
	testUser   = int64(1280512)
)

func strPtr(s string) *string { return &s }

func timePtr(t time.Time) *time.Time { return &t }

func baseSubmission(id int64, due time.Time) models.Submission {
	return models.Submission{
		SubmissionID:      id,
		CourseID:          testCourse,
		UserID:            testUser,
		QuizID:            id * 10,
		Attempt:           1,
		DueDate:           timePtr(due),
		FinalScore:        8,
		TotalScore:        10,
		VisibleToEveryone: true,
	}
}

func newTestRepo(wb *store.Workbook, now time.Time) *quizRepository {
	return &quizRepository{workbook: wb, now: func() time.Time { return now }}
}

func TestEligibleSubmissionsPredicateClauses(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	due := now.Add(-24 * time.Hour)

	eligible := baseSubmission(1, due)

	secondAttempt := baseSubmission(2, due)
	secondAttempt.Attempt = 2

	dropped := baseSubmission(3, due)
	dropped.SubmissionDropped = true

	quizDropped := baseSubmission(4, due)
	quizDropped.QuizDropped = true

	hidden := baseSubmission(5, due)
	hidden.VisibleToEveryone = false

	alreadyFed := baseSubmission(6, due)
	alreadyFed.Feedback = strPtr("existing feedback")

	otherCourse := baseSubmission(7, due)
	otherCourse.CourseID = 999

	otherUser := baseSubmission(8, due)
	otherUser.UserID = 999

	notDueYet := baseSubmission(9, now.Add(24*time.Hour))

	noDueDate := baseSubmission(10, due)
	noDueDate.DueDate = nil

	wb := &store.Workbook{Submissions: []models.Submission{
		eligible, secondAttempt, dropped, quizDropped, hidden,
		alreadyFed, otherCourse, otherUser, notDueYet, noDueDate,
	}}

	repo := newTestRepo(wb, now)
	result := repo.EligibleSubmissions(testCourse, testUser, 0)

	require.Len(t, result, 1)
	require.Equal(t, int64(1), result[0].SubmissionID)
}

func TestEligibleSubmissionsLimitPreservesStoreOrder(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	due := now.Add(-time.Hour)

	wb := &store.Workbook{Submissions: []models.Submission{
		baseSubmission(1, due), baseSubmission(2, due), baseSubmission(3, due),
	}}

	repo := newTestRepo(wb, now)
	result := repo.EligibleSubmissions(testCourse, testUser, 2)

	require.Len(t, result, 2)
	require.Equal(t, int64(1), result[0].SubmissionID)
	require.Equal(t, int64(2), result[1].SubmissionID)
}

func TestEligibleSubmissionsNoMatchesIsEmpty(t *testing.T) {
	repo := newTestRepo(&store.Workbook{}, time.Now())
	require.Empty(t, repo.EligibleSubmissions(testCourse, testUser, 0))
}

func pastRecord(id int64, due time.Time) models.PastPerformanceRecord {
	return models.PastPerformanceRecord{
		SubmissionID:      id,
		CourseID:          testCourse,
		UserID:            testUser,
		QuizID:            id * 10,
		Attempt:           1,
		DueDate:           timePtr(due),
		FinalScore:        7,
		TotalScore:        10,
		Published:         true,
		VisibleToEveryone: true,
		Feedback:          strPtr("previous feedback"),
	}
}

func TestPastPerformanceSortedDescendingAndTruncated(t *testing.T) {
	quizDate := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)

	january := pastRecord(1, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	march := pastRecord(2, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	february := pastRecord(3, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC))

	wb := &store.Workbook{PastPerformance: []models.PastPerformanceRecord{january, march, february}}
	repo := newTestRepo(wb, quizDate)

	result := repo.PastPerformance(testCourse, testUser, quizDate, 2)

	require.Len(t, result, 2)
	require.Equal(t, int64(2), result[0].SubmissionID)
	require.Equal(t, int64(3), result[1].SubmissionID)
}

func TestPastPerformanceExcludesIneligibleRecords(t *testing.T) {
	quizDate := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	due := quizDate.Add(-30 * 24 * time.Hour)

	ok := pastRecord(1, due)

	noFeedback := pastRecord(2, due)
	noFeedback.Feedback = nil

	unpublished := pastRecord(3, due)
	unpublished.Published = false

	afterQuiz := pastRecord(4, quizDate.Add(time.Hour))

	dropped := pastRecord(5, due)
	dropped.QuizDropped = true

	wb := &store.Workbook{PastPerformance: []models.PastPerformanceRecord{ok, noFeedback, unpublished, afterQuiz, dropped}}
	repo := newTestRepo(wb, quizDate)

	result := repo.PastPerformance(testCourse, testUser, quizDate, 0)

	require.Len(t, result, 1)
	require.Equal(t, int64(1), result[0].SubmissionID)
}

func TestUpdateFeedbackPropagatesToPastPerformance(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	due := now.Add(-time.Hour)

	submission := baseSubmission(1, due)

	mirrored := pastRecord(7, due)
	mirrored.QuizID = submission.QuizID

	unrelated := pastRecord(8, due)

	wb := &store.Workbook{
		Submissions:     []models.Submission{submission},
		PastPerformance: []models.PastPerformanceRecord{mirrored, unrelated},
	}
	repo := newTestRepo(wb, now)

	require.NoError(t, repo.UpdateFeedback(1, "great improvement"))

	require.NotNil(t, wb.Submissions[0].Feedback)
	require.Equal(t, "great improvement", *wb.Submissions[0].Feedback)
	require.Equal(t, "great improvement", *wb.PastPerformance[0].Feedback)
	require.Equal(t, "previous feedback", *wb.PastPerformance[1].Feedback)
}

func TestUpdateFeedbackUnknownSubmission(t *testing.T) {
	repo := newTestRepo(&store.Workbook{}, time.Now())
	err := repo.UpdateFeedback(42, "text")
	require.ErrorIs(t, err, ErrSubmissionNotFound)
}

func TestEligibleSubmissionsExcludedAfterFeedbackWritten(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	wb := &store.Workbook{Submissions: []models.Submission{baseSubmission(1, now.Add(-time.Hour))}}
	repo := newTestRepo(wb, now)

	require.Len(t, repo.EligibleSubmissions(testCourse, testUser, 0), 1)

	require.NoError(t, repo.UpdateFeedback(1, "done"))

	require.Empty(t, repo.EligibleSubmissions(testCourse, testUser, 0))
}

func TestUserAnswersFiltersBySubmission(t *testing.T) {
	wb := &store.Workbook{UserAnswers: []models.UserAnswer{
		{SubmissionID: 1, QuestionID: 11, AnswerID: 111},
		{SubmissionID: 2, QuestionID: 11, AnswerID: 112},
		{SubmissionID: 1, QuestionID: 12, AnswerID: 121},
	}}
	repo := newTestRepo(wb, time.Now())

	result := repo.UserAnswers(1)
	require.Len(t, result, 2)
	require.Equal(t, int64(111), result[0].AnswerID)
	require.Equal(t, int64(121), result[1].AnswerID)
}
