package service

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/edulens/quizfeedback-api/internal/models"
)

func questionRow(questionID, answerID int64, weight int) models.QuestionAnswerRow {
	return models.QuestionAnswerRow{
		CourseID:     1,
		QuizID:       10,
		QuestionID:   questionID,
		QuestionName: "name",
		QuestionType: "multiple_choice_question",
		QuestionText: "text",
		AnswerID:     answerID,
		AnswerText:   "answer",
		Weight:       weight,
	}
}

func TestCombineQuestionsAndAnswersJoinCompleteness(t *testing.T) {
	rows := []models.QuestionAnswerRow{
		questionRow(1, 11, 100),
		questionRow(1, 12, 0),
		questionRow(2, 21, 100),
		questionRow(2, 22, 0),
	}
	answers := []models.UserAnswer{
		{SubmissionID: 5, QuestionID: 1, AnswerID: 12},
	}

	combined := CombineQuestionsAndAnswers(rows, answers)

	require.Len(t, combined, 2)

	require.Equal(t, int64(1), combined[0].QuestionID)
	require.Len(t, combined[0].AnswerChoices, 2)
	require.NotNil(t, combined[0].UserAnswer)
	require.Equal(t, int64(12), combined[0].UserAnswer.AnswerID)

	require.Equal(t, int64(2), combined[1].QuestionID)
	require.Len(t, combined[1].AnswerChoices, 2)
	require.Nil(t, combined[1].UserAnswer)
}

func TestCombineQuestionsAndAnswersPreservesEncounterOrder(t *testing.T) {
	rows := []models.QuestionAnswerRow{
		questionRow(3, 31, 0),
		questionRow(1, 11, 100),
		questionRow(3, 32, 100),
		questionRow(1, 12, 0),
	}

	combined := CombineQuestionsAndAnswers(rows, nil)

	require.Len(t, combined, 2)
	require.Equal(t, int64(3), combined[0].QuestionID)
	require.Equal(t, int64(31), combined[0].AnswerChoices[0].AnswerID)
	require.Equal(t, int64(32), combined[0].AnswerChoices[1].AnswerID)
	require.Equal(t, int64(1), combined[1].QuestionID)
}

func TestCombineQuestionsAndAnswersDropsUnknownQuestions(t *testing.T) {
	rows := []models.QuestionAnswerRow{questionRow(1, 11, 100)}
	answers := []models.UserAnswer{
		{SubmissionID: 5, QuestionID: 99, AnswerID: 991},
	}

	combined := CombineQuestionsAndAnswers(rows, answers)

	require.Len(t, combined, 1)
	require.Nil(t, combined[0].UserAnswer)
}

// Duplicate answers for one question keep only the last row. Flagged for
// testers: upstream exports occasionally carry duplicates.
func TestCombineQuestionsAndAnswersLastWriteWins(t *testing.T) {
	rows := []models.QuestionAnswerRow{questionRow(1, 11, 100)}
	answers := []models.UserAnswer{
		{SubmissionID: 5, QuestionID: 1, AnswerID: 11},
		{SubmissionID: 5, QuestionID: 1, AnswerID: 12},
	}

	combined := CombineQuestionsAndAnswers(rows, answers)

	require.Len(t, combined, 1)
	require.NotNil(t, combined[0].UserAnswer)
	require.Equal(t, int64(12), combined[0].UserAnswer.AnswerID)
}

func TestCombineQuestionsAndAnswersEmptyInput(t *testing.T) {
	require.Empty(t, CombineQuestionsAndAnswers(nil, nil))
}
