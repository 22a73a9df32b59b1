package service

import "github.com/edulens/quizfeedback-api/internal/models"

// CombineQuestionsAndAnswers joins the flattened question/answer-choice rows
// of a quiz with one submission's user answers. The result carries exactly one
// entry per distinct question in encounter order, each with its answer choices
// in encounter order and at most one merged user answer. Answers referencing a
// question that never appears in the rows are dropped, never invented. When
// several answers share a question the last one wins.
func CombineQuestionsAndAnswers(rows []models.QuestionAnswerRow, answers []models.UserAnswer) []models.QuizQuestion {
	combined := make([]models.QuizQuestion, 0)
	index := make(map[int64]int, len(rows))

	for _, row := range rows {
		i, seen := index[row.QuestionID]
		if !seen {
			combined = append(combined, models.QuizQuestion{
				QuestionID:   row.QuestionID,
				QuestionName: row.QuestionName,
				QuestionType: row.QuestionType,
				QuestionText: row.QuestionText,
			})
			i = len(combined) - 1
			index[row.QuestionID] = i
		}
		combined[i].AnswerChoices = append(combined[i].AnswerChoices, models.AnswerChoice{
			AnswerID:   row.AnswerID,
			AnswerText: row.AnswerText,
			Weight:     row.Weight,
		})
	}

	for _, answer := range answers {
		i, seen := index[answer.QuestionID]
		if !seen {
			continue
		}
		merged := answer
		combined[i].UserAnswer = &merged
	}

	return combined
}
