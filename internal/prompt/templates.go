// Package prompt renders the text fragments injected into model prompts. All
// builders are pure functions of their inputs so outputs can be asserted
// verbatim in tests.
package prompt

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/edulens/quizfeedback-api/internal/models"
)

// NotAttempted marks a question the student never answered.
const NotAttempted = "Not Attempted"

// NotAvailable substitutes any absent date or score in the past-performance block.
const NotAvailable = "N/A"

const feedbackTemplate = `You are a university teacher. You will be provided with detailed information about a student's recent quiz performance, including past performance data if available.
Use this information to analyze the student's current performance and generate personalized feedback. If past performance data is available, compare the current performance with past performance.
Your feedback should be specific to the text of questions/answers where the student made mistakes.

%s

%s

Instructions:

- Analyze Current Performance:

Analyze the texts of questions, correct answers, and the student's answers.
Compare the chosen answers with the correct answers (weight == 100) and incorrect answers (weight == 0).
Calculate the accuracy and identify all the areas where the student made mistakes.
For all the questions where the student made mistakes, please show the reasoning and explanations for the correct answer (as detailed as possible).

- Compare with Past Performance (if available):

If past performance data is available, examine the student's past performance details.
Compare current quiz results with past results to identify improvement or decline.

- Generate Personalized Feedback:

Provide a summary of the student's performance in the current quiz.
Highlight areas of strength and areas needing improvement.
If past performance data is available, compare current performance with past performance to show progress or areas of concern.

- Suggest Ways to Improve:

Provide actionable and specific suggestions for the student to improve in future quizzes.
Include study tips, resources, and strategies tailored to the student's needs.

Example Feedback Structure:

Feedback: [Feedback]
Strengths: [List areas where the student performed well]
Areas for Improvement: [List all the areas where the student made mistakes and show the reasoning for correct answers]
Progress: [Highlight improvements or decline compared to the past quiz]
Suggestions for Improvement: [Provide suggestions for the student to improve in future quizzes]

Please ensure that the feedback is not too general and focuses on the specific context of the question text and answer text of the current quiz.
For all the questions where the student made mistakes, please show the reasoning and explanations for the correct answer (as detailed as possible).`

const queryResponseTemplate = `You are a helpful course assistant. Answer the student's question using only the course material provided below. If the material does not contain the answer, say so instead of guessing.

Question: %s

Course Material:
%s

Answer:`

// FeedbackPrompt combines the current-quiz and past-performance fragments into
// the full feedback-generation prompt.
func FeedbackPrompt(currentQuiz, pastPerformance string) string {
	return fmt.Sprintf(feedbackTemplate, currentQuiz, pastPerformance)
}

// QueryResponsePrompt builds the grounded question-answering prompt from a
// student question and the retrieved course material.
func QueryResponsePrompt(question, material string) string {
	return fmt.Sprintf(queryResponseTemplate, question, material)
}

// CurrentQuizFragment renders one submission and its combined questions into
// the current-quiz block of the feedback prompt.
func CurrentQuizFragment(submission models.Submission, questions []models.QuizQuestion) string {
	var b strings.Builder

	b.WriteString("Current Quiz Details:\n")
	b.WriteString("Quiz Date: ")
	b.WriteString(formatDate(submission.DueDate))
	b.WriteString("\nQuiz Id: ")
	b.WriteString(strconv.FormatInt(submission.QuizID, 10))
	b.WriteString("\nScore: ")
	b.WriteString(formatScore(submission.FinalScore))
	b.WriteString(" / ")
	b.WriteString(formatScore(submission.TotalScore))
	b.WriteString("\n")

	for _, question := range questions {
		fmt.Fprintf(&b, "\n%d | %s : %s\n", question.QuestionID, question.QuestionName, question.QuestionText)

		for i, choice := range question.AnswerChoices {
			fmt.Fprintf(&b, "%d | Id: %d | Text: %s | Weight: %d\n", i+1, choice.AnswerID, choice.AnswerText, choice.Weight)
		}

		if question.UserAnswer != nil {
			fmt.Fprintf(&b, "Student's Choice Id : %d\n", question.UserAnswer.AnswerID)
		} else {
			fmt.Fprintf(&b, "Student's Choice Id : %s\n", NotAttempted)
		}
	}

	return b.String()
}

// PastPerformanceFragment renders the already sorted and truncated historical
// records into the past-performance block. Zero scores render as N/A; that
// mirrors the long-standing behavior downstream consumers expect.
func PastPerformanceFragment(records []models.PastPerformanceRecord) string {
	if len(records) == 0 {
		return "Past Performance: Not Available."
	}

	var b strings.Builder
	b.WriteString("Past Performance:\n")

	for i, record := range records {
		fmt.Fprintf(&b, "\nQuiz %d\n", i+1)
		b.WriteString("Past Quiz Date: ")
		b.WriteString(formatDate(record.DueDate))
		b.WriteString("\nPast Score: ")
		b.WriteString(formatOptionalScore(record.FinalScore))
		b.WriteString(" / ")
		b.WriteString(formatOptionalScore(record.TotalScore))
		b.WriteString("\nPast Feedback: ")
		if record.Feedback != nil {
			b.WriteString(*record.Feedback)
		}
		b.WriteString("\n")
	}

	return b.String()
}

func formatDate(value *time.Time) string {
	if value == nil {
		return NotAvailable
	}
	return value.Format("2006-01-02 15:04:05")
}

func formatScore(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}

func formatOptionalScore(value float64) string {
	if value == 0 {
		return NotAvailable
	}
	return formatScore(value)
}
