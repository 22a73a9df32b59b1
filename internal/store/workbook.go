package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"

	"github.com/edulens/quizfeedback-api/internal/models"
)

// Sheet names of the persisted workbook. These match the upstream export and
// are part of the on-disk contract.
const (
	SheetSubmissions     = "quiz_to_update"
	SheetQuestionAnswers = "quiz_question_answers"
	SheetUserAnswers     = "quiz_user_answer"
	SheetPastPerformance = "quiz_user_past_performance"
)

const timeLayout = "2006-01-02 15:04:05"

// Workbook holds the full record store in memory: all four sheets are read at
// open and written back together on save.
type Workbook struct {
	Submissions     []models.Submission
	QuestionAnswers []models.QuestionAnswerRow
	UserAnswers     []models.UserAnswer
	PastPerformance []models.PastPerformanceRecord

	path      string
	validator *validator.Validate
	logger    zerolog.Logger
}

// Open reads the workbook at path into memory, validating every row. A
// malformed or invalid row fails the open with its sheet and row number.
func Open(path string, validate *validator.Validate, logger zerolog.Logger) (*Workbook, error) {
	file, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", path, err)
	}
	defer file.Close()

	wb := &Workbook{
		path:      path,
		validator: validate,
		logger:    logger.With().Str("component", "workbook_store").Logger(),
	}

	if err := wb.loadSubmissions(file); err != nil {
		return nil, err
	}
	if err := wb.loadQuestionAnswers(file); err != nil {
		return nil, err
	}
	if err := wb.loadUserAnswers(file); err != nil {
		return nil, err
	}
	if err := wb.loadPastPerformance(file); err != nil {
		return nil, err
	}

	wb.logger.Info().
		Str("path", path).
		Int("submissions", len(wb.Submissions)).
		Int("question_answers", len(wb.QuestionAnswers)).
		Int("user_answers", len(wb.UserAnswers)).
		Int("past_performance", len(wb.PastPerformance)).
		Msg("workbook loaded")

	return wb, nil
}

// Path returns the file the workbook was opened from.
func (w *Workbook) Path() string {
	return w.path
}

// Save writes all four sheets back to the workbook path as one atomic
// operation: the file is assembled in a temporary sibling and renamed over the
// original only after a successful write.
func (w *Workbook) Save() error {
	file := excelize.NewFile()
	defer file.Close()

	if err := w.writeSubmissions(file); err != nil {
		return err
	}
	if err := w.writeQuestionAnswers(file); err != nil {
		return err
	}
	if err := w.writeUserAnswers(file); err != nil {
		return err
	}
	if err := w.writePastPerformance(file); err != nil {
		return err
	}

	// excelize seeds new files with a default sheet that is not part of the layout.
	if index, err := file.GetSheetIndex("Sheet1"); err == nil && index >= 0 {
		if err := file.DeleteSheet("Sheet1"); err != nil {
			return fmt.Errorf("drop default sheet: %w", err)
		}
	}

	dir := filepath.Dir(w.path)
	tmp, err := os.CreateTemp(dir, ".quizfeedback-*.xlsx")
	if err != nil {
		return fmt.Errorf("create temp workbook: %w", err)
	}
	tmpPath := tmp.Name()
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp workbook: %w", err)
	}

	if err := file.SaveAs(tmpPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("write workbook: %w", err)
	}

	if err := os.Rename(tmpPath, w.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replace workbook %s: %w", w.path, err)
	}

	w.logger.Info().Str("path", w.path).Msg("workbook saved")
	return nil
}

func (w *Workbook) loadSubmissions(file *excelize.File) error {
	rows, err := sheetRows(file, SheetSubmissions)
	if err != nil {
		return err
	}

	w.Submissions = make([]models.Submission, 0, len(rows.records))
	for i, record := range rows.records {
		submission := models.Submission{
			SubmissionID:      record.intField("submission_id"),
			CourseID:          record.intField("course_id"),
			UserID:            record.intField("user_id"),
			QuizID:            record.intField("quiz_id"),
			Attempt:           int(record.intField("attempt")),
			DueDate:           record.timeField("due_date"),
			FinalScore:        record.floatField("final_score"),
			TotalScore:        record.floatField("total_score"),
			SubmissionDropped: record.boolField("submission_dropped"),
			QuizDropped:       record.boolField("quiz_dropped"),
			VisibleToEveryone: record.boolField("visible_to_everyone"),
			Feedback:          record.textField("feedback"),
		}
		if record.err != nil {
			return rowError(SheetSubmissions, i, record.err)
		}
		if err := w.validator.Struct(submission); err != nil {
			return rowError(SheetSubmissions, i, err)
		}
		w.Submissions = append(w.Submissions, submission)
	}
	return nil
}

func (w *Workbook) loadQuestionAnswers(file *excelize.File) error {
	rows, err := sheetRows(file, SheetQuestionAnswers)
	if err != nil {
		return err
	}

	w.QuestionAnswers = make([]models.QuestionAnswerRow, 0, len(rows.records))
	for i, record := range rows.records {
		row := models.QuestionAnswerRow{
			CourseID:     record.intField("course_id"),
			QuizID:       record.intField("quiz_id"),
			QuestionID:   record.intField("question_id"),
			QuestionName: record.stringField("question_name"),
			QuestionType: record.stringField("question_type"),
			QuestionText: record.stringField("question_text"),
			AnswerID:     record.intField("answer_id"),
			AnswerText:   record.stringField("answer_text"),
			Weight:       int(record.intField("weight")),
		}
		if record.err != nil {
			return rowError(SheetQuestionAnswers, i, record.err)
		}
		if err := w.validator.Struct(row); err != nil {
			return rowError(SheetQuestionAnswers, i, err)
		}
		w.QuestionAnswers = append(w.QuestionAnswers, row)
	}
	return nil
}

func (w *Workbook) loadUserAnswers(file *excelize.File) error {
	rows, err := sheetRows(file, SheetUserAnswers)
	if err != nil {
		return err
	}

	w.UserAnswers = make([]models.UserAnswer, 0, len(rows.records))
	for i, record := range rows.records {
		answer := models.UserAnswer{
			SubmissionID: record.intField("submission_id"),
			QuestionID:   record.intField("question_id"),
			AnswerID:     record.intField("user_answer"),
		}
		if record.err != nil {
			return rowError(SheetUserAnswers, i, record.err)
		}
		if err := w.validator.Struct(answer); err != nil {
			return rowError(SheetUserAnswers, i, err)
		}
		w.UserAnswers = append(w.UserAnswers, answer)
	}
	return nil
}

func (w *Workbook) loadPastPerformance(file *excelize.File) error {
	rows, err := sheetRows(file, SheetPastPerformance)
	if err != nil {
		return err
	}

	w.PastPerformance = make([]models.PastPerformanceRecord, 0, len(rows.records))
	for i, record := range rows.records {
		past := models.PastPerformanceRecord{
			SubmissionID:      record.intField("submission_id"),
			CourseID:          record.intField("course_id"),
			UserID:            record.intField("user_id"),
			QuizID:            record.intField("quiz_id"),
			Attempt:           int(record.intField("attempt")),
			DueDate:           record.timeField("due_date"),
			FinalScore:        record.floatField("final_score"),
			TotalScore:        record.floatField("total_score"),
			Published:         record.boolField("published"),
			SubmissionDropped: record.boolField("submission_dropped"),
			QuizDropped:       record.boolField("quiz_dropped"),
			VisibleToEveryone: record.boolField("visible_to_everyone"),
			Feedback:          record.textField("feedback"),
		}
		if record.err != nil {
			return rowError(SheetPastPerformance, i, record.err)
		}
		if err := w.validator.Struct(past); err != nil {
			return rowError(SheetPastPerformance, i, err)
		}
		w.PastPerformance = append(w.PastPerformance, past)
	}
	return nil
}

var submissionColumns = []string{
	"submission_id", "course_id", "user_id", "quiz_id", "attempt", "due_date",
	"final_score", "total_score", "submission_dropped", "quiz_dropped",
	"visible_to_everyone", "feedback",
}

func (w *Workbook) writeSubmissions(file *excelize.File) error {
	rows := make([][]any, 0, len(w.Submissions))
	for _, s := range w.Submissions {
		rows = append(rows, []any{
			s.SubmissionID, s.CourseID, s.UserID, s.QuizID, s.Attempt,
			formatTime(s.DueDate), s.FinalScore, s.TotalScore,
			formatBool(s.SubmissionDropped), formatBool(s.QuizDropped),
			formatBool(s.VisibleToEveryone), formatText(s.Feedback),
		})
	}
	return writeSheet(file, SheetSubmissions, submissionColumns, rows)
}

var questionAnswerColumns = []string{
	"course_id", "quiz_id", "question_id", "question_name", "question_type",
	"question_text", "answer_id", "answer_text", "weight",
}

func (w *Workbook) writeQuestionAnswers(file *excelize.File) error {
	rows := make([][]any, 0, len(w.QuestionAnswers))
	for _, q := range w.QuestionAnswers {
		rows = append(rows, []any{
			q.CourseID, q.QuizID, q.QuestionID, q.QuestionName, q.QuestionType,
			q.QuestionText, q.AnswerID, q.AnswerText, q.Weight,
		})
	}
	return writeSheet(file, SheetQuestionAnswers, questionAnswerColumns, rows)
}

var userAnswerColumns = []string{"submission_id", "question_id", "user_answer"}

func (w *Workbook) writeUserAnswers(file *excelize.File) error {
	rows := make([][]any, 0, len(w.UserAnswers))
	for _, a := range w.UserAnswers {
		rows = append(rows, []any{a.SubmissionID, a.QuestionID, a.AnswerID})
	}
	return writeSheet(file, SheetUserAnswers, userAnswerColumns, rows)
}

var pastPerformanceColumns = []string{
	"submission_id", "course_id", "user_id", "quiz_id", "attempt", "due_date",
	"final_score", "total_score", "published", "submission_dropped",
	"quiz_dropped", "visible_to_everyone", "feedback",
}

func (w *Workbook) writePastPerformance(file *excelize.File) error {
	rows := make([][]any, 0, len(w.PastPerformance))
	for _, p := range w.PastPerformance {
		rows = append(rows, []any{
			p.SubmissionID, p.CourseID, p.UserID, p.QuizID, p.Attempt,
			formatTime(p.DueDate), p.FinalScore, p.TotalScore,
			formatBool(p.Published), formatBool(p.SubmissionDropped),
			formatBool(p.QuizDropped), formatBool(p.VisibleToEveryone),
			formatText(p.Feedback),
		})
	}
	return writeSheet(file, SheetPastPerformance, pastPerformanceColumns, rows)
}

func writeSheet(file *excelize.File, sheet string, columns []string, rows [][]any) error {
	if _, err := file.NewSheet(sheet); err != nil {
		return fmt.Errorf("create sheet %s: %w", sheet, err)
	}

	header := make([]any, len(columns))
	for i, column := range columns {
		header[i] = column
	}
	if err := file.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("write header of %s: %w", sheet, err)
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("address row %d of %s: %w", i+2, sheet, err)
		}
		values := row
		if err := file.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("write row %d of %s: %w", i+2, sheet, err)
		}
	}
	return nil
}

// sheetRecord is one data row keyed by the sheet's header. Field accessors
// record the first conversion error instead of failing fast so a row can be
// mapped in one pass.
type sheetRecord struct {
	columns map[string]int
	cells   []string
	err     error
}

type sheetData struct {
	records []sheetRecord
}

func sheetRows(file *excelize.File, sheet string) (sheetData, error) {
	rows, err := file.GetRows(sheet)
	if err != nil {
		return sheetData{}, fmt.Errorf("read sheet %s: %w", sheet, err)
	}
	if len(rows) == 0 {
		return sheetData{}, fmt.Errorf("sheet %s has no header row", sheet)
	}

	columns := make(map[string]int, len(rows[0]))
	for i, name := range rows[0] {
		columns[strings.TrimSpace(strings.ToLower(name))] = i
	}

	data := sheetData{records: make([]sheetRecord, 0, len(rows)-1)}
	for _, cells := range rows[1:] {
		if isBlankRow(cells) {
			continue
		}
		data.records = append(data.records, sheetRecord{columns: columns, cells: cells})
	}
	return data, nil
}

func isBlankRow(cells []string) bool {
	for _, cell := range cells {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func (r *sheetRecord) cell(column string) (string, bool) {
	index, ok := r.columns[column]
	if !ok || index >= len(r.cells) {
		return "", false
	}
	return strings.TrimSpace(r.cells[index]), true
}

func (r *sheetRecord) fail(column string, err error) {
	if r.err == nil {
		r.err = fmt.Errorf("column %s: %w", column, err)
	}
}

func (r *sheetRecord) intField(column string) int64 {
	value, ok := r.cell(column)
	if !ok || value == "" {
		return 0
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		r.fail(column, err)
		return 0
	}
	return int64(parsed)
}

func (r *sheetRecord) floatField(column string) float64 {
	value, ok := r.cell(column)
	if !ok || value == "" {
		return 0
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		r.fail(column, err)
		return 0
	}
	return parsed
}

func (r *sheetRecord) boolField(column string) bool {
	value, ok := r.cell(column)
	if !ok || value == "" {
		return false
	}
	switch strings.ToLower(value) {
	case "1", "true", "yes":
		return true
	case "0", "false", "no":
		return false
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		r.fail(column, fmt.Errorf("not a boolean: %q", value))
		return false
	}
	return parsed != 0
}

func (r *sheetRecord) stringField(column string) string {
	value, _ := r.cell(column)
	return value
}

func (r *sheetRecord) textField(column string) *string {
	value, ok := r.cell(column)
	if !ok || value == "" {
		return nil
	}
	return &value
}

var timeLayouts = []string{timeLayout, "2006-01-02", time.RFC3339, "1/2/06 15:04", "01-02-06 15:04"}

func (r *sheetRecord) timeField(column string) *time.Time {
	value, ok := r.cell(column)
	if !ok || value == "" {
		return nil
	}
	for _, layout := range timeLayouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return &parsed
		}
	}
	// Excel stores dates as serial day counts when the cell is date-formatted.
	if serial, err := strconv.ParseFloat(value, 64); err == nil {
		if parsed, err := excelize.ExcelDateToTime(serial, false); err == nil {
			return &parsed
		}
	}
	r.fail(column, fmt.Errorf("unrecognized timestamp %q", value))
	return nil
}

func formatTime(value *time.Time) string {
	if value == nil {
		return ""
	}
	return value.Format(timeLayout)
}

func formatBool(value bool) int {
	if value {
		return 1
	}
	return 0
}

func formatText(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

func rowError(sheet string, index int, err error) error {
	// +2 converts the zero-based record index to the 1-based sheet row after the header.
	return fmt.Errorf("sheet %s row %d: %w", sheet, index+2, err)
}
