// Package scoring computes attempt results from an exam definition and its
// responses. Everything here is deterministic and side-effect free so the
// same functions serve the live results view, history recording, and the
// retake-mistakes flow.
package scoring

import (
	"fmt"
	"math"

	"github.com/acemcq/acemcq/internal/model"
)

// Compute walks the responses positionally against the exam's questions and
// returns the aggregate summary. Unanswered questions contribute zero to the
// total score. TimeTakenSec is left at zero; callers that track elapsed time
// fill it in.
func Compute(exam *model.Exam, responses []model.Response) model.ResultSummary {
	var sum model.ResultSummary
	for i, q := range exam.Questions {
		if i >= len(responses) || !responses[i].Answered() {
			sum.UnansweredCount++
			continue
		}
		if responses[i].SelectedIndex == q.CorrectIndex {
			sum.CorrectCount++
			sum.TotalScore += exam.Marking.Correct
		} else {
			sum.IncorrectCount++
			sum.TotalScore += exam.Marking.Wrong
		}
	}
	if n := len(exam.Questions); n > 0 {
		sum.Accuracy = float64(sum.CorrectCount) / float64(n) * 100
	}
	return sum
}

// Percentage is the display percentage: total score over the maximum
// possible score. Returns 0 when the exam has no questions or a zero
// correct-answer delta, so the result is always defined. History records
// use this same definition, so the live results view and the history list
// agree even under negative marking.
func Percentage(exam *model.Exam, sum model.ResultSummary) int {
	max := float64(len(exam.Questions)) * exam.Marking.Correct
	if max == 0 {
		return 0
	}
	return int(math.Round(sum.TotalScore / max * 100))
}

// WrongPositions returns the zero-based indices of questions answered
// incorrectly. Unanswered questions are not wrong.
func WrongPositions(exam *model.Exam, responses []model.Response) []int {
	var wrong []int
	for i, q := range exam.Questions {
		if i < len(responses) && responses[i].Answered() && responses[i].SelectedIndex != q.CorrectIndex {
			wrong = append(wrong, i)
		}
	}
	return wrong
}

// MistakesExam builds a practice exam containing only the questions the
// responses got wrong. Returns nil when there are no mistakes. The time
// limit scales with the question count at 1.5 minutes per question.
func MistakesExam(exam *model.Exam, responses []model.Response) *model.Exam {
	wrong := WrongPositions(exam, responses)
	if len(wrong) == 0 {
		return nil
	}
	questions := make([]model.Question, 0, len(wrong))
	for _, i := range wrong {
		questions = append(questions, exam.Questions[i])
	}
	return &model.Exam{
		Exam:             fmt.Sprintf("%s (Review Mistakes)", exam.Exam),
		TimeLimitMinutes: int(math.Ceil(float64(len(questions)) * 1.5)),
		Marking:          exam.Marking,
		Questions:        questions,
	}
}
